package domain

import (
	"strings"
	"time"
)

// DateLayout is the date format used in release headers.
const DateLayout = "2006-01-02"

// DefaultUnreleasedLabels are the placeholder labels recognized for the
// release that collects upcoming changes.
var DefaultUnreleasedLabels = []string{"Unreleased", "next"}

// Entry is a single change description.
type Entry struct {
	Text string `json:"text" yaml:"text"`
	Line int    `json:"line,omitempty" yaml:"line,omitempty"`
}

// Section groups the entries of one category inside a release.
type Section struct {
	Category Category `json:"category" yaml:"category"`
	Entries  []Entry  `json:"entries" yaml:"entries"`
	// Trailer is free text written after the entries, such as a
	// "Full Changelog" link.
	Trailer []string `json:"trailer,omitempty" yaml:"trailer,omitempty"`
	Line    int      `json:"line,omitempty" yaml:"line,omitempty"`
}

// Release is one "## " block of a changelog.
type Release struct {
	Label      string     `json:"label" yaml:"label"`
	Version    *Version   `json:"-" yaml:"-"`
	Unreleased bool       `json:"unreleased" yaml:"unreleased"`
	Date       string     `json:"date,omitempty" yaml:"date,omitempty"`
	Yanked     bool       `json:"yanked,omitempty" yaml:"yanked,omitempty"`
	Bracketed  bool       `json:"-" yaml:"-"`
	Notes      []string   `json:"notes,omitempty" yaml:"notes,omitempty"`
	Sections   []*Section `json:"sections" yaml:"sections"`
	Line       int        `json:"line,omitempty" yaml:"line,omitempty"`
	// Loose holds bullets that appear before the first category heading.
	Loose []Entry `json:"-" yaml:"-"`
}

// NewUnreleased creates an empty placeholder release.
func NewUnreleased(label string) *Release {
	return &Release{Label: label, Unreleased: true, Bracketed: true}
}

// IsUnreleasedLabel reports whether label matches one of labels, ignoring case.
func IsUnreleasedLabel(label string, labels []string) bool {
	for _, l := range labels {
		if strings.EqualFold(strings.TrimSpace(label), l) {
			return true
		}
	}
	return false
}

// Section returns the first section for category, or nil.
func (r *Release) Section(category Category) *Section {
	for _, s := range r.Sections {
		if s.Category == category {
			return s
		}
	}
	return nil
}

// EnsureSection returns the section for category, creating it at its
// canonical position when missing.
func (r *Release) EnsureSection(category Category) *Section {
	if s := r.Section(category); s != nil {
		return s
	}
	section := &Section{Category: category}
	rank := category.Rank()
	idx := len(r.Sections)
	for i, s := range r.Sections {
		if sr := s.Category.Rank(); sr >= 0 && sr > rank {
			idx = i
			break
		}
	}
	r.Sections = append(r.Sections, nil)
	copy(r.Sections[idx+1:], r.Sections[idx:])
	r.Sections[idx] = section
	return section
}

// EntryCount returns the number of entries across all sections.
func (r *Release) EntryCount() int {
	n := 0
	for _, s := range r.Sections {
		n += len(s.Entries)
	}
	return n
}

// HasEntry reports whether any section already holds text.
func (r *Release) HasEntry(text string) bool {
	for _, s := range r.Sections {
		for _, e := range s.Entries {
			if strings.EqualFold(strings.TrimSpace(e.Text), strings.TrimSpace(text)) {
				return true
			}
		}
	}
	return false
}

// ParsedDate returns the release date, or false when missing or malformed.
func (r *Release) ParsedDate() (time.Time, bool) {
	if r.Date == "" {
		return time.Time{}, false
	}
	t, err := time.Parse(DateLayout, r.Date)
	if err != nil {
		return time.Time{}, false
	}
	return t, true
}

// Heading renders the text after "## ".
func (r *Release) Heading() string {
	var b strings.Builder
	if r.Bracketed {
		b.WriteString("[" + r.Label + "]")
	} else {
		b.WriteString(r.Label)
	}
	if r.Date != "" {
		b.WriteString(" - " + r.Date)
	}
	if r.Yanked {
		b.WriteString(" [YANKED]")
	}
	return b.String()
}
