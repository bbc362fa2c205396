package domain

import (
	"errors"
	"strings"
)

var (
	ErrNoUnreleased      = errors.New("changelog has no unreleased section")
	ErrVersionExists     = errors.New("version already exists in changelog")
	ErrVersionNotFound   = errors.New("version not found in changelog")
	ErrUnknownCategory   = errors.New("unknown category")
	ErrEmptyEntry        = errors.New("entry text cannot be empty")
	ErrNothingToRelease  = errors.New("unreleased section has no entries")
	ErrVersionNotGreater = errors.New("version must be greater than the latest release")
)

// DefaultTitle is the H1 used for new changelogs.
const DefaultTitle = "Changelog"

// Link is a Markdown link reference definition, e.g. "[1.0.0]: https://...".
type Link struct {
	Label string `json:"label" yaml:"label"`
	URL   string `json:"url" yaml:"url"`
}

// Changelog is the parsed form of a Keep a Changelog document. Releases are
// ordered as they appear in the file, newest first by convention.
type Changelog struct {
	Title    string     `json:"title" yaml:"title"`
	Preamble []string   `json:"preamble,omitempty" yaml:"preamble,omitempty"`
	Releases []*Release `json:"releases" yaml:"releases"`
	Links    []Link     `json:"links,omitempty" yaml:"links,omitempty"`
	// Stray holds entries found before the first release header.
	Stray []Entry `json:"-" yaml:"-"`
}

// New returns an empty changelog with the default title.
func New() *Changelog {
	return &Changelog{Title: DefaultTitle}
}

// Unreleased returns the first unreleased release, or nil.
func (c *Changelog) Unreleased() *Release {
	for _, r := range c.Releases {
		if r.Unreleased {
			return r
		}
	}
	return nil
}

// EnsureUnreleased returns the unreleased release, inserting one with label
// at the top when missing.
func (c *Changelog) EnsureUnreleased(label string) *Release {
	if r := c.Unreleased(); r != nil {
		return r
	}
	r := NewUnreleased(label)
	c.Releases = append([]*Release{r}, c.Releases...)
	return r
}

// Find returns the release whose label or version matches s.
func (c *Changelog) Find(s string) *Release {
	s = strings.TrimSpace(s)
	want, err := NewStrictVersion(s)
	for _, r := range c.Releases {
		if strings.EqualFold(r.Label, s) {
			return r
		}
		if err == nil && r.Version != nil && r.Version.Equal(want.Version) {
			return r
		}
	}
	return nil
}

// LatestVersion returns the highest released version, or nil.
func (c *Changelog) LatestVersion() *Version {
	var latest *Version
	for _, r := range c.Releases {
		if r.Version == nil {
			continue
		}
		if latest == nil || r.Version.Compare(latest) > 0 {
			latest = r.Version
		}
	}
	return latest
}

// Released returns the releases carrying a version, in file order.
func (c *Changelog) Released() []*Release {
	var out []*Release
	for _, r := range c.Releases {
		if r.Version != nil {
			out = append(out, r)
		}
	}
	return out
}

// UsesPrefix reports whether existing release labels are written with a "v"
// prefix. An empty changelog defaults to true.
func (c *Changelog) UsesPrefix() bool {
	for _, r := range c.Releases {
		if r.Version != nil {
			return strings.HasPrefix(r.Label, "v")
		}
	}
	return true
}

// SetLink replaces or appends the link definition for label.
func (c *Changelog) SetLink(label, url string) {
	for i := range c.Links {
		if strings.EqualFold(c.Links[i].Label, label) {
			c.Links[i].URL = url
			return
		}
	}
	c.Links = append(c.Links, Link{Label: label, URL: url})
}
