// Package lint checks a parsed changelog against the Keep a Changelog
// conventions.
package lint

import (
	"strings"

	"github.com/compozy/changelog/internal/domain"
)

const (
	RuleEntryOutsideRelease  = "entry-outside-release"
	RuleEntryOutsideCategory = "entry-outside-category"
	RuleUnknownCategory      = "unknown-category"
	RuleDuplicateCategory    = "duplicate-category"
	RuleEmptyCategory        = "empty-category"
	RuleEmptyEntry           = "empty-entry"
	RuleEmptyRelease         = "empty-release"
	RuleInvalidVersion       = "invalid-version"
	RuleDuplicateVersion     = "duplicate-version"
	RuleUnreleasedPosition   = "unreleased-position"
	RuleVersionOrder         = "version-order"
	RuleInvalidDate          = "invalid-date"
	RuleDateOrder            = "date-order"
	RuleMissingDate          = "missing-date"
	RuleMissingTag           = "missing-tag"
)

// Rules maps every rule to its severity.
var Rules = map[string]domain.Severity{
	RuleEntryOutsideRelease:  domain.SeverityError,
	RuleEntryOutsideCategory: domain.SeverityError,
	RuleUnknownCategory:      domain.SeverityError,
	RuleDuplicateCategory:    domain.SeverityWarning,
	RuleEmptyCategory:        domain.SeverityWarning,
	RuleEmptyEntry:           domain.SeverityError,
	RuleEmptyRelease:         domain.SeverityWarning,
	RuleInvalidVersion:       domain.SeverityError,
	RuleDuplicateVersion:     domain.SeverityError,
	RuleUnreleasedPosition:   domain.SeverityError,
	RuleVersionOrder:         domain.SeverityError,
	RuleInvalidDate:          domain.SeverityError,
	RuleDateOrder:            domain.SeverityWarning,
	RuleMissingDate:          domain.SeverityWarning,
	RuleMissingTag:           domain.SeverityWarning,
}

// Options tune a lint run.
type Options struct {
	// Disabled lists rule names to skip.
	Disabled []string
	// Tags are the git tags of the repository. The missing-tag rule only runs
	// when Tags is non-nil.
	Tags []string
	// TagPrefix is stripped from tags before they are compared to versions.
	TagPrefix string
}

type linter struct {
	opts     Options
	disabled map[string]bool
	report   *domain.Report
}

// Run lints cl and returns the sorted report.
func Run(cl *domain.Changelog, opts Options) *domain.Report {
	l := &linter{opts: opts, disabled: make(map[string]bool), report: &domain.Report{}}
	for _, rule := range opts.Disabled {
		l.disabled[strings.TrimSpace(rule)] = true
	}
	l.checkStray(cl)
	l.checkReleases(cl)
	l.checkOrder(cl)
	if opts.Tags != nil {
		l.checkTags(cl)
	}
	l.report.Sort()
	return l.report
}

func (l *linter) add(rule string, line int, format string, args ...any) {
	if l.disabled[rule] {
		return
	}
	l.report.Add(rule, Rules[rule], line, format, args...)
}

func (l *linter) checkStray(cl *domain.Changelog) {
	for _, e := range cl.Stray {
		l.add(RuleEntryOutsideRelease, e.Line, "%q appears before the first release", firstLine(e.Text))
	}
}

func (l *linter) checkReleases(cl *domain.Changelog) {
	for _, r := range cl.Releases {
		if !r.Unreleased && r.Version == nil {
			l.add(RuleInvalidVersion, r.Line, "release label %q is neither a semantic version nor an unreleased label", r.Label)
		}
		if r.Date != "" {
			if _, ok := r.ParsedDate(); !ok {
				l.add(RuleInvalidDate, r.Line, "release %s has invalid date %q, expected YYYY-MM-DD", r.Label, r.Date)
			}
		} else if r.Version != nil {
			l.add(RuleMissingDate, r.Line, "release %s has no date", r.Label)
		}
		if r.Version != nil && r.EntryCount() == 0 && len(r.Loose) == 0 {
			l.add(RuleEmptyRelease, r.Line, "release %s has no entries", r.Label)
		}
		for _, e := range r.Loose {
			l.add(RuleEntryOutsideCategory, e.Line, "entry %q in release %s is not under a category heading", firstLine(e.Text), r.Label)
		}
		seen := make(map[domain.Category]bool)
		for _, s := range r.Sections {
			if !s.Category.Known() {
				l.add(RuleUnknownCategory, s.Line, "unknown category %q in release %s", s.Category, r.Label)
			}
			if seen[s.Category] {
				l.add(RuleDuplicateCategory, s.Line, "category %s appears more than once in release %s", s.Category, r.Label)
			}
			seen[s.Category] = true
			if len(s.Entries) == 0 {
				l.add(RuleEmptyCategory, s.Line, "category %s in release %s has no entries", s.Category, r.Label)
			}
			for _, e := range s.Entries {
				if strings.TrimSpace(e.Text) == "" {
					l.add(RuleEmptyEntry, e.Line, "empty entry in %s of release %s", s.Category, r.Label)
				}
			}
		}
	}
}

// checkOrder verifies releases run newest first.
func (l *linter) checkOrder(cl *domain.Changelog) {
	var (
		seenUnreleased bool
		previous       *domain.Release
		previousDated  *domain.Release
		versions       []*domain.Version
	)
	for i, r := range cl.Releases {
		if r.Unreleased {
			switch {
			case seenUnreleased:
				l.add(RuleUnreleasedPosition, r.Line, "more than one unreleased section (%s)", r.Label)
			case i > 0:
				l.add(RuleUnreleasedPosition, r.Line, "unreleased section %s must be the first release", r.Label)
			}
			seenUnreleased = true
			continue
		}
		if r.Version == nil {
			continue
		}
		duplicate := false
		for _, v := range versions {
			if v.Equal(r.Version.Version) {
				l.add(RuleDuplicateVersion, r.Line, "version %s is listed more than once", r.Label)
				duplicate = true
				break
			}
		}
		versions = append(versions, r.Version)
		if !duplicate && previous != nil && r.Version.Compare(previous.Version) >= 0 {
			l.add(RuleVersionOrder, r.Line, "release %s is listed below older release %s", r.Label, previous.Label)
		}
		if !duplicate {
			previous = r
		}
		date, ok := r.ParsedDate()
		if !ok {
			continue
		}
		if previousDated != nil {
			above, _ := previousDated.ParsedDate()
			if date.After(above) {
				l.add(RuleDateOrder, r.Line, "release %s (%s) is dated after release %s (%s) above it", r.Label, r.Date, previousDated.Label, previousDated.Date)
			}
		}
		previousDated = r
	}
}

func (l *linter) checkTags(cl *domain.Changelog) {
	tagged := make(map[string]bool, len(l.opts.Tags))
	for _, tag := range l.opts.Tags {
		v, err := domain.NewStrictVersion(strings.TrimPrefix(tag, l.opts.TagPrefix))
		if err != nil {
			continue
		}
		tagged[v.Bare()] = true
	}
	for _, r := range cl.Releases {
		if r.Version == nil {
			continue
		}
		if !tagged[r.Version.Bare()] {
			l.add(RuleMissingTag, r.Line, "release %s has no matching git tag", r.Label)
		}
	}
}

func firstLine(s string) string {
	if i := strings.IndexByte(s, '\n'); i >= 0 {
		return s[:i]
	}
	return s
}
