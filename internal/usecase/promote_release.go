package usecase

import (
	"fmt"
	"strings"

	"github.com/compozy/changelog/internal/domain"
)

// PromoteReleaseUseCase turns the unreleased release into a dated version.
type PromoteReleaseUseCase struct {
	// KeepUnreleased inserts a fresh, empty unreleased release above the
	// promoted one.
	KeepUnreleased bool
	// CompareURL is a template with {previous} and {current} placeholders.
	CompareURL string
	// ReleaseURL is a template with a {current} placeholder used for the
	// oldest release, which has nothing to compare against.
	ReleaseURL string
	TagPrefix  string
}

// Execute promotes the unreleased release of cl to version, dated date.
func (uc *PromoteReleaseUseCase) Execute(cl *domain.Changelog, version *domain.Version, date string) (*domain.Release, error) {
	release := cl.Unreleased()
	if release == nil {
		return nil, domain.ErrNoUnreleased
	}
	if existing := cl.Find(version.Bare()); existing != nil && existing != release {
		return nil, fmt.Errorf("%w: %s", domain.ErrVersionExists, existing.Label)
	}
	usePrefix := !release.Bracketed
	if len(cl.Released()) > 0 {
		usePrefix = cl.UsesPrefix()
	}
	placeholder := release.Label
	release.Label = version.Bare()
	if usePrefix {
		release.Label = version.String()
	}
	release.Version = version
	release.Unreleased = false
	release.Date = date
	release.Sections = nonEmptySections(release.Sections)
	if uc.KeepUnreleased {
		fresh := domain.NewUnreleased(placeholder)
		fresh.Bracketed = release.Bracketed
		idx := indexOf(cl.Releases, release)
		cl.Releases = append(cl.Releases[:idx], append([]*domain.Release{fresh}, cl.Releases[idx:]...)...)
	}
	uc.syncLinks(cl)
	return release, nil
}

func nonEmptySections(sections []*domain.Section) []*domain.Section {
	out := sections[:0]
	for _, s := range sections {
		if len(s.Entries) > 0 {
			out = append(out, s)
		}
	}
	return out
}

func indexOf(releases []*domain.Release, r *domain.Release) int {
	for i, candidate := range releases {
		if candidate == r {
			return i
		}
	}
	return 0
}

// syncLinks regenerates the reference links of bracketed releases. Links that
// do not belong to a release keep their relative order after them.
func (uc *PromoteReleaseUseCase) syncLinks(cl *domain.Changelog) {
	if uc.CompareURL == "" && uc.ReleaseURL == "" {
		return
	}
	existing := make(map[string]string, len(cl.Links))
	for _, l := range cl.Links {
		existing[strings.ToLower(l.Label)] = l.URL
	}
	owned := make(map[string]bool)
	var links []domain.Link
	for i, r := range cl.Releases {
		if !r.Bracketed {
			continue
		}
		key := strings.ToLower(r.Label)
		owned[key] = true
		url := uc.linkFor(r, previousVersion(cl.Releases[i+1:]))
		if url == "" {
			url = existing[key]
		}
		if url != "" {
			links = append(links, domain.Link{Label: r.Label, URL: url})
		}
	}
	for _, l := range cl.Links {
		if !owned[strings.ToLower(l.Label)] {
			links = append(links, l)
		}
	}
	cl.Links = links
}

func (uc *PromoteReleaseUseCase) linkFor(r *domain.Release, previous *domain.Version) string {
	current := "HEAD"
	if r.Version != nil {
		current = uc.TagPrefix + r.Version.Bare()
	}
	if previous != nil && uc.CompareURL != "" {
		return strings.NewReplacer(
			"{previous}", uc.TagPrefix+previous.Bare(),
			"{current}", current,
		).Replace(uc.CompareURL)
	}
	if previous == nil && r.Version != nil && uc.ReleaseURL != "" {
		return strings.ReplaceAll(uc.ReleaseURL, "{current}", current)
	}
	return ""
}

func previousVersion(below []*domain.Release) *domain.Version {
	for _, r := range below {
		if r.Version != nil {
			return r.Version
		}
	}
	return nil
}
