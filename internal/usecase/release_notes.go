package usecase

import (
	"fmt"
	"strings"

	"github.com/compozy/changelog/internal/domain"
	"github.com/compozy/changelog/internal/parser"
)

// ReleaseNotesUseCase renders the sections of a single release.
type ReleaseNotesUseCase struct {
	UnreleasedLabels []string
}

// Resolve finds the release named by ref. An empty ref selects the highest
// released version, an unreleased label selects the unreleased release.
func (uc *ReleaseNotesUseCase) Resolve(cl *domain.Changelog, ref string) (*domain.Release, error) {
	ref = strings.TrimSpace(ref)
	labels := uc.UnreleasedLabels
	if len(labels) == 0 {
		labels = domain.DefaultUnreleasedLabels
	}
	switch {
	case ref == "":
		latest := cl.LatestVersion()
		if latest == nil {
			return nil, fmt.Errorf("%w: changelog has no released versions", domain.ErrVersionNotFound)
		}
		return cl.Find(latest.Bare()), nil
	case domain.IsUnreleasedLabel(ref, labels):
		if r := cl.Unreleased(); r != nil {
			return r, nil
		}
		return nil, domain.ErrNoUnreleased
	}
	if r := cl.Find(ref); r != nil {
		return r, nil
	}
	return nil, fmt.Errorf("%w: %s", domain.ErrVersionNotFound, ref)
}

// Execute returns the Markdown notes of the release named by ref.
func (uc *ReleaseNotesUseCase) Execute(cl *domain.Changelog, ref string) (string, error) {
	r, err := uc.Resolve(cl, ref)
	if err != nil {
		return "", err
	}
	return parser.ReleaseNotes(r), nil
}
