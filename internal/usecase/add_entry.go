package usecase

import (
	"fmt"
	"strings"

	"github.com/compozy/changelog/internal/domain"
)

// AddEntryUseCase appends an entry to the unreleased release.
type AddEntryUseCase struct {
	// UnreleasedLabel names the release created when none exists yet.
	UnreleasedLabel string
}

// Execute adds text under category, creating the unreleased release and the
// category section when needed. It returns the release that was changed.
func (uc *AddEntryUseCase) Execute(cl *domain.Changelog, category, text string) (*domain.Release, error) {
	cat, ok := domain.ParseCategory(category)
	if !ok {
		return nil, fmt.Errorf("%w: %q", domain.ErrUnknownCategory, category)
	}
	text = strings.TrimSpace(text)
	if text == "" {
		return nil, domain.ErrEmptyEntry
	}
	label := uc.UnreleasedLabel
	if label == "" {
		label = domain.DefaultUnreleasedLabels[0]
	}
	release := cl.EnsureUnreleased(label)
	section := release.EnsureSection(cat)
	section.Entries = append(section.Entries, domain.Entry{Text: text})
	return release, nil
}
