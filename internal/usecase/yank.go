package usecase

import (
	"fmt"

	"github.com/compozy/changelog/internal/domain"
)

// YankUseCase marks a published release as withdrawn.
type YankUseCase struct{}

// Execute flags the release matching version as yanked. Yanking twice is a
// no-op.
func (uc *YankUseCase) Execute(cl *domain.Changelog, version string) (*domain.Release, error) {
	r := cl.Find(version)
	if r == nil || r.Unreleased {
		return nil, fmt.Errorf("%w: %s", domain.ErrVersionNotFound, version)
	}
	r.Yanked = true
	return r, nil
}
