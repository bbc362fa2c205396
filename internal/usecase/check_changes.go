package usecase

import (
	"github.com/compozy/changelog/internal/domain"
)

// CheckChangesUseCase contains the logic for the check-changes step.
type CheckChangesUseCase struct{}

// Execute reports whether the unreleased release holds entries, along with
// the latest released label ("" when nothing was released yet).
func (uc *CheckChangesUseCase) Execute(cl *domain.Changelog) (bool, string) {
	latest := ""
	if v := cl.LatestVersion(); v != nil {
		if r := cl.Find(v.Bare()); r != nil {
			latest = r.Label
		}
	}
	unreleased := cl.Unreleased()
	return unreleased != nil && unreleased.EntryCount() > 0, latest
}
