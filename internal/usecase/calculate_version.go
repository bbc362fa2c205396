package usecase

import (
	"context"
	"fmt"
	"strings"

	"github.com/compozy/changelog/internal/domain"
	"github.com/compozy/changelog/internal/repository"
)

// BreakingMarker prefixes entries describing incompatible changes.
const BreakingMarker = "**BREAKING**"

// CalculateVersionRequest selects how the next version is chosen.
type CalculateVersionRequest struct {
	// Explicit wins over Bump when set.
	Explicit string
	Bump     domain.BumpKind
	// Force allows a release without unreleased entries.
	Force bool
}

// CalculateVersionResult reports the version a release would get.
type CalculateVersionResult struct {
	Base *domain.Version
	Next *domain.Version
	Bump domain.BumpKind
}

// CalculateVersionUseCase contains the logic for the next-version command.
type CalculateVersionUseCase struct {
	// GitRepo is optional. Without it only the changelog is consulted.
	GitRepo        repository.GitRepository
	InitialVersion string
	TagPrefix      string
}

// Execute runs the use case.
func (uc *CalculateVersionUseCase) Execute(
	ctx context.Context,
	cl *domain.Changelog,
	req CalculateVersionRequest,
) (*CalculateVersionResult, error) {
	base, initial, err := uc.baseVersion(ctx, cl)
	if err != nil {
		return nil, err
	}
	unreleased := cl.Unreleased()
	if req.Explicit == "" && !req.Force && (unreleased == nil || unreleased.EntryCount() == 0) {
		return nil, domain.ErrNothingToRelease
	}
	if req.Explicit != "" {
		next, err := domain.NewStrictVersion(req.Explicit)
		if err != nil {
			return nil, fmt.Errorf("invalid version %q: %w", req.Explicit, err)
		}
		cmp := next.Compare(base)
		if cmp < 0 || (cmp == 0 && !initial) {
			return nil, fmt.Errorf("%w: %s is not greater than %s", domain.ErrVersionNotGreater, next.Bare(), base.Bare())
		}
		return &CalculateVersionResult{Base: base, Next: next}, nil
	}
	kind := req.Bump
	if kind == "" || kind == domain.BumpAuto {
		kind = DetectBump(unreleased)
	}
	next, err := base.Bump(kind)
	if err != nil {
		return nil, err
	}
	return &CalculateVersionResult{Base: base, Next: next, Bump: kind}, nil
}

// baseVersion returns the highest version known to the changelog or to git.
// initial is true when neither knows one and the configured initial version
// is used.
func (uc *CalculateVersionUseCase) baseVersion(ctx context.Context, cl *domain.Changelog) (*domain.Version, bool, error) {
	base := cl.LatestVersion()
	if uc.GitRepo != nil {
		tag, err := uc.GitRepo.LatestTag(ctx)
		if err != nil {
			return nil, false, fmt.Errorf("failed to get latest tag: %w", err)
		}
		if tag != "" {
			tagged, err := domain.NewStrictVersion(strings.TrimPrefix(tag, uc.TagPrefix))
			if err != nil {
				return nil, false, fmt.Errorf("invalid version tag %q: %w", tag, err)
			}
			if base == nil || tagged.Compare(base) > 0 {
				base = tagged
			}
		}
	}
	if base != nil {
		return base, false, nil
	}
	initial := uc.InitialVersion
	if initial == "" {
		initial = "0.0.0"
	}
	v, err := domain.NewStrictVersion(initial)
	if err != nil {
		return nil, false, fmt.Errorf("invalid initial version %q: %w", initial, err)
	}
	return v, true, nil
}

// DetectBump derives the bump from the kinds of unreleased changes.
func DetectBump(r *domain.Release) domain.BumpKind {
	if r == nil {
		return domain.BumpPatch
	}
	kind := domain.BumpPatch
	for _, s := range r.Sections {
		if len(s.Entries) == 0 {
			continue
		}
		for _, e := range s.Entries {
			if strings.HasPrefix(e.Text, BreakingMarker) {
				return domain.BumpMajor
			}
		}
		switch s.Category {
		case domain.CategoryRemoved:
			return domain.BumpMajor
		case domain.CategoryAdded, domain.CategoryChanged, domain.CategoryDeprecated:
			kind = domain.BumpMinor
		}
	}
	return kind
}
