package usecase

import (
	"context"
	"fmt"
	"slices"

	"github.com/compozy/changelog/internal/repository"
)

// CreateReleaseBranchUseCase contains the logic for the create_branch step.
type CreateReleaseBranchUseCase struct {
	GitRepo repository.GitExtendedRepository
}

// Execute checks out branchName, creating it from HEAD when missing. created
// reports whether the branch is new, which decides whether a rollback may
// delete it.
func (uc *CreateReleaseBranchUseCase) Execute(ctx context.Context, branchName string) (bool, error) {
	branches, err := uc.GitRepo.ListLocalBranches(ctx)
	if err != nil {
		return false, fmt.Errorf("failed to list branches: %w", err)
	}
	created := !slices.Contains(branches, branchName)
	if created {
		if err := uc.GitRepo.CreateBranch(ctx, branchName); err != nil {
			return false, fmt.Errorf("failed to create release branch: %w", err)
		}
	}
	if err := uc.GitRepo.CheckoutBranch(ctx, branchName); err != nil {
		return created, fmt.Errorf("failed to checkout release branch: %w", err)
	}
	return created, nil
}
