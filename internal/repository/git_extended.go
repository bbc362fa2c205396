package repository

import "context"

// GitExtendedRepository adds the operations the release workflow and its
// compensations need.
type GitExtendedRepository interface {
	GitRepository
	CheckoutBranch(ctx context.Context, name string) error
	ConfigureUser(ctx context.Context, name, email string) error
	AddFiles(ctx context.Context, pattern string) error
	Commit(ctx context.Context, message string) error
	GetHeadCommit(ctx context.Context) (string, error)
	GetCurrentBranch(ctx context.Context) (string, error)
	PushBranchForce(ctx context.Context, branch string) error
	DeleteBranch(ctx context.Context, name string) error
	DeleteRemoteBranch(ctx context.Context, name string) error
	ListLocalBranches(ctx context.Context) ([]string, error)
	ListRemoteBranches(ctx context.Context) ([]string, error)
	DeleteTag(ctx context.Context, tag string) error
	DeleteRemoteTag(ctx context.Context, tag string) error
	RestoreFile(ctx context.Context, path string) error
	ResetHard(ctx context.Context, ref string) error
	// GetFileStatus returns "clean" or "modified".
	GetFileStatus(ctx context.Context, path string) (string, error)
}
