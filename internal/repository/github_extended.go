package repository

import "context"

// GithubExtendedRepository extends GithubRepository with the operations the
// release workflow publishes with.
type GithubExtendedRepository interface {
	GithubRepository
	// CreateOrUpdatePR creates a new PR or updates the open one for head and
	// returns its number.
	CreateOrUpdatePR(ctx context.Context, head, base, title, body string, labels []string) (int, error)
	ClosePR(ctx context.Context, prNumber int) error
	// GetPRStatus returns open, closed or merged.
	GetPRStatus(ctx context.Context, prNumber int) (string, error)
	// CreateOrUpdateRelease publishes notes for tag and returns the release id.
	CreateOrUpdateRelease(ctx context.Context, tag, name, body string, prerelease bool) (int64, error)
	DeleteRelease(ctx context.Context, releaseID int64) error
}
