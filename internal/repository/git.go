package repository

import "context"

// GitRepository defines the git operations needed to read release history
// and cut a release.
type GitRepository interface {
	// LatestTag returns the tag carrying the highest semantic version, or ""
	// when the repository has no version tags.
	LatestTag(ctx context.Context) (string, error)
	ListTags(ctx context.Context) ([]string, error)
	CommitsSinceTag(ctx context.Context, tag string) (int, error)
	// CommitMessagesSince returns the messages of the commits reachable from
	// HEAD but not from tag, newest first. An empty tag walks the whole history.
	CommitMessagesSince(ctx context.Context, tag string) ([]string, error)
	TagExists(ctx context.Context, tag string) (bool, error)
	CreateBranch(ctx context.Context, name string) error
	CreateTag(ctx context.Context, tag, msg string) error
	PushTag(ctx context.Context, tag string) error
	PushBranch(ctx context.Context, name string) error
}
