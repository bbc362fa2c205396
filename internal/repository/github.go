package repository

import "context"

// GithubRepository defines the GitHub operations used by pull request checks.
type GithubRepository interface {
	CreatePullRequest(ctx context.Context, title, body, head, base string) (int, error)
	// AddComment adds a comment to a pull request or issue.
	AddComment(ctx context.Context, prNumber int, body string) error
	// ListPRLabels returns the label names of a pull request.
	ListPRLabels(ctx context.Context, prNumber int) ([]string, error)
}
