package repository

import (
	"context"
	"errors"
	"fmt"
)

var ErrGithubTokenRequired = errors.New("github token is required for GitHub operations")

// githubNoopRepository stands in when no token is configured. Every call
// fails with ErrGithubTokenRequired.
type githubNoopRepository struct {
	owner string
	repo  string
}

func NewGithubNoopRepository(owner, repo string) GithubRepository {
	return &githubNoopRepository{owner: owner, repo: repo}
}

func NewGithubNoopExtendedRepository(owner, repo string) GithubExtendedRepository {
	return &githubNoopRepository{owner: owner, repo: repo}
}

func (r *githubNoopRepository) CreatePullRequest(_ context.Context, _, _, _, _ string) (int, error) {
	return 0, r.operationError("create pull request")
}

func (r *githubNoopRepository) CreateOrUpdatePR(_ context.Context, _, _, _, _ string, _ []string) (int, error) {
	return 0, r.operationError("create or update pull request")
}

func (r *githubNoopRepository) AddComment(_ context.Context, _ int, _ string) error {
	return r.operationError("add comment")
}

func (r *githubNoopRepository) ListPRLabels(_ context.Context, _ int) ([]string, error) {
	return nil, r.operationError("list pull request labels")
}

func (r *githubNoopRepository) ClosePR(_ context.Context, _ int) error {
	return r.operationError("close pull request")
}

func (r *githubNoopRepository) GetPRStatus(_ context.Context, _ int) (string, error) {
	return "", r.operationError("query pull request status")
}

func (r *githubNoopRepository) CreateOrUpdateRelease(_ context.Context, _, _, _ string, _ bool) (int64, error) {
	return 0, r.operationError("publish release")
}

func (r *githubNoopRepository) DeleteRelease(_ context.Context, _ int64) error {
	return r.operationError("delete release")
}

func (r *githubNoopRepository) operationError(action string) error {
	return fmt.Errorf("%w: unable to %s for %s/%s", ErrGithubTokenRequired, action, r.owner, r.repo)
}
