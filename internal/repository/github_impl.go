package repository

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/compozy/changelog/internal/config"
	"github.com/google/go-github/v68/github"
	"go.uber.org/zap"
	"golang.org/x/oauth2"
)

// ErrNotFound is returned when GitHub answers 404 for a resource.
var ErrNotFound = errors.New("github resource not found")

// githubRepository is the go-github implementation of GithubExtendedRepository.
type githubRepository struct {
	client *github.Client
	owner  string
	repo   string
	logger *zap.Logger
}

// NewGithubExtendedRepository creates a GithubExtendedRepository after
// validating the token and repository coordinates.
func NewGithubExtendedRepository(token, owner, repo string, logger *zap.Logger) (GithubExtendedRepository, error) {
	r, err := newValidatedGithubRepository(token, owner, repo, logger)
	if err != nil {
		return nil, err
	}
	return r, nil
}

func newValidatedGithubRepository(token, owner, repo string, logger *zap.Logger) (*githubRepository, error) {
	if err := config.ValidateGitHubToken(token); err != nil {
		return nil, fmt.Errorf("invalid GitHub token: %w", err)
	}
	if err := config.ValidateGitHubOwnerRepo(owner, repo); err != nil {
		return nil, fmt.Errorf("invalid repository configuration: %w", err)
	}
	ts := oauth2.StaticTokenSource(&oauth2.Token{AccessToken: strings.TrimSpace(token)})
	client := github.NewClient(oauth2.NewClient(context.Background(), ts))
	return newGithubRepository(client, owner, repo, logger), nil
}

func newGithubRepository(client *github.Client, owner, repo string, logger *zap.Logger) *githubRepository {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &githubRepository{
		client: client,
		owner:  owner,
		repo:   repo,
		logger: logger.With(zap.String("repository", owner+"/"+repo)),
	}
}

// notFound maps a 404 response onto ErrNotFound.
func notFound(resp *github.Response, err error) error {
	if resp != nil && resp.StatusCode == http.StatusNotFound {
		return fmt.Errorf("%w: %w", ErrNotFound, err)
	}
	return err
}

// CreatePullRequest creates a new pull request.
func (r *githubRepository) CreatePullRequest(ctx context.Context, title, body, head, base string) (int, error) {
	pr, _, err := r.client.PullRequests.Create(ctx, r.owner, r.repo, &github.NewPullRequest{
		Title: &title,
		Body:  &body,
		Head:  &head,
		Base:  &base,
	})
	if err != nil {
		return 0, fmt.Errorf("failed to create pull request: %w", err)
	}
	return pr.GetNumber(), nil
}

// CreateOrUpdatePR updates the open PR from head into base, or creates one.
func (r *githubRepository) CreateOrUpdatePR(
	ctx context.Context,
	head, base, title, body string,
	labels []string,
) (int, error) {
	log := r.logger.With(zap.String("head", head), zap.String("base", base))
	prs, _, err := r.client.PullRequests.List(ctx, r.owner, r.repo, &github.PullRequestListOptions{
		Head:  fmt.Sprintf("%s:%s", r.owner, head),
		Base:  base,
		State: "open",
	})
	if err != nil {
		return 0, fmt.Errorf("failed to list pull requests: %w", err)
	}
	var number int
	if len(prs) > 0 {
		number = prs[0].GetNumber()
		log.Debug("updating existing pull request", zap.Int("pr", number))
		if _, _, err := r.client.PullRequests.Edit(ctx, r.owner, r.repo, number, &github.PullRequest{
			Title: &title,
			Body:  &body,
		}); err != nil {
			return 0, fmt.Errorf("failed to update pull request #%d: %w", number, err)
		}
	} else {
		if number, err = r.CreatePullRequest(ctx, title, body, head, base); err != nil {
			return 0, err
		}
		log.Debug("created pull request", zap.Int("pr", number))
	}
	if len(labels) > 0 {
		if _, _, err := r.client.Issues.AddLabelsToIssue(ctx, r.owner, r.repo, number, labels); err != nil {
			return number, fmt.Errorf("failed to add labels to pull request #%d: %w", number, err)
		}
	}
	return number, nil
}

// AddComment adds a comment to a pull request.
func (r *githubRepository) AddComment(ctx context.Context, prNumber int, body string) error {
	_, resp, err := r.client.Issues.CreateComment(ctx, r.owner, r.repo, prNumber, &github.IssueComment{
		Body: github.Ptr(body),
	})
	if err != nil {
		return fmt.Errorf("failed to add comment to PR #%d: %w", prNumber, notFound(resp, err))
	}
	return nil
}

// ListPRLabels returns the label names of a pull request.
func (r *githubRepository) ListPRLabels(ctx context.Context, prNumber int) ([]string, error) {
	opts := &github.ListOptions{PerPage: 100}
	var names []string
	for {
		labels, resp, err := r.client.Issues.ListLabelsByIssue(ctx, r.owner, r.repo, prNumber, opts)
		if err != nil {
			return nil, fmt.Errorf("failed to list labels of PR #%d: %w", prNumber, notFound(resp, err))
		}
		for _, l := range labels {
			names = append(names, l.GetName())
		}
		if resp == nil || resp.NextPage == 0 {
			return names, nil
		}
		opts.Page = resp.NextPage
	}
}

// ClosePR closes a pull request.
func (r *githubRepository) ClosePR(ctx context.Context, prNumber int) error {
	_, resp, err := r.client.PullRequests.Edit(ctx, r.owner, r.repo, prNumber, &github.PullRequest{
		State: github.Ptr("closed"),
	})
	if err != nil {
		return fmt.Errorf("failed to close PR #%d: %w", prNumber, notFound(resp, err))
	}
	return nil
}

// GetPRStatus returns the status of a pull request.
func (r *githubRepository) GetPRStatus(ctx context.Context, prNumber int) (string, error) {
	pr, resp, err := r.client.PullRequests.Get(ctx, r.owner, r.repo, prNumber)
	if err != nil {
		return "", fmt.Errorf("failed to get PR #%d: %w", prNumber, notFound(resp, err))
	}
	if pr.GetMerged() {
		return "merged", nil
	}
	return pr.GetState(), nil
}

// CreateOrUpdateRelease creates the GitHub release for tag, or rewrites the
// existing one.
func (r *githubRepository) CreateOrUpdateRelease(
	ctx context.Context,
	tag, name, body string,
	prerelease bool,
) (int64, error) {
	release := &github.RepositoryRelease{
		TagName:    github.Ptr(tag),
		Name:       github.Ptr(name),
		Body:       github.Ptr(body),
		Prerelease: github.Ptr(prerelease),
	}
	existing, resp, err := r.client.Repositories.GetReleaseByTag(ctx, r.owner, r.repo, tag)
	switch {
	case err == nil:
		updated, _, err := r.client.Repositories.EditRelease(ctx, r.owner, r.repo, existing.GetID(), release)
		if err != nil {
			return 0, fmt.Errorf("failed to update release %s: %w", tag, err)
		}
		r.logger.Debug("updated release", zap.String("tag", tag), zap.Int64("id", updated.GetID()))
		return updated.GetID(), nil
	case errors.Is(notFound(resp, err), ErrNotFound):
		created, _, err := r.client.Repositories.CreateRelease(ctx, r.owner, r.repo, release)
		if err != nil {
			return 0, fmt.Errorf("failed to create release %s: %w", tag, err)
		}
		r.logger.Debug("created release", zap.String("tag", tag), zap.Int64("id", created.GetID()))
		return created.GetID(), nil
	default:
		return 0, fmt.Errorf("failed to look up release %s: %w", tag, err)
	}
}

// DeleteRelease deletes a GitHub release by id.
func (r *githubRepository) DeleteRelease(ctx context.Context, releaseID int64) error {
	resp, err := r.client.Repositories.DeleteRelease(ctx, r.owner, r.repo, releaseID)
	if err != nil {
		return fmt.Errorf("failed to delete release %d: %w", releaseID, notFound(resp, err))
	}
	return nil
}
