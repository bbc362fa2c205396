package orchestrator

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"strings"

	"github.com/compozy/changelog/internal/repository"
	"go.uber.org/zap"
)

// CompensatingActions undoes release steps from their recorded rollback data.
// Every action is idempotent so a rollback can be retried or resumed.
type CompensatingActions struct {
	gitRepo    repository.GitExtendedRepository
	githubRepo repository.GithubExtendedRepository
	changelogs repository.ChangelogRepository
	logger     *zap.Logger
}

// NewCompensatingActions creates a new compensating actions handler
func NewCompensatingActions(
	gitRepo repository.GitExtendedRepository,
	githubRepo repository.GithubExtendedRepository,
	changelogs repository.ChangelogRepository,
	logger *zap.Logger,
) *CompensatingActions {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &CompensatingActions{
		gitRepo:    gitRepo,
		githubRepo: githubRepo,
		changelogs: changelogs,
		logger:     logger,
	}
}

// DeleteBranch deletes a release branch created by the session, switching
// back to the original branch first.
func (ca *CompensatingActions) DeleteBranch(ctx context.Context, rollbackData map[string]any) error {
	branchName, ok := rollbackData["branch_name"].(string)
	if !ok || branchName == "" {
		return fmt.Errorf("branch_name not found in rollback data")
	}
	if !boolValue(rollbackData, "created_in_session") {
		ca.logger.Info("branch existed before this session, keeping it", zap.String("branch", branchName))
		return ca.switchFromBranch(ctx, branchName, rollbackData)
	}
	if err := ca.requireGit(); err != nil {
		return err
	}
	if err := ca.switchFromBranch(ctx, branchName, rollbackData); err != nil {
		return err
	}
	branches, err := ca.gitRepo.ListLocalBranches(ctx)
	if err != nil {
		return fmt.Errorf("failed to list local branches: %w", err)
	}
	if slices.Contains(branches, branchName) {
		if err := ca.gitRepo.DeleteBranch(ctx, branchName); err != nil {
			return fmt.Errorf("failed to delete local branch %s: %w", branchName, err)
		}
	}
	return nil
}

func (ca *CompensatingActions) switchFromBranch(ctx context.Context, branchName string, rollbackData map[string]any) error {
	if ca.gitRepo == nil {
		return nil
	}
	current, err := ca.gitRepo.GetCurrentBranch(ctx)
	if err != nil {
		return fmt.Errorf("failed to get current branch: %w", err)
	}
	if current != branchName {
		return nil
	}
	candidates := []string{}
	if original, ok := rollbackData["original_branch"].(string); ok && original != "" && original != branchName {
		candidates = append(candidates, original)
	}
	candidates = append(candidates, "main", "master")
	var lastErr error
	for _, candidate := range candidates {
		if lastErr = ca.gitRepo.CheckoutBranch(ctx, candidate); lastErr == nil {
			return nil
		}
	}
	return fmt.Errorf("failed to switch away from %s: %w", branchName, lastErr)
}

// RestoreChangelog writes back the changelog content recorded before it was
// promoted.
func (ca *CompensatingActions) RestoreChangelog(ctx context.Context, rollbackData map[string]any) error {
	file, ok := rollbackData["file"].(string)
	if !ok || file == "" {
		return fmt.Errorf("file not found in rollback data")
	}
	original, ok := rollbackData["original_content"].(string)
	if !ok {
		if ca.gitRepo == nil {
			return fmt.Errorf("original_content not found in rollback data")
		}
		return ca.restoreFromHead(ctx, file)
	}
	current, err := ca.changelogs.ReadRaw(ctx, file)
	if err != nil && !errors.Is(err, repository.ErrChangelogNotFound) {
		return fmt.Errorf("failed to read %s: %w", file, err)
	}
	if err == nil && string(current) == original {
		return nil
	}
	if err := ca.changelogs.WriteRaw(ctx, file, []byte(original)); err != nil {
		return fmt.Errorf("failed to restore %s: %w", file, err)
	}
	return nil
}

// restoreFromHead checks out the committed changelog when the worktree copy
// was modified.
func (ca *CompensatingActions) restoreFromHead(ctx context.Context, file string) error {
	status, err := ca.gitRepo.GetFileStatus(ctx, file)
	if err != nil {
		return fmt.Errorf("failed to get status of %s: %w", file, err)
	}
	if status != "modified" {
		return nil
	}
	if err := ca.gitRepo.RestoreFile(ctx, file); err != nil {
		return fmt.Errorf("failed to restore %s from HEAD: %w", file, err)
	}
	ca.logger.Info("restored changelog from HEAD", zap.String("file", file))
	return nil
}

// ResetCommit drops the release commit when it is still HEAD.
func (ca *CompensatingActions) ResetCommit(ctx context.Context, rollbackData map[string]any) error {
	commitSHA, ok := rollbackData["commit_sha"].(string)
	if !ok || commitSHA == "" {
		return fmt.Errorf("commit_sha not found in rollback data")
	}
	if err := ca.requireGit(); err != nil {
		return err
	}
	head, err := ca.gitRepo.GetHeadCommit(ctx)
	if err != nil {
		return fmt.Errorf("failed to get HEAD commit: %w", err)
	}
	if !strings.HasPrefix(head, commitSHA) && !strings.HasPrefix(commitSHA, head) {
		ca.logger.Info("release commit is no longer HEAD, skipping reset",
			zap.String("commit", commitSHA), zap.String("head", head))
		return nil
	}
	target := commitSHA + "~1"
	if previous, ok := rollbackData["previous_sha"].(string); ok && previous != "" {
		target = previous
	}
	if err := ca.gitRepo.ResetHard(ctx, target); err != nil {
		return fmt.Errorf("failed to reset to %s: %w", target, err)
	}
	return nil
}

// DeleteTag deletes the release tag created by the session.
func (ca *CompensatingActions) DeleteTag(ctx context.Context, rollbackData map[string]any) error {
	tag, ok := rollbackData["tag_name"].(string)
	if !ok || tag == "" {
		return fmt.Errorf("tag_name not found in rollback data")
	}
	if err := ca.requireGit(); err != nil {
		return err
	}
	exists, err := ca.gitRepo.TagExists(ctx, tag)
	if err != nil {
		return fmt.Errorf("failed to check tag %s: %w", tag, err)
	}
	if !exists {
		return nil
	}
	if err := ca.gitRepo.DeleteTag(ctx, tag); err != nil {
		return fmt.Errorf("failed to delete tag %s: %w", tag, err)
	}
	return nil
}

// DeleteRemoteRefs removes what the push step published: the release branch
// when the session created it, and the tag.
func (ca *CompensatingActions) DeleteRemoteRefs(ctx context.Context, rollbackData map[string]any) error {
	if err := ca.requireGit(); err != nil {
		return err
	}
	if tag, ok := rollbackData["tag_name"].(string); ok && tag != "" && boolValue(rollbackData, "tag_pushed") {
		if err := ca.gitRepo.DeleteRemoteTag(ctx, tag); err != nil && !isMissingRemoteRef(err) {
			return fmt.Errorf("failed to delete remote tag %s: %w", tag, err)
		}
	}
	branch, ok := rollbackData["branch_name"].(string)
	if !ok || branch == "" || !boolValue(rollbackData, "branch_pushed") || !boolValue(rollbackData, "branch_created") {
		return nil
	}
	remote, err := ca.gitRepo.ListRemoteBranches(ctx)
	if err != nil {
		return fmt.Errorf("failed to list remote branches: %w", err)
	}
	if !slices.ContainsFunc(remote, func(b string) bool { return b == branch || strings.HasSuffix(b, "/"+branch) }) {
		return nil
	}
	if err := ca.gitRepo.DeleteRemoteBranch(ctx, branch); err != nil {
		return fmt.Errorf("failed to delete remote branch %s: %w", branch, err)
	}
	return nil
}

// ClosePullRequest closes the release pull request unless it was merged.
func (ca *CompensatingActions) ClosePullRequest(ctx context.Context, rollbackData map[string]any) error {
	prNumber := intValue(rollbackData, "pr_number")
	if prNumber <= 0 {
		return fmt.Errorf("pr_number not found in rollback data")
	}
	status, err := ca.githubRepo.GetPRStatus(ctx, prNumber)
	if errors.Is(err, repository.ErrNotFound) {
		return nil
	}
	if err != nil {
		return fmt.Errorf("failed to get status of PR #%d: %w", prNumber, err)
	}
	switch status {
	case "closed":
		return nil
	case "merged":
		ca.logger.Warn("release PR is already merged, leaving it", zap.Int("pr", prNumber))
		return nil
	}
	comment := "Closing this release PR because the release was rolled back."
	if err := ca.githubRepo.AddComment(ctx, prNumber, comment); err != nil {
		ca.logger.Warn("failed to comment on release PR", zap.Int("pr", prNumber), zap.Error(err))
	}
	if err := ca.githubRepo.ClosePR(ctx, prNumber); err != nil {
		return fmt.Errorf("failed to close PR #%d: %w", prNumber, err)
	}
	return nil
}

// DeleteRelease deletes the published GitHub release.
func (ca *CompensatingActions) DeleteRelease(ctx context.Context, rollbackData map[string]any) error {
	releaseID := int64(intValue(rollbackData, "release_id"))
	if releaseID <= 0 {
		return fmt.Errorf("release_id not found in rollback data")
	}
	if err := ca.githubRepo.DeleteRelease(ctx, releaseID); err != nil && !errors.Is(err, repository.ErrNotFound) {
		return fmt.Errorf("failed to delete release %d: %w", releaseID, err)
	}
	return nil
}

// NoOp is the compensation of read-only steps.
func (ca *CompensatingActions) NoOp(_ context.Context, _ map[string]any) error {
	return nil
}

func (ca *CompensatingActions) requireGit() error {
	if ca.gitRepo == nil {
		return ErrGitRequired
	}
	return nil
}

func isMissingRemoteRef(err error) bool {
	msg := strings.ToLower(err.Error())
	return strings.Contains(msg, "not found") || strings.Contains(msg, "does not exist")
}

func boolValue(data map[string]any, key string) bool {
	v, ok := data[key].(bool)
	return ok && v
}

// intValue reads a number that may have gone through JSON.
func intValue(data map[string]any, key string) int {
	switch v := data[key].(type) {
	case int:
		return v
	case int64:
		return int(v)
	case float64:
		return int(v)
	default:
		return 0
	}
}
