package orchestrator

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"slices"
	"strconv"
	"strings"

	"github.com/compozy/changelog/internal/config"
	"github.com/compozy/changelog/internal/domain"
	"github.com/compozy/changelog/internal/lint"
	"github.com/compozy/changelog/internal/repository"
	"github.com/compozy/changelog/internal/usecase"
	"github.com/spf13/afero"
	"go.uber.org/zap"
)

const (
	githubActionsTrue    = "true"
	envGitHubIssueNumber = "GITHUB_ISSUE_NUMBER"
	envGitHubEventPath   = "GITHUB_EVENT_PATH"
	envGitHubSHA         = "GITHUB_SHA"
	envGitHubActions     = "GITHUB_ACTIONS"
)

// ErrCheckFailed is returned when the changelog does not pass the check.
var ErrCheckFailed = errors.New("changelog check failed")

// CheckConfig holds the options of a pull request check.
type CheckConfig struct {
	CIOutput bool
	// Strict fails the check on warnings too. It is OR-ed with the
	// configured strict mode.
	Strict bool
	// AllowEmpty accepts a changelog without unreleased entries.
	AllowEmpty bool
	// CheckTags enables the missing-tag rule against the git tags.
	CheckTags bool
	// Comment posts the summary on the pull request inside GitHub Actions.
	Comment bool
}

// CheckResult is the outcome of a check.
type CheckResult struct {
	Report     *domain.Report
	HasChanges bool
	Skipped    bool
	PRNumber   int
}

// Passed reports whether the check succeeded.
func (r *CheckResult) Passed(strict bool) bool {
	return !r.Report.Failed(strict) && (r.HasChanges || r.Skipped)
}

// CheckOrchestrator validates the changelog of a pull request.
type CheckOrchestrator struct {
	gitRepo    repository.GitRepository
	githubRepo repository.GithubRepository
	changelogs repository.ChangelogRepository
	fs         afero.Fs
	settings   *config.Config
	out        io.Writer
	logger     *zap.Logger
}

// NewCheckOrchestrator creates a check orchestrator. gitRepo may be nil.
func NewCheckOrchestrator(
	gitRepo repository.GitRepository,
	githubRepo repository.GithubRepository,
	changelogs repository.ChangelogRepository,
	fs afero.Fs,
	settings *config.Config,
	out io.Writer,
	logger *zap.Logger,
) *CheckOrchestrator {
	if logger == nil {
		logger = zap.NewNop()
	}
	if out == nil {
		out = io.Discard
	}
	return &CheckOrchestrator{
		gitRepo:    gitRepo,
		githubRepo: githubRepo,
		changelogs: changelogs,
		fs:         fs,
		settings:   settings,
		out:        out,
		logger:     logger,
	}
}

// Execute runs the check. The result is returned even when the check fails.
func (o *CheckOrchestrator) Execute(ctx context.Context, cfg CheckConfig) (*CheckResult, error) {
	ctx, cancel := context.WithTimeout(ctx, CheckWorkflowTimeout)
	defer cancel()
	strict := cfg.Strict || o.settings.Strict
	cl, err := o.changelogs.Load(ctx, o.settings.File)
	if err != nil {
		return nil, fmt.Errorf("failed to load changelog: %w", err)
	}
	opts := lint.Options{Disabled: o.settings.DisabledRules, TagPrefix: o.settings.TagPrefix}
	if cfg.CheckTags && o.gitRepo != nil {
		tags, err := o.gitRepo.ListTags(ctx)
		if err != nil {
			return nil, fmt.Errorf("failed to list tags: %w", err)
		}
		opts.Tags = append([]string{}, tags...)
	}
	result := &CheckResult{Report: lint.Run(cl, opts), PRNumber: o.getPRNumber()}
	result.Report.File = o.settings.File
	result.HasChanges, _ = (&usecase.CheckChangesUseCase{}).Execute(cl)
	if cfg.AllowEmpty {
		result.Skipped = !result.HasChanges
	} else if !result.HasChanges && result.PRNumber > 0 {
		result.Skipped, err = o.hasSkipLabel(ctx, result.PRNumber)
		if err != nil {
			return nil, err
		}
	}
	o.printResult(cfg.CIOutput, result, strict)
	if cfg.Comment && os.Getenv(envGitHubActions) == githubActionsTrue && result.PRNumber > 0 {
		if err := o.commentOnPR(ctx, result, strict); err != nil {
			return result, fmt.Errorf("PR comment failed: %w", err)
		}
	}
	if !result.Passed(strict) {
		return result, ErrCheckFailed
	}
	return result, nil
}

func (o *CheckOrchestrator) hasSkipLabel(ctx context.Context, prNumber int) (bool, error) {
	if o.settings.SkipLabel == "" {
		return false, nil
	}
	labels, err := o.githubRepo.ListPRLabels(ctx, prNumber)
	if errors.Is(err, repository.ErrGithubTokenRequired) {
		o.logger.Warn("cannot read PR labels without a GitHub token", zap.Int("pr", prNumber))
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("failed to list labels of PR #%d: %w", prNumber, err)
	}
	return slices.ContainsFunc(labels, func(l string) bool {
		return strings.EqualFold(l, o.settings.SkipLabel)
	}), nil
}

func (o *CheckOrchestrator) printResult(ciOutput bool, result *CheckResult, strict bool) {
	if ciOutput {
		fmt.Fprintf(o.out, "lint_errors=%d\n", result.Report.Count(domain.SeverityError))
		fmt.Fprintf(o.out, "lint_warnings=%d\n", result.Report.Count(domain.SeverityWarning))
		fmt.Fprintf(o.out, "has_changes=%t\n", result.HasChanges)
		fmt.Fprintf(o.out, "skipped=%t\n", result.Skipped)
		return
	}
	for _, issue := range result.Report.Issues {
		fmt.Fprintf(o.out, "%s:%s\n", o.settings.File, issue)
	}
	switch {
	case !result.HasChanges && result.Skipped:
		fmt.Fprintln(o.out, "No unreleased entries, skipped")
	case !result.HasChanges:
		fmt.Fprintf(o.out, "No unreleased entries in %s. Add one or label the PR %q\n",
			o.settings.File, o.settings.SkipLabel)
	}
	if result.Passed(strict) {
		fmt.Fprintln(o.out, "Changelog check passed")
	}
}

func (o *CheckOrchestrator) commentOnPR(ctx context.Context, result *CheckResult, strict bool) error {
	err := o.githubRepo.AddComment(ctx, result.PRNumber, o.commentBody(result, strict))
	if errors.Is(err, repository.ErrGithubTokenRequired) {
		o.logger.Warn("skipping PR comment without a GitHub token", zap.Int("pr", result.PRNumber))
		return nil
	}
	return err
}

func (o *CheckOrchestrator) commentBody(result *CheckResult, strict bool) string {
	sha := os.Getenv(envGitHubSHA)
	if len(sha) > 7 {
		sha = sha[:7]
	}
	status := "passed"
	if !result.Passed(strict) {
		status = "failed"
	}
	var b strings.Builder
	fmt.Fprintf(&b, "## Changelog check %s\n\n", status)
	fmt.Fprintf(&b, "- **File**: %s\n", o.settings.File)
	if sha != "" {
		fmt.Fprintf(&b, "- **Commit**: %s\n", sha)
	}
	switch {
	case result.HasChanges:
		b.WriteString("- **Unreleased entries**: present\n")
	case result.Skipped:
		b.WriteString("- **Unreleased entries**: none, skipped\n")
	default:
		fmt.Fprintf(&b, "- **Unreleased entries**: missing, add one or label the PR `%s`\n", o.settings.SkipLabel)
	}
	fmt.Fprintf(&b, "- **Lint**: %d errors, %d warnings\n",
		result.Report.Count(domain.SeverityError), result.Report.Count(domain.SeverityWarning))
	if len(result.Report.Issues) > 0 {
		b.WriteString("\n```\n")
		for _, issue := range result.Report.Issues {
			b.WriteString(issue.String())
			b.WriteString("\n")
		}
		b.WriteString("```\n")
	}
	b.WriteString("\n---\n*This is an automated comment from the changelog check.*\n")
	return b.String()
}

// getPRNumber reads the pull request number from the environment or the
// GitHub event payload. It returns 0 when none is available.
func (o *CheckOrchestrator) getPRNumber() int {
	if raw := os.Getenv(envGitHubIssueNumber); raw != "" {
		if n, err := strconv.Atoi(raw); err == nil {
			return n
		}
	}
	eventPath := os.Getenv(envGitHubEventPath)
	if eventPath == "" || !isValidGitHubEventPath(eventPath) {
		return 0
	}
	file, err := o.fs.Open(eventPath)
	if err != nil {
		o.logger.Debug("cannot open GitHub event payload", zap.String("path", eventPath), zap.Error(err))
		return 0
	}
	defer file.Close()
	var payload struct {
		PullRequest *struct {
			Number int `json:"number"`
		} `json:"pull_request"`
		Issue *struct {
			Number int `json:"number"`
		} `json:"issue"`
	}
	if err := json.NewDecoder(file).Decode(&payload); err != nil {
		return 0
	}
	switch {
	case payload.PullRequest != nil && payload.PullRequest.Number > 0:
		return payload.PullRequest.Number
	case payload.Issue != nil:
		return payload.Issue.Number
	}
	return 0
}

// isValidGitHubEventPath accepts only JSON files inside the directories
// GitHub runners write event payloads to.
func isValidGitHubEventPath(path string) bool {
	if !filepath.IsAbs(path) || filepath.Ext(path) != ".json" {
		return false
	}
	clean := filepath.ToSlash(filepath.Clean(path))
	if clean != filepath.ToSlash(path) {
		return false
	}
	for _, dir := range []string{"/_temp/", "/workflow/", "/_github_workflow/", "/runner/"} {
		if strings.Contains(clean, dir) {
			return true
		}
	}
	return false
}
