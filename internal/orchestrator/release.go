package orchestrator

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/compozy/changelog/internal/config"
	"github.com/compozy/changelog/internal/domain"
	"github.com/compozy/changelog/internal/parser"
	"github.com/compozy/changelog/internal/repository"
	"github.com/compozy/changelog/internal/usecase"
	"go.uber.org/zap"
)

// ReleaseConfig holds the options of one release run.
type ReleaseConfig struct {
	// Version is an explicit version. It wins over Bump.
	Version string
	Bump    domain.BumpKind
	// Date of the release, YYYY-MM-DD. Defaults to today.
	Date     string
	Force    bool
	DryRun   bool
	CIOutput bool

	Branch  bool
	Commit  bool
	Tag     bool
	Push    bool
	PR      bool
	Publish bool

	EnableRollback bool
	Rollback       bool
	// SessionID selects the session to roll back. Empty selects the latest.
	SessionID string
}

// Validate checks that the requested steps can be combined.
func (c ReleaseConfig) Validate() error {
	if c.Version != "" {
		if err := ValidateVersion(c.Version); err != nil {
			return err
		}
	}
	if c.Date != "" {
		if _, err := time.Parse(time.DateOnly, c.Date); err != nil {
			return fmt.Errorf("invalid release date %q: expected YYYY-MM-DD", c.Date)
		}
	}
	if c.Push && !c.Branch && !c.Tag {
		return fmt.Errorf("--push needs --branch or --tag")
	}
	if c.PR && (!c.Branch || !c.Push) {
		return fmt.Errorf("--pr needs --branch and --push")
	}
	if c.Publish && (!c.Tag || !c.Push) {
		return fmt.Errorf("--publish needs --tag and --push")
	}
	return nil
}

func (c ReleaseConfig) needsGit() bool {
	return c.Branch || c.Commit || c.Tag || c.Push
}

func (c ReleaseConfig) needsGitHub() bool {
	return c.PR || c.Publish
}

// ReleaseOrchestrator promotes the unreleased changes to a version and
// optionally branches, commits, tags, pushes, opens a pull request and
// publishes a GitHub release, undoing completed steps when one fails.
type ReleaseOrchestrator struct {
	gitRepo    repository.GitExtendedRepository
	githubRepo repository.GithubExtendedRepository
	changelogs repository.ChangelogRepository
	stateRepo  repository.StateRepository
	settings   *config.Config
	out        io.Writer
	logger     *zap.Logger
	now        func() time.Time
}

// NewReleaseOrchestrator creates a release orchestrator. gitRepo may be nil
// outside a git repository; only the changelog steps are available then.
func NewReleaseOrchestrator(
	gitRepo repository.GitExtendedRepository,
	githubRepo repository.GithubExtendedRepository,
	changelogs repository.ChangelogRepository,
	stateRepo repository.StateRepository,
	settings *config.Config,
	out io.Writer,
	logger *zap.Logger,
) *ReleaseOrchestrator {
	if logger == nil {
		logger = zap.NewNop()
	}
	if out == nil {
		out = io.Discard
	}
	return &ReleaseOrchestrator{
		gitRepo:    gitRepo,
		githubRepo: githubRepo,
		changelogs: changelogs,
		stateRepo:  stateRepo,
		settings:   settings,
		out:        out,
		logger:     logger,
		now:        time.Now,
	}
}

// releaseContext carries values between the steps of one run.
type releaseContext struct {
	cfg      ReleaseConfig
	plan     *domain.ReleasePlan
	cl       *domain.Changelog
	original []byte
	result   *usecase.CalculateVersionResult
	created  bool
}

// Execute runs the release workflow, or a rollback when cfg.Rollback is set.
func (o *ReleaseOrchestrator) Execute(ctx context.Context, cfg ReleaseConfig) error {
	ctx, cancel := context.WithTimeout(ctx, ReleaseWorkflowTimeout)
	defer cancel()
	if cfg.Rollback {
		return o.performRollback(ctx, cfg.SessionID)
	}
	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("invalid release options: %w", err)
	}
	if cfg.needsGit() && o.gitRepo == nil {
		return ErrGitRequired
	}
	if cfg.needsGitHub() {
		if err := o.settings.ValidateForGitHubOperations(); err != nil {
			return fmt.Errorf("github validation failed: %w", err)
		}
	}
	cl, err := o.changelogs.Load(ctx, o.settings.File)
	if err != nil {
		return fmt.Errorf("failed to load changelog: %w", err)
	}
	hasChanges, latest := (&usecase.CheckChangesUseCase{}).Execute(cl)
	o.printCIOutput(cfg.CIOutput, "has_changes=%t\n", hasChanges)
	o.printCIOutput(cfg.CIOutput, "latest_version=%s\n", latest)
	if !hasChanges && !cfg.Force && cfg.Version == "" {
		o.printStatus(cfg.CIOutput, "No unreleased changes to release")
		return nil
	}
	wctx := &releaseContext{cfg: cfg, plan: &domain.ReleasePlan{}}
	saga := NewSagaExecutor(o.stateRepo, o.settings.File, cfg.EnableRollback && !cfg.DryRun, o.logger)
	o.addSteps(saga, wctx)
	if err := saga.Execute(ctx); err != nil {
		if cfg.EnableRollback && !cfg.DryRun {
			o.printStatus(cfg.CIOutput, fmt.Sprintf("Release failed, session %s", saga.SessionID()))
		}
		return err
	}
	if cfg.DryRun {
		o.printPlan(wctx)
		return nil
	}
	o.printStatus(cfg.CIOutput, fmt.Sprintf("Released %s", wctx.plan.Label))
	return nil
}

func (o *ReleaseOrchestrator) addSteps(saga *SagaExecutor, wctx *releaseContext) {
	compensate := o.compensations()
	o.addCheckChangesStep(saga, wctx, compensate)
	o.addCalculateVersionStep(saga, wctx, compensate)
	if wctx.cfg.DryRun {
		o.addUpdateChangelogStep(saga, wctx, compensate)
		return
	}
	if wctx.cfg.Branch {
		o.addCreateBranchStep(saga, wctx, compensate)
	}
	o.addUpdateChangelogStep(saga, wctx, compensate)
	if wctx.cfg.Commit {
		o.addCommitStep(saga, wctx, compensate)
	}
	if wctx.cfg.Tag {
		o.addTagStep(saga, wctx, compensate)
	}
	if wctx.cfg.Push {
		o.addPushStep(saga, wctx, compensate)
	}
	if wctx.cfg.PR {
		o.addCreatePRStep(saga, wctx, compensate)
	}
	if wctx.cfg.Publish {
		o.addPublishStep(saga, wctx, compensate)
	}
}

func (o *ReleaseOrchestrator) compensations() map[domain.OperationType]CompensateFunc {
	ca := NewCompensatingActions(o.gitRepo, o.githubRepo, o.changelogs, o.logger)
	return map[domain.OperationType]CompensateFunc{
		domain.OperationTypeCheckChanges:     ca.NoOp,
		domain.OperationTypeCalculateVersion: ca.NoOp,
		domain.OperationTypeCreateBranch:     ca.DeleteBranch,
		domain.OperationTypeUpdateChangelog:  ca.RestoreChangelog,
		domain.OperationTypeCommitChanges:    ca.ResetCommit,
		domain.OperationTypeCreateTag:        ca.DeleteTag,
		domain.OperationTypePush:             ca.DeleteRemoteRefs,
		domain.OperationTypeCreatePR:         ca.ClosePullRequest,
		domain.OperationTypePublishRelease:   ca.DeleteRelease,
	}
}

func (o *ReleaseOrchestrator) addCheckChangesStep(
	saga *SagaExecutor,
	wctx *releaseContext,
	compensate map[domain.OperationType]CompensateFunc,
) {
	saga.AddStep(SagaStep{
		Name: "Check changes",
		Type: domain.OperationTypeCheckChanges,
		Execute: func(ctx context.Context) (map[string]any, error) {
			raw, err := o.changelogs.ReadRaw(ctx, o.settings.File)
			if err != nil {
				return nil, permanent(fmt.Errorf("failed to read changelog: %w", err))
			}
			cl, err := parser.ParseString(string(raw), o.parserOptions())
			if err != nil {
				return nil, permanent(fmt.Errorf("failed to parse changelog: %w", err))
			}
			if cl.Unreleased() == nil {
				return nil, domain.ErrNoUnreleased
			}
			wctx.cl = cl
			wctx.original = raw
			hasChanges, latest := (&usecase.CheckChangesUseCase{}).Execute(cl)
			return map[string]any{"has_changes": hasChanges, "latest_version": latest}, nil
		},
		Compensate: compensate[domain.OperationTypeCheckChanges],
	})
}

func (o *ReleaseOrchestrator) addCalculateVersionStep(
	saga *SagaExecutor,
	wctx *releaseContext,
	compensate map[domain.OperationType]CompensateFunc,
) {
	saga.AddStep(SagaStep{
		Name: "Calculate version",
		Type: domain.OperationTypeCalculateVersion,
		Execute: func(ctx context.Context) (map[string]any, error) {
			uc := &usecase.CalculateVersionUseCase{
				InitialVersion: o.settings.InitialVersion,
				TagPrefix:      o.settings.TagPrefix,
			}
			if o.gitRepo != nil {
				uc.GitRepo = o.gitRepo
			}
			result, err := uc.Execute(ctx, wctx.cl, usecase.CalculateVersionRequest{
				Explicit: wctx.cfg.Version,
				Bump:     wctx.cfg.Bump,
				Force:    wctx.cfg.Force,
			})
			if err != nil {
				return nil, permanent(fmt.Errorf("failed to calculate version: %w", err))
			}
			tag := o.settings.TagPrefix + result.Next.Bare()
			if err := ValidateTagName(tag); err != nil {
				return nil, permanent(err)
			}
			branch := ReleaseBranchPrefix + tag
			if err := ValidateBranchName(branch); err != nil {
				return nil, permanent(err)
			}
			if wctx.cfg.Tag && o.gitRepo != nil {
				exists, err := o.gitRepo.TagExists(ctx, tag)
				if err != nil {
					return nil, fmt.Errorf("failed to check tag %s: %w", tag, err)
				}
				if exists {
					return nil, permanent(fmt.Errorf("%w: tag %s", domain.ErrVersionExists, tag))
				}
			}
			wctx.result = result
			wctx.plan.Version = result.Next
			wctx.plan.TagName = tag
			wctx.plan.BranchName = branch
			wctx.plan.Date = wctx.cfg.Date
			if wctx.plan.Date == "" {
				wctx.plan.Date = o.now().Format(time.DateOnly)
			}
			session := saga.Session()
			session.Version = result.Next.Bare()
			session.TagName = tag
			o.printCIOutput(wctx.cfg.CIOutput, "version=%s\n", result.Next.Bare())
			return map[string]any{"version": result.Next.Bare(), "tag_name": tag}, nil
		},
		Compensate: compensate[domain.OperationTypeCalculateVersion],
	})
}

func (o *ReleaseOrchestrator) addCreateBranchStep(
	saga *SagaExecutor,
	wctx *releaseContext,
	compensate map[domain.OperationType]CompensateFunc,
) {
	saga.AddStep(SagaStep{
		Name: "Create release branch",
		Type: domain.OperationTypeCreateBranch,
		Execute: func(ctx context.Context) (map[string]any, error) {
			original, err := o.gitRepo.GetCurrentBranch(ctx)
			if err != nil {
				return nil, fmt.Errorf("failed to get current branch: %w", err)
			}
			uc := &usecase.CreateReleaseBranchUseCase{GitRepo: o.gitRepo}
			created, err := uc.Execute(ctx, wctx.plan.BranchName)
			if err != nil {
				return nil, err
			}
			wctx.created = created
			session := saga.Session()
			session.BranchName = wctx.plan.BranchName
			session.OriginalBranch = original
			return map[string]any{
				"branch_name":        wctx.plan.BranchName,
				"original_branch":    original,
				"created_in_session": created,
			}, nil
		},
		Compensate: compensate[domain.OperationTypeCreateBranch],
	})
}

func (o *ReleaseOrchestrator) addUpdateChangelogStep(
	saga *SagaExecutor,
	wctx *releaseContext,
	compensate map[domain.OperationType]CompensateFunc,
) {
	saga.AddStep(SagaStep{
		Name: "Update changelog",
		Type: domain.OperationTypeUpdateChangelog,
		Execute: func(ctx context.Context) (map[string]any, error) {
			// Promote a fresh copy so a retry never sees a half promoted tree.
			cl, err := parser.ParseString(string(wctx.original), o.parserOptions())
			if err != nil {
				return nil, permanent(fmt.Errorf("failed to parse changelog: %w", err))
			}
			promote := &usecase.PromoteReleaseUseCase{
				KeepUnreleased: o.settings.KeepUnreleased,
				CompareURL:     o.settings.CompareURL,
				ReleaseURL:     o.settings.ReleaseURL,
				TagPrefix:      o.settings.TagPrefix,
			}
			release, err := promote.Execute(cl, wctx.plan.Version, wctx.plan.Date)
			if err != nil {
				return nil, permanent(fmt.Errorf("failed to promote release: %w", err))
			}
			wctx.cl = cl
			wctx.plan.Label = release.Label
			wctx.plan.Notes = parser.ReleaseNotes(release)
			if wctx.cfg.DryRun {
				return nil, nil
			}
			if err := o.changelogs.Save(ctx, o.settings.File, cl); err != nil {
				return nil, fmt.Errorf("failed to write changelog: %w", err)
			}
			return map[string]any{
				"file":             o.settings.File,
				"original_content": string(wctx.original),
			}, nil
		},
		Compensate: compensate[domain.OperationTypeUpdateChangelog],
	})
}

func (o *ReleaseOrchestrator) addCommitStep(
	saga *SagaExecutor,
	wctx *releaseContext,
	compensate map[domain.OperationType]CompensateFunc,
) {
	saga.AddStep(SagaStep{
		Name: "Commit changelog",
		Type: domain.OperationTypeCommitChanges,
		Execute: func(ctx context.Context) (map[string]any, error) {
			previous, err := o.gitRepo.GetHeadCommit(ctx)
			if err != nil {
				return nil, fmt.Errorf("failed to get HEAD commit: %w", err)
			}
			if os.Getenv(envGitHubActions) == "true" {
				if err := o.gitRepo.ConfigureUser(ctx, "github-actions[bot]",
					"41898282+github-actions[bot]@users.noreply.github.com"); err != nil {
					return nil, fmt.Errorf("failed to configure git user: %w", err)
				}
			}
			if err := o.gitRepo.AddFiles(ctx, o.settings.File); err != nil {
				return nil, fmt.Errorf("failed to stage %s: %w", o.settings.File, err)
			}
			if err := o.gitRepo.Commit(ctx, ReleaseCommitPrefix+wctx.plan.Label); err != nil {
				return nil, fmt.Errorf("failed to commit release: %w", err)
			}
			head, err := o.gitRepo.GetHeadCommit(ctx)
			if err != nil {
				return nil, fmt.Errorf("failed to get release commit: %w", err)
			}
			return map[string]any{"commit_sha": head, "previous_sha": previous}, nil
		},
		Compensate: compensate[domain.OperationTypeCommitChanges],
	})
}

func (o *ReleaseOrchestrator) addTagStep(
	saga *SagaExecutor,
	wctx *releaseContext,
	compensate map[domain.OperationType]CompensateFunc,
) {
	saga.AddStep(SagaStep{
		Name: "Create tag",
		Type: domain.OperationTypeCreateTag,
		Execute: func(ctx context.Context) (map[string]any, error) {
			exists, err := o.gitRepo.TagExists(ctx, wctx.plan.TagName)
			if err != nil {
				return nil, fmt.Errorf("failed to check tag: %w", err)
			}
			if exists {
				return nil, permanent(fmt.Errorf("%w: tag %s", domain.ErrVersionExists, wctx.plan.TagName))
			}
			if err := o.gitRepo.CreateTag(ctx, wctx.plan.TagName, "Release "+wctx.plan.Label); err != nil {
				return nil, fmt.Errorf("failed to create tag %s: %w", wctx.plan.TagName, err)
			}
			return map[string]any{"tag_name": wctx.plan.TagName}, nil
		},
		Compensate: compensate[domain.OperationTypeCreateTag],
	})
}

func (o *ReleaseOrchestrator) addPushStep(
	saga *SagaExecutor,
	wctx *releaseContext,
	compensate map[domain.OperationType]CompensateFunc,
) {
	saga.AddStep(SagaStep{
		Name: "Push",
		Type: domain.OperationTypePush,
		Execute: func(ctx context.Context) (map[string]any, error) {
			data := map[string]any{}
			if wctx.cfg.Branch {
				push := o.gitRepo.PushBranch
				if !wctx.created {
					push = o.gitRepo.PushBranchForce
				}
				if err := push(ctx, wctx.plan.BranchName); err != nil {
					return nil, fmt.Errorf("failed to push branch %s: %w", wctx.plan.BranchName, err)
				}
				data["branch_name"] = wctx.plan.BranchName
				data["branch_pushed"] = true
				data["branch_created"] = wctx.created
			}
			if wctx.cfg.Tag {
				if err := o.gitRepo.PushTag(ctx, wctx.plan.TagName); err != nil {
					return nil, fmt.Errorf("failed to push tag %s: %w", wctx.plan.TagName, err)
				}
				data["tag_name"] = wctx.plan.TagName
				data["tag_pushed"] = true
			}
			return data, nil
		},
		Compensate: compensate[domain.OperationTypePush],
	})
}

func (o *ReleaseOrchestrator) addCreatePRStep(
	saga *SagaExecutor,
	wctx *releaseContext,
	compensate map[domain.OperationType]CompensateFunc,
) {
	saga.AddStep(SagaStep{
		Name: "Create pull request",
		Type: domain.OperationTypeCreatePR,
		Execute: func(ctx context.Context) (map[string]any, error) {
			body, err := (&usecase.PreparePRBodyUseCase{}).Execute(ctx, wctx.plan)
			if err != nil {
				return nil, permanent(fmt.Errorf("failed to prepare PR body: %w", err))
			}
			wctx.plan.PRBody = body
			number, err := o.githubRepo.CreateOrUpdatePR(
				ctx,
				wctx.plan.BranchName,
				o.settings.DefaultBranch,
				ReleaseCommitPrefix+wctx.plan.Label,
				body,
				ReleasePRLabels,
			)
			if err != nil {
				return nil, fmt.Errorf("failed to create release PR: %w", err)
			}
			o.printCIOutput(wctx.cfg.CIOutput, "pr_number=%d\n", number)
			o.printStatus(wctx.cfg.CIOutput, fmt.Sprintf("Release PR #%d is open", number))
			return map[string]any{"pr_number": number}, nil
		},
		Compensate: compensate[domain.OperationTypeCreatePR],
	})
}

func (o *ReleaseOrchestrator) addPublishStep(
	saga *SagaExecutor,
	wctx *releaseContext,
	compensate map[domain.OperationType]CompensateFunc,
) {
	saga.AddStep(SagaStep{
		Name: "Publish release",
		Type: domain.OperationTypePublishRelease,
		Execute: func(ctx context.Context) (map[string]any, error) {
			prerelease := wctx.plan.Version.Prerelease() != ""
			id, err := o.githubRepo.CreateOrUpdateRelease(
				ctx, wctx.plan.TagName, wctx.plan.Label, wctx.plan.Notes, prerelease,
			)
			if err != nil {
				return nil, fmt.Errorf("failed to publish release: %w", err)
			}
			o.printCIOutput(wctx.cfg.CIOutput, "release_id=%d\n", id)
			return map[string]any{"release_id": id, "tag_name": wctx.plan.TagName}, nil
		},
		Compensate: compensate[domain.OperationTypePublishRelease],
	})
}

// performRollback replays the compensations of a persisted session.
func (o *ReleaseOrchestrator) performRollback(ctx context.Context, sessionID string) error {
	if o.stateRepo == nil {
		return fmt.Errorf("rollback needs a state repository")
	}
	if sessionID == "" {
		latest, err := o.stateRepo.LoadLatest(ctx)
		if err != nil {
			if errors.Is(err, repository.ErrSessionNotFound) {
				return fmt.Errorf("no release session to roll back: %w", err)
			}
			return fmt.Errorf("failed to load latest session: %w", err)
		}
		sessionID = latest.SessionID
	}
	saga, err := LoadExistingSaga(ctx, o.stateRepo, sessionID, o.logger)
	if err != nil {
		return err
	}
	if saga.Session().Status == domain.WorkflowStatusRolledBack {
		o.printStatus(false, fmt.Sprintf("Session %s is already rolled back", sessionID))
		return nil
	}
	for opType, fn := range o.compensations() {
		saga.RegisterCompensation(opType, fn)
	}
	if err := saga.Rollback(ctx); err != nil {
		return fmt.Errorf("rollback of session %s failed: %w", sessionID, err)
	}
	o.printStatus(false, fmt.Sprintf("Rolled back session %s", sessionID))
	return nil
}

func (o *ReleaseOrchestrator) parserOptions() parser.Options {
	return parser.Options{UnreleasedLabels: o.settings.UnreleasedLabels}
}

// printPlan shows the promoted changelog and what a real run would do.
func (o *ReleaseOrchestrator) printPlan(wctx *releaseContext) {
	if wctx.cfg.CIOutput {
		return
	}
	fmt.Fprint(o.out, parser.RenderString(wctx.cl))
	var actions []string
	if wctx.cfg.Branch {
		actions = append(actions, "create branch "+wctx.plan.BranchName)
	}
	if wctx.cfg.Commit {
		actions = append(actions, "commit "+o.settings.File)
	}
	if wctx.cfg.Tag {
		actions = append(actions, "create tag "+wctx.plan.TagName)
	}
	if wctx.cfg.Push {
		actions = append(actions, "push")
	}
	if wctx.cfg.PR {
		actions = append(actions, "open a release pull request against "+o.settings.DefaultBranch)
	}
	if wctx.cfg.Publish {
		actions = append(actions, "publish a GitHub release")
	}
	if len(actions) > 0 {
		fmt.Fprintf(o.out, "\nDry run: would %s\n", strings.Join(actions, ", "))
	}
}

func (o *ReleaseOrchestrator) printCIOutput(ciOutput bool, format string, args ...any) {
	if ciOutput {
		fmt.Fprintf(o.out, format, args...)
	}
}

func (o *ReleaseOrchestrator) printStatus(ciOutput bool, message string) {
	if !ciOutput {
		fmt.Fprintln(o.out, message)
	}
}
