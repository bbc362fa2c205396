package cmd

import (
	"github.com/compozy/changelog/internal/domain"
	"github.com/compozy/changelog/internal/orchestrator"
	"github.com/spf13/cobra"
)

func newReleaseCmd(a *app) *cobra.Command {
	var (
		cfg  orchestrator.ReleaseConfig
		bump string
	)
	cmd := &cobra.Command{
		Use:   "release",
		Short: "Promote the unreleased changes to a new version",
		Long: `Promote the unreleased release to a dated version and, on request, branch,
commit, tag, push, open a release pull request and publish a GitHub release.

With --enable-rollback the progress is saved and completed steps are undone
when a later one fails. --rollback undoes a saved session on demand.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			kind, err := domain.ParseBumpKind(bump)
			if err != nil {
				return err
			}
			cfg.Bump = kind
			c, err := a.deps()
			if err != nil {
				return err
			}
			orch := orchestrator.NewReleaseOrchestrator(
				c.gitRepo,
				c.githubRepo,
				c.changelogs,
				c.stateRepo,
				c.cfg,
				cmd.OutOrStdout(),
				c.logger,
			)
			return orch.Execute(cmd.Context(), cfg)
		},
	}
	flags := cmd.Flags()
	flags.StringVar(&cfg.Version, "version", "", "Release this version instead of calculating one")
	flags.StringVar(&bump, "bump", string(domain.BumpAuto), "Bump kind: major, minor, patch or auto")
	flags.StringVar(&cfg.Date, "date", "", "Release date, YYYY-MM-DD (default today)")
	flags.BoolVar(&cfg.Force, "force", false, "Release even without unreleased entries")
	flags.BoolVar(&cfg.DryRun, "dry-run", false, "Print the promoted changelog without writing anything")
	flags.BoolVar(&cfg.CIOutput, "ci-output", false, "Output key=value lines for CI")
	flags.BoolVar(&cfg.Branch, "branch", false, "Prepare the release on a release/<tag> branch")
	flags.BoolVar(&cfg.Commit, "commit", false, "Commit the changelog")
	flags.BoolVar(&cfg.Tag, "tag", false, "Create the version tag")
	flags.BoolVar(&cfg.Push, "push", false, "Push the branch and tag")
	flags.BoolVar(&cfg.PR, "pr", false, "Create or update the release pull request")
	flags.BoolVar(&cfg.Publish, "publish", false, "Publish a GitHub release with the release notes")
	flags.BoolVar(&cfg.EnableRollback, "enable-rollback", false, "Save progress and roll back on failure")
	flags.BoolVar(&cfg.Rollback, "rollback", false, "Roll back a saved release session")
	flags.StringVar(&cfg.SessionID, "session-id", "", "Session to roll back (default latest)")
	return cmd
}
