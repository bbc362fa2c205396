package cmd

import (
	"github.com/compozy/changelog/internal/orchestrator"
	"github.com/compozy/changelog/internal/repository"
	"github.com/spf13/cobra"
)

func newCheckCmd(a *app) *cobra.Command {
	cfg := orchestrator.CheckConfig{}
	cmd := &cobra.Command{
		Use:   "check",
		Short: "Check a pull request for a valid changelog update",
		Long: `Lint the changelog and require unreleased entries, unless the pull request
carries the skip label. Inside GitHub Actions the result is also posted as a
pull request comment.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			c, err := a.deps()
			if err != nil {
				return err
			}
			var gitRepo repository.GitRepository
			if cfg.CheckTags {
				g, err := c.requireGit("check --git")
				if err != nil {
					return err
				}
				gitRepo = g
			}
			orch := orchestrator.NewCheckOrchestrator(
				gitRepo,
				c.githubRepo,
				c.changelogs,
				c.fs,
				c.cfg,
				cmd.OutOrStdout(),
				c.logger,
			)
			_, err = orch.Execute(cmd.Context(), cfg)
			return err
		},
	}
	flags := cmd.Flags()
	flags.BoolVar(&cfg.CIOutput, "ci-output", false, "Output key=value lines for CI")
	flags.BoolVar(&cfg.Strict, "strict", false, "Fail on warnings too")
	flags.BoolVar(&cfg.AllowEmpty, "allow-empty", false, "Pass without unreleased entries")
	flags.BoolVar(&cfg.CheckTags, "git", false, "Check that every released version has a git tag")
	flags.BoolVar(&cfg.Comment, "comment", true, "Comment on the pull request inside GitHub Actions")
	return cmd
}
