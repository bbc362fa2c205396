package cmd

import (
	"fmt"

	"github.com/compozy/changelog/internal/parser"
	"github.com/compozy/changelog/internal/usecase"
	"github.com/spf13/cobra"
)

func newDraftCmd(a *app) *cobra.Command {
	var dryRun bool
	cmd := &cobra.Command{
		Use:   "draft",
		Short: "Draft unreleased entries from Conventional Commits",
		Long: `Read the commits made since the latest version tag and add one unreleased
entry per user facing Conventional Commit (feat, fix, perf, refactor, revert,
deprecate, security and breaking changes). Entries already present are skipped.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			c, err := a.deps()
			if err != nil {
				return err
			}
			gitRepo, err := c.requireGit("draft")
			if err != nil {
				return err
			}
			ctx := cmd.Context()
			cl, err := c.changelogs.Load(ctx, c.cfg.File)
			if err != nil {
				return err
			}
			uc := &usecase.DraftFromCommitsUseCase{
				GitRepo:  gitRepo,
				AddEntry: &usecase.AddEntryUseCase{UnreleasedLabel: c.cfg.UnreleasedLabel},
			}
			result, err := uc.Execute(ctx, cl)
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			since := result.Since
			if since == "" {
				since = "the first commit"
			}
			if len(result.Entries) == 0 {
				fmt.Fprintf(out, "No new entries since %s (%d commits skipped)\n", since, result.Skipped)
				return nil
			}
			if dryRun {
				fmt.Fprint(out, parser.ReleaseNotes(cl.Unreleased())+"\n")
				return nil
			}
			if err := c.changelogs.Save(ctx, c.cfg.File, cl); err != nil {
				return fmt.Errorf("failed to write %s: %w", c.cfg.File, err)
			}
			fmt.Fprintf(out, "Drafted %d entries since %s (%d commits skipped)\n", len(result.Entries), since, result.Skipped)
			return nil
		},
	}
	cmd.Flags().BoolVar(&dryRun, "dry-run", false, "Print the unreleased notes instead of writing them")
	return cmd
}
