package cmd

import (
	"fmt"

	"github.com/compozy/changelog/internal/domain"
	"github.com/compozy/changelog/internal/usecase"
	"github.com/spf13/cobra"
)

func newNextVersionCmd(a *app) *cobra.Command {
	var (
		bump  string
		force bool
	)
	cmd := &cobra.Command{
		Use:   "next-version",
		Short: "Print the version the unreleased changes would be released as",
		Long: `Print the next version. With --bump auto (the default) a Removed section or
a **BREAKING** entry bumps major, Added, Changed or Deprecated bump minor and
anything else bumps patch. While the major version is 0 a major bump only
bumps minor.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			kind, err := domain.ParseBumpKind(bump)
			if err != nil {
				return err
			}
			c, err := a.deps()
			if err != nil {
				return err
			}
			ctx := cmd.Context()
			cl, err := c.changelogs.Load(ctx, c.cfg.File)
			if err != nil {
				return err
			}
			uc := &usecase.CalculateVersionUseCase{InitialVersion: c.cfg.InitialVersion, TagPrefix: c.cfg.TagPrefix}
			if c.gitRepo != nil {
				uc.GitRepo = c.gitRepo
			}
			result, err := uc.Execute(ctx, cl, usecase.CalculateVersionRequest{Bump: kind, Force: force})
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), result.Next.Bare())
			return nil
		},
	}
	cmd.Flags().StringVar(&bump, "bump", string(domain.BumpAuto), "Bump kind: major, minor, patch or auto")
	cmd.Flags().BoolVar(&force, "force", false, "Calculate a version even without unreleased entries")
	return cmd
}
