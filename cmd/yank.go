package cmd

import (
	"fmt"

	"github.com/compozy/changelog/internal/usecase"
	"github.com/spf13/cobra"
)

func newYankCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "yank <version>",
		Short: "Mark a released version as yanked",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			c, err := a.deps()
			if err != nil {
				return err
			}
			ctx := cmd.Context()
			cl, err := c.changelogs.Load(ctx, c.cfg.File)
			if err != nil {
				return err
			}
			release, err := (&usecase.YankUseCase{}).Execute(cl, args[0])
			if err != nil {
				return err
			}
			if err := c.changelogs.Save(ctx, c.cfg.File, cl); err != nil {
				return fmt.Errorf("failed to write %s: %w", c.cfg.File, err)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Yanked %s\n", release.Label)
			return nil
		},
	}
}
