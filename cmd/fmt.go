package cmd

import (
	"fmt"

	"github.com/compozy/changelog/internal/parser"
	"github.com/spf13/cobra"
)

func newFmtCmd(a *app) *cobra.Command {
	var check bool
	cmd := &cobra.Command{
		Use:   "fmt",
		Short: "Rewrite the changelog in canonical form",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			c, err := a.deps()
			if err != nil {
				return err
			}
			ctx := cmd.Context()
			raw, err := c.changelogs.ReadRaw(ctx, c.cfg.File)
			if err != nil {
				return err
			}
			cl, err := parser.ParseString(string(raw), parser.Options{UnreleasedLabels: c.cfg.UnreleasedLabels})
			if err != nil {
				return fmt.Errorf("failed to parse %s: %w", c.cfg.File, err)
			}
			formatted := parser.RenderString(cl)
			if formatted == string(raw) {
				fmt.Fprintf(cmd.OutOrStdout(), "%s is already formatted\n", c.cfg.File)
				return nil
			}
			if check {
				return fmt.Errorf("%s is not formatted, run changelog fmt", c.cfg.File)
			}
			if err := c.changelogs.WriteRaw(ctx, c.cfg.File, []byte(formatted)); err != nil {
				return fmt.Errorf("failed to write %s: %w", c.cfg.File, err)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Formatted %s\n", c.cfg.File)
			return nil
		},
	}
	cmd.Flags().BoolVar(&check, "check", false, "Fail instead of rewriting when the file is not formatted")
	return cmd
}
