package cmd

import (
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"
)

func newExportCmd(a *app) *cobra.Command {
	var format string
	cmd := &cobra.Command{
		Use:   "export",
		Short: "Export the changelog as structured data",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if err := checkFormat(format, formatJSON, formatYAML); err != nil {
				return err
			}
			c, err := a.deps()
			if err != nil {
				return err
			}
			cl, err := c.changelogs.Load(cmd.Context(), c.cfg.File)
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			if format == formatYAML {
				enc := yaml.NewEncoder(out)
				enc.SetIndent(2)
				if err := enc.Encode(cl); err != nil {
					return fmt.Errorf("failed to encode changelog: %w", err)
				}
				return enc.Close()
			}
			enc := json.NewEncoder(out)
			enc.SetIndent("", "  ")
			if err := enc.Encode(cl); err != nil {
				return fmt.Errorf("failed to encode changelog: %w", err)
			}
			return nil
		},
	}
	cmd.Flags().StringVar(&format, "format", formatJSON, "Output format: json or yaml")
	return cmd
}
