package cmd

import (
	"fmt"

	"github.com/compozy/changelog/internal/domain"
	"github.com/spf13/cobra"
)

var changelogPreamble = []string{
	"All notable changes to this project will be documented in this file.",
	"",
	"The format is based on [Keep a Changelog](https://keepachangelog.com/en/1.1.0/),",
	"and this project adheres to [Semantic Versioning](https://semver.org/spec/v2.0.0.html).",
}

func newInitCmd(a *app) *cobra.Command {
	var force bool
	cmd := &cobra.Command{
		Use:   "init",
		Short: "Create a new changelog",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			c, err := a.deps()
			if err != nil {
				return err
			}
			ctx := cmd.Context()
			exists, err := c.changelogs.Exists(ctx, c.cfg.File)
			if err != nil {
				return err
			}
			if exists && !force {
				return fmt.Errorf("%s already exists, use --force to overwrite it", c.cfg.File)
			}
			cl := domain.New()
			cl.Preamble = append([]string{}, changelogPreamble...)
			cl.EnsureUnreleased(c.cfg.UnreleasedLabel)
			if err := c.changelogs.Save(ctx, c.cfg.File, cl); err != nil {
				return fmt.Errorf("failed to write %s: %w", c.cfg.File, err)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Created %s\n", c.cfg.File)
			return nil
		},
	}
	cmd.Flags().BoolVar(&force, "force", false, "Overwrite an existing changelog")
	return cmd
}
