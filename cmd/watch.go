package cmd

import (
	"fmt"
	"time"

	"github.com/compozy/changelog/internal/lint"
	"github.com/compozy/changelog/internal/service"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

func newWatchCmd(a *app) *cobra.Command {
	var debounce time.Duration
	cmd := &cobra.Command{
		Use:   "watch",
		Short: "Lint the changelog every time it changes",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			c, err := a.deps()
			if err != nil {
				return err
			}
			ctx := cmd.Context()
			watcher := service.NewFileWatcher(debounce, c.logger)
			changes, err := watcher.Start(ctx, c.cfg.File)
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			opts := lint.Options{Disabled: c.cfg.DisabledRules, TagPrefix: c.cfg.TagPrefix}
			run := func() {
				reports, err := lintFiles(ctx, c, []string{c.cfg.File}, opts)
				if err != nil {
					fmt.Fprintln(out, err)
					return
				}
				if err := writeReports(out, reports, formatText); err != nil {
					c.logger.Warn("failed to write lint report", zap.Error(err))
				}
			}
			fmt.Fprintf(out, "Watching %s\n", c.cfg.File)
			run()
			for range changes {
				run()
			}
			return nil
		},
	}
	cmd.Flags().DurationVar(&debounce, "debounce", service.DefaultWatchDebounce, "Quiet period before linting a change")
	return cmd
}
