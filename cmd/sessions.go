package cmd

import (
	"fmt"
	"text/tabwriter"

	"github.com/spf13/cobra"
)

func newSessionsCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "sessions",
		Short: "List saved release sessions",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			c, err := a.deps()
			if err != nil {
				return err
			}
			ctx := cmd.Context()
			ids, err := c.stateRepo.List(ctx)
			if err != nil {
				return fmt.Errorf("failed to list sessions: %w", err)
			}
			if len(ids) == 0 {
				fmt.Fprintln(cmd.OutOrStdout(), "No release sessions")
				return nil
			}
			w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
			fmt.Fprintln(w, "SESSION\tVERSION\tSTATUS\tUPDATED")
			for _, id := range ids {
				session, err := c.stateRepo.Load(ctx, id)
				if err != nil {
					fmt.Fprintf(w, "%s\t-\tunreadable\t-\n", id)
					continue
				}
				fmt.Fprintf(w, "%s\t%s\t%s\t%s\n",
					id, safeValue(session.Version, "-"), session.Status, session.UpdatedAt.Format("2006-01-02 15:04:05"))
			}
			return w.Flush()
		},
	}
}
