package cmd

import (
	"fmt"
	"strings"

	"github.com/compozy/changelog/internal/domain"
	"github.com/compozy/changelog/internal/usecase"
	"github.com/spf13/cobra"
)

func newAddCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "add <category> <text...>",
		Short: "Add an entry to the unreleased release",
		Long: fmt.Sprintf(`Add an entry under a category of the unreleased release, creating the
release and the category when missing. Categories: %s.`, categoryNames()),
		Args: cobra.MinimumNArgs(2),
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
			text := strings.Join(args[1:], " ")
			uc := &usecase.AddEntryUseCase{UnreleasedLabel: c.cfg.UnreleasedLabel}
			release, err := uc.Execute(cl, args[0], text)
			if err != nil {
				return err
			}
			if err := c.changelogs.Save(ctx, c.cfg.File, cl); err != nil {
				return fmt.Errorf("failed to write %s: %w", c.cfg.File, err)
			}
			category, _ := domain.ParseCategory(args[0])
			fmt.Fprintf(cmd.OutOrStdout(), "Added to %s / %s: %s\n", release.Label, category, strings.TrimSpace(text))
			return nil
		},
	}
}

func categoryNames() string {
	names := make([]string, len(domain.Categories))
	for i, c := range domain.Categories {
		names[i] = string(c)
	}
	return strings.Join(names, ", ")
}
