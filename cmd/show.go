package cmd

import (
	"fmt"
	"strings"

	"github.com/compozy/changelog/internal/parser"
	"github.com/compozy/changelog/internal/service"
	"github.com/compozy/changelog/internal/usecase"
	"github.com/spf13/cobra"
)

type showOptions struct {
	render bool
	style  string
	width  int
	notes  bool
}

func newShowCmd(a *app) *cobra.Command {
	opts := showOptions{}
	cmd := &cobra.Command{
		Use:   "show [version]",
		Short: "Print a single release",
		Long: `Print one release. Without an argument the highest released version is
shown; "Unreleased" or "next" select the unreleased release. --notes omits the
release heading, which is the form used for GitHub release bodies.`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			c, err := a.deps()
			if err != nil {
				return err
			}
			cl, err := c.changelogs.Load(cmd.Context(), c.cfg.File)
			if err != nil {
				return err
			}
			ref := ""
			if len(args) == 1 {
				ref = args[0]
			}
			uc := &usecase.ReleaseNotesUseCase{UnreleasedLabels: c.cfg.UnreleasedLabels}
			release, err := uc.Resolve(cl, ref)
			if err != nil {
				return err
			}
			var b strings.Builder
			parser.WriteRelease(&b, release, !opts.notes)
			markdown := b.String()
			if opts.render {
				renderer, err := service.NewMarkdownRenderer(opts.style, opts.width)
				if err != nil {
					return err
				}
				if markdown, err = renderer.Render(markdown); err != nil {
					return err
				}
			}
			fmt.Fprint(cmd.OutOrStdout(), markdown)
			return nil
		},
	}
	cmd.Flags().BoolVar(&opts.notes, "notes", false, "Print the sections only")
	cmd.Flags().BoolVar(&opts.render, "render", false, "Render the Markdown for the terminal")
	cmd.Flags().StringVar(&opts.style, "style", "auto", "Render style: auto, dark, light or notty")
	cmd.Flags().IntVar(&opts.width, "width", service.DefaultRenderWidth, "Render word wrap width")
	return cmd
}
