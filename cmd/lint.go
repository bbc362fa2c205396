package cmd

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"runtime"

	"github.com/compozy/changelog/internal/domain"
	"github.com/compozy/changelog/internal/lint"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
	"gopkg.in/yaml.v3"
)

const (
	formatText = "text"
	formatJSON = "json"
	formatYAML = "yaml"
)

type lintOptions struct {
	strict bool
	git    bool
	format string
}

func newLintCmd(a *app) *cobra.Command {
	opts := lintOptions{}
	cmd := &cobra.Command{
		Use:   "lint [files...]",
		Short: "Check changelogs against the Keep a Changelog conventions",
		Long: `Lint one or more changelog files. Without arguments the configured file is
linted. Files are checked concurrently; the command fails when any file has
errors, or warnings in strict mode.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			c, err := a.deps()
			if err != nil {
				return err
			}
			if err := checkFormat(opts.format, formatText, formatJSON, formatYAML); err != nil {
				return err
			}
			files := args
			if len(files) == 0 {
				files = []string{c.cfg.File}
			}
			ruleOpts := lint.Options{Disabled: c.cfg.DisabledRules, TagPrefix: c.cfg.TagPrefix}
			if opts.git {
				gitRepo, err := c.requireGit("lint --git")
				if err != nil {
					return err
				}
				tags, err := gitRepo.ListTags(cmd.Context())
				if err != nil {
					return fmt.Errorf("failed to list tags: %w", err)
				}
				ruleOpts.Tags = append([]string{}, tags...)
			}
			reports, err := lintFiles(cmd.Context(), c, files, ruleOpts)
			if err != nil {
				return err
			}
			strict := opts.strict || c.cfg.Strict
			if err := writeReports(cmd.OutOrStdout(), reports, opts.format); err != nil {
				return err
			}
			failed := 0
			for _, r := range reports {
				if r.Failed(strict) {
					failed++
				}
			}
			if failed > 0 {
				return fmt.Errorf("lint failed: %d of %d file(s) have problems", failed, len(reports))
			}
			return nil
		},
	}
	cmd.Flags().BoolVar(&opts.strict, "strict", false, "Fail on warnings too")
	cmd.Flags().BoolVar(&opts.git, "git", false, "Check that every released version has a git tag")
	cmd.Flags().StringVar(&opts.format, "format", formatText, "Output format: text, json or yaml")
	return cmd
}

// lintFiles lints files concurrently. Reports keep the order of files.
func lintFiles(ctx context.Context, c *container, files []string, opts lint.Options) ([]*domain.Report, error) {
	reports := make([]*domain.Report, len(files))
	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(runtime.GOMAXPROCS(0))
	for i, file := range files {
		i, file := i, file
		g.Go(func() error {
			cl, err := c.changelogs.Load(ctx, file)
			if err != nil {
				return fmt.Errorf("failed to load %s: %w", file, err)
			}
			report := lint.Run(cl, opts)
			report.File = file
			reports[i] = report
			c.logger.Debug("linted changelog", zap.String("file", file), zap.Int("issues", len(report.Issues)))
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return reports, nil
}

func writeReports(w io.Writer, reports []*domain.Report, format string) error {
	switch format {
	case formatJSON:
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(reports)
	case formatYAML:
		enc := yaml.NewEncoder(w)
		enc.SetIndent(2)
		if err := enc.Encode(reports); err != nil {
			return err
		}
		return enc.Close()
	}
	for _, r := range reports {
		for _, issue := range r.Issues {
			fmt.Fprintf(w, "%s:%s\n", r.File, issue)
		}
		if len(r.Issues) == 0 {
			fmt.Fprintf(w, "%s: ok\n", r.File)
		}
	}
	return nil
}

func checkFormat(format string, allowed ...string) error {
	for _, f := range allowed {
		if format == f {
			return nil
		}
	}
	return fmt.Errorf("unsupported format %q: expected one of %v", format, allowed)
}
