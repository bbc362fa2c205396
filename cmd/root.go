package cmd

import (
	"fmt"

	"github.com/compozy/changelog/internal/config"
	"github.com/compozy/changelog/internal/repository"
	"github.com/compozy/changelog/pkg/version"
	"github.com/spf13/afero"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// app holds the state shared by all commands of one invocation.
type app struct {
	fs         afero.Fs
	viper      *viper.Viper
	configFile string
	file       string
	verbose    bool
	logger     *zap.Logger
	container  *container
	// openGit opens the repository of the working directory.
	openGit func(tagPrefix string) (repository.GitExtendedRepository, error)
}

// NewRootCmd creates the changelog command tree on the OS file system.
func NewRootCmd() *cobra.Command {
	return newRootCmd(newApp(afero.NewOsFs()))
}

func newApp(fs afero.Fs) *app {
	a := &app{
		fs:    fs,
		viper: viper.New(),
		openGit: func(tagPrefix string) (repository.GitExtendedRepository, error) {
			return repository.NewGitExtendedRepository(".", tagPrefix)
		},
	}
	a.viper.SetFs(fs)
	return a
}

func newRootCmd(a *app) *cobra.Command {
	rootCmd := &cobra.Command{
		Use:   "changelog",
		Short: "Maintain a Keep a Changelog file",
		Long: `changelog parses, lints, edits and releases CHANGELOG.md files that follow
the Keep a Changelog conventions. Releases are labeled with a version, or with
an unreleased placeholder such as "Unreleased" or "next".`,
		Version:       version.Summary(),
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			return a.setupLogger()
		},
		PersistentPostRun: func(_ *cobra.Command, _ []string) {
			if a.logger != nil {
				_ = a.logger.Sync()
			}
		},
	}
	rootCmd.PersistentFlags().StringVar(&a.configFile, "config", "", "Config file (default .changelog.yaml)")
	rootCmd.PersistentFlags().StringVarP(&a.file, "file", "f", "", "Changelog file (default CHANGELOG.md)")
	rootCmd.PersistentFlags().BoolVarP(&a.verbose, "verbose", "v", false, "Enable debug logging")
	rootCmd.AddCommand(
		newInitCmd(a),
		newLintCmd(a),
		newFmtCmd(a),
		newAddCmd(a),
		newDraftCmd(a),
		newNextVersionCmd(a),
		newReleaseCmd(a),
		newSessionsCmd(a),
		newYankCmd(a),
		newShowCmd(a),
		newExportCmd(a),
		newWatchCmd(a),
		newCheckCmd(a),
		newVersionCmd(),
	)
	return rootCmd
}

func (a *app) setupLogger() error {
	if a.logger != nil {
		return nil
	}
	cfg := zap.NewProductionConfig()
	if a.verbose {
		cfg.Level = zap.NewAtomicLevelAt(zapcore.DebugLevel)
	}
	logger, err := cfg.Build()
	if err != nil {
		return fmt.Errorf("failed to initialize logger: %w", err)
	}
	a.logger = logger
	return nil
}

// deps loads the configuration and wires the dependencies on first use.
func (a *app) deps() (*container, error) {
	if a.container != nil {
		return a.container, nil
	}
	if a.logger == nil {
		a.logger = zap.NewNop()
	}
	cfg, err := config.LoadConfig(a.viper, a.configFile)
	if err != nil {
		return nil, fmt.Errorf("failed to load configuration: %w", err)
	}
	if a.file != "" {
		cfg.File = a.file
	}
	c, err := newContainer(a.fs, cfg, a.logger, a.openGit)
	if err != nil {
		return nil, err
	}
	a.container = c
	return c, nil
}
