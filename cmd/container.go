package cmd

import (
	"fmt"

	"github.com/compozy/changelog/internal/config"
	"github.com/compozy/changelog/internal/parser"
	"github.com/compozy/changelog/internal/repository"
	"github.com/spf13/afero"
	"go.uber.org/zap"
)

// container holds all the dependencies for the application.
type container struct {
	cfg        *config.Config
	fs         afero.Fs
	logger     *zap.Logger
	changelogs repository.ChangelogRepository
	// gitRepo is nil outside a git repository.
	gitRepo    repository.GitExtendedRepository
	githubRepo repository.GithubExtendedRepository
	stateRepo  repository.StateRepository
}

func newContainer(
	fs afero.Fs,
	cfg *config.Config,
	logger *zap.Logger,
	openGit func(tagPrefix string) (repository.GitExtendedRepository, error),
) (*container, error) {
	c := &container{
		cfg:        cfg,
		fs:         fs,
		logger:     logger,
		changelogs: repository.NewChangelogRepository(fs, parser.Options{UnreleasedLabels: cfg.UnreleasedLabels}),
		stateRepo:  repository.NewJSONStateRepository(fs, cfg.StateDir, logger),
	}
	if openGit != nil {
		gitRepo, err := openGit(cfg.TagPrefix)
		if err != nil {
			logger.Debug("git repository not available", zap.Error(err))
		} else {
			c.gitRepo = gitRepo
		}
	}
	// GitHub access is optional; without a token every call reports
	// repository.ErrGithubTokenRequired.
	if cfg.GithubToken != "" && cfg.GithubOwner != "" && cfg.GithubRepo != "" {
		githubRepo, err := repository.NewGithubExtendedRepository(cfg.GithubToken, cfg.GithubOwner, cfg.GithubRepo, logger)
		if err != nil {
			return nil, fmt.Errorf("failed to initialize GitHub repository: %w", err)
		}
		c.githubRepo = githubRepo
	} else {
		c.githubRepo = repository.NewGithubNoopExtendedRepository(cfg.GithubOwner, cfg.GithubRepo)
	}
	return c, nil
}

// requireGit returns the git repository or an error naming the command.
func (c *container) requireGit(command string) (repository.GitExtendedRepository, error) {
	if c.gitRepo == nil {
		return nil, fmt.Errorf("%s needs a git repository", command)
	}
	return c.gitRepo, nil
}
