package config

import (
	"errors"
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"regexp"
	"strings"

	"github.com/Masterminds/semver/v3"
	"github.com/go-git/go-git/v5"
	"github.com/spf13/viper"
)

const (
	DefaultConfigName = ".changelog"
	EnvPrefix         = "CHANGELOG"
)

type Config struct {
	File             string   `mapstructure:"file"`
	UnreleasedLabel  string   `mapstructure:"unreleased_label"`
	UnreleasedLabels []string `mapstructure:"unreleased_labels"`
	KeepUnreleased   bool     `mapstructure:"keep_unreleased"`
	TagPrefix        string   `mapstructure:"tag_prefix"`
	InitialVersion   string   `mapstructure:"initial_version"`
	CompareURL       string   `mapstructure:"compare_url"`
	ReleaseURL       string   `mapstructure:"release_url"`
	Strict           bool     `mapstructure:"strict"`
	DisabledRules    []string `mapstructure:"disabled_rules"`
	DefaultBranch    string   `mapstructure:"default_branch"`
	SkipLabel        string   `mapstructure:"skip_label"`
	StateDir         string   `mapstructure:"state_dir"`
	GithubToken      string   `mapstructure:"github_token"`
	GithubOwner      string   `mapstructure:"github_owner"`
	GithubRepo       string   `mapstructure:"github_repo"`
}

// DefaultConfig returns a Config with default values
func DefaultConfig() *Config {
	return &Config{
		File:             "CHANGELOG.md",
		UnreleasedLabel:  "Unreleased",
		UnreleasedLabels: []string{"Unreleased", "next"},
		KeepUnreleased:   true,
		TagPrefix:        "v",
		InitialVersion:   "0.0.0",
		DefaultBranch:    "main",
		SkipLabel:        "skip-changelog",
		StateDir:         ".changelog-state",
	}
}

var (
	classicPAT     = regexp.MustCompile(`^[a-fA-F0-9]{40}$`)
	fineGrainedPAT = regexp.MustCompile(`^github_pat_[a-zA-Z0-9_]{82}$`)
	personalToken  = regexp.MustCompile(`^ghp_[a-zA-Z0-9]{36}$`)
	appToken       = regexp.MustCompile(`^ghs_[a-zA-Z0-9]{36}$`)
	oauthToken     = regexp.MustCompile(`^gho_[a-zA-Z0-9]{36}$`)
	validName      = regexp.MustCompile(`^[a-zA-Z0-9][a-zA-Z0-9\-_.]*[a-zA-Z0-9]$|^[a-zA-Z0-9]$`)
)

// Validate validates the configuration
func (c *Config) Validate() error {
	if strings.TrimSpace(c.File) == "" {
		return fmt.Errorf("file cannot be empty")
	}
	if strings.TrimSpace(c.UnreleasedLabel) == "" {
		return fmt.Errorf("unreleased_label cannot be empty")
	}
	if strings.ContainsAny(c.UnreleasedLabel, "[]") {
		return fmt.Errorf("unreleased_label cannot contain brackets")
	}
	if strings.ContainsAny(c.TagPrefix, " \t\n") {
		return fmt.Errorf("tag_prefix cannot contain whitespace")
	}
	if _, err := semver.StrictNewVersion(strings.TrimPrefix(c.InitialVersion, "v")); err != nil {
		return fmt.Errorf("invalid initial_version %q: %w", c.InitialVersion, err)
	}
	if c.CompareURL != "" &&
		(!strings.Contains(c.CompareURL, "{previous}") || !strings.Contains(c.CompareURL, "{current}")) {
		return fmt.Errorf("compare_url must contain {previous} and {current}")
	}
	if c.ReleaseURL != "" && !strings.Contains(c.ReleaseURL, "{current}") {
		return fmt.Errorf("release_url must contain {current}")
	}
	if c.StateDir == "" {
		return fmt.Errorf("state_dir cannot be empty")
	}
	if strings.Contains(c.StateDir, "..") {
		return fmt.Errorf("state_dir contains invalid path traversal")
	}
	// GitHub token is optional - only validate if provided
	if c.GithubToken != "" {
		if err := ValidateGitHubToken(c.GithubToken); err != nil {
			return fmt.Errorf("invalid github_token: %w", err)
		}
	}
	if c.GithubOwner != "" || c.GithubRepo != "" {
		if err := ValidateGitHubOwnerRepo(c.GithubOwner, c.GithubRepo); err != nil {
			return fmt.Errorf("invalid github configuration: %w", err)
		}
	}
	return nil
}

// ValidateForGitHubOperations validates that GitHub token is present for operations that require it
func (c *Config) ValidateForGitHubOperations() error {
	if c.GithubToken == "" {
		return fmt.Errorf("github_token is required for GitHub operations")
	}
	if c.GithubOwner == "" || c.GithubRepo == "" {
		return fmt.Errorf("github_owner and github_repo are required for GitHub operations")
	}
	return c.Validate()
}

// ValidateGitHubToken validates GitHub token format (exported for reuse)
func ValidateGitHubToken(token string) error {
	token = strings.TrimSpace(token)
	if len(token) < 40 {
		return fmt.Errorf("token too short: expected at least 40 characters")
	}
	if !classicPAT.MatchString(token) &&
		!fineGrainedPAT.MatchString(token) &&
		!personalToken.MatchString(token) &&
		!appToken.MatchString(token) &&
		!oauthToken.MatchString(token) {
		return fmt.Errorf("invalid token format")
	}
	return nil
}

// ValidateGitHubOwnerRepo validates GitHub owner and repository names (exported for reuse)
func ValidateGitHubOwnerRepo(owner, repo string) error {
	if owner == "" {
		return fmt.Errorf("owner cannot be empty")
	}
	if repo == "" {
		return fmt.Errorf("repository cannot be empty")
	}
	if !validName.MatchString(owner) {
		return fmt.Errorf("invalid owner format: %s", owner)
	}
	if len(owner) > 39 {
		return fmt.Errorf("owner too long: maximum 39 characters")
	}
	if !validName.MatchString(repo) {
		return fmt.Errorf("invalid repository format: %s", repo)
	}
	if len(repo) > 100 {
		return fmt.Errorf("repository too long: maximum 100 characters")
	}
	return nil
}

// LoadConfig reads configuration from configFile (or .changelog.yaml in the
// working directory), the environment and any flags already bound on v.
func LoadConfig(v *viper.Viper, configFile string) (*Config, error) {
	if v == nil {
		v = viper.New()
	}
	if configFile != "" {
		v.SetConfigFile(configFile)
	} else {
		v.SetConfigName(DefaultConfigName)
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
	}
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	// BindEnv allows multiple env vars - it will check them in order
	envs := map[string][]string{
		"github_token": {"GITHUB_TOKEN", "CHANGELOG_GITHUB_TOKEN"},
		"github_owner": {"GITHUB_OWNER", "CHANGELOG_GITHUB_OWNER"},
		"github_repo":  {"GITHUB_REPO", "CHANGELOG_GITHUB_REPO"},
	}
	for key, names := range envs {
		if err := v.BindEnv(append([]string{key}, names...)...); err != nil {
			return nil, fmt.Errorf("failed to bind %s env: %w", key, err)
		}
	}
	defaults := DefaultConfig()
	v.SetDefault("file", defaults.File)
	v.SetDefault("unreleased_label", defaults.UnreleasedLabel)
	v.SetDefault("unreleased_labels", defaults.UnreleasedLabels)
	v.SetDefault("keep_unreleased", defaults.KeepUnreleased)
	v.SetDefault("tag_prefix", defaults.TagPrefix)
	v.SetDefault("initial_version", defaults.InitialVersion)
	v.SetDefault("compare_url", "")
	v.SetDefault("release_url", "")
	v.SetDefault("strict", defaults.Strict)
	v.SetDefault("disabled_rules", []string{})
	v.SetDefault("default_branch", defaults.DefaultBranch)
	v.SetDefault("skip_label", defaults.SkipLabel)
	v.SetDefault("state_dir", defaults.StateDir)
	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, fmt.Errorf("failed to read config: %w", err)
		}
	}
	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to decode config: %w", err)
	}
	cfg.normalize()
	if err := populateRepositoryDefaults(&cfg); err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}
	return &cfg, nil
}

// normalize makes sure the configured unreleased label is always recognized.
func (c *Config) normalize() {
	for _, l := range c.UnreleasedLabels {
		if strings.EqualFold(l, c.UnreleasedLabel) {
			return
		}
	}
	c.UnreleasedLabels = append(c.UnreleasedLabels, c.UnreleasedLabel)
}

// populateRepositoryDefaults fills owner and repo from the GitHub Actions
// environment, then from the origin remote of the working directory.
func populateRepositoryDefaults(cfg *Config) error {
	if cfg.GithubOwner != "" && cfg.GithubRepo != "" {
		return nil
	}
	if slug := strings.TrimSpace(os.Getenv("GITHUB_REPOSITORY")); slug != "" {
		if owner, repo, ok := strings.Cut(slug, "/"); ok && owner != "" && repo != "" {
			fillRepository(cfg, owner, repo)
			return nil
		}
		return fmt.Errorf("invalid GITHUB_REPOSITORY %q: expected owner/repo", slug)
	}
	owner := os.Getenv("GITHUB_REPOSITORY_OWNER")
	name := os.Getenv("GITHUB_REPOSITORY_NAME")
	if owner != "" && name != "" {
		fillRepository(cfg, owner, name)
		return nil
	}
	repo, err := git.PlainOpenWithOptions(".", &git.PlainOpenOptions{DetectDotGit: true})
	if err != nil {
		// Outside a git checkout there is nothing to infer.
		return nil
	}
	remote, err := repo.Remote("origin")
	if err != nil || len(remote.Config().URLs) == 0 {
		return nil
	}
	owner, name, err = parseGitRemoteURL(remote.Config().URLs[0])
	if err != nil {
		return fmt.Errorf("failed to infer repository from origin: %w", err)
	}
	fillRepository(cfg, owner, name)
	return nil
}

func fillRepository(cfg *Config, owner, repo string) {
	if cfg.GithubOwner == "" {
		cfg.GithubOwner = owner
	}
	if cfg.GithubRepo == "" {
		cfg.GithubRepo = repo
	}
}

// parseGitRemoteURL extracts owner and repository from https, ssh, scp-like
// and local path remotes.
func parseGitRemoteURL(raw string) (string, string, error) {
	raw = strings.TrimSpace(raw)
	path := raw
	switch {
	case strings.Contains(raw, "://"):
		u, err := url.Parse(raw)
		if err != nil {
			return "", "", fmt.Errorf("invalid remote url %q: %w", raw, err)
		}
		path = u.Path
	case strings.Contains(raw, "@") && strings.Contains(raw, ":"):
		_, path, _ = strings.Cut(raw, ":")
	}
	path = strings.Trim(filepath.ToSlash(path), "/")
	path = strings.TrimSuffix(path, ".git")
	parts := strings.Split(path, "/")
	if len(parts) < 2 || parts[len(parts)-2] == "" || parts[len(parts)-1] == "" {
		return "", "", fmt.Errorf("cannot determine owner and repository from %q", raw)
	}
	return parts[len(parts)-2], parts[len(parts)-1], nil
}
