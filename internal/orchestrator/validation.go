package orchestrator

import (
	"errors"
	"fmt"
	"regexp"
	"strings"

	"github.com/compozy/changelog/internal/domain"
	"github.com/compozy/changelog/internal/repository"
)

var refNameRegex = regexp.MustCompile(`^[a-zA-Z0-9._/+-]+$`)

// ValidateVersion validates an explicit release version.
func ValidateVersion(version string) error {
	if strings.TrimSpace(version) == "" {
		return fmt.Errorf("version cannot be empty")
	}
	if _, err := domain.NewStrictVersion(version); err != nil {
		return fmt.Errorf("invalid version format: %s (expected: v1.2.3 or 1.2.3)", version)
	}
	return nil
}

// ValidateBranchName validates a git branch name.
func ValidateBranchName(branch string) error {
	return validateRefName("branch", branch)
}

// ValidateTagName validates a git tag name.
func ValidateTagName(tag string) error {
	return validateRefName("tag", tag)
}

func validateRefName(kind, name string) error {
	switch {
	case name == "":
		return fmt.Errorf("%s name cannot be empty", kind)
	case len(name) > 255:
		return fmt.Errorf("%s name too long: %d characters (max: 255)", kind, len(name))
	case strings.HasPrefix(name, "/") || strings.HasSuffix(name, "/"):
		return fmt.Errorf("%s name cannot start or end with slash: %s", kind, name)
	case strings.HasPrefix(name, "-"):
		return fmt.Errorf("%s name cannot start with a dash: %s", kind, name)
	case strings.Contains(name, ".."):
		return fmt.Errorf("%s name cannot contain consecutive dots: %s", kind, name)
	case strings.HasSuffix(name, ".lock"):
		return fmt.Errorf("%s name cannot end with .lock: %s", kind, name)
	case !refNameRegex.MatchString(name):
		return fmt.Errorf("invalid %s name format: %s", kind, name)
	}
	return nil
}

// ErrGitRequired is returned when a git step runs outside a repository.
var ErrGitRequired = errors.New("a git repository is required for this operation")

type permanentError struct{ err error }

func (e *permanentError) Error() string { return e.err.Error() }
func (e *permanentError) Unwrap() error { return e.err }

// permanent marks err as not worth retrying.
func permanent(err error) error {
	if err == nil {
		return nil
	}
	return &permanentError{err: err}
}

// isPermanent reports whether retrying err cannot succeed.
func isPermanent(err error) bool {
	var pe *permanentError
	if errors.As(err, &pe) {
		return true
	}
	for _, target := range []error{
		domain.ErrNoUnreleased,
		domain.ErrNothingToRelease,
		domain.ErrVersionExists,
		domain.ErrVersionNotFound,
		domain.ErrVersionNotGreater,
		repository.ErrChangelogNotFound,
		repository.ErrGithubTokenRequired,
		ErrGitRequired,
	} {
		if errors.Is(err, target) {
			return true
		}
	}
	return false
}
