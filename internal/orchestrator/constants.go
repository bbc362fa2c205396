package orchestrator

import (
	"os"
	"strconv"
	"strings"
	"time"
)

// Timeouts and retry settings. Each can be overridden through the
// environment; test binaries get short defaults.
var (
	// CheckWorkflowTimeout bounds the pull request check workflow.
	CheckWorkflowTimeout = getTimeoutOrDefault("CHANGELOG_CHECK_TIMEOUT", 10*time.Minute, 5*time.Second)
	// ReleaseWorkflowTimeout bounds a full release run.
	ReleaseWorkflowTimeout = getTimeoutOrDefault("CHANGELOG_RELEASE_TIMEOUT", 60*time.Minute, 10*time.Second)
	// RollbackTimeout bounds the compensations of a failed or abandoned run.
	RollbackTimeout = getTimeoutOrDefault("CHANGELOG_ROLLBACK_TIMEOUT", 10*time.Minute, 2*time.Second)
	// DefaultRetryCount is how often a failing step is retried.
	DefaultRetryCount = uint64(getRetryCountOrDefault("CHANGELOG_RETRY_COUNT", 3, 1))
	// DefaultRetryDelay is the first delay of the exponential backoff.
	DefaultRetryDelay = getTimeoutOrDefault("CHANGELOG_RETRY_DELAY", time.Second, 10*time.Millisecond)
)

func isTestEnvironment() bool {
	for _, arg := range os.Args {
		if strings.HasSuffix(arg, ".test") || strings.HasPrefix(arg, "-test.") {
			return true
		}
	}
	return os.Getenv("CHANGELOG_TEST_MODE") == "true"
}

func getTimeoutOrDefault(envVar string, prodDefault, testDefault time.Duration) time.Duration {
	if env := os.Getenv(envVar); env != "" {
		if duration, err := time.ParseDuration(env); err == nil && duration > 0 {
			return duration
		}
	}
	if isTestEnvironment() {
		return testDefault
	}
	return prodDefault
}

func getRetryCountOrDefault(envVar string, prodDefault, testDefault int) int {
	if env := os.Getenv(envVar); env != "" {
		if count, err := strconv.Atoi(env); err == nil && count >= 0 {
			return count
		}
	}
	if isTestEnvironment() {
		return testDefault
	}
	return prodDefault
}

const (
	// ReleaseBranchPrefix prefixes the branch a release is prepared on.
	ReleaseBranchPrefix = "release/"
	// ReleaseCommitPrefix prefixes the release commit message and PR title.
	ReleaseCommitPrefix = "chore(release): "
)

// ReleasePRLabels are attached to the release pull request.
var ReleasePRLabels = []string{"release-pending", "automated"}
