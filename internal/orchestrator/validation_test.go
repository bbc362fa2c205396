package orchestrator

import (
	"errors"
	"fmt"
	"testing"

	"github.com/compozy/changelog/internal/domain"
	"github.com/stretchr/testify/assert"
)

func TestValidateVersion(t *testing.T) {
	t.Run("Should accept full versions with or without prefix", func(t *testing.T) {
		assert.NoError(t, ValidateVersion("1.2.3"))
		assert.NoError(t, ValidateVersion("v1.2.3-rc.1"))
	})
	t.Run("Should reject partial or empty versions", func(t *testing.T) {
		assert.Error(t, ValidateVersion(""))
		assert.Error(t, ValidateVersion("1.2"))
		assert.Error(t, ValidateVersion("next"))
	})
}

func TestValidateBranchName(t *testing.T) {
	t.Run("Should accept release branches", func(t *testing.T) {
		assert.NoError(t, ValidateBranchName("release/v1.2.3"))
	})
	t.Run("Should reject malformed names", func(t *testing.T) {
		for _, name := range []string{"", "/release", "release/", "a..b", "x.lock", "-x", "has space"} {
			assert.Error(t, ValidateBranchName(name), name)
		}
	})
}

func TestIsPermanent(t *testing.T) {
	t.Run("Should treat domain errors as permanent", func(t *testing.T) {
		assert.True(t, isPermanent(fmt.Errorf("wrap: %w", domain.ErrVersionExists)))
		assert.True(t, isPermanent(permanent(errors.New("bad input"))))
	})
	t.Run("Should retry other errors", func(t *testing.T) {
		assert.False(t, isPermanent(errors.New("connection reset")))
	})
}
