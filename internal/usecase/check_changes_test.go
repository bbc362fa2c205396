package usecase

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestCheckChangesUseCase_Execute(t *testing.T) {
	uc := &CheckChangesUseCase{}
	t.Run("Should detect unreleased entries", func(t *testing.T) {
		has, latest := uc.Execute(mustParse(t, "# Changelog\n\n## next\n### Added\n- a\n\n## v0.1.0\n### Added\n- b\n"))
		assert.True(t, has)
		assert.Equal(t, "v0.1.0", latest)
	})
	t.Run("Should report no changes for an empty unreleased release", func(t *testing.T) {
		has, latest := uc.Execute(mustParse(t, "# Changelog\n\n## [Unreleased]\n### Added\n\n## [1.0.0]\n### Added\n- b\n"))
		assert.False(t, has)
		assert.Equal(t, "1.0.0", latest)
	})
	t.Run("Should handle a changelog without releases", func(t *testing.T) {
		has, latest := uc.Execute(mustParse(t, "# Changelog\n"))
		assert.False(t, has)
		assert.Empty(t, latest)
	})
}
