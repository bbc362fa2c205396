package usecase

import (
	"errors"
	"testing"

	"github.com/compozy/changelog/internal/domain"
	"github.com/compozy/changelog/internal/parser"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const compareURL = "https://github.com/acme/widgets/compare/{previous}...{current}"

func TestPromoteReleaseUseCase_Execute(t *testing.T) {
	t.Run("Should promote the unreleased release and keep a fresh one", func(t *testing.T) {
		cl := mustParse(t, `# Changelog

## [Unreleased]

### Added

- Widgets.

### Fixed

## [1.0.0] - 2024-01-01

### Added

- First.

[Unreleased]: https://github.com/acme/widgets/compare/v1.0.0...HEAD
[1.0.0]: https://github.com/acme/widgets/releases/tag/v1.0.0
[docs]: https://example.com/docs
`)
		uc := &PromoteReleaseUseCase{KeepUnreleased: true, CompareURL: compareURL, TagPrefix: "v"}
		release, err := uc.Execute(cl, mustVersion(t, "1.1.0"), "2024-03-01")
		require.NoError(t, err)
		assert.Equal(t, "1.1.0", release.Label)
		assert.False(t, release.Unreleased)
		require.Len(t, release.Sections, 1)
		require.Len(t, cl.Releases, 3)
		assert.True(t, cl.Releases[0].Unreleased)
		assert.Equal(t, "Unreleased", cl.Releases[0].Label)
		assert.Equal(t, []domain.Link{
			{Label: "Unreleased", URL: "https://github.com/acme/widgets/compare/v1.1.0...HEAD"},
			{Label: "1.1.0", URL: "https://github.com/acme/widgets/compare/v1.0.0...v1.1.0"},
			{Label: "1.0.0", URL: "https://github.com/acme/widgets/releases/tag/v1.0.0"},
			{Label: "docs", URL: "https://example.com/docs"},
		}, cl.Links)
		out := parser.RenderString(cl)
		assert.Contains(t, out, "## [Unreleased]\n\n## [1.1.0] - 2024-03-01\n\n### Added\n\n- Widgets.\n\n## [1.0.0]")
	})
	t.Run("Should follow the unbracketed v-prefixed style", func(t *testing.T) {
		cl := mustParse(t, "# Changelog\n\n## next\n\n### Added\n\n- Quaternions.\n\n## v0.1.0\n\n### Added\n\n- Initial release.\n")
		uc := &PromoteReleaseUseCase{}
		release, err := uc.Execute(cl, mustVersion(t, "0.2.0"), "")
		require.NoError(t, err)
		assert.Equal(t, "v0.2.0", release.Label)
		assert.False(t, release.Bracketed)
		assert.Len(t, cl.Releases, 2)
		assert.Nil(t, cl.Unreleased())
		assert.Contains(t, parser.RenderString(cl), "## v0.2.0\n\n### Added\n\n- Quaternions.\n")
	})
	t.Run("Should pick the label style for a first release", func(t *testing.T) {
		bracketed := mustParse(t, "# Changelog\n\n## [Unreleased]\n\n### Added\n\n- a\n")
		uc := &PromoteReleaseUseCase{ReleaseURL: "https://example.com/tag/{current}", TagPrefix: "v"}
		release, err := uc.Execute(bracketed, mustVersion(t, "1.0.0"), "2024-01-01")
		require.NoError(t, err)
		assert.Equal(t, "1.0.0", release.Label)
		assert.Equal(t, []domain.Link{{Label: "1.0.0", URL: "https://example.com/tag/v1.0.0"}}, bracketed.Links)

		plain := mustParse(t, "# Changelog\n\n## next\n\n### Added\n\n- a\n")
		release, err = (&PromoteReleaseUseCase{}).Execute(plain, mustVersion(t, "0.1.0"), "")
		require.NoError(t, err)
		assert.Equal(t, "v0.1.0", release.Label)
	})
	t.Run("Should fail without unreleased release or on duplicate version", func(t *testing.T) {
		uc := &PromoteReleaseUseCase{}
		cl := mustParse(t, "# Changelog\n\n## 1.0.0 - 2024-01-01\n\n### Added\n\n- a\n")
		_, err := uc.Execute(cl, mustVersion(t, "1.1.0"), "")
		assert.True(t, errors.Is(err, domain.ErrNoUnreleased))
		cl.EnsureUnreleased("Unreleased")
		_, err = uc.Execute(cl, mustVersion(t, "v1.0.0"), "")
		assert.True(t, errors.Is(err, domain.ErrVersionExists))
	})
}

func TestYankUseCase_Execute(t *testing.T) {
	t.Run("Should mark a release yanked", func(t *testing.T) {
		cl := mustParse(t, "# Changelog\n\n## [Unreleased]\n\n## [1.0.0] - 2024-01-01\n\n### Added\n\n- a\n")
		uc := &YankUseCase{}
		release, err := uc.Execute(cl, "v1.0.0")
		require.NoError(t, err)
		assert.True(t, release.Yanked)
		_, err = uc.Execute(cl, "1.0.0")
		require.NoError(t, err)
		assert.Contains(t, parser.RenderString(cl), "## [1.0.0] - 2024-01-01 [YANKED]\n")
	})
	t.Run("Should reject unknown and unreleased versions", func(t *testing.T) {
		cl := mustParse(t, "# Changelog\n\n## [Unreleased]\n")
		uc := &YankUseCase{}
		_, err := uc.Execute(cl, "2.0.0")
		assert.True(t, errors.Is(err, domain.ErrVersionNotFound))
		_, err = uc.Execute(cl, "Unreleased")
		assert.True(t, errors.Is(err, domain.ErrVersionNotFound))
	})
}
