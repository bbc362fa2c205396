package parser

import (
	"strings"
	"testing"

	"github.com/compozy/changelog/internal/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const shapesChangelog = `# Changelog
The format is based on Keep a Changelog.

## next

### Added
- Shape definitions from the Damasceno 2012 paper.
- Quaternion tooling for rotating shapes
  around arbitrary axes.

### Fixed
- Vertex ordering in FreudShape polygons.

## v0.1.0

### Added
- Initial release.
`

func TestParse(t *testing.T) {
	t.Run("Should parse releases, categories and entries", func(t *testing.T) {
		cl, err := ParseString(shapesChangelog, Options{})
		require.NoError(t, err)
		assert.Equal(t, "Changelog", cl.Title)
		assert.Equal(t, []string{"The format is based on Keep a Changelog."}, cl.Preamble)
		require.Len(t, cl.Releases, 2)

		next := cl.Releases[0]
		assert.True(t, next.Unreleased)
		assert.Nil(t, next.Version)
		assert.Equal(t, 4, next.Line)
		require.Len(t, next.Sections, 2)
		assert.Equal(t, domain.CategoryAdded, next.Sections[0].Category)
		require.Len(t, next.Sections[0].Entries, 2)
		assert.Equal(t, "Quaternion tooling for rotating shapes\naround arbitrary axes.", next.Sections[0].Entries[1].Text)
		assert.Equal(t, 8, next.Sections[0].Entries[1].Line)
		assert.Equal(t, domain.CategoryFixed, next.Sections[1].Category)

		first := cl.Releases[1]
		assert.False(t, first.Unreleased)
		require.NotNil(t, first.Version)
		assert.Equal(t, "0.1.0", first.Version.Bare())
		assert.False(t, first.Bracketed)
		assert.Empty(t, first.Date)
	})

	t.Run("Should parse bracketed headers with dates, yanked marker and links", func(t *testing.T) {
		input := `# Changelog

## [Unreleased]

## [1.1.0] - 2024-03-01 [YANKED]

### changed

- Reworked the API.

## [1.0.0] - 2024-01-15

### Removed

* Dropped the legacy loader.

[unreleased]: https://example.com/compare/v1.1.0...HEAD
[1.1.0]: https://example.com/compare/v1.0.0...v1.1.0
`
		cl, err := ParseString(input, Options{})
		require.NoError(t, err)
		require.Len(t, cl.Releases, 3)
		assert.True(t, cl.Releases[0].Unreleased)
		assert.True(t, cl.Releases[0].Bracketed)

		yanked := cl.Releases[1]
		assert.Equal(t, "1.1.0", yanked.Label)
		assert.Equal(t, "2024-03-01", yanked.Date)
		assert.True(t, yanked.Yanked)
		assert.Equal(t, domain.CategoryChanged, yanked.Sections[0].Category)

		assert.Equal(t, "Dropped the legacy loader.", cl.Releases[2].Sections[0].Entries[0].Text)
		require.Len(t, cl.Links, 2)
		assert.Equal(t, "unreleased", cl.Links[0].Label)
		assert.Equal(t, "https://example.com/compare/v1.0.0...v1.1.0", cl.Links[1].URL)
	})

	t.Run("Should keep misplaced content for the linter", func(t *testing.T) {
		input := `# Changelog
- stray entry

## 1.0.0
- loose entry

### Improvements
- tuned things
-
`
		cl, err := ParseString(input, Options{})
		require.NoError(t, err)
		require.Len(t, cl.Stray, 1)
		assert.Equal(t, 2, cl.Stray[0].Line)
		release := cl.Releases[0]
		require.Len(t, release.Loose, 1)
		assert.Equal(t, "loose entry", release.Loose[0].Text)
		assert.Equal(t, domain.Category("Improvements"), release.Sections[0].Category)
		require.Len(t, release.Sections[0].Entries, 2)
		assert.Equal(t, "", release.Sections[0].Entries[1].Text)
	})

	t.Run("Should honor custom unreleased labels", func(t *testing.T) {
		cl, err := ParseString("# Changelog\n\n## Upcoming\n", Options{UnreleasedLabels: []string{"upcoming"}})
		require.NoError(t, err)
		assert.True(t, cl.Releases[0].Unreleased)
	})

	t.Run("Should keep unparseable headers as invalid labels", func(t *testing.T) {
		cl, err := ParseString("# Changelog\n\n## Version 2 (beta)\n", Options{})
		require.NoError(t, err)
		assert.Equal(t, "Version 2 (beta)", cl.Releases[0].Label)
		assert.Nil(t, cl.Releases[0].Version)
		assert.False(t, cl.Releases[0].Unreleased)
	})

	t.Run("Should not mistake emphasis or rules for entries", func(t *testing.T) {
		cl, err := ParseString("# Changelog\n\n## 1.0.0\n**Highlights** below\n\n---\n", Options{})
		require.NoError(t, err)
		assert.Equal(t, []string{"**Highlights** below", "", "---"}, cl.Releases[0].Notes)
		assert.Empty(t, cl.Releases[0].Loose)
	})

	t.Run("Should attach text after entries to their section", func(t *testing.T) {
		cl, err := ParseString("# Changelog\n\n## 1.0.0\nIntro.\n\n### Added\n- Feature.\n\n**Full Changelog**: https://example.com/compare/v0.9.0...v1.0.0\n", Options{})
		require.NoError(t, err)
		release := cl.Releases[0]
		assert.Equal(t, []string{"Intro."}, release.Notes)
		require.Len(t, release.Sections, 1)
		assert.Equal(t, []string{"**Full Changelog**: https://example.com/compare/v0.9.0...v1.0.0"}, release.Sections[0].Trailer)
	})

	t.Run("Should parse lines longer than any buffer", func(t *testing.T) {
		long := strings.Repeat("x", 2*1024*1024)
		cl, err := ParseString("# Changelog\n\n## 1.0.0\n\n### Added\n\n- "+long, Options{})
		require.NoError(t, err)
		require.Len(t, cl.Releases[0].Sections[0].Entries, 1)
		assert.Len(t, cl.Releases[0].Sections[0].Entries[0].Text, len(long))
	})
}

func TestRender(t *testing.T) {
	t.Run("Should render canonical markdown", func(t *testing.T) {
		cl, err := ParseString(shapesChangelog, Options{})
		require.NoError(t, err)
		expected := `# Changelog

The format is based on Keep a Changelog.

## next

### Added

- Shape definitions from the Damasceno 2012 paper.
- Quaternion tooling for rotating shapes
  around arbitrary axes.

### Fixed

- Vertex ordering in FreudShape polygons.

## v0.1.0

### Added

- Initial release.
`
		assert.Equal(t, expected, RenderString(cl))
	})

	t.Run("Should be stable across a second pass", func(t *testing.T) {
		cl, err := ParseString(shapesChangelog, Options{})
		require.NoError(t, err)
		once := RenderString(cl)
		again, err := ParseString(once, Options{})
		require.NoError(t, err)
		assert.Equal(t, once, RenderString(again))
	})

	t.Run("Should keep trailing release text in place", func(t *testing.T) {
		input := `# Changelog

## [1.0.0] - 2024-01-01

### Added

- Feature.

**Full Changelog**: https://example.com/compare/v0.9.0...v1.0.0
`
		cl, err := ParseString(input, Options{})
		require.NoError(t, err)
		assert.Equal(t, input, RenderString(cl))
	})

	t.Run("Should render headers, notes and links", func(t *testing.T) {
		cl := &domain.Changelog{
			Title: "Changelog",
			Releases: []*domain.Release{
				{Label: "1.0.0", Bracketed: true, Date: "2024-01-15", Notes: []string{"First stable."}},
			},
			Links: []domain.Link{{Label: "1.0.0", URL: "https://example.com/v1.0.0"}},
		}
		out := RenderString(cl)
		assert.Equal(t, "# Changelog\n\n## [1.0.0] - 2024-01-15\n\nFirst stable.\n\n[1.0.0]: https://example.com/v1.0.0\n", out)
	})
}

func TestReleaseNotes(t *testing.T) {
	t.Run("Should render release body without header", func(t *testing.T) {
		cl, err := ParseString(shapesChangelog, Options{})
		require.NoError(t, err)
		notes := ReleaseNotes(cl.Releases[1])
		assert.Equal(t, "### Added\n\n- Initial release.", notes)
		assert.False(t, strings.HasPrefix(notes, "## "))
	})
}
