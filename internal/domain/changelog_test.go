package domain

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func mustVersion(t *testing.T, s string) *Version {
	t.Helper()
	v, err := NewStrictVersion(s)
	require.NoError(t, err)
	return v
}

func TestParseCategory(t *testing.T) {
	t.Run("Should normalize known categories regardless of case", func(t *testing.T) {
		for _, in := range []string{"added", "ADDED", " Added "} {
			c, ok := ParseCategory(in)
			assert.True(t, ok, in)
			assert.Equal(t, CategoryAdded, c)
		}
	})
	t.Run("Should keep unknown categories verbatim", func(t *testing.T) {
		c, ok := ParseCategory("Improvements")
		assert.False(t, ok)
		assert.Equal(t, Category("Improvements"), c)
		assert.Equal(t, -1, c.Rank())
	})
}

func TestRelease_EnsureSection(t *testing.T) {
	t.Run("Should insert sections in canonical order", func(t *testing.T) {
		r := NewUnreleased("next")
		r.EnsureSection(CategoryFixed)
		r.EnsureSection(CategoryAdded)
		r.EnsureSection(CategoryRemoved)
		var got []Category
		for _, s := range r.Sections {
			got = append(got, s.Category)
		}
		assert.Equal(t, []Category{CategoryAdded, CategoryRemoved, CategoryFixed}, got)
	})
	t.Run("Should return the existing section", func(t *testing.T) {
		r := NewUnreleased("next")
		first := r.EnsureSection(CategoryChanged)
		first.Entries = append(first.Entries, Entry{Text: "x"})
		assert.Same(t, first, r.EnsureSection(CategoryChanged))
		assert.Equal(t, 1, r.EntryCount())
	})
}

func TestRelease_Heading(t *testing.T) {
	t.Run("Should render bracketed label with date and yanked marker", func(t *testing.T) {
		r := &Release{Label: "1.0.0", Bracketed: true, Date: "2024-01-02", Yanked: true}
		assert.Equal(t, "[1.0.0] - 2024-01-02 [YANKED]", r.Heading())
	})
	t.Run("Should render bare label", func(t *testing.T) {
		r := &Release{Label: "v0.1.0"}
		assert.Equal(t, "v0.1.0", r.Heading())
	})
}

func TestChangelog_Queries(t *testing.T) {
	cl := &Changelog{
		Title: DefaultTitle,
		Releases: []*Release{
			{Label: "next", Unreleased: true},
			{Label: "v0.2.0", Version: mustVersion(t, "v0.2.0")},
			{Label: "v0.1.0", Version: mustVersion(t, "v0.1.0")},
		},
	}
	t.Run("Should find unreleased", func(t *testing.T) {
		require.NotNil(t, cl.Unreleased())
		assert.Equal(t, "next", cl.Unreleased().Label)
	})
	t.Run("Should find releases by label or version", func(t *testing.T) {
		assert.Equal(t, "v0.2.0", cl.Find("0.2.0").Label)
		assert.Equal(t, "v0.1.0", cl.Find("v0.1.0").Label)
		assert.Equal(t, "next", cl.Find("NEXT").Label)
		assert.Nil(t, cl.Find("9.9.9"))
	})
	t.Run("Should report the latest version and prefix style", func(t *testing.T) {
		assert.Equal(t, "v0.2.0", cl.LatestVersion().String())
		assert.True(t, cl.UsesPrefix())
		assert.Len(t, cl.Released(), 2)
	})
	t.Run("Should insert unreleased at the top when missing", func(t *testing.T) {
		other := &Changelog{Releases: []*Release{{Label: "1.0.0", Version: mustVersion(t, "1.0.0")}}}
		r := other.EnsureUnreleased("Unreleased")
		assert.Same(t, r, other.Releases[0])
		assert.False(t, other.UsesPrefix())
	})
	t.Run("Should replace existing links", func(t *testing.T) {
		c := New()
		c.SetLink("unreleased", "a")
		c.SetLink("Unreleased", "b")
		require.Len(t, c.Links, 1)
		assert.Equal(t, "b", c.Links[0].URL)
	})
}

func TestReport(t *testing.T) {
	t.Run("Should fail only on errors unless strict", func(t *testing.T) {
		r := &Report{}
		r.Add("missing-date", SeverityWarning, 4, "release %s has no date", "v1.0.0")
		assert.False(t, r.Failed(false))
		assert.True(t, r.Failed(true))
		r.Add("invalid-version", SeverityError, 2, "bad")
		r.Sort()
		assert.True(t, r.HasErrors())
		assert.Equal(t, 2, r.Issues[0].Line)
		assert.Equal(t, "4: warning: release v1.0.0 has no date (missing-date)", r.Issues[1].String())
	})
}

func TestReleaseSession(t *testing.T) {
	t.Run("Should track operation lifecycle", func(t *testing.T) {
		s := NewReleaseSession("abc", "CHANGELOG.md")
		s.AddOperation(OperationTypeUpdateChangelog)
		s.AddOperation(OperationTypeCreateTag)
		s.Start(OperationTypeUpdateChangelog)
		s.Complete(OperationTypeUpdateChangelog, map[string]any{"file": "CHANGELOG.md"})
		s.Start(OperationTypeCreateTag)
		s.Fail(OperationTypeCreateTag, errors.New("boom"))
		assert.Equal(t, WorkflowStatusFailed, s.Status)
		assert.Equal(t, "boom", s.Error)
		completed := s.Completed()
		require.Len(t, completed, 1)
		assert.Equal(t, OperationTypeUpdateChangelog, completed[0].Type)
		assert.Equal(t, OperationStatusFailed, s.Last().Status)
		s.MarkRolledBack(OperationTypeUpdateChangelog)
		assert.Empty(t, s.Completed())
	})
}
