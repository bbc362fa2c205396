package domain

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestVersion_String(t *testing.T) {
	t.Run("Should keep prerelease and build metadata", func(t *testing.T) {
		for input, want := range map[string]string{
			"1.2.3":          "v1.2.3",
			"v1.2.3":         "v1.2.3",
			"1.2.3-alpha":    "v1.2.3-alpha",
			"1.2.3+build123": "v1.2.3+build123",
		} {
			assert.Equal(t, want, mustVersion(t, input).String(), input)
		}
	})
	t.Run("Should reject release placeholders", func(t *testing.T) {
		for _, label := range []string{"next", "Unreleased"} {
			v, err := NewStrictVersion(label)
			assert.Error(t, err, label)
			assert.Nil(t, v)
		}
	})
}

func TestVersion_Increments(t *testing.T) {
	t.Run("Should reset lower components", func(t *testing.T) {
		v := mustVersion(t, "1.5.8")
		assert.Equal(t, "2.0.0", v.BumpMajor().Bare())
		assert.Equal(t, "1.6.0", v.BumpMinor().Bare())
		assert.Equal(t, "1.5.9", v.BumpPatch().Bare())
		assert.Equal(t, "1.5.8", v.Bare())
	})
}

func TestVersion_Compare(t *testing.T) {
	t.Run("Should order by precedence", func(t *testing.T) {
		low, high := mustVersion(t, "1.2.3"), mustVersion(t, "1.10.0")
		assert.Equal(t, -1, low.Compare(high))
		assert.Equal(t, 1, high.Compare(low))
		assert.Equal(t, 0, low.Compare(mustVersion(t, "v1.2.3")))
	})
	t.Run("Should rank prereleases below the release", func(t *testing.T) {
		assert.Equal(t, -1, mustVersion(t, "2.0.0-rc.1").Compare(mustVersion(t, "2.0.0")))
	})
}

func TestNewStrictVersion(t *testing.T) {
	t.Run("Should accept full versions with or without prefix", func(t *testing.T) {
		v, err := NewStrictVersion("v0.1.0")
		require.NoError(t, err)
		assert.Equal(t, "0.1.0", v.Bare())
		v, err = NewStrictVersion("2.3.4-rc.1")
		require.NoError(t, err)
		assert.Equal(t, "v2.3.4-rc.1", v.String())
	})
	t.Run("Should reject partial versions and placeholders", func(t *testing.T) {
		for _, label := range []string{"1.2", "next", "Unreleased", ""} {
			_, err := NewStrictVersion(label)
			assert.Error(t, err, label)
		}
	})
}

func TestVersion_Bump(t *testing.T) {
	t.Run("Should treat major bumps as minor before 1.0.0", func(t *testing.T) {
		v := mustVersion(t, "0.4.2")
		next, err := v.Bump(BumpMajor)
		require.NoError(t, err)
		assert.Equal(t, "v0.5.0", next.String())
	})
	t.Run("Should bump major after 1.0.0", func(t *testing.T) {
		v := mustVersion(t, "1.4.2")
		next, err := v.Bump(BumpMajor)
		require.NoError(t, err)
		assert.Equal(t, "v2.0.0", next.String())
	})
	t.Run("Should reject auto as a concrete bump", func(t *testing.T) {
		v := mustVersion(t, "1.0.0")
		_, err := v.Bump(BumpAuto)
		assert.Error(t, err)
	})
}

func TestParseBumpKind(t *testing.T) {
	t.Run("Should default empty input to auto", func(t *testing.T) {
		kind, err := ParseBumpKind("")
		require.NoError(t, err)
		assert.Equal(t, BumpAuto, kind)
	})
	t.Run("Should normalize case", func(t *testing.T) {
		kind, err := ParseBumpKind("Minor")
		require.NoError(t, err)
		assert.Equal(t, BumpMinor, kind)
	})
	t.Run("Should reject unknown kinds", func(t *testing.T) {
		_, err := ParseBumpKind("huge")
		assert.Error(t, err)
	})
}
