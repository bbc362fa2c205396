package usecase

import (
	"context"
	"errors"
	"testing"

	"github.com/compozy/changelog/internal/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseCommitMessage(t *testing.T) {
	cases := []struct {
		name     string
		message  string
		ok       bool
		category domain.Category
		text     string
	}{
		{name: "Should map features to Added", message: "feat: support tori", ok: true, category: domain.CategoryAdded, text: "support tori"},
		{name: "Should prefix the scope", message: "fix(parser): handle CRLF", ok: true, category: domain.CategoryFixed, text: "parser: handle CRLF"},
		{name: "Should map refactors to Changed", message: "refactor: split module", ok: true, category: domain.CategoryChanged, text: "split module"},
		{name: "Should map reverts to Removed", message: "revert: drop cache", ok: true, category: domain.CategoryRemoved, text: "drop cache"},
		{name: "Should map security fixes", message: "sec: bump crypto", ok: true, category: domain.CategorySecurity, text: "bump crypto"},
		{
			name:     "Should flag breaking changes",
			message:  "feat(api)!: rename Shape",
			ok:       true,
			category: domain.CategoryChanged,
			text:     "**BREAKING** api: rename Shape",
		},
		{
			name:     "Should detect breaking footers",
			message:  "chore: bump deps\n\nBREAKING CHANGE: requires Go 1.25",
			ok:       true,
			category: domain.CategoryChanged,
			text:     "**BREAKING** bump deps",
		},
		{name: "Should ignore chores", message: "chore: tidy", ok: false},
		{name: "Should ignore free form messages", message: "Merge branch 'main'", ok: false},
	}
	for _, tc := range cases {
		tc := tc
		t.Run(tc.name, func(t *testing.T) {
			entry, ok := ParseCommitMessage(tc.message)
			assert.Equal(t, tc.ok, ok)
			if tc.ok {
				assert.Equal(t, tc.category, entry.Category)
				assert.Equal(t, tc.text, entry.Text)
			}
		})
	}
}

func TestDraftFromCommitsUseCase_Execute(t *testing.T) {
	ctx := context.Background()

	t.Run("Should add entries oldest first and skip duplicates", func(t *testing.T) {
		gitRepo := new(mockGitRepository)
		gitRepo.On("LatestTag", ctx).Return("v0.1.0", nil)
		gitRepo.On("CommitMessagesSince", ctx, "v0.1.0").Return([]string{
			"fix: handle NaN",
			"docs: readme",
			"feat: support tori",
			"feat: support spheres",
			"feat: support tori",
		}, nil)
		cl := mustParse(t, "# Changelog\n\n## next\n\n### Added\n\n- Support spheres\n\n## v0.1.0\n\n### Added\n\n- Initial release.\n")
		uc := &DraftFromCommitsUseCase{GitRepo: gitRepo, AddEntry: &AddEntryUseCase{UnreleasedLabel: "next"}}
		result, err := uc.Execute(ctx, cl)
		require.NoError(t, err)
		assert.Equal(t, "v0.1.0", result.Since)
		assert.Equal(t, []DraftedEntry{
			{Category: domain.CategoryAdded, Text: "support tori"},
			{Category: domain.CategoryFixed, Text: "handle NaN"},
		}, result.Entries)
		assert.Equal(t, 3, result.Skipped)
		r := cl.Unreleased()
		require.Len(t, r.Sections, 2)
		assert.Equal(t, []domain.Entry{{Text: "Support spheres", Line: 7}, {Text: "support tori"}}, r.Sections[0].Entries)
		gitRepo.AssertExpectations(t)
	})
	t.Run("Should handle error when reading commits", func(t *testing.T) {
		gitRepo := new(mockGitRepository)
		gitRepo.On("LatestTag", ctx).Return("", nil)
		gitRepo.On("CommitMessagesSince", ctx, "").Return(nil, errors.New("walk failed"))
		uc := &DraftFromCommitsUseCase{GitRepo: gitRepo, AddEntry: &AddEntryUseCase{}}
		_, err := uc.Execute(ctx, domain.New())
		assert.ErrorContains(t, err, "failed to read commits")
		gitRepo.AssertExpectations(t)
	})
}
