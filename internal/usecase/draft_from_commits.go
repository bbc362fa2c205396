package usecase

import (
	"context"
	"fmt"
	"regexp"
	"strings"

	"github.com/compozy/changelog/internal/domain"
	"github.com/compozy/changelog/internal/repository"
)

var conventionalCommitRegex = regexp.MustCompile(`^(\w+)(?:\(([^)]*)\))?(!)?:\s*(.+)$`)

// commitCategories maps Conventional Commit types to changelog categories.
// Types not listed are not user facing.
var commitCategories = map[string]domain.Category{
	"feat":      domain.CategoryAdded,
	"fix":       domain.CategoryFixed,
	"perf":      domain.CategoryChanged,
	"refactor":  domain.CategoryChanged,
	"revert":    domain.CategoryRemoved,
	"remove":    domain.CategoryRemoved,
	"deprecate": domain.CategoryDeprecated,
	"security":  domain.CategorySecurity,
	"sec":       domain.CategorySecurity,
}

// DraftedEntry is an entry proposed from a commit.
type DraftedEntry struct {
	Category domain.Category
	Text     string
}

// DraftResult lists what a draft added and how many commits it passed over.
type DraftResult struct {
	Since   string
	Entries []DraftedEntry
	Skipped int
}

// DraftFromCommitsUseCase proposes unreleased entries from the commits made
// since the latest version tag.
type DraftFromCommitsUseCase struct {
	GitRepo  repository.GitRepository
	AddEntry *AddEntryUseCase
}

// Execute appends one entry per relevant commit, oldest first. Entries that
// already exist in the unreleased release are skipped.
func (uc *DraftFromCommitsUseCase) Execute(ctx context.Context, cl *domain.Changelog) (*DraftResult, error) {
	tag, err := uc.GitRepo.LatestTag(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to get latest tag: %w", err)
	}
	messages, err := uc.GitRepo.CommitMessagesSince(ctx, tag)
	if err != nil {
		return nil, fmt.Errorf("failed to read commits since %q: %w", tag, err)
	}
	result := &DraftResult{Since: tag}
	seen := make(map[string]bool)
	for i := len(messages) - 1; i >= 0; i-- {
		entry, ok := ParseCommitMessage(messages[i])
		if !ok {
			result.Skipped++
			continue
		}
		key := strings.ToLower(entry.Text)
		if seen[key] {
			result.Skipped++
			continue
		}
		seen[key] = true
		if r := cl.Unreleased(); r != nil && r.HasEntry(entry.Text) {
			result.Skipped++
			continue
		}
		if _, err := uc.AddEntry.Execute(cl, string(entry.Category), entry.Text); err != nil {
			return nil, fmt.Errorf("failed to add entry %q: %w", entry.Text, err)
		}
		result.Entries = append(result.Entries, entry)
	}
	return result, nil
}

// ParseCommitMessage maps a Conventional Commit message to an entry. ok is
// false for messages that are not conventional or not user facing.
func ParseCommitMessage(message string) (DraftedEntry, bool) {
	subject, body, _ := strings.Cut(strings.TrimSpace(message), "\n")
	m := conventionalCommitRegex.FindStringSubmatch(strings.TrimSpace(subject))
	if m == nil {
		return DraftedEntry{}, false
	}
	kind, scope, bang, desc := strings.ToLower(m[1]), strings.TrimSpace(m[2]), m[3] != "", strings.TrimSpace(m[4])
	breaking := bang || hasBreakingFooter(body)
	category, ok := commitCategories[kind]
	if !ok && !breaking {
		return DraftedEntry{}, false
	}
	if breaking {
		category = domain.CategoryChanged
	}
	text := desc
	if scope != "" {
		text = scope + ": " + desc
	}
	if breaking {
		text = BreakingMarker + " " + text
	}
	return DraftedEntry{Category: category, Text: text}, true
}

func hasBreakingFooter(body string) bool {
	for _, line := range strings.Split(body, "\n") {
		line = strings.TrimSpace(line)
		if strings.HasPrefix(line, "BREAKING CHANGE:") || strings.HasPrefix(line, "BREAKING-CHANGE:") {
			return true
		}
	}
	return false
}
