package orchestrator

import (
	"context"
	"encoding/json"
	"sort"
	"sync"
	"testing"

	"github.com/compozy/changelog/internal/config"
	"github.com/compozy/changelog/internal/domain"
	"github.com/compozy/changelog/internal/parser"
	"github.com/compozy/changelog/internal/repository"
	"github.com/spf13/afero"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

// Mock for GitExtendedRepository
type mockGitExtendedRepository struct{ mock.Mock }

func (m *mockGitExtendedRepository) LatestTag(ctx context.Context) (string, error) {
	args := m.Called(ctx)
	return args.String(0), args.Error(1)
}

func (m *mockGitExtendedRepository) ListTags(ctx context.Context) ([]string, error) {
	args := m.Called(ctx)
	tags, _ := args.Get(0).([]string)
	return tags, args.Error(1)
}

func (m *mockGitExtendedRepository) CommitsSinceTag(ctx context.Context, tag string) (int, error) {
	args := m.Called(ctx, tag)
	return args.Int(0), args.Error(1)
}

func (m *mockGitExtendedRepository) CommitMessagesSince(ctx context.Context, tag string) ([]string, error) {
	args := m.Called(ctx, tag)
	messages, _ := args.Get(0).([]string)
	return messages, args.Error(1)
}

func (m *mockGitExtendedRepository) TagExists(ctx context.Context, tag string) (bool, error) {
	args := m.Called(ctx, tag)
	return args.Bool(0), args.Error(1)
}

func (m *mockGitExtendedRepository) CreateBranch(ctx context.Context, name string) error {
	return m.Called(ctx, name).Error(0)
}

func (m *mockGitExtendedRepository) CreateTag(ctx context.Context, tag, msg string) error {
	return m.Called(ctx, tag, msg).Error(0)
}

func (m *mockGitExtendedRepository) PushTag(ctx context.Context, tag string) error {
	return m.Called(ctx, tag).Error(0)
}

func (m *mockGitExtendedRepository) PushBranch(ctx context.Context, name string) error {
	return m.Called(ctx, name).Error(0)
}

func (m *mockGitExtendedRepository) CheckoutBranch(ctx context.Context, name string) error {
	return m.Called(ctx, name).Error(0)
}

func (m *mockGitExtendedRepository) ConfigureUser(ctx context.Context, name, email string) error {
	return m.Called(ctx, name, email).Error(0)
}

func (m *mockGitExtendedRepository) AddFiles(ctx context.Context, pattern string) error {
	return m.Called(ctx, pattern).Error(0)
}

func (m *mockGitExtendedRepository) Commit(ctx context.Context, message string) error {
	return m.Called(ctx, message).Error(0)
}

func (m *mockGitExtendedRepository) GetHeadCommit(ctx context.Context) (string, error) {
	args := m.Called(ctx)
	return args.String(0), args.Error(1)
}

func (m *mockGitExtendedRepository) GetCurrentBranch(ctx context.Context) (string, error) {
	args := m.Called(ctx)
	return args.String(0), args.Error(1)
}

func (m *mockGitExtendedRepository) PushBranchForce(ctx context.Context, branch string) error {
	return m.Called(ctx, branch).Error(0)
}

func (m *mockGitExtendedRepository) DeleteBranch(ctx context.Context, name string) error {
	return m.Called(ctx, name).Error(0)
}

func (m *mockGitExtendedRepository) DeleteRemoteBranch(ctx context.Context, name string) error {
	return m.Called(ctx, name).Error(0)
}

func (m *mockGitExtendedRepository) ListLocalBranches(ctx context.Context) ([]string, error) {
	args := m.Called(ctx)
	branches, _ := args.Get(0).([]string)
	return branches, args.Error(1)
}

func (m *mockGitExtendedRepository) ListRemoteBranches(ctx context.Context) ([]string, error) {
	args := m.Called(ctx)
	branches, _ := args.Get(0).([]string)
	return branches, args.Error(1)
}

func (m *mockGitExtendedRepository) DeleteTag(ctx context.Context, tag string) error {
	return m.Called(ctx, tag).Error(0)
}

func (m *mockGitExtendedRepository) DeleteRemoteTag(ctx context.Context, tag string) error {
	return m.Called(ctx, tag).Error(0)
}

func (m *mockGitExtendedRepository) RestoreFile(ctx context.Context, path string) error {
	return m.Called(ctx, path).Error(0)
}

func (m *mockGitExtendedRepository) ResetHard(ctx context.Context, ref string) error {
	return m.Called(ctx, ref).Error(0)
}

func (m *mockGitExtendedRepository) GetFileStatus(ctx context.Context, path string) (string, error) {
	args := m.Called(ctx, path)
	return args.String(0), args.Error(1)
}

// Mock for GithubExtendedRepository
type mockGithubExtendedRepository struct{ mock.Mock }

func (m *mockGithubExtendedRepository) CreatePullRequest(
	ctx context.Context,
	title, body, head, base string,
) (int, error) {
	args := m.Called(ctx, title, body, head, base)
	return args.Int(0), args.Error(1)
}

func (m *mockGithubExtendedRepository) CreateOrUpdatePR(
	ctx context.Context,
	head, base, title, body string,
	labels []string,
) (int, error) {
	args := m.Called(ctx, head, base, title, body, labels)
	return args.Int(0), args.Error(1)
}

func (m *mockGithubExtendedRepository) AddComment(ctx context.Context, prNumber int, body string) error {
	return m.Called(ctx, prNumber, body).Error(0)
}

func (m *mockGithubExtendedRepository) ListPRLabels(ctx context.Context, prNumber int) ([]string, error) {
	args := m.Called(ctx, prNumber)
	labels, _ := args.Get(0).([]string)
	return labels, args.Error(1)
}

func (m *mockGithubExtendedRepository) ClosePR(ctx context.Context, prNumber int) error {
	return m.Called(ctx, prNumber).Error(0)
}

func (m *mockGithubExtendedRepository) GetPRStatus(ctx context.Context, prNumber int) (string, error) {
	args := m.Called(ctx, prNumber)
	return args.String(0), args.Error(1)
}

func (m *mockGithubExtendedRepository) CreateOrUpdateRelease(
	ctx context.Context,
	tag, name, body string,
	prerelease bool,
) (int64, error) {
	args := m.Called(ctx, tag, name, body, prerelease)
	id, _ := args.Get(0).(int64)
	return id, args.Error(1)
}

func (m *mockGithubExtendedRepository) DeleteRelease(ctx context.Context, releaseID int64) error {
	return m.Called(ctx, releaseID).Error(0)
}

// memoryStateRepository keeps sessions as JSON so loads see what a file
// round trip would produce.
type memoryStateRepository struct {
	mu       sync.Mutex
	sessions map[string][]byte
	latest   string
	saves    int
}

func newMemoryStateRepository() *memoryStateRepository {
	return &memoryStateRepository{sessions: make(map[string][]byte)}
}

func (r *memoryStateRepository) Save(_ context.Context, session *domain.ReleaseSession) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	data, err := json.Marshal(session)
	if err != nil {
		return err
	}
	r.sessions[session.SessionID] = data
	r.latest = session.SessionID
	r.saves++
	return nil
}

func (r *memoryStateRepository) Load(_ context.Context, sessionID string) (*domain.ReleaseSession, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	data, ok := r.sessions[sessionID]
	if !ok {
		return nil, repository.ErrSessionNotFound
	}
	var session domain.ReleaseSession
	if err := json.Unmarshal(data, &session); err != nil {
		return nil, err
	}
	return &session, nil
}

func (r *memoryStateRepository) LoadLatest(ctx context.Context) (*domain.ReleaseSession, error) {
	r.mu.Lock()
	latest := r.latest
	r.mu.Unlock()
	if latest == "" {
		return nil, repository.ErrSessionNotFound
	}
	return r.Load(ctx, latest)
}

func (r *memoryStateRepository) List(_ context.Context) ([]string, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	ids := make([]string, 0, len(r.sessions))
	for id := range r.sessions {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids, nil
}

func (r *memoryStateRepository) Delete(_ context.Context, sessionID string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.sessions, sessionID)
	if r.latest == sessionID {
		r.latest = ""
	}
	return nil
}

func (r *memoryStateRepository) Exists(_ context.Context, sessionID string) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	_, ok := r.sessions[sessionID]
	return ok, nil
}

const testChangelog = `# Changelog

## [Unreleased]

### Added

- Export command

### Fixed

- Crash on empty file

## [1.1.0] - 2024-03-01

### Added

- Lint command
`

type testEnv struct {
	fs         afero.Fs
	changelogs repository.ChangelogRepository
	settings   *config.Config
}

func newTestEnv(t *testing.T, content string) *testEnv {
	t.Helper()
	fs := afero.NewMemMapFs()
	settings := config.DefaultConfig()
	settings.CompareURL = "https://github.com/acme/app/compare/{previous}...{current}"
	require.NoError(t, afero.WriteFile(fs, settings.File, []byte(content), 0o644))
	return &testEnv{
		fs:         fs,
		changelogs: repository.NewChangelogRepository(fs, parser.Options{UnreleasedLabels: settings.UnreleasedLabels}),
		settings:   settings,
	}
}

func (e *testEnv) read(t *testing.T) string {
	t.Helper()
	data, err := afero.ReadFile(e.fs, e.settings.File)
	require.NoError(t, err)
	return string(data)
}
