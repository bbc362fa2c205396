package repository

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/compozy/changelog/internal/domain"
	"github.com/gofrs/flock"
	"github.com/spf13/afero"
	"go.uber.org/zap"
)

const (
	// StateSchemaVersion is bumped whenever the session file layout changes.
	StateSchemaVersion   = "2"
	StateFilePermissions = 0o600
	StateDirPermissions  = 0o700
	DefaultStateDir      = ".changelog-state"
	LockTimeout          = 30 * time.Second
	LockRetryInterval    = 100 * time.Millisecond
)

var ErrSessionNotFound = errors.New("release session not found")

// StateRepository persists release sessions so a failed run can be rolled back
// by a later invocation.
type StateRepository interface {
	Save(ctx context.Context, session *domain.ReleaseSession) error
	Load(ctx context.Context, sessionID string) (*domain.ReleaseSession, error)
	LoadLatest(ctx context.Context) (*domain.ReleaseSession, error)
	List(ctx context.Context) ([]string, error)
	Delete(ctx context.Context, sessionID string) error
	Exists(ctx context.Context, sessionID string) (bool, error)
}

type sessionEnvelope struct {
	Schema   string                 `json:"schema"`
	Checksum string                 `json:"checksum"`
	SavedAt  time.Time              `json:"saved_at"`
	Session  *domain.ReleaseSession `json:"session"`
}

// JSONStateRepository stores one JSON file per session plus a pointer to the
// most recently saved one. Files are guarded by flock locks.
type JSONStateRepository struct {
	fs     afero.Fs
	dir    string
	logger *zap.Logger
	mu     sync.RWMutex
}

func NewJSONStateRepository(fs afero.Fs, stateDir string, logger *zap.Logger) *JSONStateRepository {
	if stateDir == "" {
		stateDir = DefaultStateDir
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &JSONStateRepository{fs: fs, dir: stateDir, logger: logger}
}

// Save writes the session atomically and marks it as the latest.
func (r *JSONStateRepository) Save(ctx context.Context, session *domain.ReleaseSession) error {
	if session == nil || session.SessionID == "" {
		return fmt.Errorf("session id is required")
	}
	if err := r.fs.MkdirAll(r.dir, StateDirPermissions); err != nil {
		return fmt.Errorf("failed to create state directory: %w", err)
	}
	payload, err := json.Marshal(session)
	if err != nil {
		return fmt.Errorf("failed to encode session: %w", err)
	}
	data, err := json.MarshalIndent(sessionEnvelope{
		Schema:   StateSchemaVersion,
		Checksum: checksum(payload),
		SavedAt:  time.Now().UTC(),
		Session:  session,
	}, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to encode state file: %w", err)
	}
	path := r.sessionPath(session.SessionID)
	err = r.withLock(ctx, session.SessionID, false, func() error {
		return r.writeAtomic(path, data)
	})
	if err != nil {
		return err
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	if err := r.writeAtomic(r.latestPath(), []byte(session.SessionID)); err != nil {
		return fmt.Errorf("failed to record latest session: %w", err)
	}
	r.logger.Debug("saved release session",
		zap.String("session_id", session.SessionID),
		zap.String("status", string(session.Status)))
	return nil
}

// Load reads a session and verifies its schema and checksum.
func (r *JSONStateRepository) Load(ctx context.Context, sessionID string) (*domain.ReleaseSession, error) {
	var data []byte
	err := r.withLock(ctx, sessionID, true, func() error {
		var err error
		data, err = afero.ReadFile(r.fs, r.sessionPath(sessionID))
		return err
	})
	if err != nil {
		if os.IsNotExist(err) {
			return nil, fmt.Errorf("%w: %s", ErrSessionNotFound, sessionID)
		}
		return nil, fmt.Errorf("failed to read session %s: %w", sessionID, err)
	}
	var env sessionEnvelope
	if err := json.Unmarshal(data, &env); err != nil {
		return nil, fmt.Errorf("failed to decode session %s: %w", sessionID, err)
	}
	if env.Schema != StateSchemaVersion {
		return nil, fmt.Errorf("session %s uses schema %q, expected %q", sessionID, env.Schema, StateSchemaVersion)
	}
	if env.Session == nil {
		return nil, fmt.Errorf("session %s is empty", sessionID)
	}
	payload, err := json.Marshal(env.Session)
	if err != nil {
		return nil, fmt.Errorf("failed to encode session %s: %w", sessionID, err)
	}
	if checksum(payload) != env.Checksum {
		return nil, fmt.Errorf("session %s failed checksum verification", sessionID)
	}
	return env.Session, nil
}

// LoadLatest loads the most recently saved session.
func (r *JSONStateRepository) LoadLatest(ctx context.Context) (*domain.ReleaseSession, error) {
	r.mu.RLock()
	data, err := afero.ReadFile(r.fs, r.latestPath())
	r.mu.RUnlock()
	if err != nil {
		if os.IsNotExist(err) {
			return nil, ErrSessionNotFound
		}
		return nil, fmt.Errorf("failed to read latest session pointer: %w", err)
	}
	id := strings.TrimSpace(string(data))
	if id == "" {
		return nil, ErrSessionNotFound
	}
	return r.Load(ctx, id)
}

// List returns the ids of all stored sessions, sorted.
func (r *JSONStateRepository) List(_ context.Context) ([]string, error) {
	infos, err := afero.ReadDir(r.fs, r.dir)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to list state directory: %w", err)
	}
	var ids []string
	for _, info := range infos {
		if id, ok := sessionIDFromFile(info.Name()); ok && !info.IsDir() {
			ids = append(ids, id)
		}
	}
	sort.Strings(ids)
	return ids, nil
}

// Delete removes a session file. Missing sessions are not an error.
func (r *JSONStateRepository) Delete(ctx context.Context, sessionID string) error {
	err := r.withLock(ctx, sessionID, false, func() error {
		if err := r.fs.Remove(r.sessionPath(sessionID)); err != nil && !os.IsNotExist(err) {
			return fmt.Errorf("failed to delete session %s: %w", sessionID, err)
		}
		return nil
	})
	if err != nil {
		return err
	}
	if err := r.fs.Remove(r.lockPath(sessionID)); err != nil && !os.IsNotExist(err) {
		r.logger.Warn("failed to remove lock file", zap.String("session_id", sessionID), zap.Error(err))
	}
	return nil
}

func (r *JSONStateRepository) Exists(_ context.Context, sessionID string) (bool, error) {
	_, err := r.fs.Stat(r.sessionPath(sessionID))
	switch {
	case err == nil:
		return true, nil
	case os.IsNotExist(err):
		return false, nil
	default:
		return false, fmt.Errorf("failed to stat session %s: %w", sessionID, err)
	}
}

// withLock runs fn while holding the session's lock file. Shared locks are
// used for reads.
func (r *JSONStateRepository) withLock(ctx context.Context, sessionID string, shared bool, fn func() error) error {
	if err := r.fs.MkdirAll(r.dir, StateDirPermissions); err != nil {
		return fmt.Errorf("failed to create state directory: %w", err)
	}
	lock := flock.New(r.lockPath(sessionID))
	lockCtx, cancel := context.WithTimeout(ctx, LockTimeout)
	defer cancel()
	var (
		locked bool
		err    error
	)
	if shared {
		locked, err = lock.TryRLockContext(lockCtx, LockRetryInterval)
	} else {
		locked, err = lock.TryLockContext(lockCtx, LockRetryInterval)
	}
	if err != nil {
		return fmt.Errorf("failed to lock session %s: %w", sessionID, err)
	}
	if !locked {
		return fmt.Errorf("timed out waiting for lock on session %s", sessionID)
	}
	defer func() {
		if err := lock.Unlock(); err != nil {
			r.logger.Warn("failed to release session lock", zap.String("session_id", sessionID), zap.Error(err))
		}
	}()
	return fn()
}

func (r *JSONStateRepository) writeAtomic(path string, data []byte) error {
	tmp := path + ".tmp"
	if err := afero.WriteFile(r.fs, tmp, data, StateFilePermissions); err != nil {
		return fmt.Errorf("failed to write %s: %w", tmp, err)
	}
	if err := r.fs.Rename(tmp, path); err != nil {
		if rmErr := r.fs.Remove(tmp); rmErr != nil {
			r.logger.Warn("failed to remove temp file", zap.String("path", tmp), zap.Error(rmErr))
		}
		return fmt.Errorf("failed to move %s into place: %w", path, err)
	}
	return nil
}

func (r *JSONStateRepository) sessionPath(id string) string {
	return filepath.Join(r.dir, "session-"+id+".json")
}

func (r *JSONStateRepository) lockPath(id string) string {
	return filepath.Join(r.dir, ".session-"+id+".lock")
}

func (r *JSONStateRepository) latestPath() string {
	return filepath.Join(r.dir, "latest")
}

func sessionIDFromFile(name string) (string, bool) {
	if !strings.HasPrefix(name, "session-") || !strings.HasSuffix(name, ".json") {
		return "", false
	}
	id := strings.TrimSuffix(strings.TrimPrefix(name, "session-"), ".json")
	return id, id != ""
}

func checksum(data []byte) string {
	sum := sha256.Sum256(data)
	return hex.EncodeToString(sum[:])
}
