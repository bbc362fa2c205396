package repository

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/compozy/changelog/internal/domain"
	"github.com/compozy/changelog/internal/parser"
	"github.com/spf13/afero"
)

var ErrChangelogNotFound = errors.New("changelog file not found")

// ChangelogRepository loads and stores changelog files.
type ChangelogRepository interface {
	Load(ctx context.Context, path string) (*domain.Changelog, error)
	Save(ctx context.Context, path string, cl *domain.Changelog) error
	Exists(ctx context.Context, path string) (bool, error)
	ReadRaw(ctx context.Context, path string) ([]byte, error)
	WriteRaw(ctx context.Context, path string, data []byte) error
}

type changelogRepository struct {
	fs   afero.Fs
	opts parser.Options
}

func NewChangelogRepository(fs afero.Fs, opts parser.Options) ChangelogRepository {
	return &changelogRepository{fs: fs, opts: opts}
}

func (r *changelogRepository) Load(ctx context.Context, path string) (*domain.Changelog, error) {
	data, err := r.ReadRaw(ctx, path)
	if err != nil {
		return nil, err
	}
	cl, err := parser.Parse(bytes.NewReader(data), r.opts)
	if err != nil {
		return nil, fmt.Errorf("failed to parse %s: %w", path, err)
	}
	return cl, nil
}

func (r *changelogRepository) Save(ctx context.Context, path string, cl *domain.Changelog) error {
	return r.WriteRaw(ctx, path, []byte(parser.RenderString(cl)))
}

func (r *changelogRepository) Exists(_ context.Context, path string) (bool, error) {
	ok, err := afero.Exists(r.fs, path)
	if err != nil {
		return false, fmt.Errorf("failed to stat %s: %w", path, err)
	}
	return ok, nil
}

func (r *changelogRepository) ReadRaw(_ context.Context, path string) ([]byte, error) {
	data, err := afero.ReadFile(r.fs, path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, fmt.Errorf("%w: %s", ErrChangelogNotFound, path)
		}
		return nil, fmt.Errorf("failed to read %s: %w", path, err)
	}
	return data, nil
}

// WriteRaw replaces the file through a sibling temp file and a rename.
func (r *changelogRepository) WriteRaw(_ context.Context, path string, data []byte) error {
	if dir := filepath.Dir(path); dir != "." {
		if err := r.fs.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("failed to create %s: %w", dir, err)
		}
	}
	perm := os.FileMode(0o644)
	if info, err := r.fs.Stat(path); err == nil {
		perm = info.Mode().Perm()
	}
	tmp := filepath.Join(filepath.Dir(path), "."+filepath.Base(path)+".tmp")
	if err := afero.WriteFile(r.fs, tmp, data, perm); err != nil {
		return fmt.Errorf("failed to write %s: %w", tmp, err)
	}
	if err := r.fs.Rename(tmp, path); err != nil {
		_ = r.fs.Remove(tmp)
		return fmt.Errorf("failed to replace %s: %w", path, err)
	}
	return nil
}
