package service

import (
	"context"
	"fmt"
	"path/filepath"
	"time"

	"github.com/fsnotify/fsnotify"
	"go.uber.org/zap"
)

// FileWatcher reports debounced changes of a single file.
type FileWatcher struct {
	debounce time.Duration
	logger   *zap.Logger
}

func NewFileWatcher(debounce time.Duration, logger *zap.Logger) *FileWatcher {
	if debounce <= 0 {
		debounce = DefaultWatchDebounce
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &FileWatcher{debounce: debounce, logger: logger}
}

// Start watches path until ctx is done. The returned channel receives one
// value per burst of writes and is closed when watching stops. The parent
// directory is watched so replacements through rename are still seen.
func (w *FileWatcher) Start(ctx context.Context, path string) (<-chan struct{}, error) {
	abs, err := filepath.Abs(path)
	if err != nil {
		return nil, fmt.Errorf("resolve %s: %w", path, err)
	}
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("create watcher: %w", err)
	}
	if err := watcher.Add(filepath.Dir(abs)); err != nil {
		_ = watcher.Close()
		return nil, fmt.Errorf("watch %s: %w", filepath.Dir(abs), err)
	}
	w.logger.Debug("watching file", zap.String("path", abs))
	changes := make(chan struct{}, 1)
	go w.loop(ctx, watcher, abs, changes)
	return changes, nil
}

func (w *FileWatcher) loop(ctx context.Context, watcher *fsnotify.Watcher, target string, changes chan<- struct{}) {
	defer close(changes)
	defer watcher.Close()
	timer := time.NewTimer(w.debounce)
	timer.Stop()
	for {
		select {
		case <-ctx.Done():
			timer.Stop()
			w.logger.Debug("file watcher stopped", zap.String("path", target))
			return
		case event, ok := <-watcher.Events:
			if !ok {
				return
			}
			if filepath.Clean(event.Name) != target {
				continue
			}
			if event.Has(fsnotify.Write) || event.Has(fsnotify.Create) || event.Has(fsnotify.Rename) {
				w.logger.Debug("file changed", zap.String("op", event.Op.String()))
				timer.Reset(w.debounce)
			}
		case <-timer.C:
			select {
			case changes <- struct{}{}:
			default:
				// A change is already pending for the consumer.
			}
		case err, ok := <-watcher.Errors:
			if !ok {
				return
			}
			w.logger.Error("file watcher error", zap.Error(err))
		}
	}
}
