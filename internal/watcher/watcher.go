// Package watcher reports changes to individual files with debouncing.
package watcher

import (
	"context"
	"fmt"
	"path/filepath"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
	"go.uber.org/zap"
)

// DefaultDebounce waits out editors that save in several steps
const DefaultDebounce = 300 * time.Millisecond

// Watcher calls back once per burst of changes to a file
type Watcher struct {
	logger   *zap.Logger
	debounce time.Duration
	wg       sync.WaitGroup
}

// New creates a watcher with the default debounce
func New(logger *zap.Logger) *Watcher {
	return &Watcher{logger: logger, debounce: DefaultDebounce}
}

// WithDebounce returns a copy of the watcher using d as the quiet period
func (w *Watcher) WithDebounce(d time.Duration) *Watcher {
	return &Watcher{logger: w.logger, debounce: d}
}

// Watch starts watching path until ctx is cancelled. The parent directory is
// watched so files replaced by rename (as most editors save) keep reporting.
// It returns once the watch is registered.
func (w *Watcher) Watch(ctx context.Context, path string, onChange func()) error {
	target, err := filepath.Abs(path)
	if err != nil {
		return fmt.Errorf("failed to resolve %s: %w", path, err)
	}

	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("failed to create watcher: %w", err)
	}
	if err := fsw.Add(filepath.Dir(target)); err != nil {
		_ = fsw.Close()
		return fmt.Errorf("failed to watch %s: %w", filepath.Dir(target), err)
	}

	w.logger.Info("Watching file", zap.String("path", target))

	w.wg.Add(1)
	go w.run(ctx, fsw, target, onChange)
	return nil
}

// Wait blocks until every watch loop has exited
func (w *Watcher) Wait() {
	w.wg.Wait()
}

func (w *Watcher) run(ctx context.Context, fsw *fsnotify.Watcher, target string, onChange func()) {
	defer w.wg.Done()
	defer fsw.Close()

	timer := time.NewTimer(w.debounce)
	timer.Stop() // Start with stopped timer
	defer timer.Stop()

	for {
		select {
		case <-ctx.Done():
			w.logger.Debug("Stopped watching file", zap.String("path", target))
			return

		case event, ok := <-fsw.Events:
			if !ok {
				return
			}
			if filepath.Clean(event.Name) != target {
				continue
			}
			if !event.Has(fsnotify.Write) && !event.Has(fsnotify.Create) && !event.Has(fsnotify.Rename) {
				continue
			}
			w.logger.Debug("File event, debouncing...",
				zap.String("path", target),
				zap.Stringer("op", event.Op))
			timer.Reset(w.debounce)

		case err, ok := <-fsw.Errors:
			if !ok {
				return
			}
			w.logger.Warn("File watcher error", zap.String("path", target), zap.Error(err))

		case <-timer.C:
			w.logger.Info("File changed", zap.String("path", target))
			onChange()
		}
	}
}
