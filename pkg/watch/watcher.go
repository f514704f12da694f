// Package watch reloads a single file when it changes on disk. Recognizer
// files, the config file and TLS certificates all go through it.
package watch

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"path/filepath"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
)

// DefaultDebounce is the quiet period before a reload fires.
const DefaultDebounce = 100 * time.Millisecond

// changeOps are the events that can mean new file content. Atomic
// replacement shows up as Create or Rename on the target name.
const changeOps = fsnotify.Write | fsnotify.Create | fsnotify.Rename

// FileWatcher watches the parent directory of one file and calls back
// after each burst of changes to that file settles.
type FileWatcher struct {
	path   string
	fs     *fsnotify.Watcher
	quiet  *Debouncer
	logger *slog.Logger

	mu     sync.Mutex
	cancel context.CancelFunc // non-nil while Watch runs
	done   chan struct{}
}

// New prepares a watcher for path. debounce <= 0 means DefaultDebounce and
// a nil logger means slog.Default.
func New(path string, debounce time.Duration, logger *slog.Logger) (*FileWatcher, error) {
	abs, err := filepath.Abs(path)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve %q: %w", path, err)
	}
	fs, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("failed to create fsnotify watcher: %w", err)
	}
	if debounce <= 0 {
		debounce = DefaultDebounce
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &FileWatcher{
		path:   abs,
		fs:     fs,
		quiet:  NewDebouncer(debounce),
		logger: logger.With("component", "watch", "path", abs),
	}, nil
}

// Watch runs until ctx is done or Stop is called. A failing onChange is
// logged and the previous state stays in force; watching continues.
func (fw *FileWatcher) Watch(ctx context.Context, onChange func() error) error {
	fw.mu.Lock()
	if fw.cancel != nil {
		fw.mu.Unlock()
		return errors.New("watcher already running")
	}
	ctx, cancel := context.WithCancel(ctx)
	done := make(chan struct{})
	fw.cancel, fw.done = cancel, done
	fw.mu.Unlock()

	defer func() {
		cancel()
		fw.mu.Lock()
		fw.cancel = nil
		fw.mu.Unlock()
		close(done)
	}()

	dir := filepath.Dir(fw.path)
	if err := fw.fs.Add(dir); err != nil {
		return fmt.Errorf("failed to watch %q: %w", dir, err)
	}
	fw.logger.Info("file watcher started")

	reload := func() {
		if err := onChange(); err != nil {
			fw.logger.Error("reload failed", "error", err)
			return
		}
		fw.logger.Info("file reloaded")
	}

	for {
		select {
		case <-ctx.Done():
			fw.logger.Info("file watcher stopped")
			return nil

		case ev, ok := <-fw.fs.Events:
			if !ok {
				return errors.New("watcher events channel closed")
			}
			if filepath.Clean(ev.Name) == fw.path && ev.Op&changeOps != 0 {
				fw.logger.Debug("file event", "op", ev.Op.String())
				fw.quiet.Trigger(reload)
			}

		case err, ok := <-fw.fs.Errors:
			if !ok {
				return errors.New("watcher errors channel closed")
			}
			fw.logger.Error("file watcher error", "error", err)
		}
	}
}

// Stop ends a running Watch, drops any pending reload and closes the
// fsnotify handle.
func (fw *FileWatcher) Stop() error {
	fw.mu.Lock()
	cancel, done := fw.cancel, fw.done
	fw.mu.Unlock()

	if cancel != nil {
		cancel()
		<-done
	}
	fw.quiet.Stop()

	if err := fw.fs.Close(); err != nil {
		return fmt.Errorf("failed to close watcher: %w", err)
	}
	return nil
}
