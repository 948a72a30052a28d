package settings

import (
	"context"
	"log/slog"
	"sync"

	"github.com/fsnotify/fsnotify"
)

// Watcher reloads a Settings file from disk whenever it changes on disk,
// publishing the newly constructed value to onReload. It is intended for use
// only while the agent is idle between tasks: the Director takes a single
// immutable *Settings snapshot at the start of run_task and never observes a
// reload mid-task, so onReload fires only between runs (the agent lifecycle
// gates it the same way it gates internal/idletick.Scheduler's ticks).
type Watcher struct {
	path     string
	logger   *slog.Logger
	onReload func(*Settings)
	watcher  *fsnotify.Watcher

	stopOnce sync.Once
	stopCh   chan struct{}
	doneCh   chan struct{}
}

// NewWatcher creates a Watcher for the settings file at path. Returns an
// error if path cannot be watched (e.g. it does not exist yet); callers
// should treat that as non-fatal and run without hot-reload.
func NewWatcher(path string, logger *slog.Logger, onReload func(*Settings)) (*Watcher, error) {
	fw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}
	if err := fw.Add(path); err != nil {
		fw.Close()
		return nil, err
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Watcher{path: path, logger: logger.With("component", "settings_watcher"), onReload: onReload, watcher: fw}, nil
}

// Start begins watching in a background goroutine. Stop must be called to
// release it.
func (w *Watcher) Start(ctx context.Context) {
	w.stopCh = make(chan struct{})
	w.doneCh = make(chan struct{})
	go w.run(ctx)
}

// Stop halts the watcher and waits for it to exit. Idempotent: safe to call
// any number of times, including before Start.
func (w *Watcher) Stop() {
	if w.stopCh == nil {
		return
	}
	w.stopOnce.Do(func() {
		close(w.stopCh)
		<-w.doneCh
	})
}

func (w *Watcher) run(ctx context.Context) {
	defer close(w.doneCh)
	defer w.watcher.Close()
	for {
		select {
		case <-ctx.Done():
			return
		case <-w.stopCh:
			return
		case ev, ok := <-w.watcher.Events:
			if !ok {
				return
			}
			if ev.Op&(fsnotify.Write|fsnotify.Create) == 0 {
				continue
			}
			s, err := Load(w.path)
			if err != nil {
				w.logger.Warn("settings reload failed", "path", w.path, "error", err)
				continue
			}
			w.logger.Info("settings reloaded", "path", w.path)
			if w.onReload != nil {
				w.onReload(s)
			}
		case err, ok := <-w.watcher.Errors:
			if !ok {
				return
			}
			w.logger.Warn("settings watcher error", "error", err)
		}
	}
}
