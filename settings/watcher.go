package settings

import (
	"context"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"

	"github.com/dshills/extkit/host"
)

// DefaultDebounce is the coalescing window for file change events.
// Editors often write a settings file several times in quick succession
// (truncate, write, rename); one reload covers the burst.
const DefaultDebounce = 200 * time.Millisecond

// Watcher reloads a store from a settings file when it changes on disk.
// The file's directory is watched rather than the file itself, so
// atomic-rename saves keep working.
type Watcher struct {
	path     string
	store    *Store
	log      host.Logger
	debounce time.Duration

	mu      sync.Mutex
	fsw     *fsnotify.Watcher
	cancel  context.CancelFunc
	stopped chan struct{}
}

// WatcherOption configures a Watcher.
type WatcherOption func(*Watcher)

// WithDebounce overrides the coalescing window.
func WithDebounce(d time.Duration) WatcherOption {
	return func(w *Watcher) { w.debounce = d }
}

// WithWatcherLogger sets the diagnostics logger.
func WithWatcherLogger(log host.Logger) WatcherOption {
	return func(w *Watcher) { w.log = log }
}

// NewWatcher creates a watcher that reloads store from the JSON file at
// path whenever it changes.
func NewWatcher(path string, store *Store, opts ...WatcherOption) *Watcher {
	w := &Watcher{
		path:     filepath.Clean(path),
		store:    store,
		debounce: DefaultDebounce,
	}
	for _, opt := range opts {
		opt(w)
	}
	return w
}

// Start begins watching. It returns once the underlying watcher is
// registered; reloads happen on a background goroutine until Stop is
// called or ctx is cancelled.
func (w *Watcher) Start(ctx context.Context) error {
	w.mu.Lock()
	defer w.mu.Unlock()

	if w.fsw != nil {
		return nil
	}

	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return err
	}
	if err := fsw.Add(filepath.Dir(w.path)); err != nil {
		_ = fsw.Close()
		return err
	}

	runCtx, cancel := context.WithCancel(ctx)
	w.fsw = fsw
	w.cancel = cancel
	w.stopped = make(chan struct{})

	go w.loop(runCtx, fsw, w.stopped)
	return nil
}

// Stop ends watching and waits for the background goroutine to exit.
func (w *Watcher) Stop() {
	w.mu.Lock()
	fsw := w.fsw
	cancel := w.cancel
	stopped := w.stopped
	w.fsw = nil
	w.cancel = nil
	w.stopped = nil
	w.mu.Unlock()

	if fsw == nil {
		return
	}
	cancel()
	_ = fsw.Close()
	<-stopped
}

func (w *Watcher) loop(ctx context.Context, fsw *fsnotify.Watcher, stopped chan struct{}) {
	defer close(stopped)

	var pending *time.Timer
	var fire <-chan time.Time

	for {
		select {
		case <-ctx.Done():
			return

		case event, ok := <-fsw.Events:
			if !ok {
				return
			}
			if filepath.Clean(event.Name) != w.path {
				continue
			}
			if !event.Has(fsnotify.Write) && !event.Has(fsnotify.Create) && !event.Has(fsnotify.Rename) {
				continue
			}
			if pending == nil {
				pending = time.NewTimer(w.debounce)
				fire = pending.C
			} else {
				if !pending.Stop() {
					select {
					case <-pending.C:
					default:
					}
				}
				pending.Reset(w.debounce)
			}

		case <-fire:
			pending = nil
			fire = nil
			w.reload()

		case err, ok := <-fsw.Errors:
			if !ok {
				return
			}
			w.logger().Warn("settings watcher error", "error", err)
		}
	}
}

func (w *Watcher) reload() {
	data, err := os.ReadFile(w.path)
	if err != nil {
		if os.IsNotExist(err) {
			return
		}
		w.logger().Warn("settings reload failed", "path", w.path, "error", err)
		return
	}
	if err := w.store.Replace(data); err != nil {
		w.logger().Warn("settings reload rejected", "path", w.path, "error", err)
		return
	}
	w.logger().Debug("settings reloaded", "path", w.path)
}

func (w *Watcher) logger() host.Logger {
	if w.log != nil {
		return w.log
	}
	return host.NopLogger
}
