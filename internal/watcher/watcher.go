// Package watcher observes the index directory for artifact changes.
//
// When another process rewrites the snapshot artifacts (recalld init while a
// server is running), the watcher flags the loaded state as stale and can
// trigger a reload after a debounce window.
package watcher

import (
	"context"
	"os"
	"path/filepath"
	"sync"
	"sync/atomic"
	"time"

	"github.com/fsnotify/fsnotify"
	"go.uber.org/zap"
)

const defaultDebounce = 2 * time.Second

// Watcher watches one directory for changes to a fixed set of artifact files.
type Watcher struct {
	dir       string
	artifacts map[string]struct{}
	onChange  func()
	debounce  time.Duration
	logger    *zap.Logger

	watcher  *fsnotify.Watcher
	mu       sync.Mutex
	timer    *time.Timer
	started  bool
	done     chan struct{}
	stopOnce sync.Once

	stale atomic.Bool
}

// Option configures a Watcher.
type Option func(*Watcher)

// WithLogger sets a logger for debug output.
func WithLogger(l *zap.Logger) Option {
	return func(w *Watcher) { w.logger = l }
}

// WithDebounce sets the quiet period after the last artifact event before
// onChange fires. Artifact pairs are written back to back; the debounce folds
// both writes into one notification.
func WithDebounce(d time.Duration) Option {
	return func(w *Watcher) { w.debounce = d }
}

// WithOnChange sets the callback invoked after the debounce window. The
// callback runs on a timer goroutine.
func WithOnChange(fn func()) Option {
	return func(w *Watcher) { w.onChange = fn }
}

// New creates a watcher for the named artifact files inside dir.
func New(dir string, artifacts []string, opts ...Option) *Watcher {
	w := &Watcher{
		dir:       dir,
		artifacts: make(map[string]struct{}, len(artifacts)),
		debounce:  defaultDebounce,
		logger:    zap.NewNop(),
		done:      make(chan struct{}),
	}
	for _, name := range artifacts {
		w.artifacts[name] = struct{}{}
	}
	for _, opt := range opts {
		opt(w)
	}
	return w
}

// Start begins watching. It runs until ctx is cancelled or Stop is called.
// The directory is created if it does not exist yet.
func (w *Watcher) Start(ctx context.Context) error {
	w.mu.Lock()
	if w.started {
		w.mu.Unlock()
		return nil
	}

	if err := os.MkdirAll(w.dir, 0o755); err != nil {
		w.mu.Unlock()
		return err
	}

	fw, err := fsnotify.NewWatcher()
	if err != nil {
		w.mu.Unlock()
		return err
	}
	if err := fw.Add(w.dir); err != nil {
		_ = fw.Close()
		w.mu.Unlock()
		return err
	}

	w.watcher = fw
	w.started = true
	w.mu.Unlock()

	w.logger.Debug("watcher starting", zap.String("dir", w.dir))
	go w.run(ctx, fw)
	return nil
}

// run owns its fsnotify handle so a concurrent Stop cannot pull it away
// mid-select; Stop closes the handle, which closes both channels.
func (w *Watcher) run(ctx context.Context, fw *fsnotify.Watcher) {
	for {
		select {
		case <-ctx.Done():
			w.Stop()
			return
		case <-w.done:
			return
		case ev, ok := <-fw.Events:
			if !ok {
				return
			}
			w.handleEvent(ev)
		case err, ok := <-fw.Errors:
			if !ok {
				return
			}
			if err != nil {
				w.logger.Debug("watcher error", zap.Error(err))
			}
		}
	}
}

func (w *Watcher) handleEvent(ev fsnotify.Event) {
	name := filepath.Base(ev.Name)
	if _, ok := w.artifacts[name]; !ok {
		return
	}
	if ev.Op&(fsnotify.Create|fsnotify.Write|fsnotify.Rename|fsnotify.Remove) == 0 {
		return
	}

	w.logger.Debug("artifact changed", zap.String("op", ev.Op.String()), zap.String("name", name))
	w.stale.Store(true)
	w.scheduleChange()
}

func (w *Watcher) scheduleChange() {
	if w.onChange == nil {
		return
	}

	w.mu.Lock()
	defer w.mu.Unlock()

	if w.timer != nil {
		w.timer.Stop()
	}
	w.timer = time.AfterFunc(w.debounce, func() {
		w.mu.Lock()
		w.timer = nil
		w.mu.Unlock()
		w.onChange()
	})
}

// Stale reports whether an artifact changed since the last MarkFresh.
func (w *Watcher) Stale() bool {
	return w.stale.Load()
}

// MarkFresh clears the staleness flag. Call it after a successful reload.
func (w *Watcher) MarkFresh() {
	w.stale.Store(false)
}

// Stop stops the watcher and releases resources. Safe to call repeatedly.
func (w *Watcher) Stop() {
	w.mu.Lock()
	if !w.started || w.watcher == nil {
		w.mu.Unlock()
		return
	}
	if w.timer != nil {
		w.timer.Stop()
		w.timer = nil
	}
	_ = w.watcher.Close()
	w.watcher = nil
	w.started = false
	w.mu.Unlock()

	w.stopOnce.Do(func() { close(w.done) })
}
