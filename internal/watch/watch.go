// Package watch re-runs aggregation passes when notes in a vault change.
package watch

import (
	"context"
	"errors"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
	"go.uber.org/zap"

	"github.com/verte-zerg/xpradar/internal/logging"
	"github.com/verte-zerg/xpradar/internal/vault"
)

const (
	defaultDebounce     = 500 * time.Millisecond
	defaultTick         = 100 * time.Millisecond
	defaultIgnoreWindow = 2 * time.Second
)

// SyncFunc runs one pass and returns the vault-relative paths it wrote.
type SyncFunc func(ctx context.Context) ([]string, error)

// Options configures a Watcher.
type Options struct {
	// Debounce is how long a path must stay quiet before a pass runs.
	Debounce time.Duration
	// Tick is how often settled events are checked.
	Tick time.Duration
	// SyncOnStart runs a pass StartupDelay after Start.
	SyncOnStart  bool
	StartupDelay time.Duration
	// IgnoreWindow is how long events on notes written by a pass are ignored.
	IgnoreWindow time.Duration
	Logger       *zap.Logger
}

// Stats counts watcher activity.
type Stats struct {
	Events   int
	Passes   int
	Errors   int
	LastPass time.Time
}

// Watcher watches a vault directory tree and triggers passes.
type Watcher struct {
	mu           sync.Mutex
	watcher      *fsnotify.Watcher
	root         string
	sync         SyncFunc
	logger       *zap.Logger
	debounce     time.Duration
	tick         time.Duration
	ignoreWindow time.Duration
	syncOnStart  bool
	startupDelay time.Duration
	pending      map[string]time.Time
	ownWrites    map[string]time.Time
	stopCh       chan struct{}
	doneCh       chan struct{}
	running      bool
	closeOnce    sync.Once
	stats        Stats
}

// New creates a watcher over root. It does not watch anything until Start.
func New(root string, fn SyncFunc, opts Options) (*Watcher, error) {
	fw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}
	w := &Watcher{
		watcher:      fw,
		root:         root,
		sync:         fn,
		logger:       opts.Logger,
		debounce:     opts.Debounce,
		tick:         opts.Tick,
		ignoreWindow: opts.IgnoreWindow,
		syncOnStart:  opts.SyncOnStart,
		startupDelay: opts.StartupDelay,
		pending:      make(map[string]time.Time),
		ownWrites:    make(map[string]time.Time),
		stopCh:       make(chan struct{}),
		doneCh:       make(chan struct{}),
	}
	w.logger = logging.OrNop(w.logger)
	if w.debounce <= 0 {
		w.debounce = defaultDebounce
	}
	if w.tick <= 0 {
		w.tick = defaultTick
	}
	if w.ignoreWindow <= 0 {
		w.ignoreWindow = defaultIgnoreWindow
	}
	return w, nil
}

// Start adds every visible directory under the root and begins watching.
// It does not block.
func (w *Watcher) Start(ctx context.Context) error {
	w.mu.Lock()
	if w.running {
		w.mu.Unlock()
		return nil
	}
	w.running = true
	w.mu.Unlock()

	if err := w.addTree(w.root); err != nil {
		w.mu.Lock()
		w.running = false
		w.mu.Unlock()
		w.closeWatcher()
		return err
	}
	w.logger.Info("watching vault", zap.String("root", w.root))
	go w.run(ctx)
	return nil
}

// Stop stops the watcher and waits for the event loop to exit. A pass in
// progress finishes first. Stop is safe to call on a watcher that never
// started.
func (w *Watcher) Stop() {
	w.mu.Lock()
	wasRunning := w.running
	w.running = false
	w.mu.Unlock()

	if wasRunning {
		close(w.stopCh)
		<-w.doneCh
	}
	w.closeWatcher()
}

func (w *Watcher) closeWatcher() {
	w.closeOnce.Do(func() {
		if err := w.watcher.Close(); err != nil {
			w.logger.Error("failed to close watcher", zap.Error(err))
		}
	})
}

// Done is closed when the event loop exits.
func (w *Watcher) Done() <-chan struct{} {
	return w.doneCh
}

// Stats returns a copy of the activity counters.
func (w *Watcher) Stats() Stats {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.stats
}

func (w *Watcher) run(ctx context.Context) {
	defer close(w.doneCh)

	var startup <-chan time.Time
	if w.syncOnStart {
		timer := time.NewTimer(w.startupDelay)
		defer timer.Stop()
		startup = timer.C
	}
	ticker := time.NewTicker(w.tick)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-w.stopCh:
			return
		case <-startup:
			startup = nil
			w.pass(ctx, "startup")
		case event, ok := <-w.watcher.Events:
			if !ok {
				return
			}
			w.handleEvent(event)
		case err, ok := <-w.watcher.Errors:
			if !ok {
				return
			}
			w.logger.Error("watcher error", zap.Error(err))
			w.mu.Lock()
			w.stats.Errors++
			w.mu.Unlock()
		case <-ticker.C:
			if w.settled() {
				w.pass(ctx, "change")
			}
		}
	}
}

func (w *Watcher) handleEvent(event fsnotify.Event) {
	if event.Op&(fsnotify.Create|fsnotify.Write|fsnotify.Remove|fsnotify.Rename) == 0 {
		return
	}
	if w.hidden(event.Name) {
		return
	}
	if event.Op&fsnotify.Create != 0 {
		if info, err := os.Stat(event.Name); err == nil && info.IsDir() {
			if err := w.addTree(event.Name); err != nil {
				w.logger.Warn("failed to watch new directory", zap.String("path", event.Name), zap.Error(err))
			}
			return
		}
	}
	if !vault.IsNote(filepath.Base(event.Name)) {
		return
	}

	now := time.Now()
	w.mu.Lock()
	defer w.mu.Unlock()
	if at, ok := w.ownWrites[event.Name]; ok {
		if now.Sub(at) < w.ignoreWindow {
			return
		}
		delete(w.ownWrites, event.Name)
	}
	w.stats.Events++
	w.pending[event.Name] = now
	w.logger.Debug("note changed", zap.String("path", event.Name), zap.Stringer("op", event.Op))
}

// settled drains pending paths that have been quiet for the debounce period
// and reports whether any did.
func (w *Watcher) settled() bool {
	w.mu.Lock()
	defer w.mu.Unlock()
	now := time.Now()
	ready := false
	for path, at := range w.pending {
		if now.Sub(at) >= w.debounce {
			delete(w.pending, path)
			ready = true
		}
	}
	return ready
}

func (w *Watcher) pass(ctx context.Context, reason string) {
	w.logger.Debug("running pass", zap.String("reason", reason))
	written, err := w.sync(ctx)
	now := time.Now()

	w.mu.Lock()
	defer w.mu.Unlock()
	w.stats.Passes++
	w.stats.LastPass = now
	for _, rel := range written {
		abs := filepath.Join(w.root, filepath.FromSlash(rel))
		w.ownWrites[abs] = now
		delete(w.pending, abs)
	}
	if err != nil {
		w.stats.Errors++
		if !errors.Is(err, context.Canceled) {
			w.logger.Error("pass failed", zap.String("reason", reason), zap.Error(err))
		}
	}
}

func (w *Watcher) addTree(dir string) error {
	return filepath.WalkDir(dir, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if !d.IsDir() {
			return nil
		}
		if path != dir && strings.HasPrefix(d.Name(), ".") {
			return filepath.SkipDir
		}
		return w.watcher.Add(path)
	})
}

func (w *Watcher) hidden(path string) bool {
	rel, err := filepath.Rel(w.root, path)
	if err != nil {
		return false
	}
	for _, part := range strings.Split(filepath.ToSlash(rel), "/") {
		if strings.HasPrefix(part, ".") && part != "." && part != ".." {
			return true
		}
	}
	return false
}
