package watch

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"sync/atomic"
	"testing"
	"time"

	"go.uber.org/goleak"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

type recorder struct {
	calls  atomic.Int32
	passes chan struct{}
	write  func() []string
	err    error
}

func newRecorder() *recorder {
	return &recorder{passes: make(chan struct{}, 16)}
}

func (r *recorder) sync(context.Context) ([]string, error) {
	r.calls.Add(1)
	var written []string
	if r.write != nil {
		written = r.write()
	}
	r.passes <- struct{}{}
	return written, r.err
}

func waitPass(t *testing.T, r *recorder) {
	t.Helper()
	select {
	case <-r.passes:
	case <-time.After(3 * time.Second):
		t.Fatalf("timed out waiting for pass")
	}
}

func expectNoPass(t *testing.T, r *recorder, d time.Duration) {
	t.Helper()
	select {
	case <-r.passes:
		t.Fatalf("unexpected pass")
	case <-time.After(d):
	}
}

func writeFile(t *testing.T, path, content string) {
	t.Helper()
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("write %s: %v", path, err)
	}
}

func fastOptions() Options {
	return Options{Debounce: 50 * time.Millisecond, Tick: 10 * time.Millisecond, IgnoreWindow: time.Second}
}

func TestStartupPassRunsAfterDelay(t *testing.T) {
	root := t.TempDir()
	rec := newRecorder()
	opts := fastOptions()
	opts.SyncOnStart = true
	opts.StartupDelay = 20 * time.Millisecond
	w, err := New(root, rec.sync, opts)
	if err != nil {
		t.Fatalf("new watcher: %v", err)
	}
	if err := w.Start(context.Background()); err != nil {
		t.Fatalf("start: %v", err)
	}
	waitPass(t, rec)
	w.Stop()
	if got := w.Stats().Passes; got != 1 {
		t.Fatalf("expected 1 pass, got %d", got)
	}
}

func TestChangesAreDebouncedIntoOnePass(t *testing.T) {
	root := t.TempDir()
	rec := newRecorder()
	w, err := New(root, rec.sync, fastOptions())
	if err != nil {
		t.Fatalf("new watcher: %v", err)
	}
	if err := w.Start(context.Background()); err != nil {
		t.Fatalf("start: %v", err)
	}
	defer w.Stop()

	note := filepath.Join(root, "Daily.md")
	for i := 0; i < 3; i++ {
		writeFile(t, note, "- [x] run #xp/Running\n")
	}
	waitPass(t, rec)
	expectNoPass(t, rec, 200*time.Millisecond)
	if rec.calls.Load() != 1 {
		t.Fatalf("expected a single debounced pass, got %d", rec.calls.Load())
	}
}

func TestIgnoresHiddenAndNonNoteFiles(t *testing.T) {
	root := t.TempDir()
	if err := os.Mkdir(filepath.Join(root, ".obsidian"), 0o755); err != nil {
		t.Fatalf("mkdir: %v", err)
	}
	rec := newRecorder()
	w, err := New(root, rec.sync, fastOptions())
	if err != nil {
		t.Fatalf("new watcher: %v", err)
	}
	if err := w.Start(context.Background()); err != nil {
		t.Fatalf("start: %v", err)
	}
	defer w.Stop()

	writeFile(t, filepath.Join(root, "notes.txt"), "x")
	writeFile(t, filepath.Join(root, ".xpradar-123.md"), "x")
	writeFile(t, filepath.Join(root, ".obsidian", "workspace.md"), "x")
	expectNoPass(t, rec, 300*time.Millisecond)
	if got := w.Stats().Events; got != 0 {
		t.Fatalf("expected no note events, got %d", got)
	}
}

func TestOwnWritesDoNotRetrigger(t *testing.T) {
	root := t.TempDir()
	stat := filepath.Join(root, "Physical.md")
	writeFile(t, stat, "#stat\n")

	rec := newRecorder()
	rec.write = func() []string {
		writeFile(t, stat, "total-xp:: 5\n\n#stat\n")
		return []string{"Physical.md"}
	}
	w, err := New(root, rec.sync, fastOptions())
	if err != nil {
		t.Fatalf("new watcher: %v", err)
	}
	if err := w.Start(context.Background()); err != nil {
		t.Fatalf("start: %v", err)
	}
	defer w.Stop()

	writeFile(t, filepath.Join(root, "Daily.md"), "- [x] #xp/Running\n")
	waitPass(t, rec)
	expectNoPass(t, rec, 300*time.Millisecond)
}

func TestWatchesNewDirectories(t *testing.T) {
	root := t.TempDir()
	rec := newRecorder()
	w, err := New(root, rec.sync, fastOptions())
	if err != nil {
		t.Fatalf("new watcher: %v", err)
	}
	if err := w.Start(context.Background()); err != nil {
		t.Fatalf("start: %v", err)
	}
	defer w.Stop()

	dir := filepath.Join(root, "Journal")
	if err := os.Mkdir(dir, 0o755); err != nil {
		t.Fatalf("mkdir: %v", err)
	}
	time.Sleep(100 * time.Millisecond)
	writeFile(t, filepath.Join(dir, "2024-01-01.md"), "- [x] #xp/Reading\n")
	waitPass(t, rec)
}

func TestPassErrorsAreCounted(t *testing.T) {
	root := t.TempDir()
	rec := newRecorder()
	rec.err = errors.New("aggregation pass already running")
	opts := fastOptions()
	opts.SyncOnStart = true
	w, err := New(root, rec.sync, opts)
	if err != nil {
		t.Fatalf("new watcher: %v", err)
	}
	if err := w.Start(context.Background()); err != nil {
		t.Fatalf("start: %v", err)
	}
	waitPass(t, rec)
	w.Stop()
	if got := w.Stats().Errors; got != 1 {
		t.Fatalf("expected 1 error, got %d", got)
	}
}

func TestContextCancelStopsLoop(t *testing.T) {
	rec := newRecorder()
	w, err := New(t.TempDir(), rec.sync, fastOptions())
	if err != nil {
		t.Fatalf("new watcher: %v", err)
	}
	ctx, cancel := context.WithCancel(context.Background())
	if err := w.Start(ctx); err != nil {
		t.Fatalf("start: %v", err)
	}
	cancel()
	select {
	case <-w.Done():
	case <-time.After(2 * time.Second):
		t.Fatalf("loop did not exit on cancel")
	}
	w.Stop()
}

func TestStopWithoutStart(t *testing.T) {
	w, err := New(t.TempDir(), newRecorder().sync, Options{})
	if err != nil {
		t.Fatalf("new watcher: %v", err)
	}
	w.Stop()
	w.Stop()
}

func TestStartFailsForMissingRoot(t *testing.T) {
	w, err := New(filepath.Join(t.TempDir(), "missing"), newRecorder().sync, Options{})
	if err != nil {
		t.Fatalf("new watcher: %v", err)
	}
	if err := w.Start(context.Background()); err == nil {
		t.Fatalf("expected error for missing root")
	}
	w.Stop()
}
