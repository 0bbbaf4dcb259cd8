package watcher

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestOperation_String(t *testing.T) {
	tests := []struct {
		op   Operation
		want string
	}{
		{OpCreate, "CREATE"},
		{OpModify, "MODIFY"},
		{OpDelete, "DELETE"},
		{OpRename, "RENAME"},
		{Operation(99), "UNKNOWN"},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, tt.op.String())
	}
}

func TestOptions_WithDefaults(t *testing.T) {
	opts := Options{}.WithDefaults()

	assert.Equal(t, 500*time.Millisecond, opts.Debounce)
	assert.Equal(t, 64, opts.EventBufferSize)
	assert.NotNil(t, opts.Logger)
}

// waitFor polls cond until it holds or the deadline passes.
func waitFor(t *testing.T, cond func() bool) {
	t.Helper()
	require.Eventually(t, cond, 5*time.Second, 20*time.Millisecond)
}

func startWatcher(t *testing.T, opts Options, roots ...string) *Watcher {
	t.Helper()
	opts.Logger = quietLogger()
	w, err := New(opts)
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		defer close(done)
		_ = w.Start(ctx, roots...)
	}()
	t.Cleanup(func() {
		cancel()
		<-done
		_ = w.Stop()
	})
	waitFor(t, func() bool { return len(w.Roots()) > 0 })
	return w
}

func collect(w *Watcher, into *[]FileEvent, mu *sync.Mutex) {
	go func() {
		for batch := range w.Events() {
			mu.Lock()
			*into = append(*into, batch...)
			mu.Unlock()
		}
	}()
}

func hasPath(events []FileEvent, path string) bool {
	for _, e := range events {
		if e.Path == path {
			return true
		}
	}
	return false
}

func TestWatcher_EmitsCreateAndFollowsNewDirectories(t *testing.T) {
	// Given a watched root
	root := t.TempDir()
	w := startWatcher(t, Options{Debounce: 30 * time.Millisecond}, root)
	var (
		mu     sync.Mutex
		events []FileEvent
	)
	collect(w, &events, &mu)

	// When a directory and then a file inside it are created
	sub := filepath.Join(root, "sub")
	require.NoError(t, os.Mkdir(sub, 0o755))
	waitFor(t, func() bool { return w.WatchCount() >= 2 })
	file := filepath.Join(sub, "note.txt")
	require.NoError(t, os.WriteFile(file, []byte("x"), 0o644))

	// Then both paths are reported
	waitFor(t, func() bool {
		mu.Lock()
		defer mu.Unlock()
		return hasPath(events, sub) && hasPath(events, file)
	})
}

func TestWatcher_IgnoredPathsProduceNoEvents(t *testing.T) {
	// Given a watcher ignoring *.tmp files
	root := t.TempDir()
	ignore := func(path string, _ bool) bool { return strings.HasSuffix(path, ".tmp") }
	w := startWatcher(t, Options{Debounce: 30 * time.Millisecond, Ignore: ignore}, root)
	var (
		mu     sync.Mutex
		events []FileEvent
	)
	collect(w, &events, &mu)

	// When an ignored and a regular file are written
	require.NoError(t, os.WriteFile(filepath.Join(root, "scratch.tmp"), []byte("x"), 0o644))
	keep := filepath.Join(root, "keep.txt")
	require.NoError(t, os.WriteFile(keep, []byte("x"), 0o644))

	// Then only the regular file is reported
	waitFor(t, func() bool {
		mu.Lock()
		defer mu.Unlock()
		return hasPath(events, keep)
	})
	mu.Lock()
	defer mu.Unlock()
	assert.False(t, hasPath(events, filepath.Join(root, "scratch.tmp")))
}

func TestWatcher_StartFailsWithoutRoots(t *testing.T) {
	w, err := New(Options{Logger: quietLogger()})
	require.NoError(t, err)
	defer w.Stop()

	err = w.Start(context.Background(), filepath.Join(t.TempDir(), "missing"))
	assert.Error(t, err)
}

func TestWatcher_StopIsIdempotent(t *testing.T) {
	w, err := New(Options{Logger: quietLogger()})
	require.NoError(t, err)

	assert.NoError(t, w.Stop())
	assert.NoError(t, w.Stop())
	_, ok := <-w.Events()
	assert.False(t, ok)
}

type countingRefresher struct {
	mu     sync.Mutex
	forces []bool
}

func (c *countingRefresher) Refresh(_ context.Context, force bool) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.forces = append(c.forces, force)
	return nil
}

func (c *countingRefresher) calls() []bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]bool(nil), c.forces...)
}

func TestRun_RefreshesIncrementallyAfterBatch(t *testing.T) {
	// Given a running watch
	root := t.TempDir()
	w, err := New(Options{Debounce: 30 * time.Millisecond, Logger: quietLogger()})
	require.NoError(t, err)
	target := &countingRefresher{}

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- Run(ctx, w, []string{root}, target, quietLogger()) }()
	waitFor(t, func() bool { return len(w.Roots()) > 0 })

	// When a file changes
	require.NoError(t, os.WriteFile(filepath.Join(root, "a.txt"), []byte("x"), 0o644))

	// Then the target gets an incremental refresh
	waitFor(t, func() bool { return len(target.calls()) > 0 })
	for _, force := range target.calls() {
		assert.False(t, force)
	}

	// And cancelling ends the run cleanly
	cancel()
	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(5 * time.Second):
		t.Fatal("Run did not return after cancel")
	}
}

func TestRun_ReturnsStartError(t *testing.T) {
	w, err := New(Options{Logger: quietLogger()})
	require.NoError(t, err)
	defer w.Stop()

	err = Run(context.Background(), w, []string{filepath.Join(t.TempDir(), "missing")}, &countingRefresher{}, quietLogger())
	assert.Error(t, err)
}
