package watcher

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"sync"
	"sync/atomic"
	"time"

	"github.com/charlievieth/fastwalk"
	"github.com/fsnotify/fsnotify"
)

// Operation is a file system operation type.
type Operation int

const (
	// OpCreate indicates a new file or directory.
	OpCreate Operation = iota
	// OpModify indicates an existing file was written.
	OpModify
	// OpDelete indicates a file or directory was removed.
	OpDelete
	// OpRename indicates a file or directory was moved away.
	OpRename
)

// String returns a human-readable representation of the operation.
func (op Operation) String() string {
	switch op {
	case OpCreate:
		return "CREATE"
	case OpModify:
		return "MODIFY"
	case OpDelete:
		return "DELETE"
	case OpRename:
		return "RENAME"
	default:
		return "UNKNOWN"
	}
}

// FileEvent is a file system event.
type FileEvent struct {
	// Path is the absolute path of the file or directory.
	Path      string
	Operation Operation
	IsDir     bool
	Timestamp time.Time
}

// IgnoreFunc reports whether a path should produce no events. Ignored
// directories are not watched.
type IgnoreFunc func(path string, isDir bool) bool

// Options configures a Watcher.
type Options struct {
	// Debounce is the quiet period before a batch is emitted.
	// Default: 500ms
	Debounce time.Duration

	// EventBufferSize is the number of batches buffered for the consumer.
	// Default: 64
	EventBufferSize int

	// Ignore filters paths. Nil ignores nothing.
	Ignore IgnoreFunc

	// Logger receives warnings. Default: slog.Default().
	Logger *slog.Logger
}

// DefaultOptions returns the default watcher options.
func DefaultOptions() Options {
	return Options{
		Debounce:        500 * time.Millisecond,
		EventBufferSize: 64,
	}
}

// WithDefaults returns options with defaults applied for zero values.
func (o Options) WithDefaults() Options {
	defaults := DefaultOptions()
	if o.Debounce <= 0 {
		o.Debounce = defaults.Debounce
	}
	if o.EventBufferSize <= 0 {
		o.EventBufferSize = defaults.EventBufferSize
	}
	if o.Logger == nil {
		o.Logger = slog.Default()
	}
	return o
}

// Watcher watches directory trees and emits debounced event batches.
type Watcher struct {
	fsWatcher *fsnotify.Watcher
	debouncer *Debouncer
	opts      Options
	events    chan []FileEvent
	errors    chan error
	stopCh    chan struct{}

	mu             sync.RWMutex
	roots          []string
	stopped        bool
	droppedBatches atomic.Uint64
}

// New creates a Watcher.
func New(opts Options) (*Watcher, error) {
	opts = opts.WithDefaults()

	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("create fsnotify watcher: %w", err)
	}

	return &Watcher{
		fsWatcher: fsw,
		debouncer: NewDebouncer(opts.Debounce, opts.Logger),
		opts:      opts,
		events:    make(chan []FileEvent, opts.EventBufferSize),
		errors:    make(chan error, 10),
		stopCh:    make(chan struct{}),
	}, nil
}

// Start watches every root recursively and blocks until ctx is cancelled
// or Stop is called. Roots that do not exist are skipped; if none exists
// Start fails.
func (w *Watcher) Start(ctx context.Context, roots ...string) error {
	var added []string
	for _, root := range roots {
		abs, err := filepath.Abs(root)
		if err != nil {
			return fmt.Errorf("resolve absolute path: %w", err)
		}
		if info, err := os.Stat(abs); err != nil || !info.IsDir() {
			w.opts.Logger.Warn("watch_root_skipped", slog.String("root", abs))
			continue
		}
		if err := w.addRecursive(ctx, abs); err != nil {
			return fmt.Errorf("add directories to watcher: %w", err)
		}
		added = append(added, abs)
	}
	if len(added) == 0 {
		return fmt.Errorf("no watchable directory among %v", roots)
	}

	w.mu.Lock()
	w.roots = added
	w.mu.Unlock()

	go w.forward(ctx)

	for {
		select {
		case <-ctx.Done():
			_ = w.Stop()
			return ctx.Err()
		case <-w.stopCh:
			return nil
		case event, ok := <-w.fsWatcher.Events:
			if !ok {
				return nil
			}
			w.handle(ctx, event)
		case err, ok := <-w.fsWatcher.Errors:
			if !ok {
				return nil
			}
			w.emitError(err)
		}
	}
}

// addRecursive adds root and every directory below it that is not ignored.
func (w *Watcher) addRecursive(ctx context.Context, root string) error {
	conf := fastwalk.Config{Follow: false}
	return fastwalk.Walk(&conf, root, func(path string, d os.DirEntry, err error) error {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return ctxErr
		}
		if err != nil || !d.IsDir() {
			return nil
		}
		if path != root && w.ignored(path, true) {
			return filepath.SkipDir
		}
		if err := w.fsWatcher.Add(path); err != nil {
			// Too many watches or a vanished directory: keep going.
			w.emitError(fmt.Errorf("watch %s: %w", path, err))
		}
		return nil
	})
}

func (w *Watcher) ignored(path string, isDir bool) bool {
	return w.opts.Ignore != nil && w.opts.Ignore(path, isDir)
}

// handle converts an fsnotify event and feeds it to the debouncer.
func (w *Watcher) handle(ctx context.Context, event fsnotify.Event) {
	isDir := false
	if info, err := os.Stat(event.Name); err == nil {
		isDir = info.IsDir()
	}
	if w.ignored(event.Name, isDir) {
		return
	}

	var op Operation
	switch {
	case event.Op&fsnotify.Create != 0:
		op = OpCreate
		if isDir {
			if err := w.addRecursive(ctx, event.Name); err != nil && !errors.Is(err, fs.ErrNotExist) {
				w.emitError(err)
			}
		}
	case event.Op&fsnotify.Write != 0:
		op = OpModify
	case event.Op&fsnotify.Remove != 0:
		op = OpDelete
	case event.Op&fsnotify.Rename != 0:
		op = OpRename
	default:
		// Chmod does not change names.
		return
	}

	w.debouncer.Add(FileEvent{
		Path:      event.Name,
		Operation: op,
		IsDir:     isDir,
		Timestamp: time.Now(),
	})
}

// forward moves debounced batches to the events channel.
func (w *Watcher) forward(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			return
		case <-w.stopCh:
			return
		case batch, ok := <-w.debouncer.Output():
			if !ok {
				return
			}
			if len(batch) > 0 {
				w.emitEvents(batch)
			}
		}
	}
}

func (w *Watcher) emitEvents(batch []FileEvent) {
	w.mu.RLock()
	defer w.mu.RUnlock()
	if w.stopped {
		return
	}

	select {
	case w.events <- batch:
	default:
		count := w.droppedBatches.Add(1)
		w.opts.Logger.Warn("event buffer full, dropping batch",
			slog.Int("batch_size", len(batch)),
			slog.Uint64("total_dropped_batches", count))
	}
}

func (w *Watcher) emitError(err error) {
	w.mu.RLock()
	defer w.mu.RUnlock()
	if w.stopped {
		return
	}

	select {
	case w.errors <- err:
	default:
	}
}

// Stop stops the watcher and closes its channels. Safe to call multiple
// times.
func (w *Watcher) Stop() error {
	w.mu.Lock()
	defer w.mu.Unlock()

	if w.stopped {
		return nil
	}
	w.stopped = true
	close(w.stopCh)
	w.debouncer.Stop()
	err := w.fsWatcher.Close()
	close(w.events)
	close(w.errors)
	return err
}

// Events returns the channel of debounced event batches.
func (w *Watcher) Events() <-chan []FileEvent {
	return w.events
}

// Errors returns non-fatal watcher errors.
func (w *Watcher) Errors() <-chan error {
	return w.errors
}

// Roots returns the roots being watched.
func (w *Watcher) Roots() []string {
	w.mu.RLock()
	defer w.mu.RUnlock()
	return append([]string(nil), w.roots...)
}

// WatchCount returns the number of watched directories.
func (w *Watcher) WatchCount() int {
	return len(w.fsWatcher.WatchList())
}

// DroppedBatches returns the number of batches dropped because the consumer
// fell behind.
func (w *Watcher) DroppedBatches() uint64 {
	return w.droppedBatches.Load()
}
