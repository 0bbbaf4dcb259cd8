// Package files provides the "files" search provider: file and directory
// name search over the configured roots, backed by internal/store.
package files

import (
	"context"
	"fmt"
	"log/slog"
	"maps"
	"os"
	"path/filepath"
	"slices"
	"strings"
	"sync"
	"time"

	lru "github.com/hashicorp/golang-lru/v2"

	"github.com/indelve/indelve/internal/config"
	"github.com/indelve/indelve/internal/store"
	"github.com/indelve/indelve/pkg/provider"
)

// ID is the provider identifier.
const ID = "files"

const (
	// indexBase is the index file name under the index directory.
	indexBase = "files"
	// lockName is the cross-process refresh lock under the index directory.
	lockName = "files.lock"
	// contextDepth is the number of parent directory names indexed per path.
	contextDepth = 2
	// batchSize bounds documents per Index call.
	batchSize = 1000
	// queryCacheSize bounds cached query results.
	queryCacheSize = 256
)

// Description is the files provider's static metadata.
var Description = provider.Description{
	Short: "Files",
	Long:  "Searches file and directory names under the configured roots.",
}

// Provider searches file names.
type Provider struct {
	scanner    *Scanner
	index      store.Index
	lock       *store.FileLock
	cache      *lru.Cache[string, []provider.Item]
	maxResults int
	logger     *slog.Logger

	mu       sync.RWMutex
	closed   bool
	progress provider.ProgressFunc
}

// New opens the provider's index. It returns an error matching
// provider.ErrUnavailable when none of the roots exists. An empty IndexDir
// keeps the index in memory.
func New(cfg config.FilesConfig, logger *slog.Logger) (*Provider, error) {
	if logger == nil {
		logger = slog.Default()
	}

	var roots []string
	for _, r := range config.ExpandHomeAll(cfg.Roots) {
		abs, err := filepath.Abs(r)
		if err != nil {
			continue
		}
		if info, err := os.Stat(abs); err == nil && info.IsDir() {
			roots = append(roots, abs)
		}
	}
	if len(roots) == 0 {
		return nil, provider.Unavailable("no search root exists (configured: %s)", strings.Join(cfg.Roots, ", "))
	}

	scanner, err := NewScanner(roots, cfg.Exclude, cfg.Hidden, cfg.Gitignore)
	if err != nil {
		return nil, err
	}

	indexDir := config.ExpandHome(cfg.IndexDir)
	if indexDir != "" {
		if err := os.MkdirAll(indexDir, 0o755); err != nil {
			return nil, fmt.Errorf("failed to create index directory: %w", err)
		}
	}

	if indexDir != "" {
		if prev := store.DetectBackend(indexDir, indexBase); prev != "" {
			if want, _ := store.ParseBackend(cfg.Backend); prev != want {
				logger.Info("files_backend_changed",
					slog.String("previous", string(prev)),
					slog.String("backend", string(want)))
			}
		}
	}

	idx, err := store.Open(indexDir, indexBase, store.DefaultConfig(), cfg.Backend)
	if err != nil {
		return nil, fmt.Errorf("failed to open files index: %w", err)
	}

	cache, err := lru.New[string, []provider.Item](queryCacheSize)
	if err != nil {
		_ = idx.Close()
		return nil, fmt.Errorf("failed to create query cache: %w", err)
	}

	p := &Provider{
		scanner:    scanner,
		index:      idx,
		cache:      cache,
		maxResults: cfg.MaxResults,
		logger:     logger,
	}
	if indexDir != "" {
		p.lock = store.NewFileLock(filepath.Join(indexDir, lockName))
	}
	if p.maxResults <= 0 {
		p.maxResults = 50
	}
	return p, nil
}

// Factory returns a registry factory for cfg.
func Factory(cfg config.FilesConfig, logger *slog.Logger) provider.Factory {
	return func(context.Context) (provider.Provider, error) {
		return New(cfg, logger)
	}
}

// Description implements provider.Provider.
func (p *Provider) Description() provider.Description {
	return Description
}

// Roots returns the existing roots being indexed.
func (p *Provider) Roots() []string {
	return p.scanner.Roots()
}

// Ignored reports whether a scan would skip path. It matches
// watcher.IgnoreFunc.
func (p *Provider) Ignored(path string, isDir bool) bool {
	return p.scanner.Skips(path, isDir)
}

// SetProgress implements provider.ProgressReporter. Refresh reports the
// running entry count while scanning and the indexed count per batch.
func (p *Provider) SetProgress(fn provider.ProgressFunc) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.progress = fn
}

// Search implements provider.Provider. Relevance is the index score divided
// by the best score, so the top hit is 1.
func (p *Provider) Search(ctx context.Context, query string) ([]provider.Item, error) {
	if len(store.Tokenize(query)) == 0 {
		return nil, provider.InvalidInput("query %q has no searchable terms", query)
	}

	p.mu.RLock()
	defer p.mu.RUnlock()
	if p.closed {
		return nil, fmt.Errorf("files provider is closed")
	}

	key := strings.ToLower(strings.TrimSpace(query))
	if cached, ok := p.cache.Get(key); ok {
		return cloneItems(cached), nil
	}

	hits, err := p.index.Search(ctx, query, p.maxResults)
	if err != nil {
		return nil, fmt.Errorf("files search failed: %w", err)
	}

	best := 0.0
	for _, h := range hits {
		if h.Score > best {
			best = h.Score
		}
	}

	items := make([]provider.Item, 0, len(hits))
	for _, h := range hits {
		relevance := 1.0
		if best > 0 {
			relevance = h.Score / best
		}
		items = append(items, provider.NewItem(relevance, map[string]any{
			provider.KeyProvider: ID,
			provider.KeyTitle:    filepath.Base(h.ID),
			provider.KeyKind:     h.Kind,
			"path":               h.ID,
			"dir":                filepath.Dir(h.ID),
		}))
	}

	p.cache.Add(key, items)
	return cloneItems(items), nil
}

// Refresh implements provider.Provider. An incremental refresh indexes new
// paths and deletes vanished ones; force clears and rebuilds the index.
func (p *Provider) Refresh(ctx context.Context, force bool) error {
	if p.lock != nil {
		if err := p.lock.Lock(); err != nil {
			return err
		}
		defer func() { _ = p.lock.Unlock() }()
	}

	p.mu.Lock()
	defer p.mu.Unlock()
	if p.closed {
		return fmt.Errorf("files provider is closed")
	}
	defer p.cache.Purge()

	report := p.progress
	if report == nil {
		report = func(provider.Progress) {}
	}

	start := time.Now()
	current, err := p.scanner.Scan(ctx, func(n int) {
		report(provider.Progress{Provider: ID, Stage: provider.StageScan, Current: n})
	})
	if err != nil {
		return err
	}
	report(provider.Progress{Provider: ID, Stage: provider.StageScan, Current: len(current), Total: len(current)})

	var added, removed int
	if force {
		if err := p.index.Clear(ctx); err != nil {
			return fmt.Errorf("failed to clear files index: %w", err)
		}
		added, err = p.indexPaths(ctx, current, sortedKeys(current), report)
		if err != nil {
			return err
		}
	} else {
		existing, err := p.index.AllIDs()
		if err != nil {
			return fmt.Errorf("failed to list indexed paths: %w", err)
		}
		known := make(map[string]struct{}, len(existing))
		var stale []string
		for _, id := range existing {
			known[id] = struct{}{}
			if _, ok := current[id]; !ok {
				stale = append(stale, id)
			}
		}
		var fresh []string
		for _, path := range sortedKeys(current) {
			if _, ok := known[path]; !ok {
				fresh = append(fresh, path)
			}
		}

		if len(stale) > 0 {
			if err := p.index.Delete(ctx, stale); err != nil {
				return fmt.Errorf("failed to delete stale paths: %w", err)
			}
		}
		removed = len(stale)
		added, err = p.indexPaths(ctx, current, fresh, report)
		if err != nil {
			return err
		}
	}

	p.logger.Info("files_refreshed",
		slog.Bool("force", force),
		slog.Int("entries", len(current)),
		slog.Int("added", added),
		slog.Int("removed", removed),
		slog.Duration("duration", time.Since(start)))
	return nil
}

func (p *Provider) indexPaths(ctx context.Context, kinds map[string]string, paths []string, report provider.ProgressFunc) (int, error) {
	report(provider.Progress{Provider: ID, Stage: provider.StageIndex, Total: len(paths)})
	for start := 0; start < len(paths); start += batchSize {
		end := min(start+batchSize, len(paths))
		docs := make([]*store.Document, 0, end-start)
		for _, path := range paths[start:end] {
			docs = append(docs, &store.Document{
				ID:      path,
				Content: store.PathContent(path, contextDepth),
				Kind:    kinds[path],
			})
		}
		if err := p.index.Index(ctx, docs); err != nil {
			return start, fmt.Errorf("failed to index paths: %w", err)
		}
		report(provider.Progress{Provider: ID, Stage: provider.StageIndex, Current: end, Total: len(paths)})
	}
	return len(paths), nil
}

// Stats returns the index statistics.
func (p *Provider) Stats() *store.Stats {
	return p.index.Stats()
}

// Close releases the index. Safe to call more than once.
func (p *Provider) Close() error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.closed {
		return nil
	}
	p.closed = true
	return p.index.Close()
}

func cloneItems(items []provider.Item) []provider.Item {
	out := make([]provider.Item, len(items))
	for i, item := range items {
		out[i] = maps.Clone(item)
	}
	return out
}

func sortedKeys(m map[string]string) []string {
	return slices.Sorted(maps.Keys(m))
}
