// Package apps provides the "apps" search provider: fuzzy search over
// installed desktop applications.
package apps

import (
	"context"
	"fmt"
	"log/slog"
	"maps"
	"os"
	"sort"
	"strings"
	"sync"
	"time"

	lru "github.com/hashicorp/golang-lru/v2"
	"github.com/sahilm/fuzzy"

	"github.com/indelve/indelve/internal/config"
	"github.com/indelve/indelve/pkg/provider"
)

// ID is the provider identifier.
const ID = "apps"

// KindApplication is the item kind of every apps result.
const KindApplication = "application"

const queryCacheSize = 128

// Description is the apps provider's static metadata.
var Description = provider.Description{
	Short: "Applications",
	Long:  "Launchable desktop applications found in the XDG applications directories.",
}

// candidate is one searchable string and the entry it belongs to.
type candidate struct {
	text  string
	entry int
}

type candidates []candidate

func (c candidates) String(i int) string { return c[i].text }
func (c candidates) Len() int            { return len(c) }

// Provider searches desktop entries.
type Provider struct {
	dirs       []string
	maxResults int
	cache      *lru.Cache[string, []provider.Item]
	logger     *slog.Logger

	mu         sync.RWMutex
	entries    []Entry
	candidates candidates
	generation uint64 // incremented by every load
}

// New loads desktop entries from cfg.Dirs, or the XDG application
// directories when empty. It returns an error matching
// provider.ErrUnavailable when no directory exists.
func New(ctx context.Context, cfg config.AppsConfig, logger *slog.Logger) (*Provider, error) {
	if logger == nil {
		logger = slog.Default()
	}

	configured := config.ExpandHomeAll(cfg.Dirs)
	if len(configured) == 0 {
		configured = DefaultDirs()
	}
	var dirs []string
	for _, d := range configured {
		if info, err := os.Stat(d); err == nil && info.IsDir() {
			dirs = append(dirs, d)
		}
	}
	if len(dirs) == 0 {
		return nil, provider.Unavailable("no application directory exists (looked in: %s)", strings.Join(configured, ", "))
	}

	cache, err := lru.New[string, []provider.Item](queryCacheSize)
	if err != nil {
		return nil, fmt.Errorf("failed to create query cache: %w", err)
	}

	p := &Provider{
		dirs:       dirs,
		maxResults: cfg.MaxResults,
		cache:      cache,
		logger:     logger,
	}
	if p.maxResults <= 0 {
		p.maxResults = 20
	}
	if err := p.load(ctx); err != nil {
		return nil, err
	}
	return p, nil
}

// Factory returns a registry factory for cfg.
func Factory(cfg config.AppsConfig, logger *slog.Logger) provider.Factory {
	return func(ctx context.Context) (provider.Provider, error) {
		return New(ctx, cfg, logger)
	}
}

// Description implements provider.Provider.
func (p *Provider) Description() provider.Description {
	return Description
}

// Dirs returns the application directories in priority order.
func (p *Provider) Dirs() []string {
	return append([]string(nil), p.dirs...)
}

func (p *Provider) load(ctx context.Context) error {
	start := time.Now()
	entries, err := LoadEntries(ctx, p.dirs, func(path string, err error) {
		p.logger.Debug("desktop_entry_skipped", slog.String("path", path), slog.String("error", err.Error()))
	})
	if err != nil {
		return err
	}

	var cands candidates
	for i, e := range entries {
		cands = append(cands, candidate{text: strings.ToLower(e.Name), entry: i})
		if e.GenericName != "" {
			cands = append(cands, candidate{text: strings.ToLower(e.GenericName), entry: i})
		}
		for _, kw := range e.Keywords {
			cands = append(cands, candidate{text: strings.ToLower(kw), entry: i})
		}
	}

	p.mu.Lock()
	p.entries = entries
	p.candidates = cands
	p.generation++
	p.cache.Purge()
	p.mu.Unlock()

	p.logger.Debug("apps_loaded",
		slog.Int("entries", len(entries)),
		slog.Int("dirs", len(p.dirs)),
		slog.Duration("duration", time.Since(start)))
	return nil
}

// Refresh implements provider.Provider by re-reading the directories.
// Incremental and forced refreshes do the same work.
func (p *Provider) Refresh(ctx context.Context, _ bool) error {
	return p.load(ctx)
}

// Search implements provider.Provider. Queries that look like paths are not
// applicable. Relevance is the fuzzy score scaled into (0, 1] with the best
// match at 1.
func (p *Provider) Search(_ context.Context, query string) ([]provider.Item, error) {
	q := strings.ToLower(strings.TrimSpace(query))
	if q == "" {
		return nil, provider.InvalidInput("blank query")
	}
	if strings.Contains(q, "/") {
		return nil, provider.InvalidInput("query %q looks like a path", query)
	}

	if cached, ok := p.cache.Get(q); ok {
		return cloneItems(cached), nil
	}

	items, generation := p.rank(q)
	p.remember(q, items, generation)
	return cloneItems(items), nil
}

// rank scores the entries against q and returns the items with the load
// generation they were computed from.
func (p *Provider) rank(q string) ([]provider.Item, uint64) {
	p.mu.RLock()
	matches := fuzzy.FindFrom(q, p.candidates)
	best := make(map[int]int)
	for _, m := range matches {
		idx := p.candidates[m.Index].entry
		if score, seen := best[idx]; !seen || m.Score > score {
			best[idx] = m.Score
		}
	}
	entries := p.entries
	generation := p.generation
	p.mu.RUnlock()

	ranked := make([]int, 0, len(best))
	for idx := range best {
		ranked = append(ranked, idx)
	}
	sort.Slice(ranked, func(i, j int) bool {
		a, b := ranked[i], ranked[j]
		if best[a] != best[b] {
			return best[a] > best[b]
		}
		return entries[a].Name < entries[b].Name
	})
	if len(ranked) > p.maxResults {
		ranked = ranked[:p.maxResults]
	}

	items := make([]provider.Item, 0, len(ranked))
	if len(ranked) > 0 {
		hi, lo := best[ranked[0]], best[ranked[len(ranked)-1]]
		for _, idx := range ranked {
			e := entries[idx]
			relevance := float64(best[idx]-lo+1) / float64(hi-lo+1)
			items = append(items, provider.NewItem(relevance, map[string]any{
				provider.KeyProvider: ID,
				provider.KeyTitle:    e.Name,
				provider.KeyKind:     KindApplication,
				"comment":            e.Comment,
				"exec":               e.Exec,
				"path":               e.Path,
			}))
		}
	}
	return items, generation
}

// remember caches items for q unless a load replaced the entries after
// they were ranked.
func (p *Provider) remember(q string, items []provider.Item, generation uint64) {
	p.mu.RLock()
	defer p.mu.RUnlock()
	if p.generation == generation {
		p.cache.Add(q, items)
	}
}

func cloneItems(items []provider.Item) []provider.Item {
	out := make([]provider.Item, len(items))
	for i, item := range items {
		out[i] = maps.Clone(item)
	}
	return out
}
