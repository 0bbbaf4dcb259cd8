package orchestrator

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"maps"
	"time"

	"golang.org/x/sync/errgroup"

	ierrors "github.com/indelve/indelve/internal/errors"
	"github.com/indelve/indelve/pkg/provider"
)

// Diagnostic records a provider that was requested but skipped at load time.
type Diagnostic struct {
	Provider string
	Err      error
}

// entry is one loaded provider.
type entry struct {
	id       string
	provider provider.Provider
}

// Orchestrator owns the loaded providers and merges their results.
type Orchestrator struct {
	registry    *provider.Registry
	requested   []string
	logger      *slog.Logger
	order       Order
	parallel    bool
	table       []entry
	diagnostics []Diagnostic
}

// New loads the requested providers from reg.
//
// Unknown ids and factories failing with provider.ErrUnavailable are skipped
// and recorded as diagnostics. Any other factory error aborts construction and
// is returned unchanged. If nothing loads, New returns ERR_602_NO_PROVIDERS
// with the diagnostics joined into its cause.
func New(ctx context.Context, reg *provider.Registry, opts ...Option) (*Orchestrator, error) {
	o := &Orchestrator{
		registry: reg,
		logger:   slog.Default(),
		order:    OrderAscending,
	}
	for _, opt := range opts {
		opt(o)
	}

	if reg == nil {
		return nil, ierrors.ValidationError("registry must not be nil", nil)
	}
	if o.requested == nil {
		o.requested = reg.List()
	}
	if err := validateIDs(o.requested); err != nil {
		return nil, err
	}

	if err := o.load(ctx); err != nil {
		return nil, err
	}

	if len(o.table) == 0 {
		causes := make([]error, 0, len(o.diagnostics))
		for _, d := range o.diagnostics {
			causes = append(causes, d.Err)
		}
		return nil, ierrors.NoProvidersError(errors.Join(causes...)).
			WithDetail("requested", fmt.Sprint(o.requested))
	}

	o.logger.Info("orchestrator_ready",
		slog.Any("providers", o.ListProviders()),
		slog.Int("skipped", len(o.diagnostics)),
		slog.String("order", o.order.String()),
		slog.Bool("parallel", o.parallel))
	return o, nil
}

func validateIDs(ids []string) error {
	seen := make(map[string]struct{}, len(ids))
	for i, id := range ids {
		if id == "" {
			return ierrors.ValidationError(fmt.Sprintf("provider id at position %d is empty", i), nil)
		}
		if _, dup := seen[id]; dup {
			return ierrors.ValidationError(fmt.Sprintf("provider %q requested twice", id), nil)
		}
		seen[id] = struct{}{}
	}
	return nil
}

func (o *Orchestrator) load(ctx context.Context) error {
	for _, id := range o.requested {
		def, ok := o.registry.Lookup(id)
		if !ok {
			o.warn(id, ierrors.ProviderLoadWarning(id, fmt.Errorf("unknown provider")))
			continue
		}

		p, err := def.New(ctx)
		if err != nil {
			if errors.Is(err, provider.ErrUnavailable) {
				o.warn(id, ierrors.ProviderLoadWarning(id, err))
				continue
			}
			o.closeAll()
			return err
		}
		if p == nil {
			o.closeAll()
			return ierrors.InternalError(fmt.Sprintf("provider %q factory returned nil", id), nil)
		}

		o.table = append(o.table, entry{id: id, provider: p})
		o.logger.Debug("provider_loaded", slog.String("provider", id))
	}
	return nil
}

func (o *Orchestrator) warn(id string, err error) {
	o.diagnostics = append(o.diagnostics, Diagnostic{Provider: id, Err: err})
	o.logger.Warn("provider_skipped",
		slog.String("provider", id),
		slog.String("error", err.Error()))
}

// Refresh re-synchronizes every loaded provider in table order.
// The first provider error is returned as is.
func (o *Orchestrator) Refresh(ctx context.Context, force bool) error {
	start := time.Now()
	for _, e := range o.table {
		if err := e.provider.Refresh(ctx, force); err != nil {
			return err
		}
	}
	o.logger.Info("refresh_complete",
		slog.Bool("force", force),
		slog.Int("providers", len(o.table)),
		slog.Duration("duration", time.Since(start)))
	return nil
}

// Search sends query to every loaded provider and returns the merged items
// sorted by relevance.
//
// A provider returning provider.ErrInvalidInput contributes nothing. Any other
// provider error is returned as is. Items without a numeric relevance fail
// the whole call with ERR_507_MALFORMED_ITEM.
func (o *Orchestrator) Search(ctx context.Context, query string) ([]provider.Item, error) {
	if query == "" {
		return nil, ierrors.New(ierrors.ErrCodeQueryEmpty, "query must not be empty", nil)
	}

	start := time.Now()
	var (
		lists [][]provider.Item
		err   error
	)
	if o.parallel && len(o.table) > 1 {
		lists, err = o.searchParallel(ctx, query)
	} else {
		lists, err = o.searchSequential(ctx, query)
	}
	if err != nil {
		return nil, err
	}

	items := Aggregate(o.order, lists...)
	o.logger.Debug("search_complete",
		slog.String("query", query),
		slog.Int("items", len(items)),
		slog.Duration("duration", time.Since(start)))
	return items, nil
}

func (o *Orchestrator) searchSequential(ctx context.Context, query string) ([][]provider.Item, error) {
	lists := make([][]provider.Item, len(o.table))
	for i, e := range o.table {
		items, err := o.searchOne(ctx, e, query)
		if err != nil {
			return nil, err
		}
		lists[i] = items
	}
	return lists, nil
}

func (o *Orchestrator) searchParallel(ctx context.Context, query string) ([][]provider.Item, error) {
	lists := make([][]provider.Item, len(o.table))

	g, gctx := errgroup.WithContext(ctx)
	for i, e := range o.table {
		g.Go(func() error {
			items, err := o.searchOne(gctx, e, query)
			if err != nil {
				return err
			}
			lists[i] = items
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return lists, nil
}

// searchOne queries a single provider and validates its items.
func (o *Orchestrator) searchOne(ctx context.Context, e entry, query string) ([]provider.Item, error) {
	items, err := e.provider.Search(ctx, query)
	if err != nil {
		if errors.Is(err, provider.ErrInvalidInput) {
			o.logger.Debug("query_not_applicable",
				slog.String("provider", e.id),
				slog.String("reason", err.Error()))
			return nil, nil
		}
		return nil, err
	}

	out := make([]provider.Item, len(items))
	for i, item := range items {
		if verr := item.Validate(); verr != nil {
			return nil, ierrors.New(ierrors.ErrCodeMalformedItem,
				fmt.Sprintf("provider %q returned a malformed item at index %d", e.id, i), verr).
				WithDetail("provider", e.id)
		}
		if _, ok := item[provider.KeyProvider]; !ok {
			item = maps.Clone(item)
			item[provider.KeyProvider] = e.id
		}
		out[i] = item
	}

	o.logger.Debug("provider_answered", slog.String("provider", e.id), slog.Int("items", len(out)))
	return out, nil
}

// ListProviders returns the ids of the loaded providers in table order.
func (o *Orchestrator) ListProviders() []string {
	ids := make([]string, len(o.table))
	for i, e := range o.table {
		ids[i] = e.id
	}
	return ids
}

// ProviderDescriptions returns the description of every loaded provider.
// Malformed descriptions are left out and reported in the joined error.
func (o *Orchestrator) ProviderDescriptions() (map[string]provider.Description, error) {
	out := make(map[string]provider.Description, len(o.table))
	var errs []error
	for _, e := range o.table {
		d, err := o.ProviderDescription(e.id)
		if err != nil {
			errs = append(errs, err)
			continue
		}
		out[e.id] = d
	}
	return out, errors.Join(errs...)
}

// ProviderDescription returns the live description of a loaded provider, or
// of a declared one when it is not loaded.
func (o *Orchestrator) ProviderDescription(id string) (provider.Description, error) {
	for _, e := range o.table {
		if e.id != id {
			continue
		}
		d := e.provider.Description()
		if err := d.Validate(); err != nil {
			return provider.Description{}, fmt.Errorf("provider %q: %w", id, err)
		}
		return d, nil
	}
	return o.registry.Description(id)
}

// Providers returns the loaded provider instances keyed by id.
func (o *Orchestrator) Providers() map[string]provider.Provider {
	out := make(map[string]provider.Provider, len(o.table))
	for _, e := range o.table {
		out[e.id] = e.provider
	}
	return out
}

// Order returns the sort direction of Search results.
func (o *Orchestrator) Order() Order {
	return o.order
}

// Diagnostics returns the load warnings recorded by New.
func (o *Orchestrator) Diagnostics() []Diagnostic {
	return append([]Diagnostic(nil), o.diagnostics...)
}

// Close releases every provider implementing io.Closer, in reverse table
// order. All providers are closed even if one fails.
func (o *Orchestrator) Close() error {
	var errs []error
	for i := len(o.table) - 1; i >= 0; i-- {
		if c, ok := o.table[i].provider.(io.Closer); ok {
			if err := c.Close(); err != nil {
				errs = append(errs, fmt.Errorf("close %s: %w", o.table[i].id, err))
			}
		}
	}
	return errors.Join(errs...)
}

func (o *Orchestrator) closeAll() {
	_ = o.Close()
	o.table = nil
}
