// Package providertest provides a configurable in-memory provider for tests.
package providertest

import (
	"context"
	"sync"

	"github.com/indelve/indelve/pkg/provider"
)

// Stub is a provider whose behaviour is fixed at construction time.
// It records every call so tests can assert on them.
type Stub struct {
	Desc  provider.Description
	Items []provider.Item

	// SearchErr, when set, is returned by Search instead of Items.
	SearchErr error
	// RefreshErr, when set, is returned by Refresh.
	RefreshErr error
	// OnSearch, when set, runs before Search returns.
	OnSearch func(query string)

	mu        sync.Mutex
	queries   []string
	refreshes []bool
	closed    bool
	progress  provider.ProgressFunc
}

// New returns a stub that answers every query with items of the given
// relevances, in order.
func New(name string, relevances ...float64) *Stub {
	items := make([]provider.Item, 0, len(relevances))
	for _, r := range relevances {
		items = append(items, provider.NewItem(r, map[string]any{provider.KeyTitle: name}))
	}
	return &Stub{
		Desc:  provider.Description{Short: name, Long: "stub provider " + name},
		Items: items,
	}
}

// Description implements provider.Provider.
func (s *Stub) Description() provider.Description { return s.Desc }

// Search implements provider.Provider.
func (s *Stub) Search(_ context.Context, query string) ([]provider.Item, error) {
	s.mu.Lock()
	s.queries = append(s.queries, query)
	s.mu.Unlock()

	if s.OnSearch != nil {
		s.OnSearch(query)
	}
	if s.SearchErr != nil {
		return nil, s.SearchErr
	}

	out := make([]provider.Item, len(s.Items))
	copy(out, s.Items)
	return out, nil
}

// Refresh implements provider.Provider. It reports a single completed
// index stage, named after Desc.Short, when a progress func is set.
func (s *Stub) Refresh(_ context.Context, force bool) error {
	s.mu.Lock()
	s.refreshes = append(s.refreshes, force)
	report := s.progress
	s.mu.Unlock()

	if report != nil && s.RefreshErr == nil {
		report(provider.Progress{Provider: s.Desc.Short, Stage: provider.StageIndex, Current: 1, Total: 1})
	}
	return s.RefreshErr
}

// SetProgress implements provider.ProgressReporter.
func (s *Stub) SetProgress(fn provider.ProgressFunc) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.progress = fn
}

// Close records teardown.
func (s *Stub) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.closed = true
	return nil
}

// Queries returns the queries seen so far.
func (s *Stub) Queries() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]string(nil), s.queries...)
}

// Refreshes returns the force flags of every Refresh call.
func (s *Stub) Refreshes() []bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]bool(nil), s.refreshes...)
}

// Closed reports whether Close was called.
func (s *Stub) Closed() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.closed
}

// Definition wraps a provider value in a registry definition whose factory
// always returns p.
func Definition(id string, p provider.Provider) provider.Definition {
	return provider.Definition{
		ID:          id,
		Description: p.Description(),
		New:         func(context.Context) (provider.Provider, error) { return p, nil },
	}
}

// Failing returns a definition whose factory fails with err.
func Failing(id string, err error) provider.Definition {
	return provider.Definition{
		ID:          id,
		Description: provider.Description{Short: id, Long: "always fails to load"},
		New:         func(context.Context) (provider.Provider, error) { return nil, err },
	}
}
