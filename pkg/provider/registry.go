package provider

import (
	"context"
	"errors"
	"fmt"
	"regexp"
	"sync"

	ierrors "github.com/indelve/indelve/internal/errors"
)

// Factory creates a provider instance. It returns an error matching
// ErrUnavailable when the provider cannot run in this deployment; any other
// error is treated as a defect in the provider.
type Factory func(ctx context.Context) (Provider, error)

// Definition declares one provider: its identifier, its static description
// and how to build it.
type Definition struct {
	ID          string
	Description Description
	New         Factory
}

var idRe = regexp.MustCompile(`^[a-z][a-z0-9_-]*$`)

// Registry is the declared set of providers, in registration order.
// It is safe for concurrent use.
type Registry struct {
	mu    sync.RWMutex
	order []string
	defs  map[string]Definition
}

// NewRegistry creates an empty registry.
func NewRegistry() *Registry {
	return &Registry{defs: make(map[string]Definition)}
}

// Register adds a definition. IDs must be lowercase, start with a letter and
// be unique; the factory must not be nil.
func (r *Registry) Register(def Definition) error {
	if !idRe.MatchString(def.ID) {
		return ierrors.ValidationError(
			fmt.Sprintf("invalid provider id %q: must match %s", def.ID, idRe.String()), nil)
	}
	if def.New == nil {
		return ierrors.ValidationError(fmt.Sprintf("provider %q has no factory", def.ID), nil)
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.defs[def.ID]; exists {
		return ierrors.ValidationError(fmt.Sprintf("provider %q already registered", def.ID), nil)
	}
	r.defs[def.ID] = def
	r.order = append(r.order, def.ID)
	return nil
}

// MustRegister is like Register but panics on error. Intended for static
// manifests.
func (r *Registry) MustRegister(def Definition) {
	if err := r.Register(def); err != nil {
		panic(err)
	}
}

// List returns the declared identifiers in registration order.
// It does not instantiate anything.
func (r *Registry) List() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]string, len(r.order))
	copy(out, r.order)
	return out
}

// Lookup returns the definition registered under id.
func (r *Registry) Lookup(id string) (Definition, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	def, ok := r.defs[id]
	return def, ok
}

// Description returns the static description of one provider.
// Unknown ids yield a provider-load error; malformed descriptions yield a
// malformed-description error.
func (r *Registry) Description(id string) (Description, error) {
	def, ok := r.Lookup(id)
	if !ok {
		return Description{}, ierrors.New(ierrors.ErrCodeProviderLoad,
			fmt.Sprintf("unknown provider %q", id), nil).WithDetail("provider", id)
	}
	if err := def.Description.Validate(); err != nil {
		return Description{}, fmt.Errorf("provider %q: %w", id, err)
	}
	return def.Description, nil
}

// Descriptions returns the description of every declared provider.
// A failing entry is left out of the map and its error joined into the
// returned error; the remaining entries are still enumerated.
func (r *Registry) Descriptions() (map[string]Description, error) {
	ids := r.List()
	out := make(map[string]Description, len(ids))
	var errs []error
	for _, id := range ids {
		d, err := r.Description(id)
		if err != nil {
			errs = append(errs, err)
			continue
		}
		out[id] = d
	}
	return out, errors.Join(errs...)
}
