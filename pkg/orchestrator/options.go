package orchestrator

import "log/slog"

// Order is the direction results are sorted by relevance.
type Order int

const (
	// OrderAscending puts the least relevant item first.
	OrderAscending Order = iota
	// OrderDescending puts the most relevant item first.
	OrderDescending
)

// String returns the config spelling of the order.
func (o Order) String() string {
	if o == OrderDescending {
		return "descending"
	}
	return "ascending"
}

// ParseOrder converts "ascending"/"asc" or "descending"/"desc".
func ParseOrder(s string) (Order, bool) {
	switch s {
	case "ascending", "asc":
		return OrderAscending, true
	case "descending", "desc":
		return OrderDescending, true
	default:
		return OrderAscending, false
	}
}

// Option configures an Orchestrator.
type Option func(*Orchestrator)

// WithProviders selects the providers to load, in order.
// A nil slice loads every provider of the registry.
func WithProviders(ids []string) Option {
	return func(o *Orchestrator) {
		if ids != nil {
			o.requested = append([]string{}, ids...)
		}
	}
}

// WithLogger sets the logger used for load warnings and search tracing.
func WithLogger(logger *slog.Logger) Option {
	return func(o *Orchestrator) {
		if logger != nil {
			o.logger = logger
		}
	}
}

// WithOrder sets the sort direction. The default is OrderAscending.
func WithOrder(order Order) Option {
	return func(o *Orchestrator) {
		o.order = order
	}
}

// WithParallel queries providers concurrently. Output is identical to the
// sequential mode.
func WithParallel(parallel bool) Option {
	return func(o *Orchestrator) {
		o.parallel = parallel
	}
}
