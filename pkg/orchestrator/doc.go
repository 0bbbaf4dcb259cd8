// Package orchestrator loads a set of search providers and fans queries out
// to them, merging every provider's items into one relevance-ordered list.
//
// # Architecture
//
//	┌──────────────────────────────────────────────────────┐
//	│                     Orchestrator                     │
//	│                                                      │
//	│   Registry ──► New() ──► instance table (immutable)  │
//	│                   │                                  │
//	│                   └─► Diagnostics (load warnings)    │
//	│                                                      │
//	│   Search(q) ──► p1 … pN ──► validate ──► Aggregate   │
//	│   Refresh(force) ──► p1 … pN (first error wins)      │
//	└──────────────────────────────────────────────────────┘
//
// # Usage
//
//	reg := provider.NewRegistry()
//	reg.MustRegister(files.Definition(cfg))
//
//	orc, err := orchestrator.New(ctx, reg,
//	    orchestrator.WithProviders([]string{"files", "apps"}),
//	    orchestrator.WithOrder(orchestrator.OrderDescending),
//	)
//	if err != nil {
//	    return err // ERR_602_NO_PROVIDERS when nothing loaded
//	}
//	defer orc.Close()
//
//	for _, d := range orc.Diagnostics() {
//	    log.Printf("skipped %s: %v", d.Provider, d.Err)
//	}
//	items, err := orc.Search(ctx, "firefox")
//
// # Thread Safety
//
// The instance table never changes after New returns, so Search, Refresh and
// the listing methods may be called concurrently. Whether a provider tolerates
// concurrent calls to itself is up to the provider.
package orchestrator
