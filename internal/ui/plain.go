package ui

import (
	"context"
	"fmt"
	"io"
	"sync"

	"github.com/indelve/indelve/pkg/provider"
)

// PlainRenderer prints one line when a provider enters a stage and one when
// the stage completes. Intermediate counts are dropped so pipes and log
// files stay short.
type PlainRenderer struct {
	mu   sync.Mutex
	out  io.Writer
	last map[string]provider.Progress
}

// NewPlainRenderer creates a plain renderer writing to cfg.Output.
func NewPlainRenderer(cfg Config) *PlainRenderer {
	out := cfg.Output
	if out == nil {
		out = io.Discard
	}
	return &PlainRenderer{out: out, last: make(map[string]provider.Progress)}
}

// Start implements Renderer.
func (r *PlainRenderer) Start(context.Context) error {
	return nil
}

// Update implements Renderer.
func (r *PlainRenderer) Update(ev provider.Progress) {
	r.mu.Lock()
	defer r.mu.Unlock()

	prev, seen := r.last[ev.Provider]
	r.last[ev.Provider] = ev

	if !seen || prev.Stage != ev.Stage {
		_, _ = fmt.Fprintf(r.out, "[%s] %s...\n", ev.Provider, StageLabel(ev.Stage))
	}
	if ev.Total > 0 && ev.Current == ev.Total && prev != ev {
		_, _ = fmt.Fprintf(r.out, "[%s] %s: %d/%d\n", ev.Provider, StageLabel(ev.Stage), ev.Current, ev.Total)
	}
}

// Stop implements Renderer.
func (r *PlainRenderer) Stop() error {
	return nil
}
