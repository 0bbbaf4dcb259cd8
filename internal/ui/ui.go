// Package ui renders refresh progress: a bubbletea view on interactive
// terminals and plain lines everywhere else.
package ui

import (
	"context"
	"io"
	"os"

	"github.com/indelve/indelve/internal/output"
	"github.com/indelve/indelve/pkg/provider"
)

// Renderer displays refresh progress.
type Renderer interface {
	// Start begins rendering.
	Start(ctx context.Context) error

	// Update records a progress event. Safe for concurrent use.
	Update(ev provider.Progress)

	// Stop ends rendering and restores the terminal.
	Stop() error
}

// Config configures a renderer.
type Config struct {
	Output     io.Writer
	ForcePlain bool
	NoColor    bool
	// Interrupt is called when the user presses ctrl+c inside the
	// interactive view, which swallows the signal.
	Interrupt func()
}

// NewRenderer returns the interactive renderer when Output is a terminal
// outside CI, and the plain renderer otherwise.
func NewRenderer(cfg Config) Renderer {
	if cfg.ForcePlain || !output.IsTTY(cfg.Output) || DetectCI() {
		return NewPlainRenderer(cfg)
	}
	return NewTUIRenderer(cfg)
}

// DetectCI reports whether a CI environment variable is set.
func DetectCI() bool {
	for _, v := range []string{"CI", "GITHUB_ACTIONS", "GITLAB_CI", "JENKINS_URL", "TRAVIS"} {
		if _, ok := os.LookupEnv(v); ok {
			return true
		}
	}
	return false
}

// StageLabel names a refresh stage for display.
func StageLabel(stage string) string {
	switch stage {
	case provider.StageScan:
		return "Scanning"
	case provider.StageIndex:
		return "Indexing"
	default:
		return "Refreshing"
	}
}
