// Package providers declares the bundled search providers.
package providers

import (
	"log/slog"

	"github.com/indelve/indelve/internal/config"
	"github.com/indelve/indelve/internal/providers/apps"
	"github.com/indelve/indelve/internal/providers/calc"
	"github.com/indelve/indelve/internal/providers/files"
	"github.com/indelve/indelve/pkg/provider"
)

// Manifest returns a registry holding the bundled providers, in order:
// files, apps, calc. Factories run only when an orchestrator loads them.
func Manifest(cfg *config.Config, logger *slog.Logger) *provider.Registry {
	if cfg == nil {
		cfg = config.NewConfig()
	}
	if logger == nil {
		logger = slog.Default()
	}

	reg := provider.NewRegistry()
	reg.MustRegister(provider.Definition{
		ID:          files.ID,
		Description: files.Description,
		New:         files.Factory(cfg.Providers.Files, logger.With(slog.String("provider", files.ID))),
	})
	reg.MustRegister(provider.Definition{
		ID:          apps.ID,
		Description: apps.Description,
		New:         apps.Factory(cfg.Providers.Apps, logger.With(slog.String("provider", apps.ID))),
	})
	reg.MustRegister(provider.Definition{
		ID:          calc.ID,
		Description: calc.Description,
		New:         calc.Factory(cfg.CalcTimeout()),
	})
	return reg
}
