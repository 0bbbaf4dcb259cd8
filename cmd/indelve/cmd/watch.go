package cmd

import (
	"slices"

	"github.com/spf13/cobra"

	ierrors "github.com/indelve/indelve/internal/errors"
	"github.com/indelve/indelve/internal/output"
	"github.com/indelve/indelve/internal/watcher"
	"github.com/indelve/indelve/pkg/provider"
)

// Optional provider capabilities used to decide what to watch.
type (
	rootsProvider interface{ Roots() []string }
	dirsProvider  interface{ Dirs() []string }
	pathIgnorer   interface {
		Ignored(path string, isDir bool) bool
	}
)

func (a *app) newWatchCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "watch",
		Short: "Keep provider data fresh while files change",
		Long: `Refresh once, then watch the directories the providers read from and
refresh incrementally after every burst of changes. Runs until interrupted.

The debounce interval is watch.debounce in the configuration.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx := cmd.Context()
			o, err := a.newOrchestrator(ctx, cmd.ErrOrStderr())
			if err != nil {
				return err
			}
			defer func() { _ = o.Close() }()

			roots, ignore := watchTargets(o.Providers())
			if len(roots) == 0 {
				return ierrors.ValidationError("no loaded provider has directories to watch", nil).
					WithSuggestion("Enable the files or apps provider")
			}

			if err := o.Refresh(ctx, false); err != nil {
				return err
			}

			w, err := watcher.New(watcher.Options{
				Debounce: a.cfg.WatchDebounce(),
				Ignore:   ignore,
				Logger:   a.logger,
			})
			if err != nil {
				return ierrors.InternalError("failed to create watcher", err)
			}

			out := output.New(cmd.ErrOrStderr())
			out.Statusf("", "Watching %d director(ies), press Ctrl+C to stop", len(roots))

			return watcher.Run(ctx, w, roots, o, a.logger)
		},
	}
}

// watchTargets collects the sorted, de-duplicated directories of the loaded
// providers and the combined ignore rule.
func watchTargets(loaded map[string]provider.Provider) ([]string, watcher.IgnoreFunc) {
	var (
		roots    []string
		ignorers []pathIgnorer
	)
	for _, p := range loaded {
		if rp, ok := p.(rootsProvider); ok {
			roots = append(roots, rp.Roots()...)
		}
		if dp, ok := p.(dirsProvider); ok {
			roots = append(roots, dp.Dirs()...)
		}
		if ig, ok := p.(pathIgnorer); ok {
			ignorers = append(ignorers, ig)
		}
	}
	slices.Sort(roots)
	roots = slices.Compact(roots)

	if len(ignorers) == 0 {
		return roots, nil
	}
	// a path is ignored only when every provider that filters ignores it
	return roots, func(path string, isDir bool) bool {
		for _, ig := range ignorers {
			if !ig.Ignored(path, isDir) {
				return false
			}
		}
		return true
	}
}
