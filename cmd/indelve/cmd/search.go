package cmd

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/spf13/cobra"

	ierrors "github.com/indelve/indelve/internal/errors"
	"github.com/indelve/indelve/internal/output"
	"github.com/indelve/indelve/pkg/orchestrator"
)

// searchOptions holds CLI flags for search.
type searchOptions struct {
	limit    int
	format   string // "text", "json"
	order    string // "", "ascending", "descending"
	parallel bool
}

func (a *app) newSearchCmd() *cobra.Command {
	var opts searchOptions

	cmd := &cobra.Command{
		Use:   "search <query>",
		Short: "Search every enabled provider",
		Long: `Search every enabled provider and print the merged results.

Each provider decides on its own whether the query applies to it; providers
that do not understand the query contribute nothing. Results are sorted by
relevance, most relevant first unless configured otherwise.

Examples:
  indelve search budget report
  indelve search "2 * (3 + 4)"
  indelve search firefox --providers apps
  indelve search notes --limit 5 --format json`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			query := strings.Join(args, " ")
			return a.runSearch(cmd.Context(), cmd, query, opts)
		},
	}

	cmd.Flags().IntVarP(&opts.limit, "limit", "n", -1, "Maximum number of results, 0 for all (default: search.limit)")
	cmd.Flags().StringVarP(&opts.format, "format", "f", "text", "Output format: text, json")
	cmd.Flags().StringVar(&opts.order, "order", "", "Relevance order: ascending, descending (default: search.order)")
	cmd.Flags().BoolVar(&opts.parallel, "parallel", false, "Query providers concurrently")

	return cmd
}

func (a *app) runSearch(ctx context.Context, cmd *cobra.Command, query string, opts searchOptions) error {
	format, err := output.ParseFormat(opts.format)
	if err != nil {
		return ierrors.ValidationError(err.Error(), err)
	}

	var extra []orchestrator.Option
	if opts.order != "" {
		parsed, ok := orchestrator.ParseOrder(strings.ToLower(opts.order))
		if !ok {
			return ierrors.ValidationError(
				fmt.Sprintf("invalid --order %q", opts.order), nil).
				WithSuggestion("Use ascending or descending")
		}
		extra = append(extra, orchestrator.WithOrder(parsed))
	}
	if cmd.Flags().Changed("parallel") {
		extra = append(extra, orchestrator.WithParallel(opts.parallel))
	}

	limit := opts.limit
	if limit < 0 {
		limit = a.cfg.Search.Limit
	}

	o, err := a.newOrchestrator(ctx, cmd.ErrOrStderr(), extra...)
	if err != nil {
		return err
	}
	defer func() { _ = o.Close() }()

	start := time.Now()
	items, err := o.Search(ctx, query)
	if err != nil {
		return err
	}
	total := len(items)
	items = orchestrator.Top(items, limit, o.Order())

	a.logger.Info("cli_search",
		slog.String("query", query),
		slog.Int("results", total),
		slog.Int("shown", len(items)),
		slog.Duration("duration", time.Since(start)))

	out := output.New(cmd.OutOrStdout())
	if format == output.FormatJSON {
		return out.ItemsJSON(items)
	}
	out.Items(items)
	return nil
}
