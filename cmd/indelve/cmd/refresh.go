package cmd

import (
	"context"
	"time"

	"github.com/spf13/cobra"

	"github.com/indelve/indelve/internal/output"
	"github.com/indelve/indelve/internal/ui"
	"github.com/indelve/indelve/pkg/provider"
)

func (a *app) newRefreshCmd() *cobra.Command {
	var (
		force      bool
		noProgress bool
	)

	cmd := &cobra.Command{
		Use:   "refresh",
		Short: "Refresh provider indexes",
		Long: `Ask every enabled provider to bring its data up to date.

Without --force providers update incrementally; the files provider only adds
new paths and removes vanished ones. With --force they rebuild from scratch.

Progress is drawn on stderr: an interactive view on a terminal, plain lines
otherwise.`,
		Example: `  indelve refresh
  indelve refresh --force --providers files`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx, cancel := context.WithCancel(cmd.Context())
			defer cancel()

			o, err := a.newOrchestrator(ctx, cmd.ErrOrStderr())
			if err != nil {
				return err
			}
			defer func() { _ = o.Close() }()

			r := ui.NewRenderer(ui.Config{
				Output:     cmd.ErrOrStderr(),
				ForcePlain: noProgress,
				Interrupt:  cancel,
			})
			if !noProgress {
				for _, p := range o.Providers() {
					if pr, ok := p.(provider.ProgressReporter); ok {
						pr.SetProgress(r.Update)
						defer pr.SetProgress(nil)
					}
				}
			}
			if err := r.Start(ctx); err != nil {
				return err
			}

			start := time.Now()
			err = o.Refresh(ctx, force)
			_ = r.Stop()
			if err != nil {
				return err
			}

			out := output.New(cmd.OutOrStdout())
			out.Successf("Refreshed %d provider(s) in %s",
				len(o.ListProviders()), time.Since(start).Round(time.Millisecond))
			return nil
		},
	}

	cmd.Flags().BoolVar(&force, "force", false, "Rebuild from scratch instead of updating incrementally")
	cmd.Flags().BoolVar(&noProgress, "no-progress", false, "Do not report progress")

	return cmd
}
