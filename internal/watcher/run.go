package watcher

import (
	"context"
	"errors"
	"log/slog"
	"time"
)

// Refresher is the target of a watch: usually an orchestrator.
type Refresher interface {
	Refresh(ctx context.Context, force bool) error
}

// Run starts w on roots and performs an incremental refresh of target after
// every event batch. It returns nil when ctx is cancelled. Refresh errors are
// logged and the watch continues.
func Run(ctx context.Context, w *Watcher, roots []string, target Refresher, logger *slog.Logger) error {
	if logger == nil {
		logger = slog.Default()
	}

	startErr := make(chan error, 1)
	go func() {
		startErr <- w.Start(ctx, roots...)
	}()

	errs := w.Errors()
	for {
		select {
		case <-ctx.Done():
			_ = w.Stop()
			logger.Info("watch_stopped", slog.Uint64("dropped_batches", w.DroppedBatches()))
			return nil
		case err := <-startErr:
			if err == nil || errors.Is(err, context.Canceled) {
				return nil
			}
			return err
		case batch, ok := <-w.Events():
			if !ok {
				return nil
			}
			start := time.Now()
			if err := target.Refresh(ctx, false); err != nil {
				if ctx.Err() != nil {
					return nil
				}
				logger.Warn("watch_refresh_failed",
					slog.Int("events", len(batch)),
					slog.String("error", err.Error()))
				continue
			}
			logger.Info("watch_refresh",
				slog.Int("events", len(batch)),
				slog.Duration("duration", time.Since(start)))
		case err, ok := <-errs:
			if !ok {
				errs = nil
				continue
			}
			logger.Warn("watch_error", slog.String("error", err.Error()))
		}
	}
}
