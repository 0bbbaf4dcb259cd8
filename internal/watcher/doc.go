// Package watcher keeps provider indexes current while `indelve watch` runs.
//
// A Watcher follows one or more directory trees with fsnotify, adding new
// subdirectories as they appear. Events are debounced per path and
// delivered in batches; Run turns every batch into an incremental
// Refresh of the target.
//
// Usage:
//
//	w, err := watcher.New(watcher.Options{Debounce: cfg.WatchDebounce()})
//	if err != nil {
//	    return err
//	}
//	defer w.Stop()
//
//	return watcher.Run(ctx, w, roots, orch, logger)
package watcher
