package cli

import (
	"context"
	"log/slog"
)

// Reloader is the part of the engine the watch loop drives.
type Reloader interface {
	Watch(ctx context.Context) (<-chan string, error)
	Reload(ctx context.Context) error
}

// WatchAndReload reloads engine on every change its loader reports until ctx is done.
// onReload, when set, runs after each successful reload. A failed reload keeps the
// previous graph and waits for the next change.
func WatchAndReload(ctx context.Context, engine Reloader, logger *slog.Logger, onReload func(changed string)) error {
	changes, err := engine.Watch(ctx)
	if err != nil {
		return err
	}
	logger.Info("Watching graph for changes")

	for {
		select {
		case <-ctx.Done():
			return nil
		case changed, ok := <-changes:
			if !ok {
				return nil
			}
			logger.Info("Change detected, reloading", "changed", changed)
			if err := engine.Reload(ctx); err != nil {
				logger.Error("Reload failed, keeping the previous graph", "err", err)
				continue
			}
			if onReload != nil {
				onReload(changed)
			}
		}
	}
}
