package config

import (
	"context"
	"log/slog"

	"mercator-hq/veil/pkg/watch"
)

// Watch reloads the global configuration whenever the file at path changes
// and passes each successfully loaded configuration to onChange, which may
// be nil. A file that fails to load or validate is logged and the previous
// configuration stays active. Watch blocks until ctx is cancelled.
//
// Only settings read per request pick up a reload; listener, vault and
// storage settings need a restart.
func Watch(ctx context.Context, path string, onChange func(*Config)) error {
	logger := slog.Default().With("component", "config.watcher")

	fw, err := watch.New(path, 0, logger)
	if err != nil {
		return err
	}
	defer fw.Stop()

	return fw.Watch(ctx, func() error {
		if err := ReloadConfig(path); err != nil {
			return err
		}
		if onChange != nil {
			onChange(GetConfig())
		}
		return nil
	})
}
