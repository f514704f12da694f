package pattern

import (
	"context"
	"log/slog"

	"mercator-hq/veil/pkg/watch"
)

// Watch reloads recognizers from path whenever the file changes, until ctx
// is cancelled. A file that fails to parse is logged and the previous rules
// stay active.
func (d *Detector) Watch(ctx context.Context, path string) error {
	fw, err := watch.New(path, 0, slog.Default().With("component", "detector.pattern"))
	if err != nil {
		return err
	}
	defer fw.Stop()

	return fw.Watch(ctx, func() error {
		return d.LoadFile(path)
	})
}
