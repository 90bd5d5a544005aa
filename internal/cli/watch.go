package cli

import (
	"context"
	"errors"
	"fmt"
	"io"

	"github.com/aretw0/weave"
	"github.com/aretw0/weave/pkg/ports"
)

// Watch runs the worker node once and again every time the graph
// definition changes, until ctx is done. Failed runs are reported and
// do not stop the watcher.
func Watch(ctx context.Context, app *weave.App, opts RunOptions, out io.Writer) error {
	src, err := OpenSource(opts.Path)
	if err != nil {
		return err
	}
	watchable, ok := src.(ports.Watchable)
	if !ok {
		return fmt.Errorf("watch requires a graph directory, got %s", opts.Path)
	}
	changes, err := watchable.Watch(ctx)
	if err != nil {
		return err
	}

	logger := app.Logger()
	logger.Info("Starting Watcher", "path", opts.Path)
	printSystemMessage(out, "Watching %s.", opts.Path)

	for {
		g, err := src.Load(ctx)
		if err != nil {
			printSystemMessage(out, "Load failed: %v", err)
		} else if _, err := RunOnce(ctx, app, g, opts, out); err != nil && !errors.Is(err, context.Canceled) {
			printSystemMessage(out, "Run failed: %v", err)
		}

		select {
		case <-ctx.Done():
			printSystemMessage(out, "Watcher stopped.")
			return nil
		case _, ok := <-changes:
			if !ok {
				return nil
			}
			logger.Info("Graph changed, reloading", "path", opts.Path)
			printSystemMessage(out, "Change detected, running again.")
		}
	}
}
