package watch

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/fsnotify/fsnotify"
)

// Debounce is how long a burst of events must stay quiet before the file is
// read again, so half-written files are not picked up.
var Debounce = 10 * time.Millisecond

// Watch calls fn with the file's contents once immediately and again after
// every change, until ctx is cancelled.
func Watch(ctx context.Context, path string, fn func(source string)) error {
	path = filepath.Clean(path)
	reread := func() {
		data, err := os.ReadFile(path)
		if err != nil {
			slog.Warn("watched file unreadable", slog.String("path", path), slog.Any("error", err))
			return
		}
		fn(string(data))
	}

	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("watch: %w", err)
	}
	defer watcher.Close()

	// editors save by renaming over the file, so watch the directory
	if err := watcher.Add(filepath.Dir(path)); err != nil {
		return fmt.Errorf("watch %s: %w", path, err)
	}

	reread()

	for {
		select {
		case <-ctx.Done():
			return nil

		case event, ok := <-watcher.Events:
			if !ok {
				return nil
			}
			if filepath.Clean(event.Name) != path || !event.Has(fsnotify.Write|fsnotify.Create) {
				continue
			}
			drain(ctx, watcher.Events)
			slog.Debug("watched file changed", slog.String("path", path), slog.String("op", event.Op.String()))
			reread()

		case err, ok := <-watcher.Errors:
			if !ok {
				return nil
			}
			slog.Warn("watch error", slog.String("path", path), slog.Any("error", err))
		}
	}
}

// drain swallows events until none arrived for one Debounce interval.
func drain(ctx context.Context, events <-chan fsnotify.Event) {
	for {
		select {
		case <-ctx.Done():
			return
		case <-events:
		case <-time.After(Debounce):
			return
		}
	}
}
