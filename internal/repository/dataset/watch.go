package dataset

import (
	"context"
	"fmt"
	"path/filepath"

	"github.com/fsnotify/fsnotify"
	"go.uber.org/zap"
)

// Watch drops cached datasets whose files change under dirs. It blocks until
// ctx is done. HTTP datasets are not watched.
func (l *Loader) Watch(ctx context.Context, dirs ...string) error {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("create dataset watcher: %w", err)
	}
	defer func() {
		if err := watcher.Close(); err != nil {
			l.logger.Warn("Failed to close dataset watcher", zap.Error(err))
		}
	}()

	for _, dir := range dirs {
		dir = l.Locate(dir)
		if err := watcher.Add(dir); err != nil {
			return fmt.Errorf("watch %s: %w", dir, err)
		}
		l.logger.Info("Watching datasets", zap.String("dir", dir))
	}

	for {
		select {
		case <-ctx.Done():
			return nil
		case event, ok := <-watcher.Events:
			if !ok {
				return nil
			}
			// Atomic replacements arrive as Rename or Create.
			if event.Has(fsnotify.Write) || event.Has(fsnotify.Create) ||
				event.Has(fsnotify.Rename) || event.Has(fsnotify.Remove) {
				l.Invalidate(filepath.Clean(event.Name))
			}
		case err, ok := <-watcher.Errors:
			if !ok {
				return nil
			}
			l.logger.Warn("Dataset watcher error", zap.Error(err))
		}
	}
}
