package ingest

import (
	"context"
	"fmt"

	"github.com/fsnotify/fsnotify"
	"go.uber.org/zap"
)

// Watcher re-ingests corpus files as they change on disk.
type Watcher struct {
	ingester *Ingester
	dir      string
	logger   *zap.Logger
}

// NewWatcher creates a Watcher over dir.
func NewWatcher(ingester *Ingester, dir string, logger *zap.Logger) (*Watcher, error) {
	if ingester == nil {
		return nil, fmt.Errorf("ingester is required")
	}
	if dir == "" {
		return nil, fmt.Errorf("dir is required")
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Watcher{ingester: ingester, dir: dir, logger: logger}, nil
}

// Run watches the directory and re-ingests written or created files until
// ctx is canceled. Ingest failures for a single file are logged and the
// watch continues.
func (w *Watcher) Run(ctx context.Context) error {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("creating watcher: %w", err)
	}
	defer watcher.Close()

	if err := watcher.Add(w.dir); err != nil {
		return fmt.Errorf("watching %s: %w", w.dir, err)
	}

	w.logger.Info("watching corpus directory", zap.String("dir", w.dir))

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()

		case event, ok := <-watcher.Events:
			if !ok {
				return nil
			}
			if !event.Has(fsnotify.Write) && !event.Has(fsnotify.Create) {
				continue
			}
			if !ingestible(event.Name) {
				continue
			}

			if _, err := w.ingester.IngestFile(ctx, event.Name); err != nil {
				w.logger.Warn("re-ingest failed",
					zap.String("path", event.Name),
					zap.Error(err),
				)
			}

		case err, ok := <-watcher.Errors:
			if !ok {
				return nil
			}
			w.logger.Warn("watch error", zap.Error(err))
		}
	}
}
