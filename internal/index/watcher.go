package index

import (
	"context"
	"errors"
	"io/fs"
	"log/slog"
	"path/filepath"
	"time"

	"github.com/fsnotify/fsnotify"

	"github.com/starford/licaudit/internal/storage"
)

// Watcher event kinds.
const (
	EventUpdated = "updated"
	EventDeleted = "deleted"
)

const debounce = 200 * time.Millisecond

// EventCallback is called after a watcher-driven sync. res is nil for
// EventDeleted.
type EventCallback func(kind string, res *SyncResult)

// Watch watches the directory holding inputPath and re-syncs the index when
// the input file changes, until ctx is cancelled. Bursts of events are
// debounced; a sync whose checksum matches the stored one is not reported.
func Watch(ctx context.Context, db Store, store storage.Provider, root, inputPath string, logger *slog.Logger, cb EventCallback) error {
	w, err := fsnotify.NewWatcher()
	if err != nil {
		return err
	}
	defer w.Close()

	target := filepath.Clean(filepath.Join(root, inputPath))
	// Editors often replace files by rename, so watch the directory.
	if err := w.Add(filepath.Dir(target)); err != nil {
		return err
	}

	logger.Info("watcher: started", slog.String("path", target))

	var timer *time.Timer
	var timerCh <-chan time.Time

	schedule := func() {
		if timer == nil {
			timer = time.NewTimer(debounce)
			timerCh = timer.C
		} else {
			timer.Reset(debounce)
		}
	}

	for {
		select {
		case <-ctx.Done():
			if timer != nil {
				timer.Stop()
			}
			logger.Info("watcher: stopped")
			return nil

		case <-timerCh:
			resync(db, store, inputPath, logger, cb)

		case ev, ok := <-w.Events:
			if !ok {
				return nil
			}
			if filepath.Clean(ev.Name) != target {
				continue
			}
			if ev.Op&(fsnotify.Create|fsnotify.Write|fsnotify.Remove|fsnotify.Rename) != 0 {
				logger.Debug("watcher: input event", slog.String("op", ev.Op.String()))
				schedule()
			}

		case watchErr, ok := <-w.Errors:
			if !ok {
				return nil
			}
			logger.Error("watcher: error", slog.String("error", watchErr.Error()))
		}
	}
}

func resync(db Store, store storage.Provider, inputPath string, logger *slog.Logger, cb EventCallback) {
	res, err := Sync(db, store, inputPath, logger)
	if errors.Is(err, fs.ErrNotExist) {
		logger.Warn("watcher: input removed", slog.String("path", inputPath))
		if cb != nil {
			cb(EventDeleted, nil)
		}
		return
	}
	if err != nil {
		logger.Warn("watcher: sync failed", slog.String("path", inputPath), slog.String("error", err.Error()))
		return
	}
	if !res.Changed {
		logger.Debug("watcher: input unchanged", slog.String("path", inputPath))
		return
	}
	logger.Info("watcher: input reloaded",
		slog.String("path", inputPath),
		slog.String("project_id", res.Snapshot.ProjectID))
	if cb != nil {
		cb(EventUpdated, res)
	}
}
