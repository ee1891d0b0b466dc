package index

import (
	"context"
	"log/slog"
	"time"

	"github.com/fsnotify/fsnotify"

	"github.com/starford/mastermind/internal/storage"
)

// EventCallback is called after a watcher-driven index change.
// kind is one of "created", "updated", "deleted".
type EventCallback func(kind string, project string)

// Watch starts an fsnotify watcher on the journal directory and processes
// document changes until ctx is cancelled. It calls cb (if non-nil) after
// each successful index mutation.
//
// The directory is watched non-recursively; the archive lives in a
// subdirectory and is ignored. Rename events trigger a debounced resync that
// removes stale entries and indexes the new name.
func Watch(ctx context.Context, db *DB, store storage.Provider, pats PatternSource, root string, logger *slog.Logger, cb EventCallback) error {
	w, err := fsnotify.NewWatcher()
	if err != nil {
		return err
	}
	defer w.Close()

	if err := w.Add(root); err != nil {
		return err
	}

	logger.Info("watcher: started", slog.String("root", root))

	var resyncTimer *time.Timer
	var resyncCh <-chan time.Time

	scheduleResync := func() {
		if resyncTimer == nil {
			resyncTimer = time.NewTimer(200 * time.Millisecond)
			resyncCh = resyncTimer.C
		} else {
			resyncTimer.Reset(200 * time.Millisecond)
		}
	}

	emit := func(kind, name string) {
		if cb != nil {
			cb(kind, name)
		}
	}

	for {
		select {
		case <-ctx.Done():
			if resyncTimer != nil {
				resyncTimer.Stop()
			}
			logger.Info("watcher: stopped")
			return nil

		case <-resyncCh:
			resync(db, store, pats, logger, emit)

		case ev, ok := <-w.Events:
			if !ok {
				return nil
			}

			name, isDoc := storage.NameFromPath(ev.Name)
			if !isDoc {
				continue
			}

			switch {
			case ev.Op&(fsnotify.Create|fsnotify.Write) != 0:
				data, readErr := store.Read(name)
				if readErr != nil {
					logger.Warn("watcher: read failed", slog.String("project", name), slog.String("error", readErr.Error()))
					continue
				}
				p, patErr := pats.Patterns()
				if patErr != nil {
					logger.Warn("watcher: patterns unavailable", slog.String("error", patErr.Error()))
					continue
				}
				if idxErr := IndexDocument(db, name, data, time.Now(), p); idxErr != nil {
					logger.Warn("watcher: index failed", slog.String("project", name), slog.String("error", idxErr.Error()))
					continue
				}
				kind := "updated"
				if ev.Op&fsnotify.Create != 0 {
					kind = "created"
				}
				logger.Debug("watcher: indexed", slog.String("project", name), slog.String("op", kind))
				emit(kind, name)

			case ev.Op&fsnotify.Remove != 0:
				if delErr := db.DeleteProject(name); delErr != nil {
					logger.Warn("watcher: delete failed", slog.String("project", name), slog.String("error", delErr.Error()))
					continue
				}
				logger.Debug("watcher: deleted", slog.String("project", name))
				emit("deleted", name)

			case ev.Op&fsnotify.Rename != 0:
				// fsnotify fires Rename on the old path only; the new name
				// arrives as a separate Create when it stays in the directory.
				if delErr := db.DeleteProject(name); delErr != nil {
					logger.Warn("watcher: rename delete failed", slog.String("project", name), slog.String("error", delErr.Error()))
				} else {
					emit("deleted", name)
				}
				scheduleResync()
			}

		case watchErr, ok := <-w.Errors:
			if !ok {
				return nil
			}
			logger.Error("watcher: error", slog.String("error", watchErr.Error()))
		}
	}
}

// resync removes index entries without a document on disk and indexes
// documents whose checksum changed.
func resync(db *DB, store storage.Provider, pats PatternSource, logger *slog.Logger, emit func(kind, name string)) {
	checksums, err := db.AllChecksums()
	if err != nil {
		logger.Warn("resync: all checksums failed", slog.String("error", err.Error()))
		return
	}
	metas, err := store.List()
	if err != nil {
		logger.Warn("resync: list failed", slog.String("error", err.Error()))
		return
	}
	p, err := pats.Patterns()
	if err != nil {
		logger.Warn("resync: patterns unavailable", slog.String("error", err.Error()))
		return
	}

	disk := make(map[string]string, len(metas))
	for _, m := range metas {
		disk[m.Name] = m.Checksum
	}

	for name := range checksums {
		if _, ok := disk[name]; !ok {
			if delErr := db.DeleteProject(name); delErr == nil {
				logger.Debug("resync: removed stale", slog.String("project", name))
				emit("deleted", name)
			}
		}
	}

	for _, m := range metas {
		if checksums[m.Name] == m.Checksum {
			continue
		}
		data, readErr := store.Read(m.Name)
		if readErr != nil {
			continue
		}
		if idxErr := IndexDocument(db, m.Name, data, m.UpdatedAt, p); idxErr == nil {
			logger.Debug("resync: indexed", slog.String("project", m.Name))
			emit("created", m.Name)
		}
	}
}
