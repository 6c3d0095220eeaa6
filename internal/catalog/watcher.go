package catalog

import (
	"context"
	"log/slog"
	"path/filepath"
	"strings"
	"time"

	"github.com/fsnotify/fsnotify"

	"github.com/starford/hours/internal/models"
	"github.com/starford/hours/internal/storage"
)

// Event kinds reported by Watch.
const (
	EventCatalog  = "catalog"
	EventAutosave = "autosave"
)

// EventCallback is called after a watcher-driven change. For EventCatalog,
// detail lists the kinds that changed; for EventAutosave it holds the
// autosave path.
type EventCallback func(kind string, detail []string)

const debounce = 200 * time.Millisecond

// Watch starts an fsnotify watcher on the data directory and, when
// autosavePath is set, on the directory holding the autosave. It processes
// events until ctx is cancelled.
//
// The game rewrites its autosave in several steps and editors save data
// files the same way, so both sources are debounced: a burst of events
// results in a single Sync or a single autosave callback.
func Watch(ctx context.Context, db *DB, store storage.Provider, autosavePath string, logger *slog.Logger, cb EventCallback) error {
	w, err := fsnotify.NewWatcher()
	if err != nil {
		return err
	}
	defer w.Close()

	root := store.Root()
	if err := w.Add(root); err != nil {
		return err
	}

	var autosaveAbs string
	if autosavePath != "" {
		autosaveAbs, err = filepath.Abs(autosavePath)
		if err != nil {
			return err
		}
		if dir := filepath.Dir(autosaveAbs); dir != root {
			if err := w.Add(dir); err != nil {
				logger.Warn("watcher: autosave dir not watchable",
					slog.String("path", dir),
					slog.String("error", err.Error()))
				autosaveAbs = ""
			}
		}
	}

	logger.Info("watcher: started", slog.String("root", root), slog.String("autosave", autosaveAbs))

	syncTimer := newDebouncer()
	saveTimer := newDebouncer()
	defer syncTimer.stop()
	defer saveTimer.stop()

	for {
		select {
		case <-ctx.Done():
			logger.Info("watcher: stopped")
			return nil

		case <-syncTimer.C():
			changed, err := Sync(db, store, logger)
			if err != nil {
				logger.Warn("watcher: sync failed", slog.String("error", err.Error()))
				continue
			}
			if len(changed) > 0 && cb != nil {
				cb(EventCatalog, kindNames(changed))
			}

		case <-saveTimer.C():
			logger.Debug("watcher: autosave changed", slog.String("path", autosaveAbs))
			if cb != nil {
				cb(EventAutosave, []string{autosaveAbs})
			}

		case ev, ok := <-w.Events:
			if !ok {
				return nil
			}
			if ev.Op&(fsnotify.Create|fsnotify.Write|fsnotify.Remove|fsnotify.Rename) == 0 {
				continue
			}

			name, err := filepath.Abs(ev.Name)
			if err != nil {
				continue
			}

			switch {
			case autosaveAbs != "" && name == autosaveAbs:
				if ev.Op&(fsnotify.Create|fsnotify.Write) != 0 {
					saveTimer.schedule()
				}
			case filepath.Dir(name) == root && isDataFile(filepath.Base(name)):
				logger.Debug("watcher: data file changed", slog.String("path", name), slog.String("op", ev.Op.String()))
				syncTimer.schedule()
			}

		case watchErr, ok := <-w.Errors:
			if !ok {
				return nil
			}
			logger.Error("watcher: error", slog.String("error", watchErr.Error()))
		}
	}
}

func isDataFile(base string) bool {
	if !strings.HasSuffix(base, ".json") {
		return false
	}
	kind, ok := models.ParseKind(strings.TrimSuffix(base, ".json"))
	return ok && storage.FileName(kind) == base
}

func kindNames(kinds []models.Kind) []string {
	out := make([]string, len(kinds))
	for i, k := range kinds {
		out[i] = string(k)
	}
	return out
}

// debouncer wraps a lazily created timer that is pushed back on every
// schedule call.
type debouncer struct {
	timer *time.Timer
	ch    <-chan time.Time
}

func newDebouncer() *debouncer { return &debouncer{} }

func (d *debouncer) schedule() {
	if d.timer == nil {
		d.timer = time.NewTimer(debounce)
		d.ch = d.timer.C
		return
	}
	d.timer.Reset(debounce)
}

// C returns the timer channel, or nil (blocks forever) before the first
// schedule.
func (d *debouncer) C() <-chan time.Time { return d.ch }

func (d *debouncer) stop() {
	if d.timer != nil {
		d.timer.Stop()
	}
}
