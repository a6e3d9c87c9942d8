package index

import (
	"context"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/fsnotify/fsnotify"

	"github.com/starford/bujo/internal/storage"
)

// Change kinds.
const (
	EventCreated = "created"
	EventUpdated = "updated"
	EventDeleted = "deleted"
)

// reconcileDelay is the quiet period after a rename before the index is
// compared against the vault.
const reconcileDelay = 200 * time.Millisecond

// Change describes one watcher-driven index mutation.
type Change struct {
	Kind  string // EventCreated, EventUpdated or EventDeleted
	Path  string // vault-relative
	DocID string
	// Planned reports whether the change can move the plan: the document
	// carries a task tag before or after it, and its block set differs.
	Planned bool
}

// EventCallback receives every index mutation made by the watcher.
type EventCallback func(Change)

type watcher struct {
	db     *DB
	store  storage.Provider
	root   string
	logger *slog.Logger
	cb     EventCallback
	fsw    *fsnotify.Watcher

	reconcileTimer *time.Timer
	reconcileCh    <-chan time.Time
}

// Watch indexes .md changes under vaultRoot until ctx is cancelled and
// reports each to cb (if non-nil). Writes that leave a file's content as
// indexed are not reported. New directories are watched as they appear; a
// rename is followed by a reconciliation pass against the vault listing.
func Watch(ctx context.Context, db *DB, store storage.Provider, vaultRoot string, logger *slog.Logger, cb EventCallback) error {
	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return err
	}
	defer fsw.Close()

	w := &watcher{db: db, store: store, root: vaultRoot, logger: logger, cb: cb, fsw: fsw}
	if err := w.addDirs(vaultRoot); err != nil {
		return err
	}
	logger.Info("watcher: started", slog.String("root", vaultRoot))

	for {
		select {
		case <-ctx.Done():
			if w.reconcileTimer != nil {
				w.reconcileTimer.Stop()
			}
			logger.Info("watcher: stopped")
			return nil

		case <-w.reconcileCh:
			w.reconcileTimer, w.reconcileCh = nil, nil
			w.reconcile()

		case ev, ok := <-fsw.Events:
			if !ok {
				return nil
			}
			w.handle(ev)

		case watchErr, ok := <-fsw.Errors:
			if !ok {
				return nil
			}
			logger.Error("watcher: error", slog.String("error", watchErr.Error()))
		}
	}
}

func (w *watcher) handle(ev fsnotify.Event) {
	if ev.Op&fsnotify.Create != 0 {
		if info, err := os.Stat(ev.Name); err == nil && info.IsDir() {
			w.newDir(ev.Name)
			return
		}
	}
	if !isDocument(ev.Name) {
		return
	}
	rel, err := filepath.Rel(w.root, ev.Name)
	if err != nil {
		return
	}

	switch {
	case ev.Op&(fsnotify.Create|fsnotify.Write) != 0:
		w.upsert(rel, ev.Name)
	case ev.Op&fsnotify.Remove != 0:
		w.remove(rel)
	case ev.Op&fsnotify.Rename != 0:
		// Rename fires on the old path only; the new path arrives as a
		// Create when it stays inside the vault.
		w.remove(rel)
		w.scheduleReconcile()
	}
}

func (w *watcher) upsert(rel, absPath string) {
	data, err := w.store.Read(rel)
	if err != nil {
		w.logger.Warn("watcher: read failed", slog.String("path", rel), slog.String("error", err.Error()))
		return
	}
	c, changed, err := w.db.applyFile(rel, data, modTime(absPath))
	if err != nil {
		w.logger.Warn("watcher: index failed", slog.String("path", rel), slog.String("error", err.Error()))
		return
	}
	if changed {
		w.emit(c)
	}
}

func (w *watcher) remove(rel string) {
	c, changed, err := w.db.removeFile(rel)
	if err != nil {
		w.logger.Warn("watcher: delete failed", slog.String("path", rel), slog.String("error", err.Error()))
		return
	}
	if changed {
		w.emit(c)
	}
}

func (w *watcher) emit(c Change) {
	w.logger.Debug("watcher: indexed",
		slog.String("path", c.Path),
		slog.String("op", c.Kind),
		slog.Bool("planned", c.Planned))
	if w.cb != nil {
		w.cb(c)
	}
}

func (w *watcher) scheduleReconcile() {
	if w.reconcileTimer == nil {
		w.reconcileTimer = time.NewTimer(reconcileDelay)
		w.reconcileCh = w.reconcileTimer.C
		return
	}
	w.reconcileTimer.Reset(reconcileDelay)
}

// reconcile drops index entries whose file is gone and indexes files the
// index does not hold at their current checksum.
func (w *watcher) reconcile() {
	indexed, err := w.db.AllChecksums()
	if err != nil {
		w.logger.Warn("reconcile: all checksums failed", slog.String("error", err.Error()))
		return
	}
	metas, err := w.store.List("")
	if err != nil {
		w.logger.Warn("reconcile: list failed", slog.String("error", err.Error()))
		return
	}

	disk := make(map[string]string, len(metas))
	for _, m := range metas {
		disk[m.Path] = m.Checksum
	}
	for p := range indexed {
		if _, ok := disk[p]; !ok {
			w.remove(p)
		}
	}
	for p, cs := range disk {
		if indexed[p] != cs {
			w.upsert(p, filepath.Join(w.root, p))
		}
	}
}

// newDir watches a directory created at runtime and indexes the documents
// already inside it.
func (w *watcher) newDir(dir string) {
	if err := w.addDirs(dir); err != nil {
		w.logger.Warn("watcher: add new dir failed", slog.String("path", dir), slog.String("error", err.Error()))
	}
	_ = filepath.WalkDir(dir, func(path string, d fs.DirEntry, err error) error {
		if err != nil || d.IsDir() || !isDocument(path) {
			return nil
		}
		if rel, relErr := filepath.Rel(w.root, path); relErr == nil {
			w.upsert(rel, path)
		}
		return nil
	})
}

// addDirs adds root and its non-hidden subdirectories to the watch list.
func (w *watcher) addDirs(root string) error {
	return filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if !d.IsDir() {
			return nil
		}
		if path != root && strings.HasPrefix(d.Name(), ".") {
			return filepath.SkipDir
		}
		return w.fsw.Add(path)
	})
}

func isDocument(path string) bool {
	return strings.HasSuffix(path, ".md") && !strings.HasPrefix(filepath.Base(path), ".")
}

// modTime returns the file's modification time, or now if it cannot be read.
func modTime(absPath string) time.Time {
	info, err := os.Stat(absPath)
	if err != nil {
		return time.Now()
	}
	return info.ModTime()
}
