package index

import (
	"log/slog"
	"time"

	"github.com/starford/bujo/internal/parser"
	"github.com/starford/bujo/internal/storage"
)

// IndexFile parses a vault file and upserts it with its blocks.
func (db *DB) IndexFile(path string, data []byte) error {
	_, err := db.indexFile(path, data, time.Now())
	return err
}

func (db *DB) indexFile(path string, data []byte, updatedAt time.Time) (docState, error) {
	doc, content, blocks := parseFile(path, data, updatedAt)
	if err := db.upsertDocument(doc, content, blocks); err != nil {
		return docState{}, err
	}
	return docState{
		ID:       doc.ID,
		Checksum: doc.Checksum,
		Planned:  parser.HasTaskTag(content),
		Blocks:   fingerprint(blocks),
	}, nil
}

// applyFile indexes path and describes the change. It reports false when
// the file's content is already indexed.
func (db *DB) applyFile(path string, data []byte, updatedAt time.Time) (Change, bool, error) {
	before, found, err := db.stateByPath(path)
	if err != nil {
		return Change{}, false, err
	}
	if found && before.Checksum == storage.Checksum(data) {
		return Change{}, false, nil
	}
	after, err := db.indexFile(path, data, updatedAt)
	if err != nil {
		return Change{}, false, err
	}

	kind := EventUpdated
	if !found {
		kind = EventCreated
	}
	return Change{
		Kind:    kind,
		Path:    path,
		DocID:   after.ID,
		Planned: (before.Planned || after.Planned) && before.Blocks != after.Blocks,
	}, true, nil
}

// removeFile drops path from the index. It reports false when path was
// not indexed.
func (db *DB) removeFile(path string) (Change, bool, error) {
	before, found, err := db.stateByPath(path)
	if err != nil || !found {
		return Change{}, false, err
	}
	if err := db.DeleteDocument(path); err != nil {
		return Change{}, false, err
	}
	return Change{Kind: EventDeleted, Path: path, DocID: before.ID, Planned: before.Planned}, true, nil
}

// Sync walks the vault and brings the index up to date:
//   - new/changed files are parsed and upserted
//   - files removed from disk are deleted from the index
func Sync(db *DB, store storage.Provider, logger *slog.Logger) error {
	metas, err := store.List("")
	if err != nil {
		return err
	}

	checksums, err := db.AllChecksums()
	if err != nil {
		return err
	}

	disk := make(map[string]struct{}, len(metas))
	for _, m := range metas {
		disk[m.Path] = struct{}{}

		if checksums[m.Path] == m.Checksum {
			continue
		}

		data, err := store.Read(m.Path)
		if err != nil {
			logger.Warn("sync: read failed", slog.String("path", m.Path), slog.String("error", err.Error()))
			continue
		}
		if _, err := db.indexFile(m.Path, data, m.UpdatedAt); err != nil {
			logger.Warn("sync: index failed", slog.String("path", m.Path), slog.String("error", err.Error()))
		} else {
			logger.Debug("sync: indexed", slog.String("path", m.Path))
		}
	}

	for p := range checksums {
		if _, ok := disk[p]; !ok {
			if err := db.DeleteDocument(p); err != nil {
				logger.Warn("sync: delete failed", slog.String("path", p), slog.String("error", err.Error()))
			} else {
				logger.Debug("sync: removed stale", slog.String("path", p))
			}
		}
	}

	return nil
}
