package index

import (
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/starford/bujo/internal/apperr"
	"github.com/starford/bujo/internal/parser"
	"github.com/starford/bujo/internal/storage"
)

// DocumentRow represents a row in the documents table.
type DocumentRow struct {
	ID        string
	Path      string // file path relative to the vault root
	HPath     string // hierarchical path, e.g. /work/alpha
	Box       string
	Checksum  string
	UpdatedAt time.Time
}

// BlockRow is one indexed content line.
type BlockRow struct {
	ID      string
	DocID   string
	Line    int // 1-based line in the file
	Content string
}

// DocumentQuery selects documents by substring. Empty fields match all;
// Limit <= 0 means unlimited.
type DocumentQuery struct {
	PathContains    string
	ContentContains string
	Limit           int
}

// upsertDocument replaces a document and its blocks within a transaction.
// A previous row under the same path or id is removed first, which covers
// files whose frontmatter id changed.
func (db *DB) upsertDocument(d DocumentRow, content string, blocks []BlockRow) error {
	tx, err := db.conn.Begin()
	if err != nil {
		return fmt.Errorf("index: begin tx: %w", err)
	}
	defer tx.Rollback() //nolint:errcheck // best-effort on failure path

	if _, err := tx.Exec(`DELETE FROM blocks WHERE doc_id IN (SELECT id FROM documents WHERE path = ? OR id = ?)`, d.Path, d.ID); err != nil {
		return fmt.Errorf("index: clear blocks: %w", err)
	}
	if _, err := tx.Exec(`DELETE FROM documents WHERE path = ? OR id = ?`, d.Path, d.ID); err != nil {
		return fmt.Errorf("index: clear document: %w", err)
	}

	_, err = tx.Exec(`
		INSERT INTO documents (id, path, hpath, box, checksum, content, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)
	`, d.ID, d.Path, d.HPath, d.Box, d.Checksum, content, d.UpdatedAt)
	if err != nil {
		return fmt.Errorf("index: insert document: %w", err)
	}

	if len(blocks) > 0 {
		stmt, err := tx.Prepare(`INSERT OR REPLACE INTO blocks (id, doc_id, line, content) VALUES (?, ?, ?, ?)`)
		if err != nil {
			return fmt.Errorf("index: prepare block insert: %w", err)
		}
		defer stmt.Close()
		for _, b := range blocks {
			if _, err := stmt.Exec(b.ID, d.ID, b.Line, b.Content); err != nil {
				return fmt.Errorf("index: insert block: %w", err)
			}
		}
	}

	return tx.Commit()
}

// DeleteDocument removes the document stored under path and its blocks.
func (db *DB) DeleteDocument(path string) error {
	tx, err := db.conn.Begin()
	if err != nil {
		return fmt.Errorf("index: begin tx: %w", err)
	}
	defer tx.Rollback() //nolint:errcheck

	_, _ = tx.Exec(`DELETE FROM blocks WHERE doc_id IN (SELECT id FROM documents WHERE path = ?)`, path)
	_, _ = tx.Exec(`DELETE FROM documents WHERE path = ?`, path)

	return tx.Commit()
}

// GetChecksum returns the stored checksum for a file, or empty string if not found.
func (db *DB) GetChecksum(path string) (string, error) {
	var cs string
	err := db.conn.QueryRow(`SELECT checksum FROM documents WHERE path = ?`, path).Scan(&cs)
	if errors.Is(err, sql.ErrNoRows) {
		return "", nil
	}
	if err != nil {
		return "", fmt.Errorf("index: get checksum: %w", err)
	}
	return cs, nil
}

// AllChecksums returns path -> checksum for every indexed file.
func (db *DB) AllChecksums() (map[string]string, error) {
	rows, err := db.conn.Query(`SELECT path, checksum FROM documents`)
	if err != nil {
		return nil, fmt.Errorf("index: all checksums: %w", err)
	}
	defer rows.Close()
	out := make(map[string]string)
	for rows.Next() {
		var p, cs string
		if err := rows.Scan(&p, &cs); err != nil {
			return nil, err
		}
		out[p] = cs
	}
	return out, rows.Err()
}

// docState is a document as the index last saw it.
type docState struct {
	ID       string
	Checksum string
	Planned  bool   // content carries a task tag
	Blocks   string // fingerprint of the block set
}

// stateByPath reports the indexed state of the file at path.
func (db *DB) stateByPath(path string) (docState, bool, error) {
	var st docState
	var content string
	err := db.conn.QueryRow(`SELECT id, checksum, content FROM documents WHERE path = ?`, path).
		Scan(&st.ID, &st.Checksum, &content)
	if errors.Is(err, sql.ErrNoRows) {
		return docState{}, false, nil
	}
	if err != nil {
		return docState{}, false, fmt.Errorf("index: document state: %w", err)
	}
	blocks, err := db.DocumentBlocks(st.ID)
	if err != nil {
		return docState{}, false, err
	}
	st.Planned = parser.HasTaskTag(content)
	st.Blocks = fingerprint(blocks)
	return st, true, nil
}

// fingerprint identifies a block set by block ids and content, in line order.
func fingerprint(blocks []BlockRow) string {
	var sb strings.Builder
	for _, b := range blocks {
		sb.WriteString(b.ID)
		sb.WriteByte(0)
		sb.WriteString(b.Content)
		sb.WriteByte('\n')
	}
	return storage.Checksum([]byte(sb.String()))
}

const documentColumns = `id, path, hpath, box, checksum, updated_at`

func scanDocument(s interface{ Scan(...any) error }) (DocumentRow, error) {
	var d DocumentRow
	err := s.Scan(&d.ID, &d.Path, &d.HPath, &d.Box, &d.Checksum, &d.UpdatedAt)
	return d, err
}

// GetDocument returns the document with the given id.
func (db *DB) GetDocument(id string) (*DocumentRow, error) {
	d, err := scanDocument(db.conn.QueryRow(`SELECT `+documentColumns+` FROM documents WHERE id = ?`, id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("index: document %s: %w", id, apperr.ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("index: get document: %w", err)
	}
	return &d, nil
}

// GetBlock returns the block with the given id.
func (db *DB) GetBlock(id string) (*BlockRow, error) {
	var b BlockRow
	err := db.conn.QueryRow(`SELECT id, doc_id, line, content FROM blocks WHERE id = ?`, id).
		Scan(&b.ID, &b.DocID, &b.Line, &b.Content)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("index: block %s: %w", id, apperr.ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("index: get block: %w", err)
	}
	return &b, nil
}

// DocumentBlocks returns a document's blocks in line order.
func (db *DB) DocumentBlocks(docID string) ([]BlockRow, error) {
	rows, err := db.conn.Query(`SELECT id, doc_id, line, content FROM blocks WHERE doc_id = ? ORDER BY line`, docID)
	if err != nil {
		return nil, fmt.Errorf("index: document blocks: %w", err)
	}
	defer rows.Close()

	var out []BlockRow
	for rows.Next() {
		var b BlockRow
		if err := rows.Scan(&b.ID, &b.DocID, &b.Line, &b.Content); err != nil {
			return nil, err
		}
		out = append(out, b)
	}
	return out, rows.Err()
}

// QueryDocuments returns matching documents, most recently updated first.
func (db *DB) QueryDocuments(q DocumentQuery) ([]DocumentRow, error) {
	var (
		where []string
		args  []any
	)
	if q.PathContains != "" {
		where = append(where, `hpath LIKE ? ESCAPE '\'`)
		args = append(args, likePattern(q.PathContains))
	}
	if q.ContentContains != "" {
		where = append(where, `content LIKE ? ESCAPE '\'`)
		args = append(args, likePattern(q.ContentContains))
	}

	stmt := `SELECT ` + documentColumns + ` FROM documents`
	if len(where) > 0 {
		stmt += ` WHERE ` + strings.Join(where, ` AND `)
	}
	stmt += ` ORDER BY updated_at DESC, path`
	if q.Limit > 0 {
		stmt += ` LIMIT ?`
		args = append(args, q.Limit)
	}

	rows, err := db.conn.Query(stmt, args...)
	if err != nil {
		return nil, fmt.Errorf("index: query documents: %w", err)
	}
	defer rows.Close()

	var out []DocumentRow
	for rows.Next() {
		d, err := scanDocument(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, d)
	}
	return out, rows.Err()
}

var likeEscaper = strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)

// likePattern builds a substring LIKE pattern with wildcards escaped.
func likePattern(s string) string {
	return "%" + likeEscaper.Replace(s) + "%"
}
