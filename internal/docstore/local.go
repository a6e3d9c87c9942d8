package docstore

import (
	"context"
	"fmt"
	"strings"
	"sync"

	"github.com/starford/bujo/internal/apperr"
	"github.com/starford/bujo/internal/index"
	"github.com/starford/bujo/internal/parser"
	"github.com/starford/bujo/internal/storage"
)

// Local serves a markdown vault through its block index.
type Local struct {
	files storage.Provider
	idx   index.DocumentIndex

	mu sync.Mutex // serializes write-backs
}

// NewLocal creates a Local store.
func NewLocal(files storage.Provider, idx index.DocumentIndex) *Local {
	return &Local{files: files, idx: idx}
}

var _ Store = (*Local)(nil)

// Query lists indexed documents.
func (l *Local) Query(ctx context.Context, q Query) ([]DocRow, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	rows, err := l.idx.QueryDocuments(index.DocumentQuery{
		PathContains:    q.PathContains,
		ContentContains: q.ContentContains,
		Limit:           q.Limit,
	})
	if err != nil {
		return nil, err
	}
	out := make([]DocRow, 0, len(rows))
	for _, r := range rows {
		out = append(out, DocRow{ID: r.ID, HPath: r.HPath, Box: r.Box})
	}
	return out, nil
}

// AnnotatedText renders the indexed blocks of a document as kramdown.
func (l *Local) AnnotatedText(ctx context.Context, docID string) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	if _, err := l.idx.GetDocument(docID); err != nil {
		return "", err
	}
	blocks, err := l.idx.DocumentBlocks(docID)
	if err != nil {
		return "", err
	}

	var sb strings.Builder
	for _, b := range blocks {
		sb.WriteString(b.Content)
		sb.WriteString("\n")
		sb.WriteString(ial(b.ID, ""))
		sb.WriteString("\n\n")
	}
	sb.WriteString(ial(docID, "doc"))
	return sb.String(), nil
}

// BlockText returns the block's line with its attribute list.
func (l *Local) BlockText(ctx context.Context, blockID string) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	b, err := l.idx.GetBlock(blockID)
	if err != nil {
		return "", err
	}
	return b.Content + "\n" + ial(b.ID, ""), nil
}

// UpdateBlock rewrites the block's line in its file and reindexes it.
// The write is refused with apperr.ErrConflict when the file no longer
// holds the indexed text at that line.
func (l *Local) UpdateBlock(ctx context.Context, blockID, markdown string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	text := parser.StripIAL(markdown)
	if text == "" || strings.Contains(text, "\n") {
		return fmt.Errorf("docstore: block %s needs a single line: %w", blockID, apperr.ErrInvalidInput)
	}

	l.mu.Lock()
	defer l.mu.Unlock()

	b, err := l.idx.GetBlock(blockID)
	if err != nil {
		return err
	}
	doc, err := l.idx.GetDocument(b.DocID)
	if err != nil {
		return err
	}
	data, err := l.files.Read(doc.Path)
	if err != nil {
		return err
	}

	lines := strings.Split(string(data), "\n")
	if b.Line < 1 || b.Line > len(lines) {
		return fmt.Errorf("docstore: block %s line %d: %w", blockID, b.Line, apperr.ErrConflict)
	}
	old := strings.TrimRight(lines[b.Line-1], "\r")
	if strings.TrimSpace(old) != b.Content {
		return fmt.Errorf("docstore: block %s changed on disk: %w", blockID, apperr.ErrConflict)
	}

	indent := old[:len(old)-len(strings.TrimLeft(old, " \t"))]
	cr := ""
	if strings.HasSuffix(lines[b.Line-1], "\r") {
		cr = "\r"
	}
	lines[b.Line-1] = indent + text + cr

	updated := []byte(strings.Join(lines, "\n"))
	if err := l.files.Write(doc.Path, updated); err != nil {
		return err
	}
	return l.idx.IndexFile(doc.Path, updated)
}

func ial(id, typ string) string {
	if typ == "" {
		return fmt.Sprintf(`{: id="%s"}`, id)
	}
	return fmt.Sprintf(`{: id="%s" type="%s"}`, id, typ)
}
