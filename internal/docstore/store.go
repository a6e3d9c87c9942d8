// Package docstore abstracts the block-annotated document source that
// projects are read from and written back to.
package docstore

import "context"

// DocRow identifies one document in the store.
type DocRow struct {
	ID    string `json:"id"`
	HPath string `json:"hpath"`
	Box   string `json:"box"`
}

// Query selects documents by substring. PathContains matches the
// hierarchical path, ContentContains the raw text. Limit <= 0 is unlimited.
type Query struct {
	PathContains    string
	ContentContains string
	Limit           int
}

// Store is a document source. Implementations must be safe for concurrent use.
type Store interface {
	// Query lists documents, most recently updated first.
	Query(ctx context.Context, q Query) ([]DocRow, error)
	// AnnotatedText returns the document as kramdown: every block followed
	// by its {: id="..."} attribute line.
	AnnotatedText(ctx context.Context, docID string) (string, error)
	// BlockText returns one block as kramdown.
	BlockText(ctx context.Context, blockID string) (string, error)
	// UpdateBlock replaces a block's markdown.
	UpdateBlock(ctx context.Context, blockID, markdown string) error
}
