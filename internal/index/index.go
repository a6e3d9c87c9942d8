package index

// DocumentIndex defines the interface for vault indexing operations.
// Consumers should depend on this interface rather than the concrete *DB type
// to facilitate testing with mocks.
type DocumentIndex interface {
	IndexFile(path string, data []byte) error
	DeleteDocument(path string) error
	GetChecksum(path string) (string, error)
	AllChecksums() (map[string]string, error)
	GetDocument(id string) (*DocumentRow, error)
	GetBlock(id string) (*BlockRow, error)
	DocumentBlocks(docID string) ([]BlockRow, error)
	QueryDocuments(q DocumentQuery) ([]DocumentRow, error)
	Close() error
}

// Verify *DB satisfies DocumentIndex at compile time.
var _ DocumentIndex = (*DB)(nil)
