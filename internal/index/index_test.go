package index

import (
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/starford/bujo/internal/apperr"
)

func testDB(t *testing.T) *DB {
	t.Helper()
	db, err := Open(filepath.Join(t.TempDir(), "index.db"))
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	t.Cleanup(func() { db.Close() })
	return db
}

const alphaDoc = `---
id: 20260224-alpha
---
## Alpha
设计评审 #任务 @2026-02-24
{: id="blk-review"}

准备材料 @2026-02-24 10:00:00~11:00:00
`

func TestSchemaCreation(t *testing.T) {
	db := testDB(t)
	var count int
	if err := db.conn.QueryRow(`SELECT count(*) FROM documents`).Scan(&count); err != nil {
		t.Fatalf("documents table missing: %v", err)
	}
	if err := db.conn.QueryRow(`SELECT count(*) FROM blocks`).Scan(&count); err != nil {
		t.Fatalf("blocks table missing: %v", err)
	}
}

func TestIndexFile_FrontmatterIDAndBlocks(t *testing.T) {
	db := testDB(t)
	if err := db.IndexFile("work/alpha.md", []byte(alphaDoc)); err != nil {
		t.Fatalf("IndexFile: %v", err)
	}

	doc, err := db.GetDocument("20260224-alpha")
	if err != nil {
		t.Fatalf("GetDocument: %v", err)
	}
	if doc.HPath != "/work/alpha" {
		t.Errorf("hpath = %q", doc.HPath)
	}
	if doc.Box != VaultBox {
		t.Errorf("box = %q", doc.Box)
	}

	blocks, err := db.DocumentBlocks(doc.ID)
	if err != nil {
		t.Fatalf("DocumentBlocks: %v", err)
	}
	if len(blocks) != 3 {
		t.Fatalf("blocks = %+v, want 3", blocks)
	}
	if blocks[0].Content != "## Alpha" || blocks[0].Line != 4 {
		t.Errorf("first block = %+v", blocks[0])
	}
	if blocks[1].ID != "blk-review" || blocks[1].Line != 5 {
		t.Errorf("explicit id block = %+v", blocks[1])
	}
	if want := "20260224-alpha-L8"; blocks[2].ID != want {
		t.Errorf("derived id = %q, want %q", blocks[2].ID, want)
	}
}

func TestIndexFile_DerivedDocumentID(t *testing.T) {
	db := testDB(t)
	_ = db.IndexFile("plain.md", []byte("a #任务\n"))

	id := DocumentID("plain.md")
	if id != DocumentID("plain.md") {
		t.Fatal("DocumentID not stable")
	}
	if _, err := db.GetDocument(id); err != nil {
		t.Fatalf("GetDocument: %v", err)
	}
}

func TestIndexFile_InvalidFrontmatterKeptAsBody(t *testing.T) {
	db := testDB(t)
	_ = db.IndexFile("bad.md", []byte("---\nid: [unterminated\n---\nbody\n"))

	blocks, _ := db.DocumentBlocks(DocumentID("bad.md"))
	if len(blocks) != 4 {
		t.Errorf("blocks = %d, want 4", len(blocks))
	}
}

func TestIndexFile_DuplicateExplicitIDs(t *testing.T) {
	db := testDB(t)
	src := "one\n{: id=\"dup\"}\ntwo\n{: id=\"dup\"}\n"
	_ = db.IndexFile("dup.md", []byte(src))

	blocks, _ := db.DocumentBlocks(DocumentID("dup.md"))
	if len(blocks) != 2 {
		t.Fatalf("blocks = %+v", blocks)
	}
	if blocks[0].ID != "dup" || blocks[1].ID == "dup" {
		t.Errorf("ids = %q, %q", blocks[0].ID, blocks[1].ID)
	}
}

func TestReindexReplacesBlocks(t *testing.T) {
	db := testDB(t)
	_ = db.IndexFile("up.md", []byte("old line\n{: id=\"b1\"}\n"))
	_ = db.IndexFile("up.md", []byte("new line\n"))

	if _, err := db.GetBlock("b1"); !errors.Is(err, apperr.ErrNotFound) {
		t.Errorf("old block still present: %v", err)
	}
	blocks, _ := db.DocumentBlocks(DocumentID("up.md"))
	if len(blocks) != 1 || blocks[0].Content != "new line" {
		t.Errorf("blocks = %+v", blocks)
	}
}

func TestDeleteDocument(t *testing.T) {
	db := testDB(t)
	_ = db.IndexFile("del.md", []byte("x\n{: id=\"b-del\"}\n"))

	if err := db.DeleteDocument("del.md"); err != nil {
		t.Fatalf("DeleteDocument: %v", err)
	}
	cs, _ := db.GetChecksum("del.md")
	if cs != "" {
		t.Errorf("deleted document still has checksum %q", cs)
	}
	if _, err := db.GetBlock("b-del"); !errors.Is(err, apperr.ErrNotFound) {
		t.Errorf("block survived delete: %v", err)
	}
}

func TestGetChecksum_NotFound(t *testing.T) {
	db := testDB(t)
	cs, err := db.GetChecksum("nonexistent.md")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if cs != "" {
		t.Errorf("expected empty checksum, got %q", cs)
	}
}

func TestQueryDocuments(t *testing.T) {
	db := testDB(t)
	now := time.Now()
	_, _ = db.indexFile("work/alpha.md", []byte("a #任务\n"), now.Add(-2*time.Hour))
	_, _ = db.indexFile("work/beta.md", []byte("b #任务\n"), now.Add(-time.Hour))
	_, _ = db.indexFile("home/gamma.md", []byte("no tags\n"), now)
	_, _ = db.indexFile("work/100%_done.md", []byte("c\n"), now)

	got, err := db.QueryDocuments(DocumentQuery{PathContains: "/work"})
	if err != nil {
		t.Fatalf("QueryDocuments: %v", err)
	}
	if len(got) != 3 || got[len(got)-1].Path != "work/alpha.md" {
		t.Errorf("path query = %+v", got)
	}

	got, _ = db.QueryDocuments(DocumentQuery{ContentContains: "#任务", Limit: 1})
	if len(got) != 1 || got[0].Path != "work/beta.md" {
		t.Errorf("content query = %+v", got)
	}

	got, _ = db.QueryDocuments(DocumentQuery{PathContains: "100%_"})
	if len(got) != 1 {
		t.Errorf("escaped query = %+v", got)
	}
	got, _ = db.QueryDocuments(DocumentQuery{PathContains: "a_p"})
	if len(got) != 0 {
		t.Errorf("underscore should not be a wildcard: %+v", got)
	}
}

func TestSync(t *testing.T) {
	db := testDB(t)
	dir := t.TempDir()
	store := newTestStore(t, dir)
	logger := discardLogger()

	_ = os.WriteFile(filepath.Join(dir, "a.md"), []byte("a #任务\n"), 0o644)
	_ = os.WriteFile(filepath.Join(dir, "b.md"), []byte("b #任务\n"), 0o644)
	if err := Sync(db, store, logger); err != nil {
		t.Fatalf("Sync: %v", err)
	}
	sums, _ := db.AllChecksums()
	if len(sums) != 2 {
		t.Fatalf("indexed = %v", sums)
	}

	_ = os.Remove(filepath.Join(dir, "b.md"))
	_ = os.WriteFile(filepath.Join(dir, "a.md"), []byte("changed #任务\n"), 0o644)
	if err := Sync(db, store, logger); err != nil {
		t.Fatalf("Sync: %v", err)
	}
	sums, _ = db.AllChecksums()
	if _, ok := sums["b.md"]; ok || len(sums) != 1 {
		t.Errorf("stale entry not removed: %v", sums)
	}
	blocks, _ := db.DocumentBlocks(DocumentID("a.md"))
	if len(blocks) != 1 || blocks[0].Content != "changed #任务" {
		t.Errorf("changed file not reindexed: %+v", blocks)
	}
}
