package index

import (
	"fmt"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"
	"gopkg.in/yaml.v3"

	"github.com/starford/bujo/internal/parser"
	"github.com/starford/bujo/internal/storage"
)

// VaultBox is the box (container) id reported for vault documents.
const VaultBox = "vault"

// DocumentID returns the id of a vault file without an id in its
// frontmatter. It is stable for a given path.
func DocumentID(path string) string {
	return uuid.NewSHA1(uuid.NameSpaceURL, []byte("bujo:"+filepath.ToSlash(path))).String()
}

// HPath converts a vault-relative file path to a hierarchical path.
func HPath(path string) string {
	return "/" + strings.TrimSuffix(filepath.ToSlash(path), ".md")
}

type frontmatter struct {
	ID string `yaml:"id"`
}

// parseFile builds the document row and its blocks. Every non-empty line
// of the body is a block; an attribute list on the following line supplies
// its id, otherwise one is derived from the line number.
func parseFile(path string, data []byte, updatedAt time.Time) (DocumentRow, string, []BlockRow) {
	text := strings.ReplaceAll(string(data), "\r\n", "\n")
	fm, body, offset := splitFrontmatter(text)

	id := strings.TrimSpace(fm.ID)
	if id == "" {
		id = DocumentID(path)
	}
	doc := DocumentRow{
		ID:        id,
		Path:      filepath.ToSlash(path),
		HPath:     HPath(path),
		Box:       VaultBox,
		Checksum:  storage.Checksum(data),
		UpdatedAt: updatedAt,
	}

	var blocks []BlockRow
	seen := make(map[string]bool)
	pending := -1
	for i, raw := range strings.Split(body, "\n") {
		line := strings.TrimSpace(raw)
		lineNo := offset + i + 1

		if parser.IsIAL(line) {
			if bid, ok := parser.IALID(line); ok && pending >= 0 && !seen[bid] && !strings.Contains(line, `type="doc"`) {
				delete(seen, blocks[pending].ID)
				blocks[pending].ID = bid
				seen[bid] = true
			}
			pending = -1
			continue
		}
		if line == "" {
			pending = -1
			continue
		}

		b := BlockRow{
			ID:      fmt.Sprintf("%s-L%d", id, lineNo),
			DocID:   id,
			Line:    lineNo,
			Content: line,
		}
		seen[b.ID] = true
		blocks = append(blocks, b)
		pending = len(blocks) - 1
	}
	return doc, body, blocks
}

// splitFrontmatter separates YAML frontmatter (between leading --- lines)
// from the body. offset is the number of lines before the body. Invalid
// YAML or a missing closing delimiter leaves the whole text as body.
func splitFrontmatter(text string) (frontmatter, string, int) {
	var fm frontmatter
	lines := strings.Split(text, "\n")
	if strings.TrimSpace(lines[0]) != "---" {
		return fm, text, 0
	}
	for i := 1; i < len(lines); i++ {
		if strings.TrimSpace(lines[i]) != "---" {
			continue
		}
		if err := yaml.Unmarshal([]byte(strings.Join(lines[1:i], "\n")), &fm); err != nil {
			return frontmatter{}, text, 0
		}
		return fm, strings.Join(lines[i+1:], "\n"), i + 1
	}
	return fm, text, 0
}
