package parser

import (
	"regexp"
	"strings"
)

var ialIDRe = regexp.MustCompile(`\bid="([^"]+)"`)

// Block is one content line paired with the block id from the metadata
// line that follows it.
type Block struct {
	Content string
	BlockID string
}

// SegmentBlocks splits annotated text into blocks. Each metadata line of the
// form {: id="..." } closes the most recent content line. Earlier content
// lines without their own metadata line are overwritten, so a multi-line
// block keeps only its last line. Document-root metadata (type="doc") emits
// nothing.
func SegmentBlocks(text string) []Block {
	var blocks []Block
	pending := ""

	for _, raw := range strings.Split(text, "\n") {
		line := strings.TrimSpace(raw)
		if IsIAL(line) {
			id, ok := IALID(line)
			if !ok {
				continue
			}
			if pending != "" && !strings.Contains(line, `type="doc"`) {
				blocks = append(blocks, Block{Content: pending, BlockID: id})
			}
			pending = ""
			continue
		}
		if line != "" {
			pending = line
		}
	}
	return blocks
}

// IsIAL reports whether a trimmed line is a kramdown attribute list.
func IsIAL(line string) bool {
	return strings.HasPrefix(line, "{:") && strings.HasSuffix(line, "}")
}

// IALID returns the id attribute of an attribute-list line.
func IALID(line string) (string, bool) {
	if !IsIAL(line) {
		return "", false
	}
	m := ialIDRe.FindStringSubmatch(line)
	if m == nil {
		return "", false
	}
	return m[1], true
}
