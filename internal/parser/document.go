package parser

import (
	"regexp"
	"strings"
	"unicode"

	"github.com/starford/bujo/internal/models"
)

const fallbackProjectPrefix = "项目 "

var mdLinkRe = regexp.MustCompile(`\[(.*?)\]\((.*?)\)`)

// Document identifies the source of one project.
type Document struct {
	ID      string
	Path    string // hierarchical path, e.g. /work/2026/alpha
	Box     string // container id, used as the project path when Path is empty
	GroupID string
}

// ParseAnnotated segments annotated text and structures it into a project.
func ParseAnnotated(doc Document, text string) *models.Project {
	return ParseDocument(doc, SegmentBlocks(text))
}

// ParseDocument walks blocks top to bottom and assembles a project tree.
// It returns nil when the document holds no tasks.
func ParseDocument(doc Document, blocks []Block) *models.Project {
	path := doc.Path
	if path == "" {
		path = doc.Box
	}
	project := &models.Project{
		ID:      doc.ID,
		Path:    path,
		GroupID: doc.GroupID,
		Links:   []models.Link{},
		Tasks:   []models.Task{},
	}

	var current *models.Task
	closeTask := func() {
		if current == nil {
			return
		}
		current.DocID = doc.ID
		project.Tasks = append(project.Tasks, *current)
		current = nil
	}

	for i, b := range blocks {
		lineNumber := i + 1
		content := strings.TrimSpace(b.Content)

		switch {
		case content == "":
			continue
		case strings.HasPrefix(content, "## "):
			// Later headings overwrite earlier ones.
			project.Name = strings.TrimSpace(content[len("## "):])
			continue
		case project.Name != "" && strings.HasPrefix(content, "> "):
			project.Description = strings.TrimSpace(content[len("> "):])
			continue
		}

		// Before the first task any link line belongs to the project, even
		// one carrying a task tag.
		if current == nil {
			if link, ok := projectLink(content); ok {
				project.Links = append(project.Links, link)
				continue
			}
		}

		if HasTaskTag(content) {
			closeTask()
			task := ParseTaskLine(content, lineNumber)
			task.BlockID = b.BlockID
			current = &task
			continue
		}

		if current == nil {
			continue
		}

		if !HasDateMarker(content) {
			if link, ok := markdownLink(content); ok {
				current.Links = append(current.Links, link)
			}
			continue
		}

		if item, ok := ParseItemLine(content, lineNumber); ok {
			item.DocID = doc.ID
			item.BlockID = b.BlockID
			current.Items = append(current.Items, item)
		}
	}
	closeTask()

	if project.Name == "" {
		project.Name = fallbackName(doc.Path, doc.ID)
	}
	if len(project.Tasks) == 0 {
		return nil
	}
	return project
}

// HasTaskTag reports whether s carries a task tag outside an inline code
// span. `#任务` in backticks is documentation, not a tag.
func HasTaskTag(s string) bool {
	off := 0
	for {
		i := strings.Index(s[off:], TaskTag)
		if i < 0 {
			return false
		}
		i += off
		off = i + len(TaskTag)
		inCode := strings.Count(s[:i], "`")%2 == 1 && strings.Contains(s[off:], "`")
		if !inCode {
			return true
		}
	}
}

// projectLink recognises a link line before the first task: a markdown
// link, else the first bare URL named by a "label:" right before it.
func projectLink(content string) (models.Link, bool) {
	if link, ok := markdownLink(content); ok {
		return link, true
	}
	loc := urlRe.FindStringIndex(content)
	if loc == nil {
		return models.Link{}, false
	}

	name := DefaultLinkName
	prefix := strings.TrimRightFunc(content[:loc[0]], unicode.IsSpace)
	for _, colon := range []string{":", "："} {
		if label, ok := strings.CutSuffix(prefix, colon); ok {
			if label = strings.TrimSpace(label); label != "" {
				name = label
			}
			break
		}
	}
	return models.Link{Name: name, URL: content[loc[0]:loc[1]]}, true
}

func markdownLink(content string) (models.Link, bool) {
	if !strings.Contains(content, "](") {
		return models.Link{}, false
	}
	m := mdLinkRe.FindStringSubmatch(content)
	if m == nil {
		return models.Link{}, false
	}
	return models.Link{Name: m[1], URL: m[2]}, true
}

// fallbackName derives a project name from the last path segment, the one
// before it for a trailing slash, or the document id.
func fallbackName(path, id string) string {
	segs := strings.Split(path, "/")
	n := len(segs)
	if last := strings.TrimSpace(segs[n-1]); last != "" {
		return last
	}
	if n > 1 {
		if prev := strings.TrimSpace(segs[n-2]); prev != "" {
			return prev
		}
	}
	short := []rune(id)
	if len(short) > 6 {
		short = short[:6]
	}
	return fallbackProjectPrefix + string(short)
}
