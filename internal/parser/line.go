// Package parser recovers projects, tasks and items from block-annotated
// markdown using the inline tagging syntax:
//
//	## Project name
//	> description
//	Design review #任务 @L2 @2026-02-24 https://tracker/1
//	Draft slides @2026-02-24 10:00:00~11:00:00 #done
//
// Lines are matched with a handful of patterns rather than a grammar. The
// format is line-oriented and unknown text is treated as plain content.
package parser

import (
	"crypto/rand"
	"fmt"
	"regexp"
	"strings"

	"github.com/oklog/ulid/v2"

	"github.com/starford/bujo/internal/models"
)

// Markers of the tagging syntax.
const (
	TaskTag         = "#任务"
	DoneTag         = "#done"
	DoneTagZh       = "#已完成"
	AbandonedTag    = "#abandoned"
	AbandonedTagZh  = "#已放弃"
	DefaultLinkName = "链接"
)

// space matches the same characters as a JavaScript \s, which is what
// documents in the wild were written against.
const space = `[\s\v\p{Z}\x{FEFF}]`

var (
	levelRe      = regexp.MustCompile(`@L([123])`)
	dateRe       = regexp.MustCompile(`@(\d{4}-\d{2}-\d{2})`)
	timeRangeRe  = regexp.MustCompile(`@(\d{4}-\d{2}-\d{2})` + space + `+(\d{2}:\d{2}:\d{2})~(\d{2}:\d{2}:\d{2})`)
	singleTimeRe = regexp.MustCompile(`@(\d{4}-\d{2}-\d{2})` + space + `+(\d{2}:\d{2}:\d{2})`)
	dateMarkerRe = regexp.MustCompile(`@\d{4}-\d{2}-\d{2}(?:` + space + `+\d{2}:\d{2}:\d{2}(?:~\d{2}:\d{2}:\d{2})?)?`)
	urlRe        = regexp.MustCompile(`https?://[^\s\v\p{Z}\x{FEFF}]+`)
	taskTagRe    = regexp.MustCompile(`#任务#?`)
	levelTagRe   = regexp.MustCompile(`@L[123]`)
	statusTagRe  = regexp.MustCompile(`#done|#abandoned|#已完成|#已放弃`)
)

// ParseTaskLine builds a Task from a line the caller already knows is a task.
// It never fails; missing markers leave the matching fields empty.
func ParseTaskLine(line string, lineNumber int) models.Task {
	level := models.LevelL1
	if m := levelRe.FindStringSubmatch(line); m != nil {
		level = models.Level("L" + m[1])
	}

	var date string
	if m := dateRe.FindStringSubmatch(line); m != nil {
		date = m[1]
	}
	start, end := parseSchedule(line)

	var links []models.Link
	for _, u := range urlRe.FindAllString(line, -1) {
		links = append(links, models.Link{Name: DefaultLinkName, URL: u})
	}

	name := taskTagRe.ReplaceAllString(line, "")
	name = levelTagRe.ReplaceAllString(name, "")
	name = dateMarkerRe.ReplaceAllString(name, "")
	name = urlRe.ReplaceAllString(name, "")

	return models.Task{
		ID:            newID("task"),
		Name:          strings.TrimSpace(name),
		Level:         level,
		Date:          date,
		StartDateTime: start,
		EndDateTime:   end,
		Links:         links,
		Items:         []models.Item{},
		LineNumber:    lineNumber,
	}
}

// ParseItemLine builds an Item from a line. It reports false when the line
// has no date marker or nothing is left once the markers are removed.
func ParseItemLine(line string, lineNumber int) (models.Item, bool) {
	m := dateRe.FindStringSubmatch(line)
	if m == nil {
		return models.Item{}, false
	}

	content := dateMarkerRe.ReplaceAllString(line, "")
	content = strings.TrimSpace(statusTagRe.ReplaceAllString(content, ""))
	if content == "" {
		return models.Item{}, false
	}

	start, end := parseSchedule(line)
	return models.Item{
		ID:            newID("item"),
		Content:       content,
		Date:          m[1],
		StartDateTime: start,
		EndDateTime:   end,
		Status:        statusOf(line),
		LineNumber:    lineNumber,
	}, true
}

// HasDateMarker reports whether s contains an @YYYY-MM-DD marker.
func HasDateMarker(s string) bool {
	return dateRe.MatchString(s)
}

func statusOf(line string) models.ItemStatus {
	switch {
	case strings.Contains(line, DoneTag), strings.Contains(line, DoneTagZh):
		return models.StatusCompleted
	case strings.Contains(line, AbandonedTag), strings.Contains(line, AbandonedTagZh):
		return models.StatusAbandoned
	default:
		return models.StatusPending
	}
}

// parseSchedule returns the start and end date-times of the first time
// marker. A range wins over a single time; a single time directly followed
// by '~' is not one.
func parseSchedule(line string) (start, end string) {
	if m := timeRangeRe.FindStringSubmatch(line); m != nil {
		return m[1] + " " + m[2], m[1] + " " + m[3]
	}
	for _, loc := range singleTimeRe.FindAllStringSubmatchIndex(line, -1) {
		if loc[1] < len(line) && line[loc[1]] == '~' {
			continue
		}
		return line[loc[2]:loc[3]] + " " + line[loc[4]:loc[5]], ""
	}
	return "", ""
}

// newID returns "<prefix>-<unix ms>-<random>". Ids are not stable across
// parses. Entropy is drawn per id so ids made in one millisecond differ.
func newID(prefix string) string {
	id := ulid.MustNew(ulid.Now(), rand.Reader)
	random := strings.ToLower(id.String()[17:26])
	return fmt.Sprintf("%s-%d-%s", prefix, id.Time(), random)
}
