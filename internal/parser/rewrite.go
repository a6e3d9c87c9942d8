package parser

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/starford/bujo/internal/models"
)

var (
	// Accepts the looser forms people type by hand: HH:MM, a 至 range.
	looseDateMarkerRe = regexp.MustCompile(`@\d{4}-\d{2}-\d{2}(?:` + space + `+\d{1,2}:\d{2}(?::\d{2})?(?:` + space + `*[~至]` + space + `*\d{1,2}:\d{2}(?::\d{2})?)?)?`)
	statusSuffixRe    = regexp.MustCompile(space + `*(?:#done|#abandoned|#已完成|#已放弃)`)
	clockRe           = regexp.MustCompile(`^(\d{1,2}):(\d{2})(?::(\d{2}))?$`)
	isoDateRe         = regexp.MustCompile(`^\d{4}-\d{2}-\d{2}$`)
)

// Schedule is a new date (and optional time window) for a block.
type Schedule struct {
	Date   string `json:"date"`
	Start  string `json:"start,omitempty"`
	End    string `json:"end,omitempty"`
	AllDay bool   `json:"allDay,omitempty"`
}

// Marker renders the schedule as a date marker. A start without an end
// lasts one hour.
func (s Schedule) Marker() (string, error) {
	if !isoDateRe.MatchString(s.Date) {
		return "", fmt.Errorf("parser: invalid date %q", s.Date)
	}
	if _, err := time.Parse(time.DateOnly, s.Date); err != nil {
		return "", fmt.Errorf("parser: invalid date %q: %w", s.Date, err)
	}
	if s.AllDay || s.Start == "" {
		return "@" + s.Date, nil
	}

	start, err := normalizeClock(s.Start)
	if err != nil {
		return "", err
	}
	var end string
	if s.End != "" {
		if end, err = normalizeClock(s.End); err != nil {
			return "", err
		}
	} else {
		end = addHour(start)
	}
	return fmt.Sprintf("@%s %s~%s", s.Date, start, end), nil
}

// StripIAL drops attribute-list lines from block kramdown.
func StripIAL(kramdown string) string {
	lines := strings.Split(kramdown, "\n")
	kept := lines[:0]
	for _, l := range lines {
		if !IsIAL(strings.TrimSpace(l)) {
			kept = append(kept, l)
		}
	}
	return strings.TrimSpace(strings.Join(kept, "\n"))
}

// SetStatusTag replaces any status tag on the block with the tag for status.
func SetStatusTag(kramdown string, status models.ItemStatus) (string, error) {
	var tag string
	switch status {
	case models.StatusCompleted:
		tag = DoneTag
	case models.StatusAbandoned:
		tag = AbandonedTag
	default:
		return "", fmt.Errorf("parser: status %q has no tag", status)
	}
	content := strings.TrimSpace(statusSuffixRe.ReplaceAllString(StripIAL(kramdown), ""))
	return content + " " + tag, nil
}

// Reschedule replaces the block's date marker with one built from s.
func Reschedule(kramdown string, s Schedule) (string, error) {
	marker, err := s.Marker()
	if err != nil {
		return "", err
	}
	content := strings.TrimSpace(looseDateMarkerRe.ReplaceAllString(StripIAL(kramdown), ""))
	return content + " " + marker, nil
}

func normalizeClock(v string) (string, error) {
	m := clockRe.FindStringSubmatch(strings.TrimSpace(v))
	if m == nil {
		return "", fmt.Errorf("parser: invalid time %q", v)
	}
	h, _ := strconv.Atoi(m[1])
	mi, _ := strconv.Atoi(m[2])
	sec := 0
	if m[3] != "" {
		sec, _ = strconv.Atoi(m[3])
	}
	if h > 23 || mi > 59 || sec > 59 {
		return "", fmt.Errorf("parser: invalid time %q", v)
	}
	return fmt.Sprintf("%02d:%02d:%02d", h, mi, sec), nil
}

// addHour adds one hour to a normalized clock, wrapping at midnight.
func addHour(clock string) string {
	h, _ := strconv.Atoi(clock[:2])
	return fmt.Sprintf("%02d%s", (h+1)%24, clock[2:])
}
