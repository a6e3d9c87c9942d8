package convert

import (
	"time"

	"github.com/starford/bujo/internal/models"
)

// Converter builds time-based views. Dates are interpreted in its location.
type Converter struct {
	loc *time.Location
}

// New creates a Converter. A nil location means time.Local.
func New(loc *time.Location) *Converter {
	if loc == nil {
		loc = time.Local
	}
	return &Converter{loc: loc}
}

// Range is an inclusive time span.
type Range struct {
	Start time.Time
	End   time.Time
}

// ProjectsToGanttTasks emits a project row followed by its task rows, nested
// L1 > L2 > L3, and optionally one row per item under its task. Tasks outside
// filter are dropped, and so is a project left without tasks.
func (c *Converter) ProjectsToGanttTasks(projects []models.Project, showItems bool, filter models.DateFilter) []models.GanttTask {
	rows := []models.GanttTask{}

	for _, p := range projects {
		var tasks []models.Task
		for _, t := range p.Tasks {
			if c.InDateRange(t, filter) {
				tasks = append(tasks, t)
			}
		}
		if len(tasks) == 0 {
			continue
		}

		projectID := "proj-" + p.ID
		rows = append(rows, models.GanttTask{
			ID:   projectID,
			Text: p.Name,
			Type: models.GanttTypeProject,
			Open: true,
		})

		var lastL1, lastL2 string
		for _, t := range tasks {
			taskID := "task-" + t.ID
			parent := projectID
			switch t.Level {
			case models.LevelL1:
				lastL1, lastL2 = taskID, ""
			case models.LevelL2:
				parent = firstNonEmpty(lastL1, projectID)
				lastL2 = taskID
			case models.LevelL3:
				parent = firstNonEmpty(lastL2, lastL1, projectID)
			}

			row := models.GanttTask{
				ID:     taskID,
				Text:   t.Name,
				Parent: parent,
				Type:   models.GanttTypeTask,
				Open:   true,
			}
			if r, ok := c.TaskRange(t); ok {
				row.StartDate, row.EndDate = &r.Start, &r.End
			}
			rows = append(rows, row)

			if !showItems {
				continue
			}
			for _, it := range t.Items {
				r, ok := c.ownRange(it.Date, it.StartDateTime, it.EndDateTime)
				if !ok {
					continue
				}
				rows = append(rows, models.GanttTask{
					ID:        "item-" + it.ID,
					Text:      it.Content,
					StartDate: &r.Start,
					EndDate:   &r.End,
					Parent:    taskID,
					Type:      models.GanttTypeTask,
				})
			}
		}
	}
	return rows
}

// TaskRange infers a task's span: its own date or time if set, else the
// earliest to latest of its items' starts and ends. ok is false when
// neither yields a date.
func (c *Converter) TaskRange(t models.Task) (Range, bool) {
	if t.Date != "" || t.StartDateTime != "" {
		if r, ok := c.ownRange(t.Date, t.StartDateTime, t.EndDateTime); ok {
			return r, true
		}
	}

	var lo, hi time.Time
	found := false
	for _, it := range t.Items {
		for _, s := range []string{
			firstNonEmpty(it.StartDateTime, it.Date),
			firstNonEmpty(it.EndDateTime, it.StartDateTime, it.Date),
		} {
			v, ok := c.parse(s)
			if !ok {
				continue
			}
			if !found || v.Before(lo) {
				lo = v
			}
			if !found || v.After(hi) {
				hi = v
			}
			found = true
		}
	}
	if !found {
		return Range{}, false
	}
	if lo.Equal(hi) {
		hi = c.endOfDay(hi)
	}
	return Range{Start: lo, End: hi}, true
}

// InDateRange reports whether t overlaps filter. The filter end covers its
// whole day. Tasks without a range always match.
func (c *Converter) InDateRange(t models.Task, filter models.DateFilter) bool {
	if filter.IsZero() {
		return true
	}
	r, ok := c.TaskRange(t)
	if !ok {
		return true
	}
	if end, ok := c.parse(filter.End); ok && r.Start.After(c.endOfDay(end)) {
		return false
	}
	if start, ok := c.parse(filter.Start); ok && r.End.Before(start) {
		return false
	}
	return true
}

// ownRange resolves a node's explicit span. A zero-length span is extended
// to the end of its day.
func (c *Converter) ownRange(date, startDateTime, endDateTime string) (Range, bool) {
	start, ok := c.parse(firstNonEmpty(startDateTime, date))
	if !ok {
		return Range{}, false
	}
	end, ok := c.parse(firstNonEmpty(endDateTime, startDateTime, date))
	if !ok {
		end = start
	}
	if end.Equal(start) {
		end = c.endOfDay(start)
	}
	return Range{Start: start, End: end}, true
}

// parse reads YYYY-MM-DD or YYYY-MM-DD HH:MM:SS.
func (c *Converter) parse(s string) (time.Time, bool) {
	if s == "" {
		return time.Time{}, false
	}
	layout := time.DateOnly
	if len(s) > len(time.DateOnly) {
		layout = time.DateTime
	}
	t, err := time.ParseInLocation(layout, s, c.loc)
	if err != nil {
		return time.Time{}, false
	}
	return t, true
}

func (c *Converter) endOfDay(t time.Time) time.Time {
	y, m, d := t.In(c.loc).Date()
	return time.Date(y, m, d, 23, 59, 59, int(999*time.Millisecond), c.loc)
}
