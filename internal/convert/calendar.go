// Package convert turns parsed projects into calendar and Gantt view models.
package convert

import "github.com/starford/bujo/internal/models"

// ProjectsToCalendarEvents emits one event per dated task and one per item.
// Events without an explicit start time are all-day.
func ProjectsToCalendarEvents(projects []models.Project) []models.CalendarEvent {
	events := []models.CalendarEvent{}
	for _, p := range projects {
		for _, t := range p.Tasks {
			if t.Date != "" || t.StartDateTime != "" {
				events = append(events, taskEvent(p, t))
			}
			for _, it := range t.Items {
				events = append(events, itemEvent(p, t, it))
			}
		}
	}
	return events
}

func taskEvent(p models.Project, t models.Task) models.CalendarEvent {
	start, end := span(t.Date, t.StartDateTime, t.EndDateTime)
	return models.CalendarEvent{
		ID:     t.ID,
		Title:  t.Name,
		Start:  start,
		End:    end,
		AllDay: t.StartDateTime == "",
		ExtendedProps: models.EventMetadata{
			Project:      p.Name,
			ProjectLinks: p.Links,
			GroupID:      p.GroupID,
			Task:         t.Name,
			TaskLinks:    t.Links,
			Level:        t.Level,
			HasItems:     len(t.Items) > 0,
			DocID:        p.ID,
			LineNumber:   t.LineNumber,
			BlockID:      t.BlockID,
		},
	}
}

func itemEvent(p models.Project, t models.Task, it models.Item) models.CalendarEvent {
	start, end := span(it.Date, it.StartDateTime, it.EndDateTime)
	return models.CalendarEvent{
		ID:     it.ID,
		Title:  it.Content,
		Start:  start,
		End:    end,
		AllDay: it.StartDateTime == "",
		ExtendedProps: models.EventMetadata{
			Project:      p.Name,
			ProjectLinks: p.Links,
			GroupID:      p.GroupID,
			Task:         t.Name,
			TaskLinks:    t.Links,
			Level:        t.Level,
			Item:         it.Content,
			Status:       it.Status,
			HasItems:     true,
			DocID:        it.DocID,
			LineNumber:   it.LineNumber,
			BlockID:      it.BlockID,
		},
	}
}

// span resolves start and end through the start-or-date fallback chain.
// end is empty when it equals start.
func span(date, startDateTime, endDateTime string) (start, end string) {
	start = firstNonEmpty(startDateTime, date)
	end = firstNonEmpty(endDateTime, startDateTime, date)
	if end == start {
		end = ""
	}
	return start, end
}

func firstNonEmpty(vals ...string) string {
	for _, v := range vals {
		if v != "" {
			return v
		}
	}
	return ""
}
