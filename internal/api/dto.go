package api

import (
	"github.com/starford/bujo/internal/models"
	"github.com/starford/bujo/internal/planservice"
)

// StatusRequest is the request body for marking an item.
type StatusRequest struct {
	Status models.ItemStatus `json:"status" example:"completed" enums:"completed,abandoned" validate:"required"`
}

// ScheduleRequest is the request body for moving an item.
type ScheduleRequest struct {
	Date   string `json:"date" example:"2026-02-24" validate:"required"`
	Start  string `json:"start,omitempty" example:"10:00"`
	End    string `json:"end,omitempty" example:"11:00"`
	AllDay bool   `json:"allDay,omitempty"`
}

// ProjectsResponse wraps the project list.
type ProjectsResponse struct {
	Projects []models.Project `json:"projects" validate:"required"`
}

// ItemsResponse wraps a flattened item list.
type ItemsResponse struct {
	Items []models.Item `json:"items" validate:"required"`
}

// AgendaResponse wraps upcoming items grouped by date.
type AgendaResponse struct {
	Days []planservice.DateGroup `json:"days" validate:"required"`
}

// CalendarResponse wraps calendar events.
type CalendarResponse struct {
	Events []models.CalendarEvent `json:"events" validate:"required"`
}

// GanttResponse wraps Gantt rows.
type GanttResponse struct {
	Tasks []models.GanttTask `json:"tasks" validate:"required"`
}

// GroupsResponse wraps the configured groups.
type GroupsResponse struct {
	Groups []models.ProjectGroup `json:"groups" validate:"required"`
}

// StatusResponse reports the plan cache state.
type StatusResponse struct {
	planservice.Summary
	Refreshing bool `json:"refreshing"`
}
