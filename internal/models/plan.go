// Package models defines the domain types for bujo.
package models

import "time"

// Level is a task's hierarchy depth.
type Level string

// Task levels. L1 is the outermost.
const (
	LevelL1 Level = "L1"
	LevelL2 Level = "L2"
	LevelL3 Level = "L3"
)

// ItemStatus is derived from a trailing status tag on an item line.
type ItemStatus string

// Item statuses.
const (
	StatusPending   ItemStatus = "pending"
	StatusCompleted ItemStatus = "completed"
	StatusAbandoned ItemStatus = "abandoned"
)

// Link is a named URL. Duplicates are allowed.
type Link struct {
	Name string `json:"name"`
	URL  string `json:"url"`
}

// Item is a dated work entry under a task.
//
// TaskID and ProjectID are only filled in flattened views; inside the
// Project tree ownership is one-directional.
type Item struct {
	ID            string     `json:"id"`
	Content       string     `json:"content"`
	Date          string     `json:"date"`
	StartDateTime string     `json:"startDateTime,omitempty"`
	EndDateTime   string     `json:"endDateTime,omitempty"`
	Status        ItemStatus `json:"status"`
	LineNumber    int        `json:"lineNumber"`
	DocID         string     `json:"docId"`
	BlockID       string     `json:"blockId,omitempty"`
	TaskID        string     `json:"taskId,omitempty"`
	ProjectID     string     `json:"projectId,omitempty"`
}

// Task is a tagged line that owns the items following it.
type Task struct {
	ID            string `json:"id"`
	Name          string `json:"name"`
	Level         Level  `json:"level"`
	Date          string `json:"date,omitempty"`
	StartDateTime string `json:"startDateTime,omitempty"`
	EndDateTime   string `json:"endDateTime,omitempty"`
	Links         []Link `json:"links,omitempty"`
	Items         []Item `json:"items"`
	LineNumber    int    `json:"lineNumber"`
	DocID         string `json:"docId,omitempty"`
	BlockID       string `json:"blockId,omitempty"`
}

// Project is one source document with at least one task.
type Project struct {
	ID          string `json:"id"`
	Name        string `json:"name"`
	Description string `json:"description,omitempty"`
	Path        string `json:"path"`
	GroupID     string `json:"groupId,omitempty"`
	Links       []Link `json:"links"`
	Tasks       []Task `json:"tasks"`
}

// ProjectDirectory selects documents whose hierarchical path contains Path.
type ProjectDirectory struct {
	ID      string `json:"id" yaml:"id"`
	Path    string `json:"path" yaml:"path"`
	Enabled bool   `json:"enabled" yaml:"enabled"`
	GroupID string `json:"groupId,omitempty" yaml:"group_id"`
}

// ProjectGroup names a group id assigned through directories.
type ProjectGroup struct {
	ID   string `json:"id" yaml:"id"`
	Name string `json:"name" yaml:"name"`
}

// ItemRef locates an item's owners in a flattened view.
type ItemRef struct {
	TaskID    string `json:"taskId"`
	ProjectID string `json:"projectId"`
}

// ItemIndex maps item id to its owners.
type ItemIndex map[string]ItemRef

// CalendarEvent is one entry in a calendar view.
type CalendarEvent struct {
	ID            string        `json:"id"`
	Title         string        `json:"title"`
	Start         string        `json:"start"`
	End           string        `json:"end,omitempty"`
	AllDay        bool          `json:"allDay"`
	ExtendedProps EventMetadata `json:"extendedProps"`
}

// EventMetadata carries display and navigation data for a calendar event.
type EventMetadata struct {
	Project      string     `json:"project,omitempty"`
	ProjectLinks []Link     `json:"projectLinks,omitempty"`
	GroupID      string     `json:"groupId,omitempty"`
	Task         string     `json:"task,omitempty"`
	TaskLinks    []Link     `json:"taskLinks,omitempty"`
	Level        Level      `json:"level,omitempty"`
	Item         string     `json:"item,omitempty"`
	Status       ItemStatus `json:"status,omitempty"`
	HasItems     bool       `json:"hasItems"`
	DocID        string     `json:"docId"`
	LineNumber   int        `json:"lineNumber"`
	BlockID      string     `json:"blockId,omitempty"`
}

// Gantt row types.
const (
	GanttTypeProject = "project"
	GanttTypeTask    = "task"
)

// GanttTask is one row in a Gantt chart.
type GanttTask struct {
	ID        string     `json:"id"`
	Text      string     `json:"text"`
	StartDate *time.Time `json:"start_date,omitempty"`
	EndDate   *time.Time `json:"end_date,omitempty"`
	Parent    string     `json:"parent,omitempty"`
	Type      string     `json:"type"`
	Open      bool       `json:"open,omitempty"`
	Progress  float64    `json:"progress"`
}

// DateFilter restricts Gantt tasks to an inclusive date window.
// Both bounds are optional YYYY-MM-DD strings.
type DateFilter struct {
	Start string `json:"start,omitempty"`
	End   string `json:"end,omitempty"`
}

// IsZero reports whether neither bound is set.
func (f DateFilter) IsZero() bool {
	return f.Start == "" && f.End == ""
}
