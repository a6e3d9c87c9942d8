package convert

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/starford/bujo/internal/models"
	"github.com/starford/bujo/internal/parser"
)

func task(id string, level models.Level, date string, items ...models.Item) models.Task {
	if items == nil {
		items = []models.Item{}
	}
	return models.Task{ID: id, Name: "task " + id, Level: level, Date: date, Items: items}
}

func item(id, date, start, end string) models.Item {
	return models.Item{ID: id, Content: "item " + id, Date: date, StartDateTime: start, EndDateTime: end, Status: models.StatusPending, DocID: "doc"}
}

func TestGanttNesting(t *testing.T) {
	c := New(time.UTC)
	p := models.Project{ID: "p", Name: "Alpha", Tasks: []models.Task{
		task("A", models.LevelL1, ""),
		task("B", models.LevelL2, ""),
		task("C", models.LevelL3, ""),
		task("D", models.LevelL1, ""),
		task("E", models.LevelL2, ""),
	}}

	rows := c.ProjectsToGanttTasks([]models.Project{p}, false, models.DateFilter{})
	require.Len(t, rows, 6)

	assert.Equal(t, "proj-p", rows[0].ID)
	assert.Equal(t, models.GanttTypeProject, rows[0].Type)
	assert.True(t, rows[0].Open)

	parents := map[string]string{}
	for _, r := range rows[1:] {
		parents[r.ID] = r.Parent
		assert.Nil(t, r.StartDate)
	}
	assert.Equal(t, "proj-p", parents["task-A"])
	assert.Equal(t, "task-A", parents["task-B"])
	assert.Equal(t, "task-B", parents["task-C"])
	assert.Equal(t, "proj-p", parents["task-D"])
	assert.Equal(t, "task-D", parents["task-E"])
}

func TestGanttOrphanLevels(t *testing.T) {
	c := New(time.UTC)
	p := models.Project{ID: "p", Tasks: []models.Task{
		task("B", models.LevelL2, ""),
		task("C", models.LevelL3, ""),
	}}
	rows := c.ProjectsToGanttTasks([]models.Project{p}, false, models.DateFilter{})
	require.Len(t, rows, 3)
	assert.Equal(t, "proj-p", rows[1].Parent)
	// L2 without a preceding L1 sits under the project, so L3 falls back too.
	assert.Equal(t, "proj-p", rows[2].Parent)
}

func TestGanttItemRows(t *testing.T) {
	c := New(time.UTC)
	p := models.Project{ID: "p", Tasks: []models.Task{
		task("A", models.LevelL1, "",
			item("i1", "2026-02-24", "", ""),
			item("i2", "2026-02-25", "2026-02-25 10:00:00", "2026-02-25 11:00:00"),
		),
	}}

	rows := c.ProjectsToGanttTasks([]models.Project{p}, true, models.DateFilter{})
	require.Len(t, rows, 4)

	taskRow := rows[1]
	require.NotNil(t, taskRow.StartDate)
	assert.Equal(t, time.Date(2026, 2, 24, 0, 0, 0, 0, time.UTC), *taskRow.StartDate)
	assert.Equal(t, time.Date(2026, 2, 25, 11, 0, 0, 0, time.UTC), *taskRow.EndDate)

	allDay := rows[2]
	assert.Equal(t, "item-i1", allDay.ID)
	assert.Equal(t, "task-A", allDay.Parent)
	assert.False(t, allDay.Open)
	assert.Equal(t, time.Date(2026, 2, 24, 23, 59, 59, 999_000_000, time.UTC), *allDay.EndDate)

	timed := rows[3]
	assert.Equal(t, time.Date(2026, 2, 25, 10, 0, 0, 0, time.UTC), *timed.StartDate)
	assert.Equal(t, time.Date(2026, 2, 25, 11, 0, 0, 0, time.UTC), *timed.EndDate)
}

func TestTaskRange(t *testing.T) {
	c := New(time.UTC)

	t.Run("own date covers the day", func(t *testing.T) {
		r, ok := c.TaskRange(task("A", models.LevelL1, "2026-03-01"))
		require.True(t, ok)
		assert.Equal(t, time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC), r.Start)
		assert.Equal(t, time.Date(2026, 3, 1, 23, 59, 59, 999_000_000, time.UTC), r.End)
	})

	t.Run("own date wins over items", func(t *testing.T) {
		r, ok := c.TaskRange(task("A", models.LevelL1, "2026-03-01", item("i", "2026-05-01", "", "")))
		require.True(t, ok)
		assert.Equal(t, 3, int(r.Start.Month()))
	})

	t.Run("single item date extends end only", func(t *testing.T) {
		r, ok := c.TaskRange(task("A", models.LevelL1, "", item("i", "2026-04-02", "", "")))
		require.True(t, ok)
		assert.Equal(t, time.Date(2026, 4, 2, 0, 0, 0, 0, time.UTC), r.Start)
		assert.Equal(t, time.Date(2026, 4, 2, 23, 59, 59, 999_000_000, time.UTC), r.End)
	})

	t.Run("no dates", func(t *testing.T) {
		_, ok := c.TaskRange(task("A", models.LevelL1, ""))
		assert.False(t, ok)
	})
}

func TestInDateRange(t *testing.T) {
	c := New(time.UTC)
	filter := models.DateFilter{Start: "2026-02-01", End: "2026-02-28"}

	cases := []struct {
		name string
		task models.Task
		want bool
	}{
		{"undated passes", task("A", models.LevelL1, ""), true},
		{"inside", task("A", models.LevelL1, "2026-02-10"), true},
		{"on end date", task("A", models.LevelL1, "2026-02-28"), true},
		{"on start date", task("A", models.LevelL1, "2026-02-01"), true},
		{"after", task("A", models.LevelL1, "2026-03-01"), false},
		{"before", task("A", models.LevelL1, "2026-01-31"), false},
		{"items overlap", task("A", models.LevelL1, "", item("i1", "2026-01-20", "", ""), item("i2", "2026-02-02", "", "")), true},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.want, c.InDateRange(tc.task, filter))
		})
	}

	assert.True(t, c.InDateRange(task("A", models.LevelL1, "2020-01-01"), models.DateFilter{}))
	assert.True(t, c.InDateRange(task("A", models.LevelL1, "2026-03-05"), models.DateFilter{Start: "2026-03-01"}))
	assert.False(t, c.InDateRange(task("A", models.LevelL1, "2026-03-05"), models.DateFilter{End: "2026-03-01"}))
}

func TestGanttDropsEmptyProjects(t *testing.T) {
	c := New(time.UTC)
	projects := []models.Project{
		{ID: "old", Tasks: []models.Task{task("A", models.LevelL1, "2025-01-01")}},
		{ID: "new", Tasks: []models.Task{task("B", models.LevelL1, "2026-02-10")}},
	}
	rows := c.ProjectsToGanttTasks(projects, false, models.DateFilter{Start: "2026-02-01", End: "2026-02-28"})
	require.Len(t, rows, 2)
	assert.Equal(t, "proj-new", rows[0].ID)
	assert.Equal(t, "task-B", rows[1].ID)
}

func TestCalendarEvents(t *testing.T) {
	p := models.Project{ID: "doc1", Name: "Alpha", GroupID: "work", Tasks: []models.Task{
		{ID: "t1", Name: "Dated", Level: models.LevelL1, Date: "2026-02-24", Items: []models.Item{
			{ID: "i1", Content: "Standup", Date: "2026-02-24", StartDateTime: "2026-02-24 09:00:00", EndDateTime: "2026-02-24 09:15:00", Status: models.StatusCompleted, DocID: "doc1", BlockID: "b2"},
			{ID: "i2", Content: "Write", Date: "2026-02-25", Status: models.StatusPending, DocID: "doc1"},
		}},
		{ID: "t2", Name: "Undated", Level: models.LevelL2, Items: []models.Item{}},
		{ID: "t3", Name: "Timed", Level: models.LevelL2, Date: "2026-02-26", StartDateTime: "2026-02-26 14:00:00", EndDateTime: "2026-02-26 14:00:00", Items: []models.Item{}},
	}}

	events := ProjectsToCalendarEvents([]models.Project{p})
	require.Len(t, events, 4)

	dated := events[0]
	assert.Equal(t, "t1", dated.ID)
	assert.True(t, dated.AllDay)
	assert.Equal(t, "2026-02-24", dated.Start)
	assert.Empty(t, dated.End)
	assert.True(t, dated.ExtendedProps.HasItems)
	assert.Equal(t, "doc1", dated.ExtendedProps.DocID)
	assert.Equal(t, "work", dated.ExtendedProps.GroupID)

	standup := events[1]
	assert.Equal(t, "i1", standup.ID)
	assert.False(t, standup.AllDay)
	assert.Equal(t, "2026-02-24 09:00:00", standup.Start)
	assert.Equal(t, "2026-02-24 09:15:00", standup.End)
	assert.Equal(t, models.StatusCompleted, standup.ExtendedProps.Status)
	assert.Equal(t, "Standup", standup.ExtendedProps.Item)
	assert.Equal(t, "b2", standup.ExtendedProps.BlockID)
	assert.True(t, standup.ExtendedProps.HasItems)

	write := events[2]
	assert.True(t, write.AllDay)
	assert.Empty(t, write.End)

	timed := events[3]
	assert.Equal(t, "t3", timed.ID)
	assert.False(t, timed.AllDay)
	assert.Empty(t, timed.End)
	assert.False(t, timed.ExtendedProps.HasItems)
}

func TestGanttRowIDsUniqueForParsedDocument(t *testing.T) {
	blocks := []parser.Block{
		{Content: "## Alpha"},
		{Content: "A #任务 @L1 @2026-02-24"},
		{Content: "a1 @2026-02-24"},
		{Content: "B #任务 @L2 @2026-02-25"},
		{Content: "b1 @2026-02-25"},
		{Content: "D #任务 @L1 @2026-02-26"},
		{Content: "E #任务 @L2 @2026-02-27"},
		{Content: "e1 @2026-02-27"},
	}
	p := parser.ParseDocument(parser.Document{ID: "doc", Path: "/alpha"}, blocks)
	require.NotNil(t, p)

	rows := New(time.UTC).ProjectsToGanttTasks([]models.Project{*p}, true, models.DateFilter{})
	require.Len(t, rows, 8)

	seen := map[string]bool{}
	for _, r := range rows {
		assert.False(t, seen[r.ID], "duplicate row id %s", r.ID)
		seen[r.ID] = true
		assert.NotEqual(t, r.ID, r.Parent, "row %s is its own parent", r.ID)
	}

	byText := map[string]models.GanttTask{}
	for _, r := range rows {
		byText[r.Text] = r
	}
	assert.Equal(t, byText["A"].ID, byText["B"].Parent)
	assert.Equal(t, byText["D"].ID, byText["E"].Parent)

	events := ProjectsToCalendarEvents([]models.Project{*p})
	ids := map[string]bool{}
	for _, e := range events {
		assert.False(t, ids[e.ID], "duplicate event id %s", e.ID)
		ids[e.ID] = true
	}
}
