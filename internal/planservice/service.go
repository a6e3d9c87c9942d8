// Package planservice keeps the current plan (projects, items, calendar
// events) in memory and serves filtered views and block mutations.
package planservice

import (
	"context"
	"fmt"
	"log/slog"
	"slices"
	"sync"
	"sync/atomic"
	"time"

	"github.com/starford/bujo/internal/apperr"
	"github.com/starford/bujo/internal/convert"
	"github.com/starford/bujo/internal/docstore"
	"github.com/starford/bujo/internal/models"
	"github.com/starford/bujo/internal/parser"
	"github.com/starford/bujo/internal/resolver"
)

// DefaultQuietPeriod is how long refresh requests must settle before a
// debounced refresh runs.
const DefaultQuietPeriod = 500 * time.Millisecond

// ProjectSource produces the project list for a set of directory filters.
type ProjectSource interface {
	ParseAllProjects(ctx context.Context, dirs []models.ProjectDirectory) ([]models.Project, error)
}

// Config configures a Service.
type Config struct {
	Directories []models.ProjectDirectory
	Groups      []models.ProjectGroup
	Location    *time.Location
	QuietPeriod time.Duration
	// OnRefresh is called after every successful refresh.
	OnRefresh func(Summary)
}

// Summary describes the last refresh.
type Summary struct {
	Projects    int       `json:"projects"`
	Items       int       `json:"items"`
	RefreshedAt time.Time `json:"refreshedAt"`
}

// DateGroup is the items falling on one date.
type DateGroup struct {
	Date  string        `json:"date"`
	Items []models.Item `json:"items"`
}

type snapshot struct {
	projects []models.Project
	items    []models.Item
	index    models.ItemIndex
	events   []models.CalendarEvent
	groupOf  map[string]string // project id -> group id
	summary  Summary
}

// Service coordinates the resolver, the converter and the document store.
type Service struct {
	source ProjectSource
	store  docstore.Store
	conv   *convert.Converter
	logger *slog.Logger
	cfg    Config
	now    func() time.Time

	refreshing atomic.Bool
	requests   chan struct{}

	mu   sync.RWMutex
	snap snapshot
}

// New creates a Service with an empty plan. Call Refresh to load it.
func New(source ProjectSource, store docstore.Store, logger *slog.Logger, cfg Config) *Service {
	if cfg.Location == nil {
		cfg.Location = time.Local
	}
	if cfg.QuietPeriod <= 0 {
		cfg.QuietPeriod = DefaultQuietPeriod
	}
	return &Service{
		source:   source,
		store:    store,
		conv:     convert.New(cfg.Location),
		logger:   logger,
		cfg:      cfg,
		now:      time.Now,
		requests: make(chan struct{}, 1),
		snap: snapshot{
			projects: []models.Project{},
			items:    []models.Item{},
			index:    models.ItemIndex{},
			events:   []models.CalendarEvent{},
			groupOf:  map[string]string{},
		},
	}
}

// Refresh re-derives the whole plan from the store. A call made while
// another refresh is running returns apperr.ErrRefreshInProgress at once.
func (s *Service) Refresh(ctx context.Context) (Summary, error) {
	if !s.refreshing.CompareAndSwap(false, true) {
		return Summary{}, apperr.ErrRefreshInProgress
	}
	defer s.refreshing.Store(false)
	return s.refresh(ctx)
}

// StartRefresh runs Refresh in the background. It fails with
// apperr.ErrRefreshInProgress instead of starting a second one.
func (s *Service) StartRefresh(ctx context.Context) error {
	if !s.refreshing.CompareAndSwap(false, true) {
		return apperr.ErrRefreshInProgress
	}
	go func() {
		defer s.refreshing.Store(false)
		if _, err := s.refresh(ctx); err != nil {
			s.logger.Warn("plan: refresh failed", slog.String("error", err.Error()))
		}
	}()
	return nil
}

func (s *Service) refresh(ctx context.Context) (Summary, error) {
	start := s.now()
	projects, err := s.source.ParseAllProjects(ctx, s.cfg.Directories)
	if err != nil {
		return Summary{}, fmt.Errorf("planservice: refresh: %w", err)
	}

	items, idx := resolver.FlattenItems(projects)
	groupOf := make(map[string]string, len(projects))
	for _, p := range projects {
		groupOf[p.ID] = p.GroupID
	}
	summary := Summary{Projects: len(projects), Items: len(items), RefreshedAt: s.now()}

	s.mu.Lock()
	s.snap = snapshot{
		projects: projects,
		items:    items,
		index:    idx,
		events:   convert.ProjectsToCalendarEvents(projects),
		groupOf:  groupOf,
		summary:  summary,
	}
	s.mu.Unlock()

	s.logger.Info("plan: refreshed",
		slog.Int("projects", summary.Projects),
		slog.Int("items", summary.Items),
		slog.Duration("took", summary.RefreshedAt.Sub(start)))

	if s.cfg.OnRefresh != nil {
		s.cfg.OnRefresh(summary)
	}
	return summary, nil
}

// Refreshing reports whether a refresh is running.
func (s *Service) Refreshing() bool {
	return s.refreshing.Load()
}

// LastRefresh returns the summary of the last successful refresh. Its
// RefreshedAt is zero before the first one.
func (s *Service) LastRefresh() Summary {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.snap.summary
}

// Groups returns the configured project groups.
func (s *Service) Groups() []models.ProjectGroup {
	if s.cfg.Groups == nil {
		return []models.ProjectGroup{}
	}
	return s.cfg.Groups
}

// Projects returns the projects in group, or all of them when group is empty.
func (s *Service) Projects(group string) []models.Project {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.projectsLocked(group)
}

func (s *Service) projectsLocked(group string) []models.Project {
	if group == "" {
		return s.snap.projects
	}
	out := []models.Project{}
	for _, p := range s.snap.projects {
		if p.GroupID == group {
			out = append(out, p)
		}
	}
	return out
}

// Items returns the flattened items in group that fall into bucket.
func (s *Service) Items(group string, bucket Bucket) []models.Item {
	s.mu.RLock()
	defer s.mu.RUnlock()

	today := s.today()
	out := []models.Item{}
	for _, it := range s.snap.items {
		if group != "" && s.snap.groupOf[it.ProjectID] != group {
			continue
		}
		if bucket.contains(it, today) {
			out = append(out, it)
		}
	}
	return out
}

// Lookup returns the owners of an item.
func (s *Service) Lookup(itemID string) (models.ItemRef, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	ref, ok := s.snap.index[itemID]
	return ref, ok
}

// GroupedFuture groups items dated today or later by date, in date order.
// Each group is sorted by start time, all-day items first.
func (s *Service) GroupedFuture(group string) []DateGroup {
	s.mu.RLock()
	defer s.mu.RUnlock()

	today := s.today()
	byDate := map[string][]models.Item{}
	for _, it := range s.snap.items {
		if group != "" && s.snap.groupOf[it.ProjectID] != group {
			continue
		}
		if it.Date >= today {
			byDate[it.Date] = append(byDate[it.Date], it)
		}
	}

	out := make([]DateGroup, 0, len(byDate))
	for date, items := range byDate {
		slices.SortStableFunc(items, func(a, b models.Item) int {
			return compareStrings(startOrDate(a), startOrDate(b))
		})
		out = append(out, DateGroup{Date: date, Items: items})
	}
	slices.SortFunc(out, func(a, b DateGroup) int { return compareStrings(a.Date, b.Date) })
	return out
}

// CalendarEvents returns the calendar events of projects in group.
func (s *Service) CalendarEvents(group string) []models.CalendarEvent {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if group == "" {
		return s.snap.events
	}
	out := []models.CalendarEvent{}
	for _, e := range s.snap.events {
		if s.snap.groupOf[e.ExtendedProps.DocID] == group {
			out = append(out, e)
		}
	}
	return out
}

// GanttTasks renders the projects in group as Gantt rows.
func (s *Service) GanttTasks(group string, showItems bool, filter models.DateFilter) []models.GanttTask {
	s.mu.RLock()
	projects := s.projectsLocked(group)
	s.mu.RUnlock()
	return s.conv.ProjectsToGanttTasks(projects, showItems, filter)
}

// SetItemStatus tags the block as completed or abandoned in the store and
// schedules a refresh.
func (s *Service) SetItemStatus(ctx context.Context, blockID string, status models.ItemStatus) error {
	if blockID == "" {
		return fmt.Errorf("planservice: empty block id: %w", apperr.ErrInvalidInput)
	}
	return s.rewriteBlock(ctx, blockID, func(kramdown string) (string, error) {
		return parser.SetStatusTag(kramdown, status)
	})
}

// RescheduleItem replaces the block's date marker and schedules a refresh.
func (s *Service) RescheduleItem(ctx context.Context, blockID string, sched parser.Schedule) error {
	if blockID == "" {
		return fmt.Errorf("planservice: empty block id: %w", apperr.ErrInvalidInput)
	}
	return s.rewriteBlock(ctx, blockID, func(kramdown string) (string, error) {
		return parser.Reschedule(kramdown, sched)
	})
}

func (s *Service) rewriteBlock(ctx context.Context, blockID string, rewrite func(string) (string, error)) error {
	kramdown, err := s.store.BlockText(ctx, blockID)
	if err != nil {
		return err
	}
	updated, err := rewrite(kramdown)
	if err != nil {
		return fmt.Errorf("planservice: %w: %w", apperr.ErrInvalidInput, err)
	}
	if err := s.store.UpdateBlock(ctx, blockID, updated); err != nil {
		return err
	}
	s.logger.Info("plan: block updated", slog.String("block_id", blockID))
	s.RequestRefresh()
	return nil
}

func (s *Service) today() string {
	return s.now().In(s.cfg.Location).Format(time.DateOnly)
}

func startOrDate(it models.Item) string {
	if it.StartDateTime != "" {
		return it.StartDateTime
	}
	return it.Date
}

func compareStrings(a, b string) int {
	switch {
	case a < b:
		return -1
	case a > b:
		return 1
	}
	return 0
}
