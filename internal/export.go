package internal

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"

	"github.com/starford/bujo/internal/models"
	"github.com/starford/bujo/internal/planservice"
)

// Export views.
const (
	ViewProjects = "projects"
	ViewItems    = "items"
	ViewAgenda   = "agenda"
	ViewCalendar = "calendar"
	ViewGantt    = "gantt"
)

// ExportRequest selects the view written by Export.
type ExportRequest struct {
	View      string
	Group     string
	Bucket    string
	ShowItems bool
	Filter    models.DateFilter
}

// Export runs one refresh and writes the requested view to w as JSON.
// Logs go to stderr.
func Export(ctx context.Context, w io.Writer, req ExportRequest, opts ...Option) error {
	app, err := newApplication(opts)
	if err != nil {
		return err
	}
	cfg := app.config
	logger := app.logger(os.Stderr)

	b, err := openBackend(cfg, logger)
	if err != nil {
		return err
	}
	defer b.Close()

	svc := b.newPlanService(cfg, logger, nil)
	if _, err := svc.Refresh(ctx); err != nil {
		return fmt.Errorf("refresh: %w", err)
	}

	view, err := exportView(svc, req)
	if err != nil {
		return err
	}
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(view)
}

func exportView(svc *planservice.Service, req ExportRequest) (any, error) {
	switch req.View {
	case ViewProjects, "":
		return svc.Projects(req.Group), nil
	case ViewItems:
		bucket, err := planservice.ParseBucket(req.Bucket)
		if err != nil {
			return nil, err
		}
		return svc.Items(req.Group, bucket), nil
	case ViewAgenda:
		return svc.GroupedFuture(req.Group), nil
	case ViewCalendar:
		return svc.CalendarEvents(req.Group), nil
	case ViewGantt:
		return svc.GanttTasks(req.Group, req.ShowItems, req.Filter), nil
	default:
		return nil, fmt.Errorf("unknown view %q", req.View)
	}
}
