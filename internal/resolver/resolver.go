// Package resolver selects project documents from a store and parses them.
package resolver

import (
	"context"
	"log/slog"

	"golang.org/x/sync/errgroup"

	"github.com/starford/bujo/internal/docstore"
	"github.com/starford/bujo/internal/models"
	"github.com/starford/bujo/internal/parser"
)

// Defaults applied when Options leave a field at zero.
const (
	DefaultTagSearchLimit = 500
	DefaultConcurrency    = 4
)

// Options tunes a Resolver.
type Options struct {
	// TagSearchLimit caps the tag-based document search used when no
	// directories are configured.
	TagSearchLimit int
	// Concurrency bounds parallel document fetches.
	Concurrency int
}

// Resolver turns directory filters into parsed projects.
type Resolver struct {
	store  docstore.Store
	logger *slog.Logger
	opts   Options
}

// New creates a Resolver.
func New(store docstore.Store, logger *slog.Logger, opts Options) *Resolver {
	if opts.TagSearchLimit <= 0 {
		opts.TagSearchLimit = DefaultTagSearchLimit
	}
	if opts.Concurrency <= 0 {
		opts.Concurrency = DefaultConcurrency
	}
	return &Resolver{store: store, logger: logger, opts: opts}
}

type candidate struct {
	row     docstore.DocRow
	groupID string
}

// ParseAllProjects returns the projects found under dirs, in document
// discovery order. An empty dirs list searches every document carrying the
// task tag. Otherwise only enabled entries are used and a document matched
// by several keeps the first entry's group. Documents that fail to load are
// logged and skipped; the only error returned is from ctx.
func (r *Resolver) ParseAllProjects(ctx context.Context, dirs []models.ProjectDirectory) ([]models.Project, error) {
	cands := r.candidates(ctx, dirs)
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	slots := make([]*models.Project, len(cands))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(r.opts.Concurrency)
	for i, c := range cands {
		g.Go(func() error {
			if gctx.Err() != nil {
				return gctx.Err()
			}
			slots[i] = r.parse(gctx, c)
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	projects := make([]models.Project, 0, len(slots))
	for _, p := range slots {
		if p != nil {
			projects = append(projects, *p)
		}
	}
	return projects, nil
}

// GetAllItems flattens the projects under dirs into items.
func (r *Resolver) GetAllItems(ctx context.Context, dirs []models.ProjectDirectory) ([]models.Item, error) {
	projects, err := r.ParseAllProjects(ctx, dirs)
	if err != nil {
		return nil, err
	}
	items, _ := FlattenItems(projects)
	return items, nil
}

func (r *Resolver) candidates(ctx context.Context, dirs []models.ProjectDirectory) []candidate {
	if len(dirs) == 0 {
		rows, err := r.store.Query(ctx, docstore.Query{
			ContentContains: parser.TaskTag,
			Limit:           r.opts.TagSearchLimit,
		})
		if err != nil {
			r.logger.Warn("resolver: tag search failed", slog.String("error", err.Error()))
			return nil
		}
		out := make([]candidate, 0, len(rows))
		for _, row := range rows {
			out = append(out, candidate{row: row})
		}
		return out
	}

	var out []candidate
	seen := make(map[string]bool)
	for _, d := range dirs {
		if !d.Enabled {
			continue
		}
		rows, err := r.store.Query(ctx, docstore.Query{PathContains: d.Path})
		if err != nil {
			r.logger.Warn("resolver: directory query failed",
				slog.String("directory", d.Path),
				slog.String("error", err.Error()))
			continue
		}
		for _, row := range rows {
			if seen[row.ID] {
				continue
			}
			seen[row.ID] = true
			out = append(out, candidate{row: row, groupID: d.GroupID})
		}
	}
	return out
}

func (r *Resolver) parse(ctx context.Context, c candidate) *models.Project {
	text, err := r.store.AnnotatedText(ctx, c.row.ID)
	if err != nil {
		if ctx.Err() == nil {
			r.logger.Warn("resolver: fetch document failed",
				slog.String("doc_id", c.row.ID),
				slog.String("error", err.Error()))
		}
		return nil
	}
	return parser.ParseAnnotated(parser.Document{
		ID:      c.row.ID,
		Path:    c.row.HPath,
		Box:     c.row.Box,
		GroupID: c.groupID,
	}, text)
}
