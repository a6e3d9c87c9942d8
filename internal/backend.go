package internal

import (
	"context"
	"fmt"
	"log/slog"
	"os"

	"github.com/starford/bujo/internal/docstore"
	"github.com/starford/bujo/internal/docstore/siyuan"
	"github.com/starford/bujo/internal/index"
	"github.com/starford/bujo/internal/planservice"
	"github.com/starford/bujo/internal/resolver"
	"github.com/starford/bujo/internal/storage"
)

// backend is the document store selected by source.kind together with
// whatever it needs to keep the plan fresh.
type backend struct {
	store docstore.Store

	// Local vault.
	files storage.Provider
	db    *index.DB

	// Remote kernel.
	remote *siyuan.Client
}

func openBackend(cfg *Config, logger *slog.Logger) (*backend, error) {
	if cfg.Source.Kind == SourceSiYuan {
		c := siyuan.New(cfg.SiYuan.URL, cfg.SiYuan.Token)
		return &backend{store: c, remote: c}, nil
	}

	if err := os.MkdirAll(cfg.Vault.Path, 0o755); err != nil {
		return nil, fmt.Errorf("create vault dir: %w", err)
	}
	files, err := storage.NewFS(cfg.Vault.Path)
	if err != nil {
		return nil, fmt.Errorf("init storage: %w", err)
	}
	db, err := index.Open(cfg.SQLite.Path)
	if err != nil {
		return nil, fmt.Errorf("init index: %w", err)
	}
	if err := index.Sync(db, files, logger); err != nil {
		logger.Warn("initial sync failed", slog.String("error", err.Error()))
	}
	return &backend{
		store: docstore.NewLocal(files, db),
		files: files,
		db:    db,
	}, nil
}

func (b *backend) Close() error {
	if b.db != nil {
		return b.db.Close()
	}
	return nil
}

// newPlanService wires the resolver and the plan cache over the backend.
func (b *backend) newPlanService(cfg *Config, logger *slog.Logger, onRefresh func(planservice.Summary)) *planservice.Service {
	res := resolver.New(b.store, logger, cfg.Scan.ResolverOptions())
	return planservice.New(res, b.store, logger, planservice.Config{
		Directories: cfg.Scan.Directories,
		Groups:      cfg.Scan.Groups,
		Location:    cfg.Scan.Location(),
		OnRefresh:   onRefresh,
	})
}

// follow keeps the plan in step with the documents until ctx is cancelled:
// the vault is watched with fsnotify, the remote store is polled. cb, if
// non-nil, receives vault document changes; only planned ones trigger a
// refresh.
func (b *backend) follow(ctx context.Context, cfg *Config, svc *planservice.Service, logger *slog.Logger, cb index.EventCallback) error {
	if b.remote != nil {
		interval := cfg.SiYuan.PollInterval
		if interval <= 0 {
			interval = NewDefaultConfig().SiYuan.PollInterval
		}
		return svc.Poll(ctx, interval, b.remote.LatestUpdate)
	}
	return index.Watch(ctx, b.db, b.files, cfg.Vault.Path, logger, func(c index.Change) {
		if cb != nil {
			cb(c)
		}
		if c.Planned {
			svc.RequestRefresh()
		}
	})
}
