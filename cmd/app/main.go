package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"

	_ "github.com/joho/godotenv/autoload"
	"github.com/urfave/cli/v3"

	"github.com/starford/bujo/internal"
	"github.com/starford/bujo/internal/models"
	pkgconfig "github.com/starford/bujo/pkg/config"
)

func loadConfig(cmd *cli.Command) (*internal.Config, error) {
	cfg := internal.NewDefaultConfig()
	if err := pkgconfig.LoadOptional(cmd.String("config"), cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}
	return cfg, nil
}

func serve(ctx context.Context, cmd *cli.Command) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}
	if err := internal.Run(ctx, internal.WithConfig(cfg)); err != nil {
		return fmt.Errorf("app run error: %w", err)
	}
	return nil
}

func runMCP(ctx context.Context, cmd *cli.Command) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}
	return internal.RunMCP(ctx, internal.WithConfig(cfg))
}

func export(ctx context.Context, cmd *cli.Command) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}
	req := internal.ExportRequest{
		View:      cmd.String("view"),
		Group:     cmd.String("group"),
		Bucket:    cmd.String("bucket"),
		ShowItems: cmd.Bool("show-items"),
		Filter: models.DateFilter{
			Start: cmd.String("start"),
			End:   cmd.String("end"),
		},
	}
	return internal.Export(ctx, os.Stdout, req, internal.WithConfig(cfg))
}

func main() {
	cmd := &cli.Command{
		Name:   "bujo",
		Usage:  "Bullet-journal planner over tagged Markdown documents: projects, calendar and Gantt views",
		Action: serve,
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:        "config",
				Aliases:     []string{"c"},
				Usage:       "Path to config file",
				DefaultText: "config/config.yaml",
				Value:       "config/config.yaml",
				Sources:     cli.EnvVars("APP_CONFIG_FILE"),
			},
		},
		Commands: []*cli.Command{
			{
				Name:   "serve",
				Usage:  "Run the HTTP API (default)",
				Action: serve,
			},
			{
				Name:   "mcp",
				Usage:  "Serve plan tools over MCP stdio",
				Action: runMCP,
			},
			{
				Name:   "export",
				Usage:  "Print one view as JSON",
				Action: export,
				Flags: []cli.Flag{
					&cli.StringFlag{
						Name:  "view",
						Usage: "projects, items, agenda, calendar or gantt",
						Value: internal.ViewProjects,
					},
					&cli.StringFlag{Name: "group", Usage: "Group id filter"},
					&cli.StringFlag{Name: "bucket", Usage: "Item bucket for --view items"},
					&cli.BoolFlag{Name: "show-items", Usage: "Include item rows in the Gantt view"},
					&cli.StringFlag{Name: "start", Usage: "Gantt window start, YYYY-MM-DD"},
					&cli.StringFlag{Name: "end", Usage: "Gantt window end, YYYY-MM-DD"},
				},
			},
		},
	}

	if err := cmd.Run(context.Background(), os.Args); err != nil {
		slog.Error("application error", slog.String("error", err.Error()))
		os.Exit(1)
	}
}
