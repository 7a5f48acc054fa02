package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	corecfg "github.com/aevon-lab/vahan-pulse/internal/core/config"
	"github.com/aevon-lab/vahan-pulse/internal/dataset"
	"github.com/aevon-lab/vahan-pulse/internal/datasource"
	"github.com/aevon-lab/vahan-pulse/internal/ingestion"
	"github.com/aevon-lab/vahan-pulse/internal/metrics"
	"github.com/aevon-lab/vahan-pulse/internal/projection"
	"github.com/aevon-lab/vahan-pulse/internal/server"
)

func main() {
	configPath := flag.String("config", envOr("VAHAN_CONFIG", "vahan.yaml"), "Path to configuration file")
	flag.Parse()

	// 0. Initialize Logger
	logger := slog.New(slog.NewTextHandler(os.Stdout, nil))
	slog.SetDefault(logger)

	// 1. Load Configuration
	cfg, err := corecfg.Load(*configPath)
	if err != nil {
		slog.Error("Failed to load config", "error", err)
		os.Exit(1)
	}
	slog.Info("Loaded config",
		"source", cfg.Source.Type,
		"views", len(cfg.Views),
		"refresh_schedule", cfg.Source.RefreshSchedule)

	// 2. Open the record source (file, postgres or sqlite)
	sources, err := datasource.Open(cfg.Source, cfg.Database)
	if err != nil {
		slog.Error("Failed to open record source", "error", err)
		os.Exit(1)
	}
	defer sources.Close()

	reg := metrics.New()

	// 3. Load the initial snapshot. Serving without data is pointless, so this is fatal.
	manager := dataset.NewManager(sources.Primary, dataset.Options{
		Fallback:    sources.Fallback,
		LoadTimeout: cfg.Source.EffectiveLoadTimeout(),
		Metrics:     reg,
	})

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	snap, err := manager.Reload(ctx)
	if err != nil {
		slog.Error("Failed to load registrations", "error", err)
		os.Exit(1)
	}
	slog.Info("Dataset ready",
		"dataset_id", snap.ID,
		"records", len(snap.Records),
		"source", snap.Source,
		"fallback", snap.Fallback)

	// 4. Query and upload services
	projectionSvc := projection.NewService(manager, cfg.Views, projection.Options{
		YoYLag:           cfg.Analytics.YoYLag,
		TopManufacturers: cfg.Analytics.TopManufacturers,
		ShareTop:         cfg.Analytics.ShareTop,
		Metrics:          reg,
	})

	// 5. Initialize Server
	srv := server.New(fmtAddr(cfg.Server.Host, cfg.Server.Port), cfg.Server.Mode, sources, manager, reg.Handler())
	projectionSvc.RegisterRoutes(srv.Engine)
	if sources.Writer != nil {
		ingestion.NewService(sources.Writer, manager, reg, cfg.Server.MaxBodySizeMB).RegisterRoutes(srv.Engine)
	} else {
		ingestion.RegisterDisabledRoutes(srv.Engine)
	}

	// 6. Scheduled refresh
	if cfg.Source.RefreshSchedule != "" {
		refresher, err := dataset.NewRefresher(ctx, manager, cfg.Source.RefreshSchedule)
		if err != nil {
			slog.Error("Failed to schedule refresh", "error", err)
			os.Exit(1)
		}
		go func() {
			if err := refresher.Start(ctx); err != nil {
				slog.Error("Refresher stopped with error", "error", err)
			}
		}()
	} else {
		slog.Info("Scheduled refresh disabled by config")
	}

	go func() {
		quit := make(chan os.Signal, 1)
		signal.Notify(quit, os.Interrupt, syscall.SIGTERM)
		<-quit
		slog.Info("Signal received, shutting down...")
		cancel()
	}()

	if err := srv.Run(ctx); err != nil {
		slog.Error("Server stopped with error", "error", err)
	}

	slog.Info("Shutdown complete")
}

func fmtAddr(host string, port int) string {
	return fmt.Sprintf("%s:%d", host, port)
}

func envOr(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}
