package server

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/aevon-lab/vahan-pulse/internal/dataset"
	"github.com/gin-gonic/gin"
)

type Server struct {
	Engine *gin.Engine
	Addr   string

	health   HealthChecker
	snapshot SnapshotReporter
}

// HealthChecker is an interface for components that can report their health status.
type HealthChecker interface {
	Ping(ctx context.Context) error
}

// SnapshotReporter exposes the active dataset snapshot.
type SnapshotReporter interface {
	Current() (*dataset.Snapshot, error)
}

// New builds the gin engine. metrics may be nil, in which case /metrics is not mounted.
func New(addr, mode string, health HealthChecker, snapshot SnapshotReporter, metrics http.Handler) *Server {
	if mode == "debug" {
		gin.SetMode(gin.DebugMode)
	} else {
		gin.SetMode(gin.ReleaseMode)
	}

	r := gin.New()
	r.Use(gin.Logger(), gin.Recovery())

	s := &Server{
		Engine:   r,
		Addr:     addr,
		health:   health,
		snapshot: snapshot,
	}

	r.GET("/health", s.healthHandler)
	if metrics != nil {
		r.GET("/metrics", gin.WrapH(metrics))
	}

	return s
}

func (s *Server) healthHandler(c *gin.Context) {
	ctx, cancel := context.WithTimeout(c.Request.Context(), 2*time.Second)
	defer cancel()

	if s.health != nil {
		if err := s.health.Ping(ctx); err != nil {
			slog.Error("Health check failed: source unreachable", "error", err)
			c.JSON(http.StatusServiceUnavailable, gin.H{
				"status": "unhealthy",
				"error":  "source unreachable",
			})
			return
		}
	}

	body := gin.H{"status": "healthy", "source": "connected"}
	if s.snapshot != nil {
		snap, err := s.snapshot.Current()
		if errors.Is(err, dataset.ErrNoSnapshot) {
			c.JSON(http.StatusServiceUnavailable, gin.H{
				"status": "unhealthy",
				"error":  "dataset not loaded",
			})
			return
		}
		if err == nil {
			body["dataset"] = gin.H{
				"id":        snap.ID.String(),
				"loaded_at": snap.LoadedAt.UTC().Format(time.RFC3339),
				"source":    snap.Source,
				"fallback":  snap.Fallback,
				"records":   len(snap.Records),
			}
			if snap.Fallback {
				body["status"] = "degraded"
			}
		}
	}

	c.JSON(http.StatusOK, body)
}

func (s *Server) Run(ctx context.Context) error {
	srv := &http.Server{
		Addr:              s.Addr,
		Handler:           s.Engine,
		ReadHeaderTimeout: 10 * time.Second,
	}

	slog.Info("Starting HTTP Server...", "address", s.Addr)

	go func() {
		<-ctx.Done()
		slog.Info("Stopping HTTP Server...")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			slog.Error("HTTP Server forced to shutdown", "error", err)
		}
	}()

	if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return err
	}
	return nil
}
