package ingestion

import (
	"context"

	"github.com/aevon-lab/vahan-pulse/internal/core/storage"
	"github.com/aevon-lab/vahan-pulse/internal/dataset"
	"github.com/gin-gonic/gin"
)

// Reloader refreshes the served snapshot after a write. *dataset.Manager satisfies it.
type Reloader interface {
	Reload(ctx context.Context) (*dataset.Snapshot, error)
}

// RowCounter records how many rows an upload wrote. *metrics.Metrics satisfies it.
type RowCounter interface {
	RowsIngested(n int)
}

type Service struct {
	writer           storage.RecordWriter
	reloader         Reloader
	counter          RowCounter
	maxBodySizeBytes int
}

func NewService(writer storage.RecordWriter, reloader Reloader, counter RowCounter, maxBodySizeMB int) *Service {
	if writer == nil {
		panic("ingestion: writer must not be nil")
	}
	if reloader == nil {
		panic("ingestion: reloader must not be nil")
	}
	if maxBodySizeMB <= 0 {
		maxBodySizeMB = 1 // default to 1MB
	}
	return &Service{
		writer:           writer,
		reloader:         reloader,
		counter:          counter,
		maxBodySizeBytes: maxBodySizeMB * 1024 * 1024,
	}
}

// RegisterRoutes registers the ingestion service routes.
func (s *Service) RegisterRoutes(r gin.IRouter) {
	r.POST("/v1/registrations", s.IngestHandler)
}

// RegisterDisabledRoutes answers uploads with 405 when the source is read-only.
func RegisterDisabledRoutes(r gin.IRouter) {
	r.POST("/v1/registrations", DisabledHandler)
}
