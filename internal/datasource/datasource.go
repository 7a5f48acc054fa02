// Package datasource builds the configured record source and its optional writer.
package datasource

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/aevon-lab/vahan-pulse/internal/core/config"
	"github.com/aevon-lab/vahan-pulse/internal/core/storage"
	"github.com/aevon-lab/vahan-pulse/internal/core/storage/file"
	"github.com/aevon-lab/vahan-pulse/internal/core/storage/postgres"
	"github.com/aevon-lab/vahan-pulse/internal/core/storage/sqlite"
)

// Sources is the set of storage handles the server runs against.
type Sources struct {
	// Primary is the configured record source.
	Primary storage.RecordSource
	// Fallback is loaded when Primary fails. Nil when source.fallback_path is empty.
	Fallback storage.RecordSource
	// Writer accepts uploads. Nil for file sources.
	Writer storage.RecordWriter

	db     *sql.DB
	closer func() error
}

// Open builds the sources described by cfg. Database sources are connected and migrated.
func Open(source config.SourceConfig, database config.DatabaseConfig) (*Sources, error) {
	s := &Sources{closer: func() error { return nil }}

	switch source.Type {
	case config.SourceFile:
		s.Primary = file.NewSource(source.Path)

	case config.SourcePostgres:
		adapter, err := postgres.NewAdapter(source.DSN, database.MaxOpenConns, database.MaxIdleConns, database.AutoMigrate)
		if err != nil {
			return nil, fmt.Errorf("open postgres source: %w", err)
		}
		s.Primary, s.Writer, s.db, s.closer = adapter, adapter, adapter.DB(), adapter.Close

	case config.SourceSQLite:
		store, err := sqlite.Open(source.DSN)
		if err != nil {
			return nil, fmt.Errorf("open sqlite source: %w", err)
		}
		s.Primary, s.Writer, s.db, s.closer = store, store, store.DB(), store.Close

	default:
		return nil, fmt.Errorf("unsupported source.type %q", source.Type)
	}

	if fallback := strings.TrimSpace(source.FallbackPath); fallback != "" {
		s.Fallback = file.NewSource(fallback)
	}

	slog.Info("[Datasource] Sources ready",
		"type", source.Type,
		"primary", s.Primary.Describe(),
		"fallback", describe(s.Fallback),
		"writable", s.Writer != nil)
	return s, nil
}

// Ping checks database connectivity. File sources always report healthy.
func (s *Sources) Ping(ctx context.Context) error {
	if s.db == nil {
		return nil
	}
	return s.db.PingContext(ctx)
}

// Close releases database handles.
func (s *Sources) Close() error {
	if s == nil || s.closer == nil {
		return nil
	}
	return s.closer()
}

// OpenWriter opens only the writable store for a database target, used by the loader.
func OpenWriter(source config.SourceConfig, database config.DatabaseConfig) (storage.RecordWriter, func() error, error) {
	if source.Type == config.SourceFile {
		return nil, nil, errors.New("source.type file is read-only; configure postgres or sqlite")
	}
	s, err := Open(source, database)
	if err != nil {
		return nil, nil, err
	}
	return s.Writer, s.Close, nil
}

func describe(src storage.RecordSource) string {
	if src == nil {
		return ""
	}
	return src.Describe()
}
