// Package sqlite provides a single-file registration store backed by modernc SQLite.
package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"path/filepath"
	"strings"
	"time"

	v1 "github.com/aevon-lab/vahan-pulse/internal/api/v1"
	"github.com/aevon-lab/vahan-pulse/internal/core/storage"
	"github.com/aevon-lab/vahan-pulse/internal/migrations"
	msqlite "modernc.org/sqlite"
	sqlite3lib "modernc.org/sqlite/lib"
)

const (
	queryLoadRegistrations = `
		SELECT date, state, vehicle_class, manufacturer, registrations
		FROM registrations
		ORDER BY date ASC, state ASC, vehicle_class ASC, manufacturer ASC
	`

	queryUpsertRegistration = `
		INSERT INTO registrations (
			date, state, vehicle_class, manufacturer, registrations, updated_at
		)
		VALUES (?, ?, ?, ?, ?, ?)
		ON CONFLICT (date, state, vehicle_class, manufacturer)
		DO UPDATE SET
			registrations = excluded.registrations,
			updated_at    = excluded.updated_at
	`
)

// Store implements storage.RecordSource and storage.RecordWriter over a SQLite file.
type Store struct {
	sqlDB *sql.DB
	path  string
	now   func() time.Time
}

// Open opens a SQLite registration store and applies embedded migrations.
func Open(path string) (*Store, error) {
	if strings.TrimSpace(path) == "" {
		return nil, fmt.Errorf("storage path is required")
	}
	cleanPath := filepath.Clean(path)
	dsn := cleanPath + "?_pragma=busy_timeout(5000)&_pragma=journal_mode(WAL)&_pragma=synchronous(NORMAL)"
	sqlDB, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("open sqlite db: %w", err)
	}
	// One writer at a time; readers share the same handle.
	sqlDB.SetMaxOpenConns(1)

	if err := sqlDB.Ping(); err != nil {
		_ = sqlDB.Close()
		return nil, fmt.Errorf("ping sqlite db: %w", err)
	}
	if err := migrations.RunMigrations(sqlDB, migrations.DialectSQLite, true); err != nil {
		_ = sqlDB.Close()
		return nil, fmt.Errorf("run migrations: %w", err)
	}

	slog.Info("[SQLite] Store opened", "path", cleanPath)
	return &Store{sqlDB: sqlDB, path: cleanPath, now: time.Now}, nil
}

// Close closes the SQLite handle.
func (s *Store) Close() error {
	if s == nil || s.sqlDB == nil {
		return nil
	}
	return s.sqlDB.Close()
}

// DB returns the underlying handle for health checks.
func (s *Store) DB() *sql.DB { return s.sqlDB }

// Describe returns the database file path.
func (s *Store) Describe() string { return s.path }

// Load reads every stored registration ordered by date.
func (s *Store) Load(ctx context.Context) ([]v1.Registration, error) {
	if err := ctx.Err(); err != nil {
		return nil, storage.NewSourceReadError(s.path, "query", err)
	}

	rows, err := s.sqlDB.QueryContext(ctx, queryLoadRegistrations)
	if err != nil {
		return nil, storage.NewSourceReadError(s.path, "query", err)
	}
	defer rows.Close()

	var records []v1.Registration
	for rows.Next() {
		var (
			reg     v1.Registration
			rawDate string
		)
		if err := rows.Scan(&rawDate, &reg.State, &reg.VehicleClass, &reg.Manufacturer, &reg.Registrations); err != nil {
			return nil, storage.NewSourceReadError(s.path, "scan", err)
		}
		date, err := v1.ParseDate(rawDate)
		if err != nil {
			return nil, storage.NewSourceReadError(s.path, "scan", fmt.Errorf("%w: %v", storage.ErrMalformedRow, err))
		}
		reg.Date = date
		records = append(records, reg)
	}
	if err := rows.Err(); err != nil {
		return nil, storage.NewSourceReadError(s.path, "scan", err)
	}

	slog.Debug("[SQLite] Loaded registrations", "records", len(records))
	return records, nil
}

// SaveRegistrations sums duplicate keys, upserts the result in one transaction
// and returns the number of distinct rows written.
func (s *Store) SaveRegistrations(ctx context.Context, rows []v1.Registration) (int, error) {
	rows = storage.MergeDuplicates(rows)
	if len(rows) == 0 {
		return 0, nil
	}

	tx, err := s.sqlDB.BeginTx(ctx, nil)
	if err != nil {
		return 0, fmt.Errorf("begin transaction: %w", err)
	}
	defer func() {
		_ = tx.Rollback()
	}()

	stmt, err := tx.PrepareContext(ctx, queryUpsertRegistration)
	if err != nil {
		return 0, fmt.Errorf("prepare upsert: %w", err)
	}
	defer stmt.Close()

	updatedAt := s.now().UTC().Format(time.RFC3339)
	for i, reg := range rows {
		if _, err := stmt.ExecContext(ctx,
			reg.Date.UTC().Format(v1.DateLayout),
			reg.State,
			reg.VehicleClass,
			reg.Manufacturer,
			reg.Registrations,
			updatedAt,
		); err != nil {
			if isConstraintViolation(err) {
				return 0, fmt.Errorf("%w: row %d: %v", storage.ErrMalformedRow, i, err)
			}
			return 0, fmt.Errorf("upsert registration %d: %w", i, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return 0, fmt.Errorf("commit registrations: %w", err)
	}

	slog.Info("[SQLite] Saved registrations", "distinct_rows", len(rows))
	return len(rows), nil
}

func isConstraintViolation(err error) bool {
	var sqliteErr *msqlite.Error
	if !errors.As(err, &sqliteErr) {
		return false
	}
	return sqliteErr.Code()&0xff == sqlite3lib.SQLITE_CONSTRAINT
}
