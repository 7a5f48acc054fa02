package migrations

import (
	"database/sql"
	"embed"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"

	"github.com/golang-migrate/migrate/v4"
	"github.com/golang-migrate/migrate/v4/database"
	"github.com/golang-migrate/migrate/v4/database/postgres"
	"github.com/golang-migrate/migrate/v4/database/sqlite"
	"github.com/golang-migrate/migrate/v4/source/iofs"
)

// Supported dialects.
const (
	DialectPostgres = "postgres"
	DialectSQLite   = "sqlite"
)

//go:embed postgres/*.sql sqlite/*.sql
var MigrationFiles embed.FS

// Files returns the migration set for one dialect.
func Files(dialect string) (fs.FS, error) {
	switch dialect {
	case DialectPostgres, DialectSQLite:
		return fs.Sub(MigrationFiles, dialect)
	default:
		return nil, fmt.Errorf("unsupported migration dialect %q", dialect)
	}
}

// RunMigrations brings the registrations schema for dialect up to date.
// With autoMigrate false it only reports the version it found.
func RunMigrations(db *sql.DB, dialect string, autoMigrate bool) error {
	m, err := newMigrator(db, dialect)
	if err != nil {
		return err
	}

	version, err := recoverDirty(m, dialect)
	if err != nil {
		return err
	}

	if !autoMigrate {
		slog.Info("[Migrations] auto_migrate is off, leaving schema as is", "dialect", dialect, "version", version)
		return nil
	}

	switch err := m.Up(); {
	case errors.Is(err, migrate.ErrNoChange):
		slog.Info("[Migrations] Schema already current", "dialect", dialect, "version", version)
		return nil
	case err != nil:
		return fmt.Errorf("apply %s migrations: %w", dialect, err)
	}

	applied, _, err := m.Version()
	if err != nil {
		return fmt.Errorf("read %s migration version: %w", dialect, err)
	}
	slog.Info("[Migrations] Schema migrated", "dialect", dialect, "from", version, "to", applied)
	return nil
}

func newMigrator(db *sql.DB, dialect string) (*migrate.Migrate, error) {
	files, err := Files(dialect)
	if err != nil {
		return nil, err
	}
	src, err := iofs.New(files, ".")
	if err != nil {
		return nil, fmt.Errorf("open %s migration files: %w", dialect, err)
	}
	driver, err := databaseDriver(db, dialect)
	if err != nil {
		return nil, fmt.Errorf("open %s migration driver: %w", dialect, err)
	}
	m, err := migrate.NewWithInstance("iofs", src, dialect, driver)
	if err != nil {
		return nil, fmt.Errorf("create %s migrator: %w", dialect, err)
	}
	return m, nil
}

// recoverDirty marks an interrupted version as applied. Every migration uses
// IF NOT EXISTS, so a half-applied version can be rerun by hand.
func recoverDirty(m *migrate.Migrate, dialect string) (uint, error) {
	version, dirty, err := m.Version()
	if errors.Is(err, migrate.ErrNilVersion) {
		return 0, nil
	}
	if err != nil {
		return 0, fmt.Errorf("read %s migration version: %w", dialect, err)
	}
	if !dirty {
		return version, nil
	}

	slog.Warn("[Migrations] Interrupted migration found, marking clean", "dialect", dialect, "version", version)
	if err := m.Force(int(version)); err != nil {
		return 0, fmt.Errorf("clear dirty %s version %d: %w", dialect, version, err)
	}
	return version, nil
}

func databaseDriver(db *sql.DB, dialect string) (database.Driver, error) {
	switch dialect {
	case DialectPostgres:
		return postgres.WithInstance(db, &postgres.Config{})
	case DialectSQLite:
		return sqlite.WithInstance(db, &sqlite.Config{})
	default:
		return nil, fmt.Errorf("unsupported migration dialect %q", dialect)
	}
}
