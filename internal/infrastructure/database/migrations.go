package database

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"io/fs"

	"github.com/golang-migrate/migrate/v4"
	"github.com/golang-migrate/migrate/v4/database/sqlite3"
	"github.com/golang-migrate/migrate/v4/source/iofs"
)

// migrationsTable records the applied schema version.
const migrationsTable = "schema_migrations"

// Migrate applies every pending up migration found at the root of fsys.
//
// Files follow the golang-migrate naming scheme ({version}_{title}.up.sql).
// Each migration runs in its own transaction; a failure leaves earlier
// migrations applied and marks the schema dirty at the failing version.
//
// The migrate instance is deliberately not closed: closing it would close
// the shared *sql.DB that the repositories keep using.
//
// Parameters:
//   - ctx: Cancelling the context stops after the migration in progress
//   - fsys: Filesystem holding the SQLite migration files
//
// Returns:
//   - error: Wrapped ErrMigrationFailed on any failure
func (db *DB) Migrate(ctx context.Context, fsys fs.FS) error {
	if err := ctx.Err(); err != nil {
		return fmt.Errorf("%w: %w", ErrMigrationFailed, err)
	}

	src, err := iofs.New(fsys, ".")
	if err != nil {
		return fmt.Errorf("%w: loading migrations: %w", ErrMigrationFailed, err)
	}
	defer src.Close() //nolint:errcheck // Embedded source holds no OS resources

	driver, err := sqlite3.WithInstance(db.DB, &sqlite3.Config{MigrationsTable: migrationsTable})
	if err != nil {
		return fmt.Errorf("%w: preparing driver: %w", ErrMigrationFailed, err)
	}

	m, err := migrate.NewWithInstance("iofs", src, "sqlite3", driver)
	if err != nil {
		return fmt.Errorf("%w: %w", ErrMigrationFailed, err)
	}

	done := make(chan struct{})
	defer close(done)
	go func() {
		select {
		case <-ctx.Done():
			m.GracefulStop <- true
		case <-done:
		}
	}()

	if err := m.Up(); err != nil && !errors.Is(err, migrate.ErrNoChange) {
		return fmt.Errorf("%w: %w", ErrMigrationFailed, err)
	}
	return nil
}

// SchemaVersion returns the currently applied migration version and whether
// the schema is dirty. It returns version 0 when no migration has run.
func (db *DB) SchemaVersion(ctx context.Context) (uint, bool, error) {
	var (
		version int64
		dirty   bool
	)
	err := db.QueryRowContext(ctx,
		"SELECT version, dirty FROM "+migrationsTable+" LIMIT 1",
	).Scan(&version, &dirty)
	if errors.Is(err, sql.ErrNoRows) {
		return 0, false, nil
	}
	if err != nil {
		return 0, false, fmt.Errorf("reading schema version: %w", err)
	}
	if version < 0 {
		return 0, dirty, nil
	}
	return uint(version), dirty, nil
}
