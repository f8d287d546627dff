package database

import "errors"

var (
	// ErrEmptyPath is returned by Open when no database path is configured.
	ErrEmptyPath = errors.New("database: path is empty")

	// ErrMigrationFailed wraps any failure while applying schema migrations.
	ErrMigrationFailed = errors.New("database: migration failed")
)
