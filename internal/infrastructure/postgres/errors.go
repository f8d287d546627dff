package postgres

import "errors"

var (
	// ErrConnectionFailed is returned when the pool cannot be established.
	ErrConnectionFailed = errors.New("postgres: connection failed")

	// ErrMigrationFailed wraps any failure while applying schema migrations.
	ErrMigrationFailed = errors.New("postgres: migration failed")
)
