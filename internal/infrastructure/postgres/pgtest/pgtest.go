//go:build integration

// Package pgtest starts a migrated PostgreSQL container for integration tests.
package pgtest

import (
	"context"
	"testing"

	tcpostgres "github.com/testcontainers/testcontainers-go/modules/postgres"

	"github.com/sensorhub/sensorhub-core/internal/infrastructure/postgres"
	"github.com/sensorhub/sensorhub-core/migrations"
)

// Image is the PostgreSQL image used by integration tests.
const Image = "postgres:16-alpine"

// Start runs a fresh container, applies the embedded migrations and returns
// a connected pool. Both are torn down when the test finishes.
func Start(t *testing.T) *postgres.Pool {
	t.Helper()
	ctx := context.Background()

	container, err := tcpostgres.Run(ctx,
		Image,
		tcpostgres.WithDatabase("sensorhub"),
		tcpostgres.WithUsername("sensorhub"),
		tcpostgres.WithPassword("sensorhub"),
		tcpostgres.BasicWaitStrategies(),
	)
	if err != nil {
		t.Fatalf("starting postgres container: %v", err)
	}
	t.Cleanup(func() { container.Terminate(ctx) }) //nolint:errcheck // Test cleanup

	dsn, err := container.ConnectionString(ctx, "sslmode=disable")
	if err != nil {
		t.Fatalf("ConnectionString() error = %v", err)
	}

	pool, err := postgres.Connect(ctx, postgres.Config{DSN: dsn, MaxConns: 4})
	if err != nil {
		t.Fatalf("postgres.Connect() error = %v", err)
	}
	t.Cleanup(func() { pool.Close() }) //nolint:errcheck // Test cleanup

	if err := pool.Migrate(ctx, migrations.Postgres()); err != nil {
		t.Fatalf("Migrate() error = %v", err)
	}
	return pool
}
