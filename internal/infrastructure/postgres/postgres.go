package postgres

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"time"

	"github.com/golang-migrate/migrate/v4"
	_ "github.com/golang-migrate/migrate/v4/database/postgres" // postgres:// migrate driver
	"github.com/golang-migrate/migrate/v4/source/iofs"
	"github.com/jackc/pgx/v4/pgxpool"
)

// connectTimeout bounds the initial connection and ping.
const connectTimeout = 10 * time.Second

// Config contains PostgreSQL connection options.
type Config struct {
	// DSN is a postgres:// URL. The URL form is required because the
	// migration driver does not accept keyword/value strings.
	DSN string

	// MaxConns caps the pool size. Zero keeps the pgxpool default.
	MaxConns int
}

// Pool wraps a pgx connection pool used by the PostgreSQL repositories.
//
// Thread Safety:
//   - All methods are safe for concurrent use from multiple goroutines.
type Pool struct {
	*pgxpool.Pool
	dsn string
}

// Connect opens a connection pool and verifies it with a ping.
//
// Parameters:
//   - ctx: Context bounding the connection attempt
//   - cfg: Connection options
//
// Returns:
//   - *Pool: Connected pool
//   - error: Wrapped ErrConnectionFailed on failure
func Connect(ctx context.Context, cfg Config) (*Pool, error) {
	if cfg.DSN == "" {
		return nil, fmt.Errorf("%w: dsn is empty", ErrConnectionFailed)
	}

	poolCfg, err := pgxpool.ParseConfig(cfg.DSN)
	if err != nil {
		return nil, fmt.Errorf("%w: parsing dsn: %w", ErrConnectionFailed, err)
	}
	if cfg.MaxConns > 0 {
		poolCfg.MaxConns = int32(cfg.MaxConns) //nolint:gosec // validated positive, small
	}

	connectCtx, cancel := context.WithTimeout(ctx, connectTimeout)
	defer cancel()

	pool, err := pgxpool.ConnectConfig(connectCtx, poolCfg)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrConnectionFailed, err)
	}
	if err := pool.Ping(connectCtx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("%w: ping: %w", ErrConnectionFailed, err)
	}

	return &Pool{Pool: pool, dsn: cfg.DSN}, nil
}

// Migrate applies every pending up migration found at the root of fsys.
// The migration driver opens its own connection from the DSN.
func (p *Pool) Migrate(ctx context.Context, fsys fs.FS) error {
	if err := ctx.Err(); err != nil {
		return fmt.Errorf("%w: %w", ErrMigrationFailed, err)
	}

	src, err := iofs.New(fsys, ".")
	if err != nil {
		return fmt.Errorf("%w: loading migrations: %w", ErrMigrationFailed, err)
	}

	m, err := migrate.NewWithSourceInstance("iofs", src, p.dsn)
	if err != nil {
		return fmt.Errorf("%w: %w", ErrMigrationFailed, err)
	}
	defer m.Close() //nolint:errcheck // Migration connection is independent of the pool

	if err := m.Up(); err != nil && !errors.Is(err, migrate.ErrNoChange) {
		return fmt.Errorf("%w: %w", ErrMigrationFailed, err)
	}
	return nil
}

// HealthCheck pings the database.
func (p *Pool) HealthCheck(ctx context.Context) error {
	if err := p.Ping(ctx); err != nil {
		return fmt.Errorf("postgres health check failed: %w", err)
	}
	return nil
}

// Close releases every pooled connection.
func (p *Pool) Close() error {
	if p == nil || p.Pool == nil {
		return nil
	}
	p.Pool.Close()
	return nil
}
