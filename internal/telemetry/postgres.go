package telemetry

import (
	"context"
	"fmt"
	"time"

	"github.com/georgysavva/scany/pgxscan"
	"github.com/jackc/pgx/v4/pgxpool"
)

// PostgresRepository implements Repository on a pgx connection pool.
type PostgresRepository struct {
	pool *pgxpool.Pool
}

// NewPostgresRepository creates a repository over a migrated pool.
func NewPostgresRepository(pool *pgxpool.Pool) *PostgresRepository {
	return &PostgresRepository{pool: pool}
}

type pgReading struct {
	ID        int64     `db:"id"`
	DeviceID  string    `db:"device_id"`
	DataType  string    `db:"data_type"`
	Value     float64   `db:"value"`
	Timestamp time.Time `db:"time_stmp"`
}

// Append inserts one reading.
func (r *PostgresRepository) Append(ctx context.Context, deviceID, dataType string, value float64, at time.Time) (*Reading, error) {
	const fn = "PostgresRepository:Append"
	if err := validateReading(deviceID, dataType, value); err != nil {
		return nil, err
	}

	at = at.UTC()
	var id int64
	err := r.pool.QueryRow(ctx,
		`INSERT INTO sensor_data (device_id, data_type, value, time_stmp) VALUES ($1, $2, $3, $4) RETURNING id`,
		deviceID, dataType, value, at,
	).Scan(&id)
	if err != nil {
		return nil, fmt.Errorf("%s: inserting reading: %w", fn, err)
	}

	return &Reading{ID: id, DeviceID: deviceID, DataType: dataType, Value: value, Timestamp: at}, nil
}

// Query returns the newest readings inside the window in ascending order.
func (r *PostgresRepository) Query(ctx context.Context, q Query) ([]Reading, error) {
	const fn = "PostgresRepository:Query"
	if err := validateQuery(q); err != nil {
		return nil, err
	}

	var rows []pgReading
	err := pgxscan.Select(ctx, r.pool, &rows, `
		SELECT id, device_id, data_type, value, time_stmp FROM (
			SELECT id, device_id, data_type, value, time_stmp
			FROM sensor_data
			WHERE device_id = $1
			AND time_stmp >= $2
			AND ($3 = '' OR data_type = $3)
			ORDER BY time_stmp DESC, id DESC
			LIMIT $4
		) AS recent
		ORDER BY time_stmp ASC, id ASC
	`, q.DeviceID, q.Since.UTC(), q.DataType, q.Limit)
	if err != nil {
		return nil, fmt.Errorf("%s: querying readings: %w", fn, err)
	}

	readings := make([]Reading, 0, len(rows))
	for _, row := range rows {
		readings = append(readings, Reading{
			ID:        row.ID,
			DeviceID:  row.DeviceID,
			DataType:  row.DataType,
			Value:     row.Value,
			Timestamp: row.Timestamp.UTC(),
		})
	}
	return readings, nil
}

var _ Repository = (*PostgresRepository)(nil)
