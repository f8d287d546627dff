package telemetry

import (
	"context"
	"database/sql"
	"fmt"
	"math"
	"time"

	"github.com/sensorhub/sensorhub-core/internal/infrastructure/database"
)

// Repository persists and queries readings. The table is append-only.
type Repository interface {
	// Append stores one reading stamped with at and returns it with its row id.
	// There is no deduplication: identical payloads produce distinct rows.
	Append(ctx context.Context, deviceID, dataType string, value float64, at time.Time) (*Reading, error)

	// Query returns the most recent q.Limit readings of q.DeviceID at or after
	// q.Since, in ascending time order.
	Query(ctx context.Context, q Query) ([]Reading, error)
}

func validateReading(deviceID, dataType string, value float64) error {
	if deviceID == "" || dataType == "" {
		return fmt.Errorf("%w: device_id and data_type are required", ErrInvalidReading)
	}
	if math.IsNaN(value) || math.IsInf(value, 0) {
		return fmt.Errorf("%w: value must be finite", ErrInvalidReading)
	}
	return nil
}

func validateQuery(q Query) error {
	if q.Limit <= 0 {
		return fmt.Errorf("%w: %d", ErrInvalidLimit, q.Limit)
	}
	return nil
}

// SQLiteRepository implements Repository using SQLite.
type SQLiteRepository struct {
	db *sql.DB
}

// NewSQLiteRepository creates a new SQLite-backed repository.
func NewSQLiteRepository(db *sql.DB) *SQLiteRepository {
	return &SQLiteRepository{db: db}
}

// Append inserts one reading.
func (r *SQLiteRepository) Append(ctx context.Context, deviceID, dataType string, value float64, at time.Time) (*Reading, error) {
	if err := validateReading(deviceID, dataType, value); err != nil {
		return nil, err
	}

	result, err := r.db.ExecContext(ctx,
		`INSERT INTO sensor_data (device_id, data_type, value, time_stmp) VALUES (?, ?, ?, ?)`,
		deviceID, dataType, value, database.FormatTime(at),
	)
	if err != nil {
		return nil, fmt.Errorf("inserting reading: %w", err)
	}

	id, err := result.LastInsertId()
	if err != nil {
		return nil, fmt.Errorf("reading inserted id: %w", err)
	}

	return &Reading{
		ID:        id,
		DeviceID:  deviceID,
		DataType:  dataType,
		Value:     value,
		Timestamp: at.UTC(),
	}, nil
}

// Query returns the newest readings inside the window in ascending order.
func (r *SQLiteRepository) Query(ctx context.Context, q Query) ([]Reading, error) {
	if err := validateQuery(q); err != nil {
		return nil, err
	}

	inner := `
		SELECT id, device_id, data_type, value, time_stmp
		FROM sensor_data
		WHERE device_id = ? AND time_stmp >= ?`
	args := []any{q.DeviceID, database.FormatTime(q.Since)}
	if q.DataType != "" {
		inner += ` AND data_type = ?`
		args = append(args, q.DataType)
	}
	inner += ` ORDER BY time_stmp DESC, id DESC LIMIT ?`
	args = append(args, q.Limit)

	query := `SELECT id, device_id, data_type, value, time_stmp FROM (` + inner + `) AS recent
		ORDER BY time_stmp ASC, id ASC`

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("querying readings: %w", err)
	}
	defer rows.Close()

	readings := make([]Reading, 0)
	for rows.Next() {
		var rd Reading
		var ts string
		if err := rows.Scan(&rd.ID, &rd.DeviceID, &rd.DataType, &rd.Value, &ts); err != nil {
			return nil, fmt.Errorf("scanning reading: %w", err)
		}
		if rd.Timestamp, err = database.ParseTime(ts); err != nil {
			return nil, err
		}
		readings = append(readings, rd)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating readings: %w", err)
	}
	return readings, nil
}

var _ Repository = (*SQLiteRepository)(nil)
