package device

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

// pgRecord adds the engine-native timestamp to the shared columns.
type pgRecord struct {
	record
	LastSeen time.Time `db:"last_seen"`
}

// Upsert inserts or fully replaces a device row.
func (r *PostgresRepository) Upsert(ctx context.Context, d *Device, seenAt time.Time) (*Device, error) {
	const fn = "PostgresRepository:Upsert"
	query := `
		INSERT INTO client (
			device_id, device_name, ssid, ip, pub_topic, sub_topic, status,
			data_types, commands, type_of_commands, recev_comands, last_seen
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)
		ON CONFLICT (device_id) DO UPDATE SET
			device_name      = EXCLUDED.device_name,
			ssid             = EXCLUDED.ssid,
			ip               = EXCLUDED.ip,
			pub_topic        = EXCLUDED.pub_topic,
			sub_topic        = EXCLUDED.sub_topic,
			status           = EXCLUDED.status,
			data_types       = EXCLUDED.data_types,
			commands         = EXCLUDED.commands,
			type_of_commands = EXCLUDED.type_of_commands,
			recev_comands    = EXCLUDED.recev_comands,
			last_seen        = EXCLUDED.last_seen
		RETURNING id`

	var id int64
	err := r.pool.QueryRow(ctx, query,
		d.DeviceID,
		d.Name,
		d.SSID,
		d.IP,
		d.PubTopic,
		d.SubTopic,
		StatusOnline,
		d.DataTypes,
		d.Commands,
		nullableList(d.TypeOfCommands),
		d.RecevComands,
		seenAt.UTC(),
	).Scan(&id)
	if err != nil {
		return nil, fmt.Errorf("%s: upserting device: %w", fn, err)
	}

	return registered(d, id, seenAt), nil
}

// UpdateStatus sets status and last_seen on an existing row.
func (r *PostgresRepository) UpdateStatus(ctx context.Context, deviceID, status string, seenAt time.Time) error {
	const fn = "PostgresRepository:UpdateStatus"
	tag, err := r.pool.Exec(ctx,
		`UPDATE client SET status = $1, last_seen = $2 WHERE device_id = $3`,
		status, seenAt.UTC(), deviceID,
	)
	if err != nil {
		return fmt.Errorf("%s: updating device status: %w", fn, err)
	}
	if tag.RowsAffected() == 0 {
		return ErrDeviceNotFound
	}
	return nil
}

// GetByID retrieves a device by its device_id.
func (r *PostgresRepository) GetByID(ctx context.Context, deviceID string) (*Device, error) {
	const fn = "PostgresRepository:GetByID"
	var rec pgRecord
	err := pgxscan.Get(ctx, r.pool, &rec, `SELECT `+deviceColumns+` FROM client WHERE device_id = $1`, deviceID)
	if err != nil {
		if pgxscan.NotFound(err) {
			return nil, ErrDeviceNotFound
		}
		return nil, fmt.Errorf("%s: querying device by id: %w", fn, err)
	}
	return rec.toDevice(rec.LastSeen)
}

// List retrieves all devices in registration order.
func (r *PostgresRepository) List(ctx context.Context) ([]Device, error) {
	const fn = "PostgresRepository:List"
	var recs []pgRecord
	if err := pgxscan.Select(ctx, r.pool, &recs, `SELECT `+deviceColumns+` FROM client ORDER BY id`); err != nil {
		return nil, fmt.Errorf("%s: querying devices: %w", fn, err)
	}

	devices := make([]Device, 0, len(recs))
	for _, rec := range recs {
		d, err := rec.toDevice(rec.LastSeen)
		if err != nil {
			return nil, fmt.Errorf("%s: %w", fn, err)
		}
		devices = append(devices, *d)
	}
	return devices, nil
}

var _ Repository = (*PostgresRepository)(nil)
