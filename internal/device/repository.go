package device

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/sensorhub/sensorhub-core/internal/infrastructure/database"
)

// Repository defines the device persistence operations.
//
// Every method is a single statement, so concurrent handlers never interleave
// a read-modify-write on the same row. There is no cache: every read goes to
// the store.
type Repository interface {
	// Upsert inserts the device or, if device_id already exists, overwrites
	// every mutable field (full replace, no merge). Status is set to Online
	// and LastSeen to seenAt. Returns the stored row.
	Upsert(ctx context.Context, d *Device, seenAt time.Time) (*Device, error)

	// UpdateStatus sets only status and last_seen.
	// Returns ErrDeviceNotFound if no row has this device_id; no row is created.
	UpdateStatus(ctx context.Context, deviceID, status string, seenAt time.Time) error

	// GetByID retrieves a device by its device_id.
	// Returns ErrDeviceNotFound if the device does not exist.
	GetByID(ctx context.Context, deviceID string) (*Device, error)

	// List retrieves all devices in registration order.
	List(ctx context.Context) ([]Device, error)
}

const deviceColumns = `id, device_id, device_name, ssid, ip, pub_topic, sub_topic,
	status, data_types, commands, type_of_commands, recev_comands, last_seen`

// record mirrors the engine-neutral columns of the client table.
type record struct {
	ID             int64   `db:"id"`
	DeviceID       string  `db:"device_id"`
	Name           string  `db:"device_name"`
	SSID           string  `db:"ssid"`
	IP             string  `db:"ip"`
	PubTopic       string  `db:"pub_topic"`
	SubTopic       string  `db:"sub_topic"`
	Status         string  `db:"status"`
	DataTypes      string  `db:"data_types"`
	Commands       string  `db:"commands"`
	TypeOfCommands *string `db:"type_of_commands"`
	RecevComands   string  `db:"recev_comands"`
}

func (r record) toDevice(lastSeen time.Time) (*Device, error) {
	d := &Device{
		ID:           r.ID,
		DeviceID:     r.DeviceID,
		Name:         r.Name,
		SSID:         r.SSID,
		IP:           r.IP,
		PubTopic:     r.PubTopic,
		SubTopic:     r.SubTopic,
		Status:       r.Status,
		RecevComands: r.RecevComands,
		LastSeen:     lastSeen.UTC(),
	}

	if err := d.DataTypes.Scan(r.DataTypes); err != nil {
		return nil, fmt.Errorf("decoding data_types: %w", err)
	}
	if err := d.Commands.Scan(r.Commands); err != nil {
		return nil, fmt.Errorf("decoding commands: %w", err)
	}
	if r.TypeOfCommands != nil {
		if err := d.TypeOfCommands.Scan(*r.TypeOfCommands); err != nil {
			return nil, fmt.Errorf("decoding type_of_commands: %w", err)
		}
	}
	return d, nil
}

// nullableList maps an absent list to SQL NULL.
func nullableList(l StringList) any {
	if l == nil {
		return nil
	}
	return l
}

// registered returns the row the store will hold after an upsert of d.
func registered(d *Device, id int64, seenAt time.Time) *Device {
	stored := *d
	stored.ID = id
	stored.Status = StatusOnline
	stored.LastSeen = seenAt.UTC()
	if stored.DataTypes == nil {
		stored.DataTypes = StringList{}
	}
	if stored.Commands == nil {
		stored.Commands = StringList{}
	}
	return &stored
}

// SQLiteRepository implements Repository using SQLite.
type SQLiteRepository struct {
	db *sql.DB
}

// NewSQLiteRepository creates a new SQLite-backed repository.
// The db parameter should be an open, migrated SQLite connection.
func NewSQLiteRepository(db *sql.DB) *SQLiteRepository {
	return &SQLiteRepository{db: db}
}

// Upsert inserts or fully replaces a device row.
func (r *SQLiteRepository) Upsert(ctx context.Context, d *Device, seenAt time.Time) (*Device, error) {
	query := `
		INSERT INTO client (
			device_id, device_name, ssid, ip, pub_topic, sub_topic, status,
			data_types, commands, type_of_commands, recev_comands, last_seen
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(device_id) DO UPDATE SET
			device_name      = excluded.device_name,
			ssid             = excluded.ssid,
			ip               = excluded.ip,
			pub_topic        = excluded.pub_topic,
			sub_topic        = excluded.sub_topic,
			status           = excluded.status,
			data_types       = excluded.data_types,
			commands         = excluded.commands,
			type_of_commands = excluded.type_of_commands,
			recev_comands    = excluded.recev_comands,
			last_seen        = excluded.last_seen
		RETURNING id`

	var id int64
	err := r.db.QueryRowContext(ctx, query,
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
		database.FormatTime(seenAt),
	).Scan(&id)
	if err != nil {
		return nil, fmt.Errorf("upserting device: %w", err)
	}

	return registered(d, id, seenAt), nil
}

// UpdateStatus sets status and last_seen on an existing row.
func (r *SQLiteRepository) UpdateStatus(ctx context.Context, deviceID, status string, seenAt time.Time) error {
	result, err := r.db.ExecContext(ctx,
		`UPDATE client SET status = ?, last_seen = ? WHERE device_id = ?`,
		status, database.FormatTime(seenAt), deviceID,
	)
	if err != nil {
		return fmt.Errorf("updating device status: %w", err)
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("checking rows affected: %w", err)
	}
	if rows == 0 {
		return ErrDeviceNotFound
	}
	return nil
}

// GetByID retrieves a device by its device_id.
func (r *SQLiteRepository) GetByID(ctx context.Context, deviceID string) (*Device, error) {
	row := r.db.QueryRowContext(ctx, `SELECT `+deviceColumns+` FROM client WHERE device_id = ?`, deviceID)
	d, err := scanDevice(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrDeviceNotFound
		}
		return nil, fmt.Errorf("querying device by id: %w", err)
	}
	return d, nil
}

// List retrieves all devices in registration order.
func (r *SQLiteRepository) List(ctx context.Context) ([]Device, error) {
	rows, err := r.db.QueryContext(ctx, `SELECT `+deviceColumns+` FROM client ORDER BY id`)
	if err != nil {
		return nil, fmt.Errorf("querying devices: %w", err)
	}
	defer rows.Close()

	devices := make([]Device, 0)
	for rows.Next() {
		d, err := scanDevice(rows)
		if err != nil {
			return nil, fmt.Errorf("scanning device: %w", err)
		}
		devices = append(devices, *d)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating devices: %w", err)
	}
	return devices, nil
}

// rowScanner is an interface that sql.Row and sql.Rows both implement.
type rowScanner interface {
	Scan(dest ...any) error
}

func scanDevice(scanner rowScanner) (*Device, error) {
	var rec record
	var typeOfCommands sql.NullString
	var lastSeen string

	err := scanner.Scan(
		&rec.ID,
		&rec.DeviceID,
		&rec.Name,
		&rec.SSID,
		&rec.IP,
		&rec.PubTopic,
		&rec.SubTopic,
		&rec.Status,
		&rec.DataTypes,
		&rec.Commands,
		&typeOfCommands,
		&rec.RecevComands,
		&lastSeen,
	)
	if err != nil {
		return nil, err
	}

	if typeOfCommands.Valid {
		rec.TypeOfCommands = &typeOfCommands.String
	}

	seen, err := database.ParseTime(lastSeen)
	if err != nil {
		return nil, fmt.Errorf("parsing last_seen: %w", err)
	}
	return rec.toDevice(seen)
}

var _ Repository = (*SQLiteRepository)(nil)
