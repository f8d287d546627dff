package query

import (
	"time"

	"github.com/samber/lo"

	"github.com/sensorhub/sensorhub-core/internal/device"
	"github.com/sensorhub/sensorhub-core/internal/telemetry"
)

// unknownType labels a device that sent no name.
const unknownType = "Unknown"

// DeviceView is the dashboard representation of a registry row.
//
// Empty optional strings and a never-seen device's timestamps render as null.
// ID carries the device_id, as the dashboard keys rows by it.
type DeviceView struct {
	ID             string     `json:"id"`
	DeviceID       string     `json:"device_id"`
	Name           string     `json:"name"`
	Type           string     `json:"type"`
	SSID           *string    `json:"ssid"`
	IP             *string    `json:"ip"`
	Status         string     `json:"status"`
	LastSeen       *time.Time `json:"last_seen"`
	ConnectedAt    *time.Time `json:"connected_at"`
	PubTopic       *string    `json:"pub_topic"`
	SubTopic       *string    `json:"sub_topic"`
	DataTypes      []string   `json:"data_types"`
	Commands       []string   `json:"commands"`
	CommandTypes   []string   `json:"command_types"`
	RecevComands   *string    `json:"recev_comands"`
	TypeOfCommands []string   `json:"type_of_commands"`
}

// CommandsView lists what a device accepts.
type CommandsView struct {
	DeviceID   string   `json:"device_id"`
	DeviceName string   `json:"device_name"`
	Commands   []string `json:"commands"`
}

// DataTypesView lists what a device reports.
type DataTypesView struct {
	DeviceID   string   `json:"device_id"`
	DeviceName string   `json:"device_name"`
	DataTypes  []string `json:"data_types"`
}

// ReadingView is one chart point.
type ReadingView struct {
	ID        int64     `json:"id"`
	Value     float64   `json:"value"`
	Type      string    `json:"type"`
	Timestamp time.Time `json:"timestamp"`
}

// CommandResult reports a published command.
type CommandResult struct {
	Status  string `json:"status"`
	Message string `json:"message"`
	Topic   string `json:"topic"`
	Command string `json:"command"`
}

// NewDeviceView projects a registry row.
func NewDeviceView(d *device.Device) DeviceView {
	v := DeviceView{
		ID:           d.DeviceID,
		DeviceID:     d.DeviceID,
		Name:         d.Name,
		Type:         lo.Ternary(d.Name != "", d.Name, unknownType),
		SSID:         optional(d.SSID),
		IP:           optional(d.IP),
		Status:       lo.Ternary(d.Status != "", d.Status, device.StatusOffline),
		PubTopic:     optional(d.PubTopic),
		SubTopic:     optional(d.SubTopic),
		DataTypes:    list(d.DataTypes),
		Commands:     list(d.Commands),
		CommandTypes: list(d.CommandTypes()),
		RecevComands: optional(d.RecevComands),
	}
	if d.TypeOfCommands != nil {
		v.TypeOfCommands = list(d.TypeOfCommands)
	}
	if !d.LastSeen.IsZero() {
		seen := d.LastSeen
		v.LastSeen, v.ConnectedAt = &seen, &seen
	}
	return v
}

// NewReadingView projects a stored reading.
func NewReadingView(r telemetry.Reading) ReadingView {
	return ReadingView{ID: r.ID, Value: r.Value, Type: r.DataType, Timestamp: r.Timestamp}
}

func optional(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}

// list never returns nil, so JSON renders [] rather than null.
func list(l device.StringList) []string {
	out := make([]string, len(l))
	copy(out, l)
	return out
}
