package events

import (
	"time"

	"github.com/sensorhub/sensorhub-core/internal/device"
	"github.com/sensorhub/sensorhub-core/internal/telemetry"
)

// Type names an ingestion event. The value doubles as routing key and
// websocket channel.
type Type string

// Ingestion event types.
const (
	TypeDeviceRegistered    Type = "device.registered"
	TypeDeviceStatusChanged Type = "device.status_changed"
	TypeReadingRecorded     Type = "reading.recorded"
)

// AllTypes returns every event type in a stable order.
func AllTypes() []Type {
	return []Type{TypeDeviceRegistered, TypeDeviceStatusChanged, TypeReadingRecorded}
}

// Event describes a store write that the ingestion pipeline committed.
// Exactly one of Device, Status or Reading is set, matching Type.
type Event struct {
	Type     Type               `json:"type"`
	DeviceID string             `json:"device_id"`
	Time     time.Time          `json:"time"`
	Device   *device.Device     `json:"device,omitempty"`
	Status   string             `json:"status,omitempty"`
	Reading  *telemetry.Reading `json:"reading,omitempty"`
}

// DeviceRegistered builds the event for a committed registration.
func DeviceRegistered(d *device.Device) Event {
	return Event{Type: TypeDeviceRegistered, DeviceID: d.DeviceID, Time: d.LastSeen, Device: d}
}

// DeviceStatusChanged builds the event for a committed status update.
func DeviceStatusChanged(deviceID, status string, at time.Time) Event {
	return Event{Type: TypeDeviceStatusChanged, DeviceID: deviceID, Time: at.UTC(), Status: status}
}

// ReadingRecorded builds the event for a stored reading.
func ReadingRecorded(r *telemetry.Reading) Event {
	return Event{Type: TypeReadingRecorded, DeviceID: r.DeviceID, Time: r.Timestamp, Reading: r}
}
