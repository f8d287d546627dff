package ingest

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/sensorhub/sensorhub-core/internal/command"
	"github.com/sensorhub/sensorhub-core/internal/device"
	"github.com/sensorhub/sensorhub-core/internal/events"
)

// maxStatusLength bounds a presence payload. Anything shorter is stored
// byte for byte.
const maxStatusLength = 64 << 10

// Acknowledger sends the registration acknowledgment.
// *command.Dispatcher satisfies it.
type Acknowledger interface {
	Dispatch(ctx context.Context, deviceID, command string) error
}

// Reconciler applies registration and presence messages to the registry.
//
// Registration is a full replace: whatever the device sends becomes the row,
// and anything it leaves out is cleared. Presence touches only status and
// last_seen and never creates a row.
type Reconciler struct {
	devices device.Repository
	acker   Acknowledger
	events  events.Emitter
	now     func() time.Time
}

// NewReconciler creates a reconciler. A nil emitter drops events; a nil
// clock uses time.Now.
func NewReconciler(devices device.Repository, acker Acknowledger, emitter events.Emitter, now func() time.Time) *Reconciler {
	if emitter == nil {
		emitter = events.Discard{}
	}
	if now == nil {
		now = time.Now
	}
	return &Reconciler{devices: devices, acker: acker, events: emitter, now: now}
}

// registration is the JSON body devices publish on the config topic.
type registration struct {
	DeviceID       string            `json:"device_id"`
	DeviceName     string            `json:"device_name"`
	SSID           string            `json:"ssid"`
	IP             string            `json:"ip"`
	PubTopic       string            `json:"pub_topic"`
	SubTopic       string            `json:"sub_topic"`
	DataTypes      device.StringList `json:"data_types"`
	Commands       device.StringList `json:"commands"`
	TypeOfCommands device.StringList `json:"type_of_commands"`
	RecevComands   json.RawMessage   `json:"recev_comands"`
}

// decodeRegistration turns a config payload into the device row it describes.
func decodeRegistration(payload []byte) (*device.Device, error) {
	var reg registration
	if err := json.Unmarshal(payload, &reg); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrMalformedPayload, err)
	}
	if reg.DeviceID == "" || reg.DeviceName == "" {
		return nil, fmt.Errorf("%w: device_id and device_name are required", ErrMalformedPayload)
	}

	d := &device.Device{
		DeviceID:       reg.DeviceID,
		Name:           reg.DeviceName,
		SSID:           reg.SSID,
		IP:             reg.IP,
		PubTopic:       reg.PubTopic,
		SubTopic:       reg.SubTopic,
		DataTypes:      reg.DataTypes,
		Commands:       reg.Commands,
		TypeOfCommands: reg.TypeOfCommands,
		RecevComands:   rawText(reg.RecevComands),
	}
	if err := device.ValidateDevice(d); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrMalformedPayload, err)
	}
	return d, nil
}

// rawText returns a JSON string's contents, "" for null or absent, and the
// compact JSON text of any other value.
func rawText(raw json.RawMessage) string {
	trimmed := bytes.TrimSpace(raw)
	if len(trimmed) == 0 || bytes.Equal(trimmed, []byte("null")) {
		return ""
	}
	var s string
	if err := json.Unmarshal(trimmed, &s); err == nil {
		return s
	}
	var buf bytes.Buffer
	if err := json.Compact(&buf, trimmed); err != nil {
		return string(trimmed)
	}
	return buf.String()
}

// HandleRegistration upserts the device described by a config payload,
// then acknowledges with Registered_OK on its command topic.
//
// Returns:
//   - ErrMalformedPayload: payload is not a valid registration
//   - ErrStoreFailed: the upsert failed; nothing was published
//   - ErrAckFailed: stored, but the acknowledgment could not be sent
func (r *Reconciler) HandleRegistration(ctx context.Context, _ string, payload []byte) error {
	d, err := decodeRegistration(payload)
	if err != nil {
		return err
	}

	stored, err := r.devices.Upsert(ctx, d, r.now())
	if err != nil {
		return fmt.Errorf("%w: %w", ErrStoreFailed, err)
	}

	ackErr := r.acker.Dispatch(ctx, stored.DeviceID, command.AckRegistered)
	r.events.Emit(events.DeviceRegistered(stored))

	if ackErr != nil {
		return fmt.Errorf("%w: device %s: %w", ErrAckFailed, stored.DeviceID, ackErr)
	}
	return nil
}

// HandleStatus records a presence update from devices/{device_id}/status.
// The payload is stored exactly as received, including an empty one.
//
// Returns:
//   - ErrMalformedTopic: fewer than three levels or an empty device_id
//   - ErrMalformedPayload: status larger than maxStatusLength
//   - ErrUnknownDevice: no row for device_id; nothing was written
//   - ErrStoreFailed: the update failed
func (r *Reconciler) HandleStatus(ctx context.Context, topic string, payload []byte) error {
	deviceID, err := statusDeviceID(topic)
	if err != nil {
		return err
	}

	if len(payload) > maxStatusLength {
		return fmt.Errorf("%w: status exceeds %d bytes", ErrMalformedPayload, maxStatusLength)
	}

	status := string(payload)
	seen := r.now()
	if err := r.devices.UpdateStatus(ctx, deviceID, status, seen); err != nil {
		if errors.Is(err, device.ErrDeviceNotFound) {
			return fmt.Errorf("%w: %s", ErrUnknownDevice, deviceID)
		}
		return fmt.Errorf("%w: %w", ErrStoreFailed, err)
	}

	r.events.Emit(events.DeviceStatusChanged(deviceID, status, seen))
	return nil
}

// statusDeviceID extracts the device_id level of devices/{device_id}/status.
func statusDeviceID(topic string) (string, error) {
	levels := strings.Split(topic, "/")
	if len(levels) < 3 || levels[1] == "" {
		return "", fmt.Errorf("%w: %q", ErrMalformedTopic, topic)
	}
	return levels[1], nil
}
