package command

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"strconv"

	"github.com/sensorhub/sensorhub-core/internal/infrastructure/logging"
	"github.com/sensorhub/sensorhub-core/internal/infrastructure/mqtt"
)

// Publisher is the transport primitive the dispatcher needs.
// *mqtt.Client satisfies it.
type Publisher interface {
	Publish(topic string, payload []byte, qos byte, retained bool) error
}

// AckRegistered is published to a device after a successful registration.
const AckRegistered = "Registered_OK"

// Dispatcher sends bare-string commands to devices/{device_id}/command.
//
// It never consults the registry: callers that need an existence check
// (the query service) do it before dispatching. Delivery is fire-and-forget
// at the configured QoS; there is no retry and nothing is persisted.
type Dispatcher struct {
	publisher Publisher
	qos       byte
	logger    *logging.Logger
}

// NewDispatcher creates a dispatcher publishing at the given QoS.
func NewDispatcher(publisher Publisher, qos byte, logger *logging.Logger) *Dispatcher {
	if logger == nil {
		logger = logging.Discard()
	}
	return &Dispatcher{
		publisher: publisher,
		qos:       qos,
		logger:    logger.Component("command"),
	}
}

// Topic returns the command topic for a device.
func Topic(deviceID string) string {
	return mqtt.Topics{}.DeviceCommand(deviceID)
}

// Dispatch publishes command to the device's command topic.
//
// Parameters:
//   - ctx: Checked before publishing; the transport applies its own timeout
//   - deviceID: Target device; must be a single topic level
//   - command: Payload, sent verbatim
//
// Returns:
//   - error: ErrInvalidDeviceID, or ErrPublishFailed wrapping the transport error
func (d *Dispatcher) Dispatch(ctx context.Context, deviceID, command string) error {
	if !mqtt.IsTopicSegment(deviceID) {
		return fmt.Errorf("%w: %q", ErrInvalidDeviceID, deviceID)
	}
	if err := ctx.Err(); err != nil {
		return fmt.Errorf("%w: %w", ErrPublishFailed, err)
	}

	topic := Topic(deviceID)
	if err := d.publisher.Publish(topic, []byte(command), d.qos, false); err != nil {
		d.logger.Error("command publish failed",
			"device_id", deviceID,
			"topic", topic,
			"error", err,
		)
		return fmt.Errorf("%w: %w", ErrPublishFailed, err)
	}

	d.logger.Info("command published", "device_id", deviceID, "topic", topic, "command", command)
	return nil
}

// FormatCommand renders a JSON command value as the string sent on the wire.
//
// Strings are used verbatim, numbers keep their literal text, booleans become
// "true" or "false". A missing value, null or "" yields ErrCommandRequired;
// objects and arrays yield ErrInvalidCommand.
func FormatCommand(raw json.RawMessage) (string, error) {
	trimmed := bytes.TrimSpace(raw)
	if len(trimmed) == 0 || bytes.Equal(trimmed, []byte("null")) {
		return "", ErrCommandRequired
	}

	switch trimmed[0] {
	case '"':
		var s string
		if err := json.Unmarshal(trimmed, &s); err != nil {
			return "", fmt.Errorf("%w: %w", ErrInvalidCommand, err)
		}
		if s == "" {
			return "", ErrCommandRequired
		}
		return s, nil
	case 't', 'f':
		var b bool
		if err := json.Unmarshal(trimmed, &b); err != nil {
			return "", fmt.Errorf("%w: %w", ErrInvalidCommand, err)
		}
		return strconv.FormatBool(b), nil
	case '{', '[':
		return "", ErrInvalidCommand
	default:
		var n json.Number
		if err := json.Unmarshal(trimmed, &n); err != nil {
			return "", fmt.Errorf("%w: %w", ErrInvalidCommand, err)
		}
		return n.String(), nil
	}
}
