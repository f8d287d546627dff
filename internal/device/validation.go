package device

import (
	"fmt"

	"github.com/sensorhub/sensorhub-core/internal/infrastructure/mqtt"
)

// ValidateDevice checks the fields a registration must satisfy before it
// is written: a topic-safe device_id and a non-empty name. Every other
// field is stored as sent, whatever its size.
func ValidateDevice(d *Device) error {
	if d == nil {
		return ErrInvalidDevice
	}

	if err := ValidateDeviceID(d.DeviceID); err != nil {
		return err
	}
	return ValidateName(d.Name)
}

// ValidateDeviceID checks that id can stand as one level of a device topic
// (devices/{id}/status, devices/{id}/command).
func ValidateDeviceID(id string) error {
	if id == "" {
		return fmt.Errorf("%w: cannot be empty", ErrInvalidDeviceID)
	}
	if !mqtt.IsTopicSegment(id) {
		return fmt.Errorf("%w: %q contains '/', '+' or '#'", ErrInvalidDeviceID, id)
	}
	return nil
}

// ValidateName checks that a device name is present.
func ValidateName(name string) error {
	if name == "" {
		return fmt.Errorf("%w: cannot be empty", ErrInvalidName)
	}
	return nil
}
