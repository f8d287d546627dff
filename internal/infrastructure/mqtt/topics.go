package mqtt

import (
	"fmt"
	"strings"
)

// Device-facing topics. Devices hard-code these names, so they carry no prefix.
const (
	// TopicRegistration carries device registration payloads.
	TopicRegistration = "config"

	// TopicTelemetryFilter matches every telemetry topic data/{sensor}.
	TopicTelemetryFilter = "data/+"

	// TopicStatusFilter matches every presence topic devices/{device_id}/status.
	TopicStatusFilter = "devices/+/status"

	// TopicPrefixDevices is the first segment of per-device topics.
	TopicPrefixDevices = "devices"
)

// TopicPrefixSystem is the base for the service's own topics.
const TopicPrefixSystem = "sensorhub/system"

// Topics provides builders for SensorHub MQTT topics.
//
//	topics := mqtt.Topics{}
//	topics.DeviceCommand("d1") // "devices/d1/command"
type Topics struct{}

// DeviceCommand returns the outbound command topic for a device.
//
// Example: devices/d1/command
func (Topics) DeviceCommand(deviceID string) string {
	return fmt.Sprintf("%s/%s/command", TopicPrefixDevices, deviceID)
}

// DeviceStatus returns the presence topic a device publishes to.
//
// Example: devices/d1/status
func (Topics) DeviceStatus(deviceID string) string {
	return fmt.Sprintf("%s/%s/status", TopicPrefixDevices, deviceID)
}

// Telemetry returns the telemetry topic for a sensor type.
//
// Example: data/temp
func (Topics) Telemetry(sensor string) string {
	return "data/" + sensor
}

// SystemStatus returns the retained presence topic of this service.
//
// Example: sensorhub/system/status
func (Topics) SystemStatus() string {
	return TopicPrefixSystem + "/status"
}

// IsTopicSegment reports whether s can be used as exactly one topic level:
// non-empty and free of the separator and both wildcards.
func IsTopicSegment(s string) bool {
	return s != "" && !strings.ContainsAny(s, "/+#")
}
