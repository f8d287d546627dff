// Package command publishes operator and acknowledgment commands to devices.
//
// Commands are bare strings on devices/{device_id}/command. The topic is
// always derived from the device ID; the sub_topic a device reported at
// registration is informational and never used for routing.
package command
