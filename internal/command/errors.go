package command

import "errors"

var (
	// ErrInvalidDeviceID is returned when a device ID cannot form a command topic.
	ErrInvalidDeviceID = errors.New("command: invalid device_id")

	// ErrCommandRequired is returned for a missing, null or empty command.
	ErrCommandRequired = errors.New("command: command is required")

	// ErrInvalidCommand is returned when a command is an object or array.
	ErrInvalidCommand = errors.New("command: command must be a string, number or boolean")

	// ErrPublishFailed wraps the transport error when a command cannot be published.
	ErrPublishFailed = errors.New("command: publish failed")
)
