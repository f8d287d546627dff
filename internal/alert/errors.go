package alert

import "errors"

var (
	// ErrInvalidRule is returned for a rule without a data type or threshold.
	ErrInvalidRule = errors.New("alert: invalid rule")

	// ErrNoSubscribers is returned when a notifier is created without targets.
	ErrNoSubscribers = errors.New("alert: no subscribers configured")

	// ErrDeliveryFailed is returned when at least one subscriber did not
	// acknowledge an alert.
	ErrDeliveryFailed = errors.New("alert: delivery failed")
)
