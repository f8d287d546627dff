package telemetry

import "errors"

var (
	// ErrInvalidWindow is returned for an unrecognised look-back window name.
	ErrInvalidWindow = errors.New("telemetry: invalid window")

	// ErrInvalidLimit is returned when a query limit is not positive.
	ErrInvalidLimit = errors.New("telemetry: invalid limit")

	// ErrInvalidReading is returned for a reading that cannot be stored.
	ErrInvalidReading = errors.New("telemetry: invalid reading")
)
