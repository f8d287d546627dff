package ingest

import "errors"

// Handler errors. The router maps each to a log level; none reaches the
// transport.
var (
	// ErrMalformedPayload is returned when a payload cannot be decoded or is
	// missing a required field. Logged at warn.
	ErrMalformedPayload = errors.New("ingest: malformed payload")

	// ErrMalformedTopic is returned when a topic lacks the expected segments.
	// Logged at warn.
	ErrMalformedTopic = errors.New("ingest: malformed topic")

	// ErrUnknownDevice is returned for a status update naming a device that
	// never registered. The update is a no-op; logged at debug.
	ErrUnknownDevice = errors.New("ingest: unknown device")

	// ErrStoreFailed wraps a repository failure. Logged at error.
	ErrStoreFailed = errors.New("ingest: store write failed")

	// ErrAckFailed is returned when the registration acknowledgment could not
	// be published. The registration itself is kept. Logged at error.
	ErrAckFailed = errors.New("ingest: acknowledgment failed")
)

// Route table errors, returned at startup.
var (
	// ErrInvalidPattern is returned for a malformed topic filter.
	ErrInvalidPattern = errors.New("ingest: invalid route pattern")

	// ErrAmbiguousRoute is returned when a pattern could match a topic that
	// an existing route also matches.
	ErrAmbiguousRoute = errors.New("ingest: ambiguous route")

	// ErrDuplicateRoute is returned when a route kind is registered twice.
	ErrDuplicateRoute = errors.New("ingest: route kind already registered")
)
