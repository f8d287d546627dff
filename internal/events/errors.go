package events

import "errors"

var (
	// ErrSinkFailed wraps a downstream delivery failure.
	ErrSinkFailed = errors.New("events: sink delivery failed")

	// ErrClosed is returned by sinks used after Close.
	ErrClosed = errors.New("events: closed")
)
