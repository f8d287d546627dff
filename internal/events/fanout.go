package events

import (
	"context"
	"sync"
	"time"

	"github.com/sensorhub/sensorhub-core/internal/infrastructure/logging"
)

// sinkTimeout bounds a single sink delivery.
const sinkTimeout = 5 * time.Second

// Sink receives ingestion events. Implementations must be safe for use by
// the single fan-out goroutine; they need not be safe for concurrent calls.
type Sink interface {
	// Name identifies the sink in logs.
	Name() string

	// Handle delivers one event.
	Handle(ctx context.Context, e Event) error
}

// Emitter is what the ingestion handlers depend on.
type Emitter interface {
	Emit(e Event)
}

// Discard is an Emitter that drops every event.
type Discard struct{}

// Emit implements Emitter.
func (Discard) Emit(Event) {}

// Fanout delivers events to every sink on one background goroutine.
//
// Emit never blocks: when the buffer is full the event is dropped and a
// warning logged, so a slow sink cannot stall ingestion. A sink error is
// logged and does not stop delivery to the other sinks.
type Fanout struct {
	sinks  []Sink
	queue  chan Event
	logger *logging.Logger

	mu     sync.RWMutex
	closed bool
	done   chan struct{}
}

// NewFanout starts the delivery goroutine.
//
// Parameters:
//   - bufferSize: Maximum queued events before Emit starts dropping
//   - logger: Destination for drop and sink-failure warnings
//   - sinks: Destinations, called in order for every event
func NewFanout(bufferSize int, logger *logging.Logger, sinks ...Sink) *Fanout {
	if bufferSize <= 0 {
		bufferSize = 1
	}
	if logger == nil {
		logger = logging.Discard()
	}

	f := &Fanout{
		sinks:  sinks,
		queue:  make(chan Event, bufferSize),
		logger: logger.Component("events"),
		done:   make(chan struct{}),
	}
	go f.run()
	return f
}

// Emit queues an event for delivery.
func (f *Fanout) Emit(e Event) {
	f.mu.RLock()
	defer f.mu.RUnlock()

	if f.closed {
		return
	}

	select {
	case f.queue <- e:
	default:
		f.logger.Warn("event buffer full, dropping event",
			"type", e.Type,
			"device_id", e.DeviceID,
		)
	}
}

// SinkCount returns the number of attached sinks.
func (f *Fanout) SinkCount() int {
	return len(f.sinks)
}

func (f *Fanout) run() {
	defer close(f.done)

	for e := range f.queue {
		for _, sink := range f.sinks {
			f.deliver(sink, e)
		}
	}
}

func (f *Fanout) deliver(sink Sink, e Event) {
	defer func() {
		if r := recover(); r != nil {
			f.logger.Error("event sink panic recovered", "sink", sink.Name(), "type", e.Type, "panic", r)
		}
	}()

	ctx, cancel := context.WithTimeout(context.Background(), sinkTimeout)
	defer cancel()

	if err := sink.Handle(ctx, e); err != nil {
		f.logger.Warn("event sink failed",
			"sink", sink.Name(),
			"type", e.Type,
			"device_id", e.DeviceID,
			"error", err,
		)
	}
}

// Close stops accepting events and waits for queued ones to be delivered,
// or for ctx to expire.
func (f *Fanout) Close(ctx context.Context) error {
	f.mu.Lock()
	if f.closed {
		f.mu.Unlock()
		return nil
	}
	f.closed = true
	close(f.queue)
	f.mu.Unlock()

	select {
	case <-f.done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
