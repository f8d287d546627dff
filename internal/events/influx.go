package events

import (
	"context"
	"time"
)

// ReadingWriter is implemented by *influxdb.Client.
type ReadingWriter interface {
	WriteReading(deviceID, dataType string, value float64, at time.Time)
}

// InfluxSink mirrors recorded readings into a time-series database.
// Other event types are ignored.
type InfluxSink struct {
	writer ReadingWriter
}

// NewInfluxSink wraps a reading writer.
func NewInfluxSink(w ReadingWriter) *InfluxSink {
	return &InfluxSink{writer: w}
}

// Name implements Sink.
func (s *InfluxSink) Name() string {
	return "influxdb"
}

// Handle implements Sink. Writes are batched by the client, so this never
// fails; batch errors surface through the client's error callback.
func (s *InfluxSink) Handle(_ context.Context, e Event) error {
	if e.Type != TypeReadingRecorded || e.Reading == nil {
		return nil
	}
	r := e.Reading
	s.writer.WriteReading(r.DeviceID, r.DataType, r.Value, r.Timestamp)
	return nil
}
