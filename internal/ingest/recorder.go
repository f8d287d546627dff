package ingest

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"math"
	"strconv"
	"strings"
	"time"

	"github.com/sensorhub/sensorhub-core/internal/events"
	"github.com/sensorhub/sensorhub-core/internal/telemetry"
)

// Recorder appends telemetry readings.
//
// It does not check the device exists or that data_type is one the device
// advertised, and it does not deduplicate.
type Recorder struct {
	readings telemetry.Repository
	events   events.Emitter
	now      func() time.Time
}

// NewRecorder creates a recorder. A nil emitter drops events; a nil clock
// uses time.Now.
func NewRecorder(readings telemetry.Repository, emitter events.Emitter, now func() time.Time) *Recorder {
	if emitter == nil {
		emitter = events.Discard{}
	}
	if now == nil {
		now = time.Now
	}
	return &Recorder{readings: readings, events: emitter, now: now}
}

type readingPayload struct {
	DeviceID string          `json:"device_id"`
	DataType string          `json:"data_type"`
	Value    json.RawMessage `json:"value"`
}

// HandleReading stores one reading published on data/{sensor}. The topic's
// sensor level is informational; data_type in the payload is authoritative.
//
// Returns:
//   - ErrMalformedPayload: missing field or non-numeric value
//   - ErrStoreFailed: the insert failed
func (r *Recorder) HandleReading(ctx context.Context, _ string, payload []byte) error {
	var p readingPayload
	if err := json.Unmarshal(payload, &p); err != nil {
		return fmt.Errorf("%w: %w", ErrMalformedPayload, err)
	}
	if p.DeviceID == "" || p.DataType == "" {
		return fmt.Errorf("%w: device_id and data_type are required", ErrMalformedPayload)
	}

	value, err := parseValue(p.Value)
	if err != nil {
		return err
	}

	reading, err := r.readings.Append(ctx, p.DeviceID, p.DataType, value, r.now())
	if err != nil {
		return fmt.Errorf("%w: %w", ErrStoreFailed, err)
	}

	r.events.Emit(events.ReadingRecorded(reading))
	return nil
}

// parseValue accepts a JSON number or a string holding one.
func parseValue(raw json.RawMessage) (float64, error) {
	trimmed := bytes.TrimSpace(raw)
	if len(trimmed) == 0 || bytes.Equal(trimmed, []byte("null")) {
		return 0, fmt.Errorf("%w: value is required", ErrMalformedPayload)
	}

	text := string(trimmed)
	if trimmed[0] == '"' {
		if err := json.Unmarshal(trimmed, &text); err != nil {
			return 0, fmt.Errorf("%w: value: %w", ErrMalformedPayload, err)
		}
		text = strings.TrimSpace(text)
	}

	value, err := strconv.ParseFloat(text, 64)
	if err != nil {
		return 0, fmt.Errorf("%w: value %s is not numeric", ErrMalformedPayload, trimmed)
	}
	if math.IsNaN(value) || math.IsInf(value, 0) {
		return 0, fmt.Errorf("%w: value must be finite", ErrMalformedPayload)
	}
	return value, nil
}
