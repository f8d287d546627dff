package telemetry

import (
	"fmt"
	"strings"
	"time"
)

// Reading is one immutable telemetry sample (table sensor_data).
//
// DeviceID is a weak reference: readings are accepted for devices that never
// registered, and nothing validates DataType against the device's data_types.
type Reading struct {
	ID        int64     `json:"id"`
	DeviceID  string    `json:"device_id"`
	DataType  string    `json:"data_type"`
	Value     float64   `json:"value"`
	Timestamp time.Time `json:"timestamp"`
}

// Window is a named look-back period for reading queries.
type Window string

// Supported windows. Aliases are normalised by ParseWindow.
const (
	WindowHour  Window = "1h"
	WindowDay   Window = "24h"
	WindowWeek  Window = "7d"
	WindowMonth Window = "30d"

	// DefaultWindow applies when the caller names none.
	DefaultWindow = WindowDay
)

var windowDurations = map[Window]time.Duration{
	WindowHour:  time.Hour,
	WindowDay:   24 * time.Hour,
	WindowWeek:  7 * 24 * time.Hour,
	WindowMonth: 30 * 24 * time.Hour,
}

var windowAliases = map[string]Window{
	"week":  WindowWeek,
	"month": WindowMonth,
}

// ParseWindow resolves a window name. The empty string yields DefaultWindow;
// "week" and "month" are accepted as aliases of 7d and 30d.
// Unknown names return ErrInvalidWindow.
func ParseWindow(s string) (Window, error) {
	s = strings.ToLower(strings.TrimSpace(s))
	if s == "" {
		return DefaultWindow, nil
	}
	if w, ok := windowAliases[s]; ok {
		return w, nil
	}
	if _, ok := windowDurations[Window(s)]; ok {
		return Window(s), nil
	}
	return "", fmt.Errorf("%w: %q (use 1h, 24h, 7d, week, 30d or month)", ErrInvalidWindow, s)
}

// Duration returns the look-back length of the window.
func (w Window) Duration() time.Duration {
	return windowDurations[w]
}

// Since returns the inclusive lower bound of the window ending at now.
func (w Window) Since(now time.Time) time.Time {
	return now.Add(-w.Duration())
}

// Query selects readings for one device.
type Query struct {
	DeviceID string

	// Since is the inclusive lower bound on the reading timestamp.
	Since time.Time

	// DataType filters by exact sensor kind when non-empty.
	DataType string

	// Limit caps the result to the most recent N readings. Must be positive.
	Limit int
}
