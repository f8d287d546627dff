package database

import (
	"fmt"
	"time"
)

// TimeLayout is the storage format for SQLite timestamp columns.
// It is fixed width and always UTC, so lexical order equals time order and
// range predicates can compare the text directly.
const TimeLayout = "2006-01-02T15:04:05.000000Z"

// FormatTime renders t for a SQLite timestamp column.
func FormatTime(t time.Time) string {
	return t.UTC().Format(TimeLayout)
}

// ParseTime parses a value written by FormatTime.
func ParseTime(s string) (time.Time, error) {
	t, err := time.Parse(TimeLayout, s)
	if err != nil {
		return time.Time{}, fmt.Errorf("parsing timestamp %q: %w", s, err)
	}
	return t, nil
}
