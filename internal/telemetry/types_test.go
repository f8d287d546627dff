package telemetry

import (
	"errors"
	"testing"
	"time"
)

func TestParseWindow(t *testing.T) {
	tests := []struct {
		in      string
		want    Window
		wantDur time.Duration
		wantErr bool
	}{
		{in: "", want: WindowDay, wantDur: 24 * time.Hour},
		{in: "1h", want: WindowHour, wantDur: time.Hour},
		{in: "24h", want: WindowDay, wantDur: 24 * time.Hour},
		{in: "7d", want: WindowWeek, wantDur: 7 * 24 * time.Hour},
		{in: "week", want: WindowWeek, wantDur: 7 * 24 * time.Hour},
		{in: "30d", want: WindowMonth, wantDur: 30 * 24 * time.Hour},
		{in: "Month", want: WindowMonth, wantDur: 30 * 24 * time.Hour},
		{in: "2h", wantErr: true},
		{in: "year", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := ParseWindow(tt.in)
			if tt.wantErr {
				if !errors.Is(err, ErrInvalidWindow) {
					t.Errorf("ParseWindow(%q) error = %v, want ErrInvalidWindow", tt.in, err)
				}
				return
			}
			if err != nil {
				t.Fatalf("ParseWindow(%q) error = %v", tt.in, err)
			}
			if got != tt.want || got.Duration() != tt.wantDur {
				t.Errorf("ParseWindow(%q) = %s/%v, want %s/%v", tt.in, got, got.Duration(), tt.want, tt.wantDur)
			}
		})
	}
}

func TestWindow_Since(t *testing.T) {
	now := time.Date(2026, 3, 8, 0, 0, 0, 0, time.UTC)
	if got := WindowWeek.Since(now); !got.Equal(time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC)) {
		t.Errorf("Since() = %v", got)
	}
}
