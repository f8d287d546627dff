package device

import (
	"errors"
	"strings"
	"testing"
)

func TestValidateDeviceID(t *testing.T) {
	tests := []struct {
		name    string
		id      string
		wantErr bool
	}{
		{"simple", "d1", false},
		{"with dashes", "esp32-kitchen_01", false},
		{"empty", "", true},
		{"slash", "a/b", true},
		{"plus wildcard", "a+", true},
		{"hash wildcard", "#", true},
		{"long", strings.Repeat("x", 512), false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ValidateDeviceID(tt.id)
			if tt.wantErr && !errors.Is(err, ErrInvalidDeviceID) {
				t.Errorf("ValidateDeviceID(%q) error = %v, want ErrInvalidDeviceID", tt.id, err)
			}
			if !tt.wantErr && err != nil {
				t.Errorf("ValidateDeviceID(%q) unexpected error = %v", tt.id, err)
			}
		})
	}
}

func TestValidateName(t *testing.T) {
	if err := ValidateName("Kitchen"); err != nil {
		t.Errorf("ValidateName() error = %v", err)
	}
	if err := ValidateName(""); !errors.Is(err, ErrInvalidName) {
		t.Errorf("ValidateName(\"\") error = %v, want ErrInvalidName", err)
	}
	if err := ValidateName(strings.Repeat("n", 500)); err != nil {
		t.Errorf("ValidateName(long) error = %v, want nil", err)
	}
}

func TestValidateDevice(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*Device)
		wantErr error
	}{
		{name: "valid", mutate: func(*Device) {}},
		{name: "bad id", mutate: func(d *Device) { d.DeviceID = "a/b" }, wantErr: ErrInvalidDeviceID},
		{name: "missing name", mutate: func(d *Device) { d.Name = "" }, wantErr: ErrInvalidName},
		{name: "long ip", mutate: func(d *Device) { d.IP = strings.Repeat("1", 4096) }},
		{name: "many commands", mutate: func(d *Device) { d.Commands = make(StringList, 500) }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			d := testDevice("d1", "Kitchen")
			tt.mutate(d)
			err := ValidateDevice(d)
			if tt.wantErr == nil {
				if err != nil {
					t.Errorf("ValidateDevice() error = %v", err)
				}
				return
			}
			if !errors.Is(err, tt.wantErr) {
				t.Errorf("ValidateDevice() error = %v, want %v", err, tt.wantErr)
			}
		})
	}

	if err := ValidateDevice(nil); !errors.Is(err, ErrInvalidDevice) {
		t.Errorf("ValidateDevice(nil) error = %v", err)
	}
}
