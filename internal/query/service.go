package query

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/samber/lo"

	"github.com/sensorhub/sensorhub-core/internal/command"
	"github.com/sensorhub/sensorhub-core/internal/device"
	"github.com/sensorhub/sensorhub-core/internal/telemetry"
)

// Reading limits.
const (
	DefaultLimit = 1000
	MaxLimit     = 10000
)

// Dispatcher publishes a device command. *command.Dispatcher satisfies it.
type Dispatcher interface {
	Dispatch(ctx context.Context, deviceID, command string) error
}

// ReadingsQuery holds the caller's reading filters as received.
type ReadingsQuery struct {
	// Window is a window name; empty selects the 24h default.
	Window string

	// DataType filters by sensor kind when non-empty.
	DataType string

	// Limit caps the result; zero selects DefaultLimit and values above
	// MaxLimit are clamped.
	Limit int
}

// Service answers dashboard reads and accepts commands. Every read goes to
// the repositories; nothing is cached.
type Service struct {
	devices    device.Repository
	readings   telemetry.Repository
	dispatcher Dispatcher
	now        func() time.Time
}

// NewService creates a query service. A nil clock uses time.Now.
func NewService(devices device.Repository, readings telemetry.Repository, dispatcher Dispatcher, now func() time.Time) *Service {
	if now == nil {
		now = time.Now
	}
	return &Service{devices: devices, readings: readings, dispatcher: dispatcher, now: now}
}

// ListDevices returns every registered device.
func (s *Service) ListDevices(ctx context.Context) ([]DeviceView, error) {
	devices, err := s.devices.List(ctx)
	if err != nil {
		return nil, fmt.Errorf("listing devices: %w", err)
	}
	return lo.Map(devices, func(d device.Device, _ int) DeviceView {
		return NewDeviceView(&d)
	}), nil
}

// GetDevice returns one device or device.ErrDeviceNotFound.
func (s *Service) GetDevice(ctx context.Context, deviceID string) (*DeviceView, error) {
	d, err := s.devices.GetByID(ctx, deviceID)
	if err != nil {
		return nil, err
	}
	v := NewDeviceView(d)
	return &v, nil
}

// ListCommandable returns devices advertising at least one command.
func (s *Service) ListCommandable(ctx context.Context) ([]DeviceView, error) {
	devices, err := s.devices.List(ctx)
	if err != nil {
		return nil, fmt.Errorf("listing devices: %w", err)
	}
	return lo.FilterMap(devices, func(d device.Device, _ int) (DeviceView, bool) {
		return NewDeviceView(&d), d.HasCommands()
	}), nil
}

// GetCommands returns a device's command list.
func (s *Service) GetCommands(ctx context.Context, deviceID string) (*CommandsView, error) {
	d, err := s.devices.GetByID(ctx, deviceID)
	if err != nil {
		return nil, err
	}
	return &CommandsView{DeviceID: d.DeviceID, DeviceName: d.Name, Commands: list(d.Commands)}, nil
}

// GetDataTypes returns a device's data type list.
func (s *Service) GetDataTypes(ctx context.Context, deviceID string) (*DataTypesView, error) {
	d, err := s.devices.GetByID(ctx, deviceID)
	if err != nil {
		return nil, err
	}
	return &DataTypesView{DeviceID: d.DeviceID, DeviceName: d.Name, DataTypes: list(d.DataTypes)}, nil
}

// Readings returns the most recent readings of deviceID inside the window,
// oldest first. The device need not be registered.
//
// Returns:
//   - telemetry.ErrInvalidWindow: unknown window name
//   - telemetry.ErrInvalidLimit: negative limit
func (s *Service) Readings(ctx context.Context, deviceID string, q ReadingsQuery) ([]ReadingView, error) {
	window, err := telemetry.ParseWindow(q.Window)
	if err != nil {
		return nil, err
	}

	limit := q.Limit
	switch {
	case limit == 0:
		limit = DefaultLimit
	case limit < 0:
		return nil, fmt.Errorf("%w: %d", telemetry.ErrInvalidLimit, limit)
	case limit > MaxLimit:
		limit = MaxLimit
	}

	readings, err := s.readings.Query(ctx, telemetry.Query{
		DeviceID: deviceID,
		Since:    window.Since(s.now()),
		DataType: q.DataType,
		Limit:    limit,
	})
	if err != nil {
		return nil, fmt.Errorf("querying readings: %w", err)
	}
	return lo.Map(readings, func(r telemetry.Reading, _ int) ReadingView {
		return NewReadingView(r)
	}), nil
}

// SubmitCommand validates and publishes a command to a registered device.
// Nothing is published when validation fails.
//
// Returns:
//   - command.ErrCommandRequired / command.ErrInvalidCommand: bad command value
//   - device.ErrDeviceNotFound: device never registered
//   - command.ErrPublishFailed: the broker did not accept the message
func (s *Service) SubmitCommand(ctx context.Context, deviceID string, raw json.RawMessage) (*CommandResult, error) {
	cmd, err := command.FormatCommand(raw)
	if err != nil {
		return nil, err
	}

	if _, err := s.devices.GetByID(ctx, deviceID); err != nil {
		return nil, err
	}

	if err := s.dispatcher.Dispatch(ctx, deviceID, cmd); err != nil {
		return nil, err
	}

	return &CommandResult{
		Status:  "success",
		Message: "Command sent successfully",
		Topic:   command.Topic(deviceID),
		Command: cmd,
	}, nil
}
