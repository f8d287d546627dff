package ingest

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/sensorhub/sensorhub-core/internal/command"
	"github.com/sensorhub/sensorhub-core/internal/device"
	"github.com/sensorhub/sensorhub-core/internal/events"
	"github.com/sensorhub/sensorhub-core/internal/infrastructure/database"
	"github.com/sensorhub/sensorhub-core/internal/telemetry"
	"github.com/sensorhub/sensorhub-core/migrations"
)

var testNow = time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

type ack struct {
	deviceID string
	command  string
}

// fakeAcker records acknowledgments instead of publishing them.
type fakeAcker struct {
	mu   sync.Mutex
	sent []ack
	err  error
}

func (a *fakeAcker) Dispatch(_ context.Context, deviceID, cmd string) error {
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.err != nil {
		return a.err
	}
	a.sent = append(a.sent, ack{deviceID, cmd})
	return nil
}

func (a *fakeAcker) acks() []ack {
	a.mu.Lock()
	defer a.mu.Unlock()
	return append([]ack(nil), a.sent...)
}

// recordingEmitter keeps every emitted event.
type recordingEmitter struct {
	mu     sync.Mutex
	events []events.Event
}

func (e *recordingEmitter) Emit(ev events.Event) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.events = append(e.events, ev)
}

func (e *recordingEmitter) all() []events.Event {
	e.mu.Lock()
	defer e.mu.Unlock()
	return append([]events.Event(nil), e.events...)
}

type harness struct {
	devices  device.Repository
	readings telemetry.Repository
	acker    *fakeAcker
	emitter  *recordingEmitter
	router   *Router
	rec      *Reconciler
	tel      *Recorder
}

// newHarness wires the ingest pipeline to a migrated SQLite database.
func newHarness(t *testing.T) *harness {
	t.Helper()

	ctx := context.Background()
	db, err := database.Open(ctx, database.Config{
		Path:        filepath.Join(t.TempDir(), "ingest.db"),
		WALMode:     true,
		BusyTimeout: 5,
	})
	if err != nil {
		t.Fatalf("failed to open test database: %v", err)
	}
	t.Cleanup(func() { db.Close() }) //nolint:errcheck // Test cleanup

	if err := db.Migrate(ctx, migrations.SQLite()); err != nil {
		t.Fatalf("failed to migrate test database: %v", err)
	}

	h := &harness{
		devices:  device.NewSQLiteRepository(db.DB),
		readings: telemetry.NewSQLiteRepository(db.DB),
		acker:    &fakeAcker{},
		emitter:  &recordingEmitter{},
	}
	clock := func() time.Time { return testNow }
	h.rec = NewReconciler(h.devices, h.acker, h.emitter, clock)
	h.tel = NewRecorder(h.readings, h.emitter, clock)

	h.router, err = New(h.rec, h.tel, nil)
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	return h
}

const registrationD1 = `{
	"device_id": "d1",
	"device_name": "Kitchen",
	"ssid": "lab",
	"ip": "10.0.0.5",
	"pub_topic": "data/temp",
	"sub_topic": "devices/d1/command",
	"data_types": ["temp", "humidity"],
	"commands": ["reboot", "led_on"],
	"type_of_commands": ["button", "switch"],
	"recev_comands": "devices/d1/command"
}`

// =============================================================================
// Registration
// =============================================================================

func TestRegistration_StoresAndAcknowledges(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()

	if err := h.rec.HandleRegistration(ctx, "config", []byte(registrationD1)); err != nil {
		t.Fatalf("HandleRegistration() error = %v", err)
	}

	got, err := h.devices.GetByID(ctx, "d1")
	if err != nil {
		t.Fatalf("GetByID() error = %v", err)
	}
	if got.Name != "Kitchen" || got.Status != device.StatusOnline || !got.LastSeen.Equal(testNow) {
		t.Errorf("stored device = %+v", got)
	}
	if fmt.Sprint(got.DataTypes) != "[temp humidity]" || got.RecevComands != "devices/d1/command" {
		t.Errorf("stored lists = %v / %q", got.DataTypes, got.RecevComands)
	}

	acks := h.acker.acks()
	if len(acks) != 1 || acks[0] != (ack{"d1", command.AckRegistered}) {
		t.Errorf("acks = %v, want [{d1 Registered_OK}]", acks)
	}

	evs := h.emitter.all()
	if len(evs) != 1 || evs[0].Type != events.TypeDeviceRegistered || evs[0].DeviceID != "d1" {
		t.Errorf("events = %+v", evs)
	}
}

func TestRegistration_FullReplace(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()

	if err := h.rec.HandleRegistration(ctx, "config", []byte(registrationD1)); err != nil {
		t.Fatalf("first HandleRegistration() error = %v", err)
	}
	second := `{"device_id":"d1","device_name":"Garage","commands":["open"]}`
	if err := h.rec.HandleRegistration(ctx, "config", []byte(second)); err != nil {
		t.Fatalf("second HandleRegistration() error = %v", err)
	}

	got, err := h.devices.GetByID(ctx, "d1")
	if err != nil {
		t.Fatalf("GetByID() error = %v", err)
	}
	if got.Name != "Garage" || got.SSID != "" || got.IP != "" || got.RecevComands != "" {
		t.Errorf("fields not replaced: %+v", got)
	}
	if fmt.Sprint(got.Commands) != "[open]" || len(got.DataTypes) != 0 || got.TypeOfCommands != nil {
		t.Errorf("lists not replaced: %v %v %v", got.Commands, got.DataTypes, got.TypeOfCommands)
	}

	all, _ := h.devices.List(ctx)
	if len(all) != 1 {
		t.Errorf("List() = %d rows, want 1", len(all))
	}
	if len(h.acker.acks()) != 2 {
		t.Errorf("acks = %d, want one per registration", len(h.acker.acks()))
	}
}

func TestRegistration_Malformed(t *testing.T) {
	tests := []struct {
		name    string
		payload string
	}{
		{"not json", `device d1`},
		{"missing device_id", `{"device_name":"Kitchen"}`},
		{"missing device_name", `{"device_id":"d1"}`},
		{"wildcard in id", `{"device_id":"d+1","device_name":"Kitchen"}`},
		{"slash in id", `{"device_id":"a/b","device_name":"Kitchen"}`},
		{"nested list element", `{"device_id":"d1","device_name":"K","commands":[["x"]]}`},
		{"wrong scalar type", `{"device_id":5,"device_name":"Kitchen"}`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h := newHarness(t)
			err := h.rec.HandleRegistration(context.Background(), "config", []byte(tt.payload))
			if !errors.Is(err, ErrMalformedPayload) {
				t.Errorf("HandleRegistration() error = %v, want ErrMalformedPayload", err)
			}
			if len(h.acker.acks()) != 0 || len(h.emitter.all()) != 0 {
				t.Error("malformed registration was acknowledged or emitted")
			}
			all, _ := h.devices.List(context.Background())
			if len(all) != 0 {
				t.Errorf("malformed registration stored %d rows", len(all))
			}
		})
	}
}

func TestRegistration_LongFieldsAccepted(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()

	name := strings.Repeat("n", 300)
	commands := make([]string, 250)
	for i := range commands {
		commands[i] = fmt.Sprintf("cmd-%d", i)
	}
	payload, err := json.Marshal(map[string]any{
		"device_id":   "d9",
		"device_name": name,
		"ip":          strings.Repeat("1", 2048),
		"commands":    commands,
	})
	if err != nil {
		t.Fatalf("json.Marshal() error = %v", err)
	}

	if err := h.rec.HandleRegistration(ctx, "config", payload); err != nil {
		t.Fatalf("HandleRegistration() error = %v", err)
	}
	got, err := h.devices.GetByID(ctx, "d9")
	if err != nil {
		t.Fatalf("GetByID() error = %v", err)
	}
	if got.Name != name || len(got.IP) != 2048 || len(got.Commands) != 250 {
		t.Errorf("stored device truncated: name=%d ip=%d commands=%d", len(got.Name), len(got.IP), len(got.Commands))
	}
}

func TestRegistration_AckFailureKeepsRow(t *testing.T) {
	h := newHarness(t)
	h.acker.err = command.ErrPublishFailed
	ctx := context.Background()

	err := h.rec.HandleRegistration(ctx, "config", []byte(registrationD1))
	if !errors.Is(err, ErrAckFailed) || !errors.Is(err, command.ErrPublishFailed) {
		t.Errorf("HandleRegistration() error = %v, want ErrAckFailed wrapping ErrPublishFailed", err)
	}
	if _, err := h.devices.GetByID(ctx, "d1"); err != nil {
		t.Errorf("GetByID() error = %v, registration should be kept", err)
	}
	if len(h.emitter.all()) != 1 {
		t.Error("registered event not emitted after ack failure")
	}
}

func TestRawText(t *testing.T) {
	tests := []struct {
		raw  string
		want string
	}{
		{``, ""},
		{`null`, ""},
		{`"devices/d1/command"`, "devices/d1/command"},
		{`["a", "b"]`, `["a","b"]`},
		{`{ "k": 1 }`, `{"k":1}`},
		{`42`, "42"},
		{`true`, "true"},
	}
	for _, tt := range tests {
		if got := rawText([]byte(tt.raw)); got != tt.want {
			t.Errorf("rawText(%s) = %q, want %q", tt.raw, got, tt.want)
		}
	}
}

// =============================================================================
// Status
// =============================================================================

func TestStatus_UpdatesOnlyPresence(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()

	if err := h.rec.HandleRegistration(ctx, "config", []byte(registrationD1)); err != nil {
		t.Fatalf("HandleRegistration() error = %v", err)
	}
	if err := h.rec.HandleStatus(ctx, "devices/d1/status", []byte(" Offline\n")); err != nil {
		t.Fatalf("HandleStatus() error = %v", err)
	}

	got, err := h.devices.GetByID(ctx, "d1")
	if err != nil {
		t.Fatalf("GetByID() error = %v", err)
	}
	if got.Status != " Offline\n" {
		t.Errorf("Status = %q, want payload stored verbatim", got.Status)
	}
	if got.Name != "Kitchen" || fmt.Sprint(got.Commands) != "[reboot led_on]" {
		t.Errorf("registration fields changed: %+v", got)
	}

	evs := h.emitter.all()
	last := evs[len(evs)-1]
	if last.Type != events.TypeDeviceStatusChanged || last.Status != " Offline\n" {
		t.Errorf("last event = %+v", last)
	}
}

func TestStatus_EmptyPayloadStored(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()

	if err := h.rec.HandleRegistration(ctx, "config", []byte(registrationD1)); err != nil {
		t.Fatalf("HandleRegistration() error = %v", err)
	}
	later := testNow.Add(time.Minute)
	h.rec.now = func() time.Time { return later }

	if err := h.rec.HandleStatus(ctx, "devices/d1/status", nil); err != nil {
		t.Fatalf("HandleStatus() error = %v", err)
	}

	got, err := h.devices.GetByID(ctx, "d1")
	if err != nil {
		t.Fatalf("GetByID() error = %v", err)
	}
	if got.Status != "" {
		t.Errorf("Status = %q, want empty", got.Status)
	}
	if !got.LastSeen.Equal(later) {
		t.Errorf("LastSeen = %v, want %v", got.LastSeen, later)
	}
}

func TestStatus_UnknownDeviceIsNoop(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()

	err := h.rec.HandleStatus(ctx, "devices/ghost/status", []byte("Online"))
	if !errors.Is(err, ErrUnknownDevice) {
		t.Errorf("HandleStatus() error = %v, want ErrUnknownDevice", err)
	}
	if _, err := h.devices.GetByID(ctx, "ghost"); !errors.Is(err, device.ErrDeviceNotFound) {
		t.Errorf("GetByID() error = %v, want ErrDeviceNotFound", err)
	}
	if len(h.emitter.all()) != 0 {
		t.Error("event emitted for unknown device")
	}
}

func TestStatus_Malformed(t *testing.T) {
	long := make([]byte, maxStatusLength+1)
	for i := range long {
		long[i] = 'x'
	}

	tests := []struct {
		name    string
		topic   string
		payload []byte
		wantErr error
	}{
		{"oversized payload", "devices/d1/status", long, ErrMalformedPayload},
		{"empty device id", "devices//status", []byte("Online"), ErrMalformedTopic},
		{"short topic", "devices/d1", []byte("Online"), ErrMalformedTopic},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h := newHarness(t)
			err := h.rec.HandleStatus(context.Background(), tt.topic, tt.payload)
			if !errors.Is(err, tt.wantErr) {
				t.Errorf("HandleStatus() error = %v, want %v", err, tt.wantErr)
			}
		})
	}
}

// =============================================================================
// Telemetry
// =============================================================================

func TestReading_Appends(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()

	payload := []byte(`{"device_id":"d1","data_type":"temp","value":21.5}`)
	for i := 0; i < 2; i++ {
		if err := h.tel.HandleReading(ctx, "data/temp", payload); err != nil {
			t.Fatalf("HandleReading() error = %v", err)
		}
	}

	got, err := h.readings.Query(ctx, telemetry.Query{DeviceID: "d1", Since: testNow.Add(-time.Hour), Limit: 10})
	if err != nil {
		t.Fatalf("Query() error = %v", err)
	}
	if len(got) != 2 {
		t.Fatalf("Query() = %d readings, want 2 (no deduplication)", len(got))
	}
	if got[0].Value != 21.5 || got[0].DataType != "temp" || !got[0].Timestamp.Equal(testNow) {
		t.Errorf("reading = %+v", got[0])
	}

	evs := h.emitter.all()
	if len(evs) != 2 || evs[0].Type != events.TypeReadingRecorded || evs[0].Reading == nil {
		t.Errorf("events = %+v", evs)
	}
}

func TestReading_UnregisteredDeviceAccepted(t *testing.T) {
	h := newHarness(t)
	payload := []byte(`{"device_id":"stranger","data_type":"co2","value":"415"}`)

	if err := h.tel.HandleReading(context.Background(), "data/co2", payload); err != nil {
		t.Fatalf("HandleReading() error = %v", err)
	}
	if _, err := h.devices.GetByID(context.Background(), "stranger"); !errors.Is(err, device.ErrDeviceNotFound) {
		t.Error("reading created a registry row")
	}
}

func TestReading_Malformed(t *testing.T) {
	tests := []struct {
		name    string
		payload string
	}{
		{"not json", `21.5`},
		{"missing device_id", `{"data_type":"temp","value":1}`},
		{"missing data_type", `{"device_id":"d1","value":1}`},
		{"missing value", `{"device_id":"d1","data_type":"temp"}`},
		{"null value", `{"device_id":"d1","data_type":"temp","value":null}`},
		{"text value", `{"device_id":"d1","data_type":"temp","value":"warm"}`},
		{"nan value", `{"device_id":"d1","data_type":"temp","value":"NaN"}`},
		{"object value", `{"device_id":"d1","data_type":"temp","value":{"v":1}}`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h := newHarness(t)
			err := h.tel.HandleReading(context.Background(), "data/temp", []byte(tt.payload))
			if !errors.Is(err, ErrMalformedPayload) {
				t.Errorf("HandleReading() error = %v, want ErrMalformedPayload", err)
			}
		})
	}
}

func TestParseValue(t *testing.T) {
	tests := []struct {
		raw  string
		want float64
	}{
		{`21.5`, 21.5},
		{`-3`, -3},
		{`"  7.25 "`, 7.25},
		{`1e3`, 1000},
	}
	for _, tt := range tests {
		got, err := parseValue([]byte(tt.raw))
		if err != nil || got != tt.want {
			t.Errorf("parseValue(%s) = %v, %v; want %v", tt.raw, got, err, tt.want)
		}
	}
}

// =============================================================================
// End to end through the router
// =============================================================================

func TestRouter_EndToEnd(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()

	h.router.Dispatch(ctx, "config", []byte(registrationD1))
	h.router.Dispatch(ctx, "data/temp", []byte(`{"device_id":"d1","data_type":"temp","value":21.5}`))
	h.router.Dispatch(ctx, "devices/d1/status", []byte("Offline"))
	h.router.Dispatch(ctx, "devices/d1/command", []byte("ignored"))

	got, err := h.devices.GetByID(ctx, "d1")
	if err != nil {
		t.Fatalf("GetByID() error = %v", err)
	}
	if got.Status != device.StatusOffline {
		t.Errorf("Status = %q, want Offline", got.Status)
	}

	readings, err := h.readings.Query(ctx, telemetry.Query{DeviceID: "d1", Since: testNow.Add(-time.Hour), Limit: 10})
	if err != nil || len(readings) != 1 {
		t.Errorf("Query() = %v, %v; want one reading", readings, err)
	}
}

func TestRouter_ConcurrentMessages(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()

	const n = 20
	var wg sync.WaitGroup
	for i := 0; i < n; i++ {
		wg.Add(2)
		go func(i int) {
			defer wg.Done()
			payload := fmt.Sprintf(`{"device_id":"d%d","device_name":"dev-%d"}`, i%5, i)
			h.router.Dispatch(ctx, "config", []byte(payload))
		}(i)
		go func(i int) {
			defer wg.Done()
			payload := fmt.Sprintf(`{"device_id":"d1","data_type":"temp","value":%d}`, i)
			h.router.Dispatch(ctx, "data/temp", []byte(payload))
		}(i)
	}
	wg.Wait()

	all, err := h.devices.List(ctx)
	if err != nil {
		t.Fatalf("List() error = %v", err)
	}
	if len(all) != 5 {
		t.Errorf("List() = %d devices, want 5 (one row per device_id)", len(all))
	}
	if len(h.acker.acks()) != n {
		t.Errorf("acks = %d, want %d", len(h.acker.acks()), n)
	}

	readings, err := h.readings.Query(ctx, telemetry.Query{DeviceID: "d1", Since: testNow.Add(-time.Hour), Limit: 100})
	if err != nil {
		t.Fatalf("Query() error = %v", err)
	}
	if len(readings) != n {
		t.Errorf("Query() = %d readings, want %d", len(readings), n)
	}
}
