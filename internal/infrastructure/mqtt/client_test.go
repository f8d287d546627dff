package mqtt

import (
	"context"
	"encoding/json"
	"errors"
	"strings"
	"sync"
	"testing"

	"github.com/sensorhub/sensorhub-core/internal/infrastructure/config"
)

// testConfig returns a valid MQTT configuration for testing.
func testConfig() config.MQTTConfig {
	return config.MQTTConfig{
		Broker: config.MQTTBrokerConfig{
			Host:     "127.0.0.1",
			Port:     1883,
			ClientID: "sensorhub-test",
		},
		QoS: 1,
		Reconnect: config.MQTTReconnectConfig{
			InitialDelay: 1,
			MaxDelay:     5,
		},
	}
}

// newDisconnectedClient returns a client that never reached a broker.
func newDisconnectedClient() *Client {
	return &Client{cfg: testConfig(), subscriptions: make(map[string]subscription)}
}

// mockLogger implements Logger for testing.
type mockLogger struct {
	mu     sync.Mutex
	infos  []string
	warns  []string
	errors []string
}

func (l *mockLogger) Info(msg string, _ ...any) {
	l.mu.Lock()
	l.infos = append(l.infos, msg)
	l.mu.Unlock()
}

func (l *mockLogger) Warn(msg string, _ ...any) {
	l.mu.Lock()
	l.warns = append(l.warns, msg)
	l.mu.Unlock()
}

func (l *mockLogger) Error(msg string, _ ...any) {
	l.mu.Lock()
	l.errors = append(l.errors, msg)
	l.mu.Unlock()
}

// =============================================================================
// Topic Tests
// =============================================================================

func TestTopicBuilders(t *testing.T) {
	topics := Topics{}

	tests := []struct {
		name string
		got  string
		want string
	}{
		{"DeviceCommand", topics.DeviceCommand("d1"), "devices/d1/command"},
		{"DeviceStatus", topics.DeviceStatus("d1"), "devices/d1/status"},
		{"Telemetry", topics.Telemetry("temp"), "data/temp"},
		{"SystemStatus", topics.SystemStatus(), "sensorhub/system/status"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if tt.got != tt.want {
				t.Errorf("got %q, want %q", tt.got, tt.want)
			}
		})
	}
}

func TestIsTopicSegment(t *testing.T) {
	tests := []struct {
		in   string
		want bool
	}{
		{"d1", true},
		{"esp32-kitchen_01", true},
		{"", false},
		{"a/b", false},
		{"+", false},
		{"dev#", false},
	}
	for _, tt := range tests {
		if got := IsTopicSegment(tt.in); got != tt.want {
			t.Errorf("IsTopicSegment(%q) = %v, want %v", tt.in, got, tt.want)
		}
	}
}

// =============================================================================
// Option Tests
// =============================================================================

func TestBuildClientOptions(t *testing.T) {
	cfg := testConfig()
	cfg.Auth.Username = "hub"
	cfg.Auth.Password = "secret"

	opts := buildClientOptions(cfg)

	if len(opts.Servers) != 1 || opts.Servers[0].String() != "tcp://127.0.0.1:1883" {
		t.Errorf("Servers = %v, want [tcp://127.0.0.1:1883]", opts.Servers)
	}
	if opts.ClientID != "sensorhub-test" {
		t.Errorf("ClientID = %q, want sensorhub-test", opts.ClientID)
	}
	if opts.Username != "hub" || opts.Password != "secret" {
		t.Errorf("credentials = %q/%q, want hub/secret", opts.Username, opts.Password)
	}
	if opts.Order {
		t.Error("Order = true, want unordered delivery")
	}
	if !opts.AutoReconnect {
		t.Error("AutoReconnect = false, want true")
	}
}

func TestBuildClientOptions_TLS(t *testing.T) {
	cfg := testConfig()
	cfg.Broker.TLS = true
	cfg.Broker.Port = 8883

	opts := buildClientOptions(cfg)

	if opts.Servers[0].String() != "ssl://127.0.0.1:8883" {
		t.Errorf("Servers[0] = %v, want ssl://127.0.0.1:8883", opts.Servers[0])
	}
	if opts.TLSConfig == nil || opts.TLSConfig.MinVersion != tlsMinVersion {
		t.Error("TLSConfig not configured with minimum version")
	}
}

func TestConfigureLWT(t *testing.T) {
	opts := buildClientOptions(testConfig())
	configureLWT(opts, "sensorhub-test")

	if !opts.WillEnabled {
		t.Fatal("WillEnabled = false")
	}
	if opts.WillTopic != "sensorhub/system/status" {
		t.Errorf("WillTopic = %q", opts.WillTopic)
	}
	if !opts.WillRetained {
		t.Error("WillRetained = false, want true")
	}

	var p presence
	if err := json.Unmarshal(opts.WillPayload, &p); err != nil {
		t.Fatalf("will payload is not JSON: %v", err)
	}
	if p.Status != presenceOffline || p.Reason != "unexpected_disconnect" {
		t.Errorf("will = %+v, want offline/unexpected_disconnect", p)
	}
}

func TestPresencePayload(t *testing.T) {
	var p presence
	if err := json.Unmarshal([]byte(presencePayload("hub-1", presenceOnline, "")), &p); err != nil {
		t.Fatalf("Unmarshal() error = %v", err)
	}
	if p.Status != "online" || p.ClientID != "hub-1" || p.Timestamp == "" {
		t.Errorf("presence = %+v", p)
	}
	if strings.Contains(presencePayload("hub-1", presenceOnline, ""), "reason") {
		t.Error("empty reason should be omitted")
	}
}

// =============================================================================
// Validation Tests (no broker required)
// =============================================================================

func TestPublish_Validation(t *testing.T) {
	c := newDisconnectedClient()

	tests := []struct {
		name    string
		topic   string
		payload []byte
		qos     byte
		wantErr error
	}{
		{"empty topic", "", []byte("x"), 1, ErrInvalidTopic},
		{"invalid qos", "devices/d1/command", []byte("x"), 3, ErrInvalidQoS},
		{"payload too large", "devices/d1/command", make([]byte, maxPayloadSize+1), 1, ErrPayloadTooLarge},
		{"not connected", "devices/d1/command", []byte("on"), 1, ErrNotConnected},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := c.Publish(tt.topic, tt.payload, tt.qos, false)
			if !errors.Is(err, tt.wantErr) {
				t.Errorf("Publish() error = %v, want %v", err, tt.wantErr)
			}
		})
	}
}

func TestSubscribe_Validation(t *testing.T) {
	c := newDisconnectedClient()
	noop := func(string, []byte) error { return nil }

	if err := c.Subscribe("", 1, noop); !errors.Is(err, ErrInvalidTopic) {
		t.Errorf("empty topic: error = %v, want ErrInvalidTopic", err)
	}
	if err := c.Subscribe("config", 3, noop); !errors.Is(err, ErrInvalidQoS) {
		t.Errorf("bad qos: error = %v, want ErrInvalidQoS", err)
	}
	if err := c.Subscribe("config", 1, nil); !errors.Is(err, ErrSubscribeFailed) {
		t.Errorf("nil handler: error = %v, want ErrSubscribeFailed", err)
	}
	if err := c.Subscribe("config", 1, noop); !errors.Is(err, ErrNotConnected) {
		t.Errorf("disconnected: error = %v, want ErrNotConnected", err)
	}
	if c.SubscriptionCount() != 0 {
		t.Error("failed Subscribe must not be tracked")
	}
}

func TestUnsubscribe_Validation(t *testing.T) {
	c := newDisconnectedClient()

	if err := c.Unsubscribe(""); !errors.Is(err, ErrInvalidTopic) {
		t.Errorf("empty topic: error = %v, want ErrInvalidTopic", err)
	}
	if err := c.Unsubscribe("config"); !errors.Is(err, ErrNotConnected) {
		t.Errorf("disconnected: error = %v, want ErrNotConnected", err)
	}
}

func TestHealthCheck_Disconnected(t *testing.T) {
	c := newDisconnectedClient()

	if err := c.HealthCheck(context.Background()); !errors.Is(err, ErrNotConnected) {
		t.Errorf("HealthCheck() error = %v, want ErrNotConnected", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if err := c.HealthCheck(ctx); !errors.Is(err, context.Canceled) {
		t.Errorf("HealthCheck(cancelled) error = %v, want context.Canceled", err)
	}
}

func TestClose_NeverConnected(t *testing.T) {
	var nilClient *Client
	if err := nilClient.Close(); err != nil {
		t.Errorf("nil Close() error = %v", err)
	}
	if err := newDisconnectedClient().Close(); err != nil {
		t.Errorf("Close() error = %v", err)
	}
}

// =============================================================================
// Handler Wrapping Tests
// =============================================================================

func TestDeliver_LogsHandlerError(t *testing.T) {
	c := newDisconnectedClient()
	logger := &mockLogger{}
	c.SetLogger(logger)

	c.deliver(func(string, []byte) error { return errors.New("boom") }, "config", []byte("{}"))

	if len(logger.warns) != 1 {
		t.Errorf("warns = %v, want one entry", logger.warns)
	}
}

func TestDeliver_RecoversPanic(t *testing.T) {
	c := newDisconnectedClient()
	logger := &mockLogger{}
	c.SetLogger(logger)

	c.deliver(func(string, []byte) error { panic("bad payload") }, "data/temp", nil)

	if len(logger.errors) != 1 {
		t.Errorf("errors = %v, want one panic entry", logger.errors)
	}
}

func TestDeliver_NoLogger(t *testing.T) {
	c := newDisconnectedClient()
	// Must not panic without a logger.
	c.deliver(func(string, []byte) error { panic("x") }, "config", nil)
	c.deliver(func(string, []byte) error { return errors.New("x") }, "config", nil)
}
