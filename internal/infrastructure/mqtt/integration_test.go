//go:build integration

package mqtt

import (
	"sync"
	"testing"
	"time"
)

// Integration tests require a running MQTT broker at 127.0.0.1:1883.
//
// Run with:
//   go test -tags=integration -v ./internal/infrastructure/mqtt/...

func TestIntegration_Connect(t *testing.T) {
	client, err := Connect(testConfig(), nil)
	if err != nil {
		t.Fatalf("Connect() error = %v", err)
	}
	defer client.Close()

	if !client.IsConnected() {
		t.Error("IsConnected() = false, want true")
	}
}

func TestIntegration_ConnectRefused(t *testing.T) {
	cfg := testConfig()
	cfg.Broker.Port = 19999

	if _, err := Connect(cfg, nil); err == nil {
		t.Fatal("Connect() expected error for unreachable broker")
	}
}

func TestIntegration_SubscriptionTracking(t *testing.T) {
	cfg := testConfig()
	cfg.Broker.ClientID = "sensorhub-int-sub-track"

	client, err := Connect(cfg, nil)
	if err != nil {
		t.Fatalf("Connect() error = %v", err)
	}
	defer client.Close()

	noop := func(string, []byte) error { return nil }
	for _, topic := range []string{TopicRegistration, TopicTelemetryFilter, TopicStatusFilter} {
		if err := client.Subscribe(topic, 1, noop); err != nil {
			t.Fatalf("Subscribe(%s) error = %v", topic, err)
		}
	}
	if client.SubscriptionCount() != 3 {
		t.Errorf("SubscriptionCount() = %d, want 3", client.SubscriptionCount())
	}

	if err := client.Unsubscribe(TopicTelemetryFilter); err != nil {
		t.Fatalf("Unsubscribe() error = %v", err)
	}
	if client.SubscriptionCount() != 2 {
		t.Errorf("SubscriptionCount() = %d after Unsubscribe, want 2", client.SubscriptionCount())
	}
}

func TestIntegration_WildcardRoundtrip(t *testing.T) {
	cfg := testConfig()

	cfg.Broker.ClientID = "sensorhub-int-pub"
	pub, err := Connect(cfg, nil)
	if err != nil {
		t.Fatalf("Connect() publisher error = %v", err)
	}
	defer pub.Close()

	cfg.Broker.ClientID = "sensorhub-int-sub"
	sub, err := Connect(cfg, nil)
	if err != nil {
		t.Fatalf("Connect() subscriber error = %v", err)
	}
	defer sub.Close()

	received := make(chan string, 1)
	var once sync.Once
	err = sub.Subscribe(TopicStatusFilter, 1, func(topic string, _ []byte) error {
		once.Do(func() { received <- topic })
		return nil
	})
	if err != nil {
		t.Fatalf("Subscribe() error = %v", err)
	}
	time.Sleep(100 * time.Millisecond)

	if err := pub.PublishString(Topics{}.DeviceStatus("int-dev"), "Online"); err != nil {
		t.Fatalf("PublishString() error = %v", err)
	}

	select {
	case topic := <-received:
		if topic != "devices/int-dev/status" {
			t.Errorf("topic = %q, want devices/int-dev/status", topic)
		}
	case <-time.After(5 * time.Second):
		t.Error("timeout waiting for message")
	}
}
