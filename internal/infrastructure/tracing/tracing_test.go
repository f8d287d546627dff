package tracing

import (
	"context"
	"testing"

	"github.com/sensorhub/sensorhub-core/internal/infrastructure/config"
)

func TestInit_Disabled(t *testing.T) {
	cleanup, err := Init(context.Background(), config.TracingConfig{}, "test")
	if err != nil {
		t.Fatalf("Init() error = %v", err)
	}
	if err := cleanup(context.Background()); err != nil {
		t.Errorf("cleanup() error = %v", err)
	}
}

func TestInit_Enabled(t *testing.T) {
	// The exporter connects lazily, so an unreachable collector is fine here.
	cleanup, err := Init(context.Background(), config.TracingConfig{
		Enabled:  true,
		Endpoint: "http://127.0.0.1:4318",
	}, "test")
	if err != nil {
		t.Fatalf("Init() error = %v", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_ = cleanup(ctx)
}

func TestNewResource(t *testing.T) {
	res := newResource("1.2.3")
	var name, version string
	for _, kv := range res.Attributes() {
		switch kv.Key {
		case "service.name":
			name = kv.Value.AsString()
		case "service.version":
			version = kv.Value.AsString()
		}
	}
	if name != ServiceName || version != "1.2.3" {
		t.Errorf("resource = %s/%s", name, version)
	}
}
