// Package tracing configures the OpenTelemetry tracer provider.
//
// When tracing is disabled the global provider is left as the otel no-op
// default, so instrumented code (the HTTP router) costs nothing.
package tracing

import (
	"context"
	"fmt"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/exporters/otlp/otlptrace"
	"go.opentelemetry.io/otel/exporters/otlp/otlptrace/otlptracehttp"
	"go.opentelemetry.io/otel/propagation"
	"go.opentelemetry.io/otel/sdk/resource"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	semconv "go.opentelemetry.io/otel/semconv/v1.26.0"

	"github.com/sensorhub/sensorhub-core/internal/infrastructure/config"
)

// ServiceName is the otel service.name of this binary.
const ServiceName = "sensorhub"

// CleanupFunc flushes and stops the tracer provider.
type CleanupFunc func(ctx context.Context) error

// Init installs an OTLP/HTTP tracer provider when cfg.Enabled is set.
//
// An empty cfg.Endpoint defers to the OTEL_EXPORTER_OTLP_* environment
// variables read by the exporter itself.
//
// Returns:
//   - CleanupFunc: Always non-nil; a no-op when tracing is disabled
//   - error: If the exporter cannot be created
func Init(ctx context.Context, cfg config.TracingConfig, version string) (CleanupFunc, error) {
	noop := func(context.Context) error { return nil }
	if !cfg.Enabled {
		return noop, nil
	}

	var opts []otlptracehttp.Option
	if cfg.Endpoint != "" {
		opts = append(opts, otlptracehttp.WithEndpointURL(cfg.Endpoint))
	}

	exporter, err := otlptrace.New(ctx, otlptracehttp.NewClient(opts...))
	if err != nil {
		return noop, fmt.Errorf("creating OTLP trace exporter: %w", err)
	}

	provider := sdktrace.NewTracerProvider(
		sdktrace.WithBatcher(exporter),
		sdktrace.WithResource(newResource(version)),
	)
	otel.SetTracerProvider(provider)
	otel.SetTextMapPropagator(propagation.NewCompositeTextMapPropagator(
		propagation.TraceContext{},
		propagation.Baggage{},
	))

	return func(ctx context.Context) error {
		if err := provider.Shutdown(ctx); err != nil {
			return fmt.Errorf("stopping tracer provider: %w", err)
		}
		return nil
	}, nil
}

// newResource describes this service.
func newResource(version string) *resource.Resource {
	return resource.NewWithAttributes(
		semconv.SchemaURL,
		semconv.ServiceName(ServiceName),
		semconv.ServiceVersion(version),
	)
}
