// Package observability wires OpenTelemetry tracing for the answer and
// indexing pipelines.
//
// Spans are exported over OTLP/HTTP to a local collector. Tracing is
// opt-in: with otel.enabled false (the default) the global tracer
// provider stays a no-op and instrumented code pays nothing beyond the
// span call overhead.
package observability

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/exporters/otlp/otlptrace/otlptracehttp"
	"go.opentelemetry.io/otel/sdk/resource"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	semconv "go.opentelemetry.io/otel/semconv/v1.34.0"

	"github.com/sabia-ai/sabia/internal/config"
)

const shutdownTimeout = 5 * time.Second

// DefaultEndpoint is the conventional local OTLP/HTTP collector address.
const DefaultEndpoint = "localhost:4318"

// Setup installs the global tracer provider per cfg and returns a
// shutdown function that flushes pending spans. The returned function is
// never nil and is safe to call when tracing is disabled.
//
// Call once during startup, before any goroutine creates spans.
func Setup(ctx context.Context, cfg config.OtelConfig, logger *slog.Logger) (func(), error) {
	if logger == nil {
		logger = slog.Default()
	}
	if !cfg.Enabled {
		return func() {}, nil
	}

	endpoint := cfg.Endpoint
	if endpoint == "" {
		endpoint = DefaultEndpoint
	}
	serviceName := cfg.ServiceName
	if serviceName == "" {
		serviceName = "sabia"
	}

	// The exporter talks to a collector on localhost; the collector owns
	// authentication and forwarding, so plain HTTP is fine here.
	exporter, err := otlptracehttp.New(ctx,
		otlptracehttp.WithEndpoint(endpoint),
		otlptracehttp.WithInsecure(),
	)
	if err != nil {
		return nil, fmt.Errorf("creating OTLP exporter: %w", err)
	}

	attrs := []attribute.KeyValue{semconv.ServiceName(serviceName)}
	if cfg.Environment != "" {
		attrs = append(attrs, semconv.DeploymentEnvironmentName(cfg.Environment))
	}

	provider := sdktrace.NewTracerProvider(
		sdktrace.WithBatcher(exporter),
		sdktrace.WithResource(resource.NewWithAttributes(semconv.SchemaURL, attrs...)),
	)
	otel.SetTracerProvider(provider)

	logger.Debug("tracing enabled", "endpoint", endpoint, "service", serviceName)

	return func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		if err := provider.Shutdown(shutdownCtx); err != nil {
			logger.Warn("shutting down tracer provider", "error", err)
		}
	}, nil
}
