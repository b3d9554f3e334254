package telemetry

import (
	"careerai/app/config"
	"context"
	"log/slog"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/exporters/otlp/otlptrace/otlptracehttp"
	"go.opentelemetry.io/otel/sdk/resource"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
)

// Shutdown flushes and releases tracing resources.
type Shutdown func(ctx context.Context) error

// Setup installs a global OTLP/HTTP tracer provider. Without an endpoint it
// leaves the no-op provider in place.
func Setup(ctx context.Context, cfg *config.Telemetry) (Shutdown, error) {
	if cfg.OTLPEndpoint == "" {
		slog.Debug("Tracing disabled")
		return func(context.Context) error { return nil }, nil
	}

	opts := []otlptracehttp.Option{otlptracehttp.WithEndpoint(cfg.OTLPEndpoint)}
	if cfg.Insecure {
		opts = append(opts, otlptracehttp.WithInsecure())
	}

	exporter, err := otlptracehttp.New(ctx, opts...)
	if err != nil {
		return nil, err
	}

	res := resource.NewSchemaless(attribute.String("service.name", cfg.ServiceName))

	tp := sdktrace.NewTracerProvider(
		sdktrace.WithSampler(sdktrace.AlwaysSample()),
		sdktrace.WithBatcher(exporter),
		sdktrace.WithResource(res),
	)
	otel.SetTracerProvider(tp)

	slog.Info("Tracing enabled", "endpoint", cfg.OTLPEndpoint)

	return tp.Shutdown, nil
}
