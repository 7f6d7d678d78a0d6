// Package telemetry configures the OpenTelemetry tracer used by every span
// in the service.
package telemetry

import (
	"context"
	"fmt"

	"github.com/Ramsey-B/stem/pkg/tracing"
	"github.com/Ramsey-B/stem/pkg/tracing/exporters"
	"go.opentelemetry.io/otel"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"

	"github.com/Ramsey-B/sorrel/config"
)

// Init builds the tracer provider and installs the tracer globally. The
// returned shutdown function flushes pending spans and must be called on
// service exit. When tracing is disabled the provider never exports.
func Init(ctx context.Context, cfg config.Config) (func(context.Context) error, error) {
	if !cfg.TracingEnabled {
		provider := sdktrace.NewTracerProvider()
		otel.SetTracerProvider(provider)
		tracing.SetTracer(provider.Tracer(cfg.AppName))
		return provider.Shutdown, nil
	}

	exporter, err := exporters.NewOTLPExporter(ctx, exporters.OTLPConfig{
		Endpoint: cfg.TracingOTLPEndpoint,
		Protocol: cfg.TracingOTLPProtocol,
		Insecure: cfg.TracingOTLPInsecure,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create OTLP exporter: %w", err)
	}

	provider := sdktrace.NewTracerProvider(
		sdktrace.WithBatcher(exporter),
	)
	otel.SetTracerProvider(provider)
	tracing.SetTracer(provider.Tracer(cfg.AppName))

	return provider.Shutdown, nil
}
