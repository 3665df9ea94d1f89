// Package observe wires OpenTelemetry traces and metrics for the extraction
// engine. Exporters are configured from the standard OTEL_* environment
// variables (OTEL_EXPORTER_OTLP_ENDPOINT and friends).
package observe

import (
	"context"
	"errors"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/exporters/otlp/otlpmetric/otlpmetrichttp"
	"go.opentelemetry.io/otel/exporters/otlp/otlptrace/otlptracehttp"
	"go.opentelemetry.io/otel/metric"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/resource"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	semconv "go.opentelemetry.io/otel/semconv/v1.26.0"
	"go.opentelemetry.io/otel/trace"
)

const scopeName = "github.com/dgallion1/eduparse"

// Instruments holds the tracer and meters used by the engine.
type Instruments struct {
	Tracer trace.Tracer

	Extractions     metric.Int64Counter
	ExtractDuration metric.Float64Histogram
	LookupFailures  metric.Int64Counter
}

// Init installs OTLP/HTTP trace and metric providers globally. The returned
// shutdown flushes both and must be called on exit.
func Init(ctx context.Context, serviceName string) (*Instruments, func(context.Context) error, error) {
	res, err := resource.New(ctx,
		resource.WithAttributes(semconv.ServiceName(serviceName)),
		resource.WithFromEnv(),
	)
	if err != nil {
		return nil, nil, err
	}

	traceExp, err := otlptracehttp.New(ctx)
	if err != nil {
		return nil, nil, err
	}
	tp := sdktrace.NewTracerProvider(
		sdktrace.WithBatcher(traceExp),
		sdktrace.WithResource(res),
	)
	otel.SetTracerProvider(tp)

	metricExp, err := otlpmetrichttp.New(ctx)
	if err != nil {
		_ = tp.Shutdown(ctx)
		return nil, nil, err
	}
	mp := sdkmetric.NewMeterProvider(
		sdkmetric.WithReader(sdkmetric.NewPeriodicReader(metricExp)),
		sdkmetric.WithResource(res),
	)
	otel.SetMeterProvider(mp)

	inst, err := New()
	if err != nil {
		_ = tp.Shutdown(ctx)
		_ = mp.Shutdown(ctx)
		return nil, nil, err
	}

	shutdown := func(ctx context.Context) error {
		return errors.Join(tp.Shutdown(ctx), mp.Shutdown(ctx))
	}
	return inst, shutdown, nil
}

// New builds Instruments against whatever providers are currently
// installed globally. Without Init these are no-ops.
func New() (*Instruments, error) {
	meter := otel.Meter(scopeName)

	extractions, err := meter.Int64Counter("extract.runs",
		metric.WithDescription("Extraction calls by kind, format and outcome"),
		metric.WithUnit("{run}"))
	if err != nil {
		return nil, err
	}

	extractDuration, err := meter.Float64Histogram("extract.duration",
		metric.WithDescription("Extraction latency"),
		metric.WithUnit("ms"))
	if err != nil {
		return nil, err
	}

	lookupFailures, err := meter.Int64Counter("lookup.failures",
		metric.WithDescription("Directory lookups that aborted a student extraction"),
		metric.WithUnit("{failure}"))
	if err != nil {
		return nil, err
	}

	return &Instruments{
		Tracer:          otel.Tracer(scopeName),
		Extractions:     extractions,
		ExtractDuration: extractDuration,
		LookupFailures:  lookupFailures,
	}, nil
}
