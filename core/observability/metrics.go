package observability

import (
	"context"
	"fmt"
	"sync"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/exporters/otlp/otlpmetric/otlpmetricgrpc"
	"go.opentelemetry.io/otel/metric"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/resource"
	semconv "go.opentelemetry.io/otel/semconv/v1.26.0"
)

type metrics struct {
	clientCallsTotal   metric.Int64Counter
	clientCallDuration metric.Float64Histogram
	jobsTotal          metric.Int64Counter
	jobDuration        metric.Float64Histogram
	resultRowsTotal    metric.Int64Counter
}

var (
	metricsOnce sync.Once
	m           metrics
)

func buildMeterProvider(ctx context.Context, cfg Config) (*sdkmetric.MeterProvider, error) {
	if !cfg.MetricsEnabled() {
		return sdkmetric.NewMeterProvider(), nil
	}

	exporter, err := otlpmetricgrpc.New(
		ctx,
		otlpmetricgrpc.WithEndpoint(cfg.Endpoint),
		otlpmetricgrpc.WithInsecure(),
	)
	if err != nil {
		return nil, fmt.Errorf("create otlp metric exporter: %w", err)
	}

	res, err := newResource(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("create metric resource: %w", err)
	}

	return sdkmetric.NewMeterProvider(
		sdkmetric.WithResource(res),
		sdkmetric.WithReader(sdkmetric.NewPeriodicReader(exporter)),
	), nil
}

func newResource(ctx context.Context, cfg Config) (*resource.Resource, error) {
	return resource.New(
		ctx,
		resource.WithAttributes(
			semconv.ServiceName(cfg.ServiceName),
			semconv.ServiceVersion(cfg.ServiceVersion),
			attribute.String("deployment.environment.name", cfg.Environment), // semconv v1.34.0 DeploymentEnvironmentName
		),
	)
}

// Instruments are created lazily from the global meter provider, so calls
// made before Setup go to the no-op provider.
func initInstruments() {
	metricsOnce.Do(func() {
		meter := otel.Meter("semlayer")
		m.clientCallsTotal, _ = meter.Int64Counter("semlayer.client.calls_total")
		m.clientCallDuration, _ = meter.Float64Histogram("semlayer.client.call_duration_ms")
		m.jobsTotal, _ = meter.Int64Counter("semlayer.scheduler.jobs_total")
		m.jobDuration, _ = meter.Float64Histogram("semlayer.scheduler.job_duration_ms")
		m.resultRowsTotal, _ = meter.Int64Counter("semlayer.results.rows_total")
	})
}

// RecordClientCall counts one semantic layer client call
func RecordClientCall(ctx context.Context, backend, operation string, err error, durationMS float64) {
	initInstruments()
	attrs := metric.WithAttributes(
		attribute.String(AttrBackend, backend),
		attribute.String(AttrOperation, operation),
		attribute.Bool("success", err == nil),
	)
	m.clientCallsTotal.Add(ctx, 1, attrs)
	m.clientCallDuration.Record(ctx, durationMS, attrs)
}

// RecordJob counts one finished scheduler job
func RecordJob(ctx context.Context, jobType, status string, durationMS float64) {
	initInstruments()
	attrs := metric.WithAttributes(
		attribute.String(AttrJobType, jobType),
		attribute.String(AttrJobStatus, status),
	)
	m.jobsTotal.Add(ctx, 1, attrs)
	m.jobDuration.Record(ctx, durationMS, attrs)
}

// RecordResultRows counts rows streamed into results files
func RecordResultRows(ctx context.Context, backend string, rows int) {
	initInstruments()
	m.resultRowsTotal.Add(ctx, int64(rows), metric.WithAttributes(attribute.String(AttrBackend, backend)))
}
