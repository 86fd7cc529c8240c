package observability

import (
	"context"
	"time"

	promclient "github.com/prometheus/client_golang/prometheus"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/exporters/prometheus"
	otelmetric "go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/sdk/metric"

	"credit-scoring/internal/common/logger"
)

// Observability records run-level measurements (batch runs, training runs,
// worker jobs) through OpenTelemetry, exported on the prometheus registry.
type Observability struct {
	meterProvider *metric.MeterProvider
	meter         otelmetric.Meter
	jobCounter    otelmetric.Int64Counter
	jobDuration   otelmetric.Float64Histogram
	batchDuration otelmetric.Float64Histogram
	batchRecords  otelmetric.Int64Counter
	trainDuration otelmetric.Float64Histogram
}

func New(serviceName string, log logger.Logger) *Observability {
	return NewWithRegisterer(serviceName, promclient.DefaultRegisterer, log)
}

// NewWithRegisterer is New with an explicit registry. A failing exporter
// yields a no-op Observability.
func NewWithRegisterer(serviceName string, reg promclient.Registerer, log logger.Logger) *Observability {
	exporter, err := prometheus.New(prometheus.WithRegisterer(reg))
	if err != nil {
		log.Warn("failed to create prometheus exporter", map[string]interface{}{"error": err})
		return &Observability{}
	}

	provider := metric.NewMeterProvider(metric.WithReader(exporter))
	otel.SetMeterProvider(provider)

	meter := provider.Meter(serviceName)

	jobCounter, _ := meter.Int64Counter(
		"jobs.processed",
		otelmetric.WithDescription("Number of jobs processed"),
	)
	jobDuration, _ := meter.Float64Histogram(
		"jobs.duration",
		otelmetric.WithDescription("Job processing duration"),
		otelmetric.WithUnit("ms"),
	)
	batchDuration, _ := meter.Float64Histogram(
		"batch.run.duration",
		otelmetric.WithDescription("Batch scoring run duration"),
		otelmetric.WithUnit("ms"),
	)
	batchRecords, _ := meter.Int64Counter(
		"batch.records",
		otelmetric.WithDescription("Records scored by batch runs"),
	)
	trainDuration, _ := meter.Float64Histogram(
		"training.run.duration",
		otelmetric.WithDescription("Training pipeline duration"),
		otelmetric.WithUnit("ms"),
	)

	return &Observability{
		meterProvider: provider,
		meter:         meter,
		jobCounter:    jobCounter,
		jobDuration:   jobDuration,
		batchDuration: batchDuration,
		batchRecords:  batchRecords,
		trainDuration: trainDuration,
	}
}

// Noop returns an Observability that records nothing.
func Noop() *Observability {
	return &Observability{}
}

func (o *Observability) RecordJobProcessed(ctx context.Context, status string) {
	if o == nil || o.jobCounter == nil {
		return
	}
	o.jobCounter.Add(ctx, 1, otelmetric.WithAttributes(
		attribute.String("status", status),
	))
}

func (o *Observability) RecordJobDuration(ctx context.Context, duration time.Duration, status string) {
	if o == nil || o.jobDuration == nil {
		return
	}
	o.jobDuration.Record(ctx, float64(duration.Milliseconds()), otelmetric.WithAttributes(
		attribute.String("status", status),
	))
}

func (o *Observability) RecordBatchRun(ctx context.Context, duration time.Duration, processed, approved int, status string) {
	if o == nil || o.batchDuration == nil {
		return
	}
	attrs := otelmetric.WithAttributes(attribute.String("status", status))
	o.batchDuration.Record(ctx, float64(duration.Milliseconds()), attrs)
	o.batchRecords.Add(ctx, int64(approved), otelmetric.WithAttributes(attribute.String("decision", "approved")))
	o.batchRecords.Add(ctx, int64(processed-approved), otelmetric.WithAttributes(attribute.String("decision", "rejected")))
}

func (o *Observability) RecordTrainingRun(ctx context.Context, duration time.Duration, modelType string) {
	if o == nil || o.trainDuration == nil {
		return
	}
	o.trainDuration.Record(ctx, float64(duration.Milliseconds()), otelmetric.WithAttributes(
		attribute.String("model_type", modelType),
	))
}

func (o *Observability) Shutdown() {
	if o == nil || o.meterProvider == nil {
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	_ = o.meterProvider.Shutdown(ctx)
}
