package orchestrator

import (
	"context"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/metric/noop"
	"go.opentelemetry.io/otel/trace"
)

const instrumentationName = "github.com/ShayCichocki/surge/internal/orchestrator"

// Span names.
const (
	spanRun     = "surge.run"
	spanWave    = "surge.wave"
	spanAttempt = "surge.attempt"
)

// telemetry holds the tracer and metric instruments. Both come from the
// global providers and are no-ops unless the host installs SDK providers.
type telemetry struct {
	tracer          trace.Tracer
	attempts        metric.Int64Counter
	outcomes        metric.Int64Counter
	attemptDuration metric.Float64Histogram
	concurrency     metric.Int64Histogram
}

func newTelemetry() *telemetry {
	t := &telemetry{tracer: otel.Tracer(instrumentationName)}
	if err := t.instruments(otel.Meter(instrumentationName)); err != nil {
		otel.Handle(err)
		_ = t.instruments(noop.NewMeterProvider().Meter(instrumentationName))
	}
	return t
}

func (t *telemetry) instruments(meter metric.Meter) error {
	var err error
	if t.attempts, err = meter.Int64Counter("surge.task.attempts",
		metric.WithDescription("Task attempts dispatched"),
	); err != nil {
		return err
	}
	if t.outcomes, err = meter.Int64Counter("surge.task.outcomes",
		metric.WithDescription("Terminal task outcomes by status"),
	); err != nil {
		return err
	}
	if t.attemptDuration, err = meter.Float64Histogram("surge.attempt.duration",
		metric.WithDescription("Duration of task attempts in seconds"),
		metric.WithUnit("s"),
	); err != nil {
		return err
	}
	if t.concurrency, err = meter.Int64Histogram("surge.wave.concurrency",
		metric.WithDescription("Concurrency chosen per wave"),
	); err != nil {
		return err
	}
	return nil
}

func (t *telemetry) recordAttempt(ctx context.Context, class, status string, d time.Duration) {
	attrs := metric.WithAttributes(
		attribute.String("resource_class", class),
		attribute.String("status", status),
	)
	t.attempts.Add(ctx, 1, attrs)
	t.attemptDuration.Record(ctx, d.Seconds(), attrs)
}

func (t *telemetry) recordOutcome(ctx context.Context, status string) {
	t.outcomes.Add(ctx, 1, metric.WithAttributes(attribute.String("status", status)))
}

func (t *telemetry) recordConcurrency(ctx context.Context, mode string, c int) {
	t.concurrency.Record(ctx, int64(c), metric.WithAttributes(attribute.String("mode", mode)))
}
