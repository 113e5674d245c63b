package otel

import (
	"context"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

const meterName = "pane-conductor"

// Metrics holds all OTEL metric instruments for pane-conductor.
// All counters are cumulative (monotonic) and safe for concurrent use.
type Metrics struct {
	// Dispatch counters (partitioned by role + mode via attributes)
	Dispatches      metric.Int64Counter
	DispatchErrors  metric.Int64Counter
	DispatchLatency metric.Float64Histogram

	// Completion counters (partitioned by strategy: signal, poll)
	Waits        metric.Int64Counter
	WaitTimeouts metric.Int64Counter
	WaitLatency  metric.Float64Histogram

	// Capture counters
	Captures      metric.Int64Counter
	CapturedLines metric.Int64Counter
}

// NewMetrics creates all metric instruments. Returns no-op instruments
// when no MeterProvider is registered (safe to call unconditionally).
func NewMetrics() (*Metrics, error) {
	meter := otel.Meter(meterName)
	m := &Metrics{}
	var err error

	m.Dispatches, err = meter.Int64Counter("dispatch.total",
		metric.WithDescription("Commands dispatched to panes, partitioned by role and mode"))
	if err != nil {
		return nil, err
	}

	m.DispatchErrors, err = meter.Int64Counter("dispatch.errors",
		metric.WithDescription("Dispatches that failed before reaching the pane"))
	if err != nil {
		return nil, err
	}

	m.DispatchLatency, err = meter.Float64Histogram("dispatch.duration",
		metric.WithDescription("Time from lock acquisition to submitted input"),
		metric.WithUnit("s"))
	if err != nil {
		return nil, err
	}

	m.Waits, err = meter.Int64Counter("wait.total",
		metric.WithDescription("Completion waits, partitioned by strategy (signal, poll)"))
	if err != nil {
		return nil, err
	}

	m.WaitTimeouts, err = meter.Int64Counter("wait.timeouts",
		metric.WithDescription("Waits that hit their bound (signal timeout or poll exhaustion)"))
	if err != nil {
		return nil, err
	}

	m.WaitLatency, err = meter.Float64Histogram("wait.duration",
		metric.WithDescription("Time from dispatch to detected completion"),
		metric.WithUnit("s"))
	if err != nil {
		return nil, err
	}

	m.Captures, err = meter.Int64Counter("capture.total",
		metric.WithDescription("Pane output captures"))
	if err != nil {
		return nil, err
	}

	m.CapturedLines, err = meter.Int64Counter("capture.lines",
		metric.WithDescription("Lines returned by pane output captures"),
		metric.WithUnit("{line}"))
	if err != nil {
		return nil, err
	}

	return m, nil
}

// RecordDispatch records one dispatch attempt and its latency.
func (m *Metrics) RecordDispatch(ctx context.Context, role, mode string, d time.Duration, err error) {
	if m == nil {
		return
	}
	attrs := metric.WithAttributes(
		attribute.String("task.role", role),
		attribute.String("payload.mode", mode),
	)
	m.Dispatches.Add(ctx, 1, attrs)
	if err != nil {
		m.DispatchErrors.Add(ctx, 1, attrs)
		return
	}
	m.DispatchLatency.Record(ctx, d.Seconds(), attrs)
}

// RecordWait records one completion wait with the given strategy.
func (m *Metrics) RecordWait(ctx context.Context, strategy string, d time.Duration, timedOut bool) {
	if m == nil {
		return
	}
	attrs := metric.WithAttributes(attribute.String("wait.strategy", strategy))
	m.Waits.Add(ctx, 1, attrs)
	if timedOut {
		m.WaitTimeouts.Add(ctx, 1, attrs)
		return
	}
	m.WaitLatency.Record(ctx, d.Seconds(), attrs)
}

// RecordCapture records one pane capture and how many lines it returned.
func (m *Metrics) RecordCapture(ctx context.Context, lines int) {
	if m == nil {
		return
	}
	m.Captures.Add(ctx, 1)
	m.CapturedLines.Add(ctx, int64(lines))
}
