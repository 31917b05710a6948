package orchestrator

import (
	"context"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
	"go.uber.org/zap"
)

const instrumentationName = "github.com/fyrsmithlabs/answerd/internal/orchestrator"

// Metrics holds the pipeline's OTel instruments. With no SDK installed the
// instruments are no-ops, so recording is always safe.
type Metrics struct {
	meter      metric.Meter
	logger     *zap.Logger
	turnsTotal metric.Int64Counter
	turnDur    metric.Float64Histogram
	stageDur   metric.Float64Histogram
	stageErrs  metric.Int64Counter
}

// NewMetrics creates the orchestrator instruments.
func NewMetrics(logger *zap.Logger) *Metrics {
	if logger == nil {
		logger = zap.NewNop()
	}

	m := &Metrics{
		meter:  otel.Meter(instrumentationName),
		logger: logger,
	}
	m.init()
	return m
}

func (m *Metrics) init() {
	var err error

	m.turnsTotal, err = m.meter.Int64Counter(
		"answerd.turns_total",
		metric.WithDescription("Completed turns labeled by outcome (answered, error, step_limit, canceled)."),
		metric.WithUnit("{turn}"),
	)
	if err != nil {
		m.logger.Warn("failed to create turns counter", zap.Error(err))
	}

	m.turnDur, err = m.meter.Float64Histogram(
		"answerd.turn_duration_seconds",
		metric.WithDescription("End-to-end turn duration in seconds, labeled by outcome."),
		metric.WithUnit("s"),
		metric.WithExplicitBucketBoundaries(0.1, 0.25, 0.5, 1, 2.5, 5, 10, 30, 60, 120),
	)
	if err != nil {
		m.logger.Warn("failed to create turn duration histogram", zap.Error(err))
	}

	m.stageDur, err = m.meter.Float64Histogram(
		"answerd.stage_duration_seconds",
		metric.WithDescription("Per-stage duration in seconds, labeled by state."),
		metric.WithUnit("s"),
		metric.WithExplicitBucketBoundaries(0.01, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10, 30),
	)
	if err != nil {
		m.logger.Warn("failed to create stage duration histogram", zap.Error(err))
	}

	m.stageErrs, err = m.meter.Int64Counter(
		"answerd.stage_errors_total",
		metric.WithDescription("Stage failures labeled by state."),
		metric.WithUnit("{error}"),
	)
	if err != nil {
		m.logger.Warn("failed to create stage errors counter", zap.Error(err))
	}
}

// RecordTurn records a finished turn.
func (m *Metrics) RecordTurn(ctx context.Context, outcome string, dur time.Duration) {
	attrs := metric.WithAttributes(attribute.String("outcome", outcome))
	if m.turnsTotal != nil {
		m.turnsTotal.Add(ctx, 1, attrs)
	}
	if m.turnDur != nil {
		m.turnDur.Record(ctx, dur.Seconds(), attrs)
	}
}

// RecordStage records one stage dispatch.
func (m *Metrics) RecordStage(ctx context.Context, state State, dur time.Duration, err error) {
	attrs := metric.WithAttributes(attribute.String("state", string(state)))
	if m.stageDur != nil {
		m.stageDur.Record(ctx, dur.Seconds(), attrs)
	}
	if err != nil && m.stageErrs != nil {
		m.stageErrs.Add(ctx, 1, attrs)
	}
}
