package telemetry

import (
	"context"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

// EngineMetrics holds lifecycle engine metrics using OTEL semantic conventions
type EngineMetrics struct {
	approvals    metric.Int64Counter
	scans        metric.Int64Counter
	scanDuration metric.Float64Histogram
	conflicts    metric.Int64Counter
	stateReads   metric.Int64Counter
}

// NewEngineMetrics creates lifecycle engine metrics
func NewEngineMetrics() (*EngineMetrics, error) {
	meter := otel.Meter("liitos.engine")

	approvals, err := meter.Int64Counter(
		"liitos.approvals",
		metric.WithDescription("Approval workflow outcomes"),
		metric.WithUnit("{request}"),
	)
	if err != nil {
		return nil, err
	}

	scans, err := meter.Int64Counter(
		"liitos.scans",
		metric.WithDescription("Scan jobs by terminal result"),
		metric.WithUnit("{scan}"),
	)
	if err != nil {
		return nil, err
	}

	scanDuration, err := meter.Float64Histogram(
		"liitos.scan.duration",
		metric.WithDescription("Duration of completed scan jobs"),
		metric.WithUnit("s"),
	)
	if err != nil {
		return nil, err
	}

	conflicts, err := meter.Int64Counter(
		"liitos.conflicts",
		metric.WithDescription("Requests rejected due to state conflicts"),
		metric.WithUnit("{request}"),
	)
	if err != nil {
		return nil, err
	}

	stateReads, err := meter.Int64Counter(
		"liitos.state.reads",
		metric.WithDescription("Coarse process state computations"),
		metric.WithUnit("{read}"),
	)
	if err != nil {
		return nil, err
	}

	return &EngineMetrics{
		approvals:    approvals,
		scans:        scans,
		scanDuration: scanDuration,
		conflicts:    conflicts,
		stateReads:   stateReads,
	}, nil
}

// RecordApproval counts one approval workflow outcome
func (m *EngineMetrics) RecordApproval(ctx context.Context, outcome string) {
	m.approvals.Add(ctx, 1, metric.WithAttributes(attribute.String("outcome", outcome)))
}

// RecordScan counts one terminal scan and its duration
func (m *EngineMetrics) RecordScan(ctx context.Context, result string, seconds float64) {
	m.scans.Add(ctx, 1, metric.WithAttributes(attribute.String("result", result)))
	m.scanDuration.Record(ctx, seconds, metric.WithAttributes(attribute.String("result", result)))
}

// RecordConflict counts one state conflict by wire code
func (m *EngineMetrics) RecordConflict(ctx context.Context, code string) {
	m.conflicts.Add(ctx, 1, metric.WithAttributes(attribute.String("code", code)))
}

// RecordStateRead counts one coarse state computation
func (m *EngineMetrics) RecordStateRead(ctx context.Context, state string) {
	m.stateReads.Add(ctx, 1, metric.WithAttributes(attribute.String("state", state)))
}
