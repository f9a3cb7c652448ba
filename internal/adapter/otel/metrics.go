package otel

import (
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/metric"
)

const meterName = "autocrm"

// Metrics holds all workflow metric instruments.
type Metrics struct {
	RunsStarted       metric.Int64Counter
	RunsCompleted     metric.Int64Counter
	RunsFailed        metric.Int64Counter
	GuardRails        metric.Int64Counter
	ApprovalsResolved metric.Int64Counter
	RunDuration       metric.Float64Histogram
}

// NewMetrics creates all metric instruments on the global meter provider.
func NewMetrics() (*Metrics, error) {
	meter := otel.Meter(meterName)
	m := &Metrics{}
	var err error

	m.RunsStarted, err = meter.Int64Counter("autocrm.runs.started",
		metric.WithDescription("Number of runs started"))
	if err != nil {
		return nil, err
	}

	m.RunsCompleted, err = meter.Int64Counter("autocrm.runs.completed",
		metric.WithDescription("Number of runs completed, by route"))
	if err != nil {
		return nil, err
	}

	m.RunsFailed, err = meter.Int64Counter("autocrm.runs.failed",
		metric.WithDescription("Number of runs aborted by a collaborator failure"))
	if err != nil {
		return nil, err
	}

	m.GuardRails, err = meter.Int64Counter("autocrm.guardrails",
		metric.WithDescription("Number of runs where a guardrail fired, by code"))
	if err != nil {
		return nil, err
	}

	m.ApprovalsResolved, err = meter.Int64Counter("autocrm.approvals.resolved",
		metric.WithDescription("Number of suspended runs resolved, by status"))
	if err != nil {
		return nil, err
	}

	m.RunDuration, err = meter.Float64Histogram("autocrm.run.duration_seconds",
		metric.WithDescription("Run duration in seconds"))
	if err != nil {
		return nil, err
	}

	return m, nil
}
