package otel

import (
	"context"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

const tracerName = "autocrm"

// StartRunSpan starts a span for one workflow run.
func StartRunSpan(ctx context.Context, runID string, userID int64) (context.Context, trace.Span) {
	return otel.Tracer(tracerName).Start(ctx, "run",
		trace.WithAttributes(
			attribute.String("run.id", runID),
			attribute.Int64("user.id", userID),
		),
	)
}

// StartStepSpan starts a span for a single workflow node.
func StartStepSpan(ctx context.Context, runID, step string) (context.Context, trace.Span) {
	return otel.Tracer(tracerName).Start(ctx, "step."+step,
		trace.WithAttributes(
			attribute.String("run.id", runID),
			attribute.String("step", step),
		),
	)
}

// StartApprovalSpan starts a span for resolving a suspended run.
func StartApprovalSpan(ctx context.Context, runID string, approved bool) (context.Context, trace.Span) {
	return otel.Tracer(tracerName).Start(ctx, "approval",
		trace.WithAttributes(
			attribute.String("run.id", runID),
			attribute.Bool("approval.approved", approved),
		),
	)
}

// EndSpan records err (if any) and ends the span.
func EndSpan(span trace.Span, err error) {
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
	}
	span.End()
}
