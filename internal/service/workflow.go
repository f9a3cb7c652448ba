package service

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"

	"github.com/Strob0t/AutoCRM/internal/adapter/otel"
	"github.com/Strob0t/AutoCRM/internal/domain/workflow"
	"github.com/Strob0t/AutoCRM/internal/logger"
	"github.com/Strob0t/AutoCRM/internal/resilience"
)

// Handler is the shared contract of the specialist steps: read the state,
// return a partial update.
type Handler func(ctx context.Context, s *workflow.State) (workflow.Update, error)

// RouteClassifier picks the specialist route for a message.
type RouteClassifier interface {
	Classify(ctx context.Context, message string) (workflow.Route, error)
}

// Suspender persists a run that needs a human decision.
type Suspender interface {
	Suspend(ctx context.Context, s *workflow.State) error
}

// Engine runs the support workflow: triage, one specialist, and the
// approval node when the specialist asks for it.
type Engine struct {
	classifier RouteClassifier
	handlers   map[workflow.Route]Handler
	suspender  Suspender
	tracer     *Tracer
	metrics    *otel.Metrics
	limiter    *resilience.Limiter
	newRunID   func() string
}

// NewEngine creates an Engine. handlers must contain the order route, which
// is the default edge for any route without a handler.
func NewEngine(classifier RouteClassifier, handlers map[workflow.Route]Handler) (*Engine, error) {
	if _, ok := handlers[workflow.RouteOrder]; !ok {
		return nil, fmt.Errorf("engine: no handler for default route %q", workflow.RouteOrder)
	}
	return &Engine{
		classifier: classifier,
		handlers:   handlers,
		newRunID:   uuid.NewString,
	}, nil
}

// SetSuspender sets where suspended runs are persisted.
func (e *Engine) SetSuspender(s Suspender) { e.suspender = s }

// SetTracer sets the trace event sink.
func (e *Engine) SetTracer(t *Tracer) { e.tracer = t }

// SetMetrics sets the metric instruments.
func (e *Engine) SetMetrics(m *otel.Metrics) { e.metrics = m }

// SetLimiter bounds how many runs execute at once. Runs waiting for a slot
// count against their own context deadline.
func (e *Engine) SetLimiter(l *resilience.Limiter) { e.limiter = l }

// Run executes one request to completion. Domain refusals come back as a
// state with success=false; collaborator failures and cancellation are errors.
func (e *Engine) Run(ctx context.Context, req workflow.Request) (*workflow.State, error) {
	if err := req.Validate(); err != nil {
		return nil, err
	}

	st := workflow.NewState(e.newRunID(), req)
	start := time.Now()
	log := logger.From(ctx).With("run_id", st.RunID)

	ctx, span := otel.StartRunSpan(ctx, st.RunID, req.UserID)
	if e.metrics != nil {
		e.metrics.RunsStarted.Add(ctx, 1)
	}
	e.tracer.Emit(ctx, workflow.NewEvent(workflow.EventRunStarted, "", st))

	err := e.limiter.Do(ctx, func(ctx context.Context) error {
		return e.execute(ctx, st)
	})
	otel.EndSpan(span, err)

	if err != nil {
		log.Error("run failed", "route", st.Route, "steps", st.Steps, "error", err)
		ev := workflow.NewEvent(workflow.EventRunFailed, "", st)
		ev.Error = err.Error()
		e.tracer.Emit(ctx, ev)
		if e.metrics != nil {
			e.metrics.RunsFailed.Add(ctx, 1)
		}
		return nil, fmt.Errorf("run %s: %w", st.RunID, err)
	}

	log.Info("run completed",
		"route", st.Route,
		"success", st.Succeeded(),
		"guard_rail", st.GuardRail.String(),
		"requires_human_approval", st.RequiresHumanApproval,
		"duration", time.Since(start),
	)
	e.tracer.Emit(ctx, workflow.NewEvent(workflow.EventRunCompleted, "", st))
	e.record(ctx, st, time.Since(start))
	return st, nil
}

func (e *Engine) execute(ctx context.Context, st *workflow.State) error {
	// triage
	if err := e.step(ctx, st, workflow.StepTriage, func(ctx context.Context, s *workflow.State) (workflow.Update, error) {
		route, err := e.classifier.Classify(ctx, s.Message)
		if err != nil {
			return workflow.Update{}, err
		}
		return workflow.Update{Route: &route}, nil
	}); err != nil {
		return err
	}

	// specialist; the edge is total
	route := st.Route
	handler, ok := e.handlers[route]
	if !ok {
		slog.Warn("no handler for route, using order", "run_id", st.RunID, "route", route)
		route = workflow.RouteOrder
		handler = e.handlers[route]
	}
	if err := e.step(ctx, st, workflow.StepFor(route), handler); err != nil {
		return err
	}

	if !st.RequiresHumanApproval {
		return nil
	}

	// approval node
	return e.step(ctx, st, workflow.StepApproval, func(ctx context.Context, s *workflow.State) (workflow.Update, error) {
		if e.suspender == nil {
			return workflow.Update{AppendResponse: workflow.ApprovalMarker}, nil
		}
		// Persist the annotated state; Apply below annotates the live one.
		snapshot := *s
		snapshot.Response += workflow.ApprovalMarker
		snapshot.Steps = append(append([]workflow.Step(nil), s.Steps...), workflow.StepApproval)
		if err := e.suspender.Suspend(ctx, &snapshot); err != nil {
			return workflow.Update{}, fmt.Errorf("suspend: %w", err)
		}
		return workflow.Update{AppendResponse: workflow.ApprovalMarker}, nil
	})
}

// step runs fn as the named node: cancellation check, span, apply, trace.
func (e *Engine) step(ctx context.Context, st *workflow.State, name workflow.Step, fn Handler) error {
	if err := ctx.Err(); err != nil {
		return fmt.Errorf("%s: %w", name, err)
	}

	ctx, span := otel.StartStepSpan(ctx, st.RunID, string(name))
	u, err := fn(ctx, st)
	if err == nil {
		err = st.Apply(name, u)
	}
	otel.EndSpan(span, err)
	if err != nil {
		return fmt.Errorf("%s: %w", name, err)
	}

	logger.From(ctx).Debug("step completed", "run_id", st.RunID, "step", name)
	e.tracer.Emit(ctx, workflow.NewEvent(workflow.EventStepCompleted, name, st))
	return nil
}

func (e *Engine) record(ctx context.Context, st *workflow.State, d time.Duration) {
	if e.metrics == nil {
		return
	}
	attrs := metric.WithAttributes(attribute.String("route", string(st.Route)))
	e.metrics.RunsCompleted.Add(ctx, 1, attrs)
	e.metrics.RunDuration.Record(ctx, d.Seconds(), attrs)
	if st.GuardRail.Fired() {
		e.metrics.GuardRails.Add(ctx, 1, metric.WithAttributes(attribute.String("guard_rail", string(st.GuardRail))))
	}
}
