// Package director implements the top-level orchestration state machine:
// plan, execute, recapture, replan, retry, bounded by four budget
// counters, with every run persisted to the history store on completion.
package director

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math"
	"strings"
	"sync/atomic"
	"time"

	"go.opentelemetry.io/otel/trace"

	"github.com/ciuagent/ciuagent/canvasmapper"
	"github.com/ciuagent/ciuagent/errorclassifier"
	"github.com/ciuagent/ciuagent/internal/heartbeat"
	"github.com/ciuagent/ciuagent/internal/observability"
	"github.com/ciuagent/ciuagent/model"
	"github.com/ciuagent/ciuagent/platform"
	"github.com/ciuagent/ciuagent/settings"
	"github.com/ciuagent/ciuagent/stepexecutor"
	"github.com/ciuagent/ciuagent/taskplanner"
)

// HistoryRecorder persists a finished task run. Implemented by
// internal/history.Store; accepted as an interface here so the Director
// has no storage dependency of its own.
type HistoryRecorder interface {
	RecordTask(ctx context.Context, result model.TaskResult) error
}

// Director runs one task to completion.
type Director struct {
	settings *settings.Settings
	adapter  platform.Adapter
	mapper   *canvasmapper.Mapper
	planner  *taskplanner.Planner
	steps    *stepexecutor.Executor
	history  HistoryRecorder
	logger   *slog.Logger
	events   *observability.EventRecorder
	metrics  *observability.Metrics
	tracer   *observability.Tracer
}

// New builds a Director.
func New(s *settings.Settings, adapter platform.Adapter, mapper *canvasmapper.Mapper, planner *taskplanner.Planner, steps *stepexecutor.Executor, history HistoryRecorder, logger *slog.Logger) *Director {
	if logger == nil {
		logger = slog.Default()
	}
	return &Director{settings: s, adapter: adapter, mapper: mapper, planner: planner, steps: steps, history: history, logger: logger.With("component", "director")}
}

// SetEventRecorder attaches an EventRecorder that Run uses to populate the
// task timeline (run/step/replan/API events). Nil is a valid no-op value,
// which is also Director's default.
func (d *Director) SetEventRecorder(r *observability.EventRecorder) {
	d.events = r
}

// SetMetrics attaches a Metrics collector that Run uses to record API
// request and step execution histograms/counters. Nil is a valid no-op
// value, which is also Director's default.
func (d *Director) SetMetrics(m *observability.Metrics) {
	d.metrics = m
}

// SetTracer attaches a Tracer that Run uses to emit a span per task run,
// per API request, and per step execution. Nil is a valid no-op value,
// which is also Director's default.
func (d *Director) SetTracer(t *observability.Tracer) {
	d.tracer = t
}

var runIDCounter atomic.Int64

func nextRunID() string {
	return fmt.Sprintf("run_%d_%d", time.Now().UnixNano(), runIDCounter.Add(1))
}

// budget tracks the four counters the spec's Error Classifier and plan
// lifecycle consult on every iteration.
type budget struct {
	apiCallsUsed   int
	replansUsed    int
	stepRetries    map[int]int
	plansProduced  int
}

func newBudget() *budget { return &budget{stepRetries: make(map[int]int)} }

func (b *budget) exhausted(s *settings.Settings) (model.ErrorKind, bool) {
	if b.apiCallsUsed >= s.MaxAPICalls {
		return model.ErrorBudgetExhausted, true
	}
	if b.replansUsed >= s.MaxReplans {
		return model.ErrorBudgetExhausted, true
	}
	return "", false
}

// Run executes taskDescription to completion, returning its TaskResult.
// The Director never issues overlapping calls to the Platform Adapter or
// the LLM providers; every step in this loop runs sequentially.
func (d *Director) Run(ctx context.Context, taskDescription string) model.TaskResult {
	start := time.Now()
	b := newBudget()

	ctx = observability.AddRunID(ctx, nextRunID())
	if d.events != nil {
		d.events.RecordRunStart(ctx, observability.GetRunID(ctx), map[string]interface{}{"task": taskDescription})
	}
	if d.tracer != nil {
		var span trace.Span
		ctx, span = d.tracer.TraceRun(ctx, observability.GetRunID(ctx))
		defer span.End()
	}

	var hb *heartbeat.Runner
	if d.settings.StepDelaySeconds != 0 {
		var deliver heartbeat.DeliveryFunc
		deliver = func(ctx context.Context, ack *heartbeat.HeartbeatAck) error {
			err := d.signalCursorCircle(ctx)
			hb.QueueAck("") // keep the circle ticking for the rest of the task
			return err
		}
		hb = heartbeat.NewRunner(heartbeat.DefaultConfig(), deliver, nil)
		hb.Start(ctx, "", "")
		hb.QueueAck("")
		defer hb.Stop()
	}

	var completedDescriptions []string
	var completedSteps []model.TaskStep
	var plan model.TaskPlan

	replan := func() bool {
		if d.events != nil {
			d.events.Record(ctx, observability.EventTypeReplanRequest, "replan", map[string]interface{}{"replans_used": b.replansUsed})
		}
		newPlan := d.recordPlan(ctx, taskplanner.Request{
			TaskDescription: taskDescription,
			Zones:           summarize(d.mapper.Registry().All()),
			CompletedSteps:  completedDescriptions,
		})
		b.apiCallsUsed++
		b.plansProduced++
		if d.events != nil {
			d.events.Record(ctx, observability.EventTypeReplanResolve, "replan", map[string]interface{}{"success": newPlan.Success, "steps": len(newPlan.Steps)})
		}
		if !newPlan.Success || len(newPlan.Steps) == 0 {
			if d.metrics != nil {
				d.metrics.RecordReplan("rejected")
			}
			return false
		}
		if d.metrics != nil {
			d.metrics.RecordReplan("accepted")
		}
		plan = newPlan
		b.stepRetries = make(map[int]int)
		return true
	}

	plan = d.recordPlan(ctx, taskplanner.Request{
		TaskDescription: taskDescription,
		Zones:           summarize(d.mapper.Registry().All()),
		CompletedSteps:  completedDescriptions,
	})
	b.apiCallsUsed++
	b.plansProduced++

	if !plan.Success || len(plan.Steps) == 0 {
		return d.finish(ctx, b, start, taskDescription, false, model.ErrorPlanInvalid, completedSteps)
	}

	stepIdx := 0
	for {
		if kind, exhausted := b.exhausted(d.settings); exhausted {
			return d.finish(ctx, b, start, taskDescription, false, kind, completedSteps)
		}
		if stepIdx >= len(plan.Steps) {
			return d.finish(ctx, b, start, taskDescription, true, "", completedSteps)
		}
		if err := ctx.Err(); err != nil {
			return d.finish(ctx, b, start, taskDescription, false, model.ErrorTimeout, completedSteps)
		}

		step := plan.Steps[stepIdx]

		if step.IsReplan() {
			d.recapture(ctx, "replan checkpoint")
			b.apiCallsUsed++
			if kind, exhausted := b.exhausted(d.settings); exhausted {
				return d.finish(ctx, b, start, taskDescription, false, kind, completedSteps)
			}
			if !replan() {
				return d.finish(ctx, b, start, taskDescription, false, model.ErrorPlanInvalid, completedSteps)
			}
			b.replansUsed++
			stepIdx = 0
			continue
		}

		if d.settings.StepDelaySeconds > 0 {
			select {
			case <-ctx.Done():
				return d.finish(ctx, b, start, taskDescription, false, model.ErrorTimeout, completedSteps)
			case <-time.After(time.Duration(d.settings.StepDelaySeconds * float64(time.Second))):
			}
		}

		stepStart := time.Now()
		if d.events != nil {
			d.events.RecordStepStart(ctx, string(step.ActionType), step.ZoneID, step.Parameters)
		}
		stepCtx := ctx
		var stepSpan trace.Span
		if d.tracer != nil {
			stepCtx, stepSpan = d.tracer.TraceStep(ctx, string(step.ActionType), step.ZoneID)
		}
		result := d.steps.Execute(stepCtx, step)
		stepDuration := time.Since(stepStart)
		var stepErr error
		if !result.Success {
			msg := result.Error
			if msg == "" {
				msg = string(result.ErrorKind)
			}
			if msg == "" {
				msg = "step failed"
			}
			stepErr = errors.New(msg)
		}
		if stepSpan != nil {
			if stepErr != nil {
				d.tracer.RecordError(stepSpan, stepErr)
			}
			stepSpan.End()
		}
		if d.metrics != nil {
			status := "success"
			if stepErr != nil {
				status = "error"
				d.metrics.RecordError("step", string(step.ActionType))
			}
			d.metrics.RecordStepExecution(string(step.ActionType), status, stepDuration.Seconds())
		}
		if d.events != nil {
			d.events.RecordStepEnd(ctx, string(step.ActionType), step.ZoneID, stepDuration, stepErr)
			d.recordZoneEvents(ctx, result.Events)
		}
		if result.Success {
			completedDescriptions = append(completedDescriptions, step.Description)
			completedSteps = append(completedSteps, step)
			if d.matchesRecaptureKeyword(step.ExpectedChange) {
				d.recapture(ctx, step.ExpectedChange)
				b.apiCallsUsed++
			}
			stepIdx++
			continue
		}

		verdict := errorclassifier.Classify(result.ErrorKind, b.stepRetries[stepIdx], d.settings.MaxStepRetries)
		switch verdict.Recovery {
		case errorclassifier.RecoveryRetry:
			b.stepRetries[stepIdx]++
			if verdict.Reanalyze {
				d.recapture(ctx, "retry after "+string(result.ErrorKind))
				b.apiCallsUsed++
			}
			continue

		case errorclassifier.RecoveryReanalyze:
			d.recapture(ctx, "reanalyze after "+string(result.ErrorKind))
			b.apiCallsUsed++
			b.stepRetries[stepIdx]++
			continue

		case errorclassifier.RecoveryReplan:
			if !replan() {
				return d.finish(ctx, b, start, taskDescription, false, model.ErrorPlanInvalid, completedSteps)
			}
			b.replansUsed++
			stepIdx = 0
			continue

		case errorclassifier.RecoverySkip:
			stepIdx++
			continue

		default: // RecoveryAbort
			return d.finish(ctx, b, start, taskDescription, false, result.ErrorKind, completedSteps)
		}
	}
}

// recordPlan wraps a Task Planner call with API request/response/error
// events, keeping that bookkeeping out of Run's control flow.
func (d *Director) recordPlan(ctx context.Context, req taskplanner.Request) model.TaskPlan {
	if d.events != nil {
		d.events.Record(ctx, observability.EventTypeAPIRequest, "plan", nil)
	}
	var span trace.Span
	if d.tracer != nil {
		ctx, span = d.tracer.TraceAPIRequest(ctx, "task_planner")
	}
	planStart := time.Now()
	plan := d.planner.Plan(ctx, req)
	if span != nil {
		if !plan.Success {
			msg := plan.Error
			if msg == "" {
				msg = "plan request failed"
			}
			d.tracer.RecordError(span, errors.New(msg))
		}
		span.End()
	}
	status := "success"
	if !plan.Success {
		status = "error"
	}
	if d.metrics != nil {
		d.metrics.RecordAPIRequest("task_planner", status, time.Since(planStart).Seconds())
	}
	if d.events != nil {
		if plan.Success {
			d.events.Record(ctx, observability.EventTypeAPIResponse, "plan", map[string]interface{}{"steps": len(plan.Steps)})
		} else {
			msg := plan.Error
			if msg == "" {
				msg = "plan request failed"
			}
			d.events.RecordError(ctx, observability.EventTypeAPIError, "plan", errors.New(msg), nil)
			if d.metrics != nil {
				d.metrics.RecordError("planner", msg)
			}
		}
	}
	return plan
}

// recordZoneEvents reports the Zone Tracker's ENTER/EXIT/HOVER transitions
// produced by one Brush Controller call onto the run's event timeline.
func (d *Director) recordZoneEvents(ctx context.Context, events []model.SpatialEvent) {
	for _, e := range events {
		var eventType observability.EventType
		switch e.Kind {
		case model.SpatialEventEnter:
			eventType = observability.EventTypeZoneEnter
		case model.SpatialEventExit:
			eventType = observability.EventTypeZoneExit
		case model.SpatialEventHover:
			eventType = observability.EventTypeZoneHover
		default:
			continue
		}
		d.events.RecordZoneEvent(ctx, eventType, e.ZoneID, map[string]interface{}{"x": e.X, "y": e.Y, "dwell_ms": e.DwellMs})
	}
}

func (d *Director) recapture(ctx context.Context, hint string) {
	frame, err := d.adapter.CaptureFrame(ctx)
	if err != nil {
		d.logger.Warn("recapture: capture failed", "error", err)
		return
	}
	d.mapper.Recapture(ctx, frame, hint)
}

func (d *Director) matchesRecaptureKeyword(expectedChange string) bool {
	lower := strings.ToLower(expectedChange)
	for _, kw := range d.settings.RecaptureKeywords {
		if strings.Contains(lower, strings.ToLower(kw)) {
			return true
		}
	}
	return false
}

func (d *Director) signalCursorCircle(ctx context.Context) error {
	w, h, err := d.adapter.ScreenSize(ctx)
	if err != nil || w == 0 || h == 0 {
		return nil
	}
	cx, cy := w/2, h/2
	const radius = 24
	for i := 0; i < 8; i++ {
		angle := float64(i) / 8 * 2 * math.Pi
		x := cx + int(radius*math.Cos(angle))
		y := cy + int(radius*math.Sin(angle))
		if err := d.adapter.MoveCursor(ctx, x, y); err != nil {
			return err
		}
	}
	return nil
}

func (d *Director) finish(ctx context.Context, b *budget, start time.Time, taskDescription string, success bool, errKind model.ErrorKind, completedSteps []model.TaskStep) model.TaskResult {
	result := model.TaskResult{
		TaskDescription: taskDescription,
		Success:        success,
		CompletedSteps: completedSteps,
		PlansUsed:      b.plansProduced,
		APICallsUsed:   b.apiCallsUsed,
		FinalErrorKind: errKind,
	}
	if errKind != "" {
		result.FinalError = string(errKind)
	}
	d.logger.Info("task finished", "success", success, "error_kind", errKind, "duration_ms", time.Since(start).Milliseconds())
	if d.events != nil {
		var runErr error
		if errKind != "" {
			runErr = errors.New(string(errKind))
		}
		d.events.RecordRunEnd(ctx, time.Since(start), runErr)
	}
	if d.history != nil {
		if err := d.history.RecordTask(ctx, result); err != nil {
			d.logger.Warn("failed to persist task history", "error", err)
		}
	}
	return result
}

func summarize(zones []model.Zone) []taskplanner.ZoneSummary {
	out := make([]taskplanner.ZoneSummary, 0, len(zones))
	for _, z := range zones {
		cx, cy := z.Bounds.Center()
		out = append(out, taskplanner.ZoneSummary{
			ID: z.ID, Label: z.Label, Kind: z.Kind, State: z.State, CenterX: cx, CenterY: cy,
		})
	}
	return out
}

