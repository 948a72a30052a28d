// Package stepexecutor dispatches one TaskStep at a time: visual steps
// resolve a zone and paint through the Brush Controller, __global__ steps
// invoke a platform-level action with no zone resolution, and __replan__
// steps are reported back to the Director untouched.
package stepexecutor

import (
	"context"
	"fmt"

	"github.com/ciuagent/ciuagent/action"
	"github.com/ciuagent/ciuagent/brush"
	"github.com/ciuagent/ciuagent/model"
	"github.com/ciuagent/ciuagent/motion"
	"github.com/ciuagent/ciuagent/zoneregistry"
)

// Executor dispatches TaskSteps against the Zone Registry and Brush
// Controller.
type Executor struct {
	registry *zoneregistry.Registry
	painter  *brush.Controller
	actions  *action.Executor
}

// New builds an Executor. actions is used directly for __global__ steps
// that carry no target position (TYPE_TEXT, KEY_PRESS), bypassing cursor
// movement entirely; painter is used for every step that resolves to a
// screen position.
func New(registry *zoneregistry.Registry, painter *brush.Controller, actions *action.Executor) *Executor {
	return &Executor{registry: registry, painter: painter, actions: actions}
}

// Execute dispatches one step and returns its result. step.IsReplan() is
// handled by returning a result that signals the sentinel directly; the
// Director is responsible for interpreting it and not re-invoking Execute
// for replan steps in the first place, but Execute remains safe to call.
func (e *Executor) Execute(ctx context.Context, step model.TaskStep) model.StepResult {
	if step.IsReplan() {
		return model.StepResult{Step: step, Success: false, ErrorKind: model.ErrorPlanInvalid, Error: "replan sentinel cannot be executed directly"}
	}

	if step.IsGlobal() {
		return e.executeGlobal(ctx, step)
	}

	return e.executeVisual(ctx, step)
}

func (e *Executor) executeVisual(ctx context.Context, step model.TaskStep) model.StepResult {
	zone, found := e.registry.Get(step.ZoneID)
	if !found {
		return model.StepResult{Step: step, Success: false, ErrorKind: model.ErrorZoneNotFound,
			Error: fmt.Sprintf("zone %q not found in registry", step.ZoneID)}
	}

	cx, cy := zone.Bounds.Center()
	act := model.Action{Kind: step.ActionType, TargetZoneID: step.ZoneID, Parameters: step.Parameters, Status: model.ActionPending}

	obstacles := e.obstaclesExcept(step.ZoneID)
	outcome := e.painter.Paint(ctx, motion.Safe, cx, cy, obstacles, act)
	if outcome.Err != nil {
		kind := outcome.ErrorKind
		if kind == "" {
			kind = model.ErrorActionFailed
		}
		return model.StepResult{Step: step, Success: false, ErrorKind: kind, Error: outcome.Err.Error(), Events: outcome.Events}
	}
	return model.StepResult{Step: step, Success: outcome.Success, Events: outcome.Events}
}

func (e *Executor) executeGlobal(ctx context.Context, step model.TaskStep) model.StepResult {
	switch step.ActionType {
	case model.ActionTypeText, model.ActionKeyPress:
		act := model.Action{Kind: step.ActionType, Parameters: step.Parameters, Status: model.ActionPending}
		result := e.actions.Dispatch(ctx, act, 0, 0)
		if result.Err != nil {
			return model.StepResult{Step: step, Success: false, ErrorKind: model.ErrorActionFailed, Error: result.Err.Error()}
		}
		return model.StepResult{Step: step, Success: true}

	case model.ActionClick:
		x, xok := intParam(step.Parameters, "x")
		y, yok := intParam(step.Parameters, "y")
		if !xok || !yok {
			return model.StepResult{Step: step, Success: false, ErrorKind: model.ErrorParseError,
				Error: "__global__ CLICK requires explicit integer parameters.x and parameters.y"}
		}
		act := model.Action{Kind: step.ActionType, Parameters: step.Parameters, Status: model.ActionPending}
		result := e.actions.Dispatch(ctx, act, x, y)
		if result.Err != nil {
			return model.StepResult{Step: step, Success: false, ErrorKind: model.ErrorActionFailed, Error: result.Err.Error()}
		}
		return model.StepResult{Step: step, Success: true}

	default:
		return model.StepResult{Step: step, Success: false, ErrorKind: model.ErrorUnsupportedGlobal,
			Error: fmt.Sprintf("global steps do not support action %q", step.ActionType)}
	}
}

// intParam extracts an integer parameter that may have arrived as an int
// (constructed in-process, e.g. by tests) or a float64 (decoded from the
// planner's JSON reply).
func intParam(params map[string]any, key string) (int, bool) {
	switch v := params[key].(type) {
	case int:
		return v, true
	case float64:
		return int(v), true
	default:
		return 0, false
	}
}

// obstaclesExcept returns the bounds of every registered zone other than
// excludeID, used as detour obstacles for the SAFE motion mode so the
// cursor doesn't traverse unrelated interactive zones en route to its
// target.
func (e *Executor) obstaclesExcept(excludeID string) []model.Rectangle {
	zones := e.registry.All()
	out := make([]model.Rectangle, 0, len(zones))
	for _, z := range zones {
		if z.ID == excludeID {
			continue
		}
		out = append(out, z.Bounds)
	}
	return out
}
