// Package brush implements the Brush Controller: it composes the Motion
// Planner and Action Executor to move the cursor along a trajectory,
// verifying arrival at each waypoint before dispatching the terminal
// action, and reports ZoneID-relative spatial events as it moves.
package brush

import (
	"context"
	"fmt"
	"time"

	"github.com/ciuagent/ciuagent/action"
	"github.com/ciuagent/ciuagent/model"
	"github.com/ciuagent/ciuagent/motion"
	"github.com/ciuagent/ciuagent/platform"
	"github.com/ciuagent/ciuagent/zonetracker"
)

// tickInterval is the pacing quantum between successive interpolated
// waypoints; combined with Controller.pixelsPerSec it bounds the
// trajectory's effective speed per the spec's motion_speed_pixels_per_sec.
const tickInterval = 8 * time.Millisecond

// Outcome is the result of one brush operation.
type Outcome struct {
	Success   bool
	FinalX    int
	FinalY    int
	Events    []model.SpatialEvent
	Err       error
	ErrorKind model.ErrorKind
}

// Controller drives cursor movement and terminal action dispatch.
type Controller struct {
	adapter  platform.Adapter
	executor *action.Executor
	tracker  *zonetracker.Tracker

	// WaypointSettleDelay is paused between intermediate waypoints so the
	// OS cursor has time to register each move before the next, and so the
	// Zone Tracker can observe every crossed zone.
	WaypointSettleDelay time.Duration

	// maxStepPixels bounds the distance between consecutive waypoints so
	// the effective cursor speed never exceeds pixelsPerSec.
	maxStepPixels float64
}

// New builds a Controller. pixelsPerSec is Settings.MotionSpeedPixelsPerSec;
// a non-positive value disables speed pacing (waypoints are walked as the
// Motion Planner produced them, unsubdivided).
func New(adapter platform.Adapter, executor *action.Executor, tracker *zonetracker.Tracker, pixelsPerSec float64) *Controller {
	c := &Controller{
		adapter:             adapter,
		executor:            executor,
		tracker:             tracker,
		WaypointSettleDelay: tickInterval,
	}
	if pixelsPerSec > 0 {
		c.maxStepPixels = pixelsPerSec * tickInterval.Seconds()
	}
	return c
}

// Paint moves the cursor from its current position to the target along
// the given trajectory mode, then dispatches act at the destination. The
// trajectory's intermediate waypoints are walked one at a time, each
// reported to the Zone Tracker so ENTER/EXIT/HOVER events fire along the
// way. Before the terminal action is dispatched, if act carries a
// TargetZoneID the tracker's current zone must match it — otherwise the
// step has lost its target mid-trajectory and Paint fails brush_lost
// without ever calling the Action Executor.
func (c *Controller) Paint(ctx context.Context, mode motion.Mode, targetX, targetY int, obstacles []model.Rectangle, act model.Action) Outcome {
	curX, curY, err := c.adapter.CursorPos(ctx)
	if err != nil {
		return Outcome{Err: fmt.Errorf("brush: read cursor position: %w", err)}
	}

	path := motion.Plan(mode, motion.Point{X: curX, Y: curY}, motion.Point{X: targetX, Y: targetY}, obstacles, model.Rectangle{}, 0)
	if c.maxStepPixels > 0 {
		path = motion.Interpolate(path, c.maxStepPixels)
	}

	// Walk every waypoint, including the final one, so the platform cursor
	// has actually reached targetX/targetY before the Action Executor
	// re-reads its position: checkBrush must see the cursor already
	// inside the target zone, not wherever the trajectory left off one
	// waypoint short of it.
	var events []model.SpatialEvent
	for _, wp := range path {
		if err := ctx.Err(); err != nil {
			return Outcome{Err: err, Events: events}
		}
		if err := c.adapter.MoveCursor(ctx, wp.X, wp.Y); err != nil {
			return Outcome{Err: fmt.Errorf("brush: move to waypoint (%d,%d): %w", wp.X, wp.Y, err), Events: events}
		}
		if c.tracker != nil {
			events = append(events, c.tracker.Observe(wp.X, wp.Y, time.Now())...)
		}
		if c.WaypointSettleDelay > 0 {
			select {
			case <-ctx.Done():
				return Outcome{Err: ctx.Err(), Events: events}
			case <-time.After(c.WaypointSettleDelay):
			}
		}
	}

	if c.tracker != nil {
		if act.TargetZoneID != "" && c.tracker.CurrentZone() != act.TargetZoneID {
			return Outcome{Err: fmt.Errorf("brush: target zone %q is not the tracker's current zone (got %q)", act.TargetZoneID, c.tracker.CurrentZone()),
				ErrorKind: model.ErrorBrushLost, Events: events}
		}
	}

	result := c.executor.Dispatch(ctx, act, targetX, targetY)
	if c.tracker != nil {
		events = append(events, c.tracker.Observe(result.X, result.Y, time.Now())...)
	}
	if result.Err != nil {
		kind := result.ErrorKind
		if kind == "" {
			kind = model.ErrorActionFailed
		}
		return Outcome{Err: result.Err, Events: events, ErrorKind: kind}
	}
	if !result.Arrived {
		return Outcome{Success: false, FinalX: result.X, FinalY: result.Y, Events: events, ErrorKind: model.ErrorActionFailed,
			Err: fmt.Errorf("brush: cursor did not arrive at target (%d,%d), landed at (%d,%d)", targetX, targetY, result.X, result.Y)}
	}
	return Outcome{Success: true, FinalX: result.X, FinalY: result.Y, Events: events}
}
