// Package action executes atomic input operations against the Platform
// Adapter and verifies that the cursor arrived where it was sent.
package action

import (
	"context"
	"fmt"

	"golang.org/x/text/unicode/norm"

	"github.com/ciuagent/ciuagent/model"
	"github.com/ciuagent/ciuagent/platform"
	"github.com/ciuagent/ciuagent/zoneregistry"
)

// ArrivalTolerance is the maximum pixel distance between the requested and
// observed cursor position after a positional action still counted as
// "arrived".
const ArrivalTolerance = 3

// zoneBearingKinds are the action kinds the spec requires a registry
// re-read and bounds check for before the action is allowed to proceed.
var zoneBearingKinds = map[model.ActionKind]bool{
	model.ActionClick:       true,
	model.ActionDoubleClick: true,
	model.ActionTypeText:    true,
	model.ActionScroll:      true,
	model.ActionMove:        true,
	model.ActionDrag:        true,
}

// Executor dispatches one model.Action at a time against an Adapter.
type Executor struct {
	registry *zoneregistry.Registry
	adapter  platform.Adapter
}

// New builds an Executor.
func New(registry *zoneregistry.Registry, adapter platform.Adapter) *Executor {
	return &Executor{registry: registry, adapter: adapter}
}

// Result is the outcome of dispatching one action.
type Result struct {
	Arrived   bool
	X, Y      int
	Err       error
	ErrorKind model.ErrorKind
}

// Dispatch performs act at the given target position (ignored for
// non-positional actions such as TYPE_TEXT with no target zone and
// KEY_PRESS) and, for positional actions, verifies the cursor arrived
// within ArrivalTolerance. If act.TargetZoneID is set, the target zone is
// first re-read from the registry and the cursor's current position
// checked against its bounds; a missing zone or an out-of-bounds cursor
// both fail with ErrorBrushLost, per the arrival-verification contract.
func (e *Executor) Dispatch(ctx context.Context, act model.Action, x, y int) Result {
	if act.TargetZoneID != "" && zoneBearingKinds[act.Kind] {
		if res := e.checkBrush(ctx, act.TargetZoneID); res.Err != nil {
			return res
		}
	}

	switch act.Kind {
	case model.ActionClick:
		button := buttonOf(act.Parameters)
		if err := e.adapter.MoveCursor(ctx, x, y); err != nil {
			return Result{Err: fmt.Errorf("action: move before click: %w", err)}
		}
		if err := e.adapter.Click(ctx, x, y, button); err != nil {
			return Result{Err: fmt.Errorf("action: click: %w", err)}
		}
		return e.verifyArrival(ctx, x, y)

	case model.ActionDoubleClick:
		if err := e.adapter.MoveCursor(ctx, x, y); err != nil {
			return Result{Err: fmt.Errorf("action: move before double click: %w", err)}
		}
		if err := e.adapter.DoubleClick(ctx, x, y); err != nil {
			return Result{Err: fmt.Errorf("action: double click: %w", err)}
		}
		return e.verifyArrival(ctx, x, y)

	case model.ActionMove:
		if err := e.adapter.MoveCursor(ctx, x, y); err != nil {
			return Result{Err: fmt.Errorf("action: move: %w", err)}
		}
		return e.verifyArrival(ctx, x, y)

	case model.ActionScroll:
		amount, _ := act.Parameters["amount"].(int)
		if err := e.adapter.Scroll(ctx, x, y, amount); err != nil {
			return Result{Err: fmt.Errorf("action: scroll: %w", err)}
		}
		return Result{Arrived: true, X: x, Y: y}

	case model.ActionTypeText:
		text, _ := act.Parameters["text"].(string)
		normalized := norm.NFC.String(text)
		if err := e.adapter.TypeText(ctx, normalized); err != nil {
			return Result{Err: fmt.Errorf("action: type text: %w", err)}
		}
		return Result{Arrived: true}

	case model.ActionKeyPress:
		chord, _ := act.Parameters["chord"].(string)
		if err := e.adapter.KeyPress(ctx, chord); err != nil {
			return Result{Err: fmt.Errorf("action: key press: %w", err)}
		}
		return Result{Arrived: true}

	case model.ActionDrag:
		toX, _ := act.Parameters["to_x"].(int)
		toY, _ := act.Parameters["to_y"].(int)
		if err := e.adapter.MoveCursor(ctx, x, y); err != nil {
			return Result{Err: fmt.Errorf("action: move before drag: %w", err)}
		}
		if err := e.adapter.MoveCursor(ctx, toX, toY); err != nil {
			return Result{Err: fmt.Errorf("action: drag: %w", err)}
		}
		return e.verifyArrival(ctx, toX, toY)

	default:
		return Result{Err: fmt.Errorf("action: unsupported action kind %q", act.Kind)}
	}
}

// checkBrush re-reads zoneID from the registry and verifies the adapter's
// current cursor position lies inside its bounds.
func (e *Executor) checkBrush(ctx context.Context, zoneID string) Result {
	zone, found := e.registry.Get(zoneID)
	if !found {
		return Result{Err: fmt.Errorf("action: target zone %q no longer in registry", zoneID), ErrorKind: model.ErrorBrushLost}
	}
	x, y, err := e.adapter.CursorPos(ctx)
	if err != nil {
		return Result{Err: fmt.Errorf("action: read cursor position: %w", err)}
	}
	if !zone.Bounds.Contains(x, y) {
		return Result{Err: fmt.Errorf("action: cursor (%d,%d) is outside target zone %q bounds", x, y, zoneID), ErrorKind: model.ErrorBrushLost}
	}
	return Result{}
}

func (e *Executor) verifyArrival(ctx context.Context, wantX, wantY int) Result {
	gotX, gotY, err := e.adapter.CursorPos(ctx)
	if err != nil {
		return Result{Err: fmt.Errorf("action: verify arrival: %w", err)}
	}
	dx, dy := gotX-wantX, gotY-wantY
	if dx < 0 {
		dx = -dx
	}
	if dy < 0 {
		dy = -dy
	}
	arrived := dx <= ArrivalTolerance && dy <= ArrivalTolerance
	return Result{Arrived: arrived, X: gotX, Y: gotY}
}

func buttonOf(params map[string]any) platform.Button {
	if v, ok := params["button"].(string); ok {
		switch v {
		case "right":
			return platform.ButtonRight
		case "middle":
			return platform.ButtonMiddle
		}
	}
	return platform.ButtonLeft
}
