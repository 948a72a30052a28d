// Package model defines the core data types shared across the agent:
// frames, zones, spatial events, actions, plans, and results.
package model

import "time"

// Rectangle is an axis-aligned rectangle in logical screen coordinates.
type Rectangle struct {
	X      int `json:"x"`
	Y      int `json:"y"`
	Width  int `json:"width"`
	Height int `json:"height"`
}

// Empty reports whether the rectangle has zero area.
func (r Rectangle) Empty() bool {
	return r.Width <= 0 || r.Height <= 0
}

// Center returns the rectangle's center point.
func (r Rectangle) Center() (int, int) {
	return r.X + r.Width/2, r.Y + r.Height/2
}

// Area returns the rectangle's area in pixels.
func (r Rectangle) Area() int {
	if r.Empty() {
		return 0
	}
	return r.Width * r.Height
}

// Contains reports whether (x, y) lies inside the rectangle, inclusive of edges.
func (r Rectangle) Contains(x, y int) bool {
	return x >= r.X && x < r.X+r.Width && y >= r.Y && y < r.Y+r.Height
}

// Intersects reports whether two rectangles overlap.
func (r Rectangle) Intersects(o Rectangle) bool {
	if r.Empty() || o.Empty() {
		return false
	}
	return r.X < o.X+o.Width && o.X < r.X+r.Width && r.Y < o.Y+o.Height && o.Y < r.Y+r.Height
}

// Union returns the smallest rectangle containing both r and o. If one is
// empty the other is returned unchanged.
func (r Rectangle) Union(o Rectangle) Rectangle {
	if r.Empty() {
		return o
	}
	if o.Empty() {
		return r
	}
	minX, minY := min(r.X, o.X), min(r.Y, o.Y)
	maxX, maxY := max(r.X+r.Width, o.X+o.Width), max(r.Y+r.Height, o.Y+o.Height)
	return Rectangle{X: minX, Y: minY, Width: maxX - minX, Height: maxY - minY}
}

// ZoneKind enumerates the interactive categories a Zone can represent.
type ZoneKind string

const (
	ZoneKindButton     ZoneKind = "button"
	ZoneKindTextField  ZoneKind = "text_field"
	ZoneKindMenuItem   ZoneKind = "menu_item"
	ZoneKindIcon       ZoneKind = "icon"
	ZoneKindCheckbox   ZoneKind = "checkbox"
	ZoneKindLink       ZoneKind = "link"
	ZoneKindScrollArea ZoneKind = "scroll_area"
	ZoneKindOther      ZoneKind = "other"
)

// ZoneState enumerates the observable state a Zone can be in.
type ZoneState string

const (
	ZoneStateEnabled  ZoneState = "enabled"
	ZoneStateDisabled ZoneState = "disabled"
	ZoneStateFocused  ZoneState = "focused"
	ZoneStateHovered  ZoneState = "hovered"
	ZoneStatePressed  ZoneState = "pressed"
	ZoneStateChecked  ZoneState = "checked"
	ZoneStateUnchecked ZoneState = "unchecked"
)

// Zone is a bounded, labeled region of the screen considered interactive.
type Zone struct {
	ID         string    `json:"id"`
	Label      string    `json:"label"`
	Kind       ZoneKind  `json:"kind"`
	State      ZoneState `json:"state"`
	Bounds     Rectangle `json:"bounds"`
	Confidence float64   `json:"confidence"`
	ParentID   string    `json:"parent_id,omitempty"`
	LastSeen   time.Time `json:"last_seen"`
}

// Clone returns a deep, independent copy of the zone.
func (z Zone) Clone() Zone {
	return z
}

// Center returns the zone's aim point, defaulting to the bounds center.
func (z Zone) Center() (int, int) {
	return z.Bounds.Center()
}

// Frame is one timestamped screen sample plus cursor position. Frames are
// immutable once produced; Pixels is owned by the frame and must never be
// mutated by a consumer.
type Frame struct {
	Pixels    []byte
	Width     int
	Height    int
	Timestamp time.Time
	CursorX   int
	CursorY   int

	// Window is the foreground window at capture time, best-effort (zero
	// value on platforms whose Adapter doesn't implement ActiveWindow). The
	// Change Classifier's window-identity heuristic compares this across
	// consecutive frames.
	Window WindowInfo
}

// Clone returns a copy of the frame with an independent pixel buffer.
func (f Frame) Clone() Frame {
	cp := make([]byte, len(f.Pixels))
	copy(cp, f.Pixels)
	f.Pixels = cp
	return f
}

// SpatialEventKind enumerates the cursor-versus-zone transitions the Zone
// Tracker emits.
type SpatialEventKind string

const (
	SpatialEventEnter SpatialEventKind = "ENTER"
	SpatialEventExit  SpatialEventKind = "EXIT"
	SpatialEventHover SpatialEventKind = "HOVER"
)

// SpatialEvent records one cursor-versus-zone transition.
type SpatialEvent struct {
	Kind      SpatialEventKind
	ZoneID    string
	X, Y      int
	Timestamp time.Time
	DwellMs   int64 // only meaningful for SpatialEventHover
}

// ActionKind enumerates the atomic input actions the Action Executor can
// perform.
type ActionKind string

const (
	ActionClick       ActionKind = "CLICK"
	ActionDoubleClick ActionKind = "DOUBLE_CLICK"
	ActionTypeText    ActionKind = "TYPE_TEXT"
	ActionKeyPress    ActionKind = "KEY_PRESS"
	ActionScroll      ActionKind = "SCROLL"
	ActionMove        ActionKind = "MOVE"
	ActionDrag        ActionKind = "DRAG"
)

// ActionStatus enumerates the lifecycle of an in-flight Action.
type ActionStatus string

const (
	ActionPending    ActionStatus = "PENDING"
	ActionInProgress ActionStatus = "IN_PROGRESS"
	ActionCompleted  ActionStatus = "COMPLETED"
	ActionFailed     ActionStatus = "FAILED"
)

// Action describes one atomic input operation.
type Action struct {
	Kind         ActionKind
	TargetZoneID string // empty for __global__ actions with explicit coordinates
	Parameters   map[string]any
	Status       ActionStatus
}

// Sentinel zone ids recognized by the Step Executor and Director.
const (
	ZoneGlobal  = "__global__"
	ZoneReplan  = "__replan__"
)

// TaskStep is one instruction in a TaskPlan.
type TaskStep struct {
	StepNumber     int
	ZoneID         string // real zone id, ZoneGlobal, or ZoneReplan
	ZoneLabel      string
	ActionType     ActionKind
	Parameters     map[string]any
	ExpectedChange string
	Description    string
}

// IsGlobal reports whether the step targets no specific zone.
func (s TaskStep) IsGlobal() bool { return s.ZoneID == ZoneGlobal }

// IsReplan reports whether the step is the replan sentinel.
func (s TaskStep) IsReplan() bool { return s.ZoneID == ZoneReplan }

// TaskPlan is an ordered sequence of steps produced by the Task Planner.
type TaskPlan struct {
	TaskDescription string
	Steps           []TaskStep
	RawResponse     string
	Success         bool
	Error           string
	APICallsUsed    int
	LatencyMs       int64
}

// ErrorKind enumerates the taxonomy the Error Classifier reasons over.
type ErrorKind string

const (
	ErrorZoneNotFound         ErrorKind = "zone_not_found"
	ErrorActionFailed         ErrorKind = "action_failed"
	ErrorBrushLost            ErrorKind = "brush_lost"
	ErrorTimeout              ErrorKind = "timeout"
	ErrorParseError           ErrorKind = "parse_error"
	ErrorUnsupportedGlobal    ErrorKind = "unsupported_global_action"
	ErrorPlanInvalid          ErrorKind = "plan_invalid"
	ErrorBudgetExhausted      ErrorKind = "budget_exhausted"
	ErrorPlatform             ErrorKind = "platform_error"
)

// StepResult is the outcome of executing one TaskStep.
type StepResult struct {
	Step      TaskStep
	Success   bool
	Events    []SpatialEvent
	Error     string
	ErrorKind ErrorKind
	Timestamp time.Time
}

// TaskResult is the outcome of one full Director run.
type TaskResult struct {
	TaskDescription string
	Success         bool
	CompletedSteps  []TaskStep
	PlansUsed       int
	APICallsUsed    int
	FinalError      string
	FinalErrorKind  ErrorKind
}

// WindowInfo describes the foreground window, used by the window-identity
// CONTENT_CHANGE heuristic and by command-mode steps that need to confirm
// focus. Optional platform capability (see platform.Adapter).
type WindowInfo struct {
	Title     string
	ProcessID int
	ClassName string
	Bounds    Rectangle
}
