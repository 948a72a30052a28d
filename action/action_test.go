package action

import (
	"context"
	"testing"

	"github.com/ciuagent/ciuagent/model"
	"github.com/ciuagent/ciuagent/platform"
	"github.com/ciuagent/ciuagent/zoneregistry"
)

func TestDispatchClickArrives(t *testing.T) {
	reg := zoneregistry.New()
	mock := platform.NewMock()
	e := New(reg, mock)

	act := model.Action{Kind: model.ActionClick, Parameters: map[string]any{}}
	res := e.Dispatch(context.Background(), act, 50, 60)
	if res.Err != nil {
		t.Fatalf("unexpected error: %v", res.Err)
	}
	if !res.Arrived {
		t.Fatalf("expected cursor to have arrived at the click target")
	}
	clicks := mock.Clicks()
	if len(clicks) != 1 || clicks[0].X != 50 || clicks[0].Y != 60 {
		t.Fatalf("Clicks() = %+v, want one click at (50,60)", clicks)
	}
}

func TestDispatchZoneBearingFailsWhenZoneMissing(t *testing.T) {
	reg := zoneregistry.New()
	mock := platform.NewMock()
	e := New(reg, mock)

	act := model.Action{Kind: model.ActionClick, TargetZoneID: "missing", Parameters: map[string]any{}}
	res := e.Dispatch(context.Background(), act, 50, 60)
	if res.Err == nil {
		t.Fatal("expected an error when the target zone is not in the registry")
	}
	if res.ErrorKind != model.ErrorBrushLost {
		t.Errorf("ErrorKind = %v, want brush_lost", res.ErrorKind)
	}
}

func TestDispatchZoneBearingFailsWhenCursorOutsideBounds(t *testing.T) {
	reg := zoneregistry.New()
	reg.Register(model.Zone{ID: "z1", Bounds: model.Rectangle{X: 0, Y: 0, Width: 10, Height: 10}})
	mock := platform.NewMock()
	mock.SetCursor(500, 500)
	e := New(reg, mock)

	act := model.Action{Kind: model.ActionClick, TargetZoneID: "z1", Parameters: map[string]any{}}
	res := e.Dispatch(context.Background(), act, 5, 5)
	if res.ErrorKind != model.ErrorBrushLost {
		t.Fatalf("expected brush_lost when cursor is outside the target zone bounds, got %v (err=%v)", res.ErrorKind, res.Err)
	}
}

func TestDispatchZoneBearingSucceedsWhenCursorInsideBounds(t *testing.T) {
	reg := zoneregistry.New()
	reg.Register(model.Zone{ID: "z1", Bounds: model.Rectangle{X: 0, Y: 0, Width: 100, Height: 100}})
	mock := platform.NewMock()
	mock.SetCursor(50, 50)
	e := New(reg, mock)

	act := model.Action{Kind: model.ActionClick, TargetZoneID: "z1", Parameters: map[string]any{}}
	res := e.Dispatch(context.Background(), act, 50, 50)
	if res.Err != nil {
		t.Fatalf("unexpected error: %v", res.Err)
	}
}

func TestDispatchTypeText(t *testing.T) {
	reg := zoneregistry.New()
	mock := platform.NewMock()
	e := New(reg, mock)

	act := model.Action{Kind: model.ActionTypeText, Parameters: map[string]any{"text": "hello"}}
	res := e.Dispatch(context.Background(), act, 0, 0)
	if res.Err != nil {
		t.Fatalf("unexpected error: %v", res.Err)
	}
	if got := mock.TypedText(); len(got) != 1 || got[0] != "hello" {
		t.Fatalf("TypedText() = %+v, want [hello]", got)
	}
}

func TestDispatchKeyPress(t *testing.T) {
	reg := zoneregistry.New()
	mock := platform.NewMock()
	e := New(reg, mock)

	act := model.Action{Kind: model.ActionKeyPress, Parameters: map[string]any{"chord": "ctrl+s"}}
	res := e.Dispatch(context.Background(), act, 0, 0)
	if res.Err != nil {
		t.Fatalf("unexpected error: %v", res.Err)
	}
	if got := mock.KeyPresses(); len(got) != 1 || got[0] != "ctrl+s" {
		t.Fatalf("KeyPresses() = %+v, want [ctrl+s]", got)
	}
}

func TestDispatchUnsupportedKind(t *testing.T) {
	reg := zoneregistry.New()
	mock := platform.NewMock()
	e := New(reg, mock)

	act := model.Action{Kind: model.ActionKind("bogus")}
	res := e.Dispatch(context.Background(), act, 0, 0)
	if res.Err == nil {
		t.Fatal("expected an error for an unsupported action kind")
	}
}

func TestDispatchClickButtonParameter(t *testing.T) {
	reg := zoneregistry.New()
	mock := platform.NewMock()
	e := New(reg, mock)

	act := model.Action{Kind: model.ActionClick, Parameters: map[string]any{"button": "right"}}
	e.Dispatch(context.Background(), act, 10, 10)
	clicks := mock.Clicks()
	if len(clicks) != 1 || clicks[0].Button != platform.ButtonRight {
		t.Fatalf("Clicks() = %+v, want a single right click", clicks)
	}
}
