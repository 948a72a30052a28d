package region

import (
	"context"
	"errors"
	"testing"

	"github.com/ciuagent/ciuagent/model"
)

type fakePrimitives struct {
	zones []model.Zone
	err   error
}

func (f fakePrimitives) Detect(ctx context.Context, frame model.Frame, bbox model.Rectangle) ([]model.Zone, error) {
	return f.zones, f.err
}

func TestAnalyzeFiltersByConfidence(t *testing.T) {
	prim := fakePrimitives{zones: []model.Zone{
		{ID: "low", Bounds: model.Rectangle{X: 0, Y: 0, Width: 10, Height: 10}, Confidence: 0.2},
		{ID: "high", Bounds: model.Rectangle{X: 0, Y: 0, Width: 10, Height: 10}, Confidence: 0.9},
	}}
	a := New(prim, 0.5)
	got := a.Analyze(context.Background(), model.Frame{}, model.Rectangle{X: 0, Y: 0, Width: 100, Height: 100})
	if len(got) != 1 || got[0].ID != "high" {
		t.Fatalf("Analyze() = %+v, want only the high-confidence zone", got)
	}
}

func TestAnalyzeClipsToBoundingBox(t *testing.T) {
	prim := fakePrimitives{zones: []model.Zone{
		{ID: "overflow", Bounds: model.Rectangle{X: 90, Y: 90, Width: 50, Height: 50}, Confidence: 1},
	}}
	a := New(prim, 0)
	bbox := model.Rectangle{X: 0, Y: 0, Width: 100, Height: 100}
	got := a.Analyze(context.Background(), model.Frame{}, bbox)
	if len(got) != 1 {
		t.Fatalf("expected one clipped zone, got %+v", got)
	}
	if got[0].Bounds.X+got[0].Bounds.Width > bbox.X+bbox.Width || got[0].Bounds.Y+got[0].Bounds.Height > bbox.Y+bbox.Height {
		t.Errorf("zone bounds %+v exceed bbox %+v", got[0].Bounds, bbox)
	}
}

func TestAnalyzeDropsZoneClippedToNothing(t *testing.T) {
	prim := fakePrimitives{zones: []model.Zone{
		{ID: "outside", Bounds: model.Rectangle{X: 200, Y: 200, Width: 10, Height: 10}, Confidence: 1},
	}}
	a := New(prim, 0)
	got := a.Analyze(context.Background(), model.Frame{}, model.Rectangle{X: 0, Y: 0, Width: 100, Height: 100})
	if len(got) != 0 {
		t.Fatalf("a zone entirely outside bbox should be dropped, got %+v", got)
	}
}

func TestAnalyzeDegradesToEmptyOnPrimitiveError(t *testing.T) {
	prim := fakePrimitives{err: errors.New("corrupted frame")}
	a := New(prim, 0)
	got := a.Analyze(context.Background(), model.Frame{}, model.Rectangle{X: 0, Y: 0, Width: 100, Height: 100})
	if got != nil {
		t.Fatalf("a failing primitive should degrade to nil, got %+v", got)
	}
}

func TestAnalyzeNilPrimitivesIsNoOp(t *testing.T) {
	a := New(nil, 0)
	got := a.Analyze(context.Background(), model.Frame{}, model.Rectangle{X: 0, Y: 0, Width: 100, Height: 100})
	if got != nil {
		t.Fatalf("Analyze with nil primitives should return nil, got %+v", got)
	}
}
