package canvasmapper

import (
	"context"
	"testing"
	"time"

	"github.com/ciuagent/ciuagent/classify"
	"github.com/ciuagent/ciuagent/internal/observability"
	"github.com/ciuagent/ciuagent/model"
	"github.com/ciuagent/ciuagent/region"
	"github.com/ciuagent/ciuagent/vision"
	"github.com/ciuagent/ciuagent/zoneregistry"
)

type fakePrimitives struct {
	zones []model.Zone
}

func (f fakePrimitives) Detect(ctx context.Context, frame model.Frame, bbox model.Rectangle) ([]model.Zone, error) {
	return f.zones, nil
}

type fakeVisionProvider struct {
	reply string
	err   error
}

func (f fakeVisionProvider) AnalyzeFrame(ctx context.Context, frame model.Frame, screenW, screenH int, contextHint string) (string, error) {
	if f.err != nil {
		return "", f.err
	}
	return f.reply, nil
}

func solidFrame(w, h int, gray byte) model.Frame {
	pix := make([]byte, w*h)
	for i := range pix {
		pix[i] = gray
	}
	return model.Frame{Width: w, Height: h, Pixels: pix, CursorX: 0, CursorY: 0, Timestamp: time.Now()}
}

func newMapper(t *testing.T, regionZones []model.Zone, visionReply string, visionErr error) *Mapper {
	t.Helper()
	reg := zoneregistry.New()
	classifier := classify.New(0.5, 5, 0)
	ra := region.New(fakePrimitives{zones: regionZones}, 0)
	va := vision.New(fakeVisionProvider{reply: visionReply, err: visionErr}, nil, time.Second, 0, 0.001)
	return New(reg, classifier, ra, va, nil, time.Hour, 0)
}

func TestProcessFrameIdenticalFramesIsIdle(t *testing.T) {
	m := newMapper(t, nil, `[]`, nil)
	frame := solidFrame(64, 64, 100)
	outcome := m.ProcessFrame(context.Background(), frame, frame)
	if outcome.Classification != classify.Idle {
		t.Fatalf("expected Idle, got %+v", outcome)
	}
}

func TestProcessFrameContentChangeReplacesZones(t *testing.T) {
	m := newMapper(t, nil, `[{"id":"z1","label":"Button","kind":"button","state":"normal","confidence":0.9,"bounds":{"x":0,"y":0,"w":10,"h":10}}]`, nil)
	prev := solidFrame(64, 64, 0)
	cur := solidFrame(64, 64, 255)
	outcome := m.ProcessFrame(context.Background(), prev, cur)
	if outcome.Classification != classify.ContentChange {
		t.Fatalf("expected ContentChange for a full-frame flip, got %+v", outcome)
	}
	if outcome.Degraded {
		t.Errorf("a successful non-empty vision reply should not be Degraded")
	}
	if m.Registry().Count() != 1 {
		t.Fatalf("expected the registry to hold the vision reply's one zone, got count=%d", m.Registry().Count())
	}
}

func TestProcessFrameContentChangePreservesZonesOnVisionFailure(t *testing.T) {
	reg := zoneregistry.New()
	reg.Register(model.Zone{ID: "existing", Bounds: model.Rectangle{X: 0, Y: 0, Width: 5, Height: 5}})
	classifier := classify.New(0.5, 5, 0)
	ra := region.New(fakePrimitives{}, 0)
	va := vision.New(fakeVisionProvider{err: errTransport{}}, nil, time.Second, 0, 0.001)
	m := New(reg, classifier, ra, va, nil, time.Hour, 0)

	prev := solidFrame(64, 64, 0)
	cur := solidFrame(64, 64, 255)
	outcome := m.ProcessFrame(context.Background(), prev, cur)

	if !outcome.Degraded {
		t.Fatalf("expected Degraded=true when the vision call fails, got %+v", outcome)
	}
	if m.Registry().Count() != 1 {
		t.Fatalf("a failed vision call must preserve the existing registry contents, got count=%d", m.Registry().Count())
	}
}

func TestProcessFrameContentChangePreservesZonesOnEmptyVisionReply(t *testing.T) {
	reg := zoneregistry.New()
	reg.Register(model.Zone{ID: "existing", Bounds: model.Rectangle{X: 0, Y: 0, Width: 5, Height: 5}})
	classifier := classify.New(0.5, 5, 0)
	ra := region.New(fakePrimitives{}, 0)
	va := vision.New(fakeVisionProvider{reply: `[]`}, nil, time.Second, 0, 0.001)
	m := New(reg, classifier, ra, va, nil, time.Hour, 0)

	prev := solidFrame(64, 64, 0)
	cur := solidFrame(64, 64, 255)
	outcome := m.ProcessFrame(context.Background(), prev, cur)

	if !outcome.Degraded {
		t.Fatalf("a well-formed but empty vision reply must preserve zones and report Degraded, got %+v", outcome)
	}
	if m.Registry().Count() != 1 {
		t.Fatalf("expected existing zone preserved, got count=%d", m.Registry().Count())
	}
}

func TestRecaptureAppliesSamePreservationRule(t *testing.T) {
	reg := zoneregistry.New()
	reg.Register(model.Zone{ID: "existing", Bounds: model.Rectangle{X: 0, Y: 0, Width: 5, Height: 5}})
	classifier := classify.New(0.5, 5, 0)
	ra := region.New(fakePrimitives{}, 0)
	va := vision.New(fakeVisionProvider{err: errTransport{}}, nil, time.Second, 0, 0.001)
	m := New(reg, classifier, ra, va, nil, time.Hour, 0)

	outcome := m.Recapture(context.Background(), solidFrame(64, 64, 50), "manual recapture")
	if !outcome.Degraded {
		t.Fatalf("expected Degraded recapture on vision failure, got %+v", outcome)
	}
	if m.Registry().Count() != 1 {
		t.Fatalf("expected existing zone preserved across Recapture, got count=%d", m.Registry().Count())
	}
}

func TestProcessFrameRecordsVisionMetricsAndSpanWhenAttached(t *testing.T) {
	m := newMapper(t, nil, `[{"id":"z1","label":"Button","kind":"button","state":"normal","confidence":0.9,"bounds":{"x":0,"y":0,"w":10,"h":10}}]`, nil)

	metrics := observability.NewMetrics()
	tracer, shutdown := observability.NewTracer(observability.TraceConfig{ServiceName: "test"})
	defer func() { _ = shutdown(context.Background()) }()
	m.SetMetrics(metrics)
	m.SetTracer(tracer)

	prev := solidFrame(64, 64, 0)
	cur := solidFrame(64, 64, 255)
	outcome := m.ProcessFrame(context.Background(), prev, cur)

	if outcome.Classification != classify.ContentChange {
		t.Fatalf("expected ContentChange, got %+v", outcome)
	}
	// Attaching metrics/tracer must not change perception behavior.
	if m.Registry().Count() != 1 {
		t.Fatalf("expected the registry to hold the vision reply's one zone, got count=%d", m.Registry().Count())
	}
}

type errTransport struct{}

func (errTransport) Error() string { return "transport error" }
