package zonetracker

import (
	"testing"
	"time"

	"github.com/ciuagent/ciuagent/model"
	"github.com/ciuagent/ciuagent/zoneregistry"
)

func TestObserveEmitsEnterThenExit(t *testing.T) {
	reg := zoneregistry.New()
	reg.Register(model.Zone{ID: "a", Bounds: model.Rectangle{X: 0, Y: 0, Width: 10, Height: 10}})
	tr := New(reg, 500*time.Millisecond)

	now := time.Now()
	events := tr.Observe(5, 5, now)
	if len(events) != 1 || events[0].Kind != model.SpatialEventEnter || events[0].ZoneID != "a" {
		t.Fatalf("expected a single ENTER event, got %+v", events)
	}
	if tr.CurrentZone() != "a" {
		t.Fatalf("CurrentZone() = %q, want a", tr.CurrentZone())
	}

	events = tr.Observe(500, 500, now.Add(time.Millisecond))
	if len(events) != 1 || events[0].Kind != model.SpatialEventExit || events[0].ZoneID != "a" {
		t.Fatalf("expected a single EXIT event, got %+v", events)
	}
	if tr.CurrentZone() != "" {
		t.Fatalf("CurrentZone() = %q, want empty after EXIT", tr.CurrentZone())
	}
}

func TestObserveEmitsHoverAfterThreshold(t *testing.T) {
	reg := zoneregistry.New()
	reg.Register(model.Zone{ID: "a", Bounds: model.Rectangle{X: 0, Y: 0, Width: 10, Height: 10}})
	tr := New(reg, 100*time.Millisecond)

	now := time.Now()
	tr.Observe(5, 5, now)

	events := tr.Observe(5, 5, now.Add(50*time.Millisecond))
	if len(events) != 0 {
		t.Fatalf("should not hover before threshold, got %+v", events)
	}

	events = tr.Observe(5, 5, now.Add(150*time.Millisecond))
	if len(events) != 1 || events[0].Kind != model.SpatialEventHover {
		t.Fatalf("expected a HOVER event after threshold, got %+v", events)
	}
	if events[0].DwellMs < 100 {
		t.Errorf("DwellMs = %d, want >= 100", events[0].DwellMs)
	}

	// A second observation past the threshold should not re-fire HOVER.
	events = tr.Observe(5, 5, now.Add(300*time.Millisecond))
	if len(events) != 0 {
		t.Fatalf("HOVER should only fire once per dwell, got %+v", events)
	}
}

func TestObserveSwitchingZonesEmitsExitThenEnter(t *testing.T) {
	reg := zoneregistry.New()
	reg.RegisterMany([]model.Zone{
		{ID: "a", Bounds: model.Rectangle{X: 0, Y: 0, Width: 10, Height: 10}},
		{ID: "b", Bounds: model.Rectangle{X: 100, Y: 100, Width: 10, Height: 10}},
	})
	tr := New(reg, time.Second)

	now := time.Now()
	tr.Observe(5, 5, now)
	events := tr.Observe(105, 105, now.Add(time.Millisecond))
	if len(events) != 2 {
		t.Fatalf("expected EXIT then ENTER, got %+v", events)
	}
	if events[0].Kind != model.SpatialEventExit || events[0].ZoneID != "a" {
		t.Errorf("first event = %+v, want EXIT a", events[0])
	}
	if events[1].Kind != model.SpatialEventEnter || events[1].ZoneID != "b" {
		t.Errorf("second event = %+v, want ENTER b", events[1])
	}
}

func TestObserveZoneDisappearsMidDwellEmitsExit(t *testing.T) {
	reg := zoneregistry.New()
	reg.Register(model.Zone{ID: "a", Bounds: model.Rectangle{X: 0, Y: 0, Width: 10, Height: 10}})
	tr := New(reg, time.Second)

	now := time.Now()
	tr.Observe(5, 5, now)

	reg.Remove("a")

	events := tr.Observe(5, 5, now.Add(time.Millisecond))
	if len(events) != 1 || events[0].Kind != model.SpatialEventExit || events[0].ZoneID != "a" {
		t.Fatalf("expected EXIT immediately once the current zone disappears, got %+v", events)
	}
}

func TestObserveTimestampsMonotonic(t *testing.T) {
	reg := zoneregistry.New()
	reg.RegisterMany([]model.Zone{
		{ID: "a", Bounds: model.Rectangle{X: 0, Y: 0, Width: 10, Height: 10}},
		{ID: "b", Bounds: model.Rectangle{X: 100, Y: 100, Width: 10, Height: 10}},
	})
	tr := New(reg, 10*time.Millisecond)

	now := time.Now()
	var all []model.SpatialEvent
	all = append(all, tr.Observe(5, 5, now)...)
	all = append(all, tr.Observe(5, 5, now.Add(20*time.Millisecond))...)
	all = append(all, tr.Observe(105, 105, now.Add(30*time.Millisecond))...)

	for i := 1; i < len(all); i++ {
		if all[i].Timestamp.Before(all[i-1].Timestamp) {
			t.Fatalf("event %d timestamp %v is before event %d timestamp %v", i, all[i].Timestamp, i-1, all[i-1].Timestamp)
		}
	}
}
