// Package zonetracker watches the cursor position against the Zone
// Registry and emits ENTER/EXIT/HOVER spatial events as the cursor's
// relationship to known zones changes.
package zonetracker

import (
	"time"

	"github.com/ciuagent/ciuagent/model"
	"github.com/ciuagent/ciuagent/zoneregistry"
)

// Tracker maintains per-cursor dwell state and derives spatial events from
// successive cursor positions.
type Tracker struct {
	registry   *zoneregistry.Registry
	hoverAfter time.Duration

	currentZoneID string
	enteredAt     time.Time
	hoverFired    bool
}

// New builds a Tracker. hoverAfter is the dwell duration after which a
// sustained ENTER escalates to a HOVER event.
func New(registry *zoneregistry.Registry, hoverAfter time.Duration) *Tracker {
	return &Tracker{registry: registry, hoverAfter: hoverAfter}
}

// Observe reports the cursor's current position and returns the spatial
// events that should fire as a result, in order. now should be the
// caller's current time (injected for testability).
func (t *Tracker) Observe(x, y int, now time.Time) []model.SpatialEvent {
	zone, found := t.registry.FindAtPoint(x, y)

	var events []model.SpatialEvent

	switch {
	case !found && t.currentZoneID != "":
		events = append(events, model.SpatialEvent{
			Kind: model.SpatialEventExit, ZoneID: t.currentZoneID, X: x, Y: y, Timestamp: now,
		})
		t.reset()

	case found && t.currentZoneID == "":
		t.currentZoneID = zone.ID
		t.enteredAt = now
		t.hoverFired = false
		events = append(events, model.SpatialEvent{
			Kind: model.SpatialEventEnter, ZoneID: zone.ID, X: x, Y: y, Timestamp: now,
		})

	case found && zone.ID != t.currentZoneID:
		events = append(events, model.SpatialEvent{
			Kind: model.SpatialEventExit, ZoneID: t.currentZoneID, X: x, Y: y, Timestamp: now,
		})
		t.currentZoneID = zone.ID
		t.enteredAt = now
		t.hoverFired = false
		events = append(events, model.SpatialEvent{
			Kind: model.SpatialEventEnter, ZoneID: zone.ID, X: x, Y: y, Timestamp: now,
		})

	case found && zone.ID == t.currentZoneID:
		if !t.hoverFired && t.hoverAfter > 0 && now.Sub(t.enteredAt) >= t.hoverAfter {
			t.hoverFired = true
			events = append(events, model.SpatialEvent{
				Kind: model.SpatialEventHover, ZoneID: zone.ID, X: x, Y: y, Timestamp: now,
				DwellMs: now.Sub(t.enteredAt).Milliseconds(),
			})
		}
	}

	return events
}

// CurrentZone returns the id of the zone the cursor currently occupies, or
// "" if the cursor is outside every known zone.
func (t *Tracker) CurrentZone() string { return t.currentZoneID }

func (t *Tracker) reset() {
	t.currentZoneID = ""
	t.hoverFired = false
}
