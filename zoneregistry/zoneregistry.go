// Package zoneregistry implements the Zone Registry: the only shared
// mutable state in the agent. A single mutex guards every mutation, and
// every read returns cloned values so no long-held reference into the
// registry's internal map ever escapes to a caller.
package zoneregistry

import (
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/ciuagent/ciuagent/model"
)

// Registry is the concurrent zone store.
type Registry struct {
	mu    sync.RWMutex
	zones map[string]model.Zone
}

// New creates an empty Registry.
func New() *Registry {
	return &Registry{zones: make(map[string]model.Zone)}
}

// Register inserts or refreshes a single zone, advancing LastSeen.
func (r *Registry) Register(z model.Zone) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if z.LastSeen.IsZero() {
		z.LastSeen = time.Now()
	}
	r.zones[z.ID] = z.Clone()
}

// RegisterMany registers every zone in zs.
func (r *Registry) RegisterMany(zs []model.Zone) {
	r.mu.Lock()
	defer r.mu.Unlock()
	now := time.Now()
	for _, z := range zs {
		if z.LastSeen.IsZero() {
			z.LastSeen = now
		}
		r.zones[z.ID] = z.Clone()
	}
}

// ReplaceAll atomically swaps the entire zone set. Zone ids not present in
// zs are removed. Callers that observe All() immediately after ReplaceAll
// see exactly zs (modulo LastSeen stamping).
func (r *Registry) ReplaceAll(zs []model.Zone) {
	r.mu.Lock()
	defer r.mu.Unlock()
	now := time.Now()
	next := make(map[string]model.Zone, len(zs))
	for _, z := range zs {
		if z.LastSeen.IsZero() {
			z.LastSeen = now
		}
		next[z.ID] = z.Clone()
	}
	r.zones = next
}

// Remove deletes a zone by id. It is a no-op if the id is absent.
func (r *Registry) Remove(id string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.zones, id)
}

// Get returns a clone of the zone with the given id.
func (r *Registry) Get(id string) (model.Zone, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	z, ok := r.zones[id]
	if !ok {
		return model.Zone{}, false
	}
	return z.Clone(), true
}

// All returns a clone of every zone currently registered.
func (r *Registry) All() []model.Zone {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]model.Zone, 0, len(r.zones))
	for _, z := range r.zones {
		out = append(out, z.Clone())
	}
	return out
}

// Count returns the number of zones currently registered.
func (r *Registry) Count() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.zones)
}

// FindByLabel returns every zone whose label contains s, case-insensitively.
func (r *Registry) FindByLabel(s string) []model.Zone {
	r.mu.RLock()
	defer r.mu.RUnlock()
	needle := strings.ToLower(s)
	var out []model.Zone
	for _, z := range r.zones {
		if strings.Contains(strings.ToLower(z.Label), needle) {
			out = append(out, z.Clone())
		}
	}
	return out
}

// FindByKind returns every zone of the given kind.
func (r *Registry) FindByKind(k model.ZoneKind) []model.Zone {
	r.mu.RLock()
	defer r.mu.RUnlock()
	var out []model.Zone
	for _, z := range r.zones {
		if z.Kind == k {
			out = append(out, z.Clone())
		}
	}
	return out
}

// FindAtPoint returns the smallest zone containing (x, y), breaking ties by
// highest confidence then most recent LastSeen. Returns false if no zone
// contains the point.
func (r *Registry) FindAtPoint(x, y int) (model.Zone, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	var best model.Zone
	found := false
	for _, z := range r.zones {
		if !z.Bounds.Contains(x, y) {
			continue
		}
		if !found || better(z, best) {
			best = z
			found = true
		}
	}
	if !found {
		return model.Zone{}, false
	}
	return best.Clone(), true
}

func better(candidate, current model.Zone) bool {
	ca, cb := candidate.Bounds.Area(), current.Bounds.Area()
	if ca != cb {
		return ca < cb
	}
	if candidate.Confidence != current.Confidence {
		return candidate.Confidence > current.Confidence
	}
	return candidate.LastSeen.After(current.LastSeen)
}

// NearestTo returns the zone whose bounds edge is closest to (x, y).
func (r *Registry) NearestTo(x, y int) (model.Zone, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	var best model.Zone
	bestDist := -1.0
	found := false
	for _, z := range r.zones {
		d := edgeDistance(z.Bounds, x, y)
		if !found || d < bestDist {
			best, bestDist, found = z, d, true
		}
	}
	if !found {
		return model.Zone{}, false
	}
	return best.Clone(), true
}

func edgeDistance(r model.Rectangle, x, y int) float64 {
	dx := 0
	if x < r.X {
		dx = r.X - x
	} else if x >= r.X+r.Width {
		dx = x - (r.X + r.Width - 1)
	}
	dy := 0
	if y < r.Y {
		dy = r.Y - y
	} else if y >= r.Y+r.Height {
		dy = y - (r.Y + r.Height - 1)
	}
	return float64(dx*dx + dy*dy)
}

// ExpireStale removes every zone whose LastSeen is older than maxAge
// relative to now, returning the removed ids in a stable (sorted) order.
func (r *Registry) ExpireStale(now time.Time, maxAge time.Duration) []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	var removed []string
	for id, z := range r.zones {
		if now.Sub(z.LastSeen) > maxAge {
			removed = append(removed, id)
			delete(r.zones, id)
		}
	}
	sort.Strings(removed)
	return removed
}
