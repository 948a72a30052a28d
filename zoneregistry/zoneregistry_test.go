package zoneregistry

import (
	"sync"
	"testing"
	"time"

	"github.com/ciuagent/ciuagent/model"
)

func zone(id, label string, x, y, w, h int, confidence float64, lastSeen time.Time) model.Zone {
	return model.Zone{
		ID:         id,
		Label:      label,
		Kind:       model.ZoneKindButton,
		State:      model.ZoneStateEnabled,
		Bounds:     model.Rectangle{X: x, Y: y, Width: w, Height: h},
		Confidence: confidence,
		LastSeen:   lastSeen,
	}
}

func TestRegisterAndGet(t *testing.T) {
	r := New()
	now := time.Now()
	r.Register(zone("a", "Save", 0, 0, 10, 10, 0.9, now))

	got, ok := r.Get("a")
	if !ok {
		t.Fatal("expected zone a to be found")
	}
	if got.Label != "Save" {
		t.Errorf("Label = %q, want Save", got.Label)
	}
}

func TestRegisterRefreshesExistingID(t *testing.T) {
	r := New()
	now := time.Now()
	r.Register(zone("a", "Save", 0, 0, 10, 10, 0.9, now))
	r.Register(zone("a", "Save As", 1, 1, 12, 12, 0.95, now.Add(time.Second)))

	if got := r.Count(); got != 1 {
		t.Fatalf("Count() = %d, want 1 after refresh", got)
	}
	z, _ := r.Get("a")
	if z.Label != "Save As" {
		t.Errorf("Label = %q, want Save As", z.Label)
	}
}

func TestReplaceAllAtomicity(t *testing.T) {
	r := New()
	now := time.Now()
	r.RegisterMany([]model.Zone{
		zone("a", "A", 0, 0, 5, 5, 0.5, now),
		zone("b", "B", 10, 10, 5, 5, 0.5, now),
	})

	r.ReplaceAll([]model.Zone{zone("c", "C", 20, 20, 5, 5, 0.5, now)})

	all := r.All()
	if len(all) != 1 || all[0].ID != "c" {
		t.Fatalf("ReplaceAll should leave exactly the new set, got %+v", all)
	}
	if _, ok := r.Get("a"); ok {
		t.Error("zone a should have been removed by ReplaceAll")
	}
}

func TestReplaceAllConcurrentReadersSeeWholeSetOrOld(t *testing.T) {
	r := New()
	now := time.Now()
	r.RegisterMany([]model.Zone{zone("a", "A", 0, 0, 5, 5, 0.5, now)})

	var wg sync.WaitGroup
	counts := make(chan int, 100)
	wg.Add(1)
	go func() {
		defer wg.Done()
		zs := make([]model.Zone, 0, 50)
		for i := 0; i < 50; i++ {
			zs = append(zs, zone(string(rune('d'+i)), "X", i, i, 5, 5, 0.5, now))
		}
		r.ReplaceAll(zs)
	}()
	wg.Add(1)
	go func() {
		defer wg.Done()
		for i := 0; i < 100; i++ {
			counts <- r.Count()
		}
	}()
	wg.Wait()
	close(counts)
	for c := range counts {
		if c != 1 && c != 50 {
			t.Errorf("observed a half-updated registry size: %d", c)
		}
	}
}

func TestRemove(t *testing.T) {
	r := New()
	r.Register(zone("a", "A", 0, 0, 5, 5, 0.5, time.Now()))
	r.Remove("a")
	if _, ok := r.Get("a"); ok {
		t.Error("zone should be gone after Remove")
	}
	r.Remove("nonexistent") // should not panic
}

func TestFindByLabelCaseInsensitiveSubstring(t *testing.T) {
	r := New()
	now := time.Now()
	r.RegisterMany([]model.Zone{
		zone("a", "Save Button", 0, 0, 5, 5, 0.5, now),
		zone("b", "Cancel Button", 10, 10, 5, 5, 0.5, now),
		zone("c", "save as link", 20, 20, 5, 5, 0.5, now),
	})

	matches := r.FindByLabel("save")
	if len(matches) != 2 {
		t.Fatalf("FindByLabel(save) returned %d matches, want 2", len(matches))
	}
}

func TestFindByKind(t *testing.T) {
	r := New()
	now := time.Now()
	btn := zone("a", "A", 0, 0, 5, 5, 0.5, now)
	btn.Kind = model.ZoneKindButton
	field := zone("b", "B", 10, 10, 5, 5, 0.5, now)
	field.Kind = model.ZoneKindTextField
	r.RegisterMany([]model.Zone{btn, field})

	got := r.FindByKind(model.ZoneKindTextField)
	if len(got) != 1 || got[0].ID != "b" {
		t.Fatalf("FindByKind(text_field) = %+v, want just zone b", got)
	}
}

func TestFindAtPointSmallestWins(t *testing.T) {
	r := New()
	now := time.Now()
	big := zone("big", "Big", 0, 0, 100, 100, 0.5, now)
	small := zone("small", "Small", 10, 10, 10, 10, 0.5, now)
	r.RegisterMany([]model.Zone{big, small})

	got, ok := r.FindAtPoint(15, 15)
	if !ok || got.ID != "small" {
		t.Fatalf("FindAtPoint should prefer the smaller overlapping zone, got %+v, ok=%v", got, ok)
	}
}

func TestFindAtPointTieBreaksOnConfidenceThenRecency(t *testing.T) {
	r := New()
	now := time.Now()
	a := zone("a", "A", 0, 0, 10, 10, 0.5, now)
	b := zone("b", "B", 0, 0, 10, 10, 0.9, now)
	r.RegisterMany([]model.Zone{a, b})

	got, ok := r.FindAtPoint(5, 5)
	if !ok || got.ID != "b" {
		t.Fatalf("FindAtPoint should prefer higher confidence on equal area, got %+v", got)
	}

	r2 := New()
	c := zone("c", "C", 0, 0, 10, 10, 0.5, now)
	d := zone("d", "D", 0, 0, 10, 10, 0.5, now.Add(time.Second))
	r2.RegisterMany([]model.Zone{c, d})
	got2, ok2 := r2.FindAtPoint(5, 5)
	if !ok2 || got2.ID != "d" {
		t.Fatalf("FindAtPoint should prefer the most recently seen zone on a full tie, got %+v", got2)
	}
}

func TestFindAtPointNoMatch(t *testing.T) {
	r := New()
	r.Register(zone("a", "A", 0, 0, 10, 10, 0.5, time.Now()))
	if _, ok := r.FindAtPoint(500, 500); ok {
		t.Error("FindAtPoint should report not-found outside any zone")
	}
}

func TestNearestTo(t *testing.T) {
	r := New()
	now := time.Now()
	r.RegisterMany([]model.Zone{
		zone("near", "Near", 0, 0, 10, 10, 0.5, now),
		zone("far", "Far", 1000, 1000, 10, 10, 0.5, now),
	})
	got, ok := r.NearestTo(11, 5)
	if !ok || got.ID != "near" {
		t.Fatalf("NearestTo should return the closer zone, got %+v", got)
	}
}

func TestExpireStaleRemovesOnlyOldZones(t *testing.T) {
	r := New()
	now := time.Now()
	fresh := zone("fresh", "Fresh", 0, 0, 10, 10, 0.5, now)
	stale := zone("stale", "Stale", 10, 10, 10, 10, 0.5, now.Add(-2*time.Minute))
	r.RegisterMany([]model.Zone{fresh, stale})

	removed := r.ExpireStale(now, time.Minute)
	if len(removed) != 1 || removed[0] != "stale" {
		t.Fatalf("ExpireStale removed %v, want just [stale]", removed)
	}
	if _, ok := r.Get("fresh"); !ok {
		t.Error("fresh zone should survive ExpireStale")
	}
	if _, ok := r.Get("stale"); ok {
		t.Error("stale zone should be gone after ExpireStale")
	}
}

func TestCloneIsolation(t *testing.T) {
	r := New()
	r.Register(zone("a", "A", 0, 0, 10, 10, 0.5, time.Now()))

	got, _ := r.Get("a")
	got.Label = "Mutated"

	again, _ := r.Get("a")
	if again.Label == "Mutated" {
		t.Error("Get() should return a clone; mutating it must not affect the registry")
	}
}

func TestConcurrentRegisterNoRace(t *testing.T) {
	r := New()
	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			r.Register(zone(string(rune('a'+i%26)), "X", i, i, 5, 5, 0.5, time.Now()))
		}(i)
	}
	wg.Wait()
	if r.Count() > 26 {
		t.Errorf("Count() = %d, expected at most 26 distinct ids", r.Count())
	}
}
