package classify

import (
	"testing"
	"time"

	"github.com/ciuagent/ciuagent/model"
)

func solidFrame(w, h int, gray byte, cursorX, cursorY int) model.Frame {
	pixels := make([]byte, w*h*4)
	for i := 0; i < len(pixels); i += 4 {
		pixels[i] = gray
		pixels[i+1] = gray
		pixels[i+2] = gray
		pixels[i+3] = 255
	}
	return model.Frame{Pixels: pixels, Width: w, Height: h, Timestamp: time.Now(), CursorX: cursorX, CursorY: cursorY}
}

func TestClassifyFirstFrameIsContentChange(t *testing.T) {
	c := New(0.5, 30, 0)
	result := c.Classify(model.Frame{}, solidFrame(32, 32, 100, 0, 0))
	if result.Outcome != ContentChange {
		t.Fatalf("Outcome = %v, want CONTENT_CHANGE for the very first frame", result.Outcome)
	}
}

func TestClassifyIdenticalFramesAreIdle(t *testing.T) {
	c := New(0.5, 30, 0)
	a := solidFrame(32, 32, 100, 0, 0)
	b := solidFrame(32, 32, 100, 0, 0)
	result := c.Classify(a, b)
	if result.Outcome != Idle {
		t.Fatalf("Outcome = %v, want IDLE for identical frames", result.Outcome)
	}
}

func TestClassifyDeterministic(t *testing.T) {
	c := New(0.5, 30, 0)
	a := solidFrame(32, 32, 50, 0, 0)
	b := solidFrame(32, 32, 200, 0, 0)
	r1 := c.Classify(a, b)

	c2 := New(0.5, 30, 0)
	r2 := c2.Classify(a, b)

	if r1.Outcome != r2.Outcome || r1.ChangedPct != r2.ChangedPct || r1.BBox != r2.BBox {
		t.Fatalf("Classify is not deterministic: %+v vs %+v", r1, r2)
	}
}

func TestClassifyCursorOnlySmallChangeNearCursor(t *testing.T) {
	c := New(0.5, 30, 0)
	a := solidFrame(320, 320, 50, 16, 16)
	b := solidFrame(320, 320, 50, 16, 16)
	// Change a 24x24 block region (9 of 1600 blocks, ~0.56%) around the
	// cursor: enough to clear diff_threshold_percent while staying inside
	// the cursor-diff area ceiling and centered on the cursor.
	for y := 8; y < 32; y++ {
		for x := 8; x < 32; x++ {
			idx := (y*320 + x) * 4
			b.Pixels[idx] = 250
			b.Pixels[idx+1] = 250
			b.Pixels[idx+2] = 250
		}
	}
	result := c.Classify(a, b)
	if result.Outcome != CursorOnly {
		t.Fatalf("Outcome = %v, want CURSOR_ONLY, pct=%v bbox=%+v", result.Outcome, result.ChangedPct, result.BBox)
	}
}

func TestClassifyFullScreenChangeIsContentChange(t *testing.T) {
	c := New(0.5, 30, 0)
	a := solidFrame(64, 64, 10, 0, 0)
	b := solidFrame(64, 64, 250, 0, 0)
	result := c.Classify(a, b)
	if result.Outcome != ContentChange {
		t.Fatalf("Outcome = %v, want CONTENT_CHANGE for a full-screen change", result.Outcome)
	}
}

func TestClassifyTransitioningThenSettles(t *testing.T) {
	c := New(0.5, 30, 100)
	a := solidFrame(320, 320, 10, 0, 0)
	b := solidFrame(320, 320, 200, 0, 0)

	fixed := time.Now()
	c.now = func() time.Time { return fixed }
	r1 := c.Classify(a, b)
	if r1.Outcome != Transitioning {
		t.Fatalf("first differing frame should be TRANSITIONING, got %v", r1.Outcome)
	}

	c.now = func() time.Time { return fixed.Add(50 * time.Millisecond) }
	r2 := c.Classify(a, b)
	if r2.Outcome != Transitioning {
		t.Fatalf("still within stability window, expected TRANSITIONING, got %v", r2.Outcome)
	}

	c.now = func() time.Time { return fixed.Add(150 * time.Millisecond) }
	r3 := c.Classify(a, b)
	if r3.Outcome == Transitioning {
		t.Fatalf("after the stability window elapses, classifier should commit to a verdict, got %v", r3.Outcome)
	}
}

func TestClassifyMinorVsContentBySize(t *testing.T) {
	c := New(0.5, 50, 0)
	width, height := 320, 320
	a := solidFrame(width, height, 10, 200, 200)
	bSmall := solidFrame(width, height, 10, 200, 200)
	// Change a small corner region (well under 40% of screen area).
	for y := 0; y < 32; y++ {
		for x := 0; x < 32; x++ {
			idx := (y*width + x) * 4
			bSmall.Pixels[idx] = 250
			bSmall.Pixels[idx+1] = 250
			bSmall.Pixels[idx+2] = 250
		}
	}
	result := c.Classify(a, bSmall)
	if result.Outcome != MinorUpdate {
		t.Fatalf("small changed region should be MINOR_UPDATE, got %v (pct=%v bbox=%+v)", result.Outcome, result.ChangedPct, result.BBox)
	}
}

func TestClassifyWindowSwitchForcesContentChangeDespiteLowDiff(t *testing.T) {
	c := New(0.5, 30, 0)
	a := solidFrame(320, 320, 100, 0, 0)
	b := solidFrame(320, 320, 100, 0, 0)
	a.Window = model.WindowInfo{Title: "Notes", ClassName: "notes.app", ProcessID: 100}
	b.Window = model.WindowInfo{Title: "Terminal", ClassName: "terminal.app", ProcessID: 200}

	result := c.Classify(a, b)
	if result.Outcome != ContentChange {
		t.Fatalf("Outcome = %v, want CONTENT_CHANGE when the foreground window identity changes, even with 0%% pixel diff", result.Outcome)
	}
}

func TestClassifyMissingWindowInfoNeverTriggersHeuristic(t *testing.T) {
	c := New(0.5, 30, 0)
	a := solidFrame(320, 320, 100, 0, 0)
	b := solidFrame(320, 320, 100, 0, 0)
	// Neither frame carries window info (Adapter without ActiveWindow
	// support): the heuristic must never fire off the zero value.
	result := c.Classify(a, b)
	if result.Outcome != Idle {
		t.Fatalf("Outcome = %v, want IDLE when window info is absent from both frames", result.Outcome)
	}
}
