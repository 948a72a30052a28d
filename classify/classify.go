// Package classify implements the frame-diff Change Classifier: the cheapest
// tier of the perception pipeline, deciding whether two consecutive frames
// warrant any further analysis at all.
package classify

import (
	"image"
	"image/color"
	"sync"
	"time"

	"golang.org/x/image/draw"

	"github.com/ciuagent/ciuagent/model"
)

// Outcome enumerates the classifier's possible verdicts.
type Outcome string

const (
	Idle          Outcome = "IDLE"
	CursorOnly    Outcome = "CURSOR_ONLY"
	MinorUpdate   Outcome = "MINOR_UPDATE"
	ContentChange Outcome = "CONTENT_CHANGE"
	Transitioning Outcome = "TRANSITIONING"
)

// blockSize is the edge length, in source pixels, of each comparison block.
const blockSize = 8

// cursorDiffAreaCeiling bounds how large a changed bbox can be and still be
// attributed to cursor movement alone.
const cursorDiffAreaCeiling = 40 * 40

// Result is the full output of one classification pass.
type Result struct {
	Outcome    Outcome
	ChangedPct float64
	BBox       model.Rectangle
}

// Classifier holds the thresholds that parameterize classification; these
// mirror settings.Settings fields but are copied in to keep this package
// free of a settings import cycle.
//
// A Classifier is stateful across calls: it tracks how long the screen has
// been continuously differing so it can tell a settling UI (TRANSITIONING)
// from a change that has held steady long enough to commit to a verdict.
type Classifier struct {
	DiffThresholdPercent  float64
	Tier2ThresholdPercent float64
	StabilityWaitMs       int

	now func() time.Time

	mu          sync.Mutex
	settling    bool
	settleStart time.Time
}

// New builds a Classifier from the spec's threshold values.
func New(diffThresholdPercent, tier2ThresholdPercent float64, stabilityWaitMs int) *Classifier {
	return &Classifier{
		DiffThresholdPercent:  diffThresholdPercent,
		Tier2ThresholdPercent: tier2ThresholdPercent,
		StabilityWaitMs:       stabilityWaitMs,
		now:                   time.Now,
	}
}

// Classify compares two frames of equal dimensions and returns a
// deterministic verdict. If previous has no pixels (the very first frame of
// a session), the result is always CONTENT_CHANGE.
func (c *Classifier) Classify(previous, current model.Frame) Result {
	if len(previous.Pixels) == 0 {
		return Result{Outcome: ContentChange, ChangedPct: 100, BBox: model.Rectangle{X: 0, Y: 0, Width: current.Width, Height: current.Height}}
	}

	prevImg := toGray(previous)
	curImg := toGray(current)

	changedBlocks := 0
	totalBlocks := 0
	minX, minY := current.Width, current.Height
	maxX, maxY := 0, 0

	for y := 0; y < current.Height; y += blockSize {
		for x := 0; x < current.Width; x += blockSize {
			totalBlocks++
			if blockDiffers(prevImg, curImg, x, y, blockSize) {
				changedBlocks++
				if x < minX {
					minX = x
				}
				if y < minY {
					minY = y
				}
				if x+blockSize > maxX {
					maxX = x + blockSize
				}
				if y+blockSize > maxY {
					maxY = y + blockSize
				}
			}
		}
	}

	pct := 0.0
	if totalBlocks > 0 {
		pct = 100.0 * float64(changedBlocks) / float64(totalBlocks)
	}

	var bbox model.Rectangle
	if changedBlocks > 0 {
		bbox = model.Rectangle{X: minX, Y: minY, Width: maxX - minX, Height: maxY - minY}
	}

	windowChanged := windowIdentityChanged(previous.Window, current.Window)
	return Result{Outcome: c.classify(pct, bbox, current, windowChanged), ChangedPct: pct, BBox: bbox}
}

// windowIdentityChanged reports whether the foreground window changed
// between two frames, used as the OR-branch of CONTENT_CHANGE detection
// alongside the pixel-diff threshold. Returns false whenever either frame
// lacks window information, since an Adapter that doesn't implement
// ActiveWindow reports the zero WindowInfo for every frame and must never
// spuriously trigger the heuristic.
func windowIdentityChanged(previous, current model.WindowInfo) bool {
	if previous == (model.WindowInfo{}) || current == (model.WindowInfo{}) {
		return false
	}
	return previous.Title != current.Title || previous.ClassName != current.ClassName || previous.ProcessID != current.ProcessID
}

func (c *Classifier) classify(pct float64, bbox model.Rectangle, current model.Frame, windowChanged bool) Outcome {
	if windowChanged {
		c.resetSettling()
		return ContentChange
	}
	if pct < c.DiffThresholdPercent {
		c.resetSettling()
		return Idle
	}
	if bbox.Area() <= cursorDiffAreaCeiling && bbox.Contains(current.CursorX, current.CursorY) {
		c.resetSettling()
		return CursorOnly
	}

	if c.StabilityWaitMs > 0 {
		if transitioning := c.observeChange(); transitioning {
			return Transitioning
		}
	}

	screenArea := current.Width * current.Height
	if pct < c.Tier2ThresholdPercent {
		if screenArea == 0 || float64(bbox.Area())/float64(screenArea) <= 0.40 {
			return MinorUpdate
		}
		return ContentChange
	}
	return ContentChange
}

// observeChange records that the current frame still differs from the
// previous one and reports whether the caller should still treat the
// screen as TRANSITIONING rather than committing to a final verdict. The
// first differing frame always starts a settling window and returns true;
// subsequent differing frames keep returning true until StabilityWaitMs
// has elapsed since the window opened, at which point the window closes
// and the real verdict (MINOR_UPDATE/CONTENT_CHANGE) is allowed through.
func (c *Classifier) observeChange() bool {
	c.mu.Lock()
	defer c.mu.Unlock()

	now := c.clock()
	wait := time.Duration(c.StabilityWaitMs) * time.Millisecond

	if !c.settling {
		c.settling = true
		c.settleStart = now
		return true
	}
	if now.Sub(c.settleStart) < wait {
		return true
	}
	c.settling = false
	return false
}

func (c *Classifier) resetSettling() {
	c.mu.Lock()
	c.settling = false
	c.mu.Unlock()
}

func (c *Classifier) clock() time.Time {
	if c.now != nil {
		return c.now()
	}
	return time.Now()
}

// toGray downsamples a frame's pixels to an 8-bit grayscale image using
// golang.org/x/image/draw's approximate box filter, matching the block
// granularity used by blockDiffers.
func toGray(f model.Frame) *image.Gray {
	src := &image.RGBA{Pix: f.Pixels, Stride: f.Width * 4, Rect: image.Rect(0, 0, f.Width, f.Height)}
	dst := image.NewGray(image.Rect(0, 0, f.Width, f.Height))
	draw.Draw(dst, dst.Bounds(), src, image.Point{}, draw.Src)
	return dst
}

func blockDiffers(a, b *image.Gray, x, y, size int) bool {
	bounds := a.Bounds()
	const threshold = 24 // luminance delta per block-average pixel

	var sumA, sumB int
	count := 0
	for yy := y; yy < y+size && yy < bounds.Max.Y; yy++ {
		for xx := x; xx < x+size && xx < bounds.Max.X; xx++ {
			sumA += int(a.GrayAt(xx, yy).Y)
			sumB += int(b.GrayAt(xx, yy).Y)
			count++
		}
	}
	if count == 0 {
		return false
	}
	avgA := sumA / count
	avgB := sumB / count
	delta := avgA - avgB
	if delta < 0 {
		delta = -delta
	}
	return delta > threshold
}

// luminance is kept for callers outside this package that need a single
// pixel's weighted luminance (e.g. the Region Analyzer's local primitives).
func luminance(c color.Color) uint8 {
	r, g, b, _ := c.RGBA()
	return uint8((299*r + 587*g + 114*b) / 1000 >> 8)
}
