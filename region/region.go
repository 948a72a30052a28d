// Package region implements the Region Analyzer: the mid tier of the
// perception pipeline. It never performs remote calls; it orchestrates a
// pinned-out-of-scope set of local image primitives (OCR, contour/template
// matching) over a bounded sub-rectangle of one frame.
package region

import (
	"context"

	"github.com/ciuagent/ciuagent/model"
)

// Primitives is the out-of-scope capability the Region Analyzer delegates
// to: OCR/contour/template-matching logic that the core never implements
// itself. A production build wires a real computer-vision library here; the
// orchestrator in this package is agnostic to which one.
type Primitives interface {
	// Detect returns candidate zones found within bbox of frame. It never
	// returns an error for "nothing found" — an empty slice is the normal
	// case; an error return is reserved for the primitive itself failing
	// (e.g. corrupted frame).
	Detect(ctx context.Context, frame model.Frame, bbox model.Rectangle) ([]model.Zone, error)
}

// Analyzer is the mid-tier orchestrator.
type Analyzer struct {
	primitives        Primitives
	minZoneConfidence float64
}

// New builds an Analyzer. minZoneConfidence filters out low-confidence
// candidates before they reach the Zone Registry.
func New(primitives Primitives, minZoneConfidence float64) *Analyzer {
	return &Analyzer{primitives: primitives, minZoneConfidence: minZoneConfidence}
}

// Analyze runs the local primitives over bbox and returns the zones that
// clear the confidence floor, each clipped so Bounds ⊆ bbox. Failures from
// the underlying primitives degrade to an empty result rather than
// propagating, matching the mid tier's "never raise" contract.
func (a *Analyzer) Analyze(ctx context.Context, frame model.Frame, bbox model.Rectangle) []model.Zone {
	if a.primitives == nil {
		return nil
	}
	candidates, err := a.primitives.Detect(ctx, frame, bbox)
	if err != nil {
		return nil
	}

	out := make([]model.Zone, 0, len(candidates))
	for _, z := range candidates {
		if z.Confidence < a.minZoneConfidence {
			continue
		}
		z.Bounds = clip(z.Bounds, bbox)
		if z.Bounds.Empty() {
			continue
		}
		out = append(out, z)
	}
	return out
}

func clip(r, bound model.Rectangle) model.Rectangle {
	x0 := max(r.X, bound.X)
	y0 := max(r.Y, bound.Y)
	x1 := min(r.X+r.Width, bound.X+bound.Width)
	y1 := min(r.Y+r.Height, bound.Y+bound.Height)
	if x1 <= x0 || y1 <= y0 {
		return model.Rectangle{}
	}
	return model.Rectangle{X: x0, Y: y0, Width: x1 - x0, Height: y1 - y0}
}
