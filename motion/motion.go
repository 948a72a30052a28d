// Package motion computes cursor trajectories between two points: a direct
// straight line, a line that detours around obstacle rectangles, or a
// lawnmower sweep pattern for exploratory scanning of a region.
package motion

import (
	"math"

	"github.com/ciuagent/ciuagent/model"
)

// Point is a single waypoint in a trajectory.
type Point struct {
	X, Y int
}

// Mode selects the trajectory generation strategy.
type Mode int

const (
	// Direct produces a single straight-line path, ignoring obstacles.
	Direct Mode = iota
	// Safe produces a path that detours around any obstacle rectangle the
	// direct line would cross.
	Safe
	// Exploratory produces a lawnmower grid sweep covering a region.
	Exploratory
)

// detourMargin is added on each side of an obstacle when routing around it.
const detourMargin = 12

// Plan computes the waypoints for one trajectory.
func Plan(mode Mode, from, to Point, obstacles []model.Rectangle, region model.Rectangle, step int) []Point {
	switch mode {
	case Exploratory:
		return lawnmower(region, step)
	case Safe:
		return safePath(from, to, obstacles)
	default:
		return []Point{from, to}
	}
}

// safePath returns a direct path when it crosses no obstacle, or a
// waypoint list that detours around the first obstacle it intersects,
// recursing on each resulting leg until no leg crosses an obstacle.
func safePath(from, to Point, obstacles []model.Rectangle) []Point {
	for _, ob := range obstacles {
		if !lineIntersectsRect(from, to, ob) {
			continue
		}
		detour := detourPoint(from, to, ob)
		left := safePath(from, detour, obstacles)
		right := safePath(detour, to, obstacles)
		return append(left[:len(left)-1], right...)
	}
	return []Point{from, to}
}

// detourPoint picks a waypoint just outside the obstacle, offset toward
// whichever side of the obstacle's center the straight line passes closer
// to, so the detour stays short.
func detourPoint(from, to Point, ob model.Rectangle) Point {
	cx, cy := ob.Center()
	midX := (from.X + to.X) / 2
	midY := (from.Y + to.Y) / 2

	left := ob.X - detourMargin
	right := ob.X + ob.Width + detourMargin
	top := ob.Y - detourMargin
	bottom := ob.Y + ob.Height + detourMargin

	horizontalSpan := abs(to.X - from.X)
	verticalSpan := abs(to.Y - from.Y)

	if horizontalSpan >= verticalSpan {
		// Path is more horizontal: detour vertically above or below.
		if midY < cy {
			return Point{X: ob.X + ob.Width/2, Y: top}
		}
		return Point{X: ob.X + ob.Width/2, Y: bottom}
	}
	// Path is more vertical: detour horizontally left or right.
	if midX < cx {
		return Point{X: left, Y: ob.Y + ob.Height/2}
	}
	return Point{X: right, Y: ob.Y + ob.Height/2}
}

// lineIntersectsRect implements the Liang-Barsky parametric clipping test
// for whether the segment from..to crosses the rectangle r.
func lineIntersectsRect(from, to Point, r model.Rectangle) bool {
	if r.Empty() {
		return false
	}
	dx := float64(to.X - from.X)
	dy := float64(to.Y - from.Y)

	tMin, tMax := 0.0, 1.0

	clip := func(p, q float64) bool {
		if p == 0 {
			return q >= 0
		}
		t := q / p
		if p < 0 {
			if t > tMax {
				return false
			}
			if t > tMin {
				tMin = t
			}
		} else {
			if t < tMin {
				return false
			}
			if t < tMax {
				tMax = t
			}
		}
		return true
	}

	x0, y0 := float64(from.X), float64(from.Y)
	xMin, xMax := float64(r.X), float64(r.X+r.Width)
	yMin, yMax := float64(r.Y), float64(r.Y+r.Height)

	if !clip(-dx, x0-xMin) {
		return false
	}
	if !clip(dx, xMax-x0) {
		return false
	}
	if !clip(-dy, y0-yMin) {
		return false
	}
	if !clip(dy, yMax-y0) {
		return false
	}
	return tMin <= tMax
}

// lawnmower produces a row-major back-and-forth sweep of region at the
// given pixel step, for exploratory scanning when no zone information is
// available yet.
func lawnmower(region model.Rectangle, step int) []Point {
	if region.Empty() || step <= 0 {
		return nil
	}
	var pts []Point
	leftToRight := true
	for y := region.Y; y < region.Y+region.Height; y += step {
		if leftToRight {
			for x := region.X; x < region.X+region.Width; x += step {
				pts = append(pts, Point{X: x, Y: y})
			}
		} else {
			for x := region.X + region.Width - 1; x >= region.X; x -= step {
				pts = append(pts, Point{X: x, Y: y})
			}
		}
		leftToRight = !leftToRight
	}
	return pts
}

// Interpolate subdivides path so that no two consecutive points are farther
// apart than maxStep pixels, preserving every original waypoint. Endpoints
// of a degenerate path (fewer than two points) are returned unchanged. This
// is what lets the Brush Controller pace a trajectory at a bounded pixels-
// per-second speed: callers derive maxStep from motion_speed_pixels_per_sec
// and the desired per-tick duration.
func Interpolate(path []Point, maxStep float64) []Point {
	if len(path) < 2 || maxStep <= 0 {
		return path
	}
	out := []Point{path[0]}
	for i := 1; i < len(path); i++ {
		from, to := path[i-1], path[i]
		dx, dy := float64(to.X-from.X), float64(to.Y-from.Y)
		dist := math.Sqrt(dx*dx + dy*dy)
		steps := int(math.Ceil(dist / maxStep))
		if steps < 1 {
			steps = 1
		}
		for s := 1; s <= steps; s++ {
			t := float64(s) / float64(steps)
			out = append(out, Point{
				X: from.X + int(math.Round(dx*t)),
				Y: from.Y + int(math.Round(dy*t)),
			})
		}
	}
	return out
}

// PathLength returns the total Euclidean length of a waypoint path.
func PathLength(pts []Point) float64 {
	total := 0.0
	for i := 1; i < len(pts); i++ {
		dx := float64(pts[i].X - pts[i-1].X)
		dy := float64(pts[i].Y - pts[i-1].Y)
		total += math.Sqrt(dx*dx + dy*dy)
	}
	return total
}

func abs(v int) int {
	if v < 0 {
		return -v
	}
	return v
}
