// Package tessellate approximates continuous kernel curves by chains of
// straight native edges. Every point of the source curve lies within the
// requested tolerance of the produced polyline. The conversion is lossy and
// one-way.
package tessellate

import (
	"errors"
	"fmt"
	"math"

	"github.com/chazu/brepbridge/pkg/geom"
	"github.com/chazu/brepbridge/pkg/kernel"
	v3 "github.com/deadsy/sdfx/vec/v3"
)

// DefaultTolerance is the chord deviation used when callers have no preference.
const DefaultTolerance = 0.01

// maxDepth bounds recursive subdivision; 2^16 segments per curve at most.
const maxDepth = 16

// maxArcSegments bounds uniform arc subdivision.
const maxArcSegments = 1 << maxDepth

// minDepth forces a few subdivisions on generic curves so that a curve whose
// midpoint happens to sit on the chord is not accepted as straight.
const minDepth = 3

var (
	ErrDegenerateCurve  = errors.New("tessellate: degenerate curve")
	ErrInvalidTolerance = errors.New("tessellate: tolerance must be finite and positive")
)

// Tessellate converts c into an ordered chain of edges whose maximum
// deviation from c does not exceed tol. A line yields exactly one edge.
func Tessellate(c kernel.Curve, tol float64) ([]geom.Edge, error) {
	pts, err := Points(c, tol)
	if err != nil {
		return nil, err
	}
	edges := make([]geom.Edge, len(pts)-1)
	for i := range edges {
		edges[i] = geom.Edge{Start: geom.FromVec(pts[i]), End: geom.FromVec(pts[i+1])}
	}
	return edges, nil
}

// Points returns the polyline vertices approximating c, first point at
// c.Start() and last at c.End(). Consecutive coincident points are dropped.
func Points(c kernel.Curve, tol float64) ([]v3.Vec, error) {
	if math.IsNaN(tol) || math.IsInf(tol, 0) || tol <= 0 {
		return nil, fmt.Errorf("%w: got %g", ErrInvalidTolerance, tol)
	}
	if c == nil {
		return nil, fmt.Errorf("%w: nil curve", ErrDegenerateCurve)
	}

	var pts []v3.Vec
	switch c.Kind() {
	case kernel.KindLine:
		pts = []v3.Vec{c.Start(), c.End()}
	case kernel.KindArc:
		if a, ok := c.(kernel.Arc); ok {
			pts = arcPoints(a, tol)
		}
	case kernel.KindBezier:
		if b, ok := c.(kernel.Bezier); ok {
			pts = append([]v3.Vec{b.P[0]}, bezierPoints(b.P, tol, 0)...)
		}
	case kernel.KindPolyline:
		if p, ok := c.(kernel.Polyline); ok {
			pts = append([]v3.Vec(nil), p.Points...)
		}
	}
	if pts == nil {
		pts = genericPoints(c, tol)
	}

	for _, p := range pts {
		if !finite(p) {
			return nil, fmt.Errorf("%w: non-finite point %v", ErrDegenerateCurve, p)
		}
	}
	pts = dedupe(pts)
	if len(pts) < 2 {
		return nil, fmt.Errorf("%w: %s curve collapses to a point", ErrDegenerateCurve, c.Kind())
	}
	return pts, nil
}

// arcPoints subdivides an arc uniformly. The chord of angle θ deviates from
// the arc by the sagitta r(1-cos(θ/2)), so θ = 2·acos(1-tol/r) is the widest
// admissible step. At least three chords are used per full turn.
func arcPoints(a kernel.Arc, tol float64) []v3.Vec {
	sweep := math.Abs(a.Sweep)
	maxStep := 2 * math.Pi / 3
	if tol < a.Radius {
		maxStep = math.Min(maxStep, 2*math.Acos(1-tol/a.Radius))
	}
	n := int(math.Ceil(sweep / maxStep))
	if n < 1 {
		n = 1
	}
	if n > maxArcSegments {
		n = maxArcSegments
	}
	pts := make([]v3.Vec, n+1)
	for i := 0; i <= n; i++ {
		pts[i] = a.Eval(float64(i) / float64(n))
	}
	return pts
}

// bezierPoints flattens a cubic by de Casteljau subdivision. A piece is
// accepted once both inner control points are within tol of its chord; the
// piece lies in the hull of its control points, so its deviation is bounded
// by the same distance. The start point is not emitted.
func bezierPoints(p [4]v3.Vec, tol float64, depth int) []v3.Vec {
	if depth >= maxDepth ||
		(segmentDistance(p[1], p[0], p[3]) <= tol && segmentDistance(p[2], p[0], p[3]) <= tol) {
		return []v3.Vec{p[3]}
	}
	p01 := mid(p[0], p[1])
	p12 := mid(p[1], p[2])
	p23 := mid(p[2], p[3])
	p012 := mid(p01, p12)
	p123 := mid(p12, p23)
	m := mid(p012, p123)

	left := bezierPoints([4]v3.Vec{p[0], p01, p012, m}, tol, depth+1)
	right := bezierPoints([4]v3.Vec{m, p123, p23, p[3]}, tol, depth+1)
	return append(left, right...)
}

// genericPoints adaptively bisects the parameter range, probing the
// quarter and midpoints of each interval against its chord.
func genericPoints(c kernel.Curve, tol float64) []v3.Vec {
	start := c.Eval(0)
	pts := []v3.Vec{start}
	var rec func(t0, t1 float64, p0, p1 v3.Vec, depth int)
	rec = func(t0, t1 float64, p0, p1 v3.Vec, depth int) {
		tm := (t0 + t1) / 2
		pm := c.Eval(tm)
		if depth >= maxDepth || (depth >= minDepth && flatEnough(c, t0, t1, p0, p1, pm, tol)) {
			pts = append(pts, p1)
			return
		}
		rec(t0, tm, p0, pm, depth+1)
		rec(tm, t1, pm, p1, depth+1)
	}
	rec(0, 1, start, c.Eval(1), 0)
	return pts
}

func flatEnough(c kernel.Curve, t0, t1 float64, p0, p1, pm v3.Vec, tol float64) bool {
	if segmentDistance(pm, p0, p1) > tol {
		return false
	}
	dt := t1 - t0
	return segmentDistance(c.Eval(t0+dt/4), p0, p1) <= tol &&
		segmentDistance(c.Eval(t0+3*dt/4), p0, p1) <= tol
}

// segmentDistance returns the distance from p to the segment ab.
func segmentDistance(p, a, b v3.Vec) float64 {
	ab := b.Sub(a)
	l2 := ab.Dot(ab)
	if l2 == 0 {
		return p.Sub(a).Length()
	}
	t := math.Max(0, math.Min(1, p.Sub(a).Dot(ab)/l2))
	return p.Sub(a.Add(ab.MulScalar(t))).Length()
}

func mid(a, b v3.Vec) v3.Vec {
	return a.Add(b).MulScalar(0.5)
}

func finite(p v3.Vec) bool {
	for _, f := range [3]float64{p.X, p.Y, p.Z} {
		if math.IsNaN(f) || math.IsInf(f, 0) {
			return false
		}
	}
	return true
}

func dedupe(pts []v3.Vec) []v3.Vec {
	if len(pts) == 0 {
		return pts
	}
	out := pts[:1]
	for _, p := range pts[1:] {
		if p.Sub(out[len(out)-1]).Length() > geom.Epsilon {
			out = append(out, p)
		}
	}
	return out
}
