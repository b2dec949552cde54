package sdfx

import (
	"math"
	"slices"

	"github.com/chazu/brepbridge/pkg/kernel"
	v3 "github.com/deadsy/sdfx/vec/v3"
	"github.com/paulmach/orb"
	"github.com/paulmach/orb/planar"
)

// frame is an orthonormal plane basis. u, v span the plane and n = u × v.
type frame struct {
	origin, u, v, n v3.Vec
}

// newFrame builds a frame through origin with unit normal n. The in-plane
// axis u is derived from the world axis least aligned with n, so the same
// normal always gives the same basis.
func newFrame(origin, n v3.Vec) frame {
	axis := v3.Vec{X: 1}
	switch {
	case math.Abs(n.Y) < math.Abs(n.X) && math.Abs(n.Y) <= math.Abs(n.Z):
		axis = v3.Vec{Y: 1}
	case math.Abs(n.Z) < math.Abs(n.X) && math.Abs(n.Z) < math.Abs(n.Y):
		axis = v3.Vec{Z: 1}
	}
	u := axis.Sub(n.MulScalar(axis.Dot(n))).Normalize()
	return frame{origin: origin, u: u, v: n.Cross(u), n: n}
}

func (f frame) project(p v3.Vec) orb.Point {
	d := p.Sub(f.origin)
	return orb.Point{d.Dot(f.u), d.Dot(f.v)}
}

func (f frame) lift(q orb.Point) v3.Vec {
	return f.origin.Add(f.u.MulScalar(q[0])).Add(f.v.MulScalar(q[1]))
}

// toWorld maps a local point (x, y in plane, z along the normal) to world space.
func (f frame) toWorld(x, y, z float64) v3.Vec {
	return f.origin.Add(f.u.MulScalar(x)).Add(f.v.MulScalar(y)).Add(f.n.MulScalar(z))
}

func (f frame) height(p v3.Vec) float64 {
	return p.Sub(f.origin).Dot(f.n)
}

// planarSurface is a flat trimmed patch: an outer ring and zero or more hole
// rings, all closed (first point repeated last) in the coordinates of frame.
type planarSurface struct {
	frame      frame
	points     []v3.Vec // outer boundary samples in world space, not closed
	outer      orb.Ring
	holes      []orb.Ring
	perimeter  []kernel.Curve
	holeCurves [][]kernel.Curve
	planarTol  float64
}

var _ kernel.Surface = (*planarSurface)(nil)

func (s *planarSurface) polygon() orb.Polygon {
	p := make(orb.Polygon, 0, 1+len(s.holes))
	p = append(p, s.outer)
	return append(p, s.holes...)
}

// BoundingBox returns the axis-aligned bounding box of the outer boundary.
func (s *planarSurface) BoundingBox() (min, max [3]float64) {
	min = [3]float64{math.Inf(1), math.Inf(1), math.Inf(1)}
	max = [3]float64{math.Inf(-1), math.Inf(-1), math.Inf(-1)}
	for _, p := range s.points {
		for i, c := range [3]float64{p.X, p.Y, p.Z} {
			min[i] = math.Min(min[i], c)
			max[i] = math.Max(max[i], c)
		}
	}
	return min, max
}

// Area returns the outer area minus the area of every hole.
func (s *planarSurface) Area() float64 {
	a := math.Abs(planar.Area(s.outer))
	for _, h := range s.holes {
		a -= math.Abs(planar.Area(h))
	}
	return a
}

func (s *planarSurface) Normal() v3.Vec { return s.frame.n }

func (s *planarSurface) PerimeterCurves() []kernel.Curve {
	return slices.Clone(s.perimeter)
}

func (s *planarSurface) HoleCurves() [][]kernel.Curve {
	out := make([][]kernel.Curve, len(s.holeCurves))
	for i, h := range s.holeCurves {
		out[i] = slices.Clone(h)
	}
	return out
}

// Contains reports whether p lies on the plane and inside the trimmed
// region. Points on the outer boundary count as inside, points on a hole
// boundary do not.
func (s *planarSurface) Contains(p v3.Vec) bool {
	if math.Abs(s.frame.height(p)) > s.planarTol {
		return false
	}
	return planar.PolygonContains(s.polygon(), s.frame.project(p))
}

// InteriorPoint returns a point strictly inside the trimmed region.
func (s *planarSurface) InteriorPoint() v3.Vec {
	return s.frame.lift(interiorPoint(s.polygon()))
}

// withHole returns a copy of s with one more hole ring.
func (s *planarSurface) withHole(ring orb.Ring, curves []kernel.Curve) *planarSurface {
	out := *s
	out.holes = append(slices.Clone(s.holes), ring)
	out.holeCurves = append(slices.Clone(s.holeCurves), slices.Clone(curves))
	return &out
}

// interiorPoint scans horizontal lines midway between consecutive distinct
// vertex ordinates and returns the midpoint of the widest inside interval.
// No scanline passes through a vertex, so crossings always pair up.
func interiorPoint(poly orb.Polygon) orb.Point {
	var ys []float64
	for _, r := range poly {
		for _, p := range r {
			ys = append(ys, p[1])
		}
	}
	slices.Sort(ys)
	ys = slices.Compact(ys)

	best := -1.0
	var bestPt orb.Point
	for i := 0; i+1 < len(ys); i++ {
		y := (ys[i] + ys[i+1]) / 2
		var xs []float64
		for _, r := range poly {
			for j := 0; j+1 < len(r); j++ {
				a, b := r[j], r[j+1]
				if (a[1] > y) != (b[1] > y) {
					xs = append(xs, a[0]+(y-a[1])*(b[0]-a[0])/(b[1]-a[1]))
				}
			}
		}
		slices.Sort(xs)
		for j := 0; j+1 < len(xs); j += 2 {
			if w := xs[j+1] - xs[j]; w > best {
				best = w
				bestPt = orb.Point{(xs[j] + xs[j+1]) / 2, y}
			}
		}
	}
	return bestPt
}

// orient returns the signed doubled area of triangle abc, snapped to zero
// when it is negligible relative to the edge lengths.
func orient(a, b, c orb.Point) float64 {
	abx, aby := b[0]-a[0], b[1]-a[1]
	acx, acy := c[0]-a[0], c[1]-a[1]
	o := abx*acy - aby*acx
	if math.Abs(o) <= 1e-12*(abx*abx+aby*aby+acx*acx+acy*acy) {
		return 0
	}
	return o
}

func onSegment(a, b, p orb.Point) bool {
	return math.Min(a[0], b[0]) <= p[0] && p[0] <= math.Max(a[0], b[0]) &&
		math.Min(a[1], b[1]) <= p[1] && p[1] <= math.Max(a[1], b[1])
}

// segmentsTouch reports whether segments ab and cd share any point.
func segmentsTouch(a, b, c, d orb.Point) bool {
	o1, o2 := orient(a, b, c), orient(a, b, d)
	o3, o4 := orient(c, d, a), orient(c, d, b)
	if o1*o2 < 0 && o3*o4 < 0 {
		return true
	}
	return (o1 == 0 && onSegment(a, b, c)) ||
		(o2 == 0 && onSegment(a, b, d)) ||
		(o3 == 0 && onSegment(c, d, a)) ||
		(o4 == 0 && onSegment(c, d, b))
}

// selfIntersects reports whether any two non-adjacent edges of a closed
// ring touch.
func selfIntersects(r orb.Ring) bool {
	n := len(r) - 1
	for i := 0; i < n; i++ {
		for j := i + 2; j < n; j++ {
			if i == 0 && j == n-1 {
				continue
			}
			if segmentsTouch(r[i], r[i+1], r[j], r[j+1]) {
				return true
			}
		}
	}
	return false
}

// ringsTouch reports whether any edge of a touches any edge of b.
func ringsTouch(a, b orb.Ring) bool {
	for i := 0; i+1 < len(a); i++ {
		for j := 0; j+1 < len(b); j++ {
			if segmentsTouch(a[i], a[i+1], b[j], b[j+1]) {
				return true
			}
		}
	}
	return false
}
