package kernel

import (
	"errors"
	"fmt"
	"math"

	v3 "github.com/deadsy/sdfx/vec/v3"
)

// ErrInvalidCurve is returned by curve constructors for unusable parameters.
var ErrInvalidCurve = errors.New("kernel: invalid curve")

// CurveKind tags a curve variant so consumers dispatch on the tag instead of
// inspecting concrete types.
type CurveKind int

const (
	KindGeneric CurveKind = iota
	KindLine
	KindArc
	KindBezier
	KindPolyline
)

func (k CurveKind) String() string {
	switch k {
	case KindLine:
		return "line"
	case KindArc:
		return "arc"
	case KindBezier:
		return "bezier"
	case KindPolyline:
		return "polyline"
	default:
		return "generic"
	}
}

// Curve is a continuous parametric curve on t in [0, 1].
type Curve interface {
	Kind() CurveKind
	Start() v3.Vec
	End() v3.Vec
	Eval(t float64) v3.Vec
	Length() float64
}

// Line is a straight segment.
type Line struct {
	P0, P1 v3.Vec
}

func (l Line) Kind() CurveKind       { return KindLine }
func (l Line) Start() v3.Vec         { return l.P0 }
func (l Line) End() v3.Vec           { return l.P1 }
func (l Line) Length() float64       { return l.P1.Sub(l.P0).Length() }
func (l Line) Eval(t float64) v3.Vec { return l.P0.Add(l.P1.Sub(l.P0).MulScalar(t)) }

// Arc is a circular arc around Center in the plane spanned by the
// orthonormal pair U, V. Angles are in radians measured from U toward V.
type Arc struct {
	Center     v3.Vec
	Radius     float64
	U, V       v3.Vec
	StartAngle float64
	Sweep      float64
}

// NewArc builds an arc around center with the given plane normal, starting
// at from and sweeping by sweep radians counter-clockwise about normal.
func NewArc(center, normal, from v3.Vec, sweep float64) (Arc, error) {
	r := from.Sub(center)
	radius := r.Length()
	if radius <= 0 || math.IsNaN(radius) || math.IsInf(radius, 0) {
		return Arc{}, fmt.Errorf("%w: radius %g", ErrInvalidCurve, radius)
	}
	if sweep == 0 || math.IsNaN(sweep) || math.IsInf(sweep, 0) {
		return Arc{}, fmt.Errorf("%w: sweep %g", ErrInvalidCurve, sweep)
	}
	if normal.Length() == 0 {
		return Arc{}, fmt.Errorf("%w: zero normal", ErrInvalidCurve)
	}
	n := normal.Normalize()
	u := r.MulScalar(1 / radius)
	if math.Abs(u.Dot(n)) > 1e-9 {
		return Arc{}, fmt.Errorf("%w: start point not in the arc plane", ErrInvalidCurve)
	}
	return Arc{
		Center: center,
		Radius: radius,
		U:      u,
		V:      n.Cross(u),
		Sweep:  sweep,
	}, nil
}

func (a Arc) Kind() CurveKind { return KindArc }
func (a Arc) Start() v3.Vec   { return a.Eval(0) }
func (a Arc) End() v3.Vec     { return a.Eval(1) }
func (a Arc) Length() float64 { return a.Radius * math.Abs(a.Sweep) }

func (a Arc) Eval(t float64) v3.Vec {
	theta := a.StartAngle + t*a.Sweep
	s, c := math.Sincos(theta)
	return a.Center.Add(a.U.MulScalar(a.Radius * c)).Add(a.V.MulScalar(a.Radius * s))
}

// Bezier is a cubic Bezier curve.
type Bezier struct {
	P [4]v3.Vec
}

func (b Bezier) Kind() CurveKind { return KindBezier }
func (b Bezier) Start() v3.Vec   { return b.P[0] }
func (b Bezier) End() v3.Vec     { return b.P[3] }

func (b Bezier) Eval(t float64) v3.Vec {
	mt := 1 - t
	return b.P[0].MulScalar(mt * mt * mt).
		Add(b.P[1].MulScalar(3 * mt * mt * t)).
		Add(b.P[2].MulScalar(3 * mt * t * t)).
		Add(b.P[3].MulScalar(t * t * t))
}

// Length approximates the arc length by a fixed 64-segment chord sum.
func (b Bezier) Length() float64 {
	const n = 64
	var sum float64
	prev := b.P[0]
	for i := 1; i <= n; i++ {
		p := b.Eval(float64(i) / n)
		sum += p.Sub(prev).Length()
		prev = p
	}
	return sum
}

// Polyline is an open chain of straight segments through Points.
type Polyline struct {
	Points []v3.Vec
}

func (p Polyline) Kind() CurveKind { return KindPolyline }

func (p Polyline) Start() v3.Vec {
	if len(p.Points) == 0 {
		return v3.Vec{}
	}
	return p.Points[0]
}

func (p Polyline) End() v3.Vec {
	if len(p.Points) == 0 {
		return v3.Vec{}
	}
	return p.Points[len(p.Points)-1]
}

func (p Polyline) Length() float64 {
	var sum float64
	for i := 1; i < len(p.Points); i++ {
		sum += p.Points[i].Sub(p.Points[i-1]).Length()
	}
	return sum
}

// Eval maps t uniformly over segments, not over arc length.
func (p Polyline) Eval(t float64) v3.Vec {
	switch len(p.Points) {
	case 0:
		return v3.Vec{}
	case 1:
		return p.Points[0]
	}
	segs := len(p.Points) - 1
	x := math.Max(0, math.Min(1, t)) * float64(segs)
	i := int(x)
	if i >= segs {
		return p.Points[segs]
	}
	return Line{P0: p.Points[i], P1: p.Points[i+1]}.Eval(x - float64(i))
}

// PolyCurve is a chain of curves joined end to start.
type PolyCurve struct {
	Curves []Curve
	Closed bool
}

// Start returns the start point of the first curve.
func (pc *PolyCurve) Start() v3.Vec {
	if len(pc.Curves) == 0 {
		return v3.Vec{}
	}
	return pc.Curves[0].Start()
}

// Length sums the member curve lengths.
func (pc *PolyCurve) Length() float64 {
	var sum float64
	for _, c := range pc.Curves {
		sum += c.Length()
	}
	return sum
}

// Compile-time interface checks.
var (
	_ Curve = Line{}
	_ Curve = Arc{}
	_ Curve = Bezier{}
	_ Curve = Polyline{}
)
