// Package sdfx implements the kernel.Kernel interface for planar B-rep
// faces. Boundary math runs on github.com/deadsy/sdfx vectors with
// github.com/paulmach/orb planar predicates; display meshes come from the
// sdfx SDF library (polygon region, thin extrusion, marching cubes).
package sdfx

import (
	"errors"
	"fmt"
	"math"

	"github.com/chazu/brepbridge/pkg/kernel"
	"github.com/chazu/brepbridge/pkg/tessellate"
	"github.com/deadsy/sdfx/render"
	"github.com/deadsy/sdfx/sdf"
	v2 "github.com/deadsy/sdfx/vec/v2"
	v3 "github.com/deadsy/sdfx/vec/v3"
	"github.com/paulmach/orb"
	"github.com/paulmach/orb/planar"
)

// Compile-time interface check.
var _ kernel.Kernel = (*SdfxKernel)(nil)

var (
	ErrNonPlanar          = errors.New("sdfx: boundary is not planar")
	ErrSelfIntersecting   = errors.New("sdfx: boundary intersects itself")
	ErrDegenerateBoundary = errors.New("sdfx: boundary encloses no area")
)

// defaultMeshCells controls marching cubes tessellation resolution.
const defaultMeshCells = 100

// Options tunes the kernel.
type Options struct {
	// Tolerance is the absolute distance under which points coincide. The
	// planarity check scales it by the boundary extent.
	Tolerance float64
	// Approximation is the chord tolerance used to sample non-line
	// boundary curves.
	Approximation float64
	// MeshCells is the marching cubes resolution along the longest axis.
	MeshCells int
	// Thickness is the preview slab thickness. Zero picks four cells.
	Thickness float64
}

// DefaultOptions returns the options used by New.
func DefaultOptions() Options {
	return Options{
		Tolerance:     1e-6,
		Approximation: tessellate.DefaultTolerance,
		MeshCells:     defaultMeshCells,
	}
}

// SdfxKernel implements kernel.Kernel using sdfx.
type SdfxKernel struct {
	opts Options
}

// New returns a new SdfxKernel with default options.
func New() *SdfxKernel {
	return &SdfxKernel{opts: DefaultOptions()}
}

// NewWithOptions returns a kernel with opts; zero fields take defaults.
func NewWithOptions(opts Options) *SdfxKernel {
	d := DefaultOptions()
	if opts.Tolerance <= 0 {
		opts.Tolerance = d.Tolerance
	}
	if opts.Approximation <= 0 {
		opts.Approximation = d.Approximation
	}
	if opts.MeshCells <= 0 {
		opts.MeshCells = d.MeshCells
	}
	return &SdfxKernel{opts: opts}
}

// Options returns the effective options.
func (k *SdfxKernel) Options() Options {
	return k.opts
}

// unwrap extracts the planar surface behind a kernel.Surface.
func unwrap(s kernel.Surface) (*planarSurface, error) {
	ps, ok := s.(*planarSurface)
	if !ok || ps == nil {
		return nil, fmt.Errorf("%w: %T", kernel.ErrForeignSurface, s)
	}
	return ps, nil
}

// JoinCurves checks that consecutive curves share endpoints and returns the
// chain. The chain is closed when the last curve ends at the first start.
func (k *SdfxKernel) JoinCurves(curves []kernel.Curve) (*kernel.PolyCurve, error) {
	if len(curves) == 0 {
		return nil, kernel.ErrEmptyChain
	}
	for i, c := range curves {
		if c == nil {
			return nil, fmt.Errorf("%w: curve %d is nil", kernel.ErrDisconnected, i)
		}
		if i == 0 {
			continue
		}
		if gap := c.Start().Sub(curves[i-1].End()).Length(); gap > k.opts.Tolerance {
			return nil, fmt.Errorf("%w: gap of %g between curves %d and %d", kernel.ErrDisconnected, gap, i-1, i)
		}
	}
	last, first := curves[len(curves)-1], curves[0]
	return &kernel.PolyCurve{
		Curves: append([]kernel.Curve(nil), curves...),
		Closed: last.End().Sub(first.Start()).Length() <= k.opts.Tolerance,
	}, nil
}

// Patch builds the planar region bounded by a closed chain.
func (k *SdfxKernel) Patch(boundary *kernel.PolyCurve) (kernel.Surface, error) {
	if boundary == nil || len(boundary.Curves) == 0 {
		return nil, kernel.ErrEmptyChain
	}
	if !boundary.Closed {
		return nil, kernel.ErrOpenBoundary
	}
	pts, err := k.sample(boundary.Curves)
	if err != nil {
		return nil, err
	}
	f, planarTol, err := k.fitFrame(pts)
	if err != nil {
		return nil, err
	}
	ring := make(orb.Ring, 0, len(pts)+1)
	for _, p := range pts {
		ring = append(ring, f.project(p))
	}
	ring = append(ring, ring[0])
	if selfIntersects(ring) {
		return nil, ErrSelfIntersecting
	}
	return &planarSurface{
		frame:     f,
		points:    pts,
		outer:     ring,
		perimeter: append([]kernel.Curve(nil), boundary.Curves...),
		planarTol: planarTol,
	}, nil
}

// sample returns the boundary vertices in order, without the closing repeat.
// Lines contribute their start point, other curves their tessellation.
func (k *SdfxKernel) sample(curves []kernel.Curve) ([]v3.Vec, error) {
	var pts []v3.Vec
	add := func(p v3.Vec) {
		if len(pts) == 0 || p.Sub(pts[len(pts)-1]).Length() > k.opts.Tolerance {
			pts = append(pts, p)
		}
	}
	for i, c := range curves {
		if c.Kind() == kernel.KindLine {
			add(c.Start())
			continue
		}
		cp, err := tessellate.Points(c, k.opts.Approximation)
		if err != nil {
			return nil, fmt.Errorf("sdfx: boundary curve %d: %w", i, err)
		}
		for _, p := range cp[:len(cp)-1] {
			add(p)
		}
	}
	for len(pts) > 1 && pts[len(pts)-1].Sub(pts[0]).Length() <= k.opts.Tolerance {
		pts = pts[:len(pts)-1]
	}
	if len(pts) < 3 {
		return nil, fmt.Errorf("%w: %d distinct points", ErrDegenerateBoundary, len(pts))
	}
	return pts, nil
}

// fitFrame computes the boundary plane with Newell's method and verifies
// that every point lies on it. The normal follows the right-hand rule over
// the point order, so the projected ring is counter-clockwise.
func (k *SdfxKernel) fitFrame(pts []v3.Vec) (frame, float64, error) {
	var n v3.Vec
	lo, hi := pts[0], pts[0]
	for i, a := range pts {
		b := pts[(i+1)%len(pts)]
		n.X += (a.Y - b.Y) * (a.Z + b.Z)
		n.Y += (a.Z - b.Z) * (a.X + b.X)
		n.Z += (a.X - b.X) * (a.Y + b.Y)
		lo = v3.Vec{X: math.Min(lo.X, a.X), Y: math.Min(lo.Y, a.Y), Z: math.Min(lo.Z, a.Z)}
		hi = v3.Vec{X: math.Max(hi.X, a.X), Y: math.Max(hi.Y, a.Y), Z: math.Max(hi.Z, a.Z)}
	}
	extent := hi.Sub(lo).Length()
	planarTol := k.opts.Tolerance * math.Max(1, extent)

	// |n| is twice the enclosed area.
	if n.Length() <= planarTol*extent {
		return frame{}, 0, fmt.Errorf("%w: collinear points", ErrDegenerateBoundary)
	}
	f := newFrame(pts[0], n.Normalize())
	for i, p := range pts {
		if h := f.height(p); math.Abs(h) > planarTol {
			return frame{}, 0, fmt.Errorf("%w: point %d is %g off the plane", ErrNonPlanar, i, h)
		}
	}
	return f, planarTol, nil
}

// Split cuts s along the outer boundary of tool. Only a coplanar tool lying
// strictly inside the trimmed region cuts: the result is the remainder with
// a new hole followed by the enclosed region. A tool that is off-plane,
// disjoint, enclosing s, or touching or crossing any boundary leaves s whole.
func (k *SdfxKernel) Split(s, tool kernel.Surface) ([]kernel.Surface, error) {
	ps, err := unwrap(s)
	if err != nil {
		return nil, err
	}
	pt, err := unwrap(tool)
	if err != nil {
		return nil, err
	}
	whole := []kernel.Surface{s}

	if math.Abs(ps.frame.n.Dot(pt.frame.n)) < 1-1e-9 {
		return whole, nil
	}
	cut := make(orb.Ring, 0, len(pt.points)+1)
	for _, p := range pt.points {
		if math.Abs(ps.frame.height(p)) > ps.planarTol {
			return whole, nil
		}
		cut = append(cut, ps.frame.project(p))
	}
	cut = append(cut, cut[0])

	if ringsTouch(cut, ps.outer) {
		return whole, nil
	}
	for _, h := range ps.holes {
		if ringsTouch(cut, h) {
			return whole, nil
		}
	}
	// With no boundary contact, one vertex decides the cutter's side.
	if !ps.Contains(pt.points[0]) {
		return whole, nil
	}
	for _, h := range ps.holes {
		if planar.RingContains(cut, h[0]) {
			return whole, nil
		}
	}

	remainder := ps.withHole(cut, pt.perimeter)
	enclosed := &planarSurface{
		frame:     ps.frame,
		points:    append([]v3.Vec(nil), pt.points...),
		outer:     cut,
		perimeter: append([]kernel.Curve(nil), pt.perimeter...),
		planarTol: ps.planarTol,
	}
	return []kernel.Surface{remainder, enclosed}, nil
}

// ToMesh triangulates a thin slab over the trimmed region with marching
// cubes and maps it into world space. The slab is centred on the plane.
func (k *SdfxKernel) ToMesh(s kernel.Surface) (*kernel.Mesh, error) {
	ps, err := unwrap(s)
	if err != nil {
		return nil, err
	}
	region, err := sdf.Polygon2D(toV2(ps.outer))
	if err != nil {
		return nil, fmt.Errorf("sdfx: outer region: %w", err)
	}
	if len(ps.holes) > 0 {
		holes := make([]sdf.SDF2, len(ps.holes))
		for i, h := range ps.holes {
			if holes[i], err = sdf.Polygon2D(toV2(h)); err != nil {
				return nil, fmt.Errorf("sdfx: hole %d region: %w", i, err)
			}
		}
		region = sdf.Difference2D(region, sdf.Union2D(holes...))
	}

	min, max := ps.BoundingBox()
	extent := math.Max(max[0]-min[0], math.Max(max[1]-min[1], max[2]-min[2]))
	thickness := k.opts.Thickness
	if thickness <= 0 {
		thickness = 4 * extent / float64(k.opts.MeshCells)
	}
	slab := sdf.Extrude3D(region, thickness)

	renderer := render.NewMarchingCubesUniform(k.opts.MeshCells)
	triangles := render.ToTriangles(slab, renderer)

	numVerts := len(triangles) * 3
	vertices := make([]float64, 0, numVerts*3)
	normals := make([]float64, 0, numVerts*3)
	indices := make([]uint32, 0, numVerts)

	f := ps.frame
	for i, tri := range triangles {
		// Rotate the local face normal into the world frame.
		ln := tri.Normal()
		n := f.u.MulScalar(ln.X).Add(f.v.MulScalar(ln.Y)).Add(f.n.MulScalar(ln.Z))

		for j := 0; j < 3; j++ {
			v := f.toWorld(tri[j].X, tri[j].Y, tri[j].Z)
			vertices = append(vertices, v.X, v.Y, v.Z)
			normals = append(normals, n.X, n.Y, n.Z)
			indices = append(indices, uint32(i*3+j))
		}
	}

	return &kernel.Mesh{
		Vertices: vertices,
		Normals:  normals,
		Indices:  indices,
	}, nil
}

// toV2 converts a closed orb ring into an open sdfx polygon.
func toV2(r orb.Ring) []v2.Vec {
	out := make([]v2.Vec, 0, len(r))
	for _, p := range r[:len(r)-1] {
		out = append(out, v2.Vec{X: p[0], Y: p[1]})
	}
	return out
}
