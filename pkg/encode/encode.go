// Package encode converts kernel curves and surfaces back into native
// entities for the save path. Straight lines become single edges; every
// other curve is tessellated. Surfaces keep only their perimeter unless
// Options.PreserveHoles is set.
package encode

import (
	"errors"
	"fmt"

	"github.com/chazu/brepbridge/pkg/geom"
	"github.com/chazu/brepbridge/pkg/kernel"
	"github.com/chazu/brepbridge/pkg/tessellate"
)

// ErrEmptyPerimeter is returned for a surface that reports no perimeter curves.
var ErrEmptyPerimeter = errors.New("encode: surface has no perimeter")

// Options controls surface encoding.
type Options struct {
	// PreserveHoles writes hole boundaries as inner loops. Off by default:
	// saved surfaces carry an empty hole set.
	PreserveHoles bool
	// Layer tags every encoded surface.
	Layer string
}

func tolerance(tol float64) float64 {
	if tol == 0 {
		return tessellate.DefaultTolerance
	}
	return tol
}

// Curve encodes c as a native entity. A line yields a geom.Edge without
// tessellation; any other kind yields a geom.Curve within tol of c. A zero
// tol means tessellate.DefaultTolerance.
func Curve(c kernel.Curve, tol float64) (geom.Entity, error) {
	if c.Kind() == kernel.KindLine {
		e := geom.Edge{Start: geom.FromVec(c.Start()), End: geom.FromVec(c.End())}
		if err := e.Validate(); err != nil {
			return nil, fmt.Errorf("encode: line: %w", err)
		}
		return e, nil
	}
	edges, err := tessellate.Tessellate(c, tolerance(tol))
	if err != nil {
		return nil, fmt.Errorf("encode: %w", err)
	}
	return geom.Curve{Edges: edges}, nil
}

// Surface encodes s as a native surface whose outer loop is the tessellated
// perimeter.
func Surface(s kernel.Surface, tol float64, opts Options) (geom.Surface, error) {
	tol = tolerance(tol)
	outer, err := loop(s.PerimeterCurves(), tol)
	if err != nil {
		return geom.Surface{}, fmt.Errorf("encode: perimeter: %w", err)
	}
	out := geom.Surface{OuterEdges: outer, Layer: opts.Layer}
	if !opts.PreserveHoles {
		return out, nil
	}
	for i, hole := range s.HoleCurves() {
		l, err := loop(hole, tol)
		if err != nil {
			return geom.Surface{}, fmt.Errorf("encode: hole %d: %w", i, err)
		}
		out.InnerEdges = append(out.InnerEdges, l)
	}
	return out, nil
}

// loop tessellates a closed chain and snaps the seams so consecutive edges
// share exact endpoints.
func loop(curves []kernel.Curve, tol float64) (geom.Loop, error) {
	if len(curves) == 0 {
		return geom.Loop{}, ErrEmptyPerimeter
	}
	var edges []geom.Edge
	for i, c := range curves {
		part, err := tessellate.Tessellate(c, tol)
		if err != nil {
			return geom.Loop{}, fmt.Errorf("curve %d: %w", i, err)
		}
		edges = append(edges, part...)
	}
	for i := 1; i < len(edges); i++ {
		if edges[i].Start.Coincident(edges[i-1].End, tol) {
			edges[i].Start = edges[i-1].End
		}
	}
	if n := len(edges); edges[n-1].End.Coincident(edges[0].Start, tol) {
		edges[n-1].End = edges[0].Start
	}
	l := geom.Loop{Edges: edges}
	if err := l.Validate(geom.Epsilon); err != nil {
		return geom.Loop{}, err
	}
	return l, nil
}
