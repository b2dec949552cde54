// Package geom defines the native B-rep primitives: vertices, edges, loops,
// curves, meshes, surfaces, transforms and layers. Values are immutable once
// built; every conversion step produces new values instead of editing inputs.
package geom

import (
	"errors"
	"fmt"
	"math"

	v3 "github.com/deadsy/sdfx/vec/v3"
)

// Epsilon is the default distance under which two vertices are coincident.
const Epsilon = 1e-9

var (
	// ErrZeroLengthEdge is returned for an edge whose endpoints coincide.
	ErrZeroLengthEdge = errors.New("geom: zero-length edge")
	// ErrNonFinite is returned for coordinates that are NaN or infinite.
	ErrNonFinite = errors.New("geom: non-finite coordinate")
)

// Vertex is a point in model space.
type Vertex struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
	Z float64 `json:"z"`
}

// V is shorthand for Vertex{X: x, Y: y, Z: z}.
func V(x, y, z float64) Vertex {
	return Vertex{X: x, Y: y, Z: z}
}

// FromVec converts an sdfx vector to a Vertex.
func FromVec(v v3.Vec) Vertex {
	return Vertex{X: v.X, Y: v.Y, Z: v.Z}
}

// Vec returns the vertex as an sdfx vector.
func (v Vertex) Vec() v3.Vec {
	return v3.Vec{X: v.X, Y: v.Y, Z: v.Z}
}

// Distance returns the euclidean distance between v and o.
func (v Vertex) Distance(o Vertex) float64 {
	return o.Vec().Sub(v.Vec()).Length()
}

// Coincident reports whether v and o are within eps of each other.
func (v Vertex) Coincident(o Vertex, eps float64) bool {
	return v.Distance(o) <= eps
}

// IsFinite reports whether all coordinates are finite numbers.
func (v Vertex) IsFinite() bool {
	return isFinite(v.X) && isFinite(v.Y) && isFinite(v.Z)
}

func (v Vertex) String() string {
	return fmt.Sprintf("(%g %g %g)", v.X, v.Y, v.Z)
}

func isFinite(f float64) bool {
	return !math.IsNaN(f) && !math.IsInf(f, 0)
}

// Edge is a straight segment between two vertices.
type Edge struct {
	Start Vertex `json:"start"`
	End   Vertex `json:"end"`
}

// E is shorthand for Edge{Start: a, End: b}.
func E(a, b Vertex) Edge {
	return Edge{Start: a, End: b}
}

// Length returns the length of the edge.
func (e Edge) Length() float64 {
	return e.Start.Distance(e.End)
}

// Reversed returns the edge with its endpoints swapped.
func (e Edge) Reversed() Edge {
	return Edge{Start: e.End, End: e.Start}
}

// Validate rejects zero-length edges and non-finite endpoints.
func (e Edge) Validate() error {
	if !e.Start.IsFinite() || !e.End.IsFinite() {
		return fmt.Errorf("edge %v-%v: %w", e.Start, e.End, ErrNonFinite)
	}
	if e.Start == e.End || e.Length() <= Epsilon {
		return fmt.Errorf("edge at %v: %w", e.Start, ErrZeroLengthEdge)
	}
	return nil
}

func (Edge) entity() {}
