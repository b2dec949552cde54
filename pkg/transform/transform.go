// Package transform applies a uniform scale plus translation to native
// geometry. Every function is pure: a nil transform returns its input
// unchanged, anything else returns a newly allocated value.
package transform

import (
	"github.com/chazu/brepbridge/pkg/geom"
)

// Vertex returns t.Translation + t.Scale*v, or v itself when t is nil.
func Vertex(t *geom.Transform, v geom.Vertex) geom.Vertex {
	if t == nil {
		return v
	}
	return geom.FromVec(t.Translation.Vec().Add(v.Vec().MulScalar(t.Scale)))
}

// Edge transforms both endpoints.
func Edge(t *geom.Transform, e geom.Edge) geom.Edge {
	if t == nil {
		return e
	}
	return geom.Edge{Start: Vertex(t, e.Start), End: Vertex(t, e.End)}
}

func edges(t *geom.Transform, in []geom.Edge) []geom.Edge {
	if in == nil {
		return nil
	}
	out := make([]geom.Edge, len(in))
	for i, e := range in {
		out[i] = Edge(t, e)
	}
	return out
}

// Loop transforms every edge of l.
func Loop(t *geom.Transform, l geom.Loop) geom.Loop {
	if t == nil {
		return l
	}
	return geom.Loop{Edges: edges(t, l.Edges)}
}

// Curve transforms every edge of c.
func Curve(t *geom.Transform, c geom.Curve) geom.Curve {
	if t == nil {
		return c
	}
	return geom.Curve{Edges: edges(t, c.Edges)}
}

// Mesh transforms every vertex; face indices are copied unchanged.
func Mesh(t *geom.Transform, m geom.Mesh) geom.Mesh {
	if t == nil {
		return m
	}
	out := geom.Mesh{
		Vertices: make([]geom.Vertex, len(m.Vertices)),
		Faces:    make([]geom.Face, len(m.Faces)),
	}
	for i, v := range m.Vertices {
		out.Vertices[i] = Vertex(t, v)
	}
	copy(out.Faces, m.Faces)
	return out
}

// Surface transforms the outer loop, every inner loop and the cached mesh.
func Surface(t *geom.Transform, s geom.Surface) geom.Surface {
	if t == nil {
		return s
	}
	out := geom.Surface{
		OuterEdges: Loop(t, s.OuterEdges),
		Layer:      s.Layer,
	}
	if s.InnerEdges != nil {
		out.InnerEdges = make([]geom.Loop, len(s.InnerEdges))
		for i, l := range s.InnerEdges {
			out.InnerEdges[i] = Loop(t, l)
		}
	}
	if s.Mesh != nil {
		m := Mesh(t, *s.Mesh)
		out.Mesh = &m
	}
	return out
}

// Compose returns the transform equivalent to applying inner first and then
// outer. Either argument may be nil; the result is nil only when both are.
func Compose(outer, inner *geom.Transform) *geom.Transform {
	switch {
	case outer == nil && inner == nil:
		return nil
	case outer == nil:
		c := *inner
		return &c
	case inner == nil:
		c := *outer
		return &c
	}
	return &geom.Transform{
		Translation: Vertex(outer, inner.Translation),
		Scale:       outer.Scale * inner.Scale,
	}
}
