// Package passthrough copies precomputed native face triangulations into
// kernel meshes. Vertex order is preserved, so face indices carry over
// unchanged.
package passthrough

import (
	"fmt"
	"math"

	"github.com/chazu/brepbridge/pkg/geom"
	"github.com/chazu/brepbridge/pkg/kernel"
	"github.com/chazu/brepbridge/pkg/transform"
)

// Convert validates m, applies t to every vertex and returns the flat
// kernel mesh. A nil t leaves coordinates untouched.
func Convert(m geom.Mesh, t *geom.Transform) (*kernel.Mesh, error) {
	if err := m.Validate(); err != nil {
		return nil, fmt.Errorf("passthrough: %w", err)
	}
	if uint64(len(m.Vertices)) > math.MaxUint32 {
		return nil, fmt.Errorf("passthrough: %d vertices exceed the index range", len(m.Vertices))
	}

	out := &kernel.Mesh{
		Vertices: make([]float64, 0, len(m.Vertices)*3),
		Indices:  make([]uint32, 0, len(m.Faces)*3),
	}
	for _, v := range m.Vertices {
		w := transform.Vertex(t, v)
		out.Vertices = append(out.Vertices, w.X, w.Y, w.Z)
	}
	for _, f := range m.Faces {
		out.Indices = append(out.Indices, uint32(f.A), uint32(f.B), uint32(f.C))
	}
	return out, nil
}
