package kernel

import (
	"errors"
	"fmt"
)

// ErrMeshLayout is returned by Validate for a malformed flat mesh.
var ErrMeshLayout = errors.New("kernel: malformed mesh")

// Mesh is an indexed triangle mesh in flat-array form.
// Vertices has 3 floats per vertex (x,y,z), Normals is either empty or
// parallel to Vertices, and Indices has 3 entries per triangle.
type Mesh struct {
	Vertices []float64 `json:"vertices" yaml:"vertices"` // [x0,y0,z0, x1,y1,z1, ...]
	Normals  []float64 `json:"normals,omitempty" yaml:"normals,omitempty"`
	Indices  []uint32  `json:"indices" yaml:"indices"` // [i0,i1,i2, ...] triangles
	PartName string    `json:"partName,omitempty" yaml:"partName,omitempty"`
}

// VertexCount returns the number of vertices.
func (m *Mesh) VertexCount() int {
	return len(m.Vertices) / 3
}

// TriangleCount returns the number of triangles.
func (m *Mesh) TriangleCount() int {
	return len(m.Indices) / 3
}

// IsEmpty returns true if the mesh has no geometry.
func (m *Mesh) IsEmpty() bool {
	return len(m.Vertices) == 0
}

// Validate checks array lengths and that every index references a vertex.
func (m *Mesh) Validate() error {
	if len(m.Vertices)%3 != 0 {
		return fmt.Errorf("%w: %d vertex floats is not a multiple of 3", ErrMeshLayout, len(m.Vertices))
	}
	if len(m.Normals) != 0 && len(m.Normals) != len(m.Vertices) {
		return fmt.Errorf("%w: %d normal floats for %d vertex floats", ErrMeshLayout, len(m.Normals), len(m.Vertices))
	}
	if len(m.Indices)%3 != 0 {
		return fmt.Errorf("%w: %d indices is not a multiple of 3", ErrMeshLayout, len(m.Indices))
	}
	n := uint32(m.VertexCount())
	for i, idx := range m.Indices {
		if idx >= n {
			return fmt.Errorf("%w: index %d at %d exceeds %d vertices", ErrMeshLayout, idx, i, n)
		}
	}
	return nil
}
