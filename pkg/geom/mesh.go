package geom

import (
	"errors"
	"fmt"
)

// ErrFaceIndex is returned when a mesh face references a missing vertex.
var ErrFaceIndex = errors.New("geom: mesh face index out of range")

// Face is one triangle of a mesh, as offsets into the mesh's vertex list.
type Face struct {
	A int `json:"a"`
	B int `json:"b"`
	C int `json:"c"`
}

// Mesh is a precomputed triangulation of a face.
type Mesh struct {
	Vertices []Vertex `json:"vertices"`
	Faces    []Face   `json:"faces"`
}

// Validate checks that every face index is a valid vertex offset.
func (m Mesh) Validate() error {
	n := len(m.Vertices)
	for i, f := range m.Faces {
		for _, idx := range [3]int{f.A, f.B, f.C} {
			if idx < 0 || idx >= n {
				return fmt.Errorf("face %d index %d (have %d vertices): %w", i, idx, n, ErrFaceIndex)
			}
		}
	}
	return nil
}
