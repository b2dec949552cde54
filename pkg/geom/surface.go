package geom

import (
	"errors"
	"fmt"
	"math"
)

// ErrInvalidScale is returned for a transform whose scale is not a finite positive number.
var ErrInvalidScale = errors.New("geom: transform scale must be finite and positive")

// Entity is implemented by the native values the save path can emit:
// Edge, Curve and Surface.
type Entity interface {
	entity() // marker method restricting implementations to this package
}

// Surface is a planar face bounded by an outer loop with optional holes.
// Mesh, when present, is the face's cached triangulation.
type Surface struct {
	OuterEdges Loop   `json:"outer_edges"`
	InnerEdges []Loop `json:"inner_edges,omitempty"`
	Mesh       *Mesh  `json:"mesh,omitempty"`
	Layer      string `json:"layer,omitempty"`
}

func (Surface) entity() {}

// Transform is a uniform scale followed by a translation.
// A nil *Transform means "no transform".
type Transform struct {
	Translation Vertex  `json:"translation"`
	Scale       float64 `json:"scale"`
}

// Identity returns the explicit identity transform. Top-level geometry uses
// a nil *Transform instead.
func Identity() Transform {
	return Transform{Scale: 1}
}

// Validate checks that the scale is finite and positive and the translation finite.
func (t Transform) Validate() error {
	if math.IsNaN(t.Scale) || math.IsInf(t.Scale, 0) || t.Scale <= 0 {
		return fmt.Errorf("scale %g: %w", t.Scale, ErrInvalidScale)
	}
	if !t.Translation.IsFinite() {
		return fmt.Errorf("translation %v: %w", t.Translation, ErrNonFinite)
	}
	return nil
}

// Layer is a grouping tag with no geometric meaning.
type Layer struct {
	Name string `json:"name"`
}
