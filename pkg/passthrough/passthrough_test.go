package passthrough_test

import (
	"errors"
	"testing"

	"github.com/chazu/brepbridge/pkg/geom"
	"github.com/chazu/brepbridge/pkg/passthrough"
	"github.com/google/go-cmp/cmp"
	"github.com/google/go-cmp/cmp/cmpopts"
)

func quad() geom.Mesh {
	return geom.Mesh{
		Vertices: []geom.Vertex{geom.V(0, 0, 0), geom.V(1, 0, 0), geom.V(1, 1, 0), geom.V(0, 1, 0)},
		Faces:    []geom.Face{{A: 0, B: 1, C: 2}, {A: 2, B: 3, C: 0}},
	}
}

func TestConvertNoTransform(t *testing.T) {
	got, err := passthrough.Convert(quad(), nil)
	if err != nil {
		t.Fatalf("Convert: %v", err)
	}
	wantVerts := []float64{0, 0, 0, 1, 0, 0, 1, 1, 0, 0, 1, 0}
	wantIdx := []uint32{0, 1, 2, 2, 3, 0}
	if diff := cmp.Diff(wantVerts, got.Vertices); diff != "" {
		t.Errorf("vertices (-want +got):\n%s", diff)
	}
	if diff := cmp.Diff(wantIdx, got.Indices); diff != "" {
		t.Errorf("indices (-want +got):\n%s", diff)
	}
	if err := got.Validate(); err != nil {
		t.Errorf("Validate: %v", err)
	}
}

func TestConvertTransformed(t *testing.T) {
	in := quad()
	tr := &geom.Transform{Translation: geom.V(5, 0, 1), Scale: 3}
	got, err := passthrough.Convert(in, tr)
	if err != nil {
		t.Fatalf("Convert: %v", err)
	}
	want := []float64{5, 0, 1, 8, 0, 1, 8, 3, 1, 5, 3, 1}
	if diff := cmp.Diff(want, got.Vertices, cmpopts.EquateApprox(0, 1e-12)); diff != "" {
		t.Errorf("vertices (-want +got):\n%s", diff)
	}
	if got.TriangleCount() != 2 {
		t.Errorf("TriangleCount() = %d, want 2", got.TriangleCount())
	}
	if in.Vertices[1] != geom.V(1, 0, 0) {
		t.Error("input mesh was mutated")
	}
}

func TestConvertRejectsBadIndex(t *testing.T) {
	m := quad()
	m.Faces = append(m.Faces, geom.Face{A: 0, B: 1, C: 9})
	_, err := passthrough.Convert(m, nil)
	if !errors.Is(err, geom.ErrFaceIndex) {
		t.Errorf("Convert() err = %v, want ErrFaceIndex", err)
	}
}

func TestConvertEmpty(t *testing.T) {
	got, err := passthrough.Convert(geom.Mesh{}, nil)
	if err != nil {
		t.Fatalf("Convert: %v", err)
	}
	if !got.IsEmpty() {
		t.Error("empty mesh should convert to an empty mesh")
	}
}
