package export_test

import (
	"errors"
	"math"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/chazu/brepbridge/pkg/export"
	"github.com/chazu/brepbridge/pkg/geom"
	"github.com/chazu/brepbridge/pkg/kernel"
	"github.com/chazu/brepbridge/pkg/kernel/sdfx"
	"github.com/chazu/brepbridge/pkg/reconstruct"
	"github.com/chazu/brepbridge/pkg/tessellate"
	v3 "github.com/deadsy/sdfx/vec/v3"
)

func square(x0, y0, side float64) geom.Loop {
	return geom.LoopFromPoints(
		geom.V(x0, y0, 0),
		geom.V(x0+side, y0, 0),
		geom.V(x0+side, y0+side, 0),
		geom.V(x0, y0+side, 0),
	)
}

func TestWriterSurfaceAndCurves(t *testing.T) {
	s, err := reconstruct.Reconstruct(sdfx.New(), square(0, 0, 10), []geom.Loop{square(4, 4, 2)})
	if err != nil {
		t.Fatal(err)
	}
	arc, err := kernel.NewArc(v3.Vec{}, v3.Vec{Z: 1}, v3.Vec{X: 3}, math.Pi)
	if err != nil {
		t.Fatal(err)
	}

	w := export.NewWriter(0.01)
	if err := w.Surface("walls", s); err != nil {
		t.Fatalf("Surface: %v", err)
	}
	if got := w.Lines(); got != 8 {
		t.Errorf("Lines() = %d after one holed square, want 8", got)
	}
	if err := w.PolyCurve("", &kernel.PolyCurve{Curves: []kernel.Curve{kernel.Line{P1: v3.Vec{X: 1}}}}); err != nil {
		t.Fatalf("PolyCurve: %v", err)
	}
	if err := w.Curve("arcs", arc); err != nil {
		t.Fatalf("Curve: %v", err)
	}
	if w.Lines() <= 10 {
		t.Errorf("Lines() = %d, want the arc subdivided", w.Lines())
	}
	// Reusing a layer must not re-declare it.
	if err := w.Curve("walls", kernel.Line{P1: v3.Vec{Y: 1}}); err != nil {
		t.Fatalf("Curve on existing layer: %v", err)
	}

	path := filepath.Join(t.TempDir(), "out.dxf")
	if err := w.SaveAs(path); err != nil {
		t.Fatalf("SaveAs: %v", err)
	}
	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatal(err)
	}
	for _, want := range []string{"walls", "arcs", "EOF"} {
		if !strings.Contains(string(data), want) {
			t.Errorf("drawing does not mention %q", want)
		}
	}
}

func TestWriterRejectsDegenerateCurve(t *testing.T) {
	w := export.NewWriter(0)
	err := w.Curve("x", kernel.Line{P0: v3.Vec{X: 1}, P1: v3.Vec{X: 1}})
	if !errors.Is(err, tessellate.ErrDegenerateCurve) {
		t.Errorf("Curve(point) = %v, want ErrDegenerateCurve", err)
	}
	if w.Lines() != 0 {
		t.Errorf("Lines() = %d, want 0", w.Lines())
	}
}
