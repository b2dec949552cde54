// Package export writes kernel geometry to DXF drawings for inspection in
// CAD tools. Surfaces are drawn as their tessellated boundaries, one LINE
// entity per segment, on the surface's layer.
package export

import (
	"fmt"

	"github.com/chazu/brepbridge/pkg/geom"
	"github.com/chazu/brepbridge/pkg/kernel"
	"github.com/chazu/brepbridge/pkg/tessellate"
	"github.com/yofu/dxf"
	"github.com/yofu/dxf/color"
	"github.com/yofu/dxf/drawing"
)

// DefaultLayer is the layer DXF drawings always contain.
const DefaultLayer = "0"

var palette = []color.ColorNumber{color.White, color.Red, color.Yellow, color.Green, color.Cyan, color.Blue, color.Magenta}

// Writer accumulates geometry into one drawing.
type Writer struct {
	d      *drawing.Drawing
	tol    float64
	layers map[string]bool
	lines  int
}

// NewWriter returns an empty drawing. Curves are tessellated within tol; a
// zero tol means tessellate.DefaultTolerance.
func NewWriter(tol float64) *Writer {
	if tol == 0 {
		tol = tessellate.DefaultTolerance
	}
	return &Writer{
		d:      dxf.NewDrawing(),
		tol:    tol,
		layers: map[string]bool{DefaultLayer: true},
	}
}

// Lines returns the number of LINE entities written so far.
func (w *Writer) Lines() int { return w.lines }

func (w *Writer) use(layer string) error {
	if layer == "" {
		layer = DefaultLayer
	}
	if !w.layers[layer] {
		c := palette[len(w.layers)%len(palette)]
		if _, err := w.d.AddLayer(layer, c, dxf.DefaultLineType, false); err != nil {
			return fmt.Errorf("export: layer %q: %w", layer, err)
		}
		w.layers[layer] = true
	}
	if err := w.d.ChangeLayer(layer); err != nil {
		return fmt.Errorf("export: layer %q: %w", layer, err)
	}
	return nil
}

func (w *Writer) edges(edges []geom.Edge) error {
	for _, e := range edges {
		if _, err := w.d.Line(e.Start.X, e.Start.Y, e.Start.Z, e.End.X, e.End.Y, e.End.Z); err != nil {
			return fmt.Errorf("export: line: %w", err)
		}
		w.lines++
	}
	return nil
}

// Curve draws c on layer.
func (w *Writer) Curve(layer string, c kernel.Curve) error {
	if err := w.use(layer); err != nil {
		return err
	}
	edges, err := tessellate.Tessellate(c, w.tol)
	if err != nil {
		return fmt.Errorf("export: %w", err)
	}
	return w.edges(edges)
}

// PolyCurve draws every member of pc on layer.
func (w *Writer) PolyCurve(layer string, pc *kernel.PolyCurve) error {
	for _, c := range pc.Curves {
		if err := w.Curve(layer, c); err != nil {
			return err
		}
	}
	return nil
}

// Surface draws the perimeter and hole boundaries of s on layer.
func (w *Writer) Surface(layer string, s kernel.Surface) error {
	for _, c := range s.PerimeterCurves() {
		if err := w.Curve(layer, c); err != nil {
			return err
		}
	}
	for _, hole := range s.HoleCurves() {
		for _, c := range hole {
			if err := w.Curve(layer, c); err != nil {
				return err
			}
		}
	}
	return nil
}

// SaveAs writes the drawing to path.
func (w *Writer) SaveAs(path string) error {
	if err := w.d.SaveAs(path); err != nil {
		return fmt.Errorf("export: %w", err)
	}
	return nil
}
