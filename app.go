package main

import (
	"fmt"
	"math"

	"github.com/chazu/brepbridge/pkg/config"
	"github.com/chazu/brepbridge/pkg/convert"
	"github.com/chazu/brepbridge/pkg/engine"
	"github.com/chazu/brepbridge/pkg/export"
	"github.com/chazu/brepbridge/pkg/kernel"
	"github.com/chazu/brepbridge/pkg/kernel/sdfx"
	"github.com/chazu/brepbridge/pkg/model"
	"github.com/chazu/brepbridge/pkg/resolve"
	"github.com/samber/lo"
)

// colorPalette is a default palette used to assign distinct colors to meshes.
var colorPalette = []string{
	"#4A90D9", "#E67E22", "#2ECC71", "#9B59B6",
	"#E74C3C", "#1ABC9C", "#F39C12", "#3498DB",
}

// App runs model scripts through the conversion pipeline.
type App struct {
	engine *engine.Engine
	kernel kernel.Kernel
	cfg    config.Config

	// Preview adds a kernel-generated mesh for every reconstructed face.
	Preview bool
	// Progress, when set, is called with the number of conversion tasks
	// and returns the per-task callback.
	Progress func(total int) func()
}

// MeshData is a serializable triangle mesh.
type MeshData struct {
	Vertices []float64 `json:"vertices" yaml:"vertices,flow"`
	Normals  []float64 `json:"normals,omitempty" yaml:"normals,omitempty,flow"`
	Indices  []uint32  `json:"indices" yaml:"indices,flow"`
	PartName string    `json:"partName" yaml:"part_name"`
	Color    string    `json:"color" yaml:"color"`
	Preview  bool      `json:"preview,omitempty" yaml:"preview,omitempty"`
}

// SurfaceData summarizes one reconstructed face.
type SurfaceData struct {
	Owner  string     `json:"owner,omitempty" yaml:"owner,omitempty"`
	Index  int        `json:"index" yaml:"index"`
	Layer  string     `json:"layer,omitempty" yaml:"layer,omitempty"`
	Area   float64    `json:"area" yaml:"area"`
	Normal [3]float64 `json:"normal" yaml:"normal,flow"`
	Min    [3]float64 `json:"min" yaml:"min,flow"`
	Max    [3]float64 `json:"max" yaml:"max,flow"`
	Holes  int        `json:"holes,omitempty" yaml:"holes,omitempty"`
}

// InstanceData describes one top-level instance and, when instances are
// expanded, its resolved faces.
type InstanceData struct {
	convert.Instance `yaml:",inline"`
	Surfaces         []SurfaceData `json:"surfaces,omitempty" yaml:"surfaces,omitempty"`
	Area             float64       `json:"area,omitempty" yaml:"area,omitempty"`
}

// EvalErrorData is a serializable script error.
type EvalErrorData struct {
	Line    int    `json:"line" yaml:"line"`
	Col     int    `json:"col" yaml:"col"`
	Message string `json:"message" yaml:"message"`
}

// FailureData is a serializable omitted entity.
type FailureData struct {
	Kind    string `json:"kind" yaml:"kind"`
	Index   int    `json:"index" yaml:"index"`
	Owner   string `json:"owner,omitempty" yaml:"owner,omitempty"`
	Message string `json:"message" yaml:"message"`
}

// Report is the full result of one conversion.
type Report struct {
	Surfaces  []SurfaceData   `json:"surfaces" yaml:"surfaces"`
	Meshes    []MeshData      `json:"meshes" yaml:"meshes"`
	Curves    int             `json:"curves" yaml:"curves"`
	Edges     int             `json:"edges" yaml:"edges"`
	Layers    []string        `json:"layers" yaml:"layers"`
	Instances []InstanceData  `json:"instances" yaml:"instances"`
	Failures  []FailureData   `json:"failures" yaml:"failures"`
	Warnings  []string        `json:"warnings" yaml:"warnings"`
	Errors    []EvalErrorData `json:"errors" yaml:"errors"`
}

func newReport() Report {
	return Report{
		Surfaces:  []SurfaceData{},
		Meshes:    []MeshData{},
		Layers:    []string{},
		Instances: []InstanceData{},
		Failures:  []FailureData{},
		Warnings:  []string{},
		Errors:    []EvalErrorData{},
	}
}

// NewApp creates an App with an engine and an sdfx kernel tuned by cfg.
func NewApp(cfg config.Config) *App {
	opts := sdfx.DefaultOptions()
	opts.Approximation = cfg.Tolerance
	opts.MeshCells = cfg.PreviewCells
	opts.Thickness = cfg.PreviewThickness
	return &App{
		engine: engine.NewEngine(),
		kernel: sdfx.NewWithOptions(opts),
		cfg:    cfg,
	}
}

// Convert evaluates a model script and converts the model it describes.
// The load result is nil whenever the report carries errors.
func (a *App) Convert(source string) (Report, *convert.LoadResult) {
	report := newReport()
	fail := func(msg string) (Report, *convert.LoadResult) {
		report.Errors = append(report.Errors, EvalErrorData{Message: msg})
		return report, nil
	}

	m, evalErrs, err := a.engine.Evaluate(source)
	if err != nil {
		convert.Logger().Error("evaluation failed", "error", err)
		return fail(err.Error())
	}
	if len(evalErrs) > 0 {
		for _, e := range evalErrs {
			report.Errors = append(report.Errors, EvalErrorData{Line: e.Line, Col: e.Col, Message: e.Message})
		}
		return report, nil
	}

	opts := convert.Options{
		IncludeMeshes:   a.cfg.IncludeMeshes,
		ExpandInstances: a.cfg.ExpandInstances,
		Workers:         a.cfg.Workers,
	}
	if a.Progress != nil {
		opts.Progress = a.Progress(convert.TaskCount(m, opts))
	}
	res, err := convert.Load(a.kernel, m, opts)
	if err != nil {
		return fail(err.Error())
	}

	for _, f := range res.Surfaces {
		report.Surfaces = append(report.Surfaces, surfaceData(f))
	}
	for _, m := range res.Meshes {
		report.Meshes = append(report.Meshes, a.meshData(m, len(report.Meshes), false))
	}
	if a.Preview {
		a.previews(&report, res)
	}
	report.Curves = len(res.Curves)
	report.Edges = len(res.Edges)
	report.Layers = append(report.Layers, res.Layers...)

	resolved := lo.SliceToMap(res.Resolved, func(r *resolve.Result) (int, *resolve.Result) {
		return r.Index, r
	})
	for i, inst := range res.Instances {
		d := InstanceData{Instance: inst}
		if r, ok := resolved[i]; ok {
			d.Surfaces = lo.Map(r.Faces, func(f resolve.Face, _ int) SurfaceData { return surfaceData(f) })
			d.Area = lo.SumBy(d.Surfaces, func(s SurfaceData) float64 { return s.Area })
		}
		report.Instances = append(report.Instances, d)
	}

	for _, f := range res.Failures {
		report.Failures = append(report.Failures, failureData(f))
	}
	for _, w := range res.Warnings {
		report.Warnings = append(report.Warnings, w.Error())
	}
	return report, res
}

// previews meshes every top-level and resolved face with the kernel.
func (a *App) previews(report *Report, res *convert.LoadResult) {
	faces := append([]resolve.Face(nil), res.Surfaces...)
	for _, r := range res.Resolved {
		faces = append(faces, r.Faces...)
	}
	for _, f := range faces {
		m, err := a.kernel.ToMesh(f.Surface)
		if err != nil {
			report.Failures = append(report.Failures, failureData(&model.EntityError{
				Kind: model.KindMesh, Index: f.Index, Owner: f.Owner, Err: err,
			}))
			continue
		}
		m.PartName = partName(f)
		report.Meshes = append(report.Meshes, a.meshData(m, len(report.Meshes), true))
	}
}

// ExportDXF draws every face, curve and edge of res, including resolved
// instance geometry, into a DXF file at path.
func (a *App) ExportDXF(res *convert.LoadResult, path string) error {
	w := export.NewWriter(a.cfg.Tolerance)
	geoms := []resolve.Geometry{{Faces: res.Surfaces, Curves: res.Curves, Edges: res.Edges}}
	for _, r := range res.Resolved {
		geoms = append(geoms, r.Geometry)
	}
	for _, g := range geoms {
		for _, f := range g.Faces {
			if err := w.Surface(f.Layer, f.Surface); err != nil {
				return err
			}
		}
		for _, c := range g.Curves {
			if err := w.PolyCurve("curves", c); err != nil {
				return err
			}
		}
		for _, e := range g.Edges {
			if err := w.Curve("edges", e); err != nil {
				return err
			}
		}
	}
	return w.SaveAs(path)
}

// SaveModel encodes the reconstructed top-level faces and curves of res
// back into a native model.
func (a *App) SaveModel(res *convert.LoadResult) (*model.Model, []*model.EntityError) {
	surfaces := lo.Map(res.Surfaces, func(f resolve.Face, _ int) kernel.Surface { return f.Surface })
	var curves []kernel.Curve
	for _, pc := range res.Curves {
		curves = append(curves, pc.Curves...)
	}
	for _, e := range res.Edges {
		curves = append(curves, e)
	}
	return convert.Save(curves, surfaces, convert.SaveOptions{
		Tolerance:     a.cfg.Tolerance,
		PreserveHoles: a.cfg.PreserveHoles,
		Layer:         a.cfg.SaveLayer,
		Workers:       a.cfg.Workers,
	})
}

func (a *App) meshData(m *kernel.Mesh, i int, preview bool) MeshData {
	return MeshData{
		Vertices: m.Vertices,
		Normals:  m.Normals,
		Indices:  m.Indices,
		PartName: m.PartName,
		Color:    colorPalette[i%len(colorPalette)],
		Preview:  preview,
	}
}

func surfaceData(f resolve.Face) SurfaceData {
	n := f.Surface.Normal()
	bmin, bmax := f.Surface.BoundingBox()
	return SurfaceData{
		Owner:  f.Owner,
		Index:  f.Index,
		Layer:  f.Layer,
		Area:   round(f.Surface.Area()),
		Normal: [3]float64{round(n.X), round(n.Y), round(n.Z)},
		Min:    bmin,
		Max:    bmax,
		Holes:  len(f.Surface.HoleCurves()),
	}
}

func failureData(f *model.EntityError) FailureData {
	return FailureData{Kind: f.Kind.String(), Index: f.Index, Owner: f.Owner, Message: f.Err.Error()}
}

func partName(f resolve.Face) string {
	if f.Owner == "" {
		return fmt.Sprintf("preview / surface %d", f.Index)
	}
	return fmt.Sprintf("preview / %s / surface %d", f.Owner, f.Index)
}

// round trims float noise from reported values.
func round(v float64) float64 {
	const scale = 1e9
	r := math.Round(v*scale) / scale
	if r == 0 {
		return 0 // drop negative zero
	}
	return r
}
