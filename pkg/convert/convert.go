// Package convert orchestrates whole-model conversions. Load turns a native
// model into kernel geometry; Save turns kernel curves and surfaces into a
// native model. Every entity converts independently on a bounded worker
// pool and results are assembled in input order. A failure local to one
// entity omits that entity and is reported; a structurally invalid model
// fails the whole operation.
package convert

import (
	"errors"
	"fmt"
	"runtime"

	"github.com/chazu/brepbridge/pkg/geom"
	"github.com/chazu/brepbridge/pkg/kernel"
	"github.com/chazu/brepbridge/pkg/model"
	"github.com/chazu/brepbridge/pkg/resolve"
	"github.com/samber/lo"
	"golang.org/x/sync/errgroup"
)

var (
	ErrNilModel  = errors.New("convert: model is nil")
	ErrNilKernel = errors.New("convert: kernel is nil")
)

// Options controls Load.
type Options struct {
	// IncludeMeshes converts cached face triangulations. A model with
	// IncludeMeshes set enables it as well.
	IncludeMeshes bool
	// ExpandInstances resolves every top-level instance into world-space
	// geometry. Without it only instance metadata is returned.
	ExpandInstances bool
	// Workers bounds concurrent conversions; zero means GOMAXPROCS.
	Workers int
	// MaxDepth bounds nested instance expansion; zero means
	// resolve.DefaultMaxDepth.
	MaxDepth int
	// Progress, when set, is called once per converted entity. It may be
	// called from several goroutines at once.
	Progress func()
}

func (o Options) workers() int {
	if o.Workers > 0 {
		return o.Workers
	}
	return runtime.GOMAXPROCS(0)
}

// Instance describes one top-level instance without its geometry.
type Instance struct {
	Name       string      `json:"name,omitempty" yaml:"name,omitempty"`
	GUID       string      `json:"guid,omitempty" yaml:"guid,omitempty"`
	ParentName string      `json:"parent" yaml:"parent"`
	Position   geom.Vertex `json:"position" yaml:"position"`
	Scale      float64     `json:"scale" yaml:"scale"`
}

// LoadResult is the kernel-side view of a native model.
type LoadResult struct {
	Surfaces  []resolve.Face
	Meshes    []*kernel.Mesh
	Curves    []*kernel.PolyCurve
	Edges     []kernel.Line
	Layers    []string
	Instances []Instance
	// Resolved holds one entry per successfully resolved instance when
	// ExpandInstances is set; Result.Index is the instance's position in
	// Instances.
	Resolved []*resolve.Result
	// Failures lists every omitted entity, top level first, then the
	// failures inside resolved instances.
	Failures []*model.EntityError
	// Warnings are the advisory validation findings.
	Warnings []model.ValidationError
}

// TaskCount returns how many times Load calls opts.Progress for m.
func TaskCount(m *model.Model, opts Options) int {
	if m == nil {
		return 0
	}
	n := len(m.Surfaces) + len(m.Curves) + len(m.Edges)
	if opts.ExpandInstances {
		n += len(m.Instances)
	}
	return n
}

// fanOut runs fn for every index on at most workers goroutines and returns
// the results in index order.
func fanOut[T any](n, workers int, progress func(), fn func(i int) T) []T {
	out := make([]T, n)
	var g errgroup.Group
	g.SetLimit(workers)
	for i := range n {
		g.Go(func() error {
			out[i] = fn(i)
			if progress != nil {
				progress()
			}
			return nil
		})
	}
	_ = g.Wait() // tasks record failures in their slots
	return out
}

// Load validates m and converts it. Structural errors (missing parent,
// invalid transform, component cycle) abort with an error wrapping
// model.ErrInvalidModel and no partial result.
func Load(k kernel.Kernel, m *model.Model, opts Options) (*LoadResult, error) {
	if m == nil {
		return nil, ErrNilModel
	}
	if k == nil {
		return nil, ErrNilKernel
	}
	log := Logger()
	vr := model.ValidateAll(m)
	if err := vr.Err(); err != nil {
		log.Error("model rejected", "errors", len(vr.Errors))
		return nil, fmt.Errorf("convert: %w", err)
	}

	conv := &resolve.Converter{
		Kernel:        k,
		IncludeMeshes: opts.IncludeMeshes || m.IncludeMeshes,
		MaxDepth:      opts.MaxDepth,
	}
	workers := opts.workers()
	log.Debug("loading model",
		"surfaces", len(m.Surfaces), "curves", len(m.Curves), "edges", len(m.Edges),
		"instances", len(m.Instances), "workers", workers)

	item := func(kind model.EntityKind) func(int) resolve.Geometry {
		return func(i int) resolve.Geometry { return conv.Item("", &m.Entities, kind, i, nil) }
	}
	var top resolve.Geometry
	for _, part := range [][]resolve.Geometry{
		fanOut(len(m.Surfaces), workers, opts.Progress, item(model.KindSurface)),
		fanOut(len(m.Curves), workers, opts.Progress, item(model.KindCurve)),
		fanOut(len(m.Edges), workers, opts.Progress, item(model.KindEdge)),
	} {
		for _, g := range part {
			top.Faces = append(top.Faces, g.Faces...)
			top.Meshes = append(top.Meshes, g.Meshes...)
			top.Curves = append(top.Curves, g.Curves...)
			top.Edges = append(top.Edges, g.Edges...)
			top.Failures = append(top.Failures, g.Failures...)
		}
	}

	res := &LoadResult{
		Surfaces:  top.Faces,
		Meshes:    top.Meshes,
		Curves:    top.Curves,
		Edges:     top.Edges,
		Layers:    lo.Uniq(lo.Map(m.Layers, func(l geom.Layer, _ int) string { return l.Name })),
		Instances: lo.Map(m.Instances, func(inst *model.Instance, _ int) Instance { return describe(inst) }),
		Failures:  top.Failures,
		Warnings:  vr.Warnings,
	}

	if opts.ExpandInstances {
		type resolved struct {
			r   *resolve.Result
			err error
		}
		out := fanOut(len(m.Instances), workers, opts.Progress, func(i int) resolved {
			r, err := conv.Resolve(m.Instances[i])
			return resolved{r, err}
		})
		for i, o := range out {
			if o.err != nil {
				res.Failures = append(res.Failures, &model.EntityError{Kind: model.KindInstance, Index: i, Err: o.err})
				continue
			}
			o.r.Index = i
			res.Resolved = append(res.Resolved, o.r)
			res.Failures = append(res.Failures, o.r.Failures...)
		}
	}

	for _, f := range res.Failures {
		log.Warn("entity omitted", "kind", f.Kind.String(), "index", f.Index, "owner", f.Owner, "error", f.Err)
	}
	log.Info("model loaded",
		"surfaces", len(res.Surfaces), "meshes", len(res.Meshes), "curves", len(res.Curves),
		"edges", len(res.Edges), "instances", len(res.Resolved), "failures", len(res.Failures))
	return res, nil
}

func describe(inst *model.Instance) Instance {
	return Instance{
		Name:       inst.Name,
		GUID:       inst.GUID,
		ParentName: inst.ParentName(),
		Position:   inst.Transform.Translation,
		Scale:      inst.Transform.Scale,
	}
}
