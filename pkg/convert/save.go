package convert

import (
	"github.com/chazu/brepbridge/pkg/encode"
	"github.com/chazu/brepbridge/pkg/geom"
	"github.com/chazu/brepbridge/pkg/kernel"
	"github.com/chazu/brepbridge/pkg/model"
)

// SaveOptions controls Save.
type SaveOptions struct {
	// Tolerance is the tessellation deviation; zero means
	// tessellate.DefaultTolerance.
	Tolerance float64
	// PreserveHoles writes surface holes as inner loops.
	PreserveHoles bool
	// Layer tags every saved surface and is declared on the model.
	Layer    string
	Workers  int
	Progress func()
}

// Save encodes kernel curves and surfaces into a new native model. Lines
// become edges, other curves become tessellated curves. Entities that fail
// to encode are omitted and returned as failures.
func Save(curves []kernel.Curve, surfaces []kernel.Surface, opts SaveOptions) (*model.Model, []*model.EntityError) {
	log := Logger()
	workers := Options{Workers: opts.Workers}.workers()

	type encoded struct {
		e   geom.Entity
		err error
	}
	cs := fanOut(len(curves), workers, opts.Progress, func(i int) encoded {
		e, err := encode.Curve(curves[i], opts.Tolerance)
		return encoded{e, err}
	})
	ss := fanOut(len(surfaces), workers, opts.Progress, func(i int) encoded {
		s, err := encode.Surface(surfaces[i], opts.Tolerance, encode.Options{
			PreserveHoles: opts.PreserveHoles,
			Layer:         opts.Layer,
		})
		if err != nil {
			return encoded{nil, err}
		}
		return encoded{s, nil}
	})

	m := model.New()
	if opts.Layer != "" {
		m.AddLayer(opts.Layer)
	}
	var failures []*model.EntityError
	for i, c := range cs {
		switch e := c.e.(type) {
		case geom.Edge:
			m.Edges = append(m.Edges, e)
		case geom.Curve:
			m.Curves = append(m.Curves, e)
		default:
			failures = append(failures, &model.EntityError{Kind: model.KindCurve, Index: i, Err: c.err})
		}
	}
	for i, s := range ss {
		if s.err != nil {
			failures = append(failures, &model.EntityError{Kind: model.KindSurface, Index: i, Err: s.err})
			continue
		}
		m.Surfaces = append(m.Surfaces, s.e.(geom.Surface))
	}

	for _, f := range failures {
		log.Warn("entity not saved", "kind", f.Kind.String(), "index", f.Index, "error", f.Err)
	}
	log.Info("model saved",
		"surfaces", len(m.Surfaces), "curves", len(m.Curves), "edges", len(m.Edges), "failures", len(failures))
	return m, failures
}
