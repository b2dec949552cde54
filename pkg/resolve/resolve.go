// Package resolve converts native entities into world-space kernel geometry
// and expands component instances. The instance transform is applied to
// native vertices before reconstruction, so every patch is built directly
// in world space. Parent components are read, never written, so a single
// Converter may resolve many instances of one parent concurrently.
package resolve

import (
	"errors"
	"fmt"

	"github.com/chazu/brepbridge/pkg/geom"
	"github.com/chazu/brepbridge/pkg/kernel"
	"github.com/chazu/brepbridge/pkg/model"
	"github.com/chazu/brepbridge/pkg/passthrough"
	"github.com/chazu/brepbridge/pkg/reconstruct"
	"github.com/chazu/brepbridge/pkg/transform"
)

// DefaultMaxDepth bounds nested instance expansion.
const DefaultMaxDepth = 32

var (
	ErrNoParent      = errors.New("resolve: instance has no parent component")
	ErrCycle         = errors.New("resolve: component contains itself")
	ErrDepthExceeded = errors.New("resolve: instance nesting too deep")
)

// Face is a reconstructed surface with its native tags.
type Face struct {
	Surface kernel.Surface
	Layer   string
	Owner   string
	Index   int
}

// Geometry is world-space kernel geometry plus the entities that failed.
type Geometry struct {
	Faces    []Face
	Curves   []*kernel.PolyCurve
	Edges    []kernel.Line
	Meshes   []*kernel.Mesh
	Failures []*model.EntityError
}

func (g *Geometry) append(o Geometry) {
	g.Faces = append(g.Faces, o.Faces...)
	g.Curves = append(g.Curves, o.Curves...)
	g.Edges = append(g.Edges, o.Edges...)
	g.Meshes = append(g.Meshes, o.Meshes...)
	g.Failures = append(g.Failures, o.Failures...)
}

// Result is one resolved instance.
type Result struct {
	// Index is the instance's position in the collection it was resolved
	// from. GUIDs are not guaranteed unique, so callers pair results by it.
	Index      int
	Name       string
	GUID       string
	ParentName string
	Position   geom.Vertex
	Scale      float64
	Geometry
}

// Converter turns native entities into kernel geometry.
type Converter struct {
	Kernel kernel.Kernel
	// IncludeMeshes copies cached face triangulations through.
	IncludeMeshes bool
	// MaxDepth bounds nested instances; zero means DefaultMaxDepth.
	MaxDepth int
}

func (c *Converter) maxDepth() int {
	if c.MaxDepth > 0 {
		return c.MaxDepth
	}
	return DefaultMaxDepth
}

// Surface reconstructs one native surface under t.
func (c *Converter) Surface(s geom.Surface, t *geom.Transform) (kernel.Surface, error) {
	world := transform.Surface(t, s)
	return reconstruct.Reconstruct(c.Kernel, world.OuterEdges, world.InnerEdges)
}

// Mesh converts the cached triangulation of s under t. It returns nil with
// no error when meshes are disabled or s has none. The mesh does not depend
// on whether the surface itself reconstructs.
func (c *Converter) Mesh(s geom.Surface, t *geom.Transform) (*kernel.Mesh, error) {
	if !c.IncludeMeshes || s.Mesh == nil {
		return nil, nil
	}
	return passthrough.Convert(*s.Mesh, t)
}

// Curve converts one native curve under t into a joined chain of lines.
func (c *Converter) Curve(cv geom.Curve, t *geom.Transform) (*kernel.PolyCurve, error) {
	world := transform.Curve(t, cv)
	if err := world.Validate(); err != nil {
		return nil, err
	}
	lines := make([]kernel.Curve, len(world.Edges))
	for i, e := range world.Edges {
		lines[i] = kernel.Line{P0: e.Start.Vec(), P1: e.End.Vec()}
	}
	return c.Kernel.JoinCurves(lines)
}

// Edge converts one native edge under t into a kernel line.
func (c *Converter) Edge(e geom.Edge, t *geom.Transform) (kernel.Line, error) {
	world := transform.Edge(t, e)
	if err := world.Validate(); err != nil {
		return kernel.Line{}, err
	}
	return kernel.Line{P0: world.Start.Vec(), P1: world.End.Vec()}, nil
}

// Entities converts the surfaces, curves and edges of e under t. Nested
// instances are not expanded; see Resolve. owner labels failures and mesh
// part names.
func (c *Converter) Entities(owner string, e *model.Entities, t *geom.Transform) Geometry {
	var g Geometry
	for i := range e.Surfaces {
		g.append(c.Item(owner, e, model.KindSurface, i, t))
	}
	for i := range e.Curves {
		g.append(c.Item(owner, e, model.KindCurve, i, t))
	}
	for i := range e.Edges {
		g.append(c.Item(owner, e, model.KindEdge, i, t))
	}
	return g
}

// Item converts entity i of the given kind from e under t. A surface yields
// its face and, when enabled, its mesh; a failure of either is recorded
// without affecting the other. Instances are not items; see Resolve.
func (c *Converter) Item(owner string, e *model.Entities, kind model.EntityKind, i int, t *geom.Transform) Geometry {
	var g Geometry
	fail := func(k model.EntityKind, err error) {
		g.Failures = append(g.Failures, &model.EntityError{Kind: k, Index: i, Owner: owner, Err: err})
	}

	switch kind {
	case model.KindSurface:
		s := e.Surfaces[i]
		if ks, err := c.Surface(s, t); err != nil {
			fail(model.KindSurface, err)
		} else {
			g.Faces = append(g.Faces, Face{Surface: ks, Layer: s.Layer, Owner: owner, Index: i})
		}
		if km, err := c.Mesh(s, t); err != nil {
			fail(model.KindMesh, err)
		} else if km != nil {
			km.PartName = partName(owner, i)
			g.Meshes = append(g.Meshes, km)
		}
	case model.KindCurve:
		if pc, err := c.Curve(e.Curves[i], t); err != nil {
			fail(kind, err)
		} else {
			g.Curves = append(g.Curves, pc)
		}
	case model.KindEdge:
		if l, err := c.Edge(e.Edges[i], t); err != nil {
			fail(kind, err)
		} else {
			g.Edges = append(g.Edges, l)
		}
	default:
		fail(kind, fmt.Errorf("resolve: %s is not a convertible entity", kind))
	}
	return g
}

// Resolve expands inst into world-space geometry, including the geometry
// of nested instances with their transforms composed. Failures of single
// entities are collected in the result; only an unusable instance itself
// returns an error.
func (c *Converter) Resolve(inst *model.Instance) (*Result, error) {
	if inst == nil || inst.Parent == nil {
		return nil, ErrNoParent
	}
	if err := inst.Transform.Validate(); err != nil {
		return nil, fmt.Errorf("resolve: instance %q: %w", inst.Name, err)
	}
	world := inst.Transform
	res := &Result{
		Name:       inst.Name,
		GUID:       inst.GUID,
		ParentName: inst.Parent.Name,
		Position:   world.Translation,
		Scale:      world.Scale,
	}
	visiting := map[*model.Component]bool{}
	res.Geometry = c.expand(OwnerPath("", inst, 0), inst.Parent, &world, 0, visiting)
	return res, nil
}

func (c *Converter) expand(owner string, comp *model.Component, world *geom.Transform, depth int, visiting map[*model.Component]bool) Geometry {
	visiting[comp] = true
	defer delete(visiting, comp)

	g := c.Entities(owner, &comp.Entities, world)
	for i, nested := range comp.Instances {
		fail := func(err error) {
			g.Failures = append(g.Failures, &model.EntityError{Kind: model.KindInstance, Index: i, Owner: owner, Err: err})
		}
		switch {
		case nested == nil || nested.Parent == nil:
			fail(ErrNoParent)
			continue
		case visiting[nested.Parent]:
			fail(fmt.Errorf("%w: %q", ErrCycle, nested.Parent.Name))
			continue
		case depth+1 >= c.maxDepth():
			fail(fmt.Errorf("%w: limit %d", ErrDepthExceeded, c.maxDepth()))
			continue
		}
		if err := nested.Transform.Validate(); err != nil {
			fail(err)
			continue
		}
		composed := transform.Compose(world, &nested.Transform)
		g.append(c.expand(OwnerPath(owner, nested, i), nested.Parent, composed, depth+1, visiting))
	}
	return g
}

// OwnerPath names an instance below parent for failure reports.
func OwnerPath(parent string, inst *model.Instance, index int) string {
	var self string
	if inst != nil && inst.Name != "" {
		self = fmt.Sprintf("instance %q", inst.Name)
	} else {
		self = fmt.Sprintf("instance %d", index)
	}
	if parent == "" {
		return self
	}
	return parent + " / " + self
}

func partName(owner string, i int) string {
	if owner == "" {
		return fmt.Sprintf("surface %d", i)
	}
	return fmt.Sprintf("%s / surface %d", owner, i)
}
