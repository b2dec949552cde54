package engine

import (
	"fmt"
	"math"
	"strings"

	"github.com/chazu/brepbridge/pkg/geom"
	"github.com/chazu/brepbridge/pkg/model"
	zygo "github.com/glycerine/zygomys/zygo"
	"github.com/google/uuid"
)

// ---------------------------------------------------------------------------
// Source preprocessing
// ---------------------------------------------------------------------------

// preprocessSource rewrites script source before zygomys sees it:
//
//  1. :keyword becomes the string literal "__kw_keyword", so keywords need
//     no global symbols and cannot clash with user variables.
//
//  2. kebab-case identifiers become snake_case (include-meshes ->
//     include_meshes). zygomys reads a hyphen inside an identifier as
//     subtraction.
//
//  3. ; line comments become // comments.
//
// String literals are copied untouched.
func preprocessSource(source string) string {
	result := make([]byte, 0, len(source)+len(source)/4)
	b := []byte(source)
	i := 0
	for i < len(b) {
		switch {
		case b[i] == '"':
			j := skipQuoted(b, i, '"', true)
			result = append(result, b[i:j]...)
			i = j
			continue
		case b[i] == '`':
			j := skipQuoted(b, i, '`', false)
			result = append(result, b[i:j]...)
			i = j
			continue
		case b[i] == ';':
			result = append(result, '/', '/')
			for i < len(b) && b[i] == ';' {
				i++
			}
			for i < len(b) && b[i] != '\n' {
				result = append(result, b[i])
				i++
			}
			continue
		case b[i] == ':' && i+1 < len(b) && b[i+1] == '=':
			result = append(result, ':', '=')
			i += 2
			continue
		case b[i] == ':' && i+1 < len(b) && isLetter(b[i+1]):
			j := i + 1
			for j < len(b) && isKWChar(b[j]) {
				j++
			}
			result = append(result, '"')
			result = append(result, kwPrefix...)
			result = append(result, b[i+1:j]...)
			result = append(result, '"')
			i = j
			continue
		case b[i] == '-' && i > 0 && i+1 < len(b) && isIdentChar(b[i-1]) && isLetter(b[i+1]):
			// A hyphen between identifier characters, not a minus sign.
			result = append(result, '_')
			i++
			continue
		}
		result = append(result, b[i])
		i++
	}
	return string(result)
}

// skipQuoted returns the index just past the literal opened at b[start].
func skipQuoted(b []byte, start int, quote byte, escapes bool) int {
	i := start + 1
	for i < len(b) && b[i] != quote {
		if escapes && b[i] == '\\' && i+1 < len(b) {
			i++
		}
		i++
	}
	if i < len(b) {
		i++
	}
	return i
}

func isLetter(c byte) bool {
	return (c >= 'a' && c <= 'z') || (c >= 'A' && c <= 'Z')
}

func isKWChar(c byte) bool {
	return isLetter(c) || (c >= '0' && c <= '9') || c == '-' || c == '_'
}

func isIdentChar(c byte) bool {
	return isLetter(c) || (c >= '0' && c <= '9') || c == '_'
}

// ---------------------------------------------------------------------------
// Script values
// ---------------------------------------------------------------------------

// sexpVec3 wraps a vertex.
type sexpVec3 struct {
	v geom.Vertex
}

func (v *sexpVec3) SexpString(ps *zygo.PrintState) string {
	return fmt.Sprintf("(vec3 %g %g %g)", v.v.X, v.v.Y, v.v.Z)
}
func (v *sexpVec3) Type() *zygo.RegisteredType { return nil }

// sexpLoop wraps a closed loop. Loops are not entities on their own.
type sexpLoop struct {
	l geom.Loop
}

func (l *sexpLoop) SexpString(ps *zygo.PrintState) string {
	return fmt.Sprintf("(loop %d edges)", l.l.Len())
}
func (l *sexpLoop) Type() *zygo.RegisteredType { return nil }

// sexpMesh wraps a face triangulation.
type sexpMesh struct {
	m geom.Mesh
}

func (m *sexpMesh) SexpString(ps *zygo.PrintState) string {
	return fmt.Sprintf("(mesh %d vertices %d faces)", len(m.m.Vertices), len(m.m.Faces))
}
func (m *sexpMesh) Type() *zygo.RegisteredType { return nil }

// sexpComponent references a registered component.
type sexpComponent struct {
	c *model.Component
}

func (c *sexpComponent) SexpString(ps *zygo.PrintState) string {
	return fmt.Sprintf("(component %q)", c.c.Name)
}
func (c *sexpComponent) Type() *zygo.RegisteredType { return nil }

// entity is a script value that lands in exactly one entity collection:
// the component that claims it, or the top level when nothing does.
type entity interface {
	zygo.Sexp
	claim() bool
	claimed() bool
	addTo(e *model.Entities)
}

type claimMark struct{ taken bool }

func (c *claimMark) claim() bool {
	if c.taken {
		return false
	}
	c.taken = true
	return true
}
func (c *claimMark) claimed() bool { return c.taken }

type sexpSurface struct {
	claimMark
	s geom.Surface
}

func (s *sexpSurface) SexpString(ps *zygo.PrintState) string {
	return fmt.Sprintf("(face %d edges %d holes)", s.s.OuterEdges.Len(), len(s.s.InnerEdges))
}
func (s *sexpSurface) Type() *zygo.RegisteredType { return nil }
func (s *sexpSurface) addTo(e *model.Entities)    { e.Surfaces = append(e.Surfaces, s.s) }

type sexpCurve struct {
	claimMark
	c geom.Curve
}

func (c *sexpCurve) SexpString(ps *zygo.PrintState) string {
	return fmt.Sprintf("(polyline %d edges)", len(c.c.Edges))
}
func (c *sexpCurve) Type() *zygo.RegisteredType { return nil }
func (c *sexpCurve) addTo(e *model.Entities)    { e.Curves = append(e.Curves, c.c) }

type sexpEdge struct {
	claimMark
	e geom.Edge
}

func (e *sexpEdge) SexpString(ps *zygo.PrintState) string {
	return fmt.Sprintf("(edge %v %v)", e.e.Start, e.e.End)
}
func (e *sexpEdge) Type() *zygo.RegisteredType { return nil }
func (e *sexpEdge) addTo(m *model.Entities)    { m.Edges = append(m.Edges, e.e) }

type sexpInstance struct {
	claimMark
	inst *model.Instance
}

func (i *sexpInstance) SexpString(ps *zygo.PrintState) string {
	return fmt.Sprintf("(instance %q)", i.inst.ParentName())
}
func (i *sexpInstance) Type() *zygo.RegisteredType { return nil }
func (i *sexpInstance) addTo(e *model.Entities)    { e.Instances = append(e.Instances, i.inst) }

// ---------------------------------------------------------------------------
// Keyword argument parsing
// ---------------------------------------------------------------------------

// kwPrefix is the marker prepended to keyword names by preprocessSource.
const kwPrefix = "__kw_"

// isKW checks if a Sexp is a preprocessed keyword string.
// Returns the keyword name (without prefix) and true if it is.
func isKW(s zygo.Sexp) (string, bool) {
	str, ok := s.(*zygo.SexpStr)
	if !ok {
		return "", false
	}
	if strings.HasPrefix(str.S, kwPrefix) {
		return str.S[len(kwPrefix):], true
	}
	return "", false
}

// kwArgs holds the result of parsing a mixed positional+keyword argument list.
type kwArgs struct {
	kw         map[string]zygo.Sexp
	positional []zygo.Sexp
}

// parseArgs separates args into keyword and positional arguments.
func parseArgs(args []zygo.Sexp) kwArgs {
	result := kwArgs{kw: make(map[string]zygo.Sexp)}
	for i := 0; i < len(args); i++ {
		name, ok := isKW(args[i])
		if !ok {
			result.positional = append(result.positional, args[i])
			continue
		}
		if i+1 < len(args) {
			result.kw[name] = args[i+1]
			i++
		} else {
			// Trailing keyword with no value.
			result.kw[name] = zygo.SexpNull
		}
	}
	return result
}

// ---------------------------------------------------------------------------
// Value extraction helpers
// ---------------------------------------------------------------------------

// toFloat64 extracts a float64 from a Sexp (SexpInt or SexpFloat).
func toFloat64(s zygo.Sexp) (float64, error) {
	switch v := s.(type) {
	case *zygo.SexpInt:
		return float64(v.Val), nil
	case *zygo.SexpFloat:
		return v.Val, nil
	}
	return 0, fmt.Errorf("expected number, got %T (%s)", s, s.SexpString(nil))
}

// toInt extracts a whole number.
func toInt(s zygo.Sexp) (int, error) {
	f, err := toFloat64(s)
	if err != nil {
		return 0, err
	}
	if f != math.Trunc(f) || math.Abs(f) > math.MaxInt32 {
		return 0, fmt.Errorf("expected integer, got %g", f)
	}
	return int(f), nil
}

// toString extracts a string from a Sexp.
func toString(s zygo.Sexp) (string, error) {
	if str, ok := s.(*zygo.SexpStr); ok {
		return str.S, nil
	}
	return "", fmt.Errorf("expected string, got %T (%s)", s, s.SexpString(nil))
}

func toVec3(s zygo.Sexp) (geom.Vertex, error) {
	if v, ok := s.(*sexpVec3); ok {
		return v.v, nil
	}
	return geom.Vertex{}, fmt.Errorf("expected vec3, got %T (%s)", s, s.SexpString(nil))
}

func toLoop(s zygo.Sexp) (geom.Loop, error) {
	if l, ok := s.(*sexpLoop); ok {
		return l.l, nil
	}
	return geom.Loop{}, fmt.Errorf("expected loop, got %T (%s)", s, s.SexpString(nil))
}

func toVertices(args []zygo.Sexp) ([]geom.Vertex, error) {
	pts := make([]geom.Vertex, len(args))
	for i, a := range args {
		v, err := toVec3(a)
		if err != nil {
			return nil, fmt.Errorf("point %d: %w", i, err)
		}
		pts[i] = v
	}
	return pts, nil
}

// sexpListToSlice converts a SexpPair (Lisp list) or SexpArray to a Go slice.
func sexpListToSlice(s zygo.Sexp) ([]zygo.Sexp, error) {
	switch v := s.(type) {
	case *zygo.SexpPair:
		return zygo.ListToArray(v)
	case *zygo.SexpArray:
		return v.Val, nil
	case *zygo.SexpSentinel:
		if v == zygo.SexpNull {
			return nil, nil
		}
	}
	return nil, fmt.Errorf("expected list or array, got %T", s)
}

// ---------------------------------------------------------------------------
// Model builder
// ---------------------------------------------------------------------------

// guidSpace namespaces generated GUIDs so identical scripts yield identical
// models.
var guidSpace = uuid.NewSHA1(uuid.NameSpaceURL, []byte("https://github.com/chazu/brepbridge"))

// builder accumulates the model while a script runs. Entities are kept in
// creation order until a component claims them; finish moves the rest to
// the top level.
type builder struct {
	m         *model.Model
	pending   []entity
	instances int
}

func newBuilder() *builder {
	return &builder{m: model.New()}
}

func (b *builder) track(e entity) entity {
	b.pending = append(b.pending, e)
	return e
}

func (b *builder) guid(kind, name string) string {
	b.instances++
	return uuid.NewSHA1(guidSpace, []byte(fmt.Sprintf("%s/%s/%d", kind, name, b.instances))).String()
}

func (b *builder) finish() *model.Model {
	for _, e := range b.pending {
		if !e.claimed() {
			e.addTo(&b.m.Entities)
		}
	}
	return b.m
}

// ---------------------------------------------------------------------------
// Builtin registration
// ---------------------------------------------------------------------------

// registerBuiltins installs the geometry builtins into a zygomys
// environment. Source must go through preprocessSource first so that
// :keyword tokens reach the builtins as recognizable strings.
func registerBuiltins(env *zygo.Zlisp, b *builder) {

	// -----------------------------------------------------------------------
	// (vec3 1 2 3)
	// -----------------------------------------------------------------------
	env.AddFunction("vec3", func(env *zygo.Zlisp, name string, args []zygo.Sexp) (zygo.Sexp, error) {
		if len(args) != 3 {
			return zygo.SexpNull, fmt.Errorf("vec3 requires exactly 3 arguments, got %d", len(args))
		}
		var c [3]float64
		for i, a := range args {
			f, err := toFloat64(a)
			if err != nil {
				return zygo.SexpNull, fmt.Errorf("vec3: %c: %w", "xyz"[i], err)
			}
			c[i] = f
		}
		return &sexpVec3{v: geom.V(c[0], c[1], c[2])}, nil
	})

	// -----------------------------------------------------------------------
	// (polyloop (vec3 0 0 0) (vec3 10 0 0) (vec3 10 10 0))
	// -----------------------------------------------------------------------
	env.AddFunction("polyloop", func(env *zygo.Zlisp, name string, args []zygo.Sexp) (zygo.Sexp, error) {
		if len(args) < 3 {
			return zygo.SexpNull, fmt.Errorf("polyloop requires at least 3 points, got %d", len(args))
		}
		pts, err := toVertices(args)
		if err != nil {
			return zygo.SexpNull, fmt.Errorf("polyloop: %w", err)
		}
		return &sexpLoop{l: geom.LoopFromPoints(pts...)}, nil
	})

	// -----------------------------------------------------------------------
	// (edge (vec3 0 0 0) (vec3 1 0 0))
	// -----------------------------------------------------------------------
	env.AddFunction("edge", func(env *zygo.Zlisp, name string, args []zygo.Sexp) (zygo.Sexp, error) {
		if len(args) != 2 {
			return zygo.SexpNull, fmt.Errorf("edge requires exactly 2 points, got %d", len(args))
		}
		pts, err := toVertices(args)
		if err != nil {
			return zygo.SexpNull, fmt.Errorf("edge: %w", err)
		}
		return b.track(&sexpEdge{e: geom.E(pts[0], pts[1])}), nil
	})

	// -----------------------------------------------------------------------
	// (edgeloop (edge a b) (edge b c) (edge c a))
	//
	// Edges are taken as given, so a script can describe a loop that does
	// not close.
	// -----------------------------------------------------------------------
	env.AddFunction("edgeloop", func(env *zygo.Zlisp, name string, args []zygo.Sexp) (zygo.Sexp, error) {
		var l geom.Loop
		for i, a := range args {
			e, ok := a.(*sexpEdge)
			if !ok {
				return zygo.SexpNull, fmt.Errorf("edgeloop: edge %d: expected edge, got %T (%s)", i, a, a.SexpString(nil))
			}
			if !e.claim() {
				return zygo.SexpNull, fmt.Errorf("edgeloop: edge %d is already used", i)
			}
			l.Edges = append(l.Edges, e.e)
		}
		return &sexpLoop{l: l}, nil
	})

	// -----------------------------------------------------------------------
	// (polyline (vec3 0 0 0) (vec3 1 0 0) (vec3 1 1 0))
	// -----------------------------------------------------------------------
	env.AddFunction("polyline", func(env *zygo.Zlisp, name string, args []zygo.Sexp) (zygo.Sexp, error) {
		if len(args) < 2 {
			return zygo.SexpNull, fmt.Errorf("polyline requires at least 2 points, got %d", len(args))
		}
		pts, err := toVertices(args)
		if err != nil {
			return zygo.SexpNull, fmt.Errorf("polyline: %w", err)
		}
		return b.track(&sexpCurve{c: geom.CurveFromPoints(pts...)}), nil
	})

	// -----------------------------------------------------------------------
	// (mesh :vertices (list (vec3 0 0 0) ...) :faces (list (list 0 1 2) ...))
	// -----------------------------------------------------------------------
	env.AddFunction("mesh", func(env *zygo.Zlisp, name string, args []zygo.Sexp) (zygo.Sexp, error) {
		pa := parseArgs(args)
		var m geom.Mesh
		if v, ok := pa.kw["vertices"]; ok {
			items, err := sexpListToSlice(v)
			if err != nil {
				return zygo.SexpNull, fmt.Errorf("mesh: vertices: %w", err)
			}
			if m.Vertices, err = toVertices(items); err != nil {
				return zygo.SexpNull, fmt.Errorf("mesh: vertices: %w", err)
			}
		}
		if v, ok := pa.kw["faces"]; ok {
			items, err := sexpListToSlice(v)
			if err != nil {
				return zygo.SexpNull, fmt.Errorf("mesh: faces: %w", err)
			}
			for i, item := range items {
				tri, err := sexpListToSlice(item)
				if err != nil || len(tri) != 3 {
					return zygo.SexpNull, fmt.Errorf("mesh: face %d: expected three indices", i)
				}
				var idx [3]int
				for j := range tri {
					if idx[j], err = toInt(tri[j]); err != nil {
						return zygo.SexpNull, fmt.Errorf("mesh: face %d: %w", i, err)
					}
				}
				m.Faces = append(m.Faces, geom.Face{A: idx[0], B: idx[1], C: idx[2]})
			}
		}
		return &sexpMesh{m: m}, nil
	})

	// -----------------------------------------------------------------------
	// (face :outer (polyloop ...) :holes (list (polyloop ...)) :layer "walls"
	//       :mesh (mesh ...))
	// -----------------------------------------------------------------------
	env.AddFunction("face", func(env *zygo.Zlisp, name string, args []zygo.Sexp) (zygo.Sexp, error) {
		pa := parseArgs(args)
		var s geom.Surface

		v, ok := pa.kw["outer"]
		if !ok {
			return zygo.SexpNull, fmt.Errorf("face requires an :outer loop")
		}
		outer, err := toLoop(v)
		if err != nil {
			return zygo.SexpNull, fmt.Errorf("face: outer: %w", err)
		}
		s.OuterEdges = outer

		if v, ok := pa.kw["holes"]; ok {
			items, err := sexpListToSlice(v)
			if err != nil {
				return zygo.SexpNull, fmt.Errorf("face: holes: %w", err)
			}
			for i, item := range items {
				l, err := toLoop(item)
				if err != nil {
					return zygo.SexpNull, fmt.Errorf("face: hole %d: %w", i, err)
				}
				s.InnerEdges = append(s.InnerEdges, l)
			}
		}
		if v, ok := pa.kw["layer"]; ok {
			if s.Layer, err = toString(v); err != nil {
				return zygo.SexpNull, fmt.Errorf("face: layer: %w", err)
			}
		}
		if v, ok := pa.kw["mesh"]; ok {
			m, ok := v.(*sexpMesh)
			if !ok {
				return zygo.SexpNull, fmt.Errorf("face: mesh: expected mesh, got %T (%s)", v, v.SexpString(nil))
			}
			mesh := m.m
			s.Mesh = &mesh
		}
		return b.track(&sexpSurface{s: s}), nil
	})

	// -----------------------------------------------------------------------
	// (layer "walls")
	// -----------------------------------------------------------------------
	env.AddFunction("layer", func(env *zygo.Zlisp, name string, args []zygo.Sexp) (zygo.Sexp, error) {
		if len(args) != 1 {
			return zygo.SexpNull, fmt.Errorf("layer requires a name argument")
		}
		layer, err := toString(args[0])
		if err != nil {
			return zygo.SexpNull, fmt.Errorf("layer: name: %w", err)
		}
		if layer == "" {
			return zygo.SexpNull, fmt.Errorf("layer: name is empty")
		}
		b.m.AddLayer(layer)
		return &zygo.SexpStr{S: layer}, nil
	})

	// -----------------------------------------------------------------------
	// (component "panel" (face ...) (polyline ...) (instance ...) ...)
	// -----------------------------------------------------------------------
	env.AddFunction("component", func(env *zygo.Zlisp, name string, args []zygo.Sexp) (zygo.Sexp, error) {
		if len(args) < 1 {
			return zygo.SexpNull, fmt.Errorf("component requires a name argument")
		}
		compName, err := toString(args[0])
		if err != nil {
			return zygo.SexpNull, fmt.Errorf("component: name: %w", err)
		}

		c := &model.Component{Name: compName, GUID: b.guid("component", compName)}
		for i := 1; i < len(args); i++ {
			e, ok := args[i].(entity)
			if !ok {
				return zygo.SexpNull, fmt.Errorf("component: child %d: expected entity, got %T (%s)",
					i, args[i], args[i].SexpString(nil))
			}
			if !e.claim() {
				return zygo.SexpNull, fmt.Errorf("component: child %d already belongs to a component", i)
			}
			e.addTo(&c.Entities)
		}
		if err := b.m.AddComponent(c); err != nil {
			return zygo.SexpNull, fmt.Errorf("component: %w", err)
		}
		return &sexpComponent{c: c}, nil
	})

	// -----------------------------------------------------------------------
	// (instance "panel" :name "left" :at (vec3 5 0 0) :scale 2 :guid "...")
	// -----------------------------------------------------------------------
	env.AddFunction("instance", func(env *zygo.Zlisp, name string, args []zygo.Sexp) (zygo.Sexp, error) {
		pa := parseArgs(args)
		if len(pa.positional) < 1 {
			return zygo.SexpNull, fmt.Errorf("instance requires a component as first argument")
		}

		var parent *model.Component
		switch p := pa.positional[0].(type) {
		case *sexpComponent:
			parent = p.c
		case *zygo.SexpStr:
			if parent = b.m.Component(p.S); parent == nil {
				return zygo.SexpNull, fmt.Errorf("instance: no component named %q", p.S)
			}
		default:
			return zygo.SexpNull, fmt.Errorf("instance: expected component, got %T (%s)", p, p.SexpString(nil))
		}

		inst := &model.Instance{Parent: parent, Transform: geom.Identity()}
		if v, ok := pa.kw["name"]; ok {
			s, err := toString(v)
			if err != nil {
				return zygo.SexpNull, fmt.Errorf("instance: name: %w", err)
			}
			inst.Name = s
		}
		if v, ok := pa.kw["at"]; ok {
			at, err := toVec3(v)
			if err != nil {
				return zygo.SexpNull, fmt.Errorf("instance: at: %w", err)
			}
			inst.Transform.Translation = at
		}
		if v, ok := pa.kw["scale"]; ok {
			f, err := toFloat64(v)
			if err != nil {
				return zygo.SexpNull, fmt.Errorf("instance: scale: %w", err)
			}
			inst.Transform.Scale = f
		}
		if v, ok := pa.kw["guid"]; ok {
			s, err := toString(v)
			if err != nil {
				return zygo.SexpNull, fmt.Errorf("instance: guid: %w", err)
			}
			inst.GUID = s
		} else {
			inst.GUID = b.guid("instance", parent.Name)
		}
		return b.track(&sexpInstance{inst: inst}), nil
	})

	// -----------------------------------------------------------------------
	// (include-meshes)
	// -----------------------------------------------------------------------
	env.AddFunction("include_meshes", func(env *zygo.Zlisp, name string, args []zygo.Sexp) (zygo.Sexp, error) {
		b.m.IncludeMeshes = true
		return zygo.SexpNull, nil
	})
}
