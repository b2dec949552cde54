package engine

import (
	"strings"
	"testing"

	"github.com/chazu/brepbridge/pkg/geom"
	"github.com/chazu/brepbridge/pkg/model"
	"github.com/google/go-cmp/cmp"
	"github.com/google/uuid"
)

// ---------------------------------------------------------------------------
// Preprocessing tests
// ---------------------------------------------------------------------------

func TestPreprocessKeywords(t *testing.T) {
	tests := []struct {
		name   string
		input  string
		expect string
	}{
		{
			name:   "simple keyword",
			input:  `(face :outer l)`,
			expect: `(face "__kw_outer" l)`,
		},
		{
			name:   "multiple keywords",
			input:  `(instance p :at v :scale 2)`,
			expect: `(instance p "__kw_at" v "__kw_scale" 2)`,
		},
		{
			name:   "keyword in string preserved",
			input:  `"thing with :keyword inside"`,
			expect: `"thing with :keyword inside"`,
		},
		{
			name:   "escaped quote in string",
			input:  `"a \" :b" :c`,
			expect: `"a \" :b" "__kw_c"`,
		},
		{
			name:   "assignment operator preserved",
			input:  `(def x := 10)`,
			expect: `(def x := 10)`,
		},
		{
			name:   "kebab-case identifier",
			input:  `(include-meshes)`,
			expect: `(include_meshes)`,
		},
		{
			name:   "minus operator preserved",
			input:  `(- 10 5)`,
			expect: `(- 10 5)`,
		},
		{
			name:   "negative literal preserved",
			input:  `(vec3 -1 0 -2.5)`,
			expect: `(vec3 -1 0 -2.5)`,
		},
		{
			name:   "comment converted to // style",
			input:  `;; comment with :keyword`,
			expect: `// comment with :keyword`,
		},
		{
			name:   "hyphen in keyword preserved",
			input:  `:part-name`,
			expect: `"__kw_part-name"`,
		},
		{
			name:   "backtick string preserved",
			input:  "`raw :text`",
			expect: "`raw :text`",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := preprocessSource(tt.input)
			if got != tt.expect {
				t.Errorf("preprocessSource(%q) = %q, want %q", tt.input, got, tt.expect)
			}
		})
	}
}

// ---------------------------------------------------------------------------
// Builtin tests
// ---------------------------------------------------------------------------

func mustEvaluate(t *testing.T, source string) *model.Model {
	t.Helper()
	m, evalErrs, err := NewEngine().Evaluate(source)
	if err != nil {
		t.Fatalf("fatal error: %v", err)
	}
	if len(evalErrs) > 0 {
		t.Fatalf("eval errors: %v", evalErrs)
	}
	if m == nil {
		t.Fatal("expected non-nil model")
	}
	return m
}

func evalFails(t *testing.T, source, want string) {
	t.Helper()
	m, evalErrs, err := NewEngine().Evaluate(source)
	if err != nil {
		t.Fatalf("fatal error: %v", err)
	}
	if m != nil {
		t.Fatal("expected nil model")
	}
	if len(evalErrs) == 0 || !strings.Contains(evalErrs[0].Message, want) {
		t.Fatalf("eval errors = %v, want one containing %q", evalErrs, want)
	}
}

const framedPanel = `
(layer "panels")
(def panel
  (component "panel"
    (face :outer (polyloop (vec3 0 0 0) (vec3 10 0 0) (vec3 10 10 0) (vec3 0 10 0))
          :holes (list (polyloop (vec3 4 4 0) (vec3 6 4 0) (vec3 6 6 0) (vec3 4 6 0)))
          :layer "panels")))
(instance panel :name "p1" :at (vec3 5 0 0) :scale 2)
`

func TestFramedPanel(t *testing.T) {
	m := mustEvaluate(t, framedPanel)

	panel := m.Component("panel")
	if panel == nil {
		t.Fatal("expected component named 'panel'")
	}
	if len(panel.Surfaces) != 1 {
		t.Fatalf("expected 1 surface in component, got %d", len(panel.Surfaces))
	}
	s := panel.Surfaces[0]
	if s.OuterEdges.Len() != 4 || len(s.InnerEdges) != 1 || s.Layer != "panels" {
		t.Errorf("surface = %d edges, %d holes, layer %q", s.OuterEdges.Len(), len(s.InnerEdges), s.Layer)
	}
	if err := s.OuterEdges.Validate(0); err != nil {
		t.Errorf("outer loop invalid: %v", err)
	}
	if len(m.Surfaces) != 0 {
		t.Errorf("claimed face leaked to top level: %d surfaces", len(m.Surfaces))
	}

	if len(m.Instances) != 1 {
		t.Fatalf("expected 1 instance, got %d", len(m.Instances))
	}
	inst := m.Instances[0]
	if inst.Parent != panel || inst.Name != "p1" {
		t.Errorf("instance = %q of %q", inst.Name, inst.ParentName())
	}
	want := geom.Transform{Translation: geom.V(5, 0, 0), Scale: 2}
	if diff := cmp.Diff(want, inst.Transform); diff != "" {
		t.Errorf("transform (-want +got):\n%s", diff)
	}
	if _, err := uuid.Parse(inst.GUID); err != nil {
		t.Errorf("generated GUID %q: %v", inst.GUID, err)
	}
	if diff := cmp.Diff([]geom.Layer{{Name: "panels"}}, m.Layers); diff != "" {
		t.Errorf("layers (-want +got):\n%s", diff)
	}
	if errs := model.Validate(m); len(errs) != 0 {
		t.Errorf("Validate() = %v", errs)
	}
}

func TestGUIDsAreDeterministic(t *testing.T) {
	a := mustEvaluate(t, framedPanel)
	b := mustEvaluate(t, framedPanel)
	if a.Instances[0].GUID != b.Instances[0].GUID {
		t.Errorf("GUIDs differ across evaluations: %s vs %s", a.Instances[0].GUID, b.Instances[0].GUID)
	}
	if a.Component("panel").GUID == a.Instances[0].GUID {
		t.Error("component and instance share a GUID")
	}

	m := mustEvaluate(t, framedPanel+`(instance "panel" :guid "explicit")`)
	if len(m.Instances) != 2 || m.Instances[1].GUID != "explicit" {
		t.Errorf("explicit GUID not kept: %+v", m.Instances)
	}
	if m.Instances[1].Transform != geom.Identity() {
		t.Errorf("default transform = %+v, want identity", m.Instances[1].Transform)
	}
}

func TestTopLevelEntities(t *testing.T) {
	m := mustEvaluate(t, `
(face :outer (polyloop (vec3 0 0 0) (vec3 1 0 0) (vec3 1 1 0)))
(polyline (vec3 0 0 0) (vec3 1 0 0) (vec3 1 1 0))
(edge (vec3 0 0 0) (vec3 0 0 1))
(face :outer (edgeloop (edge (vec3 0 0 0) (vec3 2 0 0))
                       (edge (vec3 2 0 0) (vec3 2 2 0))))
(include-meshes)
`)
	if len(m.Surfaces) != 2 || len(m.Curves) != 1 || len(m.Edges) != 1 {
		t.Fatalf("got %d surfaces, %d curves, %d edges; want 2, 1, 1", len(m.Surfaces), len(m.Curves), len(m.Edges))
	}
	if len(m.Curves[0].Edges) != 2 {
		t.Errorf("polyline has %d edges, want 2", len(m.Curves[0].Edges))
	}
	if err := m.Surfaces[1].OuterEdges.Validate(0); err == nil {
		t.Error("open edgeloop should be kept as given and fail validation")
	}
	if !m.IncludeMeshes {
		t.Error("include-meshes did not set IncludeMeshes")
	}
}

func TestNestedComponents(t *testing.T) {
	m := mustEvaluate(t, `
(component "leg" (face :outer (polyloop (vec3 0 0 0) (vec3 1 0 0) (vec3 1 1 0) (vec3 0 1 0))))
(component "table"
  (instance "leg" :at (vec3 0 0 0))
  (instance "leg" :at (vec3 9 0 0)))
(instance "table" :name "t")
`)
	table := m.Component("table")
	if table == nil || len(table.Instances) != 2 {
		t.Fatalf("table = %+v", table)
	}
	if table.Instances[1].Transform.Translation != geom.V(9, 0, 0) {
		t.Errorf("second leg at %v", table.Instances[1].Transform.Translation)
	}
	if len(m.Instances) != 1 || m.Instances[0].Parent != table {
		t.Errorf("top-level instances = %+v", m.Instances)
	}
	if got := m.ComponentNames(); len(got) != 2 {
		t.Errorf("ComponentNames() = %v", got)
	}
}

func TestMesh(t *testing.T) {
	m := mustEvaluate(t, `
(face :outer (polyloop (vec3 0 0 0) (vec3 1 0 0) (vec3 1 1 0))
      :mesh (mesh :vertices (list (vec3 0 0 0) (vec3 1 0 0) (vec3 1 1 0))
                  :faces (list (list 0 1 2))))
`)
	mesh := m.Surfaces[0].Mesh
	if mesh == nil {
		t.Fatal("expected a mesh")
	}
	want := geom.Mesh{
		Vertices: []geom.Vertex{geom.V(0, 0, 0), geom.V(1, 0, 0), geom.V(1, 1, 0)},
		Faces:    []geom.Face{{A: 0, B: 1, C: 2}},
	}
	if diff := cmp.Diff(want, *mesh); diff != "" {
		t.Errorf("mesh (-want +got):\n%s", diff)
	}
}

func TestBuiltinErrors(t *testing.T) {
	tests := []struct {
		name   string
		source string
		want   string
	}{
		{"vec3 arity", `(vec3 1 2)`, "exactly 3"},
		{"vec3 type", `(vec3 1 "a" 2)`, "expected number"},
		{"short polyloop", `(polyloop (vec3 0 0 0) (vec3 1 0 0))`, "at least 3"},
		{"face without outer", `(face :layer "x")`, "outer"},
		{"hole not a loop", `(face :outer (polyloop (vec3 0 0 0) (vec3 1 0 0) (vec3 1 1 0)) :holes (list 3))`, "expected loop"},
		{"unknown component", `(instance "ghost")`, "no component named"},
		{"duplicate component", `(component "a") (component "a")`, "duplicate"},
		{"child claimed twice", `
(def f (face :outer (polyloop (vec3 0 0 0) (vec3 1 0 0) (vec3 1 1 0))))
(component "a" f)
(component "b" f)`, "already belongs"},
		{"non-entity child", `(component "a" (vec3 0 0 0))`, "expected entity"},
		{"fractional face index", `(mesh :faces (list (list 0 1 2.5)))`, "expected integer"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			evalFails(t, tt.source, tt.want)
		})
	}
}
