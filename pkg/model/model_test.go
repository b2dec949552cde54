package model_test

import (
	"errors"
	"strings"
	"testing"

	"github.com/chazu/brepbridge/pkg/geom"
	"github.com/chazu/brepbridge/pkg/model"
)

func squareSurface(side float64) geom.Surface {
	return geom.Surface{OuterEdges: geom.LoopFromPoints(
		geom.V(0, 0, 0), geom.V(side, 0, 0), geom.V(side, side, 0), geom.V(0, side, 0),
	)}
}

// newModel returns a model with one component "box" placed once at the top level.
func newModel(t *testing.T) (*model.Model, *model.Component) {
	t.Helper()
	m := model.New()
	box := &model.Component{Name: "box"}
	box.Surfaces = []geom.Surface{squareSurface(10)}
	if err := m.AddComponent(box); err != nil {
		t.Fatalf("AddComponent: %v", err)
	}
	m.Instances = append(m.Instances, &model.Instance{Name: "a", Parent: box, Transform: geom.Identity()})
	return m, box
}

func hasMessage(errs []model.ValidationError, substr string) bool {
	for _, e := range errs {
		if strings.Contains(e.Error(), substr) {
			return true
		}
	}
	return false
}

func TestAddComponent(t *testing.T) {
	m, _ := newModel(t)
	if err := m.AddComponent(&model.Component{Name: "box"}); !errors.Is(err, model.ErrDuplicateComponent) {
		t.Errorf("duplicate AddComponent = %v, want ErrDuplicateComponent", err)
	}
	if err := m.AddComponent(&model.Component{}); !errors.Is(err, model.ErrUnnamedComponent) {
		t.Errorf("unnamed AddComponent = %v, want ErrUnnamedComponent", err)
	}
	if err := m.AddComponent(&model.Component{Name: "alpha"}); err != nil {
		t.Fatalf("AddComponent: %v", err)
	}
	if got := m.ComponentNames(); len(got) != 2 || got[0] != "alpha" || got[1] != "box" {
		t.Errorf("ComponentNames() = %v, want [alpha box]", got)
	}
	if m.Component("missing") != nil {
		t.Error("Component(missing) should be nil")
	}
}

func TestAddLayerDeduplicates(t *testing.T) {
	m := model.New()
	m.AddLayer("walls")
	m.AddLayer("floor")
	m.AddLayer("walls")
	if len(m.Layers) != 2 {
		t.Errorf("Layers = %v, want 2 entries", m.Layers)
	}
}

func TestValidateClean(t *testing.T) {
	m, _ := newModel(t)
	if errs := model.Validate(m); len(errs) != 0 {
		t.Fatalf("Validate() = %v, want none", errs)
	}
	res := model.ValidateAll(m)
	if res.Err() != nil {
		t.Errorf("Err() = %v, want nil", res.Err())
	}
	if len(res.Warnings) != 0 {
		t.Errorf("Warnings = %v, want none", res.Warnings)
	}
}

func TestValidateStructuralErrors(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(m *model.Model, box *model.Component)
		want   string
	}{
		{"nil parent", func(m *model.Model, _ *model.Component) {
			m.Instances = append(m.Instances, &model.Instance{Name: "orphan", Transform: geom.Identity()})
		}, "no parent"},
		{"unregistered parent", func(m *model.Model, _ *model.Component) {
			stray := &model.Component{Name: "stray"}
			m.Instances = append(m.Instances, &model.Instance{Parent: stray, Transform: geom.Identity()})
		}, "not registered"},
		{"shadowed parent", func(m *model.Model, _ *model.Component) {
			other := &model.Component{Name: "box"}
			m.Instances = append(m.Instances, &model.Instance{Parent: other, Transform: geom.Identity()})
		}, "not registered"},
		{"zero scale", func(m *model.Model, _ *model.Component) {
			m.Instances[0].Transform.Scale = 0
		}, "scale"},
		{"nil instance", func(m *model.Model, _ *model.Component) {
			m.Instances = append(m.Instances, nil)
		}, "instance is nil"},
		{"self cycle", func(m *model.Model, box *model.Component) {
			box.Instances = append(box.Instances, &model.Instance{Parent: box, Transform: geom.Identity()})
		}, "contains itself"},
		{"two-step cycle", func(m *model.Model, box *model.Component) {
			lid := &model.Component{Name: "lid"}
			lid.Instances = []*model.Instance{{Parent: box, Transform: geom.Identity()}}
			box.Instances = []*model.Instance{{Parent: lid, Transform: geom.Identity()}}
			_ = m.AddComponent(lid)
		}, "contains itself"},
		{"misnamed component", func(m *model.Model, _ *model.Component) {
			m.Components["alias"] = &model.Component{Name: "real"}
		}, "registered under"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			m, box := newModel(t)
			tt.mutate(m, box)
			errs := model.Validate(m)
			if !hasMessage(errs, tt.want) {
				t.Fatalf("Validate() = %v, want a finding containing %q", errs, tt.want)
			}
			err := model.ValidateAll(m).Err()
			if !errors.Is(err, model.ErrInvalidModel) {
				t.Errorf("Err() = %v, want ErrInvalidModel", err)
			}
		})
	}
}

func TestValidateNilModel(t *testing.T) {
	if errs := model.Validate(nil); len(errs) != 1 {
		t.Errorf("Validate(nil) = %v, want one error", errs)
	}
	if model.ValidateAll(nil).Err() == nil {
		t.Error("ValidateAll(nil).Err() should not be nil")
	}
}

func TestValidateAllWarnings(t *testing.T) {
	m, box := newModel(t)
	open := geom.Loop{Edges: squareSurface(1).OuterEdges.Edges[:3]}
	m.Surfaces = []geom.Surface{
		{OuterEdges: open},
		{OuterEdges: squareSurface(4).OuterEdges, Layer: "ghost"},
	}
	box.Surfaces[0].Mesh = &geom.Mesh{Faces: []geom.Face{{A: 0, B: 1, C: 2}}}
	m.Curves = []geom.Curve{{}}
	m.Edges = []geom.Edge{geom.E(geom.V(1, 1, 1), geom.V(1, 1, 1))}
	_ = m.AddComponent(&model.Component{Name: "unused"})
	m.Instances = append(m.Instances, &model.Instance{Name: "b", GUID: "g1", Parent: box, Transform: geom.Identity()})
	m.Instances[0].GUID = "g1"

	res := model.ValidateAll(m)
	if err := res.Err(); err != nil {
		t.Fatalf("Err() = %v, want nil (warnings only)", err)
	}
	for _, want := range []string{
		"surface 0: outer loop",
		`component "box" / surface 0: mesh`,
		"curve 0",
		"edge 0",
		`component "unused": component is not placed`,
		`layer "ghost" is not declared`,
		"GUID g1 already used",
	} {
		if !hasMessage(res.Warnings, want) {
			t.Errorf("missing warning %q in %v", want, res.Warnings)
		}
	}
	for _, w := range res.Warnings {
		if w.Severity != model.SeverityWarning {
			t.Errorf("warning %v has severity %v", w, w.Severity)
		}
	}
}

func TestEntityError(t *testing.T) {
	base := errors.New("boom")
	e := &model.EntityError{Kind: model.KindSurface, Index: 2, Owner: `instance "a"`, Err: base}
	if !errors.Is(e, base) {
		t.Error("EntityError should unwrap to its cause")
	}
	if got, want := e.Error(), `surface 2 (in instance "a"): boom`; got != want {
		t.Errorf("Error() = %q, want %q", got, want)
	}
	top := &model.EntityError{Kind: model.KindEdge, Index: 0, Err: base}
	if got, want := top.Error(), "edge 0: boom"; got != want {
		t.Errorf("Error() = %q, want %q", got, want)
	}
}
