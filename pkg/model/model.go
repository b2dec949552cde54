// Package model holds a native B-rep model for the duration of one load or
// save: top-level entities, layers, and the component definitions that
// instances place into the world. Components are owned by the model;
// instances hold a non-owning pointer to their parent and never mutate it.
package model

import (
	"errors"
	"fmt"
	"sort"

	"github.com/chazu/brepbridge/pkg/geom"
)

var (
	ErrDuplicateComponent = errors.New("model: duplicate component name")
	ErrUnnamedComponent   = errors.New("model: component has no name")
)

// Entities is a collection of native geometry, either the model's top
// level or the definition owned by a component.
type Entities struct {
	Surfaces  []geom.Surface
	Curves    []geom.Curve
	Edges     []geom.Edge
	Instances []*Instance
}

// Len returns the number of entities, counting each instance once.
func (e *Entities) Len() int {
	return len(e.Surfaces) + len(e.Curves) + len(e.Edges) + len(e.Instances)
}

// Component is a reusable geometry definition in local coordinates.
type Component struct {
	Name string
	GUID string
	Entities
}

// Instance places a component with a scale and translation.
type Instance struct {
	Name      string
	GUID      string
	Parent    *Component
	Transform geom.Transform
}

// ParentName returns the parent component name, or "" when unset.
func (i *Instance) ParentName() string {
	if i.Parent == nil {
		return ""
	}
	return i.Parent.Name
}

// Model is the container for one load or save operation.
type Model struct {
	Entities
	Layers     []geom.Layer
	Components map[string]*Component

	// IncludeMeshes enables the mesh passthrough for faces that carry a
	// cached triangulation.
	IncludeMeshes bool
}

// New returns an empty model.
func New() *Model {
	return &Model{Components: make(map[string]*Component)}
}

// AddComponent registers c under its name.
func (m *Model) AddComponent(c *Component) error {
	if c == nil || c.Name == "" {
		return ErrUnnamedComponent
	}
	if m.Components == nil {
		m.Components = make(map[string]*Component)
	}
	if _, ok := m.Components[c.Name]; ok {
		return fmt.Errorf("%w: %q", ErrDuplicateComponent, c.Name)
	}
	m.Components[c.Name] = c
	return nil
}

// Component returns the component registered under name, or nil.
func (m *Model) Component(name string) *Component {
	return m.Components[name]
}

// ComponentNames returns registered component names in sorted order.
func (m *Model) ComponentNames() []string {
	names := make([]string, 0, len(m.Components))
	for name := range m.Components {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// AddLayer records a layer once; repeated names are ignored.
func (m *Model) AddLayer(name string) {
	for _, l := range m.Layers {
		if l.Name == name {
			return
		}
	}
	m.Layers = append(m.Layers, geom.Layer{Name: name})
}
