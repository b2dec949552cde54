package model

import (
	"errors"
	"fmt"
	"strings"

	"github.com/chazu/brepbridge/pkg/geom"
)

// ErrInvalidModel wraps the structural errors that abort a whole operation.
var ErrInvalidModel = errors.New("model: invalid model")

// ValidationSeverity indicates whether a validation finding blocks
// conversion or is merely informational.
type ValidationSeverity int

const (
	SeverityError   ValidationSeverity = iota // blocks conversion
	SeverityWarning                           // entity will be skipped or is suspicious
)

func (s ValidationSeverity) String() string {
	switch s {
	case SeverityError:
		return "error"
	case SeverityWarning:
		return "warning"
	default:
		return fmt.Sprintf("ValidationSeverity(%d)", int(s))
	}
}

// ValidationError describes a single validation finding.
type ValidationError struct {
	Path     string             // where the problem is, "" if model-level
	Message  string             // human-readable description
	Severity ValidationSeverity // error or warning
}

func (e ValidationError) Error() string {
	if e.Path == "" {
		return fmt.Sprintf("[%s] %s", e.Severity, e.Message)
	}
	return fmt.Sprintf("[%s] %s: %s", e.Severity, e.Path, e.Message)
}

// ValidationResult bundles errors (blocking) and warnings (advisory)
// from all validation tiers.
type ValidationResult struct {
	Errors   []ValidationError
	Warnings []ValidationError
}

// Err returns nil when there are no blocking errors, otherwise an error
// wrapping ErrInvalidModel and every finding.
func (r ValidationResult) Err() error {
	if len(r.Errors) == 0 {
		return nil
	}
	errs := make([]error, 0, len(r.Errors)+1)
	errs = append(errs, ErrInvalidModel)
	for _, e := range r.Errors {
		errs = append(errs, e)
	}
	return errors.Join(errs...)
}

// Validate runs the Tier 1 structural checks: every instance has a
// registered parent and a valid transform, and no component contains
// itself through its instances. An empty slice means the model can be
// converted. Validate never mutates m.
func Validate(m *Model) []ValidationError {
	if m == nil {
		return []ValidationError{{Message: "model is nil", Severity: SeverityError}}
	}
	var errs []ValidationError
	errs = append(errs, validateInstances(m)...)
	errs = append(errs, validateComponents(m)...)
	errs = append(errs, validateAcyclic(m)...)
	return errs
}

// ValidateAll runs all tiers and separates errors from warnings. Tier 2
// findings are geometric problems local to one entity; conversion skips
// those entities and reports them.
func ValidateAll(m *Model) ValidationResult {
	var result ValidationResult
	for _, e := range Validate(m) {
		if e.Severity == SeverityWarning {
			result.Warnings = append(result.Warnings, e)
		} else {
			result.Errors = append(result.Errors, e)
		}
	}
	if m == nil {
		return result
	}
	result.Warnings = append(result.Warnings, validateGeometry(m)...)
	result.Warnings = append(result.Warnings, validateOrphans(m)...)
	result.Warnings = append(result.Warnings, validateLayers(m)...)
	return result
}

// scope is one entity collection with the path that names its owner.
type scope struct {
	path     string
	entities *Entities
}

// scopes returns the top level followed by every component in name order.
func scopes(m *Model) []scope {
	out := []scope{{path: "", entities: &m.Entities}}
	for _, name := range m.ComponentNames() {
		if c := m.Components[name]; c != nil {
			out = append(out, scope{path: componentPath(name), entities: &c.Entities})
		}
	}
	return out
}

func componentPath(name string) string {
	return fmt.Sprintf("component %q", name)
}

func join(parts ...string) string {
	var nonEmpty []string
	for _, p := range parts {
		if p != "" {
			nonEmpty = append(nonEmpty, p)
		}
	}
	return strings.Join(nonEmpty, " / ")
}

func instancePath(owner string, i int, inst *Instance) string {
	if inst != nil && inst.Name != "" {
		return join(owner, fmt.Sprintf("instance %q", inst.Name))
	}
	return join(owner, fmt.Sprintf("instance %d", i))
}

func validateInstances(m *Model) []ValidationError {
	var errs []ValidationError
	for _, sc := range scopes(m) {
		for i, inst := range sc.entities.Instances {
			path := instancePath(sc.path, i, inst)
			if inst == nil {
				errs = append(errs, ValidationError{Path: path, Message: "instance is nil", Severity: SeverityError})
				continue
			}
			if inst.Parent == nil {
				errs = append(errs, ValidationError{Path: path, Message: "instance has no parent component", Severity: SeverityError})
			} else if m.Components[inst.Parent.Name] != inst.Parent {
				errs = append(errs, ValidationError{
					Path:     path,
					Message:  fmt.Sprintf("parent component %q is not registered in the model", inst.Parent.Name),
					Severity: SeverityError,
				})
			}
			if err := inst.Transform.Validate(); err != nil {
				errs = append(errs, ValidationError{Path: path, Message: err.Error(), Severity: SeverityError})
			}
		}
	}
	return errs
}

func validateComponents(m *Model) []ValidationError {
	var errs []ValidationError
	for name, c := range m.Components {
		if c == nil {
			errs = append(errs, ValidationError{Path: componentPath(name), Message: "component is nil", Severity: SeverityError})
			continue
		}
		if c.Name != name {
			errs = append(errs, ValidationError{
				Path:     componentPath(name),
				Message:  fmt.Sprintf("registered under %q but named %q", name, c.Name),
				Severity: SeverityError,
			})
		}
	}

	seen := make(map[string]string)
	for _, sc := range scopes(m) {
		for i, inst := range sc.entities.Instances {
			if inst == nil || inst.GUID == "" {
				continue
			}
			path := instancePath(sc.path, i, inst)
			if prev, ok := seen[inst.GUID]; ok {
				errs = append(errs, ValidationError{
					Path:     path,
					Message:  fmt.Sprintf("GUID %s already used by %s", inst.GUID, prev),
					Severity: SeverityWarning,
				})
				continue
			}
			seen[inst.GUID] = path
		}
	}
	return errs
}

// validateAcyclic checks that no component reaches itself through nested
// instances, using DFS with 3-color marking.
// White (0) = unvisited, gray (1) = in current DFS path, black (2) = fully explored.
func validateAcyclic(m *Model) []ValidationError {
	const (
		white = iota
		gray
		black
	)

	color := make(map[string]int)
	var errs []ValidationError

	var visit func(name string) bool // returns true if cycle found
	visit = func(name string) bool {
		switch color[name] {
		case black:
			return false
		case gray:
			errs = append(errs, ValidationError{
				Path:     componentPath(name),
				Message:  "component contains itself through nested instances",
				Severity: SeverityError,
			})
			return true
		}

		color[name] = gray
		c := m.Components[name]
		if c == nil {
			color[name] = black
			return false
		}
		for _, inst := range c.Instances {
			if inst == nil || inst.Parent == nil {
				// Reported by validateInstances.
				continue
			}
			if visit(inst.Parent.Name) {
				return true
			}
		}
		color[name] = black
		return false
	}

	for _, name := range m.ComponentNames() {
		if color[name] == white {
			if visit(name) {
				// One cycle error is sufficient; stop early.
				break
			}
		}
	}
	return errs
}

func validateGeometry(m *Model) []ValidationError {
	var warns []ValidationError
	warn := func(path, msg string) {
		warns = append(warns, ValidationError{Path: path, Message: msg, Severity: SeverityWarning})
	}

	for _, sc := range scopes(m) {
		for i, s := range sc.entities.Surfaces {
			path := join(sc.path, fmt.Sprintf("surface %d", i))
			if err := s.OuterEdges.Validate(geom.Epsilon); err != nil {
				warn(path, "outer loop: "+err.Error())
			}
			for j, l := range s.InnerEdges {
				if err := l.Validate(geom.Epsilon); err != nil {
					warn(path, fmt.Sprintf("inner loop %d: %v", j, err))
				}
			}
			if s.Mesh != nil {
				if err := s.Mesh.Validate(); err != nil {
					warn(path, "mesh: "+err.Error())
				}
			}
		}
		for i, c := range sc.entities.Curves {
			if err := c.Validate(); err != nil {
				warn(join(sc.path, fmt.Sprintf("curve %d", i)), err.Error())
			}
		}
		for i, e := range sc.entities.Edges {
			if err := e.Validate(); err != nil {
				warn(join(sc.path, fmt.Sprintf("edge %d", i)), err.Error())
			}
		}
	}
	return warns
}

// validateOrphans warns about components that no instance places.
func validateOrphans(m *Model) []ValidationError {
	used := make(map[*Component]bool)
	for _, sc := range scopes(m) {
		for _, inst := range sc.entities.Instances {
			if inst != nil && inst.Parent != nil {
				used[inst.Parent] = true
			}
		}
	}
	var warns []ValidationError
	for _, name := range m.ComponentNames() {
		if c := m.Components[name]; c != nil && !used[c] {
			warns = append(warns, ValidationError{
				Path:     componentPath(name),
				Message:  "component is not placed by any instance (orphan)",
				Severity: SeverityWarning,
			})
		}
	}
	return warns
}

// validateLayers warns about surfaces tagged with a layer the model does
// not list.
func validateLayers(m *Model) []ValidationError {
	known := make(map[string]bool, len(m.Layers))
	for _, l := range m.Layers {
		known[l.Name] = true
	}
	var warns []ValidationError
	for _, sc := range scopes(m) {
		for i, s := range sc.entities.Surfaces {
			if s.Layer != "" && !known[s.Layer] {
				warns = append(warns, ValidationError{
					Path:     join(sc.path, fmt.Sprintf("surface %d", i)),
					Message:  fmt.Sprintf("layer %q is not declared", s.Layer),
					Severity: SeverityWarning,
				})
			}
		}
	}
	return warns
}
