package model

import "fmt"

// EntityKind names the collection an entity came from.
type EntityKind int

const (
	KindSurface EntityKind = iota
	KindCurve
	KindEdge
	KindMesh
	KindInstance
)

func (k EntityKind) String() string {
	switch k {
	case KindSurface:
		return "surface"
	case KindCurve:
		return "curve"
	case KindEdge:
		return "edge"
	case KindMesh:
		return "mesh"
	case KindInstance:
		return "instance"
	default:
		return fmt.Sprintf("EntityKind(%d)", int(k))
	}
}

// EntityError is a failure local to one entity. The entity is omitted from
// the result and the rest of the batch continues.
type EntityError struct {
	Kind  EntityKind
	Index int    // position within its collection
	Owner string // instance or component path, "" for top level
	Err   error
}

func (e *EntityError) Error() string {
	if e.Owner == "" {
		return fmt.Sprintf("%s %d: %v", e.Kind, e.Index, e.Err)
	}
	return fmt.Sprintf("%s %d (in %s): %v", e.Kind, e.Index, e.Owner, e.Err)
}

func (e *EntityError) Unwrap() error { return e.Err }
