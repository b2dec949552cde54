// Package kernel defines the target geometric kernel contract. The
// reconstruction core only needs four primitives from a kernel: join an
// ordered chain of curves, patch a surface bounded by a closed chain, split a
// surface by another surface, and mesh a surface for display. Any backend
// that offers these can host the core; pkg/kernel/sdfx is the bundled one.
package kernel

import (
	"errors"

	v3 "github.com/deadsy/sdfx/vec/v3"
)

// Sentinel errors shared by kernel implementations.
var (
	ErrEmptyChain     = errors.New("kernel: empty curve chain")
	ErrDisconnected   = errors.New("kernel: curves do not form a connected chain")
	ErrOpenBoundary   = errors.New("kernel: patch boundary is not closed")
	ErrForeignSurface = errors.New("kernel: surface was not built by this kernel")
)

// Surface is a bounded patch. Implementations are immutable once built.
type Surface interface {
	// BoundingBox returns the axis-aligned bounding box.
	BoundingBox() (min, max [3]float64)
	// Area returns the trimmed area, holes excluded.
	Area() float64
	// Normal returns the unit normal of the patch.
	Normal() v3.Vec
	// PerimeterCurves returns the ordered outer boundary.
	PerimeterCurves() []Curve
	// HoleCurves returns one ordered boundary per hole.
	HoleCurves() [][]Curve
	// Contains reports whether p lies on the trimmed patch (holes excluded).
	Contains(p v3.Vec) bool
	// InteriorPoint returns a point strictly inside the trimmed patch.
	InteriorPoint() v3.Vec
}

// Kernel is the abstract geometry kernel interface.
type Kernel interface {
	// JoinCurves joins an ordered chain into one boundary curve. Consecutive
	// curves must share endpoints.
	JoinCurves(curves []Curve) (*PolyCurve, error)

	// Patch builds a surface bounded by a closed chain.
	Patch(boundary *PolyCurve) (Surface, error)

	// Split partitions s along the boundary of tool and returns the
	// resulting pieces. A tool that does not cut s yields s alone.
	Split(s, tool Surface) ([]Surface, error)

	// ToMesh triangulates a surface for display.
	ToMesh(s Surface) (*Mesh, error)
}
