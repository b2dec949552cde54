// Package reconstruct turns a native face (outer loop plus hole loops) into
// one trimmed kernel surface. The outer loop is patched, each hole loop is
// patched on its own, and every hole patch is subtracted by splitting the
// working surface against it and discarding the enclosed piece.
package reconstruct

import (
	"errors"
	"fmt"

	"github.com/chazu/brepbridge/pkg/geom"
	"github.com/chazu/brepbridge/pkg/kernel"
)

var (
	// ErrMalformedLoop is returned when a loop's edges do not form a valid
	// closed chain.
	ErrMalformedLoop = errors.New("reconstruct: malformed loop")
	// ErrReconstructionFailed is returned when a hole split does not yield
	// exactly two pieces.
	ErrReconstructionFailed = errors.New("reconstruct: reconstruction failed")
)

// Error reports a hole that could not be subtracted.
type Error struct {
	Hole   int // index into the inner loops
	Pieces int // pieces returned by the split
	Err    error
}

func (e *Error) Error() string {
	return fmt.Sprintf("reconstruct: hole %d: split returned %d pieces: %v", e.Hole, e.Pieces, e.Err)
}

func (e *Error) Unwrap() error { return e.Err }

// Curves converts a loop into kernel lines, one per edge.
func Curves(l geom.Loop) []kernel.Curve {
	out := make([]kernel.Curve, len(l.Edges))
	for i, e := range l.Edges {
		out[i] = kernel.Line{P0: e.Start.Vec(), P1: e.End.Vec()}
	}
	return out
}

// Patch validates loop and builds the untrimmed surface it bounds.
func Patch(k kernel.Kernel, loop geom.Loop) (kernel.Surface, error) {
	if err := loop.Validate(geom.Epsilon); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrMalformedLoop, err)
	}
	chain, err := k.JoinCurves(Curves(loop))
	if err != nil {
		return nil, fmt.Errorf("%w: join: %w", ErrMalformedLoop, err)
	}
	s, err := k.Patch(chain)
	if err != nil {
		return nil, fmt.Errorf("reconstruct: patch: %w", err)
	}
	return s, nil
}

// Reconstruct builds a surface bounded by outer with every inner loop
// subtracted. With no inner loops the result is the plain patch of outer.
// Holes are disjoint, so their order does not affect the result.
func Reconstruct(k kernel.Kernel, outer geom.Loop, inner []geom.Loop) (kernel.Surface, error) {
	working, err := Patch(k, outer)
	if err != nil {
		return nil, fmt.Errorf("outer loop: %w", err)
	}

	holes := make([]kernel.Surface, len(inner))
	for i, l := range inner {
		if holes[i], err = Patch(k, l); err != nil {
			return nil, fmt.Errorf("inner loop %d: %w", i, err)
		}
	}

	for i, hole := range holes {
		pieces, err := k.Split(working, hole)
		if err != nil {
			return nil, &Error{Hole: i, Err: fmt.Errorf("%w: %w", ErrReconstructionFailed, err)}
		}
		if len(pieces) != 2 {
			return nil, &Error{Hole: i, Pieces: len(pieces), Err: ErrReconstructionFailed}
		}
		kept, err := keep(pieces, hole)
		if err != nil {
			return nil, &Error{Hole: i, Pieces: 2, Err: err}
		}
		working = kept
	}
	return working, nil
}

// keep returns the one piece whose interior lies outside the hole patch.
func keep(pieces []kernel.Surface, hole kernel.Surface) (kernel.Surface, error) {
	var kept kernel.Surface
	for _, p := range pieces {
		if hole.Contains(p.InteriorPoint()) {
			continue
		}
		if kept != nil {
			return nil, fmt.Errorf("%w: both pieces lie outside the hole", ErrReconstructionFailed)
		}
		kept = p
	}
	if kept == nil {
		return nil, fmt.Errorf("%w: both pieces lie inside the hole", ErrReconstructionFailed)
	}
	return kept, nil
}
