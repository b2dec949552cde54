package geom

import (
	"errors"
	"fmt"
)

var (
	// ErrEmptyLoop is returned for a loop without edges.
	ErrEmptyLoop = errors.New("geom: loop has no edges")
	// ErrDisconnectedLoop is returned when consecutive edges do not share an endpoint.
	ErrDisconnectedLoop = errors.New("geom: consecutive loop edges do not share an endpoint")
	// ErrOpenLoop is returned when the last edge does not end at the first edge's start.
	ErrOpenLoop = errors.New("geom: loop is not closed")
)

// Loop is a closed chain of edges bounding a face or a hole.
type Loop struct {
	Edges []Edge `json:"edges"`
}

// LoopFromPoints builds a closed loop through the given points, adding the
// closing edge from the last point back to the first.
func LoopFromPoints(pts ...Vertex) Loop {
	if len(pts) < 2 {
		return Loop{}
	}
	edges := make([]Edge, 0, len(pts))
	for i := range pts {
		edges = append(edges, Edge{Start: pts[i], End: pts[(i+1)%len(pts)]})
	}
	return Loop{Edges: edges}
}

// Vertices returns the start vertex of every edge, in order.
func (l Loop) Vertices() []Vertex {
	out := make([]Vertex, len(l.Edges))
	for i, e := range l.Edges {
		out[i] = e.Start
	}
	return out
}

// Len returns the number of edges.
func (l Loop) Len() int {
	return len(l.Edges)
}

// Validate checks that the loop is a closed chain within eps. A zero eps
// means Epsilon.
func (l Loop) Validate(eps float64) error {
	if eps <= 0 {
		eps = Epsilon
	}
	if len(l.Edges) == 0 {
		return ErrEmptyLoop
	}
	for i, e := range l.Edges {
		if err := e.Validate(); err != nil {
			return fmt.Errorf("loop edge %d: %w", i, err)
		}
		if i > 0 && !l.Edges[i-1].End.Coincident(e.Start, eps) {
			return fmt.Errorf("loop edge %d starts at %v, previous ends at %v: %w",
				i, e.Start, l.Edges[i-1].End, ErrDisconnectedLoop)
		}
	}
	first, last := l.Edges[0], l.Edges[len(l.Edges)-1]
	if !last.End.Coincident(first.Start, eps) {
		return fmt.Errorf("loop ends at %v, starts at %v: %w", last.End, first.Start, ErrOpenLoop)
	}
	return nil
}

// Curve is an open chain of edges standing in for an arc or spline.
type Curve struct {
	Edges []Edge `json:"edges"`
}

// CurveFromPoints builds a polyline curve through the given points.
func CurveFromPoints(pts ...Vertex) Curve {
	if len(pts) < 2 {
		return Curve{}
	}
	edges := make([]Edge, 0, len(pts)-1)
	for i := 0; i+1 < len(pts); i++ {
		edges = append(edges, Edge{Start: pts[i], End: pts[i+1]})
	}
	return Curve{Edges: edges}
}

// Validate rejects empty curves and curves holding a degenerate edge.
func (c Curve) Validate() error {
	if len(c.Edges) == 0 {
		return ErrEmptyLoop
	}
	for i, e := range c.Edges {
		if err := e.Validate(); err != nil {
			return fmt.Errorf("curve edge %d: %w", i, err)
		}
	}
	return nil
}

func (Curve) entity() {}
