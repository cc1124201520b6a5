// Package route computes connection path geometry.
//
// Every routing function is pure: it takes two endpoint positions and
// returns a Path. The canvas picks a Mode per diagram and never stores
// routed geometry in the graph itself.
package route

import (
	"fmt"
	"math"
	"strings"

	"github.com/common-fate/canvas/pkg/geom"
	"github.com/pkg/errors"
)

type Mode int

const (
	Bezier Mode = iota
	Straight
	Orthogonal
)

func (m Mode) String() string {
	switch m {
	case Straight:
		return "straight"
	case Orthogonal:
		return "orthogonal"
	}
	return "bezier"
}

// ParseMode parses the name of a routing mode.
func ParseMode(s string) (Mode, error) {
	switch s {
	case "bezier", "":
		return Bezier, nil
	case "straight":
		return Straight, nil
	case "orthogonal":
		return Orthogonal, nil
	}
	return Bezier, errors.Errorf("unknown path mode %q", s)
}

// MinControlOffset is the smallest horizontal distance between
// an endpoint and its bezier control point. It keeps short or
// backwards connections from collapsing into a straight line.
const MinControlOffset = 50.0

// Path is a routed connection.
type Path struct {
	Mode Mode
	// Points are the vertices of the route. For bezier paths
	// they are start, control 1, control 2 and end.
	Points []geom.Point
	// D is the path in SVG path-data syntax.
	D string
}

// Midpoint returns a point halfway along the route, used to place labels.
func (p Path) Midpoint() geom.Point {
	switch len(p.Points) {
	case 0:
		return geom.Point{}
	case 1:
		return p.Points[0]
	}

	if p.Mode == Bezier && len(p.Points) == 4 {
		// cubic bezier at t=0.5
		a, b, c, d := p.Points[0], p.Points[1], p.Points[2], p.Points[3]
		return geom.Point{
			X: 0.125*a.X + 0.375*b.X + 0.375*c.X + 0.125*d.X,
			Y: 0.125*a.Y + 0.375*b.Y + 0.375*c.Y + 0.125*d.Y,
		}
	}

	// walk the polyline until half of its length is covered
	total := 0.0
	for i := 1; i < len(p.Points); i++ {
		total += dist(p.Points[i-1], p.Points[i])
	}
	half := total / 2
	for i := 1; i < len(p.Points); i++ {
		seg := dist(p.Points[i-1], p.Points[i])
		if seg >= half && seg > 0 {
			t := half / seg
			from, to := p.Points[i-1], p.Points[i]
			return geom.Point{X: from.X + (to.X-from.X)*t, Y: from.Y + (to.Y-from.Y)*t}
		}
		half -= seg
	}
	return p.Points[len(p.Points)-1]
}

// Calculate dispatches to the routing function for mode.
func Calculate(mode Mode, from, to geom.Point) Path {
	switch mode {
	case Straight:
		return StraightPath(from, to)
	case Orthogonal:
		return OrthogonalPath(from, to)
	}
	return BezierPath(from, to)
}

// StraightPath is a direct line between the endpoints.
func StraightPath(from, to geom.Point) Path {
	return Path{
		Mode:   Straight,
		Points: []geom.Point{from, to},
		D:      fmt.Sprintf("M %s L %s", coord(from), coord(to)),
	}
}

// BezierPath is a cubic curve leaving the source horizontally to the right
// and entering the target horizontally from the left.
func BezierPath(from, to geom.Point) Path {
	offset := math.Max(math.Abs(to.X-from.X)/2, MinControlOffset)
	c1 := geom.Point{X: from.X + offset, Y: from.Y}
	c2 := geom.Point{X: to.X - offset, Y: to.Y}
	return Path{
		Mode:   Bezier,
		Points: []geom.Point{from, c1, c2, to},
		D:      fmt.Sprintf("M %s C %s, %s, %s", coord(from), coord(c1), coord(c2), coord(to)),
	}
}

// OrthogonalPath routes through a single vertical midline:
// horizontal from the source, vertical at the midline, horizontal into the target.
func OrthogonalPath(from, to geom.Point) Path {
	midX := (from.X + to.X) / 2
	points := []geom.Point{
		from,
		{X: midX, Y: from.Y},
		{X: midX, Y: to.Y},
		to,
	}

	var sb strings.Builder
	sb.WriteString("M " + coord(points[0]))
	for _, p := range points[1:] {
		sb.WriteString(" L " + coord(p))
	}

	return Path{Mode: Orthogonal, Points: points, D: sb.String()}
}

func coord(p geom.Point) string {
	return fmt.Sprintf("%g %g", p.X, p.Y)
}

func dist(a, b geom.Point) float64 {
	return math.Hypot(b.X-a.X, b.Y-a.Y)
}
