package route

import (
	"testing"

	"github.com/common-fate/canvas/pkg/geom"
	"github.com/stretchr/testify/assert"
)

func TestCalculate(t *testing.T) {
	from := geom.Point{X: 0, Y: 0}
	to := geom.Point{X: 200, Y: 100}

	tests := []struct {
		name       string
		mode       Mode
		wantPoints []geom.Point
		wantD      string
	}{
		{
			name:       "straight",
			mode:       Straight,
			wantPoints: []geom.Point{from, to},
			wantD:      "M 0 0 L 200 100",
		},
		{
			name:       "bezier",
			mode:       Bezier,
			wantPoints: []geom.Point{from, {X: 100, Y: 0}, {X: 100, Y: 100}, to},
			wantD:      "M 0 0 C 100 0, 100 100, 200 100",
		},
		{
			name:       "orthogonal",
			mode:       Orthogonal,
			wantPoints: []geom.Point{from, {X: 100, Y: 0}, {X: 100, Y: 100}, to},
			wantD:      "M 0 0 L 100 0 L 100 100 L 200 100",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Calculate(tt.mode, from, to)
			assert.Equal(t, tt.mode, got.Mode)
			assert.Equal(t, tt.wantPoints, got.Points)
			assert.Equal(t, tt.wantD, got.D)
		})
	}
}

func TestBezierPath_MinimumOffset(t *testing.T) {
	// a backwards connection still bows outwards from both ports
	got := BezierPath(geom.Point{X: 100, Y: 0}, geom.Point{X: 80, Y: 0})
	assert.Equal(t, geom.Point{X: 150, Y: 0}, got.Points[1])
	assert.Equal(t, geom.Point{X: 30, Y: 0}, got.Points[2])
}

func TestPath_Midpoint(t *testing.T) {
	assert.Equal(t, geom.Point{X: 50, Y: 25}, StraightPath(geom.Point{}, geom.Point{X: 100, Y: 50}).Midpoint())
	assert.Equal(t, geom.Point{X: 50, Y: 25}, OrthogonalPath(geom.Point{}, geom.Point{X: 100, Y: 50}).Midpoint())
	assert.Equal(t, geom.Point{X: 100, Y: 50}, BezierPath(geom.Point{}, geom.Point{X: 200, Y: 100}).Midpoint())
}

func TestParseMode(t *testing.T) {
	for _, m := range []Mode{Bezier, Straight, Orthogonal} {
		got, err := ParseMode(m.String())
		assert.NoError(t, err)
		assert.Equal(t, m, got)
	}
	_, err := ParseMode("spline")
	assert.Error(t, err)
}
