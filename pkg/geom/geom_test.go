package geom

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestNormalize(t *testing.T) {
	tests := []struct {
		name           string
		x1, y1, x2, y2 float64
		want           Rect
	}{
		{name: "top-left to bottom-right", x1: 0, y1: 0, x2: 10, y2: 20, want: Rect{0, 0, 10, 20}},
		{name: "bottom-right to top-left", x1: 10, y1: 20, x2: 0, y2: 0, want: Rect{0, 0, 10, 20}},
		{name: "bottom-left to top-right", x1: 0, y1: 20, x2: 10, y2: 0, want: Rect{0, 0, 10, 20}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Normalize(tt.x1, tt.y1, tt.x2, tt.y2))
		})
	}
}

func TestRect_Contains(t *testing.T) {
	box := Rect{X: 0, Y: 0, Width: 100, Height: 100}

	assert.True(t, box.Contains(Rect{X: 10, Y: 10, Width: 20, Height: 20}))
	assert.True(t, box.Contains(box), "a rectangle contains itself")
	assert.False(t, box.Contains(Rect{X: 90, Y: 10, Width: 20, Height: 20}), "partial overlap is not containment")
	assert.True(t, box.Intersects(Rect{X: 90, Y: 10, Width: 20, Height: 20}))
	assert.False(t, box.Intersects(Rect{X: 100, Y: 0, Width: 10, Height: 10}), "touching edges do not intersect")
}

func TestBounds(t *testing.T) {
	_, ok := Bounds()
	assert.False(t, ok)

	got, ok := Bounds(
		Rect{X: 0, Y: 0, Width: 10, Height: 10},
		Rect{X: 50, Y: -20, Width: 10, Height: 10},
	)
	assert.True(t, ok)
	assert.Equal(t, Rect{X: 0, Y: -20, Width: 60, Height: 30}, got)
	assert.Equal(t, Point{X: 30, Y: -5}, got.Center())
	assert.Equal(t, Rect{X: -5, Y: -25, Width: 70, Height: 40}, got.Inset(5))
}
