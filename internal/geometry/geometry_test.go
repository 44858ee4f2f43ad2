package geometry

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestNewRect_DerivedQuantities(t *testing.T) {
	r := NewRect(2, 3, 4, 5)

	assert.Equal(t, Rect{XMin: 2, XMax: 5, YMin: 3, YMax: 7}, r)
	assert.Equal(t, 4, r.Width())
	assert.Equal(t, 5, r.Height())
	assert.Equal(t, 20, r.Area())
	assert.Equal(t, Point{X: 4, Y: 5}, r.Center())
	assert.InDelta(t, 0.8, r.RatioWH(), 1e-9)
	assert.InDelta(t, 1.25, r.RatioHW(), 1e-9)
	assert.Equal(t, Point{X: 2, Y: 3}, r.UpperLeft())
	assert.Equal(t, Point{X: 5, Y: 7}, r.LowerRight())
}

func TestRect_SinglePoint(t *testing.T) {
	r := NewRect(0, 0, 1, 1)

	assert.Equal(t, 1, r.Width())
	assert.Equal(t, 1, r.Height())
	assert.Equal(t, []Point{{X: 0, Y: 0}}, r.Points())
	assert.Equal(t, Point{X: 0, Y: 0}, r.Center())
}

func TestRect_PointsAreExhaustiveAndContained(t *testing.T) {
	r := NewRect(-1, 4, 3, 2)
	points := r.Points()

	assert.Len(t, points, r.Area())
	seen := make(map[Point]bool)
	for _, p := range points {
		assert.True(t, r.Contains(p), "point %v should be inside %v", p, r)
		assert.False(t, seen[p], "point %v enumerated twice", p)
		seen[p] = true
	}
	assert.False(t, r.Contains(Point{X: 2, Y: 4}))
	assert.False(t, r.Contains(Point{X: -1, Y: 6}))
}

func TestPoint_Distance(t *testing.T) {
	a := Point{X: 0, Y: 0}
	b := Point{X: 3, Y: 4}

	assert.InDelta(t, 5.0, a.Distance(b), 1e-9)
	assert.InDelta(t, a.Distance(b), b.Distance(a), 1e-9)
	assert.Zero(t, a.Distance(a))
}
