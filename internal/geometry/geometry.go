// Package geometry provides the integer point and rectangle types the population
// is laid out on. A point is one individual; a rectangle is a social grouping.
package geometry

import (
	"fmt"
	"math"
)

// Point is an integer coordinate in the population domain.
type Point struct {
	X int `json:"x"`
	Y int `json:"y"`
}

// Distance returns the Euclidean distance between two points.
func (p Point) Distance(o Point) float64 {
	dx := float64(p.X - o.X)
	dy := float64(p.Y - o.Y)
	return math.Sqrt(dx*dx + dy*dy)
}

// String returns a summary of the point.
func (p Point) String() string {
	return fmt.Sprintf("Point(%d, %d)", p.X, p.Y)
}

// Rect is an axis-aligned rectangle with inclusive bounds on both axes.
// A Rect built by NewRect always has Width() >= 1 and Height() >= 1.
type Rect struct {
	XMin int `json:"xmin"`
	XMax int `json:"xmax"`
	YMin int `json:"ymin"`
	YMax int `json:"ymax"`
}

// NewRect creates the rectangle whose upper-left corner is (x, y) and which
// spans width columns and height rows.
func NewRect(x, y, width, height int) Rect {
	return Rect{
		XMin: x,
		XMax: x + width - 1,
		YMin: y,
		YMax: y + height - 1,
	}
}

// Width returns the number of columns covered.
func (r Rect) Width() int {
	return r.XMax - r.XMin + 1
}

// Height returns the number of rows covered.
func (r Rect) Height() int {
	return r.YMax - r.YMin + 1
}

// Area returns the number of integer points inside the rectangle.
func (r Rect) Area() int {
	return r.Width() * r.Height()
}

// Center returns the integer center, rounding toward the lower-right on even extents.
func (r Rect) Center() Point {
	return Point{X: r.XMin + r.Width()/2, Y: r.YMin + r.Height()/2}
}

// UpperLeft returns the minimum corner.
func (r Rect) UpperLeft() Point {
	return Point{X: r.XMin, Y: r.YMin}
}

// LowerRight returns the maximum corner.
func (r Rect) LowerRight() Point {
	return Point{X: r.XMax, Y: r.YMax}
}

// RatioWH returns width divided by height.
func (r Rect) RatioWH() float64 {
	return float64(r.Width()) / float64(r.Height())
}

// RatioHW returns height divided by width.
func (r Rect) RatioHW() float64 {
	return float64(r.Height()) / float64(r.Width())
}

// Contains reports whether p lies inside the rectangle.
func (r Rect) Contains(p Point) bool {
	return p.X >= r.XMin && p.X <= r.XMax && p.Y >= r.YMin && p.Y <= r.YMax
}

// Points enumerates every integer point in the rectangle, column by column.
func (r Rect) Points() []Point {
	points := make([]Point, 0, r.Area())
	for x := r.XMin; x <= r.XMax; x++ {
		for y := r.YMin; y <= r.YMax; y++ {
			points = append(points, Point{X: x, Y: y})
		}
	}
	return points
}

// String returns a summary of the rectangle.
func (r Rect) String() string {
	return fmt.Sprintf("Rect(%d-%d, %d-%d)", r.XMin, r.XMax, r.YMin, r.YMax)
}
