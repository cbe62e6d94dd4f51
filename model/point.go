package model

import "fmt"

// Point is an integer tile coordinate. X grows to the right, Y grows downward.
type Point struct {
	X int
	Y int
}

// Pt is shorthand for Point{X: x, Y: y}.
func Pt(x, y int) Point { return Point{X: x, Y: y} }

// Adjacent reports whether q is one of the eight tiles surrounding p.
// A point is never adjacent to itself.
func (p Point) Adjacent(q Point) bool {
	dx := abs(p.X - q.X)
	dy := abs(p.Y - q.Y)
	return max(dx, dy) == 1
}

// DistanceSq returns the squared Euclidean distance between p and q.
func (p Point) DistanceSq(q Point) int {
	dx := p.X - q.X
	dy := p.Y - q.Y
	return dx*dx + dy*dy
}

// Add returns p translated by (dx, dy).
func (p Point) Add(dx, dy int) Point {
	return Point{X: p.X + dx, Y: p.Y + dy}
}

func (p Point) String() string {
	return fmt.Sprintf("(%d,%d)", p.X, p.Y)
}

func abs(v int) int {
	if v < 0 {
		return -v
	}
	return v
}
