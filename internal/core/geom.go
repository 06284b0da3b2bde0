// Package core provides the geometric primitives shared by the physics model,
// the terrain and the terminal projection. It has no external dependencies so
// the simulation stays pure and testable.
package core

import "math"

// Vec2 is a point or a vector in world coordinates (meters).
type Vec2 struct {
	X, Y float64
}

// V is shorthand for constructing a Vec2.
func V(x, y float64) Vec2 {
	return Vec2{X: x, Y: y}
}

// Add returns v + o.
func (v Vec2) Add(o Vec2) Vec2 {
	return Vec2{X: v.X + o.X, Y: v.Y + o.Y}
}

// Sub returns v - o.
func (v Vec2) Sub(o Vec2) Vec2 {
	return Vec2{X: v.X - o.X, Y: v.Y - o.Y}
}

// Scale returns v * k.
func (v Vec2) Scale(k float64) Vec2 {
	return Vec2{X: v.X * k, Y: v.Y * k}
}

// Len returns the Euclidean length of v.
func (v Vec2) Len() float64 {
	return math.Hypot(v.X, v.Y)
}

// Dist returns the distance between two points.
func Dist(a, b Vec2) float64 {
	return a.Sub(b).Len()
}

// Rotate applies the rotation given by its cosine and sine to p.
func Rotate(p Vec2, cos, sin float64) Vec2 {
	return Vec2{
		X: p.X*cos - p.Y*sin,
		Y: p.X*sin + p.Y*cos,
	}
}

// Segment is a closed line segment between two points.
type Segment struct {
	A, B Vec2
}

// Seg creates a segment from a to b.
func Seg(a, b Vec2) Segment {
	return Segment{A: a, B: b}
}

// Len returns the length of the segment.
func (s Segment) Len() float64 {
	return Dist(s.A, s.B)
}

// IsFlat reports whether both endpoints share the same height.
func (s Segment) IsFlat() bool {
	return s.A.Y == s.B.Y
}

// Orientation of an ordered triplet of points.
type Orientation int

const (
	Collinear Orientation = iota
	Clockwise
	CounterClockwise
)

// orientation classifies the turn a -> b -> c.
func orientation(a, b, c Vec2) Orientation {
	val := (b.Y-a.Y)*(c.X-b.X) - (b.X-a.X)*(c.Y-b.Y)
	switch {
	case val == 0:
		return Collinear
	case val < 0:
		return CounterClockwise
	default:
		return Clockwise
	}
}

// onSegment reports whether p lies inside the bounding box of s.
// Only meaningful when p is already known to be collinear with s.
func onSegment(s Segment, p Vec2) bool {
	return p.X <= math.Max(s.A.X, s.B.X) && p.X >= math.Min(s.A.X, s.B.X) &&
		p.Y <= math.Max(s.A.Y, s.B.Y) && p.Y >= math.Min(s.A.Y, s.B.Y)
}

// SegmentsIntersect reports whether two closed segments share at least one
// point. Touching endpoints and collinear overlaps count as intersections:
// a landing is exactly the motion segment touching the flat ground.
func SegmentsIntersect(l1, l2 Segment) bool {
	d1 := orientation(l1.A, l1.B, l2.A)
	d2 := orientation(l1.A, l1.B, l2.B)
	d3 := orientation(l2.A, l2.B, l1.A)
	d4 := orientation(l2.A, l2.B, l1.B)

	if d1 != d2 && d3 != d4 {
		return true
	}

	if d1 == Collinear && onSegment(l1, l2.A) {
		return true
	}
	if d2 == Collinear && onSegment(l1, l2.B) {
		return true
	}
	if d3 == Collinear && onSegment(l2, l1.A) {
		return true
	}
	if d4 == Collinear && onSegment(l2, l1.B) {
		return true
	}
	return false
}

// Clamp restricts a value to be within [min, max].
func Clamp(val, min, max int) int {
	if val < min {
		return min
	}
	if val > max {
		return max
	}
	return val
}

// Abs returns the absolute value of an integer.
func Abs(x int) int {
	if x < 0 {
		return -x
	}
	return x
}
