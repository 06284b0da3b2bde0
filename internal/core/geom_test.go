package core

import (
	"math"
	"testing"
)

func TestSegmentsIntersect(t *testing.T) {
	tests := []struct {
		name     string
		a, b     Segment
		expected bool
	}{
		{
			name:     "proper crossing",
			a:        Seg(V(0, 0), V(10, 10)),
			b:        Seg(V(0, 10), V(10, 0)),
			expected: true,
		},
		{
			name:     "parallel disjoint",
			a:        Seg(V(0, 0), V(10, 0)),
			b:        Seg(V(0, 5), V(10, 5)),
			expected: false,
		},
		{
			name:     "endpoint touches interior",
			a:        Seg(V(5, 10), V(5, 0)),
			b:        Seg(V(0, 0), V(10, 0)),
			expected: true,
		},
		{
			name:     "shared endpoint",
			a:        Seg(V(0, 0), V(5, 5)),
			b:        Seg(V(5, 5), V(10, 0)),
			expected: true,
		},
		{
			name:     "collinear overlap",
			a:        Seg(V(0, 0), V(10, 0)),
			b:        Seg(V(5, 0), V(15, 0)),
			expected: true,
		},
		{
			name:     "collinear contained",
			a:        Seg(V(0, 0), V(100, 0)),
			b:        Seg(V(40, 0), V(60, 0)),
			expected: true,
		},
		{
			name:     "collinear disjoint",
			a:        Seg(V(0, 0), V(10, 0)),
			b:        Seg(V(11, 0), V(20, 0)),
			expected: false,
		},
		{
			name:     "stops just above ground",
			a:        Seg(V(50, 20), V(50, 0.5)),
			b:        Seg(V(0, 0), V(100, 0)),
			expected: false,
		},
		{
			name:     "degenerate point on segment",
			a:        Seg(V(3, 3), V(3, 3)),
			b:        Seg(V(0, 0), V(6, 6)),
			expected: true,
		},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			result := SegmentsIntersect(tc.a, tc.b)
			if result != tc.expected {
				t.Errorf("SegmentsIntersect() = %v, expected %v", result, tc.expected)
			}
			// Also test symmetry
			resultReverse := SegmentsIntersect(tc.b, tc.a)
			if resultReverse != tc.expected {
				t.Errorf("SegmentsIntersect() (reversed) = %v, expected %v", resultReverse, tc.expected)
			}
		})
	}
}

func TestSegmentsIntersectSymmetryGrid(t *testing.T) {
	// Exhaustive small lattice: every pair must agree both ways, including
	// when the endpoints of one segment are swapped.
	pts := []Vec2{V(0, 0), V(2, 0), V(0, 2), V(2, 2), V(1, 1), V(3, 1)}
	var segs []Segment
	for i := range pts {
		for j := range pts {
			if i != j {
				segs = append(segs, Seg(pts[i], pts[j]))
			}
		}
	}

	for _, a := range segs {
		for _, b := range segs {
			ab := SegmentsIntersect(a, b)
			if ab != SegmentsIntersect(b, a) {
				t.Fatalf("asymmetric result for %v and %v", a, b)
			}
			if ab != SegmentsIntersect(Seg(a.B, a.A), b) {
				t.Fatalf("direction-dependent result for %v and %v", a, b)
			}
		}
	}
}

func TestRotate(t *testing.T) {
	p := Rotate(V(1, 0), math.Cos(math.Pi/2), math.Sin(math.Pi/2))
	if math.Abs(p.X) > 1e-12 || math.Abs(p.Y-1) > 1e-12 {
		t.Errorf("Rotate((1,0), 90deg) = %v, expected (0,1)", p)
	}

	// Identity rotation leaves the point untouched
	q := Rotate(V(3, -4), 1, 0)
	if q != V(3, -4) {
		t.Errorf("identity Rotate changed point: %v", q)
	}

	// Rotation preserves length
	r := Rotate(V(3, 4), math.Cos(0.3), math.Sin(0.3))
	if math.Abs(r.Len()-5) > 1e-12 {
		t.Errorf("Rotate changed length: %f", r.Len())
	}
}

func TestSegmentHelpers(t *testing.T) {
	s := Seg(V(0, 0), V(3, 4))
	if s.Len() != 5 {
		t.Errorf("Len() = %f, expected 5", s.Len())
	}
	if s.IsFlat() {
		t.Error("sloped segment reported as flat")
	}
	if !Seg(V(1, 7), V(9, 7)).IsFlat() {
		t.Error("flat segment not reported as flat")
	}
}

func TestClamp(t *testing.T) {
	tests := []struct {
		val, min, max, expected int
	}{
		{5, 0, 10, 5},   // within range
		{-5, 0, 10, 0},  // below min
		{15, 0, 10, 10}, // above max
		{0, 0, 10, 0},   // at min
		{10, 0, 10, 10}, // at max
	}

	for _, tc := range tests {
		result := Clamp(tc.val, tc.min, tc.max)
		if result != tc.expected {
			t.Errorf("Clamp(%d, %d, %d) = %d, expected %d", tc.val, tc.min, tc.max, result, tc.expected)
		}
	}
}

func TestAbs(t *testing.T) {
	if Abs(5) != 5 {
		t.Error("Abs(5) should be 5")
	}
	if Abs(-5) != 5 {
		t.Error("Abs(-5) should be 5")
	}
	if Abs(0) != 0 {
		t.Error("Abs(0) should be 0")
	}
}
