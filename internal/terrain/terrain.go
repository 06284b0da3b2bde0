// Package terrain models the ground of a level: an ordered polyline of
// surface points with exactly one flat segment, the landing zone.
package terrain

import (
	"errors"
	"fmt"

	"github.com/vovakirdan/mars-lander/internal/core"
)

// ErrDegenerateTerrain is returned when a surface does not define exactly one
// landing zone.
var ErrDegenerateTerrain = errors.New("terrain: degenerate surface")

// NoSegment marks "no terrain segment", used for out-of-bounds deaths.
const NoSegment = -1

// World is the rectangle [0,Width]x[0,Height] a lander must stay in.
type World struct {
	Width  float64 `yaml:"width" json:"width"`
	Height float64 `yaml:"height" json:"height"`
}

// DefaultWorld is the Mars map used by the built-in levels.
func DefaultWorld() World {
	return World{Width: 6999, Height: 2999}
}

// Contains reports whether p lies inside the world, borders included.
func (w World) Contains(p core.Vec2) bool {
	return p.X >= 0 && p.X <= w.Width && p.Y >= 0 && p.Y <= w.Height
}

// Terrain is an immutable surface polyline. Segment i joins point i and i+1.
type Terrain struct {
	points  []core.Vec2
	world   World
	landing int
}

// New validates a surface and locates its landing zone.
// A surface needs at least three points and exactly one flat segment.
func New(points []core.Vec2, world World) (*Terrain, error) {
	if len(points) < 3 {
		return nil, fmt.Errorf("%w: need at least 3 points, got %d", ErrDegenerateTerrain, len(points))
	}
	if world.Width <= 0 || world.Height <= 0 {
		return nil, fmt.Errorf("terrain: invalid world %vx%v", world.Width, world.Height)
	}

	landing := NoSegment
	for i := 0; i+1 < len(points); i++ {
		if points[i].Y != points[i+1].Y {
			continue
		}
		if landing != NoSegment {
			return nil, fmt.Errorf("%w: flat segments %d and %d", ErrDegenerateTerrain, landing, i)
		}
		landing = i
	}
	if landing == NoSegment {
		return nil, fmt.Errorf("%w: no flat segment", ErrDegenerateTerrain)
	}

	pts := make([]core.Vec2, len(points))
	copy(pts, points)

	return &Terrain{points: pts, world: world, landing: landing}, nil
}

// World returns the bounds the terrain lives in.
func (t *Terrain) World() World {
	return t.world
}

// Points returns a copy of the surface points.
func (t *Terrain) Points() []core.Vec2 {
	pts := make([]core.Vec2, len(t.points))
	copy(pts, t.points)
	return pts
}

// NumSegments returns the number of surface segments.
func (t *Terrain) NumSegments() int {
	return len(t.points) - 1
}

// Segment returns the i-th surface segment.
func (t *Terrain) Segment(i int) core.Segment {
	return core.Seg(t.points[i], t.points[i+1])
}

// LandingZone returns the index of the flat segment.
func (t *Terrain) LandingZone() int {
	return t.landing
}

// Collide tests a motion segment against every surface segment in order and
// returns the first one it touches.
func (t *Terrain) Collide(motion core.Segment) (int, bool) {
	for i := 0; i+1 < len(t.points); i++ {
		if core.SegmentsIntersect(motion, t.Segment(i)) {
			return i, true
		}
	}
	return NoSegment, false
}

// PathDistance measures the walk along the surface from a crash point on
// segment crash to the nearest endpoint of the landing zone: the crash point
// to the crash segment's endpoint facing the zone, then every whole segment
// in between. Zero when the crash is on the landing zone.
func (t *Terrain) PathDistance(crash int, at core.Vec2) float64 {
	switch {
	case crash == t.landing:
		return 0
	case crash < t.landing:
		d := core.Dist(at, t.points[crash+1])
		for k := crash + 1; k < t.landing; k++ {
			d += core.Dist(t.points[k], t.points[k+1])
		}
		return d
	default:
		d := core.Dist(at, t.points[crash])
		for k := crash - 1; k > t.landing; k-- {
			d += core.Dist(t.points[k], t.points[k+1])
		}
		return d
	}
}
