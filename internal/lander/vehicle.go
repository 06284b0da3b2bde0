// Package lander implements the discrete-time physics of a single Mars lander.
package lander

import (
	"fmt"
	"math"

	"github.com/vovakirdan/mars-lander/internal/core"
	"github.com/vovakirdan/mars-lander/internal/terrain"
)

// Gravity is the Mars surface gravity in m/s².
const Gravity = -3.711

// Control limits.
const (
	MinAngle  = -90
	MaxAngle  = 90
	MinThrust = 0
	MaxThrust = 4
)

// Landing limits checked by IsParamSuccess.
const (
	MaxLandingAngle  = 15
	MaxLandingHSpeed = 20
	MaxLandingVSpeed = 40
)

// Outcome classifies where a lander ended up after a step.
type Outcome int

const (
	Flying Outcome = iota
	OutOfBounds
	Crashed
	Landed
)

func (o Outcome) String() string {
	switch o {
	case Flying:
		return "flying"
	case OutOfBounds:
		return "out of bounds"
	case Crashed:
		return "crashed"
	case Landed:
		return "landed"
	default:
		return "unknown"
	}
}

// State is the full kinematic state of one lander.
// Once Alive is false the state is frozen and Step does nothing.
type State struct {
	Pos    core.Vec2
	Prev   core.Vec2
	Vel    core.Vec2
	Acc    core.Vec2
	Angle  int
	Thrust int
	Fuel   int
	Alive  bool
	Crash  int // terrain segment hit, terrain.NoSegment when out of bounds or flying
}

// New creates a living lander from an initial condition.
func New(x, y, vx, vy float64, fuel, angle, thrust int) State {
	return State{
		Pos:    core.V(x, y),
		Prev:   core.V(x, y),
		Vel:    core.V(vx, vy),
		Angle:  core.Clamp(angle, MinAngle, MaxAngle),
		Thrust: core.Clamp(thrust, MinThrust, MaxThrust),
		Fuel:   max(fuel, 0),
		Alive:  true,
		Crash:  terrain.NoSegment,
	}
}

// Init resets s to the template, reviving it.
func (s *State) Init(template State) {
	*s = template
	s.Prev = template.Pos
	s.Alive = true
	s.Crash = terrain.NoSegment
}

// Step integrates one second of flight with the requested control deltas.
func (s *State) Step(angleDelta, thrustDelta int) {
	if !s.Alive {
		return
	}

	s.Prev = s.Pos
	s.Angle = core.Clamp(s.Angle+angleDelta, MinAngle, MaxAngle)
	if s.Fuel == 0 {
		s.Thrust = 0
	} else {
		s.Thrust = core.Clamp(s.Thrust+thrustDelta, MinThrust, MaxThrust)
	}
	s.Fuel = max(s.Fuel-s.Thrust, 0)

	rad := -float64(s.Angle) * math.Pi / 180
	s.Acc = core.V(
		float64(s.Thrust)*math.Sin(rad),
		float64(s.Thrust)*math.Cos(rad)+Gravity,
	)

	// Old velocity, new acceleration.
	s.Pos = s.Pos.Add(s.Acc.Scale(0.5)).Add(s.Vel)
	if s.Pos.Y < 0 {
		s.Pos.Y = 0
	}
	s.Vel = s.Vel.Add(s.Acc)
}

// IsParamSuccess reports whether the attitude and speeds allow a safe
// touchdown. Position and fuel do not matter.
func (s *State) IsParamSuccess() bool {
	return core.Abs(s.Angle) <= MaxLandingAngle &&
		math.Abs(s.Vel.X) <= MaxLandingHSpeed &&
		math.Abs(s.Vel.Y) <= MaxLandingVSpeed
}

// Advance steps the lander and checks it against the world and terrain.
// Leaving the world kills it with Crash = terrain.NoSegment; touching the
// surface kills it on the first segment hit in index order.
func (s *State) Advance(t *terrain.Terrain, angleDelta, thrustDelta int) Outcome {
	if !s.Alive {
		return s.Outcome(t)
	}

	s.Step(angleDelta, thrustDelta)

	if !t.World().Contains(s.Pos) {
		s.Alive = false
		s.Crash = terrain.NoSegment
		return OutOfBounds
	}
	if seg, hit := t.Collide(core.Seg(s.Prev, s.Pos)); hit {
		s.Alive = false
		s.Crash = seg
	}
	return s.Outcome(t)
}

// Outcome classifies the current state without changing it.
func (s *State) Outcome(t *terrain.Terrain) Outcome {
	switch {
	case s.Alive:
		return Flying
	case s.Crash == terrain.NoSegment:
		return OutOfBounds
	case s.Crash == t.LandingZone() && s.IsParamSuccess():
		return Landed
	default:
		return Crashed
	}
}

// Debug renders the state the way the game referee prints it, rounding
// positions and speeds.
func (s *State) Debug() string {
	return fmt.Sprintf("X=%dm, Y=%dm, HSpeed=%dm/s VSpeed=%dm/s Fuel=%dl, Angle=%d°, Power=%d",
		int(math.Round(s.Pos.X)), int(math.Round(s.Pos.Y)),
		int(math.Round(s.Vel.X)), int(math.Round(s.Vel.Y)),
		s.Fuel, s.Angle, s.Thrust)
}
