// Package genetic implements the continuous genetic algorithm that searches
// for a lander control sequence: genes, chromosomes, fitness and the
// double-buffered population.
package genetic

import (
	"fmt"
	"math/rand"

	"github.com/vovakirdan/mars-lander/internal/core"
	"github.com/vovakirdan/mars-lander/internal/lander"
	"github.com/vovakirdan/mars-lander/internal/registry"
)

// Per-gene delta limits.
const (
	MaxAngleDelta  = 15
	MaxThrustDelta = 1
)

// Policy IDs.
const (
	PolicyBounded = "bounded"
	PolicyFixed   = "fixed"
)

// Gene is one second of control: the change applied to angle and thrust.
type Gene struct {
	Angle  int
	Thrust int
}

func (g Gene) String() string {
	return fmt.Sprintf("%d,%d", g.Angle, g.Thrust)
}

// attitude tracks the angle and thrust a chromosome has accumulated so far,
// clamped the same way the physics clamps them.
type attitude struct {
	angle, thrust int
}

func attitudeOf(s lander.State) attitude {
	return attitude{angle: s.Angle, thrust: s.Thrust}
}

func (a *attitude) apply(g Gene) {
	a.angle = core.Clamp(a.angle+g.Angle, lander.MinAngle, lander.MaxAngle)
	a.thrust = core.Clamp(a.thrust+g.Thrust, lander.MinThrust, lander.MaxThrust)
}

func newGene(p registry.Policy, rng *rand.Rand, a attitude) Gene {
	da, dt := p.Delta(rng, a.angle, a.thrust)
	return Gene{Angle: da, Thrust: dt}
}

// boundedPolicy narrows the delta range near the control limits so the
// running attitude never leaves [-90,90] x [0,4].
type boundedPolicy struct{}

func (boundedPolicy) ID() string    { return PolicyBounded }
func (boundedPolicy) Title() string { return "Deltas narrowed near the control limits" }

func (boundedPolicy) Delta(rng *rand.Rand, angle, thrust int) (int, int) {
	angle = core.Clamp(angle, lander.MinAngle, lander.MaxAngle)
	thrust = core.Clamp(thrust, lander.MinThrust, lander.MaxThrust)

	down := min(angle-lander.MinAngle, MaxAngleDelta)
	up := min(lander.MaxAngle-angle, MaxAngleDelta)
	da := rng.Intn(down+up+1) - down

	less := min(thrust-lander.MinThrust, MaxThrustDelta)
	more := min(lander.MaxThrust-thrust, MaxThrustDelta)
	dt := rng.Intn(less+more+1) - less

	return da, dt
}

// fixedPolicy always draws from the full ±15 / ±1 range and leaves the
// physics to clamp.
type fixedPolicy struct{}

func (fixedPolicy) ID() string    { return PolicyFixed }
func (fixedPolicy) Title() string { return "Full ±15°/±1 range, clamped by physics" }

func (fixedPolicy) Delta(rng *rand.Rand, _, _ int) (int, int) {
	da := rng.Intn(2*MaxAngleDelta+1) - MaxAngleDelta
	dt := rng.Intn(2*MaxThrustDelta+1) - MaxThrustDelta
	return da, dt
}

func init() {
	registry.Register(PolicyBounded, func() registry.Policy { return boundedPolicy{} })
	registry.Register(PolicyFixed, func() registry.Policy { return fixedPolicy{} })
}
