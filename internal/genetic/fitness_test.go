package genetic

import (
	"math"
	"testing"

	"github.com/vovakirdan/mars-lander/internal/core"
	"github.com/vovakirdan/mars-lander/internal/lander"
	"github.com/vovakirdan/mars-lander/internal/terrain"
)

func fitnessTerrain(t *testing.T) *terrain.Terrain {
	t.Helper()
	tr, err := terrain.New([]core.Vec2{
		core.V(0, 0), core.V(30, 40), core.V(60, 0), core.V(100, 0), core.V(100, 30), core.V(140, 0),
	}, terrain.World{Width: 200, Height: 200})
	if err != nil {
		t.Fatalf("terrain.New() failed: %v", err)
	}
	return tr
}

func TestSpeedTermsZeroAtLimits(t *testing.T) {
	if v := HSpeedTerm(40); math.Abs(v) > 1e-9 {
		t.Errorf("HSpeedTerm(40) = %g, expected 0", v)
	}
	if v := VSpeedTerm(20); math.Abs(v) > 1e-9 {
		t.Errorf("VSpeedTerm(20) = %g, expected 0", v)
	}
	if HSpeedTerm(0) >= 0 || VSpeedTerm(0) >= 0 {
		t.Error("speed terms should be negative at rest")
	}
	if HSpeedTerm(200) <= 0 || VSpeedTerm(200) <= 0 {
		t.Error("speed terms should be positive at high speed")
	}
}

func TestSpeedPenalty(t *testing.T) {
	if SpeedPenalty(0, 0) <= 0 {
		t.Errorf("SpeedPenalty(0, 0) = %f, expected a bonus", SpeedPenalty(0, 0))
	}
	if SpeedPenalty(100, -100) >= 0 {
		t.Errorf("SpeedPenalty(100, -100) = %f, expected a penalty", SpeedPenalty(100, -100))
	}
	if SpeedPenalty(-30, -60) != SpeedPenalty(30, 60) {
		t.Error("SpeedPenalty should depend on magnitudes only")
	}
	if v := SpeedPenalty(40, -20); math.Abs(v) > 1e-9 {
		t.Errorf("SpeedPenalty(40, -20) = %g, expected 0 at the limits", v)
	}
	if SpeedPenalty(20, -40) >= 0 {
		t.Error("SpeedPenalty(20, -40) should penalize a vertical speed over its limit")
	}
}

func TestDistanceScore(t *testing.T) {
	if DistanceScore(0) != 1000 {
		t.Errorf("DistanceScore(0) = %f, expected 1000", DistanceScore(0))
	}
	if v := DistanceScore(100); math.Abs(v-500.025) > 1e-3 {
		t.Errorf("DistanceScore(100) = %f, expected ~500.025", v)
	}
	prev := DistanceScore(0)
	for d := 10.0; d < 1e5; d *= 2 {
		cur := DistanceScore(d)
		if cur >= prev {
			t.Fatalf("DistanceScore not decreasing at %f", d)
		}
		prev = cur
	}
}

func TestFitness(t *testing.T) {
	tr := fitnessTerrain(t)

	dead := func(x, y, vx, vy float64, angle, crash int) lander.State {
		s := lander.New(x, y, vx, vy, 0, angle, 0)
		s.Alive = false
		s.Crash = crash
		return s
	}

	tests := []struct {
		name     string
		state    lander.State
		expected float64
	}{
		{"alive", lander.New(50, 100, 0, 0, 100, 0, 0), 0},
		{"out of bounds", dead(250, 100, 0, 0, 0, terrain.NoSegment), 0},
		{"landed", dead(80, 0, 5, -30, 10, 2), SolvedScore},
		{"hard landing", dead(80, 0, 0, -50, 0, 2), 1000 + SpeedPenalty(0, -50)},
		{"tilted landing", dead(80, 0, 0, -10, 30, 2), 1000 + SpeedPenalty(0, -10)},
		{"wreck on the pad", dead(80, 0, 0, -1000, 0, 2), 0},
		{"left slope", dead(45, 20, 0, -10, 0, 1), DistanceScore(25)},
		{"far left slope", dead(15, 20, 0, -10, 0, 0), DistanceScore(75)},
		{"right wall", dead(100, 10, 0, -10, 0, 3), DistanceScore(10)},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			got := Fitness(&tc.state, tr)
			if math.Abs(got-tc.expected) > 1e-9 {
				t.Errorf("Fitness() = %f, expected %f", got, tc.expected)
			}
			if got < 0 {
				t.Errorf("Fitness() = %f, must not be negative", got)
			}
		})
	}
}
