package genetic

import (
	"math"

	"github.com/vovakirdan/mars-lander/internal/lander"
	"github.com/vovakirdan/mars-lander/internal/terrain"
)

// SolvedScore is awarded to an individual that landed safely.
const SolvedScore = 99999.0

// Distance score: 1000 at the landing zone, ~91 at 1000m, ~1 at 100km.
const (
	distanceScoreMax    = 1000.0
	distanceScoreFactor = 0.009999
)

// DistanceScore maps a path distance to the landing zone onto a score.
func DistanceScore(d float64) float64 {
	return distanceScoreMax / (1 + distanceScoreFactor*d)
}

// HSpeedTerm is zero at 40 m/s, negative below and positive above.
func HSpeedTerm(s float64) float64 {
	return 0.00036057692307692*s*s + 0.069711538461538*s - 3.3653846153846
}

// VSpeedTerm is zero at 20 m/s, negative below and positive above.
func VSpeedTerm(s float64) float64 {
	return 0.0003968253968254*s*s + 0.051587301587302*s - 1.1904761904762
}

// SpeedPenalty scores a touchdown on the landing zone by its speeds.
// Slow touchdowns earn a small bonus, fast ones a growing penalty.
func SpeedPenalty(vx, vy float64) float64 {
	return -5 * (HSpeedTerm(math.Abs(vx)) + VSpeedTerm(math.Abs(vy)))
}

// Fitness scores a lander at the end of its flight. Living and out-of-bounds
// landers score 0. The result is never negative.
func Fitness(s *lander.State, t *terrain.Terrain) float64 {
	if s.Alive || s.Crash == terrain.NoSegment {
		return 0
	}

	var score float64
	if s.Crash == t.LandingZone() {
		if s.IsParamSuccess() {
			return SolvedScore
		}
		score = DistanceScore(0) + SpeedPenalty(s.Vel.X, s.Vel.Y)
	} else {
		score = DistanceScore(t.PathDistance(s.Crash, s.Pos))
	}

	return math.Max(score, 0)
}
