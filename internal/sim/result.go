package sim

import (
	"time"

	"github.com/vovakirdan/mars-lander/internal/core"
	"github.com/vovakirdan/mars-lander/internal/genetic"
	"github.com/vovakirdan/mars-lander/internal/lander"
	"github.com/vovakirdan/mars-lander/internal/solution"
)

// Result summarizes a search.
type Result struct {
	Found  bool
	Reason StopReason

	Generation  int            // generations evaluated
	Individual  int            // winning individual, -1 when the commits themselves landed
	Winner      []genetic.Gene // winning chromosome, nil when not found by an individual
	LandingGene int            // index of the gene that touched down
	Offset      int            // genes committed when the search ended
	Committed   []genetic.Gene

	Start   lander.State // initial condition of the search
	Final   lander.State // lander at touchdown, or the outer lander when not found
	Elapsed time.Duration
}

// FuelLeft returns the fuel in the tank at the end of the search.
func (r Result) FuelLeft() int {
	return r.Final.Fuel
}

// Solution returns the committed genes followed by the winning chromosome
// up to touchdown.
func (r Result) Solution() solution.Solution {
	s := solution.Solution{Committed: append([]genetic.Gene(nil), r.Committed...)}
	if r.Found && r.Winner != nil && r.LandingGene >= r.Offset {
		s.Tail = append([]genetic.Gene(nil), r.Winner[r.Offset:r.LandingGene+1]...)
	}
	return s
}

// Snapshot is the per-generation telemetry handed to Options.Observer.
// It shares no memory with the driver.
type Snapshot struct {
	Generation int
	Offset     int
	Paths      [][]core.Vec2 // per individual, nil unless Options.Trace
	Outcomes   []lander.Outcome
	BestScore  float64
	ScoreSum   float64
	Outer      lander.State
	Found      bool
}

// Counts tallies the outcomes of the generation.
func (s Snapshot) Counts() map[lander.Outcome]int {
	counts := make(map[lander.Outcome]int, 4)
	for _, o := range s.Outcomes {
		counts[o]++
	}
	return counts
}
