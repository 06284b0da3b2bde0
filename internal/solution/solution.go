// Package solution holds a found control sequence, its text encoding and a
// replay through the lander physics.
package solution

import (
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/vovakirdan/mars-lander/internal/core"
	"github.com/vovakirdan/mars-lander/internal/genetic"
	"github.com/vovakirdan/mars-lander/internal/lander"
	"github.com/vovakirdan/mars-lander/internal/terrain"
)

// ErrMalformed is returned when solution text cannot be parsed.
var ErrMalformed = errors.New("solution: malformed")

// Solution is a control sequence from the initial state: the genes committed
// while searching followed by the tail of the winning chromosome.
type Solution struct {
	Committed []genetic.Gene
	Tail      []genetic.Gene
}

// Genes returns the full sequence.
func (s Solution) Genes() []genetic.Gene {
	out := make([]genetic.Gene, 0, len(s.Committed)+len(s.Tail))
	out = append(out, s.Committed...)
	return append(out, s.Tail...)
}

// Len returns the number of seconds the sequence covers.
func (s Solution) Len() int {
	return len(s.Committed) + len(s.Tail)
}

// Encode renders the sequence as space separated "angle,thrust" pairs.
func (s Solution) Encode() string {
	genes := s.Genes()
	parts := make([]string, len(genes))
	for i, g := range genes {
		parts[i] = g.String()
	}
	return strings.Join(parts, " ")
}

// Parse reads a sequence written by Encode. Blank input is an empty solution.
// Parsed genes are returned as the committed part.
func Parse(text string) (Solution, error) {
	fields := strings.Fields(text)
	genes := make([]genetic.Gene, 0, len(fields))

	for i, f := range fields {
		a, t, ok := strings.Cut(f, ",")
		if !ok {
			return Solution{}, fmt.Errorf("%w: gene %d %q: missing comma", ErrMalformed, i, f)
		}
		angle, err := strconv.Atoi(a)
		if err != nil {
			return Solution{}, fmt.Errorf("%w: gene %d angle %q", ErrMalformed, i, a)
		}
		thrust, err := strconv.Atoi(t)
		if err != nil {
			return Solution{}, fmt.Errorf("%w: gene %d thrust %q", ErrMalformed, i, t)
		}
		genes = append(genes, genetic.Gene{Angle: angle, Thrust: thrust})
	}

	return Solution{Committed: genes}, nil
}

// Trajectory is the result of replaying a solution.
type Trajectory struct {
	States  []lander.State // initial state first, then one per applied gene
	Outcome lander.Outcome
}

// Points returns the positions of the trajectory.
func (tr Trajectory) Points() []core.Vec2 {
	pts := make([]core.Vec2, len(tr.States))
	for i, s := range tr.States {
		pts[i] = s.Pos
	}
	return pts
}

// Final returns the last state.
func (tr Trajectory) Final() lander.State {
	return tr.States[len(tr.States)-1]
}

// Replay flies the solution from start. It stops at the first gene that ends
// the flight; genes left over are ignored.
func (s Solution) Replay(start lander.State, t *terrain.Terrain) Trajectory {
	genes := s.Genes()
	states := make([]lander.State, 1, len(genes)+1)
	states[0] = start

	cur := start
	out := cur.Outcome(t)
	for _, g := range genes {
		if !cur.Alive {
			break
		}
		out = cur.Advance(t, g.Angle, g.Thrust)
		states = append(states, cur)
	}

	return Trajectory{States: states, Outcome: out}
}

// Controls returns the absolute (angle, thrust) command of every second, as
// a game referee expects them.
func (tr Trajectory) Controls() [][2]int {
	out := make([][2]int, 0, len(tr.States)-1)
	for _, s := range tr.States[1:] {
		out = append(out, [2]int{s.Angle, s.Thrust})
	}
	return out
}

// DebugLines renders every state of the trajectory, one line per second.
func (tr Trajectory) DebugLines() []string {
	lines := make([]string, len(tr.States))
	for i, s := range tr.States {
		lines[i] = fmt.Sprintf("t=%3d %s", i, s.Debug())
	}
	return lines
}
