// Package sim drives the genetic search generation by generation: it flies
// every individual against the terrain, detects a safe landing, scores and
// breeds the population, and optionally commits the best gene to an outer
// lander as wall-clock or generation budgets run out.
package sim

import (
	"context"
	"errors"
	"fmt"
	"io"
	"math/rand"
	"sync"
	"time"

	"github.com/charmbracelet/log"

	"github.com/vovakirdan/mars-lander/internal/core"
	"github.com/vovakirdan/mars-lander/internal/genetic"
	"github.com/vovakirdan/mars-lander/internal/lander"
	"github.com/vovakirdan/mars-lander/internal/terrain"
)

// StopReason tells why a search ended.
type StopReason int

const (
	Running StopReason = iota
	Landed
	CommitCrashed
	Exhausted
	GenerationCap
	Canceled
)

func (r StopReason) String() string {
	switch r {
	case Running:
		return "running"
	case Landed:
		return "landed"
	case CommitCrashed:
		return "commit crashed"
	case Exhausted:
		return "genes exhausted"
	case GenerationCap:
		return "generation cap"
	case Canceled:
		return "canceled"
	default:
		return "unknown"
	}
}

// Commit describes one gene frozen into the outer lander.
type Commit struct {
	Index   int          // gene index that was committed
	Gene    genetic.Gene // committed control delta
	State   lander.State // outer lander after applying it
	Outcome lander.Outcome
}

// Options configures a Driver. The zero value runs single-threaded with no
// commits, no cap and no logging.
type Options struct {
	// Workers simulates individuals in parallel when greater than 1.
	Workers int

	// CommitEvery commits the best gene every N generations. 0 disables.
	CommitEvery int

	// CommitInterval commits the best gene whenever this much wall-clock time
	// has passed since the previous commit. 0 disables.
	CommitInterval time.Duration

	// MaxGenerations stops the search after N generations. 0 is unlimited.
	MaxGenerations int

	// Trace records every individual's waypoints for the Observer.
	Trace bool

	// Observer receives a snapshot after every generation.
	Observer func(Snapshot)

	// OnCommit is called synchronously after every commit.
	OnCommit func(Commit)

	// Logger receives progress; nil discards it.
	Logger *log.Logger

	// Now replaces time.Now, mostly for tests.
	Now func() time.Time
}

// Driver owns one search. It is not safe for concurrent use.
type Driver struct {
	pop     *genetic.Population
	terrain *terrain.Terrain
	opts    Options
	logger  *log.Logger
	now     func() time.Time

	start     lander.State
	outer     lander.State
	committed []genetic.Gene
	offset    int

	generation int
	started    time.Time
	lastCommit time.Time

	outcomes []lander.Outcome
	best     []genetic.Gene
	result   Result
}

// New creates a driver with a fresh random population for start.
func New(start lander.State, t *terrain.Terrain, cfg genetic.Config, rng *rand.Rand, opts Options) (*Driver, error) {
	pop, err := genetic.NewPopulation(start, t, cfg, rng)
	if err != nil {
		return nil, fmt.Errorf("sim: %w", err)
	}

	logger := opts.Logger
	if logger == nil {
		logger = log.New(io.Discard)
	}
	now := opts.Now
	if now == nil {
		now = time.Now
	}
	if opts.Workers < 1 {
		opts.Workers = 1
	}

	d := &Driver{
		pop:      pop,
		terrain:  t,
		opts:     opts,
		logger:   logger,
		now:      now,
		start:    start,
		outer:    start,
		outcomes: make([]lander.Outcome, cfg.Size),
	}
	d.started = now()
	d.lastCommit = d.started
	return d, nil
}

// Population exposes the underlying population.
func (d *Driver) Population() *genetic.Population { return d.pop }

// Generation returns how many generations have been evaluated.
func (d *Driver) Generation() int { return d.generation }

// Offset returns the index of the first uncommitted gene.
func (d *Driver) Offset() int { return d.offset }

// Outer returns the lander advanced by the committed genes.
func (d *Driver) Outer() lander.State { return d.outer }

// Done reports whether the search has ended.
func (d *Driver) Done() bool { return d.result.Reason != Running }

// Result returns the current result. It is final once Done is true.
func (d *Driver) Result() Result {
	r := d.result
	r.Generation = d.generation
	r.Offset = d.offset
	r.Committed = append([]genetic.Gene(nil), d.committed...)
	r.Start = d.start
	r.Elapsed = d.now().Sub(d.started)
	if r.Reason == Running || !r.Found {
		r.Final = d.outer
	}
	return r
}

// Step runs one generation and reports whether the search is over.
func (d *Driver) Step() bool {
	if d.Done() {
		return true
	}

	var paths [][]core.Vec2
	if d.opts.Trace && d.opts.Observer != nil {
		paths = make([][]core.Vec2, d.pop.Size())
	}

	d.pop.Init()
	d.simulate(paths)
	d.generation++

	if winner := d.winner(); winner >= 0 {
		d.finishLanded(winner)
		d.observe(paths, 0, 0)
		return true
	}

	sum := d.pop.Score()
	best := d.pop.Best()
	d.best = append(d.best[:0], best.Genes...)

	d.logger.Debug("generation", "n", d.generation, "best", best.Score, "sum", sum, "offset", d.offset)
	d.observe(paths, best.Score, sum)

	d.pop.Normalize()
	if d.commitDue() {
		d.commit(d.best[d.offset])
	}
	if d.Done() {
		return true
	}
	d.pop.Breed(d.offset)
	d.pop.Swap()

	if d.opts.MaxGenerations > 0 && d.generation >= d.opts.MaxGenerations {
		d.result.Reason = GenerationCap
		d.logger.Info("generation cap reached", "generations", d.generation)
		return true
	}
	return false
}

// Run steps until the search ends or ctx is canceled. Cancellation is
// checked between generations.
func (d *Driver) Run(ctx context.Context) (Result, error) {
	for !d.Done() {
		if err := ctx.Err(); err != nil {
			d.result.Reason = Canceled
			d.logger.Info("search canceled", "generations", d.generation)
			return d.Result(), err
		}
		d.Step()
	}
	return d.Result(), nil
}

// Commit freezes the next gene of the last generation's best individual
// immediately, outside the regular schedule.
func (d *Driver) Commit() (Commit, error) {
	switch {
	case d.Done():
		return Commit{}, errors.New("sim: search is over")
	case d.best == nil:
		return Commit{}, errors.New("sim: no generation evaluated yet")
	case d.offset >= len(d.best):
		return Commit{}, errors.New("sim: every gene is committed")
	}
	return d.commit(d.best[d.offset]), nil
}

func (d *Driver) simulate(paths [][]core.Vec2) {
	n := d.pop.Size()
	run := func(i int) {
		var trace func(core.Vec2)
		if paths != nil {
			trace = func(p core.Vec2) { paths[i] = append(paths[i], p) }
		}
		d.outcomes[i] = d.pop.Simulate(i, d.offset, trace)
	}

	workers := min(d.opts.Workers, n)
	if workers <= 1 {
		for i := 0; i < n; i++ {
			run(i)
		}
		return
	}

	var wg sync.WaitGroup
	chunk := (n + workers - 1) / workers
	for lo := 0; lo < n; lo += chunk {
		hi := min(lo+chunk, n)
		wg.Add(1)
		go func(lo, hi int) {
			defer wg.Done()
			for i := lo; i < hi; i++ {
				run(i)
			}
		}(lo, hi)
	}
	wg.Wait()
}

// winner returns the lowest index that landed, or -1.
func (d *Driver) winner() int {
	for i, out := range d.outcomes {
		if out == lander.Landed {
			return i
		}
	}
	return -1
}

func (d *Driver) finishLanded(i int) {
	c := d.pop.Chromosome(i)
	d.result.Found = true
	d.result.Reason = Landed
	d.result.Individual = i
	d.result.Winner = append([]genetic.Gene(nil), c.Genes...)
	d.result.Final = *d.pop.Vehicle(i)
	d.result.LandingGene = landingGene(d.outer, d.terrain, c.Genes, d.offset)

	d.logger.Info("solution found",
		"generation", d.generation,
		"individual", i,
		"gene", d.result.LandingGene,
		"fuel", d.result.Final.Fuel)
}

// landingGene replays genes from offset and returns the index of the gene
// that touched down.
func landingGene(start lander.State, t *terrain.Terrain, genes []genetic.Gene, offset int) int {
	s := start
	for g := offset; g < len(genes); g++ {
		if s.Advance(t, genes[g].Angle, genes[g].Thrust) != lander.Flying {
			return g
		}
	}
	return len(genes) - 1
}

func (d *Driver) commitDue() bool {
	if d.offset >= d.pop.Config().ChromosomeSize {
		return false
	}
	if d.opts.CommitEvery > 0 && d.generation%d.opts.CommitEvery == 0 {
		return true
	}
	if d.opts.CommitInterval > 0 && d.now().Sub(d.lastCommit) >= d.opts.CommitInterval {
		return true
	}
	return false
}

func (d *Driver) commit(g genetic.Gene) Commit {
	index := d.offset
	out := d.outer.Advance(d.terrain, g.Angle, g.Thrust)

	d.committed = append(d.committed, g)
	d.offset++
	d.lastCommit = d.now()
	d.pop.SetTemplate(d.outer)

	c := Commit{Index: index, Gene: g, State: d.outer, Outcome: out}
	d.logger.Info("commit", "index", index, "gene", g.String(), "outcome", out, "fuel", d.outer.Fuel)
	if d.opts.OnCommit != nil {
		d.opts.OnCommit(c)
	}

	switch {
	case out == lander.Landed:
		d.result.Found = true
		d.result.Reason = Landed
		d.result.Individual = -1
		d.result.Final = d.outer
		d.result.LandingGene = index
		d.logger.Info("committed genes landed", "generation", d.generation, "fuel", d.outer.Fuel)
	case out != lander.Flying:
		d.result.Reason = CommitCrashed
		d.logger.Warn("committed genes crashed", "index", index, "outcome", out)
	case d.offset >= d.pop.Config().ChromosomeSize:
		d.result.Reason = Exhausted
		d.logger.Warn("every gene committed without landing")
	}
	return c
}

func (d *Driver) observe(paths [][]core.Vec2, best, sum float64) {
	if d.opts.Observer == nil {
		return
	}
	d.opts.Observer(Snapshot{
		Generation: d.generation,
		Offset:     d.offset,
		Paths:      paths,
		Outcomes:   append([]lander.Outcome(nil), d.outcomes...),
		BestScore:  best,
		ScoreSum:   sum,
		Outer:      d.outer,
		Found:      d.result.Found,
	})
}
