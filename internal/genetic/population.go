package genetic

import (
	"errors"
	"fmt"
	"math/rand"
	"sort"

	"github.com/vovakirdan/mars-lander/internal/core"
	"github.com/vovakirdan/mars-lander/internal/lander"
	"github.com/vovakirdan/mars-lander/internal/registry"
	"github.com/vovakirdan/mars-lander/internal/terrain"
)

// maxParentDraws bounds the roulette draws for a second parent distinct from
// the first before falling back to a uniform pick.
const maxParentDraws = 64

// Config holds the genetic parameters of a population.
type Config struct {
	Size           int     // number of individuals
	ChromosomeSize int     // genes per chromosome (simulation horizon in seconds)
	ElitismRatio   float64 // share of the best individuals copied unchanged
	MutationRate   float64 // probability that a gene is redrawn instead of crossed
	Policy         string  // gene generation policy ID
}

// DefaultConfig returns the classic parameters: 100 individuals of 200 genes,
// 10% elitism, 20% mutation, bounded deltas.
func DefaultConfig() Config {
	return Config{
		Size:           100,
		ChromosomeSize: 200,
		ElitismRatio:   0.1,
		MutationRate:   0.2,
		Policy:         PolicyBounded,
	}
}

// EliteCount returns floor(ElitismRatio * Size).
func (c Config) EliteCount() int {
	return int(c.ElitismRatio * float64(c.Size))
}

// Validate checks that the parameters describe a usable population.
func (c Config) Validate() error {
	switch {
	case c.Size < 2:
		return fmt.Errorf("genetic: population size must be at least 2, got %d", c.Size)
	case c.ChromosomeSize < 1:
		return fmt.Errorf("genetic: chromosome size must be positive, got %d", c.ChromosomeSize)
	case c.ElitismRatio < 0 || c.ElitismRatio > 1:
		return fmt.Errorf("genetic: elitism ratio must be in [0,1], got %v", c.ElitismRatio)
	case c.MutationRate < 0 || c.MutationRate > 1:
		return fmt.Errorf("genetic: mutation rate must be in [0,1], got %v", c.MutationRate)
	case !registry.Exists(c.Policy):
		return fmt.Errorf("genetic: unknown gene policy %q", c.Policy)
	}
	return nil
}

// Population holds two generations of chromosomes and one lander per
// individual. Vehicle i flies chromosome i of the current generation.
//
// A generation runs Init, Simulate for every individual, Score, Normalize,
// Breed and Swap, in that order. Normalize reorders the current generation,
// so vehicles and chromosomes are only paired between Init and Normalize.
type Population struct {
	cfg      Config
	policy   registry.Policy
	terrain  *terrain.Terrain
	template lander.State
	rng      *rand.Rand

	buffers  [2][]Chromosome
	current  int
	vehicles []lander.State
	elite    int

	sum        float64
	generation int
}

// NewPopulation creates a random population for the template lander.
func NewPopulation(template lander.State, t *terrain.Terrain, cfg Config, rng *rand.Rand) (*Population, error) {
	if t == nil {
		return nil, errors.New("genetic: terrain is required")
	}
	if rng == nil {
		return nil, errors.New("genetic: random source is required")
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	policy, err := registry.Create(cfg.Policy)
	if err != nil {
		return nil, fmt.Errorf("genetic: %w", err)
	}

	p := &Population{
		cfg:      cfg,
		policy:   policy,
		terrain:  t,
		template: template,
		rng:      rng,
		vehicles: make([]lander.State, cfg.Size),
		elite:    cfg.EliteCount(),
	}

	for b := range p.buffers {
		p.buffers[b] = make([]Chromosome, cfg.Size)
	}
	for i := range p.buffers[0] {
		p.buffers[0][i] = NewChromosome(cfg.ChromosomeSize, policy, rng, template)
		p.buffers[1][i] = Chromosome{Genes: make([]Gene, cfg.ChromosomeSize)}
	}

	p.Init()
	return p, nil
}

// Config returns the population parameters.
func (p *Population) Config() Config { return p.cfg }

// Size returns the number of individuals.
func (p *Population) Size() int { return p.cfg.Size }

// EliteCount returns how many chromosomes are carried over unchanged.
func (p *Population) EliteCount() int { return p.elite }

// Generation returns how many times the population has been swapped.
func (p *Population) Generation() int { return p.generation }

// Terrain returns the terrain individuals are scored against.
func (p *Population) Terrain() *terrain.Terrain { return p.terrain }

// Template returns the initial condition every vehicle starts from.
func (p *Population) Template() lander.State { return p.template }

// SetTemplate changes the initial condition used by the next Init.
func (p *Population) SetTemplate(s lander.State) {
	p.template = s
}

// Init resets every vehicle to the template.
func (p *Population) Init() {
	for i := range p.vehicles {
		p.vehicles[i].Init(p.template)
	}
}

// Vehicle returns the lander of individual i.
func (p *Population) Vehicle(i int) *lander.State {
	return &p.vehicles[i]
}

// Chromosome returns chromosome i of the current generation.
func (p *Population) Chromosome(i int) *Chromosome {
	return &p.buffers[p.current][i]
}

// Simulate flies individual i from gene offset until it dies or runs out of
// genes. trace, when set, receives the start position and every position
// after it. Individuals are independent, so distinct i may be simulated
// concurrently.
func (p *Population) Simulate(i, offset int, trace func(core.Vec2)) lander.Outcome {
	v := &p.vehicles[i]
	genes := p.buffers[p.current][i].Genes

	if trace != nil {
		trace(v.Pos)
	}
	out := v.Outcome(p.terrain)
	for g := offset; g < len(genes) && v.Alive; g++ {
		out = v.Advance(p.terrain, genes[g].Angle, genes[g].Thrust)
		if trace != nil {
			trace(v.Pos)
		}
	}
	return out
}

// Score computes the raw fitness of every individual from its vehicle and
// returns the sum.
func (p *Population) Score() float64 {
	cur := p.buffers[p.current]
	sum := 0.0
	for i := range cur {
		cur[i].Score = Fitness(&p.vehicles[i], p.terrain)
		cur[i].Cumulative = 0
		sum += cur[i].Score
	}
	p.sum = sum
	return sum
}

// Best returns the highest scoring chromosome of the current generation,
// lowest index first on ties.
func (p *Population) Best() *Chromosome {
	cur := p.buffers[p.current]
	best := 0
	for i := 1; i < len(cur); i++ {
		if cur[i].Score > cur[best].Score {
			best = i
		}
	}
	return &cur[best]
}

// Normalize sorts the current generation by descending score and turns the
// scores into a decreasing cumulative distribution: walking from worst to
// best, each Cumulative adds the individual's share of the total. The best
// individual holds exactly 1. A zero total gives every slot an equal 1/n
// band, so selection is uniform over all but the last slot.
func (p *Population) Normalize() {
	cur := p.buffers[p.current]
	sort.SliceStable(cur, func(i, j int) bool {
		return cur[i].Score > cur[j].Score
	})

	n := len(cur)
	if p.sum <= 0 {
		for i := range cur {
			cur[i].Cumulative = float64(n-i) / float64(n)
		}
	} else {
		running := 0.0
		for i := n - 1; i >= 0; i-- {
			cur[i].Cumulative = running + cur[i].Score/p.sum
			running = cur[i].Cumulative
		}
	}
	cur[0].Cumulative = 1
}

// pick draws a parent index from the normalized generation. The scan starts
// at index 1 and stops at the first threshold below the draw, then backs up
// one. A draw that no threshold falls below is redrawn.
func (p *Population) pick() int {
	cur := p.buffers[p.current]
	for {
		draw := p.rng.Float64()
		for idx := 1; idx < len(cur); idx++ {
			if cur[idx].Cumulative < draw {
				return idx - 1
			}
		}
	}
}

// pickOther draws a parent distinct from first.
func (p *Population) pickOther(first int) int {
	for i := 0; i < maxParentDraws; i++ {
		if idx := p.pick(); idx != first {
			return idx
		}
	}
	idx := p.rng.Intn(len(p.buffers[p.current]) - 1)
	if idx >= first {
		idx++
	}
	return idx
}

// Breed fills the next generation from the normalized current one. The elite
// are copied unchanged. Every other pair of slots gets two children of two
// roulette-selected parents: for each gene from offset on, a uniform draw r
// above the mutation rate blends the parents (r*p1 + (1-r)*p2 and the
// mirror), otherwise both children get freshly drawn genes. Genes before
// offset are already committed and are inherited as is.
func (p *Population) Breed(offset int) {
	cur := p.buffers[p.current]
	next := p.buffers[p.current^1]
	n := len(cur)

	for i := 0; i < p.elite; i++ {
		next[i].copyFrom(&cur[i])
	}

	start := attitudeOf(p.template)
	for i := p.elite; i < n; i += 2 {
		p1 := p.pick()
		p2 := p.pickOther(p1)
		g1, g2 := cur[p1].Genes, cur[p2].Genes

		c1 := &next[i]
		var c2 *Chromosome
		if i+1 < n {
			c2 = &next[i+1]
		}

		copy(c1.Genes[:offset], g1[:offset])
		c1.Score, c1.Cumulative = 0, 0
		if c2 != nil {
			copy(c2.Genes[:offset], g2[:offset])
			c2.Score, c2.Cumulative = 0, 0
		}

		a1, a2 := start, start
		for g := offset; g < len(g1); g++ {
			r := p.rng.Float64()
			if r > p.cfg.MutationRate {
				pa, qa := float64(g1[g].Angle), float64(g2[g].Angle)
				pt, qt := float64(g1[g].Thrust), float64(g2[g].Thrust)
				c1.Genes[g] = Gene{Angle: int(r*pa + (1-r)*qa), Thrust: int(r*pt + (1-r)*qt)}
				if c2 != nil {
					c2.Genes[g] = Gene{Angle: int((1-r)*pa + r*qa), Thrust: int((1-r)*pt + r*qt)}
				}
			} else {
				c1.Genes[g] = newGene(p.policy, p.rng, a1)
				if c2 != nil {
					c2.Genes[g] = newGene(p.policy, p.rng, a2)
				}
			}

			a1.apply(c1.Genes[g])
			if c2 != nil {
				a2.apply(c2.Genes[g])
			}
		}
	}
}

// Swap makes the bred generation current.
func (p *Population) Swap() {
	p.current ^= 1
	p.generation++
}

// Evolve scores, normalizes, breeds and swaps in one call and returns the
// score sum of the generation that was just evaluated.
func (p *Population) Evolve(offset int) float64 {
	sum := p.Score()
	p.Normalize()
	p.Breed(offset)
	p.Swap()
	return sum
}
