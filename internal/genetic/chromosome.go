package genetic

import (
	"math/rand"

	"github.com/vovakirdan/mars-lander/internal/lander"
	"github.com/vovakirdan/mars-lander/internal/registry"
)

// Chromosome is one candidate control sequence.
//
// Score is the raw fitness of the current generation. Cumulative is the
// roulette-wheel threshold and only means something after Normalize.
type Chromosome struct {
	Genes      []Gene
	Score      float64
	Cumulative float64
}

// NewChromosome draws size genes starting from the attitude of start.
func NewChromosome(size int, p registry.Policy, rng *rand.Rand, start lander.State) Chromosome {
	c := Chromosome{Genes: make([]Gene, size)}
	c.fill(0, p, rng, attitudeOf(start))
	return c
}

// fill regenerates genes [from, len) with the running attitude starting at a.
func (c *Chromosome) fill(from int, p registry.Policy, rng *rand.Rand, a attitude) {
	for g := from; g < len(c.Genes); g++ {
		c.Genes[g] = newGene(p, rng, a)
		a.apply(c.Genes[g])
	}
}

// copyFrom overwrites c with src without reallocating its gene slice.
func (c *Chromosome) copyFrom(src *Chromosome) {
	copy(c.Genes, src.Genes)
	c.Score = src.Score
	c.Cumulative = src.Cumulative
}

// Clone returns a deep copy.
func (c *Chromosome) Clone() Chromosome {
	genes := make([]Gene, len(c.Genes))
	copy(genes, c.Genes)
	return Chromosome{Genes: genes, Score: c.Score, Cumulative: c.Cumulative}
}
