package genetic

import (
	"math/rand"
	"testing"

	"github.com/vovakirdan/mars-lander/internal/lander"
	"github.com/vovakirdan/mars-lander/internal/registry"
)

func TestPoliciesRegistered(t *testing.T) {
	for _, id := range []string{PolicyBounded, PolicyFixed} {
		if !registry.Exists(id) {
			t.Errorf("policy %q not registered", id)
		}
		p, err := registry.Create(id)
		if err != nil {
			t.Fatalf("Create(%q) failed: %v", id, err)
		}
		if p.ID() != id {
			t.Errorf("ID() = %q, expected %q", p.ID(), id)
		}
	}
}

func TestGeneString(t *testing.T) {
	if got := (Gene{Angle: -15, Thrust: 1}).String(); got != "-15,1" {
		t.Errorf("String() = %q, expected %q", got, "-15,1")
	}
}

func TestFixedPolicyRange(t *testing.T) {
	rng := rand.New(rand.NewSource(1))
	p := fixedPolicy{}

	seen := map[int]bool{}
	for i := 0; i < 5000; i++ {
		da, dt := p.Delta(rng, 90, 4)
		if da < -MaxAngleDelta || da > MaxAngleDelta {
			t.Fatalf("angle delta %d out of range", da)
		}
		if dt < -MaxThrustDelta || dt > MaxThrustDelta {
			t.Fatalf("thrust delta %d out of range", dt)
		}
		seen[da] = true
	}
	// Ignores the running attitude
	if !seen[MaxAngleDelta] || !seen[-MaxAngleDelta] {
		t.Error("fixed policy should reach both angle extremes")
	}
}

func TestBoundedPolicyAtLimits(t *testing.T) {
	rng := rand.New(rand.NewSource(2))
	p := boundedPolicy{}

	tests := []struct {
		name          string
		angle, thrust int
		check         func(da, dt int) bool
	}{
		{"max angle", 90, 2, func(da, _ int) bool { return da <= 0 }},
		{"min angle", -90, 2, func(da, _ int) bool { return da >= 0 }},
		{"near max angle", 85, 2, func(da, _ int) bool { return da <= 5 && da >= -15 }},
		{"max thrust", 0, 4, func(_, dt int) bool { return dt <= 0 }},
		{"min thrust", 0, 0, func(_, dt int) bool { return dt >= 0 }},
		{"beyond limits", 120, 9, func(da, dt int) bool { return da <= 0 && dt <= 0 }},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			for i := 0; i < 1000; i++ {
				da, dt := p.Delta(rng, tc.angle, tc.thrust)
				if !tc.check(da, dt) {
					t.Fatalf("Delta(%d, %d) = (%d, %d) violates the limit", tc.angle, tc.thrust, da, dt)
				}
			}
		})
	}
}

func TestBoundedChromosomeStaysInRange(t *testing.T) {
	p := boundedPolicy{}
	starts := []lander.State{
		lander.New(0, 0, 0, 0, 0, 0, 0),
		lander.New(0, 0, 0, 0, 0, 90, 4),
		lander.New(0, 0, 0, 0, 0, -90, 0),
		lander.New(0, 0, 0, 0, 0, -45, 3),
	}

	for seed := int64(0); seed < 20; seed++ {
		rng := rand.New(rand.NewSource(seed))
		for _, start := range starts {
			c := NewChromosome(500, p, rng, start)

			angle, thrust := start.Angle, start.Thrust
			for g, gene := range c.Genes {
				angle += gene.Angle
				thrust += gene.Thrust
				if angle < lander.MinAngle || angle > lander.MaxAngle {
					t.Fatalf("seed %d gene %d: running angle %d out of range", seed, g, angle)
				}
				if thrust < lander.MinThrust || thrust > lander.MaxThrust {
					t.Fatalf("seed %d gene %d: running thrust %d out of range", seed, g, thrust)
				}
			}
		}
	}
}

func TestBoundedChromosomeNeverNeedsClamp(t *testing.T) {
	rng := rand.New(rand.NewSource(9))
	start := lander.New(3000, 2000, 0, 0, 1_000_000, 80, 4)
	c := NewChromosome(300, boundedPolicy{}, rng, start)

	s := start
	for g, gene := range c.Genes {
		angle, thrust := s.Angle, s.Thrust
		s.Step(gene.Angle, gene.Thrust)
		if s.Angle != angle+gene.Angle {
			t.Fatalf("gene %d: physics clamped angle %d%+d to %d", g, angle, gene.Angle, s.Angle)
		}
		if s.Thrust != thrust+gene.Thrust {
			t.Fatalf("gene %d: physics clamped thrust %d%+d to %d", g, thrust, gene.Thrust, s.Thrust)
		}
	}
}
