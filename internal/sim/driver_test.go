package sim

import (
	"context"
	"errors"
	"math/rand"
	"reflect"
	"testing"
	"time"

	"github.com/vovakirdan/mars-lander/internal/core"
	"github.com/vovakirdan/mars-lander/internal/genetic"
	"github.com/vovakirdan/mars-lander/internal/lander"
	"github.com/vovakirdan/mars-lander/internal/terrain"
)

func padTerrain(t *testing.T) *terrain.Terrain {
	t.Helper()
	tr, err := terrain.New([]core.Vec2{
		core.V(0, 300), core.V(50, 0), core.V(150, 0), core.V(1000, 300),
	}, terrain.World{Width: 1000, Height: 1000})
	if err != nil {
		t.Fatalf("terrain.New() failed: %v", err)
	}
	return tr
}

// hover starts 500m above the middle of the pad with plenty of fuel.
func hover() lander.State {
	return lander.New(100, 500, 0, 0, 1000, 0, 0)
}

// dry starts at the same place with an empty tank.
func dry() lander.State {
	return lander.New(100, 500, 0, 0, 0, 0, 0)
}

func newDriver(t *testing.T, start lander.State, seed int64, opts Options) *Driver {
	t.Helper()
	d, err := New(start, padTerrain(t), genetic.DefaultConfig(), rand.New(rand.NewSource(seed)), opts)
	if err != nil {
		t.Fatalf("New() failed: %v", err)
	}
	return d
}

type fakeClock struct {
	t    time.Time
	step time.Duration
}

func (c *fakeClock) Now() time.Time {
	now := c.t
	c.t = c.t.Add(c.step)
	return now
}

func assertSolutionLands(t *testing.T, r Result, tr *terrain.Terrain) {
	t.Helper()
	traj := r.Solution().Replay(r.Start, tr)
	if traj.Outcome != lander.Landed {
		t.Fatalf("replaying the solution ends %v, expected %v", traj.Outcome, lander.Landed)
	}
	if traj.Final().Fuel != r.FuelLeft() {
		t.Errorf("replayed fuel %d, result reports %d", traj.Final().Fuel, r.FuelLeft())
	}
}

func TestNewRejectsBadConfig(t *testing.T) {
	cfg := genetic.DefaultConfig()
	cfg.Size = 0
	if _, err := New(hover(), padTerrain(t), cfg, rand.New(rand.NewSource(1)), Options{}); err == nil {
		t.Error("expected error for invalid population config")
	}
}

func TestSearchFindsLanding(t *testing.T) {
	d := newDriver(t, hover(), 42, Options{MaxGenerations: 500})

	r, err := d.Run(context.Background())
	if err != nil {
		t.Fatalf("Run() failed: %v", err)
	}
	if !r.Found || r.Reason != Landed {
		t.Fatalf("no landing within %d generations (reason %v)", r.Generation, r.Reason)
	}
	if r.Generation > 500 {
		t.Errorf("Generation = %d, expected at most 500", r.Generation)
	}
	if !r.Final.IsParamSuccess() {
		t.Error("final state should satisfy the landing limits")
	}
	if r.Solution().Len() != r.LandingGene+1 {
		t.Errorf("solution has %d genes, expected %d", r.Solution().Len(), r.LandingGene+1)
	}
	assertSolutionLands(t, r, padTerrain(t))
}

func TestSearchDeterministic(t *testing.T) {
	run := func(workers int) Result {
		d := newDriver(t, hover(), 42, Options{MaxGenerations: 500, Workers: workers})
		r, err := d.Run(context.Background())
		if err != nil {
			t.Fatalf("Run() failed: %v", err)
		}
		return r
	}

	first := run(1)
	again := run(1)
	parallel := run(4)

	for name, r := range map[string]Result{"rerun": again, "parallel": parallel} {
		if r.Generation != first.Generation || r.Individual != first.Individual {
			t.Errorf("%s: generation/individual = %d/%d, expected %d/%d",
				name, r.Generation, r.Individual, first.Generation, first.Individual)
		}
		if !reflect.DeepEqual(r.Winner, first.Winner) {
			t.Errorf("%s: winning chromosome differs", name)
		}
	}
}

func TestSearchWithoutFuelNeverLands(t *testing.T) {
	generations := 0
	opts := Options{
		MaxGenerations: 30,
		Observer: func(s Snapshot) {
			generations++
			for i, out := range s.Outcomes {
				if out != lander.Crashed && out != lander.OutOfBounds {
					t.Fatalf("gen %d individual %d: outcome %v", s.Generation, i, out)
				}
			}
		},
	}
	d := newDriver(t, dry(), 7, opts)

	r, err := d.Run(context.Background())
	if err != nil {
		t.Fatalf("Run() failed: %v", err)
	}
	if r.Found {
		t.Fatal("a lander without fuel must never land")
	}
	if r.Reason != GenerationCap || r.Generation != 30 || generations != 30 {
		t.Errorf("reason %v after %d generations (%d observed), expected cap at 30", r.Reason, r.Generation, generations)
	}

	for i := 0; i < d.Population().Size(); i++ {
		v := d.Population().Vehicle(i)
		if v.Alive || v.IsParamSuccess() {
			t.Fatalf("vehicle %d: alive=%v success=%v", i, v.Alive, v.IsParamSuccess())
		}
	}
	if r.Solution().Len() != 0 {
		t.Error("no solution expected")
	}
}

func TestCommitEveryGeneration(t *testing.T) {
	var commits []Commit
	opts := Options{
		CommitEvery:    1,
		MaxGenerations: 20,
		OnCommit:       func(c Commit) { commits = append(commits, c) },
	}
	d := newDriver(t, hover(), 3, opts)

	r, err := d.Run(context.Background())
	if err != nil {
		t.Fatalf("Run() failed: %v", err)
	}

	if len(commits) != r.Offset || len(r.Committed) != r.Offset {
		t.Fatalf("%d commits observed, %d committed, offset %d", len(commits), len(r.Committed), r.Offset)
	}
	for i, c := range commits {
		if c.Index != i {
			t.Errorf("commit %d has index %d", i, c.Index)
		}
		if c.Gene != r.Committed[i] {
			t.Errorf("commit %d gene %v, result has %v", i, c.Gene, r.Committed[i])
		}
	}

	if r.Found {
		assertSolutionLands(t, r, padTerrain(t))
		return
	}

	// The outer lander is exactly the committed genes replayed from the start.
	traj := r.Solution().Replay(r.Start, padTerrain(t))
	if traj.Final() != d.Outer() {
		t.Errorf("outer lander %+v does not match replay %+v", d.Outer(), traj.Final())
	}
	if d.Population().Template() != d.Outer() {
		t.Error("population template should follow the outer lander")
	}
}

func TestCommitCrashEndsSearch(t *testing.T) {
	d := newDriver(t, dry(), 5, Options{CommitEvery: 1, MaxGenerations: 100})

	r, err := d.Run(context.Background())
	if err != nil {
		t.Fatalf("Run() failed: %v", err)
	}
	if r.Found || r.Reason != CommitCrashed {
		t.Fatalf("found=%v reason=%v, expected an unsuccessful commit crash", r.Found, r.Reason)
	}
	if r.Final.Alive {
		t.Error("outer lander should be dead")
	}
	if r.Generation != r.Offset {
		t.Errorf("Generation = %d, Offset = %d, expected one commit per generation", r.Generation, r.Offset)
	}
}

func TestCommitInterval(t *testing.T) {
	clock := &fakeClock{t: time.Unix(0, 0), step: 100 * time.Millisecond}
	opts := Options{
		CommitInterval: 250 * time.Millisecond,
		MaxGenerations: 10,
		Now:            clock.Now,
	}
	d := newDriver(t, dry(), 1, opts)

	r, err := d.Run(context.Background())
	if err != nil {
		t.Fatalf("Run() failed: %v", err)
	}
	// Commits fall on generations 3, 6 and 9.
	if r.Offset != 3 {
		t.Errorf("Offset = %d, expected 3", r.Offset)
	}
}

func TestManualCommit(t *testing.T) {
	d := newDriver(t, hover(), 1, Options{})

	if _, err := d.Commit(); err == nil {
		t.Error("Commit() before any generation should fail")
	}

	d.Step()
	if d.Done() {
		t.Skip("landed in the first generation")
	}
	c, err := d.Commit()
	if err != nil {
		t.Fatalf("Commit() failed: %v", err)
	}
	if c.Index != 0 || d.Offset() != 1 {
		t.Errorf("commit index %d, offset %d, expected 0 and 1", c.Index, d.Offset())
	}
	if c.State != d.Outer() {
		t.Error("commit state should be the outer lander")
	}
}

func TestRunCanceled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	d := newDriver(t, hover(), 1, Options{})
	r, err := d.Run(ctx)
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("Run() error = %v, expected context.Canceled", err)
	}
	if r.Reason != Canceled || r.Generation != 0 {
		t.Errorf("reason %v after %d generations, expected canceled at 0", r.Reason, r.Generation)
	}
	if !d.Step() {
		t.Error("Step() after cancellation should report done")
	}
}

func TestRunCanceledBetweenGenerations(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	opts := Options{
		Observer: func(s Snapshot) {
			if s.Generation == 3 {
				cancel()
			}
		},
	}
	d := newDriver(t, dry(), 1, opts)

	r, err := d.Run(ctx)
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("Run() error = %v, expected context.Canceled", err)
	}
	if r.Generation != 3 {
		t.Errorf("Generation = %d, expected the search to stop after 3", r.Generation)
	}
}

func TestObserverTrace(t *testing.T) {
	var snaps []Snapshot
	opts := Options{
		Trace:          true,
		MaxGenerations: 2,
		Observer:       func(s Snapshot) { snaps = append(snaps, s) },
	}
	d := newDriver(t, dry(), 1, opts)
	if _, err := d.Run(context.Background()); err != nil {
		t.Fatalf("Run() failed: %v", err)
	}

	if len(snaps) != 2 {
		t.Fatalf("observed %d snapshots, expected 2", len(snaps))
	}
	for _, s := range snaps {
		if len(s.Paths) != d.Population().Size() {
			t.Fatalf("snapshot has %d paths, expected %d", len(s.Paths), d.Population().Size())
		}
		for i, p := range s.Paths {
			if len(p) < 2 || p[0] != dry().Pos {
				t.Fatalf("path %d should start at the lander and move", i)
			}
		}
		counts := s.Counts()
		if counts[lander.Crashed]+counts[lander.OutOfBounds] != len(s.Outcomes) {
			t.Errorf("counts %v do not cover every individual", counts)
		}
	}
	if snaps[0].Generation != 1 || snaps[1].Generation != 2 {
		t.Errorf("generations %d, %d, expected 1, 2", snaps[0].Generation, snaps[1].Generation)
	}
}

func TestStopReasonString(t *testing.T) {
	if Landed.String() != "landed" || CommitCrashed.String() != "commit crashed" {
		t.Error("unexpected StopReason strings")
	}
	if StopReason(99).String() != "unknown" {
		t.Error("unknown reasons should print as unknown")
	}
}
