package hub

import (
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/vovakirdan/mars-lander/internal/core"
	"github.com/vovakirdan/mars-lander/internal/genetic"
	"github.com/vovakirdan/mars-lander/internal/levels"
	"github.com/vovakirdan/mars-lander/internal/sim"
	"github.com/vovakirdan/mars-lander/internal/terrain"
)

func padLevel() levels.Level {
	return levels.Level{
		ID:      "pad",
		Name:    "Flat pad",
		World:   terrain.World{Width: 1000, Height: 1000},
		Surface: []core.Vec2{core.V(0, 300), core.V(50, 0), core.V(150, 0), core.V(1000, 300)},
		Lander:  levels.Lander{X: 100, Y: 500, Fuel: 1000},
	}
}

func spec(maxGenerations int) JobSpec {
	return JobSpec{
		Level:   padLevel(),
		Seed:    42,
		Genetic: genetic.DefaultConfig(),
		Options: sim.Options{MaxGenerations: maxGenerations},
	}
}

// slowSpec starts far from the pad so a search keeps running for a while.
func slowSpec() JobSpec {
	s := spec(0)
	s.Level.Lander = levels.Lander{X: 900, Y: 900, HSpeed: 60, Fuel: 1000}
	return s
}

type fakeSaver struct {
	mu     sync.Mutex
	levels []string
	err    error
}

func (f *fakeSaver) SaveResult(levelID string, seed int64, cfg genetic.Config, r sim.Result) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return "", f.err
	}
	f.levels = append(f.levels, levelID)
	return "run-1", nil
}

func newHub(t *testing.T, cfg Config) *Hub {
	t.Helper()
	h := New(cfg, nil)
	t.Cleanup(h.Close)
	return h
}

// drain collects events until the finished event or a timeout.
func drain(t *testing.T, s *ChannelSession) (gens []GenerationEvent, fin FinishedEvent) {
	t.Helper()
	timeout := time.After(30 * time.Second)
	for {
		select {
		case evt := <-s.Events():
			switch e := evt.(type) {
			case GenerationEvent:
				gens = append(gens, e)
			case FinishedEvent:
				return gens, e
			}
		case <-timeout:
			t.Fatal("timed out waiting for the job to finish")
		}
	}
}

func TestJobStreamsUntilLanding(t *testing.T) {
	h := newHub(t, Config{Pace: 0})
	saver := &fakeSaver{}
	h.SetResultSaver(saver)

	j, err := h.StartJob(spec(500))
	if err != nil {
		t.Fatalf("StartJob() failed: %v", err)
	}

	s := NewChannelSession("watcher", 1024)
	defer s.Close()
	if err := h.Watch(j.ID(), s); err != nil {
		t.Fatalf("Watch() failed: %v", err)
	}

	gens, fin := drain(t, s)
	<-j.Done()

	if !fin.Found || fin.Reason != sim.Landed.String() {
		t.Fatalf("finished event = %+v, expected a landing", fin)
	}
	if fin.RunID != "run-1" || len(saver.levels) != 1 || saver.levels[0] != "pad" {
		t.Errorf("run not saved: run id %q, saved %v", fin.RunID, saver.levels)
	}
	if fin.Solution == "" || len(fin.Path) < 2 {
		t.Error("finished event should carry the solution and its replay")
	}
	for i := 1; i < len(gens); i++ {
		if gens[i].Generation <= gens[i-1].Generation {
			t.Fatalf("generations out of order: %d then %d", gens[i-1].Generation, gens[i].Generation)
		}
	}

	res, done := j.Result()
	if !done || res.Generation != fin.Generations {
		t.Errorf("Result() = %d generations, done=%v", res.Generation, done)
	}
	if info := j.Info(); info.State != "finished" || info.LevelID != "pad" {
		t.Errorf("Info() = %+v", info)
	}
}

func TestLateWatcherGetsFinishedEvent(t *testing.T) {
	h := newHub(t, Config{})
	j, err := h.StartJob(spec(3))
	if err != nil {
		t.Fatalf("StartJob() failed: %v", err)
	}
	<-j.Done()

	s := NewChannelSession("late", 4)
	defer s.Close()
	if err := h.Watch(j.ID(), s); err != nil {
		t.Fatalf("Watch() failed: %v", err)
	}

	select {
	case evt := <-s.Events():
		if evt.Kind() != "finished" {
			t.Errorf("first event = %s, expected finished", evt.Kind())
		}
	case <-time.After(5 * time.Second):
		t.Fatal("late watcher received nothing")
	}
}

func TestStopJob(t *testing.T) {
	h := newHub(t, Config{Pace: time.Hour})
	saver := &fakeSaver{}
	h.SetResultSaver(saver)

	j, err := h.StartJob(slowSpec())
	if err != nil {
		t.Fatalf("StartJob() failed: %v", err)
	}
	if h.RunningCount() != 1 {
		t.Errorf("RunningCount() = %d, expected 1", h.RunningCount())
	}

	if err := h.StopJob(j.ID()); err != nil {
		t.Fatalf("StopJob() failed: %v", err)
	}
	select {
	case <-j.Done():
	case <-time.After(5 * time.Second):
		t.Fatal("job did not stop")
	}

	res, _ := j.Result()
	if res.Reason != sim.Canceled {
		t.Errorf("Reason = %v, expected %v", res.Reason, sim.Canceled)
	}
	if j.Info().State != "stopped" {
		t.Errorf("State = %s, expected stopped", j.Info().State)
	}
	if len(saver.levels) != 0 {
		t.Error("canceled searches should not be saved")
	}
	if h.RunningCount() != 0 {
		t.Errorf("RunningCount() = %d, expected 0", h.RunningCount())
	}
}

func TestMaxJobs(t *testing.T) {
	h := newHub(t, Config{MaxJobs: 1, Pace: time.Hour})

	if _, err := h.StartJob(slowSpec()); err != nil {
		t.Fatalf("StartJob() failed: %v", err)
	}
	if _, err := h.StartJob(slowSpec()); !errors.Is(err, ErrTooManyJobs) {
		t.Errorf("second StartJob() error = %v, expected ErrTooManyJobs", err)
	}
	if len(h.Jobs()) != 1 {
		t.Errorf("Jobs() lists %d jobs, expected 1", len(h.Jobs()))
	}
}

func TestStartJobErrors(t *testing.T) {
	h := newHub(t, Config{})

	bad := spec(1)
	bad.Level.Surface = bad.Level.Surface[:2]
	if _, err := h.StartJob(bad); !errors.Is(err, terrain.ErrDegenerateTerrain) {
		t.Errorf("StartJob() error = %v, expected ErrDegenerateTerrain", err)
	}

	if err := h.Watch("nope", NewChannelSession("s", 1)); !errors.Is(err, ErrJobNotFound) {
		t.Errorf("Watch() error = %v, expected ErrJobNotFound", err)
	}
	if err := h.StopJob("nope"); !errors.Is(err, ErrJobNotFound) {
		t.Errorf("StopJob() error = %v, expected ErrJobNotFound", err)
	}

	h.Close()
	if _, err := h.StartJob(spec(1)); !errors.Is(err, ErrClosed) {
		t.Errorf("StartJob() after Close error = %v, expected ErrClosed", err)
	}
}

func TestPruneFinished(t *testing.T) {
	h := newHub(t, Config{Retain: time.Minute})

	j, err := h.StartJob(spec(2))
	if err != nil {
		t.Fatalf("StartJob() failed: %v", err)
	}
	<-j.Done()

	if n := h.pruneFinished(time.Now()); n != 0 {
		t.Errorf("pruned %d jobs right after they ended", n)
	}
	if n := h.pruneFinished(time.Now().Add(2 * time.Minute)); n != 1 {
		t.Errorf("pruned %d jobs, expected 1", n)
	}
	if _, ok := h.Job(j.ID()); ok {
		t.Error("pruned job should be gone")
	}
}

func TestWatcherUnregistersOnClose(t *testing.T) {
	h := newHub(t, Config{Pace: time.Hour})
	j, err := h.StartJob(slowSpec())
	if err != nil {
		t.Fatalf("StartJob() failed: %v", err)
	}

	s := NewChannelSession("w", 8)
	if err := h.Watch(j.ID(), s); err != nil {
		t.Fatalf("Watch() failed: %v", err)
	}
	if h.WatcherCount() != 1 {
		t.Fatalf("WatcherCount() = %d, expected 1", h.WatcherCount())
	}
	// Watching a second job with the same session counts it once.
	j2, err := h.StartJob(slowSpec())
	if err != nil {
		t.Fatalf("StartJob() failed: %v", err)
	}
	if err := h.Watch(j2.ID(), s); err != nil {
		t.Fatalf("Watch() failed: %v", err)
	}
	if h.WatcherCount() != 1 {
		t.Errorf("WatcherCount() = %d after a second job, expected 1", h.WatcherCount())
	}

	s.Close()
	deadline := time.Now().Add(5 * time.Second)
	for h.WatcherCount() != 0 {
		if time.Now().After(deadline) {
			t.Fatal("session was not unregistered")
		}
		time.Sleep(10 * time.Millisecond)
	}
	if j.Info().Watchers != 0 {
		t.Errorf("Watchers = %d, expected 0", j.Info().Watchers)
	}
}

func TestChannelSessionDropsOldest(t *testing.T) {
	s := NewChannelSession("s", 2)
	for i := 1; i <= 3; i++ {
		s.Send(GenerationEvent{Generation: i})
	}

	first := (<-s.Events()).(GenerationEvent)
	second := (<-s.Events()).(GenerationEvent)
	if first.Generation != 2 || second.Generation != 3 {
		t.Errorf("received %d, %d, expected 2, 3", first.Generation, second.Generation)
	}

	s.Close()
	s.Close()
	s.Send(GenerationEvent{Generation: 4})
	select {
	case <-s.Events():
		t.Error("closed session should not receive events")
	default:
	}
}
