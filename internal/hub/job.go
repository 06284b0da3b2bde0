package hub

import (
	"context"
	"math/rand"
	"sync"
	"time"

	"github.com/charmbracelet/log"

	"github.com/vovakirdan/mars-lander/internal/genetic"
	"github.com/vovakirdan/mars-lander/internal/levels"
	"github.com/vovakirdan/mars-lander/internal/sim"
	"github.com/vovakirdan/mars-lander/internal/terrain"
)

// JobState is the lifecycle of a job.
type JobState int

const (
	JobRunning JobState = iota
	JobFinished
	JobStopped
)

func (s JobState) String() string {
	switch s {
	case JobRunning:
		return "running"
	case JobFinished:
		return "finished"
	case JobStopped:
		return "stopped"
	default:
		return "unknown"
	}
}

// JobSpec describes a search to start.
type JobSpec struct {
	Level   levels.Level
	Seed    int64
	Genetic genetic.Config
	Options sim.Options // Observer and OnCommit are owned by the job
}

// JobInfo is a read-only summary of a job.
type JobInfo struct {
	ID         JobID     `json:"id"`
	LevelID    string    `json:"level_id"`
	Seed       int64     `json:"seed"`
	State      string    `json:"state"`
	Generation int       `json:"generation"`
	Watchers   int       `json:"watchers"`
	StartedAt  time.Time `json:"started_at"`
}

// Job runs one search in its own goroutine and broadcasts its progress to
// subscribed sessions.
type Job struct {
	id      JobID
	spec    JobSpec
	terrain *terrain.Terrain
	driver  *sim.Driver
	pace    time.Duration
	logger  *log.Logger

	mu          sync.RWMutex
	subscribers map[SessionID]SessionHandle
	state       JobState
	generation  int
	last        *GenerationEvent
	finished    *FinishedEvent
	result      sim.Result
	startedAt   time.Time
	endedAt     time.Time

	cancel   context.CancelFunc
	done     chan struct{}
	doneOnce sync.Once
}

func newJob(id JobID, spec JobSpec, pace time.Duration, logger *log.Logger) (*Job, error) {
	t, err := spec.Level.Terrain()
	if err != nil {
		return nil, err
	}

	j := &Job{
		id:          id,
		spec:        spec,
		terrain:     t,
		pace:        pace,
		logger:      logger.With("job", string(id), "level", spec.Level.ID),
		subscribers: make(map[SessionID]SessionHandle),
		done:        make(chan struct{}),
	}

	opts := spec.Options
	opts.Observer = j.observe
	opts.OnCommit = j.onCommit
	if opts.Logger == nil {
		opts.Logger = j.logger
	}

	d, err := sim.New(spec.Level.Vehicle(), t, spec.Genetic, rand.New(rand.NewSource(spec.Seed)), opts)
	if err != nil {
		return nil, err
	}
	j.driver = d
	return j, nil
}

// ID returns the job identifier.
func (j *Job) ID() JobID {
	return j.id
}

// Level returns the level being searched.
func (j *Job) Level() levels.Level {
	return j.spec.Level
}

// Done returns a channel that closes when the search ends.
func (j *Job) Done() <-chan struct{} {
	return j.done
}

// Info returns a summary of the job.
func (j *Job) Info() JobInfo {
	j.mu.RLock()
	defer j.mu.RUnlock()
	return JobInfo{
		ID:         j.id,
		LevelID:    j.spec.Level.ID,
		Seed:       j.spec.Seed,
		State:      j.state.String(),
		Generation: j.generation,
		Watchers:   len(j.subscribers),
		StartedAt:  j.startedAt,
	}
}

// Result returns the search result once the job is done.
func (j *Job) Result() (sim.Result, bool) {
	j.mu.RLock()
	defer j.mu.RUnlock()
	return j.result, j.state != JobRunning
}

// Finished returns the final event once the job is over, nil before.
func (j *Job) Finished() *FinishedEvent {
	j.mu.RLock()
	defer j.mu.RUnlock()
	if j.finished == nil {
		return nil
	}
	fin := *j.finished
	return &fin
}

// Subscribe adds a watcher. A late watcher immediately receives the latest
// generation, or the final event when the job is over.
func (j *Job) Subscribe(s SessionHandle) {
	j.mu.Lock()
	defer j.mu.Unlock()

	if j.finished != nil {
		s.Send(*j.finished)
		return
	}
	j.subscribers[s.ID()] = s
	if j.last != nil {
		s.Send(*j.last)
	}
}

// Unsubscribe removes a watcher.
func (j *Job) Unsubscribe(id SessionID) {
	j.mu.Lock()
	defer j.mu.Unlock()
	delete(j.subscribers, id)
}

// Stop cancels the search.
func (j *Job) Stop() {
	j.cancel()
}

// start launches the search in its own goroutine. onComplete is called
// before the final event is broadcast and may return a run ID.
func (j *Job) start(parent context.Context, onComplete func(*Job, sim.Result) string) {
	ctx, cancel := context.WithCancel(parent)
	j.cancel = cancel
	j.startedAt = time.Now()
	go j.run(ctx, onComplete)
}

func (j *Job) run(ctx context.Context, onComplete func(*Job, sim.Result) string) {
	defer j.cancel()
	defer j.doneOnce.Do(func() { close(j.done) })

	j.logger.Info("job started", "seed", j.spec.Seed)

	for !j.driver.Done() && ctx.Err() == nil {
		j.driver.Step()
		if j.pace > 0 && !j.driver.Done() {
			select {
			case <-time.After(j.pace):
			case <-ctx.Done():
			}
		}
	}
	res, err := j.driver.Run(ctx)

	state := JobFinished
	if err != nil {
		state = JobStopped
	}

	runID := ""
	if onComplete != nil {
		runID = onComplete(j, res)
	}

	fin := j.finishedEvent(res, runID)

	j.mu.Lock()
	j.state = state
	j.result = res
	j.finished = &fin
	j.endedAt = time.Now()
	subs := j.snapshotSubscribers()
	j.subscribers = make(map[SessionID]SessionHandle)
	j.mu.Unlock()

	for _, s := range subs {
		s.Send(fin)
	}
	j.logger.Info("job ended", "state", state, "found", res.Found, "generations", res.Generation)
}

func (j *Job) finishedEvent(res sim.Result, runID string) FinishedEvent {
	sol := res.Solution()
	return FinishedEvent{
		JobID:       j.id,
		RunID:       runID,
		Found:       res.Found,
		Reason:      res.Reason.String(),
		Generations: res.Generation,
		FuelLeft:    res.FuelLeft(),
		Solution:    sol.Encode(),
		Path:        sol.Replay(res.Start, j.terrain).Points(),
		Final:       res.Final,
		ElapsedMS:   res.Elapsed.Milliseconds(),
	}
}

func (j *Job) observe(s sim.Snapshot) {
	evt := newGenerationEvent(j.id, s)

	j.mu.Lock()
	j.generation = s.Generation
	j.last = &evt
	subs := j.snapshotSubscribers()
	j.mu.Unlock()

	for _, sub := range subs {
		sub.Send(evt)
	}
}

func (j *Job) onCommit(c sim.Commit) {
	evt := CommitEvent{
		JobID:   j.id,
		Index:   c.Index,
		Gene:    c.Gene,
		State:   c.State,
		Outcome: c.Outcome.String(),
	}

	j.mu.RLock()
	subs := j.snapshotSubscribers()
	j.mu.RUnlock()

	for _, sub := range subs {
		sub.Send(evt)
	}
}

// snapshotSubscribers copies the subscriber set; callers hold j.mu.
func (j *Job) snapshotSubscribers() []SessionHandle {
	subs := make([]SessionHandle, 0, len(j.subscribers))
	for _, s := range j.subscribers {
		subs = append(subs, s)
	}
	return subs
}
