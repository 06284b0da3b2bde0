// Package hub runs lander searches in the background and streams their
// progress to any number of watching sessions (websocket clients, SSH
// terminals). Sessions talk to jobs through the transport-neutral
// SessionHandle interface.
package hub

import (
	"context"
	"errors"
	"fmt"
	"io"
	"sort"
	"sync"
	"time"

	"github.com/charmbracelet/log"
	"github.com/google/uuid"

	"github.com/vovakirdan/mars-lander/internal/genetic"
	"github.com/vovakirdan/mars-lander/internal/sim"
)

// SessionID uniquely identifies a watcher (a websocket or SSH connection).
type SessionID string

// JobID uniquely identifies a background search.
type JobID string

// Errors returned by the hub.
var (
	ErrJobNotFound = errors.New("hub: job not found")
	ErrTooManyJobs = errors.New("hub: too many running jobs")
	ErrClosed      = errors.New("hub: closed")
)

// Config holds configuration for the hub.
type Config struct {
	MaxJobs       int           // running jobs allowed at once, 0 = unlimited
	Pace          time.Duration // pause between generations so watchers can follow
	Retain        time.Duration // how long finished jobs stay listed
	CleanupPeriod time.Duration // how often finished jobs are pruned
}

// DefaultConfig returns sensible defaults.
func DefaultConfig() Config {
	return Config{
		MaxJobs:       8,
		Pace:          50 * time.Millisecond,
		Retain:        10 * time.Minute,
		CleanupPeriod: time.Minute,
	}
}

// ResultSaver persists finished searches.
// This allows the hub to save results without depending on the storage package.
type ResultSaver interface {
	SaveResult(levelID string, seed int64, cfg genetic.Config, r sim.Result) (string, error)
}

// Hub owns the background jobs.
type Hub struct {
	config   Config
	watchers watcherSet
	logger   *log.Logger
	saver    ResultSaver // optional

	ctx    context.Context
	cancel context.CancelFunc

	mu   sync.RWMutex
	jobs map[JobID]*Job
	wg   sync.WaitGroup
}

// New creates a hub. A nil logger discards output.
func New(cfg Config, logger *log.Logger) *Hub {
	if logger == nil {
		logger = log.New(io.Discard)
	}
	ctx, cancel := context.WithCancel(context.Background())
	return &Hub{
		config:   cfg,
		logger:   logger,
		ctx:      ctx,
		cancel:   cancel,
		jobs:     make(map[JobID]*Job),
	}
}

// SetResultSaver sets the optional result saver.
func (h *Hub) SetResultSaver(saver ResultSaver) {
	h.saver = saver
}

// WatcherCount returns the number of sessions watching a job.
func (h *Hub) WatcherCount() int {
	return h.watchers.count()
}

// Start begins the hub's background cleanup.
func (h *Hub) Start() {
	if h.config.CleanupPeriod <= 0 {
		return
	}
	h.wg.Add(1)
	go func() {
		defer h.wg.Done()
		h.cleanupLoop()
	}()
}

// Close stops every job and waits for them to end.
func (h *Hub) Close() {
	h.cancel()

	h.mu.RLock()
	jobs := make([]*Job, 0, len(h.jobs))
	for _, j := range h.jobs {
		jobs = append(jobs, j)
	}
	h.mu.RUnlock()

	for _, j := range jobs {
		<-j.Done()
	}
	h.wg.Wait()
}

// StartJob launches a search and returns its job.
func (h *Hub) StartJob(spec JobSpec) (*Job, error) {
	if h.ctx.Err() != nil {
		return nil, ErrClosed
	}

	h.mu.Lock()
	defer h.mu.Unlock()

	if h.config.MaxJobs > 0 && h.runningLocked() >= h.config.MaxJobs {
		return nil, ErrTooManyJobs
	}

	id := JobID(uuid.NewString())
	j, err := newJob(id, spec, h.config.Pace, h.logger)
	if err != nil {
		return nil, fmt.Errorf("hub: %w", err)
	}

	h.jobs[id] = j
	j.start(h.ctx, h.complete)
	return j, nil
}

// Job retrieves a job by ID.
func (h *Hub) Job(id JobID) (*Job, bool) {
	h.mu.RLock()
	defer h.mu.RUnlock()
	j, ok := h.jobs[id]
	return j, ok
}

// Jobs lists every known job, oldest first.
func (h *Hub) Jobs() []JobInfo {
	h.mu.RLock()
	infos := make([]JobInfo, 0, len(h.jobs))
	for _, j := range h.jobs {
		infos = append(infos, j.Info())
	}
	h.mu.RUnlock()

	sort.Slice(infos, func(a, b int) bool {
		if infos[a].StartedAt.Equal(infos[b].StartedAt) {
			return infos[a].ID < infos[b].ID
		}
		return infos[a].StartedAt.Before(infos[b].StartedAt)
	})
	return infos
}

// Watch subscribes a session to a job. The session is registered until it
// ends; it is then unsubscribed automatically.
func (h *Hub) Watch(id JobID, s SessionHandle) error {
	j, ok := h.Job(id)
	if !ok {
		return fmt.Errorf("%w: %s", ErrJobNotFound, id)
	}

	h.watchers.add(s.ID())
	j.Subscribe(s)

	go func() {
		select {
		case <-s.Done():
		case <-h.ctx.Done():
		}
		j.Unsubscribe(s.ID())
		h.watchers.remove(s.ID())
	}()
	return nil
}

// StopJob cancels a running job.
func (h *Hub) StopJob(id JobID) error {
	j, ok := h.Job(id)
	if !ok {
		return fmt.Errorf("%w: %s", ErrJobNotFound, id)
	}
	j.Stop()
	return nil
}

// RunningCount returns the number of jobs still searching.
func (h *Hub) RunningCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return h.runningLocked()
}

func (h *Hub) runningLocked() int {
	n := 0
	for _, j := range h.jobs {
		select {
		case <-j.Done():
		default:
			n++
		}
	}
	return n
}

// complete saves a finished search and returns the stored run ID.
func (h *Hub) complete(j *Job, r sim.Result) string {
	if h.saver == nil || r.Reason == sim.Canceled {
		return ""
	}
	id, err := h.saver.SaveResult(j.spec.Level.ID, j.spec.Seed, j.spec.Genetic, r)
	if err != nil {
		h.logger.Warn("could not save run", "job", string(j.id), "error", err)
		return ""
	}
	return id
}

func (h *Hub) cleanupLoop() {
	ticker := time.NewTicker(h.config.CleanupPeriod)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			h.pruneFinished(time.Now())
		case <-h.ctx.Done():
			return
		}
	}
}

// pruneFinished drops jobs that ended more than Retain before now.
func (h *Hub) pruneFinished(now time.Time) int {
	h.mu.Lock()
	defer h.mu.Unlock()

	pruned := 0
	for id, j := range h.jobs {
		j.mu.RLock()
		expired := j.state != JobRunning && now.Sub(j.endedAt) >= h.config.Retain
		j.mu.RUnlock()
		if expired {
			delete(h.jobs, id)
			pruned++
		}
	}
	if pruned > 0 {
		h.logger.Debug("pruned finished jobs", "count", pruned)
	}
	return pruned
}
