package web

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi"

	"github.com/vovakirdan/mars-lander/internal/config"
	"github.com/vovakirdan/mars-lander/internal/core"
	"github.com/vovakirdan/mars-lander/internal/hub"
	"github.com/vovakirdan/mars-lander/internal/lander"
	"github.com/vovakirdan/mars-lander/internal/levels"
	"github.com/vovakirdan/mars-lander/internal/sim"
	"github.com/vovakirdan/mars-lander/internal/solution"
	"github.com/vovakirdan/mars-lander/internal/storage"
)

const defaultRunLimit = 50

// LevelSummary is the list view of a level.
type LevelSummary struct {
	ID          string `json:"id"`
	Name        string `json:"name"`
	Points      int    `json:"points"`
	LandingZone [2]int `json:"landing_zone"` // x range of the flat segment
}

// Replay is a stored solution flown again through the physics.
type Replay struct {
	RunID    string       `json:"run_id"`
	LevelID  string       `json:"level_id"`
	Outcome  string       `json:"outcome"`
	Path     []core.Vec2  `json:"path"`
	Final    lander.State `json:"final"`
	Controls [][2]int     `json:"controls"`
	Debug    []string     `json:"debug"`
}

// StartJobRequest is the body of POST /jobs.
type StartJobRequest struct {
	Level  string `json:"level"`
	Seed   int64  `json:"seed"`   // 0 picks one from the clock
	Preset string `json:"preset"` // empty keeps the configured search
}

// JobStatus is a job summary plus its result once finished.
type JobStatus struct {
	hub.JobInfo
	Result *hub.FinishedEvent `json:"result,omitempty"`
}

type errorBody struct {
	Error string `json:"error"`
}

func (s *Server) writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		s.logger.Warn("could not encode response", "error", err)
	}
}

func (s *Server) writeError(w http.ResponseWriter, status int, err error) {
	s.writeJSON(w, status, errorBody{Error: err.Error()})
}

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	s.writeJSON(w, http.StatusOK, map[string]any{
		"status":   "ok",
		"levels":   len(s.levels),
		"jobs":     s.opts.Hub.RunningCount(),
		"watchers": s.opts.Hub.WatcherCount(),
	})
}

func (s *Server) handleLevels(w http.ResponseWriter, _ *http.Request) {
	out := make([]LevelSummary, 0, len(s.opts.Levels))
	for _, l := range s.opts.Levels {
		sum := LevelSummary{ID: l.ID, Name: l.Name, Points: len(l.Surface)}
		if t, err := l.Terrain(); err == nil {
			seg := t.Segment(t.LandingZone())
			sum.LandingZone = [2]int{int(seg.A.X), int(seg.B.X)}
		}
		out = append(out, sum)
	}
	s.writeJSON(w, http.StatusOK, out)
}

// level resolves the {id} or {level} URL parameter.
func (s *Server) level(r *http.Request, param string) (levels.Level, error) {
	id := chi.URLParam(r, param)
	l, ok := s.levels[id]
	if !ok {
		return levels.Level{}, fmt.Errorf("%w: %s", levels.ErrNotFound, id)
	}
	return l, nil
}

func (s *Server) handleLevel(w http.ResponseWriter, r *http.Request) {
	l, err := s.level(r, "id")
	if err != nil {
		s.writeError(w, http.StatusNotFound, err)
		return
	}
	s.writeJSON(w, http.StatusOK, l)
}

// requireStore answers 503 when no database is configured.
func (s *Server) requireStore(w http.ResponseWriter) bool {
	if s.opts.Store == nil {
		s.writeError(w, http.StatusServiceUnavailable, errors.New("no runs database configured"))
		return false
	}
	return true
}

func (s *Server) storeError(w http.ResponseWriter, err error) {
	if errors.Is(err, storage.ErrNotFound) {
		s.writeError(w, http.StatusNotFound, err)
		return
	}
	s.logger.Error("storage failure", "error", err)
	s.writeError(w, http.StatusInternalServerError, err)
}

func (s *Server) handleBestRun(w http.ResponseWriter, r *http.Request) {
	if !s.requireStore(w) {
		return
	}
	run, err := s.opts.Store.BestRun(chi.URLParam(r, "id"))
	if err != nil {
		s.storeError(w, err)
		return
	}
	s.writeJSON(w, http.StatusOK, run)
}

func (s *Server) handleLevelStats(w http.ResponseWriter, r *http.Request) {
	if !s.requireStore(w) {
		return
	}
	st, err := s.opts.Store.GetLevelStats(chi.URLParam(r, "id"))
	if err != nil {
		s.storeError(w, err)
		return
	}
	s.writeJSON(w, http.StatusOK, st)
}

func (s *Server) handleStats(w http.ResponseWriter, _ *http.Request) {
	if !s.requireStore(w) {
		return
	}
	st, err := s.opts.Store.GetAllLevelStats()
	if err != nil {
		s.storeError(w, err)
		return
	}
	s.writeJSON(w, http.StatusOK, st)
}

func (s *Server) handleRuns(w http.ResponseWriter, r *http.Request) {
	if !s.requireStore(w) {
		return
	}

	limit := defaultRunLimit
	if v := r.URL.Query().Get("limit"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 1 {
			s.writeError(w, http.StatusBadRequest, fmt.Errorf("invalid limit %q", v))
			return
		}
		limit = n
	}

	var (
		runs []storage.Run
		err  error
	)
	if level := r.URL.Query().Get("level"); level != "" {
		runs, err = s.opts.Store.RunsForLevel(level, limit)
	} else {
		runs, err = s.opts.Store.RecentRuns(limit)
	}
	if err != nil {
		s.storeError(w, err)
		return
	}
	if runs == nil {
		runs = []storage.Run{}
	}
	s.writeJSON(w, http.StatusOK, runs)
}

func (s *Server) handleRun(w http.ResponseWriter, r *http.Request) {
	if !s.requireStore(w) {
		return
	}
	run, err := s.opts.Store.RunByID(chi.URLParam(r, "id"))
	if err != nil {
		s.storeError(w, err)
		return
	}
	s.writeJSON(w, http.StatusOK, run)
}

func (s *Server) handleReplay(w http.ResponseWriter, r *http.Request) {
	if !s.requireStore(w) {
		return
	}
	run, err := s.opts.Store.RunByID(chi.URLParam(r, "id"))
	if err != nil {
		s.storeError(w, err)
		return
	}

	l, ok := s.levels[run.LevelID]
	if !ok {
		s.writeError(w, http.StatusNotFound, fmt.Errorf("%w: %s", levels.ErrNotFound, run.LevelID))
		return
	}
	t, err := l.Terrain()
	if err != nil {
		s.writeError(w, http.StatusInternalServerError, err)
		return
	}
	sol, err := solution.Parse(run.Genes)
	if err != nil {
		s.writeError(w, http.StatusUnprocessableEntity, err)
		return
	}

	tr := sol.Replay(l.Vehicle(), t)
	final := tr.Final()
	s.writeJSON(w, http.StatusOK, Replay{
		RunID:    run.ID,
		LevelID:  run.LevelID,
		Outcome:  final.Outcome(t).String(),
		Path:     tr.Points(),
		Final:    final,
		Controls: tr.Controls(),
		Debug:    tr.DebugLines(),
	})
}

func (s *Server) handleJobs(w http.ResponseWriter, _ *http.Request) {
	s.writeJSON(w, http.StatusOK, s.opts.Hub.Jobs())
}

func (s *Server) handleStartJob(w http.ResponseWriter, r *http.Request) {
	var req StartJobRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.writeError(w, http.StatusBadRequest, fmt.Errorf("invalid body: %w", err))
		return
	}

	j, status, err := s.startJob(req)
	if err != nil {
		s.writeError(w, status, err)
		return
	}
	s.writeJSON(w, http.StatusCreated, j.Info())
}

// startJob launches a hub job and returns the HTTP status to use on failure.
func (s *Server) startJob(req StartJobRequest) (*hub.Job, int, error) {
	l, ok := s.levels[req.Level]
	if !ok {
		return nil, http.StatusNotFound, fmt.Errorf("%w: %s", levels.ErrNotFound, req.Level)
	}

	cfg := s.opts.Search
	if req.Preset != "" {
		p, err := config.ParsePreset(req.Preset)
		if err != nil {
			return nil, http.StatusBadRequest, err
		}
		config.ApplyPreset(&cfg, p)
	}

	seed := req.Seed
	if seed == 0 {
		seed = cfg.Search.Seed
	}
	if seed == 0 {
		seed = time.Now().UnixNano()
	}

	j, err := s.opts.Hub.StartJob(hub.JobSpec{
		Level:   l,
		Seed:    seed,
		Genetic: cfg.Search.Genetic(),
		Options: sim.Options{
			Workers:        cfg.Search.Workers,
			CommitEvery:    cfg.Commit.Every,
			CommitInterval: cfg.Commit.Interval,
			MaxGenerations: cfg.Search.MaxGenerations,
			Trace:          true,
		},
	})
	switch {
	case errors.Is(err, hub.ErrTooManyJobs), errors.Is(err, hub.ErrClosed):
		return nil, http.StatusServiceUnavailable, err
	case err != nil:
		return nil, http.StatusUnprocessableEntity, err
	}
	return j, http.StatusCreated, nil
}

// job resolves the {id} URL parameter.
func (s *Server) job(w http.ResponseWriter, r *http.Request) (*hub.Job, bool) {
	id := hub.JobID(chi.URLParam(r, "id"))
	j, ok := s.opts.Hub.Job(id)
	if !ok {
		s.writeError(w, http.StatusNotFound, fmt.Errorf("%w: %s", hub.ErrJobNotFound, id))
		return nil, false
	}
	return j, true
}

func (s *Server) handleJob(w http.ResponseWriter, r *http.Request) {
	j, ok := s.job(w, r)
	if !ok {
		return
	}
	s.writeJSON(w, http.StatusOK, JobStatus{JobInfo: j.Info(), Result: j.Finished()})
}

func (s *Server) handleStopJob(w http.ResponseWriter, r *http.Request) {
	j, ok := s.job(w, r)
	if !ok {
		return
	}
	j.Stop()
	<-j.Done()
	s.writeJSON(w, http.StatusOK, j.Info())
}
