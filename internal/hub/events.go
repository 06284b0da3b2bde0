package hub

import (
	"github.com/vovakirdan/mars-lander/internal/core"
	"github.com/vovakirdan/mars-lander/internal/genetic"
	"github.com/vovakirdan/mars-lander/internal/lander"
	"github.com/vovakirdan/mars-lander/internal/sim"
)

// Event is a message streamed to sessions watching a job.
type Event interface {
	// Kind names the event on the wire.
	Kind() string
}

// GenerationEvent is broadcast after every evaluated generation.
type GenerationEvent struct {
	JobID       JobID         `json:"job_id"`
	Generation  int           `json:"generation"`
	Offset      int           `json:"offset"`
	BestScore   float64       `json:"best_score"`
	ScoreSum    float64       `json:"score_sum"`
	Landed      int           `json:"landed"`
	Crashed     int           `json:"crashed"`
	OutOfBounds int           `json:"out_of_bounds"`
	Paths       [][]core.Vec2 `json:"paths,omitempty"`
	Outer       lander.State  `json:"outer"`
}

// Kind implements Event.
func (GenerationEvent) Kind() string { return "generation" }

func newGenerationEvent(id JobID, s sim.Snapshot) GenerationEvent {
	counts := s.Counts()
	return GenerationEvent{
		JobID:       id,
		Generation:  s.Generation,
		Offset:      s.Offset,
		BestScore:   s.BestScore,
		ScoreSum:    s.ScoreSum,
		Landed:      counts[lander.Landed],
		Crashed:     counts[lander.Crashed],
		OutOfBounds: counts[lander.OutOfBounds],
		Paths:       s.Paths,
		Outer:       s.Outer,
	}
}

// CommitEvent is broadcast when a gene is frozen into the outer lander.
type CommitEvent struct {
	JobID   JobID        `json:"job_id"`
	Index   int          `json:"index"`
	Gene    genetic.Gene `json:"gene"`
	State   lander.State `json:"state"`
	Outcome string       `json:"outcome"`
}

// Kind implements Event.
func (CommitEvent) Kind() string { return "commit" }

// FinishedEvent is the last event of a job.
type FinishedEvent struct {
	JobID       JobID        `json:"job_id"`
	RunID       string       `json:"run_id,omitempty"` // set when the run was saved
	Found       bool         `json:"found"`
	Reason      string       `json:"reason"`
	Generations int          `json:"generations"`
	FuelLeft    int          `json:"fuel_left"`
	Solution    string       `json:"solution"`
	Path        []core.Vec2  `json:"path"` // replay of the solution
	Final       lander.State `json:"final"`
	ElapsedMS   int64        `json:"elapsed_ms"`
}

// Kind implements Event.
func (FinishedEvent) Kind() string { return "finished" }
