package solution

import (
	"errors"
	"reflect"
	"strings"
	"testing"

	"github.com/vovakirdan/mars-lander/internal/core"
	"github.com/vovakirdan/mars-lander/internal/genetic"
	"github.com/vovakirdan/mars-lander/internal/lander"
	"github.com/vovakirdan/mars-lander/internal/terrain"
)

func TestEncode(t *testing.T) {
	s := Solution{
		Committed: []genetic.Gene{{Angle: -15, Thrust: 1}, {Angle: 0, Thrust: 0}},
		Tail:      []genetic.Gene{{Angle: 7, Thrust: -1}},
	}

	if got := s.Encode(); got != "-15,1 0,0 7,-1" {
		t.Errorf("Encode() = %q", got)
	}
	if s.Len() != 3 {
		t.Errorf("Len() = %d, expected 3", s.Len())
	}
	if (Solution{}).Encode() != "" {
		t.Error("empty solution should encode to an empty string")
	}
}

func TestParse(t *testing.T) {
	s, err := Parse("  -15,1 0,0\n7,-1  ")
	if err != nil {
		t.Fatalf("Parse() failed: %v", err)
	}
	expected := []genetic.Gene{{Angle: -15, Thrust: 1}, {Angle: 0, Thrust: 0}, {Angle: 7, Thrust: -1}}
	if !reflect.DeepEqual(s.Genes(), expected) {
		t.Errorf("Genes() = %v, expected %v", s.Genes(), expected)
	}

	empty, err := Parse("")
	if err != nil || empty.Len() != 0 {
		t.Errorf("Parse(\"\") = %v, %v", empty, err)
	}
}

func TestParseMalformed(t *testing.T) {
	tests := []string{
		"15",
		"a,1",
		"1,b",
		"1,1 2;2",
	}

	for _, text := range tests {
		if _, err := Parse(text); !errors.Is(err, ErrMalformed) {
			t.Errorf("Parse(%q) error = %v, expected ErrMalformed", text, err)
		}
	}
}

func TestEncodeParseKeepsOrder(t *testing.T) {
	s := Solution{
		Committed: []genetic.Gene{{Angle: 3, Thrust: 1}},
		Tail:      []genetic.Gene{{Angle: -4, Thrust: 0}, {Angle: 15, Thrust: -1}},
	}
	back, err := Parse(s.Encode())
	if err != nil {
		t.Fatalf("Parse() failed: %v", err)
	}
	if !reflect.DeepEqual(back.Genes(), s.Genes()) {
		t.Errorf("round trip changed genes: %v -> %v", s.Genes(), back.Genes())
	}
}

func replayTerrain(t *testing.T) *terrain.Terrain {
	t.Helper()
	tr, err := terrain.New([]core.Vec2{
		core.V(0, 300), core.V(50, 0), core.V(150, 0), core.V(1000, 300),
	}, terrain.World{Width: 1000, Height: 1000})
	if err != nil {
		t.Fatalf("terrain.New() failed: %v", err)
	}
	return tr
}

func TestReplayStopsAtTouchdown(t *testing.T) {
	tr := replayTerrain(t)
	start := lander.New(100, 20, 0, -5, 100, 0, 0)

	// Free fall reaches the pad in a few seconds; the rest must be ignored.
	s := Solution{Tail: make([]genetic.Gene, 50)}
	traj := s.Replay(start, tr)

	if traj.Outcome != lander.Landed {
		t.Fatalf("Outcome = %v, expected %v", traj.Outcome, lander.Landed)
	}
	if len(traj.States) >= 51 {
		t.Errorf("replay should stop at touchdown, got %d states", len(traj.States))
	}
	if traj.States[0] != start {
		t.Error("first state should be the start state")
	}
	if traj.Final().Alive {
		t.Error("final state should be dead after touchdown")
	}
	if len(traj.Points()) != len(traj.States) {
		t.Error("Points() should have one point per state")
	}
}

func TestReplayControls(t *testing.T) {
	tr := replayTerrain(t)
	start := lander.New(500, 800, 0, 0, 100, 0, 0)

	s := Solution{Committed: []genetic.Gene{{Angle: 15, Thrust: 1}, {Angle: 15, Thrust: 1}, {Angle: -10, Thrust: 1}}}
	traj := s.Replay(start, tr)

	expected := [][2]int{{15, 1}, {30, 2}, {20, 3}}
	if got := traj.Controls(); !reflect.DeepEqual(got, expected) {
		t.Errorf("Controls() = %v, expected %v", got, expected)
	}
	if traj.Outcome != lander.Flying {
		t.Errorf("Outcome = %v, expected %v", traj.Outcome, lander.Flying)
	}
}

func TestDebugLines(t *testing.T) {
	tr := replayTerrain(t)
	start := lander.New(500, 800, 0, 0, 100, 0, 0)
	traj := Solution{Tail: make([]genetic.Gene, 3)}.Replay(start, tr)

	lines := traj.DebugLines()
	if len(lines) != 4 {
		t.Fatalf("DebugLines() returned %d lines, expected 4", len(lines))
	}
	if !strings.HasPrefix(lines[0], "t=  0 X=500m, Y=800m") {
		t.Errorf("first line = %q", lines[0])
	}
}
