package tui

import (
	"strings"
	"testing"
	"time"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/vovakirdan/mars-lander/internal/config"
	"github.com/vovakirdan/mars-lander/internal/core"
	"github.com/vovakirdan/mars-lander/internal/genetic"
	"github.com/vovakirdan/mars-lander/internal/lander"
	"github.com/vovakirdan/mars-lander/internal/levels"
	"github.com/vovakirdan/mars-lander/internal/sim"
	"github.com/vovakirdan/mars-lander/internal/storage"
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

func TestDrawScene(t *testing.T) {
	lvl := padLevel()
	ter, err := lvl.Terrain()
	if err != nil {
		t.Fatalf("Terrain() failed: %v", err)
	}

	scr := core.NewScreen(50, 20)
	DrawScene(scr, Scene{
		Terrain:  ter,
		Paths:    [][]core.Vec2{{core.V(500, 900), core.V(600, 700)}},
		Outcomes: []lander.Outcome{lander.Crashed},
		Outer:    lvl.Vehicle(),
		HUD:      []string{"gen 1"},
	})

	text := scr.String()
	for _, r := range []rune{GroundChar, PadChar, PathChar, LanderChar} {
		if !strings.ContainsRune(text, r) {
			t.Errorf("scene has no %q", r)
		}
	}
	if !strings.HasPrefix(scr.Row(0), " gen 1") {
		t.Errorf("HUD row = %q", scr.Row(0))
	}

	// The pad runs along the bottom row between x=50 and x=150.
	vp := core.Viewport{WorldW: 1000, WorldH: 1000, ScreenW: 50, ScreenH: 20}
	x, y := vp.Project(core.V(100, 0))
	if cell := scr.GetCell(x, y); cell.Rune != PadChar || cell.Color != core.ColorGreen {
		t.Errorf("pad cell = %+v, expected a green pad", cell)
	}

	x, y = vp.Project(core.V(600, 700))
	if cell := scr.GetCell(x, y); cell.Color != core.ColorRed {
		t.Errorf("crashed path color = %v, expected red", cell.Color)
	}
}

func TestDrawSceneWithoutTerrain(t *testing.T) {
	scr := core.NewScreen(10, 3)
	scr.DrawText(0, 0, "stale")
	DrawScene(scr, Scene{})
	if strings.TrimSpace(scr.String()) != "" {
		t.Errorf("screen should be cleared, got %q", scr.String())
	}
}

func TestRenderScreenKeepsText(t *testing.T) {
	scr := core.NewScreen(6, 2)
	scr.DrawText(0, 0, "ab")
	scr.SetColored(2, 0, 'c', core.ColorRed)
	scr.SetColored(0, 1, 'x', core.ColorGray)

	out := RenderScreen(scr)
	if lines := strings.Split(out, "\n"); len(lines) != 2 {
		t.Fatalf("rendered %d lines, expected 2", len(lines))
	}
	for _, want := range []string{"ab", "c", "x"} {
		if !strings.Contains(out, want) {
			t.Errorf("output lacks %q", want)
		}
	}
}

func TestMapKeyToMenuAction(t *testing.T) {
	tests := []struct {
		key  tea.KeyMsg
		want MenuAction
	}{
		{tea.KeyMsg{Type: tea.KeyUp}, MenuActionUp},
		{tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune("j")}, MenuActionDown},
		{tea.KeyMsg{Type: tea.KeyRight}, MenuActionRight},
		{tea.KeyMsg{Type: tea.KeyEnter}, MenuActionSelect},
		{tea.KeyMsg{Type: tea.KeyTab}, MenuActionRuns},
		{tea.KeyMsg{Type: tea.KeyEsc}, MenuActionBack},
		{tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune("q")}, MenuActionQuit},
		{tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune("z")}, MenuActionNone},
	}

	for _, tt := range tests {
		if got := MapKeyToMenuAction(tt.key); got != tt.want {
			t.Errorf("MapKeyToMenuAction(%q) = %v, expected %v", tt.key.String(), got, tt.want)
		}
	}
}

func watchOptions(t *testing.T, store *storage.Store) WatchOptions {
	t.Helper()
	return WatchOptions{
		Genetic: genetic.DefaultConfig(),
		Sim:     sim.Options{MaxGenerations: 500},
		Store:   store,
		Runtime: core.RuntimeConfig{ScreenW: 60, ScreenH: 20, TickRate: 10, Seed: 42},
	}
}

func tick(t *testing.T, m WatchModel) WatchModel {
	t.Helper()
	next, cmd := m.Update(TickMsg(time.Now()))
	if cmd == nil {
		t.Fatal("tick should schedule the next tick")
	}
	return next.(WatchModel)
}

func TestWatchModelRunsToLanding(t *testing.T) {
	store, err := storage.Open(t.TempDir() + "/runs.db")
	if err != nil {
		t.Fatalf("Open() failed: %v", err)
	}
	defer store.Close()

	m, err := NewWatchModel(padLevel(), watchOptions(t, store))
	if err != nil {
		t.Fatalf("NewWatchModel() failed: %v", err)
	}

	for i := 0; i < 500; i++ {
		m = tick(t, m)
		if _, done := m.Result(); done {
			break
		}
	}

	res, done := m.Result()
	if !done || !res.Found {
		t.Fatalf("search did not land: done=%v reason=%v", done, res.Reason)
	}
	if !strings.Contains(m.View(), "LANDED") {
		t.Error("view should announce the landing")
	}

	runs, err := store.RunsForLevel("pad", 10)
	if err != nil {
		t.Fatalf("RunsForLevel() failed: %v", err)
	}
	if len(runs) != 1 || !runs[0].Found || runs[0].Seed != 42 {
		t.Errorf("stored runs = %+v", runs)
	}

	// Further ticks leave the finished search alone.
	gen := res.Generation
	m = tick(t, m)
	if res, _ := m.Result(); res.Generation != gen {
		t.Errorf("generation moved from %d to %d after the end", gen, res.Generation)
	}
}

func TestWatchModelKeys(t *testing.T) {
	m, err := NewWatchModel(padLevel(), watchOptions(t, nil))
	if err != nil {
		t.Fatalf("NewWatchModel() failed: %v", err)
	}

	press := func(s string) {
		t.Helper()
		next, _ := m.Update(tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune(s)})
		m = next.(WatchModel)
	}

	press("p")
	m = tick(t, m)
	if m.driver.Generation() != 0 {
		t.Errorf("paused watcher advanced to generation %d", m.driver.Generation())
	}

	press("n")
	if m.driver.Generation() != 1 {
		t.Errorf("step key gave generation %d, expected 1", m.driver.Generation())
	}

	press("c")
	if m.driver.Offset() != 1 && m.result == nil {
		t.Errorf("commit key gave offset %d, expected 1", m.driver.Offset())
	}

	rate := m.config.TickRate
	press("+")
	if m.config.TickRate != rate*2 {
		t.Errorf("tick rate = %d, expected %d", m.config.TickRate, rate*2)
	}

	press("r")
	if m.driver.Generation() != 0 || m.result != nil {
		t.Error("restart should begin a fresh search")
	}

	next, cmd := m.Update(tea.KeyMsg{Type: tea.KeyEsc})
	m = next.(WatchModel)
	if !m.BackToMenu() || cmd == nil {
		t.Error("esc should leave a standalone watcher")
	}
}

func TestMenuModel(t *testing.T) {
	lvls := []levels.Level{padLevel(), {ID: "other", Name: "Other"}}
	m := NewMenuModel(lvls, nil, config.PresetNormal, core.RuntimeConfig{ScreenW: 80, ScreenH: 24})

	if m.Preset() != config.PresetNormal {
		t.Errorf("Preset() = %s, expected normal", m.Preset())
	}

	send := func(k tea.KeyMsg) {
		next, _ := m.Update(k)
		m = next.(MenuModel)
	}
	send(tea.KeyMsg{Type: tea.KeyDown})
	send(tea.KeyMsg{Type: tea.KeyRight})
	send(tea.KeyMsg{Type: tea.KeyEnter})

	if m.Selected() == nil || m.Selected().ID != "other" {
		t.Errorf("Selected() = %v, expected other", m.Selected())
	}
	if m.Preset() != config.PresetThorough {
		t.Errorf("Preset() = %s, expected thorough", m.Preset())
	}
	if !strings.Contains(m.View(), "Other") {
		t.Error("menu should list the levels")
	}
}

func TestSessionModelFlow(t *testing.T) {
	srv := DefaultSSHServerConfig()
	srv.Levels = []levels.Level{padLevel()}

	m := NewSessionModel(srv, nil, core.RuntimeConfig{ScreenW: 60, ScreenH: 20, TickRate: 10}, nil)

	send := func(k tea.KeyMsg) tea.Cmd {
		next, cmd := m.Update(k)
		m = next.(SessionModel)
		return cmd
	}

	if cmd := send(tea.KeyMsg{Type: tea.KeyEnter}); cmd == nil || m.screen != screenWatch {
		t.Fatalf("enter should open the watcher, screen = %v", m.screen)
	}
	send(tea.KeyMsg{Type: tea.KeyEsc})
	if m.screen != screenMenu {
		t.Fatalf("esc should return to the menu, screen = %v", m.screen)
	}
	send(tea.KeyMsg{Type: tea.KeyTab})
	if m.screen != screenRuns {
		t.Fatalf("tab should open the runs board, screen = %v", m.screen)
	}
	if !strings.Contains(m.View(), "No runs recorded yet") {
		t.Error("runs board without a store should be empty")
	}
	send(tea.KeyMsg{Type: tea.KeyEsc})
	if m.screen != screenMenu {
		t.Errorf("esc should leave the runs board, screen = %v", m.screen)
	}
}
