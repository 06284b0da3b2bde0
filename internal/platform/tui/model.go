package tui

import (
	"fmt"
	"io"
	"math/rand"
	"os"
	"path/filepath"
	"time"

	"github.com/charmbracelet/bubbles/help"
	"github.com/charmbracelet/bubbles/key"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/log"

	"github.com/vovakirdan/mars-lander/internal/core"
	"github.com/vovakirdan/mars-lander/internal/genetic"
	"github.com/vovakirdan/mars-lander/internal/lander"
	"github.com/vovakirdan/mars-lander/internal/levels"
	"github.com/vovakirdan/mars-lander/internal/sim"
	"github.com/vovakirdan/mars-lander/internal/storage"
	"github.com/vovakirdan/mars-lander/internal/terrain"
)

// Tick rate limits for the +/- keys.
const (
	minTickRate = 1
	maxTickRate = 120
)

// WatchOptions configures a WatchModel.
type WatchOptions struct {
	Genetic genetic.Config
	Sim     sim.Options // Observer and Trace are owned by the model
	Store   *storage.Store
	Runtime core.RuntimeConfig
	Logger  *log.Logger

	// Embedded keeps the program alive when the user backs out, so a
	// SessionModel can return to its menu.
	Embedded bool
}

// snapshotSink receives the driver's snapshots. It is shared by every copy
// of the model Bubble Tea makes.
type snapshotSink struct {
	last sim.Snapshot
}

// WatchModel is the Bubble Tea model that runs a search one generation per
// tick and draws every individual's trajectory.
type WatchModel struct {
	level   levels.Level
	terrain *terrain.Terrain
	opts    WatchOptions
	config  core.RuntimeConfig

	driver   *sim.Driver
	sink     *snapshotSink
	seed     int64
	result   *sim.Result
	solution []core.Vec2
	runID    string
	status   string

	screen *core.Screen
	keys   WatchKeyMap
	help   help.Model

	paused     bool
	hidePaths  bool
	quitting   bool
	backToMenu bool
}

// NewWatchModel creates a watcher for level.
func NewWatchModel(level levels.Level, opts WatchOptions) (WatchModel, error) {
	t, err := level.Terrain()
	if err != nil {
		return WatchModel{}, err
	}
	if opts.Logger == nil {
		opts.Logger = log.New(io.Discard)
	}

	cfg := opts.Runtime
	if cfg.Seed == 0 {
		cfg.Seed = time.Now().UnixNano()
	}
	if cfg.TickRate <= 0 {
		cfg.TickRate = core.DefaultConfig().TickRate
	}

	h := help.New()
	h.Width = cfg.ScreenW

	m := WatchModel{
		level:   level,
		terrain: t,
		opts:    opts,
		config:  cfg,
		sink:    &snapshotSink{},
		screen:  core.NewScreen(cfg.ScreenW, sceneHeight(cfg.ScreenH)),
		keys:    DefaultWatchKeyMap(),
		help:    h,
	}
	if err := m.reset(cfg.Seed); err != nil {
		return WatchModel{}, err
	}
	return m, nil
}

// sceneHeight leaves one line for the help bar.
func sceneHeight(h int) int {
	if h < 2 {
		return 1
	}
	return h - 1
}

// reset starts a fresh search with seed.
func (m *WatchModel) reset(seed int64) error {
	sink := m.sink
	simOpts := m.opts.Sim
	simOpts.Trace = true
	simOpts.Observer = func(s sim.Snapshot) { sink.last = s }
	if simOpts.Logger == nil {
		simOpts.Logger = m.opts.Logger
	}

	d, err := sim.New(m.level.Vehicle(), m.terrain, m.opts.Genetic, rand.New(rand.NewSource(seed)), simOpts)
	if err != nil {
		return err
	}

	m.driver = d
	m.seed = seed
	m.sink.last = sim.Snapshot{Outer: d.Outer()}
	m.result = nil
	m.solution = nil
	m.runID = ""
	m.status = ""
	return nil
}

// Init starts the tick loop.
func (m WatchModel) Init() tea.Cmd {
	return tickCmd(m.config.TickRate)
}

// Update handles messages and updates the model state.
func (m WatchModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		return m.handleKey(msg)

	case tea.WindowSizeMsg:
		m.config.ScreenW = msg.Width
		m.config.ScreenH = msg.Height
		m.screen.Resize(msg.Width, sceneHeight(msg.Height))
		m.help.Width = msg.Width
		return m, nil

	case TickMsg:
		return m.handleTick()
	}
	return m, nil
}

// handleKey processes keyboard input.
func (m WatchModel) handleKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch {
	case key.Matches(msg, m.keys.Quit):
		m.quitting = true
		return m, tea.Quit

	case key.Matches(msg, m.keys.Back):
		m.backToMenu = true
		if !m.opts.Embedded {
			m.quitting = true
			return m, tea.Quit
		}
		return m, nil

	case key.Matches(msg, m.keys.Pause):
		m.paused = !m.paused

	case key.Matches(msg, m.keys.Step):
		if m.paused {
			m.advance()
		}

	case key.Matches(msg, m.keys.Commit):
		c, err := m.driver.Commit()
		if err != nil {
			m.status = err.Error()
		} else {
			m.status = fmt.Sprintf("committed gene %d (%s): %s", c.Index, c.Gene, c.Outcome)
		}
		m.checkDone()

	case key.Matches(msg, m.keys.Restart):
		if err := m.reset(time.Now().UnixNano()); err != nil {
			m.status = err.Error()
		}

	case key.Matches(msg, m.keys.Faster):
		m.config.TickRate = core.Clamp(m.config.TickRate*2, minTickRate, maxTickRate)

	case key.Matches(msg, m.keys.Slower):
		m.config.TickRate = core.Clamp(m.config.TickRate/2, minTickRate, maxTickRate)

	case key.Matches(msg, m.keys.Paths):
		m.hidePaths = !m.hidePaths

	case key.Matches(msg, m.keys.Help):
		m.help.ShowAll = !m.help.ShowAll

	case msg.String() == "ctrl+s":
		m.saveScreenshot()
	}
	return m, nil
}

// handleTick runs one generation unless paused or done.
func (m WatchModel) handleTick() (tea.Model, tea.Cmd) {
	if m.quitting || m.backToMenu {
		return m, nil
	}
	if !m.paused {
		m.advance()
	}
	return m, tickCmd(m.config.TickRate)
}

func (m *WatchModel) advance() {
	if m.driver.Done() {
		return
	}
	m.driver.Step()
	m.checkDone()
}

// checkDone records the result once and stores it.
func (m *WatchModel) checkDone() {
	if !m.driver.Done() || m.result != nil {
		return
	}

	res := m.driver.Result()
	m.result = &res
	if res.Found {
		m.solution = res.Solution().Replay(res.Start, m.terrain).Points()
	}

	if m.opts.Store != nil {
		id, err := m.opts.Store.SaveRun(storage.NewRun(m.level.ID, m.seed, m.opts.Genetic, res))
		if err != nil {
			m.opts.Logger.Warn("could not save run", "level", m.level.ID, "error", err)
		} else {
			m.runID = id
		}
	}
}

// View renders the current state to a string for display.
func (m WatchModel) View() string {
	if m.quitting || m.backToMenu {
		return ""
	}

	snap := m.sink.last
	sc := Scene{
		Terrain:  m.terrain,
		Outcomes: snap.Outcomes,
		Solution: m.solution,
		Outer:    snap.Outer,
		HUD:      m.hud(),
	}
	if !m.hidePaths {
		sc.Paths = snap.Paths
	}
	if m.result != nil {
		sc.Outer = m.result.Final
	}

	DrawScene(m.screen, sc)
	helpStyle := lipgloss.NewStyle().Foreground(lipgloss.Color("241"))
	return RenderScreen(m.screen) + "\n" + helpStyle.Render(m.help.View(m.keys))
}

// hud returns the status lines drawn over the scene.
func (m WatchModel) hud() []string {
	snap := m.sink.last
	counts := snap.Counts()
	outer := snap.Outer

	lines := []string{
		fmt.Sprintf("%s  seed %d  %d gen/s", m.level.Name, m.seed, m.config.TickRate),
		fmt.Sprintf("gen %d  committed %d  best %.1f  landed %d  crashed %d  lost %d",
			snap.Generation, snap.Offset, snap.BestScore,
			counts[lander.Landed], counts[lander.Crashed], counts[lander.OutOfBounds]),
		fmt.Sprintf("fuel %d  angle %d  power %d", outer.Fuel, outer.Angle, outer.Thrust),
	}

	switch {
	case m.result != nil && m.result.Found:
		lines = append(lines, fmt.Sprintf("LANDED after %d generations, fuel left %d", m.result.Generation, m.result.FuelLeft()))
	case m.result != nil:
		lines = append(lines, "search ended: "+m.result.Reason.String())
	case m.paused:
		lines = append(lines, "PAUSED")
	}
	if m.runID != "" {
		lines = append(lines, "saved as "+m.runID)
	}
	if m.status != "" {
		lines = append(lines, m.status)
	}
	return lines
}

// saveScreenshot saves the current scene as plain text.
func (m *WatchModel) saveScreenshot() {
	dir := filepath.Join(os.Getenv("HOME"), ".lander", "screenshots")
	if err := os.MkdirAll(dir, 0o755); err != nil {
		m.status = err.Error()
		return
	}

	name := fmt.Sprintf("%s_%s.txt", m.level.ID, time.Now().Format("20060102_150405"))
	path := filepath.Join(dir, name)
	if err := os.WriteFile(path, []byte(m.screen.String()), 0o600); err != nil {
		m.status = err.Error()
		return
	}
	m.status = "screenshot " + path
}

// Result returns the finished search, if any.
func (m WatchModel) Result() (sim.Result, bool) {
	if m.result == nil {
		return sim.Result{}, false
	}
	return *m.result, true
}

// IsQuitting returns true if user requested to quit entirely.
func (m WatchModel) IsQuitting() bool {
	return m.quitting
}

// BackToMenu returns true if user requested to go back to menu.
func (m WatchModel) BackToMenu() bool {
	return m.backToMenu
}

// Config returns the current runtime config (may have been updated by resize).
func (m WatchModel) Config() core.RuntimeConfig {
	return m.config
}

// RunWatch starts the Bubble Tea program watching level. back reports
// whether the user left with esc rather than quitting.
func RunWatch(level levels.Level, opts WatchOptions) (res sim.Result, back bool, err error) {
	model, err := NewWatchModel(level, opts)
	if err != nil {
		return sim.Result{}, false, err
	}

	p := tea.NewProgram(model, tea.WithAltScreen())
	final, err := p.Run()
	if err != nil {
		return sim.Result{}, false, err
	}

	m, ok := final.(WatchModel)
	if !ok {
		return sim.Result{}, false, nil
	}
	res, _ = m.Result()
	return res, m.BackToMenu(), nil
}
