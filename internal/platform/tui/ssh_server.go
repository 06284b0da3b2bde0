package tui

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/log"
	"github.com/charmbracelet/ssh"
	"github.com/charmbracelet/wish"
	"github.com/charmbracelet/wish/bubbletea"

	"github.com/vovakirdan/mars-lander/internal/config"
	"github.com/vovakirdan/mars-lander/internal/core"
	"github.com/vovakirdan/mars-lander/internal/levels"
	"github.com/vovakirdan/mars-lander/internal/sim"
	"github.com/vovakirdan/mars-lander/internal/storage"
)

// SSHServerConfig holds configuration for the SSH server.
type SSHServerConfig struct {
	// Address is the host:port to listen on (e.g., ":2222").
	Address string

	// HostKeyPath is the path to the host key file.
	// If empty, a key will be generated at ~/.lander/host_key.
	HostKeyPath string

	// DBPath is the path to the runs database.
	DBPath string

	// IdleTimeout is how long to wait before closing idle connections.
	IdleTimeout time.Duration

	// FrameRate is the number of generations drawn per second.
	FrameRate int

	// Search is the configuration every session starts from.
	Search config.Config

	// Preset is the search effort preselected in the menu.
	Preset config.Preset

	// Levels are offered in the menu.
	Levels []levels.Level
}

// DefaultSSHServerConfig returns a config with sensible defaults.
func DefaultSSHServerConfig() SSHServerConfig {
	cfg := config.DefaultConfig()
	return SSHServerConfig{
		Address:     cfg.Server.SSHAddr,
		HostKeyPath: cfg.Server.HostKey,
		DBPath:      cfg.Storage.Path,
		IdleTimeout: 30 * time.Minute,
		FrameRate:   cfg.Server.FrameRate,
		Search:      cfg,
		Preset:      config.PresetNormal,
	}
}

// SSHServer wraps a Wish SSH server that lets remote users watch searches.
type SSHServer struct {
	config SSHServerConfig
	server *ssh.Server
	store  *storage.Store
	logger *log.Logger
}

// NewSSHServer creates a new SSH server with the given configuration.
func NewSSHServer(cfg SSHServerConfig, logger *log.Logger) (*SSHServer, error) {
	if logger == nil {
		logger = log.NewWithOptions(os.Stderr, log.Options{
			ReportTimestamp: true,
			Prefix:          "lander-ssh",
		})
	}
	if len(cfg.Levels) == 0 {
		return nil, errors.New("no levels to serve")
	}

	store, err := storage.Open(cfg.DBPath)
	if err != nil {
		logger.Warn("could not open runs database", "error", err)
		store = nil
	}

	srv := &SSHServer{
		config: cfg,
		store:  store,
		logger: logger,
	}

	hostKeyPath := cfg.HostKeyPath
	if hostKeyPath == "" {
		home, homeErr := os.UserHomeDir()
		if homeErr != nil {
			return nil, fmt.Errorf("cannot get home directory: %w", homeErr)
		}
		hostKeyPath = filepath.Join(home, ".lander", "host_key")
	}
	if mkdirErr := os.MkdirAll(filepath.Dir(hostKeyPath), 0o700); mkdirErr != nil {
		return nil, fmt.Errorf("cannot create host key directory: %w", mkdirErr)
	}

	server, err := wish.NewServer(
		wish.WithAddress(cfg.Address),
		wish.WithHostKeyPath(hostKeyPath),
		wish.WithIdleTimeout(cfg.IdleTimeout),
		wish.WithMiddleware(
			bubbletea.Middleware(srv.teaHandler),
			srv.loggingMiddleware,
		),
	)
	if err != nil {
		if store != nil {
			store.Close()
		}
		return nil, fmt.Errorf("cannot create SSH server: %w", err)
	}

	srv.server = server
	return srv, nil
}

// teaHandler creates a Bubble Tea program for each SSH session.
func (s *SSHServer) teaHandler(sess ssh.Session) (tea.Model, []tea.ProgramOption) {
	pty, _, ok := sess.Pty()
	if !ok {
		s.logger.Warn("no PTY requested", "user", sess.User())
		return nil, nil
	}

	rt := core.RuntimeConfig{
		ScreenW:  pty.Window.Width,
		ScreenH:  pty.Window.Height,
		TickRate: s.config.FrameRate,
	}

	model := NewSessionModel(s.config, s.store, rt, s.logger.With("user", sess.User()))
	return model, []tea.ProgramOption{tea.WithAltScreen()}
}

// loggingMiddleware logs SSH session events.
func (s *SSHServer) loggingMiddleware(next ssh.Handler) ssh.Handler {
	return func(sess ssh.Session) {
		s.logger.Info("session started", "user", sess.User(), "remote", sess.RemoteAddr().String())
		next(sess)
		s.logger.Info("session ended", "user", sess.User(), "remote", sess.RemoteAddr().String())
	}
}

// ListenAndServe starts the SSH server and blocks until SIGINT or SIGTERM.
func (s *SSHServer) ListenAndServe() error {
	s.logger.Info("starting SSH server", "address", s.config.Address, "levels", len(s.config.Levels))

	done := make(chan os.Signal, 1)
	signal.Notify(done, os.Interrupt, syscall.SIGTERM)

	errCh := make(chan error, 1)
	go func() {
		if err := s.server.ListenAndServe(); err != nil && !errors.Is(err, ssh.ErrServerClosed) {
			errCh <- err
		}
	}()

	select {
	case <-done:
	case err := <-errCh:
		s.logger.Error("server error", "error", err)
		_ = s.Shutdown()
		return err
	}

	s.logger.Info("shutting down...")
	return s.Shutdown()
}

// Shutdown gracefully stops the server.
func (s *SSHServer) Shutdown() error {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if s.store != nil {
		s.store.Close()
	}
	return s.server.Shutdown(ctx)
}

// Addr returns the server's listen address string.
func (s *SSHServer) Addr() string {
	return s.config.Address
}

// sessionScreen is the screen a SessionModel is showing.
type sessionScreen int

const (
	screenMenu sessionScreen = iota
	screenWatch
	screenRuns
)

// SessionModel manages the full session flow: menu -> watch or runs -> menu.
// This is the top-level model used for SSH sessions.
type SessionModel struct {
	server  SSHServerConfig
	store   *storage.Store
	config  core.RuntimeConfig
	logger  *log.Logger
	screen  sessionScreen
	menu    MenuModel
	watch   WatchModel
	runs    RunsModel
	preset  config.Preset
	lastErr string
}

// NewSessionModel creates a new session model.
func NewSessionModel(server SSHServerConfig, store *storage.Store, rt core.RuntimeConfig, logger *log.Logger) SessionModel {
	return SessionModel{
		server: server,
		store:  store,
		config: rt,
		logger: logger,
		preset: server.Preset,
		menu:   NewMenuModel(server.Levels, store, server.Preset, rt),
	}
}

// Init initializes the session.
func (m SessionModel) Init() tea.Cmd {
	return m.menu.Init()
}

// Update handles messages for the session.
func (m SessionModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	if wsm, ok := msg.(tea.WindowSizeMsg); ok {
		m.config.ScreenW = wsm.Width
		m.config.ScreenH = wsm.Height
	}

	switch m.screen {
	case screenWatch:
		return m.updateWatch(msg)
	case screenRuns:
		return m.updateRuns(msg)
	default:
		return m.updateMenu(msg)
	}
}

// updateMenu handles the level picker. The menu's own tea.Quit is swallowed
// so the session stays open.
func (m SessionModel) updateMenu(msg tea.Msg) (tea.Model, tea.Cmd) {
	next, cmd := m.menu.Update(msg)
	if mm, ok := next.(MenuModel); ok {
		m.menu = mm
	}

	switch {
	case m.menu.IsQuitting():
		return m, tea.Quit

	case m.menu.WantsRuns():
		m.runs = NewRunsModel(m.server.Levels, m.store, m.config.ScreenW, m.config.ScreenH)
		m.screen = screenRuns
		return m, m.runs.Init()

	case m.menu.Selected() != nil:
		m.preset = m.menu.Preset()
		w, err := m.newWatch(*m.menu.Selected())
		if err != nil {
			m.lastErr = err.Error()
			m.menu = NewMenuModel(m.server.Levels, m.store, m.preset, m.config)
			return m, nil
		}
		m.watch = w
		m.screen = screenWatch
		return m, m.watch.Init()
	}
	return m, cmd
}

// newWatch builds a watcher with the session's effort preset.
func (m SessionModel) newWatch(level levels.Level) (WatchModel, error) {
	cfg := m.server.Search
	config.ApplyPreset(&cfg, m.preset)

	return NewWatchModel(level, WatchOptions{
		Genetic: cfg.Search.Genetic(),
		Sim: sim.Options{
			Workers:        cfg.Search.Workers,
			CommitEvery:    cfg.Commit.Every,
			CommitInterval: cfg.Commit.Interval,
			MaxGenerations: cfg.Search.MaxGenerations,
		},
		Store:    m.store,
		Runtime:  m.config,
		Logger:   m.logger,
		Embedded: true,
	})
}

// updateWatch handles the watcher.
func (m SessionModel) updateWatch(msg tea.Msg) (tea.Model, tea.Cmd) {
	next, cmd := m.watch.Update(msg)
	if wm, ok := next.(WatchModel); ok {
		m.watch = wm
	}

	if m.watch.IsQuitting() {
		return m, tea.Quit
	}
	if m.watch.BackToMenu() {
		m.screen = screenMenu
		m.menu = NewMenuModel(m.server.Levels, m.store, m.preset, m.config)
		return m, m.menu.Init()
	}
	return m, cmd
}

// updateRuns handles the runs board.
func (m SessionModel) updateRuns(msg tea.Msg) (tea.Model, tea.Cmd) {
	next, cmd := m.runs.Update(msg)
	if rm, ok := next.(RunsModel); ok {
		m.runs = rm
	}

	if m.runs.IsQuitting() {
		return m, tea.Quit
	}
	if m.runs.IsGoingBack() {
		m.screen = screenMenu
		m.menu = NewMenuModel(m.server.Levels, m.store, m.preset, m.config)
		return m, m.menu.Init()
	}
	return m, cmd
}

// View renders the current screen.
func (m SessionModel) View() string {
	switch m.screen {
	case screenWatch:
		return m.watch.View()
	case screenRuns:
		return m.runs.View()
	default:
		if m.lastErr != "" {
			return m.menu.View() + "\n" + centerText(m.lastErr, m.config.ScreenW)
		}
		return m.menu.View()
	}
}
