package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"golang.org/x/term"

	"github.com/vovakirdan/mars-lander/internal/config"
	"github.com/vovakirdan/mars-lander/internal/core"
	"github.com/vovakirdan/mars-lander/internal/levels"
	"github.com/vovakirdan/mars-lander/internal/platform/tui"
	"github.com/vovakirdan/mars-lander/internal/storage"
)

var flagFPS int

var watchCmd = &cobra.Command{
	Use:   "watch [level]",
	Short: "Watch the search live",
	Long: `Draw every generation of the search in the terminal: the terrain, the
trajectory of each individual colored by its outcome and the committed
lander.

Without a level a menu lists the levels; left/right picks the search effort
and tab opens the recorded runs.

Controls:
  P/Space   - Pause
  N         - Step one generation
  C         - Commit the best gene now
  R         - Restart with a new seed
  +/-       - Faster/slower
  T         - Toggle trajectories
  ?         - Help
  Esc/B     - Back to the menu
  Q/Ctrl+C  - Quit

Examples:
  lander watch
  lander watch 04
  lander watch 02 --seed 42 --fps 30
  lander watch 05 --preset thorough`,
	Args: cobra.MaximumNArgs(1),
	Run:  runWatch,
}

func init() {
	watchCmd.Flags().IntVar(&flagFPS, "fps", 0, "Generations drawn per second (default: server.frame_rate)")
}

func runWatch(_ *cobra.Command, args []string) {
	cfg := mustConfig()

	// Open run storage
	store, err := storage.Open(cfg.Storage.Path)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Warning: could not open runs database: %v\n", err)
		// Continue without storage - watching still works
		store = nil
	}
	if store != nil {
		defer store.Close()
	}

	// Get terminal size
	width, height := 80, 24
	if w, h, termErr := term.GetSize(int(os.Stdout.Fd())); termErr == nil {
		width = w
		height = h
	}

	rt := core.RuntimeConfig{
		ScreenW:  width,
		ScreenH:  height,
		TickRate: cfg.Server.FrameRate,
		Seed:     cfg.Search.Seed,
	}
	if flagFPS > 0 {
		rt.TickRate = flagFPS
	}

	if len(args) == 1 {
		watchLevel(mustLevel(args[0]), cfg, store, rt)
		return
	}

	preset := config.PresetNormal
	if flagPreset != "" {
		preset, _ = config.ParsePreset(flagPreset) // validated by mustConfig
	}
	lvls := mustCatalog()

	// Menu loop
	for {
		menuResult, err := tui.RunMenu(lvls, store, preset, rt)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			break
		}
		rt = menuResult.Config
		preset = menuResult.Preset

		if menuResult.Quit {
			break
		}

		if menuResult.WantsRuns {
			goBack, err := tui.RunRunsBoard(lvls, store, rt.ScreenW, rt.ScreenH)
			if err != nil {
				fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			}
			if goBack {
				continue
			}
			break
		}

		levelCfg := cfg
		config.ApplyPreset(&levelCfg, preset)
		if !watchLevel(*menuResult.Level, levelCfg, store, rt) {
			break
		}
	}
}

// watchLevel runs the watcher and reports whether the user asked to go back.
func watchLevel(lvl levels.Level, cfg config.Config, store *storage.Store, rt core.RuntimeConfig) bool {
	opts := tui.WatchOptions{
		Genetic: cfg.Search.Genetic(),
		Sim:     simOptions(cfg, nil),
		Store:   store,
		Runtime: rt,
	}
	if rt.Seed == 0 {
		opts.Runtime.Seed = seedFor(cfg)
	}

	_, back, err := tui.RunWatch(lvl, opts)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error running watcher: %v\n", err)
		return false
	}
	return back
}
