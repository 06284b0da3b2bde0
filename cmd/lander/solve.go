package main

import (
	"context"
	"errors"
	"fmt"
	"math/rand"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/charmbracelet/log"
	"github.com/spf13/cobra"

	"github.com/vovakirdan/mars-lander/internal/config"
	"github.com/vovakirdan/mars-lander/internal/levels"
	"github.com/vovakirdan/mars-lander/internal/sim"
	"github.com/vovakirdan/mars-lander/internal/storage"
)

var (
	flagSolveAll       bool
	flagSolveOut       string
	flagWorkers        int
	flagCommitEvery    int
	flagCommitInterval time.Duration
	flagMaxGenerations int
	flagTimeout        time.Duration
	flagNoSave         bool
)

var solveCmd = &cobra.Command{
	Use:   "solve [level...]",
	Short: "Search levels headless",
	Long: `Run the genetic search on one or more levels without a display, print
the outcome of each and record it in the runs database.

With --all every known level is searched and the total fuel left over the
levels that landed is printed as the score.

Examples:
  lander solve 01
  lander solve 01 02 --seed 42
  lander solve --all --preset quick
  lander solve 04 --out best.txt
  lander solve ./my-level.yaml --commit-interval 100ms`,
	Run: runSolve,
}

func init() {
	solveCmd.Flags().BoolVar(&flagSolveAll, "all", false, "Search every level")
	solveCmd.Flags().StringVar(&flagSolveOut, "out", "", "Write the solution of a single level to this file")
	solveCmd.Flags().IntVar(&flagWorkers, "workers", 0, "Simulate individuals in parallel (default: search.workers)")
	solveCmd.Flags().IntVar(&flagCommitEvery, "commit-every", 0, "Commit the best gene every N generations")
	solveCmd.Flags().DurationVar(&flagCommitInterval, "commit-interval", 0, "Commit the best gene on this wall-clock period")
	solveCmd.Flags().IntVar(&flagMaxGenerations, "max-generations", 0, "Stop after N generations (default: search.max_generations)")
	solveCmd.Flags().DurationVar(&flagTimeout, "timeout", 0, "Give up on a level after this long (0 = never)")
	solveCmd.Flags().BoolVar(&flagNoSave, "no-save", false, "Do not record runs")
}

// applySearchFlags overrides the configuration with the solve flags.
func applySearchFlags(cfg *config.Config) {
	if flagWorkers > 0 {
		cfg.Search.Workers = flagWorkers
	}
	if flagCommitEvery > 0 {
		cfg.Commit.Every = flagCommitEvery
	}
	if flagCommitInterval > 0 {
		cfg.Commit.Interval = flagCommitInterval
	}
	if flagMaxGenerations > 0 {
		cfg.Search.MaxGenerations = flagMaxGenerations
	}
}

// seedFor returns the configured seed, or one from the clock.
func seedFor(cfg config.Config) int64 {
	if cfg.Search.Seed != 0 {
		return cfg.Search.Seed
	}
	return time.Now().UnixNano()
}

// simOptions maps the configuration onto driver options.
func simOptions(cfg config.Config, lg *log.Logger) sim.Options {
	return sim.Options{
		Workers:        cfg.Search.Workers,
		CommitEvery:    cfg.Commit.Every,
		CommitInterval: cfg.Commit.Interval,
		MaxGenerations: cfg.Search.MaxGenerations,
		Logger:         lg,
	}
}

// solveLevel runs one search to its end.
func solveLevel(ctx context.Context, lvl levels.Level, cfg config.Config, seed int64, lg *log.Logger) (sim.Result, error) {
	t, err := lvl.Terrain()
	if err != nil {
		return sim.Result{}, err
	}

	d, err := sim.New(lvl.Vehicle(), t, cfg.Search.Genetic(), rand.New(rand.NewSource(seed)), simOptions(cfg, lg))
	if err != nil {
		return sim.Result{}, err
	}

	if flagTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, flagTimeout)
		defer cancel()
	}

	res, err := d.Run(ctx)
	if errors.Is(err, context.DeadlineExceeded) {
		// A timeout is an outcome, not a failure.
		return res, nil
	}
	return res, err
}

func runSolve(_ *cobra.Command, args []string) {
	cfg := mustConfig()
	applySearchFlags(&cfg)

	var lvls []levels.Level
	switch {
	case flagSolveAll:
		lvls = mustCatalog()
	case len(args) == 0:
		fmt.Fprintln(os.Stderr, "Error: name a level or pass --all")
		os.Exit(1)
	default:
		for _, ref := range args {
			lvls = append(lvls, mustLevel(ref))
		}
	}
	if flagSolveOut != "" && len(lvls) != 1 {
		fmt.Fprintln(os.Stderr, "Error: --out needs exactly one level")
		os.Exit(1)
	}

	var store *storage.Store
	if !flagNoSave {
		store = openStore(cfg)
		defer store.Close()
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	fmt.Printf("  %-6s  %-16s  %-6s  %-8s  %-10s  %s\n", "Level", "Result", "Fuel", "Gens", "Time", "Seed")
	fmt.Printf("  %-6s  %-16s  %-6s  %-8s  %-10s  %s\n", "-----", "------", "----", "----", "----", "----")

	var (
		totalFuel int
		landed    int
	)
	for _, lvl := range lvls {
		seed := seedFor(cfg)
		lg := logger.With("level", lvl.ID)

		res, err := solveLevel(ctx, lvl, cfg, seed, lg)
		if err != nil && !errors.Is(err, context.Canceled) {
			fmt.Fprintf(os.Stderr, "Error solving %s: %v\n", lvl.ID, err)
			os.Exit(1)
		}

		result := res.Reason.String()
		if res.Found {
			landed++
			totalFuel += res.FuelLeft()
		}
		fmt.Printf("  %-6s  %-16s  %-6d  %-8d  %-10s  %d\n",
			lvl.ID, result, res.FuelLeft(), res.Generation, res.Elapsed.Round(time.Millisecond), seed)

		if store != nil && res.Generation > 0 {
			if _, err := store.SaveRun(storage.NewRun(lvl.ID, seed, cfg.Search.Genetic(), res)); err != nil {
				logger.Error("could not record run", "level", lvl.ID, "error", err)
			}
		}

		if flagSolveOut != "" && res.Found {
			if err := os.WriteFile(flagSolveOut, []byte(res.Solution().Encode()+"\n"), 0o644); err != nil {
				fmt.Fprintf(os.Stderr, "Error writing solution: %v\n", err)
				os.Exit(1)
			}
			fmt.Printf("\nSolution written to %s\n", flagSolveOut)
		}

		if ctx.Err() != nil {
			fmt.Println("\nInterrupted.")
			break
		}
	}

	if len(lvls) > 1 {
		fmt.Println()
		fmt.Printf("Landed %d of %d levels, total fuel left: %d\n", landed, len(lvls), totalFuel)
	}
}
