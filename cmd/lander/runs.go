package main

import (
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/vovakirdan/mars-lander/internal/storage"
)

var (
	flagRunsLimit int
	flagRunsClear bool
)

var runsCmd = &cobra.Command{
	Use:   "runs [level]",
	Short: "Show recorded runs",
	Long: `Display the most recent runs, optionally for one level, followed by the
level statistics.

Examples:
  lander runs
  lander runs 04 --limit 20
  lander runs 04 --clear`,
	Args: cobra.MaximumNArgs(1),
	Run:  runRuns,
}

func init() {
	runsCmd.Flags().IntVarP(&flagRunsLimit, "limit", "n", 10, "Number of runs to show")
	runsCmd.Flags().BoolVar(&flagRunsClear, "clear", false, "Delete the recorded runs of the level")
}

func runRuns(_ *cobra.Command, args []string) {
	cfg := mustConfig()
	store := openStore(cfg)
	defer store.Close()

	levelID := ""
	if len(args) == 1 {
		levelID = args[0]
	}

	if flagRunsClear {
		if levelID == "" {
			fmt.Fprintln(os.Stderr, "Error: --clear needs a level")
			os.Exit(1)
		}
		if err := store.ClearRuns(levelID); err != nil {
			fmt.Fprintf(os.Stderr, "Error clearing runs: %v\n", err)
			os.Exit(1)
		}
		fmt.Printf("Runs of level %s deleted.\n", levelID)
		return
	}

	var (
		runs []storage.Run
		err  error
	)
	if levelID != "" {
		runs, err = store.RunsForLevel(levelID, flagRunsLimit)
	} else {
		runs, err = store.RecentRuns(flagRunsLimit)
	}
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error retrieving runs: %v\n", err)
		os.Exit(1)
	}

	if len(runs) == 0 {
		fmt.Println("No runs recorded yet.")
		fmt.Println()
		fmt.Println("Run 'lander solve <level>' to record the first one.")
		return
	}

	fmt.Printf("  %-36s  %-6s  %-14s  %-6s  %-6s  %-10s  %s\n", "ID", "Level", "Result", "Fuel", "Gens", "Time", "Date")
	fmt.Printf("  %-36s  %-6s  %-14s  %-6s  %-6s  %-10s  %s\n", "--", "-----", "------", "----", "----", "----", "----")
	for _, r := range runs {
		fmt.Printf("  %-36s  %-6s  %-14s  %-6d  %-6d  %-10s  %s\n",
			r.ID, r.LevelID, r.Reason, r.FuelLeft, r.Generations,
			r.Elapsed.Round(time.Millisecond), r.CreatedAt.Format("2006-01-02 15:04"))
	}

	if levelID == "" {
		return
	}

	// Show level statistics
	fmt.Println()
	st, err := store.GetLevelStats(levelID)
	if err != nil && !errors.Is(err, storage.ErrNotFound) {
		fmt.Fprintf(os.Stderr, "Error retrieving stats: %v\n", err)
		os.Exit(1)
	}
	fmt.Printf("Runs: %d  Landed: %d (%.0f%%)  Best fuel: %d  Avg generations: %.0f\n",
		st.Runs, st.Landings, st.SuccessRate()*100, st.BestFuel, st.AvgGenerations)
}
