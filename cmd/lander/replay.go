package main

import (
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/vovakirdan/mars-lander/internal/levels"
	"github.com/vovakirdan/mars-lander/internal/solution"
)

var (
	flagReplayFile  string
	flagReplayRun   string
	flagReplayQuiet bool
)

var replayCmd = &cobra.Command{
	Use:   "replay [level]",
	Short: "Fly a solution again",
	Long: `Replay a solution through the physics and print the lander state of every
second (X, Y, HSpeed, VSpeed, Fuel, Angle, Thrust) followed by the outcome.

The solution comes from a file written by 'lander solve --out', or from a
recorded run. A recorded run already knows its level.

Examples:
  lander replay 01 --file best.txt
  lander replay --run 3f2a9c4e-...
  lander replay --run 3f2a9c4e-... --quiet`,
	Args: cobra.MaximumNArgs(1),
	Run:  runReplay,
}

func init() {
	replayCmd.Flags().StringVar(&flagReplayFile, "file", "", "Solution file")
	replayCmd.Flags().StringVar(&flagReplayRun, "run", "", "ID of a recorded run")
	replayCmd.Flags().BoolVarP(&flagReplayQuiet, "quiet", "q", false, "Print only the outcome")
}

func runReplay(_ *cobra.Command, args []string) {
	var (
		lvl  levels.Level
		text string
	)

	switch {
	case flagReplayRun != "":
		cfg := mustConfig()
		store := openStore(cfg)
		run, err := store.RunByID(flagReplayRun)
		store.Close()
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			os.Exit(1)
		}
		ref := run.LevelID
		if len(args) == 1 {
			ref = args[0]
		}
		lvl = mustLevel(ref)
		text = run.Genes

	case flagReplayFile != "":
		if len(args) != 1 {
			fmt.Fprintln(os.Stderr, "Error: --file needs a level")
			os.Exit(1)
		}
		lvl = mustLevel(args[0])
		data, err := os.ReadFile(flagReplayFile)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error reading solution: %v\n", err)
			os.Exit(1)
		}
		text = string(data)

	default:
		fmt.Fprintln(os.Stderr, "Error: pass --file or --run")
		os.Exit(1)
	}

	t, err := lvl.Terrain()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
	sol, err := solution.Parse(strings.TrimSpace(text))
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error parsing solution: %v\n", err)
		os.Exit(1)
	}

	tr := sol.Replay(lvl.Vehicle(), t)
	if !flagReplayQuiet {
		for _, line := range tr.DebugLines() {
			fmt.Println(line)
		}
		fmt.Println()
	}

	final := tr.Final()
	fmt.Printf("%s: %s after %d seconds, fuel left %d\n", lvl.Name, final.Outcome(t), len(tr.States)-1, final.Fuel)
}
