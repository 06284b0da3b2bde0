// lander searches for control sequences that land a rocket on Mars with a
// continuous genetic algorithm.
//
// Usage:
//
//	lander levels            - List available levels
//	lander solve <level>     - Search a level headless and record the run
//	lander watch [level]     - Watch the search live in the terminal
//	lander replay <level>    - Fly a stored or saved solution again
//	lander runs [level]      - Show recorded runs
//	lander serve             - Start SSH server for remote watching
//	lander http              - Start the HTTP and websocket API
//	lander codingame         - Play the turn protocol on stdin/stdout
//	lander config init|show  - Write or print the configuration
//
// Global flags:
//
//	--config <path>  - Configuration file (default: search order)
//	--seed <value>   - RNG seed for a reproducible search
//	--preset <name>  - Search effort: quick, normal, thorough
//	--db <path>      - Runs database (default: from configuration)
//	--levels <dir>   - Directory with extra level files
//	--verbose        - Log every generation
package main

import (
	"fmt"
	"os"
	"strconv"

	"github.com/charmbracelet/log"
	"github.com/joho/godotenv"
	"github.com/spf13/cobra"

	"github.com/vovakirdan/mars-lander/internal/config"
	"github.com/vovakirdan/mars-lander/internal/levels"
	"github.com/vovakirdan/mars-lander/internal/storage"
)

var (
	// Global flags
	flagConfig    string
	flagSeed      int64
	flagPreset    string
	flagDBPath    string
	flagLevelsDir string
	flagVerbose   bool

	logger = log.NewWithOptions(os.Stderr, log.Options{
		ReportTimestamp: true,
		Prefix:          "lander",
	})
)

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

var rootCmd = &cobra.Command{
	Use:   "lander",
	Short: "Mars lander - genetic search for a safe landing",
	Long: `Mars lander evolves control sequences (angle and thrust changes per
second) until a rocket touches down on the flat zone of a 2D terrain.

Available commands:
  levels     - Show all available levels
  solve      - Search levels headless and record the runs
  watch      - Watch the population evolve in the terminal
  replay     - Fly a solution again and print its telemetry
  runs       - View recorded runs
  serve      - Start SSH server for remote watching
  http       - Start the HTTP API with websocket streaming
  codingame  - Answer the game referee turn by turn
  config     - Write or print the configuration

Environment (also read from .env):
  LANDER_CONFIG, LANDER_DB, LANDER_SEED

Examples:
  lander levels
  lander solve 01
  lander solve --all --preset quick
  lander watch 04
  lander replay 01 --file best.txt
  lander serve --ssh :2222
  lander http --addr :8080`,
	PersistentPreRun: applyEnvironment,
}

func init() {
	// Global persistent flags
	rootCmd.PersistentFlags().StringVar(&flagConfig, "config", "", "Path to configuration file")
	rootCmd.PersistentFlags().Int64Var(&flagSeed, "seed", 0, "RNG seed (0 = configured seed, else time based)")
	rootCmd.PersistentFlags().StringVar(&flagPreset, "preset", "", "Search effort preset (quick, normal, thorough)")
	rootCmd.PersistentFlags().StringVar(&flagDBPath, "db", "", "Path to runs database (default: storage.path)")
	rootCmd.PersistentFlags().StringVar(&flagLevelsDir, "levels", "", "Directory with extra level files")
	rootCmd.PersistentFlags().BoolVarP(&flagVerbose, "verbose", "v", false, "Log every generation")

	// Add subcommands
	rootCmd.AddCommand(levelsCmd)
	rootCmd.AddCommand(solveCmd)
	rootCmd.AddCommand(watchCmd)
	rootCmd.AddCommand(replayCmd)
	rootCmd.AddCommand(runsCmd)
	rootCmd.AddCommand(serveCmd)
	rootCmd.AddCommand(httpCmd)
	rootCmd.AddCommand(codingameCmd)
	rootCmd.AddCommand(configCmd)
}

// applyEnvironment loads .env and lets LANDER_* variables fill flags the
// user did not set.
func applyEnvironment(cmd *cobra.Command, _ []string) {
	if err := godotenv.Load(); err != nil && !os.IsNotExist(err) {
		logger.Warn("could not read .env", "error", err)
	}

	flags := cmd.Flags()
	if v := os.Getenv("LANDER_CONFIG"); v != "" && !flags.Changed("config") {
		flagConfig = v
	}
	if v := os.Getenv("LANDER_DB"); v != "" && !flags.Changed("db") {
		flagDBPath = v
	}
	if v := os.Getenv("LANDER_SEED"); v != "" && !flags.Changed("seed") {
		seed, err := strconv.ParseInt(v, 10, 64)
		if err != nil {
			logger.Warn("ignoring LANDER_SEED", "value", v, "error", err)
		} else {
			flagSeed = seed
		}
	}

	if flagVerbose {
		logger.SetLevel(log.DebugLevel)
	}
}

// loadConfig reads the configuration and applies --preset and --seed.
func loadConfig() (config.Config, error) {
	cfg, err := config.Load(flagConfig)
	if err != nil {
		return cfg, err
	}

	if flagPreset != "" {
		p, err := config.ParsePreset(flagPreset)
		if err != nil {
			return cfg, err
		}
		config.ApplyPreset(&cfg, p)
	}
	if flagSeed != 0 {
		cfg.Search.Seed = flagSeed
	}
	if flagDBPath != "" {
		cfg.Storage.Path = flagDBPath
	}

	if err := cfg.Validate(); err != nil {
		return cfg, err
	}
	return cfg, nil
}

// mustConfig is loadConfig for Run functions.
func mustConfig() config.Config {
	cfg, err := loadConfig()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error loading configuration: %v\n", err)
		os.Exit(1)
	}
	return cfg
}

// openStore opens the runs database named by the configuration.
func openStore(cfg config.Config) *storage.Store {
	store, err := storage.Open(cfg.Storage.Path)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error opening runs database: %v\n", err)
		os.Exit(1)
	}
	return store
}

// mustCatalog returns the built-in and user levels.
func mustCatalog() []levels.Level {
	lvls, err := levels.Catalog(flagLevelsDir)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error loading levels: %v\n", err)
		os.Exit(1)
	}
	return lvls
}

// mustLevel resolves a level ID or file path.
func mustLevel(ref string) levels.Level {
	lvl, err := levels.Resolve(ref, flagLevelsDir)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		fmt.Fprintln(os.Stderr, "Run 'lander levels' to see available levels.")
		os.Exit(1)
	}
	return lvl
}
