package main

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/vovakirdan/mars-lander/internal/config"
)

var flagForce bool

var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Write or print the configuration",
	Long: `Manage the lander configuration file.

The configuration is read from --config, then ~/.lander/configs/lander.yaml,
then ./configs/lander.yaml, falling back to the built-in defaults.

Examples:
  lander config init
  lander config init ./configs/lander.yaml
  lander config init --preset quick --force
  lander config show --preset thorough`,
}

var configInitCmd = &cobra.Command{
	Use:   "init [path]",
	Short: "Write the default configuration",
	Args:  cobra.MaximumNArgs(1),
	Run:   runConfigInit,
}

var configShowCmd = &cobra.Command{
	Use:   "show",
	Short: "Print the effective configuration",
	Run:   runConfigShow,
}

func init() {
	configInitCmd.Flags().BoolVarP(&flagForce, "force", "f", false, "Overwrite an existing file")
	configCmd.AddCommand(configInitCmd)
	configCmd.AddCommand(configShowCmd)
}

func runConfigInit(_ *cobra.Command, args []string) {
	path := ""
	if len(args) == 1 {
		path = args[0]
	} else {
		home, err := os.UserHomeDir()
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			os.Exit(1)
		}
		path = filepath.Join(home, ".lander", "configs", "lander.yaml")
	}

	if _, err := os.Stat(path); err == nil && !flagForce {
		fmt.Fprintf(os.Stderr, "Error: %s already exists (use --force to overwrite)\n", path)
		os.Exit(1)
	}

	// With --preset or --seed the effective values are written instead of
	// the commented defaults.
	var err error
	if flagPreset != "" || flagSeed != 0 {
		err = config.Write(path, mustConfig())
	} else if err = os.MkdirAll(filepath.Dir(path), 0o755); err == nil {
		err = os.WriteFile(path, config.DefaultYAML(), 0o644)
	}
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error writing configuration: %v\n", err)
		os.Exit(1)
	}
	fmt.Printf("Configuration written to %s\n", path)
}

func runConfigShow(_ *cobra.Command, _ []string) {
	cfg := mustConfig()

	data, err := yaml.Marshal(cfg)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error encoding configuration: %v\n", err)
		os.Exit(1)
	}
	os.Stdout.Write(data)
}
