package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/vovakirdan/mars-lander/internal/registry"
)

var levelsCmd = &cobra.Command{
	Use:   "levels",
	Short: "List all available levels",
	Long: `Shows the built-in levels, plus the levels found in --levels, and the
gene policies a search can use.`,
	Run: runLevels,
}

func runLevels(_ *cobra.Command, _ []string) {
	lvls := mustCatalog()

	if len(lvls) == 0 {
		fmt.Println("No levels available.")
		return
	}

	fmt.Println("Available levels:")
	fmt.Println()

	// Calculate column widths
	maxIDLen := 2 // "ID" header
	for _, l := range lvls {
		maxIDLen = max(maxIDLen, len(l.ID))
	}

	fmt.Printf("  %-*s  %-6s  %-6s  %s\n", maxIDLen, "ID", "Points", "Fuel", "Name")
	fmt.Printf("  %-*s  %-6s  %-6s  %s\n", maxIDLen, "--", "------", "----", "----")

	for _, l := range lvls {
		fmt.Printf("  %-*s  %-6d  %-6d  %s\n", maxIDLen, l.ID, len(l.Surface), l.Lander.Fuel, l.Name)
	}

	fmt.Println()
	fmt.Println("Gene policies:")
	for _, p := range registry.List() {
		fmt.Printf("  %-8s  %s\n", p.ID, p.Title)
	}

	fmt.Println()
	fmt.Println("Run 'lander solve <id>' or 'lander watch <id>' to search a level.")
}
