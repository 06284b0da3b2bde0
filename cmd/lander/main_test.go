package main

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/vovakirdan/mars-lander/internal/config"
)

// withFlags restores the global flags after a test.
func withFlags(t *testing.T) {
	t.Helper()
	cfg, seed, preset, db := flagConfig, flagSeed, flagPreset, flagDBPath
	t.Cleanup(func() {
		flagConfig, flagSeed, flagPreset, flagDBPath = cfg, seed, preset, db
	})
}

func TestLoadConfigFlags(t *testing.T) {
	withFlags(t)

	path := filepath.Join(t.TempDir(), "lander.yaml")
	if err := os.WriteFile(path, []byte("search:\n  population: 60\n"), 0o644); err != nil {
		t.Fatal(err)
	}

	flagConfig = path
	flagSeed = 7
	flagDBPath = "runs.db"
	flagPreset = ""

	cfg, err := loadConfig()
	if err != nil {
		t.Fatalf("loadConfig() failed: %v", err)
	}
	if cfg.Search.Population != 60 || cfg.Search.Seed != 7 || cfg.Storage.Path != "runs.db" {
		t.Errorf("config = %+v", cfg)
	}

	flagPreset = "quick"
	quick, err := loadConfig()
	if err != nil {
		t.Fatalf("loadConfig() with preset failed: %v", err)
	}
	want := config.DefaultConfig()
	config.ApplyPreset(&want, config.PresetQuick)
	if quick.Search.Population != want.Search.Population {
		t.Errorf("quick population = %d, expected %d", quick.Search.Population, want.Search.Population)
	}

	flagPreset = "heroic"
	if _, err := loadConfig(); err == nil {
		t.Error("unknown preset should fail")
	}
}

func TestApplySearchFlags(t *testing.T) {
	workers, every, maxGen := flagWorkers, flagCommitEvery, flagMaxGenerations
	t.Cleanup(func() { flagWorkers, flagCommitEvery, flagMaxGenerations = workers, every, maxGen })

	cfg := config.DefaultConfig()
	flagWorkers, flagCommitEvery, flagMaxGenerations = 4, 3, 100
	applySearchFlags(&cfg)

	if cfg.Search.Workers != 4 || cfg.Commit.Every != 3 || cfg.Search.MaxGenerations != 100 {
		t.Errorf("config = %+v", cfg)
	}

	opts := simOptions(cfg, nil)
	if opts.Workers != 4 || opts.CommitEvery != 3 || opts.MaxGenerations != 100 {
		t.Errorf("options = %+v", opts)
	}
}

func TestSeedFor(t *testing.T) {
	cfg := config.DefaultConfig()
	cfg.Search.Seed = 99
	if got := seedFor(cfg); got != 99 {
		t.Errorf("seedFor() = %d, expected the configured seed", got)
	}
	cfg.Search.Seed = 0
	if got := seedFor(cfg); got == 0 {
		t.Error("seedFor() should pick a seed from the clock")
	}
}
