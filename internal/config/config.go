// Package config provides YAML-based search configuration loading and
// search presets for the lander tools.
package config

import (
	"fmt"
	"time"

	"github.com/vovakirdan/mars-lander/internal/genetic"
	"github.com/vovakirdan/mars-lander/internal/registry"
	"github.com/vovakirdan/mars-lander/internal/terrain"
)

// Config contains all configuration for the lander tools.
type Config struct {
	Search  SearchConfig  `yaml:"search"`
	Commit  CommitConfig  `yaml:"commit"`
	World   terrain.World `yaml:"world"`
	Presets ScalingConfig `yaml:"presets"`
	Storage StorageConfig `yaml:"storage"`
	Server  ServerConfig  `yaml:"server"`
}

// SearchConfig defines the genetic search parameters.
type SearchConfig struct {
	Population     int     `yaml:"population"`
	ChromosomeSize int     `yaml:"chromosome_size"`
	ElitismRatio   float64 `yaml:"elitism_ratio"`
	MutationRate   float64 `yaml:"mutation_rate"`
	Policy         string  `yaml:"policy"`
	Workers        int     `yaml:"workers"`
	MaxGenerations int     `yaml:"max_generations"` // 0 = unlimited
	Seed           int64   `yaml:"seed"`            // 0 = seed from the clock
}

// CommitConfig defines when the best gene is frozen into the flying lander.
type CommitConfig struct {
	Every    int           `yaml:"every"`    // generations, 0 disables
	Interval time.Duration `yaml:"interval"` // wall clock, 0 disables
}

// ScalingConfig bounds the values presets interpolate between.
type ScalingConfig struct {
	PopulationMin  int `yaml:"population_min"`
	PopulationMax  int `yaml:"population_max"`
	GenerationsMin int `yaml:"generations_min"`
	GenerationsMax int `yaml:"generations_max"`
}

// StorageConfig defines where runs are recorded.
type StorageConfig struct {
	Path string `yaml:"path"`
}

// ServerConfig defines the SSH and HTTP front ends.
type ServerConfig struct {
	SSHAddr   string `yaml:"ssh_addr"`
	HTTPAddr  string `yaml:"http_addr"`
	HostKey   string `yaml:"host_key"`
	FrameRate int    `yaml:"frame_rate"`
}

// Genetic returns the population parameters of the search.
func (s SearchConfig) Genetic() genetic.Config {
	return genetic.Config{
		Size:           s.Population,
		ChromosomeSize: s.ChromosomeSize,
		ElitismRatio:   s.ElitismRatio,
		MutationRate:   s.MutationRate,
		Policy:         s.Policy,
	}
}

// ValidationError describes an invalid configuration value.
type ValidationError struct {
	Code    string
	Message string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("[%s] %s", e.Code, e.Message)
}

// Validation error codes.
const (
	ErrCodePopulation  = "POPULATION"
	ErrCodeChromosome  = "CHROMOSOME"
	ErrCodeRatio       = "RATIO"
	ErrCodePolicy      = "POLICY"
	ErrCodeWorkers     = "WORKERS"
	ErrCodeGenerations = "GENERATIONS"
	ErrCodeCommit      = "COMMIT"
	ErrCodeWorld       = "WORLD"
	ErrCodeServer      = "SERVER"
)

// Validate checks the configuration and returns the first problem found.
func (c Config) Validate() error {
	s := c.Search
	switch {
	case s.Population < 2:
		return &ValidationError{ErrCodePopulation, fmt.Sprintf("population must be at least 2, got %d", s.Population)}
	case s.ChromosomeSize < 1:
		return &ValidationError{ErrCodeChromosome, fmt.Sprintf("chromosome_size must be positive, got %d", s.ChromosomeSize)}
	case s.ElitismRatio < 0 || s.ElitismRatio > 1:
		return &ValidationError{ErrCodeRatio, fmt.Sprintf("elitism_ratio must be in [0,1], got %v", s.ElitismRatio)}
	case s.MutationRate < 0 || s.MutationRate > 1:
		return &ValidationError{ErrCodeRatio, fmt.Sprintf("mutation_rate must be in [0,1], got %v", s.MutationRate)}
	case !registry.Exists(s.Policy):
		return &ValidationError{ErrCodePolicy, fmt.Sprintf("unknown gene policy %q", s.Policy)}
	case s.Workers < 0:
		return &ValidationError{ErrCodeWorkers, fmt.Sprintf("workers must not be negative, got %d", s.Workers)}
	case s.MaxGenerations < 0:
		return &ValidationError{ErrCodeGenerations, fmt.Sprintf("max_generations must not be negative, got %d", s.MaxGenerations)}
	case c.Commit.Every < 0 || c.Commit.Interval < 0:
		return &ValidationError{ErrCodeCommit, "commit every and interval must not be negative"}
	case c.World.Width <= 0 || c.World.Height <= 0:
		return &ValidationError{ErrCodeWorld, fmt.Sprintf("world must have a positive size, got %vx%v", c.World.Width, c.World.Height)}
	case c.Server.FrameRate < 0:
		return &ValidationError{ErrCodeServer, fmt.Sprintf("frame_rate must not be negative, got %d", c.Server.FrameRate)}
	}
	return nil
}
