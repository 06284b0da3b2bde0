package config

import (
	_ "embed"

	"github.com/vovakirdan/mars-lander/internal/genetic"
	"github.com/vovakirdan/mars-lander/internal/terrain"
)

//go:embed defaults/lander.yaml
var defaultLanderYAML []byte

// DefaultConfig returns the default configuration.
func DefaultConfig() Config {
	g := genetic.DefaultConfig()
	return Config{
		Search: SearchConfig{
			Population:     g.Size,
			ChromosomeSize: g.ChromosomeSize,
			ElitismRatio:   g.ElitismRatio,
			MutationRate:   g.MutationRate,
			Policy:         g.Policy,
			Workers:        1,
		},
		World: terrain.DefaultWorld(),
		Presets: ScalingConfig{
			PopulationMin:  40,
			PopulationMax:  300,
			GenerationsMin: 200,
			GenerationsMax: 5000,
		},
		Storage: StorageConfig{
			Path: "lander.db",
		},
		Server: ServerConfig{
			SSHAddr:   ":2222",
			HTTPAddr:  ":8080",
			HostKey:   ".ssh/lander_ed25519",
			FrameRate: 20,
		},
	}
}

// DefaultYAML returns the embedded default configuration file.
func DefaultYAML() []byte {
	return defaultLanderYAML
}
