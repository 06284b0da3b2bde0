package config

import (
	"fmt"
	"math"
)

// Preset represents a named search effort.
type Preset string

const (
	PresetQuick    Preset = "quick"
	PresetNormal   Preset = "normal"
	PresetThorough Preset = "thorough"
	PresetCustom   Preset = "custom" // keep the configured values
)

// Presets lists the accepted preset names.
func Presets() []Preset {
	return []Preset{PresetQuick, PresetNormal, PresetThorough, PresetCustom}
}

// ParsePreset converts a flag value to a Preset.
func ParsePreset(s string) (Preset, error) {
	for _, p := range Presets() {
		if string(p) == s {
			return p, nil
		}
	}
	return "", fmt.Errorf("unknown preset %q", s)
}

// EffortForPreset returns the effort level (0.0 to 1.0) of a preset.
func EffortForPreset(preset Preset) float64 {
	switch preset {
	case PresetQuick:
		return 0.0
	case PresetNormal:
		return 0.3
	case PresetThorough:
		return 1.0
	default:
		return 0.0
	}
}

// ApplyPreset scales population size and generation cap between the
// configured bounds. PresetCustom leaves the search untouched.
func ApplyPreset(cfg *Config, preset Preset) {
	if preset == PresetCustom {
		return
	}
	effort := clampF(EffortForPreset(preset), 0.0, 1.0)
	sc := cfg.Presets

	cfg.Search.Population = lerp(sc.PopulationMin, sc.PopulationMax, effort)
	cfg.Search.MaxGenerations = lerp(sc.GenerationsMin, sc.GenerationsMax, effort)
}

// lerp interpolates from lo to hi, rounding to the nearest integer.
func lerp(lo, hi int, t float64) int {
	return lo + int(math.Round(t*float64(hi-lo)))
}

// clampF restricts a float64 to [min, max].
func clampF(val, min, max float64) float64 {
	return math.Max(min, math.Min(max, val))
}
