// Package levels loads lander scenarios: a surface polyline, the initial
// lander and the world bounds. Built-in levels are embedded; user levels are
// YAML files in a directory.
package levels

import (
	"fmt"

	"github.com/vovakirdan/mars-lander/internal/core"
	"github.com/vovakirdan/mars-lander/internal/lander"
	"github.com/vovakirdan/mars-lander/internal/terrain"
)

// Lander is the initial lander of a level, in game units.
type Lander struct {
	X      float64 `yaml:"x" json:"x"`
	Y      float64 `yaml:"y" json:"y"`
	HSpeed float64 `yaml:"hspeed" json:"hspeed"`
	VSpeed float64 `yaml:"vspeed" json:"vspeed"`
	Fuel   int     `yaml:"fuel" json:"fuel"`
	Angle  int     `yaml:"angle" json:"angle"`
	Power  int     `yaml:"power" json:"power"`
}

// Level represents a complete level definition.
type Level struct {
	ID       string            `json:"id"`
	Name     string            `json:"name"`
	World    terrain.World     `json:"world"`
	Surface  []core.Vec2       `json:"surface"`
	Lander   Lander            `json:"lander"`
	Metadata map[string]string `json:"metadata,omitempty"`
	FilePath string            `json:"-"`
}

// Terrain builds the level surface.
func (l *Level) Terrain() (*terrain.Terrain, error) {
	t, err := terrain.New(l.Surface, l.World)
	if err != nil {
		return nil, fmt.Errorf("level %s: %w", l.ID, err)
	}
	return t, nil
}

// Vehicle returns the initial lander state.
func (l *Level) Vehicle() lander.State {
	v := l.Lander
	return lander.New(v.X, v.Y, v.HSpeed, v.VSpeed, v.Fuel, v.Angle, v.Power)
}

// Validate checks that the level can be flown.
func (l *Level) Validate() error {
	if l.ID == "" {
		return fmt.Errorf("level has no id")
	}
	if _, err := l.Terrain(); err != nil {
		return err
	}
	if !l.World.Contains(core.V(l.Lander.X, l.Lander.Y)) {
		return fmt.Errorf("level %s: lander (%.0f, %.0f) outside the world", l.ID, l.Lander.X, l.Lander.Y)
	}
	return nil
}
