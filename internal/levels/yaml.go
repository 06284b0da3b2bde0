package levels

import (
	"fmt"

	"gopkg.in/yaml.v3"

	"github.com/vovakirdan/mars-lander/internal/core"
	"github.com/vovakirdan/mars-lander/internal/terrain"
)

// yamlLevel is the on-disk layout of a level file.
type yamlLevel struct {
	ID       string            `yaml:"id"`
	Name     string            `yaml:"name"`
	World    *terrain.World    `yaml:"world,omitempty"`
	Surface  [][2]float64      `yaml:"surface"`
	Lander   Lander            `yaml:"lander"`
	Metadata map[string]string `yaml:"metadata,omitempty"`
}

// ParseYAML parses a level file. The world defaults to the Mars map.
func ParseYAML(data []byte) (Level, error) {
	var yl yamlLevel
	if err := yaml.Unmarshal(data, &yl); err != nil {
		return Level{}, fmt.Errorf("yaml unmarshal: %w", err)
	}

	world := terrain.DefaultWorld()
	if yl.World != nil {
		world = *yl.World
	}

	surface := make([]core.Vec2, len(yl.Surface))
	for i, p := range yl.Surface {
		surface[i] = core.V(p[0], p[1])
	}

	return Level{
		ID:       yl.ID,
		Name:     yl.Name,
		World:    world,
		Surface:  surface,
		Lander:   yl.Lander,
		Metadata: yl.Metadata,
	}, nil
}

// MarshalYAML renders a level in the file layout read by ParseYAML.
func MarshalYAML(l Level) ([]byte, error) {
	yl := yamlLevel{
		ID:       l.ID,
		Name:     l.Name,
		World:    &l.World,
		Surface:  make([][2]float64, len(l.Surface)),
		Lander:   l.Lander,
		Metadata: l.Metadata,
	}
	for i, p := range l.Surface {
		yl.Surface[i] = [2]float64{p.X, p.Y}
	}
	return yaml.Marshal(yl)
}

// FormatExtensions returns supported file extensions.
func FormatExtensions() []string {
	return []string{".yaml", ".yml"}
}
