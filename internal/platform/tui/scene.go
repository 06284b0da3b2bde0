package tui

import (
	"github.com/vovakirdan/mars-lander/internal/core"
	"github.com/vovakirdan/mars-lander/internal/lander"
	"github.com/vovakirdan/mars-lander/internal/terrain"
)

// Scene characters.
const (
	GroundChar   = '#'
	PadChar      = '='
	PathChar     = '.'
	SolutionChar = '*'
	LanderChar   = 'A'
)

// Scene is what the watcher draws for one generation.
type Scene struct {
	Terrain  *terrain.Terrain
	Paths    [][]core.Vec2 // per individual, may be nil
	Outcomes []lander.Outcome
	Solution []core.Vec2 // replay of the found control sequence
	Outer    lander.State
	HUD      []string
}

// DrawScene projects the scene onto dst. Paths go first so the terrain and
// the lander stay visible on top of them.
func DrawScene(dst *core.Screen, sc Scene) {
	dst.Clear()
	if sc.Terrain == nil {
		return
	}

	w := sc.Terrain.World()
	vp := core.Viewport{WorldW: w.Width, WorldH: w.Height, ScreenW: dst.Width(), ScreenH: dst.Height()}

	for i, p := range sc.Paths {
		out := lander.Flying
		if i < len(sc.Outcomes) {
			out = sc.Outcomes[i]
		}
		drawPath(dst, vp, p, PathChar, outcomeColor(out))
	}

	for i, n := 0, sc.Terrain.NumSegments(); i < n; i++ {
		seg := sc.Terrain.Segment(i)
		r, c := GroundChar, core.ColorGray
		if i == sc.Terrain.LandingZone() {
			r, c = PadChar, core.ColorGreen
		}
		x0, y0 := vp.Project(seg.A)
		x1, y1 := vp.Project(seg.B)
		dst.DrawLine(x0, y0, x1, y1, r, c)
	}

	drawPath(dst, vp, sc.Solution, SolutionChar, core.ColorBrightGreen)

	x, y := vp.Project(sc.Outer.Pos)
	dst.SetColored(x, y, LanderChar, core.ColorYellow)

	for i, line := range sc.HUD {
		dst.DrawText(1, i, line)
	}
}

func drawPath(dst *core.Screen, vp core.Viewport, path []core.Vec2, r rune, c core.Color) {
	if len(path) == 1 {
		x, y := vp.Project(path[0])
		dst.SetColored(x, y, r, c)
		return
	}
	for k := 1; k < len(path); k++ {
		x0, y0 := vp.Project(path[k-1])
		x1, y1 := vp.Project(path[k])
		dst.DrawLine(x0, y0, x1, y1, r, c)
	}
}

func outcomeColor(o lander.Outcome) core.Color {
	switch o {
	case lander.Landed:
		return core.ColorBrightGreen
	case lander.Crashed:
		return core.ColorRed
	case lander.OutOfBounds:
		return core.ColorOrange
	default:
		return core.ColorCyan
	}
}
