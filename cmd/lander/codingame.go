package main

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"math/rand"
	"os"
	"strconv"
	"time"

	"github.com/charmbracelet/log"
	"github.com/spf13/cobra"

	"github.com/vovakirdan/mars-lander/internal/config"
	"github.com/vovakirdan/mars-lander/internal/core"
	"github.com/vovakirdan/mars-lander/internal/lander"
	"github.com/vovakirdan/mars-lander/internal/sim"
	"github.com/vovakirdan/mars-lander/internal/terrain"
)

var (
	flagFirstTurn time.Duration
	flagTurn      time.Duration
)

var codingameCmd = &cobra.Command{
	Use:   "codingame",
	Short: "Play the turn protocol on stdin/stdout",
	Long: `Answer a game referee turn by turn.

Input: the number of surface points, one "x y" line per point, then one
"X Y HSpeed VSpeed Fuel Angle Power" line per turn.
Output: one "angle power" line per turn.

Every turn the search runs for the turn budget, then the best individual's
next gene is committed and its command printed. Once an individual lands
its remaining commands are played back.

Examples:
  lander codingame < turns.txt
  lander codingame --turn 90ms --seed 42`,
	Run: runCodingame,
}

func init() {
	codingameCmd.Flags().DurationVar(&flagFirstTurn, "first-turn", 900*time.Millisecond, "Search time before the first command")
	codingameCmd.Flags().DurationVar(&flagTurn, "turn", 90*time.Millisecond, "Search time before every later command")
}

// turnBudget is the search time allowed before each command.
type turnBudget struct {
	First time.Duration
	Turn  time.Duration
}

func runCodingame(_ *cobra.Command, _ []string) {
	cfg := mustConfig()

	// stdout belongs to the referee
	lg := logger.With("mode", "codingame")
	budget := turnBudget{First: flagFirstTurn, Turn: flagTurn}

	if err := playCodingame(os.Stdin, os.Stdout, cfg, seedFor(cfg), budget, lg); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

// turnReader reads the whitespace separated integers of the protocol.
type turnReader struct {
	sc *bufio.Scanner
}

func newTurnReader(r io.Reader) *turnReader {
	sc := bufio.NewScanner(r)
	sc.Split(bufio.ScanWords)
	return &turnReader{sc: sc}
}

func (r *turnReader) ints(n int) ([]int, error) {
	out := make([]int, n)
	for i := range out {
		if !r.sc.Scan() {
			if err := r.sc.Err(); err != nil {
				return nil, err
			}
			if i == 0 {
				return nil, io.EOF
			}
			return nil, io.ErrUnexpectedEOF
		}
		v, err := strconv.Atoi(r.sc.Text())
		if err != nil {
			return nil, err
		}
		out[i] = v
	}
	return out, nil
}

// readTurn reads one "X Y HSpeed VSpeed Fuel Angle Power" line.
func (r *turnReader) readTurn() (lander.State, error) {
	v, err := r.ints(7)
	if err != nil {
		return lander.State{}, err
	}
	return lander.New(float64(v[0]), float64(v[1]), float64(v[2]), float64(v[3]), v[4], v[5], v[6]), nil
}

// playCodingame runs the turn protocol until in is exhausted.
func playCodingame(in io.Reader, out io.Writer, cfg config.Config, seed int64, budget turnBudget, lg *log.Logger) error {
	r := newTurnReader(in)

	n, err := r.ints(1)
	if err != nil {
		return fmt.Errorf("codingame: surface size: %w", err)
	}
	points := make([]core.Vec2, n[0])
	for i := range points {
		v, err := r.ints(2)
		if err != nil {
			return fmt.Errorf("codingame: surface point %d: %w", i, err)
		}
		points[i] = core.V(float64(v[0]), float64(v[1]))
	}
	t, err := terrain.New(points, cfg.World)
	if err != nil {
		return fmt.Errorf("codingame: %w", err)
	}

	start, err := r.readTurn()
	if err != nil {
		return fmt.Errorf("codingame: first turn: %w", err)
	}

	// Commits are driven by the turns, not by the configuration.
	opts := simOptions(cfg, lg)
	opts.CommitEvery = 0
	opts.CommitInterval = 0
	opts.MaxGenerations = 0

	d, err := sim.New(start, t, cfg.Search.Genetic(), rand.New(rand.NewSource(seed)), opts)
	if err != nil {
		return fmt.Errorf("codingame: %w", err)
	}

	var (
		plan [][2]int // commands left once a solution is known
		last = [2]int{start.Angle, start.Thrust}
		turn time.Duration
	)
	turn = budget.First

	for {
		var (
			control   [2]int
			committed bool
		)

		if plan == nil && !d.Done() {
			deadline := time.Now().Add(turn)
			for !d.Step() && time.Now().Before(deadline) {
			}
			if !d.Done() {
				c, err := d.Commit()
				if err != nil {
					return fmt.Errorf("codingame: %w", err)
				}
				control = [2]int{c.State.Angle, c.State.Thrust}
				committed = true
			}
		}

		if plan == nil && d.Done() {
			res := d.Result()
			switch {
			case res.Found:
				controls := res.Solution().Replay(start, t).Controls()
				plan = append([][2]int{}, controls[res.Offset:]...)
				lg.Info("playing back solution", "commands", len(plan), "fuel", res.FuelLeft())
			case !committed:
				return fmt.Errorf("codingame: search ended: %s", res.Reason)
			}
		}

		if !committed {
			control = last
			if len(plan) > 0 {
				control, plan = plan[0], plan[1:]
			}
		}
		last = control

		if _, err := fmt.Fprintf(out, "%d %d\n", control[0], control[1]); err != nil {
			return err
		}

		seen, err := r.readTurn()
		if errors.Is(err, io.EOF) {
			return nil
		}
		if err != nil {
			return fmt.Errorf("codingame: turn input: %w", err)
		}
		if plan == nil {
			want := d.Outer()
			lg.Debug("turn", "x", seen.Pos.X, "y", seen.Pos.Y, "expected_x", want.Pos.X, "expected_y", want.Pos.Y)
		}
		turn = budget.Turn
	}
}
