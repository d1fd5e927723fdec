package main

import (
	"fmt"
	"io"
	"os"

	"go.uber.org/zap"
	"gopkg.in/yaml.v3"

	"github.com/cory-johannsen/skirmish/internal/game/command"
	"github.com/cory-johannsen/skirmish/internal/game/dice"
	"github.com/cory-johannsen/skirmish/internal/game/engine"
	"github.com/cory-johannsen/skirmish/internal/game/roster"
	"github.com/cory-johannsen/skirmish/internal/game/session"
	"github.com/cory-johannsen/skirmish/internal/game/state"
)

// Script steps handled by the runner rather than the engine.
const (
	stepUndo command.Type = "UNDO"
	stepRedo command.Type = "REDO"
)

// Script is an offline game: two teams and the commands to play.
type Script struct {
	Seed          uint64            `yaml:"seed"`
	TurningPoints int               `yaml:"turning_points"`
	Teams         map[string]string `yaml:"teams"`
	Steps         []command.Command `yaml:"steps"`
}

// LoadScript reads a YAML script from path.
func LoadScript(path string) (*Script, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading script: %w", err)
	}
	var s Script
	if err := yaml.Unmarshal(data, &s); err != nil {
		return nil, fmt.Errorf("parsing script %q: %w", path, err)
	}
	return &s, nil
}

// Result summarises a played script.
type Result struct {
	Accepted int
	Rejected int
	Final    *state.GameState
}

// Run plays s against teams and writes the game log to out. Rejected steps
// are reported and skipped.
//
// Precondition: teams and logger must be non-nil.
func Run(s *Script, teams *roster.Registry, src dice.Source, logger *zap.Logger, out io.Writer) (Result, error) {
	seated := make(map[state.PlayerID]*roster.TeamDef, 2)
	for _, p := range state.Players {
		id, ok := s.Teams[string(p)]
		if !ok {
			return Result{}, fmt.Errorf("script seats no team for %s", p)
		}
		team, ok := teams.Get(id)
		if !ok {
			return Result{}, fmt.Errorf("unknown team %q for %s", id, p)
		}
		seated[p] = team
	}
	initial, err := state.New(seated, s.TurningPoints)
	if err != nil {
		return Result{}, fmt.Errorf("seating teams: %w", err)
	}

	sess := session.New(initial, engine.New(logger), dice.NewLoggedRoller(src, logger), logger)
	var res Result
	for i, step := range s.Steps {
		switch step.Type {
		case stepUndo:
			fmt.Fprintf(out, "%3d undo: %v\n", i+1, sess.Undo())
			continue
		case stepRedo:
			fmt.Fprintf(out, "%3d redo: %v\n", i+1, sess.Redo())
			continue
		}
		if step.Payload == nil {
			step.Payload = command.Payload{}
		}
		d := sess.Submit(step)
		if !d.Accepted() {
			res.Rejected++
			for _, is := range d.Issues {
				fmt.Fprintf(out, "%3d %s rejected: %s: %s\n", i+1, step.Type, is.Code, is.Message)
			}
			continue
		}
		res.Accepted++
		fmt.Fprintf(out, "%3d %s\n", i+1, step.Type)
		for _, ev := range d.Events {
			fmt.Fprintf(out, "      %s\n", ev.Summary)
		}
	}

	res.Final = sess.State()
	fmt.Fprintf(out, "\n%s, turning point %d/%d\n", res.Final.Phase, res.Final.TurningPoint, res.Final.MaxTurningPoints)
	for _, op := range res.Final.Operatives {
		fmt.Fprintf(out, "  %-24s %-8s %2d/%d wounds\n", op.ID, op.Readiness, op.Wounds, op.WoundsMax)
	}
	return res, nil
}
