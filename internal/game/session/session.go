// Package session holds one replica of a game: its current state, the undo
// log, and the dice roller used to fill in rolls a player leaves blank.
// Every replica that applies the same relayed commands in the same order
// reaches the same state.
package session

import (
	"errors"
	"fmt"
	"sync"

	"go.uber.org/zap"

	"github.com/cory-johannsen/skirmish/internal/game/combat"
	"github.com/cory-johannsen/skirmish/internal/game/command"
	"github.com/cory-johannsen/skirmish/internal/game/dice"
	"github.com/cory-johannsen/skirmish/internal/game/engine"
	"github.com/cory-johannsen/skirmish/internal/game/history"
	"github.com/cory-johannsen/skirmish/internal/game/intent"
	"github.com/cory-johannsen/skirmish/internal/game/state"
)

// ErrSequenceGap is returned when a relayed envelope skips a sequence number.
var ErrSequenceGap = errors.New("relayed command out of sequence")

// Session is one game replica. All methods are safe for concurrent use.
type Session struct {
	mu     sync.Mutex
	engine *engine.Engine
	roller *dice.Roller
	log    *history.Log
	state  *state.GameState
	seq    uint64
	logger *zap.Logger
}

// New creates a Session starting from s.
//
// Precondition: s, eng, roller, and logger must be non-nil.
func New(s *state.GameState, eng *engine.Engine, roller *dice.Roller, logger *zap.Logger) *Session {
	return &Session{
		engine: eng,
		roller: roller,
		log:    history.NewLog(nil),
		state:  s,
		logger: logger,
	}
}

// State returns the current state. The returned value must not be mutated.
func (s *Session) State() *state.GameState {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

// Seq returns the sequence number of the last relayed envelope applied.
func (s *Session) Seq() uint64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.seq
}

// Submit applies a locally issued command. Roll commands that omit their dice
// are completed with fresh rolls sized to the current attack before the
// command is validated.
//
// Postcondition: when the decision is accepted it is recorded in the log.
func (s *Session) Submit(cmd command.Command) engine.Decision {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.apply(s.Complete(cmd))
}

// Complete returns cmd with any omitted dice rolled. Commands that carry
// their dice, and commands that roll nothing, are returned unchanged.
func (s *Session) Complete(cmd command.Command) command.Command {
	cs := s.state.Combat
	if cs == nil && cmd.Type != command.ResolveEffect {
		return cmd
	}
	p := cmd.Payload
	switch cmd.Type {
	case command.SetAttackRoll:
		if !p.Has(command.FieldDice) {
			return s.withDice(cmd, command.FieldDice, s.attackDice(cs, p))
		}
	case command.SetDefenseRoll:
		if !p.Has(command.FieldDice) {
			return s.withDice(cmd, command.FieldDice, cs.Context.DefenseDiceAllowed())
		}
	case command.FlowRollDice:
		if p.Has(command.FieldDice) {
			return cmd
		}
		side, _ := p.Text(command.FieldSide)
		switch side {
		case intent.SideAttack:
			return s.withDice(cmd, command.FieldDice, s.attackDice(cs, p))
		case intent.SideDefense:
			return s.withDice(cmd, command.FieldDice, cs.Context.DefenseDiceAllowed())
		}
	case command.ResolveEffect:
		if !p.Has(command.FieldRoll) {
			out := cmd.Clone()
			out.Payload[command.FieldRoll] = s.roller.Roll(1)[0]
			return out
		}
	}
	return cmd
}

func (s *Session) attackDice(cs *state.CombatState, p command.Payload) int {
	accurate, _ := p.Int(command.FieldAccurate)
	accurate = min(max(accurate, 0), combat.AccurateLimit(cs.Context))
	return cs.Context.AttackDiceAllowed(accurate)
}

func (s *Session) withDice(cmd command.Command, field string, n int) command.Command {
	out := cmd.Clone()
	out.Payload[field] = []int(s.roller.Roll(n))
	return out
}

// ApplyRelayed applies an envelope received from the relay. Envelopes at or
// below the last applied sequence number are duplicates and are ignored.
//
// Postcondition: on success Seq() == env.Seq whether or not the command was accepted.
func (s *Session) ApplyRelayed(env command.Envelope) (engine.Decision, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if env.Seq <= s.seq {
		return engine.Decision{State: s.state}, nil
	}
	if env.Seq != s.seq+1 {
		return engine.Decision{State: s.state}, fmt.Errorf("%w: expected %d, got %d", ErrSequenceGap, s.seq+1, env.Seq)
	}
	s.seq = env.Seq
	d := s.apply(env.Command)
	if !d.Accepted() {
		s.logger.Info("relayed command rejected",
			zap.Uint64("seq", env.Seq),
			zap.String("slot", env.Slot),
			zap.String("command", string(env.Command.Type)),
			zap.String("issue_code", d.Issues[0].Code),
		)
	}
	return d, nil
}

func (s *Session) apply(cmd command.Command) engine.Decision {
	d := s.engine.Apply(s.state, cmd)
	if d.Accepted() {
		s.log.Push(cmd, d.Events, s.state, d.State)
		s.state = d.State
	}
	return d
}

// Undo restores the state before the most recent applied command.
func (s *Session) Undo() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	e, ok := s.log.Undo()
	if !ok {
		return false
	}
	s.state = e.Before
	s.logger.Debug("undo", zap.String("command", string(e.Command.Type)), zap.String("entry", e.ID.String()))
	return true
}

// Redo re-applies the most recently undone command's snapshot.
func (s *Session) Redo() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	e, ok := s.log.Redo()
	if !ok {
		return false
	}
	s.state = e.After
	s.logger.Debug("redo", zap.String("command", string(e.Command.Type)), zap.String("entry", e.ID.String()))
	return true
}

// Entries returns the applied log entries, oldest first.
func (s *Session) Entries() []history.Entry {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.log.Entries()
}

// Lines returns the game log, one event summary per line.
func (s *Session) Lines() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.log.Lines()
}
