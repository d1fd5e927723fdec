// Package engine is the single state-transition function of the game. Apply
// validates a command, runs it against a clone of the state, and returns the
// next state together with the domain events the command caused. Illegal
// commands return the unchanged state and the violated preconditions.
package engine

import (
	"errors"
	"fmt"

	"go.uber.org/zap"

	"github.com/cory-johannsen/skirmish/internal/game/combat"
	"github.com/cory-johannsen/skirmish/internal/game/command"
	"github.com/cory-johannsen/skirmish/internal/game/intent"
	"github.com/cory-johannsen/skirmish/internal/game/state"
)

// Decision is the outcome of applying one command.
//
// Invariant: when Issues is non-empty, State is the input state and Events is empty.
type Decision struct {
	State  *state.GameState
	Events []Event
	Issues []intent.Issue
}

// Accepted reports whether the command was applied.
func (d Decision) Accepted() bool { return len(d.Issues) == 0 }

// Engine applies commands to game states.
type Engine struct {
	registry  *command.Registry
	validator *intent.Validator
	logger    *zap.Logger
}

// New creates an Engine over the built-in command registry.
//
// Precondition: logger must be non-nil.
func New(logger *zap.Logger) *Engine {
	reg := command.DefaultRegistry()
	return &Engine{
		registry:  reg,
		validator: intent.NewValidator(reg),
		logger:    logger,
	}
}

// Registry returns the command registry the engine validates against.
func (e *Engine) Registry() *command.Registry { return e.registry }

// Apply validates cmd against s and, if legal, applies it.
//
// Precondition: s must be non-nil.
// Postcondition: s is never modified. Apply never panics on an illegal command.
func (e *Engine) Apply(s *state.GameState, cmd command.Command) Decision {
	if issues := e.validator.Validate(s, cmd); len(issues) > 0 {
		e.reject(cmd, issues)
		return Decision{State: s, Issues: issues}
	}
	tx := &txn{s: s.Clone(), cmd: cmd}
	if err := tx.dispatch(); err != nil {
		issues := []intent.Issue{toIssue(err)}
		e.reject(cmd, issues)
		return Decision{State: s, Issues: issues}
	}
	tx.settle()
	types := make([]string, len(tx.events))
	for i, ev := range tx.events {
		types[i] = string(ev.Type)
	}
	e.logger.Debug("command applied",
		zap.String("command", string(cmd.Type)),
		zap.Strings("events", types),
		zap.String("phase", string(tx.s.Phase)),
	)
	return Decision{State: tx.s, Events: tx.events}
}

func (e *Engine) reject(cmd command.Command, issues []intent.Issue) {
	for _, is := range issues {
		e.logger.Debug("command rejected",
			zap.String("command", string(cmd.Type)),
			zap.String("issue_code", is.Code),
			zap.String("issue", is.Message),
		)
	}
}

func toIssue(err error) intent.Issue {
	var ce *combat.Error
	if errors.As(err, &ce) {
		return intent.Issue{Code: ce.Code, Message: ce.Message}
	}
	var is intent.Issue
	if errors.As(err, &is) {
		return is
	}
	return intent.Issue{Code: "INTERNAL", Message: err.Error()}
}

// txn is one command being applied to a cloned state.
type txn struct {
	s      *state.GameState
	cmd    command.Command
	events []Event
}

func (t *txn) emit(typ EventType, data map[string]any, format string, args ...any) {
	t.events = append(t.events, Event{Type: typ, Summary: fmt.Sprintf(format, args...), Data: data})
}

func refuse(code, format string, args ...any) error {
	return intent.Issue{Code: code, Message: fmt.Sprintf(format, args...)}
}

func (t *txn) dispatch() error {
	switch t.cmd.Type {
	case command.StartGame:
		return t.startGame()
	case command.ReadyAllOperatives:
		return t.readyAll()
	case command.SetInitiative:
		return t.setInitiative()
	case command.GainCP:
		return t.gainCP()
	case command.UseStrategicPloy:
		return t.useStrategicPloy()
	case command.PassStrategy:
		return t.passStrategy()
	case command.EndStrategyPhase:
		return t.endStrategyPhase()
	case command.TurningPointEnd:
		t.endTurningPoint()
		return nil
	case command.SetActiveOperative:
		return t.setActiveOperative()
	case command.SetOrder:
		return t.setOrder()
	case command.ActionUse:
		return t.actionUse()
	case command.EndActivation:
		return t.endActivation()
	case command.Counteract:
		return t.counteract()
	case command.SkipActivation:
		return t.skipActivation()
	case command.StartRangedAttack, command.StartMeleeAttack:
		return t.startAttackCommand()
	case command.SetSecondaryTargets:
		return t.setSecondaryTargets()
	case command.SetAttackRoll:
		return t.setAttackRoll(t.cmd.Payload)
	case command.LockAttackRoll:
		return t.lockAttackRoll()
	case command.SetDefenseRoll:
		return t.setDefenseRoll(t.cmd.Payload)
	case command.LockDefenseRoll:
		return t.lockDefenseRoll()
	case command.SetBlocksResult:
		return t.setBlocksResult()
	case command.ApplyDamage:
		return t.applyDamage()
	case command.ResolveCombat:
		return t.resolveCombat()
	case command.AdvanceAttackQueue:
		return t.advanceQueue()
	case command.ClearCombatState:
		t.clearCombat()
		return nil
	case command.SetDefenderOption:
		return t.setDefenderOption()
	case command.SetVantage:
		return t.setVantage()
	case command.WeaponRuleClick:
		return t.weaponRuleClick()
	case command.ResolveEffect:
		return t.resolveEffect()
	case command.FlowStartShoot:
		return t.flowStartShoot()
	case command.FlowSetTarget:
		return t.flowSetTarget()
	case command.FlowSetWeapon:
		return t.flowSetWeapon()
	case command.FlowLockWeapon:
		return t.flowLockWeapon()
	case command.FlowRollDice:
		return t.flowRollDice()
	case command.FlowResolveAction:
		return t.flowResolveAction()
	case command.FlowCancel:
		t.flowCancel()
		return nil
	}
	return refuse(intent.CodeUnknownCommand, "unknown command %q", t.cmd.Type)
}

// settle ends the firefight once every living operative is expended and no
// activation or attack remains open.
func (t *txn) settle() {
	s := t.s
	if s.Phase != state.PhaseFirefight || s.Firefight.ActiveOperativeID != "" || s.Combat != nil {
		return
	}
	if s.AllExpended() {
		t.endTurningPoint()
	}
}
