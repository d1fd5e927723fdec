// Package intent is the pure precondition checker run before any command is
// applied. It never mutates state; every violated rule is returned as an
// Issue so the caller can log, ignore, or surface it.
package intent

import (
	"fmt"

	"github.com/cory-johannsen/skirmish/internal/game/command"
	"github.com/cory-johannsen/skirmish/internal/game/state"
)

// Issue codes.
const (
	// CodeUnknownCommand indicates the command type is not registered.
	CodeUnknownCommand = "UNKNOWN_COMMAND"
	// CodeMissingField indicates a required payload field is absent.
	CodeMissingField = "MISSING_FIELD"
	// CodeBadField indicates a payload field has the wrong type or an illegal value.
	CodeBadField = "BAD_FIELD"
	// CodeGameOver indicates the game has ended and accepts no further commands.
	CodeGameOver = "GAME_OVER"
	// CodeWrongPhase indicates the command is not legal in the current phase.
	CodeWrongPhase = "WRONG_PHASE"
	// CodeAlreadyDone indicates a once-per-turning-point step was already taken.
	CodeAlreadyDone = "ALREADY_DONE"
	// CodeStrategyIncomplete indicates a strategy gate is still open.
	CodeStrategyIncomplete = "STRATEGY_INCOMPLETE"
	// CodeInsufficientCP indicates the player cannot afford the ploy.
	CodeInsufficientCP = "INSUFFICIENT_CP"
	// CodeUnknownPloy indicates the player has no such strategic ploy.
	CodeUnknownPloy = "UNKNOWN_PLOY"
	// CodeAlreadyPassed indicates the player has passed the strategy phase.
	CodeAlreadyPassed = "ALREADY_PASSED"
	// CodeNotYourTurn indicates the player does not hold priority.
	CodeNotYourTurn = "NOT_YOUR_TURN"
	// CodeActivationInProgress indicates another operative is mid-activation.
	CodeActivationInProgress = "ACTIVATION_IN_PROGRESS"
	// CodeNoActivation indicates no operative is activating.
	CodeNoActivation = "NO_ACTIVATION"
	// CodeUnknownOperative indicates the operative id does not exist.
	CodeUnknownOperative = "UNKNOWN_OPERATIVE"
	// CodeOperativeDown indicates the operative has no wounds remaining.
	CodeOperativeDown = "OPERATIVE_DOWN"
	// CodeNotOwner indicates the operative belongs to the other player.
	CodeNotOwner = "NOT_OWNER"
	// CodeNotReady indicates the operative is EXPENDED.
	CodeNotReady = "OPERATIVE_NOT_READY"
	// CodeNotActiveOperative indicates the command names an operative that is not active.
	CodeNotActiveOperative = "NOT_ACTIVE_OPERATIVE"
	// CodeOrderAlreadyChosen indicates the activation's order is already set.
	CodeOrderAlreadyChosen = "ORDER_ALREADY_CHOSEN"
	// CodeOrderNotChosen indicates the activation's order must be set first.
	CodeOrderNotChosen = "ORDER_NOT_CHOSEN"
	// CodeUnknownAction indicates the action is not in the catalogue.
	CodeUnknownAction = "UNKNOWN_ACTION"
	// CodeActionUnavailable indicates the action was taken or excluded this activation.
	CodeActionUnavailable = "ACTION_UNAVAILABLE"
	// CodeInsufficientAP indicates the action costs more than the remaining action points.
	CodeInsufficientAP = "INSUFFICIENT_AP"
	// CodeCounteractCost indicates a counteract may only take a one-point action.
	CodeCounteractCost = "COUNTERACT_COST"
	// CodeNotCounteractEligible indicates the operative cannot counteract.
	CodeNotCounteractEligible = "NOT_COUNTERACT_ELIGIBLE"
	// CodeHasReadyOperative indicates the player must activate a READY operative.
	CodeHasReadyOperative = "HAS_READY_OPERATIVE"
	// CodeCombatInProgress indicates an attack must finish first.
	CodeCombatInProgress = "COMBAT_IN_PROGRESS"
	// CodeNoCombat indicates no attack is in progress.
	CodeNoCombat = "NO_COMBAT"
	// CodeStageMismatch indicates the attack is not at the stage the command needs.
	CodeStageMismatch = "STAGE_MISMATCH"
	// CodeAlreadyLocked indicates the roll is already locked.
	CodeAlreadyLocked = "ALREADY_LOCKED"
	// CodeBadTarget indicates the target cannot be attacked.
	CodeBadTarget = "BAD_TARGET"
	// CodeUnknownWeapon indicates the operative has no such weapon.
	CodeUnknownWeapon = "UNKNOWN_WEAPON"
	// CodeWrongWeaponMode indicates the weapon's mode does not match the attack.
	CodeWrongWeaponMode = "WRONG_WEAPON_MODE"
	// CodeWeaponExhausted indicates a Limited weapon has no uses left.
	CodeWeaponExhausted = "WEAPON_EXHAUSTED"
	// CodeHeavyMoved indicates a Heavy weapon cannot fire after moving.
	CodeHeavyMoved = "HEAVY_MOVED"
	// CodeConcealedShooter indicates a concealed operative needs a Silent weapon to shoot.
	CodeConcealedShooter = "CONCEALED_SHOOTER"
	// CodeActionRequired indicates no unspent shoot or fight action backs the attack.
	CodeActionRequired = "ACTION_REQUIRED"
	// CodeTooManyDice indicates the roll has more dice than allowed.
	CodeTooManyDice = "TOO_MANY_DICE"
	// CodeAccurateExceeded indicates more accurate dice than the rules permit.
	CodeAccurateExceeded = "ACCURATE_EXCEEDED"
	// CodeNoMultiTarget indicates the weapon has neither Blast nor Torrent.
	CodeNoMultiTarget = "NO_MULTI_TARGET_RULE"
	// CodeQueueExhausted indicates no queued target remains.
	CodeQueueExhausted = "QUEUE_EXHAUSTED"
	// CodeUnknownRule indicates the rule key is not in the catalogue.
	CodeUnknownRule = "UNKNOWN_RULE"
	// CodeNoPendingEffect indicates the operative has no such effect to resolve.
	CodeNoPendingEffect = "NO_PENDING_EFFECT"
	// CodeFlowInProgress indicates a shoot flow is already running.
	CodeFlowInProgress = "FLOW_IN_PROGRESS"
	// CodeNoFlow indicates no shoot flow is running.
	CodeNoFlow = "NO_FLOW"
	// CodeFlowStep indicates the flow is not at the step the command needs.
	CodeFlowStep = "FLOW_STEP"
	// CodeMeleeOnly indicates the option does not apply to melee attacks.
	CodeMeleeOnly = "NOT_FOR_MELEE"
	// CodeBadDieIndex indicates a re-roll names a die that was not rolled.
	CodeBadDieIndex = "BAD_DIE_INDEX"
	// CodeTooManyRerolls indicates a re-roll exceeds what the rule allows.
	CodeTooManyRerolls = "TOO_MANY_REROLLS"
)

// Issue is one violated precondition.
type Issue struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

func (i Issue) Error() string { return i.Code + ": " + i.Message }

func issue(code, format string, args ...any) Issue {
	return Issue{Code: code, Message: fmt.Sprintf(format, args...)}
}

// Validator checks commands against a registry of command definitions.
type Validator struct {
	registry *command.Registry
}

// NewValidator returns a Validator backed by reg.
//
// Precondition: reg must be non-nil.
func NewValidator(reg *command.Registry) *Validator {
	if reg == nil {
		panic("intent: NewValidator called with nil registry")
	}
	return &Validator{registry: reg}
}

// Validate returns every precondition cmd violates against s. An empty result
// means the command may be applied.
//
// Precondition: s must be non-nil.
// Postcondition: s is not modified.
func (v *Validator) Validate(s *state.GameState, cmd command.Command) []Issue {
	if !v.registry.Known(cmd.Type) {
		return []Issue{issue(CodeUnknownCommand, "unknown command %q", cmd.Type)}
	}
	var issues []Issue
	for _, f := range v.registry.Missing(cmd) {
		issues = append(issues, issue(CodeMissingField, "%s requires %q", cmd.Type, f))
	}
	if len(issues) > 0 {
		return issues
	}
	if s.Phase == state.PhaseGameOver {
		return []Issue{issue(CodeGameOver, "the game is over")}
	}
	c := &check{s: s, p: cmd.Payload, t: cmd.Type}
	switch cmd.Type {
	case command.StartGame, command.ReadyAllOperatives, command.SetInitiative, command.GainCP,
		command.UseStrategicPloy, command.PassStrategy, command.EndStrategyPhase, command.TurningPointEnd:
		c.phase()
	case command.SetActiveOperative, command.SetOrder, command.ActionUse, command.EndActivation,
		command.Counteract, command.SkipActivation:
		c.activation()
	case command.StartRangedAttack, command.StartMeleeAttack, command.SetSecondaryTargets,
		command.SetAttackRoll, command.LockAttackRoll, command.SetDefenseRoll, command.LockDefenseRoll,
		command.SetBlocksResult, command.ResolveCombat, command.ApplyDamage, command.AdvanceAttackQueue,
		command.ClearCombatState, command.SetDefenderOption, command.SetVantage, command.WeaponRuleClick,
		command.ResolveEffect:
		c.combat()
	case command.FlowStartShoot, command.FlowSetTarget, command.FlowSetWeapon, command.FlowLockWeapon,
		command.FlowRollDice, command.FlowResolveAction, command.FlowCancel:
		c.flow()
	}
	return c.issues
}

// check accumulates issues for one command.
type check struct {
	s      *state.GameState
	p      command.Payload
	t      command.Type
	issues []Issue
}

func (c *check) add(code, format string, args ...any) {
	c.issues = append(c.issues, issue(code, format, args...))
}

func (c *check) ok() bool { return len(c.issues) == 0 }

func (c *check) requirePhase(phases ...state.Phase) bool {
	for _, p := range phases {
		if c.s.Phase == p {
			return true
		}
	}
	c.add(CodeWrongPhase, "%s is not allowed in phase %s", c.t, c.s.Phase)
	return false
}

func (c *check) player() (state.PlayerID, bool) {
	raw, _ := c.p.Text(command.FieldPlayer)
	p := state.PlayerID(raw)
	if !p.Valid() {
		c.add(CodeBadField, "player must be %q or %q", state.P1, state.P2)
		return "", false
	}
	return p, true
}

func (c *check) text(field string) (string, bool) {
	v, ok := c.p.Text(field)
	if !ok || v == "" {
		c.add(CodeBadField, "%s must be a non-empty string", field)
		return "", false
	}
	return v, true
}

func (c *check) integer(field string) (int, bool) {
	v, ok := c.p.Int(field)
	if !ok {
		c.add(CodeBadField, "%s must be an integer", field)
	}
	return v, ok
}

// operative resolves the operative named by field and requires it alive.
func (c *check) operative(field string) *state.Operative {
	id, ok := c.text(field)
	if !ok {
		return nil
	}
	op := c.s.Operative(id)
	if op == nil {
		c.add(CodeUnknownOperative, "no operative %q", id)
		return nil
	}
	if !op.Alive() {
		c.add(CodeOperativeDown, "%s is incapacitated", op.Name)
		return nil
	}
	return op
}
