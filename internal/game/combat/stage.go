package combat

import "github.com/cory-johannsen/skirmish/internal/game/state"

var transitions = map[state.Stage][]state.Stage{
	state.StageAttackRolling:        {state.StageAttackLocked},
	state.StageAttackLocked:         {state.StageDefenseRolling},
	state.StageDefenseRolling:       {state.StageDefenseLocked},
	state.StageDefenseLocked:        {state.StageBlocksResolving},
	state.StageBlocksResolving:      {state.StageReadyToResolveDamage},
	state.StageReadyToResolveDamage: {state.StageDone},
	state.StageDone:                 {state.StageAttackRolling},
}

// CanTransition reports whether the stage machine allows from -> to.
func CanTransition(from, to state.Stage) bool {
	for _, s := range transitions[from] {
		if s == to {
			return true
		}
	}
	return false
}

// Transition moves c to stage to.
//
// Precondition: c must be non-nil.
// Postcondition: on success c.Stage == to; on error c is unchanged.
func Transition(c *state.CombatState, to state.Stage) error {
	if !CanTransition(c.Stage, to) {
		return fail("STAGE_MISMATCH", "cannot move combat from %s to %s", c.Stage, to)
	}
	c.Stage = to
	return nil
}

// RequireStage rejects unless c is in one of the given stages.
func RequireStage(c *state.CombatState, stages ...state.Stage) error {
	if c == nil {
		return fail("NO_COMBAT", "no attack is in progress")
	}
	for _, s := range stages {
		if c.Stage == s {
			return nil
		}
	}
	return fail("STAGE_MISMATCH", "command not allowed in stage %s", c.Stage)
}

// LockAttack locks the attack roll. Locking twice is rejected and leaves c
// unchanged.
//
// Postcondition: on success c.AttackLocked and c.Stage == StageAttackLocked.
func LockAttack(c *state.CombatState) error {
	if c.AttackLocked {
		return fail("ALREADY_LOCKED", "attack roll is already locked")
	}
	if err := Transition(c, state.StageAttackLocked); err != nil {
		return err
	}
	c.AttackLocked = true
	return nil
}

// LockDefense locks the defence roll. Locking twice is rejected and leaves c
// unchanged.
//
// Postcondition: on success c.DefenseLocked and c.Stage == StageDefenseLocked.
func LockDefense(c *state.CombatState) error {
	if c.DefenseLocked {
		return fail("ALREADY_LOCKED", "defense roll is already locked")
	}
	if c.Stage == state.StageAttackLocked {
		// Locking with no prior SET_DEFENSE_ROLL means an empty defence roll.
		c.Stage = state.StageDefenseRolling
	}
	if err := Transition(c, state.StageDefenseLocked); err != nil {
		return err
	}
	c.DefenseLocked = true
	return nil
}
