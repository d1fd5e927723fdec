package intent

import (
	"github.com/cory-johannsen/skirmish/internal/game/command"
	"github.com/cory-johannsen/skirmish/internal/game/roster"
	"github.com/cory-johannsen/skirmish/internal/game/state"
)

// Flow dice sides.
const (
	SideAttack  = "attack"
	SideDefense = "defense"
)

func (c *check) flow() {
	if !c.requirePhase(state.PhaseFirefight) {
		return
	}
	s := c.s
	if c.t == command.FlowStartShoot {
		if s.Flow != nil {
			c.add(CodeFlowInProgress, "a shoot flow is already in progress")
			return
		}
		p, ok := c.player()
		if !ok {
			return
		}
		op := c.active()
		if op == nil {
			return
		}
		if op.Owner != p {
			c.add(CodeNotOwner, "%s does not own %s", p, op.Name)
			return
		}
		c.action(op, state.ActionShoot)
		return
	}

	f := s.Flow
	if f == nil {
		c.add(CodeNoFlow, "no shoot flow is in progress")
		return
	}
	shooter := s.Operative(f.OperativeID)
	switch c.t {
	case command.FlowSetTarget:
		if !c.flowStep(f, state.FlowSelectTarget, state.FlowSelectWeapon) {
			return
		}
		target := c.operative(command.FieldTargetID)
		if target != nil && shooter != nil && target.Owner == shooter.Owner {
			c.add(CodeBadTarget, "%s cannot shoot a friendly operative", shooter.Name)
		}
	case command.FlowSetWeapon:
		if !c.flowStep(f, state.FlowSelectWeapon) || shooter == nil {
			return
		}
		name, _ := c.p.Text(command.FieldWeaponName)
		c.weapon(shooter, name, roster.ModeRanged)
	case command.FlowLockWeapon:
		if !c.flowStep(f, state.FlowSelectWeapon) || shooter == nil {
			return
		}
		if f.WeaponName == "" {
			c.add(CodeFlowStep, "a weapon must be selected first")
			return
		}
		if s.Combat != nil {
			c.add(CodeCombatInProgress, "an attack is already in progress")
			return
		}
		c.action(shooter, state.ActionShoot)
		c.weapon(shooter, f.WeaponName, roster.ModeRanged)
	case command.FlowRollDice:
		if !c.flowStep(f, state.FlowWeaponLocked, state.FlowRolling) {
			return
		}
		side, _ := c.p.Text(command.FieldSide)
		if _, ok := c.p.Ints(command.FieldDice); !ok {
			c.add(CodeBadField, "dice must be a list of integers")
		}
		cs := s.Combat
		if cs == nil {
			c.add(CodeNoCombat, "no attack is in progress")
			return
		}
		switch side {
		case SideAttack:
			if cs.AttackLocked {
				c.add(CodeAlreadyLocked, "attack roll is already locked")
			}
		case SideDefense:
			if cs.DefenseLocked {
				c.add(CodeAlreadyLocked, "defense roll is already locked")
			} else if !cs.AttackLocked {
				c.add(CodeStageMismatch, "the attack roll must be locked first")
			}
		default:
			c.add(CodeBadField, "side must be %q or %q", SideAttack, SideDefense)
		}
	case command.FlowResolveAction:
		if !c.flowStep(f, state.FlowRolling) {
			return
		}
		if s.Combat == nil || !s.Combat.DefenseLocked {
			c.add(CodeStageMismatch, "both rolls must be locked before resolving")
		}
	case command.FlowCancel:
	}
}

func (c *check) flowStep(f *state.FlowState, steps ...state.FlowStep) bool {
	for _, st := range steps {
		if f.Step == st {
			return true
		}
	}
	c.add(CodeFlowStep, "%s is not allowed at flow step %s", c.t, f.Step)
	return false
}
