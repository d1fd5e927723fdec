package engine

import (
	"github.com/cory-johannsen/skirmish/internal/game/command"
	"github.com/cory-johannsen/skirmish/internal/game/intent"
	"github.com/cory-johannsen/skirmish/internal/game/state"
)

func (t *txn) flowStartShoot() error {
	op := t.operative(command.FieldOperativeID)
	t.s.Flow = &state.FlowState{
		Player:      t.player(),
		OperativeID: op.ID,
		Step:        state.FlowSelectTarget,
	}
	t.emit(EventFlowStarted, map[string]any{"operativeId": op.ID}, "%s prepares to shoot", op.Name)
	return nil
}

func (t *txn) flowSetTarget() error {
	target := t.operative(command.FieldTargetID)
	f := t.s.Flow
	f.TargetID = target.ID
	f.Step = state.FlowSelectWeapon
	t.emit(EventFlowTargetSet, map[string]any{"targetId": target.ID}, "Target: %s", target.Name)
	return nil
}

func (t *txn) flowSetWeapon() error {
	name, _ := t.cmd.Payload.Text(command.FieldWeaponName)
	t.s.Flow.WeaponName = name
	t.emit(EventFlowWeaponSet, map[string]any{"weapon": name}, "Weapon: %s", name)
	return nil
}

// flowLockWeapon spends the shoot action and declares the ranged attack.
func (t *txn) flowLockWeapon() error {
	s := t.s
	f := s.Flow
	shooter := s.Operative(f.OperativeID)
	target := s.Operative(f.TargetID)
	if target == nil || !target.Alive() {
		return refuse(intent.CodeBadTarget, "the selected target can no longer be attacked")
	}
	w, _ := shooter.Weapon(f.WeaponName)
	var mods state.TargetModifiers
	mods.Cover, _ = t.cmd.Payload.Bool(command.FieldCover)
	mods.Obscured, _ = t.cmd.Payload.Bool(command.FieldObscured)
	t.markAction(shooter, state.ActionShoot)
	t.startAttack(shooter, target, w, mods)
	f.Step = state.FlowWeaponLocked
	t.emit(EventFlowWeaponLocked, map[string]any{"weapon": w.Name, "targetId": target.ID},
		"%s locks %s on %s", shooter.Name, w.Name, target.Name)
	return nil
}

// flowRollDice records and locks one side's roll.
func (t *txn) flowRollDice() error {
	side, _ := t.cmd.Payload.Text(command.FieldSide)
	var err error
	switch side {
	case intent.SideAttack:
		if err = t.setAttackRoll(t.cmd.Payload); err == nil {
			err = t.lockAttackRoll()
		}
	case intent.SideDefense:
		if err = t.setDefenseRoll(t.cmd.Payload); err == nil {
			err = t.lockDefenseRoll()
		}
	}
	if err != nil {
		return err
	}
	t.s.Flow.Step = state.FlowRolling
	return nil
}

func (t *txn) flowResolveAction() error {
	if err := t.resolveCombat(); err != nil {
		return err
	}
	t.s.Flow = nil
	t.emit(EventFlowCompleted, nil, "Shoot action resolved")
	return nil
}

// flowCancel abandons the flow. An attack whose roll is not yet locked is
// abandoned with it; the shoot action and weapon use stay spent.
func (t *txn) flowCancel() {
	s := t.s
	if s.Combat != nil && !s.Combat.AttackLocked {
		t.clearCombat()
	}
	s.Flow = nil
	t.emit(EventFlowCancelled, nil, "Shoot action cancelled")
}
