package engine

import (
	"github.com/cory-johannsen/skirmish/internal/game/command"
	"github.com/cory-johannsen/skirmish/internal/game/effect"
	"github.com/cory-johannsen/skirmish/internal/game/state"
)

func (t *txn) operative(field string) *state.Operative {
	id, _ := t.cmd.Payload.Text(field)
	return t.s.Operative(id)
}

func (t *txn) setActiveOperative() error {
	op := t.operative(command.FieldOperativeID)
	t.activate(op, false)
	t.s.Firefight.AwaitingOrder = true
	t.emit(EventOperativeActivated, map[string]any{"operativeId": op.ID, "player": op.Owner, "ap": op.StartingAP()},
		"%s activates %s (%d AP)", op.Owner, op.Name, op.StartingAP())
	return nil
}

func (t *txn) activate(op *state.Operative, counteract bool) {
	ff := &t.s.Firefight
	ff.ActiveOperativeID = op.ID
	ff.Activation = state.NewActivation(op, counteract)
	ff.OrderChosen = ff.Activation.OrderChosen
	ff.AwaitingOrder = !ff.OrderChosen
	ff.AwaitingActions = ff.OrderChosen
	op.AP = ff.Activation.StartingAP
	op.SelectedWeapon = ""
}

func (t *txn) setOrder() error {
	op := t.operative(command.FieldOperativeID)
	raw, _ := t.cmd.Payload.Text(command.FieldOrder)
	op.Order = state.Order(raw)
	ff := &t.s.Firefight
	ff.OrderChosen = true
	ff.AwaitingOrder = false
	ff.AwaitingActions = true
	ff.Activation.OrderChosen = true
	t.emit(EventOrderSet, map[string]any{"operativeId": op.ID, "order": op.Order}, "%s takes a %s order", op.Name, op.Order)
	return nil
}

// actionUse marks an action on the active activation. Counteract actions
// never draw from the operative's action points.
func (t *txn) actionUse() error {
	op := t.operative(command.FieldOperativeID)
	raw, _ := t.cmd.Payload.Text(command.FieldAction)
	t.markAction(op, state.Action(raw))
	return nil
}

func (t *txn) markAction(op *state.Operative, action state.Action) {
	a := t.s.Firefight.Activation
	a.Mark(action)
	op.AP = a.StartingAP - a.APSpent
	cost := action.Cost()
	if a.Counteract {
		cost = 0
	}
	t.emit(EventActionTaken, map[string]any{"operativeId": op.ID, "action": action, "cost": cost, "apRemaining": op.AP},
		"%s: %s (%d AP, %d left)", op.Name, action, cost, op.AP)
}

// endActivation expends the active operative, expires its activation-scoped
// effects, and passes priority.
func (t *txn) endActivation() error {
	s := t.s
	op := s.ActiveOperative()
	op.Readiness = state.Expended
	op.AP = 0
	t.expire(op, effect.TriggerActivationEnd)
	s.Firefight.ClearActive()
	t.emit(EventActivationEnded, map[string]any{"operativeId": op.ID}, "%s is expended", op.Name)
	t.passPriority(op.Owner)
	return nil
}

// passPriority hands priority to from's opponent when the opponent can still
// act, either by activating a READY operative or by counteracting. Otherwise
// from keeps it.
func (t *txn) passPriority(from state.PlayerID) {
	s := t.s
	next := from
	if opp := from.Opponent(); s.HasReady(opp) || len(s.CounteractCandidates(opp)) > 0 {
		next = opp
	}
	s.Firefight.ActivePlayer = next
	if next != from {
		t.emit(EventPriorityPassed, map[string]any{"player": next}, "Priority passes to %s", next)
	}
}

func (t *txn) counteract() error {
	op := t.operative(command.FieldOperativeID)
	op.HasCounteractedThisTP = true
	t.activate(op, true)
	t.emit(EventCounteracted, map[string]any{"operativeId": op.ID, "player": op.Owner},
		"%s counteracts with %s on a %s order", op.Owner, op.Name, op.Order)
	return nil
}

func (t *txn) skipActivation() error {
	p := t.player()
	t.emit(EventActivationSkipped, map[string]any{"player": p}, "%s declines to counteract", p)
	t.passPriority(p)
	return nil
}
