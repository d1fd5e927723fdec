package intent

import (
	"github.com/cory-johannsen/skirmish/internal/game/command"
	"github.com/cory-johannsen/skirmish/internal/game/state"
)

func (c *check) activation() {
	if !c.requirePhase(state.PhaseFirefight) {
		return
	}
	s := c.s
	switch c.t {
	case command.SetActiveOperative:
		p, ok := c.priority()
		if !ok {
			return
		}
		op := c.operative(command.FieldOperativeID)
		if op == nil {
			return
		}
		if op.Owner != p {
			c.add(CodeNotOwner, "%s does not own %s", p, op.Name)
		}
		if op.Readiness != state.Ready {
			c.add(CodeNotReady, "%s is expended", op.Name)
		}
	case command.SetOrder:
		op := c.active()
		if op == nil {
			return
		}
		raw, _ := c.p.Text(command.FieldOrder)
		if !state.Order(raw).Valid() {
			c.add(CodeBadField, "order must be %q or %q", state.OrderConceal, state.OrderEngage)
		}
		if s.Firefight.OrderChosen {
			c.add(CodeOrderAlreadyChosen, "%s's order is already chosen", op.Name)
		}
	case command.ActionUse:
		op := c.active()
		if op == nil {
			return
		}
		if s.Flow != nil {
			c.add(CodeFlowInProgress, "a shoot flow is in progress")
			return
		}
		raw, _ := c.p.Text(command.FieldAction)
		c.action(op, state.Action(raw))
	case command.EndActivation:
		op := c.active()
		if op == nil {
			return
		}
		if !s.Firefight.OrderChosen {
			c.add(CodeOrderNotChosen, "%s must choose an order before ending its activation", op.Name)
		}
		if s.Combat != nil {
			c.add(CodeCombatInProgress, "an attack is in progress")
		}
		if s.Flow != nil {
			c.add(CodeFlowInProgress, "a shoot flow is in progress")
		}
	case command.Counteract:
		p, ok := c.priority()
		if !ok {
			return
		}
		op := c.operative(command.FieldOperativeID)
		if op == nil {
			return
		}
		for _, cand := range s.CounteractCandidates(p) {
			if cand.ID == op.ID {
				return
			}
		}
		c.add(CodeNotCounteractEligible, "%s cannot counteract", op.Name)
	case command.SkipActivation:
		p, ok := c.priority()
		if ok && s.HasReady(p) {
			c.add(CodeHasReadyOperative, "%s must activate a ready operative", p)
		}
	}
}

// priority requires the payload player to hold priority with no activation
// in progress.
func (c *check) priority() (state.PlayerID, bool) {
	p, ok := c.player()
	if !ok {
		return "", false
	}
	if c.s.Firefight.ActivePlayer != p {
		c.add(CodeNotYourTurn, "%s does not hold priority", p)
		return "", false
	}
	if c.s.Firefight.ActiveOperativeID != "" {
		c.add(CodeActivationInProgress, "%s is mid-activation", c.s.Firefight.ActiveOperativeID)
		return "", false
	}
	return p, true
}

// active requires the payload operative to be the active operative.
func (c *check) active() *state.Operative {
	op := c.operative(command.FieldOperativeID)
	if op == nil {
		return nil
	}
	if c.s.Firefight.ActiveOperativeID == "" || c.s.Firefight.Activation == nil {
		c.add(CodeNoActivation, "no operative is activating")
		return nil
	}
	if op.ID != c.s.Firefight.ActiveOperativeID {
		c.add(CodeNotActiveOperative, "%s is not the active operative", op.Name)
		return nil
	}
	return op
}

// action checks that the active operative may take action now.
func (c *check) action(op *state.Operative, action state.Action) {
	ff := c.s.Firefight
	if !ff.OrderChosen {
		c.add(CodeOrderNotChosen, "%s must choose an order first", op.Name)
		return
	}
	if !action.Known() {
		c.add(CodeUnknownAction, "unknown action %q", action)
		return
	}
	if c.s.Combat != nil {
		c.add(CodeCombatInProgress, "an attack is in progress")
		return
	}
	a := ff.Activation
	if !a.Available(action) {
		c.add(CodeActionUnavailable, "%s is unavailable for the rest of this activation", action)
		return
	}
	if a.Counteract {
		if action.Cost() > 1 {
			c.add(CodeCounteractCost, "a counteract can only take a one-point action")
		}
		return
	}
	if a.APSpent+action.Cost() > a.StartingAP {
		c.add(CodeInsufficientAP, "%s costs %d AP, %d remaining", action, action.Cost(), a.StartingAP-a.APSpent)
	}
	if action.Moves() {
		for _, w := range op.Weapons {
			if w.Name == op.SelectedWeapon && heavyForbids(w, a, action) {
				c.add(CodeHeavyMoved, "%s cannot move after shooting with %s", op.Name, w.Name)
			}
		}
	}
}
