package state

import "github.com/cory-johannsen/skirmish/internal/game/weaponrule"

// Operative returns the operative with id, or nil.
func (s *GameState) Operative(id string) *Operative {
	for _, op := range s.Operatives {
		if op.ID == id {
			return op
		}
	}
	return nil
}

// Living returns p's operatives with wounds remaining, in roster order.
func (s *GameState) Living(p PlayerID) []*Operative {
	var out []*Operative
	for _, op := range s.Operatives {
		if op.Owner == p && op.Alive() {
			out = append(out, op)
		}
	}
	return out
}

// ReadyOperatives returns p's living READY operatives.
func (s *GameState) ReadyOperatives(p PlayerID) []*Operative {
	var out []*Operative
	for _, op := range s.Living(p) {
		if op.Readiness == Ready {
			out = append(out, op)
		}
	}
	return out
}

// HasReady reports whether p has any living READY operative.
func (s *GameState) HasReady(p PlayerID) bool {
	return len(s.ReadyOperatives(p)) > 0
}

// CounteractCandidates returns p's operatives eligible to counteract: living,
// EXPENDED, on an engage order, and not yet counteracted this turning point.
// The list is empty while p still has a READY operative.
func (s *GameState) CounteractCandidates(p PlayerID) []*Operative {
	if s.HasReady(p) {
		return nil
	}
	var out []*Operative
	for _, op := range s.Living(p) {
		if op.Readiness == Expended && op.Order == OrderEngage && !op.HasCounteractedThisTP {
			out = append(out, op)
		}
	}
	return out
}

// AllExpended reports whether every living operative on both sides is EXPENDED.
func (s *GameState) AllExpended() bool {
	for _, op := range s.Operatives {
		if op.Alive() && op.Readiness != Expended {
			return false
		}
	}
	return true
}

// ActiveOperative returns the operative currently activating, or nil.
func (s *GameState) ActiveOperative() *Operative {
	if s.Firefight.ActiveOperativeID == "" {
		return nil
	}
	return s.Operative(s.Firefight.ActiveOperativeID)
}

// WeaponUses returns how many times op's weapon has been selected this game.
func (s *GameState) WeaponUses(opID, weapon string) int {
	return s.WeaponUsage[UsageKey{OperativeID: opID, Weapon: weapon}]
}

// WeaponExhausted reports whether a Limited weapon has reached its usage cap.
func (s *GameState) WeaponExhausted(opID string, w Weapon) bool {
	limit := w.Rules.Value(weaponrule.Limited)
	if limit <= 0 {
		return false
	}
	return s.WeaponUses(opID, w.Name) >= limit
}

// InCombat reports whether an attack is in progress.
func (s *GameState) InCombat() bool { return s.Combat != nil }
