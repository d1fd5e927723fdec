package combat

import (
	"github.com/cory-johannsen/skirmish/internal/game/dice"
	"github.com/cory-johannsen/skirmish/internal/game/effect"
	"github.com/cory-johannsen/skirmish/internal/game/state"
)

// Pools returns the attack successes and defence saves that enter allocation.
// Brutal removes normal saves from the defence.
func Pools(ctx *state.Context) (dice.Attack, dice.Defense) {
	hits, crits := ctx.Retained()
	saves, critSaves := ctx.Saves()
	if ctx.Modifiers.CritOnlyBlocks {
		saves = 0
	}
	return dice.Attack{Hits: hits, Crits: crits}, dice.Defense{Saves: saves, CritSaves: critSaves}
}

// Weights returns the weapon's damage weights.
func Weights(ctx *state.Context) dice.Weights {
	return dice.Weights{Normal: ctx.Weapon.Normal, Crit: ctx.Weapon.Crit}
}

// ProposeBlocks returns the damage-minimising allocation for the defender.
// Weights are always known here, so the optimal search is used.
func ProposeBlocks(ctx *state.Context) dice.Allocation {
	a, d := Pools(ctx)
	w := Weights(ctx)
	return dice.Allocate(a, d, &w)
}

// ValidateBlocks checks a player-supplied allocation against the pools.
//
// Postcondition: a nil result means alloc satisfies the Allocation invariant
// and consumes no more saves than the defender has.
func ValidateBlocks(ctx *state.Context, alloc dice.Allocation) error {
	a, d := Pools(ctx)
	b := alloc.Breakdown
	if alloc.RemainingHits < 0 || alloc.RemainingCrits < 0 || b.CritSavesOnCrits < 0 ||
		b.CritSavesOnHits < 0 || b.SavesOnHits < 0 || b.SavePairsOnCrits < 0 {
		return fail("BAD_BLOCKS", "block counts must not be negative")
	}
	if alloc.RemainingHits+b.SavesOnHits+b.CritSavesOnHits != a.Hits {
		return fail("BAD_BLOCKS", "blocks do not account for %d hits", a.Hits)
	}
	if alloc.RemainingCrits+b.CritSavesOnCrits+b.SavePairsOnCrits != a.Crits {
		return fail("BAD_BLOCKS", "blocks do not account for %d crits", a.Crits)
	}
	if b.SavesOnHits+2*b.SavePairsOnCrits > d.Saves {
		return fail("BAD_BLOCKS", "blocks use more than %d saves", d.Saves)
	}
	if b.CritSavesOnCrits+b.CritSavesOnHits > d.CritSaves {
		return fail("BAD_BLOCKS", "blocks use more than %d crit saves", d.CritSaves)
	}
	return nil
}

// Damage returns the total damage of alloc plus any Devastating damage.
//
// Postcondition: Returns >= 0.
func Damage(ctx *state.Context, alloc dice.Allocation) int {
	return max(0, alloc.Damage(Weights(ctx))+ctx.Modifiers.DevastatingDamage)
}

// CommitEffects moves the context's persistent effects onto the participants:
// defender-side effects onto defender and attacker-side effects onto attacker.
// Combat-scoped notes are not carried over.
//
// Postcondition: Returns the committed effects.
func CommitEffects(ctx *state.Context, attacker, defender *state.Operative) []effect.Effect {
	var out []effect.Effect
	for _, e := range ctx.Effects.All() {
		if e.Expiry == effect.UntilCombatCleared {
			continue
		}
		target := attacker
		if e.Side == effect.SideDefender {
			target = defender
		}
		if target == nil {
			continue
		}
		target.Effects.Upsert(e)
		out = append(out, e)
	}
	return out
}

// ResolveSelfDamage resolves a pending self-damage roll on op and returns the
// damage inflicted.
//
// Postcondition: the pending effect is removed from op.Effects.
func ResolveSelfDamage(op *state.Operative, e effect.Effect, roll int) int {
	op.Effects.Remove(e.Side, e.ID)
	if roll >= e.Threshold {
		return 0
	}
	dmg := e.Value * roll
	op.TakeDamage(dmg)
	return dmg
}
