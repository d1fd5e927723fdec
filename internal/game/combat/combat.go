// Package combat implements the rule engine for a single attack: building the
// combat context, guarding stage transitions, classifying dice, evaluating
// weapon rules, vantage, and resolving damage. It mutates the state types it
// is handed and never logs; the engine owns ordering and snapshots.
package combat

import (
	"fmt"

	"github.com/cory-johannsen/skirmish/internal/game/dice"
	"github.com/cory-johannsen/skirmish/internal/game/roster"
	"github.com/cory-johannsen/skirmish/internal/game/state"
	"github.com/cory-johannsen/skirmish/internal/game/weaponrule"
)

// Error is a rejected combat operation. Code is a stable SCREAMING_SNAKE
// identifier suitable for an issue list.
type Error struct {
	Code    string
	Message string
}

func (e *Error) Error() string { return e.Message }

func fail(code, format string, args ...any) error {
	return &Error{Code: code, Message: fmt.Sprintf(format, args...)}
}

// Option keys used in the context's DisabledOptions.
const (
	OptionCover    = "cover"
	OptionObscured = "obscured"
)

// RuleOption returns the DisabledOptions key of rule id.
func RuleOption(id weaponrule.ID) string { return "rule:" + id.String() }

// NewContext builds the working context for one attack of attacker against
// defender with w, then applies every automatic pre-roll rule.
//
// Precondition: attacker, defender must be non-nil.
// Postcondition: Returns a Context whose Rules hold only rules legal for w's mode.
func NewContext(attacker, defender *state.Operative, w state.Weapon, mods state.TargetModifiers) *state.Context {
	ctx := &state.Context{
		Weapon:   w.Clone(),
		Rules:    normalize(w),
		Attacker: state.SnapshotOf(attacker),
		Defender: state.SnapshotOf(defender),
		Modifiers: state.Modifiers{
			Hit:           w.Hit,
			CritThreshold: dice.DefaultCritThreshold,
			Cover:         mods.Cover,
			Obscured:      mods.Obscured,
			IgnoreConceal: mods.IgnoreConceal,
		},
		UI: state.UI{DisabledOptions: make(map[string]bool)},
	}
	if lethal := ctx.Rules.Value(weaponrule.Lethal); lethal > 0 {
		ctx.Modifiers.CritThreshold = lethal
	}
	if w.Mode == roster.ModeMelee {
		ctx.Modifiers.Cover = false
		ctx.Modifiers.Obscured = false
		ctx.UI.DisabledOptions[OptionCover] = true
		ctx.UI.DisabledOptions[OptionObscured] = true
	}
	ApplyAuto(ctx, state.StageAttackRolling, weaponrule.PreRoll)
	return ctx
}

func normalize(w state.Weapon) weaponrule.Set {
	out := make(weaponrule.Set, 0, len(w.Rules))
	for _, r := range w.Rules {
		def, ok := weaponrule.Lookup(r.ID)
		if !ok {
			continue
		}
		if def.MeleeOnly && w.Mode != roster.ModeMelee {
			continue
		}
		if r.Source == "" {
			r.Source = weaponrule.SourceWeapon
		}
		out = append(out, r)
	}
	return out
}

// AccurateLimit returns how many attack dice may be retained as normal
// successes without rolling, summed across weapon and vantage sources.
func AccurateLimit(ctx *state.Context) int {
	n := 0
	for _, r := range ctx.Rules {
		if r.ID == weaponrule.Accurate {
			n += r.Value
		}
	}
	return n
}

// ClassifyAttack replaces the context's attack dice with pool, classified
// against the current thresholds, preceded by accurate retained successes.
//
// Postcondition: len(ctx.AttackDice) == accurate + len(pool).
func ClassifyAttack(ctx *state.Context, pool dice.Pool, accurate int) {
	th := ctx.Modifiers.Thresholds()
	out := make([]state.Die, 0, accurate+len(pool))
	for range accurate {
		out = append(out, state.Die{Value: ctx.Modifiers.Hit, Outcome: dice.Hit, Tags: state.TagRetained | state.TagAccurate})
	}
	for _, v := range pool {
		d := state.Die{Value: v, Outcome: dice.Classify(v, th)}
		if d.Outcome != dice.Miss {
			d.Tags |= state.TagRetained
		}
		out = append(out, d)
	}
	ctx.AttackDice = out
}

// Reroll replaces the attack die at index with value and marks it rerolled.
func Reroll(ctx *state.Context, index, value int) error {
	if index < 0 || index >= len(ctx.AttackDice) {
		return fail("BAD_DIE_INDEX", "die index %d out of range", index)
	}
	d := ctx.AttackDice[index]
	if d.Has(state.TagAccurate) {
		return fail("BAD_DIE_INDEX", "die %d was retained without rolling", index)
	}
	if d.Has(state.TagRerolled) {
		return fail("ALREADY_REROLLED", "die %d has already been re-rolled", index)
	}
	d.Value = value
	d.Outcome = dice.Classify(value, ctx.Modifiers.Thresholds())
	d.Tags = state.TagRerolled
	if d.Outcome != dice.Miss {
		d.Tags |= state.TagRetained
	}
	ctx.AttackDice[index] = d
	return nil
}

// ApplyObscured converts every retained crit to a normal success and then
// discards one normal success. It is a no-op when the target is not obscured.
func ApplyObscured(ctx *state.Context) {
	if !ctx.Modifiers.Obscured {
		return
	}
	for i := range ctx.AttackDice {
		if ctx.AttackDice[i].Outcome == dice.Crit {
			ctx.AttackDice[i].Outcome = dice.Hit
			ctx.AttackDice[i].Tags |= state.TagModified
		}
	}
	if i := firstDie(ctx.AttackDice, dice.Hit); i >= 0 {
		ctx.AttackDice[i].Tags |= state.TagDiscarded
	}
	ctx.UI.Notes = append(ctx.UI.Notes, "Obscured: crits count as normal successes and one success is discarded.")
}

// ClassifyDefense replaces the context's defence dice with pool, truncated to
// the number of dice the defender is allowed, and classified against the
// defender's save.
//
// Postcondition: len(ctx.DefenseDice) <= ctx.DefenseDiceAllowed().
func ClassifyDefense(ctx *state.Context, pool dice.Pool) {
	n := min(len(pool), ctx.DefenseDiceAllowed())
	th := dice.Thresholds{Hit: ctx.Defender.Save}
	out := make([]state.Die, 0, n)
	for _, v := range pool[:n] {
		d := state.Die{Value: v, Outcome: dice.Classify(v, th)}
		if d.Outcome != dice.Miss {
			d.Tags |= state.TagRetained
		}
		out = append(out, d)
	}
	ctx.DefenseDice = out
}

func firstDie(ds []state.Die, o dice.Outcome) int {
	for i, d := range ds {
		if d.Outcome == o && !d.Has(state.TagDiscarded) {
			return i
		}
	}
	return -1
}
