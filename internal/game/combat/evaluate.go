package combat

import (
	"fmt"

	"github.com/cory-johannsen/skirmish/internal/game/dice"
	"github.com/cory-johannsen/skirmish/internal/game/effect"
	"github.com/cory-johannsen/skirmish/internal/game/roster"
	"github.com/cory-johannsen/skirmish/internal/game/state"
	"github.com/cory-johannsen/skirmish/internal/game/weaponrule"
)

// HotDamageMultiplier scales a failed Hot roll into self-inflicted damage.
const HotDamageMultiplier = 2

// autoOrder is the evaluation order of automatic rules within a phase. Severe
// runs first because arming it disables Punishing and Rending.
var autoOrder = []weaponrule.ID{
	weaponrule.Severe,
	weaponrule.Punishing,
	weaponrule.Rending,
	weaponrule.PiercingCrits,
	weaponrule.Devastating,
	weaponrule.Piercing,
	weaponrule.Saturate,
	weaponrule.Seek,
	weaponrule.SeekLight,
	weaponrule.Heavy,
	weaponrule.Limited,
	weaponrule.Brutal,
	weaponrule.Shock,
}

// phaseOpen reports whether rules of phase p may resolve in stage s.
func phaseOpen(p weaponrule.Phase, s state.Stage) bool {
	switch p {
	case weaponrule.PreRoll:
		return s == state.StageAttackRolling
	case weaponrule.Roll:
		return s == state.StageAttackRolling || s == state.StageAttackLocked
	case weaponrule.PostRoll:
		return s == state.StageDefenseLocked || s == state.StageBlocksResolving || s == state.StageReadyToResolveDamage
	}
	return false
}

// Gate reports whether rule id can be applied to ctx in stage s. A nil
// result means the rule is available.
func Gate(ctx *state.Context, s state.Stage, id weaponrule.ID) error {
	def, ok := weaponrule.Lookup(id)
	if !ok {
		return fail("UNKNOWN_RULE", "unknown rule %d", int(id))
	}
	if !ctx.Rules.Has(id) {
		return fail("RULE_NOT_PRESENT", "%s is not on %s", def.Name, ctx.Weapon.Name)
	}
	if !phaseOpen(def.Phase, s) {
		return fail("RULE_WRONG_PHASE", "%s resolves %s, not during %s", def.Name, def.Phase, s)
	}
	if ctx.UI.DisabledOptions[RuleOption(id)] {
		return fail("RULE_DISABLED", "%s is disabled", def.Name)
	}
	hits, crits := ctx.Retained()
	switch id {
	case weaponrule.PiercingCrits, weaponrule.Stun, weaponrule.Devastating:
		if crits == 0 {
			return fail("RULE_NOT_APPLICABLE", "%s requires a retained critical success", def.Name)
		}
	case weaponrule.Rending:
		if crits == 0 || hits == 0 {
			return fail("RULE_NOT_APPLICABLE", "Rending requires a retained crit and a retained hit")
		}
	case weaponrule.Punishing:
		if crits == 0 || ctx.Misses() == 0 {
			return fail("RULE_NOT_APPLICABLE", "Punishing requires a retained crit and a failed die")
		}
	case weaponrule.Severe:
		if crits > 0 || hits == 0 {
			return fail("RULE_NOT_APPLICABLE", "Severe requires no retained crit and at least one hit")
		}
	case weaponrule.Shock:
		if ctx.Weapon.Mode != roster.ModeMelee {
			return fail("RULE_NOT_APPLICABLE", "Shock applies to melee attacks only")
		}
		if crits == 0 || firstDie(ctx.DefenseDice, dice.Hit) < 0 {
			return fail("RULE_NOT_APPLICABLE", "Shock requires a retained crit and an opposing normal save")
		}
	case weaponrule.Balanced, weaponrule.Ceaseless, weaponrule.Relentless:
		if len(ctx.AttackDice) == 0 {
			return fail("RULE_NOT_APPLICABLE", "%s requires an attack roll", def.Name)
		}
		if ctx.Applied(id) {
			return fail("RULE_ALREADY_APPLIED", "%s has already been used this attack", def.Name)
		}
	case weaponrule.Accurate, weaponrule.Blast, weaponrule.Brutal, weaponrule.Heavy,
		weaponrule.Hot, weaponrule.Lethal, weaponrule.Limited, weaponrule.Piercing,
		weaponrule.Range, weaponrule.Saturate, weaponrule.Seek, weaponrule.SeekLight,
		weaponrule.Silent, weaponrule.Torrent:
	case weaponrule.Unknown:
		return fail("UNKNOWN_RULE", "unknown rule")
	}
	return nil
}

// Preview is what a rule would do if applied now.
type Preview struct {
	Rule      weaponrule.ID
	Label     string
	Phase     weaponrule.Phase
	Class     weaponrule.Class
	Available bool
	Applied   bool
	Reason    string
	Text      string
}

// PreviewRule describes rule id against ctx in stage s without mutating ctx.
func PreviewRule(ctx *state.Context, s state.Stage, id weaponrule.ID) Preview {
	r, _ := ctx.Rules.Get(id)
	def := r.Definition()
	p := Preview{
		Rule:    id,
		Label:   r.Label(),
		Phase:   def.Phase,
		Class:   def.Class,
		Applied: ctx.Applied(id),
		Text:    def.Summary,
	}
	if err := Gate(ctx, s, id); err != nil {
		p.Reason = err.Error()
		return p
	}
	p.Available = true
	switch id {
	case weaponrule.Rending:
		p.Text = "One retained hit becomes a crit."
	case weaponrule.Severe:
		p.Text = "One retained hit becomes a crit; Punishing and Rending are disabled."
	case weaponrule.Punishing:
		p.Text = "One failed die is retained as a normal success."
	case weaponrule.PiercingCrits:
		p.Text = fmt.Sprintf("The defender rolls %d fewer defence dice.", r.Value)
	case weaponrule.Devastating:
		_, crits := ctx.Retained()
		p.Text = fmt.Sprintf("%d damage inflicted immediately.", r.Value*crits)
	case weaponrule.Stun:
		p.Text = fmt.Sprintf("%s loses 1 APL until the end of its next activation.", ctx.Defender.Name)
	case weaponrule.Hot:
		p.Text = fmt.Sprintf("Roll one die: below %d+ inflicts %d times the result on %s.", ctx.Weapon.Hit, HotDamageMultiplier, ctx.Attacker.Name)
	case weaponrule.Accurate:
		p.Text = fmt.Sprintf("Retain up to %d attack dice as normal successes.", AccurateLimit(ctx))
	}
	return p
}

// Previews lists a preview for every rule in ctx, in rule list order.
func Previews(ctx *state.Context, s state.Stage) []Preview {
	out := make([]Preview, 0, len(ctx.Rules))
	seen := make(map[weaponrule.ID]bool, len(ctx.Rules))
	for _, r := range ctx.Rules {
		if seen[r.ID] {
			continue
		}
		seen[r.ID] = true
		out = append(out, PreviewRule(ctx, s, r.ID))
	}
	return out
}

// Click applies a player-driven rule: PLAYER rules are recorded and SEMI
// rules arm a tracked effect. Clicking a SEMI rule again replaces its effect.
//
// Postcondition: on success ctx.Applied(id) is true.
func Click(ctx *state.Context, s state.Stage, id weaponrule.ID) error {
	def, ok := weaponrule.Lookup(id)
	if !ok {
		return fail("UNKNOWN_RULE", "unknown rule %d", int(id))
	}
	if def.Class == weaponrule.Auto {
		return fail("RULE_IS_AUTOMATIC", "%s is applied automatically", def.Name)
	}
	if err := Gate(ctx, s, id); err != nil {
		return err
	}
	apply(ctx, id)
	return nil
}

// ApplyAuto applies every automatic rule of phase p that passes its gate and
// has not yet been applied, and returns the rules it applied in order.
func ApplyAuto(ctx *state.Context, s state.Stage, p weaponrule.Phase) []weaponrule.ID {
	var applied []weaponrule.ID
	for _, id := range autoOrder {
		def, _ := weaponrule.Lookup(id)
		if def.Phase != p || ctx.Applied(id) {
			continue
		}
		if Gate(ctx, s, id) != nil {
			continue
		}
		apply(ctx, id)
		applied = append(applied, id)
	}
	return applied
}

func apply(ctx *state.Context, id weaponrule.ID) {
	r, _ := ctx.Rules.Get(id)
	label := r.Label()
	switch id {
	case weaponrule.Accurate:
		prompt(ctx, "Accurate: retain up to %d attack dice as normal successes before rolling.", AccurateLimit(ctx))
	case weaponrule.Balanced:
		prompt(ctx, "Balanced: re-roll one attack die.")
	case weaponrule.Ceaseless:
		prompt(ctx, "Ceaseless: re-roll all attack dice showing one chosen result.")
	case weaponrule.Relentless:
		prompt(ctx, "Relentless: re-roll any of your attack dice.")
	case weaponrule.Blast, weaponrule.Torrent:
		ctx.Effects.Upsert(effect.Effect{ID: id, Side: effect.SideDefender, Kind: effect.KindNote, Value: r.Value, Expiry: effect.UntilCombatCleared,
			Note: fmt.Sprintf("%s: select secondary targets within %d\"", label, r.Value)})
		prompt(ctx, "%s: select each secondary target within %d\" of %s.", label, r.Value, ctx.Defender.Name)
	case weaponrule.Brutal:
		ctx.Modifiers.CritOnlyBlocks = true
		note(ctx, "Brutal: %s can only block with critical saves.", ctx.Defender.Name)
	case weaponrule.Devastating:
		_, crits := ctx.Retained()
		ctx.Modifiers.DevastatingDamage = r.Value * crits
		note(ctx, "%s: %d damage inflicted.", label, ctx.Modifiers.DevastatingDamage)
	case weaponrule.Heavy:
		note(ctx, "Heavy: %s cannot move in the same activation it shoots.", ctx.Attacker.Name)
	case weaponrule.Hot:
		ctx.Effects.Upsert(effect.Effect{ID: id, Side: effect.SideAttacker, Kind: effect.KindSelfDamageRoll, Value: HotDamageMultiplier,
			Threshold: ctx.Weapon.Hit, Expiry: effect.UntilResolved, Note: "Hot: roll one die for self damage"})
		prompt(ctx, "Hot: roll one die for %s; below %d+ inflicts %d times the result.", ctx.Attacker.Name, ctx.Weapon.Hit, HotDamageMultiplier)
	case weaponrule.Lethal:
		ctx.Modifiers.CritThreshold = r.Value
		prompt(ctx, "%s: results of %d+ are critical successes.", label, r.Value)
	case weaponrule.Limited:
		note(ctx, "%s: this weapon can be selected %d times per battle.", label, r.Value)
	case weaponrule.Piercing, weaponrule.PiercingCrits:
		ctx.Modifiers.Piercing = max(ctx.Modifiers.Piercing, r.Value)
		note(ctx, "%s: %s rolls %d fewer defence dice.", label, ctx.Defender.Name, r.Value)
	case weaponrule.Punishing:
		if i := firstDie(ctx.AttackDice, dice.Miss); i >= 0 {
			ctx.AttackDice[i].Outcome = dice.Hit
			ctx.AttackDice[i].Tags |= state.TagModified | state.TagRetained
		}
		note(ctx, "Punishing: one failed die retained as a normal success.")
	case weaponrule.Range:
		prompt(ctx, "%s: only targets within range can be selected.", label)
	case weaponrule.Rending:
		if i := firstDie(ctx.AttackDice, dice.Hit); i >= 0 {
			ctx.AttackDice[i].Outcome = dice.Crit
			ctx.AttackDice[i].Tags |= state.TagModified
		}
		note(ctx, "Rending: one normal success becomes critical.")
	case weaponrule.Saturate, weaponrule.Seek:
		ctx.Modifiers.CoverDisabled = true
		ctx.UI.DisabledOptions[OptionCover] = true
		note(ctx, "%s: %s cannot retain cover saves.", label, ctx.Defender.Name)
	case weaponrule.SeekLight:
		note(ctx, "Seek Light: light terrain grants %s no cover.", ctx.Defender.Name)
	case weaponrule.Severe:
		if i := firstDie(ctx.AttackDice, dice.Hit); i >= 0 {
			ctx.AttackDice[i].Outcome = dice.Crit
			ctx.AttackDice[i].Tags |= state.TagModified
		}
		ctx.UI.DisabledOptions[RuleOption(weaponrule.Punishing)] = true
		ctx.UI.DisabledOptions[RuleOption(weaponrule.Rending)] = true
		note(ctx, "Severe: one normal success becomes critical; Punishing and Rending are disabled.")
	case weaponrule.Shock:
		if i := firstDie(ctx.DefenseDice, dice.Hit); i >= 0 {
			ctx.DefenseDice[i].Tags |= state.TagDiscarded
		}
		note(ctx, "Shock: one of %s's normal saves is discarded.", ctx.Defender.Name)
	case weaponrule.Silent:
		prompt(ctx, "Silent: %s may shoot while on a conceal order.", ctx.Attacker.Name)
	case weaponrule.Stun:
		ctx.Effects.Upsert(effect.Effect{ID: id, Side: effect.SideDefender, Kind: effect.KindAPLModifier, Value: -1,
			Expiry: effect.EndOfNextActivation, Note: "Stun: -1 APL"})
		prompt(ctx, "Stun: %s loses 1 APL until the end of its next activation.", ctx.Defender.Name)
	case weaponrule.Unknown:
		return
	}
	markApplied(ctx, id)
}

func markApplied(ctx *state.Context, id weaponrule.ID) {
	if !ctx.Applied(id) {
		ctx.UI.AppliedRules = append(ctx.UI.AppliedRules, id)
	}
}

func prompt(ctx *state.Context, format string, args ...any) {
	ctx.UI.Prompts = append(ctx.UI.Prompts, fmt.Sprintf(format, args...))
}

func note(ctx *state.Context, format string, args ...any) {
	ctx.UI.Notes = append(ctx.UI.Notes, fmt.Sprintf(format, args...))
}
