package combat

import (
	"github.com/cory-johannsen/skirmish/internal/game/state"
	"github.com/cory-johannsen/skirmish/internal/game/weaponrule"
)

// vantageAccurate maps a vantage distance to the Accurate value it grants
// against an engaged target.
var vantageAccurate = map[int]int{4: 2, 2: 1}

// SetVantage selects the attacker's vantage distance (0, 2, or 4 inches).
// Selecting the current distance again, or 0, clears vantage.
//
// Against an engage-order defender a vantage injects a synthetic Accurate
// rule with SourceVantage and disables the defender's cover, remembering the
// prior cover value. Against a conceal-order defender it only adds a note.
//
// Postcondition: at most one SourceVantage rule is present in ctx.Rules.
func SetVantage(ctx *state.Context, distance int) error {
	if _, ok := vantageAccurate[distance]; !ok && distance != 0 {
		return fail("BAD_VANTAGE", "vantage distance must be 0, 2 or 4, got %d", distance)
	}
	toggleOff := distance == 0 || distance == ctx.Modifiers.Vantage
	clearVantage(ctx)
	if toggleOff {
		return nil
	}
	ctx.Modifiers.Vantage = distance
	if ctx.Defender.Order != state.OrderEngage {
		note(ctx, "Vantage %d\": %s is concealed; no dice effect.", distance, ctx.Defender.Name)
		return nil
	}
	ctx.Rules = append(ctx.Rules, weaponrule.Rule{ID: weaponrule.Accurate, Value: vantageAccurate[distance], Source: weaponrule.SourceVantage})
	ctx.Modifiers.CoverBeforeVantage = ctx.Modifiers.Cover
	ctx.Modifiers.Cover = false
	ctx.UI.DisabledOptions[OptionCover] = true
	return nil
}

func clearVantage(ctx *state.Context) {
	if ctx.Modifiers.Vantage == 0 {
		return
	}
	had := len(ctx.Rules)
	ctx.Rules = ctx.Rules.Without(weaponrule.Accurate, weaponrule.SourceVantage)
	if len(ctx.Rules) != had {
		ctx.Modifiers.Cover = ctx.Modifiers.CoverBeforeVantage
		ctx.Modifiers.CoverBeforeVantage = false
		ctx.UI.DisabledOptions[OptionCover] = ctx.Modifiers.CoverDisabled
	}
	ctx.Modifiers.Vantage = 0
}

// SetDefenderOption sets the defender's cover or obscured option.
//
// Postcondition: on error ctx is unchanged.
func SetDefenderOption(ctx *state.Context, option string, enabled bool) error {
	if ctx.UI.DisabledOptions[option] && enabled {
		return fail("OPTION_DISABLED", "%s is not available for this attack", option)
	}
	switch option {
	case OptionCover:
		ctx.Modifiers.Cover = enabled
	case OptionObscured:
		ctx.Modifiers.Obscured = enabled
	default:
		return fail("BAD_OPTION", "unknown defender option %q", option)
	}
	return nil
}
