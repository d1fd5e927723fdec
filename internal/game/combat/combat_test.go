package combat_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"pgregory.net/rapid"

	"github.com/cory-johannsen/skirmish/internal/game/combat"
	"github.com/cory-johannsen/skirmish/internal/game/dice"
	"github.com/cory-johannsen/skirmish/internal/game/effect"
	"github.com/cory-johannsen/skirmish/internal/game/state"
	"github.com/cory-johannsen/skirmish/internal/game/weaponrule"
	"github.com/cory-johannsen/skirmish/internal/testutil"
)

func newCtx(t *testing.T, attackerID, weapon, defenderID string, mods state.TargetModifiers) (*state.GameState, *state.Context) {
	t.Helper()
	s := testutil.NewGame(t)
	att := s.Operative(attackerID)
	def := s.Operative(defenderID)
	require.NotNil(t, att)
	require.NotNil(t, def)
	w, ok := att.Weapon(weapon)
	require.True(t, ok)
	return s, combat.NewContext(att, def, w, mods)
}

func TestNewContext_PreRollAuto(t *testing.T) {
	_, ctx := newCtx(t, testutil.Gunner, "cannon", testutil.Boss, state.TargetModifiers{Cover: true})
	assert.Equal(t, 1, ctx.Modifiers.Piercing)
	assert.True(t, ctx.Applied(weaponrule.Piercing))
	assert.True(t, ctx.Applied(weaponrule.Heavy))
	assert.True(t, ctx.Applied(weaponrule.Limited))
	assert.False(t, ctx.Applied(weaponrule.Blast), "SEMI rules wait for a click")
	assert.Equal(t, 1, ctx.DefenseDiceAllowed(), "piercing and cover each remove a die")
}

func TestNewContext_SaturateDisablesCover(t *testing.T) {
	_, ctx := newCtx(t, testutil.Burner, "flamer", testutil.Boss, state.TargetModifiers{Cover: true})
	assert.True(t, ctx.Modifiers.CoverDisabled)
	assert.True(t, ctx.UI.DisabledOptions[combat.OptionCover])
	assert.False(t, ctx.Modifiers.CoverActive())
	assert.Error(t, combat.SetDefenderOption(ctx, combat.OptionCover, true))
}

func TestNewContext_LethalThreshold(t *testing.T) {
	_, ctx := newCtx(t, testutil.Trooper, "carbine", testutil.Leader, state.TargetModifiers{})
	assert.Equal(t, 5, ctx.Modifiers.CritThreshold)
	combat.ClassifyAttack(ctx, dice.Pool{5, 4, 3}, 0)
	_, crits := ctx.Retained()
	assert.Equal(t, 1, crits)
}

func TestNewContext_MeleeDropsRangedOnlyOptions(t *testing.T) {
	_, ctx := newCtx(t, testutil.Leader, "blade", testutil.Boss, state.TargetModifiers{Cover: true})
	assert.False(t, ctx.Modifiers.Cover)
	assert.True(t, ctx.Rules.Has(weaponrule.Shock))
}

func TestClassifyAttack_Accurate(t *testing.T) {
	_, ctx := newCtx(t, testutil.Trooper, "carbine", testutil.Leader, state.TargetModifiers{})
	combat.ClassifyAttack(ctx, dice.Pool{1, 4, 2}, 1)
	require.Len(t, ctx.AttackDice, 4)
	assert.True(t, ctx.AttackDice[0].Has(state.TagAccurate))
	hits, crits := ctx.Retained()
	assert.Equal(t, 2, hits)
	assert.Equal(t, 0, crits)
	assert.Equal(t, 2, ctx.Misses())
}

func TestClassifyAttack_OutOfRangeIsMiss(t *testing.T) {
	_, ctx := newCtx(t, testutil.Leader, "rifle", testutil.Boss, state.TargetModifiers{})
	combat.ClassifyAttack(ctx, dice.Pool{0, 7, -3, 99}, 0)
	hits, crits := ctx.Retained()
	assert.Zero(t, hits)
	assert.Zero(t, crits)
}

func TestClassifyDefense_Truncates(t *testing.T) {
	_, ctx := newCtx(t, testutil.Gunner, "cannon", testutil.Boss, state.TargetModifiers{})
	combat.ClassifyDefense(ctx, dice.Pool{6, 3, 3})
	require.Len(t, ctx.DefenseDice, 2)
	saves, critSaves := ctx.Saves()
	assert.Equal(t, 1, saves)
	assert.Equal(t, 1, critSaves)
}

func TestReroll(t *testing.T) {
	_, ctx := newCtx(t, testutil.Trooper, "carbine", testutil.Leader, state.TargetModifiers{})
	combat.ClassifyAttack(ctx, dice.Pool{1, 1}, 1)
	assert.Error(t, combat.Reroll(ctx, 0, 6), "accurate dice are never rolled")
	require.NoError(t, combat.Reroll(ctx, 1, 6))
	assert.True(t, ctx.AttackDice[1].Has(state.TagRerolled))
	assert.Equal(t, dice.Crit, ctx.AttackDice[1].Outcome)
	assert.Error(t, combat.Reroll(ctx, 1, 3))
	assert.Error(t, combat.Reroll(ctx, 9, 3))
}

func TestObscured(t *testing.T) {
	_, ctx := newCtx(t, testutil.Leader, "rifle", testutil.Boss, state.TargetModifiers{Obscured: true})
	combat.ClassifyAttack(ctx, dice.Pool{6, 6, 4, 1}, 0)
	combat.ApplyObscured(ctx)
	hits, crits := ctx.Retained()
	assert.Equal(t, 0, crits)
	assert.Equal(t, 2, hits)
}

func TestLockAttack_Idempotent(t *testing.T) {
	c := &state.CombatState{Stage: state.StageAttackRolling}
	require.NoError(t, combat.LockAttack(c))
	snapshot := *c
	err := combat.LockAttack(c)
	require.Error(t, err)
	var ce *combat.Error
	require.ErrorAs(t, err, &ce)
	assert.Equal(t, "ALREADY_LOCKED", ce.Code)
	assert.Equal(t, snapshot, *c)
}

func TestLockDefense_FromAttackLocked(t *testing.T) {
	c := &state.CombatState{Stage: state.StageAttackLocked, AttackLocked: true}
	require.NoError(t, combat.LockDefense(c))
	assert.Equal(t, state.StageDefenseLocked, c.Stage)
	assert.Error(t, combat.LockDefense(c))
}

func TestTransition_Guards(t *testing.T) {
	c := &state.CombatState{Stage: state.StageAttackRolling}
	assert.Error(t, combat.Transition(c, state.StageDone))
	assert.Equal(t, state.StageAttackRolling, c.Stage)
	assert.True(t, combat.CanTransition(state.StageDone, state.StageAttackRolling))
	assert.Error(t, combat.RequireStage(nil, state.StageDone))
}

func TestGate_RollRules(t *testing.T) {
	_, ctx := newCtx(t, testutil.Boss, "pistol", testutil.Leader, state.TargetModifiers{})
	combat.ClassifyAttack(ctx, dice.Pool{6, 4, 1, 1}, 0)
	assert.NoError(t, combat.Gate(ctx, state.StageAttackRolling, weaponrule.Rending))
	assert.NoError(t, combat.Gate(ctx, state.StageAttackRolling, weaponrule.Punishing))
	assert.Error(t, combat.Gate(ctx, state.StageAttackRolling, weaponrule.Severe), "severe needs no crit")
	assert.Error(t, combat.Gate(ctx, state.StageDefenseLocked, weaponrule.Rending), "wrong phase")
	assert.Error(t, combat.Gate(ctx, state.StageAttackRolling, weaponrule.Stun), "not on the pistol")
}

func TestApplyAuto_SevereDisablesPunishingAndRending(t *testing.T) {
	_, ctx := newCtx(t, testutil.Boss, "pistol", testutil.Leader, state.TargetModifiers{})
	combat.ClassifyAttack(ctx, dice.Pool{4, 4, 1, 1}, 0)
	applied := combat.ApplyAuto(ctx, state.StageAttackRolling, weaponrule.Roll)
	assert.Equal(t, []weaponrule.ID{weaponrule.Severe}, applied)
	hits, crits := ctx.Retained()
	assert.Equal(t, 1, hits)
	assert.Equal(t, 1, crits)
	assert.Error(t, combat.Gate(ctx, state.StageAttackRolling, weaponrule.Punishing))
	assert.Error(t, combat.Gate(ctx, state.StageAttackRolling, weaponrule.Rending))
}

func TestApplyAuto_PunishingThenRending(t *testing.T) {
	_, ctx := newCtx(t, testutil.Boss, "pistol", testutil.Leader, state.TargetModifiers{})
	combat.ClassifyAttack(ctx, dice.Pool{6, 4, 1, 1}, 0)
	applied := combat.ApplyAuto(ctx, state.StageAttackRolling, weaponrule.Roll)
	assert.Equal(t, []weaponrule.ID{weaponrule.Punishing, weaponrule.Rending}, applied)
	hits, crits := ctx.Retained()
	assert.Equal(t, 1, hits)
	assert.Equal(t, 2, crits)
	assert.Equal(t, 1, ctx.Misses())
}

func TestApplyAuto_PiercingCritsAndDevastating(t *testing.T) {
	_, ctx := newCtx(t, testutil.Leader, "rifle", testutil.Boss, state.TargetModifiers{})
	combat.ClassifyAttack(ctx, dice.Pool{4, 4, 1}, 0)
	assert.Empty(t, combat.ApplyAuto(ctx, state.StageAttackRolling, weaponrule.Roll))
	assert.Zero(t, ctx.Modifiers.Piercing)

	combat.ClassifyAttack(ctx, dice.Pool{6, 4, 1}, 0)
	assert.Equal(t, []weaponrule.ID{weaponrule.PiercingCrits}, combat.ApplyAuto(ctx, state.StageAttackRolling, weaponrule.Roll))
	assert.Equal(t, 1, ctx.Modifiers.Piercing)

	_, ctx = newCtx(t, testutil.Trooper, "carbine", testutil.Leader, state.TargetModifiers{})
	combat.ClassifyAttack(ctx, dice.Pool{6, 5, 1}, 0)
	combat.ApplyAuto(ctx, state.StageAttackRolling, weaponrule.Roll)
	assert.Equal(t, 4, ctx.Modifiers.DevastatingDamage)
}

func TestClick_PlayerRuleRecords(t *testing.T) {
	_, ctx := newCtx(t, testutil.Trooper, "carbine", testutil.Leader, state.TargetModifiers{})
	require.NoError(t, combat.Click(ctx, state.StageAttackRolling, weaponrule.Silent))
	assert.True(t, ctx.Applied(weaponrule.Silent))
	assert.NotEmpty(t, ctx.UI.Prompts)
	assert.Zero(t, ctx.Effects.Len())
}

func TestClick_AutoRejected(t *testing.T) {
	_, ctx := newCtx(t, testutil.Gunner, "cannon", testutil.Boss, state.TargetModifiers{})
	err := combat.Click(ctx, state.StageAttackRolling, weaponrule.Piercing)
	var ce *combat.Error
	require.ErrorAs(t, err, &ce)
	assert.Equal(t, "RULE_IS_AUTOMATIC", ce.Code)
}

func TestClick_SemiIsIdempotent(t *testing.T) {
	_, ctx := newCtx(t, testutil.Boss, "claw", testutil.Leader, state.TargetModifiers{})
	combat.ClassifyAttack(ctx, dice.Pool{6, 4, 1, 1}, 0)
	assert.Error(t, combat.Click(ctx, state.StageAttackRolling, weaponrule.Stun), "stun is post-roll")
	for range 3 {
		require.NoError(t, combat.Click(ctx, state.StageDefenseLocked, weaponrule.Stun))
	}
	assert.Equal(t, 1, ctx.Effects.Len())
	e, ok := ctx.Effects.Get(effect.SideDefender, weaponrule.Stun)
	require.True(t, ok)
	assert.Equal(t, -1, e.Value)
	assert.Equal(t, effect.EndOfNextActivation, e.Expiry)
	assert.Equal(t, []weaponrule.ID{weaponrule.Stun}, ctx.UI.AppliedRules)
}

func TestClick_StunNeedsCrit(t *testing.T) {
	_, ctx := newCtx(t, testutil.Boss, "claw", testutil.Leader, state.TargetModifiers{})
	combat.ClassifyAttack(ctx, dice.Pool{4, 4}, 0)
	assert.Error(t, combat.Click(ctx, state.StageDefenseLocked, weaponrule.Stun))
}

func TestShock_DiscardsNormalSave(t *testing.T) {
	_, ctx := newCtx(t, testutil.Leader, "blade", testutil.Boss, state.TargetModifiers{})
	combat.ClassifyAttack(ctx, dice.Pool{6, 1, 1, 1}, 0)
	combat.ClassifyDefense(ctx, dice.Pool{4, 3, 1})
	applied := combat.ApplyAuto(ctx, state.StageDefenseLocked, weaponrule.PostRoll)
	assert.Equal(t, []weaponrule.ID{weaponrule.Shock}, applied)
	saves, _ := ctx.Saves()
	assert.Equal(t, 1, saves)
}

func TestBrutal_OnlyCritSavesBlock(t *testing.T) {
	_, ctx := newCtx(t, testutil.Boss, "claw", testutil.Leader, state.TargetModifiers{})
	combat.ClassifyAttack(ctx, dice.Pool{4, 4, 1, 1}, 0)
	combat.ClassifyDefense(ctx, dice.Pool{3, 3, 6})
	combat.ApplyAuto(ctx, state.StageDefenseLocked, weaponrule.PostRoll)
	a, d := combat.Pools(ctx)
	assert.Equal(t, dice.Attack{Hits: 2}, a)
	assert.Equal(t, dice.Defense{CritSaves: 1}, d)
	alloc := combat.ProposeBlocks(ctx)
	assert.Equal(t, 4, combat.Damage(ctx, alloc))
}

func TestVantage_EngageTarget(t *testing.T) {
	s := testutil.NewGame(t)
	att := s.Operative(testutil.Leader)
	def := s.Operative(testutil.Boss)
	def.Order = state.OrderEngage
	w, _ := att.Weapon("rifle")
	ctx := combat.NewContext(att, def, w, state.TargetModifiers{Cover: true})

	require.NoError(t, combat.SetVantage(ctx, 4))
	r, ok := ctx.Rules.Get(weaponrule.Accurate)
	require.True(t, ok)
	assert.Equal(t, weaponrule.Rule{ID: weaponrule.Accurate, Value: 2, Source: weaponrule.SourceVantage}, r)
	assert.False(t, ctx.Modifiers.Cover)
	assert.True(t, ctx.UI.DisabledOptions[combat.OptionCover])

	require.NoError(t, combat.SetVantage(ctx, 2))
	assert.Equal(t, 1, combat.AccurateLimit(ctx))
	assert.False(t, ctx.Modifiers.Cover)

	require.NoError(t, combat.SetVantage(ctx, 2))
	assert.False(t, ctx.Rules.Has(weaponrule.Accurate))
	assert.True(t, ctx.Modifiers.Cover)
	assert.False(t, ctx.UI.DisabledOptions[combat.OptionCover])
	assert.Zero(t, ctx.Modifiers.Vantage)
}

func TestVantage_ConcealTargetNoteOnly(t *testing.T) {
	_, ctx := newCtx(t, testutil.Leader, "rifle", testutil.Boss, state.TargetModifiers{Cover: true})
	require.NoError(t, combat.SetVantage(ctx, 4))
	assert.False(t, ctx.Rules.Has(weaponrule.Accurate))
	assert.True(t, ctx.Modifiers.Cover)
	assert.NotEmpty(t, ctx.UI.Notes)
	assert.Error(t, combat.SetVantage(ctx, 3))
}

func TestValidateBlocks(t *testing.T) {
	_, ctx := newCtx(t, testutil.Leader, "rifle", testutil.Boss, state.TargetModifiers{})
	combat.ClassifyAttack(ctx, dice.Pool{6, 4}, 0)
	combat.ClassifyDefense(ctx, dice.Pool{3, 3, 1})
	proposal := combat.ProposeBlocks(ctx)
	require.NoError(t, combat.ValidateBlocks(ctx, proposal))
	assert.Equal(t, 3, combat.Damage(ctx, proposal))

	bad := dice.Allocation{RemainingHits: 0, RemainingCrits: 0, Breakdown: dice.Breakdown{SavesOnHits: 1, SavePairsOnCrits: 1}}
	assert.Error(t, combat.ValidateBlocks(ctx, bad), "three saves needed, two available")
	assert.Error(t, combat.ValidateBlocks(ctx, dice.Allocation{RemainingHits: 2}))
}

func TestCommitEffects(t *testing.T) {
	s, ctx := newCtx(t, testutil.Burner, "flamer", testutil.Boss, state.TargetModifiers{})
	require.NoError(t, combat.Click(ctx, state.StageAttackRolling, weaponrule.Torrent))
	require.NoError(t, combat.Click(ctx, state.StageDefenseLocked, weaponrule.Hot))
	burner, boss := s.Operative(testutil.Burner), s.Operative(testutil.Boss)
	committed := combat.CommitEffects(ctx, burner, boss)
	require.Len(t, committed, 1)
	assert.True(t, burner.Effects.Has(effect.SideAttacker, weaponrule.Hot))
	assert.Zero(t, boss.Effects.Len())
}

func TestResolveSelfDamage(t *testing.T) {
	s := testutil.NewGame(t)
	op := s.Operative(testutil.Burner)
	hot := effect.Effect{ID: weaponrule.Hot, Side: effect.SideAttacker, Kind: effect.KindSelfDamageRoll, Value: 2, Threshold: 2, Expiry: effect.UntilResolved}
	op.Effects.Upsert(hot)
	assert.Equal(t, 2, combat.ResolveSelfDamage(op, hot, 1))
	assert.Equal(t, 6, op.Wounds)
	assert.False(t, op.Effects.Has(effect.SideAttacker, weaponrule.Hot))
	op.Effects.Upsert(hot)
	assert.Zero(t, combat.ResolveSelfDamage(op, hot, 4))
}

func TestProposeBlocks_NeverWorseThanGreedy(t *testing.T) {
	rapid.Check(t, func(rt *rapid.T) {
		s := testutil.NewGame(t)
		att := s.Operative(testutil.Leader)
		w, _ := att.Weapon("rifle")
		ctx := combat.NewContext(att, s.Operative(testutil.Boss), w, state.TargetModifiers{})
		combat.ClassifyAttack(ctx, dice.Pool(rapid.SliceOfN(rapid.IntRange(1, 6), 0, 4).Draw(rt, "attack")), 0)
		combat.ClassifyDefense(ctx, dice.Pool(rapid.SliceOfN(rapid.IntRange(1, 6), 0, 3).Draw(rt, "defense")))
		a, d := combat.Pools(ctx)
		opt := combat.ProposeBlocks(ctx)
		greedy := dice.AllocateGreedy(a, d)
		if combat.ValidateBlocks(ctx, opt) != nil {
			rt.Fatalf("proposal violates pools: %+v", opt)
		}
		if combat.Damage(ctx, opt) > combat.Damage(ctx, greedy) {
			rt.Fatalf("optimal %d > greedy %d", combat.Damage(ctx, opt), combat.Damage(ctx, greedy))
		}
	})
}
