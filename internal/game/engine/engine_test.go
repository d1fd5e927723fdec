package engine_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"pgregory.net/rapid"

	"github.com/cory-johannsen/skirmish/internal/game/command"
	"github.com/cory-johannsen/skirmish/internal/game/effect"
	"github.com/cory-johannsen/skirmish/internal/game/engine"
	"github.com/cory-johannsen/skirmish/internal/game/intent"
	"github.com/cory-johannsen/skirmish/internal/game/state"
	"github.com/cory-johannsen/skirmish/internal/game/weaponrule"
	"github.com/cory-johannsen/skirmish/internal/testutil"
)

func newEngine() *engine.Engine { return engine.New(zap.NewNop()) }

// accept applies a command and fails the test if it is rejected.
func accept(t testing.TB, e *engine.Engine, s *state.GameState, typ command.Type, kv ...any) (*state.GameState, []engine.Event) {
	t.Helper()
	d := e.Apply(s, command.New(typ, kv...))
	require.Empty(t, d.Issues, "%s rejected", typ)
	return d.State, d.Events
}

// reject applies a command, requires it to be rejected, and returns the first issue code.
func reject(t testing.TB, e *engine.Engine, s *state.GameState, typ command.Type, kv ...any) string {
	t.Helper()
	d := e.Apply(s, command.New(typ, kv...))
	require.NotEmpty(t, d.Issues, "%s accepted", typ)
	assert.Same(t, s, d.State)
	assert.Empty(t, d.Events)
	return d.Issues[0].Code
}

// firefight plays the first strategy phase with p1 holding the initiative.
func firefight(t testing.TB, e *engine.Engine) *state.GameState {
	t.Helper()
	s := testutil.NewGame(t)
	s, _ = accept(t, e, s, command.StartGame)
	s, _ = accept(t, e, s, command.ReadyAllOperatives)
	s, _ = accept(t, e, s, command.SetInitiative, command.FieldPlayer, "p1")
	s, _ = accept(t, e, s, command.GainCP)
	s, _ = accept(t, e, s, command.PassStrategy, command.FieldPlayer, "p1")
	s, _ = accept(t, e, s, command.PassStrategy, command.FieldPlayer, "p2")
	s, _ = accept(t, e, s, command.EndStrategyPhase)
	return s
}

// engaged activates op on an engage order.
func engaged(t testing.TB, e *engine.Engine, s *state.GameState, op string) *state.GameState {
	t.Helper()
	owner := s.Operative(op).Owner
	s, _ = accept(t, e, s, command.SetActiveOperative, command.FieldPlayer, string(owner), command.FieldOperativeID, op)
	s, _ = accept(t, e, s, command.SetOrder, command.FieldOperativeID, op, command.FieldOrder, "engage")
	return s
}

// shootAt activates attacker, takes the shoot action, and declares an attack.
func shootAt(t testing.TB, e *engine.Engine, s *state.GameState, attacker, weapon, defender string, kv ...any) *state.GameState {
	t.Helper()
	s = engaged(t, e, s, attacker)
	s, _ = accept(t, e, s, command.ActionUse, command.FieldOperativeID, attacker, command.FieldAction, "shoot")
	args := append([]any{command.FieldAttackerID, attacker, command.FieldDefenderID, defender, command.FieldWeaponName, weapon}, kv...)
	s, _ = accept(t, e, s, command.StartRangedAttack, args...)
	return s
}

func eventTypes(events []engine.Event) []engine.EventType {
	out := make([]engine.EventType, len(events))
	for i, ev := range events {
		out[i] = ev.Type
	}
	return out
}

func TestApply_StrategyPhase(t *testing.T) {
	e := newEngine()
	s := firefight(t, e)
	assert.Equal(t, state.PhaseFirefight, s.Phase)
	assert.Equal(t, 1, s.TurningPoint)
	assert.Equal(t, 3, s.CP[state.P1])
	assert.Equal(t, 3, s.CP[state.P2])
	assert.Equal(t, state.P1, s.Firefight.ActivePlayer)
	for _, op := range s.Operatives {
		assert.Equal(t, state.Ready, op.Readiness, op.ID)
	}
}

func TestApply_EndStrategyPhaseListsEveryOpenGate(t *testing.T) {
	e := newEngine()
	s := testutil.NewGame(t)
	s, _ = accept(t, e, s, command.StartGame)
	d := e.Apply(s, command.New(command.EndStrategyPhase))
	require.Len(t, d.Issues, 5)
	for _, is := range d.Issues {
		assert.Equal(t, intent.CodeStrategyIncomplete, is.Code)
	}
}

func TestApply_StrategicPloySpendsCP(t *testing.T) {
	e := newEngine()
	s := testutil.NewGame(t)
	s, _ = accept(t, e, s, command.StartGame)
	s, events := accept(t, e, s, command.UseStrategicPloy, command.FieldPlayer, "p2", command.FieldPloyID, "rush")
	assert.Equal(t, state.StartingCommandPoints-1, s.CP[state.P2])
	assert.Equal(t, []engine.EventType{engine.EventPloyUsed}, eventTypes(events))
	assert.Equal(t, intent.CodeAlreadyDone, reject(t, e, s, command.UseStrategicPloy, command.FieldPlayer, "p2", command.FieldPloyID, "rush"))
	assert.Equal(t, intent.CodeUnknownPloy, reject(t, e, s, command.UseStrategicPloy, command.FieldPlayer, "p2", command.FieldPloyID, "brace"))
}

func TestApply_GainCPAfterFirstTurningPoint(t *testing.T) {
	e := newEngine()
	s := firefight(t, e)
	s, _ = accept(t, e, s, command.TurningPointEnd)
	require.Equal(t, state.PhaseStrategy, s.Phase)
	require.Equal(t, 2, s.TurningPoint)
	assert.Equal(t, intent.CodeStrategyIncomplete, reject(t, e, s, command.GainCP))
	s, _ = accept(t, e, s, command.SetInitiative, command.FieldPlayer, "p2")
	s, _ = accept(t, e, s, command.GainCP)
	assert.Equal(t, 4, s.CP[state.P2])
	assert.Equal(t, 5, s.CP[state.P1])
}

func TestApply_RejectedCommandLeavesStateUnchanged(t *testing.T) {
	e := newEngine()
	s := testutil.NewGame(t)
	before := s.Clone()
	code := reject(t, e, s, command.SetOrder, command.FieldOperativeID, testutil.Leader, command.FieldOrder, "engage")
	assert.Equal(t, intent.CodeWrongPhase, code)
	assert.Equal(t, before, s)
	assert.Equal(t, intent.CodeMissingField, reject(t, e, s, command.SetInitiative))
	assert.Equal(t, intent.CodeUnknownCommand, reject(t, e, s, "TELEPORT"))
}

func TestApply_ZeroDamageResolutionClearsCombat(t *testing.T) {
	e := newEngine()
	s := firefight(t, e)
	s = shootAt(t, e, s, testutil.Leader, "rifle", testutil.Boss)
	require.Equal(t, testutil.Leader, s.AttackingOperativeID)
	require.Equal(t, testutil.Boss, s.DefendingOperativeID)

	s, _ = accept(t, e, s, command.SetAttackRoll, command.FieldDice, []int{1, 2, 1, 2})
	s, _ = accept(t, e, s, command.LockAttackRoll)
	s, _ = accept(t, e, s, command.SetDefenseRoll, command.FieldDice, []int{1, 1, 1})
	s, _ = accept(t, e, s, command.LockDefenseRoll)
	s, events := accept(t, e, s, command.ResolveCombat)

	assert.Equal(t, 12, s.Operative(testutil.Boss).Wounds)
	assert.Nil(t, s.Combat)
	assert.Empty(t, s.AttackingOperativeID)
	assert.Empty(t, s.DefendingOperativeID)
	assert.Contains(t, eventTypes(events), engine.EventCombatCleared)
	assert.NotContains(t, eventTypes(events), engine.EventIncapacitated)
}

func TestApply_CritsPierceAndIncapacitate(t *testing.T) {
	e := newEngine()
	s := firefight(t, e)
	s = shootAt(t, e, s, testutil.Leader, "rifle", testutil.Boss)
	s, _ = accept(t, e, s, command.SetAttackRoll, command.FieldDice, []int{6, 6, 6, 6})
	s, events := accept(t, e, s, command.LockAttackRoll)
	assert.Contains(t, eventTypes(events), engine.EventRuleApplied)
	assert.Equal(t, 2, s.Combat.Context.DefenseDiceAllowed(), "Piercing Crits 1 removes a defence die")

	s, _ = accept(t, e, s, command.SetDefenseRoll, command.FieldDice, []int{1, 1, 6})
	assert.Len(t, s.Combat.DefenseDice, 2, "extra defence dice are dropped")
	s, _ = accept(t, e, s, command.LockDefenseRoll)
	require.Equal(t, state.StageBlocksResolving, s.Combat.Stage)
	require.NotNil(t, s.Combat.Blocks)
	s, _ = accept(t, e, s, command.ResolveCombat)

	boss := s.Operative(testutil.Boss)
	assert.Equal(t, 0, boss.Wounds)
	assert.False(t, boss.Alive())
	assert.NotContains(t, s.ReadyOperatives(state.P2), boss)
}

func TestApply_LockIsNotReentrant(t *testing.T) {
	e := newEngine()
	s := firefight(t, e)
	s = shootAt(t, e, s, testutil.Leader, "rifle", testutil.Boss)
	s, _ = accept(t, e, s, command.SetAttackRoll, command.FieldDice, []int{3, 4, 5, 6})
	s, _ = accept(t, e, s, command.LockAttackRoll)
	snapshot := s.Clone()

	assert.Equal(t, intent.CodeAlreadyLocked, reject(t, e, s, command.LockAttackRoll))
	assert.Equal(t, intent.CodeStageMismatch, reject(t, e, s, command.SetAttackRoll, command.FieldDice, []int{1}))
	assert.Equal(t, snapshot, s)

	s, _ = accept(t, e, s, command.LockDefenseRoll)
	assert.Equal(t, intent.CodeAlreadyLocked, reject(t, e, s, command.LockDefenseRoll))
}

func TestApply_BlocksOverride(t *testing.T) {
	e := newEngine()
	s := firefight(t, e)
	s = shootAt(t, e, s, testutil.Leader, "rifle", testutil.Boss)
	s, _ = accept(t, e, s, command.SetAttackRoll, command.FieldDice, []int{3, 3, 1, 1})
	s, _ = accept(t, e, s, command.LockAttackRoll)
	s, _ = accept(t, e, s, command.SetDefenseRoll, command.FieldDice, []int{3, 1, 1})
	s, _ = accept(t, e, s, command.LockDefenseRoll)
	require.Equal(t, 1, s.Combat.Blocks.RemainingHits)

	code := reject(t, e, s, command.SetBlocksResult,
		command.FieldCritSavesOnCrits, 0, command.FieldCritSavesOnHits, 0, command.FieldSavesOnHits, 2, command.FieldSavePairsOnCrits, 0)
	assert.Equal(t, "BAD_BLOCKS", code)

	s, _ = accept(t, e, s, command.SetBlocksResult,
		command.FieldCritSavesOnCrits, 0, command.FieldCritSavesOnHits, 0, command.FieldSavesOnHits, 0, command.FieldSavePairsOnCrits, 0)
	assert.True(t, s.Combat.BlocksOverridden)
	assert.Equal(t, state.StageReadyToResolveDamage, s.Combat.Stage)
	s, _ = accept(t, e, s, command.ApplyDamage)
	assert.Equal(t, 6, s.Operative(testutil.Boss).Wounds)
	assert.Equal(t, state.StageDone, s.Combat.Stage)
	s, _ = accept(t, e, s, command.ClearCombatState)
	assert.Nil(t, s.Combat)
}

func TestApply_VantageSwitch(t *testing.T) {
	e := newEngine()
	s := firefight(t, e)
	s.Operative(testutil.Boss).Order = state.OrderEngage
	s = shootAt(t, e, s, testutil.Leader, "rifle", testutil.Boss, command.FieldCover, true)
	require.True(t, s.Combat.Context.Modifiers.Cover)

	s, _ = accept(t, e, s, command.SetVantage, command.FieldDistance, 4)
	r, ok := s.Combat.Context.Rules.Get(weaponrule.Accurate)
	require.True(t, ok)
	assert.Equal(t, 2, r.Value)
	assert.Equal(t, weaponrule.SourceVantage, r.Source)
	assert.False(t, s.Combat.Context.Modifiers.Cover)

	s, _ = accept(t, e, s, command.SetVantage, command.FieldDistance, 4)
	assert.False(t, s.Combat.Context.Rules.Has(weaponrule.Accurate))
	assert.True(t, s.Combat.Context.Modifiers.Cover)
}

func TestApply_EndActivationPassesPriority(t *testing.T) {
	e := newEngine()
	s := firefight(t, e)
	s = engaged(t, e, s, testutil.Leader)
	s, events := accept(t, e, s, command.EndActivation, command.FieldOperativeID, testutil.Leader)

	assert.Equal(t, state.Expended, s.Operative(testutil.Leader).Readiness)
	assert.Empty(t, s.Firefight.ActiveOperativeID)
	assert.Equal(t, state.P2, s.Firefight.ActivePlayer)
	assert.Equal(t, []engine.EventType{engine.EventActivationEnded, engine.EventPriorityPassed}, eventTypes(events))
	assert.Equal(t, intent.CodeNotYourTurn, reject(t, e, s, command.SetActiveOperative,
		command.FieldPlayer, "p1", command.FieldOperativeID, testutil.Gunner))
}

func TestApply_Counteract(t *testing.T) {
	e := newEngine()
	s := firefight(t, e)
	for _, op := range s.Living(state.P1) {
		op.Readiness = state.Expended
	}
	s.Operative(testutil.Leader).Order = state.OrderEngage
	assert.Equal(t, intent.CodeNotYourTurn, reject(t, e, s, command.SkipActivation, command.FieldPlayer, "p2"))

	s, _ = accept(t, e, s, command.Counteract, command.FieldPlayer, "p1", command.FieldOperativeID, testutil.Leader)
	require.NotNil(t, s.Firefight.Activation)
	assert.True(t, s.Firefight.Activation.Counteract)
	assert.True(t, s.Firefight.OrderChosen)

	assert.Equal(t, intent.CodeCounteractCost, reject(t, e, s, command.ActionUse,
		command.FieldOperativeID, testutil.Leader, command.FieldAction, "fall_back"))
	s, _ = accept(t, e, s, command.ActionUse, command.FieldOperativeID, testutil.Leader, command.FieldAction, "dash")
	assert.Equal(t, 0, s.Firefight.Activation.APSpent)
	assert.Equal(t, intent.CodeActionUnavailable, reject(t, e, s, command.ActionUse,
		command.FieldOperativeID, testutil.Leader, command.FieldAction, "pick_up"))

	s, _ = accept(t, e, s, command.EndActivation, command.FieldOperativeID, testutil.Leader)
	assert.Equal(t, state.P2, s.Firefight.ActivePlayer)
	assert.True(t, s.Operative(testutil.Leader).HasCounteractedThisTP)
	assert.Empty(t, s.CounteractCandidates(state.P1))
}

func TestApply_TurningPointAdvancesWhenAllExpended(t *testing.T) {
	e := newEngine()
	s := firefight(t, e)
	for _, op := range s.Operatives {
		if op.ID != testutil.Leader {
			op.Readiness = state.Expended
		}
	}
	s = engaged(t, e, s, testutil.Leader)
	s, events := accept(t, e, s, command.EndActivation, command.FieldOperativeID, testutil.Leader)

	assert.Equal(t, state.PhaseStrategy, s.Phase)
	assert.Equal(t, 2, s.TurningPoint)
	assert.False(t, s.Strategy.CPGrantedThisTP)
	assert.Contains(t, eventTypes(events), engine.EventTurningPointStarted)
}

func TestApply_GameOverIsAbsorbing(t *testing.T) {
	e := newEngine()
	s := firefight(t, e)
	s.TurningPoint = s.MaxTurningPoints
	s, events := accept(t, e, s, command.TurningPointEnd)
	assert.Equal(t, state.PhaseGameOver, s.Phase)
	assert.Equal(t, s.MaxTurningPoints, s.TurningPoint)
	assert.Contains(t, eventTypes(events), engine.EventGameOver)

	for _, cmd := range []command.Command{
		command.New(command.StartGame),
		command.New(command.ReadyAllOperatives),
		command.New(command.TurningPointEnd),
	} {
		d := e.Apply(s, cmd)
		require.Len(t, d.Issues, 1)
		assert.Equal(t, intent.CodeGameOver, d.Issues[0].Code)
		assert.Same(t, s, d.State)
	}
}

func TestApply_StunReducesNextActivation(t *testing.T) {
	e := newEngine()
	s := firefight(t, e)
	s, _ = accept(t, e, s, command.SetActiveOperative, command.FieldPlayer, "p1", command.FieldOperativeID, testutil.Leader)
	s, _ = accept(t, e, s, command.SetOrder, command.FieldOperativeID, testutil.Leader, command.FieldOrder, "conceal")
	s, _ = accept(t, e, s, command.EndActivation, command.FieldOperativeID, testutil.Leader)

	s, _ = accept(t, e, s, command.SetActiveOperative, command.FieldPlayer, "p2", command.FieldOperativeID, testutil.Boss)
	s, _ = accept(t, e, s, command.SetOrder, command.FieldOperativeID, testutil.Boss, command.FieldOrder, "engage")
	s, _ = accept(t, e, s, command.ActionUse, command.FieldOperativeID, testutil.Boss, command.FieldAction, "fight")
	s, _ = accept(t, e, s, command.StartMeleeAttack, command.FieldAttackerID, testutil.Boss,
		command.FieldDefenderID, testutil.Gunner, command.FieldWeaponName, "claw")
	assert.Equal(t, intent.CodeMeleeOnly, reject(t, e, s, command.SetVantage, command.FieldDistance, 2))

	s, _ = accept(t, e, s, command.SetAttackRoll, command.FieldDice, []int{6, 1, 1, 1})
	s, _ = accept(t, e, s, command.LockAttackRoll)
	s, _ = accept(t, e, s, command.SetDefenseRoll, command.FieldDice, []int{4, 6, 1})
	s, _ = accept(t, e, s, command.LockDefenseRoll)
	assert.True(t, s.Combat.Context.Modifiers.CritOnlyBlocks, "Brutal applies after defence is locked")
	s, _ = accept(t, e, s, command.WeaponRuleClick, command.FieldRule, "stun")
	s, _ = accept(t, e, s, command.ResolveCombat)

	gunner := s.Operative(testutil.Gunner)
	assert.Equal(t, 8, gunner.Wounds, "the crit save blocks the only crit")
	assert.True(t, gunner.Effects.Has(effect.SideDefender, weaponrule.Stun))
	assert.Equal(t, 1, gunner.StartingAP())

	s, _ = accept(t, e, s, command.EndActivation, command.FieldOperativeID, testutil.Boss)
	s = engaged(t, e, s, testutil.Gunner)
	assert.Equal(t, 1, s.Firefight.Activation.StartingAP)
	s, events := accept(t, e, s, command.EndActivation, command.FieldOperativeID, testutil.Gunner)
	assert.Contains(t, eventTypes(events), engine.EventEffectExpired)
	assert.False(t, s.Operative(testutil.Gunner).Effects.Has(effect.SideDefender, weaponrule.Stun))
}

func TestApply_StunOnExpendedCarriesIntoNextTurningPoint(t *testing.T) {
	e := newEngine()
	s := firefight(t, e)
	s, _ = accept(t, e, s, command.SetActiveOperative, command.FieldPlayer, "p1", command.FieldOperativeID, testutil.Leader)
	s, _ = accept(t, e, s, command.SetOrder, command.FieldOperativeID, testutil.Leader, command.FieldOrder, "engage")
	s, _ = accept(t, e, s, command.EndActivation, command.FieldOperativeID, testutil.Leader)

	s = engaged(t, e, s, testutil.Boss)
	s, _ = accept(t, e, s, command.ActionUse, command.FieldOperativeID, testutil.Boss, command.FieldAction, "fight")
	s, _ = accept(t, e, s, command.StartMeleeAttack, command.FieldAttackerID, testutil.Boss,
		command.FieldDefenderID, testutil.Leader, command.FieldWeaponName, "claw")
	s, _ = accept(t, e, s, command.SetAttackRoll, command.FieldDice, []int{6, 1, 1, 1})
	s, _ = accept(t, e, s, command.LockAttackRoll)
	s, _ = accept(t, e, s, command.SetDefenseRoll, command.FieldDice, []int{1, 1, 1})
	s, _ = accept(t, e, s, command.LockDefenseRoll)
	s, _ = accept(t, e, s, command.WeaponRuleClick, command.FieldRule, "stun")
	s, _ = accept(t, e, s, command.ResolveCombat)
	s, _ = accept(t, e, s, command.EndActivation, command.FieldOperativeID, testutil.Boss)

	leader := s.Operative(testutil.Leader)
	require.Equal(t, state.Expended, leader.Readiness)
	require.True(t, leader.Effects.Has(effect.SideDefender, weaponrule.Stun))

	s, _ = accept(t, e, s, command.TurningPointEnd)
	require.Equal(t, state.PhaseStrategy, s.Phase)
	require.Equal(t, 2, s.TurningPoint)
	assert.True(t, s.Operative(testutil.Leader).Effects.Has(effect.SideDefender, weaponrule.Stun),
		"the stun waits for the leader's next activation")

	s, _ = accept(t, e, s, command.ReadyAllOperatives)
	s, _ = accept(t, e, s, command.SetInitiative, command.FieldPlayer, "p1")
	s, _ = accept(t, e, s, command.GainCP)
	s, _ = accept(t, e, s, command.PassStrategy, command.FieldPlayer, "p1")
	s, _ = accept(t, e, s, command.PassStrategy, command.FieldPlayer, "p2")
	s, _ = accept(t, e, s, command.EndStrategyPhase)

	s = engaged(t, e, s, testutil.Leader)
	assert.Equal(t, 2, s.Firefight.Activation.StartingAP, "APL 3 less the stun")
	s, events := accept(t, e, s, command.EndActivation, command.FieldOperativeID, testutil.Leader)
	assert.Contains(t, eventTypes(events), engine.EventEffectExpired)
	assert.False(t, s.Operative(testutil.Leader).Effects.Has(effect.SideDefender, weaponrule.Stun))
}

func TestApply_CounteractConsumesStun(t *testing.T) {
	e := newEngine()
	s := firefight(t, e)
	for _, op := range s.Living(state.P1) {
		op.Readiness = state.Expended
	}
	leader := s.Operative(testutil.Leader)
	leader.Order = state.OrderEngage
	leader.Effects.Upsert(effect.Effect{ID: weaponrule.Stun, Side: effect.SideDefender, Kind: effect.KindAPLModifier,
		Value: -1, Expiry: effect.EndOfNextActivation})

	s, _ = accept(t, e, s, command.Counteract, command.FieldPlayer, "p1", command.FieldOperativeID, testutil.Leader)
	s, _ = accept(t, e, s, command.ActionUse, command.FieldOperativeID, testutil.Leader, command.FieldAction, "dash")
	assert.Equal(t, 0, s.Firefight.Activation.APSpent, "a counteract never draws on the pool")

	s, events := accept(t, e, s, command.EndActivation, command.FieldOperativeID, testutil.Leader)
	assert.Contains(t, eventTypes(events), engine.EventEffectExpired)
	assert.False(t, s.Operative(testutil.Leader).Effects.Has(effect.SideDefender, weaponrule.Stun))
}

func TestApply_HeavyAndLimited(t *testing.T) {
	e := newEngine()
	s := firefight(t, e)
	s = shootAt(t, e, s, testutil.Gunner, "cannon", testutil.Boss)
	s, _ = accept(t, e, s, command.LockAttackRoll)
	s, _ = accept(t, e, s, command.LockDefenseRoll)
	s, _ = accept(t, e, s, command.ResolveCombat)
	require.Nil(t, s.Combat)

	assert.Equal(t, intent.CodeHeavyMoved, reject(t, e, s, command.ActionUse,
		command.FieldOperativeID, testutil.Gunner, command.FieldAction, "reposition"))
	assert.True(t, s.WeaponExhausted(testutil.Gunner, mustWeapon(t, s, testutil.Gunner, "cannon")))
}

func mustWeapon(t *testing.T, s *state.GameState, op, name string) state.Weapon {
	t.Helper()
	w, ok := s.Operative(op).Weapon(name)
	require.True(t, ok)
	return w
}

func TestApply_BlastQueue(t *testing.T) {
	e := newEngine()
	s := firefight(t, e)
	s = shootAt(t, e, s, testutil.Gunner, "cannon", testutil.Boss, command.FieldCover, true)
	s, _ = accept(t, e, s, command.SetSecondaryTargets, command.FieldTargetIDs, []string{testutil.Trooper})
	require.Len(t, s.Combat.Queue, 2)
	second := s.Combat.Queue[1].Modifiers
	assert.True(t, second.Cover)
	assert.True(t, second.IgnoreConceal)
	assert.True(t, second.Inherited)

	s, _ = accept(t, e, s, command.SetAttackRoll, command.FieldDice, []int{1, 1, 1, 1})
	s, _ = accept(t, e, s, command.LockAttackRoll)
	s, _ = accept(t, e, s, command.LockDefenseRoll)
	s, events := accept(t, e, s, command.ResolveCombat)
	require.NotNil(t, s.Combat)
	assert.Contains(t, eventTypes(events), engine.EventQueueAdvanced)
	assert.Equal(t, testutil.Trooper, s.Combat.DefenderID)
	assert.Equal(t, testutil.Trooper, s.DefendingOperativeID)
	assert.Equal(t, state.StageAttackRolling, s.Combat.Stage)
	assert.False(t, s.Combat.AttackLocked)

	s, _ = accept(t, e, s, command.LockAttackRoll)
	s, _ = accept(t, e, s, command.LockDefenseRoll)
	s, _ = accept(t, e, s, command.ResolveCombat)
	assert.Nil(t, s.Combat)
}

func TestApply_AdvanceQueueStepwise(t *testing.T) {
	e := newEngine()
	s := firefight(t, e)
	s = shootAt(t, e, s, testutil.Gunner, "cannon", testutil.Boss)
	s, _ = accept(t, e, s, command.SetSecondaryTargets, command.FieldTargetIDs, []string{testutil.Trooper})

	noBlocks := []any{
		command.FieldCritSavesOnCrits, 0, command.FieldCritSavesOnHits, 0,
		command.FieldSavesOnHits, 0, command.FieldSavePairsOnCrits, 0,
	}
	finish := func(s *state.GameState) *state.GameState {
		s, _ = accept(t, e, s, command.SetAttackRoll, command.FieldDice, []int{1, 1, 1, 1})
		s, _ = accept(t, e, s, command.LockAttackRoll)
		s, _ = accept(t, e, s, command.LockDefenseRoll)
		s, _ = accept(t, e, s, command.SetBlocksResult, noBlocks...)
		s, _ = accept(t, e, s, command.ApplyDamage)
		require.Equal(t, state.StageDone, s.Combat.Stage)
		return s
	}

	s = finish(s)
	s, _ = accept(t, e, s, command.AdvanceAttackQueue)
	assert.Equal(t, testutil.Trooper, s.Combat.DefenderID)
	assert.Equal(t, state.StageAttackRolling, s.Combat.Stage)

	s = finish(s)
	assert.Equal(t, intent.CodeQueueExhausted, reject(t, e, s, command.AdvanceAttackQueue))
	s, _ = accept(t, e, s, command.ClearCombatState)
	assert.Nil(t, s.Combat)
}

func TestApply_ShootFlow(t *testing.T) {
	e := newEngine()
	s := firefight(t, e)
	s = engaged(t, e, s, testutil.Leader)
	s, _ = accept(t, e, s, command.FlowStartShoot, command.FieldPlayer, "p1", command.FieldOperativeID, testutil.Leader)
	assert.Equal(t, intent.CodeFlowInProgress, reject(t, e, s, command.ActionUse,
		command.FieldOperativeID, testutil.Leader, command.FieldAction, "dash"))
	assert.Equal(t, intent.CodeFlowStep, reject(t, e, s, command.FlowLockWeapon))

	s, _ = accept(t, e, s, command.FlowSetTarget, command.FieldTargetID, testutil.Boss)
	assert.Equal(t, intent.CodeWrongWeaponMode, reject(t, e, s, command.FlowSetWeapon, command.FieldWeaponName, "blade"))
	s, _ = accept(t, e, s, command.FlowSetWeapon, command.FieldWeaponName, "rifle")
	s, _ = accept(t, e, s, command.FlowLockWeapon)
	require.NotNil(t, s.Combat)
	assert.Equal(t, state.FlowWeaponLocked, s.Flow.Step)
	assert.Equal(t, 1, s.Firefight.Activation.APSpent)

	assert.Equal(t, intent.CodeStageMismatch, reject(t, e, s, command.FlowRollDice,
		command.FieldSide, "defense", command.FieldDice, []int{1, 1, 1}))
	s, _ = accept(t, e, s, command.FlowRollDice, command.FieldSide, "attack", command.FieldDice, []int{3, 1, 1, 1})
	assert.True(t, s.Combat.AttackLocked)
	s, _ = accept(t, e, s, command.FlowRollDice, command.FieldSide, "defense", command.FieldDice, []int{1, 1, 1})
	s, events := accept(t, e, s, command.FlowResolveAction)

	assert.Nil(t, s.Flow)
	assert.Nil(t, s.Combat)
	assert.Equal(t, 9, s.Operative(testutil.Boss).Wounds)
	assert.Equal(t, engine.EventFlowCompleted, events[len(events)-1].Type)
}

func TestApply_FlowCancelBeforeLock(t *testing.T) {
	e := newEngine()
	s := firefight(t, e)
	s = engaged(t, e, s, testutil.Leader)
	s, _ = accept(t, e, s, command.FlowStartShoot, command.FieldPlayer, "p1", command.FieldOperativeID, testutil.Leader)
	s, _ = accept(t, e, s, command.FlowSetTarget, command.FieldTargetID, testutil.Boss)
	s, _ = accept(t, e, s, command.FlowSetWeapon, command.FieldWeaponName, "rifle")
	s, _ = accept(t, e, s, command.FlowLockWeapon)
	s, _ = accept(t, e, s, command.FlowCancel)
	assert.Nil(t, s.Flow)
	assert.Nil(t, s.Combat)
	assert.True(t, s.Firefight.Activation.Took(state.ActionShoot))
}

func TestApply_HotSelfDamage(t *testing.T) {
	e := newEngine()
	s := firefight(t, e)
	s = shootAt(t, e, s, testutil.Burner, "flamer", testutil.Boss)
	s, _ = accept(t, e, s, command.SetAttackRoll, command.FieldDice, []int{1, 1, 1, 1, 1})
	s, _ = accept(t, e, s, command.LockAttackRoll)
	s, _ = accept(t, e, s, command.LockDefenseRoll)
	s, _ = accept(t, e, s, command.WeaponRuleClick, command.FieldRule, "hot")
	s, _ = accept(t, e, s, command.ResolveCombat)

	burner := s.Operative(testutil.Burner)
	require.True(t, burner.Effects.Has(effect.SideAttacker, weaponrule.Hot))
	s, events := accept(t, e, s, command.ResolveEffect, command.FieldOperativeID, testutil.Burner,
		command.FieldEffect, "hot", command.FieldRoll, 1)
	assert.Equal(t, 6, s.Operative(testutil.Burner).Wounds)
	assert.Equal(t, engine.EventEffectResolved, events[0].Type)
	assert.Equal(t, intent.CodeNoPendingEffect, reject(t, e, s, command.ResolveEffect,
		command.FieldOperativeID, testutil.Burner, command.FieldEffect, "hot", command.FieldRoll, 1))
}

func TestApply_RuleClickRejections(t *testing.T) {
	e := newEngine()
	s := firefight(t, e)
	s = shootAt(t, e, s, testutil.Leader, "rifle", testutil.Boss)
	// The rifle has no Balanced rule.
	s, _ = accept(t, e, s, command.SetAttackRoll, command.FieldDice, []int{1, 1, 1, 1})
	code := reject(t, e, s, command.WeaponRuleClick, command.FieldRule, "balanced",
		command.FieldRerollIndexes, []int{0}, command.FieldRerollValues, []int{6})
	assert.Equal(t, "RULE_NOT_PRESENT", code)
	assert.Equal(t, "RULE_IS_AUTOMATIC", reject(t, e, s, command.WeaponRuleClick, command.FieldRule, "piercing_crits"))
}

func TestApply_RerollRejections(t *testing.T) {
	e := newEngine()
	s := engaged(t, e, firefight(t, e), testutil.Leader)
	s, _ = accept(t, e, s, command.EndActivation, command.FieldOperativeID, testutil.Leader)
	s = engaged(t, e, s, testutil.Boss)
	s, _ = accept(t, e, s, command.ActionUse, command.FieldOperativeID, testutil.Boss, command.FieldAction, "fight")
	s, _ = accept(t, e, s, command.StartMeleeAttack, command.FieldAttackerID, testutil.Boss,
		command.FieldDefenderID, testutil.Leader, command.FieldWeaponName, "claw")
	s, _ = accept(t, e, s, command.SetAttackRoll, command.FieldDice, []int{6, 1, 1, 1})
	s, _ = accept(t, e, s, command.LockAttackRoll)
	s, _ = accept(t, e, s, command.SetDefenseRoll, command.FieldDice, []int{1, 1, 1})
	s, _ = accept(t, e, s, command.LockDefenseRoll)

	assert.Equal(t, intent.CodeBadDieIndex, reject(t, e, s, command.WeaponRuleClick, command.FieldRule, "stun",
		command.FieldRerollIndexes, []int{9}, command.FieldRerollValues, []int{6}))
	// Stun re-rolls nothing.
	assert.Equal(t, intent.CodeTooManyRerolls, reject(t, e, s, command.WeaponRuleClick, command.FieldRule, "stun",
		command.FieldRerollIndexes, []int{1}, command.FieldRerollValues, []int{6}))
}

func TestApply_ActionPointsNeverOverspent(t *testing.T) {
	actions := []string{"reposition", "dash", "fall_back", "charge", "shoot", "fight", "pick_up", "place_marker", "guard", "teleport"}
	e := newEngine()
	base := engaged(t, e, firefight(t, e), testutil.Leader)
	start := base.Firefight.Activation.StartingAP
	rapid.Check(t, func(rt *rapid.T) {
		s := base
		for _, a := range rapid.SliceOfN(rapid.SampledFrom(actions), 0, 12).Draw(rt, "actions") {
			s = e.Apply(s, command.New(command.ActionUse, command.FieldOperativeID, testutil.Leader, command.FieldAction, a)).State
			act := s.Firefight.Activation
			if act.APSpent > start {
				rt.Fatalf("spent %d AP of %d", act.APSpent, start)
			}
			if s.Operative(testutil.Leader).AP != start-act.APSpent {
				rt.Fatalf("operative AP %d out of step with activation", s.Operative(testutil.Leader).AP)
			}
		}
	})
}
