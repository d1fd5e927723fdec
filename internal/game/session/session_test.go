package session_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"pgregory.net/rapid"

	"github.com/cory-johannsen/skirmish/internal/game/command"
	"github.com/cory-johannsen/skirmish/internal/game/dice"
	"github.com/cory-johannsen/skirmish/internal/game/engine"
	"github.com/cory-johannsen/skirmish/internal/game/intent"
	"github.com/cory-johannsen/skirmish/internal/game/session"
	"github.com/cory-johannsen/skirmish/internal/game/state"
	"github.com/cory-johannsen/skirmish/internal/testutil"
)

func newSession(t testing.TB, seed uint64) *session.Session {
	t.Helper()
	logger := zap.NewNop()
	return session.New(testutil.NewGame(t), engine.New(logger), dice.NewLoggedRoller(dice.NewSeededSource(seed), logger), logger)
}

func submit(t testing.TB, s *session.Session, typ command.Type, kv ...any) engine.Decision {
	t.Helper()
	d := s.Submit(command.New(typ, kv...))
	require.True(t, d.Accepted(), "%s rejected: %v", typ, d.Issues)
	return d
}

// toAttack plays the strategy phase and has the leader declare a rifle shot at the boss.
func toAttack(t testing.TB, s *session.Session) {
	t.Helper()
	submit(t, s, command.StartGame)
	submit(t, s, command.ReadyAllOperatives)
	submit(t, s, command.SetInitiative, command.FieldPlayer, "p1")
	submit(t, s, command.GainCP)
	submit(t, s, command.PassStrategy, command.FieldPlayer, "p1")
	submit(t, s, command.PassStrategy, command.FieldPlayer, "p2")
	submit(t, s, command.EndStrategyPhase)
	submit(t, s, command.SetActiveOperative, command.FieldPlayer, "p1", command.FieldOperativeID, testutil.Leader)
	submit(t, s, command.SetOrder, command.FieldOperativeID, testutil.Leader, command.FieldOrder, "engage")
	submit(t, s, command.ActionUse, command.FieldOperativeID, testutil.Leader, command.FieldAction, "shoot")
	submit(t, s, command.StartRangedAttack,
		command.FieldAttackerID, testutil.Leader,
		command.FieldDefenderID, testutil.Boss,
		command.FieldWeaponName, "rifle")
}

func TestSubmit_RollsOmittedDice(t *testing.T) {
	s := newSession(t, 7)
	toAttack(t, s)

	submit(t, s, command.SetAttackRoll)
	cs := s.State().Combat
	require.NotNil(t, cs)
	assert.Len(t, cs.AttackDice, 4)
	assert.True(t, cs.AttackDice.Valid())

	submit(t, s, command.LockAttackRoll)
	submit(t, s, command.SetDefenseRoll)
	cs = s.State().Combat
	assert.Len(t, cs.DefenseDice, cs.Context.DefenseDiceAllowed())
}

func TestSubmit_KeepsSuppliedDice(t *testing.T) {
	s := newSession(t, 7)
	toAttack(t, s)
	submit(t, s, command.SetAttackRoll, command.FieldDice, []int{1, 2, 3, 4})
	assert.Equal(t, dice.Pool{1, 2, 3, 4}, s.State().Combat.AttackDice)
}

func TestSubmit_RejectionIsNotLogged(t *testing.T) {
	s := newSession(t, 7)
	before := s.State()
	d := s.Submit(command.New(command.LockAttackRoll))
	require.False(t, d.Accepted())
	assert.Equal(t, intent.CodeNoCombat, d.Issues[0].Code)
	assert.Same(t, before, s.State())
	assert.Empty(t, s.Entries())
}

func TestSubmit_SameSeedSameGame(t *testing.T) {
	a, b := newSession(t, 42), newSession(t, 42)
	for _, s := range []*session.Session{a, b} {
		toAttack(t, s)
		submit(t, s, command.SetAttackRoll)
		submit(t, s, command.LockAttackRoll)
		submit(t, s, command.SetDefenseRoll)
		submit(t, s, command.LockDefenseRoll)
		submit(t, s, command.ResolveCombat)
	}
	assert.Equal(t, a.State(), b.State())
	assert.Equal(t, a.Lines(), b.Lines())
}

func TestComplete_RollsEffectDie(t *testing.T) {
	s := newSession(t, 3)
	cmd := s.Complete(command.New(command.ResolveEffect, command.FieldOperativeID, testutil.Burner, command.FieldEffect, "hot"))
	roll, ok := cmd.Payload.Int(command.FieldRoll)
	require.True(t, ok)
	assert.GreaterOrEqual(t, roll, 1)
	assert.LessOrEqual(t, roll, 6)
}

func TestComplete_FlowRollBySide(t *testing.T) {
	s := newSession(t, 3)
	toAttack(t, s)
	cmd := s.Complete(command.New(command.FlowRollDice, command.FieldSide, intent.SideAttack))
	d, ok := cmd.Payload.Ints(command.FieldDice)
	require.True(t, ok)
	assert.Len(t, d, 4)

	unknown := command.New(command.FlowRollDice, command.FieldSide, "sideways")
	assert.Equal(t, unknown, s.Complete(unknown))
}

func TestUndoRedo(t *testing.T) {
	s := newSession(t, 1)
	initial := s.State()
	assert.False(t, s.Undo())

	submit(t, s, command.StartGame)
	started := s.State()
	require.Equal(t, state.PhaseStrategy, started.Phase)

	require.True(t, s.Undo())
	assert.Same(t, initial, s.State())
	assert.False(t, s.Undo())

	require.True(t, s.Redo())
	assert.Same(t, started, s.State())
	assert.False(t, s.Redo())
}

func TestUndo_ThenSubmitDropsRedo(t *testing.T) {
	s := newSession(t, 1)
	submit(t, s, command.StartGame)
	submit(t, s, command.ReadyAllOperatives)
	require.True(t, s.Undo())
	submit(t, s, command.SetInitiative, command.FieldPlayer, "p2")
	assert.False(t, s.Redo())
	assert.Len(t, s.Entries(), 2)
}

func relayed(seq uint64, slot string, typ command.Type, kv ...any) command.Envelope {
	return command.Envelope{Seq: seq, Slot: slot, Command: command.New(typ, kv...)}
}

func TestApplyRelayed_Ordering(t *testing.T) {
	s := newSession(t, 1)

	d, err := s.ApplyRelayed(relayed(1, "p1", command.StartGame))
	require.NoError(t, err)
	assert.True(t, d.Accepted())
	assert.Equal(t, uint64(1), s.Seq())

	// duplicate delivery is ignored
	dup := s.State()
	d, err = s.ApplyRelayed(relayed(1, "p1", command.StartGame))
	require.NoError(t, err)
	assert.Empty(t, d.Events)
	assert.Same(t, dup, s.State())

	_, err = s.ApplyRelayed(relayed(3, "p2", command.ReadyAllOperatives))
	assert.ErrorIs(t, err, session.ErrSequenceGap)
	assert.Equal(t, uint64(1), s.Seq())
}

func TestApplyRelayed_RejectionAdvancesSequence(t *testing.T) {
	s := newSession(t, 1)
	d, err := s.ApplyRelayed(relayed(1, "p2", command.LockDefenseRoll))
	require.NoError(t, err)
	assert.False(t, d.Accepted())
	assert.Equal(t, uint64(1), s.Seq())
	assert.Empty(t, s.Entries())

	d, err = s.ApplyRelayed(relayed(2, "p1", command.StartGame))
	require.NoError(t, err)
	assert.True(t, d.Accepted())
}

func TestApplyRelayed_ReplicasConverge(t *testing.T) {
	script := []command.Command{
		command.New(command.StartGame),
		command.New(command.ReadyAllOperatives),
		command.New(command.SetInitiative, command.FieldPlayer, "p2"),
		command.New(command.GainCP),
		command.New(command.PassStrategy, command.FieldPlayer, "p1"),
		command.New(command.PassStrategy, command.FieldPlayer, "p2"),
		command.New(command.EndStrategyPhase),
		command.New(command.SetActiveOperative, command.FieldPlayer, "p2", command.FieldOperativeID, testutil.Boss),
		command.New(command.SetOrder, command.FieldOperativeID, testutil.Boss, command.FieldOrder, "engage"),
		command.New(command.EndActivation, command.FieldOperativeID, testutil.Boss),
	}
	rapid.Check(t, func(rt *rapid.T) {
		// replicas seeded differently must still agree: every die travels in the envelope
		a, b := newSession(t, rapid.Uint64().Draw(rt, "seedA")), newSession(t, rapid.Uint64().Draw(rt, "seedB"))
		n := rapid.IntRange(1, len(script)).Draw(rt, "n")
		for i, cmd := range script[:n] {
			env := command.Envelope{Seq: uint64(i + 1), Slot: "p1", Command: cmd}
			_, errA := a.ApplyRelayed(env)
			_, errB := b.ApplyRelayed(env)
			if errA != nil || errB != nil {
				rt.Fatalf("apply %d: %v %v", i, errA, errB)
			}
		}
		if a.Seq() != b.Seq() {
			rt.Fatalf("seq %d != %d", a.Seq(), b.Seq())
		}
		if len(a.Lines()) != len(b.Lines()) {
			rt.Fatalf("log diverged")
		}
	})
}
