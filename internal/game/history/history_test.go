package history_test

import (
	"fmt"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"pgregory.net/rapid"

	"github.com/cory-johannsen/skirmish/internal/game/command"
	"github.com/cory-johannsen/skirmish/internal/game/engine"
	"github.com/cory-johannsen/skirmish/internal/game/history"
	"github.com/cory-johannsen/skirmish/internal/game/state"
)

func snapshot(tp int) *state.GameState {
	return &state.GameState{Phase: state.PhaseStrategy, TurningPoint: tp}
}

func push(l *history.Log, n int) history.Entry {
	ev := engine.Event{Type: engine.EventCPGained, Summary: fmt.Sprintf("entry %d", n)}
	return l.Push(command.New(command.GainCP), []engine.Event{ev}, snapshot(n), snapshot(n+1))
}

func TestLog_PushStampsEntries(t *testing.T) {
	at := time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC)
	l := history.NewLog(func() time.Time { return at })
	e := push(l, 1)
	assert.Equal(t, at, e.At)
	assert.NotEqual(t, uuid.Nil, e.ID)
	assert.Equal(t, "entry 1", e.Summary)
	assert.Equal(t, 2, e.Metadata["turningPoint"])
	assert.Equal(t, 1, l.Len())
}

func TestLog_SummaryFallsBackToCommandType(t *testing.T) {
	l := history.NewLog(nil)
	e := l.Push(command.New(command.PassStrategy), nil, snapshot(1), snapshot(1))
	assert.Equal(t, string(command.PassStrategy), e.Summary)
}

func TestLog_UndoRedo(t *testing.T) {
	l := history.NewLog(nil)
	for i := 1; i <= 3; i++ {
		push(l, i)
	}
	e, ok := l.Undo()
	require.True(t, ok)
	assert.Equal(t, 3, e.Before.TurningPoint)
	e, ok = l.Undo()
	require.True(t, ok)
	assert.Equal(t, 2, e.Before.TurningPoint)
	assert.Equal(t, []string{"entry 1"}, l.Lines())

	e, ok = l.Redo()
	require.True(t, ok)
	assert.Equal(t, 3, e.After.TurningPoint)
	assert.True(t, l.CanRedo())
}

func TestLog_PushDiscardsRedo(t *testing.T) {
	l := history.NewLog(nil)
	push(l, 1)
	push(l, 2)
	l.Undo()
	push(l, 7)
	assert.False(t, l.CanRedo())
	assert.Equal(t, []string{"entry 1", "entry 7"}, l.Lines())
	_, ok := l.Redo()
	assert.False(t, ok)
}

func TestLog_EmptyUndo(t *testing.T) {
	l := history.NewLog(nil)
	_, ok := l.Undo()
	assert.False(t, ok)
	assert.False(t, l.CanUndo())
	assert.Empty(t, l.Entries())
}

func TestLog_CursorStaysInRange(t *testing.T) {
	rapid.Check(t, func(rt *rapid.T) {
		l := history.NewLog(nil)
		pushed := 0
		for _, op := range rapid.SliceOf(rapid.IntRange(0, 2)).Draw(rt, "ops") {
			switch op {
			case 0:
				pushed++
				push(l, pushed)
			case 1:
				l.Undo()
			case 2:
				l.Redo()
			}
			if l.Len() < 0 || l.Len() > pushed {
				rt.Fatalf("cursor %d outside [0, %d]", l.Len(), pushed)
			}
			if len(l.Entries()) != l.Len() {
				rt.Fatalf("entries %d != len %d", len(l.Entries()), l.Len())
			}
		}
	})
}
