// Package history records accepted commands as an undoable log. Each entry
// keeps the state snapshots on either side of its command, so undo and redo
// restore state exactly rather than replaying rules.
package history

import (
	"time"

	"github.com/google/uuid"

	"github.com/cory-johannsen/skirmish/internal/game/command"
	"github.com/cory-johannsen/skirmish/internal/game/engine"
	"github.com/cory-johannsen/skirmish/internal/game/state"
)

// Entry is one accepted command.
type Entry struct {
	ID      uuid.UUID
	At      time.Time
	Command command.Command
	// Summary is the first event's summary, or the command type when it
	// produced no events.
	Summary  string
	Events   []engine.Event
	Metadata map[string]any
	Before   *state.GameState
	After    *state.GameState
}

// Lines returns the summaries of every event in e.
func (e Entry) Lines() []string {
	out := make([]string, 0, len(e.Events))
	for _, ev := range e.Events {
		out = append(out, ev.Summary)
	}
	return out
}

// Log is an ordered list of entries with an undo cursor. Entries before the
// cursor are applied; entries at or after it are redoable.
//
// Invariant: 0 <= cursor <= len(entries).
// It is not safe for concurrent use; the caller must serialise access.
type Log struct {
	entries []Entry
	cursor  int
	now     func() time.Time
}

// NewLog returns an empty Log stamping entries with now. A nil now uses time.Now.
func NewLog(now func() time.Time) *Log {
	if now == nil {
		now = time.Now
	}
	return &Log{now: now}
}

// Push records an accepted command and discards any redoable entries.
//
// Precondition: before and after must be non-nil snapshots that are never mutated afterwards.
// Postcondition: the new entry is the last applied entry and CanRedo() is false.
func (l *Log) Push(cmd command.Command, events []engine.Event, before, after *state.GameState) Entry {
	summary := string(cmd.Type)
	if len(events) > 0 {
		summary = events[0].Summary
	}
	e := Entry{
		ID:      uuid.New(),
		At:      l.now(),
		Command: cmd.Clone(),
		Summary: summary,
		Events:  append([]engine.Event(nil), events...),
		Metadata: map[string]any{
			"phase":        string(after.Phase),
			"turningPoint": after.TurningPoint,
		},
		Before: before,
		After:  after,
	}
	l.entries = append(l.entries[:l.cursor], e)
	l.cursor = len(l.entries)
	return e
}

// Undo steps the cursor back and returns the entry undone. The caller
// restores entry.Before.
func (l *Log) Undo() (Entry, bool) {
	if l.cursor == 0 {
		return Entry{}, false
	}
	l.cursor--
	return l.entries[l.cursor], true
}

// Redo steps the cursor forward and returns the entry redone. The caller
// restores entry.After.
func (l *Log) Redo() (Entry, bool) {
	if l.cursor == len(l.entries) {
		return Entry{}, false
	}
	e := l.entries[l.cursor]
	l.cursor++
	return e, true
}

// CanUndo reports whether an applied entry exists.
func (l *Log) CanUndo() bool { return l.cursor > 0 }

// CanRedo reports whether an undone entry exists.
func (l *Log) CanRedo() bool { return l.cursor < len(l.entries) }

// Len returns the number of applied entries.
func (l *Log) Len() int { return l.cursor }

// Entries returns the applied entries, oldest first.
func (l *Log) Entries() []Entry {
	return append([]Entry(nil), l.entries[:l.cursor]...)
}

// Lines returns every event summary of the applied entries, oldest first.
func (l *Log) Lines() []string {
	var out []string
	for _, e := range l.entries[:l.cursor] {
		out = append(out, e.Lines()...)
	}
	return out
}
