package relay

import (
	"context"
	"time"

	"github.com/cory-johannsen/skirmish/internal/game/command"
)

// Store records relay games and their command logs. The relay works without
// one; NopStore is used in standalone mode.
type Store interface {
	// CreateGame records a new game code.
	CreateGame(ctx context.Context, code string, at time.Time) error
	// StartGame records the time of the game's first submission.
	StartGame(ctx context.Context, code string, at time.Time) error
	// AppendCommand records one stamped submission.
	AppendCommand(ctx context.Context, code string, env command.Envelope) error
	// EndGame records the time the game was closed.
	EndGame(ctx context.Context, code string, at time.Time) error
}

// NopStore discards everything.
type NopStore struct{}

func (NopStore) CreateGame(context.Context, string, time.Time) error           { return nil }
func (NopStore) StartGame(context.Context, string, time.Time) error            { return nil }
func (NopStore) AppendCommand(context.Context, string, command.Envelope) error { return nil }
func (NopStore) EndGame(context.Context, string, time.Time) error              { return nil }
