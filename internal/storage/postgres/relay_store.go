package postgres

import (
	"context"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/cory-johannsen/skirmish/internal/game/command"
)

// RelayStore records relay games through a SessionClock and an EventStore.
type RelayStore struct {
	Clock  *SessionClock
	Events *EventStore
}

// NewRelayStore creates a RelayStore backed by the given pool.
//
// Precondition: db must be a valid, open connection pool.
func NewRelayStore(db *pgxpool.Pool) *RelayStore {
	return &RelayStore{Clock: NewSessionClock(db), Events: NewEventStore(db)}
}

func (r *RelayStore) CreateGame(ctx context.Context, code string, at time.Time) error {
	return r.Clock.Create(ctx, code, at)
}

func (r *RelayStore) StartGame(ctx context.Context, code string, at time.Time) error {
	return r.Clock.Start(ctx, code, at)
}

func (r *RelayStore) AppendCommand(ctx context.Context, code string, env command.Envelope) error {
	return r.Events.Append(ctx, code, env)
}

func (r *RelayStore) EndGame(ctx context.Context, code string, at time.Time) error {
	return r.Clock.End(ctx, code, at)
}
