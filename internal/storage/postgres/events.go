package postgres

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/cory-johannsen/skirmish/internal/game/command"
)

// ErrSeqExists is returned when a sequence number is recorded twice for one game.
var ErrSeqExists = errors.New("relay event already recorded")

// EventStore persists the ordered command log of relay games.
type EventStore struct {
	db *pgxpool.Pool
}

// NewEventStore creates an EventStore backed by the given pool.
//
// Precondition: db must be a valid, open connection pool.
func NewEventStore(db *pgxpool.Pool) *EventStore {
	return &EventStore{db: db}
}

// Append records one stamped command.
//
// Precondition: the game code must already be recorded by SessionClock.Create.
// Postcondition: Returns ErrSeqExists if env.Seq is already recorded for code.
func (s *EventStore) Append(ctx context.Context, code string, env command.Envelope) error {
	payload, err := json.Marshal(env.Command.Payload)
	if err != nil {
		return fmt.Errorf("encoding payload: %w", err)
	}
	if env.Command.Payload == nil {
		payload = []byte("{}")
	}
	_, err = s.db.Exec(ctx,
		`INSERT INTO relay_events (code, seq, slot, type, payload, created_at)
		 VALUES ($1, $2, $3, $4, $5, $6)`,
		code, int64(env.Seq), env.Slot, string(env.Command.Type), payload, env.At,
	)
	if err != nil {
		if isDuplicateKeyError(err) {
			return ErrSeqExists
		}
		return fmt.Errorf("inserting relay event: %w", err)
	}
	return nil
}

// List returns every recorded command of game code in sequence order.
//
// Postcondition: Returns an empty slice for an unknown code.
func (s *EventStore) List(ctx context.Context, code string) ([]command.Envelope, error) {
	rows, err := s.db.Query(ctx,
		`SELECT seq, slot, type, payload, created_at
		 FROM relay_events WHERE code = $1 ORDER BY seq`,
		code,
	)
	if err != nil {
		return nil, fmt.Errorf("querying relay events: %w", err)
	}
	defer rows.Close()

	out := []command.Envelope{}
	for rows.Next() {
		var (
			env     command.Envelope
			seq     int64
			typ     string
			payload []byte
		)
		if err := rows.Scan(&seq, &env.Slot, &typ, &payload, &env.At); err != nil {
			return nil, fmt.Errorf("scanning relay event: %w", err)
		}
		env.Seq = uint64(seq)
		env.Command.Type = command.Type(typ)
		if err := json.Unmarshal(payload, &env.Command.Payload); err != nil {
			return nil, fmt.Errorf("decoding payload of event %d: %w", seq, err)
		}
		out = append(out, env)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating relay events: %w", err)
	}
	return out, nil
}
