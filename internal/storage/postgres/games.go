package postgres

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
)

// ErrGameNotFound is returned when a relay game lookup yields no results.
var ErrGameNotFound = errors.New("relay game not found")

// ErrGameExists is returned when a relay game code is recorded twice.
var ErrGameExists = errors.New("relay game already exists")

// GameTimes is the recorded lifetime of one relay game. StartedAt and EndedAt
// are nil until the game's first command and its close.
type GameTimes struct {
	Code      string
	CreatedAt time.Time
	StartedAt *time.Time
	EndedAt   *time.Time
}

// SessionClock records when relay games are created, start, and end.
type SessionClock struct {
	db *pgxpool.Pool
}

// NewSessionClock creates a SessionClock backed by the given pool.
//
// Precondition: db must be a valid, open connection pool.
func NewSessionClock(db *pgxpool.Pool) *SessionClock {
	return &SessionClock{db: db}
}

// Create records a new game code.
//
// Postcondition: Returns ErrGameExists if the code is already recorded.
func (c *SessionClock) Create(ctx context.Context, code string, at time.Time) error {
	_, err := c.db.Exec(ctx,
		`INSERT INTO relay_games (code, created_at) VALUES ($1, $2)`,
		code, at,
	)
	if err != nil {
		if isDuplicateKeyError(err) {
			return ErrGameExists
		}
		return fmt.Errorf("inserting relay game: %w", err)
	}
	return nil
}

// Start records the first command time. Later calls keep the first time.
func (c *SessionClock) Start(ctx context.Context, code string, at time.Time) error {
	return c.stamp(ctx,
		`UPDATE relay_games SET started_at = COALESCE(started_at, $2) WHERE code = $1`,
		code, at)
}

// End records the close time.
func (c *SessionClock) End(ctx context.Context, code string, at time.Time) error {
	return c.stamp(ctx, `UPDATE relay_games SET ended_at = $2 WHERE code = $1`, code, at)
}

func (c *SessionClock) stamp(ctx context.Context, sql, code string, at time.Time) error {
	tag, err := c.db.Exec(ctx, sql, code, at)
	if err != nil {
		return fmt.Errorf("updating relay game %s: %w", code, err)
	}
	if tag.RowsAffected() == 0 {
		return ErrGameNotFound
	}
	return nil
}

// Get returns the recorded times of game code.
//
// Postcondition: Returns ErrGameNotFound if the code is unknown.
func (c *SessionClock) Get(ctx context.Context, code string) (GameTimes, error) {
	var g GameTimes
	err := c.db.QueryRow(ctx,
		`SELECT code, created_at, started_at, ended_at FROM relay_games WHERE code = $1`,
		code,
	).Scan(&g.Code, &g.CreatedAt, &g.StartedAt, &g.EndedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return GameTimes{}, ErrGameNotFound
		}
		return GameTimes{}, fmt.Errorf("querying relay game: %w", err)
	}
	return g, nil
}

func isDuplicateKeyError(err error) bool {
	// SQLSTATE 23505 is unique_violation
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return pgErr.Code == "23505"
	}
	return false
}
