// Package postgres persists relay games and their ordered command logs in
// PostgreSQL using pgx v5.
package postgres

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"go.uber.org/zap"

	"github.com/cory-johannsen/skirmish/internal/config"
)

// applicationName tags relay connections in pg_stat_activity.
const applicationName = "skirmish-relay"

// Pool owns the relay's connection pool.
type Pool struct {
	pool   *pgxpool.Pool
	logger *zap.Logger
}

// NewPool connects to the database described by cfg and verifies it with a ping.
//
// Precondition: cfg must have passed Validate; logger must be non-nil.
// Postcondition: Returns a connected Pool or a non-nil error; no connections
// are left open on error.
func NewPool(ctx context.Context, cfg config.DatabaseConfig, logger *zap.Logger) (*Pool, error) {
	start := time.Now()

	poolCfg, err := pgxpool.ParseConfig(cfg.DSN())
	if err != nil {
		return nil, fmt.Errorf("parsing database config: %w", err)
	}
	poolCfg.MaxConns = cfg.MaxConns
	poolCfg.MinConns = cfg.MinConns
	poolCfg.MaxConnLifetime = cfg.MaxConnLifetime
	poolCfg.ConnConfig.RuntimeParams["application_name"] = applicationName

	pool, err := pgxpool.NewWithConfig(ctx, poolCfg)
	if err != nil {
		return nil, fmt.Errorf("creating connection pool: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("pinging %s:%d: %w", cfg.Host, cfg.Port, err)
	}

	logger.Info("database connected",
		zap.String("host", cfg.Host),
		zap.String("database", cfg.Name),
		zap.Int32("max_conns", cfg.MaxConns),
		zap.Duration("elapsed", time.Since(start)),
	)
	return &Pool{pool: pool, logger: logger}, nil
}

// Health pings the database, failing if it does not answer within timeout.
func (p *Pool) Health(ctx context.Context, timeout time.Duration) error {
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()
	if err := p.pool.Ping(ctx); err != nil {
		return fmt.Errorf("database health: %w", err)
	}
	return nil
}

// RelayStore returns a relay store sharing this pool.
func (p *Pool) RelayStore() *RelayStore {
	return NewRelayStore(p.pool)
}

// Close releases every pooled connection.
//
// Postcondition: The pool and every store built from it are unusable.
func (p *Pool) Close() {
	p.pool.Close()
	p.logger.Info("database pool closed")
}

// DB exposes the underlying pgx pool.
func (p *Pool) DB() *pgxpool.Pool {
	return p.pool
}
