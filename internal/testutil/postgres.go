package testutil

import (
	"context"
	"fmt"
	"path/filepath"
	"runtime"
	"testing"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/wait"
	"go.uber.org/zap/zaptest"

	"github.com/cory-johannsen/skirmish/internal/config"
	"github.com/cory-johannsen/skirmish/internal/storage/postgres"
)

const (
	pgImage    = "postgres:16-alpine"
	pgUser     = "relay"
	pgPassword = "relay"
	pgDatabase = "relay_test"
)

// PostgresContainer is a disposable PostgreSQL instance for integration tests.
type PostgresContainer struct {
	container testcontainers.Container
	Pool      *postgres.Pool
	RawPool   *pgxpool.Pool
	Config    config.DatabaseConfig
}

// NewPostgresContainer starts a PostgreSQL container and connects a Pool to
// it. It skips the test under -short. The container is terminated at cleanup.
//
// Precondition: Docker must be available.
// Postcondition: Returns a running container with a connected pool,
// or fails the test.
func NewPostgresContainer(t *testing.T) *PostgresContainer {
	t.Helper()
	if testing.Short() {
		t.Skip("skipping postgres container test in short mode")
	}
	ctx := context.Background()
	start := time.Now()

	container, err := testcontainers.GenericContainer(ctx, testcontainers.GenericContainerRequest{
		ContainerRequest: testcontainers.ContainerRequest{
			Image:        pgImage,
			ExposedPorts: []string{"5432/tcp"},
			Env: map[string]string{
				"POSTGRES_USER":     pgUser,
				"POSTGRES_PASSWORD": pgPassword,
				"POSTGRES_DB":       pgDatabase,
			},
			// postgres restarts once after initdb
			WaitingFor: wait.ForLog("database system is ready to accept connections").
				WithOccurrence(2).
				WithStartupTimeout(30 * time.Second),
		},
		Started: true,
	})
	if err != nil {
		t.Fatalf("starting %s: %v [%s]", pgImage, err, time.Since(start))
	}
	t.Cleanup(func() { _ = container.Terminate(ctx) })

	dbCfg, err := containerConfig(ctx, container)
	if err != nil {
		t.Fatal(err)
	}

	pool, err := postgres.NewPool(ctx, dbCfg, zaptest.NewLogger(t))
	if err != nil {
		t.Fatalf("connecting to test postgres: %v [%s]", err, time.Since(start))
	}
	t.Cleanup(pool.Close)
	t.Logf("postgres container started [%s]", time.Since(start))

	return &PostgresContainer{
		container: container,
		Pool:      pool,
		RawPool:   pool.DB(),
		Config:    dbCfg,
	}
}

func containerConfig(ctx context.Context, c testcontainers.Container) (config.DatabaseConfig, error) {
	host, err := c.Host(ctx)
	if err != nil {
		return config.DatabaseConfig{}, fmt.Errorf("container host: %w", err)
	}
	port, err := c.MappedPort(ctx, "5432")
	if err != nil {
		return config.DatabaseConfig{}, fmt.Errorf("container port: %w", err)
	}
	return config.DatabaseConfig{
		Host:            host,
		Port:            port.Int(),
		User:            pgUser,
		Password:        pgPassword,
		Name:            pgDatabase,
		SSLMode:         "disable",
		MaxConns:        5,
		MinConns:        1,
		MaxConnLifetime: 5 * time.Minute,
	}, nil
}

// ApplyMigrations brings the container's schema to the latest version.
//
// Postcondition: The relay_games and relay_events tables exist in the test database.
func (pc *PostgresContainer) ApplyMigrations(t *testing.T) {
	t.Helper()
	res, err := postgres.Migrate(pc.Config.DSN(), MigrationsDir(), postgres.Up, 0)
	if err != nil {
		t.Fatalf("applying migrations: %v", err)
	}
	t.Logf("schema at version %d", res.Version)
}

// NewRelayStore starts a migrated container and returns a store over it.
func NewRelayStore(t *testing.T) (*postgres.RelayStore, *PostgresContainer) {
	t.Helper()
	pc := NewPostgresContainer(t)
	pc.ApplyMigrations(t)
	return pc.Pool.RelayStore(), pc
}

// MigrationsDir returns the absolute path of the repository's migrations directory.
func MigrationsDir() string {
	_, file, _, _ := runtime.Caller(0)
	return filepath.Join(filepath.Dir(file), "..", "..", "migrations")
}
