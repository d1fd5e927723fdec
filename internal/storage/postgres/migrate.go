package postgres

import (
	"errors"
	"fmt"

	"github.com/golang-migrate/migrate/v4"
	_ "github.com/golang-migrate/migrate/v4/database/postgres"
	_ "github.com/golang-migrate/migrate/v4/source/file"
)

// Direction selects which way a migration run moves the schema.
type Direction string

const (
	Up   Direction = "up"
	Down Direction = "down"
)

// ParseDirection accepts "up" or "down".
func ParseDirection(s string) (Direction, error) {
	switch d := Direction(s); d {
	case Up, Down:
		return d, nil
	default:
		return "", fmt.Errorf("invalid direction %q: must be 'up' or 'down'", s)
	}
}

// MigrationResult reports the schema version after a run.
type MigrationResult struct {
	Version uint
	Dirty   bool
	// Changed is false when the schema was already at the target version.
	Changed bool
}

// Migrate moves the schema at dsn using the migration files in dir.
// A zero steps value runs every pending migration in the given direction.
//
// Precondition: dir must contain golang-migrate numbered .up.sql/.down.sql files.
// Postcondition: On nil error the schema is at the reported version; an
// already-current schema is not an error.
func Migrate(dsn, dir string, direction Direction, steps int) (MigrationResult, error) {
	m, err := migrate.New("file://"+dir, dsn)
	if err != nil {
		return MigrationResult{}, fmt.Errorf("creating migrator: %w", err)
	}
	defer m.Close()

	switch {
	case direction == Up && steps > 0:
		err = m.Steps(steps)
	case direction == Up:
		err = m.Up()
	case direction == Down && steps > 0:
		err = m.Steps(-steps)
	case direction == Down:
		err = m.Down()
	default:
		return MigrationResult{}, fmt.Errorf("invalid direction %q", direction)
	}

	changed := true
	if errors.Is(err, migrate.ErrNoChange) {
		changed, err = false, nil
	}
	if err != nil {
		return MigrationResult{}, fmt.Errorf("migrating %s: %w", direction, err)
	}

	version, dirty, err := m.Version()
	if err != nil && !errors.Is(err, migrate.ErrNilVersion) {
		return MigrationResult{}, fmt.Errorf("reading schema version: %w", err)
	}
	return MigrationResult{Version: version, Dirty: dirty, Changed: changed}, nil
}
