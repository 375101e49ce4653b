// Package postgres holds the PostgreSQL connection and schema migrations of
// the question store. Migrations are plain SQL files applied by golang-migrate.
package postgres

import (
	"errors"
	"fmt"
	"strings"

	"github.com/golang-migrate/migrate/v4"
	_ "github.com/golang-migrate/migrate/v4/database/postgres"
	_ "github.com/golang-migrate/migrate/v4/source/file"

	"github.com/turtacn/QuestionBank/internal/infrastructure/monitoring/logging"
)

// MigrationStatus is the schema version recorded in the database.
type MigrationStatus struct {
	Version uint `json:"version"`
	Dirty   bool `json:"dirty"`
}

// Migrator applies the files under a migrations directory to one database.
type Migrator struct {
	dbURL     string
	sourceURL string
	logger    logging.Logger
}

// NewMigrator accepts either a bare directory or a "file://" URL.
func NewMigrator(dbURL, migrationsPath string, log logging.Logger) *Migrator {
	src := migrationsPath
	if !strings.Contains(src, "://") {
		src = "file://" + src
	}
	return &Migrator{dbURL: dbURL, sourceURL: src, logger: log}
}

// SourceURL is the resolved migrations source.
func (m *Migrator) SourceURL() string { return m.sourceURL }

func (m *Migrator) open() (*migrate.Migrate, error) {
	mg, err := migrate.New(m.sourceURL, m.dbURL)
	if err != nil {
		return nil, fmt.Errorf("failed to create migrate instance: %w", err)
	}
	return mg, nil
}

// Up applies every pending migration. No pending migration is not an error.
func (m *Migrator) Up() error {
	mg, err := m.open()
	if err != nil {
		return err
	}
	defer mg.Close()

	if err := mg.Up(); err != nil && !errors.Is(err, migrate.ErrNoChange) {
		return fmt.Errorf("failed to run migrations: %w", err)
	}
	status, err := statusOf(mg)
	if err != nil {
		return err
	}
	m.logger.Info("database migrations applied",
		logging.Int64("version", int64(status.Version)),
		logging.Bool("dirty", status.Dirty),
	)
	return nil
}

// Down rolls back steps migrations.
func (m *Migrator) Down(steps int) error {
	if steps <= 0 {
		return fmt.Errorf("steps must be greater than 0, got %d", steps)
	}
	mg, err := m.open()
	if err != nil {
		return err
	}
	defer mg.Close()

	if err := mg.Steps(-steps); err != nil {
		if errors.Is(err, migrate.ErrNoChange) {
			return fmt.Errorf("no migrations to roll back")
		}
		return fmt.Errorf("failed to rollback %d step(s): %w", steps, err)
	}
	m.logger.Info("database migrations rolled back", logging.Int("steps", steps))
	return nil
}

// Status reports the current version. An empty database is version 0.
func (m *Migrator) Status() (MigrationStatus, error) {
	mg, err := m.open()
	if err != nil {
		return MigrationStatus{}, err
	}
	defer mg.Close()
	return statusOf(mg)
}

// Force marks version as applied without running it; recovery from a dirty
// state only.
func (m *Migrator) Force(version int) error {
	mg, err := m.open()
	if err != nil {
		return err
	}
	defer mg.Close()

	if err := mg.Force(version); err != nil {
		return fmt.Errorf("failed to force version %d: %w", version, err)
	}
	m.logger.Warn("migration version forced", logging.Int("version", version))
	return nil
}

func statusOf(mg *migrate.Migrate) (MigrationStatus, error) {
	v, dirty, err := mg.Version()
	if err != nil {
		if errors.Is(err, migrate.ErrNilVersion) {
			return MigrationStatus{}, nil
		}
		return MigrationStatus{}, fmt.Errorf("failed to get migration version: %w", err)
	}
	return MigrationStatus{Version: v, Dirty: dirty}, nil
}

//Personal.AI order the ending
