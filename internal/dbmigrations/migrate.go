// Package dbmigrations owns the relational schema as a versioned sequence
// of plain SQL files, applied via golang-migrate rather than GORM's
// AutoMigrate — the schema is the source of truth, not the struct tags.
package dbmigrations

import (
	"embed"
	"errors"
	"fmt"

	"github.com/golang-migrate/migrate/v4"
	_ "github.com/golang-migrate/migrate/v4/database/postgres"
	"github.com/golang-migrate/migrate/v4/source/iofs"
)

//go:embed migrations/*.sql
var embedded embed.FS

// Up applies every pending migration against the database reachable at
// databaseURL. path, when non-empty, overrides the embedded migration set
// with a filesystem directory — useful for local development against
// in-progress migrations.
func Up(databaseURL string, path string) error {
	m, err := newMigrator(databaseURL, path)
	if err != nil {
		return err
	}
	defer m.Close()

	if err := m.Up(); err != nil && !errors.Is(err, migrate.ErrNoChange) {
		return fmt.Errorf("dbmigrations: up: %w", err)
	}
	return nil
}

// Down rolls back every applied migration. Intended for test teardown and
// local development, not for production use.
func Down(databaseURL string, path string) error {
	m, err := newMigrator(databaseURL, path)
	if err != nil {
		return err
	}
	defer m.Close()

	if err := m.Down(); err != nil && !errors.Is(err, migrate.ErrNoChange) {
		return fmt.Errorf("dbmigrations: down: %w", err)
	}
	return nil
}

func newMigrator(databaseURL string, path string) (*migrate.Migrate, error) {
	if path != "" {
		m, err := migrate.New("file://"+path, databaseURL)
		if err != nil {
			return nil, fmt.Errorf("dbmigrations: opening migrator from %s: %w", path, err)
		}
		return m, nil
	}

	source, err := iofs.New(embedded, "migrations")
	if err != nil {
		return nil, fmt.Errorf("dbmigrations: reading embedded migrations: %w", err)
	}
	m, err := migrate.NewWithSourceInstance("iofs", source, databaseURL)
	if err != nil {
		return nil, fmt.Errorf("dbmigrations: opening migrator: %w", err)
	}
	return m, nil
}
