package postgres

import (
	"errors"
	"fmt"

	"github.com/bidcraft/backend/config"
	"github.com/golang-migrate/migrate/v4"
	_ "github.com/golang-migrate/migrate/v4/database/postgres"
	_ "github.com/golang-migrate/migrate/v4/source/file"
)

// MigrateUp applies pending schema migrations. ErrNoChange is not an error.
func MigrateUp(cfg *config.DatabaseConfig) error {
	m, err := migrate.New(cfg.MigrationsURL, MigrateURL(cfg))
	if err != nil {
		return fmt.Errorf("failed to create migrate instance: %w", err)
	}
	defer m.Close()

	if err := m.Up(); err != nil && !errors.Is(err, migrate.ErrNoChange) {
		return fmt.Errorf("failed to run migrations: %w", err)
	}

	return nil
}
