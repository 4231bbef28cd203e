package database

import (
	"database/sql"
	"errors"
	"fmt"

	"github.com/cloo-solutions/consultbot/migrations"
	"github.com/golang-migrate/migrate/v4"
	"github.com/golang-migrate/migrate/v4/database/postgres"
	"github.com/golang-migrate/migrate/v4/source/iofs"
	_ "github.com/jackc/pgx/v5/stdlib"
	"go.uber.org/zap"
)

// MigrationStatus describes the schema after a migration run.
type MigrationStatus struct {
	Version uint
	Changed bool
}

// Migrate applies the embedded migrations. With down set it rolls back one
// step instead.
func Migrate(databaseURL string, down bool, logger *zap.Logger) (*MigrationStatus, error) {
	if logger == nil {
		logger = zap.NewNop()
	}

	db, err := sql.Open("pgx", databaseURL)
	if err != nil {
		return nil, fmt.Errorf("failed to open database for migrations: %w", err)
	}
	defer db.Close()

	driver, err := postgres.WithInstance(db, &postgres.Config{})
	if err != nil {
		return nil, fmt.Errorf("failed to create migration driver: %w", err)
	}

	source, err := iofs.New(migrations.FS, ".")
	if err != nil {
		return nil, fmt.Errorf("failed to open embedded migrations: %w", err)
	}

	m, err := migrate.NewWithInstance("iofs", source, "postgres", driver)
	if err != nil {
		return nil, fmt.Errorf("failed to create migrate instance: %w", err)
	}

	if down {
		err = m.Steps(-1)
	} else {
		err = m.Up()
	}
	changed := true
	if errors.Is(err, migrate.ErrNoChange) {
		changed = false
	} else if err != nil {
		return nil, fmt.Errorf("failed to apply migrations: %w", err)
	}

	version, dirty, err := m.Version()
	switch {
	case errors.Is(err, migrate.ErrNilVersion):
		logger.Info("migrations: schema is empty")
		return &MigrationStatus{Changed: changed}, nil
	case err != nil:
		return nil, fmt.Errorf("failed to get migration version: %w", err)
	case dirty:
		return nil, fmt.Errorf("migration version %d is dirty, manual intervention required", version)
	}

	if changed {
		logger.Info("migrations applied", zap.Uint("version", version), zap.Bool("down", down))
	} else {
		logger.Info("migrations: database is up to date", zap.Uint("version", version))
	}
	return &MigrationStatus{Version: version, Changed: changed}, nil
}
