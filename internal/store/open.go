package store

import (
	"context"
	"fmt"

	"github.com/sirupsen/logrus"

	"github.com/gdc-multiomics-manifest/internal/domain"
)

// Open creates the store selected by cfg. It returns nil for the none driver.
// Postgres schemas are migrated up before the store is returned.
func Open(ctx context.Context, cfg domain.StoreConfig, logger *logrus.Logger) (Store, error) {
	switch cfg.Driver {
	case "", domain.StoreDriverNone:
		return nil, nil
	case domain.StoreDriverSQLite:
		s, err := NewSQLiteStore(cfg.SQLitePath)
		if err != nil {
			return nil, err
		}
		logger.WithField("path", cfg.SQLitePath).Info("Using SQLite run store")
		return s, nil
	case domain.StoreDriverPostgres:
		runner, err := NewMigrationRunner(cfg.PostgresDSN, logger)
		if err != nil {
			return nil, err
		}
		upErr := runner.Up(ctx)
		if err := runner.Close(); err != nil {
			logger.WithError(err).Warn("Failed to close migration runner")
		}
		if upErr != nil {
			return nil, upErr
		}

		s, err := NewPostgresStoreFromURL(cfg.PostgresDSN, cfg.MaxOpenConns)
		if err != nil {
			return nil, err
		}
		logger.Info("Using PostgreSQL run store")
		return s, nil
	default:
		return nil, fmt.Errorf("unknown store driver %q", cfg.Driver)
	}
}
