package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/gdc-multiomics-manifest/internal/logging"
	"github.com/gdc-multiomics-manifest/internal/store"
)

// migrateCmd manages the PostgreSQL run store schema
var migrateCmd = &cobra.Command{
	Use:   "migrate",
	Short: "Manage the PostgreSQL run store schema",
	Long: `Apply or roll back the embedded migrations against store.postgres_dsn.

The SQLite run store creates its schema on open and needs no migrations.`,
}

var migrateUpCmd = &cobra.Command{
	Use:   "up",
	Short: "Apply all pending migrations",
	RunE: func(cmd *cobra.Command, args []string) error {
		return runMigration(cmd, true)
	},
}

var migrateDownCmd = &cobra.Command{
	Use:   "down",
	Short: "Roll back the most recent migration",
	RunE: func(cmd *cobra.Command, args []string) error {
		return runMigration(cmd, false)
	},
}

func init() {
	migrateCmd.AddCommand(migrateUpCmd, migrateDownCmd)
}

func runMigration(cmd *cobra.Command, up bool) error {
	manager, err := loadConfig(nil)
	if err != nil {
		return err
	}
	cfg := manager.GetConfig()
	if cfg.Store.PostgresDSN == "" {
		return fmt.Errorf("store.postgres_dsn is required for migrations")
	}

	logger, err := logging.NewLogger(cfg.Logging)
	if err != nil {
		return err
	}

	runner, err := store.NewMigrationRunner(cfg.Store.PostgresDSN, logger)
	if err != nil {
		return err
	}
	defer runner.Close()

	if up {
		err = runner.Up(cmd.Context())
	} else {
		err = runner.Down(cmd.Context())
	}
	if err != nil {
		return err
	}

	version, dirty, err := runner.Version()
	if err != nil {
		fmt.Fprintln(cmd.OutOrStdout(), "Schema version: none")
		return nil
	}
	fmt.Fprintf(cmd.OutOrStdout(), "Schema version: %d (dirty: %t)\n", version, dirty)
	return nil
}
