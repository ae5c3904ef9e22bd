package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"financeiro/internal/config"
	"financeiro/internal/storage"
)

func migrateCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "migrate",
		Short: "Run database migrations",
		Long: `Bring the SQLite document store to the latest schema. Opening the store
also migrates, so this is only needed to inspect or roll back.`,
		RunE: runMigrate,
	}
	cmd.Flags().Bool("status", false, "show the current schema version without applying changes")
	cmd.Flags().Int("down", 0, "roll back this many migrations")
	cmd.Flags().String("db", "", "database path (default SQLITE_DB_PATH)")
	return cmd
}

func runMigrate(cmd *cobra.Command, _ []string) error {
	status, _ := cmd.Flags().GetBool("status")
	down, _ := cmd.Flags().GetInt("down")
	dbPath, _ := cmd.Flags().GetString("db")
	if dbPath == "" {
		dbPath = config.Load().SQLiteDBPath
	}

	switch {
	case status:
		v, dirty, err := storage.SchemaVersion(dbPath)
		if err != nil {
			return fmt.Errorf("read schema version: %w", err)
		}
		fmt.Fprintf(cmd.OutOrStdout(), "database: %s\nversion: %d\ndirty: %t\n", dbPath, v, dirty)
		return nil
	case down > 0:
		logger.Info("Rolling back migrations", "database", dbPath, "steps", down)
		if err := storage.MigrateDown(dbPath, down); err != nil {
			return fmt.Errorf("migrate down: %w", err)
		}
	default:
		logger.Info("Running database migrations", "database", dbPath)
		if err := storage.RunMigrations(dbPath); err != nil {
			return fmt.Errorf("migrate up: %w", err)
		}
	}
	logger.Info("Database migrations completed")
	return nil
}
