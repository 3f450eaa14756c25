package main

import (
	"context"
	"errors"

	"github.com/spf13/cobra"

	"github.com/spec-kit/logistics-ticketing/internal/config"
	"github.com/spec-kit/logistics-ticketing/internal/observability"
	"github.com/spec-kit/logistics-ticketing/internal/persistence"
)

var (
	migrateCmd = &cobra.Command{
		Use:   "migrate",
		Short: "Apply the embedded SQL migrations",
		RunE:  runMigration,
	}
	migrateRollback bool
)

func init() {
	migrateCmd.Flags().BoolVarP(&migrateRollback, "rollback", "r", false, "roll back the latest migration")
}

func runMigration(_ *cobra.Command, _ []string) error {
	ctx := context.Background()
	cfg, err := config.Load()
	if err != nil {
		return err
	}
	if cfg.Postgres.DSN == "" {
		return errors.New("POSTGRES_DSN is required to migrate")
	}
	logger, err := observability.NewLogger(cfg.Logger)
	if err != nil {
		return err
	}
	defer logger.Sync() //nolint:errcheck

	pg, err := persistence.NewPostgres(ctx, cfg.Postgres, logger)
	if err != nil {
		return err
	}
	defer pg.Close()
	return persistence.RunMigrations(ctx, pg.PoolHandle(), logger, migrateRollback)
}
