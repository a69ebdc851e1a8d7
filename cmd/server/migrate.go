package main

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/fastygo/taskreminder/internal/config"
	pgInfra "github.com/fastygo/taskreminder/internal/infrastructure/postgres"
	sqliteInfra "github.com/fastygo/taskreminder/internal/infrastructure/sqlite"
)

var migrateCmd = &cobra.Command{
	Use:   "migrate",
	Short: "Apply database migrations for the configured storage driver and exit",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := config.Load(configFile)
		if err != nil {
			return fmt.Errorf("config: %w", err)
		}
		logger, err := newLogger(cfg)
		if err != nil {
			return err
		}
		defer logger.Sync()

		cfg.Migrations.Enabled = true
		if err := migrate(cmd.Context(), cfg, logger); err != nil {
			logger.Error("migrations failed", zap.String("driver", cfg.Storage.Driver), zap.Error(err))
			return err
		}
		return nil
	},
}

func migrate(ctx context.Context, cfg *config.Config, logger *zap.Logger) error {
	switch cfg.Storage.Driver {
	case config.DriverPostgres:
		return pgInfra.RunMigrations(cfg, logger)
	default:
		// Open creates the parent directory the migrator's connection needs.
		db, err := sqliteInfra.Open(ctx, cfg.Storage.SQLitePath, logger)
		if err != nil {
			return err
		}
		defer sqliteInfra.Close(db, logger)
		return sqliteInfra.RunMigrations(cfg.Storage.SQLitePath, logger)
	}
}
