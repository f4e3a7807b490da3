package main

import (
	"github.com/bitfantasy/nimo-pos/internal/database"
	"github.com/bitfantasy/nimo-pos/internal/pos/entity"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

var migrateCmd = &cobra.Command{
	Use:   "migrate",
	Short: "Create or update the POS tables",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, zapLogger, err := bootstrap()
		if err != nil {
			return err
		}
		defer zapLogger.Sync()

		db, err := database.Open(cfg.Database, zapLogger)
		if err != nil {
			return err
		}
		if err := entity.AutoMigrate(db); err != nil {
			return err
		}
		zapLogger.Info("POS database migration completed", zap.String("driver", cfg.Database.Driver))
		return nil
	},
}
