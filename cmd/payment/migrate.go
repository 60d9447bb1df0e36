package main

import (
	"context"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/tair/verse-payments/pkg/logger"
)

var migrateCmd = &cobra.Command{
	Use:   "migrate",
	Short: "Create or update the payment schema and indexes, then exit",
	RunE:  runMigrate,
}

func runMigrate(cmd *cobra.Command, args []string) error {

	ctx, cancel := context.WithTimeout(cmd.Context(), time.Minute)
	defer cancel()

	s, err := openStore(ctx, cfg)
	if err != nil {
		return err
	}
	defer func() { _ = s.close(context.Background()) }()

	if err := s.migrate(ctx); err != nil {
		return fmt.Errorf("failed to run migrations: %w", err)
	}

	logger.Logger.Info().
		Str("storage_driver", cfg.StorageDriver).
		Msg("Payment schema migrated")
	return nil
}
