package main

import (
	"os"

	"github.com/spf13/cobra"

	"github.com/tair/verse-payments/internal/config"
	"github.com/tair/verse-payments/pkg/logger"
)

var cfg *config.Config

var rootCmd = &cobra.Command{
	Use:   "payment-service",
	Short: "Payment orders, gateway webhooks and refunds",
	PersistentPreRun: func(cmd *cobra.Command, args []string) {
		cfg = config.LoadConfig()
		logger.Init(cfg.ServiceName, cfg.IsDevelopment())
		logger.SetLevel(cfg.LogLevel)
	},
	RunE: runServe,
}

func init() {
	rootCmd.AddCommand(serveCmd)
	rootCmd.AddCommand(migrateCmd)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		logger.Logger.Error().Err(err).Msg("Payment service exited with error")
		os.Exit(1)
	}
}
