package main

import (
	"context"
	"fmt"
	"os"

	"condo-ledger-backend/internal/app"
	"condo-ledger-backend/internal/config"
	"condo-ledger-backend/internal/logger"
	"condo-ledger-backend/internal/repository/postgres"

	"github.com/spf13/cobra"
)

var version = "1.0.0"

var (
	configPath string
	cfg        *config.Config
)

var rootCmd = &cobra.Command{
	Use:   "bankimport",
	Short: "Load bank exports into the condominium ledger",
	Long: `bankimport reads CSV exports from the bank, stores them as an import batch,
matches every row to an apartment and turns matched rows into payments.

Database and logging settings come from the same YAML configuration as the
server, with DB_*, LOG_* and SEQUENCE_MAX_ATTEMPTS environment overrides.`,
	Version:       version,
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		var err error
		if cfg, err = config.Load(configPath); err != nil {
			return err
		}
		logger.Initialize(cfg.Log.Level, cfg.Log.Format)
		return nil
	},
}

func Execute() {
	if err := rootCmd.Execute(); err != nil {
		logger.Error("Command execution failed", "error", err)
		fmt.Fprintf(os.Stderr, "Error executing command: %v\n", err)
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().StringVar(&configPath, "config", "config/config.dev.yaml", "Path to configuration file")
}

// withServices opens the database for the duration of fn.
func withServices(ctx context.Context, fn func(svc *app.Services) error) error {
	db, err := app.OpenDatabase(ctx, cfg)
	if err != nil {
		return err
	}
	defer db.Close()
	return fn(app.NewServices(postgres.NewStore(db), cfg))
}
