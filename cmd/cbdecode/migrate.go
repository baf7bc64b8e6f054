package main

import (
	"context"
	"os"

	"github.com/spf13/cobra"

	"github.com/gyeh/codebook/internal/db"
	"github.com/gyeh/codebook/internal/exitcode"
)

var migrateCmd = &cobra.Command{
	Use:   "migrate",
	Short: "Apply the decode schema migrations",
	RunE:  runMigrate,
}

func init() {
	rootCmd.AddCommand(migrateCmd)
}

func runMigrate(cmd *cobra.Command, args []string) error {
	log := setup()
	ctx := context.Background()

	if cfg.DSN == "" {
		log.Error().Msg("--dsn or CODEBOOK_DB_URL is required")
		os.Exit(exitcode.UsageError)
	}

	pool, err := db.NewPool(ctx, cfg.DSN, 1)
	if err != nil {
		log.Error().Err(err).Msg("database connection failed")
		os.Exit(exitcode.DBConnError)
	}
	defer pool.Close()

	if err := db.ApplyMigrations(ctx, pool, log); err != nil {
		log.Error().Err(err).Msg("migration failed")
		os.Exit(exitcode.SinkError)
	}

	log.Info().Msg("all migrations applied successfully")
	return nil
}
