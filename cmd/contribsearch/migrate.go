package main

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/jask/contribsearch/internal/config"
	"github.com/jask/contribsearch/internal/database"
	"github.com/jask/contribsearch/internal/database/pgstore"
)

var migrateCmd = &cobra.Command{
	Use:   "migrate",
	Short: "Apply schema migrations",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, _ []string) error {
		msg, err := migrate(cmd.Context(), cfg)
		if err != nil {
			return err
		}
		fmt.Fprintln(cmd.OutOrStdout(), msg)
		return nil
	},
}

func init() {
	rootCmd.AddCommand(migrateCmd)
}

func migrate(ctx context.Context, cfg config.Config) (string, error) {
	switch cfg.Store.Driver {
	case config.DriverSQLite:
		if err := os.MkdirAll(filepath.Dir(cfg.Database.Path), 0o755); err != nil {
			return "", fmt.Errorf("mkdir db dir: %w", err)
		}
		v, err := database.RunMigrations(cfg.Database.Path, cfg.Database.MigrationsPath)
		if err != nil {
			return "", fmt.Errorf("migrate: %w", err)
		}
		return fmt.Sprintf("sqlite schema at version %d", v), nil
	case config.DriverPostgres:
		pg, err := pgstore.Connect(ctx, cfg.Postgres.URL, 1)
		if err != nil {
			return "", err
		}
		defer pg.Close()
		if err := pg.EnsureSchema(ctx); err != nil {
			return "", err
		}
		return "postgres schema ensured", nil
	default:
		return "", fmt.Errorf("store %q has no schema to migrate", cfg.Store.Driver)
	}
}
