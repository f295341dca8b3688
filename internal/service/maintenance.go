package service

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/jask/contribsearch/internal/database"
)

// MaintenanceService houses destructive ops actions surfaced through the CLI.
type MaintenanceService struct {
	DB *sql.DB
}

// Reset removes all ingested contributions and ingest history. The schema is
// kept so a fresh ingest can run immediately.
func (s *MaintenanceService) Reset(ctx context.Context) error {
	if s.DB == nil {
		return fmt.Errorf("maintenance: db not configured")
	}
	if err := database.WithTx(ctx, s.DB, func(tx *sql.Tx) error {
		for _, t := range []string{"contributions", "ingest_runs"} {
			if _, err := tx.ExecContext(ctx, "DELETE FROM "+t); err != nil {
				return fmt.Errorf("reset table %s: %w", t, err)
			}
		}
		return nil
	}); err != nil {
		return err
	}
	_, _ = s.DB.ExecContext(ctx, "VACUUM")
	return nil
}
