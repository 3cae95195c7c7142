package retention

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rs/zerolog/log"
)

// DeleteOldErrorReports deletes error_reports rows older than the specified days.
// The function is idempotent - safe to run repeatedly.
//
// Returns the number of rows deleted.
func DeleteOldErrorReports(ctx context.Context, pool *pgxpool.Pool, retentionDays int) (int64, error) {
	query := `
		DELETE FROM error_reports
		WHERE created_at < NOW() - INTERVAL '1 day' * $1
	`

	tag, err := pool.Exec(ctx, query, retentionDays)
	if err != nil {
		return 0, fmt.Errorf("failed to delete old error reports: %w", err)
	}

	return tag.RowsAffected(), nil
}

// RunRetentionJob purges expired error reports and logs the result.
// This is the main entry point called by the cron scheduler.
func RunRetentionJob(ctx context.Context, pool *pgxpool.Pool, errorReportDays int) error {
	log.Info().
		Int("error_report_retention_days", errorReportDays).
		Msg("Starting retention job")

	startTime := time.Now()

	deleted, err := DeleteOldErrorReports(ctx, pool, errorReportDays)
	if err != nil {
		log.Error().Err(err).Msg("Failed to delete old error reports")
		return fmt.Errorf("error report cleanup failed: %w", err)
	}

	log.Info().
		Int64("error_reports_deleted", deleted).
		Dur("duration", time.Since(startTime)).
		Msg("Retention job completed")

	return nil
}

// Schedule returns the cron spec for the retention job: nightly at 03:00,
// every minute in development.
func Schedule(isDev bool) string {
	if isDev {
		return "* * * * *"
	}
	return "0 3 * * *"
}
