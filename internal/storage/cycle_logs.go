package db

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5/pgtype"

	"github.com/appwhistler/factcheckd/internal/core/domain"
)

// InsertCycleLog appends one row recording the counters of a completed cycle.
func (db *DB) InsertCycleLog(ctx context.Context, updated, unchanged, errored int, now time.Time) error {
	_, err := db.Pool.Exec(ctx, `
		INSERT INTO fact_check_cycle_logs (updated_count, unchanged_count, error_count, created_at)
		VALUES ($1, $2, $3, $4)
	`, updated, unchanged, errored, now)
	if err != nil {
		return fmt.Errorf("insert cycle log: %w", err)
	}

	return nil
}

// GetCycleStats aggregates cycle logs created after the given moment.
func (db *DB) GetCycleStats(ctx context.Context, since time.Time) (domain.CycleStats, error) {
	var (
		stats   domain.CycleStats
		lastRun pgtype.Timestamptz
	)

	err := db.Pool.QueryRow(ctx, `
		SELECT COUNT(*),
		       COALESCE(SUM(updated_count), 0),
		       COALESCE(SUM(unchanged_count), 0),
		       COALESCE(SUM(error_count), 0),
		       MAX(created_at)
		FROM fact_check_cycle_logs
		WHERE created_at > $1
	`, since).Scan(&stats.TotalCycles, &stats.TotalUpdated, &stats.TotalUnchanged, &stats.TotalErrors, &lastRun)
	if err != nil {
		return domain.CycleStats{}, fmt.Errorf("select cycle stats: %w", err)
	}

	if lastRun.Valid {
		t := lastRun.Time
		stats.LastRun = &t
	}

	return stats, nil
}
