package postgres

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/ignite/customer-intel/internal/domain"
)

// SyncLogRepo persists sync run records.
type SyncLogRepo struct{ db *sql.DB }

// NewSyncLogRepo creates a Postgres-backed sync log repository.
func NewSyncLogRepo(db *sql.DB) *SyncLogRepo { return &SyncLogRepo{db: db} }

// CreateSyncLog inserts the running row at the start of a pass.
func (r *SyncLogRepo) CreateSyncLog(ctx context.Context, l *domain.SyncLog) error {
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO sync_log (id, source, sync_type, status, started_at)
		VALUES ($1, $2, $3, $4, $5)
	`, l.ID, l.Source, l.SyncType, l.Status, l.StartedAt)
	if err != nil {
		return fmt.Errorf("create sync log: %w", err)
	}
	return nil
}

// UpdateSyncLog writes the pass outcome onto its running row.
func (r *SyncLogRepo) UpdateSyncLog(ctx context.Context, l *domain.SyncLog) error {
	_, err := r.db.ExecContext(ctx, `
		UPDATE sync_log SET
			status = $2, error_message = $3,
			records_synced = $4, records_created = $5, records_updated = $6,
			records_skipped = $7, records_failed = $8,
			completed_at = $9, duration_seconds = $10
		WHERE id = $1
	`, l.ID, l.Status, l.Error,
		l.RecordsSynced, l.RecordsCreated, l.RecordsUpdated,
		l.RecordsSkipped, l.RecordsFailed,
		l.CompletedAt, l.DurationSeconds)
	if err != nil {
		return fmt.Errorf("update sync log: %w", err)
	}
	return nil
}

// RecentSyncLogs returns the newest runs across all sources.
func (r *SyncLogRepo) RecentSyncLogs(ctx context.Context, limit int) ([]domain.SyncLog, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT id, source, sync_type, status, COALESCE(error_message, ''),
		       records_synced, records_created, records_updated,
		       records_skipped, records_failed,
		       started_at, completed_at, duration_seconds
		FROM sync_log
		ORDER BY started_at DESC
		LIMIT $1
	`, limit)
	if err != nil {
		return nil, fmt.Errorf("query sync logs: %w", err)
	}
	defer rows.Close()

	var out []domain.SyncLog
	for rows.Next() {
		var l domain.SyncLog
		if err := rows.Scan(&l.ID, &l.Source, &l.SyncType, &l.Status, &l.Error,
			&l.RecordsSynced, &l.RecordsCreated, &l.RecordsUpdated,
			&l.RecordsSkipped, &l.RecordsFailed,
			&l.StartedAt, &l.CompletedAt, &l.DurationSeconds); err != nil {
			return nil, fmt.Errorf("scan sync log: %w", err)
		}
		out = append(out, l)
	}
	return out, rows.Err()
}
