package postgres

import (
	"context"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"

	"github.com/ignite/customer-intel/internal/domain"
)

func TestSyncLogLifecycle(t *testing.T) {
	db, mock := newMock(t)
	repo := NewSyncLogRepo(db)

	started := time.Date(2026, 4, 1, 12, 0, 0, 0, time.UTC)
	l := &domain.SyncLog{
		ID:        "run-1",
		Source:    domain.SourceIntercom,
		SyncType:  "incremental",
		Status:    domain.SyncRunning,
		StartedAt: started,
	}

	mock.ExpectExec("INSERT INTO sync_log").
		WithArgs("run-1", domain.SourceIntercom, "incremental", domain.SyncRunning, started).
		WillReturnResult(sqlmock.NewResult(1, 1))

	if err := repo.CreateSyncLog(context.Background(), l); err != nil {
		t.Fatalf("CreateSyncLog() error: %v", err)
	}

	completed := started.Add(42 * time.Second)
	l.Status = domain.SyncSucceeded
	l.RecordsSynced = 120
	l.RecordsCreated = 5
	l.RecordsUpdated = 115
	l.CompletedAt = &completed
	l.DurationSeconds = 42

	mock.ExpectExec("UPDATE sync_log SET").
		WithArgs("run-1", domain.SyncSucceeded, "", 120, 5, 115, 0, 0, completed, 42.0).
		WillReturnResult(sqlmock.NewResult(0, 1))

	if err := repo.UpdateSyncLog(context.Background(), l); err != nil {
		t.Fatalf("UpdateSyncLog() error: %v", err)
	}
}

func TestRecentSyncLogs(t *testing.T) {
	db, mock := newMock(t)
	repo := NewSyncLogRepo(db)

	started := time.Now().UTC()
	completed := started.Add(10 * time.Second)
	mock.ExpectQuery("FROM sync_log\\s+ORDER BY started_at DESC").
		WithArgs(20).
		WillReturnRows(sqlmock.NewRows([]string{
			"id", "source", "sync_type", "status", "error_message",
			"records_synced", "records_created", "records_updated",
			"records_skipped", "records_failed",
			"started_at", "completed_at", "duration_seconds",
		}).
			AddRow("run-2", "calendly", "incremental", "failed", "auth expired",
				0, 0, 0, 0, 0, started, completed, 10.0).
			AddRow("run-1", "intercom", "incremental", "success", "",
				120, 5, 115, 0, 0, started.Add(-time.Hour), nil, 42.0))

	out, err := repo.RecentSyncLogs(context.Background(), 20)
	if err != nil {
		t.Fatalf("RecentSyncLogs() error: %v", err)
	}
	if len(out) != 2 {
		t.Fatalf("RecentSyncLogs() returned %d rows, want 2", len(out))
	}
	if out[0].Status != domain.SyncFailed || out[0].Error != "auth expired" {
		t.Errorf("first row = %+v", out[0])
	}
	if out[1].CompletedAt != nil {
		t.Errorf("CompletedAt = %v, want nil for row missing completion", out[1].CompletedAt)
	}
}
