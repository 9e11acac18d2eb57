package domain

import "time"

// SyncStatus is the outcome of one sync pass.
type SyncStatus string

const (
	SyncRunning   SyncStatus = "running"
	SyncSucceeded SyncStatus = "success"
	SyncFailed    SyncStatus = "failed"
)

// SyncLog records one pass over one source: counters, timing, outcome.
type SyncLog struct {
	ID       string     `json:"id" db:"id"`
	Source   Source     `json:"source" db:"source"`
	SyncType string     `json:"sync_type" db:"sync_type"`
	Status   SyncStatus `json:"status" db:"status"`
	Error    string     `json:"error_message,omitempty" db:"error_message"`

	RecordsSynced  int `json:"records_synced" db:"records_synced"`
	RecordsCreated int `json:"records_created" db:"records_created"`
	RecordsUpdated int `json:"records_updated" db:"records_updated"`
	RecordsSkipped int `json:"records_skipped" db:"records_skipped"`
	RecordsFailed  int `json:"records_failed" db:"records_failed"`

	StartedAt       time.Time  `json:"started_at" db:"started_at"`
	CompletedAt     *time.Time `json:"completed_at" db:"completed_at"`
	DurationSeconds float64    `json:"duration_seconds" db:"duration_seconds"`
}

// SyncStats accumulates per-record outcomes during a pass.
type SyncStats struct {
	Synced  int
	Created int
	Updated int
	Skipped int
	Failed  int
}

// Add folds another stats block into this one.
func (s *SyncStats) Add(o SyncStats) {
	s.Synced += o.Synced
	s.Created += o.Created
	s.Updated += o.Updated
	s.Skipped += o.Skipped
	s.Failed += o.Failed
}
