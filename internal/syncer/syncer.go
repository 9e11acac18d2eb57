// Package syncer runs the batch reconciliation passes. Sources run in
// a fixed order so dependent passes (scheduling, directory, calls) see
// the customers the support pass established, and the whole run is
// guarded by a distributed lock so overlapping schedules cannot race.
package syncer

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/ignite/customer-intel/internal/domain"
	"github.com/ignite/customer-intel/internal/pkg/distlock"
	"github.com/ignite/customer-intel/internal/pkg/logger"
)

// ErrSyncInProgress means another run holds the sync lock.
var ErrSyncInProgress = errors.New("sync already in progress")

// ErrUnknownSource means no registered connector feeds that source.
var ErrUnknownSource = errors.New("unknown sync source")

// Source is one connector's batch pass.
type Source interface {
	Name() domain.Source
	Sync(ctx context.Context) (domain.SyncStats, error)
}

// Repository persists sync run records.
type Repository interface {
	CreateSyncLog(ctx context.Context, l *domain.SyncLog) error
	UpdateSyncLog(ctx context.Context, l *domain.SyncLog) error
	RecentSyncLogs(ctx context.Context, limit int) ([]domain.SyncLog, error)
}

// LockFactory builds a fresh lock per run. Lock instances carry a
// random ownership token, so they are not reusable across runs.
type LockFactory func() distlock.DistLock

// Orchestrator runs connectors in registration order.
type Orchestrator struct {
	sources []Source
	repo    Repository
	newLock LockFactory
	now     func() time.Time
}

// NewOrchestrator creates an orchestrator. newLock may be nil, which
// disables run locking (single-process deployments).
func NewOrchestrator(repo Repository, newLock LockFactory, sources ...Source) *Orchestrator {
	return &Orchestrator{
		sources: sources,
		repo:    repo,
		newLock: newLock,
		now:     func() time.Time { return time.Now().UTC() },
	}
}

// RunAll executes every registered source in order. A failing source is
// recorded and the run continues; the returned logs cover all sources.
func (o *Orchestrator) RunAll(ctx context.Context) ([]domain.SyncLog, error) {
	release, err := o.acquire(ctx)
	if err != nil {
		return nil, err
	}
	defer release()

	logs := make([]domain.SyncLog, 0, len(o.sources))
	for _, src := range o.sources {
		log := o.runSource(ctx, src)
		logs = append(logs, log)
	}

	total := Totals(logs)
	logger.Info("full sync completed",
		"sources", len(logs),
		"synced", total.Synced,
		"created", total.Created,
		"updated", total.Updated,
		"skipped", total.Skipped,
		"failed", total.Failed,
	)
	return logs, nil
}

// Totals folds the per-source counters of a run into one stats block.
func Totals(logs []domain.SyncLog) domain.SyncStats {
	var total domain.SyncStats
	for _, l := range logs {
		total.Add(domain.SyncStats{
			Synced:  l.RecordsSynced,
			Created: l.RecordsCreated,
			Updated: l.RecordsUpdated,
			Skipped: l.RecordsSkipped,
			Failed:  l.RecordsFailed,
		})
	}
	return total
}

// Run executes a single source by name.
func (o *Orchestrator) Run(ctx context.Context, name domain.Source) (*domain.SyncLog, error) {
	var src Source
	for _, s := range o.sources {
		if s.Name() == name {
			src = s
			break
		}
	}
	if src == nil {
		return nil, fmt.Errorf("%w: %s", ErrUnknownSource, name)
	}

	release, err := o.acquire(ctx)
	if err != nil {
		return nil, err
	}
	defer release()

	log := o.runSource(ctx, src)
	return &log, nil
}

// Status returns the most recent sync runs, newest first.
func (o *Orchestrator) Status(ctx context.Context, limit int) ([]domain.SyncLog, error) {
	if limit <= 0 {
		limit = 20
	}
	return o.repo.RecentSyncLogs(ctx, limit)
}

// Sources lists the registered source names in run order.
func (o *Orchestrator) Sources() []domain.Source {
	names := make([]domain.Source, len(o.sources))
	for i, s := range o.sources {
		names[i] = s.Name()
	}
	return names
}

func (o *Orchestrator) acquire(ctx context.Context) (func(), error) {
	if o.newLock == nil {
		return func() {}, nil
	}

	lock := o.newLock()
	ok, err := lock.Acquire(ctx)
	if err != nil {
		return nil, fmt.Errorf("acquire sync lock: %w", err)
	}
	if !ok {
		return nil, ErrSyncInProgress
	}
	return func() {
		if err := lock.Release(context.WithoutCancel(ctx)); err != nil {
			logger.Warn("sync lock release failed", "error", err.Error())
		}
	}, nil
}

// runSource executes one pass with its own log row. A panicking
// connector is contained here so the rest of the run survives.
func (o *Orchestrator) runSource(ctx context.Context, src Source) domain.SyncLog {
	start := o.now()
	log := domain.SyncLog{
		ID:        uuid.NewString(),
		Source:    src.Name(),
		SyncType:  "incremental",
		Status:    domain.SyncRunning,
		StartedAt: start,
	}
	if err := o.repo.CreateSyncLog(ctx, &log); err != nil {
		logger.Error("sync log create failed", "source", string(src.Name()), "error", err.Error())
	}

	stats, err := o.safeSync(ctx, src)

	end := o.now()
	log.CompletedAt = &end
	log.DurationSeconds = end.Sub(start).Seconds()
	log.RecordsSynced = stats.Synced
	log.RecordsCreated = stats.Created
	log.RecordsUpdated = stats.Updated
	log.RecordsSkipped = stats.Skipped
	log.RecordsFailed = stats.Failed

	if err != nil {
		log.Status = domain.SyncFailed
		log.Error = err.Error()
		logger.Error("sync pass failed", "source", string(src.Name()), "error", err.Error())
	} else {
		log.Status = domain.SyncSucceeded
		logger.Info("sync pass completed",
			"source", string(src.Name()),
			"synced", stats.Synced,
			"created", stats.Created,
			"updated", stats.Updated,
			"skipped", stats.Skipped,
			"failed", stats.Failed,
		)
	}

	if err := o.repo.UpdateSyncLog(ctx, &log); err != nil {
		logger.Error("sync log update failed", "source", string(src.Name()), "error", err.Error())
	}
	return log
}

func (o *Orchestrator) safeSync(ctx context.Context, src Source) (stats domain.SyncStats, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("sync panic: %v", r)
		}
	}()
	return src.Sync(ctx)
}
