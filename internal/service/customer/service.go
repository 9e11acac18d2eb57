// Package customer is the write path of the reconciler: it resolves a
// source record to a unified customer, merges the extracted fields,
// recomputes health in the same step, and persists both atomically.
// It also fronts the read surface the API serves.
package customer

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/ignite/customer-intel/internal/alerting"
	"github.com/ignite/customer-intel/internal/domain"
	"github.com/ignite/customer-intel/internal/health"
	"github.com/ignite/customer-intel/internal/service/identity"
	"github.com/ignite/customer-intel/internal/service/merge"
)

// Filter narrows customer listings.
type Filter struct {
	HealthStatus domain.HealthStatus
	AssignedAM   string
	MinMRR       *float64
	Limit        int
	Offset       int
}

// StatusBlock is one health bucket's slice of the dashboard summary.
type StatusBlock struct {
	Count int     `json:"count"`
	MRR   float64 `json:"mrr"`
}

// Summary is the dashboard rollup across all customers.
type Summary struct {
	TotalCustomers int                    `json:"total_customers"`
	TotalMRR       float64                `json:"total_mrr"`
	ByStatus       map[string]StatusBlock `json:"by_status"`
	Inactive30d    int                    `json:"inactive_30d"`
}

// PlanMRR is one row of the MRR-by-plan breakdown.
type PlanMRR struct {
	PlanName  string  `json:"plan_name"`
	Customers int     `json:"customers"`
	MRR       float64 `json:"mrr"`
}

// Repository is the persistence surface for unified customers.
type Repository interface {
	identity.Repository

	Get(ctx context.Context, id string) (*domain.Customer, error)
	// SaveScored writes the merged fields, the health block, and the
	// snapshot in one transaction.
	SaveScored(ctx context.Context, c *domain.Customer, snap *domain.HealthSnapshot) error

	List(ctx context.Context, f Filter) ([]domain.Customer, error)
	AtRisk(ctx context.Context, limit int) ([]domain.Customer, error)
	History(ctx context.Context, customerID string, limit int) ([]domain.HealthSnapshot, error)
	Alerts(ctx context.Context, customerID string, limit int) ([]domain.AlertRecord, error)
	Summary(ctx context.Context) (*Summary, error)
	MRRByPlan(ctx context.Context) ([]PlanMRR, error)
}

// Service ties resolution, merging, scoring, and alerting together.
type Service struct {
	repo     Repository
	resolver *identity.Resolver
	alerts   *alerting.Engine
	now      func() time.Time
}

// NewService creates the customer service. alerts may be nil; sync
// passes then merge and score without dispatching anything.
func NewService(repo Repository, alerts *alerting.Engine) *Service {
	return &Service{
		repo:     repo,
		resolver: identity.NewResolver(repo),
		alerts:   alerts,
		now:      func() time.Time { return time.Now().UTC() },
	}
}

// Ingest applies one source record: resolve by email, merge the update,
// rescore, persist, then evaluate alerts against the pre-pass state.
// The created flag feeds sync counters.
func (s *Service) Ingest(ctx context.Context, email string, u merge.Update) (*domain.Customer, bool, error) {
	c, created, err := s.resolver.Resolve(ctx, email)
	if err != nil {
		return nil, false, err
	}

	var prevScore *float64
	if c.HealthScore != nil {
		v := *c.HealthScore
		prevScore = &v
	}
	prevStatus := c.HealthStatus

	now := s.now()
	merge.Apply(c, u, now)

	result := health.Score(c, now)
	applyResult(c, result, now)

	snap := &domain.HealthSnapshot{
		ID:              uuid.NewString(),
		CustomerID:      c.ID,
		HealthScore:     result.Score,
		HealthStatus:    result.Status,
		ChurnRisk:       result.ChurnRisk,
		ScoreComponents: result.Components,
		RiskSignals:     result.Signals,
		RecordedAt:      now,
	}

	if err := s.repo.SaveScored(ctx, c, snap); err != nil {
		return nil, false, fmt.Errorf("save customer %s: %w", c.Email, err)
	}

	if s.alerts != nil {
		s.alerts.Evaluate(ctx, c, prevScore, prevStatus)
	}

	return c, created, nil
}

// Rescore recomputes health for an already stored customer without any
// field changes, appending a snapshot and evaluating alerts. Used by
// full-recompute passes.
func (s *Service) Rescore(ctx context.Context, c *domain.Customer) error {
	var prevScore *float64
	if c.HealthScore != nil {
		v := *c.HealthScore
		prevScore = &v
	}
	prevStatus := c.HealthStatus

	now := s.now()
	result := health.Score(c, now)
	applyResult(c, result, now)

	snap := &domain.HealthSnapshot{
		ID:              uuid.NewString(),
		CustomerID:      c.ID,
		HealthScore:     result.Score,
		HealthStatus:    result.Status,
		ChurnRisk:       result.ChurnRisk,
		ScoreComponents: result.Components,
		RiskSignals:     result.Signals,
		RecordedAt:      now,
	}
	if err := s.repo.SaveScored(ctx, c, snap); err != nil {
		return fmt.Errorf("save customer %s: %w", c.Email, err)
	}

	if s.alerts != nil {
		s.alerts.Evaluate(ctx, c, prevScore, prevStatus)
	}
	return nil
}

func applyResult(c *domain.Customer, r health.Result, now time.Time) {
	score := r.Score
	churn := r.ChurnRisk
	t := now
	c.HealthScore = &score
	c.HealthStatus = r.Status
	c.ChurnRisk = &churn
	c.RiskSignals = r.Signals
	c.RecommendedAction = r.Action
	c.ScoreComponents = r.Components
	c.HealthCalculatedAt = &t
}

// Get returns one customer by ID.
func (s *Service) Get(ctx context.Context, id string) (*domain.Customer, error) {
	return s.repo.Get(ctx, id)
}

// GetByEmail returns one customer by normalized email.
func (s *Service) GetByEmail(ctx context.Context, email string) (*domain.Customer, error) {
	c, err := s.repo.FindByEmail(ctx, identity.Normalize(email))
	if err != nil {
		return nil, err
	}
	if c == nil {
		return nil, ErrNotFound
	}
	return c, nil
}

// List returns customers matching the filter, ordered by MRR descending.
func (s *Service) List(ctx context.Context, f Filter) ([]domain.Customer, error) {
	if f.Limit <= 0 || f.Limit > 500 {
		f.Limit = 100
	}
	return s.repo.List(ctx, f)
}

// AtRisk returns high-risk and critical customers, highest churn risk
// first.
func (s *Service) AtRisk(ctx context.Context, limit int) ([]domain.Customer, error) {
	if limit <= 0 || limit > 500 {
		limit = 50
	}
	return s.repo.AtRisk(ctx, limit)
}

// History returns a customer's health snapshots, newest first.
func (s *Service) History(ctx context.Context, customerID string, limit int) ([]domain.HealthSnapshot, error) {
	if limit <= 0 || limit > 1000 {
		limit = 90
	}
	if _, err := s.repo.Get(ctx, customerID); err != nil {
		return nil, err
	}
	return s.repo.History(ctx, customerID, limit)
}

// Alerts returns a customer's alert history, newest first.
func (s *Service) Alerts(ctx context.Context, customerID string, limit int) ([]domain.AlertRecord, error) {
	if limit <= 0 || limit > 1000 {
		limit = 50
	}
	if _, err := s.repo.Get(ctx, customerID); err != nil {
		return nil, err
	}
	return s.repo.Alerts(ctx, customerID, limit)
}

// ResetAlert clears a customer's one-shot latch for the given kind.
func (s *Service) ResetAlert(ctx context.Context, customerID string, kind domain.AlertKind) error {
	if s.alerts == nil {
		return fmt.Errorf("alerting not configured")
	}
	c, err := s.repo.Get(ctx, customerID)
	if err != nil {
		return err
	}
	return s.alerts.Reset(ctx, c, kind)
}

// Summary returns the dashboard rollup.
func (s *Service) Summary(ctx context.Context) (*Summary, error) {
	return s.repo.Summary(ctx)
}

// MRRByPlan returns the MRR breakdown per plan name.
func (s *Service) MRRByPlan(ctx context.Context) ([]PlanMRR, error) {
	return s.repo.MRRByPlan(ctx)
}

// NotifySummary posts the aggregate health/MRR rollup to the summary
// channel. Triggered on demand; cron decides the daily cadence.
func (s *Service) NotifySummary(ctx context.Context) error {
	if s.alerts == nil {
		return fmt.Errorf("alerting not configured")
	}
	sum, err := s.repo.Summary(ctx)
	if err != nil {
		return err
	}

	data := alerting.SummaryData{
		Date:           s.now(),
		TotalCustomers: sum.TotalCustomers,
		TotalMRR:       sum.TotalMRR,
		ByStatus:       make(map[string]alerting.SummaryBlock, len(sum.ByStatus)),
		Inactive30d:    sum.Inactive30d,
	}
	for status, block := range sum.ByStatus {
		data.ByStatus[status] = alerting.SummaryBlock{Count: block.Count, MRR: block.MRR}
	}
	return s.alerts.SendSummary(ctx, data)
}
