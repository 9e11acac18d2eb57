// Package alerting decides when customer alerts fire and dispatches
// them. Dedup is two-layered: a per-kind one-shot latch that stays set
// until explicitly reset, and a cooldown window measured against the
// customer's single shared last-alert timestamp. The shared timestamp
// means any sent alert pushes back every cooldown-gated kind; that is
// long-standing behavior the on-call rotation relies on.
package alerting

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/ignite/customer-intel/internal/domain"
	"github.com/ignite/customer-intel/internal/pkg/logger"
)

// Notifier delivers a rendered alert message to a channel.
type Notifier interface {
	Send(ctx context.Context, channel, message string) error
}

// Repository persists alert history and the customer's dedup state.
type Repository interface {
	AppendAlert(ctx context.Context, rec *domain.AlertRecord) error
	SaveAlertState(ctx context.Context, c *domain.Customer) error
}

// Cooldown windows per alert kind. The at-risk alert is edge-triggered
// on status transitions and carries no cooldown.
var cooldowns = map[domain.AlertKind]time.Duration{
	domain.AlertCancelMention:  168 * time.Hour,
	domain.AlertDelinquent:     72 * time.Hour,
	domain.AlertHealthDrop:     48 * time.Hour,
	domain.AlertEngagementDrop: 336 * time.Hour,
}

var channels = map[domain.AlertKind]string{
	domain.AlertCancelMention:  "#customer-alerts",
	domain.AlertDelinquent:     "#customer-alerts",
	domain.AlertHealthDrop:     "#customer-health",
	domain.AlertAtRisk:         "#customer-health",
	domain.AlertEngagementDrop: "#customer-engagement",
}

var severities = map[domain.AlertKind]domain.AlertSeverity{
	domain.AlertCancelMention:  domain.SeverityCritical,
	domain.AlertDelinquent:     domain.SeverityCritical,
	domain.AlertHealthDrop:     domain.SeverityHigh,
	domain.AlertAtRisk:         domain.SeverityMedium,
	domain.AlertEngagementDrop: domain.SeverityMedium,
}

// Engine evaluates customer state against alert conditions and sends
// whatever passes the dedup gates.
type Engine struct {
	repo          Repository
	notifier      Notifier
	renderer      *Renderer
	dropThreshold float64
	now           func() time.Time
}

// NewEngine creates an alert engine. dropThreshold is the minimum
// health score drop, in points, that triggers a health-drop alert.
func NewEngine(repo Repository, notifier Notifier, dropThreshold float64) *Engine {
	return &Engine{
		repo:          repo,
		notifier:      notifier,
		renderer:      NewRenderer(),
		dropThreshold: dropThreshold,
		now:           func() time.Time { return time.Now().UTC() },
	}
}

// Evaluate checks every alert condition for a freshly scored customer
// and dispatches what fires. prevScore and prevStatus describe the
// customer before this scoring pass; pass nil/"" on first contact.
// Dispatch failures are logged and skipped so one bad send cannot
// block the others; the untouched state retries next pass.
func (e *Engine) Evaluate(ctx context.Context, c *domain.Customer, prevScore *float64, prevStatus domain.HealthStatus) []domain.AlertRecord {
	var sent []domain.AlertRecord

	record := func(kind domain.AlertKind, extra map[string]any) {
		rec, err := e.TrySend(ctx, c, kind, extra)
		if err != nil {
			logger.Error("alert dispatch failed",
				"customer", c.Email,
				"kind", string(kind),
				"error", err.Error())
			return
		}
		if rec != nil {
			sent = append(sent, *rec)
		}
	}

	if c.MentionedCancel {
		record(domain.AlertCancelMention, nil)
	}
	if c.IsDelinquent {
		record(domain.AlertDelinquent, nil)
	}
	if prevScore != nil && c.HealthScore != nil {
		if drop := *prevScore - *c.HealthScore; drop >= e.dropThreshold {
			record(domain.AlertHealthDrop, map[string]any{"drop_amount": drop})
		}
	}
	if days := c.DaysSinceSeen(e.now()); days > 30 {
		record(domain.AlertEngagementDrop, nil)
	}
	if isAtRiskStatus(c.HealthStatus) && !isAtRiskStatus(prevStatus) {
		record(domain.AlertAtRisk, nil)
	}

	return sent
}

// TrySend dispatches one alert kind if the dedup gates allow it.
// Returns (nil, nil) when a gate suppressed the alert, the record when
// it was sent, and an error when delivery or persistence failed. On a
// delivery error no state is mutated.
func (e *Engine) TrySend(ctx context.Context, c *domain.Customer, kind domain.AlertKind, extra map[string]any) (*domain.AlertRecord, error) {
	now := e.now()

	if latch := c.AlertSentAt(kind); latch != nil && *latch != nil {
		return nil, nil
	}
	if cooldown, ok := cooldowns[kind]; ok && c.LastAlertSentAt != nil {
		if now.Sub(*c.LastAlertSentAt) < cooldown {
			logger.Debug("alert suppressed by cooldown",
				"customer", c.Email, "kind", string(kind))
			return nil, nil
		}
	}

	message, err := e.renderer.Render(kind, c, extra, now)
	if err != nil {
		return nil, err
	}

	channel := channels[kind]
	if err := e.notifier.Send(ctx, channel, message); err != nil {
		return nil, fmt.Errorf("%w: %s for %s: %v", ErrDispatchFailed, kind, c.Email, err)
	}

	// Delivery succeeded: latch, stamp the shared cooldown, record.
	if latch := c.AlertSentAt(kind); latch != nil {
		t := now
		*latch = &t
	}
	t := now
	c.LastAlertSentAt = &t

	rec := &domain.AlertRecord{
		ID:         uuid.NewString(),
		CustomerID: c.ID,
		Kind:       kind,
		Severity:   severities[kind],
		Message:    message,
		Channel:    channel,
		SentAt:     now,
	}
	if err := e.repo.AppendAlert(ctx, rec); err != nil {
		return nil, fmt.Errorf("append alert record: %w", err)
	}
	if err := e.repo.SaveAlertState(ctx, c); err != nil {
		return nil, fmt.Errorf("save alert state: %w", err)
	}

	logger.Warn("alert sent",
		"customer", c.Email,
		"kind", string(kind),
		"severity", string(rec.Severity))
	return rec, nil
}

// Reset clears the one-shot latch for a kind so the next matching pass
// can alert again. Used after an AM resolves the underlying issue.
func (e *Engine) Reset(ctx context.Context, c *domain.Customer, kind domain.AlertKind) error {
	latch := c.AlertSentAt(kind)
	if latch == nil {
		return fmt.Errorf("alert kind %q has no one-shot state", kind)
	}
	*latch = nil
	return e.repo.SaveAlertState(ctx, c)
}

func isAtRiskStatus(s domain.HealthStatus) bool {
	return s == domain.HealthHighRisk || s == domain.HealthCritical
}
