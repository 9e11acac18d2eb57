package alerting

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/ignite/customer-intel/internal/domain"
)

var now = time.Date(2026, 3, 15, 12, 0, 0, 0, time.UTC)

type mockNotifier struct {
	sent []string
	err  error
}

func (m *mockNotifier) Send(ctx context.Context, channel, message string) error {
	if m.err != nil {
		return m.err
	}
	m.sent = append(m.sent, channel)
	return nil
}

type mockAlertRepo struct {
	records    []domain.AlertRecord
	stateSaves int
}

func (m *mockAlertRepo) AppendAlert(ctx context.Context, rec *domain.AlertRecord) error {
	m.records = append(m.records, *rec)
	return nil
}

func (m *mockAlertRepo) SaveAlertState(ctx context.Context, c *domain.Customer) error {
	m.stateSaves++
	return nil
}

func newTestEngine(notifier *mockNotifier, repo *mockAlertRepo) *Engine {
	e := NewEngine(repo, notifier, 20)
	e.now = func() time.Time { return now }
	return e
}

func fp(v float64) *float64 { return &v }

func TestCancelAlertSendsOnce(t *testing.T) {
	notifier := &mockNotifier{}
	repo := &mockAlertRepo{}
	e := newTestEngine(notifier, repo)

	c := &domain.Customer{ID: "c1", Email: "x@example.com", MentionedCancel: true}

	sent := e.Evaluate(context.Background(), c, nil, "")
	if len(sent) != 1 || sent[0].Kind != domain.AlertCancelMention {
		t.Fatalf("sent = %+v, want one cancel alert", sent)
	}
	if c.AlertCancelSentAt == nil {
		t.Error("one-shot latch not set")
	}
	if c.LastAlertSentAt == nil || !c.LastAlertSentAt.Equal(now) {
		t.Errorf("shared timestamp = %v, want %v", c.LastAlertSentAt, now)
	}

	// The latch holds on every later pass, even past the cooldown.
	e.now = func() time.Time { return now.Add(400 * time.Hour) }
	if sent := e.Evaluate(context.Background(), c, nil, ""); len(sent) != 0 {
		t.Errorf("second pass sent %+v, want nothing", sent)
	}
}

func TestSharedCooldownSuppressesOtherKinds(t *testing.T) {
	notifier := &mockNotifier{}
	repo := &mockAlertRepo{}
	e := newTestEngine(notifier, repo)

	// A cancel alert went out an hour ago; the delinquent kind is now
	// inside its 72h window because the timestamp is shared.
	recent := now.Add(-1 * time.Hour)
	c := &domain.Customer{
		ID: "c1", Email: "x@example.com",
		IsDelinquent:    true,
		LastAlertSentAt: &recent,
	}

	if sent := e.Evaluate(context.Background(), c, nil, ""); len(sent) != 0 {
		t.Errorf("sent %+v, want suppressed by shared cooldown", sent)
	}
	if c.AlertDelinquentSentAt != nil {
		t.Error("latch set despite suppression")
	}

	// Outside the window the alert goes through.
	old := now.Add(-80 * time.Hour)
	c.LastAlertSentAt = &old
	if sent := e.Evaluate(context.Background(), c, nil, ""); len(sent) != 1 {
		t.Errorf("sent %+v, want delinquent alert after cooldown", sent)
	}
}

func TestHealthDropNeedsThreshold(t *testing.T) {
	notifier := &mockNotifier{}
	repo := &mockAlertRepo{}
	e := newTestEngine(notifier, repo)

	c := &domain.Customer{ID: "c1", Email: "x@example.com", HealthScore: fp(55)}

	// 15-point drop is under the 20-point threshold.
	if sent := e.Evaluate(context.Background(), c, fp(70), domain.HealthAtRisk); len(sent) != 0 {
		t.Errorf("sent %+v, want nothing under threshold", sent)
	}

	// 25-point drop fires.
	sent := e.Evaluate(context.Background(), c, fp(80), domain.HealthAtRisk)
	if len(sent) != 1 || sent[0].Kind != domain.AlertHealthDrop {
		t.Fatalf("sent = %+v, want health drop alert", sent)
	}
	if sent[0].Severity != domain.SeverityHigh {
		t.Errorf("severity = %v, want high", sent[0].Severity)
	}
}

func TestAtRiskFiresOnTransitionOnly(t *testing.T) {
	notifier := &mockNotifier{}
	repo := &mockAlertRepo{}
	e := newTestEngine(notifier, repo)

	c := &domain.Customer{
		ID: "c1", Email: "x@example.com",
		HealthStatus: domain.HealthHighRisk,
	}

	// Entering high_risk from at_risk fires.
	sent := e.Evaluate(context.Background(), c, nil, domain.HealthAtRisk)
	if len(sent) != 1 || sent[0].Kind != domain.AlertAtRisk {
		t.Fatalf("sent = %+v, want at-risk alert", sent)
	}

	// Staying inside the at-risk band does not re-fire, including the
	// high_risk -> critical move.
	c.HealthStatus = domain.HealthCritical
	if sent := e.Evaluate(context.Background(), c, nil, domain.HealthHighRisk); len(sent) != 0 {
		t.Errorf("sent %+v, want nothing within band", sent)
	}

	// Recovering and degrading again re-fires: no one-shot latch.
	c.HealthStatus = domain.HealthHighRisk
	c.LastAlertSentAt = nil
	if sent := e.Evaluate(context.Background(), c, nil, domain.HealthHealthy); len(sent) != 1 {
		t.Errorf("sent %+v, want at-risk alert on re-entry", sent)
	}
}

func TestAtRiskIgnoresCooldown(t *testing.T) {
	notifier := &mockNotifier{}
	repo := &mockAlertRepo{}
	e := newTestEngine(notifier, repo)

	recent := now.Add(-1 * time.Hour)
	c := &domain.Customer{
		ID: "c1", Email: "x@example.com",
		HealthStatus:    domain.HealthCritical,
		LastAlertSentAt: &recent,
	}

	sent := e.Evaluate(context.Background(), c, nil, domain.HealthHealthy)
	if len(sent) != 1 || sent[0].Kind != domain.AlertAtRisk {
		t.Errorf("sent = %+v, want at-risk alert despite recent send", sent)
	}
}

func TestDispatchFailureMutatesNothing(t *testing.T) {
	notifier := &mockNotifier{err: errors.New("slack is down")}
	repo := &mockAlertRepo{}
	e := newTestEngine(notifier, repo)

	c := &domain.Customer{ID: "c1", Email: "x@example.com", MentionedCancel: true}

	_, err := e.TrySend(context.Background(), c, domain.AlertCancelMention, nil)
	if !errors.Is(err, ErrDispatchFailed) {
		t.Fatalf("err = %v, want ErrDispatchFailed", err)
	}
	if c.AlertCancelSentAt != nil || c.LastAlertSentAt != nil {
		t.Error("alert state mutated on dispatch failure")
	}
	if len(repo.records) != 0 || repo.stateSaves != 0 {
		t.Error("repository touched on dispatch failure")
	}

	// Next pass with a working transport succeeds.
	notifier.err = nil
	rec, err := e.TrySend(context.Background(), c, domain.AlertCancelMention, nil)
	if err != nil || rec == nil {
		t.Fatalf("retry: rec=%v err=%v", rec, err)
	}
}

func TestResetReopensOneShot(t *testing.T) {
	notifier := &mockNotifier{}
	repo := &mockAlertRepo{}
	e := newTestEngine(notifier, repo)

	c := &domain.Customer{ID: "c1", Email: "x@example.com", IsDelinquent: true}

	if _, err := e.TrySend(context.Background(), c, domain.AlertDelinquent, nil); err != nil {
		t.Fatalf("TrySend: %v", err)
	}
	if c.AlertDelinquentSentAt == nil {
		t.Fatal("latch not set")
	}

	if err := e.Reset(context.Background(), c, domain.AlertDelinquent); err != nil {
		t.Fatalf("Reset: %v", err)
	}
	if c.AlertDelinquentSentAt != nil {
		t.Error("latch still set after reset")
	}

	// Past the cooldown, the same condition alerts again.
	e.now = func() time.Time { return now.Add(80 * time.Hour) }
	rec, err := e.TrySend(context.Background(), c, domain.AlertDelinquent, nil)
	if err != nil || rec == nil {
		t.Errorf("post-reset send: rec=%v err=%v", rec, err)
	}
}

func TestResetRejectsKindsWithoutLatch(t *testing.T) {
	e := newTestEngine(&mockNotifier{}, &mockAlertRepo{})
	c := &domain.Customer{ID: "c1", Email: "x@example.com"}

	if err := e.Reset(context.Background(), c, domain.AlertAtRisk); err == nil {
		t.Error("expected error resetting latch-free kind")
	}
}

func TestChannelsPerKind(t *testing.T) {
	notifier := &mockNotifier{}
	repo := &mockAlertRepo{}
	e := newTestEngine(notifier, repo)

	c := &domain.Customer{ID: "c1", Email: "x@example.com", MentionedCancel: true}
	if _, err := e.TrySend(context.Background(), c, domain.AlertCancelMention, nil); err != nil {
		t.Fatalf("TrySend: %v", err)
	}
	if len(notifier.sent) != 1 || notifier.sent[0] != "#customer-alerts" {
		t.Errorf("channels = %v, want [#customer-alerts]", notifier.sent)
	}
}

func TestRenderIncludesCustomerFields(t *testing.T) {
	r := NewRenderer()
	mrr := 450.0
	c := &domain.Customer{
		Name:        "Jordan",
		Email:       "jordan@example.com",
		CompanyName: "Acme",
		MRR:         &mrr,
		RiskSignals: []domain.RiskSignal{
			{Type: "inactive", Severity: domain.SeverityHigh, Message: "No activity in 40 days"},
		},
	}

	msg, err := r.Render(domain.AlertCancelMention, c, nil, now)
	if err != nil {
		t.Fatalf("Render: %v", err)
	}
	for _, want := range []string{"Jordan", "jordan@example.com", "Acme", "$450", "CANCEL RISK"} {
		if !strings.Contains(msg, want) {
			t.Errorf("message missing %q:\n%s", want, msg)
		}
	}
}
