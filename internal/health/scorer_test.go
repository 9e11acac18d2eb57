package health

import (
	"testing"
	"time"

	"github.com/ignite/customer-intel/internal/domain"
)

var now = time.Date(2026, 3, 15, 12, 0, 0, 0, time.UTC)

func fp(v float64) *float64     { return &v }
func tp(t time.Time) *time.Time { return &t }

func TestScoreHealthyCustomer(t *testing.T) {
	c := &domain.Customer{
		Email:              "good@example.com",
		SubscriptionStatus: domain.SubscriptionActive,
		LastSeenAt:         tp(now.Add(-24 * time.Hour)),
		LoginCount30d:      20,
		OnboardingComplete: true,
		FeatureUsage:       map[string]any{"a": 1, "b": 2, "c": 1, "d": 3, "e": 1},
		SignupDate:         tp(now.AddDate(0, 0, -400)),
		MRR:                fp(300),
		NextCallDate:       tp(now.AddDate(0, 0, 7)),
	}

	r := Score(c, now)

	// activity 100, support 70, payment 100, engagement 100, tenure 100,
	// mrr weight 90 -> base 93, no penalties.
	if r.Score != 93 {
		t.Errorf("Score = %v, want 93", r.Score)
	}
	if r.Status != domain.HealthHealthy {
		t.Errorf("Status = %v, want healthy", r.Status)
	}
	if r.ChurnRisk != 7 {
		t.Errorf("ChurnRisk = %v, want 7", r.ChurnRisk)
	}
	if len(r.Signals) != 0 {
		t.Errorf("expected no risk signals, got %v", r.Signals)
	}
	if r.Action != "Maintain current engagement" {
		t.Errorf("Action = %q", r.Action)
	}
}

func TestScoreCriticalCustomer(t *testing.T) {
	c := &domain.Customer{
		Email:              "churning@example.com",
		SubscriptionStatus: domain.SubscriptionActive,
		IsDelinquent:       true,
		PaymentFailures90d: 2,
		MentionedCancel:    true,
		LastSeenAt:         tp(now.AddDate(0, 0, -45)),
		CSATScore:          fp(1.5),
		SupportSentiment:   "negative",
		Convos30d:          5,
		SignupDate:         tp(now.AddDate(0, 0, -100)),
		MRR:                fp(100),
	}

	r := Score(c, now)

	// activity 20, support 10, payment 10, engagement 0, tenure 75,
	// mrr weight 80 -> base 24.5, penalties 75 -> floor at 0.
	if r.Score != 0 {
		t.Errorf("Score = %v, want 0", r.Score)
	}
	if r.Status != domain.HealthCritical {
		t.Errorf("Status = %v, want critical", r.Status)
	}
	// Multipliers stack past the cap.
	if r.ChurnRisk != 100 {
		t.Errorf("ChurnRisk = %v, want 100", r.ChurnRisk)
	}
	if r.Action != "Urgent: Contact immediately - cancel risk" {
		t.Errorf("Action = %q", r.Action)
	}

	wantSignals := []string{"cancel_mention", "payment_delinquent", "inactive", "low_satisfaction"}
	if len(r.Signals) != len(wantSignals) {
		t.Fatalf("got %d signals, want %d: %v", len(r.Signals), len(wantSignals), r.Signals)
	}
	for i, want := range wantSignals {
		if r.Signals[i].Type != want {
			t.Errorf("signal[%d] = %q, want %q", i, r.Signals[i].Type, want)
		}
	}
}

// perfectCustomer maxes every component: active yesterday, top CSAT,
// active subscription, full feature adoption, year-plus tenure, top MRR
// band, and a call on the calendar.
func perfectCustomer() *domain.Customer {
	return &domain.Customer{
		Email:              "star@example.com",
		SubscriptionStatus: domain.SubscriptionActive,
		LastSeenAt:         tp(now.Add(-12 * time.Hour)),
		CSATScore:          fp(5),
		LoginCount30d:      25,
		OnboardingComplete: true,
		FeatureUsage:       map[string]any{"a": 1, "b": 2, "c": 1, "d": 3, "e": 1},
		SignupDate:         tp(now.AddDate(0, 0, -400)),
		MRR:                fp(600),
		NextCallDate:       tp(now.AddDate(0, 0, 3)),
	}
}

func TestScorePerfectCustomer(t *testing.T) {
	r := Score(perfectCustomer(), now)

	if r.Score != 100 {
		t.Errorf("Score = %v, want 100", r.Score)
	}
	if r.Status != domain.HealthHealthy {
		t.Errorf("Status = %v, want healthy", r.Status)
	}
	if r.ChurnRisk != 0 {
		t.Errorf("ChurnRisk = %v, want 0", r.ChurnRisk)
	}
	if len(r.Signals) != 0 {
		t.Errorf("expected no risk signals, got %v", r.Signals)
	}
	if r.Action != "Explore expansion opportunities" {
		t.Errorf("Action = %q", r.Action)
	}

	// High-revenue accounts with nothing on the calendar lose 10 points
	// even when every component is maxed.
	c := perfectCustomer()
	c.NextCallDate = nil
	if r := Score(c, now); r.Score != 90 {
		t.Errorf("Score without next call = %v, want 90", r.Score)
	}
}

func TestScoreCancelMentionAtHealthyBoundary(t *testing.T) {
	c := perfectCustomer()
	c.MentionedCancel = true

	r := Score(c, now)

	// The 30-point penalty lands exactly on the healthy threshold, so
	// status and action stay in the healthy bucket while churn risk is
	// amplified by the cancel multiplier: (100-70) * 1.5.
	if r.Score != 70 {
		t.Errorf("Score = %v, want 70", r.Score)
	}
	if r.Status != domain.HealthHealthy {
		t.Errorf("Status = %v, want healthy", r.Status)
	}
	if r.ChurnRisk != 45 {
		t.Errorf("ChurnRisk = %v, want 45", r.ChurnRisk)
	}
	if len(r.Signals) != 1 || r.Signals[0].Type != "cancel_mention" {
		t.Fatalf("Signals = %v, want exactly one cancel_mention", r.Signals)
	}
	if r.Signals[0].Severity != domain.SeverityCritical {
		t.Errorf("Severity = %v, want critical", r.Signals[0].Severity)
	}
	if r.Action != "Explore expansion opportunities" {
		t.Errorf("Action = %q", r.Action)
	}
}

func TestScoreEmptyCustomerUsesNeutralDefaults(t *testing.T) {
	r := Score(&domain.Customer{Email: "blank@example.com"}, now)

	// activity 50, support 70, payment 70 (unknown status), engagement 0,
	// tenure 50, mrr weight 50 -> base 50.5, no penalties.
	if r.Score != 50.5 {
		t.Errorf("Score = %v, want 50.5", r.Score)
	}
	if r.Status != domain.HealthAtRisk {
		t.Errorf("Status = %v, want at_risk", r.Status)
	}
	// Churn 49.5 amplified only by the zero engagement component.
	if r.ChurnRisk != 59.4 {
		t.Errorf("ChurnRisk = %v, want 59.4", r.ChurnRisk)
	}
}

func TestActivityScoreBreakpoints(t *testing.T) {
	tests := []struct {
		days int
		want float64
	}{
		{0, 100}, {1, 100}, {2, 90}, {3, 90}, {4, 80}, {7, 80},
		{8, 65}, {14, 65}, {15, 40}, {30, 40}, {31, 20}, {60, 20},
		{61, 0}, {365, 0},
	}
	for _, tt := range tests {
		if got := activityScore(tt.days, true); got != tt.want {
			t.Errorf("activityScore(%d) = %v, want %v", tt.days, got, tt.want)
		}
	}
	if got := activityScore(-1, false); got != 50 {
		t.Errorf("activityScore for never-seen = %v, want 50", got)
	}
}

func TestPaymentScore(t *testing.T) {
	tests := []struct {
		name       string
		status     domain.SubscriptionStatus
		delinquent bool
		failures   int
		want       float64
	}{
		{"active clean", domain.SubscriptionActive, false, 0, 100},
		{"trialing", domain.SubscriptionTrialing, false, 0, 80},
		{"past due", domain.SubscriptionPastDue, false, 0, 40},
		{"canceled", domain.SubscriptionCanceled, false, 0, 0},
		{"unpaid", domain.SubscriptionUnpaid, false, 0, 20},
		{"unknown", "", false, 0, 70},
		{"active delinquent capped", domain.SubscriptionActive, true, 0, 30},
		{"failure penalty", domain.SubscriptionActive, false, 2, 80},
		{"failure penalty capped", domain.SubscriptionActive, false, 10, 70},
		{"delinquent with failures floors at zero", domain.SubscriptionCanceled, true, 5, 0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := paymentScore(tt.status, tt.delinquent, tt.failures); got != tt.want {
				t.Errorf("paymentScore = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestEngagementScore(t *testing.T) {
	if got := engagementScore(0, false, nil); got != 0 {
		t.Errorf("empty engagement = %v, want 0", got)
	}
	// 10 logins = 25 points, onboarded = 30, 3 features = 12.
	got := engagementScore(10, true, map[string]any{"x": 1, "y": 2, "z": 1, "unused": 0})
	if got != 67 {
		t.Errorf("engagementScore = %v, want 67", got)
	}
	// Login and feature components cap at 50 and 20.
	features := map[string]any{}
	for _, k := range []string{"a", "b", "c", "d", "e", "f", "g"} {
		features[k] = 1
	}
	if got := engagementScore(100, true, features); got != 100 {
		t.Errorf("capped engagementScore = %v, want 100", got)
	}
}

func TestRiskPenalties(t *testing.T) {
	c := &domain.Customer{
		MentionedCancel:  true,
		IsDelinquent:     true,
		OpenTickets:      5,
		ShowRate:         fp(40),
		TotalCallsBooked: 4,
		MRR:              fp(250),
	}
	// 30 + 25 + 20 (inactive) + 15 (ticket cap) + 10 + 10 = 110
	if got := riskPenalties(c, 45); got != 110 {
		t.Errorf("riskPenalties = %v, want 110", got)
	}
}

func TestShowRatePenaltyNeedsEnoughBookings(t *testing.T) {
	c := &domain.Customer{ShowRate: fp(40), TotalCallsBooked: 2}
	if got := riskPenalties(c, 0); got != 0 {
		t.Errorf("riskPenalties = %v, want 0 with under 3 bookings", got)
	}

	// A zero show rate means no completed data, not a bad rate.
	c = &domain.Customer{ShowRate: fp(0), TotalCallsBooked: 5}
	if got := riskPenalties(c, 0); got != 0 {
		t.Errorf("riskPenalties = %v, want 0 for zero show rate", got)
	}
}

func TestStatusForScore(t *testing.T) {
	tests := []struct {
		score float64
		want  domain.HealthStatus
	}{
		{100, domain.HealthHealthy}, {70, domain.HealthHealthy},
		{69.99, domain.HealthAtRisk}, {50, domain.HealthAtRisk},
		{49.99, domain.HealthHighRisk}, {30, domain.HealthHighRisk},
		{29.99, domain.HealthCritical}, {0, domain.HealthCritical},
	}
	for _, tt := range tests {
		if got := domain.StatusForScore(tt.score); got != tt.want {
			t.Errorf("StatusForScore(%v) = %v, want %v", tt.score, got, tt.want)
		}
	}
}

func TestScoreIsDeterministic(t *testing.T) {
	c := &domain.Customer{
		Email:              "same@example.com",
		SubscriptionStatus: domain.SubscriptionActive,
		LastSeenAt:         tp(now.AddDate(0, 0, -10)),
		CSATScore:          fp(4),
		MRR:                fp(150),
		OpenTickets:        2,
	}
	a := Score(c, now)
	b := Score(c, now)
	if a.Score != b.Score || a.ChurnRisk != b.ChurnRisk || len(a.Signals) != len(b.Signals) {
		t.Errorf("repeated scoring diverged: %+v vs %+v", a, b)
	}
}
