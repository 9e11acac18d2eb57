// Package health computes composite customer health scores, churn risk,
// risk signals, and recommended actions. All functions are pure: the
// clock is passed in and nothing is persisted here.
package health

import (
	"fmt"
	"math"
	"time"

	"github.com/ignite/customer-intel/internal/domain"
)

// Component weights for the composite score.
const (
	weightActivity   = 0.25
	weightSupport    = 0.20
	weightPayment    = 0.20
	weightEngagement = 0.15
	weightTenure     = 0.10
	weightMRR        = 0.10
)

// Result is the full output of one scoring pass over a customer.
type Result struct {
	Score      float64
	Status     domain.HealthStatus
	ChurnRisk  float64
	Components map[string]float64
	Signals    []domain.RiskSignal
	Action     string
}

// Score computes the composite health result for a customer as of now.
// Missing inputs never fail; they fall back to neutral defaults.
func Score(c *domain.Customer, now time.Time) Result {
	days := c.DaysSinceSeen(now)

	activity := activityScore(days, c.LastSeenAt != nil)
	support := supportScore(c.CSATScore, c.SupportSentiment, c.Convos30d)
	payment := paymentScore(c.SubscriptionStatus, c.IsDelinquent, c.PaymentFailures90d)
	engagement := engagementScore(c.LoginCount30d, c.OnboardingComplete, c.FeatureUsage)
	tenure := tenureScore(c.SignupDate, now)
	mrrWeight := mrrWeight(c.MRR)

	base := activity*weightActivity +
		support*weightSupport +
		payment*weightPayment +
		engagement*weightEngagement +
		tenure*weightTenure +
		mrrWeight*weightMRR

	penalties := riskPenalties(c, days)
	final := clamp(base-penalties, 0, 100)

	status := domain.StatusForScore(final)

	return Result{
		Score:     round2(final),
		Status:    status,
		ChurnRisk: round2(churnRisk(final, c, days, engagement)),
		Components: map[string]float64{
			"activity_score":   activity,
			"support_score":    support,
			"payment_score":    payment,
			"engagement_score": engagement,
			"tenure_score":     tenure,
			"mrr_weight":       mrrWeight,
			"base_score":       base,
			"risk_penalties":   penalties,
			"final_score":      final,
		},
		Signals: riskSignals(c, days, now),
		Action:  recommendAction(c, status, days),
	}
}

// activityScore maps recency of last activity onto 0-100. No observed
// activity at all scores neutral, not zero.
func activityScore(days int, seen bool) float64 {
	if !seen {
		return 50
	}
	switch {
	case days <= 1:
		return 100
	case days <= 3:
		return 90
	case days <= 7:
		return 80
	case days <= 14:
		return 65
	case days <= 30:
		return 40
	case days <= 60:
		return 20
	default:
		return 0
	}
}

func supportScore(csat *float64, sentiment string, convos30d int) float64 {
	score := 70.0
	if csat != nil && *csat > 0 {
		score = *csat / 5.0 * 100
	}

	switch sentiment {
	case "positive":
		score += 10
	case "negative":
		score -= 20
	}

	// High support volume hints at unresolved problems.
	if convos30d > 10 {
		score -= math.Min(float64(convos30d-10), 20)
	}

	return clamp(score, 0, 100)
}

func paymentScore(status domain.SubscriptionStatus, delinquent bool, failures90d int) float64 {
	var score float64
	switch {
	case status == domain.SubscriptionActive && !delinquent:
		score = 100
	case status == domain.SubscriptionTrialing:
		score = 80
	case status == domain.SubscriptionPastDue:
		score = 40
	case status == domain.SubscriptionCanceled:
		score = 0
	case status == domain.SubscriptionUnpaid:
		score = 20
	default:
		score = 70
	}

	if delinquent {
		score = math.Min(score, 30)
	}
	if failures90d > 0 {
		score -= math.Min(float64(failures90d)*10, 30)
	}

	return math.Max(0, score)
}

// engagementScore is additive: logins up to 50 points, onboarding 30,
// feature adoption up to 20.
func engagementScore(logins30d int, onboarded bool, features map[string]any) float64 {
	var score float64
	if logins30d > 0 {
		score = math.Min(float64(logins30d)/20*50, 50)
	}
	if onboarded {
		score += 30
	}
	if len(features) > 0 {
		used := 0
		for _, v := range features {
			if n, ok := toFloat(v); ok && n > 0 {
				used++
			}
		}
		score += math.Min(float64(used)*4, 20)
	}
	return score
}

func tenureScore(signup *time.Time, now time.Time) float64 {
	if signup == nil {
		return 50
	}
	days := int(now.Sub(*signup).Hours() / 24)
	switch {
	case days < 30:
		return 40
	case days < 90:
		return 60
	case days < 180:
		return 75
	case days < 365:
		return 85
	default:
		return 100
	}
}

func mrrWeight(mrr *float64) float64 {
	if mrr == nil || *mrr <= 0 {
		return 50
	}
	switch {
	case *mrr < 50:
		return 60
	case *mrr < 100:
		return 70
	case *mrr < 250:
		return 80
	case *mrr < 500:
		return 90
	default:
		return 100
	}
}

func riskPenalties(c *domain.Customer, days int) float64 {
	var p float64

	if c.MentionedCancel {
		p += 30
	}
	if c.IsDelinquent {
		p += 25
	}
	if days > 30 {
		p += 20
	}
	if c.OpenTickets > 0 {
		p += math.Min(float64(c.OpenTickets)*5, 15)
	}
	if c.ShowRate != nil && *c.ShowRate > 0 && *c.ShowRate < 50 && c.TotalCallsBooked >= 3 {
		p += 10
	}
	if c.MRR != nil && *c.MRR > 200 && c.NextCallDate == nil {
		p += 10
	}

	return p
}

// churnRisk inverts the health score and amplifies it by the presence
// of specific hard signals.
func churnRisk(score float64, c *domain.Customer, days int, engagement float64) float64 {
	risk := 100 - score
	mult := 1.0

	if c.MentionedCancel {
		mult *= 1.5
	}
	if c.IsDelinquent {
		mult *= 1.4
	}
	if days > 30 {
		mult *= 1.3
	}
	if engagement < 30 {
		mult *= 1.2
	}
	if c.NextCallDate == nil && c.MRR != nil && *c.MRR > 200 {
		mult *= 1.1
	}

	return math.Min(risk*mult, 100)
}

// riskSignals lists named reasons a customer is at risk, in fixed order
// so repeated passes over unchanged data produce identical output.
func riskSignals(c *domain.Customer, days int, now time.Time) []domain.RiskSignal {
	var signals []domain.RiskSignal

	if c.MentionedCancel {
		signals = append(signals, domain.RiskSignal{
			Type:     "cancel_mention",
			Severity: domain.SeverityCritical,
			Message:  "Customer mentioned canceling in support",
		})
	}
	if c.IsDelinquent {
		signals = append(signals, domain.RiskSignal{
			Type:     "payment_delinquent",
			Severity: domain.SeverityCritical,
			Message:  "Payment is delinquent",
		})
	}
	if days > 30 {
		signals = append(signals, domain.RiskSignal{
			Type:     "inactive",
			Severity: domain.SeverityHigh,
			Message:  fmt.Sprintf("No activity in %d days", days),
		})
	}
	if c.CSATScore != nil && *c.CSATScore > 0 && *c.CSATScore <= 2 {
		signals = append(signals, domain.RiskSignal{
			Type:     "low_satisfaction",
			Severity: domain.SeverityHigh,
			Message:  fmt.Sprintf("CSAT score: %.1f/5", *c.CSATScore),
		})
	}
	if c.ShowRate != nil && *c.ShowRate > 0 && *c.ShowRate < 50 && c.TotalCallsBooked >= 3 {
		signals = append(signals, domain.RiskSignal{
			Type:     "low_show_rate",
			Severity: domain.SeverityMedium,
			Message:  fmt.Sprintf("Show rate: %.0f%%", *c.ShowRate),
		})
	}
	if c.OpenTickets > 3 {
		signals = append(signals, domain.RiskSignal{
			Type:     "support_volume",
			Severity: domain.SeverityMedium,
			Message:  fmt.Sprintf("%d open tickets", c.OpenTickets),
		})
	}
	if !c.OnboardingComplete && c.SignupDate != nil {
		if int(now.Sub(*c.SignupDate).Hours()/24) > 60 {
			signals = append(signals, domain.RiskSignal{
				Type:     "onboarding_incomplete",
				Severity: domain.SeverityMedium,
				Message:  "Onboarding not completed",
			})
		}
	}

	return signals
}

// recommendAction picks a playbook step from the status bucket and the
// dominant signal.
func recommendAction(c *domain.Customer, status domain.HealthStatus, days int) string {
	switch status {
	case domain.HealthCritical:
		switch {
		case c.MentionedCancel:
			return "Urgent: Contact immediately - cancel risk"
		case c.IsDelinquent:
			return "Urgent: Resolve payment issue"
		default:
			return "Urgent: Schedule retention call"
		}
	case domain.HealthHighRisk:
		switch {
		case days > 30:
			return "Re-engagement campaign needed"
		case c.NextCallDate == nil:
			return "Schedule check-in call"
		default:
			return "Monitor closely and provide proactive support"
		}
	case domain.HealthAtRisk:
		return "Proactive outreach to improve engagement"
	default:
		if c.MRR != nil && *c.MRR > 500 {
			return "Explore expansion opportunities"
		}
		return "Maintain current engagement"
	}
}

func toFloat(v any) (float64, bool) {
	switch n := v.(type) {
	case float64:
		return n, true
	case float32:
		return float64(n), true
	case int:
		return float64(n), true
	case int64:
		return float64(n), true
	case bool:
		if n {
			return 1, true
		}
		return 0, true
	default:
		return 0, false
	}
}

func clamp(v, lo, hi float64) float64 {
	return math.Max(lo, math.Min(hi, v))
}

func round2(v float64) float64 {
	return math.Round(v*100) / 100
}
