package alerting

import (
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/osteele/liquid"

	"github.com/ignite/customer-intel/internal/domain"
)

// Renderer turns customer state into alert message bodies using Liquid
// templates, with caching keyed by alert kind.
type Renderer struct {
	engine *liquid.Engine
	cache  sync.Map // map[domain.AlertKind]*liquid.Template
}

// NewRenderer creates a renderer with the alert-specific filters
// registered.
func NewRenderer() *Renderer {
	engine := liquid.NewEngine()

	// Default value filter: {{ company_name | default: "N/A" }}
	engine.RegisterFilter("default", func(value interface{}, defaultVal string) interface{} {
		if value == nil {
			return defaultVal
		}
		strVal := fmt.Sprintf("%v", value)
		if strVal == "" || strVal == "<nil>" || strVal == "0001-01-01 00:00:00 +0000 UTC" {
			return defaultVal
		}
		return value
	})

	// Dollar formatting: {{ mrr | usd }}
	engine.RegisterFilter("usd", func(value interface{}) string {
		switch v := value.(type) {
		case float64:
			return fmt.Sprintf("$%.0f", v)
		case int:
			return fmt.Sprintf("$%d", v)
		default:
			return "$0"
		}
	})

	// One-decimal score formatting: {{ drop | pts }}
	engine.RegisterFilter("pts", func(value interface{}) string {
		if v, ok := value.(float64); ok {
			return fmt.Sprintf("%.1f", v)
		}
		return fmt.Sprintf("%v", value)
	})

	return &Renderer{engine: engine}
}

var templates = map[domain.AlertKind]string{
	domain.AlertCancelMention: strings.TrimSpace(`
:rotating_light: *CANCEL RISK DETECTED*

*Customer:* {{ name | default: "Unknown" }} ({{ email }})
*Company:* {{ company_name | default: "N/A" }}
*MRR:* {{ mrr | usd }}
*Assigned AM:* {{ assigned_am | default: "Unassigned" }}

*Risk Signal:* Customer mentioned canceling in recent support conversation

*Health Score:* {{ health_score | default: "N/A" }} ({{ health_status | default: "unknown" }})
*Churn Risk:* {{ churn_risk | default: "N/A" }}%

*Recommended Action:* {{ recommended_action | default: "Contact immediately" }}`),

	domain.AlertDelinquent: strings.TrimSpace(`
:credit_card: *PAYMENT ISSUE DETECTED*

*Customer:* {{ name | default: "Unknown" }} ({{ email }})
*Company:* {{ company_name | default: "N/A" }}
*MRR:* {{ mrr | usd }}
*Plan:* {{ plan_name | default: "N/A" }}
*Assigned AM:* {{ assigned_am | default: "Unassigned" }}

*Issue:* Payment is delinquent

*Health Score:* {{ health_score | default: "N/A" }} ({{ health_status | default: "unknown" }})

*Recommended Action:* Contact customer to update payment method`),

	domain.AlertHealthDrop: strings.TrimSpace(`
:chart_with_downwards_trend: *HEALTH SCORE DROP*

*Customer:* {{ name | default: "Unknown" }} ({{ email }})
*Company:* {{ company_name | default: "N/A" }}
*MRR:* {{ mrr | usd }}
*Assigned AM:* {{ assigned_am | default: "Unassigned" }}

*Health Score Drop:* :arrow_down: {{ drop_amount | pts }} points
*Current Score:* {{ health_score | default: "N/A" }} ({{ health_status | default: "unknown" }})

*Risk Signals:*
{{ risk_signals }}

*Recommended Action:* {{ recommended_action | default: "Investigate cause" }}`),

	domain.AlertEngagementDrop: strings.TrimSpace(`
:sleeping: *CUSTOMER GONE QUIET*

*Customer:* {{ name | default: "Unknown" }} ({{ email }})
*Company:* {{ company_name | default: "N/A" }}
*MRR:* {{ mrr | usd }}
*Assigned AM:* {{ assigned_am | default: "Unassigned" }}

*Issue:* No activity in {{ days_since_seen | default: "Unknown" }} days

*Login Frequency:* {{ login_count_30d | default: "0" }} logins in last 30 days

*Recommended Action:* Re-engagement campaign or check-in call`),

	domain.AlertAtRisk: strings.TrimSpace(`
:warning: *CUSTOMER NOW AT RISK*

*Customer:* {{ name | default: "Unknown" }} ({{ email }})
*Company:* {{ company_name | default: "N/A" }}
*MRR:* {{ mrr | usd }}
*Assigned AM:* {{ assigned_am | default: "Unassigned" }}

*Status:* {{ health_status | default: "unknown" }}
*Health Score:* {{ health_score | default: "N/A" }}
*Churn Risk:* {{ churn_risk | default: "N/A" }}%

*Risk Signals:*
{{ risk_signals }}

*Recommended Action:* {{ recommended_action | default: "Plan intervention" }}`),
}

// Render builds the message body for one alert kind. Extra bindings
// (like drop_amount) are layered over the customer's fields.
func (r *Renderer) Render(kind domain.AlertKind, c *domain.Customer, extra map[string]any, now time.Time) (string, error) {
	src, ok := templates[kind]
	if !ok {
		return "", fmt.Errorf("no template for alert kind %q", kind)
	}

	tpl, err := r.template(kind, src)
	if err != nil {
		return "", err
	}

	bindings := map[string]any{
		"name":               c.Name,
		"email":              c.Email,
		"company_name":       c.CompanyName,
		"assigned_am":        c.AssignedAM,
		"plan_name":          c.PlanName,
		"health_status":      string(c.HealthStatus),
		"recommended_action": c.RecommendedAction,
		"login_count_30d":    c.LoginCount30d,
		"risk_signals":       formatRiskSignals(c.RiskSignals),
	}
	if c.MRR != nil {
		bindings["mrr"] = *c.MRR
	}
	if c.HealthScore != nil {
		bindings["health_score"] = *c.HealthScore
	}
	if c.ChurnRisk != nil {
		bindings["churn_risk"] = *c.ChurnRisk
	}
	if days := c.DaysSinceSeen(now); days >= 0 {
		bindings["days_since_seen"] = days
	}
	for k, v := range extra {
		bindings[k] = v
	}

	out, err := tpl.RenderString(bindings)
	if err != nil {
		return "", fmt.Errorf("render %s alert: %w", kind, err)
	}
	return out, nil
}

func (r *Renderer) template(kind domain.AlertKind, src string) (*liquid.Template, error) {
	if cached, ok := r.cache.Load(kind); ok {
		return cached.(*liquid.Template), nil
	}
	tpl, err := r.engine.ParseString(src)
	if err != nil {
		return nil, fmt.Errorf("parse %s template: %w", kind, err)
	}
	r.cache.Store(kind, tpl)
	return tpl, nil
}

func formatRiskSignals(signals []domain.RiskSignal) string {
	if len(signals) == 0 {
		return "None identified"
	}
	icons := map[domain.AlertSeverity]string{
		domain.SeverityCritical: ":red_circle:",
		domain.SeverityHigh:     ":large_orange_circle:",
		domain.SeverityMedium:   ":large_yellow_circle:",
		domain.SeverityLow:      ":large_blue_circle:",
	}
	lines := make([]string, 0, len(signals))
	for _, s := range signals {
		icon, ok := icons[s.Severity]
		if !ok {
			icon = ":large_blue_circle:"
		}
		lines = append(lines, icon+" "+s.Message)
	}
	return strings.Join(lines, "\n")
}
