package alerting

import (
	"context"
	"fmt"
	"strings"
	"time"
)

// SummaryData is the rollup the daily summary message renders. Kept
// free of service types so the read layer can feed it without a cycle.
type SummaryData struct {
	Date           time.Time
	TotalCustomers int
	TotalMRR       float64
	ByStatus       map[string]SummaryBlock
	Inactive30d    int
}

// SummaryBlock is one health bucket's slice of the summary.
type SummaryBlock struct {
	Count int
	MRR   float64
}

const summaryChannel = "#daily-summaries"

var summaryTemplate = strings.TrimSpace(`
:bar_chart: *DAILY CUSTOMER HEALTH SUMMARY*
{{ date }}

*Overall Health:*
  - Healthy: {{ healthy_count }} customers ({{ healthy_mrr | usd }})
  - At Risk: {{ at_risk_count }} customers ({{ at_risk_mrr | usd }})
  - High Risk: {{ high_risk_count }} customers ({{ high_risk_mrr | usd }})
  - Critical: {{ critical_count }} customers ({{ critical_mrr | usd }})

*Total MRR:* {{ total_mrr | usd }}

*Action Items:*
  - {{ critical_count }} customers need urgent attention
  - {{ inactive_30d }} customers inactive 30+ days`)

// RenderSummary renders the daily summary message body.
func (r *Renderer) RenderSummary(data SummaryData) (string, error) {
	tpl, err := r.engine.ParseString(summaryTemplate)
	if err != nil {
		return "", fmt.Errorf("parse summary template: %w", err)
	}

	block := func(status string) SummaryBlock { return data.ByStatus[status] }
	bindings := map[string]any{
		"date":            data.Date.Format("2006-01-02"),
		"total_customers": data.TotalCustomers,
		"total_mrr":       data.TotalMRR,
		"inactive_30d":    data.Inactive30d,
		"healthy_count":   block("healthy").Count,
		"healthy_mrr":     block("healthy").MRR,
		"at_risk_count":   block("at_risk").Count,
		"at_risk_mrr":     block("at_risk").MRR,
		"high_risk_count": block("high_risk").Count,
		"high_risk_mrr":   block("high_risk").MRR,
		"critical_count":  block("critical").Count,
		"critical_mrr":    block("critical").MRR,
	}

	out, err := tpl.RenderString(bindings)
	if err != nil {
		return "", fmt.Errorf("render summary: %w", err)
	}
	return out, nil
}

// SendSummary posts the aggregate health/MRR rollup to the summary
// channel. No dedup state is involved; the caller decides cadence.
func (e *Engine) SendSummary(ctx context.Context, data SummaryData) error {
	if data.Date.IsZero() {
		data.Date = e.now()
	}
	message, err := e.renderer.RenderSummary(data)
	if err != nil {
		return err
	}
	if err := e.notifier.Send(ctx, summaryChannel, message); err != nil {
		return fmt.Errorf("send summary: %w", err)
	}
	return nil
}
