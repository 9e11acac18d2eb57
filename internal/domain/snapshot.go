package domain

import "time"

// HealthSnapshot is one point-in-time record of a customer's computed
// health, appended every scoring pass.
type HealthSnapshot struct {
	ID         string `json:"id" db:"id"`
	CustomerID string `json:"customer_id" db:"customer_id"`

	HealthScore  float64      `json:"health_score" db:"health_score"`
	HealthStatus HealthStatus `json:"health_status" db:"health_status"`
	ChurnRisk    float64      `json:"churn_risk" db:"churn_risk"`

	ScoreComponents map[string]float64 `json:"score_components" db:"score_components"`
	RiskSignals     []RiskSignal       `json:"risk_signals" db:"risk_signals"`

	RecordedAt time.Time `json:"recorded_at" db:"recorded_at"`
}
