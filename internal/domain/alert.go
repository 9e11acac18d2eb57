package domain

import "time"

// AlertKind enumerates the alert categories the dedup engine manages.
type AlertKind string

const (
	AlertCancelMention  AlertKind = "cancel_mention"
	AlertDelinquent     AlertKind = "payment_delinquent"
	AlertHealthDrop     AlertKind = "health_drop"
	AlertEngagementDrop AlertKind = "engagement_drop"
	AlertAtRisk         AlertKind = "at_risk"
)

// AlertSeverity ranks how urgent an alert is.
type AlertSeverity string

const (
	SeverityCritical AlertSeverity = "critical"
	SeverityHigh     AlertSeverity = "high"
	SeverityMedium   AlertSeverity = "medium"
	SeverityLow      AlertSeverity = "low"
)

// AlertRecord is one dispatched alert, kept for history and acknowledgment.
type AlertRecord struct {
	ID         string        `json:"id" db:"id"`
	CustomerID string        `json:"customer_id" db:"customer_id"`
	Kind       AlertKind     `json:"alert_type" db:"alert_type"`
	Severity   AlertSeverity `json:"severity" db:"severity"`
	Message    string        `json:"message" db:"message"`
	Channel    string        `json:"channel,omitempty" db:"channel"`

	SentAt         time.Time  `json:"sent_at" db:"sent_at"`
	AcknowledgedAt *time.Time `json:"acknowledged_at" db:"acknowledged_at"`
	AcknowledgedBy string     `json:"acknowledged_by,omitempty" db:"acknowledged_by"`
}

// RiskSignal is one named reason a customer is considered at risk.
type RiskSignal struct {
	Type     string        `json:"type"`
	Severity AlertSeverity `json:"severity"`
	Message  string        `json:"message"`
}
