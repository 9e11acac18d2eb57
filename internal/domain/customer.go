package domain

import "time"

// HealthStatus buckets a composite health score.
type HealthStatus string

const (
	HealthHealthy  HealthStatus = "healthy"
	HealthAtRisk   HealthStatus = "at_risk"
	HealthHighRisk HealthStatus = "high_risk"
	HealthCritical HealthStatus = "critical"
)

// SubscriptionStatus mirrors the billing layer's subscription states.
type SubscriptionStatus string

const (
	SubscriptionActive   SubscriptionStatus = "active"
	SubscriptionTrialing SubscriptionStatus = "trialing"
	SubscriptionPastDue  SubscriptionStatus = "past_due"
	SubscriptionCanceled SubscriptionStatus = "canceled"
	SubscriptionUnpaid   SubscriptionStatus = "unpaid"
)

// Source identifies one of the external platforms records are pulled from.
type Source string

const (
	SourceIntercom  Source = "intercom"
	SourceCalendly  Source = "calendly"
	SourceSmartlead Source = "smartlead"
	SourceAirtable  Source = "airtable"
	SourceFathom    Source = "fathom"
)

// AllSources lists every source in canonical sync order.
var AllSources = []Source{SourceIntercom, SourceCalendly, SourceSmartlead, SourceAirtable, SourceFathom}

// Customer is the unified record reconciled across all sources, keyed by
// normalized email. One email, one row.
type Customer struct {
	ID    string `json:"customer_id" db:"customer_id"`
	Email string `json:"email" db:"email"`

	// Per-source identifiers.
	IntercomContactID string `json:"intercom_contact_id,omitempty" db:"intercom_contact_id"`
	CalendlyInviteeID string `json:"calendly_invitee_id,omitempty" db:"calendly_invitee_id"`
	AirtableRecordID  string `json:"airtable_record_id,omitempty" db:"airtable_record_id"`

	// Profile.
	Name              string `json:"name" db:"name"`
	CompanyName       string `json:"company_name" db:"company_name"`
	LocationCountry   string `json:"location_country,omitempty" db:"location_country"`
	LocationCity      string `json:"location_city,omitempty" db:"location_city"`
	AssignedAM        string `json:"assigned_am" db:"assigned_am"`
	AssignedAMEmail   string `json:"assigned_am_email,omitempty" db:"assigned_am_email"`
	CustomerType      string `json:"customer_type,omitempty" db:"customer_type"`
	AcquisitionSource string `json:"acquisition_source,omitempty" db:"acquisition_source"`

	SignupDate *time.Time `json:"signup_date" db:"signup_date"`

	// Revenue and billing.
	MRR                *float64           `json:"mrr" db:"mrr"`
	ARR                *float64           `json:"arr" db:"arr"`
	LTV                *float64           `json:"ltv" db:"ltv"`
	PlanName           string             `json:"plan_name,omitempty" db:"plan_name"`
	PlanPrice          *float64           `json:"plan_price,omitempty" db:"plan_price"`
	BillingInterval    string             `json:"billing_interval,omitempty" db:"billing_interval"`
	SubscriptionStatus SubscriptionStatus `json:"subscription_status" db:"subscription_status"`
	IsDelinquent       bool               `json:"is_delinquent" db:"is_delinquent"`
	PaymentFailures90d int                `json:"payment_failures_90d" db:"payment_failures_90d"`

	// Activity and engagement.
	LastSeenAt         *time.Time     `json:"last_seen_at" db:"last_seen_at"`
	LoginCount7d       int            `json:"login_count_7d" db:"login_count_7d"`
	LoginCount30d      int            `json:"login_count_30d" db:"login_count_30d"`
	OnboardingComplete bool           `json:"onboarding_complete" db:"onboarding_complete"`
	FeatureUsage       map[string]any `json:"feature_usage,omitempty" db:"feature_usage"`

	// Support.
	ConvosTotal      int      `json:"convos_total" db:"convos_total"`
	Convos30d        int      `json:"convos_30d" db:"convos_30d"`
	CSATScore        *float64 `json:"csat_score" db:"csat_score"`
	SupportSentiment string   `json:"support_sentiment,omitempty" db:"support_sentiment"`
	OpenTickets      int      `json:"open_tickets" db:"open_tickets"`
	MentionedCancel  bool     `json:"mentioned_cancel" db:"mentioned_cancel"`

	// Scheduling.
	TotalCallsBooked int        `json:"total_calls_booked" db:"total_calls_booked"`
	CallsCompleted   int        `json:"calls_completed" db:"calls_completed"`
	CallsNoShow      int        `json:"calls_no_show" db:"calls_no_show"`
	CallsCanceled    int        `json:"calls_canceled" db:"calls_canceled"`
	CallsRescheduled int        `json:"calls_rescheduled" db:"calls_rescheduled"`
	ShowRate         *float64   `json:"show_rate" db:"show_rate"`
	LastCallDate     *time.Time `json:"last_call_date" db:"last_call_date"`
	NextCallDate     *time.Time `json:"next_call_date" db:"next_call_date"`

	// Computed health block.
	HealthScore        *float64           `json:"health_score" db:"health_score"`
	HealthStatus       HealthStatus       `json:"health_status" db:"health_status"`
	ChurnRisk          *float64           `json:"churn_risk" db:"churn_risk"`
	RiskSignals        []RiskSignal       `json:"risk_signals" db:"risk_signals"`
	RecommendedAction  string             `json:"recommended_action" db:"recommended_action"`
	ScoreComponents    map[string]float64 `json:"health_score_components,omitempty" db:"health_score_components"`
	HealthCalculatedAt *time.Time         `json:"health_calculated_at" db:"health_calculated_at"`

	// Segmentation.
	Industry         string         `json:"industry,omitempty" db:"industry"`
	CompanySize      string         `json:"company_size,omitempty" db:"company_size"`
	Tags             []string       `json:"tags" db:"tags"`
	CustomAttributes map[string]any `json:"custom_attributes" db:"custom_attributes"`

	// Churn tracking. Canceled customers are flagged, never deleted.
	ChurnedAt   *time.Time `json:"churned_at" db:"churned_at"`
	ChurnReason string     `json:"churn_reason,omitempty" db:"churn_reason"`

	// Per-source sync watermarks.
	LastIntercomSync  *time.Time `json:"last_intercom_sync" db:"last_intercom_sync"`
	LastCalendlySync  *time.Time `json:"last_calendly_sync" db:"last_calendly_sync"`
	LastSmartleadSync *time.Time `json:"last_smartlead_sync" db:"last_smartlead_sync"`
	LastAirtableSync  *time.Time `json:"last_airtable_sync" db:"last_airtable_sync"`
	LastFathomSync    *time.Time `json:"last_fathom_sync" db:"last_fathom_sync"`

	// Alert dedup state. One shared cooldown timestamp across kinds and a
	// per-kind sent-at that acts as a one-shot latch until reset.
	AlertCancelSentAt         *time.Time `json:"alert_cancel_sent_at" db:"alert_cancel_sent_at"`
	AlertDelinquentSentAt     *time.Time `json:"alert_delinquent_sent_at" db:"alert_delinquent_sent_at"`
	AlertHealthDropSentAt     *time.Time `json:"alert_health_drop_sent_at" db:"alert_health_drop_sent_at"`
	AlertEngagementDropSentAt *time.Time `json:"alert_engagement_drop_sent_at" db:"alert_engagement_drop_sent_at"`
	LastAlertSentAt           *time.Time `json:"last_alert_sent_at" db:"last_alert_sent_at"`

	CreatedAt time.Time `json:"created_at" db:"created_at"`
	UpdatedAt time.Time `json:"updated_at" db:"updated_at"`
}

// StatusForScore maps a composite score onto a health bucket.
func StatusForScore(score float64) HealthStatus {
	switch {
	case score >= 70:
		return HealthHealthy
	case score >= 50:
		return HealthAtRisk
	case score >= 30:
		return HealthHighRisk
	default:
		return HealthCritical
	}
}

// DaysSinceSeen returns whole days since the customer was last active,
// or -1 when activity has never been observed.
func (c *Customer) DaysSinceSeen(now time.Time) int {
	if c.LastSeenAt == nil {
		return -1
	}
	return int(now.Sub(*c.LastSeenAt).Hours() / 24)
}

// AlertSentAt returns a pointer to the per-kind sent-at field for kind,
// or nil when the kind carries no one-shot latch.
func (c *Customer) AlertSentAt(kind AlertKind) **time.Time {
	switch kind {
	case AlertCancelMention:
		return &c.AlertCancelSentAt
	case AlertDelinquent:
		return &c.AlertDelinquentSentAt
	case AlertHealthDrop:
		return &c.AlertHealthDropSentAt
	case AlertEngagementDrop:
		return &c.AlertEngagementDropSentAt
	default:
		return nil
	}
}
