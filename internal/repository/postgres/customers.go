// Package postgres implements the persistence interfaces against
// PostgreSQL. JSON-shaped fields live in JSONB columns; tags are a
// text array.
package postgres

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"

	"github.com/lib/pq"

	"github.com/ignite/customer-intel/internal/domain"
	"github.com/ignite/customer-intel/internal/service/customer"
	"github.com/ignite/customer-intel/internal/service/identity"
)

// CustomerRepo implements customer.Repository and the alert
// persistence surface against PostgreSQL.
type CustomerRepo struct{ db *sql.DB }

// NewCustomerRepo creates a Postgres-backed customer repository.
func NewCustomerRepo(db *sql.DB) *CustomerRepo { return &CustomerRepo{db: db} }

const customerColumns = `
	customer_id, email, intercom_contact_id, calendly_invitee_id, airtable_record_id,
	name, company_name, location_country, location_city,
	assigned_am, assigned_am_email, customer_type, acquisition_source, signup_date,
	mrr, arr, ltv, plan_name, plan_price, billing_interval,
	subscription_status, is_delinquent, payment_failures_90d,
	last_seen_at, login_count_7d, login_count_30d, onboarding_complete, feature_usage,
	convos_total, convos_30d, csat_score, support_sentiment, open_tickets, mentioned_cancel,
	total_calls_booked, calls_completed, calls_no_show, calls_canceled, calls_rescheduled,
	show_rate, last_call_date, next_call_date,
	health_score, health_status, churn_risk, risk_signals, recommended_action,
	health_score_components, health_calculated_at,
	industry, company_size, tags, custom_attributes,
	churned_at, churn_reason,
	last_intercom_sync, last_calendly_sync, last_smartlead_sync, last_airtable_sync, last_fathom_sync,
	alert_cancel_sent_at, alert_delinquent_sent_at, alert_health_drop_sent_at,
	alert_engagement_drop_sent_at, last_alert_sent_at,
	created_at, updated_at`

type rowScanner interface {
	Scan(dest ...any) error
}

func scanCustomer(row rowScanner) (*domain.Customer, error) {
	c := &domain.Customer{}
	var featureUsage, riskSignals, components, customAttrs []byte

	err := row.Scan(
		&c.ID, &c.Email, &c.IntercomContactID, &c.CalendlyInviteeID, &c.AirtableRecordID,
		&c.Name, &c.CompanyName, &c.LocationCountry, &c.LocationCity,
		&c.AssignedAM, &c.AssignedAMEmail, &c.CustomerType, &c.AcquisitionSource, &c.SignupDate,
		&c.MRR, &c.ARR, &c.LTV, &c.PlanName, &c.PlanPrice, &c.BillingInterval,
		&c.SubscriptionStatus, &c.IsDelinquent, &c.PaymentFailures90d,
		&c.LastSeenAt, &c.LoginCount7d, &c.LoginCount30d, &c.OnboardingComplete, &featureUsage,
		&c.ConvosTotal, &c.Convos30d, &c.CSATScore, &c.SupportSentiment, &c.OpenTickets, &c.MentionedCancel,
		&c.TotalCallsBooked, &c.CallsCompleted, &c.CallsNoShow, &c.CallsCanceled, &c.CallsRescheduled,
		&c.ShowRate, &c.LastCallDate, &c.NextCallDate,
		&c.HealthScore, &c.HealthStatus, &c.ChurnRisk, &riskSignals, &c.RecommendedAction,
		&components, &c.HealthCalculatedAt,
		&c.Industry, &c.CompanySize, pq.Array(&c.Tags), &customAttrs,
		&c.ChurnedAt, &c.ChurnReason,
		&c.LastIntercomSync, &c.LastCalendlySync, &c.LastSmartleadSync, &c.LastAirtableSync, &c.LastFathomSync,
		&c.AlertCancelSentAt, &c.AlertDelinquentSentAt, &c.AlertHealthDropSentAt,
		&c.AlertEngagementDropSentAt, &c.LastAlertSentAt,
		&c.CreatedAt, &c.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}

	if err := fromJSONB(featureUsage, &c.FeatureUsage); err != nil {
		return nil, fmt.Errorf("decode feature_usage: %w", err)
	}
	if err := fromJSONB(riskSignals, &c.RiskSignals); err != nil {
		return nil, fmt.Errorf("decode risk_signals: %w", err)
	}
	if err := fromJSONB(components, &c.ScoreComponents); err != nil {
		return nil, fmt.Errorf("decode health_score_components: %w", err)
	}
	if err := fromJSONB(customAttrs, &c.CustomAttributes); err != nil {
		return nil, fmt.Errorf("decode custom_attributes: %w", err)
	}
	return c, nil
}

// FindByEmail returns the customer for a normalized email, nil when
// absent. More than one row for an email is a data defect.
func (r *CustomerRepo) FindByEmail(ctx context.Context, email string) (*domain.Customer, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT `+customerColumns+` FROM unified_customers WHERE email = $1`, email)
	if err != nil {
		return nil, fmt.Errorf("find customer by email: %w", err)
	}
	defer rows.Close()

	var found *domain.Customer
	for rows.Next() {
		if found != nil {
			return nil, identity.ErrAmbiguousIdentity
		}
		found, err = scanCustomer(rows)
		if err != nil {
			return nil, fmt.Errorf("scan customer: %w", err)
		}
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("find customer by email: %w", err)
	}
	return found, nil
}

// Get returns a customer by id.
func (r *CustomerRepo) Get(ctx context.Context, id string) (*domain.Customer, error) {
	row := r.db.QueryRowContext(ctx,
		`SELECT `+customerColumns+` FROM unified_customers WHERE customer_id = $1`, id)
	c, err := scanCustomer(row)
	if err == sql.ErrNoRows {
		return nil, customer.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get customer: %w", err)
	}
	return c, nil
}

// Create inserts a freshly resolved customer shell.
func (r *CustomerRepo) Create(ctx context.Context, c *domain.Customer) error {
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO unified_customers (customer_id, email, name, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5)
	`, c.ID, c.Email, c.Name, c.CreatedAt, c.UpdatedAt)
	if err != nil {
		return fmt.Errorf("create customer: %w", err)
	}
	return nil
}

// SaveScored writes the merged customer and its health snapshot in one
// transaction so a partial pass can never leave a score without its
// history row.
func (r *CustomerRepo) SaveScored(ctx context.Context, c *domain.Customer, snap *domain.HealthSnapshot) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin save: %w", err)
	}
	defer tx.Rollback()

	featureUsage, err := toJSONB(c.FeatureUsage)
	if err != nil {
		return fmt.Errorf("encode feature_usage: %w", err)
	}
	riskSignals, err := toJSONB(c.RiskSignals)
	if err != nil {
		return fmt.Errorf("encode risk_signals: %w", err)
	}
	components, err := toJSONB(c.ScoreComponents)
	if err != nil {
		return fmt.Errorf("encode health_score_components: %w", err)
	}
	customAttrs, err := toJSONB(c.CustomAttributes)
	if err != nil {
		return fmt.Errorf("encode custom_attributes: %w", err)
	}

	_, err = tx.ExecContext(ctx, `
		UPDATE unified_customers SET
			intercom_contact_id = $2, calendly_invitee_id = $3, airtable_record_id = $4,
			name = $5, company_name = $6, location_country = $7, location_city = $8,
			assigned_am = $9, assigned_am_email = $10, customer_type = $11,
			acquisition_source = $12, signup_date = $13,
			mrr = $14, arr = $15, ltv = $16, plan_name = $17, plan_price = $18,
			billing_interval = $19, subscription_status = $20, is_delinquent = $21,
			payment_failures_90d = $22,
			last_seen_at = $23, login_count_7d = $24, login_count_30d = $25,
			onboarding_complete = $26, feature_usage = $27,
			convos_total = $28, convos_30d = $29, csat_score = $30,
			support_sentiment = $31, open_tickets = $32, mentioned_cancel = $33,
			total_calls_booked = $34, calls_completed = $35, calls_no_show = $36,
			calls_canceled = $37, calls_rescheduled = $38, show_rate = $39,
			last_call_date = $40, next_call_date = $41,
			health_score = $42, health_status = $43, churn_risk = $44,
			risk_signals = $45, recommended_action = $46,
			health_score_components = $47, health_calculated_at = $48,
			industry = $49, company_size = $50, tags = $51, custom_attributes = $52,
			churned_at = $53, churn_reason = $54,
			last_intercom_sync = $55, last_calendly_sync = $56, last_smartlead_sync = $57,
			last_airtable_sync = $58, last_fathom_sync = $59,
			alert_cancel_sent_at = $60, alert_delinquent_sent_at = $61,
			alert_health_drop_sent_at = $62, alert_engagement_drop_sent_at = $63,
			last_alert_sent_at = $64,
			updated_at = $65
		WHERE customer_id = $1
	`,
		c.ID,
		c.IntercomContactID, c.CalendlyInviteeID, c.AirtableRecordID,
		c.Name, c.CompanyName, c.LocationCountry, c.LocationCity,
		c.AssignedAM, c.AssignedAMEmail, c.CustomerType,
		c.AcquisitionSource, c.SignupDate,
		c.MRR, c.ARR, c.LTV, c.PlanName, c.PlanPrice,
		c.BillingInterval, c.SubscriptionStatus, c.IsDelinquent,
		c.PaymentFailures90d,
		c.LastSeenAt, c.LoginCount7d, c.LoginCount30d,
		c.OnboardingComplete, featureUsage,
		c.ConvosTotal, c.Convos30d, c.CSATScore,
		c.SupportSentiment, c.OpenTickets, c.MentionedCancel,
		c.TotalCallsBooked, c.CallsCompleted, c.CallsNoShow,
		c.CallsCanceled, c.CallsRescheduled, c.ShowRate,
		c.LastCallDate, c.NextCallDate,
		c.HealthScore, c.HealthStatus, c.ChurnRisk,
		riskSignals, c.RecommendedAction,
		components, c.HealthCalculatedAt,
		c.Industry, c.CompanySize, pq.Array(c.Tags), customAttrs,
		c.ChurnedAt, c.ChurnReason,
		c.LastIntercomSync, c.LastCalendlySync, c.LastSmartleadSync,
		c.LastAirtableSync, c.LastFathomSync,
		c.AlertCancelSentAt, c.AlertDelinquentSentAt,
		c.AlertHealthDropSentAt, c.AlertEngagementDropSentAt,
		c.LastAlertSentAt,
		c.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("save customer: %w", err)
	}

	if snap != nil {
		snapSignals, err := toJSONB(snap.RiskSignals)
		if err != nil {
			return fmt.Errorf("encode snapshot risk_signals: %w", err)
		}
		snapComponents, err := toJSONB(snap.ScoreComponents)
		if err != nil {
			return fmt.Errorf("encode snapshot components: %w", err)
		}
		_, err = tx.ExecContext(ctx, `
			INSERT INTO health_history
				(id, customer_id, health_score, health_status, churn_risk,
				 risk_signals, score_components, recorded_at)
			VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		`, snap.ID, snap.CustomerID, snap.HealthScore, snap.HealthStatus, snap.ChurnRisk,
			snapSignals, snapComponents, snap.RecordedAt)
		if err != nil {
			return fmt.Errorf("append health snapshot: %w", err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit save: %w", err)
	}
	return nil
}

// List returns customers matching the filter, highest MRR first.
func (r *CustomerRepo) List(ctx context.Context, f customer.Filter) ([]domain.Customer, error) {
	q := `SELECT ` + customerColumns + ` FROM unified_customers WHERE 1=1`
	args := []any{}
	idx := 1

	if f.HealthStatus != "" {
		q += fmt.Sprintf(" AND health_status = $%d", idx)
		args = append(args, f.HealthStatus)
		idx++
	}
	if f.AssignedAM != "" {
		q += fmt.Sprintf(" AND assigned_am = $%d", idx)
		args = append(args, f.AssignedAM)
		idx++
	}
	if f.MinMRR != nil {
		q += fmt.Sprintf(" AND mrr >= $%d", idx)
		args = append(args, *f.MinMRR)
		idx++
	}

	q += fmt.Sprintf(" ORDER BY mrr DESC NULLS LAST, email ASC LIMIT $%d OFFSET $%d", idx, idx+1)
	args = append(args, f.Limit, f.Offset)

	return r.queryCustomers(ctx, q, args...)
}

// AtRisk returns scored, non-churned customers ordered by churn risk.
func (r *CustomerRepo) AtRisk(ctx context.Context, limit int) ([]domain.Customer, error) {
	q := `SELECT ` + customerColumns + ` FROM unified_customers
		WHERE churn_risk IS NOT NULL
		  AND churned_at IS NULL
		  AND health_status IN ('at_risk', 'high_risk', 'critical')
		ORDER BY churn_risk DESC, mrr DESC NULLS LAST
		LIMIT $1`
	return r.queryCustomers(ctx, q, limit)
}

func (r *CustomerRepo) queryCustomers(ctx context.Context, q string, args ...any) ([]domain.Customer, error) {
	rows, err := r.db.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, fmt.Errorf("query customers: %w", err)
	}
	defer rows.Close()

	var out []domain.Customer
	for rows.Next() {
		c, err := scanCustomer(rows)
		if err != nil {
			return nil, fmt.Errorf("scan customer: %w", err)
		}
		out = append(out, *c)
	}
	return out, rows.Err()
}

// History returns a customer's health snapshots, newest first.
func (r *CustomerRepo) History(ctx context.Context, customerID string, limit int) ([]domain.HealthSnapshot, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT id, customer_id, health_score, health_status, churn_risk,
		       risk_signals, score_components, recorded_at
		FROM health_history
		WHERE customer_id = $1
		ORDER BY recorded_at DESC
		LIMIT $2
	`, customerID, limit)
	if err != nil {
		return nil, fmt.Errorf("query health history: %w", err)
	}
	defer rows.Close()

	var out []domain.HealthSnapshot
	for rows.Next() {
		var s domain.HealthSnapshot
		var signals, components []byte
		if err := rows.Scan(&s.ID, &s.CustomerID, &s.HealthScore, &s.HealthStatus, &s.ChurnRisk,
			&signals, &components, &s.RecordedAt); err != nil {
			return nil, fmt.Errorf("scan snapshot: %w", err)
		}
		if err := fromJSONB(signals, &s.RiskSignals); err != nil {
			return nil, fmt.Errorf("decode snapshot risk_signals: %w", err)
		}
		if err := fromJSONB(components, &s.ScoreComponents); err != nil {
			return nil, fmt.Errorf("decode snapshot components: %w", err)
		}
		out = append(out, s)
	}
	return out, rows.Err()
}

// Alerts returns a customer's dispatched alerts, newest first.
func (r *CustomerRepo) Alerts(ctx context.Context, customerID string, limit int) ([]domain.AlertRecord, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT id, customer_id, alert_type, severity, message, channel,
		       sent_at, acknowledged_at, acknowledged_by
		FROM alert_history
		WHERE customer_id = $1
		ORDER BY sent_at DESC
		LIMIT $2
	`, customerID, limit)
	if err != nil {
		return nil, fmt.Errorf("query alerts: %w", err)
	}
	defer rows.Close()

	var out []domain.AlertRecord
	for rows.Next() {
		var a domain.AlertRecord
		if err := rows.Scan(&a.ID, &a.CustomerID, &a.Kind, &a.Severity, &a.Message,
			&a.Channel, &a.SentAt, &a.AcknowledgedAt, &a.AcknowledgedBy); err != nil {
			return nil, fmt.Errorf("scan alert: %w", err)
		}
		out = append(out, a)
	}
	return out, rows.Err()
}

// AppendAlert records one dispatched alert.
func (r *CustomerRepo) AppendAlert(ctx context.Context, a *domain.AlertRecord) error {
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO alert_history (id, customer_id, alert_type, severity, message, channel, sent_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
	`, a.ID, a.CustomerID, a.Kind, a.Severity, a.Message, a.Channel, a.SentAt)
	if err != nil {
		return fmt.Errorf("append alert: %w", err)
	}
	return nil
}

// SaveAlertState persists just the dedup columns so alert bookkeeping
// cannot clobber a concurrent merge pass.
func (r *CustomerRepo) SaveAlertState(ctx context.Context, c *domain.Customer) error {
	_, err := r.db.ExecContext(ctx, `
		UPDATE unified_customers SET
			alert_cancel_sent_at = $2,
			alert_delinquent_sent_at = $3,
			alert_health_drop_sent_at = $4,
			alert_engagement_drop_sent_at = $5,
			last_alert_sent_at = $6
		WHERE customer_id = $1
	`, c.ID, c.AlertCancelSentAt, c.AlertDelinquentSentAt,
		c.AlertHealthDropSentAt, c.AlertEngagementDropSentAt, c.LastAlertSentAt)
	if err != nil {
		return fmt.Errorf("save alert state: %w", err)
	}
	return nil
}

// Summary aggregates the dashboard rollup in one round trip per facet.
func (r *CustomerRepo) Summary(ctx context.Context) (*customer.Summary, error) {
	s := &customer.Summary{ByStatus: make(map[string]customer.StatusBlock)}

	rows, err := r.db.QueryContext(ctx, `
		SELECT COALESCE(health_status, 'unscored'), COUNT(*), COALESCE(SUM(mrr), 0)
		FROM unified_customers
		GROUP BY health_status
	`)
	if err != nil {
		return nil, fmt.Errorf("summary by status: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var status string
		var block customer.StatusBlock
		if err := rows.Scan(&status, &block.Count, &block.MRR); err != nil {
			return nil, fmt.Errorf("scan summary row: %w", err)
		}
		s.ByStatus[status] = block
		s.TotalCustomers += block.Count
		s.TotalMRR += block.MRR
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	err = r.db.QueryRowContext(ctx, `
		SELECT COUNT(*) FROM unified_customers
		WHERE last_seen_at IS NOT NULL AND last_seen_at < NOW() - INTERVAL '30 days'
	`).Scan(&s.Inactive30d)
	if err != nil {
		return nil, fmt.Errorf("summary inactive: %w", err)
	}

	return s, nil
}

// MRRByPlan breaks monthly revenue down per plan, largest first.
func (r *CustomerRepo) MRRByPlan(ctx context.Context) ([]customer.PlanMRR, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT COALESCE(NULLIF(plan_name, ''), 'unknown'), COUNT(*), COALESCE(SUM(mrr), 0)
		FROM unified_customers
		WHERE mrr IS NOT NULL AND mrr > 0
		GROUP BY 1
		ORDER BY 3 DESC
	`)
	if err != nil {
		return nil, fmt.Errorf("mrr by plan: %w", err)
	}
	defer rows.Close()

	var out []customer.PlanMRR
	for rows.Next() {
		var p customer.PlanMRR
		if err := rows.Scan(&p.PlanName, &p.Customers, &p.MRR); err != nil {
			return nil, fmt.Errorf("scan plan mrr: %w", err)
		}
		out = append(out, p)
	}
	return out, rows.Err()
}

func toJSONB(v any) ([]byte, error) {
	if v == nil {
		return nil, nil
	}
	return json.Marshal(v)
}

func fromJSONB(data []byte, dst any) error {
	if len(data) == 0 {
		return nil
	}
	return json.Unmarshal(data, dst)
}
