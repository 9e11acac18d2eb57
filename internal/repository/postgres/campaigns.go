package postgres

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/ignite/customer-intel/internal/domain"
)

// CampaignRepo persists outbound campaigns and serves the matching
// pass its customer index.
type CampaignRepo struct{ db *sql.DB }

// NewCampaignRepo creates a Postgres-backed campaign repository.
func NewCampaignRepo(db *sql.DB) *CampaignRepo { return &CampaignRepo{db: db} }

// ListForMatching returns the slim customer projection the fuzzy
// matcher indexes. Customers without a name or company are still
// returned; the matcher skips what it cannot index.
func (r *CampaignRepo) ListForMatching(ctx context.Context) ([]domain.Customer, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT customer_id, email, name, company_name
		FROM unified_customers
		WHERE churned_at IS NULL
	`)
	if err != nil {
		return nil, fmt.Errorf("list customers for matching: %w", err)
	}
	defer rows.Close()

	var out []domain.Customer
	for rows.Next() {
		var c domain.Customer
		if err := rows.Scan(&c.ID, &c.Email, &c.Name, &c.CompanyName); err != nil {
			return nil, fmt.Errorf("scan matching row: %w", err)
		}
		out = append(out, c)
	}
	return out, rows.Err()
}

// UpsertCampaign writes a campaign keyed by its SmartLead ID. The
// insert branch keeps the caller's generated row id; the update branch
// overwrites everything the sync pass derives, link included, so a
// campaign that stops matching loses its stale customer link.
func (r *CampaignRepo) UpsertCampaign(ctx context.Context, c *domain.Campaign) (bool, error) {
	var inserted bool
	err := r.db.QueryRowContext(ctx, `
		INSERT INTO campaigns
			(id, customer_id, smartlead_campaign_id, campaign_name, status,
			 leads_count, emails_sent, reply_count, positive_reply_count, bounce_count,
			 reply_rate, positive_reply_rate, bounce_rate,
			 created_at, updated_at, last_synced_at)
		VALUES ($1, NULLIF($2, ''), $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16)
		ON CONFLICT (smartlead_campaign_id) DO UPDATE SET
			customer_id = NULLIF(EXCLUDED.customer_id, ''),
			campaign_name = EXCLUDED.campaign_name,
			status = EXCLUDED.status,
			leads_count = EXCLUDED.leads_count,
			emails_sent = EXCLUDED.emails_sent,
			reply_count = EXCLUDED.reply_count,
			positive_reply_count = EXCLUDED.positive_reply_count,
			bounce_count = EXCLUDED.bounce_count,
			reply_rate = EXCLUDED.reply_rate,
			positive_reply_rate = EXCLUDED.positive_reply_rate,
			bounce_rate = EXCLUDED.bounce_rate,
			updated_at = EXCLUDED.updated_at,
			last_synced_at = EXCLUDED.last_synced_at
		RETURNING (xmax = 0)
	`,
		c.ID, c.CustomerID, c.SmartleadCampaignID, c.Name, c.Status,
		c.LeadsCount, c.EmailsSent, c.ReplyCount, c.PositiveReplyCount, c.BounceCount,
		c.ReplyRate, c.PositiveReplyRate, c.BounceRate,
		c.CreatedAt, c.UpdatedAt, c.LastSyncedAt,
	).Scan(&inserted)
	if err != nil {
		return false, fmt.Errorf("upsert campaign: %w", err)
	}
	return inserted, nil
}

const campaignColumns = `
	id, COALESCE(customer_id, ''), smartlead_campaign_id, campaign_name, status,
	leads_count, emails_sent, reply_count, positive_reply_count, bounce_count,
	reply_rate, positive_reply_rate, bounce_rate,
	created_at, updated_at, last_synced_at`

// List returns campaigns, optionally filtered by status or customer,
// most recently synced first.
func (r *CampaignRepo) List(ctx context.Context, status domain.CampaignStatus, customerID string, limit int) ([]domain.Campaign, error) {
	q := `SELECT ` + campaignColumns + ` FROM campaigns WHERE 1=1`
	args := []any{}
	idx := 1

	if status != "" {
		q += fmt.Sprintf(" AND status = $%d", idx)
		args = append(args, status)
		idx++
	}
	if customerID != "" {
		q += fmt.Sprintf(" AND customer_id = $%d", idx)
		args = append(args, customerID)
		idx++
	}

	q += fmt.Sprintf(" ORDER BY last_synced_at DESC NULLS LAST, campaign_name ASC LIMIT $%d", idx)
	args = append(args, limit)

	rows, err := r.db.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, fmt.Errorf("list campaigns: %w", err)
	}
	defer rows.Close()

	var out []domain.Campaign
	for rows.Next() {
		var c domain.Campaign
		if err := rows.Scan(
			&c.ID, &c.CustomerID, &c.SmartleadCampaignID, &c.Name, &c.Status,
			&c.LeadsCount, &c.EmailsSent, &c.ReplyCount, &c.PositiveReplyCount, &c.BounceCount,
			&c.ReplyRate, &c.PositiveReplyRate, &c.BounceRate,
			&c.CreatedAt, &c.UpdatedAt, &c.LastSyncedAt,
		); err != nil {
			return nil, fmt.Errorf("scan campaign: %w", err)
		}
		out = append(out, c)
	}
	return out, rows.Err()
}
