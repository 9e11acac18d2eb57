package domain

import "time"

// CampaignStatus is the campaign platform's lifecycle state.
type CampaignStatus string

const (
	CampaignActive    CampaignStatus = "active"
	CampaignPaused    CampaignStatus = "paused"
	CampaignCompleted CampaignStatus = "completed"
	CampaignDraft     CampaignStatus = "draft"
)

// Campaign is one outbound campaign pulled from the campaign platform,
// linked to a customer by fuzzy name matching when possible.
type Campaign struct {
	ID         string `json:"id" db:"id"`
	CustomerID string `json:"customer_id,omitempty" db:"customer_id"`

	SmartleadCampaignID string         `json:"smartlead_campaign_id" db:"smartlead_campaign_id"`
	Name                string         `json:"campaign_name" db:"campaign_name"`
	Status              CampaignStatus `json:"status" db:"status"`

	LeadsCount         int `json:"leads_count" db:"leads_count"`
	EmailsSent         int `json:"emails_sent" db:"emails_sent"`
	ReplyCount         int `json:"reply_count" db:"reply_count"`
	PositiveReplyCount int `json:"positive_reply_count" db:"positive_reply_count"`
	BounceCount        int `json:"bounce_count" db:"bounce_count"`

	ReplyRate         *float64 `json:"reply_rate" db:"reply_rate"`
	PositiveReplyRate *float64 `json:"positive_reply_rate" db:"positive_reply_rate"`
	BounceRate        *float64 `json:"bounce_rate" db:"bounce_rate"`

	CreatedAt    time.Time  `json:"created_at" db:"created_at"`
	UpdatedAt    time.Time  `json:"updated_at" db:"updated_at"`
	LastSyncedAt *time.Time `json:"last_synced_at" db:"last_synced_at"`
}
