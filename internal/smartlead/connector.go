package smartlead

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/ignite/customer-intel/internal/domain"
	"github.com/ignite/customer-intel/internal/matching"
	"github.com/ignite/customer-intel/internal/pkg/logger"
)

// Repository is the persistence surface the campaign pass needs.
type Repository interface {
	// ListForMatching returns every customer with enough identity to
	// index: id, company name, contact name.
	ListForMatching(ctx context.Context) ([]domain.Customer, error)
	// UpsertCampaign writes a campaign keyed by its SmartLead ID. An
	// empty CustomerID clears a previously derived link.
	UpsertCampaign(ctx context.Context, c *domain.Campaign) (created bool, err error)
}

// Connector pulls campaigns out of SmartLead and links them to
// customers by campaign title. Links are re-derived on every pass so a
// renamed campaign or corrected company name heals itself.
type Connector struct {
	client *Client
	repo   Repository
	now    func() time.Time
}

// NewConnector creates a SmartLead connector.
func NewConnector(client *Client, repo Repository) *Connector {
	return &Connector{client: client, repo: repo, now: time.Now}
}

// Name reports the source this connector feeds.
func (c *Connector) Name() domain.Source { return domain.SourceSmartlead }

// Sync fetches all top-level campaigns, matches each title against the
// customer roster, pulls analytics, and upserts the campaign record.
func (c *Connector) Sync(ctx context.Context) (domain.SyncStats, error) {
	var stats domain.SyncStats

	customers, err := c.repo.ListForMatching(ctx)
	if err != nil {
		return stats, fmt.Errorf("smartlead sync: %w", err)
	}

	matcher := matching.NewMatcher()
	for _, cust := range customers {
		matcher.Index(cust.ID, cust.CompanyName, cust.Name)
	}

	campaigns, err := c.client.ListCampaigns(ctx)
	if err != nil {
		return stats, fmt.Errorf("smartlead sync: %w", err)
	}
	logger.Info("smartlead campaigns fetched", "count", len(campaigns))

	for _, campaign := range campaigns {
		// Subsequences are child sends of a parent campaign.
		if campaign.ParentCampaignID != "" {
			continue
		}
		if campaign.ID == "" {
			stats.Skipped++
			continue
		}

		created, err := c.syncCampaign(ctx, matcher, campaign)
		if err != nil {
			logger.Error("smartlead campaign failed", "campaign_id", campaign.ID.String(), "error", err.Error())
			stats.Failed++
			stats.Skipped++
			continue
		}
		stats.Synced++
		if created {
			stats.Created++
		} else {
			stats.Updated++
		}
	}

	return stats, nil
}

func (c *Connector) syncCampaign(ctx context.Context, matcher *matching.Matcher, campaign Campaign) (bool, error) {
	now := c.now()

	match := matcher.Match(campaign.Name)
	if match.Kind == matching.NoMatch {
		logger.Debug("campaign unmatched", "name", campaign.Name)
	}

	rec := &domain.Campaign{
		ID:                  uuid.NewString(),
		CustomerID:          match.CustomerID,
		SmartleadCampaignID: campaign.ID.String(),
		Name:                campaign.Name,
		Status:              campaignStatus(campaign.Status),
		CreatedAt:           now,
		UpdatedAt:           now,
		LastSyncedAt:        &now,
	}

	// Analytics are best effort: a failed fetch keeps the campaign
	// record with zero counters rather than dropping it.
	analytics, err := c.client.CampaignAnalytics(ctx, campaign.ID.String())
	if err != nil {
		logger.Warn("smartlead analytics unavailable", "campaign_id", campaign.ID.String(), "error", err.Error())
	}

	sent := intOf(analytics.SentCount, analytics.Sent)
	rec.EmailsSent = sent
	rec.ReplyCount = intOf(analytics.ReplyCount, analytics.Replied)
	rec.PositiveReplyCount = intOf(analytics.PositiveReplyCount, analytics.Interested)
	rec.BounceCount = intOf(analytics.BounceCount, analytics.Bounced)
	rec.LeadsCount = intOf(analytics.TotalLeads, campaign.LeadCount)

	if sent > 0 {
		rec.ReplyRate = rate(rec.ReplyCount, sent)
		rec.PositiveReplyRate = rate(rec.PositiveReplyCount, sent)
		rec.BounceRate = rate(rec.BounceCount, sent)
	}

	return c.repo.UpsertCampaign(ctx, rec)
}

func rate(count, sent int) *float64 {
	r := float64(count) / float64(sent) * 100
	return &r
}

func campaignStatus(s string) domain.CampaignStatus {
	switch strings.ToLower(s) {
	case "active", "start", "started":
		return domain.CampaignActive
	case "paused", "stopped":
		return domain.CampaignPaused
	case "completed":
		return domain.CampaignCompleted
	case "drafted", "draft":
		return domain.CampaignDraft
	default:
		return domain.CampaignStatus(strings.ToLower(s))
	}
}
