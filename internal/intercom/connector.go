package intercom

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/ignite/customer-intel/internal/domain"
	"github.com/ignite/customer-intel/internal/pkg/logger"
	"github.com/ignite/customer-intel/internal/service/customer"
	"github.com/ignite/customer-intel/internal/service/merge"
)

// cancelKeywords flag a conversation as a churn signal when any of
// them appears in the opening message or a reply.
var cancelKeywords = []string{
	"cancel", "cancellation", "cancelling", "canceled",
	"churn", "churning", "leaving", "leave",
	"switching", "switch to",
	"not renewing", "won't renew", "not going to renew",
	"end subscription", "stop subscription", "refund",
}

// Connector pulls contacts and their support threads out of Intercom
// and folds them into the unified customer record.
type Connector struct {
	client *Client
	svc    *customer.Service
	now    func() time.Time
}

// NewConnector creates an Intercom connector.
func NewConnector(client *Client, svc *customer.Service) *Connector {
	return &Connector{client: client, svc: svc, now: time.Now}
}

// Name reports the source this connector feeds.
func (c *Connector) Name() domain.Source { return domain.SourceIntercom }

// Sync pages through every contact, one customer per email. A contact
// that fails is skipped and counted; the pass keeps going.
func (c *Connector) Sync(ctx context.Context) (domain.SyncStats, error) {
	var stats domain.SyncStats

	contacts, err := c.client.ListContacts(ctx)
	if err != nil {
		return stats, fmt.Errorf("intercom sync: %w", err)
	}
	logger.Info("intercom contacts fetched", "count", len(contacts))

	for _, contact := range contacts {
		if contact.Email == "" {
			stats.Skipped++
			continue
		}
		created, err := c.syncContact(ctx, contact)
		if err != nil {
			logger.Error("intercom contact failed", "contact_id", contact.ID, "error", err.Error())
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

func (c *Connector) syncContact(ctx context.Context, contact Contact) (bool, error) {
	u := merge.Update{
		Source:            domain.SourceIntercom,
		IntercomContactID: merge.Str(contact.ID),
	}

	name := contact.Name
	if name == "" {
		name = strings.SplitN(contact.Email, "@", 2)[0]
	}
	u.Name = merge.Str(name)

	if contact.Location.Country != "" {
		u.LocationCountry = merge.Str(contact.Location.Country)
	}
	if contact.Location.City != "" {
		u.LocationCity = merge.Str(contact.Location.City)
	}
	if contact.CreatedAt > 0 {
		u.SignupDate = merge.Time(time.Unix(contact.CreatedAt, 0).UTC())
	}
	if contact.LastSeenAt > 0 {
		u.LastSeenAt = merge.Time(time.Unix(contact.LastSeenAt, 0).UTC())
	}

	billing := ExtractBilling(contact)
	u.MRR = merge.F64(billing.MRR)
	u.ARR = merge.F64(billing.ARR)
	u.LTV = merge.F64(billing.LTV)
	if billing.PlanName != "" {
		u.PlanName = merge.Str(billing.PlanName)
	}
	u.PlanPrice = billing.PlanPrice
	if billing.SubscriptionStatus != "" {
		status := domain.SubscriptionStatus(billing.SubscriptionStatus)
		u.SubscriptionStatus = &status
	}
	u.IsDelinquent = merge.Bool(billing.IsDelinquent)

	// Conversation metrics are best effort: a search failure loses the
	// support picture for this pass, not the contact itself.
	convos, err := c.client.ContactConversations(ctx, contact.ID)
	if err != nil {
		logger.Warn("intercom conversations unavailable", "contact_id", contact.ID, "error", err.Error())
	} else {
		c.applyConversations(&u, convos)
	}

	_, created, err := c.svc.Ingest(ctx, contact.Email, u)
	if err != nil {
		return false, err
	}
	return created, nil
}

func (c *Connector) applyConversations(u *merge.Update, convos []Conversation) {
	u.ConvosTotal = merge.Int(len(convos))

	cutoff := c.now().AddDate(0, 0, -30).Unix()
	recent, open := 0, 0
	var lastCreated int64
	var latestRating *ConversationRating
	var latestRatedAt int64

	for _, convo := range convos {
		if convo.CreatedAt > cutoff {
			recent++
		}
		if convo.State == "open" {
			open++
		}
		if convo.CreatedAt > lastCreated {
			lastCreated = convo.CreatedAt
		}
		if convo.Rating != nil && convo.CreatedAt >= latestRatedAt {
			latestRating = convo.Rating
			latestRatedAt = convo.CreatedAt
		}
	}

	u.Convos30d = merge.Int(recent)
	u.OpenTickets = merge.Int(open)
	if latestRating != nil && latestRating.Rating > 0 {
		u.CSATScore = merge.F64(float64(latestRating.Rating))
	}
	u.MentionedCancel = merge.Bool(detectCancelMention(convos))

	u.CustomAttributes = map[string]any{
		"intercom_conversations_count": len(convos),
		"intercom_open_count":          open,
	}
	if lastCreated > 0 {
		u.CustomAttributes["intercom_last_conversation_date"] = lastCreated
	}
}

// detectCancelMention scans opening messages and replies for cancel
// keywords.
func detectCancelMention(convos []Conversation) bool {
	for _, convo := range convos {
		body := strings.ToLower(convo.Source.Body)
		subject := strings.ToLower(convo.Source.Subject)
		for _, kw := range cancelKeywords {
			if strings.Contains(body, kw) || strings.Contains(subject, kw) {
				logger.Warn("cancel mention detected", "conversation_id", convo.ID, "keyword", kw)
				return true
			}
		}
		for _, part := range convo.Parts.Parts {
			partBody := strings.ToLower(part.Body)
			for _, kw := range cancelKeywords {
				if strings.Contains(partBody, kw) {
					logger.Warn("cancel mention detected", "conversation_id", convo.ID, "keyword", kw)
					return true
				}
			}
		}
	}
	return false
}
