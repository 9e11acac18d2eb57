package smartlead

import "encoding/json"

// Campaign is a SmartLead campaign summary.
type Campaign struct {
	ID               json.Number `json:"id"`
	Name             string      `json:"name"`
	Status           string      `json:"status"`
	ParentCampaignID json.Number `json:"parent_campaign_id"`
	LeadCount        json.Number `json:"lead_count"`
}

// Analytics is the top-level counter block for one campaign. SmartLead
// has shipped both naming schemes, so both are modeled and the first
// non-zero one wins.
type Analytics struct {
	SentCount          json.Number `json:"sent_count"`
	Sent               json.Number `json:"sent"`
	ReplyCount         json.Number `json:"reply_count"`
	Replied            json.Number `json:"replied"`
	BounceCount        json.Number `json:"bounce_count"`
	Bounced            json.Number `json:"bounced"`
	PositiveReplyCount json.Number `json:"positive_reply_count"`
	Interested         json.Number `json:"interested"`
	TotalLeads         json.Number `json:"total_leads"`
}

func intOf(vals ...json.Number) int {
	for _, v := range vals {
		if v == "" {
			continue
		}
		if n, err := v.Int64(); err == nil && n != 0 {
			return int(n)
		}
	}
	return 0
}
