package smartlead

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/ignite/customer-intel/internal/config"
	"github.com/ignite/customer-intel/internal/domain"
)

type campaignStore struct {
	customers []domain.Customer
	upserts   map[string]*domain.Campaign
}

func (s *campaignStore) ListForMatching(ctx context.Context) ([]domain.Customer, error) {
	return s.customers, nil
}

func (s *campaignStore) UpsertCampaign(ctx context.Context, c *domain.Campaign) (bool, error) {
	if s.upserts == nil {
		s.upserts = make(map[string]*domain.Campaign)
	}
	_, existed := s.upserts[c.SmartleadCampaignID]
	s.upserts[c.SmartleadCampaignID] = c
	return !existed, nil
}

func TestConnectorSync(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Query().Get("api_key") != "test-key" {
			t.Error("api_key missing from query")
		}
		switch r.URL.Path {
		case "/campaigns":
			w.Write([]byte(`[
				{"id": 101, "name": "Acme Corp - 3/14/26 - Outbound", "status": "ACTIVE", "lead_count": 250},
				{"id": 102, "name": "Acme Corp - 3/14/26 - Outbound", "status": "ACTIVE", "parent_campaign_id": 101},
				{"id": 103, "name": "Totally Unknown Co - 1/1/26", "status": "PAUSED"}
			]`))
		case "/campaigns/101/analytics":
			w.Write([]byte(`{"sent_count": 1000, "reply_count": 50, "positive_reply_count": 10, "bounce_count": 20, "total_leads": 300}`))
		case "/campaigns/103/analytics":
			w.Write([]byte(`{"sent": 10, "replied": 1}`))
		default:
			t.Errorf("unexpected path %s", r.URL.Path)
		}
	}))
	defer server.Close()

	store := &campaignStore{customers: []domain.Customer{
		{ID: "cust-1", Email: "jane@acme.com", Name: "Jane Doe", CompanyName: "Acme Corp"},
	}}

	client := NewClient(config.SmartleadConfig{BaseURL: server.URL, APIKey: "test-key", TimeoutSeconds: 5})
	conn := NewConnector(client, store)

	stats, err := conn.Sync(context.Background())
	if err != nil {
		t.Fatalf("Sync: %v", err)
	}
	// The subsequence is ignored entirely; the two top-level campaigns land.
	if stats.Synced != 2 || stats.Created != 2 {
		t.Errorf("stats = %+v, want 2 synced, 2 created", stats)
	}

	matched := store.upserts["101"]
	if matched == nil {
		t.Fatal("campaign 101 not upserted")
	}
	if matched.CustomerID != "cust-1" {
		t.Errorf("CustomerID = %q, want cust-1", matched.CustomerID)
	}
	if matched.Status != domain.CampaignActive {
		t.Errorf("Status = %q", matched.Status)
	}
	if matched.EmailsSent != 1000 || matched.ReplyCount != 50 {
		t.Errorf("counters = %d/%d", matched.EmailsSent, matched.ReplyCount)
	}
	if matched.ReplyRate == nil || *matched.ReplyRate != 5 {
		t.Errorf("ReplyRate = %v, want 5", matched.ReplyRate)
	}
	if matched.LeadsCount != 300 {
		t.Errorf("LeadsCount = %d, want 300", matched.LeadsCount)
	}

	unmatched := store.upserts["103"]
	if unmatched == nil {
		t.Fatal("campaign 103 not upserted")
	}
	if unmatched.CustomerID != "" {
		t.Errorf("unmatched CustomerID = %q, want empty", unmatched.CustomerID)
	}
	if unmatched.Status != domain.CampaignPaused {
		t.Errorf("Status = %q", unmatched.Status)
	}
}

func TestCampaignStatusMapping(t *testing.T) {
	cases := map[string]domain.CampaignStatus{
		"ACTIVE":    domain.CampaignActive,
		"STOPPED":   domain.CampaignPaused,
		"COMPLETED": domain.CampaignCompleted,
		"DRAFTED":   domain.CampaignDraft,
		"weird":     domain.CampaignStatus("weird"),
	}
	for in, want := range cases {
		if got := campaignStatus(in); got != want {
			t.Errorf("campaignStatus(%q) = %q, want %q", in, got, want)
		}
	}
}
