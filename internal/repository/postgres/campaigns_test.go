package postgres

import (
	"context"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"

	"github.com/ignite/customer-intel/internal/domain"
)

func TestUpsertCampaignCreatedFlag(t *testing.T) {
	db, mock := newMock(t)
	repo := NewCampaignRepo(db)

	now := time.Date(2026, 4, 1, 12, 0, 0, 0, time.UTC)
	rate := 5.0
	c := &domain.Campaign{
		ID:                  "row-1",
		CustomerID:          "cust-1",
		SmartleadCampaignID: "101",
		Name:                "Acme Corp - 3/14/26 - Outbound",
		Status:              domain.CampaignActive,
		LeadsCount:          300,
		EmailsSent:          1000,
		ReplyCount:          50,
		ReplyRate:           &rate,
		CreatedAt:           now,
		UpdatedAt:           now,
		LastSyncedAt:        &now,
	}

	mock.ExpectQuery("INSERT INTO campaigns").
		WillReturnRows(sqlmock.NewRows([]string{"inserted"}).AddRow(true))

	created, err := repo.UpsertCampaign(context.Background(), c)
	if err != nil {
		t.Fatalf("UpsertCampaign() error: %v", err)
	}
	if !created {
		t.Error("UpsertCampaign() created = false, want true on first write")
	}

	mock.ExpectQuery("INSERT INTO campaigns").
		WillReturnRows(sqlmock.NewRows([]string{"inserted"}).AddRow(false))

	created, err = repo.UpsertCampaign(context.Background(), c)
	if err != nil {
		t.Fatalf("UpsertCampaign() second write error: %v", err)
	}
	if created {
		t.Error("UpsertCampaign() created = true, want false on conflict update")
	}
}

func TestListForMatchingSkipsChurned(t *testing.T) {
	db, mock := newMock(t)
	repo := NewCampaignRepo(db)

	mock.ExpectQuery("FROM unified_customers\\s+WHERE churned_at IS NULL").
		WillReturnRows(sqlmock.NewRows([]string{"customer_id", "email", "name", "company_name"}).
			AddRow("cust-1", "jane@acme.com", "Jane Doe", "Acme").
			AddRow("cust-2", "li@globex.com", "Li Wei", "Globex"))

	out, err := repo.ListForMatching(context.Background())
	if err != nil {
		t.Fatalf("ListForMatching() error: %v", err)
	}
	if len(out) != 2 {
		t.Fatalf("ListForMatching() returned %d customers, want 2", len(out))
	}
	if out[0].CompanyName != "Acme" || out[1].ID != "cust-2" {
		t.Errorf("rows = %+v", out)
	}
}

func TestListCampaignsByStatus(t *testing.T) {
	db, mock := newMock(t)
	repo := NewCampaignRepo(db)

	now := time.Now().UTC()
	mock.ExpectQuery("FROM campaigns WHERE 1=1 AND status = \\$1").
		WithArgs(domain.CampaignActive, 50).
		WillReturnRows(sqlmock.NewRows([]string{
			"id", "customer_id", "smartlead_campaign_id", "campaign_name", "status",
			"leads_count", "emails_sent", "reply_count", "positive_reply_count", "bounce_count",
			"reply_rate", "positive_reply_rate", "bounce_rate",
			"created_at", "updated_at", "last_synced_at",
		}).AddRow("row-1", "", "103", "Mystery Startup", "active",
			0, 0, 0, 0, 0, nil, nil, nil, now, now, now))

	out, err := repo.List(context.Background(), domain.CampaignActive, "", 50)
	if err != nil {
		t.Fatalf("List() error: %v", err)
	}
	if len(out) != 1 || out[0].SmartleadCampaignID != "103" {
		t.Errorf("List() = %+v", out)
	}
	if out[0].CustomerID != "" {
		t.Errorf("CustomerID = %q, want empty for unlinked campaign", out[0].CustomerID)
	}
}
