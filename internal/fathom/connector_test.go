package fathom

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/ignite/customer-intel/internal/config"
	"github.com/ignite/customer-intel/internal/domain"
	"github.com/ignite/customer-intel/internal/service/customer"
)

func TestCompanyFromDomain(t *testing.T) {
	cases := map[string]string{
		"jane@acme.com":     "Acme",
		"bob@gmail.com":     "",
		"sue@outlook.com":   "",
		"x@sub.example.org": "Sub",
		"noatsign":          "",
	}
	for in, want := range cases {
		if got := companyFromDomain(in); got != want {
			t.Errorf("companyFromDomain(%q) = %q, want %q", in, got, want)
		}
	}
}

func TestMentionsCancel(t *testing.T) {
	if !mentionsCancel(Meeting{DefaultSummary: "Customer is considering CHURN next month"}) {
		t.Error("summary keyword missed")
	}
	if !mentionsCancel(Meeting{Transcript: "we are not renewing the contract"}) {
		t.Error("transcript keyword missed")
	}
	if mentionsCancel(Meeting{DefaultSummary: "Great onboarding call"}) {
		t.Error("false positive")
	}
}

func TestMeetingDuration(t *testing.T) {
	m := Meeting{
		RecordingStartTime: "2026-03-01T10:00:00Z",
		RecordingEndTime:   "2026-03-01T10:45:00Z",
	}
	if got := meetingDuration(m); got != 45 {
		t.Errorf("duration = %d, want 45", got)
	}
	if got := meetingDuration(Meeting{}); got != 0 {
		t.Errorf("duration = %d, want 0 without times", got)
	}
}

type fathomRepo struct {
	customer.Repository

	byEmail map[string]*domain.Customer
}

func (r *fathomRepo) FindByEmail(ctx context.Context, email string) (*domain.Customer, error) {
	return r.byEmail[email], nil
}

func (r *fathomRepo) Create(ctx context.Context, c *domain.Customer) error {
	cp := *c
	r.byEmail[c.Email] = &cp
	return nil
}

func (r *fathomRepo) SaveScored(ctx context.Context, c *domain.Customer, snap *domain.HealthSnapshot) error {
	cp := *c
	r.byEmail[c.Email] = &cp
	return nil
}

func TestConnectorSyncCreatesFromRecording(t *testing.T) {
	callTime := time.Now().AddDate(0, 0, -3).UTC().Truncate(time.Second)
	external := true
	internal := false

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/meetings" {
			t.Errorf("unexpected path %s", r.URL.Path)
		}
		if got := r.Header.Get("X-Api-Key"); got != "test-key" {
			t.Errorf("X-Api-Key = %q", got)
		}
		json.NewEncoder(w).Encode(meetingList{Items: []Meeting{{
			RecordingID:        "rec-1",
			Title:              "Quarterly review",
			CreatedAt:          callTime.Format(time.RFC3339),
			RecordingStartTime: callTime.Format(time.RFC3339),
			RecordingEndTime:   callTime.Add(30 * time.Minute).Format(time.RFC3339),
			DefaultSummary:     "Customer mentioned they may cancel if pricing stays",
			RecordedBy:         Recorder{Name: "Sam Rivera", Email: "sam@ignite.io"},
			CalendarInvitees: []Invitee{
				{Email: "jane@acme.com", Name: "Jane Doe", IsExternal: &external},
				{Email: "sam@ignite.io", IsExternal: &internal},
			},
		}}})
	}))
	defer server.Close()

	repo := &fathomRepo{byEmail: make(map[string]*domain.Customer)}
	svc := customer.NewService(repo, nil)

	client := NewClient(config.FathomConfig{BaseURL: server.URL, APIKey: "test-key", TimeoutSeconds: 5})
	conn := NewConnector(client, svc,
		config.FathomConfig{LookbackDays: 90},
		config.SyncConfig{InternalDomains: []string{"ignite.io"}})

	stats, err := conn.Sync(context.Background())
	if err != nil {
		t.Fatalf("Sync: %v", err)
	}
	if stats.Created != 1 || stats.Synced != 1 {
		t.Errorf("stats = %+v, want 1 created", stats)
	}

	c := repo.byEmail["jane@acme.com"]
	if c == nil {
		t.Fatal("customer not created")
	}
	if c.Name != "Jane Doe" {
		t.Errorf("Name = %q", c.Name)
	}
	if c.CompanyName != "Acme" {
		t.Errorf("CompanyName = %q", c.CompanyName)
	}
	if c.AcquisitionSource != "fathom_call" {
		t.Errorf("AcquisitionSource = %q", c.AcquisitionSource)
	}
	if !c.MentionedCancel {
		t.Error("MentionedCancel not set")
	}
	if c.LastSeenAt == nil || !c.LastSeenAt.Equal(callTime) {
		t.Errorf("LastSeenAt = %v, want %v", c.LastSeenAt, callTime)
	}
	if c.CustomAttributes["fathom_calls_count"] != 1 {
		t.Errorf("fathom_calls_count = %v", c.CustomAttributes["fathom_calls_count"])
	}
	if c.CustomAttributes["fathom_total_duration_minutes"] != 30 {
		t.Errorf("duration attr = %v", c.CustomAttributes["fathom_total_duration_minutes"])
	}
	if c.LastFathomSync == nil {
		t.Error("sync watermark not stamped")
	}
	if _, ok := repo.byEmail["sam@ignite.io"]; ok {
		t.Error("host must not become a customer")
	}
}

func TestConnectorDoesNotOverwriteAcquisitionForExisting(t *testing.T) {
	callTime := time.Now().AddDate(0, 0, -1).UTC()

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(meetingList{Items: []Meeting{{
			ID:        "rec-2",
			Title:     "Check-in",
			CreatedAt: callTime.Format(time.RFC3339),
			CalendarInvitees: []Invitee{
				{Email: "jane@acme.com", Name: "Jane Doe"},
			},
		}}})
	}))
	defer server.Close()

	repo := &fathomRepo{byEmail: map[string]*domain.Customer{
		"jane@acme.com": {ID: "cust-1", Email: "jane@acme.com", Name: "Jane D.", AcquisitionSource: "intercom"},
	}}
	svc := customer.NewService(repo, nil)

	client := NewClient(config.FathomConfig{BaseURL: server.URL, APIKey: "k", TimeoutSeconds: 5})
	conn := NewConnector(client, svc, config.FathomConfig{LookbackDays: 90}, config.SyncConfig{})

	stats, err := conn.Sync(context.Background())
	if err != nil {
		t.Fatalf("Sync: %v", err)
	}
	if stats.Updated != 1 {
		t.Errorf("stats = %+v, want 1 updated", stats)
	}

	c := repo.byEmail["jane@acme.com"]
	if c.AcquisitionSource != "intercom" {
		t.Errorf("AcquisitionSource = %q, must not be overwritten", c.AcquisitionSource)
	}
	if c.Name != "Jane D." {
		t.Errorf("Name = %q, must not be overwritten for existing customers", c.Name)
	}
}
