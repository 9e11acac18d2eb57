package postgres

import (
	"context"
	"database/sql"
	"database/sql/driver"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"

	"github.com/ignite/customer-intel/internal/domain"
	"github.com/ignite/customer-intel/internal/service/customer"
	"github.com/ignite/customer-intel/internal/service/identity"
)

func newMock(t *testing.T) (*sql.DB, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock.New() error: %v", err)
	}
	t.Cleanup(func() {
		if err := mock.ExpectationsWereMet(); err != nil {
			t.Errorf("unmet expectations: %v", err)
		}
		db.Close()
	})
	return db, mock
}

func customerColumnNames() []string {
	parts := strings.Split(customerColumns, ",")
	names := make([]string, len(parts))
	for i, p := range parts {
		names[i] = strings.TrimSpace(p)
	}
	return names
}

// fullCustomerRow returns driver values aligned with customerColumns.
func fullCustomerRow(now time.Time) []driver.Value {
	return []driver.Value{
		"cust-1", "jane@acme.com", "ic-1", "", "rec-1",
		"Jane Doe", "Acme", "US", "Denver",
		"Sam Rivera", "sam@ignite.io", "agency", "intercom", now,

		199.0, 2388.0, 1200.0, "Pro", 199.0, "month",
		"active", false, 0,

		now, 3, 12, true, []byte(`{"api":true}`),

		8, 2, 4.5, "neutral", 1, true,

		5, 4, 1, 0, 0,
		80.0, now, nil,

		62.5, "at_risk", 37.5, []byte(`[{"type":"open_tickets","severity":"warning","message":"1 open"}]`), "check in",
		[]byte(`{"billing":90,"engagement":40}`), now,

		"SaaS", "11-50", []byte(`{vip,agency}`), []byte(`{"intercom_open_count":1}`),

		nil, "",

		now, nil, nil, nil, nil,

		nil, nil, nil, nil, nil,

		now, now,
	}
}

func TestGetNotFound(t *testing.T) {
	db, mock := newMock(t)
	repo := NewCustomerRepo(db)

	mock.ExpectQuery("FROM unified_customers WHERE customer_id").
		WithArgs("missing").
		WillReturnError(sql.ErrNoRows)

	_, err := repo.Get(context.Background(), "missing")
	if !errors.Is(err, customer.ErrNotFound) {
		t.Errorf("Get() error = %v, want ErrNotFound", err)
	}
}

func TestFindByEmailAbsent(t *testing.T) {
	db, mock := newMock(t)
	repo := NewCustomerRepo(db)

	mock.ExpectQuery("FROM unified_customers WHERE email = \\$1").
		WithArgs("nobody@acme.com").
		WillReturnRows(sqlmock.NewRows(customerColumnNames()))

	c, err := repo.FindByEmail(context.Background(), "nobody@acme.com")
	if err != nil {
		t.Fatalf("FindByEmail() error: %v", err)
	}
	if c != nil {
		t.Errorf("FindByEmail() = %+v, want nil", c)
	}
}

func TestFindByEmailDecodesRow(t *testing.T) {
	db, mock := newMock(t)
	repo := NewCustomerRepo(db)

	now := time.Date(2026, 4, 1, 12, 0, 0, 0, time.UTC)
	mock.ExpectQuery("FROM unified_customers WHERE email = \\$1").
		WithArgs("jane@acme.com").
		WillReturnRows(sqlmock.NewRows(customerColumnNames()).AddRow(fullCustomerRow(now)...))

	c, err := repo.FindByEmail(context.Background(), "jane@acme.com")
	if err != nil {
		t.Fatalf("FindByEmail() error: %v", err)
	}
	if c == nil {
		t.Fatal("FindByEmail() returned nil customer")
	}
	if c.ID != "cust-1" || c.Email != "jane@acme.com" {
		t.Errorf("identity = %s/%s", c.ID, c.Email)
	}
	if c.MRR == nil || *c.MRR != 199.0 {
		t.Errorf("MRR = %v, want 199", c.MRR)
	}
	if c.SubscriptionStatus != domain.SubscriptionActive {
		t.Errorf("SubscriptionStatus = %q", c.SubscriptionStatus)
	}
	if len(c.Tags) != 2 || c.Tags[0] != "vip" {
		t.Errorf("Tags = %v", c.Tags)
	}
	if len(c.RiskSignals) != 1 || c.RiskSignals[0].Type != "open_tickets" {
		t.Errorf("RiskSignals = %+v", c.RiskSignals)
	}
	if c.ScoreComponents["billing"] != 90 {
		t.Errorf("ScoreComponents = %v", c.ScoreComponents)
	}
	if c.CustomAttributes["intercom_open_count"] != float64(1) {
		t.Errorf("CustomAttributes = %v", c.CustomAttributes)
	}
	if v, ok := c.FeatureUsage["api"]; !ok || v != true {
		t.Errorf("FeatureUsage = %v", c.FeatureUsage)
	}
	if c.NextCallDate != nil {
		t.Errorf("NextCallDate = %v, want nil", c.NextCallDate)
	}
}

func TestFindByEmailAmbiguous(t *testing.T) {
	db, mock := newMock(t)
	repo := NewCustomerRepo(db)

	now := time.Now().UTC()
	rows := sqlmock.NewRows(customerColumnNames()).
		AddRow(fullCustomerRow(now)...).
		AddRow(fullCustomerRow(now)...)
	mock.ExpectQuery("FROM unified_customers WHERE email = \\$1").
		WithArgs("jane@acme.com").
		WillReturnRows(rows)

	_, err := repo.FindByEmail(context.Background(), "jane@acme.com")
	if !errors.Is(err, identity.ErrAmbiguousIdentity) {
		t.Errorf("FindByEmail() error = %v, want ErrAmbiguousIdentity", err)
	}
}

func TestSaveScoredWritesSnapshotInOneTransaction(t *testing.T) {
	db, mock := newMock(t)
	repo := NewCustomerRepo(db)

	now := time.Date(2026, 4, 1, 12, 0, 0, 0, time.UTC)
	score := 62.5
	c := &domain.Customer{
		ID:           "cust-1",
		Email:        "jane@acme.com",
		Name:         "Jane Doe",
		HealthScore:  &score,
		HealthStatus: domain.HealthAtRisk,
		Tags:         []string{"vip"},
		UpdatedAt:    now,
	}
	snap := &domain.HealthSnapshot{
		ID:           "snap-1",
		CustomerID:   "cust-1",
		HealthScore:  score,
		HealthStatus: domain.HealthAtRisk,
		ChurnRisk:    37.5,
		RecordedAt:   now,
	}

	mock.ExpectBegin()
	mock.ExpectExec("UPDATE unified_customers SET").
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec("INSERT INTO health_history").
		WillReturnResult(sqlmock.NewResult(1, 1))
	mock.ExpectCommit()

	if err := repo.SaveScored(context.Background(), c, snap); err != nil {
		t.Fatalf("SaveScored() error: %v", err)
	}
}

func TestSaveScoredWithoutSnapshot(t *testing.T) {
	db, mock := newMock(t)
	repo := NewCustomerRepo(db)

	mock.ExpectBegin()
	mock.ExpectExec("UPDATE unified_customers SET").
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	c := &domain.Customer{ID: "cust-1", Email: "jane@acme.com"}
	if err := repo.SaveScored(context.Background(), c, nil); err != nil {
		t.Fatalf("SaveScored() error: %v", err)
	}
}

func TestSaveAlertStateTouchesOnlyDedupColumns(t *testing.T) {
	db, mock := newMock(t)
	repo := NewCustomerRepo(db)

	now := time.Now().UTC()
	c := &domain.Customer{ID: "cust-1", AlertCancelSentAt: &now, LastAlertSentAt: &now}

	mock.ExpectExec("UPDATE unified_customers SET\\s+alert_cancel_sent_at").
		WithArgs("cust-1", now, nil, nil, nil, now).
		WillReturnResult(sqlmock.NewResult(0, 1))

	if err := repo.SaveAlertState(context.Background(), c); err != nil {
		t.Fatalf("SaveAlertState() error: %v", err)
	}
}

func TestAppendAlert(t *testing.T) {
	db, mock := newMock(t)
	repo := NewCustomerRepo(db)

	now := time.Now().UTC()
	rec := &domain.AlertRecord{
		ID:         "alert-1",
		CustomerID: "cust-1",
		Kind:       domain.AlertCancelMention,
		Severity:   domain.SeverityCritical,
		Message:    "Jane Doe mentioned canceling",
		Channel:    "slack",
		SentAt:     now,
	}

	mock.ExpectExec("INSERT INTO alert_history").
		WithArgs("alert-1", "cust-1", domain.AlertCancelMention, domain.SeverityCritical,
			rec.Message, "slack", now).
		WillReturnResult(sqlmock.NewResult(1, 1))

	if err := repo.AppendAlert(context.Background(), rec); err != nil {
		t.Fatalf("AppendAlert() error: %v", err)
	}
}

func TestListBuildsFilters(t *testing.T) {
	db, mock := newMock(t)
	repo := NewCustomerRepo(db)

	minMRR := 100.0
	mock.ExpectQuery("FROM unified_customers WHERE 1=1 AND health_status = \\$1 AND mrr >= \\$2 ORDER BY mrr DESC").
		WithArgs(domain.HealthAtRisk, minMRR, 25, 0).
		WillReturnRows(sqlmock.NewRows(customerColumnNames()))

	out, err := repo.List(context.Background(), customer.Filter{
		HealthStatus: domain.HealthAtRisk,
		MinMRR:       &minMRR,
		Limit:        25,
	})
	if err != nil {
		t.Fatalf("List() error: %v", err)
	}
	if len(out) != 0 {
		t.Errorf("List() returned %d rows, want 0", len(out))
	}
}

func TestSummary(t *testing.T) {
	db, mock := newMock(t)
	repo := NewCustomerRepo(db)

	mock.ExpectQuery("GROUP BY health_status").
		WillReturnRows(sqlmock.NewRows([]string{"health_status", "count", "mrr"}).
			AddRow("healthy", 40, 12000.0).
			AddRow("at_risk", 10, 2500.0).
			AddRow("unscored", 5, 0.0))
	mock.ExpectQuery("last_seen_at < NOW").
		WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(7))

	s, err := repo.Summary(context.Background())
	if err != nil {
		t.Fatalf("Summary() error: %v", err)
	}
	if s.TotalCustomers != 55 {
		t.Errorf("TotalCustomers = %d, want 55", s.TotalCustomers)
	}
	if s.TotalMRR != 14500.0 {
		t.Errorf("TotalMRR = %v, want 14500", s.TotalMRR)
	}
	if s.ByStatus["at_risk"].Count != 10 {
		t.Errorf("at_risk block = %+v", s.ByStatus["at_risk"])
	}
	if s.Inactive30d != 7 {
		t.Errorf("Inactive30d = %d, want 7", s.Inactive30d)
	}
}
