package api

import (
	"context"
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/ignite/customer-intel/internal/domain"
	"github.com/ignite/customer-intel/internal/pkg/httputil"
	"github.com/ignite/customer-intel/internal/pkg/logger"
	"github.com/ignite/customer-intel/internal/service/customer"
	"github.com/ignite/customer-intel/internal/service/identity"
	"github.com/ignite/customer-intel/internal/syncer"
)

// CampaignLister is the campaign read surface the API serves.
type CampaignLister interface {
	List(ctx context.Context, status domain.CampaignStatus, customerID string, limit int) ([]domain.Campaign, error)
}

// Handlers holds the services the HTTP layer fronts.
type Handlers struct {
	customers *customer.Service
	campaigns CampaignLister
	orch      *syncer.Orchestrator
	startedAt time.Time
}

// NewHandlers creates the handler set. campaigns and orch may be nil
// when the deployment runs API-only; the affected endpoints then
// return 503.
func NewHandlers(customers *customer.Service, campaigns CampaignLister, orch *syncer.Orchestrator) *Handlers {
	return &Handlers{
		customers: customers,
		campaigns: campaigns,
		orch:      orch,
		startedAt: time.Now().UTC(),
	}
}

// HealthCheck reports liveness.
func (h *Handlers) HealthCheck(w http.ResponseWriter, r *http.Request) {
	httputil.OK(w, map[string]any{
		"status":         "ok",
		"uptime_seconds": int(time.Since(h.startedAt).Seconds()),
	})
}

// ListCustomers serves the filtered customer listing.
func (h *Handlers) ListCustomers(w http.ResponseWriter, r *http.Request) {
	f := customer.Filter{
		HealthStatus: domain.HealthStatus(r.URL.Query().Get("health_status")),
		AssignedAM:   r.URL.Query().Get("assigned_am"),
		Limit:        queryInt(r, "limit", 0),
		Offset:       queryInt(r, "offset", 0),
	}
	if raw := r.URL.Query().Get("min_mrr"); raw != "" {
		v, err := strconv.ParseFloat(raw, 64)
		if err != nil {
			httputil.BadRequest(w, "min_mrr must be a number")
			return
		}
		f.MinMRR = &v
	}

	out, err := h.customers.List(r.Context(), f)
	if err != nil {
		httputil.InternalError(w, err)
		return
	}
	httputil.OK(w, map[string]any{"customers": out, "count": len(out)})
}

// AtRiskCustomers serves the churn-risk leaderboard.
func (h *Handlers) AtRiskCustomers(w http.ResponseWriter, r *http.Request) {
	out, err := h.customers.AtRisk(r.Context(), queryInt(r, "limit", 0))
	if err != nil {
		httputil.InternalError(w, err)
		return
	}
	httputil.OK(w, map[string]any{"customers": out, "count": len(out)})
}

// GetCustomer serves one customer by id.
func (h *Handlers) GetCustomer(w http.ResponseWriter, r *http.Request) {
	c, err := h.customers.Get(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		h.customerError(w, err)
		return
	}
	httputil.OK(w, c)
}

// GetCustomerByEmail serves one customer by normalized email.
func (h *Handlers) GetCustomerByEmail(w http.ResponseWriter, r *http.Request) {
	c, err := h.customers.GetByEmail(r.Context(), chi.URLParam(r, "email"))
	if err != nil {
		h.customerError(w, err)
		return
	}
	httputil.OK(w, c)
}

// RescoreCustomer recomputes one customer's health from stored fields
// and returns the updated record.
func (h *Handlers) RescoreCustomer(w http.ResponseWriter, r *http.Request) {
	c, err := h.customers.Get(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		h.customerError(w, err)
		return
	}
	if err := h.customers.Rescore(r.Context(), c); err != nil {
		httputil.InternalError(w, err)
		return
	}
	httputil.OK(w, c)
}

// CustomerHistory serves a customer's health snapshots.
func (h *Handlers) CustomerHistory(w http.ResponseWriter, r *http.Request) {
	out, err := h.customers.History(r.Context(), chi.URLParam(r, "id"), queryInt(r, "limit", 0))
	if err != nil {
		h.customerError(w, err)
		return
	}
	httputil.OK(w, map[string]any{"history": out, "count": len(out)})
}

// CustomerAlerts serves a customer's alert history.
func (h *Handlers) CustomerAlerts(w http.ResponseWriter, r *http.Request) {
	out, err := h.customers.Alerts(r.Context(), chi.URLParam(r, "id"), queryInt(r, "limit", 0))
	if err != nil {
		h.customerError(w, err)
		return
	}
	httputil.OK(w, map[string]any{"alerts": out, "count": len(out)})
}

var resettableKinds = map[domain.AlertKind]bool{
	domain.AlertCancelMention:  true,
	domain.AlertDelinquent:     true,
	domain.AlertHealthDrop:     true,
	domain.AlertEngagementDrop: true,
}

// ResetAlert clears a customer's one-shot latch so the kind can fire
// again.
func (h *Handlers) ResetAlert(w http.ResponseWriter, r *http.Request) {
	kind := domain.AlertKind(chi.URLParam(r, "kind"))
	if !resettableKinds[kind] {
		httputil.BadRequest(w, "unknown alert kind: "+string(kind))
		return
	}

	id := chi.URLParam(r, "id")
	if err := h.customers.ResetAlert(r.Context(), id, kind); err != nil {
		h.customerError(w, err)
		return
	}
	httputil.OK(w, map[string]any{"customer_id": id, "alert_type": kind, "reset": true})
}

// DashboardSummary serves the rollup across all customers.
func (h *Handlers) DashboardSummary(w http.ResponseWriter, r *http.Request) {
	s, err := h.customers.Summary(r.Context())
	if err != nil {
		httputil.InternalError(w, err)
		return
	}
	httputil.OK(w, s)
}

// NotifySummary posts the dashboard rollup to the summary channel.
func (h *Handlers) NotifySummary(w http.ResponseWriter, r *http.Request) {
	if err := h.customers.NotifySummary(r.Context()); err != nil {
		httputil.InternalError(w, err)
		return
	}
	httputil.OK(w, map[string]any{"notified": true})
}

// DashboardMRR serves the MRR-by-plan breakdown.
func (h *Handlers) DashboardMRR(w http.ResponseWriter, r *http.Request) {
	out, err := h.customers.MRRByPlan(r.Context())
	if err != nil {
		httputil.InternalError(w, err)
		return
	}
	httputil.OK(w, map[string]any{"plans": out})
}

// ListCampaigns serves the campaigns listing.
func (h *Handlers) ListCampaigns(w http.ResponseWriter, r *http.Request) {
	if h.campaigns == nil {
		httputil.Error(w, http.StatusServiceUnavailable, "campaigns not configured")
		return
	}
	limit := queryInt(r, "limit", 100)
	if limit <= 0 || limit > 500 {
		limit = 100
	}
	out, err := h.campaigns.List(r.Context(),
		domain.CampaignStatus(r.URL.Query().Get("status")),
		r.URL.Query().Get("customer_id"), limit)
	if err != nil {
		httputil.InternalError(w, err)
		return
	}
	httputil.OK(w, map[string]any{"campaigns": out, "count": len(out)})
}

// TriggerSync kicks off one source's sync pass in the background.
func (h *Handlers) TriggerSync(w http.ResponseWriter, r *http.Request) {
	if h.orch == nil {
		httputil.Error(w, http.StatusServiceUnavailable, "sync not configured")
		return
	}

	name := domain.Source(chi.URLParam(r, "source"))
	known := false
	for _, s := range h.orch.Sources() {
		if s == name {
			known = true
			break
		}
	}
	if !known {
		httputil.BadRequest(w, "unknown source: "+string(name))
		return
	}

	go func() {
		if _, err := h.orch.Run(context.Background(), name); err != nil {
			logger.Error("triggered sync failed", "source", string(name), "error", err.Error())
		}
	}()
	httputil.Accepted(w, map[string]any{"status": "started", "source": name})
}

// TriggerSyncAll kicks off a full pass over every source in order.
func (h *Handlers) TriggerSyncAll(w http.ResponseWriter, r *http.Request) {
	if h.orch == nil {
		httputil.Error(w, http.StatusServiceUnavailable, "sync not configured")
		return
	}

	go func() {
		if _, err := h.orch.RunAll(context.Background()); err != nil {
			logger.Error("triggered full sync failed", "error", err.Error())
		}
	}()
	httputil.Accepted(w, map[string]any{"status": "started", "sources": h.orch.Sources()})
}

// SyncStatus serves recent sync runs.
func (h *Handlers) SyncStatus(w http.ResponseWriter, r *http.Request) {
	if h.orch == nil {
		httputil.Error(w, http.StatusServiceUnavailable, "sync not configured")
		return
	}
	out, err := h.orch.Status(r.Context(), queryInt(r, "limit", 0))
	if err != nil {
		httputil.InternalError(w, err)
		return
	}
	httputil.OK(w, map[string]any{"runs": out})
}

func (h *Handlers) customerError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, customer.ErrNotFound):
		httputil.NotFound(w, "customer not found")
	case errors.Is(err, identity.ErrAmbiguousIdentity):
		httputil.Error(w, http.StatusConflict, "multiple customers share this email")
	default:
		httputil.InternalError(w, err)
	}
}

func queryInt(r *http.Request, key string, def int) int {
	raw := r.URL.Query().Get(key)
	if raw == "" {
		return def
	}
	v, err := strconv.Atoi(raw)
	if err != nil {
		return def
	}
	return v
}
