// Package fathom syncs recorded customer calls. A recorded call is
// strong evidence of an active relationship, so unlike the scheduling
// and directory passes this one may create customers.
package fathom

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/ignite/customer-intel/internal/config"
	"github.com/ignite/customer-intel/internal/domain"
	"github.com/ignite/customer-intel/internal/pkg/logger"
	"github.com/ignite/customer-intel/internal/service/customer"
	"github.com/ignite/customer-intel/internal/service/merge"
)

// cancelKeywords is the slimmer call-transcript list; summaries are
// paraphrased so only strong phrasings count.
var cancelKeywords = []string{
	"cancel", "cancellation", "churn", "leaving",
	"switching", "not renewing", "end subscription",
}

// freemailDomains never imply a company name.
var freemailDomains = map[string]bool{
	"gmail.com":   true,
	"yahoo.com":   true,
	"hotmail.com": true,
	"outlook.com": true,
	"icloud.com":  true,
}

// participantStats is the per-email rollup of one recording window.
type participantStats struct {
	name            string
	totalCalls      int
	durationMinutes int

	lastCall        *time.Time
	lastCallTitle   string
	lastRecordedBy  string
	lastSummary     string
	lastActionItems []string
	mentionedCancel bool

	recentCalls []map[string]any
}

// Connector pulls recordings out of Fathom and folds them into
// customers by participant email.
type Connector struct {
	client  *Client
	svc     *customer.Service
	cfg     config.FathomConfig
	syncCfg config.SyncConfig
	now     func() time.Time
}

// NewConnector creates a Fathom connector.
func NewConnector(client *Client, svc *customer.Service, cfg config.FathomConfig, syncCfg config.SyncConfig) *Connector {
	return &Connector{client: client, svc: svc, cfg: cfg, syncCfg: syncCfg, now: time.Now}
}

// Name reports the source this connector feeds.
func (c *Connector) Name() domain.Source { return domain.SourceFathom }

// Sync fetches recordings in the lookback window, aggregates them per
// external participant, and merges the rollups.
func (c *Connector) Sync(ctx context.Context) (domain.SyncStats, error) {
	var stats domain.SyncStats

	cutoff := c.now().AddDate(0, 0, -c.cfg.LookbackDays)
	meetings, err := c.client.ListMeetings(ctx, cutoff)
	if err != nil {
		return stats, fmt.Errorf("fathom sync: %w", err)
	}
	logger.Info("fathom meetings fetched", "count", len(meetings))

	byEmail := c.aggregate(meetings)

	emails := make([]string, 0, len(byEmail))
	for email := range byEmail {
		emails = append(emails, email)
	}
	sort.Strings(emails)

	for _, email := range emails {
		created, err := c.syncParticipant(ctx, email, byEmail[email])
		if err != nil {
			logger.Error("fathom participant failed", "error", err.Error())
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

// aggregate rolls meetings up per external participant. The host and
// internal addresses never count.
func (c *Connector) aggregate(meetings []Meeting) map[string]*participantStats {
	byEmail := make(map[string]*participantStats)

	for _, m := range meetings {
		callDate, hasDate := meetingDate(m)
		duration := meetingDuration(m)
		hostEmail := strings.ToLower(strings.TrimSpace(m.RecordedBy.Email))

		for _, p := range m.CalendarInvitees {
			email := strings.ToLower(strings.TrimSpace(p.Email))
			if email == "" || email == hostEmail {
				continue
			}
			if p.IsExternal != nil && !*p.IsExternal {
				continue
			}
			if c.syncCfg.IsInternalDomain(email) {
				continue
			}

			s := byEmail[email]
			if s == nil {
				s = &participantStats{name: p.Name}
				byEmail[email] = s
			}
			s.totalCalls++
			s.durationMinutes += duration

			record := map[string]any{
				"call_id":          m.CallID(),
				"title":            m.CallTitle(),
				"duration_minutes": duration,
				"url":              m.URL,
				"share_url":        m.ShareURL,
				"recorded_by":      recorderName(m.RecordedBy),
			}
			if hasDate {
				record["date"] = callDate.Format(time.RFC3339)
			}
			s.recentCalls = append(s.recentCalls, record)

			if hasDate && (s.lastCall == nil || callDate.After(*s.lastCall)) {
				t := callDate
				s.lastCall = &t
				s.lastCallTitle = m.CallTitle()
				s.lastRecordedBy = recorderName(m.RecordedBy)
				s.lastSummary = m.DefaultSummary
				s.lastActionItems = m.ActionItems
			}
			if mentionsCancel(m) {
				s.mentionedCancel = true
			}
		}
	}

	return byEmail
}

func (c *Connector) syncParticipant(ctx context.Context, email string, s *participantStats) (bool, error) {
	isNew := false
	if _, err := c.svc.GetByEmail(ctx, email); err != nil {
		if !errors.Is(err, customer.ErrNotFound) {
			return false, err
		}
		isNew = true
	}

	u := merge.Update{Source: domain.SourceFathom}

	if isNew {
		name := s.name
		if name == "" {
			name = strings.SplitN(email, "@", 2)[0]
		}
		u.Name = merge.Str(name)
		u.AcquisitionSource = merge.Str("fathom_call")

		if company := companyFromDomain(email); company != "" {
			u.CompanyName = merge.Str(company)
		}
	}

	if s.lastCall != nil {
		u.LastSeenAt = s.lastCall
	}
	if s.mentionedCancel {
		u.MentionedCancel = merge.Bool(true)
		logger.Warn("cancel mention detected in recorded call")
	}

	attrs := map[string]any{
		"fathom_calls_count":            s.totalCalls,
		"fathom_total_duration_minutes": s.durationMinutes,
	}
	if s.lastCall != nil {
		attrs["fathom_last_call_date"] = s.lastCall.Format(time.RFC3339)
		attrs["fathom_last_call_title"] = s.lastCallTitle
	}
	if s.lastRecordedBy != "" {
		attrs["fathom_last_recorded_by"] = s.lastRecordedBy
	}
	if s.lastSummary != "" {
		attrs["fathom_latest_summary"] = s.lastSummary
	}
	if len(s.lastActionItems) > 0 {
		attrs["fathom_latest_action_items"] = s.lastActionItems
	}
	if len(s.recentCalls) > 0 {
		sort.SliceStable(s.recentCalls, func(i, j int) bool {
			ti, _ := s.recentCalls[i]["date"].(string)
			tj, _ := s.recentCalls[j]["date"].(string)
			return ti > tj
		})
		keep := s.recentCalls
		if len(keep) > 10 {
			keep = keep[:10]
		}
		attrs["fathom_recent_calls"] = keep
	}
	u.CustomAttributes = attrs

	_, created, err := c.svc.Ingest(ctx, email, u)
	if err != nil {
		return false, err
	}
	return created, nil
}

// mentionsCancel scans the AI summary and transcript for churn
// phrasing.
func mentionsCancel(m Meeting) bool {
	text := strings.ToLower(m.DefaultSummary + " " + m.Transcript)
	for _, kw := range cancelKeywords {
		if strings.Contains(text, kw) {
			return true
		}
	}
	return false
}

// companyFromDomain derives a company name from a work email domain.
func companyFromDomain(email string) string {
	at := strings.LastIndex(email, "@")
	if at < 0 {
		return ""
	}
	domain := email[at+1:]
	if freemailDomains[domain] {
		return ""
	}
	base := strings.SplitN(domain, ".", 2)[0]
	if base == "" {
		return ""
	}
	return strings.ToUpper(base[:1]) + base[1:]
}

func recorderName(r Recorder) string {
	if r.Name != "" {
		return r.Name
	}
	return r.Email
}

func meetingDate(m Meeting) (time.Time, bool) {
	for _, raw := range []string{m.CreatedAt, m.RecordingStartTime} {
		if raw == "" {
			continue
		}
		if t, err := time.Parse(time.RFC3339, raw); err == nil {
			return t.UTC(), true
		}
	}
	return time.Time{}, false
}

func meetingDuration(m Meeting) int {
	if m.RecordingStartTime == "" || m.RecordingEndTime == "" {
		return 0
	}
	start, err1 := time.Parse(time.RFC3339, m.RecordingStartTime)
	end, err2 := time.Parse(time.RFC3339, m.RecordingEndTime)
	if err1 != nil || err2 != nil || end.Before(start) {
		return 0
	}
	return int(end.Sub(start).Minutes())
}
