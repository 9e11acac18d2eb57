package calendly

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

// daysForward extends the event window past now so upcoming calls feed
// next_call_date.
const daysForward = 30

// inviteeStats is the per-email rollup of one event window.
type inviteeStats struct {
	booked      int
	completed   int
	noShow      int
	canceled    int
	rescheduled int

	lastCall      *time.Time
	nextCall      *time.Time
	lastOrganizer string
	lastOrgEmail  string
	events        []map[string]any
	questionnaire []map[string]any
}

// Connector pulls booking and attendance data out of Calendly. It only
// enriches customers that already exist; scheduling alone does not
// establish a customer relationship.
type Connector struct {
	client  *Client
	svc     *customer.Service
	cfg     config.CalendlyConfig
	syncCfg config.SyncConfig
	now     func() time.Time
}

// NewConnector creates a Calendly connector.
func NewConnector(client *Client, svc *customer.Service, cfg config.CalendlyConfig, syncCfg config.SyncConfig) *Connector {
	return &Connector{client: client, svc: svc, cfg: cfg, syncCfg: syncCfg, now: time.Now}
}

// Name reports the source this connector feeds.
func (c *Connector) Name() domain.Source { return domain.SourceCalendly }

// Sync fetches active and canceled events in the lookback window,
// aggregates them per invitee email, and merges the rollups into
// existing customers.
func (c *Connector) Sync(ctx context.Context) (domain.SyncStats, error) {
	var stats domain.SyncStats

	user, err := c.client.CurrentUser(ctx)
	if err != nil {
		return stats, fmt.Errorf("calendly sync: %w", err)
	}
	logger.Info("calendly authenticated", "user", user.Name)

	events, err := c.fetchEvents(ctx, user.CurrentOrganization)
	if err != nil {
		return stats, fmt.Errorf("calendly sync: %w", err)
	}
	logger.Info("calendly events fetched", "count", len(events))

	byEmail := c.aggregate(events)

	// Stable pass order makes sync logs reproducible.
	emails := make([]string, 0, len(byEmail))
	for email := range byEmail {
		emails = append(emails, email)
	}
	sort.Strings(emails)

	for _, email := range emails {
		if _, err := c.svc.GetByEmail(ctx, email); err != nil {
			if errors.Is(err, customer.ErrNotFound) {
				stats.Skipped++
				continue
			}
			stats.Failed++
			continue
		}

		u := buildUpdate(byEmail[email])
		if _, _, err := c.svc.Ingest(ctx, email, u); err != nil {
			logger.Error("calendly invitee failed", "error", err.Error())
			stats.Failed++
			stats.Skipped++
			continue
		}
		stats.Synced++
		stats.Updated++
	}

	return stats, nil
}

func (c *Connector) fetchEvents(ctx context.Context, orgURI string) ([]Event, error) {
	now := c.now()
	minStart := now.AddDate(0, 0, -c.cfg.LookbackDays)
	maxStart := now.AddDate(0, 0, daysForward)

	var all []Event
	for _, status := range []string{"active", "canceled"} {
		events, err := c.client.ListScheduledEvents(ctx, orgURI, status, minStart, maxStart)
		if err != nil {
			return nil, err
		}
		for i := range events {
			invitees, err := c.client.EventInvitees(ctx, events[i].URI)
			if err != nil {
				logger.Warn("calendly invitees unavailable", "event", events[i].URI, "error", err.Error())
				continue
			}
			events[i].Invitees = invitees

			if len(events[i].EventMemberships) > 0 {
				organizer, err := c.client.GetUser(ctx, events[i].EventMemberships[0].User)
				if err == nil {
					events[i].Organizer = organizer
				}
			}
			all = append(all, events[i])
		}
	}
	return all, nil
}

// aggregate rolls events up per invitee email. Internal addresses and
// the event host never count as customers.
func (c *Connector) aggregate(events []Event) map[string]*inviteeStats {
	now := c.now()
	byEmail := make(map[string]*inviteeStats)

	for _, event := range events {
		start, hasStart := parseTime(event.StartTime)
		isPast := !hasStart || start.Before(now)

		organizerEmail := strings.ToLower(strings.TrimSpace(event.Organizer.Email))

		for _, invitee := range event.Invitees {
			email := strings.ToLower(strings.TrimSpace(invitee.Email))
			if email == "" || email == organizerEmail || c.syncCfg.IsInternalDomain(email) {
				continue
			}

			s := byEmail[email]
			if s == nil {
				s = &inviteeStats{}
				byEmail[email] = s
			}
			s.booked++

			record := map[string]any{
				"event_name": event.Name,
				"status":     event.Status,
				"organizer":  event.Organizer.Name,
				"no_show":    invitee.IsNoShow(),
				"canceled":   invitee.IsCanceled(),
			}
			if hasStart {
				record["start_time"] = start.Format(time.RFC3339)
			}
			s.events = append(s.events, record)

			for _, qa := range invitee.Questions {
				if qa.Question == "" || qa.Answer == "" {
					continue
				}
				s.questionnaire = append(s.questionnaire, map[string]any{
					"question":   qa.Question,
					"answer":     qa.Answer,
					"event_name": event.Name,
				})
			}

			switch {
			case event.Status == "canceled" || invitee.IsCanceled():
				s.canceled++
			case invitee.Rescheduled:
				s.rescheduled++
			case invitee.IsNoShow():
				s.noShow++
			case isPast:
				s.completed++
				if hasStart && (s.lastCall == nil || start.After(*s.lastCall)) {
					t := start
					s.lastCall = &t
					s.lastOrganizer = event.Organizer.Name
					s.lastOrgEmail = event.Organizer.Email
				}
			default:
				if hasStart && (s.nextCall == nil || start.Before(*s.nextCall)) {
					t := start
					s.nextCall = &t
				}
			}
		}
	}

	return byEmail
}

func buildUpdate(s *inviteeStats) merge.Update {
	u := merge.Update{
		Source:           domain.SourceCalendly,
		TotalCallsBooked: merge.Int(s.booked),
		CallsCompleted:   merge.Int(s.completed),
		CallsNoShow:      merge.Int(s.noShow),
		CallsCanceled:    merge.Int(s.canceled),
		CallsRescheduled: merge.Int(s.rescheduled),
	}

	if s.lastCall != nil {
		u.LastCallDate = s.lastCall
		// A completed call is the strongest recency signal scheduling has.
		u.LastSeenAt = s.lastCall
	}
	if s.nextCall != nil {
		u.NextCallDate = s.nextCall
	}
	if s.lastOrganizer != "" {
		u.AssignedAM = merge.Str(s.lastOrganizer)
		if s.lastOrgEmail != "" {
			u.AssignedAMEmail = merge.Str(s.lastOrgEmail)
		}
	}

	attrs := map[string]any{}
	if len(s.events) > 0 {
		// Most recent 10 events, newest first.
		sort.SliceStable(s.events, func(i, j int) bool {
			ti, _ := s.events[i]["start_time"].(string)
			tj, _ := s.events[j]["start_time"].(string)
			return ti > tj
		})
		keep := s.events
		if len(keep) > 10 {
			keep = keep[:10]
		}
		attrs["calendly_events"] = keep
	}
	if len(s.questionnaire) > 0 {
		attrs["calendly_questionnaire"] = s.questionnaire
	}
	if len(attrs) > 0 {
		u.CustomAttributes = attrs
	}

	return u
}

func parseTime(s string) (time.Time, bool) {
	if s == "" {
		return time.Time{}, false
	}
	t, err := time.Parse(time.RFC3339, s)
	if err != nil {
		return time.Time{}, false
	}
	return t.UTC(), true
}
