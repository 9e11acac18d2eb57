// Package merge folds per-source field updates into a unified customer.
// Each source owns some fields outright and may only suggest others;
// the policies live here so connectors stay dumb extractors.
package merge

import (
	"time"

	"github.com/ignite/customer-intel/internal/domain"
)

// Update carries the fields one source pass extracted for one customer.
// Nil pointers mean "not provided"; provided fields are merged according
// to the ownership policy for the update's source.
type Update struct {
	Source domain.Source

	// Source identifiers.
	IntercomContactID *string
	CalendlyInviteeID *string
	AirtableRecordID  *string

	// Profile. Overwrite when provided.
	Name              *string
	CompanyName       *string
	LocationCountry   *string
	LocationCity      *string
	CustomerType      *string
	AcquisitionSource *string
	SignupDate        *time.Time

	// Account manager assignment. The directory source owns it; the
	// scheduling source may only fill a missing or "Unassigned" slot.
	AssignedAM      *string
	AssignedAMEmail *string

	// Revenue and billing. Overwrite when provided.
	MRR                *float64
	ARR                *float64
	LTV                *float64
	PlanName           *string
	PlanPrice          *float64
	BillingInterval    *string
	SubscriptionStatus *domain.SubscriptionStatus
	IsDelinquent       *bool
	PaymentFailures90d *int
	ChurnReason        *string

	// Activity. LastSeenAt only ever advances.
	LastSeenAt         *time.Time
	LoginCount7d       *int
	LoginCount30d      *int
	OnboardingComplete *bool
	FeatureUsage       map[string]any

	// Support.
	ConvosTotal      *int
	Convos30d        *int
	CSATScore        *float64
	SupportSentiment *string
	OpenTickets      *int
	// MentionedCancel latches: once a cancel mention is on record it
	// stays until someone clears it by hand.
	MentionedCancel *bool

	// Scheduling counters are absolute snapshots from the source.
	TotalCallsBooked *int
	CallsCompleted   *int
	CallsNoShow      *int
	CallsCanceled    *int
	CallsRescheduled *int
	LastCallDate     *time.Time
	NextCallDate     *time.Time

	// Segmentation. Tags union-merge; attributes merge per key with the
	// incoming value winning.
	Industry         *string
	CompanySize      *string
	Tags             []string
	CustomAttributes map[string]any
}

// Apply merges the update into the customer in place and stamps the
// source's sync watermark. It never invents identity: the customer must
// already be resolved.
func Apply(c *domain.Customer, u Update, now time.Time) {
	setStr(&c.IntercomContactID, u.IntercomContactID)
	setStr(&c.CalendlyInviteeID, u.CalendlyInviteeID)
	setStr(&c.AirtableRecordID, u.AirtableRecordID)

	setStr(&c.Name, u.Name)
	setStr(&c.CompanyName, u.CompanyName)
	setStr(&c.LocationCountry, u.LocationCountry)
	setStr(&c.LocationCity, u.LocationCity)
	setStr(&c.CustomerType, u.CustomerType)
	setStr(&c.AcquisitionSource, u.AcquisitionSource)
	if u.SignupDate != nil {
		c.SignupDate = u.SignupDate
	}

	applyAssignment(c, u)

	if u.MRR != nil {
		c.MRR = u.MRR
	}
	if u.ARR != nil {
		c.ARR = u.ARR
	}
	if u.LTV != nil {
		c.LTV = u.LTV
	}
	setStr(&c.PlanName, u.PlanName)
	if u.PlanPrice != nil {
		c.PlanPrice = u.PlanPrice
	}
	setStr(&c.BillingInterval, u.BillingInterval)
	if u.SubscriptionStatus != nil {
		c.SubscriptionStatus = *u.SubscriptionStatus
		if *u.SubscriptionStatus == domain.SubscriptionCanceled && c.ChurnedAt == nil {
			t := now
			c.ChurnedAt = &t
			if u.ChurnReason != nil {
				c.ChurnReason = *u.ChurnReason
			} else if c.ChurnReason == "" {
				c.ChurnReason = "subscription_canceled"
			}
		}
	}
	if u.IsDelinquent != nil {
		c.IsDelinquent = *u.IsDelinquent
	}
	if u.PaymentFailures90d != nil {
		c.PaymentFailures90d = *u.PaymentFailures90d
	}

	if u.LastSeenAt != nil && (c.LastSeenAt == nil || u.LastSeenAt.After(*c.LastSeenAt)) {
		c.LastSeenAt = u.LastSeenAt
	}
	if u.LoginCount7d != nil {
		c.LoginCount7d = *u.LoginCount7d
	}
	if u.LoginCount30d != nil {
		c.LoginCount30d = *u.LoginCount30d
	}
	if u.OnboardingComplete != nil {
		c.OnboardingComplete = *u.OnboardingComplete
	}
	if len(u.FeatureUsage) > 0 {
		if c.FeatureUsage == nil {
			c.FeatureUsage = make(map[string]any, len(u.FeatureUsage))
		}
		for k, v := range u.FeatureUsage {
			c.FeatureUsage[k] = v
		}
	}

	if u.ConvosTotal != nil {
		c.ConvosTotal = *u.ConvosTotal
	}
	if u.Convos30d != nil {
		c.Convos30d = *u.Convos30d
	}
	if u.CSATScore != nil {
		c.CSATScore = u.CSATScore
	}
	setStr(&c.SupportSentiment, u.SupportSentiment)
	if u.OpenTickets != nil {
		c.OpenTickets = *u.OpenTickets
	}
	if u.MentionedCancel != nil && *u.MentionedCancel {
		c.MentionedCancel = true
	}

	applyCalls(c, u)

	setStr(&c.Industry, u.Industry)
	setStr(&c.CompanySize, u.CompanySize)
	if len(u.Tags) > 0 {
		c.Tags = unionTags(c.Tags, u.Tags)
	}
	if len(u.CustomAttributes) > 0 {
		if c.CustomAttributes == nil {
			c.CustomAttributes = make(map[string]any, len(u.CustomAttributes))
		}
		for k, v := range u.CustomAttributes {
			c.CustomAttributes[k] = v
		}
	}

	stampSync(c, u.Source, now)
	c.UpdatedAt = now
}

// applyAssignment enforces AM ownership: the directory source always
// wins, the scheduling source only fills an empty slot.
func applyAssignment(c *domain.Customer, u Update) {
	if u.AssignedAM == nil && u.AssignedAMEmail == nil {
		return
	}

	switch u.Source {
	case domain.SourceAirtable:
		if u.AssignedAM != nil {
			c.AssignedAM = *u.AssignedAM
		}
		if u.AssignedAMEmail != nil {
			c.AssignedAMEmail = *u.AssignedAMEmail
		}
	case domain.SourceCalendly:
		if c.AssignedAM == "" || c.AssignedAM == "Unassigned" {
			if u.AssignedAM != nil {
				c.AssignedAM = *u.AssignedAM
			}
			if u.AssignedAMEmail != nil {
				c.AssignedAMEmail = *u.AssignedAMEmail
			}
		}
	}
}

// applyCalls sets the scheduling counters and re-derives the show rate
// from raw counts so a stale stored rate can never survive a pass.
func applyCalls(c *domain.Customer, u Update) {
	touched := false
	if u.TotalCallsBooked != nil {
		c.TotalCallsBooked = *u.TotalCallsBooked
		touched = true
	}
	if u.CallsCompleted != nil {
		c.CallsCompleted = *u.CallsCompleted
		touched = true
	}
	if u.CallsNoShow != nil {
		c.CallsNoShow = *u.CallsNoShow
	}
	if u.CallsCanceled != nil {
		c.CallsCanceled = *u.CallsCanceled
	}
	if u.CallsRescheduled != nil {
		c.CallsRescheduled = *u.CallsRescheduled
	}
	if u.LastCallDate != nil {
		c.LastCallDate = u.LastCallDate
	}
	if u.NextCallDate != nil {
		c.NextCallDate = u.NextCallDate
	}

	if touched {
		if c.TotalCallsBooked > 0 {
			rate := float64(c.CallsCompleted) / float64(c.TotalCallsBooked) * 100
			c.ShowRate = &rate
		} else {
			c.ShowRate = nil
		}
	}
}

func stampSync(c *domain.Customer, source domain.Source, now time.Time) {
	t := now
	switch source {
	case domain.SourceIntercom:
		c.LastIntercomSync = &t
	case domain.SourceCalendly:
		c.LastCalendlySync = &t
	case domain.SourceSmartlead:
		c.LastSmartleadSync = &t
	case domain.SourceAirtable:
		c.LastAirtableSync = &t
	case domain.SourceFathom:
		c.LastFathomSync = &t
	}
}

func unionTags(existing, incoming []string) []string {
	seen := make(map[string]bool, len(existing)+len(incoming))
	out := make([]string, 0, len(existing)+len(incoming))
	for _, t := range existing {
		if t != "" && !seen[t] {
			seen[t] = true
			out = append(out, t)
		}
	}
	for _, t := range incoming {
		if t != "" && !seen[t] {
			seen[t] = true
			out = append(out, t)
		}
	}
	return out
}

func setStr(dst *string, v *string) {
	if v != nil {
		*dst = *v
	}
}

// Str is a convenience for connectors building Updates from literals.
func Str(s string) *string { return &s }

// F64 is a convenience for connectors building Updates from literals.
func F64(v float64) *float64 { return &v }

// Int is a convenience for connectors building Updates from literals.
func Int(v int) *int { return &v }

// Bool is a convenience for connectors building Updates from literals.
func Bool(v bool) *bool { return &v }

// Time is a convenience for connectors building Updates from literals.
func Time(t time.Time) *time.Time { return &t }
