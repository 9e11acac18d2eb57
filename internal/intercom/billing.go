package intercom

import "math"

// Billing is the Stripe revenue picture carried on a contact's custom
// attributes. Intercom's Stripe app writes the raw fields; we derive
// MRR, ARR and LTV from them.
type Billing struct {
	StripeCustomerID   string
	PlanName           string
	PlanPrice          *float64
	SubscriptionStatus string
	IsDelinquent       bool
	MRR                float64
	ARR                float64
	LTV                float64
	SubscriptionCount  int
}

// ExtractBilling reads the Stripe custom attributes off a contact.
// MRR comes from the active subscriptions array when present; a yearly
// interval is divided down to monthly. When the array is empty but the
// subscription is active, the flat plan price is used instead, treated
// as cents when it is over 1000. LTV sums succeeded payments.
func ExtractBilling(contact Contact) Billing {
	custom := contact.CustomAttributes

	var b Billing
	b.StripeCustomerID = attrString(custom, "stripe_id")
	b.PlanName = attrString(custom, "stripe_plan")
	b.SubscriptionStatus = attrString(custom, "stripe_subscription_status")
	b.IsDelinquent = attrBool(custom, "stripe_delinquent")

	if price, ok := attrFloat(custom, "stripe_plan_price"); ok {
		b.PlanPrice = &price
	}

	mrr := 0.0
	if subs, ok := custom["Stripe Subscriptions"].([]any); ok {
		for _, raw := range subs {
			sub, ok := raw.(map[string]any)
			if !ok || attrString(sub, "status") != "active" {
				continue
			}
			b.SubscriptionCount++
			price, _ := attrFloat(sub, "price")
			switch attrString(sub, "interval") {
			case "year":
				mrr += price / 12
			case "month", "":
				mrr += price
			}
		}
	}

	// Fall back to the flat plan price, active subscriptions only.
	if mrr == 0 && b.SubscriptionStatus == "active" && b.PlanPrice != nil && *b.PlanPrice != 0 {
		price := *b.PlanPrice
		if price > 1000 {
			price /= 100
		}
		mrr = price
		b.SubscriptionCount = 1
	}

	ltv := 0.0
	if payments, ok := custom["Stripe Payments"].([]any); ok {
		for _, raw := range payments {
			payment, ok := raw.(map[string]any)
			if !ok || attrString(payment, "status") != "succeeded" {
				continue
			}
			amount, _ := attrFloat(payment, "amount")
			ltv += amount / 100
		}
	}

	b.MRR = round2(mrr)
	b.ARR = round2(mrr * 12)
	b.LTV = round2(ltv)
	return b
}

func attrString(m map[string]any, key string) string {
	if m == nil {
		return ""
	}
	s, _ := m[key].(string)
	return s
}

func attrBool(m map[string]any, key string) bool {
	if m == nil {
		return false
	}
	b, _ := m[key].(bool)
	return b
}

func attrFloat(m map[string]any, key string) (float64, bool) {
	if m == nil {
		return 0, false
	}
	switch v := m[key].(type) {
	case float64:
		return v, true
	case int:
		return float64(v), true
	}
	return 0, false
}

func round2(v float64) float64 {
	return math.Round(v*100) / 100
}
