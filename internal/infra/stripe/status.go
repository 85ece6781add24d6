package stripe

import "strings"

// NormalizeSubscriptionStatus collapses Stripe subscription states onto the
// values stored in subscriptions.status.
func NormalizeSubscriptionStatus(s string) string {
	switch strings.TrimSpace(s) {
	case "":
		return "none"
	case "active":
		return "active"
	case "trialing":
		return "trialing"
	case "past_due", "unpaid":
		return "past_due"
	case "canceled", "incomplete_expired":
		return "canceled"
	default:
		return strings.TrimSpace(s)
	}
}

// LedgerStatus maps a payment intent status onto the ledger's
// succeeded | failed | pending. Stripe reports requires_payment_method both
// for a new intent and for one whose attempt was declined, so it only counts
// as failed when an attempt is known to have failed.
func LedgerStatus(intentStatus string, attemptFailed bool) string {
	switch strings.TrimSpace(intentStatus) {
	case IntentStatusSucceeded:
		return "succeeded"
	case "canceled":
		return "failed"
	case "requires_payment_method":
		if attemptFailed {
			return "failed"
		}
		return "pending"
	default:
		return "pending"
	}
}
