package catalog

import "strings"

// Plan tags (single source of truth). Every product in the storefront is a
// one-time purchase today; the recurring tag exists for the subscription
// variant of the schema.
const (
	PlanNone      = "none"
	PlanOneTime   = "one_time"
	PlanRecurring = "recurring"
)

// NormalizePlan maps stored or legacy plan strings onto a known tag.
func NormalizePlan(tag string) string {
	switch strings.ToLower(strings.TrimSpace(tag)) {
	case PlanOneTime, "one-time", "onetime", "lifetime":
		return PlanOneTime
	case PlanRecurring, "monthly", "subscription":
		return PlanRecurring
	default:
		return PlanNone
	}
}
