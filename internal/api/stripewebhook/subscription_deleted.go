package stripewebhooks

import (
	"context"
	"fmt"

	"gpt-storefront/internal/domain/billing"
	"gpt-storefront/internal/domain/catalog"
	"gpt-storefront/internal/infra/stripe"
)

func (h *Handler) handleSubscriptionDeleted(ctx context.Context, sub *stripe.SubscriptionView) (string, error) {
	if sub == nil || sub.ID == "" {
		return "ignored", nil
	}

	user, err := h.subscriptionOwner(ctx, sub)
	if err != nil {
		return "", err
	}
	if user == nil {
		return "ignored", nil
	}

	status := stripe.NormalizeSubscriptionStatus(sub.Status)
	if status == "none" || status == "active" {
		status = "canceled"
	}
	if err := h.store.UpsertSubscription(ctx, &billing.Subscription{
		UserID:               user.ID,
		StripeSubscriptionID: sub.ID,
		Status:               status,
		Plan:                 catalog.PlanRecurring,
		CurrentPeriodEnd:     sub.CurrentPeriodEnd,
	}); err != nil {
		return "", fmt.Errorf("cancel subscription: %w", err)
	}
	return "received", nil
}
