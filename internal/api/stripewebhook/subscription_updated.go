package stripewebhooks

import (
	"context"
	"errors"
	"fmt"

	"gpt-storefront/internal/domain/billing"
	"gpt-storefront/internal/domain/catalog"
	"gpt-storefront/internal/domain/users"
	"gpt-storefront/internal/infra/stripe"
	"gpt-storefront/internal/ledger"

	"github.com/rs/zerolog"
)

func (h *Handler) handleSubscriptionUpdated(ctx context.Context, sub *stripe.SubscriptionView) (string, error) {
	if sub == nil || sub.ID == "" {
		return "", fmt.Errorf("%w: subscription missing id", errPermanent)
	}

	user, err := h.subscriptionOwner(ctx, sub)
	if err != nil {
		return "", err
	}
	if user == nil {
		// acknowledge to avoid Stripe retries if user deleted
		zerolog.Ctx(ctx).Warn().
			Str("subscription_id", sub.ID).
			Str("customer_id", sub.CustomerID).
			Msg("subscription for unknown user")
		return "ignored", nil
	}

	if err := h.store.UpsertSubscription(ctx, &billing.Subscription{
		UserID:               user.ID,
		StripeSubscriptionID: sub.ID,
		Status:               stripe.NormalizeSubscriptionStatus(sub.Status),
		Plan:                 catalog.PlanRecurring,
		CurrentPeriodEnd:     sub.CurrentPeriodEnd,
	}); err != nil {
		return "", fmt.Errorf("upsert subscription: %w", err)
	}
	return "received", nil
}

// subscriptionOwner finds the user by metadata.user_id, then by customer id.
// A nil user with a nil error means nobody matches.
func (h *Handler) subscriptionOwner(ctx context.Context, sub *stripe.SubscriptionView) (*users.User, error) {
	if sub.UserID != "" {
		u, err := h.store.UserByID(ctx, sub.UserID)
		if err == nil {
			return u, nil
		}
		if !errors.Is(err, ledger.ErrNotFound) {
			return nil, err
		}
	}
	if sub.CustomerID != "" {
		u, err := h.store.UserByStripeCustomerID(ctx, sub.CustomerID)
		if err == nil {
			return u, nil
		}
		if !errors.Is(err, ledger.ErrNotFound) {
			return nil, err
		}
	}
	return nil, nil
}
