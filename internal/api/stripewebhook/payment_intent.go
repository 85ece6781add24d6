package stripewebhooks

import (
	"context"
	"errors"
	"fmt"

	"gpt-storefront/internal/infra/stripe"
	"gpt-storefront/internal/reconcile"
)

func (h *Handler) handlePaymentIntent(ctx context.Context, event *stripe.Event) (string, error) {
	outcome, err := h.reconciler.HandleGatewayEvent(ctx, event)
	switch {
	case err == nil:
		return string(outcome), nil
	case errors.Is(err, reconcile.ErrAmountMismatch),
		errors.Is(err, reconcile.ErrMissingMetadata):
		// The intent itself is wrong; redelivering it changes nothing.
		return "", fmt.Errorf("%w: %v", errPermanent, err)
	default:
		// Datastore errors, a missing model row and pending fulfillment can
		// all clear up, so let Stripe try again.
		return "", err
	}
}
