package stripe

import (
	"context"
	"fmt"

	"gpt-storefront/internal/domain/users"

	"github.com/rs/zerolog"
)

type CustomerSaver interface {
	SetStripeCustomerID(ctx context.Context, userID, customerID string) error
}

// GetOrCreateCustomer returns the user's Stripe customer, creating one when the
// user has none or the stored one no longer exists at Stripe. A new id is
// persisted before it is returned.
func GetOrCreateCustomer(ctx context.Context, gw CustomerGateway, saver CustomerSaver, u *users.User) (string, error) {
	var stale string
	if u.StripeCustomerID != nil && *u.StripeCustomerID != "" {
		ok, err := gw.CustomerExists(ctx, *u.StripeCustomerID)
		if err != nil {
			return "", err
		}
		if ok {
			return *u.StripeCustomerID, nil
		}
		stale = *u.StripeCustomerID
		zerolog.Ctx(ctx).Warn().
			Str("user_id", u.ID).
			Str("customer_id", stale).
			Msg("stripe customer missing or deleted; creating a new one")
	}

	id, err := gw.CreateCustomer(ctx, CustomerInfo{
		UserID:   u.ID,
		Email:    u.Email,
		Name:     u.Name,
		Replaces: stale,
	})
	if err != nil {
		return "", err
	}

	if err := saver.SetStripeCustomerID(ctx, u.ID, id); err != nil {
		return "", fmt.Errorf("save stripe customer id: %w", err)
	}
	u.StripeCustomerID = &id
	return id, nil
}
