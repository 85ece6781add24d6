package reconcile

import (
	"context"
	"errors"
	"fmt"

	"gpt-storefront/internal/domain/access"
	"gpt-storefront/internal/domain/billing"
	"gpt-storefront/internal/domain/catalog"
	"gpt-storefront/internal/ledger"

	"github.com/rs/zerolog"
)

// ensureGrant makes sure a succeeded payment has its access row. A payment
// without one is the inconsistent state left by a failed grant; finishing it
// here is how client retries and webhook redeliveries repair it.
func (s *Service) ensureGrant(ctx context.Context, log zerolog.Logger, payment *billing.Payment, product catalog.Product) (Outcome, error) {
	model, err := s.model(ctx, log, product)
	if err != nil {
		return "", err
	}

	grant, err := s.ledger.AccessFor(ctx, payment.UserID, model.ID)
	if err == nil {
		if access.Usable(s.now(), grant) || !repurchase(grant, payment) {
			return OutcomeAlreadyProcessed, nil
		}
		// A repurchase whose renewal did not go through.
		if err := s.renew(ctx, log, grant, payment); err != nil {
			return "", s.inconsistent(ctx, log, payment, err)
		}
		if err := s.ledger.ResolveFulfillment(ctx, payment.ID, s.now()); err != nil {
			log.Error().Err(err).Str("payment_id", payment.ID).Msg("access renewed but fulfillment issue not resolved")
		}
		return OutcomeAlreadyProcessed, nil
	}
	if !errors.Is(err, ledger.ErrNotFound) {
		return "", fmt.Errorf("load access: %w", err)
	}

	if err := s.grant(ctx, log, payment, model); err != nil {
		return "", s.inconsistent(ctx, log, payment, err)
	}
	if err := s.ledger.ResolveFulfillment(ctx, payment.ID, s.now()); err != nil {
		log.Error().Err(err).Str("payment_id", payment.ID).Msg("access granted but fulfillment issue not resolved")
	}
	log.Warn().Str("payment_id", payment.ID).Msg("completed access grant for previously recorded payment")
	return OutcomeAlreadyProcessed, nil
}

// repurchase reports whether payment bought the product again after grant was
// first written. Replaying the payment that funded the grant never renews it.
func repurchase(grant *access.GptAccess, payment *billing.Payment) bool {
	if grant.PaymentID != nil && *grant.PaymentID == payment.ID {
		return false
	}
	return payment.CreatedAt.After(grant.CreatedAt)
}

// inconsistent records a payment that was written without its access grant.
// The payment stays; the issue row and the returned error make the gap
// visible until a replay or an operator closes it.
func (s *Service) inconsistent(ctx context.Context, log zerolog.Logger, payment *billing.Payment, cause error) error {
	log.Error().
		Err(cause).
		Str("payment_id", payment.ID).
		Msg("reconciliation inconsistency: payment recorded without access grant")

	issue := &billing.FulfillmentIssue{
		PaymentID:       payment.ID,
		StripePaymentID: payment.StripePaymentID,
		UserID:          payment.UserID,
		ProductID:       payment.ProductID,
		LastError:       cause.Error(),
	}
	if err := s.ledger.EnqueueFulfillment(ctx, issue); err != nil {
		log.Error().Err(err).Str("payment_id", payment.ID).Msg("could not enqueue fulfillment issue")
	}
	return fmt.Errorf("%w: %v", ErrFulfillmentPending, cause)
}

// RetryFulfillment finishes the grant for an open fulfillment issue.
func (s *Service) RetryFulfillment(ctx context.Context, issueID string) (Outcome, error) {
	issue, err := s.ledger.FulfillmentByID(ctx, issueID)
	if err != nil {
		return "", fmt.Errorf("load fulfillment issue: %w", err)
	}
	if !issue.Open() {
		return OutcomeAlreadyProcessed, nil
	}

	payment, err := s.ledger.PaymentByStripeID(ctx, issue.StripePaymentID)
	if err != nil {
		return "", fmt.Errorf("load payment: %w", err)
	}

	log := zerolog.Ctx(ctx).With().
		Str("payment_intent_id", payment.StripePaymentID).
		Str("user_id", payment.UserID).
		Str("product_id", payment.ProductID).
		Str("fulfillment_issue_id", issue.ID).
		Logger()

	product, ok := catalog.Resolve(payment.ProductID)
	if !ok {
		log.Error().Msg("paid product is not in the catalog")
		return "", fmt.Errorf("%w: %s", ErrProductModelMismatch, payment.ProductID)
	}

	outcome, err := s.ensureGrant(ctx, log, payment, product)
	if err != nil {
		return "", err
	}
	if err := s.ledger.ResolveFulfillment(ctx, payment.ID, s.now()); err != nil {
		return "", fmt.Errorf("resolve fulfillment issue: %w", err)
	}
	log.Info().Msg("fulfillment issue resolved")
	return outcome, nil
}
