// Package reconcile turns a provider payment intent into a ledger payment and
// an access grant, exactly once, whichever of the client confirmation, the
// webhook or an operator replay gets there first.
package reconcile

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"gpt-storefront/internal/domain/access"
	"gpt-storefront/internal/domain/billing"
	"gpt-storefront/internal/domain/catalog"
	"gpt-storefront/internal/infra/stripe"
	"gpt-storefront/internal/ledger"

	"github.com/rs/zerolog"
)

type Gateway interface {
	RetrievePaymentIntent(ctx context.Context, id string) (*stripe.IntentView, error)
}

type Ledger interface {
	ModelByID(ctx context.Context, id string) (*access.GptModel, error)
	PaymentByStripeID(ctx context.Context, stripePaymentID string) (*billing.Payment, error)
	CreatePayment(ctx context.Context, p *billing.Payment) error
	PromotePayment(ctx context.Context, stripePaymentID, amount, currency, description string) (bool, error)
	AccessFor(ctx context.Context, userID, modelID string) (*access.GptAccess, error)
	CreateAccess(ctx context.Context, a *access.GptAccess) error
	RenewAccess(ctx context.Context, accessID, paymentID string) error
	EnqueueFulfillment(ctx context.Context, issue *billing.FulfillmentIssue) error
	ResolveFulfillment(ctx context.Context, paymentID string, at time.Time) error
	FulfillmentByID(ctx context.Context, id string) (*billing.FulfillmentIssue, error)
}

// Notifier is told about new purchases. It must not block for long and its
// failures are its own concern.
type Notifier interface {
	PurchaseCompleted(ctx context.Context, p billing.Payment, product catalog.Product)
}

type Service struct {
	gateway  Gateway
	ledger   Ledger
	notifier Notifier
	now      func() time.Time
}

type Option func(*Service)

func WithNotifier(n Notifier) Option {
	return func(s *Service) { s.notifier = n }
}

func WithClock(now func() time.Time) Option {
	return func(s *Service) { s.now = now }
}

func NewService(gw Gateway, l Ledger, opts ...Option) *Service {
	s := &Service{
		gateway: gw,
		ledger:  l,
		now:     func() time.Time { return time.Now().UTC() },
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// ConfirmClientSidePayment handles the browser's "my card payment went
// through" claim. The claim itself is never trusted: the intent is fetched
// from the provider and must belong to the caller and have succeeded.
func (s *Service) ConfirmClientSidePayment(ctx context.Context, intentID, requestingUserID string) (Outcome, error) {
	intentID = strings.TrimSpace(intentID)
	if intentID == "" {
		return "", ErrMissingIntentID
	}

	intent, err := s.gateway.RetrievePaymentIntent(ctx, intentID)
	if err != nil {
		return "", fmt.Errorf("retrieve payment intent: %w", err)
	}

	if requestingUserID == "" || intent.Metadata.UserID != requestingUserID {
		zerolog.Ctx(ctx).Warn().
			Str("payment_intent_id", intent.ID).
			Str("user_id", requestingUserID).
			Str("intent_user_id", intent.Metadata.UserID).
			Msg("payment confirmation rejected: intent owned by another user")
		return "", ErrPaymentOwnershipMismatch
	}
	if !intent.Succeeded() {
		return "", fmt.Errorf("%w: status %s", ErrPaymentNotSuccessful, intent.Status)
	}

	return s.reconcile(ctx, intent, false)
}

// HandleGatewayEvent reconciles a verified webhook event. Events that are not
// about storefront payment intents are ignored.
func (s *Service) HandleGatewayEvent(ctx context.Context, ev *stripe.Event) (Outcome, error) {
	switch ev.Type {
	case stripe.EventPaymentSucceeded, stripe.EventPaymentFailed:
	default:
		return OutcomeIgnored, nil
	}
	if ev.PaymentIntent == nil {
		return OutcomeIgnored, nil
	}
	if !ev.PaymentIntent.Metadata.Complete() {
		zerolog.Ctx(ctx).Info().
			Str("event_id", ev.ID).
			Str("payment_intent_id", ev.PaymentIntent.ID).
			Msg("payment intent without storefront metadata; ignoring")
		return OutcomeIgnored, nil
	}
	return s.reconcile(ctx, ev.PaymentIntent, ev.Type == stripe.EventPaymentFailed)
}

// ReconcileIntent re-fetches an intent and reconciles it without an ownership
// check. Operator use only.
func (s *Service) ReconcileIntent(ctx context.Context, intentID string) (Outcome, error) {
	intentID = strings.TrimSpace(intentID)
	if intentID == "" {
		return "", ErrMissingIntentID
	}
	intent, err := s.gateway.RetrievePaymentIntent(ctx, intentID)
	if err != nil {
		return "", fmt.Errorf("retrieve payment intent: %w", err)
	}
	return s.reconcile(ctx, intent, false)
}

// reconcile is the single path from a provider intent to ledger state.
// failedEvent is set when the trigger itself reports a failed attempt.
func (s *Service) reconcile(ctx context.Context, intent *stripe.IntentView, failedEvent bool) (Outcome, error) {
	attemptFailed := failedEvent || intent.FailureMessage != ""
	status := billing.PaymentStatus(stripe.LedgerStatus(intent.Status, attemptFailed))
	if status == billing.StatusPending {
		return OutcomeIgnored, nil
	}

	md := intent.Metadata
	if !md.Complete() {
		return "", ErrMissingMetadata
	}

	log := zerolog.Ctx(ctx).With().
		Str("payment_intent_id", intent.ID).
		Str("user_id", md.UserID).
		Str("product_id", md.ProductID).
		Logger()

	product, ok := catalog.Resolve(md.ProductID)
	if !ok {
		log.Error().Msg("paid product is not in the catalog")
		return "", fmt.Errorf("%w: %s", ErrProductModelMismatch, md.ProductID)
	}

	if status == billing.StatusSucceeded &&
		(intent.AmountMinor != product.PriceMinor || !strings.EqualFold(intent.Currency, product.Currency)) {
		log.Error().
			Int64("amount", intent.AmountMinor).
			Str("currency", intent.Currency).
			Int64("catalog_amount", product.PriceMinor).
			Str("catalog_currency", product.Currency).
			Str("catalog_version", catalog.Version).
			Msg("payment amount does not match catalog price")
		return "", ErrAmountMismatch
	}

	existing, err := s.ledger.PaymentByStripeID(ctx, intent.ID)
	switch {
	case err == nil:
		return s.replay(ctx, log, intent, product, existing)
	case !errors.Is(err, ledger.ErrNotFound):
		return "", fmt.Errorf("load payment: %w", err)
	}

	if status == billing.StatusFailed {
		return s.recordFailure(ctx, log, intent, product)
	}
	return s.recordSuccess(ctx, log, intent, product)
}

func (s *Service) recordSuccess(ctx context.Context, log zerolog.Logger, intent *stripe.IntentView, product catalog.Product) (Outcome, error) {
	model, err := s.model(ctx, log, product)
	if err != nil {
		return "", err
	}

	payment := newPayment(intent, product, billing.StatusSucceeded)
	if err := s.ledger.CreatePayment(ctx, payment); err != nil {
		if !errors.Is(err, ledger.ErrDuplicatePayment) {
			return "", fmt.Errorf("record payment: %w", err)
		}
		// Lost the race against another trigger for the same intent.
		existing, lerr := s.ledger.PaymentByStripeID(ctx, intent.ID)
		if lerr != nil {
			return "", fmt.Errorf("load payment: %w", lerr)
		}
		return s.replay(ctx, log, intent, product, existing)
	}

	if err := s.grant(ctx, log, payment, model); err != nil {
		return "", s.inconsistent(ctx, log, payment, err)
	}

	log.Info().Str("payment_id", payment.ID).Msg("payment recorded and access granted")
	s.notify(ctx, *payment, product)
	return OutcomeRecorded, nil
}

func (s *Service) recordFailure(ctx context.Context, log zerolog.Logger, intent *stripe.IntentView, product catalog.Product) (Outcome, error) {
	payment := newPayment(intent, product, billing.StatusFailed)
	if err := s.ledger.CreatePayment(ctx, payment); err != nil {
		if errors.Is(err, ledger.ErrDuplicatePayment) {
			return OutcomeAlreadyProcessed, nil
		}
		return "", fmt.Errorf("record failed payment: %w", err)
	}
	log.Info().Str("failure", intent.FailureMessage).Msg("failed payment recorded")
	return OutcomeFailureRecorded, nil
}

// replay handles an intent that already has a ledger row.
func (s *Service) replay(ctx context.Context, log zerolog.Logger, intent *stripe.IntentView, product catalog.Product, existing *billing.Payment) (Outcome, error) {
	if existing.Succeeded() {
		return s.ensureGrant(ctx, log, existing, product)
	}
	if !intent.Succeeded() {
		return OutcomeAlreadyProcessed, nil
	}

	// An intent can fail and later succeed with another payment method. The
	// conditional update picks one winner among concurrent triggers.
	model, err := s.model(ctx, log, product)
	if err != nil {
		return "", err
	}
	won, err := s.ledger.PromotePayment(ctx, intent.ID,
		billing.FormatMinor(intent.AmountMinor),
		strings.ToLower(intent.Currency),
		billing.PurchaseDescription(product.Name))
	if err != nil {
		return "", fmt.Errorf("promote payment: %w", err)
	}
	existing.Status = billing.StatusSucceeded
	if !won {
		return s.ensureGrant(ctx, log, existing, product)
	}

	if err := s.grant(ctx, log, existing, model); err != nil {
		return "", s.inconsistent(ctx, log, existing, err)
	}
	log.Info().Str("payment_id", existing.ID).Msg("previously failed payment succeeded; access granted")
	s.notify(ctx, *existing, product)
	return OutcomeRecorded, nil
}

func (s *Service) model(ctx context.Context, log zerolog.Logger, product catalog.Product) (*access.GptModel, error) {
	model, err := s.ledger.ModelByID(ctx, product.ID)
	if errors.Is(err, ledger.ErrNotFound) {
		log.Error().Msg("no gpt model row for paid product")
		return nil, fmt.Errorf("%w: %s", ErrProductModelMismatch, product.ID)
	}
	if err != nil {
		return nil, fmt.Errorf("load model: %w", err)
	}
	return model, nil
}

func (s *Service) grant(ctx context.Context, log zerolog.Logger, payment *billing.Payment, model *access.GptModel) error {
	token, err := access.NewAccessToken()
	if err != nil {
		return err
	}
	paymentID := payment.ID
	err = s.ledger.CreateAccess(ctx, &access.GptAccess{
		UserID:      payment.UserID,
		ModelID:     model.ID,
		PaymentID:   &paymentID,
		AccessToken: token,
	})
	if !errors.Is(err, ledger.ErrDuplicateAccess) {
		return err
	}
	existing, err := s.ledger.AccessFor(ctx, payment.UserID, model.ID)
	if err != nil {
		return fmt.Errorf("load access: %w", err)
	}
	if access.Usable(s.now(), existing) || !repurchase(existing, payment) {
		log.Info().Str("payment_id", payment.ID).Msg("access already granted")
		return nil
	}
	return s.renew(ctx, log, existing, payment)
}

// renew reactivates an expired grant for the payment that bought it back.
func (s *Service) renew(ctx context.Context, log zerolog.Logger, grant *access.GptAccess, payment *billing.Payment) error {
	if err := s.ledger.RenewAccess(ctx, grant.ID, payment.ID); err != nil {
		return fmt.Errorf("renew access: %w", err)
	}
	log.Info().Str("payment_id", payment.ID).Str("access_id", grant.ID).Msg("expired access renewed")
	return nil
}

func (s *Service) notify(ctx context.Context, p billing.Payment, product catalog.Product) {
	if s.notifier != nil {
		s.notifier.PurchaseCompleted(ctx, p, product)
	}
}

func newPayment(intent *stripe.IntentView, product catalog.Product, status billing.PaymentStatus) *billing.Payment {
	return &billing.Payment{
		UserID:          intent.Metadata.UserID,
		StripePaymentID: intent.ID,
		ProductID:       product.ID,
		Amount:          billing.FormatMinor(intent.AmountMinor),
		Currency:        strings.ToLower(intent.Currency),
		Status:          status,
		Description:     billing.PurchaseDescription(product.Name),
	}
}
