package stripewebhooks

import (
	"context"
	"errors"
	"io"
	"net/http"

	"gpt-storefront/internal/domain/billing"
	"gpt-storefront/internal/infra/stripe"
	"gpt-storefront/internal/ledger"
	"gpt-storefront/internal/reconcile"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"
	"gorm.io/datatypes"
)

const maxBodyBytes = 65536

type Handler struct {
	store      *ledger.GormStore
	gateway    stripe.Gateway
	reconciler *reconcile.Service
	secret     string
}

func NewHandler(store *ledger.GormStore, gw stripe.Gateway, rec *reconcile.Service, endpointSecret string) *Handler {
	return &Handler{
		store:      store,
		gateway:    gw,
		reconciler: rec,
		secret:     endpointSecret,
	}
}

// errPermanent marks failures that redelivery cannot fix. They are recorded on
// the event row and acknowledged with 200.
var errPermanent = errors.New("permanent webhook failure")

func (h *Handler) StripeWebhook(c *gin.Context) {
	if h.secret == "" {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "STRIPE_WEBHOOK_SECRET not configured"})
		return
	}

	payload, err := readStripeBody(c, maxBodyBytes)
	if err != nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "Error reading request body"})
		return
	}

	ctx := c.Request.Context()
	event, err := h.gateway.VerifyWebhookSignature(payload, c.GetHeader("Stripe-Signature"), h.secret)
	if err != nil {
		if errors.Is(err, stripe.ErrSignatureInvalid) {
			zerolog.Ctx(ctx).Warn().Err(err).Msg("stripe signature verification failed")
			c.JSON(http.StatusBadRequest, gin.H{"error": "Signature verification failed"})
			return
		}
		zerolog.Ctx(ctx).Error().Err(err).Msg("stripe event could not be decoded")
		c.JSON(http.StatusBadRequest, gin.H{"error": "Failed to parse event"})
		return
	}

	log := zerolog.Ctx(ctx).With().Str("event_id", event.ID).Str("event_type", event.Type).Logger()
	ctx = log.WithContext(ctx)

	processed, err := h.store.BeginWebhookEvent(ctx, &billing.WebhookEvent{
		EventID: event.ID,
		Type:    event.Type,
		Payload: datatypes.JSON(event.Raw),
	})
	if err != nil {
		log.Error().Err(err).Msg("failed to record webhook event")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to record event"})
		return
	}
	if processed {
		log.Info().Msg("webhook event already processed")
		c.JSON(http.StatusOK, gin.H{"status": string(reconcile.OutcomeAlreadyProcessed)})
		return
	}

	status, procErr := h.dispatch(ctx, event)
	if ferr := h.store.FinishWebhookEvent(ctx, event.ID, procErr); ferr != nil {
		log.Error().Err(ferr).Msg("failed to finish webhook event")
	}

	switch {
	case procErr == nil:
		c.JSON(http.StatusOK, gin.H{"status": status})
	case errors.Is(procErr, errPermanent):
		log.Warn().Err(procErr).Msg("webhook event acknowledged without processing")
		c.JSON(http.StatusOK, gin.H{"status": "rejected"})
	default:
		// Stripe redelivers on non-2xx.
		log.Error().Err(procErr).Msg("webhook processing failed; awaiting redelivery")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Processing failed"})
	}
}

func (h *Handler) dispatch(ctx context.Context, event *stripe.Event) (string, error) {
	switch event.Type {
	case stripe.EventPaymentSucceeded, stripe.EventPaymentFailed:
		return h.handlePaymentIntent(ctx, event)
	case stripe.EventSubscriptionCreated, stripe.EventSubscriptionUpdated:
		return h.handleSubscriptionUpdated(ctx, event.Subscription)
	case stripe.EventSubscriptionDeleted:
		return h.handleSubscriptionDeleted(ctx, event.Subscription)
	default:
		// Acknowledge unknown events to avoid retries
		return string(reconcile.OutcomeIgnored), nil
	}
}

func readStripeBody(c *gin.Context, maxBytes int64) ([]byte, error) {
	c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, maxBytes)
	return io.ReadAll(c.Request.Body)
}
