package billing

import (
	"errors"
	"net/http"

	"gpt-storefront/internal/entitlement"
	"gpt-storefront/internal/infra/stripe"
	"gpt-storefront/internal/ledger"
	"gpt-storefront/internal/reconcile"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"
)

type Handler struct {
	store       *ledger.GormStore
	gateway     stripe.Gateway
	reconciler  *reconcile.Service
	entitlement *entitlement.Service
}

func NewHandler(store *ledger.GormStore, gw stripe.Gateway, rec *reconcile.Service, ent *entitlement.Service) *Handler {
	return &Handler{
		store:       store,
		gateway:     gw,
		reconciler:  rec,
		entitlement: ent,
	}
}

// respondError maps reconciliation and gateway errors to a status and a
// stable reason code. Provider details stay in the log.
func respondError(c *gin.Context, err error) {
	status, reason, msg := http.StatusInternalServerError, "internal_error", "Internal error"

	var gwErr *stripe.GatewayError
	switch {
	case errors.Is(err, reconcile.ErrMissingIntentID):
		status, reason, msg = http.StatusBadRequest, "missing_payment_intent", "paymentIntentId is required"
	case errors.Is(err, reconcile.ErrPaymentNotSuccessful):
		status, reason, msg = http.StatusBadRequest, "payment_not_successful", "Payment has not succeeded"
	case errors.Is(err, reconcile.ErrMissingMetadata):
		status, reason, msg = http.StatusBadRequest, "payment_metadata_missing", "Payment is not a storefront purchase"
	case errors.Is(err, reconcile.ErrPaymentOwnershipMismatch):
		status, reason, msg = http.StatusForbidden, "payment_ownership_mismatch", "Payment does not belong to this account"
	case errors.Is(err, stripe.ErrIntentNotFound):
		status, reason, msg = http.StatusNotFound, "payment_intent_not_found", "Payment not found"
	case errors.Is(err, reconcile.ErrProductModelMismatch):
		status, reason, msg = http.StatusConflict, "product_model_mismatch", "Purchased product is not available"
	case errors.Is(err, reconcile.ErrAmountMismatch):
		status, reason, msg = http.StatusConflict, "amount_mismatch", "Payment amount does not match the product price"
	case errors.Is(err, reconcile.ErrFulfillmentPending):
		status, reason, msg = http.StatusInternalServerError, "fulfillment_pending", "Payment recorded; access is being granted, please retry shortly"
	case errors.As(err, &gwErr):
		status, reason, msg = http.StatusBadGateway, "gateway_unavailable", "Payment provider unavailable"
	}

	ev := zerolog.Ctx(c.Request.Context()).Warn()
	if status >= http.StatusInternalServerError {
		ev = zerolog.Ctx(c.Request.Context()).Error()
	}
	ev.Err(err).Str("reason", reason).Msg("billing request failed")

	c.JSON(status, gin.H{"error": msg, "reason": reason})
}
