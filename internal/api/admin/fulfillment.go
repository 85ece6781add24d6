package admin

import (
	"errors"
	"net/http"

	"gpt-storefront/internal/infra/stripe"
	"gpt-storefront/internal/ledger"
	"gpt-storefront/internal/reconcile"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"
)

// ListFulfillment shows payments whose access grant is still owed. Pass
// ?all=1 to include resolved issues.
func (h *Handler) ListFulfillment(c *gin.Context) {
	openOnly := c.Query("all") == ""
	issues, err := h.store.ListFulfillment(c.Request.Context(), openOnly)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to load fulfillment issues"})
		return
	}
	c.JSON(http.StatusOK, issues)
}

func (h *Handler) RetryFulfillment(c *gin.Context) {
	ctx := c.Request.Context()
	outcome, err := h.reconciler.RetryFulfillment(ctx, c.Param("id"))
	switch {
	case err == nil:
		c.JSON(http.StatusOK, gin.H{"status": outcome})
	case errors.Is(err, ledger.ErrNotFound):
		c.JSON(http.StatusNotFound, gin.H{"error": "Fulfillment issue not found"})
	case errors.Is(err, reconcile.ErrProductModelMismatch):
		c.JSON(http.StatusConflict, gin.H{"error": "Product has no matching model", "reason": "product_model_mismatch"})
	default:
		zerolog.Ctx(ctx).Error().Err(err).Str("fulfillment_issue_id", c.Param("id")).Msg("fulfillment retry failed")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Retry failed", "reason": "fulfillment_pending"})
	}
}

// ReconcileIntent re-reads a payment intent from Stripe and reconciles it.
func (h *Handler) ReconcileIntent(c *gin.Context) {
	ctx := c.Request.Context()
	outcome, err := h.reconciler.ReconcileIntent(ctx, c.Param("id"))
	if err == nil {
		c.JSON(http.StatusOK, gin.H{"status": outcome})
		return
	}

	zerolog.Ctx(ctx).Error().Err(err).Str("payment_intent_id", c.Param("id")).Msg("admin reconcile failed")
	var gwErr *stripe.GatewayError
	switch {
	case errors.Is(err, stripe.ErrIntentNotFound):
		c.JSON(http.StatusNotFound, gin.H{"error": "Payment intent not found"})
	case errors.As(err, &gwErr):
		c.JSON(http.StatusBadGateway, gin.H{"error": "Payment provider unavailable"})
	case errors.Is(err, reconcile.ErrAmountMismatch),
		errors.Is(err, reconcile.ErrMissingMetadata),
		errors.Is(err, reconcile.ErrProductModelMismatch):
		// operators see the reason
		c.JSON(http.StatusConflict, gin.H{"error": err.Error()})
	default:
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
	}
}
