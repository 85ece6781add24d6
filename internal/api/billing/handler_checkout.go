package billing

import (
	"errors"
	"net/http"
	"strings"

	"gpt-storefront/internal/domain/billing"
	"gpt-storefront/internal/domain/catalog"
	"gpt-storefront/internal/infra/stripe"
	"gpt-storefront/internal/ledger"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"
)

// CreatePaymentIntent starts a card payment for one catalog product. Price and
// currency come from the catalog only; the body names the product and nothing
// else.
func (h *Handler) CreatePaymentIntent(c *gin.Context) {
	var body struct {
		ProductID string `json:"productId"`
	}
	if err := c.ShouldBindJSON(&body); err != nil || strings.TrimSpace(body.ProductID) == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Missing or invalid productId", "reason": "invalid_product"})
		return
	}

	userID := c.GetString("user_id")
	if userID == "" {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "User not identified"})
		return
	}

	// allow-list product id
	product, ok := catalog.Resolve(strings.TrimSpace(body.ProductID))
	if !ok {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Unknown product", "reason": "invalid_product"})
		return
	}

	ctx := c.Request.Context()
	model, err := h.store.ModelByID(ctx, product.ID)
	if err != nil || !model.Active {
		zerolog.Ctx(ctx).Error().Err(err).Str("product_id", product.ID).Msg("catalog product has no active model")
		c.JSON(http.StatusBadRequest, gin.H{"error": "Product unavailable", "reason": "invalid_product"})
		return
	}

	user, err := h.store.UserByID(ctx, userID)
	if errors.Is(err, ledger.ErrNotFound) {
		c.JSON(http.StatusNotFound, gin.H{"error": "User not found"})
		return
	}
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to load user"})
		return
	}

	owned, err := h.entitlement.Owns(ctx, user.ID, product.ID)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to check access"})
		return
	}
	if owned {
		c.JSON(http.StatusBadRequest, gin.H{"error": "You already own this product", "reason": "already_owned"})
		return
	}

	// ensure stripe customer
	customerID, err := stripe.GetOrCreateCustomer(ctx, h.gateway, h.store, user)
	if err != nil {
		respondError(c, err)
		return
	}

	intent, err := h.gateway.CreatePaymentIntent(ctx, stripe.IntentRequest{
		CustomerID:  customerID,
		AmountMinor: product.PriceMinor,
		Currency:    product.Currency,
		Description: billing.PurchaseDescription(product.Name),
		Metadata: stripe.IntentMetadata{
			UserID:      user.ID,
			ProductID:   product.ID,
			ProductName: product.Name,
		},
	})
	if err != nil {
		respondError(c, err)
		return
	}

	zerolog.Ctx(ctx).Info().
		Str("payment_intent_id", intent.ID).
		Str("user_id", user.ID).
		Str("product_id", product.ID).
		Msg("payment intent created")

	c.JSON(http.StatusOK, gin.H{
		"clientSecret":    intent.ClientSecret,
		"paymentIntentId": intent.ID,
		"amount":          product.PriceMinor,
		"currency":        product.Currency,
	})
}
