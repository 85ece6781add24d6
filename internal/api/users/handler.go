package users

import (
	"errors"
	"net/http"
	"time"

	"gpt-storefront/internal/ledger"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"
)

type Handler struct {
	store *ledger.GormStore
	now   func() time.Time
}

func NewHandler(store *ledger.GormStore) *Handler {
	return &Handler{store: store, now: func() time.Time { return time.Now().UTC() }}
}

func (h *Handler) GetCurrentUser(c *gin.Context) {
	userID := c.GetString("user_id")
	if userID == "" {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Unauthorized"})
		return
	}

	ctx := c.Request.Context()
	user, err := h.store.UserByID(ctx, userID)
	if errors.Is(err, ledger.ErrNotFound) {
		c.JSON(http.StatusNotFound, gin.H{"error": "User not found"})
		return
	}
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to load user"})
		return
	}

	payments, err := h.store.ListPayments(ctx, userID)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to load payments"})
		return
	}
	subs, err := h.store.ListSubscriptions(ctx, userID)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to load subscriptions"})
		return
	}
	grants, err := h.store.ListAccess(ctx, userID)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to load access"})
		return
	}

	resp := MeResponse{
		User: BuildUserDTO(*user),
		Billing: BillingDTO{
			HasCustomer:   user.StripeCustomerID != nil && *user.StripeCustomerID != "",
			Payments:      BuildPaymentDTOs(payments),
			Subscriptions: BuildSubscriptionDTOs(subs),
		},
		Access: AccessDTO{
			Grants: BuildGrantDTOs(h.now(), grants),
		},
	}

	c.JSON(http.StatusOK, resp)
}

// GetDashboard is the read model behind the purchase dashboard. It writes
// nothing.
func (h *Handler) GetDashboard(c *gin.Context) {
	userID := c.GetString("user_id")
	if userID == "" {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Unauthorized"})
		return
	}

	ctx := c.Request.Context()
	grants, err := h.store.ListAccess(ctx, userID)
	if err != nil {
		zerolog.Ctx(ctx).Error().Err(err).Msg("dashboard: load access")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to load dashboard"})
		return
	}
	payments, err := h.store.ListPayments(ctx, userID)
	if err != nil {
		zerolog.Ctx(ctx).Error().Err(err).Msg("dashboard: load payments")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to load dashboard"})
		return
	}

	c.JSON(http.StatusOK, BuildDashboard(h.now(), grants, payments))
}
