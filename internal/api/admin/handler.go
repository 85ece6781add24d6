package admin

import (
	"errors"
	"net/http"
	"strconv"
	"strings"
	"time"

	"gpt-storefront/internal/domain/users"
	"gpt-storefront/internal/ledger"
	"gpt-storefront/internal/reconcile"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"
)

type AdminUser struct {
	ID               string    `json:"id"`
	Name             string    `json:"name"`
	Username         string    `json:"username"`
	Email            string    `json:"email"`
	Role             string    `json:"role"`
	AuthProvider     string    `json:"auth_provider"`
	StripeCustomerID *string   `json:"stripe_customer_id,omitempty"`
	CreatedAt        time.Time `json:"created_at"`
}

type AdminPayment struct {
	ID              string `json:"id"`
	Email           string `json:"email"`
	StripePaymentID string `json:"stripe_payment_id"`
	ProductID       string `json:"product_id"`
	Amount          string `json:"amount"`
	Currency        string `json:"currency"`
	Status          string `json:"status"`
	CreatedAt       string `json:"created_at"`
}

type Handler struct {
	store      *ledger.GormStore
	reconciler *reconcile.Service
}

func NewHandler(store *ledger.GormStore, rec *reconcile.Service) *Handler {
	return &Handler{store: store, reconciler: rec}
}

func toAdminUser(u users.User) AdminUser {
	return AdminUser{
		ID:               u.ID,
		Name:             u.Name,
		Username:         u.Username,
		Email:            u.Email,
		Role:             u.Role,
		AuthProvider:     u.AuthProvider,
		StripeCustomerID: u.StripeCustomerID,
		CreatedAt:        u.CreatedAt,
	}
}

func queryInt(c *gin.Context, key string, fallback, max int) int {
	n, err := strconv.Atoi(c.Query(key))
	if err != nil || n < 0 {
		return fallback
	}
	if max > 0 && n > max {
		return max
	}
	return n
}

func (h *Handler) ListAllUsers(c *gin.Context) {
	limit := queryInt(c, "limit", 50, 200)
	offset := queryInt(c, "offset", 0, 0)

	list, total, err := h.store.ListUsers(c.Request.Context(), limit, offset)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to load users"})
		return
	}

	adminUsers := make([]AdminUser, 0, len(list))
	for _, u := range list {
		adminUsers = append(adminUsers, toAdminUser(u))
	}

	c.JSON(http.StatusOK, gin.H{"users": adminUsers, "total": total, "limit": limit, "offset": offset})
}

// LookupUser finds one account by email, for support requests.
func (h *Handler) LookupUser(c *gin.Context) {
	email := strings.TrimSpace(c.Query("email"))
	if email == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "email is required"})
		return
	}
	u, err := h.store.UserByEmail(c.Request.Context(), email)
	if errors.Is(err, ledger.ErrNotFound) {
		c.JSON(http.StatusNotFound, gin.H{"error": "User not found"})
		return
	}
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to load user"})
		return
	}
	c.JSON(http.StatusOK, toAdminUser(*u))
}

func (h *Handler) ListAllPayments(c *gin.Context) {
	payments, err := h.store.ListAllPayments(c.Request.Context(), queryInt(c, "limit", 100, 500))
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to load payments"})
		return
	}

	result := make([]AdminPayment, 0, len(payments))
	for _, p := range payments {
		result = append(result, AdminPayment{
			ID:              p.ID,
			Email:           p.User.Email,
			StripePaymentID: p.StripePaymentID,
			ProductID:       p.ProductID,
			Amount:          p.Amount,
			Currency:        p.Currency,
			Status:          string(p.Status),
			CreatedAt:       p.CreatedAt.Format("2006-01-02 15:04"),
		})
	}

	c.JSON(http.StatusOK, result)
}

func (h *Handler) GetAdminStats(c *gin.Context) {
	stats, err := h.store.Stats(c.Request.Context())
	if err != nil {
		zerolog.Ctx(c.Request.Context()).Error().Err(err).Msg("admin stats")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to load stats"})
		return
	}
	c.JSON(http.StatusOK, stats)
}

func (h *Handler) GetUserDetails(c *gin.Context) {
	userID := c.Param("id")
	ctx := c.Request.Context()

	user, err := h.store.UserByID(ctx, userID)
	if err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "User not found"})
		return
	}

	payments, err := h.store.ListPayments(ctx, userID)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to fetch payments"})
		return
	}
	grants, err := h.store.ListAccess(ctx, userID)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to fetch access"})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"user":     toAdminUser(*user),
		"payments": payments,
		"access":   grants,
	})
}
