package billing

import (
	"net/http"

	"github.com/gin-gonic/gin"
)

// ConfirmPayment is called by the browser once the card step reports success.
// The reconciler re-reads the intent from Stripe before recording anything.
func (h *Handler) ConfirmPayment(c *gin.Context) {
	var body struct {
		PaymentIntentID string `json:"paymentIntentId"`
	}
	if err := c.ShouldBindJSON(&body); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid body", "reason": "missing_payment_intent"})
		return
	}

	userID := c.GetString("user_id")
	if userID == "" {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "User not identified"})
		return
	}

	outcome, err := h.reconciler.ConfirmClientSidePayment(c.Request.Context(), body.PaymentIntentID, userID)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"success": true, "status": outcome})
}
