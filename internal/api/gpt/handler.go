// Package gpt serves the two entry points to a purchased tool: the dashboard's
// "open this tool" call and the tool backend's own verification call. Both go
// through entitlement.Service.VerifyAndUse.
package gpt

import (
	"errors"
	"net/http"
	"strings"

	"gpt-storefront/internal/entitlement"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"
)

type Handler struct {
	entitlement *entitlement.Service
}

func NewHandler(ent *entitlement.Service) *Handler {
	return &Handler{entitlement: ent}
}

// AccessGPT returns the tool URL for a signed-in user and counts the use.
func (h *Handler) AccessGPT(c *gin.Context) {
	var body struct {
		ProductID string `json:"productId"`
	}
	if err := c.ShouldBindJSON(&body); err != nil || strings.TrimSpace(body.ProductID) == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Missing productId"})
		return
	}

	userID := c.GetString("user_id")
	if userID == "" {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "User not identified"})
		return
	}

	grant, err := h.entitlement.VerifyAndUse(c.Request.Context(), entitlement.Identity{UserID: userID}, body.ProductID)
	if err != nil {
		status := statusFor(err)
		if status == http.StatusInternalServerError {
			zerolog.Ctx(c.Request.Context()).Error().Err(err).Str("product_id", body.ProductID).Msg("access-gpt failed")
		}
		c.JSON(status, gin.H{"error": errorText(err)})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"gptUrl":      grant.ToolURL,
		"productName": grant.Product.Name,
		"totalUsage":  grant.QueriesUsed,
	})
}

// GptVerify is called by the external tool's backend with a user id or email
// and the tool name. Messages follow Accept-Language.
func (h *Handler) GptVerify(c *gin.Context) {
	lang := negotiate(c.GetHeader("Accept-Language"))

	var body struct {
		UserID  string `json:"userId"`
		Email   string `json:"email"`
		GptName string `json:"gptName"`
	}
	if err := c.ShouldBindJSON(&body); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"success": false, "message": localize(lang, msgMissingIdentity)})
		return
	}
	if strings.TrimSpace(body.GptName) == "" {
		c.JSON(http.StatusBadRequest, gin.H{"success": false, "message": localize(lang, msgMissingTool)})
		return
	}

	ctx := c.Request.Context()
	grant, err := h.entitlement.VerifyAndUse(ctx, entitlement.Identity{UserID: body.UserID, Email: body.Email}, body.GptName)
	if err != nil {
		status := statusFor(err)
		log := zerolog.Ctx(ctx).Warn()
		if status == http.StatusInternalServerError {
			log = zerolog.Ctx(ctx).Error()
		}
		log.Err(err).Str("gpt_name", body.GptName).Msg("gpt verification denied")
		c.JSON(status, gin.H{"success": false, "message": localize(lang, messageFor(err))})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"success":     true,
		"message":     localize(lang, msgGranted),
		"queriesUsed": grant.QueriesUsed,
		"gptUrl":      grant.ToolURL,
	})
}

func statusFor(err error) int {
	switch {
	case errors.Is(err, entitlement.ErrMissingIdentity):
		return http.StatusBadRequest
	case errors.Is(err, entitlement.ErrAccessDenied):
		return http.StatusForbidden
	case errors.Is(err, entitlement.ErrUserNotFound), errors.Is(err, entitlement.ErrProductNotFound):
		return http.StatusNotFound
	default:
		return http.StatusInternalServerError
	}
}

func messageFor(err error) messageKey {
	switch {
	case errors.Is(err, entitlement.ErrMissingIdentity):
		return msgMissingIdentity
	case errors.Is(err, entitlement.ErrAccessDenied):
		return msgDenied
	case errors.Is(err, entitlement.ErrUserNotFound):
		return msgUserNotFound
	case errors.Is(err, entitlement.ErrProductNotFound):
		return msgProductNotFound
	default:
		return msgInternal
	}
}

func errorText(err error) string {
	switch {
	case errors.Is(err, entitlement.ErrAccessDenied):
		return "You have not purchased this product"
	case errors.Is(err, entitlement.ErrProductNotFound):
		return "Product not found"
	case errors.Is(err, entitlement.ErrUserNotFound):
		return "User not found"
	default:
		return "Failed to verify access"
	}
}
