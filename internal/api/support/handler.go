package support

import (
	"context"
	"errors"
	"net/http"
	"strings"
	"unicode/utf8"

	"gpt-storefront/internal/infra/assistant"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"
)

const maxMessageRunes = 2000

type Assistant interface {
	Ask(ctx context.Context, message string) (*assistant.Reply, error)
}

type Handler struct {
	assistant Assistant
}

func NewHandler(a Assistant) *Handler {
	return &Handler{assistant: a}
}

// Chat answers a support question and tags it with a severity and category
// so that urgent billing problems can be picked out.
func (h *Handler) Chat(c *gin.Context) {
	var body struct {
		Message string `json:"message"`
	}
	if err := c.ShouldBindJSON(&body); err != nil || strings.TrimSpace(body.Message) == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "message is required"})
		return
	}
	if utf8.RuneCountInString(body.Message) > maxMessageRunes {
		c.JSON(http.StatusBadRequest, gin.H{"error": "message is too long"})
		return
	}

	ctx := c.Request.Context()
	reply, err := h.assistant.Ask(ctx, strings.TrimSpace(body.Message))
	if errors.Is(err, assistant.ErrNotConfigured) {
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "Support chat is not available"})
		return
	}
	if err != nil {
		zerolog.Ctx(ctx).Error().Err(err).Msg("support assistant failed")
		c.JSON(http.StatusBadGateway, gin.H{"error": "Support assistant unavailable, please try again"})
		return
	}

	zerolog.Ctx(ctx).Info().
		Str("user_id", c.GetString("user_id")).
		Str("severity", reply.Severity).
		Str("category", reply.Category).
		Msg("support question answered")

	c.JSON(http.StatusOK, reply)
}
