package products

import (
	"net/http"

	"gpt-storefront/internal/domain/billing"
	"gpt-storefront/internal/domain/catalog"
	"gpt-storefront/internal/ledger"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"
)

type ProductView struct {
	ID          string `json:"id"`
	Name        string `json:"name"`
	Description string `json:"description"`
	Icon        string `json:"icon"`
	Plan        string `json:"plan"`
	Currency    string `json:"currency"`
	PriceMinor  int64  `json:"priceMinor"`
	Price       string `json:"price"` // major units, e.g. "9.99"
}

func NewProductView(p catalog.Product) ProductView {
	return ProductView{
		ID:          p.ID,
		Name:        p.Name,
		Description: p.Description,
		Icon:        p.Icon,
		Plan:        p.Plan,
		Currency:    p.Currency,
		PriceMinor:  p.PriceMinor,
		Price:       billing.FormatMinor(p.PriceMinor),
	}
}

// ListProducts serves the public catalog. Tool URLs are never exposed here.
func ListProducts(c *gin.Context) {
	all := catalog.All()
	out := make([]ProductView, 0, len(all))
	for _, p := range all {
		out = append(out, NewProductView(p))
	}
	c.JSON(http.StatusOK, gin.H{"version": catalog.Version, "products": out})
}

type Handler struct {
	store *ledger.GormStore
}

func NewHandler(store *ledger.GormStore) *Handler {
	return &Handler{store: store}
}

// SyncProducts writes the catalog into gpt_models: new products are created,
// changed ones updated, and models no longer sold are deactivated.
func (h *Handler) SyncProducts(c *gin.Context) {
	ctx := c.Request.Context()
	report, err := h.store.SyncModels(ctx, catalog.All())
	if err != nil {
		zerolog.Ctx(ctx).Error().Err(err).Msg("sync products")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to sync products", "details": err.Error()})
		return
	}

	zerolog.Ctx(ctx).Info().
		Int("created", len(report.Created)).
		Int("updated", len(report.Updated)).
		Int("deactivated", len(report.Deactivated)).
		Str("catalog_version", catalog.Version).
		Msg("products synced")

	c.JSON(http.StatusOK, gin.H{
		"version":     catalog.Version,
		"created":     report.Created,
		"updated":     report.Updated,
		"deactivated": report.Deactivated,
	})
}

// ListModels shows the stored model rows, including inactive ones.
func (h *Handler) ListModels(c *gin.Context) {
	models, err := h.store.ListModels(c.Request.Context())
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to load models"})
		return
	}
	c.JSON(http.StatusOK, models)
}
