package users

import (
	"time"

	"gpt-storefront/internal/domain/access"
	"gpt-storefront/internal/domain/billing"
	"gpt-storefront/internal/domain/catalog"
	"gpt-storefront/internal/domain/users"
	"gpt-storefront/internal/infra/stripe"
)

func BuildUserDTO(u users.User) UserDTO {
	return UserDTO{
		ID:           u.ID,
		Email:        u.Email,
		Name:         u.Name,
		Username:     u.Username,
		Role:         u.Role,
		AuthProvider: u.AuthProvider,
		HasPassword:  u.HasPassword(),
		CreatedAt:    u.CreatedAt,
	}
}

func BuildPaymentDTOs(list []billing.Payment) []PaymentDTO {
	out := make([]PaymentDTO, 0, len(list))
	for _, p := range list {
		out = append(out, PaymentDTO{
			ID:              p.ID,
			StripePaymentID: p.StripePaymentID,
			ProductID:       p.ProductID,
			Amount:          p.Amount,
			Currency:        p.Currency,
			Status:          string(p.Status),
			Description:     p.Description,
			CreatedAt:       p.CreatedAt,
		})
	}
	return out
}

func BuildSubscriptionDTOs(list []billing.Subscription) []SubscriptionDTO {
	out := make([]SubscriptionDTO, 0, len(list))
	for _, s := range list {
		out = append(out, SubscriptionDTO{
			Status:               stripe.NormalizeSubscriptionStatus(s.Status),
			Plan:                 catalog.NormalizePlan(s.Plan),
			CurrentPeriodEnd:     s.CurrentPeriodEnd,
			StripeSubscriptionID: s.StripeSubscriptionID,
		})
	}
	return out
}

// BuildGrantDTOs names each grant from the catalog when the product is still
// sold, falling back to the stored model row.
func BuildGrantDTOs(now time.Time, list []access.GptAccess) []GrantDTO {
	out := make([]GrantDTO, 0, len(list))
	for i := range list {
		g := &list[i]
		name, icon := g.Model.Name, g.Model.Icon
		if p, ok := catalog.Resolve(g.ModelID); ok {
			name, icon = p.Name, p.Icon
		}
		out = append(out, GrantDTO{
			ProductID:      g.ModelID,
			ProductName:    name,
			Icon:           icon,
			State:          string(access.StateOf(now, g)),
			QueriesUsed:    g.QueriesUsed,
			ExpiresAt:      g.ExpiresAt,
			LastAccessedAt: g.LastAccessedAt,
			GrantedAt:      g.CreatedAt,
		})
	}
	return out
}

// BuildDashboard joins the catalog with the user's grants. A product counts as
// owned only while its grant is usable.
func BuildDashboard(now time.Time, grants []access.GptAccess, payments []billing.Payment) DashboardResponse {
	usable := map[string]bool{}
	total := 0
	for i := range grants {
		if access.Usable(now, &grants[i]) {
			usable[grants[i].ModelID] = true
		}
		total += grants[i].QueriesUsed
	}

	products := catalog.All()
	resp := DashboardResponse{
		CatalogVersion: catalog.Version,
		Products:       make([]DashboardProduct, 0, len(products)),
		Grants:         BuildGrantDTOs(now, grants),
		Payments:       BuildPaymentDTOs(payments),
	}
	for _, p := range products {
		owned := usable[p.ID]
		if owned {
			resp.Totals.Owned++
		} else {
			resp.Totals.Available++
		}
		resp.Products = append(resp.Products, DashboardProduct{
			ID:          p.ID,
			Name:        p.Name,
			Description: p.Description,
			Icon:        p.Icon,
			Price:       billing.FormatMinor(p.PriceMinor),
			PriceMinor:  p.PriceMinor,
			Currency:    p.Currency,
			Owned:       owned,
		})
	}
	resp.Totals.TotalUsage = total
	return resp
}
