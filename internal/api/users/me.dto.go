package users

import "time"

type MeResponse struct {
	User    UserDTO    `json:"user"`
	Billing BillingDTO `json:"billing"`
	Access  AccessDTO  `json:"access"`
}

/* ---------- USER ---------- */

type UserDTO struct {
	ID           string    `json:"id"`
	Email        string    `json:"email"`
	Name         string    `json:"name"`
	Username     string    `json:"username"`
	Role         string    `json:"role"`
	AuthProvider string    `json:"authProvider"`
	HasPassword  bool      `json:"hasPassword"`
	CreatedAt    time.Time `json:"createdAt"`
}

/* ---------- BILLING ---------- */

type BillingDTO struct {
	HasCustomer   bool              `json:"hasCustomer"`
	Payments      []PaymentDTO      `json:"payments"`
	Subscriptions []SubscriptionDTO `json:"subscriptions"`
}

type PaymentDTO struct {
	ID              string    `json:"id"`
	StripePaymentID string    `json:"stripePaymentId"`
	ProductID       string    `json:"productId"`
	Amount          string    `json:"amount"`
	Currency        string    `json:"currency"`
	Status          string    `json:"status"`
	Description     string    `json:"description"`
	CreatedAt       time.Time `json:"createdAt"`
}

type SubscriptionDTO struct {
	Status               string     `json:"status"`
	Plan                 string     `json:"plan"`
	CurrentPeriodEnd     *time.Time `json:"currentPeriodEnd"`
	StripeSubscriptionID string     `json:"stripeSubscriptionId"`
}

/* ---------- ACCESS ---------- */

type AccessDTO struct {
	Grants []GrantDTO `json:"grants"`
}

type GrantDTO struct {
	ProductID      string     `json:"productId"`
	ProductName    string     `json:"productName"`
	Icon           string     `json:"icon"`
	State          string     `json:"state"` // active|expired
	QueriesUsed    int        `json:"queriesUsed"`
	ExpiresAt      *time.Time `json:"expiresAt"`
	LastAccessedAt *time.Time `json:"lastAccessedAt"`
	GrantedAt      time.Time  `json:"grantedAt"`
}

/* ---------- DASHBOARD ---------- */

type DashboardResponse struct {
	CatalogVersion string             `json:"catalogVersion"`
	Products       []DashboardProduct `json:"products"`
	Grants         []GrantDTO         `json:"grants"`
	Payments       []PaymentDTO       `json:"payments"`
	Totals         DashboardTotalsDTO `json:"totals"`
}

type DashboardProduct struct {
	ID          string `json:"id"`
	Name        string `json:"name"`
	Description string `json:"description"`
	Icon        string `json:"icon"`
	Price       string `json:"price"`
	PriceMinor  int64  `json:"priceMinor"`
	Currency    string `json:"currency"`
	Owned       bool   `json:"owned"`
}

type DashboardTotalsDTO struct {
	Owned      int `json:"owned"`
	Available  int `json:"available"`
	TotalUsage int `json:"totalUsage"`
}
