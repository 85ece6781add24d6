package billing

import (
	"time"

	"gpt-storefront/internal/domain/users"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

type PaymentStatus string

const (
	StatusSucceeded PaymentStatus = "succeeded"
	StatusFailed    PaymentStatus = "failed"
	StatusPending   PaymentStatus = "pending"
)

// Payment is the ledger entry for one provider payment intent. A row is
// written once per intent; the unique index on StripePaymentID is what makes
// reconciliation idempotent.
type Payment struct {
	ID              string     `gorm:"type:varchar(36);primaryKey" json:"id"`
	UserID          string     `gorm:"type:varchar(36);not null;index" json:"userId"`
	User            users.User `json:"-"`
	SubscriptionID  *string    `gorm:"type:varchar(36)" json:"subscriptionId,omitempty"`
	StripePaymentID string     `gorm:"column:stripe_payment_id;not null;uniqueIndex:idx_payments_stripe_payment_id" json:"stripePaymentId"`
	ProductID       string     `gorm:"type:varchar(64);not null;index" json:"productId"`
	// Decimal string in major units, e.g. "9.99".
	Amount      string        `gorm:"type:varchar(32);not null" json:"amount"`
	Currency    string        `gorm:"type:varchar(3);not null" json:"currency"`
	Status      PaymentStatus `gorm:"type:varchar(20);not null;index" json:"status"`
	Description string        `json:"description"`
	CreatedAt   time.Time     `json:"createdAt"`
}

func (p *Payment) BeforeCreate(tx *gorm.DB) error {
	if p.ID == "" {
		p.ID = uuid.NewString()
	}
	return nil
}

func (p Payment) Succeeded() bool {
	return p.Status == StatusSucceeded
}

// PurchaseDescription is the ledger description for a one-time purchase.
func PurchaseDescription(productName string) string {
	return "One-time purchase: " + productName
}
