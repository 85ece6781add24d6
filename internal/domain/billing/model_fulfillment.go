package billing

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// FulfillmentIssue records a payment that was captured and recorded but whose
// access grant could not be written. One open row per payment.
type FulfillmentIssue struct {
	ID              string     `gorm:"type:varchar(36);primaryKey" json:"id"`
	PaymentID       string     `gorm:"type:varchar(36);not null;uniqueIndex:idx_fulfillment_payment" json:"paymentId"`
	StripePaymentID string     `gorm:"not null;index" json:"stripePaymentId"`
	UserID          string     `gorm:"type:varchar(36);not null;index" json:"userId"`
	ProductID       string     `gorm:"type:varchar(64);not null" json:"productId"`
	LastError       string     `json:"lastError"`
	Attempts        int        `gorm:"not null;default:1" json:"attempts"`
	ResolvedAt      *time.Time `json:"resolvedAt,omitempty"`
	CreatedAt       time.Time  `json:"createdAt"`
	UpdatedAt       time.Time  `json:"updatedAt"`
}

func (f *FulfillmentIssue) BeforeCreate(tx *gorm.DB) error {
	if f.ID == "" {
		f.ID = uuid.NewString()
	}
	return nil
}

func (f FulfillmentIssue) Open() bool {
	return f.ResolvedAt == nil
}
