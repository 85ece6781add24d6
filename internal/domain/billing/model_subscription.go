package billing

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Subscription mirrors a recurring Stripe subscription. The one-time purchase
// flow never writes it; only customer.subscription.* webhooks do.
type Subscription struct {
	ID                   string     `gorm:"type:varchar(36);primaryKey" json:"id"`
	UserID               string     `gorm:"type:varchar(36);not null;index" json:"userId"`
	StripeSubscriptionID string     `gorm:"column:stripe_subscription_id;not null;uniqueIndex:idx_subscriptions_stripe_id" json:"stripeSubscriptionId"`
	Status               string     `gorm:"type:varchar(20);not null" json:"status"`
	Plan                 string     `gorm:"type:varchar(64)" json:"plan"`
	CurrentPeriodEnd     *time.Time `json:"currentPeriodEnd,omitempty"`
	CreatedAt            time.Time  `json:"createdAt"`
	UpdatedAt            time.Time  `json:"updatedAt"`
}

func (s *Subscription) BeforeCreate(tx *gorm.DB) error {
	if s.ID == "" {
		s.ID = uuid.NewString()
	}
	return nil
}
