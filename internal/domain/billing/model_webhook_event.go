package billing

import (
	"time"

	"gorm.io/datatypes"
)

// WebhookEvent is the audit row for a verified provider event. ProcessedAt is
// only set once handling succeeded, so a redelivery after a failure is
// processed again.
type WebhookEvent struct {
	ID              uint           `gorm:"primaryKey" json:"id"`
	EventID         string         `gorm:"not null;uniqueIndex:idx_webhook_events_event_id" json:"eventId"`
	Type            string         `gorm:"type:varchar(100);not null;index" json:"type"`
	Payload         datatypes.JSON `json:"payload"`
	Deliveries      int            `gorm:"not null;default:1" json:"deliveries"`
	ProcessedAt     *time.Time     `json:"processedAt,omitempty"`
	ProcessingError *string        `json:"processingError,omitempty"`
	CreatedAt       time.Time      `json:"createdAt"`
	UpdatedAt       time.Time      `json:"updatedAt"`
}

func (WebhookEvent) TableName() string {
	return "stripe_webhook_events"
}
