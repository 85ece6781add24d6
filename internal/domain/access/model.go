package access

import (
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// GptModel is the datastore side of a catalog product. The primary key is the
// catalog product id, so there is no name-based join between the two.
type GptModel struct {
	ID           string    `gorm:"type:varchar(64);primaryKey" json:"id"`
	Name         string    `gorm:"not null" json:"name"`
	Description  string    `json:"description"`
	Icon         string    `gorm:"type:varchar(64)" json:"icon"`
	RequiredPlan string    `gorm:"type:varchar(20);not null;default:'one_time'" json:"requiredPlan"`
	Active       bool      `gorm:"not null;default:true" json:"active"`
	CreatedAt    time.Time `json:"createdAt"`
	UpdatedAt    time.Time `json:"updatedAt"`
}

// GptAccess is a user's entitlement to one model. At most one row exists per
// (user, model) pair.
type GptAccess struct {
	ID             string     `gorm:"type:varchar(36);primaryKey" json:"id"`
	UserID         string     `gorm:"type:varchar(36);not null;uniqueIndex:idx_gpt_access_user_model,priority:1" json:"userId"`
	ModelID        string     `gorm:"type:varchar(64);not null;uniqueIndex:idx_gpt_access_user_model,priority:2" json:"modelId"`
	Model          GptModel   `gorm:"foreignKey:ModelID" json:"-"`
	PaymentID      *string    `gorm:"type:varchar(36);index" json:"paymentId,omitempty"`
	AccessToken    string     `gorm:"type:varchar(64);not null;uniqueIndex:idx_gpt_access_token" json:"-"`
	ExpiresAt      *time.Time `json:"expiresAt,omitempty"`
	QueriesUsed    int        `gorm:"not null;default:0" json:"queriesUsed"`
	LastAccessedAt *time.Time `json:"lastAccessedAt,omitempty"`
	CreatedAt      time.Time  `json:"createdAt"`
}

func (GptAccess) TableName() string {
	return "gpt_access"
}

func (a *GptAccess) BeforeCreate(tx *gorm.DB) error {
	if a.ID == "" {
		a.ID = uuid.NewString()
	}
	if a.AccessToken == "" {
		tok, err := NewAccessToken()
		if err != nil {
			return err
		}
		a.AccessToken = tok
	}
	return nil
}

// NewAccessToken returns 32 random bytes, hex encoded.
func NewAccessToken() (string, error) {
	b := make([]byte, 32)
	if _, err := rand.Read(b); err != nil {
		return "", fmt.Errorf("generate access token: %w", err)
	}
	return hex.EncodeToString(b), nil
}
