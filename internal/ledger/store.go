// Package ledger persists users, payments and access grants. Uniqueness is
// enforced by the database; callers learn about it through ErrDuplicatePayment
// and ErrDuplicateAccess.
package ledger

import (
	"errors"

	"gorm.io/gorm"
)

var (
	ErrNotFound         = errors.New("record not found")
	ErrDuplicatePayment = errors.New("payment already recorded")
	ErrDuplicateAccess  = errors.New("access already granted")
	ErrDuplicateUser    = errors.New("email or username already in use")
)

func isDuplicate(err error) bool {
	return errors.Is(err, gorm.ErrDuplicatedKey)
}

func notFound(err error) error {
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return ErrNotFound
	}
	return err
}

// SyncReport describes what SyncModels changed.
type SyncReport struct {
	Created     []string `json:"created"`
	Updated     []string `json:"updated"`
	Deactivated []string `json:"deactivated"`
}

type Stats struct {
	Users             int64             `json:"users"`
	Payments          int64             `json:"payments"`
	SucceededPayments int64             `json:"succeededPayments"`
	FailedPayments    int64             `json:"failedPayments"`
	Revenue           map[string]string `json:"revenue"`
	GrantsByProduct   map[string]int64  `json:"grantsByProduct"`
	OpenFulfillment   int64             `json:"openFulfillment"`
}
