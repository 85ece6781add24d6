package ledger

import (
	"context"
	"fmt"
	"strings"
	"time"

	"gpt-storefront/internal/domain/users"
)

// --- accounts ---

// CreateUser inserts a new account. Emails are stored lowercased.
func (s *GormStore) CreateUser(ctx context.Context, u *users.User) error {
	u.Email = strings.ToLower(strings.TrimSpace(u.Email))
	err := s.db.WithContext(ctx).Create(u).Error
	if isDuplicate(err) {
		return fmt.Errorf("%w: %s", ErrDuplicateUser, u.Email)
	}
	return err
}

func (s *GormStore) UsernameTaken(ctx context.Context, username string) (bool, error) {
	var n int64
	err := s.db.WithContext(ctx).Model(&users.User{}).Where("username = ?", username).Count(&n).Error
	return n > 0, err
}

func (s *GormStore) UserByGoogleSub(ctx context.Context, sub string) (*users.User, error) {
	var u users.User
	if err := s.db.WithContext(ctx).Where("google_sub = ?", sub).First(&u).Error; err != nil {
		return nil, notFound(err)
	}
	return &u, nil
}

// LinkGoogle attaches a Google subject to an existing account that has none.
func (s *GormStore) LinkGoogle(ctx context.Context, userID, sub string) error {
	res := s.db.WithContext(ctx).Model(&users.User{}).
		Where("id = ? AND google_sub IS NULL", userID).
		Updates(map[string]interface{}{"google_sub": sub})
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}

func (s *GormStore) SetPasswordHash(ctx context.Context, userID, hash string) error {
	res := s.db.WithContext(ctx).Model(&users.User{}).
		Where("id = ?", userID).
		Update("password_hash", hash)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}

// SetResetToken stores a password reset token, replacing any earlier one.
func (s *GormStore) SetResetToken(ctx context.Context, userID, token string, expiresAt time.Time) error {
	return s.db.WithContext(ctx).Model(&users.User{}).
		Where("id = ?", userID).
		Updates(map[string]interface{}{
			"reset_token":            token,
			"reset_token_expires_at": expiresAt,
		}).Error
}

// ConsumeResetToken sets a new password hash if the token is current and
// clears it in the same statement, so a token works once. It reports false
// for unknown, used or expired tokens.
func (s *GormStore) ConsumeResetToken(ctx context.Context, token, hash string, now time.Time) (bool, error) {
	if token == "" {
		return false, nil
	}
	res := s.db.WithContext(ctx).Model(&users.User{}).
		Where("reset_token = ? AND reset_token_expires_at > ?", token, now).
		Updates(map[string]interface{}{
			"password_hash":          hash,
			"reset_token":            nil,
			"reset_token_expires_at": nil,
		})
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected == 1, nil
}
