// Package entitlement answers "may this user use this tool right now" and
// counts each use.
package entitlement

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"gpt-storefront/internal/domain/access"
	"gpt-storefront/internal/domain/catalog"
	"gpt-storefront/internal/domain/users"
	"gpt-storefront/internal/ledger"
)

var (
	ErrMissingIdentity = errors.New("user id or email is required")
	ErrUserNotFound    = errors.New("user not found")
	ErrProductNotFound = errors.New("product not found")
	ErrAccessDenied    = errors.New("no active access to this product")
)

type Ledger interface {
	UserByID(ctx context.Context, id string) (*users.User, error)
	UserByEmail(ctx context.Context, email string) (*users.User, error)
	ModelByID(ctx context.Context, id string) (*access.GptModel, error)
	AccessFor(ctx context.Context, userID, modelID string) (*access.GptAccess, error)
	RecordUsage(ctx context.Context, accessID string, at time.Time) (int, error)
}

// Identity names a user by id or, for the external tool's backend, by email.
type Identity struct {
	UserID string
	Email  string
}

type Grant struct {
	UserID      string
	Product     catalog.Product
	ToolURL     string
	QueriesUsed int
	UsedAt      time.Time
}

type Service struct {
	ledger Ledger
	now    func() time.Time
}

func NewService(l Ledger) *Service {
	return &Service{
		ledger: l,
		now:    func() time.Time { return time.Now().UTC() },
	}
}

// VerifyAndUse checks the grant and, when it is usable, records one use.
// Nothing is written when any check fails.
func (s *Service) VerifyAndUse(ctx context.Context, id Identity, tool string) (*Grant, error) {
	user, err := s.resolveUser(ctx, id)
	if err != nil {
		return nil, err
	}

	product, model, err := s.resolveProduct(ctx, tool)
	if err != nil {
		return nil, err
	}

	now := s.now()
	grant, err := s.ledger.AccessFor(ctx, user.ID, model.ID)
	if errors.Is(err, ledger.ErrNotFound) {
		return nil, ErrAccessDenied
	}
	if err != nil {
		return nil, fmt.Errorf("load access: %w", err)
	}
	if !access.Usable(now, grant) {
		return nil, fmt.Errorf("%w: expired", ErrAccessDenied)
	}

	used, err := s.ledger.RecordUsage(ctx, grant.ID, now)
	if err != nil {
		return nil, fmt.Errorf("record usage: %w", err)
	}

	return &Grant{
		UserID:      user.ID,
		Product:     product,
		ToolURL:     product.ToolURL,
		QueriesUsed: used,
		UsedAt:      now,
	}, nil
}

// Owns reports whether the user holds a usable grant for the product.
func (s *Service) Owns(ctx context.Context, userID, productID string) (bool, error) {
	grant, err := s.ledger.AccessFor(ctx, userID, productID)
	if errors.Is(err, ledger.ErrNotFound) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return access.Usable(s.now(), grant), nil
}

func (s *Service) resolveUser(ctx context.Context, id Identity) (*users.User, error) {
	var (
		user *users.User
		err  error
	)
	switch {
	case strings.TrimSpace(id.UserID) != "":
		user, err = s.ledger.UserByID(ctx, strings.TrimSpace(id.UserID))
	case strings.TrimSpace(id.Email) != "":
		user, err = s.ledger.UserByEmail(ctx, id.Email)
	default:
		return nil, ErrMissingIdentity
	}
	if errors.Is(err, ledger.ErrNotFound) {
		return nil, ErrUserNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("load user: %w", err)
	}
	return user, nil
}

func (s *Service) resolveProduct(ctx context.Context, tool string) (catalog.Product, *access.GptModel, error) {
	product, ok := catalog.ResolveTool(tool)
	if !ok {
		return catalog.Product{}, nil, ErrProductNotFound
	}
	model, err := s.ledger.ModelByID(ctx, product.ID)
	if errors.Is(err, ledger.ErrNotFound) {
		return catalog.Product{}, nil, ErrProductNotFound
	}
	if err != nil {
		return catalog.Product{}, nil, fmt.Errorf("load model: %w", err)
	}
	return product, model, nil
}
