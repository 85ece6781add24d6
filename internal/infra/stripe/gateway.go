// Package stripe adapts the Stripe API to the storefront's payment flow.
package stripe

import (
	"context"
	"errors"
	"fmt"
	"time"
)

var (
	ErrIntentNotFound    = errors.New("payment intent not found")
	ErrCustomerNotFound  = errors.New("customer not found")
	ErrSignatureInvalid  = errors.New("webhook signature invalid")
	ErrUnsupportedObject = errors.New("unsupported event object")
)

const (
	EventPaymentSucceeded    = "payment_intent.succeeded"
	EventPaymentFailed       = "payment_intent.payment_failed"
	EventSubscriptionCreated = "customer.subscription.created"
	EventSubscriptionUpdated = "customer.subscription.updated"
	EventSubscriptionDeleted = "customer.subscription.deleted"
)

const IntentStatusSucceeded = "succeeded"

const (
	metadataKeyUserID      = "user_id"
	metadataKeyProductID   = "product_id"
	metadataKeyProductName = "product_name"
)

// Gateway is what the rest of the service needs from the payment provider.
type Gateway interface {
	CreatePaymentIntent(ctx context.Context, req IntentRequest) (*CreatedIntent, error)
	RetrievePaymentIntent(ctx context.Context, id string) (*IntentView, error)
	VerifyWebhookSignature(payload []byte, header, secret string) (*Event, error)
	CustomerGateway
}

type CustomerGateway interface {
	CustomerExists(ctx context.Context, customerID string) (bool, error)
	CreateCustomer(ctx context.Context, info CustomerInfo) (string, error)
}

// IntentMetadata is written onto every intent we create and read back during
// reconciliation. It is the only link from a provider intent to a user.
type IntentMetadata struct {
	UserID      string
	ProductID   string
	ProductName string
}

func (m IntentMetadata) Map() map[string]string {
	return map[string]string{
		metadataKeyUserID:      m.UserID,
		metadataKeyProductID:   m.ProductID,
		metadataKeyProductName: m.ProductName,
	}
}

func MetadataFromMap(md map[string]string) IntentMetadata {
	return IntentMetadata{
		UserID:      md[metadataKeyUserID],
		ProductID:   md[metadataKeyProductID],
		ProductName: md[metadataKeyProductName],
	}
}

func (m IntentMetadata) Complete() bool {
	return m.UserID != "" && m.ProductID != ""
}

type IntentRequest struct {
	CustomerID  string
	AmountMinor int64
	Currency    string
	Description string
	Metadata    IntentMetadata
}

type CreatedIntent struct {
	ID           string
	ClientSecret string
}

// IntentView is the provider's authoritative view of a payment intent.
type IntentView struct {
	ID             string
	Status         string
	AmountMinor    int64
	Currency       string
	Metadata       IntentMetadata
	FailureMessage string
}

func (v IntentView) Succeeded() bool {
	return v.Status == IntentStatusSucceeded
}

type CustomerInfo struct {
	UserID string
	Email  string
	Name   string
	// Stale customer id being replaced, if any.
	Replaces string
}

type SubscriptionView struct {
	ID               string
	CustomerID       string
	Status           string
	PriceID          string
	UserID           string
	CurrentPeriodEnd *time.Time
}

// Event is a verified webhook event with its object decoded for the types the
// service handles. Exactly one of PaymentIntent or Subscription is set for
// those types; both are nil otherwise.
type Event struct {
	ID            string
	Type          string
	Created       time.Time
	PaymentIntent *IntentView
	Subscription  *SubscriptionView
	Raw           []byte
}

// GatewayError is a provider failure other than "not found". Callers treat it
// as retryable and never show its details to clients.
type GatewayError struct {
	Op         string
	Code       string
	StatusCode int
	Err        error
}

func (e *GatewayError) Error() string {
	if e.Code != "" {
		return fmt.Sprintf("stripe %s: %s (%d): %v", e.Op, e.Code, e.StatusCode, e.Err)
	}
	return fmt.Sprintf("stripe %s: %v", e.Op, e.Err)
}

func (e *GatewayError) Unwrap() error { return e.Err }
