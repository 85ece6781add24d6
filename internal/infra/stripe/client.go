package stripe

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	stripego "github.com/stripe/stripe-go/v75"
	"github.com/stripe/stripe-go/v75/client"
)

type Options struct {
	SecretKey string
	// Per-call deadline, applied on top of the HTTP client timeout.
	Timeout time.Duration
	// Network retries with stripe-go's exponential backoff.
	MaxRetries int64
	// Overrides the API base URL (tests, stripe-mock).
	BaseURL string
}

// Client implements Gateway on top of stripe-go.
type Client struct {
	api     *client.API
	timeout time.Duration
}

var _ Gateway = (*Client)(nil)

func NewClient(opts Options) *Client {
	if opts.Timeout <= 0 {
		opts.Timeout = 10 * time.Second
	}
	httpClient := &http.Client{Timeout: opts.Timeout}

	backendConfig := func() *stripego.BackendConfig {
		cfg := &stripego.BackendConfig{
			HTTPClient:        httpClient,
			MaxNetworkRetries: stripego.Int64(opts.MaxRetries),
			LeveledLogger:     &stripego.LeveledLogger{Level: stripego.LevelError},
		}
		if opts.BaseURL != "" {
			cfg.URL = stripego.String(opts.BaseURL)
		}
		return cfg
	}

	// Each backend gets its own config; GetBackendWithConfig fills in defaults
	// in place.
	backends := &stripego.Backends{
		API:     stripego.GetBackendWithConfig(stripego.APIBackend, backendConfig()),
		Connect: stripego.GetBackendWithConfig(stripego.ConnectBackend, backendConfig()),
		Uploads: stripego.GetBackendWithConfig(stripego.UploadsBackend, backendConfig()),
	}

	return &Client{
		api:     client.New(opts.SecretKey, backends),
		timeout: opts.Timeout,
	}
}

func (c *Client) CreatePaymentIntent(ctx context.Context, req IntentRequest) (*CreatedIntent, error) {
	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	params := &stripego.PaymentIntentParams{
		Amount:   stripego.Int64(req.AmountMinor),
		Currency: stripego.String(req.Currency),
		AutomaticPaymentMethods: &stripego.PaymentIntentAutomaticPaymentMethodsParams{
			Enabled: stripego.Bool(true),
		},
	}
	if req.CustomerID != "" {
		params.Customer = stripego.String(req.CustomerID)
	}
	if req.Description != "" {
		params.Description = stripego.String(req.Description)
	}
	for k, v := range req.Metadata.Map() {
		params.AddMetadata(k, v)
	}
	params.Context = ctx

	pi, err := c.api.PaymentIntents.New(params)
	if err != nil {
		return nil, wrapError("create payment intent", err)
	}
	return &CreatedIntent{ID: pi.ID, ClientSecret: pi.ClientSecret}, nil
}

func (c *Client) RetrievePaymentIntent(ctx context.Context, id string) (*IntentView, error) {
	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	params := &stripego.PaymentIntentParams{}
	params.Context = ctx

	pi, err := c.api.PaymentIntents.Get(id, params)
	if err != nil {
		if isResourceMissing(err) {
			return nil, fmt.Errorf("%w: %s", ErrIntentNotFound, id)
		}
		return nil, wrapError("retrieve payment intent", err)
	}
	return intentView(pi), nil
}

func (c *Client) CustomerExists(ctx context.Context, customerID string) (bool, error) {
	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	params := &stripego.CustomerParams{}
	params.Context = ctx

	cus, err := c.api.Customers.Get(customerID, params)
	if err != nil {
		if isResourceMissing(err) {
			return false, nil
		}
		return false, wrapError("retrieve customer", err)
	}
	return !cus.Deleted, nil
}

func (c *Client) CreateCustomer(ctx context.Context, info CustomerInfo) (string, error) {
	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	params := &stripego.CustomerParams{
		Email: stripego.String(info.Email),
	}
	if info.Name != "" {
		params.Name = stripego.String(info.Name)
	}
	params.AddMetadata(metadataKeyUserID, info.UserID)
	// A retried request for the same user must not create a second customer.
	params.SetIdempotencyKey("customer-" + info.UserID + "-" + info.Replaces)
	params.Context = ctx

	cus, err := c.api.Customers.New(params)
	if err != nil {
		return "", wrapError("create customer", err)
	}
	return cus.ID, nil
}

func intentView(pi *stripego.PaymentIntent) *IntentView {
	v := &IntentView{
		ID:          pi.ID,
		Status:      string(pi.Status),
		AmountMinor: pi.Amount,
		Currency:    string(pi.Currency),
		Metadata:    MetadataFromMap(pi.Metadata),
	}
	if pi.LastPaymentError != nil {
		v.FailureMessage = pi.LastPaymentError.Msg
	}
	return v
}

func isResourceMissing(err error) bool {
	var se *stripego.Error
	return errors.As(err, &se) && se.Code == stripego.ErrorCodeResourceMissing
}

func wrapError(op string, err error) error {
	var se *stripego.Error
	if errors.As(err, &se) {
		return &GatewayError{Op: op, Code: string(se.Code), StatusCode: se.HTTPStatusCode, Err: err}
	}
	return &GatewayError{Op: op, Err: err}
}
