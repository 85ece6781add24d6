// Package stripetest provides an in-memory Gateway and webhook signing for
// tests.
package stripetest

import (
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"strconv"
	"sync"
	"time"

	"gpt-storefront/internal/infra/stripe"
)

// SignatureHeader builds a Stripe-Signature header for payload at ts.
func SignatureHeader(payload []byte, secret string, ts time.Time) string {
	unix := strconv.FormatInt(ts.Unix(), 10)
	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write([]byte(unix))
	mac.Write([]byte("."))
	mac.Write(payload)
	return fmt.Sprintf("t=%s,v1=%s", unix, hex.EncodeToString(mac.Sum(nil)))
}

// IntentEvent renders a payment_intent.* event body the way Stripe sends it.
func IntentEvent(eventID, eventType string, in stripe.IntentView) []byte {
	body := map[string]any{
		"id":          eventID,
		"object":      "event",
		"type":        eventType,
		"created":     time.Now().Unix(),
		"api_version": "2023-08-16",
		"data": map[string]any{
			"object": map[string]any{
				"id":       in.ID,
				"object":   "payment_intent",
				"status":   in.Status,
				"amount":   in.AmountMinor,
				"currency": in.Currency,
				"metadata": in.Metadata.Map(),
			},
		},
	}
	b, _ := json.Marshal(body)
	return b
}

// Gateway is a concurrency-safe fake. Intents are seeded with AddIntent;
// errors injected per method take precedence.
type Gateway struct {
	mu        sync.Mutex
	intents   map[string]stripe.IntentView
	customers map[string]bool
	created   []stripe.IntentRequest
	seq       int

	RetrieveErr      error
	CreateErr        error
	CustomerErr      error
	RetrieveCalls    int
	CustomersCreated int
}

var _ stripe.Gateway = (*Gateway)(nil)

func NewGateway() *Gateway {
	return &Gateway{
		intents:   map[string]stripe.IntentView{},
		customers: map[string]bool{},
	}
}

func (g *Gateway) AddIntent(v stripe.IntentView) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.intents[v.ID] = v
}

func (g *Gateway) AddCustomer(id string) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.customers[id] = true
}

func (g *Gateway) Created() []stripe.IntentRequest {
	g.mu.Lock()
	defer g.mu.Unlock()
	out := make([]stripe.IntentRequest, len(g.created))
	copy(out, g.created)
	return out
}

func (g *Gateway) CreatePaymentIntent(ctx context.Context, req stripe.IntentRequest) (*stripe.CreatedIntent, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.CreateErr != nil {
		return nil, g.CreateErr
	}
	g.seq++
	id := fmt.Sprintf("pi_fake_%d", g.seq)
	g.created = append(g.created, req)
	g.intents[id] = stripe.IntentView{
		ID:          id,
		Status:      "requires_payment_method",
		AmountMinor: req.AmountMinor,
		Currency:    req.Currency,
		Metadata:    req.Metadata,
	}
	return &stripe.CreatedIntent{ID: id, ClientSecret: id + "_secret_fake"}, nil
}

func (g *Gateway) RetrievePaymentIntent(ctx context.Context, id string) (*stripe.IntentView, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.RetrieveCalls++
	if g.RetrieveErr != nil {
		return nil, g.RetrieveErr
	}
	v, ok := g.intents[id]
	if !ok {
		return nil, fmt.Errorf("%w: %s", stripe.ErrIntentNotFound, id)
	}
	return &v, nil
}

func (g *Gateway) VerifyWebhookSignature(payload []byte, header, secret string) (*stripe.Event, error) {
	return stripe.VerifyWebhookSignature(payload, header, secret)
}

func (g *Gateway) CustomerExists(ctx context.Context, customerID string) (bool, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.CustomerErr != nil {
		return false, g.CustomerErr
	}
	return g.customers[customerID], nil
}

func (g *Gateway) CreateCustomer(ctx context.Context, info stripe.CustomerInfo) (string, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.CustomerErr != nil {
		return "", g.CustomerErr
	}
	g.CustomersCreated++
	id := fmt.Sprintf("cus_fake_%d", g.CustomersCreated)
	g.customers[id] = true
	return id, nil
}
