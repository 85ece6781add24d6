package stripe

import (
	"encoding/json"
	"fmt"
	"strings"
	"time"

	stripego "github.com/stripe/stripe-go/v75"
	"github.com/stripe/stripe-go/v75/webhook"
)

// VerifyWebhookSignature checks the Stripe-Signature header against the
// endpoint secret and decodes the event. Any failure, including a missing
// secret, is ErrSignatureInvalid.
func (c *Client) VerifyWebhookSignature(payload []byte, header, secret string) (*Event, error) {
	return VerifyWebhookSignature(payload, header, secret)
}

func VerifyWebhookSignature(payload []byte, header, secret string) (*Event, error) {
	if strings.TrimSpace(secret) == "" {
		return nil, fmt.Errorf("%w: endpoint secret not configured", ErrSignatureInvalid)
	}
	if strings.TrimSpace(header) == "" {
		return nil, fmt.Errorf("%w: missing signature header", ErrSignatureInvalid)
	}

	ev, err := webhook.ConstructEventWithOptions(payload, header, secret, webhook.ConstructEventOptions{
		IgnoreAPIVersionMismatch: true,
	})
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrSignatureInvalid, err)
	}
	return decodeEvent(ev, payload)
}

func decodeEvent(ev stripego.Event, payload []byte) (*Event, error) {
	out := &Event{
		ID:      ev.ID,
		Type:    string(ev.Type),
		Created: time.Unix(ev.Created, 0).UTC(),
		Raw:     payload,
	}
	if ev.Data == nil {
		return out, nil
	}

	switch out.Type {
	case EventPaymentSucceeded, EventPaymentFailed:
		var pi stripego.PaymentIntent
		if err := json.Unmarshal(ev.Data.Raw, &pi); err != nil {
			return nil, fmt.Errorf("%w: payment intent: %v", ErrUnsupportedObject, err)
		}
		out.PaymentIntent = intentView(&pi)

	case EventSubscriptionCreated, EventSubscriptionUpdated, EventSubscriptionDeleted:
		var sub stripego.Subscription
		if err := json.Unmarshal(ev.Data.Raw, &sub); err != nil {
			return nil, fmt.Errorf("%w: subscription: %v", ErrUnsupportedObject, err)
		}
		out.Subscription = subscriptionView(&sub)
	}
	return out, nil
}

func subscriptionView(sub *stripego.Subscription) *SubscriptionView {
	v := &SubscriptionView{
		ID:     sub.ID,
		Status: string(sub.Status),
		UserID: sub.Metadata[metadataKeyUserID],
	}
	if sub.Customer != nil {
		v.CustomerID = sub.Customer.ID
	}
	if sub.Items != nil && len(sub.Items.Data) > 0 && sub.Items.Data[0].Price != nil {
		v.PriceID = sub.Items.Data[0].Price.ID
	}
	if sub.CurrentPeriodEnd > 0 {
		t := time.Unix(sub.CurrentPeriodEnd, 0).UTC()
		v.CurrentPeriodEnd = &t
	}
	return v
}
