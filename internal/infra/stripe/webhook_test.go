package stripe_test

import (
	"bytes"
	"testing"
	"time"

	"gpt-storefront/internal/infra/stripe"
	"gpt-storefront/internal/infra/stripe/stripetest"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const whsec = "whsec_test"

func succeededPayload() []byte {
	return stripetest.IntentEvent("evt_1", stripe.EventPaymentSucceeded, stripe.IntentView{
		ID:          "pi_1",
		Status:      "succeeded",
		AmountMinor: 999,
		Currency:    "usd",
		Metadata:    stripe.IntentMetadata{UserID: "u1", ProductID: "generador-sermones", ProductName: "Generador de Sermones"},
	})
}

func TestVerifyWebhookSignatureDecodesIntent(t *testing.T) {
	payload := succeededPayload()
	header := stripetest.SignatureHeader(payload, whsec, time.Now())

	ev, err := stripe.VerifyWebhookSignature(payload, header, whsec)
	require.NoError(t, err)
	assert.Equal(t, "evt_1", ev.ID)
	assert.Equal(t, stripe.EventPaymentSucceeded, ev.Type)
	require.NotNil(t, ev.PaymentIntent)
	assert.Equal(t, "pi_1", ev.PaymentIntent.ID)
	assert.Equal(t, int64(999), ev.PaymentIntent.AmountMinor)
	assert.Equal(t, "u1", ev.PaymentIntent.Metadata.UserID)
	assert.Nil(t, ev.Subscription)
}

func TestVerifyWebhookSignatureRejects(t *testing.T) {
	payload := succeededPayload()
	good := stripetest.SignatureHeader(payload, whsec, time.Now())

	cases := map[string]struct {
		payload []byte
		header  string
		secret  string
	}{
		"missing header":  {payload, "", whsec},
		"missing secret":  {payload, good, ""},
		"wrong secret":    {payload, stripetest.SignatureHeader(payload, "whsec_other", time.Now()), whsec},
		"tampered body":   {bytes.Replace(payload, []byte(`999`), []byte(`1`), 1), good, whsec},
		"stale timestamp": {payload, stripetest.SignatureHeader(payload, whsec, time.Now().Add(-time.Hour)), whsec},
		"garbage header":  {payload, "not-a-signature", whsec},
	}
	for name, tc := range cases {
		t.Run(name, func(t *testing.T) {
			_, err := stripe.VerifyWebhookSignature(tc.payload, tc.header, tc.secret)
			assert.ErrorIs(t, err, stripe.ErrSignatureInvalid)
		})
	}
}

func TestMetadataRoundTrip(t *testing.T) {
	md := stripe.IntentMetadata{UserID: "u1", ProductID: "p", ProductName: "P"}
	assert.Equal(t, md, stripe.MetadataFromMap(md.Map()))
	assert.True(t, md.Complete())
	assert.False(t, stripe.IntentMetadata{UserID: "u1"}.Complete())
}
