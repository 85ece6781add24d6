package mail

import (
	"context"
	"errors"
	"net/smtp"
	"strings"
	"sync"
	"testing"

	"gpt-storefront/internal/domain/billing"
	"gpt-storefront/internal/domain/catalog"
	"gpt-storefront/internal/domain/users"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSMTPMailerRendersHeaders(t *testing.T) {
	m := NewSMTPMailer("smtp.example.com", "587", "shop@example.com", "pw")
	var (
		gotAddr string
		gotTo   []string
		gotMsg  string
	)
	m.send = func(addr string, a smtp.Auth, from string, to []string, msg []byte) error {
		gotAddr, gotTo, gotMsg = addr, to, string(msg)
		return nil
	}

	require.NoError(t, m.Send(context.Background(), Message{To: "u1@example.com", Subject: "Hi", Body: "Body"}))
	assert.Equal(t, "smtp.example.com:587", gotAddr)
	assert.Equal(t, []string{"u1@example.com"}, gotTo)
	assert.True(t, strings.HasPrefix(gotMsg, "Subject: Hi\r\nFrom: shop@example.com\r\nTo: u1@example.com\r\n"))
	assert.Contains(t, gotMsg, "\r\n\r\nBody\r\n")
}

func TestSMTPMailerWrapsErrors(t *testing.T) {
	m := NewSMTPMailer("smtp.example.com", "587", "shop@example.com", "pw")
	boom := errors.New("connection refused")
	m.send = func(string, smtp.Auth, string, []string, []byte) error { return boom }

	err := m.Send(context.Background(), Message{To: "u1@example.com"})
	assert.ErrorIs(t, err, boom)
}

func TestPasswordResetMessage(t *testing.T) {
	msg, err := PasswordResetMessage("u1@example.com", ResetData{Name: "Ana", Link: "https://app/reset?token=abc"})
	require.NoError(t, err)
	assert.Equal(t, "u1@example.com", msg.To)
	assert.Contains(t, msg.Body, "Hola Ana")
	assert.Contains(t, msg.Body, "https://app/reset?token=abc")
}

type memMailer struct {
	mu   sync.Mutex
	sent []Message
}

func (m *memMailer) Send(ctx context.Context, msg Message) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.sent = append(m.sent, msg)
	return nil
}

type lookup map[string]*users.User

func (l lookup) UserByID(ctx context.Context, id string) (*users.User, error) {
	if u, ok := l[id]; ok {
		return u, nil
	}
	return nil, errors.New("not found")
}

func TestReceiptNotifier(t *testing.T) {
	mailer := &memMailer{}
	n := NewReceiptNotifier(lookup{"u1": {ID: "u1", Email: "u1@example.com", Username: "ana"}}, mailer, "https://shop.example.com/")
	n.async = false

	product, _ := catalog.Resolve("generador-sermones")
	n.PurchaseCompleted(context.Background(), billing.Payment{
		ID: "pay-1", UserID: "u1", StripePaymentID: "pi_1", Amount: "9.99", Currency: "usd",
	}, product)

	require.Len(t, mailer.sent, 1)
	msg := mailer.sent[0]
	assert.Equal(t, "u1@example.com", msg.To)
	assert.Equal(t, "Tu compra: Generador de Sermones", msg.Subject)
	assert.Contains(t, msg.Body, "Hola ana")
	assert.Contains(t, msg.Body, "9.99 USD")
	assert.Contains(t, msg.Body, "pi_1")
	assert.Contains(t, msg.Body, "https://shop.example.com/dashboard")

	n.PurchaseCompleted(context.Background(), billing.Payment{ID: "pay-2", UserID: "ghost"}, product)
	assert.Len(t, mailer.sent, 1)
}
