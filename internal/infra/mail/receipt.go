package mail

import (
	"context"
	"strings"
	"time"

	"gpt-storefront/internal/domain/billing"
	"gpt-storefront/internal/domain/catalog"
	"gpt-storefront/internal/domain/users"

	"github.com/rs/zerolog"
)

type UserLookup interface {
	UserByID(ctx context.Context, id string) (*users.User, error)
}

// ReceiptNotifier emails a receipt after a purchase is granted. Sending runs
// in the background so a slow SMTP server never holds up the payment
// response.
type ReceiptNotifier struct {
	users        UserLookup
	mailer       Mailer
	dashboardURL string
	timeout      time.Duration
	async        bool
}

func NewReceiptNotifier(u UserLookup, m Mailer, appURL string) *ReceiptNotifier {
	return &ReceiptNotifier{
		users:        u,
		mailer:       m,
		dashboardURL: strings.TrimRight(appURL, "/") + "/dashboard",
		timeout:      30 * time.Second,
		async:        true,
	}
}

func (n *ReceiptNotifier) PurchaseCompleted(ctx context.Context, p billing.Payment, product catalog.Product) {
	ctx = context.WithoutCancel(ctx)
	if !n.async {
		n.send(ctx, p, product)
		return
	}
	go n.send(ctx, p, product)
}

func (n *ReceiptNotifier) send(ctx context.Context, p billing.Payment, product catalog.Product) {
	ctx, cancel := context.WithTimeout(ctx, n.timeout)
	defer cancel()
	log := zerolog.Ctx(ctx).With().Str("payment_id", p.ID).Str("user_id", p.UserID).Logger()

	u, err := n.users.UserByID(ctx, p.UserID)
	if err != nil {
		log.Error().Err(err).Msg("receipt: user lookup failed")
		return
	}

	msg, err := ReceiptMessage(u.Email, ReceiptData{
		Name:         firstNonEmpty(u.Name, u.Username),
		Product:      product.Name,
		Amount:       p.Amount,
		Currency:     strings.ToUpper(p.Currency),
		Reference:    p.StripePaymentID,
		DashboardURL: n.dashboardURL,
	})
	if err != nil {
		log.Error().Err(err).Msg("receipt: render failed")
		return
	}
	if err := n.mailer.Send(ctx, msg); err != nil {
		log.Error().Err(err).Msg("receipt: send failed")
		return
	}
	log.Info().Msg("receipt sent")
}

func firstNonEmpty(s ...string) string {
	for _, v := range s {
		if v != "" {
			return v
		}
	}
	return ""
}
