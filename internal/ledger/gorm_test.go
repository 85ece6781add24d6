package ledger_test

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"gpt-storefront/internal/domain/access"
	"gpt-storefront/internal/domain/billing"
	"gpt-storefront/internal/domain/catalog"
	"gpt-storefront/internal/ledger"
	"gpt-storefront/internal/ledger/ledgertest"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/datatypes"
)

var ctx = context.Background()

func payment(userID, intentID string, status billing.PaymentStatus) *billing.Payment {
	return &billing.Payment{
		UserID:          userID,
		StripePaymentID: intentID,
		ProductID:       "generador-sermones",
		Amount:          "9.99",
		Currency:        "usd",
		Status:          status,
		Description:     billing.PurchaseDescription("Generador de Sermones"),
	}
}

func TestSyncModelsSeedsCatalog(t *testing.T) {
	store := ledger.NewGormStore(ledgertest.NewDB(t))

	report, err := store.SyncModels(ctx, catalog.All())
	require.NoError(t, err)
	assert.Len(t, report.Created, len(catalog.All()))

	m, err := store.ModelByID(ctx, "generador-sermones")
	require.NoError(t, err)
	assert.Equal(t, "Generador de Sermones", m.Name)
	assert.True(t, m.Active)

	again, err := store.SyncModels(ctx, catalog.All())
	require.NoError(t, err)
	assert.Empty(t, again.Created)
	assert.Empty(t, again.Updated)
}

func TestSyncModelsUpdatesAndDeactivates(t *testing.T) {
	store := ledgertest.NewStore(t)
	db := store.DB()

	require.NoError(t, db.Model(&access.GptModel{}).Where("id = ?", "devocional-diario").Update("name", "Old name").Error)
	require.NoError(t, db.Create(&access.GptModel{ID: "retired-tool", Name: "Retired", Active: true}).Error)

	report, err := store.SyncModels(ctx, catalog.All())
	require.NoError(t, err)
	assert.Equal(t, []string{"devocional-diario"}, report.Updated)
	assert.Equal(t, []string{"retired-tool"}, report.Deactivated)

	m, err := store.ModelByID(ctx, "retired-tool")
	require.NoError(t, err)
	assert.False(t, m.Active)
}

func TestCreatePaymentIsUniquePerIntent(t *testing.T) {
	store := ledgertest.NewStore(t)
	ledgertest.CreateUser(t, store.DB(), "u1", "u1@example.com")

	require.NoError(t, store.CreatePayment(ctx, payment("u1", "pi_1", billing.StatusSucceeded)))

	err := store.CreatePayment(ctx, payment("u1", "pi_1", billing.StatusSucceeded))
	require.Error(t, err)
	assert.ErrorIs(t, err, ledger.ErrDuplicatePayment)

	got, err := store.PaymentByStripeID(ctx, "pi_1")
	require.NoError(t, err)
	assert.Equal(t, "9.99", got.Amount)
	assert.Equal(t, billing.StatusSucceeded, got.Status)

	_, err = store.PaymentByStripeID(ctx, "pi_missing")
	assert.ErrorIs(t, err, ledger.ErrNotFound)
}

func TestPromotePayment(t *testing.T) {
	store := ledgertest.NewStore(t)
	ledgertest.CreateUser(t, store.DB(), "u1", "u1@example.com")
	require.NoError(t, store.CreatePayment(ctx, payment("u1", "pi_1", billing.StatusFailed)))

	won, err := store.PromotePayment(ctx, "pi_1", "9.99", "usd", "One-time purchase: Generador de Sermones")
	require.NoError(t, err)
	assert.True(t, won)

	won, err = store.PromotePayment(ctx, "pi_1", "9.99", "usd", "x")
	require.NoError(t, err)
	assert.False(t, won, "already succeeded")

	got, err := store.PaymentByStripeID(ctx, "pi_1")
	require.NoError(t, err)
	assert.Equal(t, billing.StatusSucceeded, got.Status)
}

func TestCreateAccessIsUniquePerUserAndModel(t *testing.T) {
	store := ledgertest.NewStore(t)
	ledgertest.CreateUser(t, store.DB(), "u1", "u1@example.com")

	first := &access.GptAccess{UserID: "u1", ModelID: "generador-sermones"}
	require.NoError(t, store.CreateAccess(ctx, first))
	assert.Len(t, first.AccessToken, 64)

	err := store.CreateAccess(ctx, &access.GptAccess{UserID: "u1", ModelID: "generador-sermones"})
	assert.ErrorIs(t, err, ledger.ErrDuplicateAccess)

	require.NoError(t, store.CreateAccess(ctx, &access.GptAccess{UserID: "u1", ModelID: "estudio-biblico"}))

	list, err := store.ListAccess(ctx, "u1")
	require.NoError(t, err)
	require.Len(t, list, 2)
	assert.Equal(t, "Generador de Sermones", list[0].Model.Name)
}

func TestRenewAccess(t *testing.T) {
	store := ledgertest.NewStore(t)
	ledgertest.CreateUser(t, store.DB(), "u1", "u1@example.com")

	expired := time.Now().Add(-time.Hour)
	grant := &access.GptAccess{UserID: "u1", ModelID: "generador-sermones", ExpiresAt: &expired}
	require.NoError(t, store.CreateAccess(ctx, grant))

	p := payment("u1", "pi_2", billing.StatusSucceeded)
	require.NoError(t, store.CreatePayment(ctx, p))
	require.NoError(t, store.RenewAccess(ctx, grant.ID, p.ID))

	got, err := store.AccessFor(ctx, "u1", "generador-sermones")
	require.NoError(t, err)
	assert.Nil(t, got.ExpiresAt)
	require.NotNil(t, got.PaymentID)
	assert.Equal(t, p.ID, *got.PaymentID)

	assert.ErrorIs(t, store.RenewAccess(ctx, "missing", p.ID), ledger.ErrNotFound)
}

func TestRecordUsageIncrements(t *testing.T) {
	store := ledgertest.NewStore(t)
	ledgertest.CreateUser(t, store.DB(), "u1", "u1@example.com")
	grant := &access.GptAccess{UserID: "u1", ModelID: "generador-sermones"}
	require.NoError(t, store.CreateAccess(ctx, grant))

	now := time.Now().UTC()
	var wg sync.WaitGroup
	for i := 0; i < 10; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := store.RecordUsage(ctx, grant.ID, now)
			assert.NoError(t, err)
		}()
	}
	wg.Wait()

	n, err := store.RecordUsage(ctx, grant.ID, now)
	require.NoError(t, err)
	assert.Equal(t, 11, n)

	got, err := store.AccessFor(ctx, "u1", "generador-sermones")
	require.NoError(t, err)
	assert.Equal(t, 11, got.QueriesUsed)
	require.NotNil(t, got.LastAccessedAt)

	_, err = store.RecordUsage(ctx, "missing", now)
	assert.ErrorIs(t, err, ledger.ErrNotFound)
}

func TestFulfillmentQueue(t *testing.T) {
	store := ledgertest.NewStore(t)

	issue := &billing.FulfillmentIssue{
		PaymentID:       "pay-1",
		StripePaymentID: "pi_1",
		UserID:          "u1",
		ProductID:       "generador-sermones",
		LastError:       "first",
	}
	require.NoError(t, store.EnqueueFulfillment(ctx, issue))
	require.NoError(t, store.EnqueueFulfillment(ctx, &billing.FulfillmentIssue{
		PaymentID:       "pay-1",
		StripePaymentID: "pi_1",
		UserID:          "u1",
		ProductID:       "generador-sermones",
		LastError:       "second",
	}))

	open, err := store.ListFulfillment(ctx, true)
	require.NoError(t, err)
	require.Len(t, open, 1)
	assert.Equal(t, 2, open[0].Attempts)
	assert.Equal(t, "second", open[0].LastError)

	byID, err := store.FulfillmentByID(ctx, open[0].ID)
	require.NoError(t, err)
	assert.Equal(t, "pi_1", byID.StripePaymentID)

	require.NoError(t, store.ResolveFulfillment(ctx, "pay-1", time.Now().UTC()))
	open, err = store.ListFulfillment(ctx, true)
	require.NoError(t, err)
	assert.Empty(t, open)

	all, err := store.ListFulfillment(ctx, false)
	require.NoError(t, err)
	require.Len(t, all, 1)
	assert.False(t, all[0].Open())
}

func TestWebhookEventLifecycle(t *testing.T) {
	store := ledgertest.NewStore(t)
	ev := func() *billing.WebhookEvent {
		return &billing.WebhookEvent{
			EventID: "evt_1",
			Type:    "payment_intent.succeeded",
			Payload: datatypes.JSON(`{"id":"evt_1"}`),
		}
	}

	done, err := store.BeginWebhookEvent(ctx, ev())
	require.NoError(t, err)
	assert.False(t, done)

	require.NoError(t, store.FinishWebhookEvent(ctx, "evt_1", errors.New("db down")))

	done, err = store.BeginWebhookEvent(ctx, ev())
	require.NoError(t, err)
	assert.False(t, done, "failed events are processed again")

	require.NoError(t, store.FinishWebhookEvent(ctx, "evt_1", nil))

	done, err = store.BeginWebhookEvent(ctx, ev())
	require.NoError(t, err)
	assert.True(t, done)

	var stored billing.WebhookEvent
	require.NoError(t, store.DB().Where("event_id = ?", "evt_1").First(&stored).Error)
	assert.Equal(t, 3, stored.Deliveries)
	assert.Nil(t, stored.ProcessingError)
}

func TestUpsertSubscription(t *testing.T) {
	store := ledgertest.NewStore(t)
	end := time.Now().Add(30 * 24 * time.Hour).UTC().Truncate(time.Second)

	require.NoError(t, store.UpsertSubscription(ctx, &billing.Subscription{
		UserID: "u1", StripeSubscriptionID: "sub_1", Status: "active", Plan: "price_1", CurrentPeriodEnd: &end,
	}))
	require.NoError(t, store.UpsertSubscription(ctx, &billing.Subscription{
		UserID: "u1", StripeSubscriptionID: "sub_1", Status: "canceled", Plan: "price_1", CurrentPeriodEnd: &end,
	}))

	list, err := store.ListSubscriptions(ctx, "u1")
	require.NoError(t, err)
	require.Len(t, list, 1)
	assert.Equal(t, "canceled", list[0].Status)
}

func TestStats(t *testing.T) {
	store := ledgertest.NewStore(t)
	ledgertest.CreateUser(t, store.DB(), "u1", "u1@example.com")
	ledgertest.CreateUser(t, store.DB(), "u2", "u2@example.com")

	require.NoError(t, store.CreatePayment(ctx, payment("u1", "pi_1", billing.StatusSucceeded)))
	require.NoError(t, store.CreatePayment(ctx, payment("u2", "pi_2", billing.StatusSucceeded)))
	require.NoError(t, store.CreatePayment(ctx, payment("u2", "pi_3", billing.StatusFailed)))
	require.NoError(t, store.CreateAccess(ctx, &access.GptAccess{UserID: "u1", ModelID: "generador-sermones"}))
	require.NoError(t, store.CreateAccess(ctx, &access.GptAccess{UserID: "u2", ModelID: "generador-sermones"}))

	st, err := store.Stats(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(2), st.Users)
	assert.Equal(t, int64(3), st.Payments)
	assert.Equal(t, int64(2), st.SucceededPayments)
	assert.Equal(t, int64(1), st.FailedPayments)
	assert.Equal(t, "19.98", st.Revenue["usd"])
	assert.Equal(t, int64(2), st.GrantsByProduct["generador-sermones"])
}

func TestUserLookups(t *testing.T) {
	store := ledgertest.NewStore(t)
	ledgertest.CreateUser(t, store.DB(), "u1", "u1@example.com")

	u, err := store.UserByEmail(ctx, "  U1@example.com ")
	require.NoError(t, err)
	assert.Equal(t, "u1", u.ID)

	require.NoError(t, store.SetStripeCustomerID(ctx, "u1", "cus_1"))
	u, err = store.UserByStripeCustomerID(ctx, "cus_1")
	require.NoError(t, err)
	assert.Equal(t, "u1", u.ID)

	assert.ErrorIs(t, store.SetStripeCustomerID(ctx, "nobody", "cus_2"), ledger.ErrNotFound)
	_, err = store.UserByID(ctx, "nobody")
	assert.ErrorIs(t, err, ledger.ErrNotFound)
}
