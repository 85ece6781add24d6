package reconcile_test

import (
	"context"
	"fmt"
	"sync"
	"time"

	"gpt-storefront/internal/domain/access"
	"gpt-storefront/internal/domain/billing"
	"gpt-storefront/internal/domain/catalog"
	"gpt-storefront/internal/ledger"

	"github.com/google/uuid"
)

// memLedger enforces the same uniqueness rules as the database.
type memLedger struct {
	mu       sync.Mutex
	models   map[string]access.GptModel
	payments map[string]billing.Payment          // by stripe id
	grants   map[string]access.GptAccess         // by user|model
	issues   map[string]billing.FulfillmentIssue // by payment id

	// createAccessErr fails CreateAccess while non-nil.
	createAccessErr error
}

func newMemLedger() *memLedger {
	l := &memLedger{
		models:   map[string]access.GptModel{},
		payments: map[string]billing.Payment{},
		grants:   map[string]access.GptAccess{},
		issues:   map[string]billing.FulfillmentIssue{},
	}
	for _, p := range catalog.All() {
		l.models[p.ID] = access.GptModel{ID: p.ID, Name: p.Name, Active: true}
	}
	return l
}

func grantKey(userID, modelID string) string { return userID + "|" + modelID }

func (l *memLedger) failGrants(err error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.createAccessErr = err
}

func (l *memLedger) ModelByID(ctx context.Context, id string) (*access.GptModel, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	m, ok := l.models[id]
	if !ok {
		return nil, ledger.ErrNotFound
	}
	return &m, nil
}

func (l *memLedger) PaymentByStripeID(ctx context.Context, id string) (*billing.Payment, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	p, ok := l.payments[id]
	if !ok {
		return nil, ledger.ErrNotFound
	}
	return &p, nil
}

func (l *memLedger) CreatePayment(ctx context.Context, p *billing.Payment) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	if _, ok := l.payments[p.StripePaymentID]; ok {
		return fmt.Errorf("%w: %s", ledger.ErrDuplicatePayment, p.StripePaymentID)
	}
	if p.ID == "" {
		p.ID = uuid.NewString()
	}
	p.CreatedAt = time.Now()
	l.payments[p.StripePaymentID] = *p
	return nil
}

func (l *memLedger) PromotePayment(ctx context.Context, id, amount, currency, desc string) (bool, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	p, ok := l.payments[id]
	if !ok || p.Status == billing.StatusSucceeded {
		return false, nil
	}
	p.Status, p.Amount, p.Currency, p.Description = billing.StatusSucceeded, amount, currency, desc
	l.payments[id] = p
	return true, nil
}

func (l *memLedger) AccessFor(ctx context.Context, userID, modelID string) (*access.GptAccess, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	a, ok := l.grants[grantKey(userID, modelID)]
	if !ok {
		return nil, ledger.ErrNotFound
	}
	return &a, nil
}

func (l *memLedger) CreateAccess(ctx context.Context, a *access.GptAccess) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.createAccessErr != nil {
		return l.createAccessErr
	}
	key := grantKey(a.UserID, a.ModelID)
	if _, ok := l.grants[key]; ok {
		return fmt.Errorf("%w: %s", ledger.ErrDuplicateAccess, key)
	}
	if a.ID == "" {
		a.ID = uuid.NewString()
	}
	a.CreatedAt = time.Now()
	l.grants[key] = *a
	return nil
}

func (l *memLedger) RenewAccess(ctx context.Context, accessID, paymentID string) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	for key, a := range l.grants {
		if a.ID == accessID {
			a.PaymentID = &paymentID
			a.ExpiresAt = nil
			l.grants[key] = a
			return nil
		}
	}
	return ledger.ErrNotFound
}

func (l *memLedger) EnqueueFulfillment(ctx context.Context, issue *billing.FulfillmentIssue) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	if cur, ok := l.issues[issue.PaymentID]; ok {
		cur.Attempts++
		cur.LastError = issue.LastError
		cur.ResolvedAt = nil
		l.issues[issue.PaymentID] = cur
		return nil
	}
	if issue.ID == "" {
		issue.ID = uuid.NewString()
	}
	issue.Attempts = 1
	l.issues[issue.PaymentID] = *issue
	return nil
}

func (l *memLedger) ResolveFulfillment(ctx context.Context, paymentID string, at time.Time) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	if cur, ok := l.issues[paymentID]; ok && cur.ResolvedAt == nil {
		cur.ResolvedAt = &at
		l.issues[paymentID] = cur
	}
	return nil
}

func (l *memLedger) FulfillmentByID(ctx context.Context, id string) (*billing.FulfillmentIssue, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	for _, f := range l.issues {
		if f.ID == id {
			return &f, nil
		}
	}
	return nil, ledger.ErrNotFound
}

func (l *memLedger) counts() (payments, grants int) {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.payments), len(l.grants)
}

func (l *memLedger) onlyIssue() (billing.FulfillmentIssue, bool) {
	l.mu.Lock()
	defer l.mu.Unlock()
	for _, f := range l.issues {
		return f, true
	}
	return billing.FulfillmentIssue{}, false
}

type recordingNotifier struct {
	mu    sync.Mutex
	calls []billing.Payment
}

func (n *recordingNotifier) PurchaseCompleted(ctx context.Context, p billing.Payment, product catalog.Product) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.calls = append(n.calls, p)
}

func (n *recordingNotifier) count() int {
	n.mu.Lock()
	defer n.mu.Unlock()
	return len(n.calls)
}

// expireGrant backdates a grant so that it is an hour past its expiry.
func (l *memLedger) expireGrant(userID, modelID string) {
	l.mu.Lock()
	defer l.mu.Unlock()
	key := grantKey(userID, modelID)
	a := l.grants[key]
	past := time.Now().Add(-time.Hour)
	a.CreatedAt = past.Add(-time.Hour)
	a.ExpiresAt = &past
	l.grants[key] = a
}
