package ledger

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"
	"time"

	"gpt-storefront/internal/domain/access"
	"gpt-storefront/internal/domain/billing"
	"gpt-storefront/internal/domain/catalog"
	"gpt-storefront/internal/domain/users"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type GormStore struct {
	db *gorm.DB
}

func NewGormStore(db *gorm.DB) *GormStore {
	return &GormStore{db: db}
}

func (s *GormStore) DB() *gorm.DB {
	return s.db
}

// --- users ---

func (s *GormStore) UserByID(ctx context.Context, id string) (*users.User, error) {
	var u users.User
	if err := s.db.WithContext(ctx).Where("id = ?", id).First(&u).Error; err != nil {
		return nil, notFound(err)
	}
	return &u, nil
}

func (s *GormStore) UserByEmail(ctx context.Context, email string) (*users.User, error) {
	var u users.User
	email = strings.ToLower(strings.TrimSpace(email))
	if err := s.db.WithContext(ctx).Where("email = ?", email).First(&u).Error; err != nil {
		return nil, notFound(err)
	}
	return &u, nil
}

func (s *GormStore) UserByStripeCustomerID(ctx context.Context, customerID string) (*users.User, error) {
	var u users.User
	if err := s.db.WithContext(ctx).Where("stripe_customer_id = ?", customerID).First(&u).Error; err != nil {
		return nil, notFound(err)
	}
	return &u, nil
}

func (s *GormStore) SetStripeCustomerID(ctx context.Context, userID, customerID string) error {
	res := s.db.WithContext(ctx).Model(&users.User{}).
		Where("id = ?", userID).
		Update("stripe_customer_id", customerID)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}

func (s *GormStore) ListUsers(ctx context.Context, limit, offset int) ([]users.User, int64, error) {
	var (
		list  []users.User
		total int64
	)
	db := s.db.WithContext(ctx)
	if err := db.Model(&users.User{}).Count(&total).Error; err != nil {
		return nil, 0, err
	}
	if err := db.Order("created_at DESC").Limit(limit).Offset(offset).Find(&list).Error; err != nil {
		return nil, 0, err
	}
	return list, total, nil
}

// --- models ---

func (s *GormStore) ModelByID(ctx context.Context, id string) (*access.GptModel, error) {
	var m access.GptModel
	if err := s.db.WithContext(ctx).Where("id = ?", id).First(&m).Error; err != nil {
		return nil, notFound(err)
	}
	return &m, nil
}

func (s *GormStore) ListModels(ctx context.Context) ([]access.GptModel, error) {
	var list []access.GptModel
	err := s.db.WithContext(ctx).Order("id").Find(&list).Error
	return list, err
}

// SyncModels makes gpt_models match the catalog: missing rows are created,
// drifted names are updated, rows no longer in the catalog are deactivated.
// Grants on deactivated models stay valid.
func (s *GormStore) SyncModels(ctx context.Context, products []catalog.Product) (SyncReport, error) {
	var report SyncReport
	db := s.db.WithContext(ctx)

	inCatalog := make(map[string]bool, len(products))
	for _, p := range products {
		inCatalog[p.ID] = true

		want := access.GptModel{
			ID:           p.ID,
			Name:         p.Name,
			Description:  p.Description,
			Icon:         p.Icon,
			RequiredPlan: catalog.NormalizePlan(p.Plan),
			Active:       true,
		}

		var have access.GptModel
		err := db.Where("id = ?", p.ID).First(&have).Error
		switch {
		case err == nil:
			if have.Name == want.Name && have.Description == want.Description &&
				have.Icon == want.Icon && have.RequiredPlan == want.RequiredPlan && have.Active {
				continue
			}
			if err := db.Model(&have).Updates(map[string]interface{}{
				"name":          want.Name,
				"description":   want.Description,
				"icon":          want.Icon,
				"required_plan": want.RequiredPlan,
				"active":        true,
			}).Error; err != nil {
				return report, fmt.Errorf("update model %s: %w", p.ID, err)
			}
			report.Updated = append(report.Updated, p.ID)

		case errors.Is(err, gorm.ErrRecordNotFound):
			res := db.Clauses(clause.OnConflict{DoNothing: true}).Create(&want)
			if res.Error != nil {
				return report, fmt.Errorf("create model %s: %w", p.ID, res.Error)
			}
			if res.RowsAffected > 0 {
				report.Created = append(report.Created, p.ID)
			}

		default:
			return report, fmt.Errorf("load model %s: %w", p.ID, err)
		}
	}

	var existing []access.GptModel
	if err := db.Where("active = ?", true).Find(&existing).Error; err != nil {
		return report, err
	}
	for _, m := range existing {
		if inCatalog[m.ID] {
			continue
		}
		if err := db.Model(&access.GptModel{}).Where("id = ?", m.ID).Update("active", false).Error; err != nil {
			return report, fmt.Errorf("deactivate model %s: %w", m.ID, err)
		}
		report.Deactivated = append(report.Deactivated, m.ID)
	}
	sort.Strings(report.Deactivated)
	return report, nil
}

// --- payments ---

func (s *GormStore) PaymentByStripeID(ctx context.Context, stripePaymentID string) (*billing.Payment, error) {
	var p billing.Payment
	if err := s.db.WithContext(ctx).Where("stripe_payment_id = ?", stripePaymentID).First(&p).Error; err != nil {
		return nil, notFound(err)
	}
	return &p, nil
}

func (s *GormStore) CreatePayment(ctx context.Context, p *billing.Payment) error {
	err := s.db.WithContext(ctx).Omit(clause.Associations).Create(p).Error
	if isDuplicate(err) {
		return fmt.Errorf("%w: %s", ErrDuplicatePayment, p.StripePaymentID)
	}
	return err
}

// PromotePayment flips a non-succeeded payment to succeeded. It reports
// whether this call made the change, so concurrent callers agree on a single
// winner.
func (s *GormStore) PromotePayment(ctx context.Context, stripePaymentID, amount, currency, description string) (bool, error) {
	res := s.db.WithContext(ctx).Model(&billing.Payment{}).
		Where("stripe_payment_id = ? AND status <> ?", stripePaymentID, billing.StatusSucceeded).
		Updates(map[string]interface{}{
			"status":      billing.StatusSucceeded,
			"amount":      amount,
			"currency":    currency,
			"description": description,
		})
	return res.RowsAffected == 1, res.Error
}

func (s *GormStore) ListPayments(ctx context.Context, userID string) ([]billing.Payment, error) {
	var list []billing.Payment
	err := s.db.WithContext(ctx).
		Where("user_id = ?", userID).
		Order("created_at DESC").
		Find(&list).Error
	return list, err
}

func (s *GormStore) ListAllPayments(ctx context.Context, limit int) ([]billing.Payment, error) {
	var list []billing.Payment
	err := s.db.WithContext(ctx).
		Preload("User").
		Order("created_at DESC").
		Limit(limit).
		Find(&list).Error
	return list, err
}

// --- access ---

func (s *GormStore) AccessFor(ctx context.Context, userID, modelID string) (*access.GptAccess, error) {
	var a access.GptAccess
	if err := s.db.WithContext(ctx).
		Where("user_id = ? AND model_id = ?", userID, modelID).
		First(&a).Error; err != nil {
		return nil, notFound(err)
	}
	return &a, nil
}

func (s *GormStore) CreateAccess(ctx context.Context, a *access.GptAccess) error {
	err := s.db.WithContext(ctx).Omit(clause.Associations).Create(a).Error
	if isDuplicate(err) {
		return fmt.Errorf("%w: user %s model %s", ErrDuplicateAccess, a.UserID, a.ModelID)
	}
	return err
}

// RenewAccess points an existing grant at a new payment and clears its
// expiry.
func (s *GormStore) RenewAccess(ctx context.Context, accessID, paymentID string) error {
	res := s.db.WithContext(ctx).Model(&access.GptAccess{}).
		Where("id = ?", accessID).
		Updates(map[string]interface{}{
			"payment_id": paymentID,
			"expires_at": nil,
		})
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}

// RecordUsage increments the usage counter in the database and returns the
// new value.
func (s *GormStore) RecordUsage(ctx context.Context, accessID string, at time.Time) (int, error) {
	var used int
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		res := tx.Model(&access.GptAccess{}).
			Where("id = ?", accessID).
			Updates(map[string]interface{}{
				"queries_used":     gorm.Expr("queries_used + ?", 1),
				"last_accessed_at": at,
			})
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return ErrNotFound
		}

		var a access.GptAccess
		if err := tx.Select("queries_used").Where("id = ?", accessID).First(&a).Error; err != nil {
			return err
		}
		used = a.QueriesUsed
		return nil
	})
	return used, err
}

func (s *GormStore) ListAccess(ctx context.Context, userID string) ([]access.GptAccess, error) {
	var list []access.GptAccess
	err := s.db.WithContext(ctx).
		Preload("Model").
		Where("user_id = ?", userID).
		Order("created_at").
		Find(&list).Error
	return list, err
}

// --- fulfillment ---

// EnqueueFulfillment opens (or reopens) the issue for a payment and bumps its
// attempt counter.
func (s *GormStore) EnqueueFulfillment(ctx context.Context, issue *billing.FulfillmentIssue) error {
	return s.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns: []clause.Column{{Name: "payment_id"}},
		DoUpdates: clause.Assignments(map[string]interface{}{
			"last_error":  issue.LastError,
			"attempts":    gorm.Expr("fulfillment_issues.attempts + 1"),
			"resolved_at": nil,
			"updated_at":  time.Now().UTC(),
		}),
	}).Create(issue).Error
}

func (s *GormStore) ResolveFulfillment(ctx context.Context, paymentID string, at time.Time) error {
	return s.db.WithContext(ctx).Model(&billing.FulfillmentIssue{}).
		Where("payment_id = ? AND resolved_at IS NULL", paymentID).
		Update("resolved_at", at).Error
}

func (s *GormStore) FulfillmentByID(ctx context.Context, id string) (*billing.FulfillmentIssue, error) {
	var f billing.FulfillmentIssue
	if err := s.db.WithContext(ctx).Where("id = ?", id).First(&f).Error; err != nil {
		return nil, notFound(err)
	}
	return &f, nil
}

func (s *GormStore) ListFulfillment(ctx context.Context, openOnly bool) ([]billing.FulfillmentIssue, error) {
	var list []billing.FulfillmentIssue
	q := s.db.WithContext(ctx).Order("created_at")
	if openOnly {
		q = q.Where("resolved_at IS NULL")
	}
	err := q.Find(&list).Error
	return list, err
}

// --- webhook events ---

// BeginWebhookEvent records a delivery. It reports true when the event was
// already processed successfully and can be acknowledged without work.
func (s *GormStore) BeginWebhookEvent(ctx context.Context, ev *billing.WebhookEvent) (bool, error) {
	db := s.db.WithContext(ctx)
	err := db.Create(ev).Error
	if err == nil {
		return false, nil
	}
	if !isDuplicate(err) {
		return false, err
	}

	var existing billing.WebhookEvent
	if err := db.Where("event_id = ?", ev.EventID).First(&existing).Error; err != nil {
		return false, err
	}
	if err := db.Model(&billing.WebhookEvent{}).
		Where("id = ?", existing.ID).
		UpdateColumn("deliveries", gorm.Expr("deliveries + ?", 1)).Error; err != nil {
		return false, err
	}
	return existing.ProcessedAt != nil, nil
}

func (s *GormStore) FinishWebhookEvent(ctx context.Context, eventID string, procErr error) error {
	updates := map[string]interface{}{}
	if procErr == nil {
		updates["processed_at"] = time.Now().UTC()
		updates["processing_error"] = nil
	} else {
		updates["processing_error"] = procErr.Error()
	}
	return s.db.WithContext(ctx).Model(&billing.WebhookEvent{}).
		Where("event_id = ?", eventID).
		Updates(updates).Error
}

// --- subscriptions ---

func (s *GormStore) UpsertSubscription(ctx context.Context, sub *billing.Subscription) error {
	return s.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "stripe_subscription_id"}},
		DoUpdates: clause.AssignmentColumns([]string{"status", "plan", "current_period_end", "updated_at"}),
	}).Create(sub).Error
}

func (s *GormStore) ListSubscriptions(ctx context.Context, userID string) ([]billing.Subscription, error) {
	var list []billing.Subscription
	err := s.db.WithContext(ctx).Where("user_id = ?", userID).Order("created_at").Find(&list).Error
	return list, err
}

// --- stats ---

func (s *GormStore) Stats(ctx context.Context) (Stats, error) {
	db := s.db.WithContext(ctx)
	st := Stats{
		Revenue:         map[string]string{},
		GrantsByProduct: map[string]int64{},
	}

	if err := db.Model(&users.User{}).Count(&st.Users).Error; err != nil {
		return st, err
	}
	if err := db.Model(&billing.Payment{}).Count(&st.Payments).Error; err != nil {
		return st, err
	}
	if err := db.Model(&billing.Payment{}).Where("status = ?", billing.StatusFailed).Count(&st.FailedPayments).Error; err != nil {
		return st, err
	}
	if err := db.Model(&billing.FulfillmentIssue{}).Where("resolved_at IS NULL").Count(&st.OpenFulfillment).Error; err != nil {
		return st, err
	}

	var succeeded []billing.Payment
	if err := db.Select("amount", "currency").Where("status = ?", billing.StatusSucceeded).Find(&succeeded).Error; err != nil {
		return st, err
	}
	st.SucceededPayments = int64(len(succeeded))
	totals := map[string]int64{}
	for _, p := range succeeded {
		minor, err := billing.ParseMinor(p.Amount)
		if err != nil {
			return st, fmt.Errorf("payment amount %q: %w", p.Amount, err)
		}
		totals[p.Currency] += minor
	}
	for cur, minor := range totals {
		st.Revenue[cur] = billing.FormatMinor(minor)
	}

	var rows []struct {
		ModelID string
		Count   int64
	}
	if err := db.Model(&access.GptAccess{}).
		Select("model_id, COUNT(*) AS count").
		Group("model_id").
		Scan(&rows).Error; err != nil {
		return st, err
	}
	for _, r := range rows {
		st.GrantsByProduct[r.ModelID] = r.Count
	}
	return st, nil
}
