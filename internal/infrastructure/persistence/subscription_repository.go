package persistence

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/oxfield/backend/internal/domain/billing"
	"github.com/oxfield/backend/internal/domain/shared"
)

// GormSubscriptionRepository implements SubscriptionRepository using GORM.
// Per-tenant lookups rely on the tenant callbacks; the billing sweeps run
// Unscoped because they walk every tenant's subscriptions.
type GormSubscriptionRepository struct {
	db        *gorm.DB
	publisher shared.OutboxEventSaver
}

// NewGormSubscriptionRepository creates a new GormSubscriptionRepository
func NewGormSubscriptionRepository(db *gorm.DB, publisher shared.OutboxEventSaver) *GormSubscriptionRepository {
	return &GormSubscriptionRepository{db: db, publisher: publisher}
}

// FindByID finds a subscription by ID within the tenant bound to ctx
func (r *GormSubscriptionRepository) FindByID(ctx context.Context, id uuid.UUID) (*billing.Subscription, error) {
	var sub billing.Subscription
	if err := r.db.WithContext(ctx).First(&sub, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, shared.ErrNotFound
		}
		return nil, err
	}
	if err := r.loadItems(ctx, r.db, &sub); err != nil {
		return nil, err
	}
	return &sub, nil
}

// FindByTenant finds the tenant's current non-cancelled subscription
func (r *GormSubscriptionRepository) FindByTenant(ctx context.Context, tenantID uuid.UUID) (*billing.Subscription, error) {
	var sub billing.Subscription
	if err := r.db.WithContext(ctx).Unscoped().
		Where("tenant_id = ? AND status <> ?", tenantID, billing.SubscriptionStatusCancelled).
		Order("created_at DESC").
		First(&sub).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, shared.ErrNotFound
		}
		return nil, err
	}
	if err := r.loadItems(ctx, r.db, &sub); err != nil {
		return nil, err
	}
	return &sub, nil
}

// FindDueForBilling finds, across all tenants, subscriptions whose billing
// cycle day matches the run date and whose period has not advanced past it.
// generateInvoice renews the period on billing, so an already-billed
// subscription drops out of this query for the rest of the day.
func (r *GormSubscriptionRepository) FindDueForBilling(ctx context.Context, runAt time.Time) ([]billing.Subscription, error) {
	var subs []billing.Subscription
	if err := r.db.WithContext(ctx).Unscoped().
		Where("billing_cycle_day = ? AND current_period_start <= ? AND status IN ?", runAt.Day(), runAt, []billing.SubscriptionStatus{
			billing.SubscriptionStatusActive,
			billing.SubscriptionStatusPastDue,
		}).
		Order("tenant_id ASC").
		Find(&subs).Error; err != nil {
		return nil, err
	}

	for i := range subs {
		if err := r.loadItems(ctx, r.db, &subs[i]); err != nil {
			return nil, err
		}
	}
	return subs, nil
}

// FindPastDueOlderThan finds, across all tenants, subscriptions past due
// since before the cutoff
func (r *GormSubscriptionRepository) FindPastDueOlderThan(ctx context.Context, cutoff time.Time) ([]billing.Subscription, error) {
	var subs []billing.Subscription
	if err := r.db.WithContext(ctx).Unscoped().
		Where("status = ? AND past_due_since IS NOT NULL AND past_due_since < ?",
			billing.SubscriptionStatusPastDue, cutoff).
		Order("past_due_since ASC").
		Find(&subs).Error; err != nil {
		return nil, err
	}
	return subs, nil
}

// Save persists the subscription and its items
func (r *GormSubscriptionRepository) Save(ctx context.Context, sub *billing.Subscription) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Save(sub).Error; err != nil {
			return err
		}
		return r.saveItems(ctx, tx, sub)
	})
}

// SaveWithEvents saves the subscription and writes its buffered domain
// events to the outbox in the same transaction
func (r *GormSubscriptionRepository) SaveWithEvents(ctx context.Context, tx interface{}, sub *billing.Subscription) error {
	gormTx, ok := tx.(*gorm.DB)
	if !ok {
		return fmt.Errorf("tx must be a *gorm.DB, got %T", tx)
	}

	if err := gormTx.WithContext(ctx).Save(sub).Error; err != nil {
		return err
	}
	if err := r.saveItems(ctx, gormTx, sub); err != nil {
		return err
	}

	if err := r.publisher.SaveEvents(ctx, gormTx, sub.GetDomainEvents()...); err != nil {
		return err
	}
	sub.ClearDomainEvents()

	return nil
}

// WithTx runs fn inside a database transaction
func (r *GormSubscriptionRepository) WithTx(ctx context.Context, fn func(tx interface{}) error) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return fn(tx)
	})
}

func (r *GormSubscriptionRepository) loadItems(ctx context.Context, db *gorm.DB, sub *billing.Subscription) error {
	return db.WithContext(ctx).
		Where("subscription_id = ?", sub.ID).
		Order("created_at ASC").
		Find(&sub.Items).Error
}

func (r *GormSubscriptionRepository) saveItems(ctx context.Context, tx *gorm.DB, sub *billing.Subscription) error {
	for i := range sub.Items {
		sub.Items[i].SubscriptionID = sub.ID
		if err := tx.WithContext(ctx).Save(&sub.Items[i]).Error; err != nil {
			return err
		}
	}
	return nil
}

// Ensure GormSubscriptionRepository implements SubscriptionRepository
var _ billing.SubscriptionRepository = (*GormSubscriptionRepository)(nil)
