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

// GormCreditRepository implements CreditRepository using GORM
type GormCreditRepository struct {
	db        *gorm.DB
	publisher shared.OutboxEventSaver
}

// NewGormCreditRepository creates a new GormCreditRepository
func NewGormCreditRepository(db *gorm.DB, publisher shared.OutboxEventSaver) *GormCreditRepository {
	return &GormCreditRepository{db: db, publisher: publisher}
}

// FindByID finds a credit batch by ID within the tenant bound to ctx
func (r *GormCreditRepository) FindByID(ctx context.Context, id uuid.UUID) (*billing.CreditBalance, error) {
	var balance billing.CreditBalance
	if err := r.db.WithContext(ctx).First(&balance, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, shared.ErrNotFound
		}
		return nil, err
	}
	return &balance, nil
}

// FindAvailableByTenant returns the bound tenant's unexpired batches with
// credits remaining, oldest expiry first so consumption drains them in order
func (r *GormCreditRepository) FindAvailableByTenant(ctx context.Context, now time.Time) ([]billing.CreditBalance, error) {
	var balances []billing.CreditBalance
	if err := r.db.WithContext(ctx).
		Where("expires_at > ? AND used_credits < purchased_credits", now).
		Order("expires_at ASC").
		Find(&balances).Error; err != nil {
		return nil, err
	}
	return balances, nil
}

// FindExpiringWithin finds, across all tenants, unnotified batches with
// remaining credits that expire before the cutoff
func (r *GormCreditRepository) FindExpiringWithin(ctx context.Context, cutoff time.Time) ([]billing.CreditBalance, error) {
	var balances []billing.CreditBalance
	if err := r.db.WithContext(ctx).Unscoped().
		Where("expiry_notified_at IS NULL").
		Where("used_credits < purchased_credits").
		Where("expires_at > ? AND expires_at <= ?", time.Now(), cutoff).
		Order("expires_at ASC").
		Find(&balances).Error; err != nil {
		return nil, err
	}
	return balances, nil
}

// Save persists the credit batch
func (r *GormCreditRepository) Save(ctx context.Context, balance *billing.CreditBalance) error {
	return r.db.WithContext(ctx).Save(balance).Error
}

// SaveWithEvents saves the batch and writes its buffered domain events to
// the outbox in the same transaction
func (r *GormCreditRepository) SaveWithEvents(ctx context.Context, tx interface{}, balance *billing.CreditBalance) error {
	gormTx, ok := tx.(*gorm.DB)
	if !ok {
		return fmt.Errorf("tx must be a *gorm.DB, got %T", tx)
	}

	if err := gormTx.WithContext(ctx).Save(balance).Error; err != nil {
		return err
	}

	if err := r.publisher.SaveEvents(ctx, gormTx, balance.GetDomainEvents()...); err != nil {
		return err
	}
	balance.ClearDomainEvents()

	return nil
}

// RecordUsage appends a usage audit record
func (r *GormCreditRepository) RecordUsage(ctx context.Context, tx interface{}, usage *billing.CreditUsage) error {
	gormTx, ok := tx.(*gorm.DB)
	if !ok {
		return fmt.Errorf("tx must be a *gorm.DB, got %T", tx)
	}
	return gormTx.WithContext(ctx).Create(usage).Error
}

// FindUsageByTenant lists the bound tenant's usage records
func (r *GormCreditRepository) FindUsageByTenant(ctx context.Context, filter shared.Filter) ([]billing.CreditUsage, int64, error) {
	query := r.db.WithContext(ctx).Model(&billing.CreditUsage{})

	if usageType, ok := filter.Filters["usage_type"]; ok {
		query = query.Where("usage_type = ?", usageType)
	}

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	var usages []billing.CreditUsage
	if err := applyPagination(query.Order("created_at DESC"), filter).
		Find(&usages).Error; err != nil {
		return nil, 0, err
	}
	return usages, total, nil
}

// WithTx runs fn inside a database transaction
func (r *GormCreditRepository) WithTx(ctx context.Context, fn func(tx interface{}) error) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return fn(tx)
	})
}

// Ensure GormCreditRepository implements CreditRepository
var _ billing.CreditRepository = (*GormCreditRepository)(nil)
