package persistence

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/oxfield/backend/internal/domain/billing"
	"github.com/oxfield/backend/internal/domain/shared"
)

// GormInvoiceRepository implements InvoiceRepository using GORM
type GormInvoiceRepository struct {
	db        *gorm.DB
	publisher shared.OutboxEventSaver
}

// NewGormInvoiceRepository creates a new GormInvoiceRepository
func NewGormInvoiceRepository(db *gorm.DB, publisher shared.OutboxEventSaver) *GormInvoiceRepository {
	return &GormInvoiceRepository{db: db, publisher: publisher}
}

// FindByID finds an invoice by ID within the tenant bound to ctx
func (r *GormInvoiceRepository) FindByID(ctx context.Context, id uuid.UUID) (*billing.Invoice, error) {
	var inv billing.Invoice
	if err := r.db.WithContext(ctx).First(&inv, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, shared.ErrNotFound
		}
		return nil, err
	}
	if err := r.loadLines(ctx, r.db, &inv); err != nil {
		return nil, err
	}
	return &inv, nil
}

// FindByNumber finds an invoice by its number
func (r *GormInvoiceRepository) FindByNumber(ctx context.Context, number string) (*billing.Invoice, error) {
	var inv billing.Invoice
	if err := r.db.WithContext(ctx).
		Where("invoice_number = ?", number).
		First(&inv).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, shared.ErrNotFound
		}
		return nil, err
	}
	if err := r.loadLines(ctx, r.db, &inv); err != nil {
		return nil, err
	}
	return &inv, nil
}

// FindByTenant lists the bound tenant's invoices with filtering
func (r *GormInvoiceRepository) FindByTenant(ctx context.Context, filter shared.Filter) ([]billing.Invoice, int64, error) {
	query := r.db.WithContext(ctx).Model(&billing.Invoice{})

	if filter.Search != "" {
		query = query.Where("invoice_number ILIKE ?", "%"+filter.Search+"%")
	}
	if status, ok := filter.Filters["status"]; ok {
		query = query.Where("status = ?", status)
	}

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	sortField := ValidateSortField(filter.OrderBy, InvoiceSortFields, "created_at")
	sortOrder := ValidateSortOrder(filter.OrderDir)

	var invoices []billing.Invoice
	if err := applyPagination(query.Order(sortField+" "+sortOrder), filter).
		Find(&invoices).Error; err != nil {
		return nil, 0, err
	}
	return invoices, total, nil
}

// ExistsForPeriod reports whether an invoice already covers the given
// subscription period. Cancelled invoices do not count so a voided run can
// be repeated.
func (r *GormInvoiceRepository) ExistsForPeriod(ctx context.Context, subscriptionID uuid.UUID, periodStart time.Time) (bool, error) {
	var count int64
	if err := r.db.WithContext(ctx).Unscoped().Model(&billing.Invoice{}).
		Where("subscription_id = ? AND period_start = ? AND status <> ?",
			subscriptionID, periodStart, billing.InvoiceStatusCancelled).
		Count(&count).Error; err != nil {
		return false, err
	}
	return count > 0, nil
}

// FindPendingPastDue finds, across all tenants, pending invoices whose due
// date lies before now
func (r *GormInvoiceRepository) FindPendingPastDue(ctx context.Context, now time.Time) ([]billing.Invoice, error) {
	var invoices []billing.Invoice
	if err := r.db.WithContext(ctx).Unscoped().
		Where("status = ? AND due_date IS NOT NULL AND due_date < ?",
			billing.InvoiceStatusPending, now).
		Order("due_date ASC").
		Find(&invoices).Error; err != nil {
		return nil, err
	}
	return invoices, nil
}

// NextInvoiceNumber produces the next sequential number for the month.
// Format: INV-YYYYMM-NNNN (e.g. INV-202608-0001). Numbers are global so
// the sequence scans unscoped.
func (r *GormInvoiceRepository) NextInvoiceNumber(ctx context.Context, period time.Time) (string, error) {
	prefix := fmt.Sprintf("INV-%s-", period.Format("200601"))

	var lastInvoice billing.Invoice
	err := r.db.WithContext(ctx).Unscoped().
		Model(&billing.Invoice{}).
		Where("invoice_number LIKE ?", prefix+"%").
		Order("invoice_number DESC").
		First(&lastInvoice).Error

	if err != nil && !errors.Is(err, gorm.ErrRecordNotFound) {
		return "", err
	}

	var nextNum int64 = 1
	if err == nil && lastInvoice.InvoiceNumber != "" {
		parts := strings.Split(lastInvoice.InvoiceNumber, "-")
		if len(parts) == 3 {
			var num int64
			if _, parseErr := fmt.Sscanf(parts[2], "%d", &num); parseErr == nil {
				nextNum = num + 1
			}
		}
	}

	return fmt.Sprintf("%s%04d", prefix, nextNum), nil
}

// Save persists the invoice and its lines
func (r *GormInvoiceRepository) Save(ctx context.Context, inv *billing.Invoice) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Save(inv).Error; err != nil {
			return err
		}
		return r.saveLines(ctx, tx, inv)
	})
}

// SaveWithEvents saves the invoice and writes its buffered domain events to
// the outbox in the same transaction
func (r *GormInvoiceRepository) SaveWithEvents(ctx context.Context, tx interface{}, inv *billing.Invoice) error {
	gormTx, ok := tx.(*gorm.DB)
	if !ok {
		return fmt.Errorf("tx must be a *gorm.DB, got %T", tx)
	}

	if err := gormTx.WithContext(ctx).Save(inv).Error; err != nil {
		return err
	}
	if err := r.saveLines(ctx, gormTx, inv); err != nil {
		return err
	}

	if err := r.publisher.SaveEvents(ctx, gormTx, inv.GetDomainEvents()...); err != nil {
		return err
	}
	inv.ClearDomainEvents()

	return nil
}

// WithTx runs fn inside a database transaction
func (r *GormInvoiceRepository) WithTx(ctx context.Context, fn func(tx interface{}) error) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return fn(tx)
	})
}

func (r *GormInvoiceRepository) loadLines(ctx context.Context, db *gorm.DB, inv *billing.Invoice) error {
	return db.WithContext(ctx).
		Where("invoice_id = ?", inv.ID).
		Order("position ASC").
		Find(&inv.Lines).Error
}

func (r *GormInvoiceRepository) saveLines(ctx context.Context, tx *gorm.DB, inv *billing.Invoice) error {
	for i := range inv.Lines {
		inv.Lines[i].InvoiceID = inv.ID
		if err := tx.WithContext(ctx).Save(&inv.Lines[i]).Error; err != nil {
			return err
		}
	}
	return nil
}

// Ensure GormInvoiceRepository implements InvoiceRepository
var _ billing.InvoiceRepository = (*GormInvoiceRepository)(nil)
