package persistence

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/oxfield/backend/internal/domain/fieldops"
	"github.com/oxfield/backend/internal/domain/shared"
)

// GormServiceOrderRepository implements ServiceOrderRepository using GORM.
// Tenant isolation comes from the registered tenant callbacks, so every
// method expects a context with a bound tenant.
type GormServiceOrderRepository struct {
	db        *gorm.DB
	publisher shared.OutboxEventSaver
}

// NewGormServiceOrderRepository creates a new GormServiceOrderRepository
func NewGormServiceOrderRepository(db *gorm.DB, publisher shared.OutboxEventSaver) *GormServiceOrderRepository {
	return &GormServiceOrderRepository{db: db, publisher: publisher}
}

// FindByID finds a service order by ID within the tenant bound to ctx
func (r *GormServiceOrderRepository) FindByID(ctx context.Context, id uuid.UUID) (*fieldops.ServiceOrder, error) {
	var order fieldops.ServiceOrder
	if err := r.db.WithContext(ctx).First(&order, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, shared.ErrNotFound
		}
		return nil, err
	}
	if err := r.loadChildren(ctx, r.db, &order); err != nil {
		return nil, err
	}
	return &order, nil
}

// FindByIDForUpdate loads a service order with a row lock inside the given
// transaction so competing transitions on the same order serialize
func (r *GormServiceOrderRepository) FindByIDForUpdate(ctx context.Context, tx interface{}, id uuid.UUID) (*fieldops.ServiceOrder, error) {
	gormTx, ok := tx.(*gorm.DB)
	if !ok {
		return nil, fmt.Errorf("tx must be a *gorm.DB, got %T", tx)
	}

	var order fieldops.ServiceOrder
	if err := gormTx.WithContext(ctx).
		Clauses(clause.Locking{Strength: "UPDATE"}).
		First(&order, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, shared.ErrNotFound
		}
		return nil, err
	}
	if err := r.loadChildren(ctx, gormTx, &order); err != nil {
		return nil, err
	}
	return &order, nil
}

// FindByOSNumber finds a service order by its per-tenant number
func (r *GormServiceOrderRepository) FindByOSNumber(ctx context.Context, osNumber string) (*fieldops.ServiceOrder, error) {
	var order fieldops.ServiceOrder
	if err := r.db.WithContext(ctx).
		Where("os_number = ?", osNumber).
		First(&order).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, shared.ErrNotFound
		}
		return nil, err
	}
	if err := r.loadChildren(ctx, r.db, &order); err != nil {
		return nil, err
	}
	return &order, nil
}

// FindAll finds service orders for the bound tenant with filtering
func (r *GormServiceOrderRepository) FindAll(ctx context.Context, filter shared.Filter) ([]fieldops.ServiceOrder, int64, error) {
	var total int64
	countQuery := r.applyFilterWithoutPagination(
		r.db.WithContext(ctx).Model(&fieldops.ServiceOrder{}),
		filter,
	)
	if err := countQuery.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	var orders []fieldops.ServiceOrder
	query := r.applyFilter(
		r.db.WithContext(ctx).Model(&fieldops.ServiceOrder{}),
		filter,
	)
	if err := query.Find(&orders).Error; err != nil {
		return nil, 0, err
	}
	return orders, total, nil
}

// FindByTechnician finds orders assigned to a technician
func (r *GormServiceOrderRepository) FindByTechnician(ctx context.Context, technicianID uuid.UUID, filter shared.Filter) ([]fieldops.ServiceOrder, error) {
	var orders []fieldops.ServiceOrder
	query := r.applyFilter(
		r.db.WithContext(ctx).Model(&fieldops.ServiceOrder{}).
			Where("technician_id = ?", technicianID),
		filter,
	)
	if err := query.Find(&orders).Error; err != nil {
		return nil, err
	}
	return orders, nil
}

// FindByCustomer finds orders requested by a customer
func (r *GormServiceOrderRepository) FindByCustomer(ctx context.Context, customerID uuid.UUID, filter shared.Filter) ([]fieldops.ServiceOrder, error) {
	var orders []fieldops.ServiceOrder
	query := r.applyFilter(
		r.db.WithContext(ctx).Model(&fieldops.ServiceOrder{}).
			Where("customer_id = ?", customerID),
		filter,
	)
	if err := query.Find(&orders).Error; err != nil {
		return nil, err
	}
	return orders, nil
}

// Create persists a new order and its domain events atomically
func (r *GormServiceOrderRepository) Create(ctx context.Context, order *fieldops.ServiceOrder) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(order).Error; err != nil {
			return err
		}
		if err := r.saveChildren(ctx, tx, order); err != nil {
			return err
		}
		if err := r.publisher.SaveEvents(ctx, tx, order.GetDomainEvents()...); err != nil {
			return err
		}
		order.ClearDomainEvents()
		return nil
	})
}

// SaveWithEvents saves the order with an optimistic version check and writes
// its buffered domain events to the outbox in the same transaction
func (r *GormServiceOrderRepository) SaveWithEvents(ctx context.Context, tx interface{}, order *fieldops.ServiceOrder) error {
	gormTx, ok := tx.(*gorm.DB)
	if !ok {
		return fmt.Errorf("tx must be a *gorm.DB, got %T", tx)
	}

	currentVersion := order.Version
	order.Version++
	order.UpdatedAt = time.Now()

	result := gormTx.WithContext(ctx).Model(&fieldops.ServiceOrder{}).
		Where("id = ? AND version = ?", order.ID, currentVersion).
		Updates(map[string]interface{}{
			"status":          order.Status,
			"technician_id":   order.TechnicianID,
			"technician_name": order.TechnicianName,
			"actual_start":    order.ActualStart,
			"actual_end":      order.ActualEnd,
			"final_price":     order.FinalPrice,
			"signature_url":   order.SignatureURL,
			"signed_at":       order.SignedAt,
			"signer_name":     order.SignerName,
			"cancelled_at":    order.CancelledAt,
			"cancel_reason":   order.CancelReason,
			"version":         order.Version,
			"updated_at":      order.UpdatedAt,
		})
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return shared.NewDomainError("CONCURRENT_MODIFICATION", "The order has been modified by another user")
	}

	if err := r.saveChildren(ctx, gormTx, order); err != nil {
		return err
	}

	if err := r.publisher.SaveEvents(ctx, gormTx, order.GetDomainEvents()...); err != nil {
		return err
	}
	order.ClearDomainEvents()

	return nil
}

// WithTx runs fn inside a database transaction
func (r *GormServiceOrderRepository) WithTx(ctx context.Context, fn func(tx interface{}) error) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return fn(tx)
	})
}

// GenerateOSNumber produces the next order number for the bound tenant.
// Format: OS-YYYY-NNNNN (e.g. OS-2026-00001)
func (r *GormServiceOrderRepository) GenerateOSNumber(ctx context.Context) (string, error) {
	year := time.Now().Year()
	prefix := fmt.Sprintf("OS-%d-", year)

	var lastOrder fieldops.ServiceOrder
	err := r.db.WithContext(ctx).
		Model(&fieldops.ServiceOrder{}).
		Where("os_number LIKE ?", prefix+"%").
		Order("os_number DESC").
		First(&lastOrder).Error

	if err != nil && !errors.Is(err, gorm.ErrRecordNotFound) {
		return "", err
	}

	var nextNum int64 = 1
	if err == nil && lastOrder.OSNumber != "" {
		parts := strings.Split(lastOrder.OSNumber, "-")
		if len(parts) == 3 {
			var num int64
			if _, parseErr := fmt.Sscanf(parts[2], "%d", &num); parseErr == nil {
				nextNum = num + 1
			}
		}
	}

	return fmt.Sprintf("%s%05d", prefix, nextNum), nil
}

// CountByStatus counts the bound tenant's orders in the given status
func (r *GormServiceOrderRepository) CountByStatus(ctx context.Context, status fieldops.OrderStatus) (int64, error) {
	var count int64
	if err := r.db.WithContext(ctx).
		Model(&fieldops.ServiceOrder{}).
		Where("status = ?", status).
		Count(&count).Error; err != nil {
		return 0, err
	}
	return count, nil
}

// loadChildren loads the checklist and photos for an order
func (r *GormServiceOrderRepository) loadChildren(ctx context.Context, db *gorm.DB, order *fieldops.ServiceOrder) error {
	if err := db.WithContext(ctx).
		Where("order_id = ?", order.ID).
		Order("created_at ASC").
		Find(&order.Checklist).Error; err != nil {
		return err
	}
	return db.WithContext(ctx).
		Where("order_id = ?", order.ID).
		Order("created_at ASC").
		Find(&order.Photos).Error
}

// saveChildren upserts the checklist and photos of an order
func (r *GormServiceOrderRepository) saveChildren(ctx context.Context, tx *gorm.DB, order *fieldops.ServiceOrder) error {
	for i := range order.Checklist {
		order.Checklist[i].OrderID = order.ID
		if err := tx.WithContext(ctx).Save(&order.Checklist[i]).Error; err != nil {
			return err
		}
	}
	for i := range order.Photos {
		order.Photos[i].OrderID = order.ID
		if err := tx.WithContext(ctx).
			Clauses(clause.OnConflict{DoNothing: true}).
			Create(&order.Photos[i]).Error; err != nil {
			return err
		}
	}
	return nil
}

// applyFilter applies filter options to the query
func (r *GormServiceOrderRepository) applyFilter(query *gorm.DB, filter shared.Filter) *gorm.DB {
	query = r.applyFilterWithoutPagination(query, filter)

	if filter.Page > 0 && filter.PageSize > 0 {
		offset := (filter.Page - 1) * filter.PageSize
		query = query.Offset(offset).Limit(filter.PageSize)
	}

	if filter.OrderBy != "" {
		orderDir := "ASC"
		if strings.ToLower(filter.OrderDir) == "desc" {
			orderDir = "DESC"
		}
		query = query.Order(filter.OrderBy + " " + orderDir)
	} else {
		query = query.Order("scheduled_date DESC")
	}

	return query
}

// applyFilterWithoutPagination applies filter options without pagination
func (r *GormServiceOrderRepository) applyFilterWithoutPagination(query *gorm.DB, filter shared.Filter) *gorm.DB {
	if filter.Search != "" {
		searchPattern := "%" + filter.Search + "%"
		query = query.Where("os_number ILIKE ? OR customer_name ILIKE ?",
			searchPattern, searchPattern)
	}

	for key, value := range filter.Filters {
		switch key {
		case "customer_id":
			query = query.Where("customer_id = ?", value)
		case "technician_id":
			query = query.Where("technician_id = ?", value)
		case "status":
			query = query.Where("status = ?", value)
		case "statuses":
			if statuses, ok := value.([]string); ok && len(statuses) > 0 {
				query = query.Where("status IN ?", statuses)
			}
		case "scheduled_from":
			if t, ok := value.(time.Time); ok {
				query = query.Where("scheduled_date >= ?", t)
			}
		case "scheduled_to":
			if t, ok := value.(time.Time); ok {
				query = query.Where("scheduled_date <= ?", t)
			}
		}
	}

	return query
}

// Ensure GormServiceOrderRepository implements ServiceOrderRepository
var _ fieldops.ServiceOrderRepository = (*GormServiceOrderRepository)(nil)
