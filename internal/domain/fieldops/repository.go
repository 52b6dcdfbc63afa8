package fieldops

import (
	"context"

	"github.com/google/uuid"

	"github.com/oxfield/backend/internal/domain/shared"
)

// ServiceOrderRepository defines the interface for service order persistence
type ServiceOrderRepository interface {
	// FindByID finds a service order by ID within the tenant bound to ctx
	FindByID(ctx context.Context, id uuid.UUID) (*ServiceOrder, error)

	// FindByIDForUpdate loads a service order with a row lock so competing
	// transitions on the same order serialize. Must run inside WithTx.
	FindByIDForUpdate(ctx context.Context, tx interface{}, id uuid.UUID) (*ServiceOrder, error)

	// FindByOSNumber finds a service order by its per-tenant number
	FindByOSNumber(ctx context.Context, osNumber string) (*ServiceOrder, error)

	// FindAll finds service orders for the bound tenant with filtering
	FindAll(ctx context.Context, filter shared.Filter) ([]ServiceOrder, int64, error)

	// FindByTechnician finds orders assigned to a technician
	FindByTechnician(ctx context.Context, technicianID uuid.UUID, filter shared.Filter) ([]ServiceOrder, error)

	// FindByCustomer finds orders requested by a customer
	FindByCustomer(ctx context.Context, customerID uuid.UUID, filter shared.Filter) ([]ServiceOrder, error)

	// Create persists a new order and its domain events atomically
	Create(ctx context.Context, order *ServiceOrder) error

	// SaveWithEvents saves the order (optimistic version check) and writes its
	// buffered domain events to the outbox in the same transaction
	SaveWithEvents(ctx context.Context, tx interface{}, order *ServiceOrder) error

	// WithTx runs fn inside a database transaction
	WithTx(ctx context.Context, fn func(tx interface{}) error) error

	// GenerateOSNumber produces the next order number for the bound tenant
	GenerateOSNumber(ctx context.Context) (string, error)

	// CountByStatus counts the bound tenant's orders in the given status
	CountByStatus(ctx context.Context, status OrderStatus) (int64, error)
}
