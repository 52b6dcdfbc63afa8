package fieldops

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/oxfield/backend/internal/domain/shared"
)

// Aggregate type constant
const AggregateTypeServiceOrder = "ServiceOrder"

// Event type constants
const (
	EventTypeOrderCreated       = "OrderCreated"
	EventTypeOrderAssigned      = "OrderAssigned"
	EventTypeOrderStatusChanged = "OrderStatusChanged"
	EventTypeOrderCompleted     = "OrderCompleted"
)

// OrderCreatedEvent is published when a customer request becomes an order
type OrderCreatedEvent struct {
	shared.BaseDomainEvent
	OSNumber      string    `json:"os_number"`
	CustomerID    uuid.UUID `json:"customer_id"`
	CustomerName  string    `json:"customer_name,omitempty"`
	ScheduledDate time.Time `json:"scheduled_date"`
}

// NewOrderCreatedEvent creates a new OrderCreatedEvent
func NewOrderCreatedEvent(order *ServiceOrder) *OrderCreatedEvent {
	return &OrderCreatedEvent{
		BaseDomainEvent: shared.NewBaseDomainEvent(EventTypeOrderCreated, AggregateTypeServiceOrder, order.ID, order.TenantID),
		OSNumber:        order.OSNumber,
		CustomerID:      order.CustomerID,
		CustomerName:    order.CustomerName,
		ScheduledDate:   order.ScheduledDate,
	}
}

// OrderAssignedEvent is published when a technician is assigned to an order.
// The payload is denormalized so consumers never re-query the producing
// transaction.
type OrderAssignedEvent struct {
	shared.BaseDomainEvent
	OSNumber       string    `json:"os_number"`
	CustomerID     uuid.UUID `json:"customer_id"`
	TechnicianID   uuid.UUID `json:"technician_id"`
	TechnicianName string    `json:"technician_name,omitempty"`
	ActorID        uuid.UUID `json:"actor_id"`
	ScheduledDate  time.Time `json:"scheduled_date"`
}

// NewOrderAssignedEvent creates a new OrderAssignedEvent
func NewOrderAssignedEvent(order *ServiceOrder, actorID uuid.UUID) *OrderAssignedEvent {
	technicianID := uuid.Nil
	if order.TechnicianID != nil {
		technicianID = *order.TechnicianID
	}
	return &OrderAssignedEvent{
		BaseDomainEvent: shared.NewBaseDomainEvent(EventTypeOrderAssigned, AggregateTypeServiceOrder, order.ID, order.TenantID),
		OSNumber:        order.OSNumber,
		CustomerID:      order.CustomerID,
		TechnicianID:    technicianID,
		TechnicianName:  order.TechnicianName,
		ActorID:         actorID,
		ScheduledDate:   order.ScheduledDate,
	}
}

// OrderStatusChangedEvent is published on every guarded status transition
type OrderStatusChangedEvent struct {
	shared.BaseDomainEvent
	OSNumber       string      `json:"os_number"`
	CustomerID     uuid.UUID   `json:"customer_id"`
	TechnicianID   *uuid.UUID  `json:"technician_id,omitempty"`
	ActorID        uuid.UUID   `json:"actor_id"`
	PreviousStatus OrderStatus `json:"previous_status"`
	NewStatus      OrderStatus `json:"new_status"`
	CancelReason   string      `json:"cancel_reason,omitempty"`
}

// NewOrderStatusChangedEvent creates a new OrderStatusChangedEvent
func NewOrderStatusChangedEvent(order *ServiceOrder, previous, next OrderStatus, actorID uuid.UUID) *OrderStatusChangedEvent {
	return &OrderStatusChangedEvent{
		BaseDomainEvent: shared.NewBaseDomainEvent(EventTypeOrderStatusChanged, AggregateTypeServiceOrder, order.ID, order.TenantID),
		OSNumber:        order.OSNumber,
		CustomerID:      order.CustomerID,
		TechnicianID:    order.TechnicianID,
		ActorID:         actorID,
		PreviousStatus:  previous,
		NewStatus:       next,
		CancelReason:    order.CancelReason,
	}
}

// OrderCompletedEvent is published when an order completes, carrying the
// final price so billing and notification consumers need no lookup
type OrderCompletedEvent struct {
	shared.BaseDomainEvent
	OSNumber     string          `json:"os_number"`
	CustomerID   uuid.UUID       `json:"customer_id"`
	TechnicianID *uuid.UUID      `json:"technician_id,omitempty"`
	ActorID      uuid.UUID       `json:"actor_id"`
	FinalPrice   decimal.Decimal `json:"final_price"`
	ActualEnd    *time.Time      `json:"actual_end,omitempty"`
}

// NewOrderCompletedEvent creates a new OrderCompletedEvent
func NewOrderCompletedEvent(order *ServiceOrder, actorID uuid.UUID) *OrderCompletedEvent {
	return &OrderCompletedEvent{
		BaseDomainEvent: shared.NewBaseDomainEvent(EventTypeOrderCompleted, AggregateTypeServiceOrder, order.ID, order.TenantID),
		OSNumber:        order.OSNumber,
		CustomerID:      order.CustomerID,
		TechnicianID:    order.TechnicianID,
		ActorID:         actorID,
		FinalPrice:      order.FinalPrice,
		ActualEnd:       order.ActualEnd,
	}
}
