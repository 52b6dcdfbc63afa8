package fieldops

import (
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/oxfield/backend/internal/domain/shared"
	"github.com/oxfield/backend/internal/domain/shared/valueobject"
)

// OrderStatus represents the status of a service order
type OrderStatus string

const (
	OrderStatusScheduled  OrderStatus = "SCHEDULED"
	OrderStatusInRoute    OrderStatus = "IN_ROUTE"
	OrderStatusInProgress OrderStatus = "IN_PROGRESS"
	OrderStatusCompleted  OrderStatus = "COMPLETED"
	OrderStatusCancelled  OrderStatus = "CANCELLED"
)

// IsValid checks if the status is a valid OrderStatus
func (s OrderStatus) IsValid() bool {
	switch s {
	case OrderStatusScheduled, OrderStatusInRoute, OrderStatusInProgress, OrderStatusCompleted, OrderStatusCancelled:
		return true
	}
	return false
}

// String returns the string representation of OrderStatus
func (s OrderStatus) String() string {
	return string(s)
}

// IsTerminal returns true for statuses that allow no further transitions
func (s OrderStatus) IsTerminal() bool {
	return s == OrderStatusCompleted || s == OrderStatusCancelled
}

// CanTransitionTo checks if the status can transition to the target status
func (s OrderStatus) CanTransitionTo(target OrderStatus) bool {
	switch s {
	case OrderStatusScheduled:
		return target == OrderStatusInRoute || target == OrderStatusCancelled
	case OrderStatusInRoute:
		return target == OrderStatusInProgress || target == OrderStatusCancelled
	case OrderStatusInProgress:
		return target == OrderStatusCompleted || target == OrderStatusCancelled
	case OrderStatusCompleted, OrderStatusCancelled:
		return false // Terminal states
	}
	return false
}

// PhotoPhase indicates when during the service a photo was taken
type PhotoPhase string

const (
	PhotoPhaseBefore PhotoPhase = "BEFORE"
	PhotoPhaseDuring PhotoPhase = "DURING"
	PhotoPhaseAfter  PhotoPhase = "AFTER"
)

// ChecklistItem is a single task the technician must tick off on site
type ChecklistItem struct {
	ID          uuid.UUID `gorm:"type:uuid;primaryKey"`
	OrderID     uuid.UUID `gorm:"type:uuid;not null;index"`
	Description string    `gorm:"type:varchar(500);not null"`
	Completed   bool      `gorm:"not null;default:false"`
	CompletedAt *time.Time
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

// TableName returns the table name for GORM
func (ChecklistItem) TableName() string {
	return "order_checklist_items"
}

// OrderPhoto records uploaded photographic evidence for an order.
// The upload itself is handled by the storage collaborator; the order only
// records that the evidence exists.
type OrderPhoto struct {
	ID        uuid.UUID  `gorm:"type:uuid;primaryKey"`
	OrderID   uuid.UUID  `gorm:"type:uuid;not null;index"`
	Phase     PhotoPhase `gorm:"type:varchar(10);not null"`
	FileURL   string     `gorm:"type:varchar(500);not null"`
	Path      string     `gorm:"type:varchar(500)"`
	TakenBy   *uuid.UUID `gorm:"type:uuid"`
	CreatedAt time.Time
}

// TableName returns the table name for GORM
func (OrderPhoto) TableName() string {
	return "order_photos"
}

// CompletionPolicy controls which evidence is mandatory to complete an order
type CompletionPolicy struct {
	RequireSignature  bool
	RequireAfterPhoto bool
}

// DefaultCompletionPolicy requires full evidence
func DefaultCompletionPolicy() CompletionPolicy {
	return CompletionPolicy{RequireSignature: true, RequireAfterPhoto: true}
}

// ServiceOrder is the aggregate root for a unit of field work requested by a
// customer and fulfilled by a technician. Status only changes through the
// transition methods; terminal orders are immutable.
type ServiceOrder struct {
	shared.TenantAggregateRoot
	OSNumber        string      `gorm:"type:varchar(50);not null;uniqueIndex:idx_orders_tenant_number"`
	Status          OrderStatus `gorm:"type:varchar(20);not null;default:'SCHEDULED'"`
	CustomerID      uuid.UUID   `gorm:"type:uuid;not null;index"`
	CustomerName    string      `gorm:"type:varchar(200)"`
	TechnicianID    *uuid.UUID  `gorm:"type:uuid;index"`
	TechnicianName  string      `gorm:"type:varchar(200)"`
	Description     string      `gorm:"type:text"`
	ScheduledDate   time.Time   `gorm:"not null;index"`
	ScheduledStart  *time.Time
	DurationMinutes int
	ActualStart     *time.Time
	ActualEnd       *time.Time
	QuotedPrice     decimal.Decimal `gorm:"type:decimal(12,2)"`
	FinalPrice      decimal.Decimal `gorm:"type:decimal(12,2)"`
	Checklist       []ChecklistItem `gorm:"-"`
	Photos          []OrderPhoto    `gorm:"-"`
	SignatureURL    string          `gorm:"type:varchar(500)"`
	SignedAt        *time.Time
	SignerName      string `gorm:"type:varchar(200)"`
	CancelledAt     *time.Time
	CancelReason    string `gorm:"type:varchar(500)"`
}

// TableName returns the table name for GORM
func (ServiceOrder) TableName() string {
	return "service_orders"
}

// TenantScoped marks the aggregate for automatic tenant filtering
func (ServiceOrder) TenantScoped() {}

// NewServiceOrder creates a new service order in SCHEDULED status
func NewServiceOrder(tenantID uuid.UUID, osNumber string, customerID uuid.UUID, customerName, description string, scheduledDate time.Time, quotedPrice valueobject.Money) (*ServiceOrder, error) {
	if osNumber == "" {
		return nil, shared.NewDomainError("INVALID_ORDER_NUMBER", "Order number cannot be empty")
	}
	if len(osNumber) > 50 {
		return nil, shared.NewDomainError("INVALID_ORDER_NUMBER", "Order number cannot exceed 50 characters")
	}
	if customerID == uuid.Nil {
		return nil, shared.NewDomainError("INVALID_CUSTOMER", "Customer ID cannot be empty")
	}
	if scheduledDate.IsZero() {
		return nil, shared.NewDomainError("INVALID_SCHEDULE", "Scheduled date cannot be empty")
	}
	if quotedPrice.IsNegative() {
		return nil, shared.NewDomainError("INVALID_PRICE", "Quoted price cannot be negative")
	}

	order := &ServiceOrder{
		TenantAggregateRoot: shared.NewTenantAggregateRoot(tenantID),
		OSNumber:            osNumber,
		Status:              OrderStatusScheduled,
		CustomerID:          customerID,
		CustomerName:        customerName,
		Description:         description,
		ScheduledDate:       scheduledDate,
		QuotedPrice:         quotedPrice.Amount(),
		FinalPrice:          decimal.Zero,
		Checklist:           make([]ChecklistItem, 0),
		Photos:              make([]OrderPhoto, 0),
	}

	order.AddDomainEvent(NewOrderCreatedEvent(order))

	return order, nil
}

// AssignTechnician assigns a technician to the order.
// Only allowed before the technician starts driving.
func (o *ServiceOrder) AssignTechnician(technicianID uuid.UUID, technicianName string, actorID uuid.UUID) error {
	if o.Status != OrderStatusScheduled {
		return shared.NewDomainError("INVALID_TRANSITION", fmt.Sprintf("Cannot assign technician to order in %s status", o.Status))
	}
	if technicianID == uuid.Nil {
		return shared.NewDomainError("INVALID_TECHNICIAN", "Technician ID cannot be empty")
	}

	o.TechnicianID = &technicianID
	o.TechnicianName = technicianName
	o.UpdatedAt = time.Now()

	o.AddDomainEvent(NewOrderAssignedEvent(o, actorID))

	return nil
}

// StartRoute marks the technician as driving to the customer.
// Calling it when the order is already IN_ROUTE is a no-op so a flaky mobile
// client retrying the call does not fail or emit a duplicate event.
func (o *ServiceOrder) StartRoute(actorID uuid.UUID) error {
	if o.Status == OrderStatusInRoute {
		return nil
	}
	if !o.Status.CanTransitionTo(OrderStatusInRoute) {
		return shared.NewDomainError("INVALID_TRANSITION", fmt.Sprintf("Cannot start route for order in %s status", o.Status))
	}
	if o.TechnicianID == nil {
		return shared.NewDomainError("NO_TECHNICIAN", "Order has no technician assigned")
	}

	previous := o.Status
	o.Status = OrderStatusInRoute
	o.UpdatedAt = time.Now()

	o.AddDomainEvent(NewOrderStatusChangedEvent(o, previous, OrderStatusInRoute, actorID))

	return nil
}

// Arrive marks the technician as on site and stamps the actual start time
func (o *ServiceOrder) Arrive(actorID uuid.UUID) error {
	if !o.Status.CanTransitionTo(OrderStatusInProgress) {
		return shared.NewDomainError("INVALID_TRANSITION", fmt.Sprintf("Cannot arrive for order in %s status", o.Status))
	}

	previous := o.Status
	now := time.Now()
	o.Status = OrderStatusInProgress
	o.ActualStart = &now
	o.UpdatedAt = now

	o.AddDomainEvent(NewOrderStatusChangedEvent(o, previous, OrderStatusInProgress, actorID))

	return nil
}

// Complete finishes the service. The checklist must be fully ticked off and,
// depending on the policy, a customer signature and an after-service photo
// must be on record. Stamps the actual end time and fixes the final price.
func (o *ServiceOrder) Complete(actorID uuid.UUID, policy CompletionPolicy) error {
	if !o.Status.CanTransitionTo(OrderStatusCompleted) {
		return shared.NewDomainError("INVALID_TRANSITION", fmt.Sprintf("Cannot complete order in %s status", o.Status))
	}
	for _, item := range o.Checklist {
		if !item.Completed {
			return shared.NewDomainError("CHECKLIST_INCOMPLETE", fmt.Sprintf("Checklist item %q is not completed", item.Description))
		}
	}
	if policy.RequireSignature && o.SignatureURL == "" {
		return shared.NewDomainError("MISSING_SIGNATURE", "Customer signature is required to complete the order")
	}
	if policy.RequireAfterPhoto && !o.HasPhoto(PhotoPhaseAfter) {
		return shared.NewDomainError("MISSING_PHOTO", "An after-service photo is required to complete the order")
	}

	now := time.Now()
	o.Status = OrderStatusCompleted
	o.ActualEnd = &now
	if o.FinalPrice.IsZero() {
		o.FinalPrice = o.QuotedPrice
	}
	o.UpdatedAt = now

	o.AddDomainEvent(NewOrderCompletedEvent(o, actorID))

	return nil
}

// Cancel cancels the order from any non-terminal status
func (o *ServiceOrder) Cancel(actorID uuid.UUID, reason string) error {
	if !o.Status.CanTransitionTo(OrderStatusCancelled) {
		return shared.NewDomainError("INVALID_TRANSITION", fmt.Sprintf("Cannot cancel order in %s status", o.Status))
	}
	if reason == "" {
		return shared.NewDomainError("INVALID_REASON", "Cancellation reason cannot be empty")
	}

	previous := o.Status
	now := time.Now()
	o.Status = OrderStatusCancelled
	o.CancelledAt = &now
	o.CancelReason = reason
	o.UpdatedAt = now

	o.AddDomainEvent(NewOrderStatusChangedEvent(o, previous, OrderStatusCancelled, actorID))

	return nil
}

// SetFinalPrice overrides the price charged at completion.
// Only allowed while the work is still in progress.
func (o *ServiceOrder) SetFinalPrice(price valueobject.Money) error {
	if o.Status != OrderStatusInProgress {
		return shared.NewDomainError("INVALID_STATE", "Final price can only be set while the order is in progress")
	}
	if price.IsNegative() {
		return shared.NewDomainError("INVALID_PRICE", "Final price cannot be negative")
	}

	o.FinalPrice = price.Amount()
	o.UpdatedAt = time.Now()

	return nil
}

// AddChecklistItem adds a task to the order checklist.
// Not allowed once the order reached a terminal status.
func (o *ServiceOrder) AddChecklistItem(description string) (*ChecklistItem, error) {
	if o.Status.IsTerminal() {
		return nil, shared.NewDomainError("INVALID_STATE", "Cannot modify the checklist of a closed order")
	}
	if description == "" {
		return nil, shared.NewDomainError("INVALID_CHECKLIST_ITEM", "Checklist item description cannot be empty")
	}

	now := time.Now()
	item := ChecklistItem{
		ID:          uuid.New(),
		OrderID:     o.ID,
		Description: description,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	o.Checklist = append(o.Checklist, item)
	o.UpdatedAt = now

	return &item, nil
}

// CompleteChecklistItem ticks off a checklist item
func (o *ServiceOrder) CompleteChecklistItem(itemID uuid.UUID) error {
	if o.Status.IsTerminal() {
		return shared.NewDomainError("INVALID_STATE", "Cannot modify the checklist of a closed order")
	}

	for idx := range o.Checklist {
		if o.Checklist[idx].ID == itemID {
			now := time.Now()
			o.Checklist[idx].Completed = true
			o.Checklist[idx].CompletedAt = &now
			o.Checklist[idx].UpdatedAt = now
			o.UpdatedAt = now
			return nil
		}
	}

	return shared.NewDomainError("ITEM_NOT_FOUND", "Checklist item not found")
}

// IsChecklistComplete returns true when every checklist item is done
func (o *ServiceOrder) IsChecklistComplete() bool {
	for _, item := range o.Checklist {
		if !item.Completed {
			return false
		}
	}
	return true
}

// AttachPhoto records uploaded photo evidence on the order
func (o *ServiceOrder) AttachPhoto(phase PhotoPhase, fileURL, path string, takenBy *uuid.UUID) (*OrderPhoto, error) {
	if o.Status.IsTerminal() {
		return nil, shared.NewDomainError("INVALID_STATE", "Cannot attach photos to a closed order")
	}
	switch phase {
	case PhotoPhaseBefore, PhotoPhaseDuring, PhotoPhaseAfter:
	default:
		return nil, shared.NewDomainError("INVALID_PHOTO_PHASE", "Invalid photo phase")
	}
	if fileURL == "" {
		return nil, shared.NewDomainError("INVALID_PHOTO", "Photo file URL cannot be empty")
	}

	photo := OrderPhoto{
		ID:        uuid.New(),
		OrderID:   o.ID,
		Phase:     phase,
		FileURL:   fileURL,
		Path:      path,
		TakenBy:   takenBy,
		CreatedAt: time.Now(),
	}
	o.Photos = append(o.Photos, photo)
	o.UpdatedAt = photo.CreatedAt

	return &photo, nil
}

// HasPhoto returns true if the order has a photo for the given phase
func (o *ServiceOrder) HasPhoto(phase PhotoPhase) bool {
	for _, p := range o.Photos {
		if p.Phase == phase {
			return true
		}
	}
	return false
}

// AttachSignature records the customer sign-off on the order
func (o *ServiceOrder) AttachSignature(fileURL, signerName string) error {
	if o.Status.IsTerminal() {
		return shared.NewDomainError("INVALID_STATE", "Cannot attach a signature to a closed order")
	}
	if fileURL == "" {
		return shared.NewDomainError("INVALID_SIGNATURE", "Signature file URL cannot be empty")
	}

	now := time.Now()
	o.SignatureURL = fileURL
	o.SignerName = signerName
	o.SignedAt = &now
	o.UpdatedAt = now

	return nil
}

// GetQuotedPriceMoney returns the quoted price as Money value object
func (o *ServiceOrder) GetQuotedPriceMoney() valueobject.Money {
	return valueobject.NewMoneyBRL(o.QuotedPrice)
}

// GetFinalPriceMoney returns the final price as Money value object
func (o *ServiceOrder) GetFinalPriceMoney() valueobject.Money {
	return valueobject.NewMoneyBRL(o.FinalPrice)
}
