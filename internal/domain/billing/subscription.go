package billing

import (
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/oxfield/backend/internal/domain/shared"
	"github.com/oxfield/backend/internal/domain/shared/valueobject"
)

// SubscriptionStatus represents the status of a subscription
type SubscriptionStatus string

const (
	SubscriptionStatusActive    SubscriptionStatus = "ACTIVE"
	SubscriptionStatusTrialing  SubscriptionStatus = "TRIALING"
	SubscriptionStatusPastDue   SubscriptionStatus = "PAST_DUE"
	SubscriptionStatusSuspended SubscriptionStatus = "SUSPENDED"
	SubscriptionStatusPaused    SubscriptionStatus = "PAUSED"
	SubscriptionStatusCancelled SubscriptionStatus = "CANCELLED"
)

// IsValid checks if the status is a valid SubscriptionStatus
func (s SubscriptionStatus) IsValid() bool {
	switch s {
	case SubscriptionStatusActive, SubscriptionStatusTrialing, SubscriptionStatusPastDue,
		SubscriptionStatusSuspended, SubscriptionStatusPaused, SubscriptionStatusCancelled:
		return true
	}
	return false
}

// SubscriptionItem prices a seat count for one role on top of the base plan
type SubscriptionItem struct {
	ID             uuid.UUID       `gorm:"type:uuid;primaryKey"`
	SubscriptionID uuid.UUID       `gorm:"type:uuid;not null;index"`
	Role           string          `gorm:"type:varchar(50);not null"`
	Quantity       int             `gorm:"not null"`
	UnitPrice      decimal.Decimal `gorm:"type:decimal(12,2);not null"`
	CreatedAt      time.Time
	UpdatedAt      time.Time
}

// TableName returns the table name for GORM
func (SubscriptionItem) TableName() string {
	return "subscription_items"
}

// Total returns quantity * unit price for the item
func (i SubscriptionItem) Total() decimal.Decimal {
	return i.UnitPrice.Mul(decimal.NewFromInt(int64(i.Quantity)))
}

// Subscription is the recurring billing agreement for a tenant.
// A tenant carries at most one non-cancelled subscription.
type Subscription struct {
	shared.TenantAggregateRoot
	PlanEdition        string             `gorm:"type:varchar(20);not null"`
	Status             SubscriptionStatus `gorm:"type:varchar(20);not null;default:'ACTIVE'"`
	BillingCycleDay    int                `gorm:"not null"`
	CurrentPeriodStart time.Time          `gorm:"not null"`
	CurrentPeriodEnd   time.Time          `gorm:"not null"`
	MonthlyBaseAmount  decimal.Decimal    `gorm:"type:decimal(12,2);not null"`
	PaymentMethodRef   string             `gorm:"type:varchar(200)"`
	Items              []SubscriptionItem `gorm:"-"`
	PastDueSince       *time.Time
	SuspendedAt        *time.Time
	CancelledAt        *time.Time
}

// TableName returns the table name for GORM
func (Subscription) TableName() string {
	return "subscriptions"
}

// TenantScoped marks the aggregate for automatic tenant filtering
func (Subscription) TenantScoped() {}

// NewSubscription creates an active subscription starting now.
// billingCycleDay is clamped to 1..28 so every month has the anchor day.
func NewSubscription(tenantID uuid.UUID, planEdition string, billingCycleDay int, monthlyBaseAmount valueobject.Money) (*Subscription, error) {
	if planEdition == "" {
		return nil, shared.NewDomainError("INVALID_PLAN", "Plan edition cannot be empty")
	}
	if billingCycleDay < 1 || billingCycleDay > 28 {
		return nil, shared.NewDomainError("INVALID_CYCLE_DAY", "Billing cycle day must be between 1 and 28")
	}
	if monthlyBaseAmount.IsNegative() {
		return nil, shared.NewDomainError("INVALID_AMOUNT", "Monthly base amount cannot be negative")
	}

	now := time.Now()
	sub := &Subscription{
		TenantAggregateRoot: shared.NewTenantAggregateRoot(tenantID),
		PlanEdition:         planEdition,
		Status:              SubscriptionStatusActive,
		BillingCycleDay:     billingCycleDay,
		CurrentPeriodStart:  now,
		CurrentPeriodEnd:    now.AddDate(0, 1, 0),
		MonthlyBaseAmount:   monthlyBaseAmount.Amount(),
		Items:               make([]SubscriptionItem, 0),
	}

	sub.AddDomainEvent(NewSubscriptionCreatedEvent(sub))

	return sub, nil
}

// SetItem sets the seat count and price for a role, replacing any existing
// entry for the same role
func (s *Subscription) SetItem(role string, quantity int, unitPrice valueobject.Money) error {
	if role == "" {
		return shared.NewDomainError("INVALID_ROLE", "Item role cannot be empty")
	}
	if quantity < 0 {
		return shared.NewDomainError("INVALID_QUANTITY", "Item quantity cannot be negative")
	}
	if unitPrice.IsNegative() {
		return shared.NewDomainError("INVALID_PRICE", "Item unit price cannot be negative")
	}

	now := time.Now()
	for idx := range s.Items {
		if s.Items[idx].Role == role {
			s.Items[idx].Quantity = quantity
			s.Items[idx].UnitPrice = unitPrice.Amount()
			s.Items[idx].UpdatedAt = now
			s.UpdatedAt = now
			return nil
		}
	}

	s.Items = append(s.Items, SubscriptionItem{
		ID:             uuid.New(),
		SubscriptionID: s.ID,
		Role:           role,
		Quantity:       quantity,
		UnitPrice:      unitPrice.Amount(),
		CreatedAt:      now,
		UpdatedAt:      now,
	})
	s.UpdatedAt = now

	return nil
}

// SetPaymentMethod stores the gateway reference used for automatic collection
func (s *Subscription) SetPaymentMethod(ref string) {
	s.PaymentMethodRef = ref
	s.UpdatedAt = time.Now()
	s.IncrementVersion()
}

// HasPaymentMethod returns true if automatic collection can be attempted
func (s *Subscription) HasPaymentMethod() bool {
	return s.PaymentMethodRef != ""
}

// MonthlyTotal returns the base amount plus all per-role seat lines
func (s *Subscription) MonthlyTotal() decimal.Decimal {
	total := s.MonthlyBaseAmount
	for _, item := range s.Items {
		total = total.Add(item.Total())
	}
	return total
}

// RenewPeriod advances the billing period by one month from the current end
func (s *Subscription) RenewPeriod() error {
	if s.Status == SubscriptionStatusCancelled {
		return shared.NewDomainError("INVALID_STATE", "Cannot renew a cancelled subscription")
	}

	s.CurrentPeriodStart = s.CurrentPeriodEnd
	s.CurrentPeriodEnd = s.CurrentPeriodEnd.AddDate(0, 1, 0)
	s.UpdatedAt = time.Now()
	s.IncrementVersion()

	return nil
}

// MarkPastDue flags the subscription after a failed collection attempt
func (s *Subscription) MarkPastDue() error {
	if s.Status == SubscriptionStatusCancelled || s.Status == SubscriptionStatusSuspended {
		return shared.NewDomainError("INVALID_STATE", fmt.Sprintf("Cannot mark %s subscription past due", s.Status))
	}
	if s.Status == SubscriptionStatusPastDue {
		return nil
	}

	oldStatus := s.Status
	now := time.Now()
	s.Status = SubscriptionStatusPastDue
	s.PastDueSince = &now
	s.UpdatedAt = now
	s.IncrementVersion()

	s.AddDomainEvent(NewSubscriptionStatusChangedEvent(s, oldStatus, SubscriptionStatusPastDue))

	return nil
}

// Suspend takes the subscription out of service after the grace window
func (s *Subscription) Suspend() error {
	if s.Status == SubscriptionStatusSuspended {
		return shared.NewDomainError("ALREADY_SUSPENDED", "Subscription is already suspended")
	}
	if s.Status == SubscriptionStatusCancelled {
		return shared.NewDomainError("INVALID_STATE", "Cannot suspend a cancelled subscription")
	}

	oldStatus := s.Status
	now := time.Now()
	s.Status = SubscriptionStatusSuspended
	s.SuspendedAt = &now
	s.UpdatedAt = now
	s.IncrementVersion()

	s.AddDomainEvent(NewSubscriptionStatusChangedEvent(s, oldStatus, SubscriptionStatusSuspended))

	return nil
}

// Reactivate restores a past-due, suspended, or paused subscription
func (s *Subscription) Reactivate() error {
	switch s.Status {
	case SubscriptionStatusPastDue, SubscriptionStatusSuspended, SubscriptionStatusPaused:
	default:
		return shared.NewDomainError("INVALID_STATE", fmt.Sprintf("Cannot reactivate %s subscription", s.Status))
	}

	oldStatus := s.Status
	s.Status = SubscriptionStatusActive
	s.PastDueSince = nil
	s.SuspendedAt = nil
	s.UpdatedAt = time.Now()
	s.IncrementVersion()

	s.AddDomainEvent(NewSubscriptionStatusChangedEvent(s, oldStatus, SubscriptionStatusActive))

	return nil
}

// Pause pauses billing without cancelling
func (s *Subscription) Pause() error {
	if s.Status != SubscriptionStatusActive && s.Status != SubscriptionStatusTrialing {
		return shared.NewDomainError("INVALID_STATE", fmt.Sprintf("Cannot pause %s subscription", s.Status))
	}

	oldStatus := s.Status
	s.Status = SubscriptionStatusPaused
	s.UpdatedAt = time.Now()
	s.IncrementVersion()

	s.AddDomainEvent(NewSubscriptionStatusChangedEvent(s, oldStatus, SubscriptionStatusPaused))

	return nil
}

// Cancel terminates the subscription permanently
func (s *Subscription) Cancel() error {
	if s.Status == SubscriptionStatusCancelled {
		return shared.NewDomainError("ALREADY_CANCELLED", "Subscription is already cancelled")
	}

	oldStatus := s.Status
	now := time.Now()
	s.Status = SubscriptionStatusCancelled
	s.CancelledAt = &now
	s.UpdatedAt = now
	s.IncrementVersion()

	s.AddDomainEvent(NewSubscriptionStatusChangedEvent(s, oldStatus, SubscriptionStatusCancelled))

	return nil
}

// CanUseService returns true while the tenant may keep operating.
// Past-due tenants keep service until the delinquency sweep suspends them.
func (s *Subscription) CanUseService() bool {
	switch s.Status {
	case SubscriptionStatusActive, SubscriptionStatusTrialing, SubscriptionStatusPastDue:
		return true
	}
	return false
}

// IsBillableOn returns true if the monthly run should invoice this
// subscription on the given day of month
func (s *Subscription) IsBillableOn(day int) bool {
	if s.Status != SubscriptionStatusActive && s.Status != SubscriptionStatusPastDue {
		return false
	}
	return s.BillingCycleDay == day
}

// MonthlyTotalMoney returns the monthly total as Money value object
func (s *Subscription) MonthlyTotalMoney() valueobject.Money {
	return valueobject.NewMoneyBRL(s.MonthlyTotal())
}
