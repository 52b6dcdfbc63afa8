package billing

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/oxfield/backend/internal/domain/shared"
)

// Aggregate type constants
const (
	AggregateTypeSubscription  = "Subscription"
	AggregateTypeInvoice       = "Invoice"
	AggregateTypeCreditBalance = "CreditBalance"
)

// Event type constants
const (
	EventTypeSubscriptionCreated       = "SubscriptionCreated"
	EventTypeSubscriptionStatusChanged = "SubscriptionStatusChanged"
	EventTypeInvoiceCreated            = "InvoiceCreated"
	EventTypeInvoiceFinalized          = "InvoiceFinalized"
	EventTypeInvoicePaid               = "InvoicePaid"
	EventTypeInvoiceOverdue            = "InvoiceOverdue"
	EventTypeCreditsPurchased          = "CreditsPurchased"
	EventTypeCreditsConsumed           = "CreditsConsumed"
	EventTypeCreditsExpiring           = "CreditsExpiring"
)

// SubscriptionCreatedEvent is published when a tenant signs up for a plan
type SubscriptionCreatedEvent struct {
	shared.BaseDomainEvent
	PlanEdition     string          `json:"plan_edition"`
	BillingCycleDay int             `json:"billing_cycle_day"`
	MonthlyBase     decimal.Decimal `json:"monthly_base"`
}

// NewSubscriptionCreatedEvent creates a new SubscriptionCreatedEvent
func NewSubscriptionCreatedEvent(sub *Subscription) *SubscriptionCreatedEvent {
	return &SubscriptionCreatedEvent{
		BaseDomainEvent: shared.NewBaseDomainEvent(EventTypeSubscriptionCreated, AggregateTypeSubscription, sub.ID, sub.TenantID),
		PlanEdition:     sub.PlanEdition,
		BillingCycleDay: sub.BillingCycleDay,
		MonthlyBase:     sub.MonthlyBaseAmount,
	}
}

// SubscriptionStatusChangedEvent is published on every subscription
// status transition so downstream consumers can suspend or restore access
type SubscriptionStatusChangedEvent struct {
	shared.BaseDomainEvent
	PlanEdition    string             `json:"plan_edition"`
	PreviousStatus SubscriptionStatus `json:"previous_status"`
	NewStatus      SubscriptionStatus `json:"new_status"`
}

// NewSubscriptionStatusChangedEvent creates a new SubscriptionStatusChangedEvent
func NewSubscriptionStatusChangedEvent(sub *Subscription, previous, next SubscriptionStatus) *SubscriptionStatusChangedEvent {
	return &SubscriptionStatusChangedEvent{
		BaseDomainEvent: shared.NewBaseDomainEvent(EventTypeSubscriptionStatusChanged, AggregateTypeSubscription, sub.ID, sub.TenantID),
		PlanEdition:     sub.PlanEdition,
		PreviousStatus:  previous,
		NewStatus:       next,
	}
}

// InvoiceCreatedEvent is published when a draft invoice is opened for a period
type InvoiceCreatedEvent struct {
	shared.BaseDomainEvent
	InvoiceNumber  string    `json:"invoice_number"`
	SubscriptionID uuid.UUID `json:"subscription_id"`
	PeriodStart    time.Time `json:"period_start"`
	PeriodEnd      time.Time `json:"period_end"`
}

// NewInvoiceCreatedEvent creates a new InvoiceCreatedEvent
func NewInvoiceCreatedEvent(inv *Invoice) *InvoiceCreatedEvent {
	return &InvoiceCreatedEvent{
		BaseDomainEvent: shared.NewBaseDomainEvent(EventTypeInvoiceCreated, AggregateTypeInvoice, inv.ID, inv.TenantID),
		InvoiceNumber:   inv.InvoiceNumber,
		SubscriptionID:  inv.SubscriptionID,
		PeriodStart:     inv.PeriodStart,
		PeriodEnd:       inv.PeriodEnd,
	}
}

// InvoiceFinalizedEvent is published when an invoice becomes payable
type InvoiceFinalizedEvent struct {
	shared.BaseDomainEvent
	InvoiceNumber string          `json:"invoice_number"`
	TotalAmount   decimal.Decimal `json:"total_amount"`
	DueDate       *time.Time      `json:"due_date,omitempty"`
}

// NewInvoiceFinalizedEvent creates a new InvoiceFinalizedEvent
func NewInvoiceFinalizedEvent(inv *Invoice) *InvoiceFinalizedEvent {
	return &InvoiceFinalizedEvent{
		BaseDomainEvent: shared.NewBaseDomainEvent(EventTypeInvoiceFinalized, AggregateTypeInvoice, inv.ID, inv.TenantID),
		InvoiceNumber:   inv.InvoiceNumber,
		TotalAmount:     inv.TotalAmount,
		DueDate:         inv.DueDate,
	}
}

// InvoicePaidEvent is published when a payment settles an invoice
type InvoicePaidEvent struct {
	shared.BaseDomainEvent
	InvoiceNumber string          `json:"invoice_number"`
	TotalAmount   decimal.Decimal `json:"total_amount"`
	TransactionID string          `json:"transaction_id,omitempty"`
}

// NewInvoicePaidEvent creates a new InvoicePaidEvent
func NewInvoicePaidEvent(inv *Invoice) *InvoicePaidEvent {
	return &InvoicePaidEvent{
		BaseDomainEvent: shared.NewBaseDomainEvent(EventTypeInvoicePaid, AggregateTypeInvoice, inv.ID, inv.TenantID),
		InvoiceNumber:   inv.InvoiceNumber,
		TotalAmount:     inv.TotalAmount,
		TransactionID:   inv.TransactionID,
	}
}

// InvoiceOverdueEvent is published when the overdue sweep flags an invoice
type InvoiceOverdueEvent struct {
	shared.BaseDomainEvent
	InvoiceNumber string          `json:"invoice_number"`
	TotalAmount   decimal.Decimal `json:"total_amount"`
	DueDate       *time.Time      `json:"due_date,omitempty"`
}

// NewInvoiceOverdueEvent creates a new InvoiceOverdueEvent
func NewInvoiceOverdueEvent(inv *Invoice) *InvoiceOverdueEvent {
	return &InvoiceOverdueEvent{
		BaseDomainEvent: shared.NewBaseDomainEvent(EventTypeInvoiceOverdue, AggregateTypeInvoice, inv.ID, inv.TenantID),
		InvoiceNumber:   inv.InvoiceNumber,
		TotalAmount:     inv.TotalAmount,
		DueDate:         inv.DueDate,
	}
}

// CreditsPurchasedEvent is published when a credit package is granted
type CreditsPurchasedEvent struct {
	shared.BaseDomainEvent
	Credits   int             `json:"credits"`
	PricePaid decimal.Decimal `json:"price_paid"`
	ExpiresAt time.Time       `json:"expires_at"`
}

// NewCreditsPurchasedEvent creates a new CreditsPurchasedEvent
func NewCreditsPurchasedEvent(balance *CreditBalance) *CreditsPurchasedEvent {
	return &CreditsPurchasedEvent{
		BaseDomainEvent: shared.NewBaseDomainEvent(EventTypeCreditsPurchased, AggregateTypeCreditBalance, balance.ID, balance.TenantID),
		Credits:         balance.PurchasedCredits,
		PricePaid:       balance.PricePaid,
		ExpiresAt:       balance.ExpiresAt,
	}
}

// CreditsConsumedEvent is published when credits are spent on an operation
type CreditsConsumedEvent struct {
	shared.BaseDomainEvent
	Credits   int       `json:"credits"`
	UsageType UsageType `json:"usage_type"`
	Remaining int       `json:"remaining"`
}

// NewCreditsConsumedEvent creates a new CreditsConsumedEvent
func NewCreditsConsumedEvent(balance *CreditBalance, credits int, usageType UsageType) *CreditsConsumedEvent {
	return &CreditsConsumedEvent{
		BaseDomainEvent: shared.NewBaseDomainEvent(EventTypeCreditsConsumed, AggregateTypeCreditBalance, balance.ID, balance.TenantID),
		Credits:         credits,
		UsageType:       usageType,
		Remaining:       balance.RemainingCredits(),
	}
}

// CreditsExpiringEvent is published by the expiry sweep as an advance notice
type CreditsExpiringEvent struct {
	shared.BaseDomainEvent
	Credits   int       `json:"credits"`
	ExpiresAt time.Time `json:"expires_at"`
}

// NewCreditsExpiringEvent creates a new CreditsExpiringEvent
func NewCreditsExpiringEvent(balance *CreditBalance) *CreditsExpiringEvent {
	return &CreditsExpiringEvent{
		BaseDomainEvent: shared.NewBaseDomainEvent(EventTypeCreditsExpiring, AggregateTypeCreditBalance, balance.ID, balance.TenantID),
		Credits:         balance.RemainingCredits(),
		ExpiresAt:       balance.ExpiresAt,
	}
}
