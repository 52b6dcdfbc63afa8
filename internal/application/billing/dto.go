package billing

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/oxfield/backend/internal/domain/billing"
)

// PaymentGateway charges and refunds invoices against the payment provider
type PaymentGateway interface {
	// ChargeInvoice attempts to collect the invoice total from the stored
	// payment method and returns the gateway transaction id
	ChargeInvoice(ctx context.Context, invoice *billing.Invoice, paymentMethodRef string) (string, error)

	// RefundInvoice returns the invoice amount to the payer
	RefundInvoice(ctx context.Context, invoice *billing.Invoice) error
}

// Notifier delivers billing notices to tenant contacts
type Notifier interface {
	NotifyTenant(ctx context.Context, tenantID uuid.UUID, subject, message string) error
}

// BillingConfig carries the knobs the billing jobs run with
type BillingConfig struct {
	InvoiceDueDays            int
	DelinquencyGraceDays      int
	CreditExpiryLookaheadDays int
}

// DefaultBillingConfig returns the default billing calendar knobs
func DefaultBillingConfig() BillingConfig {
	return BillingConfig{
		InvoiceDueDays:            10,
		DelinquencyGraceDays:      15,
		CreditExpiryLookaheadDays: 30,
	}
}

// SeatInput prices the seat count for one role
type SeatInput struct {
	Role      string
	Quantity  int
	UnitPrice decimal.Decimal
}

// CreateSubscriptionInput contains input for creating a subscription
type CreateSubscriptionInput struct {
	TenantID          uuid.UUID
	PlanEdition       string
	BillingCycleDay   int
	MonthlyBaseAmount decimal.Decimal
	Seats             []SeatInput
	PaymentMethodRef  string
}

// SubscriptionDTO represents subscription data returned to callers
type SubscriptionDTO struct {
	ID                 uuid.UUID       `json:"id"`
	TenantID           uuid.UUID       `json:"tenant_id"`
	PlanEdition        string          `json:"plan_edition"`
	Status             string          `json:"status"`
	BillingCycleDay    int             `json:"billing_cycle_day"`
	CurrentPeriodStart time.Time       `json:"current_period_start"`
	CurrentPeriodEnd   time.Time       `json:"current_period_end"`
	MonthlyTotal       decimal.Decimal `json:"monthly_total"`
	PastDueSince       *time.Time      `json:"past_due_since,omitempty"`
	CancelledAt        *time.Time      `json:"cancelled_at,omitempty"`
}

// InvoiceLineDTO represents one invoice position
type InvoiceLineDTO struct {
	Position    int             `json:"position"`
	Description string          `json:"description"`
	Quantity    int             `json:"quantity"`
	UnitPrice   decimal.Decimal `json:"unit_price"`
	Total       decimal.Decimal `json:"total"`
}

// InvoiceDTO represents invoice data returned to callers
type InvoiceDTO struct {
	ID             uuid.UUID        `json:"id"`
	InvoiceNumber  string           `json:"invoice_number"`
	SubscriptionID uuid.UUID        `json:"subscription_id"`
	PeriodStart    time.Time        `json:"period_start"`
	PeriodEnd      time.Time        `json:"period_end"`
	Subtotal       decimal.Decimal  `json:"subtotal"`
	TaxAmount      decimal.Decimal  `json:"tax_amount"`
	DiscountAmount decimal.Decimal  `json:"discount_amount"`
	TotalAmount    decimal.Decimal  `json:"total_amount"`
	Status         string           `json:"status"`
	DueDate        *time.Time       `json:"due_date,omitempty"`
	PaidAt         *time.Time       `json:"paid_at,omitempty"`
	Lines          []InvoiceLineDTO `json:"lines,omitempty"`
}

// InvoiceListResult represents a paginated invoice list
type InvoiceListResult struct {
	Invoices []InvoiceDTO `json:"invoices"`
	Total    int64        `json:"total"`
	Page     int          `json:"page"`
	PageSize int          `json:"page_size"`
}

// BillingOverview summarizes the bound tenant's billing position
type BillingOverview struct {
	SubscriptionStatus string          `json:"subscription_status"`
	PlanEdition        string          `json:"plan_edition"`
	MonthlyTotal       decimal.Decimal `json:"monthly_total"`
	PendingInvoices    int             `json:"pending_invoices"`
	OverdueInvoices    int             `json:"overdue_invoices"`
	OpenAmount         decimal.Decimal `json:"open_amount"`
}

// PurchaseCreditsInput contains input for buying a credit package
type PurchaseCreditsInput struct {
	TenantID uuid.UUID
	Credits  int
}

// ConsumeCreditsInput contains input for spending credits.
// The tenant comes from the context binding.
type ConsumeCreditsInput struct {
	UsageType   billing.UsageType
	Credits     int
	ReferenceID *uuid.UUID
	Description string
}

// CreditBalanceDTO represents one credit batch
type CreditBalanceDTO struct {
	ID               uuid.UUID       `json:"id"`
	PurchasedCredits int             `json:"purchased_credits"`
	UsedCredits      int             `json:"used_credits"`
	RemainingCredits int             `json:"remaining_credits"`
	PricePaid        decimal.Decimal `json:"price_paid"`
	PurchasedAt      time.Time       `json:"purchased_at"`
	ExpiresAt        time.Time       `json:"expires_at"`
}

// CreditSummary aggregates the bound tenant's usable credits
type CreditSummary struct {
	AvailableCredits int                `json:"available_credits"`
	Batches          []CreditBalanceDTO `json:"batches"`
}

func toSubscriptionDTO(sub *billing.Subscription) *SubscriptionDTO {
	return &SubscriptionDTO{
		ID:                 sub.ID,
		TenantID:           sub.TenantID,
		PlanEdition:        sub.PlanEdition,
		Status:             string(sub.Status),
		BillingCycleDay:    sub.BillingCycleDay,
		CurrentPeriodStart: sub.CurrentPeriodStart,
		CurrentPeriodEnd:   sub.CurrentPeriodEnd,
		MonthlyTotal:       sub.MonthlyTotal(),
		PastDueSince:       sub.PastDueSince,
		CancelledAt:        sub.CancelledAt,
	}
}

func toInvoiceDTO(inv *billing.Invoice) *InvoiceDTO {
	lines := make([]InvoiceLineDTO, len(inv.Lines))
	for idx, line := range inv.Lines {
		lines[idx] = InvoiceLineDTO{
			Position:    line.Position,
			Description: line.Description,
			Quantity:    line.Quantity,
			UnitPrice:   line.UnitPrice,
			Total:       line.Total,
		}
	}
	return &InvoiceDTO{
		ID:             inv.ID,
		InvoiceNumber:  inv.InvoiceNumber,
		SubscriptionID: inv.SubscriptionID,
		PeriodStart:    inv.PeriodStart,
		PeriodEnd:      inv.PeriodEnd,
		Subtotal:       inv.Subtotal,
		TaxAmount:      inv.TaxAmount,
		DiscountAmount: inv.DiscountAmount,
		TotalAmount:    inv.TotalAmount,
		Status:         string(inv.Status),
		DueDate:        inv.DueDate,
		PaidAt:         inv.PaidAt,
		Lines:          lines,
	}
}

func toCreditBalanceDTO(balance *billing.CreditBalance) CreditBalanceDTO {
	return CreditBalanceDTO{
		ID:               balance.ID,
		PurchasedCredits: balance.PurchasedCredits,
		UsedCredits:      balance.UsedCredits,
		RemainingCredits: balance.RemainingCredits(),
		PricePaid:        balance.PricePaid,
		PurchasedAt:      balance.PurchasedAt,
		ExpiresAt:        balance.ExpiresAt,
	}
}
