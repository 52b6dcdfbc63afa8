package billing

import (
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/oxfield/backend/internal/domain/shared"
	"github.com/oxfield/backend/internal/domain/shared/valueobject"
)

// InvoiceStatus represents the status of an invoice
type InvoiceStatus string

const (
	InvoiceStatusDraft     InvoiceStatus = "DRAFT"
	InvoiceStatusPending   InvoiceStatus = "PENDING"
	InvoiceStatusPaid      InvoiceStatus = "PAID"
	InvoiceStatusOverdue   InvoiceStatus = "OVERDUE"
	InvoiceStatusCancelled InvoiceStatus = "CANCELLED"
	InvoiceStatusRefunded  InvoiceStatus = "REFUNDED"
)

// IsValid checks if the status is a valid InvoiceStatus
func (s InvoiceStatus) IsValid() bool {
	switch s {
	case InvoiceStatusDraft, InvoiceStatusPending, InvoiceStatusPaid,
		InvoiceStatusOverdue, InvoiceStatusCancelled, InvoiceStatusRefunded:
		return true
	}
	return false
}

// InvoiceLine is one priced position on an invoice
type InvoiceLine struct {
	ID          uuid.UUID       `gorm:"type:uuid;primaryKey"`
	InvoiceID   uuid.UUID       `gorm:"type:uuid;not null;index"`
	Position    int             `gorm:"not null"`
	Description string          `gorm:"type:varchar(500);not null"`
	Quantity    int             `gorm:"not null"`
	UnitPrice   decimal.Decimal `gorm:"type:decimal(12,2);not null"`
	Total       decimal.Decimal `gorm:"type:decimal(12,2);not null"`
	CreatedAt   time.Time
}

// TableName returns the table name for GORM
func (InvoiceLine) TableName() string {
	return "invoice_lines"
}

// Invoice is the billing document generated for a subscription period.
// Totals are recomputed on every line mutation so that
// total = subtotal + tax - discount and subtotal = sum of line totals
// always hold.
type Invoice struct {
	shared.TenantAggregateRoot
	SubscriptionID uuid.UUID       `gorm:"type:uuid;not null;index;uniqueIndex:idx_invoices_subscription_period,priority:1"`
	InvoiceNumber  string          `gorm:"type:varchar(50);not null;uniqueIndex"`
	PeriodStart    time.Time       `gorm:"not null;uniqueIndex:idx_invoices_subscription_period,priority:2"`
	PeriodEnd      time.Time       `gorm:"not null"`
	Subtotal       decimal.Decimal `gorm:"type:decimal(12,2);not null"`
	TaxAmount      decimal.Decimal `gorm:"type:decimal(12,2);not null"`
	DiscountAmount decimal.Decimal `gorm:"type:decimal(12,2);not null"`
	TotalAmount    decimal.Decimal `gorm:"type:decimal(12,2);not null"`
	Status         InvoiceStatus   `gorm:"type:varchar(20);not null;default:'DRAFT'"`
	DueDate        *time.Time
	PaidAt         *time.Time
	TransactionID  string        `gorm:"type:varchar(200)"`
	Lines          []InvoiceLine `gorm:"-"`
}

// TableName returns the table name for GORM
func (Invoice) TableName() string {
	return "invoices"
}

// TenantScoped marks the aggregate for automatic tenant filtering
func (Invoice) TenantScoped() {}

// NewInvoice creates a draft invoice for a subscription period
func NewInvoice(tenantID, subscriptionID uuid.UUID, invoiceNumber string, periodStart, periodEnd time.Time) (*Invoice, error) {
	if subscriptionID == uuid.Nil {
		return nil, shared.NewDomainError("INVALID_SUBSCRIPTION", "Subscription ID cannot be empty")
	}
	if invoiceNumber == "" {
		return nil, shared.NewDomainError("INVALID_INVOICE_NUMBER", "Invoice number cannot be empty")
	}
	if !periodEnd.After(periodStart) {
		return nil, shared.NewDomainError("INVALID_PERIOD", "Period end must be after period start")
	}

	inv := &Invoice{
		TenantAggregateRoot: shared.NewTenantAggregateRoot(tenantID),
		SubscriptionID:      subscriptionID,
		InvoiceNumber:       invoiceNumber,
		PeriodStart:         periodStart,
		PeriodEnd:           periodEnd,
		Subtotal:            decimal.Zero,
		TaxAmount:           decimal.Zero,
		DiscountAmount:      decimal.Zero,
		TotalAmount:         decimal.Zero,
		Status:              InvoiceStatusDraft,
		Lines:               make([]InvoiceLine, 0),
	}

	inv.AddDomainEvent(NewInvoiceCreatedEvent(inv))

	return inv, nil
}

// AddLine appends a priced position and recalculates totals.
// Only allowed while the invoice is a draft.
func (i *Invoice) AddLine(description string, quantity int, unitPrice valueobject.Money) (*InvoiceLine, error) {
	if i.Status != InvoiceStatusDraft {
		return nil, shared.NewDomainError("INVALID_STATE", "Cannot add lines to a finalized invoice")
	}
	if description == "" {
		return nil, shared.NewDomainError("INVALID_LINE", "Line description cannot be empty")
	}
	if quantity <= 0 {
		return nil, shared.NewDomainError("INVALID_QUANTITY", "Line quantity must be positive")
	}
	if unitPrice.IsNegative() {
		return nil, shared.NewDomainError("INVALID_PRICE", "Line unit price cannot be negative")
	}

	line := InvoiceLine{
		ID:          uuid.New(),
		InvoiceID:   i.ID,
		Position:    len(i.Lines) + 1,
		Description: description,
		Quantity:    quantity,
		UnitPrice:   unitPrice.Amount(),
		Total:       unitPrice.Amount().Mul(decimal.NewFromInt(int64(quantity))),
		CreatedAt:   time.Now(),
	}
	i.Lines = append(i.Lines, line)
	i.recalculateTotals()
	i.UpdatedAt = time.Now()

	return &line, nil
}

// RemoveLine deletes a draft line and recalculates totals
func (i *Invoice) RemoveLine(lineID uuid.UUID) error {
	if i.Status != InvoiceStatusDraft {
		return shared.NewDomainError("INVALID_STATE", "Cannot remove lines from a finalized invoice")
	}

	for idx, line := range i.Lines {
		if line.ID == lineID {
			i.Lines = append(i.Lines[:idx], i.Lines[idx+1:]...)
			for pos := range i.Lines {
				i.Lines[pos].Position = pos + 1
			}
			i.recalculateTotals()
			i.UpdatedAt = time.Now()
			return nil
		}
	}

	return shared.NewDomainError("LINE_NOT_FOUND", "Invoice line not found")
}

// SetTax sets the tax amount and recalculates the total
func (i *Invoice) SetTax(tax valueobject.Money) error {
	if i.Status != InvoiceStatusDraft {
		return shared.NewDomainError("INVALID_STATE", "Cannot change tax on a finalized invoice")
	}
	if tax.IsNegative() {
		return shared.NewDomainError("INVALID_TAX", "Tax amount cannot be negative")
	}

	i.TaxAmount = tax.Amount()
	i.recalculateTotals()
	i.UpdatedAt = time.Now()

	return nil
}

// SetDiscount sets the discount amount and recalculates the total
func (i *Invoice) SetDiscount(discount valueobject.Money) error {
	if i.Status != InvoiceStatusDraft {
		return shared.NewDomainError("INVALID_STATE", "Cannot change discount on a finalized invoice")
	}
	if discount.IsNegative() {
		return shared.NewDomainError("INVALID_DISCOUNT", "Discount amount cannot be negative")
	}
	if discount.Amount().GreaterThan(i.Subtotal.Add(i.TaxAmount)) {
		return shared.NewDomainError("INVALID_DISCOUNT", "Discount cannot exceed subtotal plus tax")
	}

	i.DiscountAmount = discount.Amount()
	i.recalculateTotals()
	i.UpdatedAt = time.Now()

	return nil
}

func (i *Invoice) recalculateTotals() {
	subtotal := decimal.Zero
	for _, line := range i.Lines {
		subtotal = subtotal.Add(line.Total)
	}
	i.Subtotal = subtotal
	i.TotalAmount = subtotal.Add(i.TaxAmount).Sub(i.DiscountAmount)
}

// Finalize moves the draft to PENDING and sets the due date
func (i *Invoice) Finalize(dueInDays int) error {
	if i.Status != InvoiceStatusDraft {
		return shared.NewDomainError("INVALID_STATE", fmt.Sprintf("Cannot finalize invoice in %s status", i.Status))
	}
	if len(i.Lines) == 0 {
		return shared.NewDomainError("NO_LINES", "Cannot finalize an invoice without lines")
	}
	if dueInDays < 0 {
		return shared.NewDomainError("INVALID_DUE_DAYS", "Due days cannot be negative")
	}

	due := i.PeriodEnd.AddDate(0, 0, dueInDays)
	i.Status = InvoiceStatusPending
	i.DueDate = &due
	i.UpdatedAt = time.Now()

	i.AddDomainEvent(NewInvoiceFinalizedEvent(i))

	return nil
}

// MarkPaid records a successful payment with the gateway transaction id
func (i *Invoice) MarkPaid(transactionID string) error {
	if i.Status != InvoiceStatusPending && i.Status != InvoiceStatusOverdue {
		return shared.NewDomainError("INVALID_STATE", fmt.Sprintf("Cannot pay invoice in %s status", i.Status))
	}

	now := time.Now()
	i.Status = InvoiceStatusPaid
	i.PaidAt = &now
	i.TransactionID = transactionID
	i.UpdatedAt = now

	i.AddDomainEvent(NewInvoicePaidEvent(i))

	return nil
}

// MarkOverdue promotes a pending invoice past its due date
func (i *Invoice) MarkOverdue() error {
	if i.Status != InvoiceStatusPending {
		return shared.NewDomainError("INVALID_STATE", fmt.Sprintf("Cannot mark invoice in %s status overdue", i.Status))
	}

	i.Status = InvoiceStatusOverdue
	i.UpdatedAt = time.Now()

	i.AddDomainEvent(NewInvoiceOverdueEvent(i))

	return nil
}

// IsPastDue returns true if the invoice is pending and its due date passed
func (i *Invoice) IsPastDue(now time.Time) bool {
	return i.Status == InvoiceStatusPending && i.DueDate != nil && now.After(*i.DueDate)
}

// Cancel voids an unpaid invoice
func (i *Invoice) Cancel() error {
	switch i.Status {
	case InvoiceStatusDraft, InvoiceStatusPending, InvoiceStatusOverdue:
	default:
		return shared.NewDomainError("INVALID_STATE", fmt.Sprintf("Cannot cancel invoice in %s status", i.Status))
	}

	i.Status = InvoiceStatusCancelled
	i.UpdatedAt = time.Now()

	return nil
}

// Refund marks a paid invoice as refunded
func (i *Invoice) Refund() error {
	if i.Status != InvoiceStatusPaid {
		return shared.NewDomainError("INVALID_STATE", "Only paid invoices can be refunded")
	}

	i.Status = InvoiceStatusRefunded
	i.UpdatedAt = time.Now()

	return nil
}

// TotalMoney returns the total amount as Money value object
func (i *Invoice) TotalMoney() valueobject.Money {
	return valueobject.NewMoneyBRL(i.TotalAmount)
}
