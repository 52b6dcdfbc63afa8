package handler

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// =====================
// Billing Request DTOs
// =====================

// SeatRequest prices the seat count for one role
type SeatRequest struct {
	Role      string          `json:"role" binding:"required,max=50"`
	Quantity  int             `json:"quantity" binding:"required,min=1"`
	UnitPrice decimal.Decimal `json:"unit_price" binding:"required"`
}

// CreateSubscriptionRequest represents the request body for creating a subscription
type CreateSubscriptionRequest struct {
	PlanEdition       string          `json:"plan_edition" binding:"required,oneof=STARTER PROFESSIONAL ENTERPRISE"`
	BillingCycleDay   int             `json:"billing_cycle_day" binding:"required,min=1,max=28"`
	MonthlyBaseAmount decimal.Decimal `json:"monthly_base_amount" binding:"required"`
	Seats             []SeatRequest   `json:"seats" binding:"omitempty,dive"`
	PaymentMethodRef  string          `json:"payment_method_ref" binding:"omitempty,max=200"`
}

// MarkInvoicePaidRequest represents the request body for settling an invoice manually
type MarkInvoicePaidRequest struct {
	TransactionID string `json:"transaction_id" binding:"required,max=200"`
}

// InvoiceListQuery represents query parameters for listing invoices
type InvoiceListQuery struct {
	Status   string `form:"status" binding:"omitempty,oneof=DRAFT PENDING PAID OVERDUE CANCELLED REFUNDED"`
	Page     int    `form:"page" binding:"omitempty,min=1"`
	PageSize int    `form:"page_size" binding:"omitempty,min=1,max=100"`
}

// PurchaseCreditsRequest represents the request body for buying a credit package
type PurchaseCreditsRequest struct {
	Credits int `json:"credits" binding:"required,min=1"`
}

// ConsumeCreditsRequest represents the request body for spending credits
type ConsumeCreditsRequest struct {
	UsageType   string     `json:"usage_type" binding:"required,oneof=ORDER_CREATED SMS ROUTE_OPTIMIZATION"`
	Credits     int        `json:"credits" binding:"required,min=1"`
	ReferenceID *uuid.UUID `json:"reference_id"`
	Description string     `json:"description" binding:"omitempty,max=500"`
}

// CreditUsageListQuery represents query parameters for listing credit usage
type CreditUsageListQuery struct {
	UsageType string `form:"usage_type" binding:"omitempty,oneof=ORDER_CREATED SMS ROUTE_OPTIMIZATION"`
	Page      int    `form:"page" binding:"omitempty,min=1"`
	PageSize  int    `form:"page_size" binding:"omitempty,min=1,max=100"`
}

// =====================
// Billing Response DTOs
// =====================

// CreditUsageResponse represents one credit spend in API responses
type CreditUsageResponse struct {
	ID          uuid.UUID  `json:"id"`
	UsageType   string     `json:"usage_type"`
	Credits     int        `json:"credits"`
	ReferenceID *uuid.UUID `json:"reference_id,omitempty"`
	Description string     `json:"description,omitempty"`
	CreatedAt   time.Time  `json:"created_at"`
}
