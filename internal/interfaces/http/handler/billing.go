package handler

import (
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	billingapp "github.com/oxfield/backend/internal/application/billing"
	"github.com/oxfield/backend/internal/domain/billing"
	"github.com/oxfield/backend/internal/domain/shared"
)

// BillingHandler handles subscription, invoice and credit HTTP requests
type BillingHandler struct {
	BaseHandler
	billingService *billingapp.BillingService
	creditService  *billingapp.CreditService
}

// NewBillingHandler creates a new billing handler
func NewBillingHandler(billingService *billingapp.BillingService, creditService *billingapp.CreditService) *BillingHandler {
	return &BillingHandler{
		billingService: billingService,
		creditService:  creditService,
	}
}

// CreateSubscription godoc
// @Summary      Create a subscription
// @Description  Start a subscription for the authenticated tenant
// @Tags         billing
// @Accept       json
// @Produce      json
// @Param        request body CreateSubscriptionRequest true "Subscription creation request"
// @Success      201 {object} dto.Response{data=billingapp.SubscriptionDTO}
// @Failure      400 {object} dto.Response{error=dto.ErrorInfo}
// @Failure      401 {object} dto.Response{error=dto.ErrorInfo}
// @Failure      409 {object} dto.Response{error=dto.ErrorInfo}
// @Failure      500 {object} dto.Response{error=dto.ErrorInfo}
// @Security     BearerAuth
// @Router       /billing/subscription [post]
func (h *BillingHandler) CreateSubscription(c *gin.Context) {
	tenantID, err := getTenantID(c)
	if err != nil {
		h.Unauthorized(c, "Tenant context required")
		return
	}

	var req CreateSubscriptionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.BadRequest(c, "Invalid request body")
		return
	}

	seats := make([]billingapp.SeatInput, len(req.Seats))
	for i, seat := range req.Seats {
		seats[i] = billingapp.SeatInput{
			Role:      seat.Role,
			Quantity:  seat.Quantity,
			UnitPrice: seat.UnitPrice,
		}
	}

	sub, err := h.billingService.CreateSubscription(c.Request.Context(), billingapp.CreateSubscriptionInput{
		TenantID:          tenantID,
		PlanEdition:       req.PlanEdition,
		BillingCycleDay:   req.BillingCycleDay,
		MonthlyBaseAmount: req.MonthlyBaseAmount,
		Seats:             seats,
		PaymentMethodRef:  req.PaymentMethodRef,
	})
	if err != nil {
		h.HandleError(c, err)
		return
	}

	h.Created(c, sub)
}

// GetSubscription godoc
// @Summary      Get the subscription
// @Description  Retrieve the authenticated tenant's subscription
// @Tags         billing
// @Accept       json
// @Produce      json
// @Success      200 {object} dto.Response{data=billingapp.SubscriptionDTO}
// @Failure      401 {object} dto.Response{error=dto.ErrorInfo}
// @Failure      404 {object} dto.Response{error=dto.ErrorInfo}
// @Failure      500 {object} dto.Response{error=dto.ErrorInfo}
// @Security     BearerAuth
// @Router       /billing/subscription [get]
func (h *BillingHandler) GetSubscription(c *gin.Context) {
	tenantID, err := getTenantID(c)
	if err != nil {
		h.Unauthorized(c, "Tenant context required")
		return
	}

	sub, err := h.billingService.GetSubscription(c.Request.Context(), tenantID)
	if err != nil {
		h.HandleError(c, err)
		return
	}

	h.Success(c, sub)
}

// CancelSubscription godoc
// @Summary      Cancel the subscription
// @Description  Cancel the authenticated tenant's subscription at the end of the period
// @Tags         billing
// @Accept       json
// @Produce      json
// @Success      200 {object} dto.Response{data=billingapp.SubscriptionDTO}
// @Failure      401 {object} dto.Response{error=dto.ErrorInfo}
// @Failure      404 {object} dto.Response{error=dto.ErrorInfo}
// @Failure      422 {object} dto.Response{error=dto.ErrorInfo}
// @Failure      500 {object} dto.Response{error=dto.ErrorInfo}
// @Security     BearerAuth
// @Router       /billing/subscription [delete]
func (h *BillingHandler) CancelSubscription(c *gin.Context) {
	tenantID, err := getTenantID(c)
	if err != nil {
		h.Unauthorized(c, "Tenant context required")
		return
	}

	sub, err := h.billingService.CancelSubscription(c.Request.Context(), tenantID)
	if err != nil {
		h.HandleError(c, err)
		return
	}

	h.Success(c, sub)
}

// ListInvoices godoc
// @Summary      List invoices
// @Description  Get a paginated list of the tenant's invoices
// @Tags         billing
// @Accept       json
// @Produce      json
// @Param        status query string false "Invoice status" Enums(DRAFT, PENDING, PAID, OVERDUE, CANCELLED, REFUNDED)
// @Param        page query int false "Page number" default(1)
// @Param        page_size query int false "Items per page" default(20) maximum(100)
// @Success      200 {object} dto.Response{data=billingapp.InvoiceListResult}
// @Failure      400 {object} dto.Response{error=dto.ErrorInfo}
// @Failure      401 {object} dto.Response{error=dto.ErrorInfo}
// @Failure      500 {object} dto.Response{error=dto.ErrorInfo}
// @Security     BearerAuth
// @Router       /billing/invoices [get]
func (h *BillingHandler) ListInvoices(c *gin.Context) {
	var query InvoiceListQuery
	if err := c.ShouldBindQuery(&query); err != nil {
		h.BadRequest(c, "Invalid query parameters")
		return
	}

	filter := shared.DefaultFilter()
	if query.Page > 0 {
		filter.Page = query.Page
	}
	if query.PageSize > 0 {
		filter.PageSize = query.PageSize
	}
	filter.Filters = map[string]interface{}{}
	if query.Status != "" {
		filter.Filters["status"] = query.Status
	}

	result, err := h.billingService.ListInvoices(c.Request.Context(), filter)
	if err != nil {
		h.HandleError(c, err)
		return
	}

	h.Success(c, result)
}

// GetInvoice godoc
// @Summary      Get an invoice
// @Description  Retrieve one invoice with its lines
// @Tags         billing
// @Accept       json
// @Produce      json
// @Param        id path string true "Invoice ID" format(uuid)
// @Success      200 {object} dto.Response{data=billingapp.InvoiceDTO}
// @Failure      400 {object} dto.Response{error=dto.ErrorInfo}
// @Failure      401 {object} dto.Response{error=dto.ErrorInfo}
// @Failure      404 {object} dto.Response{error=dto.ErrorInfo}
// @Failure      500 {object} dto.Response{error=dto.ErrorInfo}
// @Security     BearerAuth
// @Router       /billing/invoices/{id} [get]
func (h *BillingHandler) GetInvoice(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		h.BadRequest(c, "Invalid invoice ID")
		return
	}

	invoice, err := h.billingService.GetInvoice(c.Request.Context(), id)
	if err != nil {
		h.HandleError(c, err)
		return
	}

	h.Success(c, invoice)
}

// MarkInvoicePaid godoc
// @Summary      Mark an invoice as paid
// @Description  Settle an invoice against an out-of-band payment
// @Tags         billing
// @Accept       json
// @Produce      json
// @Param        id path string true "Invoice ID" format(uuid)
// @Param        request body MarkInvoicePaidRequest true "Settlement request"
// @Success      200 {object} dto.Response{data=billingapp.InvoiceDTO}
// @Failure      400 {object} dto.Response{error=dto.ErrorInfo}
// @Failure      401 {object} dto.Response{error=dto.ErrorInfo}
// @Failure      404 {object} dto.Response{error=dto.ErrorInfo}
// @Failure      422 {object} dto.Response{error=dto.ErrorInfo}
// @Failure      500 {object} dto.Response{error=dto.ErrorInfo}
// @Security     BearerAuth
// @Router       /billing/invoices/{id}/pay [post]
func (h *BillingHandler) MarkInvoicePaid(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		h.BadRequest(c, "Invalid invoice ID")
		return
	}

	var req MarkInvoicePaidRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.BadRequest(c, "Invalid request body")
		return
	}

	invoice, err := h.billingService.MarkInvoicePaid(c.Request.Context(), id, req.TransactionID)
	if err != nil {
		h.HandleError(c, err)
		return
	}

	h.Success(c, invoice)
}

// GetOverview godoc
// @Summary      Get the billing overview
// @Description  Summarize the tenant's subscription, pending invoices and open amount
// @Tags         billing
// @Accept       json
// @Produce      json
// @Success      200 {object} dto.Response{data=billingapp.BillingOverview}
// @Failure      401 {object} dto.Response{error=dto.ErrorInfo}
// @Failure      404 {object} dto.Response{error=dto.ErrorInfo}
// @Failure      500 {object} dto.Response{error=dto.ErrorInfo}
// @Security     BearerAuth
// @Router       /billing/overview [get]
func (h *BillingHandler) GetOverview(c *gin.Context) {
	tenantID, err := getTenantID(c)
	if err != nil {
		h.Unauthorized(c, "Tenant context required")
		return
	}

	overview, err := h.billingService.GetOverview(c.Request.Context(), tenantID)
	if err != nil {
		h.HandleError(c, err)
		return
	}

	h.Success(c, overview)
}

// PurchaseCredits godoc
// @Summary      Purchase credits
// @Description  Buy a credit package that expires twelve months after purchase
// @Tags         credits
// @Accept       json
// @Produce      json
// @Param        request body PurchaseCreditsRequest true "Credit purchase request"
// @Success      201 {object} dto.Response{data=billingapp.CreditBalanceDTO}
// @Failure      400 {object} dto.Response{error=dto.ErrorInfo}
// @Failure      401 {object} dto.Response{error=dto.ErrorInfo}
// @Failure      500 {object} dto.Response{error=dto.ErrorInfo}
// @Security     BearerAuth
// @Router       /credits/purchase [post]
func (h *BillingHandler) PurchaseCredits(c *gin.Context) {
	tenantID, err := getTenantID(c)
	if err != nil {
		h.Unauthorized(c, "Tenant context required")
		return
	}

	var req PurchaseCreditsRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.BadRequest(c, "Invalid request body")
		return
	}

	balance, err := h.creditService.PurchaseCredits(c.Request.Context(), billingapp.PurchaseCreditsInput{
		TenantID: tenantID,
		Credits:  req.Credits,
	})
	if err != nil {
		h.HandleError(c, err)
		return
	}

	h.Created(c, balance)
}

// ConsumeCredits godoc
// @Summary      Consume credits
// @Description  Spend credits from the oldest non-expired batches first
// @Tags         credits
// @Accept       json
// @Produce      json
// @Param        request body ConsumeCreditsRequest true "Credit consumption request"
// @Success      200 {object} dto.Response{data=MessageData}
// @Failure      400 {object} dto.Response{error=dto.ErrorInfo}
// @Failure      401 {object} dto.Response{error=dto.ErrorInfo}
// @Failure      402 {object} dto.Response{error=dto.ErrorInfo}
// @Failure      500 {object} dto.Response{error=dto.ErrorInfo}
// @Security     BearerAuth
// @Router       /credits/consume [post]
func (h *BillingHandler) ConsumeCredits(c *gin.Context) {
	var req ConsumeCreditsRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.BadRequest(c, "Invalid request body")
		return
	}

	err := h.creditService.ConsumeCredits(c.Request.Context(), billingapp.ConsumeCreditsInput{
		UsageType:   billing.UsageType(req.UsageType),
		Credits:     req.Credits,
		ReferenceID: req.ReferenceID,
		Description: req.Description,
	})
	if err != nil {
		h.HandleError(c, err)
		return
	}

	h.Success(c, MessageData{Message: "Credits consumed"})
}

// GetCreditSummary godoc
// @Summary      Get the credit summary
// @Description  Get the tenant's available credits and non-exhausted batches
// @Tags         credits
// @Accept       json
// @Produce      json
// @Success      200 {object} dto.Response{data=billingapp.CreditSummary}
// @Failure      401 {object} dto.Response{error=dto.ErrorInfo}
// @Failure      500 {object} dto.Response{error=dto.ErrorInfo}
// @Security     BearerAuth
// @Router       /credits [get]
func (h *BillingHandler) GetCreditSummary(c *gin.Context) {
	summary, err := h.creditService.GetSummary(c.Request.Context())
	if err != nil {
		h.HandleError(c, err)
		return
	}

	h.Success(c, summary)
}

// ListCreditUsage godoc
// @Summary      List credit usage
// @Description  Get a paginated history of the tenant's credit spends
// @Tags         credits
// @Accept       json
// @Produce      json
// @Param        usage_type query string false "Usage type" Enums(ORDER_CREATED, SMS, ROUTE_OPTIMIZATION)
// @Param        page query int false "Page number" default(1)
// @Param        page_size query int false "Items per page" default(20) maximum(100)
// @Success      200 {object} dto.Response{data=[]CreditUsageResponse}
// @Failure      400 {object} dto.Response{error=dto.ErrorInfo}
// @Failure      401 {object} dto.Response{error=dto.ErrorInfo}
// @Failure      500 {object} dto.Response{error=dto.ErrorInfo}
// @Security     BearerAuth
// @Router       /credits/usage [get]
func (h *BillingHandler) ListCreditUsage(c *gin.Context) {
	var query CreditUsageListQuery
	if err := c.ShouldBindQuery(&query); err != nil {
		h.BadRequest(c, "Invalid query parameters")
		return
	}

	filter := shared.DefaultFilter()
	if query.Page > 0 {
		filter.Page = query.Page
	}
	if query.PageSize > 0 {
		filter.PageSize = query.PageSize
	}
	filter.Filters = map[string]interface{}{}
	if query.UsageType != "" {
		filter.Filters["usage_type"] = query.UsageType
	}

	usages, total, err := h.creditService.ListUsage(c.Request.Context(), filter)
	if err != nil {
		h.HandleError(c, err)
		return
	}

	responses := make([]CreditUsageResponse, len(usages))
	for i, usage := range usages {
		responses[i] = CreditUsageResponse{
			ID:          usage.ID,
			UsageType:   string(usage.UsageType),
			Credits:     usage.Credits,
			ReferenceID: usage.ReferenceID,
			Description: usage.Description,
			CreatedAt:   usage.CreatedAt,
		}
	}

	h.SuccessWithMeta(c, responses, total, filter.Page, filter.PageSize)
}
