package billing

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/oxfield/backend/internal/domain/billing"
	"github.com/oxfield/backend/internal/domain/identity"
	"github.com/oxfield/backend/internal/domain/shared"
	"github.com/oxfield/backend/internal/domain/shared/valueobject"
	"github.com/oxfield/backend/internal/infrastructure/logger"
)

// BillingService runs the subscription lifecycle, the monthly invoicing run,
// and the overdue and delinquency sweeps.
type BillingService struct {
	subRepo    billing.SubscriptionRepository
	invRepo    billing.InvoiceRepository
	tenantRepo identity.TenantRepository
	gateway    PaymentGateway
	notifier   Notifier
	config     BillingConfig
	logger     *zap.Logger
}

// NewBillingService creates a new billing service
func NewBillingService(
	subRepo billing.SubscriptionRepository,
	invRepo billing.InvoiceRepository,
	tenantRepo identity.TenantRepository,
	gateway PaymentGateway,
	notifier Notifier,
	config BillingConfig,
	log *zap.Logger,
) *BillingService {
	return &BillingService{
		subRepo:    subRepo,
		invRepo:    invRepo,
		tenantRepo: tenantRepo,
		gateway:    gateway,
		notifier:   notifier,
		config:     config,
		logger:     log,
	}
}

// CreateSubscription opens the tenant's recurring billing agreement.
// A tenant carries at most one non-cancelled subscription.
func (s *BillingService) CreateSubscription(ctx context.Context, input CreateSubscriptionInput) (*SubscriptionDTO, error) {
	existing, err := s.subRepo.FindByTenant(ctx, input.TenantID)
	if err != nil && err != shared.ErrNotFound {
		s.logger.Error("Failed to check existing subscription", zap.Error(err))
		return nil, shared.NewDomainError("INTERNAL_ERROR", "Failed to check existing subscription")
	}
	if existing != nil {
		return nil, shared.NewDomainError("SUBSCRIPTION_EXISTS", "Tenant already has a subscription")
	}

	sub, err := billing.NewSubscription(input.TenantID, input.PlanEdition, input.BillingCycleDay, valueobject.NewMoneyBRL(input.MonthlyBaseAmount))
	if err != nil {
		return nil, err
	}
	for _, seat := range input.Seats {
		if err := sub.SetItem(seat.Role, seat.Quantity, valueobject.NewMoneyBRL(seat.UnitPrice)); err != nil {
			return nil, err
		}
	}
	if input.PaymentMethodRef != "" {
		sub.SetPaymentMethod(input.PaymentMethodRef)
	}

	err = s.subRepo.WithTx(ctx, func(tx interface{}) error {
		return s.subRepo.SaveWithEvents(ctx, tx, sub)
	})
	if err != nil {
		s.logger.Error("Failed to save subscription", zap.Error(err))
		return nil, shared.NewDomainError("INTERNAL_ERROR", "Failed to create subscription")
	}

	s.updateTenantMRR(ctx, sub.TenantID, sub.MonthlyTotal())

	s.logger.Info("Subscription created",
		zap.String("tenant_id", sub.TenantID.String()),
		zap.String("subscription_id", sub.ID.String()),
		zap.String("plan", sub.PlanEdition))

	return toSubscriptionDTO(sub), nil
}

// GetSubscription returns the tenant's current subscription
func (s *BillingService) GetSubscription(ctx context.Context, tenantID uuid.UUID) (*SubscriptionDTO, error) {
	sub, err := s.subRepo.FindByTenant(ctx, tenantID)
	if err != nil {
		if err == shared.ErrNotFound {
			return nil, shared.NewDomainError("SUBSCRIPTION_NOT_FOUND", "Tenant has no subscription")
		}
		return nil, shared.NewDomainError("INTERNAL_ERROR", "Failed to load subscription")
	}
	return toSubscriptionDTO(sub), nil
}

// CancelSubscription terminates the tenant's subscription permanently
func (s *BillingService) CancelSubscription(ctx context.Context, tenantID uuid.UUID) (*SubscriptionDTO, error) {
	sub, err := s.subRepo.FindByTenant(ctx, tenantID)
	if err != nil {
		if err == shared.ErrNotFound {
			return nil, shared.NewDomainError("SUBSCRIPTION_NOT_FOUND", "Tenant has no subscription")
		}
		return nil, shared.NewDomainError("INTERNAL_ERROR", "Failed to load subscription")
	}

	if err := sub.Cancel(); err != nil {
		return nil, err
	}

	err = s.subRepo.WithTx(ctx, func(tx interface{}) error {
		return s.subRepo.SaveWithEvents(ctx, tx, sub)
	})
	if err != nil {
		s.logger.Error("Failed to cancel subscription", zap.Error(err))
		return nil, shared.NewDomainError("INTERNAL_ERROR", "Failed to cancel subscription")
	}

	s.updateTenantMRR(ctx, sub.TenantID, decimal.Zero)

	return toSubscriptionDTO(sub), nil
}

// ListInvoices lists the bound tenant's invoices
func (s *BillingService) ListInvoices(ctx context.Context, filter shared.Filter) (*InvoiceListResult, error) {
	invoices, total, err := s.invRepo.FindByTenant(ctx, filter)
	if err != nil {
		s.logger.Error("Failed to list invoices", zap.Error(err))
		return nil, shared.NewDomainError("INTERNAL_ERROR", "Failed to list invoices")
	}

	dtos := make([]InvoiceDTO, len(invoices))
	for idx := range invoices {
		dtos[idx] = *toInvoiceDTO(&invoices[idx])
	}

	return &InvoiceListResult{
		Invoices: dtos,
		Total:    total,
		Page:     filter.Page,
		PageSize: filter.PageSize,
	}, nil
}

// GetInvoice returns one invoice of the bound tenant
func (s *BillingService) GetInvoice(ctx context.Context, id uuid.UUID) (*InvoiceDTO, error) {
	inv, err := s.invRepo.FindByID(ctx, id)
	if err != nil {
		if err == shared.ErrNotFound {
			return nil, shared.NewDomainError("INVOICE_NOT_FOUND", "Invoice not found")
		}
		return nil, shared.NewDomainError("INTERNAL_ERROR", "Failed to load invoice")
	}
	return toInvoiceDTO(inv), nil
}

// GetOverview summarizes the bound tenant's billing position
func (s *BillingService) GetOverview(ctx context.Context, tenantID uuid.UUID) (*BillingOverview, error) {
	sub, err := s.subRepo.FindByTenant(ctx, tenantID)
	if err != nil {
		if err == shared.ErrNotFound {
			return nil, shared.NewDomainError("SUBSCRIPTION_NOT_FOUND", "Tenant has no subscription")
		}
		return nil, shared.NewDomainError("INTERNAL_ERROR", "Failed to load subscription")
	}

	invoices, _, err := s.invRepo.FindByTenant(ctx, shared.Filter{Page: 1, PageSize: 200, OrderBy: "created_at", OrderDir: "desc"})
	if err != nil {
		return nil, shared.NewDomainError("INTERNAL_ERROR", "Failed to load invoices")
	}

	overview := &BillingOverview{
		SubscriptionStatus: string(sub.Status),
		PlanEdition:        sub.PlanEdition,
		MonthlyTotal:       sub.MonthlyTotal(),
		OpenAmount:         decimal.Zero,
	}
	for idx := range invoices {
		switch invoices[idx].Status {
		case billing.InvoiceStatusPending:
			overview.PendingInvoices++
			overview.OpenAmount = overview.OpenAmount.Add(invoices[idx].TotalAmount)
		case billing.InvoiceStatusOverdue:
			overview.OverdueInvoices++
			overview.OpenAmount = overview.OpenAmount.Add(invoices[idx].TotalAmount)
		}
	}

	return overview, nil
}

// MarkInvoicePaid records an out-of-band payment and restores a past-due
// subscription and delinquent tenant.
func (s *BillingService) MarkInvoicePaid(ctx context.Context, invoiceID uuid.UUID, transactionID string) (*InvoiceDTO, error) {
	inv, err := s.invRepo.FindByID(ctx, invoiceID)
	if err != nil {
		if err == shared.ErrNotFound {
			return nil, shared.NewDomainError("INVOICE_NOT_FOUND", "Invoice not found")
		}
		return nil, shared.NewDomainError("INTERNAL_ERROR", "Failed to load invoice")
	}

	if err := inv.MarkPaid(transactionID); err != nil {
		return nil, err
	}

	err = s.invRepo.WithTx(ctx, func(tx interface{}) error {
		return s.invRepo.SaveWithEvents(ctx, tx, inv)
	})
	if err != nil {
		s.logger.Error("Failed to save paid invoice", zap.Error(err))
		return nil, shared.NewDomainError("INTERNAL_ERROR", "Failed to record payment")
	}

	s.restoreAfterPayment(ctx, inv)

	return toInvoiceDTO(inv), nil
}

// RunMonthlyBilling invoices every subscription whose cycle day matches the
// run date. Failures are isolated per tenant so one broken tenant cannot
// block the rest of the run.
func (s *BillingService) RunMonthlyBilling(ctx context.Context, runAt time.Time) (succeeded, failed int) {
	subs, err := s.subRepo.FindDueForBilling(ctx, runAt)
	if err != nil {
		s.logger.Error("Monthly billing: failed to find due subscriptions", zap.Error(err))
		return 0, 0
	}

	s.logger.Info("Monthly billing run started",
		zap.Int("day", runAt.Day()),
		zap.Int("subscriptions", len(subs)))

	for idx := range subs {
		sub := &subs[idx]
		tctx := logger.BindTenantID(ctx, sub.TenantID.String())

		if err := s.billSubscription(tctx, sub, runAt); err != nil {
			failed++
			s.logger.Error("Monthly billing failed for tenant",
				zap.String("tenant_id", sub.TenantID.String()),
				zap.String("subscription_id", sub.ID.String()),
				zap.Error(err))
			continue
		}
		succeeded++
	}

	s.logger.Info("Monthly billing run finished",
		zap.Int("succeeded", succeeded),
		zap.Int("failed", failed))

	return succeeded, failed
}

// billSubscription generates and collects one subscription's invoice.
// The period guard and ExistsForPeriod make re-runs of the same day a no-op.
func (s *BillingService) billSubscription(ctx context.Context, sub *billing.Subscription, runAt time.Time) error {
	if sub.CurrentPeriodStart.After(runAt) {
		// Billing already advanced the period past the run date, the
		// invoice for runAt exists
		s.logger.Debug("Subscription already billed through the run date, skipping",
			zap.String("subscription_id", sub.ID.String()))
		return nil
	}

	exists, err := s.invRepo.ExistsForPeriod(ctx, sub.ID, sub.CurrentPeriodStart)
	if err != nil {
		return fmt.Errorf("check period invoice: %w", err)
	}
	if exists {
		s.logger.Debug("Invoice already exists for period, skipping",
			zap.String("subscription_id", sub.ID.String()))
		return nil
	}

	inv, err := s.generateInvoice(ctx, sub)
	if err != nil {
		return err
	}

	return s.collectPayment(ctx, inv, sub)
}

// generateInvoice builds, finalizes, and persists the period invoice and
// advances the subscription period in the same transaction.
func (s *BillingService) generateInvoice(ctx context.Context, sub *billing.Subscription) (*billing.Invoice, error) {
	number, err := s.invRepo.NextInvoiceNumber(ctx, sub.CurrentPeriodStart)
	if err != nil {
		return nil, fmt.Errorf("next invoice number: %w", err)
	}

	inv, err := billing.NewInvoice(sub.TenantID, sub.ID, number, sub.CurrentPeriodStart, sub.CurrentPeriodEnd)
	if err != nil {
		return nil, err
	}

	baseDesc := fmt.Sprintf("%s plan %s to %s",
		sub.PlanEdition,
		sub.CurrentPeriodStart.Format("2006-01-02"),
		sub.CurrentPeriodEnd.Format("2006-01-02"))
	if _, err := inv.AddLine(baseDesc, 1, valueobject.NewMoneyBRL(sub.MonthlyBaseAmount)); err != nil {
		return nil, err
	}
	for _, item := range sub.Items {
		if item.Quantity == 0 {
			continue
		}
		desc := fmt.Sprintf("%s seats", item.Role)
		if _, err := inv.AddLine(desc, item.Quantity, valueobject.NewMoneyBRL(item.UnitPrice)); err != nil {
			return nil, err
		}
	}

	if err := inv.Finalize(s.config.InvoiceDueDays); err != nil {
		return nil, err
	}

	if err := sub.RenewPeriod(); err != nil {
		return nil, err
	}

	err = s.invRepo.WithTx(ctx, func(tx interface{}) error {
		if err := s.invRepo.SaveWithEvents(ctx, tx, inv); err != nil {
			return err
		}
		return s.subRepo.SaveWithEvents(ctx, tx, sub)
	})
	if err != nil {
		return nil, fmt.Errorf("save invoice: %w", err)
	}

	s.logger.Info("Invoice generated",
		zap.String("tenant_id", sub.TenantID.String()),
		zap.String("invoice_number", inv.InvoiceNumber),
		zap.String("total", inv.TotalAmount.String()))

	return inv, nil
}

// collectPayment attempts the charge exactly once. Success marks the invoice
// paid; any failure marks the subscription past due and leaves the invoice
// pending for the overdue sweep.
func (s *BillingService) collectPayment(ctx context.Context, inv *billing.Invoice, sub *billing.Subscription) error {
	if !sub.HasPaymentMethod() {
		s.logger.Info("No payment method on file, leaving invoice pending",
			zap.String("invoice_number", inv.InvoiceNumber))
		return nil
	}

	transactionID, err := s.gateway.ChargeInvoice(ctx, inv, sub.PaymentMethodRef)
	if err != nil {
		s.logger.Warn("Payment collection failed",
			zap.String("invoice_number", inv.InvoiceNumber),
			zap.Error(err))

		if err := sub.MarkPastDue(); err != nil {
			return err
		}
		return s.subRepo.WithTx(ctx, func(tx interface{}) error {
			return s.subRepo.SaveWithEvents(ctx, tx, sub)
		})
	}

	if err := inv.MarkPaid(transactionID); err != nil {
		return err
	}

	err = s.invRepo.WithTx(ctx, func(tx interface{}) error {
		return s.invRepo.SaveWithEvents(ctx, tx, inv)
	})
	if err != nil {
		return fmt.Errorf("save paid invoice: %w", err)
	}

	s.updateTenantMRR(ctx, sub.TenantID, sub.MonthlyTotal())

	return nil
}

// SweepOverdueInvoices promotes pending invoices past their due date to
// OVERDUE and marks their subscriptions past due.
func (s *BillingService) SweepOverdueInvoices(ctx context.Context, now time.Time) (succeeded, failed int) {
	invoices, err := s.invRepo.FindPendingPastDue(ctx, now)
	if err != nil {
		s.logger.Error("Overdue sweep: failed to find past-due invoices", zap.Error(err))
		return 0, 0
	}

	for idx := range invoices {
		inv := &invoices[idx]
		tctx := logger.BindTenantID(ctx, inv.TenantID.String())

		if err := s.markInvoiceOverdue(tctx, inv); err != nil {
			failed++
			s.logger.Error("Overdue sweep failed for invoice",
				zap.String("tenant_id", inv.TenantID.String()),
				zap.String("invoice_number", inv.InvoiceNumber),
				zap.Error(err))
			continue
		}
		succeeded++
	}

	s.logger.Info("Overdue sweep finished",
		zap.Int("succeeded", succeeded),
		zap.Int("failed", failed))

	return succeeded, failed
}

func (s *BillingService) markInvoiceOverdue(ctx context.Context, inv *billing.Invoice) error {
	if err := inv.MarkOverdue(); err != nil {
		return err
	}

	sub, err := s.subRepo.FindByID(ctx, inv.SubscriptionID)
	if err != nil {
		return fmt.Errorf("load subscription: %w", err)
	}
	if err := sub.MarkPastDue(); err != nil {
		return err
	}

	return s.invRepo.WithTx(ctx, func(tx interface{}) error {
		if err := s.invRepo.SaveWithEvents(ctx, tx, inv); err != nil {
			return err
		}
		return s.subRepo.SaveWithEvents(ctx, tx, sub)
	})
}

// SweepDelinquents suspends subscriptions past due beyond the grace window
// and flags their tenants delinquent.
func (s *BillingService) SweepDelinquents(ctx context.Context, now time.Time) (succeeded, failed int) {
	cutoff := now.AddDate(0, 0, -s.config.DelinquencyGraceDays)
	subs, err := s.subRepo.FindPastDueOlderThan(ctx, cutoff)
	if err != nil {
		s.logger.Error("Delinquency sweep: failed to find past-due subscriptions", zap.Error(err))
		return 0, 0
	}

	for idx := range subs {
		sub := &subs[idx]
		tctx := logger.BindTenantID(ctx, sub.TenantID.String())

		if err := s.suspendForNonPayment(tctx, sub); err != nil {
			failed++
			s.logger.Error("Delinquency sweep failed for tenant",
				zap.String("tenant_id", sub.TenantID.String()),
				zap.Error(err))
			continue
		}
		succeeded++
	}

	s.logger.Info("Delinquency sweep finished",
		zap.Int("succeeded", succeeded),
		zap.Int("failed", failed))

	return succeeded, failed
}

func (s *BillingService) suspendForNonPayment(ctx context.Context, sub *billing.Subscription) error {
	if err := sub.Suspend(); err != nil {
		return err
	}

	err := s.subRepo.WithTx(ctx, func(tx interface{}) error {
		return s.subRepo.SaveWithEvents(ctx, tx, sub)
	})
	if err != nil {
		return fmt.Errorf("save suspended subscription: %w", err)
	}

	tenant, err := s.tenantRepo.FindByID(ctx, sub.TenantID)
	if err != nil {
		return fmt.Errorf("load tenant: %w", err)
	}
	if err := tenant.MarkDelinquent(); err != nil {
		return err
	}
	if err := s.tenantRepo.Save(ctx, tenant); err != nil {
		return fmt.Errorf("save delinquent tenant: %w", err)
	}

	if err := s.notifier.NotifyTenant(ctx, sub.TenantID,
		"Service suspended for non-payment",
		"Your subscription was suspended after the payment grace period expired."); err != nil {
		// Notification failure must not undo the suspension
		s.logger.Warn("Failed to send suspension notice",
			zap.String("tenant_id", sub.TenantID.String()),
			zap.Error(err))
	}

	return nil
}

// RunMonthlyReport sends every active tenant its previous-month billing
// summary.
func (s *BillingService) RunMonthlyReport(ctx context.Context, runAt time.Time) (succeeded, failed int) {
	filter := shared.Filter{Page: 1, PageSize: 500, OrderBy: "created_at", OrderDir: "asc"}
	tenants, err := s.tenantRepo.FindByStatus(ctx, identity.TenantStatusActive, filter)
	if err != nil {
		s.logger.Error("Monthly report: failed to list active tenants", zap.Error(err))
		return 0, 0
	}

	periodEnd := time.Date(runAt.Year(), runAt.Month(), 1, 0, 0, 0, 0, runAt.Location())
	periodStart := periodEnd.AddDate(0, -1, 0)

	for idx := range tenants {
		tenant := &tenants[idx]
		tctx := logger.BindTenantID(ctx, tenant.ID.String())

		if err := s.sendMonthlyReport(tctx, tenant.ID, periodStart, periodEnd); err != nil {
			failed++
			s.logger.Error("Monthly report failed for tenant",
				zap.String("tenant_id", tenant.ID.String()),
				zap.Error(err))
			continue
		}
		succeeded++
	}

	s.logger.Info("Monthly report run finished",
		zap.Int("succeeded", succeeded),
		zap.Int("failed", failed))

	return succeeded, failed
}

func (s *BillingService) sendMonthlyReport(ctx context.Context, tenantID uuid.UUID, periodStart, periodEnd time.Time) error {
	invoices, _, err := s.invRepo.FindByTenant(ctx, shared.Filter{Page: 1, PageSize: 200, OrderBy: "created_at", OrderDir: "desc"})
	if err != nil {
		return fmt.Errorf("load invoices: %w", err)
	}

	invoiced := decimal.Zero
	paid := decimal.Zero
	count := 0
	for idx := range invoices {
		inv := &invoices[idx]
		if inv.PeriodStart.Before(periodStart) || !inv.PeriodStart.Before(periodEnd) {
			continue
		}
		count++
		invoiced = invoiced.Add(inv.TotalAmount)
		if inv.Status == billing.InvoiceStatusPaid {
			paid = paid.Add(inv.TotalAmount)
		}
	}

	subject := fmt.Sprintf("Billing report %s", periodStart.Format("January 2006"))
	message := fmt.Sprintf("Invoices: %d, invoiced: R$ %s, paid: R$ %s",
		count, invoiced.StringFixed(2), paid.StringFixed(2))

	return s.notifier.NotifyTenant(ctx, tenantID, subject, message)
}

// restoreAfterPayment reactivates a past-due subscription and a delinquent
// tenant once an invoice got paid
func (s *BillingService) restoreAfterPayment(ctx context.Context, inv *billing.Invoice) {
	sub, err := s.subRepo.FindByID(ctx, inv.SubscriptionID)
	if err != nil {
		s.logger.Warn("Failed to load subscription after payment", zap.Error(err))
		return
	}

	if sub.Status == billing.SubscriptionStatusPastDue || sub.Status == billing.SubscriptionStatusSuspended {
		if err := sub.Reactivate(); err == nil {
			if err := s.subRepo.WithTx(ctx, func(tx interface{}) error {
				return s.subRepo.SaveWithEvents(ctx, tx, sub)
			}); err != nil {
				s.logger.Warn("Failed to reactivate subscription after payment", zap.Error(err))
			}
		}
	}

	tenant, err := s.tenantRepo.FindByID(ctx, inv.TenantID)
	if err != nil {
		s.logger.Warn("Failed to load tenant after payment", zap.Error(err))
		return
	}
	if tenant.Status == identity.TenantStatusDelinquent {
		if err := tenant.Reactivate(); err == nil {
			if err := s.tenantRepo.Save(ctx, tenant); err != nil {
				s.logger.Warn("Failed to reactivate tenant after payment", zap.Error(err))
			}
		}
	}
}

// updateTenantMRR records the tenant's current monthly recurring revenue
func (s *BillingService) updateTenantMRR(ctx context.Context, tenantID uuid.UUID, monthly decimal.Decimal) {
	tenant, err := s.tenantRepo.FindByID(ctx, tenantID)
	if err != nil {
		s.logger.Warn("Failed to load tenant for MRR update", zap.Error(err))
		return
	}
	if err := tenant.UpdateMRR(valueobject.NewMoneyBRL(monthly)); err != nil {
		s.logger.Warn("Failed to update tenant MRR", zap.Error(err))
		return
	}
	if err := s.tenantRepo.Save(ctx, tenant); err != nil {
		s.logger.Warn("Failed to save tenant MRR", zap.Error(err))
	}
}
