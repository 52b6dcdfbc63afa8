package billing

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/oxfield/backend/internal/domain/billing"
	"github.com/oxfield/backend/internal/domain/shared"
	"github.com/oxfield/backend/internal/infrastructure/logger"
)

// CreditService sells, spends, and expires operation credits. Batches drain
// oldest expiry first, with every spend written to the usage audit trail.
type CreditService struct {
	creditRepo billing.CreditRepository
	notifier   Notifier
	config     BillingConfig
	logger     *zap.Logger
}

// NewCreditService creates a new credit service
func NewCreditService(
	creditRepo billing.CreditRepository,
	notifier Notifier,
	config BillingConfig,
	log *zap.Logger,
) *CreditService {
	return &CreditService{
		creditRepo: creditRepo,
		notifier:   notifier,
		config:     config,
		logger:     log,
	}
}

// PurchaseCredits grants one of the published credit packages to the tenant
func (s *CreditService) PurchaseCredits(ctx context.Context, input PurchaseCreditsInput) (*CreditBalanceDTO, error) {
	pkg, err := billing.FindCreditPackage(input.Credits)
	if err != nil {
		return nil, err
	}

	balance, err := billing.NewCreditBalance(input.TenantID, pkg)
	if err != nil {
		return nil, err
	}

	err = s.creditRepo.WithTx(ctx, func(tx interface{}) error {
		return s.creditRepo.SaveWithEvents(ctx, tx, balance)
	})
	if err != nil {
		s.logger.Error("Failed to save credit purchase", zap.Error(err))
		return nil, shared.NewDomainError("INTERNAL_ERROR", "Failed to purchase credits")
	}

	s.logger.Info("Credits purchased",
		zap.String("tenant_id", input.TenantID.String()),
		zap.Int("credits", pkg.Credits),
		zap.String("price", pkg.Price.String()))

	dto := toCreditBalanceDTO(balance)
	return &dto, nil
}

// ConsumeCredits spends credits for the tenant bound to ctx, draining the
// batch closest to expiry first and splitting across batches when needed.
func (s *CreditService) ConsumeCredits(ctx context.Context, input ConsumeCreditsInput) error {
	if input.Credits <= 0 {
		return shared.NewDomainError("INVALID_AMOUNT", "Credits to consume must be positive")
	}
	if !input.UsageType.IsValid() {
		return shared.NewDomainError("INVALID_USAGE_TYPE", "Unknown credit usage type")
	}

	now := time.Now()
	balances, err := s.creditRepo.FindAvailableByTenant(ctx, now)
	if err != nil {
		s.logger.Error("Failed to load credit balances", zap.Error(err))
		return shared.NewDomainError("INTERNAL_ERROR", "Failed to load credit balances")
	}

	available := 0
	for idx := range balances {
		available += balances[idx].Available(now)
	}
	if available < input.Credits {
		return shared.NewDomainError("INSUFFICIENT_CREDITS", "Not enough credits available")
	}

	return s.creditRepo.WithTx(ctx, func(tx interface{}) error {
		remaining := input.Credits
		for idx := range balances {
			if remaining == 0 {
				break
			}
			balance := &balances[idx]

			take := balance.Available(now)
			if take > remaining {
				take = remaining
			}
			if take == 0 {
				continue
			}

			if err := balance.Consume(take, now); err != nil {
				return err
			}
			balance.AddDomainEvent(billing.NewCreditsConsumedEvent(balance, take, input.UsageType))

			if err := s.creditRepo.SaveWithEvents(ctx, tx, balance); err != nil {
				return fmt.Errorf("save credit batch: %w", err)
			}

			usage, err := billing.NewCreditUsage(balance.TenantID, balance.ID, input.UsageType, take, input.ReferenceID, input.Description)
			if err != nil {
				return err
			}
			if err := s.creditRepo.RecordUsage(ctx, tx, usage); err != nil {
				return fmt.Errorf("record credit usage: %w", err)
			}

			remaining -= take
		}
		return nil
	})
}

// GetSummary returns the bound tenant's usable credits per batch
func (s *CreditService) GetSummary(ctx context.Context) (*CreditSummary, error) {
	now := time.Now()
	balances, err := s.creditRepo.FindAvailableByTenant(ctx, now)
	if err != nil {
		s.logger.Error("Failed to load credit balances", zap.Error(err))
		return nil, shared.NewDomainError("INTERNAL_ERROR", "Failed to load credit balances")
	}

	summary := &CreditSummary{Batches: make([]CreditBalanceDTO, 0, len(balances))}
	for idx := range balances {
		summary.AvailableCredits += balances[idx].Available(now)
		summary.Batches = append(summary.Batches, toCreditBalanceDTO(&balances[idx]))
	}

	return summary, nil
}

// ListUsage lists the bound tenant's credit usage audit records
func (s *CreditService) ListUsage(ctx context.Context, filter shared.Filter) ([]billing.CreditUsage, int64, error) {
	usages, total, err := s.creditRepo.FindUsageByTenant(ctx, filter)
	if err != nil {
		s.logger.Error("Failed to list credit usage", zap.Error(err))
		return nil, 0, shared.NewDomainError("INTERNAL_ERROR", "Failed to list credit usage")
	}
	return usages, total, nil
}

// NotifyExpiringCredits sends the advance expiry notice for batches that
// expire within the lookahead window. Each batch is notified once.
func (s *CreditService) NotifyExpiringCredits(ctx context.Context, now time.Time) (succeeded, failed int) {
	cutoff := now.AddDate(0, 0, s.config.CreditExpiryLookaheadDays)
	balances, err := s.creditRepo.FindExpiringWithin(ctx, cutoff)
	if err != nil {
		s.logger.Error("Credit expiry notice: failed to find expiring batches", zap.Error(err))
		return 0, 0
	}

	lookahead := time.Duration(s.config.CreditExpiryLookaheadDays) * 24 * time.Hour

	for idx := range balances {
		balance := &balances[idx]
		if !balance.NeedsExpiryNotice(now, lookahead) {
			continue
		}
		tctx := logger.BindTenantID(ctx, balance.TenantID.String())

		if err := s.sendExpiryNotice(tctx, balance, now); err != nil {
			failed++
			s.logger.Error("Credit expiry notice failed for tenant",
				zap.String("tenant_id", balance.TenantID.String()),
				zap.Error(err))
			continue
		}
		succeeded++
	}

	s.logger.Info("Credit expiry notice run finished",
		zap.Int("succeeded", succeeded),
		zap.Int("failed", failed))

	return succeeded, failed
}

func (s *CreditService) sendExpiryNotice(ctx context.Context, balance *billing.CreditBalance, now time.Time) error {
	balance.AddDomainEvent(billing.NewCreditsExpiringEvent(balance))
	balance.MarkExpiryNotified(now)

	err := s.creditRepo.WithTx(ctx, func(tx interface{}) error {
		return s.creditRepo.SaveWithEvents(ctx, tx, balance)
	})
	if err != nil {
		return fmt.Errorf("save notified batch: %w", err)
	}

	message := fmt.Sprintf("%d credits expire on %s. Unused credits are lost after that date.",
		balance.RemainingCredits(), balance.ExpiresAt.Format("2006-01-02"))
	if err := s.notifier.NotifyTenant(ctx, balance.TenantID, "Credits expiring soon", message); err != nil {
		// The batch stays marked so the sweep does not loop on notifier outages
		s.logger.Warn("Failed to deliver expiry notice",
			zap.String("tenant_id", balance.TenantID.String()),
			zap.Error(err))
	}

	return nil
}
