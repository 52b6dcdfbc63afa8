package billing

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/oxfield/backend/internal/domain/billing"
	"github.com/oxfield/backend/internal/domain/shared"
)

type creditFixture struct {
	creditRepo *MockCreditRepository
	notifier   *MockNotifier
	service    *CreditService
}

func newCreditFixture() *creditFixture {
	f := &creditFixture{
		creditRepo: new(MockCreditRepository),
		notifier:   new(MockNotifier),
	}
	f.service = NewCreditService(f.creditRepo, f.notifier, DefaultBillingConfig(), zap.NewNop())
	return f
}

func makeCreditBatch(t *testing.T, tenantID uuid.UUID, credits int, expiresAt time.Time) *billing.CreditBalance {
	t.Helper()
	pkg, err := billing.FindCreditPackage(credits)
	require.NoError(t, err)
	balance, err := billing.NewCreditBalance(tenantID, pkg)
	require.NoError(t, err)
	balance.ExpiresAt = expiresAt
	balance.ClearDomainEvents()
	return balance
}

func TestCreditService_PurchaseCredits_Success(t *testing.T) {
	ctx := context.Background()
	f := newCreditFixture()
	tenantID := uuid.New()

	f.creditRepo.On("SaveWithEvents", ctx, mock.Anything, mock.AnythingOfType("*billing.CreditBalance")).Return(nil)

	result, err := f.service.PurchaseCredits(ctx, PurchaseCreditsInput{TenantID: tenantID, Credits: 500})

	require.NoError(t, err)
	assert.Equal(t, 500, result.PurchasedCredits)
	assert.Equal(t, 500, result.RemainingCredits)
	assert.True(t, result.PricePaid.Equal(decimal.NewFromFloat(199.00)))
	assert.True(t, result.ExpiresAt.After(time.Now().AddDate(0, 11, 0)))

	f.creditRepo.AssertExpectations(t)
}

func TestCreditService_PurchaseCredits_UnknownPackage(t *testing.T) {
	ctx := context.Background()
	f := newCreditFixture()

	result, err := f.service.PurchaseCredits(ctx, PurchaseCreditsInput{TenantID: uuid.New(), Credits: 750})

	require.Error(t, err)
	assert.Nil(t, result)
	var domainErr *shared.DomainError
	require.True(t, errors.As(err, &domainErr))
	assert.Equal(t, "INVALID_PACKAGE", domainErr.Code)
	f.creditRepo.AssertNotCalled(t, "SaveWithEvents", mock.Anything, mock.Anything, mock.Anything)
}

func TestCreditService_ConsumeCredits_DrainsOldestBatchFirst(t *testing.T) {
	ctx := context.Background()
	f := newCreditFixture()
	tenantID := uuid.New()

	older := makeCreditBatch(t, tenantID, 500, time.Now().AddDate(0, 2, 0))
	require.NoError(t, older.Consume(400, time.Now()))
	newer := makeCreditBatch(t, tenantID, 2000, time.Now().AddDate(0, 11, 0))

	// Repository returns batches ordered by expiry, closest first
	f.creditRepo.On("FindAvailableByTenant", ctx, mock.Anything).
		Return([]billing.CreditBalance{*older, *newer}, nil)
	f.creditRepo.On("SaveWithEvents", ctx, mock.Anything, mock.AnythingOfType("*billing.CreditBalance")).Return(nil)
	f.creditRepo.On("RecordUsage", ctx, mock.Anything, mock.AnythingOfType("*billing.CreditUsage")).Return(nil)

	err := f.service.ConsumeCredits(ctx, ConsumeCreditsInput{
		UsageType:   billing.UsageTypeOrderCreated,
		Credits:     150,
		Description: "OS-2026-0042",
	})
	require.NoError(t, err)

	// 100 remaining in the older batch go first, 50 come from the newer one
	var saved []*billing.CreditBalance
	var usages []*billing.CreditUsage
	for _, call := range f.creditRepo.Calls {
		switch call.Method {
		case "SaveWithEvents":
			saved = append(saved, call.Arguments.Get(2).(*billing.CreditBalance))
		case "RecordUsage":
			usages = append(usages, call.Arguments.Get(2).(*billing.CreditUsage))
		}
	}
	require.Len(t, saved, 2)
	assert.Equal(t, older.ID, saved[0].ID)
	assert.Equal(t, 500, saved[0].UsedCredits)
	assert.Equal(t, newer.ID, saved[1].ID)
	assert.Equal(t, 50, saved[1].UsedCredits)

	require.Len(t, usages, 2)
	assert.Equal(t, 100, usages[0].Credits)
	assert.Equal(t, older.ID, usages[0].BalanceID)
	assert.Equal(t, 50, usages[1].Credits)
	assert.Equal(t, newer.ID, usages[1].BalanceID)
	assert.Equal(t, billing.UsageTypeOrderCreated, usages[0].UsageType)
}

func TestCreditService_ConsumeCredits_Insufficient(t *testing.T) {
	ctx := context.Background()
	f := newCreditFixture()
	tenantID := uuid.New()

	batch := makeCreditBatch(t, tenantID, 500, time.Now().AddDate(0, 6, 0))
	require.NoError(t, batch.Consume(450, time.Now()))

	f.creditRepo.On("FindAvailableByTenant", ctx, mock.Anything).
		Return([]billing.CreditBalance{*batch}, nil)

	err := f.service.ConsumeCredits(ctx, ConsumeCreditsInput{
		UsageType: billing.UsageTypeSMS,
		Credits:   100,
	})

	require.Error(t, err)
	var domainErr *shared.DomainError
	require.True(t, errors.As(err, &domainErr))
	assert.Equal(t, "INSUFFICIENT_CREDITS", domainErr.Code)
	f.creditRepo.AssertNotCalled(t, "SaveWithEvents", mock.Anything, mock.Anything, mock.Anything)
}

func TestCreditService_ConsumeCredits_RejectsBadInput(t *testing.T) {
	ctx := context.Background()
	f := newCreditFixture()

	err := f.service.ConsumeCredits(ctx, ConsumeCreditsInput{UsageType: billing.UsageTypeSMS, Credits: 0})
	var domainErr *shared.DomainError
	require.True(t, errors.As(err, &domainErr))
	assert.Equal(t, "INVALID_AMOUNT", domainErr.Code)

	err = f.service.ConsumeCredits(ctx, ConsumeCreditsInput{UsageType: "TELEGRAM", Credits: 10})
	require.True(t, errors.As(err, &domainErr))
	assert.Equal(t, "INVALID_USAGE_TYPE", domainErr.Code)
}

func TestCreditService_GetSummary(t *testing.T) {
	ctx := context.Background()
	f := newCreditFixture()
	tenantID := uuid.New()

	first := makeCreditBatch(t, tenantID, 500, time.Now().AddDate(0, 3, 0))
	require.NoError(t, first.Consume(200, time.Now()))
	second := makeCreditBatch(t, tenantID, 2000, time.Now().AddDate(0, 10, 0))

	f.creditRepo.On("FindAvailableByTenant", ctx, mock.Anything).
		Return([]billing.CreditBalance{*first, *second}, nil)

	summary, err := f.service.GetSummary(ctx)

	require.NoError(t, err)
	assert.Equal(t, 2300, summary.AvailableCredits)
	require.Len(t, summary.Batches, 2)
	assert.Equal(t, 300, summary.Batches[0].RemainingCredits)
	assert.Equal(t, 2000, summary.Batches[1].RemainingCredits)
}

func TestCreditService_NotifyExpiringCredits(t *testing.T) {
	ctx := context.Background()
	f := newCreditFixture()
	tenantID := uuid.New()
	now := time.Date(2026, 8, 31, 8, 0, 0, 0, time.UTC)

	expiring := makeCreditBatch(t, tenantID, 500, now.AddDate(0, 0, 20))
	alreadyNotified := makeCreditBatch(t, tenantID, 2000, now.AddDate(0, 0, 25))
	alreadyNotified.MarkExpiryNotified(now.AddDate(0, 0, -7))

	f.creditRepo.On("FindExpiringWithin", ctx, now.AddDate(0, 0, 30)).
		Return([]billing.CreditBalance{*expiring, *alreadyNotified}, nil)
	f.creditRepo.On("SaveWithEvents", mock.Anything, mock.Anything, mock.AnythingOfType("*billing.CreditBalance")).Return(nil)
	f.notifier.On("NotifyTenant", mock.Anything, tenantID, "Credits expiring soon", mock.Anything).Return(nil)

	succeeded, failed := f.service.NotifyExpiringCredits(ctx, now)

	assert.Equal(t, 1, succeeded)
	assert.Equal(t, 0, failed)

	// Only the unnotified batch gets saved and notified
	f.creditRepo.AssertNumberOfCalls(t, "SaveWithEvents", 1)
	f.notifier.AssertNumberOfCalls(t, "NotifyTenant", 1)

	saved := f.creditRepo.Calls[len(f.creditRepo.Calls)-1].Arguments.Get(2).(*billing.CreditBalance)
	assert.Equal(t, expiring.ID, saved.ID)
	assert.NotNil(t, saved.ExpiryNotifiedAt)
}

func TestCreditService_NotifyExpiringCredits_NotifierOutageStillCounts(t *testing.T) {
	ctx := context.Background()
	f := newCreditFixture()
	tenantID := uuid.New()
	now := time.Date(2026, 8, 31, 8, 0, 0, 0, time.UTC)

	expiring := makeCreditBatch(t, tenantID, 500, now.AddDate(0, 0, 10))

	f.creditRepo.On("FindExpiringWithin", ctx, mock.Anything).
		Return([]billing.CreditBalance{*expiring}, nil)
	f.creditRepo.On("SaveWithEvents", mock.Anything, mock.Anything, mock.AnythingOfType("*billing.CreditBalance")).Return(nil)
	f.notifier.On("NotifyTenant", mock.Anything, tenantID, mock.Anything, mock.Anything).
		Return(errors.New("smtp down"))

	succeeded, failed := f.service.NotifyExpiringCredits(ctx, now)

	// The batch stays marked so a notifier outage cannot re-trigger the notice
	assert.Equal(t, 1, succeeded)
	assert.Equal(t, 0, failed)
}
