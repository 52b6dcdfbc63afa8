package billing

import (
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestBalance(t *testing.T, credits int) *CreditBalance {
	t.Helper()
	pkg, err := FindCreditPackage(credits)
	require.NoError(t, err)
	balance, err := NewCreditBalance(uuid.New(), pkg)
	require.NoError(t, err)
	balance.ClearDomainEvents()
	return balance
}

func TestFindCreditPackage(t *testing.T) {
	t.Run("returns known packages", func(t *testing.T) {
		pkg, err := FindCreditPackage(2000)
		require.NoError(t, err)
		assert.True(t, pkg.Price.Equal(decimal.NewFromFloat(699.00)))
	})

	t.Run("rejects unknown size", func(t *testing.T) {
		_, err := FindCreditPackage(123)
		require.Error(t, err)
		assert.Equal(t, "INVALID_PACKAGE", billingErrCode(t, err))
	})
}

func TestNewCreditBalance(t *testing.T) {
	balance := newTestBalance(t, 500)

	assert.Equal(t, 500, balance.PurchasedCredits)
	assert.Equal(t, 0, balance.UsedCredits)
	assert.Equal(t, 500, balance.RemainingCredits())
	assert.WithinDuration(t, time.Now().AddDate(0, CreditValidityMonths, 0), balance.ExpiresAt, time.Minute)
}

func TestCreditBalance_Consume(t *testing.T) {
	now := time.Now()

	t.Run("spends credits from the batch", func(t *testing.T) {
		balance := newTestBalance(t, 500)

		require.NoError(t, balance.Consume(100, now))

		assert.Equal(t, 400, balance.RemainingCredits())
		assert.Equal(t, 400, balance.Available(now))
	})

	t.Run("never goes negative", func(t *testing.T) {
		balance := newTestBalance(t, 500)
		require.NoError(t, balance.Consume(499, now))

		err := balance.Consume(2, now)
		require.Error(t, err)
		assert.Equal(t, "INSUFFICIENT_CREDITS", billingErrCode(t, err))
		assert.Equal(t, 1, balance.RemainingCredits())
	})

	t.Run("rejects expired batch", func(t *testing.T) {
		balance := newTestBalance(t, 500)
		balance.ExpiresAt = now.Add(-time.Hour)

		err := balance.Consume(1, now)
		require.Error(t, err)
		assert.Equal(t, "INSUFFICIENT_CREDITS", billingErrCode(t, err))
		assert.Equal(t, 0, balance.Available(now))
	})

	t.Run("rejects non positive amount", func(t *testing.T) {
		balance := newTestBalance(t, 500)
		err := balance.Consume(0, now)
		require.Error(t, err)
		assert.Equal(t, "INVALID_AMOUNT", billingErrCode(t, err))
	})
}

func TestCreditBalance_ExpiryNotice(t *testing.T) {
	now := time.Now()
	lookahead := 30 * 24 * time.Hour

	t.Run("needs notice inside the window", func(t *testing.T) {
		balance := newTestBalance(t, 500)
		balance.ExpiresAt = now.Add(10 * 24 * time.Hour)

		assert.True(t, balance.NeedsExpiryNotice(now, lookahead))
	})

	t.Run("no notice outside the window", func(t *testing.T) {
		balance := newTestBalance(t, 500)
		balance.ExpiresAt = now.Add(60 * 24 * time.Hour)

		assert.False(t, balance.NeedsExpiryNotice(now, lookahead))
	})

	t.Run("no notice for drained batch", func(t *testing.T) {
		balance := newTestBalance(t, 500)
		balance.ExpiresAt = now.Add(10 * 24 * time.Hour)
		require.NoError(t, balance.Consume(500, now))

		assert.False(t, balance.NeedsExpiryNotice(now, lookahead))
	})

	t.Run("notice goes out once", func(t *testing.T) {
		balance := newTestBalance(t, 500)
		balance.ExpiresAt = now.Add(10 * 24 * time.Hour)

		balance.MarkExpiryNotified(now)

		assert.False(t, balance.NeedsExpiryNotice(now, lookahead))
	})

	t.Run("no notice once expired", func(t *testing.T) {
		balance := newTestBalance(t, 500)
		balance.ExpiresAt = now.Add(-time.Hour)

		assert.False(t, balance.NeedsExpiryNotice(now, lookahead))
	})
}

func TestNewCreditUsage(t *testing.T) {
	t.Run("records a spend", func(t *testing.T) {
		refID := uuid.New()
		usage, err := NewCreditUsage(uuid.New(), uuid.New(), UsageTypeOrderCreated, 1, &refID, "Order OS-2026-00042")

		require.NoError(t, err)
		assert.Equal(t, UsageTypeOrderCreated, usage.UsageType)
		assert.Equal(t, 1, usage.Credits)
	})

	t.Run("rejects unknown usage type", func(t *testing.T) {
		_, err := NewCreditUsage(uuid.New(), uuid.New(), UsageType("COFFEE"), 1, nil, "")
		require.Error(t, err)
		assert.Equal(t, "INVALID_USAGE_TYPE", billingErrCode(t, err))
	})
}
