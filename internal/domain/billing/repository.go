package billing

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/oxfield/backend/internal/domain/shared"
)

// SubscriptionRepository defines the interface for subscription persistence.
// The scheduler jobs query across tenants, so the cross-tenant finders run
// outside the tenant scope and return aggregates with their tenant id set.
type SubscriptionRepository interface {
	// FindByID finds a subscription by ID within the tenant bound to ctx
	FindByID(ctx context.Context, id uuid.UUID) (*Subscription, error)

	// FindByTenant finds the tenant's current non-cancelled subscription
	FindByTenant(ctx context.Context, tenantID uuid.UUID) (*Subscription, error)

	// FindDueForBilling finds, across all tenants, the subscriptions whose
	// billing cycle day matches the run date and whose current period has not
	// been billed yet. Subscriptions already renewed past runAt are excluded
	// so a repeated run cannot invoice the same day twice.
	FindDueForBilling(ctx context.Context, runAt time.Time) ([]Subscription, error)

	// FindPastDueOlderThan finds, across all tenants, subscriptions that have
	// been past due since before the cutoff
	FindPastDueOlderThan(ctx context.Context, cutoff time.Time) ([]Subscription, error)

	// Save persists the subscription and its items
	Save(ctx context.Context, sub *Subscription) error

	// SaveWithEvents saves the subscription and writes its buffered domain
	// events to the outbox in the same transaction
	SaveWithEvents(ctx context.Context, tx interface{}, sub *Subscription) error

	// WithTx runs fn inside a database transaction
	WithTx(ctx context.Context, fn func(tx interface{}) error) error
}

// InvoiceRepository defines the interface for invoice persistence
type InvoiceRepository interface {
	// FindByID finds an invoice by ID within the tenant bound to ctx
	FindByID(ctx context.Context, id uuid.UUID) (*Invoice, error)

	// FindByNumber finds an invoice by its number
	FindByNumber(ctx context.Context, number string) (*Invoice, error)

	// FindByTenant lists the bound tenant's invoices with filtering
	FindByTenant(ctx context.Context, filter shared.Filter) ([]Invoice, int64, error)

	// ExistsForPeriod reports whether an invoice already covers the given
	// subscription period. The monthly run uses this as its idempotency key.
	ExistsForPeriod(ctx context.Context, subscriptionID uuid.UUID, periodStart time.Time) (bool, error)

	// FindPendingPastDue finds, across all tenants, pending invoices whose
	// due date lies before now
	FindPendingPastDue(ctx context.Context, now time.Time) ([]Invoice, error)

	// NextInvoiceNumber produces the next sequential number for the month
	NextInvoiceNumber(ctx context.Context, period time.Time) (string, error)

	// Save persists the invoice and its lines
	Save(ctx context.Context, inv *Invoice) error

	// SaveWithEvents saves the invoice and writes its buffered domain events
	// to the outbox in the same transaction
	SaveWithEvents(ctx context.Context, tx interface{}, inv *Invoice) error

	// WithTx runs fn inside a database transaction
	WithTx(ctx context.Context, fn func(tx interface{}) error) error
}

// CreditRepository defines the interface for credit balance persistence
type CreditRepository interface {
	// FindByID finds a credit batch by ID within the tenant bound to ctx
	FindByID(ctx context.Context, id uuid.UUID) (*CreditBalance, error)

	// FindAvailableByTenant returns the bound tenant's unexpired batches with
	// credits remaining, ordered by expiry so consumption drains the oldest
	// batch first
	FindAvailableByTenant(ctx context.Context, now time.Time) ([]CreditBalance, error)

	// FindExpiringWithin finds, across all tenants, unnotified batches with
	// remaining credits that expire before the cutoff
	FindExpiringWithin(ctx context.Context, cutoff time.Time) ([]CreditBalance, error)

	// Save persists the credit batch
	Save(ctx context.Context, balance *CreditBalance) error

	// SaveWithEvents saves the batch and writes its buffered domain events to
	// the outbox in the same transaction
	SaveWithEvents(ctx context.Context, tx interface{}, balance *CreditBalance) error

	// RecordUsage appends a usage audit record
	RecordUsage(ctx context.Context, tx interface{}, usage *CreditUsage) error

	// FindUsageByTenant lists the bound tenant's usage records
	FindUsageByTenant(ctx context.Context, filter shared.Filter) ([]CreditUsage, int64, error)

	// WithTx runs fn inside a database transaction
	WithTx(ctx context.Context, fn func(tx interface{}) error) error
}
