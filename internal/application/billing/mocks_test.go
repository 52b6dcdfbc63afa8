package billing

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/mock"

	"github.com/oxfield/backend/internal/domain/billing"
	"github.com/oxfield/backend/internal/domain/identity"
	"github.com/oxfield/backend/internal/domain/shared"
)

// MockSubscriptionRepository is a mock implementation of billing.SubscriptionRepository
type MockSubscriptionRepository struct {
	mock.Mock
}

func (m *MockSubscriptionRepository) FindByID(ctx context.Context, id uuid.UUID) (*billing.Subscription, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*billing.Subscription), args.Error(1)
}

func (m *MockSubscriptionRepository) FindByTenant(ctx context.Context, tenantID uuid.UUID) (*billing.Subscription, error) {
	args := m.Called(ctx, tenantID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*billing.Subscription), args.Error(1)
}

func (m *MockSubscriptionRepository) FindDueForBilling(ctx context.Context, runAt time.Time) ([]billing.Subscription, error) {
	args := m.Called(ctx, runAt)
	return args.Get(0).([]billing.Subscription), args.Error(1)
}

func (m *MockSubscriptionRepository) FindPastDueOlderThan(ctx context.Context, cutoff time.Time) ([]billing.Subscription, error) {
	args := m.Called(ctx, cutoff)
	return args.Get(0).([]billing.Subscription), args.Error(1)
}

func (m *MockSubscriptionRepository) Save(ctx context.Context, sub *billing.Subscription) error {
	args := m.Called(ctx, sub)
	return args.Error(0)
}

func (m *MockSubscriptionRepository) SaveWithEvents(ctx context.Context, tx interface{}, sub *billing.Subscription) error {
	args := m.Called(ctx, tx, sub)
	return args.Error(0)
}

func (m *MockSubscriptionRepository) WithTx(ctx context.Context, fn func(tx interface{}) error) error {
	return fn(nil)
}

// MockInvoiceRepository is a mock implementation of billing.InvoiceRepository
type MockInvoiceRepository struct {
	mock.Mock
}

func (m *MockInvoiceRepository) FindByID(ctx context.Context, id uuid.UUID) (*billing.Invoice, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*billing.Invoice), args.Error(1)
}

func (m *MockInvoiceRepository) FindByNumber(ctx context.Context, number string) (*billing.Invoice, error) {
	args := m.Called(ctx, number)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*billing.Invoice), args.Error(1)
}

func (m *MockInvoiceRepository) FindByTenant(ctx context.Context, filter shared.Filter) ([]billing.Invoice, int64, error) {
	args := m.Called(ctx, filter)
	return args.Get(0).([]billing.Invoice), args.Get(1).(int64), args.Error(2)
}

func (m *MockInvoiceRepository) ExistsForPeriod(ctx context.Context, subscriptionID uuid.UUID, periodStart time.Time) (bool, error) {
	args := m.Called(ctx, subscriptionID, periodStart)
	return args.Bool(0), args.Error(1)
}

func (m *MockInvoiceRepository) FindPendingPastDue(ctx context.Context, now time.Time) ([]billing.Invoice, error) {
	args := m.Called(ctx, now)
	return args.Get(0).([]billing.Invoice), args.Error(1)
}

func (m *MockInvoiceRepository) NextInvoiceNumber(ctx context.Context, period time.Time) (string, error) {
	args := m.Called(ctx, period)
	return args.String(0), args.Error(1)
}

func (m *MockInvoiceRepository) Save(ctx context.Context, inv *billing.Invoice) error {
	args := m.Called(ctx, inv)
	return args.Error(0)
}

func (m *MockInvoiceRepository) SaveWithEvents(ctx context.Context, tx interface{}, inv *billing.Invoice) error {
	args := m.Called(ctx, tx, inv)
	return args.Error(0)
}

func (m *MockInvoiceRepository) WithTx(ctx context.Context, fn func(tx interface{}) error) error {
	return fn(nil)
}

// MockCreditRepository is a mock implementation of billing.CreditRepository
type MockCreditRepository struct {
	mock.Mock
}

func (m *MockCreditRepository) FindByID(ctx context.Context, id uuid.UUID) (*billing.CreditBalance, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*billing.CreditBalance), args.Error(1)
}

func (m *MockCreditRepository) FindAvailableByTenant(ctx context.Context, now time.Time) ([]billing.CreditBalance, error) {
	args := m.Called(ctx, now)
	return args.Get(0).([]billing.CreditBalance), args.Error(1)
}

func (m *MockCreditRepository) FindExpiringWithin(ctx context.Context, cutoff time.Time) ([]billing.CreditBalance, error) {
	args := m.Called(ctx, cutoff)
	return args.Get(0).([]billing.CreditBalance), args.Error(1)
}

func (m *MockCreditRepository) Save(ctx context.Context, balance *billing.CreditBalance) error {
	args := m.Called(ctx, balance)
	return args.Error(0)
}

func (m *MockCreditRepository) SaveWithEvents(ctx context.Context, tx interface{}, balance *billing.CreditBalance) error {
	args := m.Called(ctx, tx, balance)
	return args.Error(0)
}

func (m *MockCreditRepository) RecordUsage(ctx context.Context, tx interface{}, usage *billing.CreditUsage) error {
	args := m.Called(ctx, tx, usage)
	return args.Error(0)
}

func (m *MockCreditRepository) FindUsageByTenant(ctx context.Context, filter shared.Filter) ([]billing.CreditUsage, int64, error) {
	args := m.Called(ctx, filter)
	return args.Get(0).([]billing.CreditUsage), args.Get(1).(int64), args.Error(2)
}

func (m *MockCreditRepository) WithTx(ctx context.Context, fn func(tx interface{}) error) error {
	return fn(nil)
}

// MockTenantRepository is a mock implementation of identity.TenantRepository
type MockTenantRepository struct {
	mock.Mock
}

func (m *MockTenantRepository) FindByID(ctx context.Context, id uuid.UUID) (*identity.Tenant, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*identity.Tenant), args.Error(1)
}

func (m *MockTenantRepository) FindByDomain(ctx context.Context, domain string) (*identity.Tenant, error) {
	args := m.Called(ctx, domain)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*identity.Tenant), args.Error(1)
}

func (m *MockTenantRepository) FindAll(ctx context.Context, filter shared.Filter) ([]identity.Tenant, error) {
	args := m.Called(ctx, filter)
	return args.Get(0).([]identity.Tenant), args.Error(1)
}

func (m *MockTenantRepository) FindByStatus(ctx context.Context, status identity.TenantStatus, filter shared.Filter) ([]identity.Tenant, error) {
	args := m.Called(ctx, status, filter)
	return args.Get(0).([]identity.Tenant), args.Error(1)
}

func (m *MockTenantRepository) FindByIDs(ctx context.Context, ids []uuid.UUID) ([]identity.Tenant, error) {
	args := m.Called(ctx, ids)
	return args.Get(0).([]identity.Tenant), args.Error(1)
}

func (m *MockTenantRepository) Save(ctx context.Context, tenant *identity.Tenant) error {
	args := m.Called(ctx, tenant)
	return args.Error(0)
}

func (m *MockTenantRepository) Count(ctx context.Context, filter shared.Filter) (int64, error) {
	args := m.Called(ctx, filter)
	return args.Get(0).(int64), args.Error(1)
}

func (m *MockTenantRepository) CountByStatus(ctx context.Context, status identity.TenantStatus) (int64, error) {
	args := m.Called(ctx, status)
	return args.Get(0).(int64), args.Error(1)
}

func (m *MockTenantRepository) ExistsByDomain(ctx context.Context, domain string) (bool, error) {
	args := m.Called(ctx, domain)
	return args.Bool(0), args.Error(1)
}

// MockPaymentGateway is a mock implementation of PaymentGateway
type MockPaymentGateway struct {
	mock.Mock
}

func (m *MockPaymentGateway) ChargeInvoice(ctx context.Context, invoice *billing.Invoice, paymentMethodRef string) (string, error) {
	args := m.Called(ctx, invoice, paymentMethodRef)
	return args.String(0), args.Error(1)
}

func (m *MockPaymentGateway) RefundInvoice(ctx context.Context, invoice *billing.Invoice) error {
	args := m.Called(ctx, invoice)
	return args.Error(0)
}

// MockNotifier is a mock implementation of Notifier
type MockNotifier struct {
	mock.Mock
}

func (m *MockNotifier) NotifyTenant(ctx context.Context, tenantID uuid.UUID, subject, message string) error {
	args := m.Called(ctx, tenantID, subject, message)
	return args.Error(0)
}
