package fieldops

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/mock"

	billingapp "github.com/oxfield/backend/internal/application/billing"
	"github.com/oxfield/backend/internal/domain/fieldops"
	"github.com/oxfield/backend/internal/domain/identity"
	"github.com/oxfield/backend/internal/domain/shared"
)

// MockServiceOrderRepository is a mock implementation of fieldops.ServiceOrderRepository
type MockServiceOrderRepository struct {
	mock.Mock
}

func (m *MockServiceOrderRepository) FindByID(ctx context.Context, id uuid.UUID) (*fieldops.ServiceOrder, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*fieldops.ServiceOrder), args.Error(1)
}

func (m *MockServiceOrderRepository) FindByIDForUpdate(ctx context.Context, tx interface{}, id uuid.UUID) (*fieldops.ServiceOrder, error) {
	args := m.Called(ctx, tx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*fieldops.ServiceOrder), args.Error(1)
}

func (m *MockServiceOrderRepository) FindByOSNumber(ctx context.Context, osNumber string) (*fieldops.ServiceOrder, error) {
	args := m.Called(ctx, osNumber)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*fieldops.ServiceOrder), args.Error(1)
}

func (m *MockServiceOrderRepository) FindAll(ctx context.Context, filter shared.Filter) ([]fieldops.ServiceOrder, int64, error) {
	args := m.Called(ctx, filter)
	return args.Get(0).([]fieldops.ServiceOrder), args.Get(1).(int64), args.Error(2)
}

func (m *MockServiceOrderRepository) FindByTechnician(ctx context.Context, technicianID uuid.UUID, filter shared.Filter) ([]fieldops.ServiceOrder, error) {
	args := m.Called(ctx, technicianID, filter)
	return args.Get(0).([]fieldops.ServiceOrder), args.Error(1)
}

func (m *MockServiceOrderRepository) FindByCustomer(ctx context.Context, customerID uuid.UUID, filter shared.Filter) ([]fieldops.ServiceOrder, error) {
	args := m.Called(ctx, customerID, filter)
	return args.Get(0).([]fieldops.ServiceOrder), args.Error(1)
}

func (m *MockServiceOrderRepository) Create(ctx context.Context, order *fieldops.ServiceOrder) error {
	args := m.Called(ctx, order)
	return args.Error(0)
}

func (m *MockServiceOrderRepository) SaveWithEvents(ctx context.Context, tx interface{}, order *fieldops.ServiceOrder) error {
	args := m.Called(ctx, tx, order)
	return args.Error(0)
}

func (m *MockServiceOrderRepository) WithTx(ctx context.Context, fn func(tx interface{}) error) error {
	return fn(nil)
}

func (m *MockServiceOrderRepository) GenerateOSNumber(ctx context.Context) (string, error) {
	args := m.Called(ctx)
	return args.String(0), args.Error(1)
}

func (m *MockServiceOrderRepository) CountByStatus(ctx context.Context, status fieldops.OrderStatus) (int64, error) {
	args := m.Called(ctx, status)
	return args.Get(0).(int64), args.Error(1)
}

// MockUserRepository is a mock implementation of identity.UserRepository
type MockUserRepository struct {
	mock.Mock
}

func (m *MockUserRepository) Create(ctx context.Context, user *identity.User) error {
	args := m.Called(ctx, user)
	return args.Error(0)
}

func (m *MockUserRepository) Update(ctx context.Context, user *identity.User) error {
	args := m.Called(ctx, user)
	return args.Error(0)
}

func (m *MockUserRepository) FindByID(ctx context.Context, id uuid.UUID) (*identity.User, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*identity.User), args.Error(1)
}

func (m *MockUserRepository) FindByEmail(ctx context.Context, email string) (*identity.User, error) {
	args := m.Called(ctx, email)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*identity.User), args.Error(1)
}

func (m *MockUserRepository) FindByTenant(ctx context.Context, tenantID uuid.UUID, filter identity.UserFilter) ([]*identity.User, int64, error) {
	args := m.Called(ctx, tenantID, filter)
	return args.Get(0).([]*identity.User), args.Get(1).(int64), args.Error(2)
}

func (m *MockUserRepository) FindAdminsByTenant(ctx context.Context, tenantID uuid.UUID) ([]*identity.User, error) {
	args := m.Called(ctx, tenantID)
	return args.Get(0).([]*identity.User), args.Error(1)
}

func (m *MockUserRepository) ExistsByEmail(ctx context.Context, email string) (bool, error) {
	args := m.Called(ctx, email)
	return args.Bool(0), args.Error(1)
}

// MockTenantDirectory is a mock implementation of TenantDirectory
type MockTenantDirectory struct {
	mock.Mock
}

func (m *MockTenantDirectory) FindByID(ctx context.Context, id uuid.UUID) (*identity.Tenant, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*identity.Tenant), args.Error(1)
}

// MockCreditConsumer is a mock implementation of CreditConsumer
type MockCreditConsumer struct {
	mock.Mock
}

func (m *MockCreditConsumer) ConsumeCredits(ctx context.Context, input billingapp.ConsumeCreditsInput) error {
	args := m.Called(ctx, input)
	return args.Error(0)
}

// MockObjectStorage is a mock implementation of ObjectStorageService
type MockObjectStorage struct {
	mock.Mock
}

func (m *MockObjectStorage) GenerateUploadURL(ctx context.Context, storageKey, contentType string, expiresIn time.Duration) (string, time.Time, error) {
	args := m.Called(ctx, storageKey, contentType, expiresIn)
	return args.String(0), args.Get(1).(time.Time), args.Error(2)
}

func (m *MockObjectStorage) GenerateDownloadURL(ctx context.Context, storageKey string, expiresIn time.Duration) (string, time.Time, error) {
	args := m.Called(ctx, storageKey, expiresIn)
	return args.String(0), args.Get(1).(time.Time), args.Error(2)
}

func (m *MockObjectStorage) DeleteObject(ctx context.Context, storageKey string) error {
	args := m.Called(ctx, storageKey)
	return args.Error(0)
}

func (m *MockObjectStorage) ObjectExists(ctx context.Context, storageKey string) (bool, error) {
	args := m.Called(ctx, storageKey)
	return args.Bool(0), args.Error(1)
}

// MockUserNotifier is a mock implementation of UserNotifier
type MockUserNotifier struct {
	mock.Mock
}

func (m *MockUserNotifier) NotifyUser(ctx context.Context, userID uuid.UUID, subject, message string) error {
	args := m.Called(ctx, userID, subject, message)
	return args.Error(0)
}
