package fieldops

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/oxfield/backend/internal/domain/fieldops"
	"github.com/oxfield/backend/internal/domain/identity"
	"github.com/oxfield/backend/internal/domain/shared"
	"github.com/oxfield/backend/internal/domain/shared/valueobject"
)

type handlerFixture struct {
	userRepo *MockUserRepository
	notifier *MockUserNotifier
	handler  *OrderNotificationHandler
}

func newHandlerFixture() *handlerFixture {
	f := &handlerFixture{
		userRepo: new(MockUserRepository),
		notifier: new(MockUserNotifier),
	}
	f.handler = NewOrderNotificationHandler(f.userRepo, f.notifier, zap.NewNop())
	return f
}

func makeCustomer(t *testing.T) *identity.User {
	t.Helper()
	user, err := identity.NewCustomer("Dona Maria", "maria@gmail.com", "Password123")
	require.NoError(t, err)
	require.NoError(t, user.Activate())
	return user
}

func TestOrderNotificationHandler_EventTypes(t *testing.T) {
	f := newHandlerFixture()
	assert.ElementsMatch(t, []string{
		fieldops.EventTypeOrderCreated,
		fieldops.EventTypeOrderAssigned,
		fieldops.EventTypeOrderStatusChanged,
		fieldops.EventTypeOrderCompleted,
	}, f.handler.EventTypes())
}

func TestOrderNotificationHandler_OrderCreated_NotifiesCustomer(t *testing.T) {
	ctx := context.Background()
	f := newHandlerFixture()
	tenantID := uuid.New()
	customer := makeCustomer(t)

	order, err := fieldops.NewServiceOrder(tenantID, "OS-2026-0050", customer.ID, customer.Name,
		"Troca de registro", time.Date(2026, 9, 10, 0, 0, 0, 0, time.UTC),
		valueobject.NewMoneyBRLFromFloat(200))
	require.NoError(t, err)
	event := fieldops.NewOrderCreatedEvent(order)

	f.userRepo.On("FindByID", ctx, customer.ID).Return(customer, nil)
	f.notifier.On("NotifyUser", ctx, customer.ID, "Service order created", mock.Anything).Return(nil)

	err = f.handler.Handle(ctx, event)

	require.NoError(t, err)
	f.notifier.AssertExpectations(t)
	message := f.notifier.Calls[0].Arguments.String(3)
	assert.Contains(t, message, "OS-2026-0050")
	assert.Contains(t, message, "2026-09-10")
}

func TestOrderNotificationHandler_OrderAssigned_NotifiesBothParties(t *testing.T) {
	ctx := context.Background()
	f := newHandlerFixture()
	tenantID := uuid.New()
	customer := makeCustomer(t)
	technician := makeTechnician(t, tenantID)

	order, err := fieldops.NewServiceOrder(tenantID, "OS-2026-0051", customer.ID, customer.Name,
		"", time.Date(2026, 9, 12, 0, 0, 0, 0, time.UTC), valueobject.NewMoneyBRLFromFloat(150))
	require.NoError(t, err)
	require.NoError(t, order.AssignTechnician(technician.ID, technician.Name, uuid.New()))
	event := fieldops.NewOrderAssignedEvent(order, uuid.New())

	f.userRepo.On("FindByID", ctx, technician.ID).Return(technician, nil)
	f.userRepo.On("FindByID", ctx, customer.ID).Return(customer, nil)
	f.notifier.On("NotifyUser", ctx, technician.ID, "New service order assigned", mock.Anything).Return(nil)
	f.notifier.On("NotifyUser", ctx, customer.ID, "Technician assigned", mock.Anything).Return(nil)

	err = f.handler.Handle(ctx, event)

	require.NoError(t, err)
	f.notifier.AssertNumberOfCalls(t, "NotifyUser", 2)
}

func TestOrderNotificationHandler_SkipsDeactivatedRecipient(t *testing.T) {
	ctx := context.Background()
	f := newHandlerFixture()
	tenantID := uuid.New()
	customer := makeCustomer(t)
	require.NoError(t, customer.Deactivate())

	order, err := fieldops.NewServiceOrder(tenantID, "OS-2026-0052", customer.ID, customer.Name,
		"", time.Now().AddDate(0, 0, 1), valueobject.NewMoneyBRLFromFloat(90))
	require.NoError(t, err)
	event := fieldops.NewOrderCreatedEvent(order)

	f.userRepo.On("FindByID", ctx, customer.ID).Return(customer, nil)

	err = f.handler.Handle(ctx, event)

	require.NoError(t, err)
	f.notifier.AssertNotCalled(t, "NotifyUser", mock.Anything, mock.Anything, mock.Anything, mock.Anything)
}

func TestOrderNotificationHandler_DeliveryFailureDoesNotPropagate(t *testing.T) {
	ctx := context.Background()
	f := newHandlerFixture()
	tenantID := uuid.New()
	customer := makeCustomer(t)

	order, err := fieldops.NewServiceOrder(tenantID, "OS-2026-0053", customer.ID, customer.Name,
		"", time.Now().AddDate(0, 0, 2), valueobject.NewMoneyBRLFromFloat(120))
	require.NoError(t, err)
	event := fieldops.NewOrderCreatedEvent(order)

	f.userRepo.On("FindByID", ctx, customer.ID).Return(customer, nil)
	f.notifier.On("NotifyUser", ctx, customer.ID, mock.Anything, mock.Anything).
		Return(errors.New("push gateway down"))

	err = f.handler.Handle(ctx, event)

	assert.NoError(t, err)
}

func TestOrderNotificationHandler_CancelledNotifiesTechnicianToo(t *testing.T) {
	ctx := context.Background()
	f := newHandlerFixture()
	tenantID := uuid.New()
	customer := makeCustomer(t)
	technician := makeTechnician(t, tenantID)

	order, err := fieldops.NewServiceOrder(tenantID, "OS-2026-0054", customer.ID, customer.Name,
		"", time.Now().AddDate(0, 0, 5), valueobject.NewMoneyBRLFromFloat(300))
	require.NoError(t, err)
	require.NoError(t, order.AssignTechnician(technician.ID, technician.Name, uuid.New()))
	require.NoError(t, order.Cancel(uuid.New(), "Cliente desistiu"))

	var event *fieldops.OrderStatusChangedEvent
	for _, raw := range order.GetDomainEvents() {
		if sc, ok := raw.(*fieldops.OrderStatusChangedEvent); ok && sc.NewStatus == fieldops.OrderStatusCancelled {
			event = sc
		}
	}
	require.NotNil(t, event)

	f.userRepo.On("FindByID", ctx, customer.ID).Return(customer, nil)
	f.userRepo.On("FindByID", ctx, technician.ID).Return(technician, nil)
	f.notifier.On("NotifyUser", ctx, mock.Anything, "Service order cancelled", mock.Anything).Return(nil)

	err = f.handler.Handle(ctx, event)

	require.NoError(t, err)
	f.notifier.AssertNumberOfCalls(t, "NotifyUser", 2)
}

func TestOrderNotificationHandler_UnknownRecipientIsLoggedNotFatal(t *testing.T) {
	ctx := context.Background()
	f := newHandlerFixture()
	tenantID := uuid.New()
	customerID := uuid.New()

	order, err := fieldops.NewServiceOrder(tenantID, "OS-2026-0055", customerID, "",
		"", time.Now().AddDate(0, 0, 1), valueobject.NewMoneyBRLFromFloat(80))
	require.NoError(t, err)
	event := fieldops.NewOrderCreatedEvent(order)

	f.userRepo.On("FindByID", ctx, customerID).Return(nil, shared.ErrNotFound)

	err = f.handler.Handle(ctx, event)

	require.NoError(t, err)
	f.notifier.AssertNotCalled(t, "NotifyUser", mock.Anything, mock.Anything, mock.Anything, mock.Anything)
}
