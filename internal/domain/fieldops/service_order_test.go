package fieldops

import (
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/oxfield/backend/internal/domain/shared"
	"github.com/oxfield/backend/internal/domain/shared/valueobject"
)

// Test helpers

func createTestOrder(t *testing.T) *ServiceOrder {
	t.Helper()
	order, err := NewServiceOrder(
		uuid.New(),
		"OS-2026-00001",
		uuid.New(),
		"Carlos Souza",
		"Air conditioner maintenance",
		time.Now().AddDate(0, 0, 1),
		valueobject.NewMoneyBRLFromFloat(350),
	)
	require.NoError(t, err)
	return order
}

func assignTestTechnician(t *testing.T, order *ServiceOrder) uuid.UUID {
	t.Helper()
	technicianID := uuid.New()
	require.NoError(t, order.AssignTechnician(technicianID, "Joana Silva", uuid.New()))
	return technicianID
}

// Moves the order to IN_PROGRESS with all completion evidence on record.
func orderInProgress(t *testing.T, order *ServiceOrder) uuid.UUID {
	t.Helper()
	technicianID := assignTestTechnician(t, order)
	require.NoError(t, order.StartRoute(technicianID))
	require.NoError(t, order.Arrive(technicianID))
	return technicianID
}

func attachAllEvidence(t *testing.T, order *ServiceOrder) {
	t.Helper()
	item, err := order.AddChecklistItem("Replace filter")
	require.NoError(t, err)
	require.NoError(t, order.CompleteChecklistItem(item.ID))
	_, err = order.AttachPhoto(PhotoPhaseAfter, "https://cdn.example.com/after.jpg", "orders/after.jpg", nil)
	require.NoError(t, err)
	require.NoError(t, order.AttachSignature("https://cdn.example.com/sig.png", "Carlos Souza"))
}

func domainErrCode(t *testing.T, err error) string {
	t.Helper()
	var derr *shared.DomainError
	require.ErrorAs(t, err, &derr)
	return derr.Code
}

// ============================================
// OrderStatus Tests
// ============================================

func TestOrderStatus_IsValid(t *testing.T) {
	tests := []struct {
		status  OrderStatus
		isValid bool
	}{
		{OrderStatusScheduled, true},
		{OrderStatusInRoute, true},
		{OrderStatusInProgress, true},
		{OrderStatusCompleted, true},
		{OrderStatusCancelled, true},
		{OrderStatus("INVALID"), false},
		{OrderStatus(""), false},
	}

	for _, tt := range tests {
		t.Run(string(tt.status), func(t *testing.T) {
			assert.Equal(t, tt.isValid, tt.status.IsValid())
		})
	}
}

func TestOrderStatus_CanTransitionTo(t *testing.T) {
	tests := []struct {
		from     OrderStatus
		to       OrderStatus
		canTrans bool
	}{
		// From SCHEDULED
		{OrderStatusScheduled, OrderStatusInRoute, true},
		{OrderStatusScheduled, OrderStatusCancelled, true},
		{OrderStatusScheduled, OrderStatusInProgress, false},
		{OrderStatusScheduled, OrderStatusCompleted, false},
		// From IN_ROUTE
		{OrderStatusInRoute, OrderStatusInProgress, true},
		{OrderStatusInRoute, OrderStatusCancelled, true},
		{OrderStatusInRoute, OrderStatusScheduled, false},
		{OrderStatusInRoute, OrderStatusCompleted, false},
		// From IN_PROGRESS
		{OrderStatusInProgress, OrderStatusCompleted, true},
		{OrderStatusInProgress, OrderStatusCancelled, true},
		{OrderStatusInProgress, OrderStatusScheduled, false},
		{OrderStatusInProgress, OrderStatusInRoute, false},
		// From COMPLETED (terminal)
		{OrderStatusCompleted, OrderStatusScheduled, false},
		{OrderStatusCompleted, OrderStatusInRoute, false},
		{OrderStatusCompleted, OrderStatusInProgress, false},
		{OrderStatusCompleted, OrderStatusCancelled, false},
		// From CANCELLED (terminal)
		{OrderStatusCancelled, OrderStatusScheduled, false},
		{OrderStatusCancelled, OrderStatusInRoute, false},
		{OrderStatusCancelled, OrderStatusInProgress, false},
		{OrderStatusCancelled, OrderStatusCompleted, false},
	}

	for _, tt := range tests {
		t.Run(string(tt.from)+"->"+string(tt.to), func(t *testing.T) {
			assert.Equal(t, tt.canTrans, tt.from.CanTransitionTo(tt.to))
		})
	}
}

// ============================================
// ServiceOrder Tests
// ============================================

func TestNewServiceOrder(t *testing.T) {
	t.Run("creates scheduled order", func(t *testing.T) {
		order := createTestOrder(t)

		assert.Equal(t, OrderStatusScheduled, order.Status)
		assert.Equal(t, "OS-2026-00001", order.OSNumber)
		assert.Nil(t, order.TechnicianID)
		assert.Nil(t, order.ActualStart)
		assert.Nil(t, order.ActualEnd)
		assert.Len(t, order.GetDomainEvents(), 1)
	})

	t.Run("fails with empty order number", func(t *testing.T) {
		_, err := NewServiceOrder(uuid.New(), "", uuid.New(), "C", "", time.Now(), valueobject.ZeroBRL())
		assert.Error(t, err)
	})

	t.Run("fails with nil customer", func(t *testing.T) {
		_, err := NewServiceOrder(uuid.New(), "OS-1", uuid.Nil, "C", "", time.Now(), valueobject.ZeroBRL())
		assert.Error(t, err)
	})

	t.Run("fails with negative price", func(t *testing.T) {
		_, err := NewServiceOrder(uuid.New(), "OS-1", uuid.New(), "C", "", time.Now(), valueobject.NewMoneyBRLFromFloat(-10))
		assert.Error(t, err)
	})
}

func TestServiceOrder_AssignTechnician(t *testing.T) {
	t.Run("assigns and emits event", func(t *testing.T) {
		order := createTestOrder(t)
		order.ClearDomainEvents()
		technicianID := uuid.New()
		actorID := uuid.New()

		err := order.AssignTechnician(technicianID, "Joana Silva", actorID)

		require.NoError(t, err)
		require.NotNil(t, order.TechnicianID)
		assert.Equal(t, technicianID, *order.TechnicianID)

		events := order.GetDomainEvents()
		require.Len(t, events, 1)
		assigned, ok := events[0].(*OrderAssignedEvent)
		require.True(t, ok)
		assert.Equal(t, technicianID, assigned.TechnicianID)
		assert.Equal(t, actorID, assigned.ActorID)
		assert.Equal(t, order.OSNumber, assigned.OSNumber)
	})

	t.Run("fails once the order left SCHEDULED", func(t *testing.T) {
		order := createTestOrder(t)
		orderInProgress(t, order)

		err := order.AssignTechnician(uuid.New(), "Late Tech", uuid.New())

		assert.Equal(t, "INVALID_TRANSITION", domainErrCode(t, err))
	})
}

func TestServiceOrder_StartRoute(t *testing.T) {
	t.Run("transitions to IN_ROUTE and emits one event", func(t *testing.T) {
		order := createTestOrder(t)
		technicianID := assignTestTechnician(t, order)
		order.ClearDomainEvents()

		err := order.StartRoute(technicianID)

		require.NoError(t, err)
		assert.Equal(t, OrderStatusInRoute, order.Status)

		events := order.GetDomainEvents()
		require.Len(t, events, 1)
		changed, ok := events[0].(*OrderStatusChangedEvent)
		require.True(t, ok)
		assert.Equal(t, OrderStatusScheduled, changed.PreviousStatus)
		assert.Equal(t, OrderStatusInRoute, changed.NewStatus)
	})

	t.Run("repeated call is a no-op without a second event", func(t *testing.T) {
		order := createTestOrder(t)
		technicianID := assignTestTechnician(t, order)
		require.NoError(t, order.StartRoute(technicianID))
		order.ClearDomainEvents()

		err := order.StartRoute(technicianID)

		require.NoError(t, err)
		assert.Equal(t, OrderStatusInRoute, order.Status)
		assert.Empty(t, order.GetDomainEvents())
	})

	t.Run("fails without an assigned technician", func(t *testing.T) {
		order := createTestOrder(t)

		err := order.StartRoute(uuid.New())

		assert.Error(t, err)
		assert.Equal(t, OrderStatusScheduled, order.Status)
	})

	t.Run("fails from a terminal status", func(t *testing.T) {
		order := createTestOrder(t)
		require.NoError(t, order.Cancel(uuid.New(), "customer asked"))

		err := order.StartRoute(uuid.New())

		assert.Equal(t, "INVALID_TRANSITION", domainErrCode(t, err))
	})
}

func TestServiceOrder_Arrive(t *testing.T) {
	t.Run("stamps actual start", func(t *testing.T) {
		order := createTestOrder(t)
		technicianID := assignTestTechnician(t, order)
		require.NoError(t, order.StartRoute(technicianID))
		order.ClearDomainEvents()

		err := order.Arrive(technicianID)

		require.NoError(t, err)
		assert.Equal(t, OrderStatusInProgress, order.Status)
		require.NotNil(t, order.ActualStart)
		assert.WithinDuration(t, time.Now(), *order.ActualStart, time.Second)
		assert.Len(t, order.GetDomainEvents(), 1)
	})

	t.Run("fails when not IN_ROUTE", func(t *testing.T) {
		order := createTestOrder(t)

		err := order.Arrive(uuid.New())

		assert.Equal(t, "INVALID_TRANSITION", domainErrCode(t, err))
		assert.Equal(t, OrderStatusScheduled, order.Status)
		assert.Nil(t, order.ActualStart)
	})
}

func TestServiceOrder_Complete(t *testing.T) {
	policy := DefaultCompletionPolicy()

	t.Run("completes with full evidence", func(t *testing.T) {
		order := createTestOrder(t)
		technicianID := orderInProgress(t, order)
		attachAllEvidence(t, order)
		order.ClearDomainEvents()

		err := order.Complete(technicianID, policy)

		require.NoError(t, err)
		assert.Equal(t, OrderStatusCompleted, order.Status)
		require.NotNil(t, order.ActualEnd)
		assert.True(t, order.FinalPrice.Equal(order.QuotedPrice))

		events := order.GetDomainEvents()
		require.Len(t, events, 1)
		completed, ok := events[0].(*OrderCompletedEvent)
		require.True(t, ok)
		assert.True(t, completed.FinalPrice.Equal(order.FinalPrice))
	})

	t.Run("fails with INVALID_TRANSITION when not IN_PROGRESS", func(t *testing.T) {
		order := createTestOrder(t)

		err := order.Complete(uuid.New(), policy)

		assert.Equal(t, "INVALID_TRANSITION", domainErrCode(t, err))
		assert.Equal(t, OrderStatusScheduled, order.Status)
	})

	t.Run("fails with incomplete checklist", func(t *testing.T) {
		order := createTestOrder(t)
		technicianID := orderInProgress(t, order)
		_, err := order.AddChecklistItem("Replace filter")
		require.NoError(t, err)

		err = order.Complete(technicianID, policy)

		assert.Equal(t, "CHECKLIST_INCOMPLETE", domainErrCode(t, err))
		assert.Equal(t, OrderStatusInProgress, order.Status)
	})

	t.Run("fails without signature", func(t *testing.T) {
		order := createTestOrder(t)
		technicianID := orderInProgress(t, order)
		_, err := order.AttachPhoto(PhotoPhaseAfter, "https://cdn.example.com/a.jpg", "", nil)
		require.NoError(t, err)

		err = order.Complete(technicianID, policy)

		assert.Equal(t, "MISSING_SIGNATURE", domainErrCode(t, err))
	})

	t.Run("fails without after photo and stays IN_PROGRESS", func(t *testing.T) {
		order := createTestOrder(t)
		technicianID := orderInProgress(t, order)
		require.NoError(t, order.AttachSignature("https://cdn.example.com/sig.png", "Carlos"))
		_, err := order.AttachPhoto(PhotoPhaseBefore, "https://cdn.example.com/b.jpg", "", nil)
		require.NoError(t, err)

		err = order.Complete(technicianID, policy)

		assert.Equal(t, "MISSING_PHOTO", domainErrCode(t, err))
		assert.Equal(t, OrderStatusInProgress, order.Status)
		assert.Nil(t, order.ActualEnd)
	})

	t.Run("relaxed policy skips signature and photo checks", func(t *testing.T) {
		order := createTestOrder(t)
		technicianID := orderInProgress(t, order)

		err := order.Complete(technicianID, CompletionPolicy{})

		require.NoError(t, err)
		assert.Equal(t, OrderStatusCompleted, order.Status)
	})

	t.Run("uses the overridden final price", func(t *testing.T) {
		order := createTestOrder(t)
		technicianID := orderInProgress(t, order)
		require.NoError(t, order.SetFinalPrice(valueobject.NewMoneyBRLFromFloat(420)))

		err := order.Complete(technicianID, CompletionPolicy{})

		require.NoError(t, err)
		assert.Equal(t, "420", order.FinalPrice.String())
	})
}

func TestServiceOrder_Cancel(t *testing.T) {
	t.Run("cancels from every non-terminal status", func(t *testing.T) {
		setups := map[string]func(*testing.T) *ServiceOrder{
			"SCHEDULED": func(t *testing.T) *ServiceOrder {
				return createTestOrder(t)
			},
			"IN_ROUTE": func(t *testing.T) *ServiceOrder {
				order := createTestOrder(t)
				technicianID := assignTestTechnician(t, order)
				require.NoError(t, order.StartRoute(technicianID))
				return order
			},
			"IN_PROGRESS": func(t *testing.T) *ServiceOrder {
				order := createTestOrder(t)
				orderInProgress(t, order)
				return order
			},
		}

		for name, setup := range setups {
			t.Run(name, func(t *testing.T) {
				order := setup(t)

				err := order.Cancel(uuid.New(), "customer asked")

				require.NoError(t, err)
				assert.Equal(t, OrderStatusCancelled, order.Status)
				assert.NotNil(t, order.CancelledAt)
				assert.Equal(t, "customer asked", order.CancelReason)
			})
		}
	})

	t.Run("fails from terminal statuses", func(t *testing.T) {
		order := createTestOrder(t)
		require.NoError(t, order.Cancel(uuid.New(), "first"))

		err := order.Cancel(uuid.New(), "second")

		assert.Equal(t, "INVALID_TRANSITION", domainErrCode(t, err))
	})

	t.Run("requires a reason", func(t *testing.T) {
		order := createTestOrder(t)

		err := order.Cancel(uuid.New(), "")

		assert.Error(t, err)
		assert.Equal(t, OrderStatusScheduled, order.Status)
	})
}

func TestServiceOrder_Evidence(t *testing.T) {
	t.Run("checklist lifecycle", func(t *testing.T) {
		order := createTestOrder(t)
		item, err := order.AddChecklistItem("Clean coils")
		require.NoError(t, err)
		assert.False(t, order.IsChecklistComplete())

		require.NoError(t, order.CompleteChecklistItem(item.ID))
		assert.True(t, order.IsChecklistComplete())
	})

	t.Run("completing an unknown checklist item fails", func(t *testing.T) {
		order := createTestOrder(t)
		err := order.CompleteChecklistItem(uuid.New())
		assert.Error(t, err)
	})

	t.Run("rejects invalid photo phase", func(t *testing.T) {
		order := createTestOrder(t)
		_, err := order.AttachPhoto(PhotoPhase("LATER"), "https://x/y.jpg", "", nil)
		assert.Error(t, err)
	})

	t.Run("rejects evidence on closed orders", func(t *testing.T) {
		order := createTestOrder(t)
		require.NoError(t, order.Cancel(uuid.New(), "done"))

		_, err := order.AddChecklistItem("too late")
		assert.Error(t, err)
		_, err = order.AttachPhoto(PhotoPhaseAfter, "https://x/y.jpg", "", nil)
		assert.Error(t, err)
		err = order.AttachSignature("https://x/sig.png", "C")
		assert.Error(t, err)
	})
}

func TestServiceOrder_FullLifecycle(t *testing.T) {
	order := createTestOrder(t)
	technicianID := assignTestTechnician(t, order)

	require.NoError(t, order.StartRoute(technicianID))
	assert.Equal(t, OrderStatusInRoute, order.Status)

	require.NoError(t, order.Arrive(technicianID))
	assert.Equal(t, OrderStatusInProgress, order.Status)
	assert.NotNil(t, order.ActualStart)

	attachAllEvidence(t, order)
	require.NoError(t, order.Complete(technicianID, DefaultCompletionPolicy()))
	assert.Equal(t, OrderStatusCompleted, order.Status)
	assert.NotNil(t, order.ActualEnd)

	// creation + assignment + two status changes + completion
	assert.Len(t, order.GetDomainEvents(), 5)
}
