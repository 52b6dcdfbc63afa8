package fieldops

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/oxfield/backend/internal/domain/fieldops"
	"github.com/oxfield/backend/internal/domain/identity"
	"github.com/oxfield/backend/internal/domain/shared"
)

// OrderNotificationHandler turns order lifecycle events into user notices.
// Recipients are looked up fresh on every delivery so deactivated accounts
// stop receiving notices immediately. Delivery failures are logged, never
// propagated: a broken notification channel must not poison the outbox.
type OrderNotificationHandler struct {
	userRepo identity.UserRepository
	notifier UserNotifier
	logger   *zap.Logger
}

// NewOrderNotificationHandler creates a new order notification handler
func NewOrderNotificationHandler(
	userRepo identity.UserRepository,
	notifier UserNotifier,
	log *zap.Logger,
) *OrderNotificationHandler {
	return &OrderNotificationHandler{
		userRepo: userRepo,
		notifier: notifier,
		logger:   log,
	}
}

// EventTypes returns the event types this handler is interested in
func (h *OrderNotificationHandler) EventTypes() []string {
	return []string{
		fieldops.EventTypeOrderCreated,
		fieldops.EventTypeOrderAssigned,
		fieldops.EventTypeOrderStatusChanged,
		fieldops.EventTypeOrderCompleted,
	}
}

// Handle processes a domain event
func (h *OrderNotificationHandler) Handle(ctx context.Context, event shared.DomainEvent) error {
	switch e := event.(type) {
	case *fieldops.OrderCreatedEvent:
		h.notify(ctx, e.CustomerID, "Service order created",
			fmt.Sprintf("Your service order %s is scheduled for %s.", e.OSNumber, e.ScheduledDate.Format("2006-01-02")))

	case *fieldops.OrderAssignedEvent:
		h.notify(ctx, e.TechnicianID, "New service order assigned",
			fmt.Sprintf("Order %s was assigned to you for %s.", e.OSNumber, e.ScheduledDate.Format("2006-01-02")))
		h.notify(ctx, e.CustomerID, "Technician assigned",
			fmt.Sprintf("%s will handle your service order %s.", e.TechnicianName, e.OSNumber))

	case *fieldops.OrderStatusChangedEvent:
		h.notifyStatusChange(ctx, e)

	case *fieldops.OrderCompletedEvent:
		h.notify(ctx, e.CustomerID, "Service completed",
			fmt.Sprintf("Your service order %s is done. Total: R$ %s.", e.OSNumber, e.FinalPrice.StringFixed(2)))

	default:
		h.logger.Debug("Ignoring event without notification mapping",
			zap.String("event_type", event.EventType()))
	}

	return nil
}

func (h *OrderNotificationHandler) notifyStatusChange(ctx context.Context, e *fieldops.OrderStatusChangedEvent) {
	switch e.NewStatus {
	case fieldops.OrderStatusInRoute:
		h.notify(ctx, e.CustomerID, "Technician on the way",
			fmt.Sprintf("The technician for order %s is on the way.", e.OSNumber))
	case fieldops.OrderStatusInProgress:
		h.notify(ctx, e.CustomerID, "Service started",
			fmt.Sprintf("Work on your service order %s has started.", e.OSNumber))
	case fieldops.OrderStatusCancelled:
		h.notify(ctx, e.CustomerID, "Service order cancelled",
			fmt.Sprintf("Order %s was cancelled: %s", e.OSNumber, e.CancelReason))
		if e.TechnicianID != nil {
			h.notify(ctx, *e.TechnicianID, "Service order cancelled",
				fmt.Sprintf("Order %s was cancelled and removed from your schedule.", e.OSNumber))
		}
	}
}

// notify delivers one notice after re-checking the recipient still exists and
// is not deactivated
func (h *OrderNotificationHandler) notify(ctx context.Context, userID uuid.UUID, subject, message string) {
	if userID == uuid.Nil {
		return
	}

	user, err := h.userRepo.FindByID(ctx, userID)
	if err != nil {
		h.logger.Warn("Notification recipient lookup failed",
			zap.String("user_id", userID.String()),
			zap.Error(err))
		return
	}
	if user.Status == identity.UserStatusDeactivated {
		h.logger.Debug("Skipping notice for deactivated user",
			zap.String("user_id", userID.String()))
		return
	}

	if err := h.notifier.NotifyUser(ctx, user.ID, subject, message); err != nil {
		h.logger.Warn("Failed to deliver order notice",
			zap.String("user_id", userID.String()),
			zap.String("subject", subject),
			zap.Error(err))
	}
}

// Ensure OrderNotificationHandler implements shared.EventHandler
var _ shared.EventHandler = (*OrderNotificationHandler)(nil)
