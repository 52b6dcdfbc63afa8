package event

import (
	"github.com/oxfield/backend/internal/domain/billing"
	"github.com/oxfield/backend/internal/domain/fieldops"
	"github.com/oxfield/backend/internal/domain/identity"
)

// RegisterAllEvents registers all domain event types with the serializer
// This is required for the OutboxProcessor to deserialize events from the outbox table
func RegisterAllEvents(serializer *EventSerializer) {
	// Field operations - service order events
	serializer.Register(fieldops.EventTypeOrderCreated, &fieldops.OrderCreatedEvent{})
	serializer.Register(fieldops.EventTypeOrderAssigned, &fieldops.OrderAssignedEvent{})
	serializer.Register(fieldops.EventTypeOrderStatusChanged, &fieldops.OrderStatusChangedEvent{})
	serializer.Register(fieldops.EventTypeOrderCompleted, &fieldops.OrderCompletedEvent{})

	// Billing - subscription events
	serializer.Register(billing.EventTypeSubscriptionCreated, &billing.SubscriptionCreatedEvent{})
	serializer.Register(billing.EventTypeSubscriptionStatusChanged, &billing.SubscriptionStatusChangedEvent{})

	// Billing - invoice events
	serializer.Register(billing.EventTypeInvoiceCreated, &billing.InvoiceCreatedEvent{})
	serializer.Register(billing.EventTypeInvoiceFinalized, &billing.InvoiceFinalizedEvent{})
	serializer.Register(billing.EventTypeInvoicePaid, &billing.InvoicePaidEvent{})
	serializer.Register(billing.EventTypeInvoiceOverdue, &billing.InvoiceOverdueEvent{})

	// Billing - credit events
	serializer.Register(billing.EventTypeCreditsPurchased, &billing.CreditsPurchasedEvent{})
	serializer.Register(billing.EventTypeCreditsConsumed, &billing.CreditsConsumedEvent{})
	serializer.Register(billing.EventTypeCreditsExpiring, &billing.CreditsExpiringEvent{})

	// Identity events
	serializer.Register(identity.EventTypeTenantCreated, &identity.TenantCreatedEvent{})
	serializer.Register(identity.EventTypeTenantStatusChanged, &identity.TenantStatusChangedEvent{})
	serializer.Register(identity.EventTypeTenantPlanChanged, &identity.TenantPlanChangedEvent{})
	serializer.Register(identity.EventTypeUserCreated, &identity.UserCreatedEvent{})
}
