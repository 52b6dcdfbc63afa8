// Package notification delivers billing and order notices.
package notification

import (
	"context"

	"github.com/google/uuid"
	"go.uber.org/zap"

	billingapp "github.com/oxfield/backend/internal/application/billing"
	fieldopsapp "github.com/oxfield/backend/internal/application/fieldops"
)

// Ensure LogNotifier implements both notifier interfaces
var (
	_ billingapp.Notifier      = (*LogNotifier)(nil)
	_ fieldopsapp.UserNotifier = (*LogNotifier)(nil)
)

// LogNotifier writes every notice to the log instead of delivering it. Use it
// for development until an email or push channel is wired in.
type LogNotifier struct {
	logger *zap.Logger
}

// NewLogNotifier creates a new log notifier
func NewLogNotifier(logger *zap.Logger) *LogNotifier {
	return &LogNotifier{logger: logger}
}

// NotifyTenant records a tenant-level notice
func (n *LogNotifier) NotifyTenant(ctx context.Context, tenantID uuid.UUID, subject, message string) error {
	n.logger.Info("Tenant notice",
		zap.String("tenant_id", tenantID.String()),
		zap.String("subject", subject),
		zap.String("message", message))
	return nil
}

// NotifyUser records a user-level notice
func (n *LogNotifier) NotifyUser(ctx context.Context, userID uuid.UUID, subject, message string) error {
	n.logger.Info("User notice",
		zap.String("user_id", userID.String()),
		zap.String("subject", subject),
		zap.String("message", message))
	return nil
}
