package billing

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"go.uber.org/zap"

	billingapp "github.com/oxfield/backend/internal/application/billing"
	billingdomain "github.com/oxfield/backend/internal/domain/billing"
	"github.com/oxfield/backend/internal/infrastructure/config"
)

// Ensure StubPaymentGateway implements PaymentGateway
var _ billingapp.PaymentGateway = (*StubPaymentGateway)(nil)

// StubPaymentGateway approves every charge without talking to a payment
// provider. Use it for development until Stripe is enabled.
type StubPaymentGateway struct {
	logger *zap.Logger
}

// NewStubPaymentGateway creates a new stub payment gateway
func NewStubPaymentGateway(logger *zap.Logger) *StubPaymentGateway {
	return &StubPaymentGateway{logger: logger}
}

// ChargeInvoice approves the charge and fabricates a transaction id
func (g *StubPaymentGateway) ChargeInvoice(ctx context.Context, invoice *billingdomain.Invoice, paymentMethodRef string) (string, error) {
	transactionID := fmt.Sprintf("stub_%s", uuid.New())

	g.logger.Info("Stub gateway approved charge",
		zap.String("invoice_number", invoice.InvoiceNumber),
		zap.String("amount", invoice.TotalAmount.StringFixed(2)),
		zap.String("transaction_id", transactionID))

	return transactionID, nil
}

// RefundInvoice approves the refund
func (g *StubPaymentGateway) RefundInvoice(ctx context.Context, invoice *billingdomain.Invoice) error {
	g.logger.Info("Stub gateway approved refund",
		zap.String("invoice_number", invoice.InvoiceNumber),
		zap.String("transaction_id", invoice.TransactionID))
	return nil
}

// NewPaymentGateway picks the gateway for the current configuration: Stripe
// when enabled, the stub otherwise
func NewPaymentGateway(cfg *config.StripeConfig, logger *zap.Logger) (billingapp.PaymentGateway, error) {
	if cfg != nil && cfg.Enabled {
		return NewStripeGateway(cfg, logger)
	}
	return NewStubPaymentGateway(logger), nil
}
