// Package billing provides payment gateway implementations for invoice
// collection.
package billing

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/shopspring/decimal"
	"github.com/stripe/stripe-go/v81"
	"github.com/stripe/stripe-go/v81/paymentintent"
	"github.com/stripe/stripe-go/v81/refund"
	"go.uber.org/zap"

	billingapp "github.com/oxfield/backend/internal/application/billing"
	billingdomain "github.com/oxfield/backend/internal/domain/billing"
	"github.com/oxfield/backend/internal/infrastructure/config"
)

// Ensure StripeGateway implements PaymentGateway
var _ billingapp.PaymentGateway = (*StripeGateway)(nil)

// centsFactor converts a decimal amount to the currency's smallest unit
var centsFactor = decimal.NewFromInt(100)

// StripeGateway collects invoices through Stripe payment intents. Charges run
// off-session against the payment method stored on the subscription.
type StripeGateway struct {
	currency string
	logger   *zap.Logger
}

// NewStripeGateway creates a gateway from configuration and initializes the
// Stripe client
func NewStripeGateway(cfg *config.StripeConfig, logger *zap.Logger) (*StripeGateway, error) {
	if cfg == nil {
		return nil, errors.New("stripe configuration is required")
	}
	if cfg.SecretKey == "" {
		return nil, errors.New("stripe secret key is required")
	}
	if !strings.HasPrefix(cfg.SecretKey, "sk_") {
		return nil, errors.New("stripe secret key must start with sk_")
	}

	currency := strings.ToLower(cfg.Currency)
	if currency == "" {
		currency = "brl"
	}

	stripe.Key = cfg.SecretKey

	return &StripeGateway{
		currency: currency,
		logger:   logger,
	}, nil
}

// ChargeInvoice collects the invoice total from the stored payment method and
// returns the payment intent id as the transaction reference
func (g *StripeGateway) ChargeInvoice(ctx context.Context, invoice *billingdomain.Invoice, paymentMethodRef string) (string, error) {
	if paymentMethodRef == "" {
		return "", errors.New("stripe: payment method reference is required")
	}
	if !invoice.TotalAmount.IsPositive() {
		return "", fmt.Errorf("stripe: invoice %s has no chargeable amount", invoice.InvoiceNumber)
	}

	// Stripe wants the amount in the currency's smallest unit
	amount := invoice.TotalAmount.Mul(centsFactor).IntPart()

	params := &stripe.PaymentIntentParams{
		Amount:        stripe.Int64(amount),
		Currency:      stripe.String(g.currency),
		PaymentMethod: stripe.String(paymentMethodRef),
		Confirm:       stripe.Bool(true),
		OffSession:    stripe.Bool(true),
	}
	params.Metadata = map[string]string{
		"tenant_id":      invoice.TenantID.String(),
		"invoice_id":     invoice.ID.String(),
		"invoice_number": invoice.InvoiceNumber,
	}

	intent, err := paymentintent.New(params)
	if err != nil {
		g.logger.Warn("Stripe charge failed",
			zap.String("invoice_number", invoice.InvoiceNumber),
			zap.Error(err))
		return "", fmt.Errorf("stripe: charge failed: %w", err)
	}

	if intent.Status != stripe.PaymentIntentStatusSucceeded {
		return "", fmt.Errorf("stripe: payment intent %s ended in status %s", intent.ID, intent.Status)
	}

	g.logger.Info("Invoice charged",
		zap.String("invoice_number", invoice.InvoiceNumber),
		zap.String("payment_intent", intent.ID))

	return intent.ID, nil
}

// RefundInvoice returns the full invoice amount to the payer
func (g *StripeGateway) RefundInvoice(ctx context.Context, invoice *billingdomain.Invoice) error {
	if invoice.TransactionID == "" {
		return fmt.Errorf("stripe: invoice %s has no transaction to refund", invoice.InvoiceNumber)
	}

	params := &stripe.RefundParams{
		PaymentIntent: stripe.String(invoice.TransactionID),
	}
	params.Metadata = map[string]string{
		"invoice_number": invoice.InvoiceNumber,
	}

	ref, err := refund.New(params)
	if err != nil {
		g.logger.Error("Stripe refund failed",
			zap.String("invoice_number", invoice.InvoiceNumber),
			zap.String("payment_intent", invoice.TransactionID),
			zap.Error(err))
		return fmt.Errorf("stripe: refund failed: %w", err)
	}

	g.logger.Info("Invoice refunded",
		zap.String("invoice_number", invoice.InvoiceNumber),
		zap.String("refund_id", ref.ID))

	return nil
}
