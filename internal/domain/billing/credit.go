package billing

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/oxfield/backend/internal/domain/shared"
	"github.com/oxfield/backend/internal/domain/shared/valueobject"
)

// UsageType classifies what a credit was spent on
type UsageType string

const (
	UsageTypeOrderCreated      UsageType = "ORDER_CREATED"
	UsageTypeSMS               UsageType = "SMS"
	UsageTypeRouteOptimization UsageType = "ROUTE_OPTIMIZATION"
)

// IsValid checks if the usage type is known
func (u UsageType) IsValid() bool {
	switch u {
	case UsageTypeOrderCreated, UsageTypeSMS, UsageTypeRouteOptimization:
		return true
	}
	return false
}

// CreditPackage is a purchasable bundle of operation credits
type CreditPackage struct {
	Credits int
	Price   decimal.Decimal
}

// CreditPackages lists the bundles tenants can buy, priced in BRL
var CreditPackages = []CreditPackage{
	{Credits: 500, Price: decimal.NewFromFloat(199.00)},
	{Credits: 2000, Price: decimal.NewFromFloat(699.00)},
	{Credits: 10000, Price: decimal.NewFromFloat(2999.00)},
}

// FindCreditPackage returns the package with the given credit count
func FindCreditPackage(credits int) (CreditPackage, error) {
	for _, pkg := range CreditPackages {
		if pkg.Credits == credits {
			return pkg, nil
		}
	}
	return CreditPackage{}, shared.NewDomainError("INVALID_PACKAGE", "No credit package with that size")
}

// CreditValidityMonths is how long purchased credits stay usable
const CreditValidityMonths = 12

// CreditBalance is one purchased batch of credits. Batches are consumed
// oldest expiry first, and used can never exceed purchased.
type CreditBalance struct {
	shared.TenantAggregateRoot
	PurchasedCredits int             `gorm:"not null"`
	UsedCredits      int             `gorm:"not null;default:0"`
	PricePaid        decimal.Decimal `gorm:"type:decimal(12,2);not null"`
	PurchasedAt      time.Time       `gorm:"not null"`
	ExpiresAt        time.Time       `gorm:"not null;index"`
	ExpiryNotifiedAt *time.Time
}

// TableName returns the table name for GORM
func (CreditBalance) TableName() string {
	return "credit_balances"
}

// TenantScoped marks the aggregate for automatic tenant filtering
func (CreditBalance) TenantScoped() {}

// NewCreditBalance grants a purchased package to a tenant
func NewCreditBalance(tenantID uuid.UUID, pkg CreditPackage) (*CreditBalance, error) {
	if pkg.Credits <= 0 {
		return nil, shared.NewDomainError("INVALID_PACKAGE", "Credit package must grant a positive credit count")
	}
	if pkg.Price.IsNegative() {
		return nil, shared.NewDomainError("INVALID_PACKAGE", "Credit package price cannot be negative")
	}

	now := time.Now()
	balance := &CreditBalance{
		TenantAggregateRoot: shared.NewTenantAggregateRoot(tenantID),
		PurchasedCredits:    pkg.Credits,
		UsedCredits:         0,
		PricePaid:           pkg.Price,
		PurchasedAt:         now,
		ExpiresAt:           now.AddDate(0, CreditValidityMonths, 0),
	}

	balance.AddDomainEvent(NewCreditsPurchasedEvent(balance))

	return balance, nil
}

// RemainingCredits returns purchased minus used
func (b *CreditBalance) RemainingCredits() int {
	return b.PurchasedCredits - b.UsedCredits
}

// IsExpired returns true once the validity window has passed
func (b *CreditBalance) IsExpired(now time.Time) bool {
	return now.After(b.ExpiresAt)
}

// Available returns the credits usable at the given time. Expired batches
// contribute nothing.
func (b *CreditBalance) Available(now time.Time) int {
	if b.IsExpired(now) {
		return 0
	}
	return b.RemainingCredits()
}

// Consume spends credits from this batch. The caller drains batches in
// expiry order and splits the amount across them.
func (b *CreditBalance) Consume(credits int, now time.Time) error {
	if credits <= 0 {
		return shared.NewDomainError("INVALID_AMOUNT", "Credits to consume must be positive")
	}
	if b.IsExpired(now) {
		return shared.NewDomainError("INSUFFICIENT_CREDITS", "Credit batch has expired")
	}
	if credits > b.RemainingCredits() {
		return shared.NewDomainError("INSUFFICIENT_CREDITS", "Not enough credits in batch")
	}

	b.UsedCredits += credits
	b.UpdatedAt = time.Now()
	b.IncrementVersion()

	return nil
}

// MarkExpiryNotified records that the advance expiry notice went out so the
// sweep does not notify the same batch twice
func (b *CreditBalance) MarkExpiryNotified(now time.Time) {
	b.ExpiryNotifiedAt = &now
	b.UpdatedAt = now
	b.IncrementVersion()
}

// NeedsExpiryNotice returns true if the batch expires within the window,
// still holds credits, and was not notified yet
func (b *CreditBalance) NeedsExpiryNotice(now time.Time, lookahead time.Duration) bool {
	if b.ExpiryNotifiedAt != nil {
		return false
	}
	if b.RemainingCredits() <= 0 {
		return false
	}
	if b.IsExpired(now) {
		return false
	}
	return b.ExpiresAt.Sub(now) <= lookahead
}

// PricePaidMoney returns the package price as Money value object
func (b *CreditBalance) PricePaidMoney() valueobject.Money {
	return valueobject.NewMoneyBRL(b.PricePaid)
}

// CreditUsage is the audit record written for every credit spend
type CreditUsage struct {
	ID          uuid.UUID `gorm:"type:uuid;primaryKey"`
	TenantID    uuid.UUID `gorm:"type:uuid;not null;index"`
	BalanceID   uuid.UUID `gorm:"type:uuid;not null;index"`
	UsageType   UsageType `gorm:"type:varchar(30);not null"`
	Credits     int       `gorm:"not null"`
	ReferenceID *uuid.UUID
	Description string `gorm:"type:varchar(500)"`
	CreatedAt   time.Time
}

// TableName returns the table name for GORM
func (CreditUsage) TableName() string {
	return "credit_usages"
}

// TenantScoped marks the record for automatic tenant filtering
func (CreditUsage) TenantScoped() {}

// NewCreditUsage records a spend against a batch
func NewCreditUsage(tenantID, balanceID uuid.UUID, usageType UsageType, credits int, referenceID *uuid.UUID, description string) (*CreditUsage, error) {
	if !usageType.IsValid() {
		return nil, shared.NewDomainError("INVALID_USAGE_TYPE", "Unknown credit usage type")
	}
	if credits <= 0 {
		return nil, shared.NewDomainError("INVALID_AMOUNT", "Credits used must be positive")
	}

	return &CreditUsage{
		ID:          uuid.New(),
		TenantID:    tenantID,
		BalanceID:   balanceID,
		UsageType:   usageType,
		Credits:     credits,
		ReferenceID: referenceID,
		Description: description,
		CreatedAt:   time.Now(),
	}, nil
}
