package identity

import (
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/oxfield/backend/internal/domain/shared"
	"github.com/oxfield/backend/internal/domain/shared/valueobject"
)

// TenantStatus represents the status of a tenant
type TenantStatus string

const (
	TenantStatusProvisioning TenantStatus = "PROVISIONING"
	TenantStatusActive       TenantStatus = "ACTIVE"
	TenantStatusSuspended    TenantStatus = "SUSPENDED" // Suspended by an operator or policy
	TenantStatusDelinquent   TenantStatus = "DELINQUENT"
)

// PlanEdition represents the subscription plan edition of a tenant
type PlanEdition string

const (
	PlanEditionStarter      PlanEdition = "STARTER"
	PlanEditionProfessional PlanEdition = "PROFESSIONAL"
	PlanEditionEnterprise   PlanEdition = "ENTERPRISE"
)

// Tenant represents a company/organization whose data is isolated from all
// others. It is the root of isolation and is never itself tenant-scoped.
type Tenant struct {
	shared.BaseAggregateRoot
	Name        string            `gorm:"type:varchar(200);not null"`
	Domain      string            `gorm:"type:varchar(200);not null;uniqueIndex"`
	Status      TenantStatus      `gorm:"type:varchar(20);not null;default:'PROVISIONING'"`
	PlanEdition PlanEdition       `gorm:"type:varchar(20);not null;default:'STARTER'"`
	Region      string            `gorm:"type:varchar(50)"`
	MRR         valueobject.Money `gorm:"type:decimal(12,2);column:mrr"`
	ContactName string            `gorm:"type:varchar(100)"`
	ContactMail string            `gorm:"type:varchar(200)"`
	ActivatedAt *time.Time
	SuspendedAt *time.Time
}

// TableName returns the table name for GORM
func (Tenant) TableName() string {
	return "tenants"
}

// NewTenant creates a new tenant in provisioning status
func NewTenant(name, domain, region string, plan PlanEdition) (*Tenant, error) {
	if err := validateTenantName(name); err != nil {
		return nil, err
	}
	if err := validateTenantDomain(domain); err != nil {
		return nil, err
	}
	if err := validatePlanEdition(plan); err != nil {
		return nil, err
	}

	tenant := &Tenant{
		BaseAggregateRoot: shared.NewBaseAggregateRoot(),
		Name:              name,
		Domain:            strings.ToLower(strings.TrimSpace(domain)),
		Status:            TenantStatusProvisioning,
		PlanEdition:       plan,
		Region:            region,
		MRR:               valueobject.Zero(valueobject.DefaultCurrency),
	}

	tenant.AddDomainEvent(NewTenantCreatedEvent(tenant))

	return tenant, nil
}

// Activate moves a provisioning or suspended tenant back into service
func (t *Tenant) Activate() error {
	if t.Status == TenantStatusActive {
		return shared.NewDomainError("ALREADY_ACTIVE", "Tenant is already active")
	}

	oldStatus := t.Status
	now := time.Now()
	t.Status = TenantStatusActive
	t.ActivatedAt = &now
	t.SuspendedAt = nil
	t.UpdatedAt = now
	t.IncrementVersion()

	t.AddDomainEvent(NewTenantStatusChangedEvent(t, oldStatus, TenantStatusActive))

	return nil
}

// Suspend takes the tenant out of service. Data is retained.
func (t *Tenant) Suspend() error {
	if t.Status == TenantStatusSuspended {
		return shared.NewDomainError("ALREADY_SUSPENDED", "Tenant is already suspended")
	}

	oldStatus := t.Status
	now := time.Now()
	t.Status = TenantStatusSuspended
	t.SuspendedAt = &now
	t.UpdatedAt = now
	t.IncrementVersion()

	t.AddDomainEvent(NewTenantStatusChangedEvent(t, oldStatus, TenantStatusSuspended))

	return nil
}

// MarkDelinquent flags the tenant for sustained non-payment. Like suspension
// this blocks new orders but keeps all data.
func (t *Tenant) MarkDelinquent() error {
	if t.Status == TenantStatusDelinquent {
		return shared.NewDomainError("ALREADY_DELINQUENT", "Tenant is already delinquent")
	}

	oldStatus := t.Status
	now := time.Now()
	t.Status = TenantStatusDelinquent
	t.SuspendedAt = &now
	t.UpdatedAt = now
	t.IncrementVersion()

	t.AddDomainEvent(NewTenantStatusChangedEvent(t, oldStatus, TenantStatusDelinquent))

	return nil
}

// Reactivate restores a suspended or delinquent tenant after resolution
func (t *Tenant) Reactivate() error {
	if t.Status != TenantStatusSuspended && t.Status != TenantStatusDelinquent {
		return shared.NewDomainError("NOT_SUSPENDED", "Only suspended or delinquent tenants can be reactivated")
	}
	return t.Activate()
}

// ChangePlan switches the tenant to a different plan edition
func (t *Tenant) ChangePlan(plan PlanEdition) error {
	if err := validatePlanEdition(plan); err != nil {
		return err
	}
	if t.PlanEdition == plan {
		return nil
	}

	oldPlan := t.PlanEdition
	t.PlanEdition = plan
	t.UpdatedAt = time.Now()
	t.IncrementVersion()

	t.AddDomainEvent(NewTenantPlanChangedEvent(t, oldPlan, plan))

	return nil
}

// UpdateMRR records the tenant's current monthly recurring revenue
func (t *Tenant) UpdateMRR(mrr valueobject.Money) error {
	if mrr.IsNegative() {
		return shared.NewDomainError("INVALID_MRR", "MRR cannot be negative")
	}

	t.MRR = mrr
	t.UpdatedAt = time.Now()
	t.IncrementVersion()

	return nil
}

// SetContact sets the tenant's contact information
func (t *Tenant) SetContact(name, mail string) error {
	if name != "" && len(name) > 100 {
		return shared.NewDomainError("INVALID_CONTACT_NAME", "Contact name cannot exceed 100 characters")
	}
	if mail != "" && len(mail) > 200 {
		return shared.NewDomainError("INVALID_EMAIL", "Email cannot exceed 200 characters")
	}

	t.ContactName = name
	t.ContactMail = mail
	t.UpdatedAt = time.Now()
	t.IncrementVersion()

	return nil
}

// CanServe returns true if the tenant may create and process new orders
func (t *Tenant) CanServe() bool {
	return t.Status == TenantStatusActive
}

// IsSuspended returns true if the tenant is suspended or delinquent
func (t *Tenant) IsSuspended() bool {
	return t.Status == TenantStatusSuspended || t.Status == TenantStatusDelinquent
}

// GetTenantID returns the tenant ID
func (t *Tenant) GetTenantID() uuid.UUID {
	return t.ID
}

// Validation functions

func validateTenantName(name string) error {
	if name == "" {
		return shared.NewDomainError("INVALID_NAME", "Tenant name cannot be empty")
	}
	if len(name) > 200 {
		return shared.NewDomainError("INVALID_NAME", "Tenant name cannot exceed 200 characters")
	}
	return nil
}

func validateTenantDomain(domain string) error {
	domain = strings.TrimSpace(domain)
	if domain == "" {
		return shared.NewDomainError("INVALID_DOMAIN", "Tenant domain cannot be empty")
	}
	if len(domain) > 200 {
		return shared.NewDomainError("INVALID_DOMAIN", "Tenant domain cannot exceed 200 characters")
	}
	for _, r := range domain {
		if !((r >= 'a' && r <= 'z') || (r >= 'A' && r <= 'Z') || (r >= '0' && r <= '9') || r == '-' || r == '.') {
			return shared.NewDomainError("INVALID_DOMAIN", "Tenant domain can only contain letters, numbers, hyphens, and dots")
		}
	}
	return nil
}

func validatePlanEdition(plan PlanEdition) error {
	switch plan {
	case PlanEditionStarter, PlanEditionProfessional, PlanEditionEnterprise:
		return nil
	default:
		return shared.NewDomainError("INVALID_PLAN", "Invalid plan edition")
	}
}
