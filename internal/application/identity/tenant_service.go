package identity

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/oxfield/backend/internal/domain/identity"
	"github.com/oxfield/backend/internal/domain/shared"
)

// TenantService handles tenant provisioning and lifecycle operations
type TenantService struct {
	tenantRepo identity.TenantRepository
	userRepo   identity.UserRepository
	logger     *zap.Logger
}

// NewTenantService creates a new tenant service
func NewTenantService(
	tenantRepo identity.TenantRepository,
	userRepo identity.UserRepository,
	logger *zap.Logger,
) *TenantService {
	return &TenantService{
		tenantRepo: tenantRepo,
		userRepo:   userRepo,
		logger:     logger,
	}
}

// ProvisionTenantInput contains input for provisioning a new tenant
type ProvisionTenantInput struct {
	Name          string
	Domain        string
	Region        string
	PlanEdition   string
	ContactName   string
	ContactMail   string
	AdminName     string
	AdminEmail    string
	AdminPassword string
}

// TenantDTO represents tenant data transfer object
type TenantDTO struct {
	ID          uuid.UUID       `json:"id"`
	Name        string          `json:"name"`
	Domain      string          `json:"domain"`
	Status      string          `json:"status"`
	PlanEdition string          `json:"plan_edition"`
	Region      string          `json:"region,omitempty"`
	MRR         decimal.Decimal `json:"mrr"`
	ContactName string          `json:"contact_name,omitempty"`
	ContactMail string          `json:"contact_mail,omitempty"`
	ActivatedAt *time.Time      `json:"activated_at,omitempty"`
	SuspendedAt *time.Time      `json:"suspended_at,omitempty"`
	CreatedAt   time.Time       `json:"created_at"`
	UpdatedAt   time.Time       `json:"updated_at"`
}

// TenantFilter represents filter for querying tenants
type TenantFilter struct {
	Page     int
	PageSize int
	SortBy   string
	SortDir  string
	Keyword  string
	Status   string
}

// ToSharedFilter converts TenantFilter to shared.Filter
func (f TenantFilter) ToSharedFilter() shared.Filter {
	page := f.Page
	if page < 1 {
		page = 1
	}
	pageSize := f.PageSize
	if pageSize < 1 {
		pageSize = 20
	}
	if pageSize > 100 {
		pageSize = 100
	}
	return shared.Filter{
		Page:     page,
		PageSize: pageSize,
		OrderBy:  f.SortBy,
		OrderDir: f.SortDir,
		Search:   f.Keyword,
	}
}

// TenantListResult represents paginated tenant list result
type TenantListResult struct {
	Tenants    []TenantDTO `json:"tenants"`
	Total      int64       `json:"total"`
	Page       int         `json:"page"`
	PageSize   int         `json:"page_size"`
	TotalPages int         `json:"total_pages"`
}

// Provision creates a new tenant together with its first admin user.
// The tenant starts in PROVISIONING and serves traffic only after Activate.
func (s *TenantService) Provision(ctx context.Context, input ProvisionTenantInput) (*TenantDTO, error) {
	s.logger.Info("Provisioning new tenant",
		zap.String("name", input.Name),
		zap.String("domain", input.Domain))

	exists, err := s.tenantRepo.ExistsByDomain(ctx, input.Domain)
	if err != nil {
		s.logger.Error("Failed to check domain existence", zap.Error(err))
		return nil, shared.NewDomainError("INTERNAL_ERROR", "Failed to check domain availability")
	}
	if exists {
		return nil, shared.NewDomainError("DOMAIN_EXISTS", "Domain already exists")
	}

	emailTaken, err := s.userRepo.ExistsByEmail(ctx, input.AdminEmail)
	if err != nil {
		s.logger.Error("Failed to check admin email existence", zap.Error(err))
		return nil, shared.NewDomainError("INTERNAL_ERROR", "Failed to check email availability")
	}
	if emailTaken {
		return nil, shared.NewDomainError("EMAIL_EXISTS", "Email already registered")
	}

	plan := identity.PlanEditionStarter
	if input.PlanEdition != "" {
		plan = identity.PlanEdition(input.PlanEdition)
	}

	tenant, err := identity.NewTenant(input.Name, input.Domain, input.Region, plan)
	if err != nil {
		return nil, err
	}
	if input.ContactName != "" || input.ContactMail != "" {
		if err := tenant.SetContact(input.ContactName, input.ContactMail); err != nil {
			return nil, err
		}
	}

	admin, err := identity.NewUser(tenant.ID, input.AdminName, input.AdminEmail, input.AdminPassword, identity.RoleAdmin)
	if err != nil {
		return nil, err
	}
	if err := admin.Activate(); err != nil {
		return nil, err
	}

	if err := s.tenantRepo.Save(ctx, tenant); err != nil {
		s.logger.Error("Failed to save tenant", zap.Error(err))
		return nil, shared.NewDomainError("INTERNAL_ERROR", "Failed to create tenant")
	}
	if err := s.userRepo.Create(ctx, admin); err != nil {
		s.logger.Error("Failed to create tenant admin", zap.Error(err))
		return nil, shared.NewDomainError("INTERNAL_ERROR", "Failed to create tenant admin")
	}

	s.logger.Info("Tenant provisioned",
		zap.String("tenant_id", tenant.ID.String()),
		zap.String("domain", tenant.Domain))

	return toTenantDTO(tenant), nil
}

// GetByID retrieves a tenant by ID
func (s *TenantService) GetByID(ctx context.Context, id uuid.UUID) (*TenantDTO, error) {
	tenant, err := s.findTenant(ctx, id)
	if err != nil {
		return nil, err
	}
	return toTenantDTO(tenant), nil
}

// GetByDomain retrieves a tenant by its unique domain
func (s *TenantService) GetByDomain(ctx context.Context, domain string) (*TenantDTO, error) {
	tenant, err := s.tenantRepo.FindByDomain(ctx, domain)
	if err != nil {
		if err == shared.ErrNotFound {
			return nil, shared.NewDomainError("TENANT_NOT_FOUND", "Tenant not found")
		}
		s.logger.Error("Failed to find tenant by domain", zap.Error(err))
		return nil, shared.NewDomainError("INTERNAL_ERROR", "Failed to find tenant")
	}
	return toTenantDTO(tenant), nil
}

// List retrieves a paginated list of tenants
func (s *TenantService) List(ctx context.Context, filter TenantFilter) (*TenantListResult, error) {
	sharedFilter := filter.ToSharedFilter()

	var tenants []identity.Tenant
	var total int64
	var err error

	if filter.Status != "" {
		status := identity.TenantStatus(filter.Status)
		tenants, err = s.tenantRepo.FindByStatus(ctx, status, sharedFilter)
		if err != nil {
			s.logger.Error("Failed to list tenants by status", zap.Error(err))
			return nil, shared.NewDomainError("INTERNAL_ERROR", "Failed to list tenants")
		}
		total, err = s.tenantRepo.CountByStatus(ctx, status)
	} else {
		tenants, err = s.tenantRepo.FindAll(ctx, sharedFilter)
		if err != nil {
			s.logger.Error("Failed to list tenants", zap.Error(err))
			return nil, shared.NewDomainError("INTERNAL_ERROR", "Failed to list tenants")
		}
		total, err = s.tenantRepo.Count(ctx, sharedFilter)
	}

	if err != nil {
		s.logger.Error("Failed to count tenants", zap.Error(err))
		return nil, shared.NewDomainError("INTERNAL_ERROR", "Failed to count tenants")
	}

	pageSize := sharedFilter.PageSize
	totalPages := int(total) / pageSize
	if int(total)%pageSize > 0 {
		totalPages++
	}

	tenantDTOs := make([]TenantDTO, len(tenants))
	for i, tenant := range tenants {
		tenantDTOs[i] = *toTenantDTO(&tenant)
	}

	return &TenantListResult{
		Tenants:    tenantDTOs,
		Total:      total,
		Page:       sharedFilter.Page,
		PageSize:   pageSize,
		TotalPages: totalPages,
	}, nil
}

// Activate moves a provisioning or suspended tenant into service
func (s *TenantService) Activate(ctx context.Context, id uuid.UUID) (*TenantDTO, error) {
	tenant, err := s.findTenant(ctx, id)
	if err != nil {
		return nil, err
	}

	if err := tenant.Activate(); err != nil {
		return nil, err
	}

	if err := s.tenantRepo.Save(ctx, tenant); err != nil {
		s.logger.Error("Failed to activate tenant", zap.Error(err))
		return nil, shared.NewDomainError("INTERNAL_ERROR", "Failed to activate tenant")
	}

	s.logger.Info("Tenant activated", zap.String("tenant_id", id.String()))

	return toTenantDTO(tenant), nil
}

// Suspend takes the tenant out of service while keeping its data
func (s *TenantService) Suspend(ctx context.Context, id uuid.UUID) (*TenantDTO, error) {
	tenant, err := s.findTenant(ctx, id)
	if err != nil {
		return nil, err
	}

	if err := tenant.Suspend(); err != nil {
		return nil, err
	}

	if err := s.tenantRepo.Save(ctx, tenant); err != nil {
		s.logger.Error("Failed to suspend tenant", zap.Error(err))
		return nil, shared.NewDomainError("INTERNAL_ERROR", "Failed to suspend tenant")
	}

	s.logger.Info("Tenant suspended", zap.String("tenant_id", id.String()))

	return toTenantDTO(tenant), nil
}

// Reactivate restores a suspended or delinquent tenant
func (s *TenantService) Reactivate(ctx context.Context, id uuid.UUID) (*TenantDTO, error) {
	tenant, err := s.findTenant(ctx, id)
	if err != nil {
		return nil, err
	}

	if err := tenant.Reactivate(); err != nil {
		return nil, err
	}

	if err := s.tenantRepo.Save(ctx, tenant); err != nil {
		s.logger.Error("Failed to reactivate tenant", zap.Error(err))
		return nil, shared.NewDomainError("INTERNAL_ERROR", "Failed to reactivate tenant")
	}

	s.logger.Info("Tenant reactivated", zap.String("tenant_id", id.String()))

	return toTenantDTO(tenant), nil
}

// ChangePlan switches the tenant to a different plan edition
func (s *TenantService) ChangePlan(ctx context.Context, id uuid.UUID, plan string) (*TenantDTO, error) {
	tenant, err := s.findTenant(ctx, id)
	if err != nil {
		return nil, err
	}

	if err := tenant.ChangePlan(identity.PlanEdition(plan)); err != nil {
		return nil, err
	}

	if err := s.tenantRepo.Save(ctx, tenant); err != nil {
		s.logger.Error("Failed to change tenant plan", zap.Error(err))
		return nil, shared.NewDomainError("INTERNAL_ERROR", "Failed to change tenant plan")
	}

	s.logger.Info("Tenant plan changed",
		zap.String("tenant_id", id.String()),
		zap.String("plan", plan))

	return toTenantDTO(tenant), nil
}

// UpdateContact updates the tenant's contact information
func (s *TenantService) UpdateContact(ctx context.Context, id uuid.UUID, name, mail string) (*TenantDTO, error) {
	tenant, err := s.findTenant(ctx, id)
	if err != nil {
		return nil, err
	}

	if err := tenant.SetContact(name, mail); err != nil {
		return nil, err
	}

	if err := s.tenantRepo.Save(ctx, tenant); err != nil {
		s.logger.Error("Failed to update tenant contact", zap.Error(err))
		return nil, shared.NewDomainError("INTERNAL_ERROR", "Failed to update tenant contact")
	}

	return toTenantDTO(tenant), nil
}

// GetStats returns tenant statistics
func (s *TenantService) GetStats(ctx context.Context) (*TenantStatsDTO, error) {
	statuses := []identity.TenantStatus{
		identity.TenantStatusProvisioning,
		identity.TenantStatusActive,
		identity.TenantStatusSuspended,
		identity.TenantStatusDelinquent,
	}

	counts := make(map[identity.TenantStatus]int64, len(statuses))
	for _, status := range statuses {
		count, err := s.tenantRepo.CountByStatus(ctx, status)
		if err != nil {
			return nil, shared.NewDomainError("INTERNAL_ERROR", "Failed to get stats")
		}
		counts[status] = count
	}

	total, err := s.tenantRepo.Count(ctx, shared.DefaultFilter())
	if err != nil {
		return nil, shared.NewDomainError("INTERNAL_ERROR", "Failed to get stats")
	}

	return &TenantStatsDTO{
		Total:        total,
		Provisioning: counts[identity.TenantStatusProvisioning],
		Active:       counts[identity.TenantStatusActive],
		Suspended:    counts[identity.TenantStatusSuspended],
		Delinquent:   counts[identity.TenantStatusDelinquent],
	}, nil
}

// TenantStatsDTO represents tenant statistics
type TenantStatsDTO struct {
	Total        int64 `json:"total"`
	Provisioning int64 `json:"provisioning"`
	Active       int64 `json:"active"`
	Suspended    int64 `json:"suspended"`
	Delinquent   int64 `json:"delinquent"`
}

func (s *TenantService) findTenant(ctx context.Context, id uuid.UUID) (*identity.Tenant, error) {
	tenant, err := s.tenantRepo.FindByID(ctx, id)
	if err != nil {
		if err == shared.ErrNotFound {
			return nil, shared.NewDomainError("TENANT_NOT_FOUND", "Tenant not found")
		}
		s.logger.Error("Failed to find tenant", zap.Error(err))
		return nil, shared.NewDomainError("INTERNAL_ERROR", "Failed to find tenant")
	}
	return tenant, nil
}

// toTenantDTO converts domain Tenant to TenantDTO
func toTenantDTO(tenant *identity.Tenant) *TenantDTO {
	return &TenantDTO{
		ID:          tenant.ID,
		Name:        tenant.Name,
		Domain:      tenant.Domain,
		Status:      string(tenant.Status),
		PlanEdition: string(tenant.PlanEdition),
		Region:      tenant.Region,
		MRR:         tenant.MRR.Amount(),
		ContactName: tenant.ContactName,
		ContactMail: tenant.ContactMail,
		ActivatedAt: tenant.ActivatedAt,
		SuspendedAt: tenant.SuspendedAt,
		CreatedAt:   tenant.CreatedAt,
		UpdatedAt:   tenant.UpdatedAt,
	}
}
