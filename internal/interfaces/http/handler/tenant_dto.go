package handler

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// =====================
// Tenant Request DTOs
// =====================

// ProvisionTenantRequest represents the request body for provisioning a tenant
type ProvisionTenantRequest struct {
	Name          string `json:"name" binding:"required,min=1,max=200"`
	Domain        string `json:"domain" binding:"required,min=2,max=100"`
	Region        string `json:"region" binding:"omitempty,max=50"`
	PlanEdition   string `json:"plan_edition" binding:"omitempty,oneof=STARTER PROFESSIONAL ENTERPRISE"`
	ContactName   string `json:"contact_name" binding:"omitempty,max=100"`
	ContactMail   string `json:"contact_mail" binding:"omitempty,email,max=200"`
	AdminName     string `json:"admin_name" binding:"required,min=1,max=100"`
	AdminEmail    string `json:"admin_email" binding:"required,email,max=200"`
	AdminPassword string `json:"admin_password" binding:"required,min=8,max=128"`
}

// ChangeTenantPlanRequest represents the request body for changing tenant plan
type ChangeTenantPlanRequest struct {
	PlanEdition string `json:"plan_edition" binding:"required,oneof=STARTER PROFESSIONAL ENTERPRISE"`
}

// UpdateTenantContactRequest represents the request body for updating tenant contact
type UpdateTenantContactRequest struct {
	ContactName string `json:"contact_name" binding:"omitempty,max=100"`
	ContactMail string `json:"contact_mail" binding:"required,email,max=200"`
}

// TenantListQuery represents query parameters for listing tenants
type TenantListQuery struct {
	Keyword  string `form:"keyword" binding:"omitempty"`
	Status   string `form:"status" binding:"omitempty,oneof=PROVISIONING ACTIVE SUSPENDED DELINQUENT"`
	Page     int    `form:"page" binding:"omitempty,min=1"`
	PageSize int    `form:"page_size" binding:"omitempty,min=1,max=100"`
	SortBy   string `form:"sort_by" binding:"omitempty,oneof=name domain status plan_edition created_at updated_at"`
	SortDir  string `form:"sort_dir" binding:"omitempty,oneof=asc desc"`
}

// =====================
// Tenant Response DTOs
// =====================

// TenantResponse represents a tenant in API responses
type TenantResponse struct {
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

// TenantListResponse represents a paginated list of tenants
type TenantListResponse struct {
	Tenants    []TenantResponse `json:"tenants"`
	Total      int64            `json:"total"`
	Page       int              `json:"page"`
	PageSize   int              `json:"page_size"`
	TotalPages int              `json:"total_pages"`
}

// TenantStatsResponse represents tenant statistics
type TenantStatsResponse struct {
	Total        int64 `json:"total"`
	Provisioning int64 `json:"provisioning"`
	Active       int64 `json:"active"`
	Suspended    int64 `json:"suspended"`
	Delinquent   int64 `json:"delinquent"`
}
