package handler

// =====================
// Order Request DTOs
// =====================

// OrderListQuery represents query parameters for listing service orders
type OrderListQuery struct {
	Keyword      string `form:"keyword" binding:"omitempty"`
	Status       string `form:"status" binding:"omitempty,oneof=SCHEDULED IN_ROUTE IN_PROGRESS COMPLETED CANCELLED"`
	CustomerID   string `form:"customer_id" binding:"omitempty,uuid"`
	TechnicianID string `form:"technician_id" binding:"omitempty,uuid"`
	Page         int    `form:"page" binding:"omitempty,min=1"`
	PageSize     int    `form:"page_size" binding:"omitempty,min=1,max=100"`
	SortBy       string `form:"sort_by" binding:"omitempty,oneof=os_number status scheduled_date created_at updated_at"`
	SortDir      string `form:"sort_dir" binding:"omitempty,oneof=asc desc"`
}

// AddChecklistItemRequest represents the request body for adding a checklist task
type AddChecklistItemRequest struct {
	Description string `json:"description" binding:"required,min=1,max=500"`
}
