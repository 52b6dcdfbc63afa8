package fieldops

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	billingapp "github.com/oxfield/backend/internal/application/billing"
	"github.com/oxfield/backend/internal/domain/fieldops"
	"github.com/oxfield/backend/internal/domain/identity"
)

// ObjectStorageService abstracts the object store used for order evidence.
// Uploads go straight from the mobile client to storage via presigned URLs;
// the backend only hands out URLs and verifies the object landed.
type ObjectStorageService interface {
	// GenerateUploadURL generates a presigned URL for uploading a file
	GenerateUploadURL(ctx context.Context, storageKey, contentType string, expiresIn time.Duration) (string, time.Time, error)

	// GenerateDownloadURL generates a presigned URL for downloading a file
	GenerateDownloadURL(ctx context.Context, storageKey string, expiresIn time.Duration) (string, time.Time, error)

	// DeleteObject removes an object from storage
	DeleteObject(ctx context.Context, storageKey string) error

	// ObjectExists checks whether an object exists in storage
	ObjectExists(ctx context.Context, storageKey string) (bool, error)
}

// CreditConsumer spends operation credits on behalf of the bound tenant
type CreditConsumer interface {
	ConsumeCredits(ctx context.Context, input billingapp.ConsumeCreditsInput) error
}

// TenantDirectory resolves the bound tenant so its serving status can be
// checked before new work is taken on
type TenantDirectory interface {
	FindByID(ctx context.Context, id uuid.UUID) (*identity.Tenant, error)
}

// UserNotifier delivers order notices to individual users
type UserNotifier interface {
	NotifyUser(ctx context.Context, userID uuid.UUID, subject, message string) error
}

// CreateOrderInput contains input for creating a service order
type CreateOrderInput struct {
	CustomerID    uuid.UUID       `json:"customer_id" binding:"required"`
	CustomerName  string          `json:"customer_name"`
	Description   string          `json:"description"`
	ScheduledDate time.Time       `json:"scheduled_date" binding:"required"`
	QuotedPrice   decimal.Decimal `json:"quoted_price"`
	Checklist     []string        `json:"checklist"`
}

// AssignTechnicianInput contains input for assigning a technician
type AssignTechnicianInput struct {
	OrderID      uuid.UUID `json:"-"`
	TechnicianID uuid.UUID `json:"technician_id" binding:"required"`
	ActorID      uuid.UUID `json:"-"`
}

// CompleteOrderInput contains input for completing an order
type CompleteOrderInput struct {
	OrderID    uuid.UUID        `json:"-"`
	ActorID    uuid.UUID        `json:"-"`
	FinalPrice *decimal.Decimal `json:"final_price,omitempty"`
}

// CancelOrderInput contains input for cancelling an order
type CancelOrderInput struct {
	OrderID uuid.UUID `json:"-"`
	ActorID uuid.UUID `json:"-"`
	Reason  string    `json:"reason" binding:"required"`
}

// UploadRequestInput asks for a presigned upload slot for order evidence
type UploadRequestInput struct {
	OrderID     uuid.UUID           `json:"-"`
	Phase       fieldops.PhotoPhase `json:"phase"`
	ContentType string              `json:"content_type" binding:"required"`
}

// UploadSlotDTO carries the presigned upload URL back to the client
type UploadSlotDTO struct {
	StorageKey string    `json:"storage_key"`
	UploadURL  string    `json:"upload_url"`
	ExpiresAt  time.Time `json:"expires_at"`
}

// AttachPhotoInput records a finished photo upload on the order
type AttachPhotoInput struct {
	OrderID    uuid.UUID           `json:"-"`
	Phase      fieldops.PhotoPhase `json:"phase" binding:"required"`
	StorageKey string              `json:"storage_key" binding:"required"`
	TakenBy    *uuid.UUID          `json:"-"`
}

// AttachSignatureInput records the customer sign-off on the order
type AttachSignatureInput struct {
	OrderID    uuid.UUID `json:"-"`
	StorageKey string    `json:"storage_key" binding:"required"`
	SignerName string    `json:"signer_name"`
}

// ChecklistItemDTO represents one checklist task
type ChecklistItemDTO struct {
	ID          uuid.UUID  `json:"id"`
	Description string     `json:"description"`
	Completed   bool       `json:"completed"`
	CompletedAt *time.Time `json:"completed_at,omitempty"`
}

// OrderPhotoDTO represents uploaded photo evidence
type OrderPhotoDTO struct {
	ID        uuid.UUID `json:"id"`
	Phase     string    `json:"phase"`
	FileURL   string    `json:"file_url"`
	CreatedAt time.Time `json:"created_at"`
}

// OrderDTO represents service order data returned to callers
type OrderDTO struct {
	ID              uuid.UUID          `json:"id"`
	OSNumber        string             `json:"os_number"`
	Status          string             `json:"status"`
	CustomerID      uuid.UUID          `json:"customer_id"`
	CustomerName    string             `json:"customer_name,omitempty"`
	TechnicianID    *uuid.UUID         `json:"technician_id,omitempty"`
	TechnicianName  string             `json:"technician_name,omitempty"`
	Description     string             `json:"description,omitempty"`
	ScheduledDate   time.Time          `json:"scheduled_date"`
	ActualStart     *time.Time         `json:"actual_start,omitempty"`
	ActualEnd       *time.Time         `json:"actual_end,omitempty"`
	QuotedPrice     decimal.Decimal    `json:"quoted_price"`
	FinalPrice      decimal.Decimal    `json:"final_price"`
	Checklist       []ChecklistItemDTO `json:"checklist,omitempty"`
	Photos          []OrderPhotoDTO    `json:"photos,omitempty"`
	SignatureURL    string             `json:"signature_url,omitempty"`
	SignerName      string             `json:"signer_name,omitempty"`
	CancelledAt     *time.Time         `json:"cancelled_at,omitempty"`
	CancelReason    string             `json:"cancel_reason,omitempty"`
	CreatedAt       time.Time          `json:"created_at"`
	UpdatedAt       time.Time          `json:"updated_at"`
}

// OrderListResult represents a paginated order list
type OrderListResult struct {
	Orders   []OrderDTO `json:"orders"`
	Total    int64      `json:"total"`
	Page     int        `json:"page"`
	PageSize int        `json:"page_size"`
}

// OrderStatsDTO counts the bound tenant's orders per status
type OrderStatsDTO struct {
	Scheduled  int64 `json:"scheduled"`
	InRoute    int64 `json:"in_route"`
	InProgress int64 `json:"in_progress"`
	Completed  int64 `json:"completed"`
	Cancelled  int64 `json:"cancelled"`
}

func toOrderDTO(order *fieldops.ServiceOrder) *OrderDTO {
	checklist := make([]ChecklistItemDTO, len(order.Checklist))
	for idx, item := range order.Checklist {
		checklist[idx] = ChecklistItemDTO{
			ID:          item.ID,
			Description: item.Description,
			Completed:   item.Completed,
			CompletedAt: item.CompletedAt,
		}
	}
	photos := make([]OrderPhotoDTO, len(order.Photos))
	for idx, photo := range order.Photos {
		photos[idx] = OrderPhotoDTO{
			ID:        photo.ID,
			Phase:     string(photo.Phase),
			FileURL:   photo.FileURL,
			CreatedAt: photo.CreatedAt,
		}
	}
	return &OrderDTO{
		ID:             order.ID,
		OSNumber:       order.OSNumber,
		Status:         string(order.Status),
		CustomerID:     order.CustomerID,
		CustomerName:   order.CustomerName,
		TechnicianID:   order.TechnicianID,
		TechnicianName: order.TechnicianName,
		Description:    order.Description,
		ScheduledDate:  order.ScheduledDate,
		ActualStart:    order.ActualStart,
		ActualEnd:      order.ActualEnd,
		QuotedPrice:    order.QuotedPrice,
		FinalPrice:     order.FinalPrice,
		Checklist:      checklist,
		Photos:         photos,
		SignatureURL:   order.SignatureURL,
		SignerName:     order.SignerName,
		CancelledAt:    order.CancelledAt,
		CancelReason:   order.CancelReason,
		CreatedAt:      order.CreatedAt,
		UpdatedAt:      order.UpdatedAt,
	}
}
