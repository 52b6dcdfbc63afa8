package fieldops

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	billingapp "github.com/oxfield/backend/internal/application/billing"
	"github.com/oxfield/backend/internal/domain/billing"
	"github.com/oxfield/backend/internal/domain/fieldops"
	"github.com/oxfield/backend/internal/domain/identity"
	"github.com/oxfield/backend/internal/domain/shared"
	"github.com/oxfield/backend/internal/domain/shared/valueobject"
	"github.com/oxfield/backend/internal/infrastructure/logger"
)

// uploadURLExpiration is how long a presigned evidence upload slot stays valid
const uploadURLExpiration = 15 * time.Minute

// downloadURLExpiration is how long generated evidence links stay valid
const downloadURLExpiration = 24 * time.Hour

// OrderService drives the service order lifecycle. Every status transition
// runs under a row lock so competing updates on the same order serialize.
type OrderService struct {
	orderRepo fieldops.ServiceOrderRepository
	userRepo  identity.UserRepository
	tenants   TenantDirectory
	credits   CreditConsumer
	storage   ObjectStorageService
	policy    fieldops.CompletionPolicy
	logger    *zap.Logger
}

// NewOrderService creates a new order service
func NewOrderService(
	orderRepo fieldops.ServiceOrderRepository,
	userRepo identity.UserRepository,
	tenants TenantDirectory,
	credits CreditConsumer,
	storage ObjectStorageService,
	policy fieldops.CompletionPolicy,
	log *zap.Logger,
) *OrderService {
	return &OrderService{
		orderRepo: orderRepo,
		userRepo:  userRepo,
		tenants:   tenants,
		credits:   credits,
		storage:   storage,
		policy:    policy,
		logger:    log,
	}
}

// CreateOrder opens a new service order for the bound tenant.
// Creation consumes one operation credit; without credits the order is not
// created.
func (s *OrderService) CreateOrder(ctx context.Context, input CreateOrderInput) (*OrderDTO, error) {
	tenantID, err := tenantFromContext(ctx)
	if err != nil {
		return nil, err
	}

	tenant, err := s.tenants.FindByID(ctx, tenantID)
	if err != nil {
		s.logger.Error("Failed to load tenant for order creation", zap.Error(err))
		return nil, shared.NewDomainError("INTERNAL_ERROR", "Failed to load tenant")
	}
	if !tenant.CanServe() {
		return nil, shared.NewDomainError("TENANT_SUSPENDED", "Tenant is suspended and cannot create orders")
	}

	osNumber, err := s.orderRepo.GenerateOSNumber(ctx)
	if err != nil {
		s.logger.Error("Failed to generate order number", zap.Error(err))
		return nil, shared.NewDomainError("INTERNAL_ERROR", "Failed to generate order number")
	}

	order, err := fieldops.NewServiceOrder(tenantID, osNumber, input.CustomerID, input.CustomerName,
		input.Description, input.ScheduledDate, valueobject.NewMoneyBRL(input.QuotedPrice))
	if err != nil {
		return nil, err
	}
	for _, description := range input.Checklist {
		if _, err := order.AddChecklistItem(description); err != nil {
			return nil, err
		}
	}

	err = s.credits.ConsumeCredits(ctx, billingapp.ConsumeCreditsInput{
		UsageType:   billing.UsageTypeOrderCreated,
		Credits:     1,
		ReferenceID: &order.ID,
		Description: osNumber,
	})
	if err != nil {
		return nil, err
	}

	if err := s.orderRepo.Create(ctx, order); err != nil {
		// The credit was already spent, reconcile via the usage audit trail
		s.logger.Error("Failed to persist order after credit spend",
			zap.String("os_number", osNumber),
			zap.Error(err))
		return nil, shared.NewDomainError("INTERNAL_ERROR", "Failed to create order")
	}

	s.logger.Info("Service order created",
		zap.String("os_number", osNumber),
		zap.String("customer_id", input.CustomerID.String()))

	return toOrderDTO(order), nil
}

// GetOrder returns one order of the bound tenant
func (s *OrderService) GetOrder(ctx context.Context, id uuid.UUID) (*OrderDTO, error) {
	order, err := s.orderRepo.FindByID(ctx, id)
	if err != nil {
		if err == shared.ErrNotFound {
			return nil, shared.NewDomainError("ORDER_NOT_FOUND", "Service order not found")
		}
		return nil, shared.NewDomainError("INTERNAL_ERROR", "Failed to load order")
	}
	return toOrderDTO(order), nil
}

// GetOrderByNumber returns one order by its per-tenant number
func (s *OrderService) GetOrderByNumber(ctx context.Context, osNumber string) (*OrderDTO, error) {
	order, err := s.orderRepo.FindByOSNumber(ctx, osNumber)
	if err != nil {
		if err == shared.ErrNotFound {
			return nil, shared.NewDomainError("ORDER_NOT_FOUND", "Service order not found")
		}
		return nil, shared.NewDomainError("INTERNAL_ERROR", "Failed to load order")
	}
	return toOrderDTO(order), nil
}

// ListOrders lists the bound tenant's orders
func (s *OrderService) ListOrders(ctx context.Context, filter shared.Filter) (*OrderListResult, error) {
	orders, total, err := s.orderRepo.FindAll(ctx, filter)
	if err != nil {
		s.logger.Error("Failed to list orders", zap.Error(err))
		return nil, shared.NewDomainError("INTERNAL_ERROR", "Failed to list orders")
	}

	dtos := make([]OrderDTO, len(orders))
	for idx := range orders {
		dtos[idx] = *toOrderDTO(&orders[idx])
	}

	return &OrderListResult{
		Orders:   dtos,
		Total:    total,
		Page:     filter.Page,
		PageSize: filter.PageSize,
	}, nil
}

// ListTechnicianOrders lists orders assigned to a technician
func (s *OrderService) ListTechnicianOrders(ctx context.Context, technicianID uuid.UUID, filter shared.Filter) ([]OrderDTO, error) {
	orders, err := s.orderRepo.FindByTechnician(ctx, technicianID, filter)
	if err != nil {
		s.logger.Error("Failed to list technician orders", zap.Error(err))
		return nil, shared.NewDomainError("INTERNAL_ERROR", "Failed to list orders")
	}

	dtos := make([]OrderDTO, len(orders))
	for idx := range orders {
		dtos[idx] = *toOrderDTO(&orders[idx])
	}
	return dtos, nil
}

// AssignTechnician puts a technician on the order. The target user must be an
// active technician of the same tenant.
func (s *OrderService) AssignTechnician(ctx context.Context, input AssignTechnicianInput) (*OrderDTO, error) {
	technician, err := s.userRepo.FindByID(ctx, input.TechnicianID)
	if err != nil {
		if err == shared.ErrNotFound {
			return nil, shared.NewDomainError("INVALID_TECHNICIAN", "Technician not found")
		}
		return nil, shared.NewDomainError("INTERNAL_ERROR", "Failed to load technician")
	}
	if !technician.IsTechnician() {
		return nil, shared.NewDomainError("INVALID_TECHNICIAN", "User is not a technician")
	}
	if technician.Status != identity.UserStatusActive {
		return nil, shared.NewDomainError("INVALID_TECHNICIAN", "Technician is not active")
	}

	return s.transition(ctx, input.OrderID, func(order *fieldops.ServiceOrder) error {
		return order.AssignTechnician(technician.ID, technician.Name, input.ActorID)
	})
}

// StartRoute marks the technician as driving to the customer
func (s *OrderService) StartRoute(ctx context.Context, orderID, actorID uuid.UUID) (*OrderDTO, error) {
	return s.transition(ctx, orderID, func(order *fieldops.ServiceOrder) error {
		return order.StartRoute(actorID)
	})
}

// Arrive marks the technician as on site
func (s *OrderService) Arrive(ctx context.Context, orderID, actorID uuid.UUID) (*OrderDTO, error) {
	return s.transition(ctx, orderID, func(order *fieldops.ServiceOrder) error {
		return order.Arrive(actorID)
	})
}

// CompleteOrder finishes the service. The checklist must be done and the
// required evidence on record; an optional final price overrides the quote.
func (s *OrderService) CompleteOrder(ctx context.Context, input CompleteOrderInput) (*OrderDTO, error) {
	return s.transition(ctx, input.OrderID, func(order *fieldops.ServiceOrder) error {
		if input.FinalPrice != nil {
			if err := order.SetFinalPrice(valueobject.NewMoneyBRL(*input.FinalPrice)); err != nil {
				return err
			}
		}
		return order.Complete(input.ActorID, s.policy)
	})
}

// CancelOrder cancels the order with a mandatory reason
func (s *OrderService) CancelOrder(ctx context.Context, input CancelOrderInput) (*OrderDTO, error) {
	return s.transition(ctx, input.OrderID, func(order *fieldops.ServiceOrder) error {
		return order.Cancel(input.ActorID, input.Reason)
	})
}

// AddChecklistItem adds a task to the order checklist
func (s *OrderService) AddChecklistItem(ctx context.Context, orderID uuid.UUID, description string) (*OrderDTO, error) {
	return s.transition(ctx, orderID, func(order *fieldops.ServiceOrder) error {
		_, err := order.AddChecklistItem(description)
		return err
	})
}

// CompleteChecklistItem ticks off one checklist task
func (s *OrderService) CompleteChecklistItem(ctx context.Context, orderID, itemID uuid.UUID) (*OrderDTO, error) {
	return s.transition(ctx, orderID, func(order *fieldops.ServiceOrder) error {
		return order.CompleteChecklistItem(itemID)
	})
}

// RequestPhotoUpload hands out a presigned upload slot for order evidence
func (s *OrderService) RequestPhotoUpload(ctx context.Context, input UploadRequestInput) (*UploadSlotDTO, error) {
	tenantID, err := tenantFromContext(ctx)
	if err != nil {
		return nil, err
	}

	order, err := s.orderRepo.FindByID(ctx, input.OrderID)
	if err != nil {
		if err == shared.ErrNotFound {
			return nil, shared.NewDomainError("ORDER_NOT_FOUND", "Service order not found")
		}
		return nil, shared.NewDomainError("INTERNAL_ERROR", "Failed to load order")
	}
	if order.Status.IsTerminal() {
		return nil, shared.NewDomainError("INVALID_STATE", "Cannot upload evidence for a closed order")
	}

	storageKey := fmt.Sprintf("orders/%s/%s/photos/%s", tenantID, order.ID, uuid.New())
	uploadURL, expiresAt, err := s.storage.GenerateUploadURL(ctx, storageKey, input.ContentType, uploadURLExpiration)
	if err != nil {
		s.logger.Error("Failed to generate upload URL", zap.Error(err))
		return nil, shared.NewDomainError("INTERNAL_ERROR", "Failed to generate upload URL")
	}

	return &UploadSlotDTO{
		StorageKey: storageKey,
		UploadURL:  uploadURL,
		ExpiresAt:  expiresAt,
	}, nil
}

// AttachPhoto records a finished photo upload on the order. The object must
// already exist in storage.
func (s *OrderService) AttachPhoto(ctx context.Context, input AttachPhotoInput) (*OrderDTO, error) {
	fileURL, err := s.verifyUpload(ctx, input.StorageKey)
	if err != nil {
		return nil, err
	}

	return s.transition(ctx, input.OrderID, func(order *fieldops.ServiceOrder) error {
		_, err := order.AttachPhoto(input.Phase, fileURL, input.StorageKey, input.TakenBy)
		return err
	})
}

// AttachSignature records the customer sign-off on the order
func (s *OrderService) AttachSignature(ctx context.Context, input AttachSignatureInput) (*OrderDTO, error) {
	fileURL, err := s.verifyUpload(ctx, input.StorageKey)
	if err != nil {
		return nil, err
	}

	return s.transition(ctx, input.OrderID, func(order *fieldops.ServiceOrder) error {
		return order.AttachSignature(fileURL, input.SignerName)
	})
}

// GetStats counts the bound tenant's orders per status
func (s *OrderService) GetStats(ctx context.Context) (*OrderStatsDTO, error) {
	stats := &OrderStatsDTO{}
	counts := []struct {
		status fieldops.OrderStatus
		target *int64
	}{
		{fieldops.OrderStatusScheduled, &stats.Scheduled},
		{fieldops.OrderStatusInRoute, &stats.InRoute},
		{fieldops.OrderStatusInProgress, &stats.InProgress},
		{fieldops.OrderStatusCompleted, &stats.Completed},
		{fieldops.OrderStatusCancelled, &stats.Cancelled},
	}
	for _, c := range counts {
		count, err := s.orderRepo.CountByStatus(ctx, c.status)
		if err != nil {
			s.logger.Error("Failed to count orders", zap.String("status", c.status.String()), zap.Error(err))
			return nil, shared.NewDomainError("INTERNAL_ERROR", "Failed to count orders")
		}
		*c.target = count
	}
	return stats, nil
}

// transition loads the order under a row lock, applies fn, and saves the
// order with its buffered events in the same transaction
func (s *OrderService) transition(ctx context.Context, orderID uuid.UUID, fn func(order *fieldops.ServiceOrder) error) (*OrderDTO, error) {
	var order *fieldops.ServiceOrder

	err := s.orderRepo.WithTx(ctx, func(tx interface{}) error {
		var err error
		order, err = s.orderRepo.FindByIDForUpdate(ctx, tx, orderID)
		if err != nil {
			if err == shared.ErrNotFound {
				return shared.NewDomainError("ORDER_NOT_FOUND", "Service order not found")
			}
			return fmt.Errorf("load order: %w", err)
		}

		if err := fn(order); err != nil {
			return err
		}

		return s.orderRepo.SaveWithEvents(ctx, tx, order)
	})
	if err != nil {
		var domainErr *shared.DomainError
		if errors.As(err, &domainErr) {
			return nil, err
		}
		s.logger.Error("Order transition failed",
			zap.String("order_id", orderID.String()),
			zap.Error(err))
		return nil, shared.NewDomainError("INTERNAL_ERROR", "Failed to update order")
	}

	return toOrderDTO(order), nil
}

func (s *OrderService) verifyUpload(ctx context.Context, storageKey string) (string, error) {
	if storageKey == "" {
		return "", shared.NewDomainError("INVALID_UPLOAD", "Storage key cannot be empty")
	}

	exists, err := s.storage.ObjectExists(ctx, storageKey)
	if err != nil {
		s.logger.Error("Failed to check uploaded object", zap.Error(err))
		return "", shared.NewDomainError("INTERNAL_ERROR", "Failed to verify upload")
	}
	if !exists {
		return "", shared.NewDomainError("UPLOAD_NOT_FOUND", "Uploaded file not found in storage")
	}

	fileURL, _, err := s.storage.GenerateDownloadURL(ctx, storageKey, downloadURLExpiration)
	if err != nil {
		s.logger.Error("Failed to generate download URL", zap.Error(err))
		return "", shared.NewDomainError("INTERNAL_ERROR", "Failed to generate file URL")
	}

	return fileURL, nil
}

func tenantFromContext(ctx context.Context) (uuid.UUID, error) {
	raw := logger.GetTenantID(ctx)
	if raw == "" {
		return uuid.Nil, shared.ErrMissingTenantContext
	}
	tenantID, err := uuid.Parse(raw)
	if err != nil {
		return uuid.Nil, shared.NewDomainError("INVALID_TENANT", "Tenant ID in context is not a valid UUID")
	}
	return tenantID, nil
}
