package repository

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/sangkips/posflow-api/internal/domain/entity"
	"github.com/sangkips/posflow-api/internal/domain/enum"
	"github.com/sangkips/posflow-api/pkg/pagination"
)

// OrderRepository defines the interface for order aggregate persistence
type OrderRepository interface {
	// Create inserts the order with its lines, payments, coupons and resources
	Create(ctx context.Context, order *entity.Order) error
	// Save updates the order and replaces its lines, payments, coupons and resources
	Save(ctx context.Context, order *entity.Order) error
	GetByID(ctx context.Context, businessID, id uuid.UUID) (*entity.Order, error)
	// GetForUpdate loads the full aggregate and locks the order row until the transaction ends
	GetForUpdate(ctx context.Context, businessID, id uuid.UUID) (*entity.Order, error)
	// LockCreation serializes order creation for one deduplication key until the transaction ends
	LockCreation(ctx context.Context, businessID, areaID uuid.UUID, createdAt time.Time, managedByID *uuid.UUID) error
	// FindDuplicate returns an order created with the same business, area, timestamp and manager
	FindDuplicate(ctx context.Context, businessID, areaID uuid.UUID, createdAt time.Time, managedByID *uuid.UUID) (*entity.Order, error)
	// GetBusinessID resolves the owner of an order for callers without a business context
	GetBusinessID(ctx context.Context, id uuid.UUID) (uuid.UUID, error)
	List(ctx context.Context, businessID uuid.UUID, params *OrderFilterParams) ([]entity.Order, int64, error)
}

// OrderFilterParams contains filtering parameters for order queries
type OrderFilterParams struct {
	Pagination      *pagination.PaginationParams
	Status          *enum.OrderStatus
	AreaID          *uuid.UUID
	EconomicCycleID *uuid.UUID
	StartDate       *time.Time
	EndDate         *time.Time
	SortOrder       string
}

// OrderDedupKey identifies the submissions that FindDuplicate treats as the same order
func OrderDedupKey(businessID, areaID uuid.UUID, createdAt time.Time, managedByID *uuid.UUID) string {
	manager := "-"
	if managedByID != nil {
		manager = managedByID.String()
	}
	return "order:" + businessID.String() + ":" + areaID.String() + ":" + createdAt.UTC().Format(time.RFC3339Nano) + ":" + manager
}
