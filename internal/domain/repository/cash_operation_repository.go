package repository

import (
	"context"

	"github.com/google/uuid"
	"github.com/sangkips/posflow-api/internal/domain/entity"
)

// CashOperationRepository defines the cash register ledger persistence
type CashOperationRepository interface {
	Create(ctx context.Context, ops ...entity.CashRegisterOperation) error
	GetByID(ctx context.Context, businessID, id uuid.UUID) (*entity.CashRegisterOperation, error)
	Delete(ctx context.Context, id uuid.UUID) error
	DeleteByOrder(ctx context.Context, orderID uuid.UUID) error
	List(ctx context.Context, businessID uuid.UUID, params *CashOperationFilterParams) ([]entity.CashRegisterOperation, error)
}

// CashOperationFilterParams contains filtering parameters for cash operation queries
type CashOperationFilterParams struct {
	AreaID          *uuid.UUID
	EconomicCycleID *uuid.UUID
	OrderID         *uuid.UUID
}
