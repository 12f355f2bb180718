package repository

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"github.com/sangkips/posflow-api/internal/domain/entity"
	domainRepo "github.com/sangkips/posflow-api/internal/domain/repository"
	"gorm.io/gorm"
)

type cashOperationRepository struct {
	db *gorm.DB
}

// NewCashOperationRepository creates a new cash register repository
func NewCashOperationRepository(db *gorm.DB) domainRepo.CashOperationRepository {
	return &cashOperationRepository{db: db}
}

func (r *cashOperationRepository) Create(ctx context.Context, ops ...entity.CashRegisterOperation) error {
	if len(ops) == 0 {
		return nil
	}
	return dbFrom(ctx, r.db).Create(&ops).Error
}

func (r *cashOperationRepository) GetByID(ctx context.Context, businessID, id uuid.UUID) (*entity.CashRegisterOperation, error) {
	var op entity.CashRegisterOperation
	err := dbFrom(ctx, r.db).
		Scopes(BusinessScope(businessID)).
		First(&op, "id = ?", id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	return &op, err
}

func (r *cashOperationRepository) Delete(ctx context.Context, id uuid.UUID) error {
	return dbFrom(ctx, r.db).Delete(&entity.CashRegisterOperation{}, "id = ?", id).Error
}

func (r *cashOperationRepository) DeleteByOrder(ctx context.Context, orderID uuid.UUID) error {
	return dbFrom(ctx, r.db).Where("order_id = ?", orderID).Delete(&entity.CashRegisterOperation{}).Error
}

func (r *cashOperationRepository) List(ctx context.Context, businessID uuid.UUID, params *domainRepo.CashOperationFilterParams) ([]entity.CashRegisterOperation, error) {
	var ops []entity.CashRegisterOperation

	query := dbFrom(ctx, r.db).Scopes(BusinessScope(businessID))

	if params.AreaID != nil {
		query = query.Where("area_id = ?", *params.AreaID)
	}

	if params.EconomicCycleID != nil {
		query = query.Where("economic_cycle_id = ?", *params.EconomicCycleID)
	}

	if params.OrderID != nil {
		query = query.Where("order_id = ?", *params.OrderID)
	}

	err := query.Order("created_at ASC").Find(&ops).Error
	return ops, err
}
