package repository

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"github.com/sangkips/posflow-api/internal/domain/entity"
	domainRepo "github.com/sangkips/posflow-api/internal/domain/repository"
	"github.com/sangkips/posflow-api/pkg/apperror"
	"gorm.io/gorm"
)

type businessRepository struct {
	db *gorm.DB
}

// NewBusinessRepository creates a new business repository
func NewBusinessRepository(db *gorm.DB) domainRepo.BusinessRepository {
	return &businessRepository{db: db}
}

func (r *businessRepository) GetByID(ctx context.Context, id uuid.UUID) (*entity.Business, error) {
	var business entity.Business
	err := dbFrom(ctx, r.db).
		Preload("Currencies").
		First(&business, "id = ?", id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	return &business, err
}

type areaRepository struct {
	db *gorm.DB
}

// NewAreaRepository creates a new area repository
func NewAreaRepository(db *gorm.DB) domainRepo.AreaRepository {
	return &areaRepository{db: db}
}

func (r *areaRepository) GetByID(ctx context.Context, businessID, id uuid.UUID) (*entity.Area, error) {
	var area entity.Area
	err := dbFrom(ctx, r.db).
		Scopes(BusinessScope(businessID)).
		First(&area, "id = ?", id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	return &area, err
}

type economicCycleRepository struct {
	db *gorm.DB
}

// NewEconomicCycleRepository creates a new economic cycle repository
func NewEconomicCycleRepository(db *gorm.DB) domainRepo.EconomicCycleRepository {
	return &economicCycleRepository{db: db}
}

func (r *economicCycleRepository) GetActive(ctx context.Context, businessID uuid.UUID) (*entity.EconomicCycle, error) {
	var cycle entity.EconomicCycle
	err := dbFrom(ctx, r.db).
		Scopes(BusinessScope(businessID)).
		Where("is_active = ?", true).
		First(&cycle).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	return &cycle, err
}

func (r *economicCycleRepository) GetByID(ctx context.Context, businessID, id uuid.UUID) (*entity.EconomicCycle, error) {
	var cycle entity.EconomicCycle
	err := dbFrom(ctx, r.db).
		Scopes(BusinessScope(businessID)).
		First(&cycle, "id = ?", id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	return &cycle, err
}

// Create inserts the cycle. The partial unique index on active cycles turns a
// concurrent second open into a duplicate key error.
func (r *economicCycleRepository) Create(ctx context.Context, cycle *entity.EconomicCycle) error {
	err := dbFrom(ctx, r.db).Create(cycle).Error
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return apperror.NewStateConflictError("An economic cycle is already open")
	}
	return err
}

func (r *economicCycleRepository) Update(ctx context.Context, cycle *entity.EconomicCycle) error {
	return dbFrom(ctx, r.db).Save(cycle).Error
}
