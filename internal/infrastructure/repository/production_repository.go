package repository

import (
	"context"

	"github.com/google/uuid"
	"github.com/sangkips/posflow-api/internal/domain/entity"
	"github.com/sangkips/posflow-api/internal/domain/enum"
	domainRepo "github.com/sangkips/posflow-api/internal/domain/repository"
	"gorm.io/gorm"
)

type productionTicketRepository struct {
	db *gorm.DB
}

// NewProductionTicketRepository creates a new production ticket repository
func NewProductionTicketRepository(db *gorm.DB) domainRepo.ProductionTicketRepository {
	return &productionTicketRepository{db: db}
}

func (r *productionTicketRepository) Create(ctx context.Context, tickets ...entity.ProductionTicket) error {
	if len(tickets) == 0 {
		return nil
	}
	return dbFrom(ctx, r.db).Create(&tickets).Error
}

func (r *productionTicketRepository) CloseByOrder(ctx context.Context, orderID uuid.UUID) error {
	return dbFrom(ctx, r.db).Model(&entity.ProductionTicket{}).
		Where("order_id = ?", orderID).
		Update("status", enum.TicketStatusClosed).Error
}

func (r *productionTicketRepository) Close(ctx context.Context, ids ...uuid.UUID) error {
	if len(ids) == 0 {
		return nil
	}
	return dbFrom(ctx, r.db).Model(&entity.ProductionTicket{}).
		Where("id IN ?", ids).
		Update("status", enum.TicketStatusClosed).Error
}

func (r *productionTicketRepository) Reassign(ctx context.Context, orderID uuid.UUID, ids ...uuid.UUID) error {
	if len(ids) == 0 {
		return nil
	}
	return dbFrom(ctx, r.db).Model(&entity.ProductionTicket{}).
		Where("id IN ?", ids).
		Update("order_id", orderID).Error
}

type resourceRepository struct {
	db *gorm.DB
}

// NewResourceRepository creates a new resource repository
func NewResourceRepository(db *gorm.DB) domainRepo.ResourceRepository {
	return &resourceRepository{db: db}
}

func (r *resourceRepository) GetByIDsForUpdate(ctx context.Context, businessID uuid.UUID, ids []uuid.UUID) ([]entity.Resource, error) {
	if len(ids) == 0 {
		return nil, nil
	}
	var resources []entity.Resource
	err := dbFrom(ctx, r.db).
		Scopes(BusinessScope(businessID), ForUpdate).
		Where("id IN ?", ids).
		Order("id").
		Find(&resources).Error
	return resources, err
}

func (r *resourceRepository) SetAvailability(ctx context.Context, ids []uuid.UUID, available bool) error {
	if len(ids) == 0 {
		return nil
	}
	return dbFrom(ctx, r.db).Model(&entity.Resource{}).
		Where("id IN ?", ids).
		Update("is_available", available).Error
}

type dispatchRepository struct {
	db *gorm.DB
}

// NewDispatchRepository creates a new dispatch repository
func NewDispatchRepository(db *gorm.DB) domainRepo.DispatchRepository {
	return &dispatchRepository{db: db}
}

func (r *dispatchRepository) HasAccepted(ctx context.Context, orderID uuid.UUID) (bool, error) {
	var count int64
	err := dbFrom(ctx, r.db).Model(&entity.Dispatch{}).
		Where("order_id = ? AND status = ?", orderID, enum.DispatchStatusAccepted).
		Count(&count).Error
	return count > 0, err
}
