package repository

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/sangkips/posflow-api/internal/domain/entity"
	domainRepo "github.com/sangkips/posflow-api/internal/domain/repository"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type orderRepository struct {
	db *gorm.DB
}

// NewOrderRepository creates a new order repository
func NewOrderRepository(db *gorm.DB) domainRepo.OrderRepository {
	return &orderRepository{db: db}
}

func preloadAggregate(db *gorm.DB) *gorm.DB {
	return db.
		Preload("SelledProducts", func(db *gorm.DB) *gorm.DB { return db.Order("created_at, id") }).
		Preload("SelledProducts.Addons").
		Preload("Payments", func(db *gorm.DB) *gorm.DB { return db.Order("created_at, id") }).
		Preload("Coupons").
		Preload("Resources")
}

func (r *orderRepository) Create(ctx context.Context, order *entity.Order) error {
	return dbFrom(ctx, r.db).Omit("Resources.*").Create(order).Error
}

// Save updates the order row and rewrites its owned rows
func (r *orderRepository) Save(ctx context.Context, order *entity.Order) error {
	db := dbFrom(ctx, r.db)

	if err := db.Omit(clause.Associations).Save(order).Error; err != nil {
		return err
	}

	lineIDs := db.Model(&entity.SelledProduct{}).Select("id").Where("order_id = ?", order.ID)
	if err := db.Where("selled_product_id IN (?)", lineIDs).Delete(&entity.SelledProductAddon{}).Error; err != nil {
		return err
	}
	for _, owned := range []interface{}{&entity.SelledProduct{}, &entity.CurrencyPayment{}, &entity.OrderCoupon{}} {
		if err := db.Where("order_id = ?", order.ID).Delete(owned).Error; err != nil {
			return err
		}
	}

	if len(order.SelledProducts) > 0 {
		if err := db.Create(&order.SelledProducts).Error; err != nil {
			return err
		}
	}
	if len(order.Payments) > 0 {
		if err := db.Create(&order.Payments).Error; err != nil {
			return err
		}
	}
	if len(order.Coupons) > 0 {
		if err := db.Create(&order.Coupons).Error; err != nil {
			return err
		}
	}

	resources := db.Model(order).Omit("Resources.*").Association("Resources")
	if len(order.Resources) == 0 {
		return resources.Clear()
	}
	return resources.Replace(order.Resources)
}

func (r *orderRepository) GetByID(ctx context.Context, businessID, id uuid.UUID) (*entity.Order, error) {
	var order entity.Order
	err := preloadAggregate(dbFrom(ctx, r.db)).
		Scopes(BusinessScope(businessID)).
		First(&order, "id = ?", id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	return &order, err
}

// GetForUpdate locks the bare order row first and then loads the aggregate inside the
// same transaction
func (r *orderRepository) GetForUpdate(ctx context.Context, businessID, id uuid.UUID) (*entity.Order, error) {
	var locked entity.Order
	err := dbFrom(ctx, r.db).
		Scopes(BusinessScope(businessID), ForUpdate).
		Select("id").
		First(&locked, "id = ?", id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return r.GetByID(ctx, businessID, id)
}

func (r *orderRepository) LockCreation(ctx context.Context, businessID, areaID uuid.UUID, createdAt time.Time, managedByID *uuid.UUID) error {
	key := domainRepo.OrderDedupKey(businessID, areaID, createdAt, managedByID)
	return dbFrom(ctx, r.db).Exec("SELECT pg_advisory_xact_lock(hashtext(?))", key).Error
}

func (r *orderRepository) FindDuplicate(ctx context.Context, businessID, areaID uuid.UUID, createdAt time.Time, managedByID *uuid.UUID) (*entity.Order, error) {
	query := preloadAggregate(dbFrom(ctx, r.db)).
		Scopes(BusinessScope(businessID)).
		Where("area_id = ? AND created_at = ?", areaID, createdAt)
	if managedByID != nil {
		query = query.Where("managed_by_id = ?", *managedByID)
	} else {
		query = query.Where("managed_by_id IS NULL")
	}

	var order entity.Order
	err := query.First(&order).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	return &order, err
}

func (r *orderRepository) GetBusinessID(ctx context.Context, id uuid.UUID) (uuid.UUID, error) {
	var ids []uuid.UUID
	err := dbFrom(ctx, r.db).Model(&entity.Order{}).
		Where("id = ?", id).
		Limit(1).
		Pluck("business_id", &ids).Error
	if err != nil || len(ids) == 0 {
		return uuid.Nil, err
	}
	return ids[0], nil
}

func (r *orderRepository) List(ctx context.Context, businessID uuid.UUID, params *domainRepo.OrderFilterParams) ([]entity.Order, int64, error) {
	var orders []entity.Order
	var total int64

	query := dbFrom(ctx, r.db).Model(&entity.Order{}).Scopes(BusinessScope(businessID))

	if params.Status != nil {
		query = query.Where("status = ?", *params.Status)
	}

	if params.AreaID != nil {
		query = query.Where("area_id = ?", *params.AreaID)
	}

	if params.EconomicCycleID != nil {
		query = query.Where("economic_cycle_id = ?", *params.EconomicCycleID)
	}

	if params.StartDate != nil {
		query = query.Where("created_at >= ?", *params.StartDate)
	}

	if params.EndDate != nil {
		query = query.Where("created_at <= ?", *params.EndDate)
	}

	if err := query.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	sortOrder := "DESC"
	if params.SortOrder == "ASC" || params.SortOrder == "asc" {
		sortOrder = "ASC"
	}

	params.Pagination.Validate()
	err := preloadAggregate(query).
		Offset(params.Pagination.Offset()).Limit(params.Pagination.PerPage).
		Order("created_at " + sortOrder).
		Find(&orders).Error

	return orders, total, err
}
