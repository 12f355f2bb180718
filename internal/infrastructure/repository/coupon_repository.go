package repository

import (
	"context"

	"github.com/google/uuid"
	"github.com/sangkips/posflow-api/internal/domain/entity"
	domainRepo "github.com/sangkips/posflow-api/internal/domain/repository"
	"gorm.io/gorm"
)

type couponRepository struct {
	db *gorm.DB
}

// NewCouponRepository creates a new coupon repository
func NewCouponRepository(db *gorm.DB) domainRepo.CouponRepository {
	return &couponRepository{db: db}
}

func (r *couponRepository) GetByCodesForUpdate(ctx context.Context, businessID uuid.UUID, codes []string) ([]entity.Coupon, error) {
	if len(codes) == 0 {
		return nil, nil
	}
	var coupons []entity.Coupon
	err := dbFrom(ctx, r.db).
		Scopes(BusinessScope(businessID), ForUpdate).
		Where("UPPER(code) IN ?", codes).
		Order("code").
		Find(&coupons).Error
	return coupons, err
}

func (r *couponRepository) GetByIDsForUpdate(ctx context.Context, businessID uuid.UUID, ids []uuid.UUID) ([]entity.Coupon, error) {
	if len(ids) == 0 {
		return nil, nil
	}
	var coupons []entity.Coupon
	err := dbFrom(ctx, r.db).
		Scopes(BusinessScope(businessID), ForUpdate).
		Where("id IN ?", ids).
		Order("code").
		Find(&coupons).Error
	return coupons, err
}

func (r *couponRepository) UpdateUsage(ctx context.Context, id uuid.UUID, usageCount int) error {
	return dbFrom(ctx, r.db).Model(&entity.Coupon{}).
		Where("id = ?", id).
		Update("usage_count", usageCount).Error
}
