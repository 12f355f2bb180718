package repository

import (
	"context"

	"github.com/google/uuid"
	"github.com/sangkips/posflow-api/internal/domain/entity"
)

// CouponRepository defines the interface for coupon data operations
type CouponRepository interface {
	// GetByCodesForUpdate locks the coupons of the business matching the codes, ordered by code
	GetByCodesForUpdate(ctx context.Context, businessID uuid.UUID, codes []string) ([]entity.Coupon, error)
	// GetByIDsForUpdate locks the coupons with the given ids, ordered by code
	GetByIDsForUpdate(ctx context.Context, businessID uuid.UUID, ids []uuid.UUID) ([]entity.Coupon, error)
	UpdateUsage(ctx context.Context, id uuid.UUID, usageCount int) error
}
