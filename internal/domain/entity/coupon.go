package entity

import (
	"time"

	"github.com/google/uuid"
	"github.com/sangkips/posflow-api/internal/domain/enum"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// Coupon is a discount definition of a business
type Coupon struct {
	ID                uuid.UUID         `gorm:"type:uuid;primary_key" json:"id"`
	BusinessID        uuid.UUID         `gorm:"type:uuid;not null;uniqueIndex:idx_business_coupon" json:"business_id"`
	Code              string            `gorm:"size:100;not null;uniqueIndex:idx_business_coupon" json:"code"`
	DiscountType      enum.DiscountType `gorm:"default:0" json:"discount_type"`
	Amount            decimal.Decimal   `gorm:"type:decimal(18,2);not null" json:"amount"`
	ExpirationAt      *time.Time        `json:"expiration_at,omitempty"`
	UsageLimit        int               `gorm:"default:0" json:"usage_limit"`
	UsageCount        int               `gorm:"default:0" json:"usage_count"`
	IndividualUse     bool              `gorm:"default:false" json:"individual_use"`
	MinimumSpend      decimal.Decimal   `gorm:"type:decimal(18,2);default:0" json:"minimum_spend"`
	AllowedProductIDs []uuid.UUID       `gorm:"type:jsonb;serializer:json" json:"allowed_product_ids,omitempty"`
	CreatedAt         time.Time         `json:"created_at"`
	UpdatedAt         time.Time         `json:"updated_at"`
}

// BeforeCreate generates a UUID before creating a new coupon
func (c *Coupon) BeforeCreate(tx *gorm.DB) error {
	if c.ID == uuid.Nil {
		c.ID = uuid.New()
	}
	return nil
}

// TableName returns the table name for the Coupon model
func (Coupon) TableName() string {
	return "coupons"
}

// IsExpired reports whether the coupon can no longer be used at the given time
func (c *Coupon) IsExpired(at time.Time) bool {
	return c.ExpirationAt != nil && at.After(*c.ExpirationAt)
}

// IsExhausted reports whether the usage limit has been reached (0 means unlimited)
func (c *Coupon) IsExhausted() bool {
	return c.UsageLimit > 0 && c.UsageCount >= c.UsageLimit
}

// AppliesTo reports whether the coupon discounts the given product
func (c *Coupon) AppliesTo(productID uuid.UUID) bool {
	if len(c.AllowedProductIDs) == 0 {
		return true
	}
	for _, id := range c.AllowedProductIDs {
		if id == productID {
			return true
		}
	}
	return false
}
