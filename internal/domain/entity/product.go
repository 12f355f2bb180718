package entity

import (
	"time"

	"github.com/google/uuid"
	"github.com/sangkips/posflow-api/internal/domain/enum"
	"github.com/sangkips/posflow-api/pkg/money"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// Product represents a sellable product of a business
type Product struct {
	ID               uuid.UUID          `gorm:"type:uuid;primary_key" json:"id"`
	BusinessID       uuid.UUID          `gorm:"type:uuid;not null;index" json:"business_id"`
	Name             string             `gorm:"size:255;not null" json:"name"`
	Type             enum.ProductType   `gorm:"default:0" json:"type"`
	Price            money.Money        `gorm:"embedded;embeddedPrefix:price_" json:"price"`
	AverageCost      money.Money        `gorm:"embedded;embeddedPrefix:cost_" json:"average_cost"`
	ProductionAreaID *uuid.UUID         `gorm:"type:uuid" json:"production_area_id,omitempty"`
	Variations       []ProductVariation `gorm:"foreignKey:ProductID" json:"variations,omitempty"`
	CreatedAt        time.Time          `json:"created_at"`
	UpdatedAt        time.Time          `json:"updated_at"`
	DeletedAt        gorm.DeletedAt     `gorm:"index" json:"-"`
}

// BeforeCreate generates a UUID before creating a new product
func (p *Product) BeforeCreate(tx *gorm.DB) error {
	if p.ID == uuid.Nil {
		p.ID = uuid.New()
	}
	return nil
}

// TableName returns the table name for the Product model
func (Product) TableName() string {
	return "products"
}

// Variation returns the variation with the given id
func (p *Product) Variation(id uuid.UUID) *ProductVariation {
	for i := range p.Variations {
		if p.Variations[i].ID == id {
			return &p.Variations[i]
		}
	}
	return nil
}

// ProductVariation is a priced variant of a VARIATION product (size, color)
type ProductVariation struct {
	ID        uuid.UUID   `gorm:"type:uuid;primary_key" json:"id"`
	ProductID uuid.UUID   `gorm:"type:uuid;not null;index" json:"product_id"`
	Name      string      `gorm:"size:255;not null" json:"name"`
	Price     money.Money `gorm:"embedded;embeddedPrefix:price_" json:"price"`
}

// BeforeCreate generates a UUID before creating a new variation
func (v *ProductVariation) BeforeCreate(tx *gorm.DB) error {
	if v.ID == uuid.Nil {
		v.ID = uuid.New()
	}
	return nil
}

// TableName returns the table name for the ProductVariation model
func (ProductVariation) TableName() string {
	return "product_variations"
}

// StockAreaProduct is the available quantity of a product (or variation) in one area
type StockAreaProduct struct {
	ID          uuid.UUID       `gorm:"type:uuid;primary_key" json:"id"`
	AreaID      uuid.UUID       `gorm:"type:uuid;not null;uniqueIndex:idx_stock_entry" json:"area_id"`
	ProductID   uuid.UUID       `gorm:"type:uuid;not null;uniqueIndex:idx_stock_entry" json:"product_id"`
	VariationID uuid.UUID       `gorm:"type:uuid;not null;default:'00000000-0000-0000-0000-000000000000';uniqueIndex:idx_stock_entry" json:"variation_id"`
	Quantity    decimal.Decimal `gorm:"type:decimal(18,4);not null;default:0" json:"quantity"`
	UpdatedAt   time.Time       `json:"updated_at"`
}

// BeforeCreate generates a UUID before creating a new stock entry
func (s *StockAreaProduct) BeforeCreate(tx *gorm.DB) error {
	if s.ID == uuid.Nil {
		s.ID = uuid.New()
	}
	return nil
}

// TableName returns the table name for the StockAreaProduct model
func (StockAreaProduct) TableName() string {
	return "stock_area_products"
}

// StockMovement is the append-only record of a stock ledger change
type StockMovement struct {
	ID              uuid.UUID           `gorm:"type:uuid;primary_key" json:"id"`
	BusinessID      uuid.UUID           `gorm:"type:uuid;not null;index" json:"business_id"`
	AreaID          uuid.UUID           `gorm:"type:uuid;not null;index" json:"area_id"`
	ProductID       uuid.UUID           `gorm:"type:uuid;not null;index" json:"product_id"`
	VariationID     uuid.UUID           `gorm:"type:uuid" json:"variation_id"`
	Quantity        decimal.Decimal     `gorm:"type:decimal(18,4);not null" json:"quantity"`
	Operation       enum.StockOperation `gorm:"not null" json:"operation"`
	OrderID         *uuid.UUID          `gorm:"type:uuid;index" json:"order_id,omitempty"`
	EconomicCycleID *uuid.UUID          `gorm:"type:uuid;index" json:"economic_cycle_id,omitempty"`
	MadeByID        uuid.UUID           `gorm:"type:uuid" json:"made_by_id"`
	Note            string              `gorm:"size:255" json:"note,omitempty"`
	CreatedAt       time.Time           `json:"created_at"`
}

// BeforeCreate generates a UUID before creating a new movement
func (m *StockMovement) BeforeCreate(tx *gorm.DB) error {
	if m.ID == uuid.Nil {
		m.ID = uuid.New()
	}
	return nil
}

// TableName returns the table name for the StockMovement model
func (StockMovement) TableName() string {
	return "stock_movements"
}
