package entity

import (
	"time"

	"github.com/google/uuid"
	"github.com/sangkips/posflow-api/internal/domain/enum"
	"github.com/sangkips/posflow-api/pkg/money"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// Business is the tenant owning areas, products and orders
type Business struct {
	ID                 uuid.UUID           `gorm:"type:uuid;primary_key" json:"id"`
	Name               string              `gorm:"size:255;not null" json:"name"`
	AllowNegativeStock bool                `gorm:"default:false" json:"allow_negative_stock"`
	MainCurrency       string              `gorm:"size:3;not null" json:"main_currency"`
	Currencies         []AvailableCurrency `gorm:"foreignKey:BusinessID" json:"currencies,omitempty"`
	CreatedAt          time.Time           `json:"created_at"`
	UpdatedAt          time.Time           `json:"updated_at"`
}

// BeforeCreate generates a UUID before creating a new business
func (b *Business) BeforeCreate(tx *gorm.DB) error {
	if b.ID == uuid.Nil {
		b.ID = uuid.New()
	}
	return nil
}

// TableName returns the table name for the Business model
func (Business) TableName() string {
	return "businesses"
}

// Rates builds the exchange table of the business
func (b *Business) Rates() money.Rates {
	rates := make(map[string]decimal.Decimal, len(b.Currencies))
	for _, c := range b.Currencies {
		rates[c.Code] = c.ExchangeRate
	}
	return money.NewRates(b.MainCurrency, rates)
}

// AvailableCurrency is a currency accepted by a business.
// ExchangeRate is the number of main-currency units one unit of Code is worth.
type AvailableCurrency struct {
	ID           uuid.UUID       `gorm:"type:uuid;primary_key" json:"id"`
	BusinessID   uuid.UUID       `gorm:"type:uuid;not null;uniqueIndex:idx_business_currency" json:"business_id"`
	Code         string          `gorm:"size:3;not null;uniqueIndex:idx_business_currency" json:"code"`
	ExchangeRate decimal.Decimal `gorm:"type:decimal(18,6);not null" json:"exchange_rate"`
	IsMain       bool            `gorm:"default:false" json:"is_main"`
}

// BeforeCreate generates a UUID before creating a new currency
func (c *AvailableCurrency) BeforeCreate(tx *gorm.DB) error {
	if c.ID == uuid.Nil {
		c.ID = uuid.New()
	}
	return nil
}

// TableName returns the table name for the AvailableCurrency model
func (AvailableCurrency) TableName() string {
	return "available_currencies"
}

// Area is a physical place of a business: a sales point, a warehouse or a kitchen
type Area struct {
	ID          uuid.UUID     `gorm:"type:uuid;primary_key" json:"id"`
	BusinessID  uuid.UUID     `gorm:"type:uuid;not null;index" json:"business_id"`
	Name        string        `gorm:"size:255;not null" json:"name"`
	Type        enum.AreaType `gorm:"default:0" json:"type"`
	StockAreaID *uuid.UUID    `gorm:"type:uuid" json:"stock_area_id,omitempty"`
	IsActive    bool          `gorm:"default:true" json:"is_active"`
	CreatedAt   time.Time     `json:"created_at"`
	UpdatedAt   time.Time     `json:"updated_at"`
}

// BeforeCreate generates a UUID before creating a new area
func (a *Area) BeforeCreate(tx *gorm.DB) error {
	if a.ID == uuid.Nil {
		a.ID = uuid.New()
	}
	return nil
}

// TableName returns the table name for the Area model
func (Area) TableName() string {
	return "areas"
}

// StockSource returns the area whose ledger a sale in this area draws from
func (a *Area) StockSource() uuid.UUID {
	if a.StockAreaID != nil && *a.StockAreaID != uuid.Nil {
		return *a.StockAreaID
	}
	return a.ID
}

// EconomicCycle is an accounting period. Exactly one is active per business.
type EconomicCycle struct {
	ID         uuid.UUID  `gorm:"type:uuid;primary_key" json:"id"`
	BusinessID uuid.UUID  `gorm:"type:uuid;not null;index;index:idx_one_active_cycle,unique,priority:1,where:is_active = true" json:"business_id"`
	OpenDate   time.Time  `gorm:"not null" json:"open_date"`
	CloseDate  *time.Time `json:"close_date,omitempty"`
	IsActive   bool       `gorm:"not null;index:idx_one_active_cycle,unique,priority:2,where:is_active = true" json:"is_active"`
	OpenedByID uuid.UUID  `gorm:"type:uuid" json:"opened_by_id"`
	ClosedByID *uuid.UUID `gorm:"type:uuid" json:"closed_by_id,omitempty"`
	CreatedAt  time.Time  `json:"created_at"`
	UpdatedAt  time.Time  `json:"updated_at"`
}

// BeforeCreate generates a UUID before creating a new cycle
func (e *EconomicCycle) BeforeCreate(tx *gorm.DB) error {
	if e.ID == uuid.Nil {
		e.ID = uuid.New()
	}
	return nil
}

// TableName returns the table name for the EconomicCycle model
func (EconomicCycle) TableName() string {
	return "economic_cycles"
}
