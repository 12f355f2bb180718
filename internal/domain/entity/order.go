package entity

import (
	"time"

	"github.com/google/uuid"
	"github.com/sangkips/posflow-api/internal/domain/enum"
	"github.com/sangkips/posflow-api/pkg/money"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// Order is the aggregate root of a sale
type Order struct {
	ID                   uuid.UUID        `gorm:"type:uuid;primary_key" json:"id"`
	BusinessID           uuid.UUID        `gorm:"type:uuid;not null;index:idx_order_dedup" json:"business_id"`
	AreaID               uuid.UUID        `gorm:"type:uuid;not null;index:idx_order_dedup" json:"area_id"`
	EconomicCycleID      uuid.UUID        `gorm:"type:uuid;not null;index" json:"economic_cycle_id"`
	Name                 string           `gorm:"size:255" json:"name,omitempty"`
	Status               enum.OrderStatus `gorm:"default:0;index" json:"status"`
	Origin               enum.OrderOrigin `gorm:"default:0" json:"origin"`
	ManagedByID          *uuid.UUID       `gorm:"type:uuid" json:"managed_by_id,omitempty"`
	CreatedByID          uuid.UUID        `gorm:"type:uuid" json:"created_by_id"`
	Prices               money.List       `json:"prices"`
	TotalToPay           money.List       `json:"total_to_pay"`
	CouponDiscount       money.List       `json:"coupon_discount"`
	TotalCost            money.Money      `gorm:"embedded;embeddedPrefix:total_cost_" json:"total_cost"`
	DiscountPercent      decimal.Decimal  `gorm:"type:decimal(5,2);default:0" json:"discount_percent"`
	CommissionPercent    decimal.Decimal  `gorm:"type:decimal(5,2);default:0" json:"commission_percent"`
	HouseCosted          bool             `gorm:"default:false" json:"house_costed"`
	Shipping             money.Money      `gorm:"embedded;embeddedPrefix:shipping_" json:"shipping"`
	Tip                  money.Money      `gorm:"embedded;embeddedPrefix:tip_" json:"tip"`
	AmountReturned       money.Money      `gorm:"embedded;embeddedPrefix:returned_" json:"amount_returned"`
	PaymentGateway       bool             `gorm:"default:false" json:"payment_gateway"`
	GatewayTransactionNo string           `gorm:"size:100" json:"gateway_transaction_no,omitempty"`
	JoinedIntoID         *uuid.UUID       `gorm:"type:uuid" json:"joined_into_id,omitempty"`
	PaidAt               *time.Time       `json:"paid_at,omitempty"`
	ClosedAt             *time.Time       `json:"closed_at,omitempty"`
	CreatedAt            time.Time        `gorm:"index:idx_order_dedup" json:"created_at"`
	UpdatedAt            time.Time        `json:"updated_at"`

	// Relationships
	SelledProducts []SelledProduct   `gorm:"foreignKey:OrderID" json:"selled_products"`
	Payments       []CurrencyPayment `gorm:"foreignKey:OrderID" json:"payments"`
	Coupons        []OrderCoupon     `gorm:"foreignKey:OrderID" json:"coupons,omitempty"`
	Resources      []Resource        `gorm:"many2many:order_resources" json:"resources,omitempty"`
}

// BeforeCreate generates a UUID before creating a new order
func (o *Order) BeforeCreate(tx *gorm.DB) error {
	if o.ID == uuid.Nil {
		o.ID = uuid.New()
	}
	return nil
}

// TableName returns the table name for the Order model
func (Order) TableName() string {
	return "orders"
}

// HasProductionItems reports whether at least one line is prepared in a production area
func (o *Order) HasProductionItems() bool {
	for _, sp := range o.SelledProducts {
		if sp.Type.RequiresProduction() {
			return true
		}
	}
	return false
}

// Line returns the line with the given id
func (o *Order) Line(id uuid.UUID) *SelledProduct {
	for i := range o.SelledProducts {
		if o.SelledProducts[i].ID == id {
			return &o.SelledProducts[i]
		}
	}
	return nil
}

// SelledProduct is a line item owned by one order
type SelledProduct struct {
	ID                 uuid.UUID             `gorm:"type:uuid;primary_key" json:"id"`
	OrderID            uuid.UUID             `gorm:"type:uuid;not null;index" json:"order_id"`
	ProductID          uuid.UUID             `gorm:"type:uuid;not null;index" json:"product_id"`
	VariationID        *uuid.UUID            `gorm:"type:uuid" json:"variation_id,omitempty"`
	Name               string                `gorm:"size:255" json:"name"`
	Type               enum.ProductType      `json:"type"`
	Quantity           decimal.Decimal       `gorm:"type:decimal(18,4);not null" json:"quantity"`
	UnitPrice          money.Money           `gorm:"embedded;embeddedPrefix:price_" json:"unit_price"`
	TotalPrice         money.Money           `gorm:"embedded;embeddedPrefix:total_" json:"total_price"`
	UnitCost           money.Money           `gorm:"embedded;embeddedPrefix:cost_" json:"unit_cost"`
	Status             enum.ProductionStatus `gorm:"default:0" json:"status"`
	StockAreaID        *uuid.UUID            `gorm:"type:uuid" json:"stock_area_id,omitempty"`
	ProductionAreaID   *uuid.UUID            `gorm:"type:uuid" json:"production_area_id,omitempty"`
	ProductionTicketID *uuid.UUID            `gorm:"type:uuid" json:"production_ticket_id,omitempty"`
	Observations       string                `gorm:"size:500" json:"observations,omitempty"`
	Addons             []SelledProductAddon  `gorm:"foreignKey:SelledProductID" json:"addons,omitempty"`
	CreatedAt          time.Time             `json:"created_at"`
}

// BeforeCreate generates a UUID before creating a new line
func (sp *SelledProduct) BeforeCreate(tx *gorm.DB) error {
	if sp.ID == uuid.Nil {
		sp.ID = uuid.New()
	}
	return nil
}

// TableName returns the table name for the SelledProduct model
func (SelledProduct) TableName() string {
	return "selled_products"
}

// VariationKey returns the variation id or uuid.Nil
func (sp *SelledProduct) VariationKey() uuid.UUID {
	if sp.VariationID == nil {
		return uuid.Nil
	}
	return *sp.VariationID
}

// SelledProductAddon is an addon sold together with a line
type SelledProductAddon struct {
	ID              uuid.UUID       `gorm:"type:uuid;primary_key" json:"id"`
	SelledProductID uuid.UUID       `gorm:"type:uuid;not null;index" json:"selled_product_id"`
	ProductID       uuid.UUID       `gorm:"type:uuid;not null" json:"product_id"`
	Name            string          `gorm:"size:255" json:"name"`
	Quantity        decimal.Decimal `gorm:"type:decimal(18,4);not null" json:"quantity"`
	Price           money.Money     `gorm:"embedded;embeddedPrefix:price_" json:"price"`
}

// BeforeCreate generates a UUID before creating a new addon
func (a *SelledProductAddon) BeforeCreate(tx *gorm.DB) error {
	if a.ID == uuid.Nil {
		a.ID = uuid.New()
	}
	return nil
}

// TableName returns the table name for the SelledProductAddon model
func (SelledProductAddon) TableName() string {
	return "selled_product_addons"
}

// CurrencyPayment is a payment received for an order at billing time
type CurrencyPayment struct {
	ID         uuid.UUID       `gorm:"type:uuid;primary_key" json:"id"`
	OrderID    uuid.UUID       `gorm:"type:uuid;not null;index" json:"order_id"`
	BusinessID uuid.UUID       `gorm:"type:uuid;not null" json:"business_id"`
	Amount     money.Money     `gorm:"embedded" json:"amount"`
	PaymentWay enum.PaymentWay `gorm:"default:0" json:"payment_way"`
	CreatedAt  time.Time       `json:"created_at"`
}

// BeforeCreate generates a UUID before creating a new payment
func (p *CurrencyPayment) BeforeCreate(tx *gorm.DB) error {
	if p.ID == uuid.Nil {
		p.ID = uuid.New()
	}
	return nil
}

// TableName returns the table name for the CurrencyPayment model
func (CurrencyPayment) TableName() string {
	return "currency_payments"
}

// OrderCoupon links a coupon applied to an order with the discount it produced
type OrderCoupon struct {
	ID       uuid.UUID  `gorm:"type:uuid;primary_key" json:"id"`
	OrderID  uuid.UUID  `gorm:"type:uuid;not null;index" json:"order_id"`
	CouponID uuid.UUID  `gorm:"type:uuid;not null;index" json:"coupon_id"`
	Code     string     `gorm:"size:100" json:"code"`
	Discount money.List `json:"discount"`
}

// BeforeCreate generates a UUID before creating a new link
func (c *OrderCoupon) BeforeCreate(tx *gorm.DB) error {
	if c.ID == uuid.Nil {
		c.ID = uuid.New()
	}
	return nil
}

// TableName returns the table name for the OrderCoupon model
func (OrderCoupon) TableName() string {
	return "order_coupons"
}
