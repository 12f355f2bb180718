package request

import (
	"time"

	"github.com/google/uuid"
	"github.com/sangkips/posflow-api/internal/application/service"
	"github.com/sangkips/posflow-api/internal/domain/enum"
	"github.com/sangkips/posflow-api/pkg/money"
	"github.com/shopspring/decimal"
)

// MoneyRequest is an amount in one currency
type MoneyRequest struct {
	Amount   decimal.Decimal `json:"amount"`
	Currency string          `json:"currency" binding:"required,len=3"`
}

func (m MoneyRequest) toMoney() money.Money {
	return money.New(m.Amount, money.NormalizeCode(m.Currency))
}

func optionalMoney(m *MoneyRequest) *money.Money {
	if m == nil {
		return nil
	}
	v := m.toMoney()
	return &v
}

// AddonRequest is an addon attached to a product line
type AddonRequest struct {
	ProductID uuid.UUID       `json:"product_id" binding:"required"`
	Quantity  decimal.Decimal `json:"quantity"`
}

// LineRequest is a product requested for an order
type LineRequest struct {
	ProductID    uuid.UUID       `json:"product_id" binding:"required"`
	VariationID  *uuid.UUID      `json:"variation_id"`
	Quantity     decimal.Decimal `json:"quantity"`
	Addons       []AddonRequest  `json:"addons" binding:"dive"`
	Observations string          `json:"observations" binding:"max=500"`
}

func toLines(lines []LineRequest) []service.LineInput {
	out := make([]service.LineInput, len(lines))
	for i, l := range lines {
		addons := make([]service.AddonInput, len(l.Addons))
		for j, a := range l.Addons {
			addons[j] = service.AddonInput{ProductID: a.ProductID, Quantity: a.Quantity}
		}
		out[i] = service.LineInput{
			ProductID:    l.ProductID,
			VariationID:  l.VariationID,
			Quantity:     l.Quantity,
			Addons:       addons,
			Observations: l.Observations,
		}
	}
	return out
}

// PaymentRequest is one received payment
type PaymentRequest struct {
	Amount     decimal.Decimal `json:"amount"`
	Currency   string          `json:"currency" binding:"required,len=3"`
	PaymentWay enum.PaymentWay `json:"payment_way"`
}

// PayOrderRequest represents the billing of an order
type PayOrderRequest struct {
	Payments          []PaymentRequest `json:"payments" binding:"dive"`
	Coupons           []string         `json:"coupons"`
	AmountReturned    *MoneyRequest    `json:"amount_returned"`
	Tip               *MoneyRequest    `json:"tip"`
	Shipping          *MoneyRequest    `json:"shipping"`
	DiscountPercent   *decimal.Decimal `json:"discount_percent"`
	CommissionPercent *decimal.Decimal `json:"commission_percent"`
	HouseCosted       bool             `json:"house_costed"`
}

// ToInput converts the request to the service input
func (r *PayOrderRequest) ToInput() *service.PayOrderInput {
	payments := make([]service.PaymentInput, len(r.Payments))
	for i, p := range r.Payments {
		payments[i] = service.PaymentInput{
			Amount:     money.New(p.Amount, money.NormalizeCode(p.Currency)),
			PaymentWay: p.PaymentWay,
		}
	}
	return &service.PayOrderInput{
		Payments:          payments,
		Coupons:           r.Coupons,
		AmountReturned:    optionalMoney(r.AmountReturned),
		Tip:               optionalMoney(r.Tip),
		Shipping:          optionalMoney(r.Shipping),
		DiscountPercent:   r.DiscountPercent,
		CommissionPercent: r.CommissionPercent,
		HouseCosted:       r.HouseCosted,
	}
}

// CreateOrderRequest represents an order creation request
type CreateOrderRequest struct {
	AreaID         uuid.UUID        `json:"area_id" binding:"required"`
	Name           string           `json:"name" binding:"max=255"`
	Origin         enum.OrderOrigin `json:"origin"`
	ManagedByID    *uuid.UUID       `json:"managed_by_id"`
	CreatedAt      *time.Time       `json:"created_at"`
	Products       []LineRequest    `json:"products" binding:"required,min=1,dive"`
	ResourceIDs    []uuid.UUID      `json:"resource_ids"`
	PaymentGateway bool             `json:"payment_gateway"`
	Payment        *PayOrderRequest `json:"payment"`
}

// ToInput converts the request to the service input
func (r *CreateOrderRequest) ToInput() *service.CreateOrderInput {
	in := &service.CreateOrderInput{
		AreaID:         r.AreaID,
		Name:           r.Name,
		Origin:         r.Origin,
		ManagedByID:    r.ManagedByID,
		CreatedAt:      r.CreatedAt,
		Lines:          toLines(r.Products),
		ResourceIDs:    r.ResourceIDs,
		PaymentGateway: r.PaymentGateway,
	}
	if r.Payment != nil {
		in.Payment = r.Payment.ToInput()
	}
	return in
}

// RemoveLineRequest removes quantity from a line. Zero removes the whole line.
type RemoveLineRequest struct {
	SelledProductID uuid.UUID       `json:"selled_product_id" binding:"required"`
	Quantity        decimal.Decimal `json:"quantity"`
}

// AddRemoveProductsRequest represents the products added to and removed from an order
type AddRemoveProductsRequest struct {
	Added   []LineRequest       `json:"added" binding:"dive"`
	Deleted []RemoveLineRequest `json:"deleted" binding:"dive"`
}

// ToInput converts the request to the service input
func (r *AddRemoveProductsRequest) ToInput() *service.AddRemoveProductsInput {
	deleted := make([]service.RemoveLineInput, len(r.Deleted))
	for i, d := range r.Deleted {
		deleted[i] = service.RemoveLineInput{SelledProductID: d.SelledProductID, Quantity: d.Quantity}
	}
	return &service.AddRemoveProductsInput{Added: toLines(r.Added), Deleted: deleted}
}

// RefundOrderRequest names the sales area paying the refund
type RefundOrderRequest struct {
	AreaID uuid.UUID `json:"area_id" binding:"required"`
}

// MoveOrderRequest moves an order to another sales area or other resources
type MoveOrderRequest struct {
	AreaID      *uuid.UUID  `json:"area_id"`
	ResourceIDs []uuid.UUID `json:"resource_ids"`
}

// ToInput converts the request to the service input
func (r *MoveOrderRequest) ToInput() *service.MoveOrderInput {
	return &service.MoveOrderInput{TargetAreaID: r.AreaID, ResourceIDs: r.ResourceIDs}
}

// SplitOrderRequest selects the lines moved into a new order
type SplitOrderRequest struct {
	Name     string              `json:"name" binding:"max=255"`
	Products []RemoveLineRequest `json:"products" binding:"required,min=1,dive"`
}

// ToInput converts the request to the service input
func (r *SplitOrderRequest) ToInput() *service.SplitOrderInput {
	lines := make([]service.SplitLineInput, len(r.Products))
	for i, p := range r.Products {
		lines[i] = service.SplitLineInput{SelledProductID: p.SelledProductID, Quantity: p.Quantity}
	}
	return &service.SplitOrderInput{Name: r.Name, Lines: lines}
}

// OrderFilterRequest represents order list filters
type OrderFilterRequest struct {
	Status          string `form:"status"`
	AreaID          string `form:"area_id"`
	EconomicCycleID string `form:"economic_cycle_id"`
	StartDate       string `form:"start_date"`
	EndDate         string `form:"end_date"`
	SortOrder       string `form:"sort_order"`
	Page            int    `form:"page"`
	PerPage         int    `form:"per_page"`
}
