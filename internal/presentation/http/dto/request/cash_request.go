package request

import (
	"github.com/google/uuid"
	"github.com/sangkips/posflow-api/internal/application/service"
	"github.com/sangkips/posflow-api/internal/domain/enum"
	"github.com/sangkips/posflow-api/pkg/money"
	"github.com/shopspring/decimal"
)

// CashOperationRequest represents a manual cash drawer entry
type CashOperationRequest struct {
	AreaID       uuid.UUID          `json:"area_id" binding:"required"`
	Operation    enum.CashOperation `json:"operation"`
	Amount       decimal.Decimal    `json:"amount"`
	Currency     string             `json:"currency" binding:"required,len=3"`
	PaymentWay   enum.PaymentWay    `json:"payment_way"`
	Observations string             `json:"observations" binding:"max=500"`
}

// ToInput converts the request to the service input
func (r *CashOperationRequest) ToInput() *service.RegisterCashOperationInput {
	return &service.RegisterCashOperationInput{
		AreaID:       r.AreaID,
		Operation:    r.Operation,
		Amount:       money.New(r.Amount, money.NormalizeCode(r.Currency)),
		PaymentWay:   r.PaymentWay,
		Observations: r.Observations,
	}
}

// GatewayCallbackRequest is the payment gateway notification body
type GatewayCallbackRequest struct {
	Reference     uuid.UUID        `json:"reference" binding:"required"`
	TransactionNo string           `json:"transaction_no" binding:"required"`
	Status        string           `json:"status"`
	Amount        *decimal.Decimal `json:"amount"`
	Currency      string           `json:"currency"`
}

// ToInput converts the request to the service input
func (r *GatewayCallbackRequest) ToInput() *service.GatewayCallbackInput {
	in := &service.GatewayCallbackInput{
		OrderID:       r.Reference,
		TransactionNo: r.TransactionNo,
		Status:        r.Status,
	}
	if r.Amount != nil && r.Currency != "" {
		m := money.New(*r.Amount, money.NormalizeCode(r.Currency))
		in.Amount = &m
	}
	return in
}
