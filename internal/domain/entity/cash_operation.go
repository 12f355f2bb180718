package entity

import (
	"time"

	"github.com/google/uuid"
	"github.com/sangkips/posflow-api/internal/domain/enum"
	"github.com/sangkips/posflow-api/pkg/money"
	"gorm.io/gorm"
)

// CashRegisterOperation is an append-only entry of a sales area cash drawer
type CashRegisterOperation struct {
	ID              uuid.UUID          `gorm:"type:uuid;primary_key" json:"id"`
	BusinessID      uuid.UUID          `gorm:"type:uuid;not null;index" json:"business_id"`
	AreaID          uuid.UUID          `gorm:"type:uuid;not null;index" json:"area_id"`
	EconomicCycleID uuid.UUID          `gorm:"type:uuid;not null;index" json:"economic_cycle_id"`
	OrderID         *uuid.UUID         `gorm:"type:uuid;index" json:"order_id,omitempty"`
	Operation       enum.CashOperation `gorm:"not null" json:"operation"`
	Type            string             `gorm:"size:10;not null" json:"type"`
	Amount          money.Money        `gorm:"embedded" json:"amount"`
	PaymentWay      enum.PaymentWay    `gorm:"default:0" json:"payment_way"`
	Observations    string             `gorm:"size:500" json:"observations,omitempty"`
	MadeByID        uuid.UUID          `gorm:"type:uuid" json:"made_by_id"`
	CreatedAt       time.Time          `json:"created_at"`
}

// BeforeCreate generates a UUID and derives the credit/debit type
func (c *CashRegisterOperation) BeforeCreate(tx *gorm.DB) error {
	if c.ID == uuid.Nil {
		c.ID = uuid.New()
	}
	if c.Type == "" {
		c.Type = c.Operation.Type()
	}
	return nil
}

// TableName returns the table name for the CashRegisterOperation model
func (CashRegisterOperation) TableName() string {
	return "cash_register_operations"
}
