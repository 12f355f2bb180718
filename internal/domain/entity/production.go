package entity

import (
	"time"

	"github.com/google/uuid"
	"github.com/sangkips/posflow-api/internal/domain/enum"
	"gorm.io/gorm"
)

// ProductionTicket groups the lines of an order routed to one production area
type ProductionTicket struct {
	ID               uuid.UUID         `gorm:"type:uuid;primary_key" json:"id"`
	BusinessID       uuid.UUID         `gorm:"type:uuid;not null;index" json:"business_id"`
	OrderID          uuid.UUID         `gorm:"type:uuid;not null;index" json:"order_id"`
	ProductionAreaID uuid.UUID         `gorm:"type:uuid;not null;index" json:"production_area_id"`
	Status           enum.TicketStatus `gorm:"default:0" json:"status"`
	Name             string            `gorm:"size:255" json:"name"`
	CreatedAt        time.Time         `json:"created_at"`
	UpdatedAt        time.Time         `json:"updated_at"`
}

// BeforeCreate generates a UUID before creating a new ticket
func (t *ProductionTicket) BeforeCreate(tx *gorm.DB) error {
	if t.ID == uuid.Nil {
		t.ID = uuid.New()
	}
	return nil
}

// TableName returns the table name for the ProductionTicket model
func (ProductionTicket) TableName() string {
	return "production_tickets"
}

// Resource is a physical resource of a sales area (a table) an order can reserve
type Resource struct {
	ID          uuid.UUID `gorm:"type:uuid;primary_key" json:"id"`
	BusinessID  uuid.UUID `gorm:"type:uuid;not null;index" json:"business_id"`
	AreaID      uuid.UUID `gorm:"type:uuid;not null;index" json:"area_id"`
	Code        string    `gorm:"size:50;not null" json:"code"`
	IsAvailable bool      `gorm:"default:true" json:"is_available"`
}

// BeforeCreate generates a UUID before creating a new resource
func (r *Resource) BeforeCreate(tx *gorm.DB) error {
	if r.ID == uuid.Nil {
		r.ID = uuid.New()
	}
	return nil
}

// TableName returns the table name for the Resource model
func (Resource) TableName() string {
	return "resources"
}

// Dispatch is a transfer of goods tied to an order. An accepted one blocks cancellation.
type Dispatch struct {
	ID         uuid.UUID           `gorm:"type:uuid;primary_key" json:"id"`
	BusinessID uuid.UUID           `gorm:"type:uuid;not null;index" json:"business_id"`
	OrderID    *uuid.UUID          `gorm:"type:uuid;index" json:"order_id,omitempty"`
	Status     enum.DispatchStatus `gorm:"default:0" json:"status"`
	CreatedAt  time.Time           `json:"created_at"`
	UpdatedAt  time.Time           `json:"updated_at"`
}

// BeforeCreate generates a UUID before creating a new dispatch
func (d *Dispatch) BeforeCreate(tx *gorm.DB) error {
	if d.ID == uuid.Nil {
		d.ID = uuid.New()
	}
	return nil
}

// TableName returns the table name for the Dispatch model
func (Dispatch) TableName() string {
	return "dispatches"
}
