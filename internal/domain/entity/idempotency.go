package entity

import (
	"time"

	"github.com/google/uuid"
)

// IdempotencyKey stores the response of a mutating request so a retry with the same key
// replays it instead of running the operation twice
type IdempotencyKey struct {
	ID           uuid.UUID `gorm:"type:uuid;default:gen_random_uuid();primaryKey"`
	BusinessID   uuid.UUID `gorm:"type:uuid;not null;uniqueIndex:idx_idempotency_scope"`
	UserID       uuid.UUID `gorm:"type:uuid;not null;uniqueIndex:idx_idempotency_scope"`
	Key          string    `gorm:"size:255;not null;uniqueIndex:idx_idempotency_scope"`
	Endpoint     string    `gorm:"size:255;not null"` // e.g. "POST /api/v1/orders/:id/pay"
	RequestHash  string    `gorm:"size:64"`           // SHA256 of the request body
	ResponseCode int       `gorm:"not null"`
	ResponseBody string    `gorm:"type:text"`
	CreatedAt    time.Time `gorm:"autoCreateTime"`
	ExpiresAt    time.Time `gorm:"not null;index"`
}

// TableName returns the table name for IdempotencyKey
func (IdempotencyKey) TableName() string {
	return "idempotency_keys"
}

// IsExpired reports whether the key can no longer be replayed at the given time
func (i *IdempotencyKey) IsExpired(at time.Time) bool {
	return at.After(i.ExpiresAt)
}
