package repository

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/sangkips/posflow-api/internal/domain/entity"
)

// IdempotencyRepository defines the interface for idempotency key operations
type IdempotencyRepository interface {
	// GetByKey returns the stored response for the key of a caller, or nil
	GetByKey(ctx context.Context, businessID, userID uuid.UUID, key string) (*entity.IdempotencyKey, error)
	// Create stores a response. A key stored concurrently by another request is ignored.
	Create(ctx context.Context, ikey *entity.IdempotencyKey) error
	// DeleteExpired removes the keys that expired before the given time
	DeleteExpired(ctx context.Context, before time.Time) (int64, error)
}
