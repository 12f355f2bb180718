package repository

import (
	"context"

	"github.com/google/uuid"
	"github.com/sangkips/posflow-api/internal/domain/entity"
)

// BusinessRepository defines read access to businesses and their currencies
type BusinessRepository interface {
	// GetByID returns the business with its available currencies
	GetByID(ctx context.Context, id uuid.UUID) (*entity.Business, error)
}

// AreaRepository defines read access to business areas
type AreaRepository interface {
	GetByID(ctx context.Context, businessID, id uuid.UUID) (*entity.Area, error)
}

// EconomicCycleRepository defines the interface for economic cycle data operations
type EconomicCycleRepository interface {
	// GetActive returns the active cycle of the business or nil
	GetActive(ctx context.Context, businessID uuid.UUID) (*entity.EconomicCycle, error)
	GetByID(ctx context.Context, businessID, id uuid.UUID) (*entity.EconomicCycle, error)
	Create(ctx context.Context, cycle *entity.EconomicCycle) error
	Update(ctx context.Context, cycle *entity.EconomicCycle) error
}
