package repository

import (
	"context"

	"github.com/google/uuid"
	"github.com/sangkips/posflow-api/internal/domain/entity"
)

// ProductionTicketRepository defines the interface for production ticket data operations
type ProductionTicketRepository interface {
	Create(ctx context.Context, tickets ...entity.ProductionTicket) error
	CloseByOrder(ctx context.Context, orderID uuid.UUID) error
	// Close closes the given tickets
	Close(ctx context.Context, ids ...uuid.UUID) error
	// Reassign moves the given tickets to another order
	Reassign(ctx context.Context, orderID uuid.UUID, ids ...uuid.UUID) error
}

// ResourceRepository defines the interface for reservable resource data operations
type ResourceRepository interface {
	// GetByIDsForUpdate locks the resources of the business in id order
	GetByIDsForUpdate(ctx context.Context, businessID uuid.UUID, ids []uuid.UUID) ([]entity.Resource, error)
	SetAvailability(ctx context.Context, ids []uuid.UUID, available bool) error
}

// DispatchRepository defines read access to dispatches
type DispatchRepository interface {
	HasAccepted(ctx context.Context, orderID uuid.UUID) (bool, error)
}
