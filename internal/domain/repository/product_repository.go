package repository

import (
	"context"

	"github.com/google/uuid"
	"github.com/sangkips/posflow-api/internal/domain/entity"
)

// ProductRepository defines read access to the product catalog
type ProductRepository interface {
	// GetByIDs returns the products of the business with their variations
	GetByIDs(ctx context.Context, businessID uuid.UUID, ids []uuid.UUID) ([]entity.Product, error)
}

// StockKey identifies a ledger entry inside an area
type StockKey struct {
	ProductID   uuid.UUID
	VariationID uuid.UUID
}

// StockRepository defines the stock ledger persistence
type StockRepository interface {
	// LockEntries locks the ledger rows of the given keys in key order for the rest of the
	// transaction. Keys without a row are absent from the result.
	LockEntries(ctx context.Context, areaID uuid.UUID, keys []StockKey) (map[StockKey]*entity.StockAreaProduct, error)
	// SaveEntry creates or updates a ledger row
	SaveEntry(ctx context.Context, entry *entity.StockAreaProduct) error
	CreateMovements(ctx context.Context, movements []entity.StockMovement) error
}
