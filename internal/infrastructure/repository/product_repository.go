package repository

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"github.com/sangkips/posflow-api/internal/domain/entity"
	domainRepo "github.com/sangkips/posflow-api/internal/domain/repository"
	"github.com/sangkips/posflow-api/pkg/apperror"
	"gorm.io/gorm"
)

type productRepository struct {
	db *gorm.DB
}

// NewProductRepository creates a new product repository
func NewProductRepository(db *gorm.DB) domainRepo.ProductRepository {
	return &productRepository{db: db}
}

func (r *productRepository) GetByIDs(ctx context.Context, businessID uuid.UUID, ids []uuid.UUID) ([]entity.Product, error) {
	if len(ids) == 0 {
		return nil, nil
	}
	var products []entity.Product
	err := dbFrom(ctx, r.db).
		Scopes(BusinessScope(businessID)).
		Preload("Variations").
		Where("id IN ?", ids).
		Find(&products).Error
	return products, err
}

type stockRepository struct {
	db *gorm.DB
}

// NewStockRepository creates a new stock ledger repository
func NewStockRepository(db *gorm.DB) domainRepo.StockRepository {
	return &stockRepository{db: db}
}

// LockEntries uses SELECT ... FOR UPDATE ordered by key so concurrent transactions
// always acquire the rows in the same order
func (r *stockRepository) LockEntries(ctx context.Context, areaID uuid.UUID, keys []domainRepo.StockKey) (map[domainRepo.StockKey]*entity.StockAreaProduct, error) {
	out := make(map[domainRepo.StockKey]*entity.StockAreaProduct, len(keys))
	if len(keys) == 0 {
		return out, nil
	}

	tuples := make([][]interface{}, len(keys))
	for i, k := range keys {
		tuples[i] = []interface{}{k.ProductID, k.VariationID}
	}

	var entries []entity.StockAreaProduct
	err := dbFrom(ctx, r.db).
		Scopes(ForUpdate).
		Where("area_id = ?", areaID).
		Where("(product_id, variation_id) IN ?", tuples).
		Order("product_id, variation_id").
		Find(&entries).Error
	if err != nil {
		return nil, err
	}

	for i := range entries {
		e := &entries[i]
		out[domainRepo.StockKey{ProductID: e.ProductID, VariationID: e.VariationID}] = e
	}
	return out, nil
}

func (r *stockRepository) SaveEntry(ctx context.Context, entry *entity.StockAreaProduct) error {
	db := dbFrom(ctx, r.db)
	if entry.ID == uuid.Nil {
		err := db.Create(entry).Error
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			return apperror.NewInfrastructureError("Stock entry was created concurrently", err)
		}
		return err
	}
	return db.Model(entry).Update("quantity", entry.Quantity).Error
}

func (r *stockRepository) CreateMovements(ctx context.Context, movements []entity.StockMovement) error {
	if len(movements) == 0 {
		return nil
	}
	return dbFrom(ctx, r.db).Create(&movements).Error
}
