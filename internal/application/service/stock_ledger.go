package service

import (
	"context"
	"sort"

	"github.com/google/uuid"
	"github.com/sangkips/posflow-api/internal/domain/entity"
	"github.com/sangkips/posflow-api/internal/domain/enum"
	"github.com/sangkips/posflow-api/internal/domain/repository"
	"github.com/sangkips/posflow-api/pkg/apperror"
	"github.com/shopspring/decimal"
)

// StockItem is a quantity of a product (or variation) to take from or return to the ledger
type StockItem struct {
	ProductID   uuid.UUID       `json:"product_id"`
	VariationID uuid.UUID       `json:"variation_id,omitempty"`
	Name        string          `json:"name,omitempty"`
	Quantity    decimal.Decimal `json:"quantity"`
}

func (i StockItem) key() repository.StockKey {
	return repository.StockKey{ProductID: i.ProductID, VariationID: i.VariationID}
}

// StockShortage describes an item whose available quantity did not cover the request
type StockShortage struct {
	ProductID   uuid.UUID       `json:"product_id"`
	VariationID uuid.UUID       `json:"variation_id,omitempty"`
	Name        string          `json:"name,omitempty"`
	Requested   decimal.Decimal `json:"requested"`
	Available   decimal.Decimal `json:"available"`
}

// SubstractInput describes a batch to take out of one area
type SubstractInput struct {
	Items           []StockItem
	AreaID          uuid.UUID
	Strict          bool
	Operation       enum.StockOperation
	OrderID         *uuid.UUID
	EconomicCycleID *uuid.UUID
}

// SubstractResult lists what was applied. Failures holds the items that went negative
// when the batch was not strict.
type SubstractResult struct {
	Applied  []StockItem
	Failures []StockShortage
}

// RestoreInput describes a batch to return to one area
type RestoreInput struct {
	Items                 []StockItem
	AreaID                uuid.UUID
	IsAtSameEconomicCycle bool
	Operation             enum.StockOperation
	OrderID               *uuid.UUID
	EconomicCycleID       *uuid.UUID
}

// StockLedger keeps per-area availability. Every call must run inside a transaction
// so the ledger rows stay locked until commit.
type StockLedger struct {
	stock repository.StockRepository
}

// NewStockLedger creates a new stock ledger
func NewStockLedger(stock repository.StockRepository) *StockLedger {
	return &StockLedger{stock: stock}
}

// Substract takes the items out of the area. Under strict mode the whole batch fails with an
// InsufficientStockError when any item is short, and nothing is written.
func (l *StockLedger) Substract(ctx context.Context, rc RequestContext, in SubstractInput) (*SubstractResult, error) {
	if _, ok := repository.TxIDFromContext(ctx); !ok {
		return nil, apperror.NewInfrastructureError("Stock ledger requires an open transaction", nil)
	}
	items := aggregateStockItems(in.Items)
	if len(items) == 0 {
		return &SubstractResult{}, nil
	}

	entries, err := l.stock.LockEntries(ctx, in.AreaID, stockKeys(items))
	if err != nil {
		return nil, err
	}

	var shortages []StockShortage
	for _, item := range items {
		available := decimal.Zero
		if entry, ok := entries[item.key()]; ok {
			available = entry.Quantity
		}
		if available.LessThan(item.Quantity) {
			shortages = append(shortages, StockShortage{
				ProductID:   item.ProductID,
				VariationID: item.VariationID,
				Name:        item.Name,
				Requested:   item.Quantity,
				Available:   available,
			})
		}
	}
	if in.Strict && len(shortages) > 0 {
		return nil, apperror.NewInsufficientStockError(shortages)
	}

	op := in.Operation
	if op == enum.StockOperationReturn {
		op = enum.StockOperationSale
	}
	if err := l.apply(ctx, rc, in.AreaID, items, entries, true, op, in.OrderID, in.EconomicCycleID, ""); err != nil {
		return nil, err
	}
	return &SubstractResult{Applied: items, Failures: shortages}, nil
}

// Restore returns the items to the area. When the order belongs to a closed economic cycle
// the movement is recorded as an explicit previous-cycle adjustment.
func (l *StockLedger) Restore(ctx context.Context, rc RequestContext, in RestoreInput) error {
	if _, ok := repository.TxIDFromContext(ctx); !ok {
		return apperror.NewInfrastructureError("Stock ledger requires an open transaction", nil)
	}
	items := aggregateStockItems(in.Items)
	if len(items) == 0 {
		return nil
	}

	entries, err := l.stock.LockEntries(ctx, in.AreaID, stockKeys(items))
	if err != nil {
		return err
	}

	op := in.Operation
	if op == enum.StockOperationSale {
		op = enum.StockOperationReturn
	}
	note := ""
	if !in.IsAtSameEconomicCycle {
		op = enum.StockOperationAdjustmentPreviousCycle
		note = "restored from an order of a closed economic cycle"
	}
	return l.apply(ctx, rc, in.AreaID, items, entries, false, op, in.OrderID, in.EconomicCycleID, note)
}

func (l *StockLedger) apply(
	ctx context.Context,
	rc RequestContext,
	areaID uuid.UUID,
	items []StockItem,
	entries map[repository.StockKey]*entity.StockAreaProduct,
	substract bool,
	op enum.StockOperation,
	orderID, cycleID *uuid.UUID,
	note string,
) error {
	movements := make([]entity.StockMovement, 0, len(items))
	for _, item := range items {
		delta := item.Quantity
		if substract {
			delta = delta.Neg()
		}

		entry, ok := entries[item.key()]
		if !ok {
			entry = &entity.StockAreaProduct{
				AreaID:      areaID,
				ProductID:   item.ProductID,
				VariationID: item.VariationID,
				Quantity:    decimal.Zero,
			}
		}
		entry.Quantity = entry.Quantity.Add(delta)
		if err := l.stock.SaveEntry(ctx, entry); err != nil {
			return err
		}

		movements = append(movements, entity.StockMovement{
			BusinessID:      rc.BusinessID,
			AreaID:          areaID,
			ProductID:       item.ProductID,
			VariationID:     item.VariationID,
			Quantity:        delta,
			Operation:       op,
			OrderID:         orderID,
			EconomicCycleID: cycleID,
			MadeByID:        rc.UserID,
			Note:            note,
		})
	}
	return l.stock.CreateMovements(ctx, movements)
}

// aggregateStockItems merges items sharing a key and sorts them by key
func aggregateStockItems(items []StockItem) []StockItem {
	merged := make(map[repository.StockKey]StockItem, len(items))
	for _, item := range items {
		if !item.Quantity.IsPositive() {
			continue
		}
		if existing, ok := merged[item.key()]; ok {
			existing.Quantity = existing.Quantity.Add(item.Quantity)
			merged[item.key()] = existing
			continue
		}
		merged[item.key()] = item
	}
	out := make([]StockItem, 0, len(merged))
	for _, item := range merged {
		out = append(out, item)
	}
	sort.Slice(out, func(i, j int) bool {
		return stockKeyLess(out[i].key(), out[j].key())
	})
	return out
}

func stockKeys(items []StockItem) []repository.StockKey {
	keys := make([]repository.StockKey, len(items))
	for i, item := range items {
		keys[i] = item.key()
	}
	return keys
}

func stockKeyLess(a, b repository.StockKey) bool {
	if a.ProductID != b.ProductID {
		return a.ProductID.String() < b.ProductID.String()
	}
	return a.VariationID.String() < b.VariationID.String()
}

// stockItemsFromLines returns the ledger items consumed by the lines: stock-controlled
// products and their addons
func stockItemsFromLines(lines []entity.SelledProduct) []StockItem {
	var items []StockItem
	for _, line := range lines {
		if line.Type.ControlsStock() {
			items = append(items, StockItem{
				ProductID:   line.ProductID,
				VariationID: line.VariationKey(),
				Name:        line.Name,
				Quantity:    line.Quantity,
			})
		}
		for _, addon := range line.Addons {
			items = append(items, StockItem{
				ProductID: addon.ProductID,
				Name:      addon.Name,
				Quantity:  addon.Quantity,
			})
		}
	}
	return items
}

// stockItemsByArea groups the ledger items of the lines by the area they were taken from
func stockItemsByArea(lines []entity.SelledProduct, fallback uuid.UUID) map[uuid.UUID][]StockItem {
	grouped := make(map[uuid.UUID][]entity.SelledProduct)
	for _, line := range lines {
		areaID := fallback
		if line.StockAreaID != nil {
			areaID = *line.StockAreaID
		}
		grouped[areaID] = append(grouped[areaID], line)
	}
	out := make(map[uuid.UUID][]StockItem, len(grouped))
	for areaID, group := range grouped {
		if items := stockItemsFromLines(group); len(items) > 0 {
			out[areaID] = items
		}
	}
	return out
}

func sortedAreaIDs(m map[uuid.UUID][]StockItem) []uuid.UUID {
	ids := make([]uuid.UUID, 0, len(m))
	for id := range m {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i].String() < ids[j].String() })
	return ids
}
