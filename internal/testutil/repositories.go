package testutil

import (
	"context"
	"errors"
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/sangkips/posflow-api/internal/domain/entity"
	"github.com/sangkips/posflow-api/internal/domain/enum"
	"github.com/sangkips/posflow-api/internal/domain/repository"
)

// Businesses returns the business repository
func (s *Store) Businesses() repository.BusinessRepository { return businessRepo{s} }

// Areas returns the area repository
func (s *Store) Areas() repository.AreaRepository { return areaRepo{s} }

// Cycles returns the economic cycle repository
func (s *Store) Cycles() repository.EconomicCycleRepository { return cycleRepo{s} }

// Products returns the product repository
func (s *Store) Products() repository.ProductRepository { return productRepo{s} }

// Stock returns the stock ledger repository
func (s *Store) Stock() repository.StockRepository { return stockRepo{s} }

// Orders returns the order repository
func (s *Store) Orders() repository.OrderRepository { return orderRepo{s} }

// CashOps returns the cash operation repository
func (s *Store) CashOps() repository.CashOperationRepository { return cashRepo{s} }

// CouponRepo returns the coupon repository
func (s *Store) CouponRepo() repository.CouponRepository { return couponRepo{s} }

// TicketRepo returns the production ticket repository
func (s *Store) TicketRepo() repository.ProductionTicketRepository { return ticketRepo{s} }

// ResourceRepo returns the resource repository
func (s *Store) ResourceRepo() repository.ResourceRepository { return resourceRepo{s} }

// DispatchRepo returns the dispatch repository
func (s *Store) DispatchRepo() repository.DispatchRepository { return dispatchRepo{s} }

type businessRepo struct{ s *Store }

func (r businessRepo) GetByID(ctx context.Context, id uuid.UUID) (*entity.Business, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	if b, ok := r.s.data.Businesses[id]; ok {
		return clone(b), nil
	}
	return nil, nil
}

type areaRepo struct{ s *Store }

func (r areaRepo) GetByID(ctx context.Context, businessID, id uuid.UUID) (*entity.Area, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	if a, ok := r.s.data.Areas[id]; ok && a.BusinessID == businessID {
		return clone(a), nil
	}
	return nil, nil
}

type cycleRepo struct{ s *Store }

func (r cycleRepo) GetActive(ctx context.Context, businessID uuid.UUID) (*entity.EconomicCycle, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	for _, c := range r.s.data.Cycles {
		if c.BusinessID == businessID && c.IsActive {
			return clone(c), nil
		}
	}
	return nil, nil
}

func (r cycleRepo) GetByID(ctx context.Context, businessID, id uuid.UUID) (*entity.EconomicCycle, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	if c, ok := r.s.data.Cycles[id]; ok && c.BusinessID == businessID {
		return clone(c), nil
	}
	return nil, nil
}

func (r cycleRepo) Create(ctx context.Context, cycle *entity.EconomicCycle) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if cycle.ID == uuid.Nil {
		cycle.ID = uuid.New()
	}
	if cycle.IsActive {
		for _, c := range r.s.data.Cycles {
			if c.BusinessID == cycle.BusinessID && c.IsActive {
				return errors.New("duplicate key value violates unique constraint idx_one_active_cycle")
			}
		}
	}
	r.s.data.Cycles[cycle.ID] = clone(cycle)
	return nil
}

func (r cycleRepo) Update(ctx context.Context, cycle *entity.EconomicCycle) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	r.s.data.Cycles[cycle.ID] = clone(cycle)
	return nil
}

type productRepo struct{ s *Store }

func (r productRepo) GetByIDs(ctx context.Context, businessID uuid.UUID, ids []uuid.UUID) ([]entity.Product, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	var out []entity.Product
	for _, id := range ids {
		if p, ok := r.s.data.Products[id]; ok && p.BusinessID == businessID {
			out = append(out, *clone(p))
		}
	}
	return out, nil
}

type stockRepo struct{ s *Store }

func (r stockRepo) LockEntries(ctx context.Context, areaID uuid.UUID, keys []repository.StockKey) (map[repository.StockKey]*entity.StockAreaProduct, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	out := make(map[repository.StockKey]*entity.StockAreaProduct, len(keys))
	for _, k := range keys {
		if e, ok := r.s.data.Stock[stockKey(areaID, k.ProductID, k.VariationID)]; ok {
			out[k] = clone(e)
		}
	}
	return out, nil
}

func (r stockRepo) SaveEntry(ctx context.Context, entry *entity.StockAreaProduct) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if entry.ID == uuid.Nil {
		entry.ID = uuid.New()
	}
	r.s.data.Stock[stockKey(entry.AreaID, entry.ProductID, entry.VariationID)] = clone(entry)
	return nil
}

func (r stockRepo) CreateMovements(ctx context.Context, movements []entity.StockMovement) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	for _, m := range movements {
		if m.ID == uuid.Nil {
			m.ID = uuid.New()
		}
		r.s.data.Movements = append(r.s.data.Movements, m)
	}
	return nil
}

type orderRepo struct{ s *Store }

func (r orderRepo) Create(ctx context.Context, order *entity.Order) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if _, ok := r.s.data.Orders[order.ID]; ok {
		return errors.New("duplicate key value violates unique constraint orders_pkey")
	}
	r.s.data.Orders[order.ID] = clone(order)
	return nil
}

func (r orderRepo) Save(ctx context.Context, order *entity.Order) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if _, ok := r.s.data.Orders[order.ID]; !ok {
		return errors.New("order does not exist")
	}
	r.s.data.Orders[order.ID] = clone(order)
	return nil
}

func (r orderRepo) GetByID(ctx context.Context, businessID, id uuid.UUID) (*entity.Order, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	if o, ok := r.s.data.Orders[id]; ok && o.BusinessID == businessID {
		return clone(o), nil
	}
	return nil, nil
}

func (r orderRepo) GetForUpdate(ctx context.Context, businessID, id uuid.UUID) (*entity.Order, error) {
	if _, ok := repository.TxIDFromContext(ctx); !ok {
		return nil, errors.New("row lock requested outside a transaction")
	}
	return r.GetByID(ctx, businessID, id)
}

func (r orderRepo) LockCreation(ctx context.Context, businessID, areaID uuid.UUID, createdAt time.Time, managedByID *uuid.UUID) error {
	if _, ok := repository.TxIDFromContext(ctx); !ok {
		return errors.New("creation lock requested outside a transaction")
	}
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	r.s.creationLocks = append(r.s.creationLocks, repository.OrderDedupKey(businessID, areaID, createdAt, managedByID))
	return nil
}

func (r orderRepo) FindDuplicate(ctx context.Context, businessID, areaID uuid.UUID, createdAt time.Time, managedByID *uuid.UUID) (*entity.Order, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	for _, o := range r.s.data.Orders {
		if o.BusinessID != businessID || o.AreaID != areaID || !o.CreatedAt.Equal(createdAt) {
			continue
		}
		if managedByID == nil && o.ManagedByID != nil {
			continue
		}
		if managedByID != nil && (o.ManagedByID == nil || *o.ManagedByID != *managedByID) {
			continue
		}
		return clone(o), nil
	}
	return nil, nil
}

func (r orderRepo) GetBusinessID(ctx context.Context, id uuid.UUID) (uuid.UUID, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	if o, ok := r.s.data.Orders[id]; ok {
		return o.BusinessID, nil
	}
	return uuid.Nil, nil
}

func (r orderRepo) List(ctx context.Context, businessID uuid.UUID, params *repository.OrderFilterParams) ([]entity.Order, int64, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	var matched []entity.Order
	for _, o := range r.s.data.Orders {
		if o.BusinessID != businessID {
			continue
		}
		if params.Status != nil && o.Status != *params.Status {
			continue
		}
		if params.AreaID != nil && o.AreaID != *params.AreaID {
			continue
		}
		if params.EconomicCycleID != nil && o.EconomicCycleID != *params.EconomicCycleID {
			continue
		}
		if params.StartDate != nil && o.CreatedAt.Before(*params.StartDate) {
			continue
		}
		if params.EndDate != nil && o.CreatedAt.After(*params.EndDate) {
			continue
		}
		matched = append(matched, *clone(o))
	}
	asc := strings.EqualFold(params.SortOrder, "asc")
	sort.Slice(matched, func(i, j int) bool {
		if asc {
			return matched[i].CreatedAt.Before(matched[j].CreatedAt)
		}
		return matched[i].CreatedAt.After(matched[j].CreatedAt)
	})

	total := int64(len(matched))
	if p := params.Pagination; p != nil {
		start := p.Offset()
		if start > len(matched) {
			start = len(matched)
		}
		end := start + p.PerPage
		if end > len(matched) {
			end = len(matched)
		}
		matched = matched[start:end]
	}
	return matched, total, nil
}

type cashRepo struct{ s *Store }

func (r cashRepo) Create(ctx context.Context, ops ...entity.CashRegisterOperation) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	for i := range ops {
		op := ops[i]
		if op.ID == uuid.Nil {
			op.ID = uuid.New()
		}
		if op.Type == "" {
			op.Type = op.Operation.Type()
		}
		r.s.data.CashOps[op.ID] = clone(&op)
	}
	return nil
}

func (r cashRepo) GetByID(ctx context.Context, businessID, id uuid.UUID) (*entity.CashRegisterOperation, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	if op, ok := r.s.data.CashOps[id]; ok && op.BusinessID == businessID {
		return clone(op), nil
	}
	return nil, nil
}

func (r cashRepo) Delete(ctx context.Context, id uuid.UUID) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	delete(r.s.data.CashOps, id)
	return nil
}

func (r cashRepo) DeleteByOrder(ctx context.Context, orderID uuid.UUID) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	for id, op := range r.s.data.CashOps {
		if op.OrderID != nil && *op.OrderID == orderID {
			delete(r.s.data.CashOps, id)
		}
	}
	return nil
}

func (r cashRepo) List(ctx context.Context, businessID uuid.UUID, params *repository.CashOperationFilterParams) ([]entity.CashRegisterOperation, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	var out []entity.CashRegisterOperation
	for _, op := range r.s.data.CashOps {
		if op.BusinessID != businessID {
			continue
		}
		if params.AreaID != nil && op.AreaID != *params.AreaID {
			continue
		}
		if params.EconomicCycleID != nil && op.EconomicCycleID != *params.EconomicCycleID {
			continue
		}
		if params.OrderID != nil && (op.OrderID == nil || *op.OrderID != *params.OrderID) {
			continue
		}
		out = append(out, *clone(op))
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.Before(out[j].CreatedAt) })
	return out, nil
}

type couponRepo struct{ s *Store }

func (r couponRepo) GetByCodesForUpdate(ctx context.Context, businessID uuid.UUID, codes []string) ([]entity.Coupon, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	var out []entity.Coupon
	for _, c := range r.s.data.Coupons {
		if c.BusinessID != businessID {
			continue
		}
		for _, code := range codes {
			if strings.EqualFold(c.Code, code) {
				out = append(out, *clone(c))
				break
			}
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Code < out[j].Code })
	return out, nil
}

func (r couponRepo) GetByIDsForUpdate(ctx context.Context, businessID uuid.UUID, ids []uuid.UUID) ([]entity.Coupon, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	var out []entity.Coupon
	for _, id := range ids {
		if c, ok := r.s.data.Coupons[id]; ok && c.BusinessID == businessID {
			out = append(out, *clone(c))
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Code < out[j].Code })
	return out, nil
}

func (r couponRepo) UpdateUsage(ctx context.Context, id uuid.UUID, usageCount int) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	c, ok := r.s.data.Coupons[id]
	if !ok {
		return errors.New("coupon does not exist")
	}
	c.UsageCount = usageCount
	return nil
}

type ticketRepo struct{ s *Store }

func (r ticketRepo) Create(ctx context.Context, tickets ...entity.ProductionTicket) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	for i := range tickets {
		t := tickets[i]
		if t.ID == uuid.Nil {
			t.ID = uuid.New()
		}
		r.s.data.Tickets[t.ID] = clone(&t)
	}
	return nil
}

func (r ticketRepo) CloseByOrder(ctx context.Context, orderID uuid.UUID) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	for _, t := range r.s.data.Tickets {
		if t.OrderID == orderID {
			t.Status = enum.TicketStatusClosed
		}
	}
	return nil
}

func (r ticketRepo) Close(ctx context.Context, ids ...uuid.UUID) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	for _, id := range ids {
		if t, ok := r.s.data.Tickets[id]; ok {
			t.Status = enum.TicketStatusClosed
		}
	}
	return nil
}

func (r ticketRepo) Reassign(ctx context.Context, orderID uuid.UUID, ids ...uuid.UUID) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	for _, id := range ids {
		if t, ok := r.s.data.Tickets[id]; ok {
			t.OrderID = orderID
		}
	}
	return nil
}

type resourceRepo struct{ s *Store }

func (r resourceRepo) GetByIDsForUpdate(ctx context.Context, businessID uuid.UUID, ids []uuid.UUID) ([]entity.Resource, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	var out []entity.Resource
	for _, id := range ids {
		if res, ok := r.s.data.Resources[id]; ok && res.BusinessID == businessID {
			out = append(out, *clone(res))
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID.String() < out[j].ID.String() })
	return out, nil
}

func (r resourceRepo) SetAvailability(ctx context.Context, ids []uuid.UUID, available bool) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	for _, id := range ids {
		if res, ok := r.s.data.Resources[id]; ok {
			res.IsAvailable = available
		}
	}
	return nil
}

type dispatchRepo struct{ s *Store }

func (r dispatchRepo) HasAccepted(ctx context.Context, orderID uuid.UUID) (bool, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	for _, d := range r.s.data.Dispatches {
		if d.OrderID != nil && *d.OrderID == orderID && d.Status == enum.DispatchStatusAccepted {
			return true, nil
		}
	}
	return false, nil
}
