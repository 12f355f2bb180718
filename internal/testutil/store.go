// Package testutil provides in-memory repositories for service tests.
//
// Store serializes transactions to model the row locks of the relational store and
// restores a snapshot of its data when a transaction fails.
package testutil

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"

	"github.com/google/uuid"
	"github.com/sangkips/posflow-api/internal/domain/entity"
	"github.com/sangkips/posflow-api/internal/domain/repository"
)

type data struct {
	Businesses map[uuid.UUID]*entity.Business              `json:"businesses"`
	Areas      map[uuid.UUID]*entity.Area                  `json:"areas"`
	Cycles     map[uuid.UUID]*entity.EconomicCycle         `json:"cycles"`
	Products   map[uuid.UUID]*entity.Product               `json:"products"`
	Stock      map[string]*entity.StockAreaProduct         `json:"stock"`
	Movements  []entity.StockMovement                      `json:"movements"`
	Orders     map[uuid.UUID]*entity.Order                 `json:"orders"`
	CashOps    map[uuid.UUID]*entity.CashRegisterOperation `json:"cash_ops"`
	Coupons    map[uuid.UUID]*entity.Coupon                `json:"coupons"`
	Tickets    map[uuid.UUID]*entity.ProductionTicket      `json:"tickets"`
	Resources  map[uuid.UUID]*entity.Resource              `json:"resources"`
	Dispatches map[uuid.UUID]*entity.Dispatch              `json:"dispatches"`
}

func newData() *data {
	return &data{
		Businesses: map[uuid.UUID]*entity.Business{},
		Areas:      map[uuid.UUID]*entity.Area{},
		Cycles:     map[uuid.UUID]*entity.EconomicCycle{},
		Products:   map[uuid.UUID]*entity.Product{},
		Stock:      map[string]*entity.StockAreaProduct{},
		Orders:     map[uuid.UUID]*entity.Order{},
		CashOps:    map[uuid.UUID]*entity.CashRegisterOperation{},
		Coupons:    map[uuid.UUID]*entity.Coupon{},
		Tickets:    map[uuid.UUID]*entity.ProductionTicket{},
		Resources:  map[uuid.UUID]*entity.Resource{},
		Dispatches: map[uuid.UUID]*entity.Dispatch{},
	}
}

// Store is an in-memory implementation of every repository port
type Store struct {
	txMu sync.Mutex
	mu   sync.RWMutex
	data *data

	creationLocks []string
}

// NewStore creates an empty store
func NewStore() *Store {
	return &Store{data: newData()}
}

// clone deep copies v through its JSON representation
func clone[T any](v T) T {
	raw, err := json.Marshal(v)
	if err != nil {
		panic(fmt.Sprintf("testutil: clone: %v", err))
	}
	var out T
	if err := json.Unmarshal(raw, &out); err != nil {
		panic(fmt.Sprintf("testutil: clone: %v", err))
	}
	return out
}

func stockKey(areaID, productID, variationID uuid.UUID) string {
	return areaID.String() + "/" + productID.String() + "/" + variationID.String()
}

// WithinTransaction runs fn with exclusive access to the store. Nested calls join the
// outer transaction. Any error restores the data as it was before fn ran.
func (s *Store) WithinTransaction(ctx context.Context, fn func(ctx context.Context) error) error {
	if _, ok := repository.TxIDFromContext(ctx); ok {
		return fn(ctx)
	}

	s.txMu.Lock()
	defer s.txMu.Unlock()

	s.mu.RLock()
	snapshot := clone(s.data)
	s.mu.RUnlock()

	if err := fn(repository.WithTxID(ctx, uuid.New())); err != nil {
		s.mu.Lock()
		s.data = snapshot
		s.mu.Unlock()
		return err
	}
	return nil
}

// Seed stores fixtures. Unknown types panic.
func (s *Store) Seed(items ...interface{}) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, item := range items {
		switch v := item.(type) {
		case *entity.Business:
			s.data.Businesses[v.ID] = clone(v)
		case *entity.Area:
			s.data.Areas[v.ID] = clone(v)
		case *entity.EconomicCycle:
			s.data.Cycles[v.ID] = clone(v)
		case *entity.Product:
			s.data.Products[v.ID] = clone(v)
		case *entity.StockAreaProduct:
			if v.ID == uuid.Nil {
				v.ID = uuid.New()
			}
			s.data.Stock[stockKey(v.AreaID, v.ProductID, v.VariationID)] = clone(v)
		case *entity.Order:
			s.data.Orders[v.ID] = clone(v)
		case *entity.Coupon:
			s.data.Coupons[v.ID] = clone(v)
		case *entity.Resource:
			s.data.Resources[v.ID] = clone(v)
		case *entity.Dispatch:
			s.data.Dispatches[v.ID] = clone(v)
		case *entity.CashRegisterOperation:
			s.data.CashOps[v.ID] = clone(v)
		default:
			panic(fmt.Sprintf("testutil: cannot seed %T", item))
		}
	}
}

// Order returns a copy of a stored order or nil
func (s *Store) Order(id uuid.UUID) *entity.Order {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if o, ok := s.data.Orders[id]; ok {
		return clone(o)
	}
	return nil
}

// OrderCount returns the number of stored orders
func (s *Store) OrderCount() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.data.Orders)
}

// StockEntry returns a copy of a ledger row or nil
func (s *Store) StockEntry(areaID, productID, variationID uuid.UUID) *entity.StockAreaProduct {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if e, ok := s.data.Stock[stockKey(areaID, productID, variationID)]; ok {
		return clone(e)
	}
	return nil
}

// Movements returns the stock movements in insertion order
func (s *Store) Movements() []entity.StockMovement {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return clone(s.data.Movements)
}

// CashOperations returns the cash operations of an order, or every operation when orderID is nil
func (s *Store) CashOperations(orderID *uuid.UUID) []entity.CashRegisterOperation {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []entity.CashRegisterOperation
	for _, op := range s.data.CashOps {
		if orderID == nil || (op.OrderID != nil && *op.OrderID == *orderID) {
			out = append(out, *clone(op))
		}
	}
	return out
}

// Coupon returns a copy of a stored coupon or nil
func (s *Store) Coupon(id uuid.UUID) *entity.Coupon {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if c, ok := s.data.Coupons[id]; ok {
		return clone(c)
	}
	return nil
}

// Resource returns a copy of a stored resource or nil
func (s *Store) Resource(id uuid.UUID) *entity.Resource {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if r, ok := s.data.Resources[id]; ok {
		return clone(r)
	}
	return nil
}

// Tickets returns the production tickets of an order
func (s *Store) Tickets(orderID uuid.UUID) []entity.ProductionTicket {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []entity.ProductionTicket
	for _, t := range s.data.Tickets {
		if t.OrderID == orderID {
			out = append(out, *clone(t))
		}
	}
	return out
}

// Ticket returns a copy of a stored production ticket or nil
func (s *Store) Ticket(id uuid.UUID) *entity.ProductionTicket {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if t, ok := s.data.Tickets[id]; ok {
		return clone(t)
	}
	return nil
}

// Cycle returns a copy of a stored economic cycle or nil
func (s *Store) Cycle(id uuid.UUID) *entity.EconomicCycle {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if c, ok := s.data.Cycles[id]; ok {
		return clone(c)
	}
	return nil
}

// CreationLocks returns the order deduplication keys locked so far
func (s *Store) CreationLocks() []string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return append([]string(nil), s.creationLocks...)
}
