package service

import (
	"context"

	"github.com/google/uuid"
	"github.com/sangkips/posflow-api/internal/domain/entity"
	"github.com/sangkips/posflow-api/internal/domain/enum"
	"github.com/sangkips/posflow-api/internal/domain/event"
	"github.com/sangkips/posflow-api/pkg/apperror"
	"github.com/shopspring/decimal"
)

// MoveOrderInput moves an order to another sales area and/or other resources
type MoveOrderInput struct {
	TargetAreaID *uuid.UUID
	// ResourceIDs replaces the reserved resources when not nil
	ResourceIDs []uuid.UUID
}

// SplitLineInput selects a quantity of a line for the new order. A zero quantity, or one at
// least as large as the line, moves the whole line.
type SplitLineInput struct {
	SelledProductID uuid.UUID
	Quantity        decimal.Decimal
}

// SplitOrderInput represents the lines split into a new order
type SplitOrderInput struct {
	Lines []SplitLineInput
	Name  string
}

// MoveOrder relocates an open order. Changing the sales area moves the consumed stock from
// the source stock area to the stock area of the target.
func (s *OrderService) MoveOrder(ctx context.Context, rc RequestContext, orderID uuid.UUID, in *MoveOrderInput) (*entity.Order, error) {
	if in == nil || (in.TargetAreaID == nil && in.ResourceIDs == nil) {
		return nil, apperror.NewValidationError("Nothing to move: a target area or resources are required")
	}
	ac, err := s.run(ctx, rc, func(ctx context.Context, st *stage) (*afterCommit, error) {
		business, err := s.loadBusiness(ctx, rc)
		if err != nil {
			return nil, err
		}
		order, err := s.lockOrder(ctx, rc, orderID)
		if err != nil {
			return nil, err
		}
		if err := requireMutable(order); err != nil {
			return nil, err
		}
		if _, err := s.requireCurrentCycle(ctx, rc, order); err != nil {
			return nil, err
		}

		var target *entity.Area
		if in.TargetAreaID != nil && *in.TargetAreaID != order.AreaID {
			target, err = s.loadSaleArea(ctx, rc, *in.TargetAreaID)
			if err != nil {
				return nil, err
			}
		}
		if target == nil && in.ResourceIDs == nil {
			return nil, apperror.NewValidationError("Order is already in the target area")
		}

		if err := st.putOrder(ctx, roleOrder, order); err != nil {
			return nil, err
		}
		ac := newAfterCommit(order, event.OrderUpdated, order.Status)

		if err := st.mutate(ctx, roleOrder, func(o *entity.Order) error {
			if target != nil {
				if err := s.restoreLines(ctx, rc, o, o.SelledProducts, true, enum.StockOperationMoveOut, ac); err != nil {
					return err
				}
				if err := s.releaseResources(ctx, o); err != nil {
					return err
				}
				stockArea := target.StockSource()
				for i := range o.SelledProducts {
					o.SelledProducts[i].StockAreaID = &stockArea
				}
				o.AreaID = target.ID
				if err := s.substractLines(ctx, rc, business, o, o.SelledProducts, enum.StockOperationMoveIn, ac); err != nil {
					return err
				}
			}
			if in.ResourceIDs != nil {
				if err := s.releaseResources(ctx, o); err != nil {
					return err
				}
				if err := s.reserveResources(ctx, rc, o, in.ResourceIDs); err != nil {
					return err
				}
			}
			return nil
		}); err != nil {
			return nil, err
		}
		if err := st.record(ctx, "ORDER_MOVED", ""); err != nil {
			return nil, err
		}

		final, err := st.order(ctx, roleOrder)
		if err != nil {
			return nil, err
		}
		if err := s.orders.Save(ctx, final); err != nil {
			return nil, err
		}
		ac.order = final
		return ac, nil
	})
	if err != nil {
		return nil, err
	}
	return ac.order, nil
}

// SplitOrder moves the selected lines into a new order of the same area and cycle.
// The stock stays where it was taken from.
func (s *OrderService) SplitOrder(ctx context.Context, rc RequestContext, orderID uuid.UUID, in *SplitOrderInput) (*entity.Order, *entity.Order, error) {
	if in == nil || len(in.Lines) == 0 {
		return nil, nil, apperror.NewFieldError("products", "at least one line is required")
	}
	for _, l := range in.Lines {
		if l.SelledProductID == uuid.Nil || l.Quantity.IsNegative() {
			return nil, nil, apperror.NewFieldError("products", "every line needs an id and a non-negative quantity")
		}
	}

	ac, err := s.run(ctx, rc, func(ctx context.Context, st *stage) (*afterCommit, error) {
		business, err := s.loadBusiness(ctx, rc)
		if err != nil {
			return nil, err
		}
		order, err := s.lockOrder(ctx, rc, orderID)
		if err != nil {
			return nil, err
		}
		if err := requireMutable(order); err != nil {
			return nil, err
		}
		if _, err := s.requireCurrentCycle(ctx, rc, order); err != nil {
			return nil, err
		}

		name := in.Name
		if name == "" {
			name = order.Name
		}
		split := &entity.Order{
			ID:              uuid.New(),
			BusinessID:      order.BusinessID,
			AreaID:          order.AreaID,
			EconomicCycleID: order.EconomicCycleID,
			Name:            name,
			Status:          enum.OrderStatusCreated,
			Origin:          order.Origin,
			ManagedByID:     order.ManagedByID,
			CreatedByID:     rc.UserID,
			CreatedAt:       s.now(),
		}
		if err := st.putOrder(ctx, roleOrder, order); err != nil {
			return nil, err
		}
		if err := st.putOrder(ctx, roleSecondaryOrder, split); err != nil {
			return nil, err
		}

		var moved, kept []entity.SelledProduct
		if err := st.mutate(ctx, roleOrder, func(o *entity.Order) error {
			for _, sel := range in.Lines {
				line := o.Line(sel.SelledProductID)
				if line == nil {
					return apperror.NewNotFoundError("Order line " + sel.SelledProductID.String())
				}
				if sel.Quantity.IsZero() || sel.Quantity.GreaterThanOrEqual(line.Quantity) {
					whole := *line
					whole.OrderID = split.ID
					moved = append(moved, whole)
					o.SelledProducts = withoutLine(o.SelledProducts, line.ID)
					continue
				}
				if len(line.Addons) > 0 {
					return apperror.NewFieldError("products", "a line with addons can only be split entirely")
				}
				part := *line
				part.ID = uuid.New()
				part.OrderID = split.ID
				part.Quantity = sel.Quantity
				moved = append(moved, part)
				line.Quantity = line.Quantity.Sub(sel.Quantity)
			}
			if len(o.SelledProducts) == 0 {
				return apperror.NewValidationError("The original order must keep at least one product")
			}
			kept = append([]entity.SelledProduct(nil), o.SelledProducts...)
			return priceOrder(o, business.Rates())
		}); err != nil {
			return nil, err
		}

		var shared, opened []uuid.UUID
		if err := st.mutate(ctx, roleSecondaryOrder, func(o *entity.Order) error {
			o.SelledProducts = moved
			var err error
			shared, opened, err = s.transferTickets(ctx, rc, o, kept)
			if err != nil {
				return err
			}
			o.Status = initialStatus(o)
			return priceOrder(o, business.Rates())
		}); err != nil {
			return nil, err
		}
		if err := st.record(ctx, "ORDER_SPLIT", split.ID.String()); err != nil {
			return nil, err
		}

		original, err := st.order(ctx, roleOrder)
		if err != nil {
			return nil, err
		}
		created, err := st.order(ctx, roleSecondaryOrder)
		if err != nil {
			return nil, err
		}
		if err := s.orders.Save(ctx, original); err != nil {
			return nil, err
		}
		if err := s.orders.Create(ctx, created); err != nil {
			return nil, err
		}
		ac := newAfterCommit(original, event.OrderUpdated, order.Status)
		ac.ticketIDs = shared
		ac.others = []broadcast{{order: created, event: event.OrderCreated, ticketIDs: opened}}
		return ac, nil
	})
	if err != nil {
		return nil, nil, err
	}
	return ac.order, ac.others[0].order, nil
}

// JoinOrder moves every line and resource of other into base and cancels other without
// touching the stock
func (s *OrderService) JoinOrder(ctx context.Context, rc RequestContext, baseID, otherID uuid.UUID) (*entity.Order, error) {
	if baseID == otherID {
		return nil, apperror.NewValidationError("An order cannot be joined with itself")
	}
	ac, err := s.run(ctx, rc, func(ctx context.Context, st *stage) (*afterCommit, error) {
		business, err := s.loadBusiness(ctx, rc)
		if err != nil {
			return nil, err
		}

		first, second := baseID, otherID
		if second.String() < first.String() {
			first, second = second, first
		}
		locked := make(map[uuid.UUID]*entity.Order, 2)
		for _, id := range []uuid.UUID{first, second} {
			order, err := s.lockOrder(ctx, rc, id)
			if err != nil {
				return nil, err
			}
			if err := requireMutable(order); err != nil {
				return nil, err
			}
			locked[id] = order
		}
		base, other := locked[baseID], locked[otherID]
		if base.AreaID != other.AreaID {
			return nil, apperror.NewStateConflictError("Orders belong to different areas")
		}
		if base.EconomicCycleID != other.EconomicCycleID {
			return nil, apperror.NewStateConflictError("Orders belong to different economic cycles")
		}
		if _, err := s.requireCurrentCycle(ctx, rc, base); err != nil {
			return nil, err
		}

		if err := st.putOrder(ctx, roleOrder, base); err != nil {
			return nil, err
		}
		if err := st.putOrder(ctx, roleSecondaryOrder, other); err != nil {
			return nil, err
		}
		baseFrom := base.Status

		var (
			lines     []entity.SelledProduct
			resources []entity.Resource
		)
		if err := st.mutate(ctx, roleSecondaryOrder, func(o *entity.Order) error {
			lines, resources = o.SelledProducts, o.Resources
			now := s.now()
			joinedInto := baseID
			o.SelledProducts = nil
			o.Resources = nil
			o.Status = enum.OrderStatusCancelled
			o.JoinedIntoID = &joinedInto
			o.ClosedAt = &now
			return priceOrder(o, business.Rates())
		}); err != nil {
			return nil, err
		}

		if err := s.tickets.Reassign(ctx, baseID, ticketsOf(lines)...); err != nil {
			return nil, err
		}

		if err := st.mutate(ctx, roleOrder, func(o *entity.Order) error {
			production := false
			for _, line := range lines {
				line.OrderID = o.ID
				if line.Type.RequiresProduction() {
					production = true
				}
				o.SelledProducts = append(o.SelledProducts, line)
			}
			held := make(map[uuid.UUID]struct{}, len(o.Resources))
			for _, r := range o.Resources {
				held[r.ID] = struct{}{}
			}
			for _, r := range resources {
				if _, ok := held[r.ID]; !ok {
					o.Resources = append(o.Resources, r)
				}
			}
			switch {
			case production && (o.Status == enum.OrderStatusCreated || o.Status == enum.OrderStatusCompleted):
				o.Status = enum.OrderStatusInProcess
			case o.Status == enum.OrderStatusCreated && len(o.SelledProducts) > 0:
				o.Status = enum.OrderStatusCompleted
			}
			return priceOrder(o, business.Rates())
		}); err != nil {
			return nil, err
		}
		if err := st.record(ctx, "ORDER_JOINED", otherID.String()); err != nil {
			return nil, err
		}

		joined, err := st.order(ctx, roleSecondaryOrder)
		if err != nil {
			return nil, err
		}
		final, err := st.order(ctx, roleOrder)
		if err != nil {
			return nil, err
		}
		if err := s.orders.Save(ctx, joined); err != nil {
			return nil, err
		}
		if err := s.orders.Save(ctx, final); err != nil {
			return nil, err
		}
		ac := newAfterCommit(final, event.OrderUpdated, baseFrom)
		ac.others = []broadcast{{order: joined, event: event.OrderCancelled}}
		return ac, nil
	})
	if err != nil {
		return nil, err
	}
	return ac.order, nil
}
