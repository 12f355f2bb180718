package service

import (
	"context"

	"github.com/google/uuid"
	"github.com/sangkips/posflow-api/internal/domain/entity"
	"github.com/sangkips/posflow-api/internal/domain/enum"
	"github.com/sangkips/posflow-api/internal/domain/event"
	"github.com/sangkips/posflow-api/pkg/apperror"
	"github.com/sangkips/posflow-api/pkg/money"
	"github.com/shopspring/decimal"
)

// RefundOrderInput represents the refund input
type RefundOrderInput struct {
	// AreaID is the sales area whose cash drawer pays the refund
	AreaID uuid.UUID
}

// cancel restores the stock of the staged order, frees its resources and closes its tickets
func (s *OrderService) cancel(ctx context.Context, rc RequestContext, st *stage, isAtSameCycle bool, ac *afterCommit) error {
	order, err := st.order(ctx, roleOrder)
	if err != nil {
		return err
	}
	accepted, err := s.dispatches.HasAccepted(ctx, order.ID)
	if err != nil {
		return err
	}
	if accepted {
		return apperror.NewStateConflictError("Order has an accepted dispatch and cannot be cancelled")
	}

	if err := st.mutate(ctx, roleOrder, func(o *entity.Order) error {
		if err := s.restoreLines(ctx, rc, o, o.SelledProducts, isAtSameCycle, enum.StockOperationReturn, ac); err != nil {
			return err
		}
		if err := s.releaseResources(ctx, o); err != nil {
			return err
		}
		if err := s.tickets.CloseByOrder(ctx, o.ID); err != nil {
			return err
		}
		now := s.now()
		o.Status = enum.OrderStatusCancelled
		o.ClosedAt = &now
		return nil
	}); err != nil {
		return err
	}
	return st.record(ctx, "ORDER_CANCELLED", "")
}

// CancelOrder cancels an open order and gives its stock back. Cancelling twice is a conflict.
func (s *OrderService) CancelOrder(ctx context.Context, rc RequestContext, orderID uuid.UUID) (*entity.Order, error) {
	ac, err := s.run(ctx, rc, func(ctx context.Context, st *stage) (*afterCommit, error) {
		order, err := s.lockOrder(ctx, rc, orderID)
		if err != nil {
			return nil, err
		}
		switch order.Status {
		case enum.OrderStatusCancelled:
			return nil, apperror.NewStateConflictError("Order is already cancelled")
		case enum.OrderStatusRefunded:
			return nil, apperror.NewStateConflictError("A refunded order cannot be cancelled")
		case enum.OrderStatusBilled:
			return nil, apperror.NewStateConflictError("A billed order must be reopened or refunded")
		}
		if _, err := s.requireCurrentCycle(ctx, rc, order); err != nil {
			return nil, err
		}

		if err := st.putOrder(ctx, roleOrder, order); err != nil {
			return nil, err
		}
		ac := newAfterCommit(order, event.OrderCancelled, order.Status)
		ac.notify = true
		if err := s.cancel(ctx, rc, st, true, ac); err != nil {
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

// RefundOrder returns the money of a billed order from the cash drawer of the given area
// and restores its stock. REFUNDED is terminal.
func (s *OrderService) RefundOrder(ctx context.Context, rc RequestContext, orderID uuid.UUID, in *RefundOrderInput) (*entity.Order, error) {
	if in == nil || in.AreaID == uuid.Nil {
		return nil, apperror.NewFieldError("area_id", "is required")
	}
	ac, err := s.run(ctx, rc, func(ctx context.Context, st *stage) (*afterCommit, error) {
		order, err := s.lockOrder(ctx, rc, orderID)
		if err != nil {
			return nil, err
		}
		if order.Status != enum.OrderStatusBilled {
			return nil, apperror.NewStateConflictError("Only billed orders can be refunded, order is %s", order.Status)
		}
		area, err := s.loadSaleArea(ctx, rc, in.AreaID)
		if err != nil {
			return nil, err
		}
		cycle, err := s.activeCycle(ctx, rc)
		if err != nil {
			return nil, err
		}
		isAtSame := cycle.ID == order.EconomicCycleID

		if err := st.putOrder(ctx, roleOrder, order); err != nil {
			return nil, err
		}
		ac := newAfterCommit(order, event.OrderRefunded, order.Status)
		ac.notify = true

		if err := st.mutate(ctx, roleOrder, func(o *entity.Order) error {
			ops := make([]entity.CashRegisterOperation, 0, len(o.TotalToPay))
			for _, m := range o.TotalToPay {
				ops = append(ops, s.cashOperation(rc, o, area.ID, cycle.ID, enum.CashOperationWithdrawSaleRefund, m))
			}
			if len(ops) > 0 {
				if err := s.cash.Create(ctx, ops...); err != nil {
					return err
				}
			}
			if err := s.restoreLines(ctx, rc, o, o.SelledProducts, isAtSame, enum.StockOperationReturn, ac); err != nil {
				return err
			}
			if err := s.releaseResources(ctx, o); err != nil {
				return err
			}
			now := s.now()
			o.Status = enum.OrderStatusRefunded
			o.ClosedAt = &now
			return nil
		}); err != nil {
			return nil, err
		}
		if err := st.record(ctx, "ORDER_REFUNDED", area.Name); err != nil {
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

// ReopenOrder moves a billed order back to CREATED, dropping its payments and cash entries.
// Applied coupons follow the configured reopen policy.
func (s *OrderService) ReopenOrder(ctx context.Context, rc RequestContext, orderID uuid.UUID) (*entity.Order, error) {
	ac, err := s.run(ctx, rc, func(ctx context.Context, st *stage) (*afterCommit, error) {
		business, err := s.loadBusiness(ctx, rc)
		if err != nil {
			return nil, err
		}
		order, err := s.lockOrder(ctx, rc, orderID)
		if err != nil {
			return nil, err
		}
		if order.Status != enum.OrderStatusBilled {
			return nil, apperror.NewStateConflictError("Only billed orders can be reopened, order is %s", order.Status)
		}
		if _, err := s.requireCurrentCycle(ctx, rc, order); err != nil {
			return nil, err
		}

		if err := st.putOrder(ctx, roleOrder, order); err != nil {
			return nil, err
		}
		ac := newAfterCommit(order, event.OrderUpdated, order.Status)

		if err := st.mutate(ctx, roleOrder, func(o *entity.Order) error {
			if err := s.cash.DeleteByOrder(ctx, o.ID); err != nil {
				return err
			}
			o.Payments = nil
			o.PaidAt = nil
			o.ClosedAt = nil
			o.DiscountPercent = decimal.Zero
			o.CommissionPercent = decimal.Zero
			o.HouseCosted = false
			o.Shipping = money.Money{}
			o.Tip = money.Money{}
			o.AmountReturned = money.Money{}

			if s.opts.CouponReopenPolicy == CouponReopenRelease && len(o.Coupons) > 0 {
				ids := make([]uuid.UUID, len(o.Coupons))
				for i, c := range o.Coupons {
					ids[i] = c.CouponID
				}
				if err := s.coupons.Release(ctx, rc, ids); err != nil {
					return err
				}
				o.Coupons = nil
				o.CouponDiscount = nil
			}

			o.Status = enum.OrderStatusCreated
			return priceOrder(o, business.Rates())
		}); err != nil {
			return nil, err
		}
		if err := st.record(ctx, "ORDER_REOPENED", ""); err != nil {
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
