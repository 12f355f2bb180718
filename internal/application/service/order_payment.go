package service

import (
	"context"
	"strings"

	"github.com/google/uuid"
	"github.com/sangkips/posflow-api/internal/domain/entity"
	"github.com/sangkips/posflow-api/internal/domain/enum"
	"github.com/sangkips/posflow-api/internal/domain/event"
	"github.com/sangkips/posflow-api/pkg/apperror"
	"github.com/sangkips/posflow-api/pkg/money"
)

// Validate checks the payment input
func (in *PayOrderInput) Validate() error {
	if len(in.Payments) == 0 && !in.HouseCosted {
		return apperror.NewFieldError("payments", "at least one payment is required")
	}
	for _, p := range in.Payments {
		if !p.Amount.IsPositive() || p.Amount.Currency == "" {
			return apperror.NewFieldError("payments", "every payment needs a positive amount and a currency")
		}
	}
	for field, m := range map[string]*money.Money{"amount_returned": in.AmountReturned, "tip": in.Tip, "shipping": in.Shipping} {
		if m != nil && m.IsNegative() {
			return apperror.NewFieldError(field, "cannot be negative")
		}
	}
	if in.DiscountPercent != nil {
		if err := validatePercent("discount_percent", *in.DiscountPercent); err != nil {
			return err
		}
	}
	if in.CommissionPercent != nil {
		if err := validatePercent("commission_percent", *in.CommissionPercent); err != nil {
			return err
		}
	}
	return nil
}

// GatewayCallbackInput is a payment gateway notification about an order
type GatewayCallbackInput struct {
	OrderID       uuid.UUID
	TransactionNo string
	Status        string
	Amount        *money.Money
}

// Validate checks the callback input
func (in *GatewayCallbackInput) Validate() error {
	if in.OrderID == uuid.Nil {
		return apperror.NewFieldError("reference", "is required")
	}
	if strings.TrimSpace(in.TransactionNo) == "" {
		return apperror.NewFieldError("transaction_no", "is required")
	}
	if in.Amount != nil && !in.Amount.IsPositive() {
		return apperror.NewFieldError("amount", "must be greater than zero")
	}
	return nil
}

// bill settles the staged order: coupons, pricing, reconciliation, payments and cash
// register entries. The staged order ends BILLED.
func (s *OrderService) bill(ctx context.Context, rc RequestContext, st *stage, business *entity.Business, in *PayOrderInput) error {
	if err := in.Validate(); err != nil {
		return err
	}
	rates := business.Rates()
	for _, p := range in.Payments {
		if !rates.Has(p.Amount.Currency) {
			return apperror.NewFieldError("payments", "Currency "+p.Amount.Currency+" is not available")
		}
	}

	order, err := st.order(ctx, roleOrder)
	if err != nil {
		return err
	}
	codes := newCouponCodes(order, in.Coupons)
	if len(codes) > 0 {
		result, err := s.coupons.Apply(ctx, rc, codes, order.SelledProducts, rates)
		if err != nil {
			return err
		}
		if err := st.put(ctx, roleCoupon, result); err != nil {
			return err
		}
	}

	var settlement Settlement
	if err := st.mutate(ctx, roleOrder, func(o *entity.Order) error {
		if in.DiscountPercent != nil {
			o.DiscountPercent = *in.DiscountPercent
		}
		if in.CommissionPercent != nil {
			o.CommissionPercent = *in.CommissionPercent
		}
		o.HouseCosted = in.HouseCosted
		if in.Tip != nil {
			o.Tip = money.New(in.Tip.Amount, in.Tip.Currency)
		}
		if in.Shipping != nil {
			o.Shipping = money.New(in.Shipping.Amount, in.Shipping.Currency)
		}

		if len(codes) > 0 {
			var result CouponResult
			if err := st.get(ctx, roleCoupon, &result); err != nil {
				return err
			}
			o.CouponDiscount = o.CouponDiscount.Add(result.Discount...)
			for _, applied := range result.Applied {
				applied.OrderID = o.ID
				o.Coupons = append(o.Coupons, applied)
			}
		}

		if err := priceOrder(o, rates); err != nil {
			return err
		}

		received := make(money.List, 0, len(in.Payments))
		for _, p := range in.Payments {
			received = append(received, p.Amount)
		}
		var err error
		settlement, err = Reconcile(o.TotalToPay, received, rates)
		if err != nil {
			return err
		}
		if !settlement.Sufficient() {
			return apperror.NewInsufficientPaymentError(settlement)
		}

		returned := settlement.Remain
		if in.AmountReturned != nil {
			requested := money.New(in.AmountReturned.Amount, in.AmountReturned.Currency)
			inMain, err := rates.ToMain(requested)
			if err != nil {
				return apperror.NewFieldError("amount_returned", err.Error())
			}
			if inMain.Amount.GreaterThan(settlement.Remain.Amount) {
				return apperror.NewFieldError("amount_returned", "cannot exceed the change due of "+settlement.Remain.String())
			}
			returned = requested
		}
		o.AmountReturned = returned

		now := s.now()
		o.Payments = make([]entity.CurrencyPayment, 0, len(in.Payments))
		var ops []entity.CashRegisterOperation
		for _, p := range in.Payments {
			amount := money.New(p.Amount.Amount, p.Amount.Currency)
			o.Payments = append(o.Payments, entity.CurrencyPayment{
				ID:         uuid.New(),
				OrderID:    o.ID,
				BusinessID: o.BusinessID,
				Amount:     amount,
				PaymentWay: p.PaymentWay,
				CreatedAt:  now,
			})
			if p.PaymentWay == enum.PaymentWayCash {
				ops = append(ops, s.cashOperation(rc, o, o.AreaID, o.EconomicCycleID, enum.CashOperationDepositSale, amount))
			}
		}
		if returned.IsPositive() {
			ops = append(ops, s.cashOperation(rc, o, o.AreaID, o.EconomicCycleID, enum.CashOperationWithdrawSale, returned))
		}
		if len(ops) > 0 {
			if err := s.cash.Create(ctx, ops...); err != nil {
				return err
			}
		}

		o.Status = enum.OrderStatusBilled
		o.PaidAt = &now
		o.ClosedAt = &now
		return nil
	}); err != nil {
		return err
	}
	return st.record(ctx, "ORDER_BILLED", settlement.ReceivedInMain.String())
}

// newCouponCodes drops the codes already applied to the order
func newCouponCodes(order *entity.Order, codes []string) []string {
	applied := make(map[string]struct{}, len(order.Coupons))
	for _, c := range order.Coupons {
		applied[strings.ToUpper(c.Code)] = struct{}{}
	}
	var out []string
	for _, code := range NormalizeCouponCodes(codes) {
		if _, ok := applied[code]; !ok {
			out = append(out, code)
		}
	}
	return out
}

func (s *OrderService) cashOperation(rc RequestContext, order *entity.Order, areaID, cycleID uuid.UUID, op enum.CashOperation, amount money.Money) entity.CashRegisterOperation {
	orderID := order.ID
	return entity.CashRegisterOperation{
		ID:              uuid.New(),
		BusinessID:      order.BusinessID,
		AreaID:          areaID,
		EconomicCycleID: cycleID,
		OrderID:         &orderID,
		Operation:       op,
		Type:            op.Type(),
		Amount:          amount,
		PaymentWay:      enum.PaymentWayCash,
		MadeByID:        rc.UserID,
		CreatedAt:       s.now(),
	}
}

// PayOrder bills an open order of the active economic cycle
func (s *OrderService) PayOrder(ctx context.Context, rc RequestContext, orderID uuid.UUID, in *PayOrderInput) (*entity.Order, error) {
	if err := in.Validate(); err != nil {
		return nil, err
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
		switch order.Status {
		case enum.OrderStatusBilled:
			return nil, apperror.NewStateConflictError("Order is already billed")
		case enum.OrderStatusCancelled, enum.OrderStatusRefunded:
			return nil, apperror.NewStateConflictError("Order is %s and cannot be billed", order.Status)
		}
		if len(order.SelledProducts) == 0 {
			return nil, apperror.NewStateConflictError("Order has no products")
		}
		if len(order.Payments) > 0 {
			return nil, apperror.NewStateConflictError("Order has unresolved partial payments")
		}
		if _, err := s.requireCurrentCycle(ctx, rc, order); err != nil {
			return nil, err
		}

		from := order.Status
		if err := st.putOrder(ctx, roleOrder, order); err != nil {
			return nil, err
		}
		if err := s.bill(ctx, rc, st, business, in); err != nil {
			return nil, err
		}
		final, err := st.order(ctx, roleOrder)
		if err != nil {
			return nil, err
		}
		if err := s.orders.Save(ctx, final); err != nil {
			return nil, err
		}
		ac := newAfterCommit(final, event.OrderPaid, from)
		ac.notify = true
		return ac, nil
	})
	if err != nil {
		return nil, err
	}
	return ac.order, nil
}

// gatewayContext resolves the business owning the order of a gateway callback
func (s *OrderService) gatewayContext(ctx context.Context, orderID uuid.UUID) (RequestContext, error) {
	businessID, err := s.orders.GetBusinessID(ctx, orderID)
	if err != nil {
		return RequestContext{}, err
	}
	if businessID == uuid.Nil {
		return RequestContext{}, apperror.NewNotFoundError("Order")
	}
	return RequestContext{BusinessID: businessID}, nil
}

// GatewaySuccess bills an order waiting for the payment gateway. A repeated callback
// for a billed order is rejected so the order is never charged twice.
func (s *OrderService) GatewaySuccess(ctx context.Context, in *GatewayCallbackInput) (*entity.Order, error) {
	if err := in.Validate(); err != nil {
		return nil, err
	}
	rc, err := s.gatewayContext(ctx, in.OrderID)
	if err != nil {
		return nil, err
	}

	ac, err := s.run(ctx, rc, func(ctx context.Context, st *stage) (*afterCommit, error) {
		business, err := s.loadBusiness(ctx, rc)
		if err != nil {
			return nil, err
		}
		order, err := s.lockOrder(ctx, rc, in.OrderID)
		if err != nil {
			return nil, err
		}
		if order.Status == enum.OrderStatusBilled {
			return nil, apperror.NewStateConflictError("Order is already billed")
		}
		if order.Status != enum.OrderStatusPaymentPending {
			return nil, apperror.NewStateConflictError("Order is %s and is not waiting for a gateway payment", order.Status)
		}

		from := order.Status
		order.GatewayTransactionNo = strings.TrimSpace(in.TransactionNo)
		if err := st.putOrder(ctx, roleOrder, order); err != nil {
			return nil, err
		}

		pay := &PayOrderInput{AmountReturned: &money.Money{Currency: business.MainCurrency}}
		if in.Amount != nil {
			pay.Payments = []PaymentInput{{Amount: *in.Amount, PaymentWay: enum.PaymentWayTransfer}}
		} else {
			for _, m := range order.TotalToPay {
				pay.Payments = append(pay.Payments, PaymentInput{Amount: m, PaymentWay: enum.PaymentWayTransfer})
			}
		}
		if err := s.bill(ctx, rc, st, business, pay); err != nil {
			return nil, err
		}
		if err := st.record(ctx, "GATEWAY_PAYMENT_CONFIRMED", order.GatewayTransactionNo); err != nil {
			return nil, err
		}

		final, err := st.order(ctx, roleOrder)
		if err != nil {
			return nil, err
		}
		if err := s.orders.Save(ctx, final); err != nil {
			return nil, err
		}
		ac := newAfterCommit(final, event.OrderPaid, from)
		ac.notify = true
		return ac, nil
	})
	if err != nil {
		return nil, err
	}
	return ac.order, nil
}

// GatewayFail cancels an order whose gateway payment failed and gives its stock back
func (s *OrderService) GatewayFail(ctx context.Context, in *GatewayCallbackInput) (*entity.Order, error) {
	if in.OrderID == uuid.Nil {
		return nil, apperror.NewFieldError("reference", "is required")
	}
	rc, err := s.gatewayContext(ctx, in.OrderID)
	if err != nil {
		return nil, err
	}

	ac, err := s.run(ctx, rc, func(ctx context.Context, st *stage) (*afterCommit, error) {
		order, err := s.lockOrder(ctx, rc, in.OrderID)
		if err != nil {
			return nil, err
		}
		if order.Status != enum.OrderStatusPaymentPending {
			return nil, apperror.NewStateConflictError("Order is %s and is not waiting for a gateway payment", order.Status)
		}
		cycle, err := s.cycles.GetActive(ctx, rc.BusinessID)
		if err != nil {
			return nil, err
		}
		isAtSame := cycle != nil && cycle.ID == order.EconomicCycleID

		order.GatewayTransactionNo = strings.TrimSpace(in.TransactionNo)
		if err := st.putOrder(ctx, roleOrder, order); err != nil {
			return nil, err
		}
		ac := newAfterCommit(order, event.OrderCancelled, order.Status)
		ac.notify = true
		if err := s.cancel(ctx, rc, st, isAtSame, ac); err != nil {
			return nil, err
		}
		if err := st.record(ctx, "GATEWAY_PAYMENT_FAILED", order.GatewayTransactionNo); err != nil {
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
