package service

import (
	"context"
	"sync"
	"testing"

	"github.com/google/uuid"
	"github.com/sangkips/posflow-api/internal/domain/entity"
	"github.com/sangkips/posflow-api/internal/domain/enum"
	"github.com/sangkips/posflow-api/pkg/apperror"
	"github.com/sangkips/posflow-api/pkg/money"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCancelOrder_RestoresStockOnce(t *testing.T) {
	f := newFixture(t)
	order := f.create(line(f.beer, "2"))
	require.Equal(t, "8", f.stock(f.warehouse, f.beer))

	cancelled, err := f.svc.CancelOrder(context.Background(), f.rc, order.ID)
	require.NoError(t, err)
	assert.Equal(t, enum.OrderStatusCancelled, cancelled.Status)
	assert.NotNil(t, cancelled.ClosedAt)
	assert.Equal(t, "10", f.stock(f.warehouse, f.beer))

	_, err = f.svc.CancelOrder(context.Background(), f.rc, order.ID)
	assert.True(t, apperror.IsKind(err, apperror.KindStateConflict))
	assert.Equal(t, "10", f.stock(f.warehouse, f.beer))
}

func TestCancelOrder_ReleasesResourcesAndClosesTickets(t *testing.T) {
	f := newFixture(t)
	table := &entity.Resource{ID: uuid.New(), BusinessID: f.business.ID, AreaID: f.hall.ID, Code: "T2", IsAvailable: true}
	f.store.Seed(table)
	order, _, err := f.svc.CreateOrder(context.Background(), f.rc, &CreateOrderInput{
		AreaID: f.hall.ID, Lines: []LineInput{line(f.burger, "1")}, ResourceIDs: []uuid.UUID{table.ID},
	})
	require.NoError(t, err)

	cancelled, err := f.svc.CancelOrder(context.Background(), f.rc, order.ID)
	require.NoError(t, err)

	assert.Empty(t, cancelled.Resources)
	assert.True(t, f.store.Resource(table.ID).IsAvailable)
	tickets := f.store.Tickets(order.ID)
	require.Len(t, tickets, 1)
	assert.Equal(t, enum.TicketStatusClosed, tickets[0].Status)
}

func TestCancelOrder_BlockedByAcceptedDispatch(t *testing.T) {
	f := newFixture(t)
	order := f.create(line(f.beer, "1"))
	f.store.Seed(&entity.Dispatch{ID: uuid.New(), BusinessID: f.business.ID, OrderID: &order.ID, Status: enum.DispatchStatusAccepted})

	_, err := f.svc.CancelOrder(context.Background(), f.rc, order.ID)

	assert.True(t, apperror.IsKind(err, apperror.KindStateConflict))
	assert.Equal(t, "9", f.stock(f.warehouse, f.beer))
	assert.Equal(t, enum.OrderStatusCompleted, f.store.Order(order.ID).Status)
}

func TestPayOrder_RejectsInsufficientPayment(t *testing.T) {
	f := newFixture(t)
	order := f.create(line(f.tv, "1"))

	_, err := f.svc.PayOrder(context.Background(), f.rc, order.ID, &PayOrderInput{
		Payments: []PaymentInput{{Amount: usd(100)}, {Amount: eur(18)}},
	})

	require.Error(t, err)
	assert.True(t, apperror.IsKind(err, apperror.KindInsufficientPayment))
	settlement, ok := apperror.GetAppError(err).Details.(Settlement)
	require.True(t, ok)
	assert.Equal(t, "119.80 USD", settlement.ReceivedInMain.String())
	assert.Equal(t, enum.OrderStatusCompleted, f.store.Order(order.ID).Status)
	assert.Empty(t, f.store.CashOperations(&order.ID))
}

func TestPayOrder_AcceptsExactAmountInOtherCurrency(t *testing.T) {
	f := newFixture(t)
	order := f.create(line(f.beer, "4"))

	// 10 USD owed, 9.09 EUR is 9.999 USD which rounds to 10.00
	paid, err := f.svc.PayOrder(context.Background(), f.rc, order.ID, &PayOrderInput{
		Payments: []PaymentInput{{Amount: eur(9.09), PaymentWay: enum.PaymentWayCard}},
	})
	require.NoError(t, err)

	assert.Equal(t, enum.OrderStatusBilled, paid.Status)
	assert.True(t, paid.AmountReturned.IsZero())
	assert.Empty(t, f.store.CashOperations(&order.ID), "card payments do not touch the drawer")
}

func TestPayOrder_AppliesDiscountCommissionTipAndShipping(t *testing.T) {
	f := newFixture(t)
	order := f.create(line(f.tv, "1"))
	discount, commission := dec("10"), dec("5")

	paid, err := f.svc.PayOrder(context.Background(), f.rc, order.ID, &PayOrderInput{
		Payments:          []PaymentInput{{Amount: usd(200), PaymentWay: enum.PaymentWayCash}},
		DiscountPercent:   &discount,
		CommissionPercent: &commission,
		Tip:               &money.Money{Amount: dec("3"), Currency: "USD"},
		Shipping:          &money.Money{Amount: dec("2"), Currency: "EUR"},
		AmountReturned:    &money.Money{Amount: dec("50"), Currency: "USD"},
	})
	require.NoError(t, err)

	// 120 - 10% = 108, + 5% = 113.40, + 3 tip; shipping stays in EUR
	assert.True(t, paid.TotalToPay.Equal(money.List{usd(116.4), eur(2)}), paid.TotalToPay)
	assert.Equal(t, "50.00 USD", paid.AmountReturned.String())
}

func TestPayOrder_RejectsChangeAboveRemain(t *testing.T) {
	f := newFixture(t)
	order := f.create(line(f.beer, "2"))

	_, err := f.svc.PayOrder(context.Background(), f.rc, order.ID, &PayOrderInput{
		Payments:       []PaymentInput{{Amount: usd(10)}},
		AmountReturned: &money.Money{Amount: dec("6"), Currency: "USD"},
	})

	assert.True(t, apperror.IsKind(err, apperror.KindValidation))
}

func TestPayOrder_GuardsStatusAndCycle(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	pay := &PayOrderInput{Payments: []PaymentInput{{Amount: usd(100)}}}

	billed := f.billed(line(f.beer, "1"))
	_, err := f.svc.PayOrder(ctx, f.rc, billed.ID, pay)
	assert.True(t, apperror.IsKind(err, apperror.KindStateConflict))

	open := f.create(line(f.beer, "1"))
	f.rollCycle()
	_, err = f.svc.PayOrder(ctx, f.rc, open.ID, pay)
	assert.True(t, apperror.IsKind(err, apperror.KindStateConflict))

	_, err = f.svc.PayOrder(ctx, f.rc, uuid.New(), pay)
	assert.True(t, apperror.IsKind(err, apperror.KindNotFound))
}

func TestPayOrder_ConcurrentAttemptsBillOnce(t *testing.T) {
	f := newFixture(t)
	order := f.create(line(f.beer, "2"))

	var wg sync.WaitGroup
	errs := make([]error, 2)
	for i := range errs {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_, errs[i] = f.svc.PayOrder(context.Background(), f.rc, order.ID, &PayOrderInput{
				Payments: []PaymentInput{{Amount: usd(5), PaymentWay: enum.PaymentWayCash}},
			})
		}(i)
	}
	wg.Wait()

	succeeded := 0
	for _, err := range errs {
		if err == nil {
			succeeded++
			continue
		}
		assert.True(t, apperror.IsKind(err, apperror.KindStateConflict))
	}
	assert.Equal(t, 1, succeeded)
	assert.Len(t, f.store.CashOperations(&order.ID), 1)
}

func TestBilledOrder_OnlyReopenOrRefund(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	order := f.billed(line(f.beer, "1"))

	_, err := f.svc.CancelOrder(ctx, f.rc, order.ID)
	assert.True(t, apperror.IsKind(err, apperror.KindStateConflict))

	_, err = f.svc.AddRemoveProducts(ctx, f.rc, order.ID, &AddRemoveProductsInput{Added: []LineInput{line(f.beer, "1")}})
	assert.True(t, apperror.IsKind(err, apperror.KindStateConflict))

	_, err = f.svc.MoveOrder(ctx, f.rc, order.ID, &MoveOrderInput{TargetAreaID: &f.terrace.ID})
	assert.True(t, apperror.IsKind(err, apperror.KindStateConflict))

	reopened, err := f.svc.ReopenOrder(ctx, f.rc, order.ID)
	require.NoError(t, err)
	assert.Equal(t, enum.OrderStatusCreated, reopened.Status)
}

func TestReopenOrder_DropsPaymentsAndCashEntries(t *testing.T) {
	f := newFixture(t)
	order := f.create(line(f.tv, "1"))
	discount := dec("10")
	_, err := f.svc.PayOrder(context.Background(), f.rc, order.ID, &PayOrderInput{
		Payments:        []PaymentInput{{Amount: usd(150), PaymentWay: enum.PaymentWayCash}},
		DiscountPercent: &discount,
		Tip:             &money.Money{Amount: dec("5"), Currency: "USD"},
	})
	require.NoError(t, err)
	require.Len(t, f.store.CashOperations(&order.ID), 2)

	reopened, err := f.svc.ReopenOrder(context.Background(), f.rc, order.ID)
	require.NoError(t, err)

	assert.Equal(t, enum.OrderStatusCreated, reopened.Status)
	assert.Empty(t, reopened.Payments)
	assert.Nil(t, reopened.PaidAt)
	assert.Nil(t, reopened.ClosedAt)
	assert.True(t, reopened.DiscountPercent.IsZero())
	assert.False(t, reopened.Tip.IsSet())
	assert.True(t, reopened.TotalToPay.Equal(money.Of(usd(120))))
	assert.Empty(t, f.store.CashOperations(&order.ID))
	assert.Equal(t, "4", f.stock(f.warehouse, f.tv), "reopening keeps the stock taken")

	_, err = f.svc.ReopenOrder(context.Background(), f.rc, order.ID)
	assert.True(t, apperror.IsKind(err, apperror.KindStateConflict))
}

func TestRefundOrder_WithdrawsEveryCurrencyAndRestoresStock(t *testing.T) {
	f := newFixture(t)
	order := f.create(line(f.tv, "1"))
	_, err := f.svc.PayOrder(context.Background(), f.rc, order.ID, &PayOrderInput{
		Payments: []PaymentInput{{Amount: usd(120), PaymentWay: enum.PaymentWayCash}},
		Shipping: &money.Money{Amount: dec("4"), Currency: "EUR"},
	})
	require.ErrorContains(t, err, "Received amount is lower")

	_, err = f.svc.PayOrder(context.Background(), f.rc, order.ID, &PayOrderInput{
		Payments: []PaymentInput{{Amount: usd(120), PaymentWay: enum.PaymentWayCash}, {Amount: eur(4), PaymentWay: enum.PaymentWayCash}},
		Shipping: &money.Money{Amount: dec("4"), Currency: "EUR"},
	})
	require.NoError(t, err)

	refunded, err := f.svc.RefundOrder(context.Background(), f.rc, order.ID, &RefundOrderInput{AreaID: f.terrace.ID})
	require.NoError(t, err)

	assert.Equal(t, enum.OrderStatusRefunded, refunded.Status)
	assert.Equal(t, "5", f.stock(f.warehouse, f.tv))

	var refunds money.List
	for _, op := range f.store.CashOperations(&order.ID) {
		if op.Operation == enum.CashOperationWithdrawSaleRefund {
			assert.Equal(t, f.terrace.ID, op.AreaID)
			assert.Equal(t, enum.CashTypeDebit, op.Type)
			refunds = append(refunds, op.Amount)
		}
	}
	assert.True(t, refunds.Equal(money.List{usd(120), eur(4)}), refunds)

	_, err = f.svc.RefundOrder(context.Background(), f.rc, order.ID, &RefundOrderInput{AreaID: f.hall.ID})
	assert.True(t, apperror.IsKind(err, apperror.KindStateConflict))
	_, err = f.svc.CancelOrder(context.Background(), f.rc, order.ID)
	assert.True(t, apperror.IsKind(err, apperror.KindStateConflict))
	_, err = f.svc.ReopenOrder(context.Background(), f.rc, order.ID)
	assert.True(t, apperror.IsKind(err, apperror.KindStateConflict))
}

func TestRefundOrder_FromClosedCycleRecordsAdjustment(t *testing.T) {
	f := newFixture(t)
	order := f.billed(line(f.beer, "3"))
	next := f.rollCycle()

	_, err := f.svc.RefundOrder(context.Background(), f.rc, order.ID, &RefundOrderInput{AreaID: f.hall.ID})
	require.NoError(t, err)

	assert.Equal(t, "10", f.stock(f.warehouse, f.beer))
	movements := f.store.Movements()
	last := movements[len(movements)-1]
	assert.Equal(t, enum.StockOperationAdjustmentPreviousCycle, last.Operation)
	assert.True(t, last.Quantity.Equal(decimal.NewFromInt(3)))
	assert.NotEmpty(t, last.Note)

	for _, op := range f.store.CashOperations(&order.ID) {
		if op.Operation == enum.CashOperationWithdrawSaleRefund {
			assert.Equal(t, next.ID, op.EconomicCycleID)
		}
	}
}

func TestRefundOrder_RequiresArea(t *testing.T) {
	f := newFixture(t)
	order := f.billed(line(f.beer, "1"))

	_, err := f.svc.RefundOrder(context.Background(), f.rc, order.ID, &RefundOrderInput{})

	assert.True(t, apperror.IsKind(err, apperror.KindValidation))
}

func seedCoupon(f *fixture, code string) *entity.Coupon {
	c := &entity.Coupon{ID: uuid.New(), BusinessID: f.business.ID, Code: code, DiscountType: enum.DiscountTypePercent, Amount: dec("10")}
	f.store.Seed(c)
	return c
}

func TestReopenOrder_CouponPolicies(t *testing.T) {
	for _, tc := range []struct {
		policy    CouponReopenPolicy
		wantUsage int
		wantLinks int
	}{
		{policy: CouponReopenKeep, wantUsage: 1, wantLinks: 1},
		{policy: CouponReopenRelease, wantUsage: 0, wantLinks: 0},
	} {
		t.Run(string(tc.policy), func(t *testing.T) {
			f := newFixture(t, withCouponPolicy(tc.policy))
			coupon := seedCoupon(f, "SUMMER")
			order := f.create(line(f.tv, "1"))

			paid, err := f.svc.PayOrder(context.Background(), f.rc, order.ID, &PayOrderInput{
				Payments: []PaymentInput{{Amount: usd(108), PaymentWay: enum.PaymentWayTransfer}},
				Coupons:  []string{"summer"},
			})
			require.NoError(t, err)
			assert.True(t, paid.TotalToPay.Equal(money.Of(usd(108))))
			assert.Equal(t, 1, f.store.Coupon(coupon.ID).UsageCount)

			reopened, err := f.svc.ReopenOrder(context.Background(), f.rc, order.ID)
			require.NoError(t, err)

			assert.Equal(t, tc.wantUsage, f.store.Coupon(coupon.ID).UsageCount)
			assert.Len(t, reopened.Coupons, tc.wantLinks)
		})
	}
}
