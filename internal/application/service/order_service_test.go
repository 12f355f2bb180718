package service

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/sangkips/posflow-api/internal/domain/entity"
	"github.com/sangkips/posflow-api/internal/domain/enum"
	"github.com/sangkips/posflow-api/internal/domain/event"
	"github.com/sangkips/posflow-api/internal/domain/repository"
	"github.com/sangkips/posflow-api/internal/infrastructure/cache"
	"github.com/sangkips/posflow-api/pkg/apperror"
	"github.com/sangkips/posflow-api/pkg/money"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCreateOrder_SubstractsStockAndPrices(t *testing.T) {
	f := newFixture(t)

	order := f.create(line(f.beer, "2"))

	assert.Equal(t, enum.OrderStatusCompleted, order.Status)
	assert.Equal(t, f.cycle.ID, order.EconomicCycleID)
	require.Len(t, order.SelledProducts, 1)
	assert.Equal(t, f.warehouse.ID, *order.SelledProducts[0].StockAreaID)
	assert.True(t, order.Prices.Equal(money.Of(usd(5))))
	assert.True(t, order.TotalToPay.Equal(money.Of(usd(5))))
	assert.Equal(t, "2.00 USD", order.TotalCost.String())
	assert.Equal(t, "8", f.stock(f.warehouse, f.beer))

	stored := f.store.Order(order.ID)
	require.NotNil(t, stored)
	assert.Equal(t, enum.OrderStatusCompleted, stored.Status)

	assert.Equal(t, []string{event.JobRecordLog, event.JobSocketBroadcast, event.JobCheckProductAvailability}, f.dispatcher.Codes())
	broadcasts := f.dispatcher.Broadcasts()
	require.Len(t, broadcasts, 1)
	assert.Equal(t, event.OrderCreated, broadcasts[0].Event)
	assert.Equal(t, 0, f.staging.Len())
}

func TestCreateOrder_ProductionItemOpensTicket(t *testing.T) {
	f := newFixture(t)

	order := f.create(line(f.burger, "1"), line(f.beer, "1"))

	assert.Equal(t, enum.OrderStatusInProcess, order.Status)
	tickets := f.store.Tickets(order.ID)
	require.Len(t, tickets, 1)
	assert.Equal(t, f.kitchen.ID, tickets[0].ProductionAreaID)

	var burgerLine *entity.SelledProduct
	for i := range order.SelledProducts {
		if order.SelledProducts[i].ProductID == f.burger.ID {
			burgerLine = &order.SelledProducts[i]
		}
	}
	require.NotNil(t, burgerLine)
	require.NotNil(t, burgerLine.ProductionTicketID)
	assert.Equal(t, tickets[0].ID, *burgerLine.ProductionTicketID)
	assert.Contains(t, f.dispatcher.Codes(), event.JobProductionTicketFanout)
}

func TestCreateOrder_DuplicateSubmissionReturnsSameOrder(t *testing.T) {
	f := newFixture(t)
	createdAt := time.Date(2024, 5, 1, 9, 30, 0, 123456789, time.UTC)
	in := &CreateOrderInput{AreaID: f.hall.ID, CreatedAt: &createdAt, Lines: []LineInput{line(f.beer, "2")}}

	first, created, err := f.svc.CreateOrder(context.Background(), f.rc, in)
	require.NoError(t, err)
	assert.True(t, created)

	second, created, err := f.svc.CreateOrder(context.Background(), f.rc, in)
	require.NoError(t, err)
	assert.False(t, created)

	assert.Equal(t, first.ID, second.ID)
	assert.Equal(t, 1, f.store.OrderCount())
	assert.Equal(t, "8", f.stock(f.warehouse, f.beer))
}

func TestCreateOrder_ConcurrentDuplicatesCreateOneOrder(t *testing.T) {
	f := newFixture(t)
	createdAt := time.Date(2024, 5, 1, 9, 30, 0, 0, time.UTC)
	in := &CreateOrderInput{AreaID: f.hall.ID, CreatedAt: &createdAt, Lines: []LineInput{line(f.beer, "2")}}

	const submissions = 4
	ids := make([]uuid.UUID, submissions)
	created := make([]bool, submissions)
	errs := make([]error, submissions)
	var wg sync.WaitGroup
	for i := 0; i < submissions; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			order, isNew, err := f.svc.CreateOrder(context.Background(), f.rc, in)
			errs[i], created[i] = err, isNew
			if order != nil {
				ids[i] = order.ID
			}
		}(i)
	}
	wg.Wait()

	newOrders := 0
	for i := 0; i < submissions; i++ {
		require.NoError(t, errs[i])
		assert.Equal(t, ids[0], ids[i])
		if created[i] {
			newOrders++
		}
	}
	assert.Equal(t, 1, newOrders)
	assert.Equal(t, 1, f.store.OrderCount())
	assert.Equal(t, "8", f.stock(f.warehouse, f.beer))

	key := repository.OrderDedupKey(f.business.ID, f.hall.ID, createdAt, nil)
	locks := f.store.CreationLocks()
	require.Len(t, locks, submissions)
	for _, l := range locks {
		assert.Equal(t, key, l)
	}
}

func TestCreateOrder_StrictStockFailsWholeBatch(t *testing.T) {
	f := newFixture(t)

	_, _, err := f.svc.CreateOrder(context.Background(), f.rc, &CreateOrderInput{
		AreaID: f.hall.ID,
		Lines:  []LineInput{line(f.beer, "3"), line(f.tv, "6")},
	})

	require.Error(t, err)
	assert.True(t, apperror.IsKind(err, apperror.KindInsufficientStock))
	shortages, ok := apperror.GetAppError(err).Details.([]StockShortage)
	require.True(t, ok)
	require.Len(t, shortages, 1)
	assert.Equal(t, f.tv.ID, shortages[0].ProductID)

	assert.Equal(t, "10", f.stock(f.warehouse, f.beer))
	assert.Equal(t, "5", f.stock(f.warehouse, f.tv))
	assert.Equal(t, 0, f.store.OrderCount())
	assert.Empty(t, f.store.Movements())
	assert.Empty(t, f.dispatcher.Codes())
}

func TestCreateOrder_NegativeStockWhenAllowed(t *testing.T) {
	f := newFixture(t, withNegativeStock())

	f.create(line(f.tv, "6"))

	assert.Equal(t, "-1", f.stock(f.warehouse, f.tv))
}

func TestCreateOrder_WithPaymentBillsInSameTransaction(t *testing.T) {
	f := newFixture(t)

	order, created, err := f.svc.CreateOrder(context.Background(), f.rc, &CreateOrderInput{
		AreaID: f.hall.ID,
		Lines:  []LineInput{line(f.tv, "1")},
		Payment: &PayOrderInput{Payments: []PaymentInput{
			{Amount: usd(100), PaymentWay: enum.PaymentWayCash},
			{Amount: eur(50), PaymentWay: enum.PaymentWayCash},
		}},
	})
	require.NoError(t, err)
	assert.True(t, created)

	assert.Equal(t, enum.OrderStatusBilled, order.Status)
	assert.NotNil(t, order.PaidAt)
	assert.Equal(t, "35.00 USD", order.AmountReturned.String())
	assert.Len(t, order.Payments, 2)

	ops := f.store.CashOperations(&order.ID)
	require.Len(t, ops, 3)
	var deposits, withdrawals int
	for _, op := range ops {
		switch op.Operation {
		case enum.CashOperationDepositSale:
			deposits++
			assert.Equal(t, enum.CashTypeCredit, op.Type)
		case enum.CashOperationWithdrawSale:
			withdrawals++
			assert.Equal(t, enum.CashTypeDebit, op.Type)
			assert.Equal(t, "35.00 USD", op.Amount.String())
		}
	}
	assert.Equal(t, 2, deposits)
	assert.Equal(t, 1, withdrawals)
}

func TestCreateOrder_RequiresActiveCycle(t *testing.T) {
	f := newFixture(t)
	closed := *f.cycle
	closed.IsActive = false
	f.store.Seed(&closed)

	_, _, err := f.svc.CreateOrder(context.Background(), f.rc, &CreateOrderInput{AreaID: f.hall.ID, Lines: []LineInput{line(f.beer, "1")}})

	assert.True(t, apperror.IsKind(err, apperror.KindStateConflict))
	assert.Equal(t, "10", f.stock(f.warehouse, f.beer))
}

func TestCreateOrder_Validation(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	_, _, err := f.svc.CreateOrder(ctx, f.rc, &CreateOrderInput{Lines: []LineInput{line(f.beer, "1")}})
	assert.True(t, apperror.IsKind(err, apperror.KindValidation))

	_, _, err = f.svc.CreateOrder(ctx, f.rc, &CreateOrderInput{AreaID: f.hall.ID, Lines: []LineInput{line(f.beer, "0")}})
	assert.True(t, apperror.IsKind(err, apperror.KindValidation))

	_, _, err = f.svc.CreateOrder(ctx, f.rc, &CreateOrderInput{AreaID: f.hall.ID, Lines: []LineInput{line(f.shirt, "1")}})
	assert.True(t, apperror.IsKind(err, apperror.KindValidation), "variation is required")

	_, _, err = f.svc.CreateOrder(ctx, f.rc, &CreateOrderInput{AreaID: f.warehouse.ID, Lines: []LineInput{line(f.beer, "1")}})
	assert.True(t, apperror.IsKind(err, apperror.KindValidation), "orders are placed in sales areas")

	_, _, err = f.svc.CreateOrder(ctx, RequestContext{}, &CreateOrderInput{AreaID: f.hall.ID, Lines: []LineInput{line(f.beer, "1")}})
	assert.True(t, apperror.IsKind(err, apperror.KindUnauthorized))

	_, _, err = f.svc.CreateOrder(ctx, f.rc, &CreateOrderInput{AreaID: f.hall.ID, Lines: []LineInput{line(f.tv, "1")}, Origin: enum.OrderOriginOnline, PaymentGateway: true,
		Payment: &PayOrderInput{Payments: []PaymentInput{{Amount: usd(120)}}}})
	assert.True(t, apperror.IsKind(err, apperror.KindValidation))
}

func TestCreateOrder_VariationAndAddons(t *testing.T) {
	f := newFixture(t)
	large := f.shirt.Variations[1].ID

	order := f.create(
		LineInput{ProductID: f.shirt.ID, VariationID: &large, Quantity: dec("2")},
		LineInput{ProductID: f.burger.ID, Quantity: dec("1"), Addons: []AddonInput{{ProductID: f.cheese.ID, Quantity: dec("2")}}},
	)

	// 2 x 12 (L) + 8 + 2 x 1 cheese
	assert.True(t, order.TotalToPay.Equal(money.Of(usd(34))))
	entry := f.store.StockEntry(f.warehouse.ID, f.shirt.ID, large)
	require.NotNil(t, entry)
	assert.Equal(t, "1", entry.Quantity.String())
	assert.Equal(t, "18", f.stock(f.warehouse, f.cheese))
}

func TestCreateOrder_ReservesResources(t *testing.T) {
	f := newFixture(t)
	table := &entity.Resource{ID: uuid.New(), BusinessID: f.business.ID, AreaID: f.hall.ID, Code: "T1", IsAvailable: true}
	f.store.Seed(table)

	order, _, err := f.svc.CreateOrder(context.Background(), f.rc, &CreateOrderInput{
		AreaID: f.hall.ID, Lines: []LineInput{line(f.beer, "1")}, ResourceIDs: []uuid.UUID{table.ID},
	})
	require.NoError(t, err)
	require.Len(t, order.Resources, 1)
	assert.False(t, f.store.Resource(table.ID).IsAvailable)

	_, _, err = f.svc.CreateOrder(context.Background(), f.rc, &CreateOrderInput{
		AreaID: f.hall.ID, Lines: []LineInput{line(f.beer, "1")}, ResourceIDs: []uuid.UUID{table.ID},
	})
	assert.True(t, apperror.IsKind(err, apperror.KindStateConflict))
	assert.Equal(t, "9", f.stock(f.warehouse, f.beer))
}

func TestCreateOrder_DispatchFailureKeepsCommit(t *testing.T) {
	f := newFixture(t)
	f.dispatcher.Err = errors.New("queue unavailable")

	order := f.create(line(f.beer, "1"))

	assert.NotNil(t, f.store.Order(order.ID))
	assert.Equal(t, "9", f.stock(f.warehouse, f.beer))
}

func TestCreateOrder_StalledQueueDoesNotHoldTheResponse(t *testing.T) {
	f := newFixture(t, withDispatchTimeout(20*time.Millisecond))
	f.dispatcher.Stall = true

	started := time.Now()
	order := f.create(line(f.beer, "1"))

	assert.Less(t, time.Since(started), time.Second)
	assert.NotNil(t, f.store.Order(order.ID))
	assert.Empty(t, f.dispatcher.Jobs())
	failures := f.dispatcher.Failures()
	require.NotEmpty(t, failures)
	for _, err := range failures {
		assert.ErrorIs(t, err, context.DeadlineExceeded)
	}
}

func TestDispatch_OutlivesCancelledRequest(t *testing.T) {
	f := newFixture(t)
	order := f.create(line(f.beer, "1"))
	f.dispatcher.Reset()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	f.svc.dispatch(ctx, newAfterCommit(order, event.OrderUpdated, order.Status))

	assert.Empty(t, f.dispatcher.Failures())
	assert.Contains(t, f.dispatcher.Codes(), event.JobSocketBroadcast)
}

// lossyStaging forgets staged orders, as an evicted cache entry would
type lossyStaging struct {
	*cache.MemoryStore
}

func (l lossyStaging) Get(ctx context.Context, key string, dst interface{}) error {
	if strings.Contains(key, ":"+roleOrder+":") {
		return repository.ErrStagedEntryNotFound
	}
	return l.MemoryStore.Get(ctx, key, dst)
}

func TestCreateOrder_LostStagingIsRetryable(t *testing.T) {
	f := newFixture(t)
	f.svc.staging = lossyStaging{cache.NewMemoryStore()}

	_, _, err := f.svc.CreateOrder(context.Background(), f.rc, &CreateOrderInput{AreaID: f.hall.ID, Lines: []LineInput{line(f.beer, "1")}})

	require.Error(t, err)
	assert.True(t, apperror.IsKind(err, apperror.KindInfrastructure))
	assert.True(t, apperror.GetAppError(err).Retryable)
	assert.Equal(t, 0, f.store.OrderCount())
	assert.Equal(t, "10", f.stock(f.warehouse, f.beer))
}

func TestGateway_SuccessBillsPendingOrderOnce(t *testing.T) {
	f := newFixture(t)
	order, _, err := f.svc.CreateOrder(context.Background(), f.rc, &CreateOrderInput{
		AreaID: f.hall.ID, Origin: enum.OrderOriginOnline, PaymentGateway: true, Lines: []LineInput{line(f.tv, "1")},
	})
	require.NoError(t, err)
	require.Equal(t, enum.OrderStatusPaymentPending, order.Status)
	f.dispatcher.Reset()

	in := &GatewayCallbackInput{OrderID: order.ID, TransactionNo: "TX-991"}
	paid, err := f.svc.GatewaySuccess(context.Background(), in)
	require.NoError(t, err)

	assert.Equal(t, enum.OrderStatusBilled, paid.Status)
	assert.Equal(t, "TX-991", paid.GatewayTransactionNo)
	require.Len(t, paid.Payments, 1)
	assert.Equal(t, enum.PaymentWayTransfer, paid.Payments[0].PaymentWay)
	assert.Empty(t, f.store.CashOperations(&order.ID))
	assert.Contains(t, f.dispatcher.Codes(), event.JobNotifyOrder)

	_, err = f.svc.GatewaySuccess(context.Background(), in)
	assert.True(t, apperror.IsKind(err, apperror.KindStateConflict))
	assert.Len(t, f.store.Order(order.ID).Payments, 1)
}

func TestGateway_FailCancelsAndRestoresStock(t *testing.T) {
	f := newFixture(t)
	order, _, err := f.svc.CreateOrder(context.Background(), f.rc, &CreateOrderInput{
		AreaID: f.hall.ID, Origin: enum.OrderOriginApp, PaymentGateway: true, Lines: []LineInput{line(f.tv, "2")},
	})
	require.NoError(t, err)
	assert.Equal(t, "3", f.stock(f.warehouse, f.tv))

	cancelled, err := f.svc.GatewayFail(context.Background(), &GatewayCallbackInput{OrderID: order.ID, TransactionNo: "TX-1"})
	require.NoError(t, err)

	assert.Equal(t, enum.OrderStatusCancelled, cancelled.Status)
	assert.Equal(t, "5", f.stock(f.warehouse, f.tv))

	_, err = f.svc.GatewayFail(context.Background(), &GatewayCallbackInput{OrderID: order.ID, TransactionNo: "TX-1"})
	assert.True(t, apperror.IsKind(err, apperror.KindStateConflict))
}

func TestGateway_UnknownOrder(t *testing.T) {
	f := newFixture(t)

	_, err := f.svc.GatewaySuccess(context.Background(), &GatewayCallbackInput{OrderID: uuid.New(), TransactionNo: "TX"})

	assert.True(t, apperror.IsKind(err, apperror.KindNotFound))
}

func TestListOrders_FiltersAndPaginates(t *testing.T) {
	f := newFixture(t)
	first := f.create(line(f.beer, "1"))
	f.create(line(f.burger, "1"))
	f.create(line(f.beer, "1"))

	completed := enum.OrderStatusCompleted
	result, err := f.svc.ListOrders(context.Background(), f.rc, &repository.OrderFilterParams{Status: &completed, SortOrder: "asc"})
	require.NoError(t, err)
	assert.Equal(t, int64(2), result.Pagination.Total)
	assert.Equal(t, first.ID, result.Items[0].ID)

	got, err := f.svc.GetOrder(context.Background(), f.rc, first.ID)
	require.NoError(t, err)
	assert.Equal(t, first.ID, got.ID)

	other := RequestContext{BusinessID: uuid.New()}
	_, err = f.svc.GetOrder(context.Background(), other, first.ID)
	assert.True(t, apperror.IsKind(err, apperror.KindNotFound))
}
