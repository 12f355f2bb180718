package service

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/sangkips/posflow-api/internal/domain/entity"
	"github.com/sangkips/posflow-api/internal/domain/enum"
	"github.com/sangkips/posflow-api/internal/infrastructure/cache"
	"github.com/sangkips/posflow-api/internal/testutil"
	"github.com/sangkips/posflow-api/pkg/money"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"
)

func dec(s string) decimal.Decimal {
	return decimal.RequireFromString(s)
}

func usd(amount float64) money.Money { return money.FromFloat(amount, "USD") }
func eur(amount float64) money.Money { return money.FromFloat(amount, "EUR") }

// fixture is a bar with a hall drawing from a warehouse, a terrace with its own store
// and a kitchen
type fixture struct {
	t          *testing.T
	store      *testutil.Store
	staging    *cache.MemoryStore
	dispatcher *testutil.Dispatcher
	svc        *OrderService
	rc         RequestContext

	business   *entity.Business
	warehouse  *entity.Area
	hall       *entity.Area
	terrace    *entity.Area
	terraceBar *entity.Area
	kitchen    *entity.Area
	cycle      *entity.EconomicCycle

	beer   *entity.Product
	tv     *entity.Product
	burger *entity.Product
	shirt  *entity.Product
	cheese *entity.Product

	clockMu sync.Mutex
	clock   time.Time
}

type fixtureOption func(*entity.Business, *OrderServiceDeps)

func withNegativeStock() fixtureOption {
	return func(b *entity.Business, _ *OrderServiceDeps) { b.AllowNegativeStock = true }
}

func withCouponPolicy(policy CouponReopenPolicy) fixtureOption {
	return func(_ *entity.Business, deps *OrderServiceDeps) { deps.Options.CouponReopenPolicy = policy }
}

func withDispatchTimeout(d time.Duration) fixtureOption {
	return func(_ *entity.Business, deps *OrderServiceDeps) { deps.Options.DispatchTimeout = d }
}

func newFixture(t *testing.T, opts ...fixtureOption) *fixture {
	t.Helper()
	f := &fixture{
		t:          t,
		store:      testutil.NewStore(),
		staging:    cache.NewMemoryStore(),
		dispatcher: &testutil.Dispatcher{},
		clock:      time.Date(2024, 5, 1, 10, 0, 0, 0, time.UTC),
	}

	businessID := uuid.New()
	f.business = &entity.Business{
		ID:           businessID,
		Name:         "Corner Bar",
		MainCurrency: "USD",
		Currencies: []entity.AvailableCurrency{
			{ID: uuid.New(), BusinessID: businessID, Code: "USD", ExchangeRate: dec("1"), IsMain: true},
			{ID: uuid.New(), BusinessID: businessID, Code: "EUR", ExchangeRate: dec("1.1")},
			{ID: uuid.New(), BusinessID: businessID, Code: "CUP", ExchangeRate: dec("0.01")},
		},
	}
	f.rc = RequestContext{BusinessID: businessID, UserID: uuid.New(), Roles: []string{"cashier"}}

	f.warehouse = &entity.Area{ID: uuid.New(), BusinessID: businessID, Name: "Warehouse", Type: enum.AreaTypeStock, IsActive: true}
	f.terraceBar = &entity.Area{ID: uuid.New(), BusinessID: businessID, Name: "Terrace bar", Type: enum.AreaTypeStock, IsActive: true}
	f.kitchen = &entity.Area{ID: uuid.New(), BusinessID: businessID, Name: "Kitchen", Type: enum.AreaTypeProduction, IsActive: true}
	f.hall = &entity.Area{ID: uuid.New(), BusinessID: businessID, Name: "Hall", Type: enum.AreaTypeSale, StockAreaID: &f.warehouse.ID, IsActive: true}
	f.terrace = &entity.Area{ID: uuid.New(), BusinessID: businessID, Name: "Terrace", Type: enum.AreaTypeSale, StockAreaID: &f.terraceBar.ID, IsActive: true}
	f.cycle = &entity.EconomicCycle{ID: uuid.New(), BusinessID: businessID, OpenDate: f.clock, IsActive: true}

	f.beer = f.product("Beer", enum.ProductTypeStock, usd(2.5), usd(1))
	f.tv = f.product("TV", enum.ProductTypeStock, usd(120), usd(80))
	f.burger = f.product("Burger", enum.ProductTypeMenu, usd(8), usd(3))
	f.burger.ProductionAreaID = &f.kitchen.ID
	f.shirt = f.product("Shirt", enum.ProductTypeVariation, usd(10), usd(4))
	f.shirt.Variations = []entity.ProductVariation{
		{ID: uuid.New(), ProductID: f.shirt.ID, Name: "S", Price: usd(10)},
		{ID: uuid.New(), ProductID: f.shirt.ID, Name: "L", Price: usd(12)},
	}
	f.cheese = f.product("Cheese", enum.ProductTypeAddon, usd(1), usd(0.4))

	deps := OrderServiceDeps{
		TxManager:      f.store,
		Staging:        f.staging,
		Dispatcher:     f.dispatcher,
		Businesses:     f.store.Businesses(),
		Areas:          f.store.Areas(),
		Cycles:         f.store.Cycles(),
		Products:       f.store.Products(),
		Orders:         f.store.Orders(),
		CashOperations: f.store.CashOps(),
		Tickets:        f.store.TicketRepo(),
		Resources:      f.store.ResourceRepo(),
		Dispatches:     f.store.DispatchRepo(),
		Ledger:         NewStockLedger(f.store.Stock()),
		Coupons:        NewCouponProcessor(f.store.CouponRepo(), f.now),
		Clock:          f.now,
	}
	for _, opt := range opts {
		opt(f.business, &deps)
	}
	f.svc = NewOrderService(deps)

	f.store.Seed(f.business, f.warehouse, f.terraceBar, f.kitchen, f.hall, f.terrace, f.cycle,
		f.beer, f.tv, f.burger, f.shirt, f.cheese)
	f.setStock(f.warehouse, f.beer, uuid.Nil, "10")
	f.setStock(f.warehouse, f.tv, uuid.Nil, "5")
	f.setStock(f.warehouse, f.cheese, uuid.Nil, "20")
	f.setStock(f.warehouse, f.shirt, f.shirt.Variations[1].ID, "3")
	f.setStock(f.terraceBar, f.beer, uuid.Nil, "4")
	return f
}

// now advances one second per call so consecutive orders never share a timestamp
func (f *fixture) now() time.Time {
	f.clockMu.Lock()
	defer f.clockMu.Unlock()
	f.clock = f.clock.Add(time.Second)
	return f.clock
}

func (f *fixture) product(name string, typ enum.ProductType, price, cost money.Money) *entity.Product {
	return &entity.Product{ID: uuid.New(), BusinessID: f.business.ID, Name: name, Type: typ, Price: price, AverageCost: cost}
}

func (f *fixture) setStock(area *entity.Area, p *entity.Product, variationID uuid.UUID, qty string) {
	f.store.Seed(&entity.StockAreaProduct{AreaID: area.ID, ProductID: p.ID, VariationID: variationID, Quantity: dec(qty)})
}

func (f *fixture) stock(area *entity.Area, p *entity.Product) string {
	f.t.Helper()
	entry := f.store.StockEntry(area.ID, p.ID, uuid.Nil)
	require.NotNil(f.t, entry, "no stock entry for %s", p.Name)
	return entry.Quantity.String()
}

func line(p *entity.Product, qty string) LineInput {
	return LineInput{ProductID: p.ID, Quantity: dec(qty)}
}

func (f *fixture) create(lines ...LineInput) *entity.Order {
	f.t.Helper()
	order, created, err := f.svc.CreateOrder(context.Background(), f.rc, &CreateOrderInput{
		AreaID: f.hall.ID,
		Name:   "Table",
		Lines:  lines,
	})
	require.NoError(f.t, err)
	require.True(f.t, created)
	return order
}

func (f *fixture) billed(lines ...LineInput) *entity.Order {
	f.t.Helper()
	order := f.create(lines...)
	paid, err := f.svc.PayOrder(context.Background(), f.rc, order.ID, &PayOrderInput{
		Payments: []PaymentInput{{Amount: money.New(order.TotalToPay.Get("USD"), "USD"), PaymentWay: enum.PaymentWayCash}},
	})
	require.NoError(f.t, err)
	require.Equal(f.t, enum.OrderStatusBilled, paid.Status)
	return paid
}

// rollCycle closes the current economic cycle and opens a new one
func (f *fixture) rollCycle() *entity.EconomicCycle {
	closed := *f.cycle
	closed.IsActive = false
	f.store.Seed(&closed)
	next := &entity.EconomicCycle{ID: uuid.New(), BusinessID: f.business.ID, OpenDate: f.now(), IsActive: true}
	f.store.Seed(next)
	f.cycle = next
	return next
}

// lineOf returns the first line of the order selling p
func (f *fixture) lineOf(order *entity.Order, p *entity.Product) entity.SelledProduct {
	f.t.Helper()
	for _, l := range order.SelledProducts {
		if l.ProductID == p.ID {
			return l
		}
	}
	require.FailNow(f.t, "no line for "+p.Name)
	return entity.SelledProduct{}
}
