package routes

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/sangkips/posflow-api/internal/application/service"
	"github.com/sangkips/posflow-api/internal/config"
	"github.com/sangkips/posflow-api/internal/domain/entity"
	"github.com/sangkips/posflow-api/internal/domain/enum"
	"github.com/sangkips/posflow-api/internal/infrastructure/cache"
	"github.com/sangkips/posflow-api/internal/presentation/http/handler"
	"github.com/sangkips/posflow-api/internal/presentation/http/middleware"
	"github.com/sangkips/posflow-api/internal/testutil"
	"github.com/sangkips/posflow-api/pkg/money"
	"github.com/sangkips/posflow-api/pkg/utils"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

const gatewayToken = "gateway-secret"

type apiEnv struct {
	t          *testing.T
	router     *gin.Engine
	store      *testutil.Store
	token      string
	businessID uuid.UUID
	area       *entity.Area
	beer       *entity.Product
}

type envelope struct {
	Success bool            `json:"success"`
	Message string          `json:"message"`
	Kind    string          `json:"kind"`
	Data    json.RawMessage `json:"data"`
}

func newAPIEnv(t *testing.T) *apiEnv {
	t.Helper()
	gin.SetMode(gin.TestMode)

	store := testutil.NewStore()
	businessID := uuid.New()
	business := &entity.Business{
		ID: businessID, Name: "Corner Bar", MainCurrency: "USD",
		Currencies: []entity.AvailableCurrency{
			{ID: uuid.New(), BusinessID: businessID, Code: "USD", ExchangeRate: decimal.NewFromInt(1), IsMain: true},
		},
	}
	warehouse := &entity.Area{ID: uuid.New(), BusinessID: businessID, Name: "Warehouse", Type: enum.AreaTypeStock, IsActive: true}
	hall := &entity.Area{ID: uuid.New(), BusinessID: businessID, Name: "Hall", Type: enum.AreaTypeSale, StockAreaID: &warehouse.ID, IsActive: true}
	cycle := &entity.EconomicCycle{ID: uuid.New(), BusinessID: businessID, OpenDate: time.Now(), IsActive: true}
	beer := &entity.Product{ID: uuid.New(), BusinessID: businessID, Name: "Beer", Type: enum.ProductTypeStock,
		Price: money.FromFloat(2.5, "USD"), AverageCost: money.FromFloat(1, "USD")}
	store.Seed(business, warehouse, hall, cycle, beer,
		&entity.StockAreaProduct{AreaID: warehouse.ID, ProductID: beer.ID, Quantity: decimal.NewFromInt(10)})

	orderService := service.NewOrderService(service.OrderServiceDeps{
		TxManager:      store,
		Staging:        cache.NewMemoryStore(),
		Dispatcher:     &testutil.Dispatcher{},
		Businesses:     store.Businesses(),
		Areas:          store.Areas(),
		Cycles:         store.Cycles(),
		Products:       store.Products(),
		Orders:         store.Orders(),
		CashOperations: store.CashOps(),
		Tickets:        store.TicketRepo(),
		Resources:      store.ResourceRepo(),
		Dispatches:     store.DispatchRepo(),
		Ledger:         service.NewStockLedger(store.Stock()),
		Coupons:        service.NewCouponProcessor(store.CouponRepo(), time.Now),
	})
	cashService := service.NewCashRegisterService(store, store.Businesses(), store.Areas(), store.Cycles(), store.CashOps(), time.Hour, time.Now)
	cycleService := service.NewEconomicCycleService(store, store.Cycles(), time.Now)

	jwtManager := utils.NewJWTManager("secret", time.Hour)
	token, err := jwtManager.GenerateAccessToken(uuid.New(), businessID, []string{"cashier"}, nil)
	require.NoError(t, err)

	cfg := &config.Config{
		RateLimit: config.RateLimitConfig{Requests: 1000, Duration: 60},
		Gateway:   config.GatewayConfig{CallbackToken: gatewayToken},
	}
	router := Setup(&Handlers{
		Order:   handler.NewOrderHandler(orderService),
		Cash:    handler.NewCashHandler(cashService, cycleService),
		Gateway: handler.NewGatewayHandler(orderService),
		Health: handler.NewHealthHandler(map[string]handler.HealthCheck{
			"postgres": func(ctx context.Context) error { return nil },
		}),
	}, &Deps{
		JWTManager:      jwtManager,
		Cfg:             cfg,
		IdempotencyRepo: noopIdempotencyRepo{},
		Logger:          zap.NewNop(),
	})

	return &apiEnv{t: t, router: router, store: store, token: token, businessID: businessID, area: hall, beer: beer}
}

func (e *apiEnv) do(method, path, body string, headers map[string]string) (*httptest.ResponseRecorder, envelope) {
	e.t.Helper()
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	for k, v := range headers {
		req.Header.Set(k, v)
	}
	w := httptest.NewRecorder()
	e.router.ServeHTTP(w, req)

	var env envelope
	if strings.HasPrefix(w.Header().Get("Content-Type"), "application/json") {
		require.NoError(e.t, json.Unmarshal(w.Body.Bytes(), &env), w.Body.String())
	}
	return w, env
}

func (e *apiEnv) authed(method, path, body string) (*httptest.ResponseRecorder, envelope) {
	return e.do(method, path, body, map[string]string{"Authorization": "Bearer " + e.token})
}

func (e *apiEnv) createOrder(qty int) map[string]interface{} {
	e.t.Helper()
	body := `{"area_id":"` + e.area.ID.String() + `","name":"Table 4","products":[{"product_id":"` +
		e.beer.ID.String() + `","quantity":` + decimal.NewFromInt(int64(qty)).String() + `}]}`
	w, env := e.authed(http.MethodPost, "/api/v1/orders", body)
	require.Equal(e.t, http.StatusCreated, w.Code, w.Body.String())

	var order map[string]interface{}
	require.NoError(e.t, json.Unmarshal(env.Data, &order))
	return order
}

func TestRoutes_PublicEndpoints(t *testing.T) {
	env := newAPIEnv(t)

	w, _ := env.do(http.MethodGet, "/health", "", nil)
	assert.Equal(t, http.StatusOK, w.Code)

	req := httptest.NewRequest(http.MethodGet, "/metrics", nil)
	rec := httptest.NewRecorder()
	env.router.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "posflow_http_requests_total")
}

func TestRoutes_RequireToken(t *testing.T) {
	env := newAPIEnv(t)

	w, _ := env.do(http.MethodGet, "/api/v1/orders", "", nil)
	assert.Equal(t, http.StatusUnauthorized, w.Code)

	w, _ = env.do(http.MethodPost, "/api/v1/gateway/tecopay/success", `{}`, nil)
	assert.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestRoutes_OrderLifecycle(t *testing.T) {
	env := newAPIEnv(t)

	order := env.createOrder(2)
	assert.Equal(t, "COMPLETED", order["status"])
	id := order["id"].(string)

	w, got := env.authed(http.MethodGet, "/api/v1/orders/"+id, "")
	require.Equal(t, http.StatusOK, w.Code)
	assert.True(t, got.Success)

	w, _ = env.authed(http.MethodGet, "/api/v1/orders?status=completed", "")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), id)

	w, failed := env.authed(http.MethodPost, "/api/v1/orders/"+id+"/pay",
		`{"payments":[{"amount":1,"currency":"USD","payment_way":"CASH"}]}`)
	assert.Equal(t, http.StatusPaymentRequired, w.Code)
	assert.Equal(t, "insufficient_payment", failed.Kind)

	w, paid := env.authed(http.MethodPost, "/api/v1/orders/"+id+"/pay",
		`{"payments":[{"amount":5,"currency":"USD","payment_way":"CASH"}]}`)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	var billed map[string]interface{}
	require.NoError(t, json.Unmarshal(paid.Data, &billed))
	assert.Equal(t, "BILLED", billed["status"])

	w, conflict := env.authed(http.MethodPost, "/api/v1/orders/"+id+"/cancel", "")
	assert.Equal(t, http.StatusConflict, w.Code)
	assert.Equal(t, "state_conflict", conflict.Kind)
}

func TestRoutes_ErrorMapping(t *testing.T) {
	env := newAPIEnv(t)

	w, _ := env.authed(http.MethodGet, "/api/v1/orders/not-a-uuid", "")
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w, notFound := env.authed(http.MethodGet, "/api/v1/orders/"+uuid.NewString(), "")
	assert.Equal(t, http.StatusNotFound, w.Code)
	assert.Equal(t, "not_found", notFound.Kind)

	w, invalid := env.authed(http.MethodPost, "/api/v1/orders", `{"products":[]}`)
	assert.Equal(t, http.StatusUnprocessableEntity, w.Code)
	assert.Equal(t, "validation", invalid.Kind)

	w, shortage := env.authed(http.MethodPost, "/api/v1/orders",
		`{"area_id":"`+env.area.ID.String()+`","products":[{"product_id":"`+env.beer.ID.String()+`","quantity":50}]}`)
	assert.Equal(t, http.StatusConflict, w.Code)
	assert.Equal(t, "insufficient_stock", shortage.Kind)
}

func TestRoutes_CashAndCycles(t *testing.T) {
	env := newAPIEnv(t)

	w, _ := env.authed(http.MethodGet, "/api/v1/economic-cycles/active", "")
	assert.Equal(t, http.StatusOK, w.Code)

	w, _ = env.authed(http.MethodPost, "/api/v1/economic-cycles/open", "")
	assert.Equal(t, http.StatusConflict, w.Code)

	w, created := env.authed(http.MethodPost, "/api/v1/cash-operations",
		`{"area_id":"`+env.area.ID.String()+`","operation":"MANUAL_DEPOSIT","amount":20,"currency":"usd"}`)
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	var op map[string]interface{}
	require.NoError(t, json.Unmarshal(created.Data, &op))

	w, _ = env.authed(http.MethodGet, "/api/v1/cash-operations?area_id="+env.area.ID.String(), "")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), op["id"].(string))

	w, _ = env.authed(http.MethodDelete, "/api/v1/cash-operations/"+op["id"].(string), "")
	assert.Equal(t, http.StatusOK, w.Code)
}

func TestRoutes_GatewayCallbackBillsPendingOrder(t *testing.T) {
	env := newAPIEnv(t)

	body := `{"area_id":"` + env.area.ID.String() + `","origin":"ONLINE","payment_gateway":true,"products":[{"product_id":"` +
		env.beer.ID.String() + `","quantity":2}]}`
	w, created := env.authed(http.MethodPost, "/api/v1/orders", body)
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	var order map[string]interface{}
	require.NoError(t, json.Unmarshal(created.Data, &order))
	require.Equal(t, "PAYMENT_PENDING", order["status"])

	callback := `{"reference":"` + order["id"].(string) + `","transaction_no":"TX-1","status":"PAID"}`
	headers := map[string]string{middleware.GatewayTokenHeader: gatewayToken}

	w, paid := env.do(http.MethodPost, "/api/v1/gateway/tecopay/success", callback, headers)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	var billed map[string]interface{}
	require.NoError(t, json.Unmarshal(paid.Data, &billed))
	assert.Equal(t, "BILLED", billed["status"])

	w, _ = env.do(http.MethodPost, "/api/v1/gateway/tecopay/success", callback, headers)
	assert.Equal(t, http.StatusConflict, w.Code)
}

type noopIdempotencyRepo struct{}

func (noopIdempotencyRepo) GetByKey(ctx context.Context, businessID, userID uuid.UUID, key string) (*entity.IdempotencyKey, error) {
	return nil, nil
}

func (noopIdempotencyRepo) Create(ctx context.Context, key *entity.IdempotencyKey) error { return nil }

func (noopIdempotencyRepo) DeleteExpired(ctx context.Context, before time.Time) (int64, error) {
	return 0, nil
}
