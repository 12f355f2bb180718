package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"
	"github.com/sangkips/posflow-api/internal/application/service"
	"github.com/sangkips/posflow-api/internal/config"
	"github.com/sangkips/posflow-api/internal/domain/event"
	domainRepo "github.com/sangkips/posflow-api/internal/domain/repository"
	"github.com/sangkips/posflow-api/internal/infrastructure/cache"
	"github.com/sangkips/posflow-api/internal/infrastructure/database"
	"github.com/sangkips/posflow-api/internal/infrastructure/queue"
	"github.com/sangkips/posflow-api/internal/infrastructure/repository"
	"github.com/sangkips/posflow-api/internal/presentation/http/handler"
	"github.com/sangkips/posflow-api/internal/presentation/http/routes"
	"github.com/sangkips/posflow-api/pkg/logger"
	"github.com/sangkips/posflow-api/pkg/utils"
	"go.uber.org/zap"
)

func main() {
	cfg := config.Load()

	zl, err := logger.New(cfg.Log.Level)
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to build logger: %v\n", err)
		os.Exit(1)
	}

	if err := run(cfg, zl); err != nil {
		zl.Error("server stopped", zap.Error(err))
		_ = zl.Sync()
		os.Exit(1)
	}
	_ = zl.Sync()
}

// run wires the server and blocks until it is interrupted. Resources opened here are
// released before it returns.
func run(cfg *config.Config, zl *zap.Logger) error {
	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("invalid configuration: %w", err)
	}

	if cfg.App.Env == "production" {
		gin.SetMode(gin.ReleaseMode)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	db, err := database.NewPostgresDB(&cfg.Database, cfg.App.Debug, zl)
	if err != nil {
		return fmt.Errorf("connect to database: %w", err)
	}

	if err := database.AutoMigrate(db, zl); err != nil {
		return fmt.Errorf("run migrations: %w", err)
	}

	if cfg.App.Env != "production" {
		if err := database.SeedDefaultData(db, zl); err != nil {
			zl.Warn("failed to seed default data", zap.Error(err))
		}
	}

	jwtManager := utils.NewJWTManager(cfg.JWT.Secret, cfg.JWT.ExpiryHours)

	// Repositories
	txm := repository.NewTxManager(db)
	businessRepo := repository.NewBusinessRepository(db)
	areaRepo := repository.NewAreaRepository(db)
	cycleRepo := repository.NewEconomicCycleRepository(db)
	productRepo := repository.NewProductRepository(db)
	stockRepo := repository.NewStockRepository(db)
	orderRepo := repository.NewOrderRepository(db)
	cashRepo := repository.NewCashOperationRepository(db)
	couponRepo := repository.NewCouponRepository(db)
	ticketRepo := repository.NewProductionTicketRepository(db)
	resourceRepo := repository.NewResourceRepository(db)
	dispatchRepo := repository.NewDispatchRepository(db)
	idempotencyRepo := repository.NewIdempotencyRepository(db)

	checks := map[string]handler.HealthCheck{
		"postgres": func(ctx context.Context) error {
			sqlDB, err := db.DB()
			if err != nil {
				return err
			}
			return sqlDB.PingContext(ctx)
		},
	}

	// Staging cache
	var staging domainRepo.StagingStore
	switch cfg.Staging.Backend {
	case "redis":
		client, err := cache.NewRedisClient(ctx, cfg.Redis.Addr, cfg.Redis.Password, cfg.Redis.DB)
		if err != nil {
			return fmt.Errorf("connect to redis: %w", err)
		}
		defer client.Close()
		staging = cache.NewRedisStore(client)
		checks["redis"] = func(ctx context.Context) error { return pingRedis(ctx, client) }
	default:
		memory := cache.NewMemoryStore()
		memory.StartJanitor(ctx, time.Minute)
		staging = memory
	}

	// Side-effect queue
	var dispatcher event.Dispatcher = queue.NoopDispatcher{}
	if cfg.Queue.Enabled {
		asynqDispatcher := queue.NewAsynqDispatcher(cfg.Redis.Addr, cfg.Redis.Password, cfg.Redis.DB, cfg.Queue.Name, cfg.Queue.MaxAttempts)
		defer asynqDispatcher.Close()
		dispatcher = asynqDispatcher
	} else {
		zl.Info("side-effect queue disabled, jobs are discarded")
	}

	// Services
	orderService := service.NewOrderService(service.OrderServiceDeps{
		TxManager:      txm,
		Staging:        staging,
		Dispatcher:     dispatcher,
		Businesses:     businessRepo,
		Areas:          areaRepo,
		Cycles:         cycleRepo,
		Products:       productRepo,
		Orders:         orderRepo,
		CashOperations: cashRepo,
		Tickets:        ticketRepo,
		Resources:      resourceRepo,
		Dispatches:     dispatchRepo,
		Ledger:         service.NewStockLedger(stockRepo),
		Coupons:        service.NewCouponProcessor(couponRepo, time.Now),
		Options: service.OrderOptions{
			StagingTTL:         cfg.Staging.TTL,
			DispatchTimeout:    cfg.Queue.DispatchTimeout,
			CouponReopenPolicy: service.CouponReopenPolicy(cfg.Orders.CouponReopenPolicy),
		},
	})
	cashService := service.NewCashRegisterService(txm, businessRepo, areaRepo, cycleRepo, cashRepo, cfg.Orders.CashOperationDeleteWindow, time.Now)
	cycleService := service.NewEconomicCycleService(txm, cycleRepo, time.Now)

	handlers := &routes.Handlers{
		Order:   handler.NewOrderHandler(orderService),
		Cash:    handler.NewCashHandler(cashService, cycleService),
		Gateway: handler.NewGatewayHandler(orderService),
		Health:  handler.NewHealthHandler(checks),
	}

	router := routes.Setup(handlers, &routes.Deps{
		JWTManager:      jwtManager,
		Cfg:             cfg,
		IdempotencyRepo: idempotencyRepo,
		Logger:          zl,
		Done:            ctx.Done(),
	})

	go purgeIdempotencyKeys(ctx, idempotencyRepo, zl)

	srv := &http.Server{
		Addr:              ":" + cfg.App.Port,
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	serveErr := make(chan error, 1)
	go func() {
		zl.Info("starting server", zap.String("name", cfg.App.Name), zap.String("port", cfg.App.Port), zap.String("env", cfg.App.Env))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serveErr <- err
		}
	}()

	select {
	case <-ctx.Done():
	case err := <-serveErr:
		return fmt.Errorf("start server: %w", err)
	}
	zl.Info("shutting down server")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("shutdown server: %w", err)
	}
	return nil
}

func pingRedis(ctx context.Context, client *redis.Client) error {
	return client.Ping(ctx).Err()
}

// purgeIdempotencyKeys deletes expired idempotency keys every hour
func purgeIdempotencyKeys(ctx context.Context, repo domainRepo.IdempotencyRepository, zl *zap.Logger) {
	ticker := time.NewTicker(time.Hour)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			n, err := repo.DeleteExpired(ctx, time.Now())
			if err != nil {
				zl.Warn("failed to purge idempotency keys", zap.Error(err))
				continue
			}
			if n > 0 {
				zl.Info("purged idempotency keys", zap.Int64("count", n))
			}
		}
	}
}
