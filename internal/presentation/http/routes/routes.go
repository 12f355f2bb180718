package routes

import (
	"github.com/gin-gonic/gin"
	"github.com/sangkips/posflow-api/internal/config"
	domainRepo "github.com/sangkips/posflow-api/internal/domain/repository"
	"github.com/sangkips/posflow-api/internal/presentation/http/handler"
	"github.com/sangkips/posflow-api/internal/presentation/http/middleware"
	"github.com/sangkips/posflow-api/pkg/metrics"
	"github.com/sangkips/posflow-api/pkg/utils"
	"go.uber.org/zap"
)

// Handlers holds all the HTTP handlers used for route registration.
type Handlers struct {
	Order   *handler.OrderHandler
	Cash    *handler.CashHandler
	Gateway *handler.GatewayHandler
	Health  *handler.HealthHandler
}

// Deps holds shared dependencies needed by the routes.
type Deps struct {
	JWTManager      *utils.JWTManager
	Cfg             *config.Config
	IdempotencyRepo domainRepo.IdempotencyRepository
	Logger          *zap.Logger
	// Done stops the background loops of the middleware
	Done <-chan struct{}
}

// Setup creates the Gin router and registers all routes.
func Setup(h *Handlers, deps *Deps) *gin.Engine {
	router := gin.New()

	// Global middleware
	router.Use(middleware.LoggerMiddleware(deps.Logger))
	router.Use(middleware.Recovery())
	router.Use(middleware.Metrics())
	router.Use(middleware.CORSMiddleware(&deps.Cfg.CORS))

	router.GET("/health", h.Health.Health)
	router.GET("/metrics", gin.WrapH(metrics.Handler()))

	v1 := router.Group("/api/v1")
	{
		// Payment gateway callbacks authenticate with the shared token instead of a JWT
		gateway := v1.Group("/gateway/tecopay")
		gateway.Use(middleware.GatewayToken(deps.Cfg.Gateway.CallbackToken))
		gateway.POST("/success", h.Gateway.Success)
		gateway.POST("/fail", h.Gateway.Fail)

		protected := v1.Group("")
		protected.Use(middleware.AuthMiddleware(deps.JWTManager))

		rateLimiter := middleware.NewBusinessRateLimiter(middleware.RateLimiterConfigFrom(deps.Cfg.RateLimit), deps.Done)
		protected.Use(rateLimiter.Middleware())

		registerProtectedRoutes(protected, h, deps)
	}

	return router
}

func registerProtectedRoutes(rg *gin.RouterGroup, h *Handlers, deps *Deps) {
	idempotency := middleware.Idempotency(middleware.IdempotencyConfig{Repo: deps.IdempotencyRepo})

	orders := rg.Group("/orders")
	{
		orders.GET("", h.Order.List)
		orders.GET("/:id", h.Order.Get)

		mutating := orders.Group("")
		mutating.Use(idempotency)
		mutating.POST("", h.Order.Create)
		mutating.POST("/:id/products", h.Order.AddRemoveProducts)
		mutating.POST("/:id/pay", h.Order.Pay)
		mutating.POST("/:id/cancel", h.Order.Cancel)
		mutating.POST("/:id/refund", h.Order.Refund)
		mutating.POST("/:id/reopen", h.Order.Reopen)
		mutating.POST("/:id/move", h.Order.Move)
		mutating.POST("/:id/split", h.Order.Split)
		mutating.POST("/:id/join/:otherId", h.Order.Join)
	}

	cash := rg.Group("/cash-operations")
	{
		cash.GET("", h.Cash.ListOperations)
		cash.POST("", idempotency, h.Cash.RegisterOperation)
		cash.DELETE("/:id", h.Cash.DeleteOperation)
	}

	cycles := rg.Group("/economic-cycles")
	{
		cycles.GET("/active", h.Cash.ActiveCycle)
		cycles.POST("/open", h.Cash.OpenCycle)
		cycles.POST("/close", h.Cash.CloseCycle)
	}
}
