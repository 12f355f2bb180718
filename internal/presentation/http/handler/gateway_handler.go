package handler

import (
	"github.com/gin-gonic/gin"
	"github.com/sangkips/posflow-api/internal/application/service"
	"github.com/sangkips/posflow-api/internal/presentation/http/dto/request"
	"github.com/sangkips/posflow-api/internal/presentation/http/dto/response"
	"github.com/sangkips/posflow-api/pkg/logger"
	"go.uber.org/zap"
)

// GatewayHandler receives payment gateway callbacks
type GatewayHandler struct {
	orderService *service.OrderService
}

// NewGatewayHandler creates a new gateway handler
func NewGatewayHandler(orderService *service.OrderService) *GatewayHandler {
	return &GatewayHandler{orderService: orderService}
}

// Success bills the referenced order
func (h *GatewayHandler) Success(c *gin.Context) {
	var req request.GatewayCallbackRequest
	if !bindJSON(c, &req) {
		return
	}

	logger.FromContext(c.Request.Context()).Info("gateway payment succeeded",
		zap.String("order_id", req.Reference.String()), zap.String("transaction_no", req.TransactionNo))

	order, err := h.orderService.GatewaySuccess(c.Request.Context(), req.ToInput())
	if err != nil {
		response.Error(c, err)
		return
	}

	response.OK(c, "Payment registered successfully", order)
}

// Fail cancels the referenced order
func (h *GatewayHandler) Fail(c *gin.Context) {
	var req request.GatewayCallbackRequest
	if !bindJSON(c, &req) {
		return
	}

	logger.FromContext(c.Request.Context()).Info("gateway payment failed",
		zap.String("order_id", req.Reference.String()), zap.String("status", req.Status))

	order, err := h.orderService.GatewayFail(c.Request.Context(), req.ToInput())
	if err != nil {
		response.Error(c, err)
		return
	}

	response.OK(c, "Payment failure registered", order)
}
