package handler

import (
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/sangkips/posflow-api/internal/application/service"
	"github.com/sangkips/posflow-api/internal/domain/enum"
	"github.com/sangkips/posflow-api/internal/domain/repository"
	"github.com/sangkips/posflow-api/internal/presentation/http/dto/request"
	"github.com/sangkips/posflow-api/internal/presentation/http/dto/response"
	"github.com/sangkips/posflow-api/pkg/apperror"
	"github.com/sangkips/posflow-api/pkg/pagination"
)

// OrderHandler handles order-related HTTP requests
type OrderHandler struct {
	orderService *service.OrderService
}

// NewOrderHandler creates a new order handler
func NewOrderHandler(orderService *service.OrderService) *OrderHandler {
	return &OrderHandler{orderService: orderService}
}

// List handles listing orders
func (h *OrderHandler) List(c *gin.Context) {
	rc, ok := requestContext(c)
	if !ok {
		return
	}

	var req request.OrderFilterRequest
	if err := c.ShouldBindQuery(&req); err != nil {
		response.BadRequest(c, "Invalid query parameters")
		return
	}

	params, err := orderFilters(&req)
	if err != nil {
		response.Error(c, err)
		return
	}

	result, err := h.orderService.ListOrders(c.Request.Context(), rc, params)
	if err != nil {
		response.Error(c, err)
		return
	}

	response.SuccessWithPagination(c, http.StatusOK, "Orders retrieved successfully", result)
}

func orderFilters(req *request.OrderFilterRequest) (*repository.OrderFilterParams, error) {
	params := &repository.OrderFilterParams{
		Pagination: &pagination.PaginationParams{Page: req.Page, PerPage: req.PerPage},
		SortOrder:  req.SortOrder,
	}

	if req.Status != "" {
		status, ok := enum.ParseOrderStatus(strings.ToUpper(req.Status))
		if !ok {
			return nil, apperror.NewFieldError("status", "unknown order status")
		}
		params.Status = &status
	}

	for _, f := range []struct {
		field string
		raw   string
		dst   **uuid.UUID
	}{
		{"area_id", req.AreaID, &params.AreaID},
		{"economic_cycle_id", req.EconomicCycleID, &params.EconomicCycleID},
	} {
		if f.raw == "" {
			continue
		}
		id, err := uuid.Parse(f.raw)
		if err != nil {
			return nil, apperror.NewFieldError(f.field, "must be a valid id")
		}
		*f.dst = &id
	}

	if req.StartDate != "" {
		start, err := time.Parse("2006-01-02", req.StartDate)
		if err != nil {
			return nil, apperror.NewFieldError("start_date", "must be formatted as YYYY-MM-DD")
		}
		params.StartDate = &start
	}

	if req.EndDate != "" {
		end, err := time.Parse("2006-01-02", req.EndDate)
		if err != nil {
			return nil, apperror.NewFieldError("end_date", "must be formatted as YYYY-MM-DD")
		}
		// inclusive of the whole day
		end = end.Add(24*time.Hour - time.Nanosecond)
		params.EndDate = &end
	}

	return params, nil
}

// Create handles creating an order. A replayed submission answers 200 with the order the
// first one created.
func (h *OrderHandler) Create(c *gin.Context) {
	rc, ok := requestContext(c)
	if !ok {
		return
	}

	var req request.CreateOrderRequest
	if !bindJSON(c, &req) {
		return
	}

	order, created, err := h.orderService.CreateOrder(c.Request.Context(), rc, req.ToInput())
	if err != nil {
		response.Error(c, err)
		return
	}

	if !created {
		response.OK(c, "Order already exists", order)
		return
	}
	response.Created(c, "Order created successfully", order)
}

// Get handles getting a single order
func (h *OrderHandler) Get(c *gin.Context) {
	rc, ok := requestContext(c)
	if !ok {
		return
	}
	id, ok := pathID(c, "id")
	if !ok {
		return
	}

	order, err := h.orderService.GetOrder(c.Request.Context(), rc, id)
	if err != nil {
		response.Error(c, err)
		return
	}

	response.OK(c, "Order retrieved successfully", order)
}

// AddRemoveProducts handles changing the lines of an order
func (h *OrderHandler) AddRemoveProducts(c *gin.Context) {
	rc, ok := requestContext(c)
	if !ok {
		return
	}
	id, ok := pathID(c, "id")
	if !ok {
		return
	}

	var req request.AddRemoveProductsRequest
	if !bindJSON(c, &req) {
		return
	}

	order, err := h.orderService.AddRemoveProducts(c.Request.Context(), rc, id, req.ToInput())
	if err != nil {
		response.Error(c, err)
		return
	}

	response.OK(c, "Order products updated successfully", order)
}

// Pay handles billing an order
func (h *OrderHandler) Pay(c *gin.Context) {
	rc, ok := requestContext(c)
	if !ok {
		return
	}
	id, ok := pathID(c, "id")
	if !ok {
		return
	}

	var req request.PayOrderRequest
	if !bindJSON(c, &req) {
		return
	}

	order, err := h.orderService.PayOrder(c.Request.Context(), rc, id, req.ToInput())
	if err != nil {
		response.Error(c, err)
		return
	}

	response.OK(c, "Order billed successfully", order)
}

// Cancel handles canceling an order
func (h *OrderHandler) Cancel(c *gin.Context) {
	rc, ok := requestContext(c)
	if !ok {
		return
	}
	id, ok := pathID(c, "id")
	if !ok {
		return
	}

	order, err := h.orderService.CancelOrder(c.Request.Context(), rc, id)
	if err != nil {
		response.Error(c, err)
		return
	}

	response.OK(c, "Order cancelled successfully", order)
}

// Refund handles refunding a billed order
func (h *OrderHandler) Refund(c *gin.Context) {
	rc, ok := requestContext(c)
	if !ok {
		return
	}
	id, ok := pathID(c, "id")
	if !ok {
		return
	}

	var req request.RefundOrderRequest
	if !bindJSON(c, &req) {
		return
	}

	order, err := h.orderService.RefundOrder(c.Request.Context(), rc, id, &service.RefundOrderInput{AreaID: req.AreaID})
	if err != nil {
		response.Error(c, err)
		return
	}

	response.OK(c, "Order refunded successfully", order)
}

// Reopen handles reopening a billed order
func (h *OrderHandler) Reopen(c *gin.Context) {
	rc, ok := requestContext(c)
	if !ok {
		return
	}
	id, ok := pathID(c, "id")
	if !ok {
		return
	}

	order, err := h.orderService.ReopenOrder(c.Request.Context(), rc, id)
	if err != nil {
		response.Error(c, err)
		return
	}

	response.OK(c, "Order reopened successfully", order)
}

// Move handles moving an order to another area or other resources
func (h *OrderHandler) Move(c *gin.Context) {
	rc, ok := requestContext(c)
	if !ok {
		return
	}
	id, ok := pathID(c, "id")
	if !ok {
		return
	}

	var req request.MoveOrderRequest
	if !bindJSON(c, &req) {
		return
	}

	order, err := h.orderService.MoveOrder(c.Request.Context(), rc, id, req.ToInput())
	if err != nil {
		response.Error(c, err)
		return
	}

	response.OK(c, "Order moved successfully", order)
}

// Split handles splitting lines of an order into a new order
func (h *OrderHandler) Split(c *gin.Context) {
	rc, ok := requestContext(c)
	if !ok {
		return
	}
	id, ok := pathID(c, "id")
	if !ok {
		return
	}

	var req request.SplitOrderRequest
	if !bindJSON(c, &req) {
		return
	}

	source, split, err := h.orderService.SplitOrder(c.Request.Context(), rc, id, req.ToInput())
	if err != nil {
		response.Error(c, err)
		return
	}

	response.Created(c, "Order split successfully", gin.H{
		"order":       source,
		"split_order": split,
	})
}

// Join handles merging another order into the base order
func (h *OrderHandler) Join(c *gin.Context) {
	rc, ok := requestContext(c)
	if !ok {
		return
	}
	id, ok := pathID(c, "id")
	if !ok {
		return
	}
	otherID, ok := pathID(c, "otherId")
	if !ok {
		return
	}

	order, err := h.orderService.JoinOrder(c.Request.Context(), rc, id, otherID)
	if err != nil {
		response.Error(c, err)
		return
	}

	response.OK(c, "Orders joined successfully", order)
}
