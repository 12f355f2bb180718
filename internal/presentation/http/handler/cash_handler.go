package handler

import (
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/sangkips/posflow-api/internal/application/service"
	"github.com/sangkips/posflow-api/internal/domain/repository"
	"github.com/sangkips/posflow-api/internal/presentation/http/dto/request"
	"github.com/sangkips/posflow-api/internal/presentation/http/dto/response"
)

// CashHandler handles cash register and economic cycle requests
type CashHandler struct {
	cashService  *service.CashRegisterService
	cycleService *service.EconomicCycleService
}

// NewCashHandler creates a new cash handler
func NewCashHandler(cashService *service.CashRegisterService, cycleService *service.EconomicCycleService) *CashHandler {
	return &CashHandler{cashService: cashService, cycleService: cycleService}
}

// RegisterOperation handles a manual deposit, withdrawal or fund
func (h *CashHandler) RegisterOperation(c *gin.Context) {
	rc, ok := requestContext(c)
	if !ok {
		return
	}

	var req request.CashOperationRequest
	if !bindJSON(c, &req) {
		return
	}

	op, err := h.cashService.Register(c.Request.Context(), rc, req.ToInput())
	if err != nil {
		response.Error(c, err)
		return
	}

	response.Created(c, "Cash operation registered successfully", op)
}

// ListOperations handles listing the cash operations of an area or cycle
func (h *CashHandler) ListOperations(c *gin.Context) {
	rc, ok := requestContext(c)
	if !ok {
		return
	}

	params := &repository.CashOperationFilterParams{}
	for key, dst := range map[string]**uuid.UUID{
		"area_id":           &params.AreaID,
		"economic_cycle_id": &params.EconomicCycleID,
		"order_id":          &params.OrderID,
	} {
		raw := c.Query(key)
		if raw == "" {
			continue
		}
		id, err := uuid.Parse(raw)
		if err != nil {
			response.BadRequest(c, "Invalid "+key)
			return
		}
		*dst = &id
	}

	ops, err := h.cashService.List(c.Request.Context(), rc, params)
	if err != nil {
		response.Error(c, err)
		return
	}

	response.OK(c, "Cash operations retrieved successfully", ops)
}

// DeleteOperation handles deleting a recent manual operation
func (h *CashHandler) DeleteOperation(c *gin.Context) {
	rc, ok := requestContext(c)
	if !ok {
		return
	}
	id, ok := pathID(c, "id")
	if !ok {
		return
	}

	if err := h.cashService.Delete(c.Request.Context(), rc, id); err != nil {
		response.Error(c, err)
		return
	}

	response.OK(c, "Cash operation deleted successfully", nil)
}

// ActiveCycle handles getting the active economic cycle
func (h *CashHandler) ActiveCycle(c *gin.Context) {
	rc, ok := requestContext(c)
	if !ok {
		return
	}

	cycle, err := h.cycleService.GetActive(c.Request.Context(), rc)
	if err != nil {
		response.Error(c, err)
		return
	}

	response.OK(c, "Economic cycle retrieved successfully", cycle)
}

// OpenCycle handles opening a new economic cycle
func (h *CashHandler) OpenCycle(c *gin.Context) {
	rc, ok := requestContext(c)
	if !ok {
		return
	}

	cycle, err := h.cycleService.Open(c.Request.Context(), rc)
	if err != nil {
		response.Error(c, err)
		return
	}

	response.Created(c, "Economic cycle opened successfully", cycle)
}

// CloseCycle handles closing the active economic cycle
func (h *CashHandler) CloseCycle(c *gin.Context) {
	rc, ok := requestContext(c)
	if !ok {
		return
	}

	cycle, err := h.cycleService.Close(c.Request.Context(), rc)
	if err != nil {
		response.Error(c, err)
		return
	}

	response.OK(c, "Economic cycle closed successfully", cycle)
}
