package handler

import (
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/sangkips/posflow-api/internal/application/service"
	"github.com/sangkips/posflow-api/internal/presentation/http/dto/response"
	"github.com/sangkips/posflow-api/internal/presentation/http/middleware"
	"github.com/sangkips/posflow-api/pkg/apperror"
)

// requestContext returns the caller scope set by the auth middleware, answering 401 when
// it is missing
func requestContext(c *gin.Context) (service.RequestContext, bool) {
	rc, ok := middleware.GetRequestContext(c)
	if !ok {
		response.Unauthorized(c, "User not authenticated")
		return service.RequestContext{}, false
	}
	return rc, true
}

// pathID parses a uuid path parameter, answering 400 when it is malformed
func pathID(c *gin.Context, name string) (uuid.UUID, bool) {
	id, err := uuid.Parse(c.Param(name))
	if err != nil {
		response.BadRequest(c, "Invalid "+name)
		return uuid.Nil, false
	}
	return id, true
}

// bindJSON binds the body, answering 422 with the binding message when it is invalid
func bindJSON(c *gin.Context, req interface{}) bool {
	if err := c.ShouldBindJSON(req); err != nil {
		response.Error(c, apperror.NewValidationError("Invalid request body: "+err.Error()))
		return false
	}
	return true
}
