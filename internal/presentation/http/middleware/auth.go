package middleware

import (
	"crypto/subtle"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/sangkips/posflow-api/internal/application/service"
	"github.com/sangkips/posflow-api/internal/presentation/http/dto/response"
	"github.com/sangkips/posflow-api/pkg/logger"
	"github.com/sangkips/posflow-api/pkg/utils"
	"go.uber.org/zap"
)

const (
	requestContextKey = "request_context"

	// GatewayTokenHeader carries the shared secret of payment gateway callbacks
	GatewayTokenHeader = "X-Gateway-Token"
)

// AuthMiddleware creates a JWT authentication middleware. The claims become the
// RequestContext every handler passes to the services.
func AuthMiddleware(jwtManager *utils.JWTManager) gin.HandlerFunc {
	return func(c *gin.Context) {
		authHeader := c.GetHeader("Authorization")
		if authHeader == "" {
			response.Unauthorized(c, "Authorization header is required")
			c.Abort()
			return
		}

		// Extract token from "Bearer <token>"
		parts := strings.Split(authHeader, " ")
		if len(parts) != 2 || strings.ToLower(parts[0]) != "bearer" {
			response.Unauthorized(c, "Invalid authorization header format")
			c.Abort()
			return
		}

		claims, err := jwtManager.ValidateAccessToken(parts[1])
		if err != nil {
			response.Unauthorized(c, "Invalid or expired token")
			c.Abort()
			return
		}

		rc := service.RequestContext{
			BusinessID: claims.BusinessID,
			UserID:     claims.UserID,
			Roles:      claims.Roles,
		}
		c.Set(requestContextKey, rc)

		ctx := logger.With(c.Request.Context(),
			zap.String("business_id", rc.BusinessID.String()),
			zap.String("user_id", rc.UserID.String()))
		c.Request = c.Request.WithContext(ctx)

		c.Next()
	}
}

// GetRequestContext returns the caller scope set by AuthMiddleware
func GetRequestContext(c *gin.Context) (service.RequestContext, bool) {
	v, exists := c.Get(requestContextKey)
	if !exists {
		return service.RequestContext{}, false
	}
	rc, ok := v.(service.RequestContext)
	if !ok || rc.BusinessID == uuid.Nil {
		return service.RequestContext{}, false
	}
	return rc, true
}

// GetBusinessID returns the business of the caller, or uuid.Nil for public requests
func GetBusinessID(c *gin.Context) uuid.UUID {
	rc, _ := GetRequestContext(c)
	return rc.BusinessID
}

// GatewayToken guards payment gateway callbacks with a shared secret. An empty secret
// rejects every callback.
func GatewayToken(secret string) gin.HandlerFunc {
	return func(c *gin.Context) {
		token := c.GetHeader(GatewayTokenHeader)
		if secret == "" || subtle.ConstantTimeCompare([]byte(token), []byte(secret)) != 1 {
			response.Unauthorized(c, "Invalid gateway token")
			c.Abort()
			return
		}
		c.Next()
	}
}
