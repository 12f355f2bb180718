package service

import (
	"net/http"

	"github.com/google/uuid"
	"github.com/sangkips/posflow-api/pkg/apperror"
)

// RequestContext identifies the caller of a service operation
type RequestContext struct {
	BusinessID uuid.UUID
	UserID     uuid.UUID
	Roles      []string
}

// Validate ensures the caller is scoped to a business
func (rc RequestContext) Validate() error {
	if rc.BusinessID == uuid.Nil {
		return apperror.NewAppError(http.StatusUnauthorized, apperror.KindUnauthorized, "Business context required")
	}
	return nil
}

// HasRole reports whether the caller holds one of the roles
func (rc RequestContext) HasRole(roles ...string) bool {
	for _, have := range rc.Roles {
		for _, want := range roles {
			if have == want {
				return true
			}
		}
	}
	return false
}
