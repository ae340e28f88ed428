package handler

import (
	"errors"
	"net/http"

	"chatspace/internal/model"
	"chatspace/internal/repository"
	"chatspace/internal/service"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

// currentUserID reads the authenticated user id set by the auth middleware.
func currentUserID(c *gin.Context) (uuid.UUID, bool) {
	raw, exists := c.Get("userID")
	if !exists {
		return uuid.Nil, false
	}
	idStr, ok := raw.(string)
	if !ok {
		return uuid.Nil, false
	}
	id, err := uuid.Parse(idStr)
	if err != nil {
		return uuid.Nil, false
	}
	return id, true
}

// currentUser loads the authenticated user with roles preloaded, or nil for
// anonymous callers (when the route uses OptionalAuth).
func currentUser(c *gin.Context, users repository.UserRepository) *model.User {
	id, ok := currentUserID(c)
	if !ok {
		return nil
	}
	user, err := users.GetByIDWithRoles(c.Request.Context(), id)
	if err != nil {
		return nil
	}
	return user
}

// statusFromErr maps domain errors to HTTP status codes.
func statusFromErr(err error) int {
	switch {
	case errors.Is(err, service.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, service.ErrForbidden):
		return http.StatusForbidden
	case errors.Is(err, service.ErrConflict):
		return http.StatusConflict
	default:
		return http.StatusBadRequest
	}
}
