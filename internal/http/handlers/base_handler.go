// README: Base handler utilities (JSON helpers, error mapping).
package handlers

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"trailquest/internal/modules/orientation"
	"trailquest/internal/modules/position"
	"trailquest/internal/modules/waypoint"
)

type errorResponse struct {
	Error string `json:"error"`
}

func writeJSON(c *gin.Context, status int, v any) {
	c.JSON(status, v)
}

func writeError(c *gin.Context, status int, msg string) {
	writeJSON(c, status, errorResponse{Error: msg})
}

// statusFor maps module errors to HTTP statuses. ok is false for errors no
// module declares.
func statusFor(err error) (status int, ok bool) {
	switch {
	case errors.Is(err, waypoint.ErrNotAuthenticated):
		return http.StatusUnauthorized, true
	case errors.Is(err, position.ErrPermissionDenied):
		return http.StatusForbidden, true
	case errors.Is(err, position.ErrNoFixAvailable):
		return http.StatusUnprocessableEntity, true
	case errors.Is(err, waypoint.ErrInvalidCoordinate),
		errors.Is(err, waypoint.ErrInvalidID),
		errors.Is(err, position.ErrInvalidFix):
		return http.StatusBadRequest, true
	case errors.Is(err, waypoint.ErrStore):
		return http.StatusBadGateway, true
	case errors.Is(err, orientation.ErrNoSession):
		return http.StatusNotFound, true
	}
	return 0, false
}

func writeModuleError(c *gin.Context, err error) {
	_ = c.Error(err)
	status, ok := statusFor(err)
	if !ok {
		writeError(c, http.StatusInternalServerError, "internal error")
		return
	}
	writeError(c, status, err.Error())
}
