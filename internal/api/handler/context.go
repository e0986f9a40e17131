package handler

import (
	"net/http"
	"strconv"

	"github.com/labstack/echo/v4"

	"github.com/clinicrpm/rpm-portal/internal/api/middleware"
	"github.com/clinicrpm/rpm-portal/internal/core/domain"
)

// currentIdentity returns the identity resolved by the session middleware.
// Routes behind RequireAuthenticated always have one; the check guards
// against a handler being mounted without its guard.
func currentIdentity(c echo.Context) (*domain.Identity, error) {
	id := middleware.IdentityFrom(c)
	if id == nil {
		return nil, domain.ErrUnauthorized
	}
	return id, nil
}

func pathID(c echo.Context, what string) (int64, error) {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil || id <= 0 {
		return 0, echo.NewHTTPError(http.StatusBadRequest, "Invalid "+what+" ID")
	}
	return id, nil
}

func requestID(c echo.Context) string {
	return c.Response().Header().Get(echo.HeaderXRequestID)
}
