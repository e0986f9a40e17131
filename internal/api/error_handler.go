package api

import (
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/labstack/echo/v4"
	"github.com/rs/zerolog"

	"github.com/clinicrpm/rpm-portal/internal/api/handler"
	"github.com/clinicrpm/rpm-portal/internal/api/middleware"
	"github.com/clinicrpm/rpm-portal/internal/core/domain"
)

// errorResponse is the canonical error envelope for all API errors.
// Detail is only populated in development.
type errorResponse struct {
	Success bool   `json:"success"`
	Error   string `json:"error"`
	Detail  string `json:"detail,omitempty"`
}

// NewHTTPErrorHandler returns an echo.HTTPErrorHandler that:
//   - Maps known domain errors to their appropriate HTTP status codes.
//   - Logs unexpected errors internally without leaking details to the client.
//   - Renders {"success": false, "error": "<message>"} for API calls and the
//     error page for browser navigations.
//
// With debug set, the underlying cause is attached as "detail".
func NewHTTPErrorHandler(log zerolog.Logger, debug bool) echo.HTTPErrorHandler {
	return func(err error, c echo.Context) {
		if c.Response().Committed {
			return
		}

		code, msg := resolveError(err, log, c)
		detail := ""
		if debug && code >= http.StatusInternalServerError {
			detail = err.Error()
		}

		if wantsPage(c) {
			_ = c.Render(code, "error", handler.ErrorPage{Status: code, Message: msg, Detail: detail})
			return
		}
		_ = c.JSON(code, errorResponse{Error: msg, Detail: detail})
	}
}

func resolveError(err error, log zerolog.Logger, c echo.Context) (int, string) {
	// Echo's own errors (bind failures, 404 from router, validation, etc.)
	var he *echo.HTTPError
	if errors.As(err, &he) {
		return he.Code, fmt.Sprintf("%v", he.Message)
	}

	// Known domain errors → deterministic HTTP codes.
	switch {
	case errors.Is(err, domain.ErrUnauthorized):
		return http.StatusUnauthorized, "Session expired. Please login again."
	case errors.Is(err, domain.ErrInvalidCredentials):
		return http.StatusUnauthorized, "Invalid username or password"
	case errors.Is(err, domain.ErrPatientNotAuthorized):
		return http.StatusForbidden, "Patient not found or not authorized"
	case errors.Is(err, domain.ErrForbidden):
		return http.StatusForbidden, "Access denied"
	case errors.Is(err, domain.ErrAccountNotFound):
		return http.StatusNotFound, "Account not found"
	case errors.Is(err, domain.ErrPatientNotFound):
		return http.StatusNotFound, "Patient not found"
	case errors.Is(err, domain.ErrAccountExists):
		return http.StatusConflict, "Username already exists"
	case errors.Is(err, domain.ErrLastAdmin):
		return http.StatusConflict, "Cannot remove the last admin account"
	case errors.Is(err, domain.ErrSelfDelete):
		return http.StatusBadRequest, "Cannot delete your own account"
	case errors.Is(err, domain.ErrInvalidAccount),
		errors.Is(err, domain.ErrInvalidPatient),
		errors.Is(err, domain.ErrInvalidReading):
		return http.StatusBadRequest, err.Error()
	case errors.Is(err, domain.ErrStoreUnavailable):
		log.Warn().
			Err(err).
			Str("method", c.Request().Method).
			Str("path", c.Path()).
			Msg("store unavailable")
		return http.StatusServiceUnavailable, "Service temporarily unavailable"
	}

	// Unexpected error: log the real cause, return a generic message.
	log.Error().
		Err(err).
		Str("method", c.Request().Method).
		Str("path", c.Path()).
		Msg("unhandled error")

	return http.StatusInternalServerError, "internal server error"
}

// wantsPage reports whether the failed request was a browser page navigation.
func wantsPage(c echo.Context) bool {
	req := c.Request()
	if c.Echo().Renderer == nil || req.Method != http.MethodGet {
		return false
	}
	if strings.HasPrefix(req.URL.Path, "/api/") {
		return false
	}
	return !middleware.WantsJSON(c)
}
