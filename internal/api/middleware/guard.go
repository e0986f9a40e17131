package middleware

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/clinicrpm/rpm-portal/internal/api/metrics"
	"github.com/clinicrpm/rpm-portal/internal/core/domain"
)

const (
	msgSessionExpired = "Session expired. Please login again."
	msgAccessDenied   = "Access denied"

	loginExpiredURL = "/login?sessionExpired=true"
	dashboardURL    = "/dashboard"
)

type denial struct {
	Success bool   `json:"success"`
	Error   string `json:"error"`
}

// RequireAuthenticated rejects requests without a resolved identity.
// API clients get 401 JSON; browsers are redirected to the login page.
func RequireAuthenticated() echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			if IdentityFrom(c) == nil {
				return denyUnauthenticated(c, "authenticated")
			}
			return next(c)
		}
	}
}

// RequireRole rejects identities whose role does not satisfy required.
// API clients get 403 JSON; browsers are redirected to the dashboard.
// A missing identity is treated as unauthenticated.
func RequireRole(required domain.Role) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			id := IdentityFrom(c)
			if id == nil {
				return denyUnauthenticated(c, "role")
			}
			if !id.Role.Satisfies(required) {
				if WantsJSON(c) {
					metrics.GuardDenialsTotal.WithLabelValues("role", "api").Inc()
					return c.JSON(http.StatusForbidden, denial{Error: msgAccessDenied})
				}
				metrics.GuardDenialsTotal.WithLabelValues("role", "browser").Inc()
				return c.Redirect(http.StatusFound, dashboardURL)
			}
			return next(c)
		}
	}
}

func denyUnauthenticated(c echo.Context, guard string) error {
	if WantsJSON(c) {
		metrics.GuardDenialsTotal.WithLabelValues(guard, "api").Inc()
		return c.JSON(http.StatusUnauthorized, denial{Error: msgSessionExpired})
	}
	metrics.GuardDenialsTotal.WithLabelValues(guard, "browser").Inc()
	return c.Redirect(http.StatusFound, loginExpiredURL)
}
