package middleware

import (
	"strings"

	"github.com/labstack/echo/v4"
	"github.com/rs/zerolog"

	"github.com/clinicrpm/rpm-portal/internal/core/ports"
)

// sessionSkipPaths are served without touching the session store.
var sessionSkipPaths = []string{"/health", "/metrics"}

// Session resolves the session cookie once per request and stores the
// resulting identity on the context. A store failure is logged and the
// request continues as anonymous, so guarded routes deny it.
func Session(manager ports.SessionManager, log zerolog.Logger) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			if skipSession(c.Request().URL.Path) {
				return next(c)
			}

			req := c.Request()
			id, err := manager.Resolve(req.Context(), c.Response(), req)
			if err != nil {
				log.Warn().
					Err(err).
					Str("method", req.Method).
					Str("path", c.Path()).
					Msg("session store unavailable, request treated as unauthenticated")
				return next(c)
			}
			if id != nil {
				SetIdentity(c, id)
			}
			return next(c)
		}
	}
}

func skipSession(path string) bool {
	for _, p := range sessionSkipPaths {
		if path == p || strings.HasPrefix(path, p+"/") {
			return true
		}
	}
	return false
}
