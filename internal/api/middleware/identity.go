package middleware

import (
	"strings"

	"github.com/labstack/echo/v4"

	"github.com/clinicrpm/rpm-portal/internal/core/domain"
)

const identityKey = "identity"

// SetIdentity stores the resolved identity on the request context.
func SetIdentity(c echo.Context, id *domain.Identity) {
	c.Set(identityKey, id)
}

// IdentityFrom returns the identity resolved by Session, or nil for anonymous requests.
func IdentityFrom(c echo.Context) *domain.Identity {
	id, _ := c.Get(identityKey).(*domain.Identity)
	return id
}

// WantsJSON reports whether the client expects a JSON response rather than a
// page navigation: XHR requests and requests whose Accept header names JSON.
func WantsJSON(c echo.Context) bool {
	req := c.Request()
	if req.Header.Get(echo.HeaderXRequestedWith) == "XMLHttpRequest" {
		return true
	}
	return strings.Contains(req.Header.Get(echo.HeaderAccept), echo.MIMEApplicationJSON)
}
