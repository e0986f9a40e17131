package handler

import (
	"errors"
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/rs/zerolog"

	"github.com/clinicrpm/rpm-portal/internal/api/middleware"
	"github.com/clinicrpm/rpm-portal/internal/core/domain"
	"github.com/clinicrpm/rpm-portal/internal/core/ports"
)

const (
	msgInvalidCredentials = "Invalid username or password"
	msgLoginFailed        = "Login failed. Please try again."
	msgNoActiveSession    = "No active session"
)

// AuthHandler serves the login/logout flow and the session probe.
type AuthHandler struct {
	authService ports.AuthService
	sessions    ports.SessionManager
	log         zerolog.Logger
}

func NewAuthHandler(authService ports.AuthService, sessions ports.SessionManager, log zerolog.Logger) *AuthHandler {
	return &AuthHandler{authService: authService, sessions: sessions, log: log}
}

// LoginPage renders the login form.
//
// @Summary      Login page
// @Tags         auth
// @Produce      html
// @Param        error           query  string  false  "Error message to display"
// @Param        registered      query  bool    false  "Show account-created notice"
// @Param        loggedOut       query  bool    false  "Show logged-out notice"
// @Param        sessionExpired  query  bool    false  "Show session-expired notice"
// @Param        username        query  string  false  "Prefill username"
// @Success      200
// @Success      302  "Already authenticated; redirect to /dashboard"
// @Router       /login [get]
func (h *AuthHandler) LoginPage(c echo.Context) error {
	if middleware.IdentityFrom(c) != nil {
		return c.Redirect(http.StatusFound, "/dashboard")
	}
	return c.Render(http.StatusOK, "login", loginPage{
		Error:          c.QueryParam("error"),
		Registered:     c.QueryParam("registered") == "true",
		LoggedOut:      c.QueryParam("loggedOut") == "true",
		SessionExpired: c.QueryParam("sessionExpired") == "true",
		Username:       c.QueryParam("username"),
	})
}

// Login verifies credentials and establishes a fresh session.
//
// @Summary      Login
// @Tags         auth
// @Accept       x-www-form-urlencoded
// @Produce      html
// @Param        username  formData  string  true  "Username"
// @Param        password  formData  string  true  "Password"
// @Success      302  "Redirect to /dashboard"
// @Failure      200  "Login form re-rendered with an error"
// @Router       /login [post]
func (h *AuthHandler) Login(c echo.Context) error {
	if middleware.IdentityFrom(c) != nil {
		return c.Redirect(http.StatusFound, "/dashboard")
	}

	var req loginRequest
	if err := c.Bind(&req); err != nil {
		return c.Render(http.StatusOK, "login", loginPage{Error: msgInvalidCredentials, Username: req.Username})
	}

	ctx := c.Request().Context()
	account, err := h.authService.Authenticate(ctx, ports.LoginInput{
		Username:  req.Username,
		Password:  req.Password,
		RemoteIP:  c.RealIP(),
		RequestID: requestID(c),
	})
	if err != nil {
		msg := msgLoginFailed
		if errors.Is(err, domain.ErrInvalidCredentials) {
			msg = msgInvalidCredentials
		} else {
			h.log.Error().Err(err).Str("request_id", requestID(c)).Msg("login lookup failed")
		}
		return c.Render(http.StatusOK, "login", loginPage{Error: msg, Username: req.Username})
	}

	if _, err := h.sessions.Establish(ctx, c.Response(), c.Request(), account.SessionAttributes()); err != nil {
		h.log.Error().Err(err).Int64("user_id", account.ID).Msg("session establish failed")
		return c.Render(http.StatusOK, "login", loginPage{Error: msgLoginFailed, Username: req.Username})
	}

	return c.Redirect(http.StatusFound, "/dashboard")
}

// Logout destroys the current session.
//
// @Summary      Logout
// @Tags         auth
// @Success      302  "Redirect to /login?loggedOut=true"
// @Router       /logout [get]
func (h *AuthHandler) Logout(c echo.Context) error {
	req := c.Request()
	if err := h.sessions.Terminate(req.Context(), c.Response(), h.sessions.SessionID(req)); err != nil {
		h.log.Warn().Err(err).Msg("session terminate failed")
	}
	h.authService.RecordLogout(req.Context(), middleware.IdentityFrom(c), c.RealIP(), requestID(c))
	return c.Redirect(http.StatusFound, "/login?loggedOut=true")
}

// CheckSession reports whether the request carries a live session.
//
// @Summary      Check session
// @Tags         auth
// @Produce      json
// @Success      200  {object}  checkSessionResponse
// @Failure      401  {object}  checkSessionResponse
// @Router       /api/check-session [get]
func (h *AuthHandler) CheckSession(c echo.Context) error {
	id := middleware.IdentityFrom(c)
	if id == nil {
		return c.JSON(http.StatusUnauthorized, checkSessionResponse{Message: msgNoActiveSession})
	}
	return c.JSON(http.StatusOK, checkSessionResponse{
		Valid: true,
		User: &sessionUser{
			ID:         id.UserID,
			Username:   id.Username,
			ClinicName: id.ClinicName,
		},
	})
}
