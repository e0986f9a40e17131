package handler

import (
	"errors"
	"net/http"
	"net/url"

	"github.com/labstack/echo/v4"

	"github.com/clinicrpm/rpm-portal/internal/core/domain"
	"github.com/clinicrpm/rpm-portal/internal/core/ports"
)

const accountManagerURL = "/account-manager"

// AccountHandler serves the admin account manager.
type AccountHandler struct {
	service ports.AccountService
}

func NewAccountHandler(service ports.AccountService) *AccountHandler {
	return &AccountHandler{service: service}
}

// Page renders the account list.
//
// @Summary      Account manager
// @Tags         accounts
// @Produce      html
// @Param        success  query  string  false  "Success flash message"
// @Param        error    query  string  false  "Error flash message"
// @Success      200
// @Router       /account-manager [get]
func (h *AccountHandler) Page(c echo.Context) error {
	id, err := currentIdentity(c)
	if err != nil {
		return err
	}
	accounts, err := h.service.List(c.Request().Context())
	if err != nil {
		return err
	}
	return c.Render(http.StatusOK, "account-manager", accountManagerPage{
		User:     id,
		Accounts: accounts,
		Success:  c.QueryParam("success"),
		Error:    c.QueryParam("error"),
	})
}

// Get returns one account for editing. The password hash is never serialized.
//
// @Summary      Get account
// @Tags         accounts
// @Produce      json
// @Param        id   path      int  true  "Account ID"
// @Success      200  {object}  domain.Account
// @Failure      400  {object}  map[string]string
// @Failure      404  {object}  map[string]string
// @Router       /account-manager/{id} [get]
func (h *AccountHandler) Get(c echo.Context) error {
	id, err := pathID(c, "account")
	if err != nil {
		return err
	}
	account, err := h.service.Get(c.Request().Context(), id)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, account)
}

// Create adds an account from the manager form and redirects back with a flash message.
//
// @Summary      Create account
// @Tags         accounts
// @Accept       x-www-form-urlencoded
// @Param        clinicName  formData  string  true  "Clinic name"
// @Param        username    formData  string  true  "Username"
// @Param        password    formData  string  true  "Password (min 6 characters)"
// @Param        role        formData  string  false "clinic or admin"
// @Success      302
// @Router       /account-manager [post]
func (h *AccountHandler) Create(c echo.Context) error {
	var req accountRequest
	if err := c.Bind(&req); err != nil {
		return redirectFlash(c, "error", "Invalid form submission")
	}

	_, err := h.service.Create(c.Request().Context(), ports.AccountInput{
		ClinicName: req.ClinicName,
		Username:   req.Username,
		Password:   req.Password,
		Role:       domain.Role(req.Role),
	})
	if err != nil {
		if !isAccountInputError(err) {
			return err
		}
		return redirectFlash(c, "error", accountErrorMessage(err))
	}
	return redirectFlash(c, "success", "Account created successfully")
}

// Update rewrites an account. An empty password keeps the current one.
//
// @Summary      Update account
// @Tags         accounts
// @Accept       json
// @Produce      json
// @Param        id    path      int             true  "Account ID"
// @Param        body  body      accountRequest  true  "Account fields"
// @Success      200   {object}  messageResponse
// @Failure      400   {object}  map[string]string
// @Failure      404   {object}  map[string]string
// @Failure      409   {object}  map[string]string
// @Router       /account-manager/{id} [put]
func (h *AccountHandler) Update(c echo.Context) error {
	id, err := pathID(c, "account")
	if err != nil {
		return err
	}
	var req accountRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid payload")
	}
	if err := c.Validate(&req); err != nil {
		return err
	}

	err = h.service.Update(c.Request().Context(), id, ports.AccountInput{
		ClinicName: req.ClinicName,
		Username:   req.Username,
		Password:   req.Password,
		Role:       domain.Role(req.Role),
	})
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, messageResponse{Success: true, Message: "Account updated successfully"})
}

// Delete removes an account. Admins cannot delete themselves or the last admin.
//
// @Summary      Delete account
// @Tags         accounts
// @Produce      json
// @Param        id   path      int  true  "Account ID"
// @Success      200  {object}  messageResponse
// @Failure      400  {object}  map[string]string
// @Failure      404  {object}  map[string]string
// @Failure      409  {object}  map[string]string
// @Router       /account-manager/{id} [delete]
func (h *AccountHandler) Delete(c echo.Context) error {
	actor, err := currentIdentity(c)
	if err != nil {
		return err
	}
	id, err := pathID(c, "account")
	if err != nil {
		return err
	}
	if err := h.service.Delete(c.Request().Context(), actor.UserID, id); err != nil {
		return err
	}
	return c.JSON(http.StatusOK, messageResponse{Success: true, Message: "Account deleted successfully"})
}

func redirectFlash(c echo.Context, kind, msg string) error {
	return c.Redirect(http.StatusFound, accountManagerURL+"?"+kind+"="+url.QueryEscape(msg))
}

func isAccountInputError(err error) bool {
	return errors.Is(err, domain.ErrAccountExists) || errors.Is(err, domain.ErrInvalidAccount)
}

func accountErrorMessage(err error) string {
	if errors.Is(err, domain.ErrAccountExists) {
		return "Username already exists"
	}
	return err.Error()
}
