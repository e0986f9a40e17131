package handler

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/clinicrpm/rpm-portal/internal/core/ports"
)

type DashboardHandler struct {
	patients ports.PatientService
}

func NewDashboardHandler(patients ports.PatientService) *DashboardHandler {
	return &DashboardHandler{patients: patients}
}

// Show renders the clinic's patients with their latest reading.
//
// @Summary      Dashboard
// @Tags         dashboard
// @Produce      html
// @Success      200
// @Router       /dashboard [get]
func (h *DashboardHandler) Show(c echo.Context) error {
	id, err := currentIdentity(c)
	if err != nil {
		return err
	}
	patients, err := h.patients.List(c.Request().Context(), id.UserID)
	if err != nil {
		return err
	}
	return c.Render(http.StatusOK, "dashboard", dashboardPage{User: id, Patients: patients})
}
