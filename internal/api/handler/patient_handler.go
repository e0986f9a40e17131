package handler

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/clinicrpm/rpm-portal/internal/core/ports"
)

// PatientHandler serves the clinic-scoped patient and reading API.
// Every operation is scoped to the caller's own account.
type PatientHandler struct {
	service ports.PatientService
}

func NewPatientHandler(service ports.PatientService) *PatientHandler {
	return &PatientHandler{service: service}
}

// List handles GET /api/patients.
//
// @Summary      List patients
// @Tags         patients
// @Produce      json
// @Success      200  {object}  patientsResponse
// @Failure      401  {object}  map[string]string
// @Router       /api/patients [get]
func (h *PatientHandler) List(c echo.Context) error {
	id, err := currentIdentity(c)
	if err != nil {
		return err
	}
	patients, err := h.service.List(c.Request().Context(), id.UserID)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, patientsResponse{Success: true, Patients: patients})
}

// Create handles POST /api/patients.
//
// @Summary      Create patient
// @Tags         patients
// @Accept       json
// @Produce      json
// @Param        body  body      patientRequest  true  "Patient"
// @Success      201   {object}  patientResponse
// @Failure      400   {object}  map[string]string
// @Router       /api/patients [post]
func (h *PatientHandler) Create(c echo.Context) error {
	id, err := currentIdentity(c)
	if err != nil {
		return err
	}
	var req patientRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid payload")
	}
	if err := c.Validate(&req); err != nil {
		return err
	}

	p, err := h.service.Create(c.Request().Context(), id.UserID, ports.PatientInput{
		Name:             req.Name,
		Age:              req.Age,
		MedicalCondition: req.MedicalCondition,
		Notes:            req.Notes,
	})
	if err != nil {
		return err
	}
	return c.JSON(http.StatusCreated, patientResponse{Success: true, Patient: p})
}

// Get handles GET /api/patients/:id.
//
// @Summary      Get patient with readings
// @Tags         patients
// @Produce      json
// @Param        id   path      int  true  "Patient ID"
// @Success      200  {object}  patientResponse
// @Failure      404  {object}  map[string]string
// @Router       /api/patients/{id} [get]
func (h *PatientHandler) Get(c echo.Context) error {
	id, err := currentIdentity(c)
	if err != nil {
		return err
	}
	patientID, err := pathID(c, "patient")
	if err != nil {
		return err
	}
	p, err := h.service.Get(c.Request().Context(), id.UserID, patientID)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, patientResponse{Success: true, Patient: p})
}

// Update handles PUT /api/patients/:id.
//
// @Summary      Update patient
// @Tags         patients
// @Accept       json
// @Produce      json
// @Param        id    path      int             true  "Patient ID"
// @Param        body  body      patientRequest  true  "Patient"
// @Success      200   {object}  messageResponse
// @Failure      404   {object}  map[string]string
// @Router       /api/patients/{id} [put]
func (h *PatientHandler) Update(c echo.Context) error {
	id, err := currentIdentity(c)
	if err != nil {
		return err
	}
	patientID, err := pathID(c, "patient")
	if err != nil {
		return err
	}
	var req patientRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid payload")
	}
	if err := c.Validate(&req); err != nil {
		return err
	}

	err = h.service.Update(c.Request().Context(), id.UserID, patientID, ports.PatientInput{
		Name:             req.Name,
		Age:              req.Age,
		MedicalCondition: req.MedicalCondition,
		Notes:            req.Notes,
	})
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, messageResponse{Success: true, Message: "Patient updated successfully"})
}

// Delete handles DELETE /api/patients/:id.
//
// @Summary      Delete patient and readings
// @Tags         patients
// @Produce      json
// @Param        id   path      int  true  "Patient ID"
// @Success      200  {object}  messageResponse
// @Failure      404  {object}  map[string]string
// @Router       /api/patients/{id} [delete]
func (h *PatientHandler) Delete(c echo.Context) error {
	id, err := currentIdentity(c)
	if err != nil {
		return err
	}
	patientID, err := pathID(c, "patient")
	if err != nil {
		return err
	}
	if err := h.service.Delete(c.Request().Context(), id.UserID, patientID); err != nil {
		return err
	}
	return c.JSON(http.StatusOK, messageResponse{Success: true, Message: "Patient and all readings deleted successfully"})
}

// AddReading handles POST /api/readings.
//
// @Summary      Record a blood-pressure reading
// @Tags         readings
// @Accept       json
// @Produce      json
// @Param        body  body      readingRequest  true  "Reading"
// @Success      201   {object}  readingResponse
// @Failure      400   {object}  map[string]string
// @Failure      403   {object}  map[string]string
// @Router       /api/readings [post]
func (h *PatientHandler) AddReading(c echo.Context) error {
	id, err := currentIdentity(c)
	if err != nil {
		return err
	}
	var req readingRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid payload")
	}
	if err := c.Validate(&req); err != nil {
		return err
	}

	r, err := h.service.AddReading(c.Request().Context(), id.UserID, ports.ReadingInput{
		PatientID: req.PatientID,
		Date:      req.Date,
		Time:      req.Time,
		Systolic:  req.Systolic,
		Diastolic: req.Diastolic,
		Notes:     req.Notes,
	})
	if err != nil {
		return err
	}
	return c.JSON(http.StatusCreated, readingResponse{Success: true, Reading: r})
}
