package api

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/labstack/echo/v4"
	"github.com/rs/zerolog"

	"github.com/clinicrpm/rpm-portal/internal/core/domain"
)

func runErrorHandler(t *testing.T, err error, debug bool) (int, errorResponse) {
	t.Helper()
	e := echo.New()
	req := httptest.NewRequest(http.MethodPost, "/api/patients", nil)
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)

	NewHTTPErrorHandler(zerolog.Nop(), debug)(err, c)

	var body errorResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &body); err != nil {
		t.Fatalf("decode: %v (%s)", err, rec.Body.String())
	}
	return rec.Code, body
}

func TestHTTPErrorHandler_DomainErrors(t *testing.T) {
	cases := []struct {
		err    error
		status int
		msg    string
	}{
		{domain.ErrUnauthorized, http.StatusUnauthorized, "Session expired. Please login again."},
		{domain.ErrPatientNotAuthorized, http.StatusForbidden, "Patient not found or not authorized"},
		{domain.ErrForbidden, http.StatusForbidden, "Access denied"},
		{fmt.Errorf("get patient: %w", domain.ErrPatientNotFound), http.StatusNotFound, "Patient not found"},
		{fmt.Errorf("update account: %w", domain.ErrAccountNotFound), http.StatusNotFound, "Account not found"},
		{domain.ErrAccountExists, http.StatusConflict, "Username already exists"},
		{fmt.Errorf("delete account: %w", domain.ErrLastAdmin), http.StatusConflict, "Cannot remove the last admin account"},
		{domain.ErrSelfDelete, http.StatusBadRequest, "Cannot delete your own account"},
		{fmt.Errorf("%w: age must be between 1-120", domain.ErrInvalidPatient), http.StatusBadRequest, "invalid patient: age must be between 1-120"},
		{fmt.Errorf("list patients: %w", domain.ErrStoreUnavailable), http.StatusServiceUnavailable, "Service temporarily unavailable"},
		{echo.NewHTTPError(http.StatusBadRequest, "Invalid patient ID"), http.StatusBadRequest, "Invalid patient ID"},
		{errors.New("boom"), http.StatusInternalServerError, "internal server error"},
	}

	for _, tc := range cases {
		t.Run(tc.msg, func(t *testing.T) {
			status, body := runErrorHandler(t, tc.err, false)
			if status != tc.status {
				t.Fatalf("expected %d, got %d", tc.status, status)
			}
			if body.Success || body.Error != tc.msg || body.Detail != "" {
				t.Fatalf("unexpected body: %+v", body)
			}
		})
	}
}

func TestHTTPErrorHandler_DebugDetail(t *testing.T) {
	_, body := runErrorHandler(t, errors.New("sql: connection refused"), true)
	if body.Detail != "sql: connection refused" {
		t.Fatalf("expected detail in debug mode, got %+v", body)
	}

	_, body = runErrorHandler(t, domain.ErrAccountExists, true)
	if body.Detail != "" {
		t.Fatalf("expected no detail for client errors, got %+v", body)
	}
}
