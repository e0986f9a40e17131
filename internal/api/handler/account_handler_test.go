package handler

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"

	"github.com/labstack/echo/v4"

	"github.com/clinicrpm/rpm-portal/internal/api/middleware"
	"github.com/clinicrpm/rpm-portal/internal/core/domain"
	"github.com/clinicrpm/rpm-portal/internal/core/ports"
)

type stubAccountService struct {
	createFn func(ctx context.Context, in ports.AccountInput) (*domain.Account, error)
	updateFn func(ctx context.Context, id int64, in ports.AccountInput) error
	deleteFn func(ctx context.Context, actorID, id int64) error
}

func (s *stubAccountService) List(context.Context) ([]*domain.Account, error) {
	return []*domain.Account{{ID: 1, Username: "admin", Role: domain.RoleAdmin}}, nil
}

func (s *stubAccountService) Get(_ context.Context, id int64) (*domain.Account, error) {
	if id != 1 {
		return nil, domain.ErrAccountNotFound
	}
	return &domain.Account{ID: 1, Username: "admin", PasswordHash: "$2a$10$secret", Role: domain.RoleAdmin}, nil
}

func (s *stubAccountService) Create(ctx context.Context, in ports.AccountInput) (*domain.Account, error) {
	return s.createFn(ctx, in)
}

func (s *stubAccountService) Update(ctx context.Context, id int64, in ports.AccountInput) error {
	return s.updateFn(ctx, id, in)
}

func (s *stubAccountService) Delete(ctx context.Context, actorID, id int64) error {
	return s.deleteFn(ctx, actorID, id)
}

var adminIdentity = &domain.Identity{UserID: 1, Username: "admin", Role: domain.RoleAdmin, ClinicName: "HQ"}

func newAdminContext(e *echo.Echo, req *http.Request, rec *httptest.ResponseRecorder) echo.Context {
	c := e.NewContext(req, rec)
	middleware.SetIdentity(c, adminIdentity)
	return c
}

func TestAccountHandler_Create_FlashRedirects(t *testing.T) {
	cases := []struct {
		name     string
		err      error
		location string
	}{
		{name: "success", location: "/account-manager?success=Account+created+successfully"},
		{name: "duplicate", err: domain.ErrAccountExists, location: "/account-manager?error=Username+already+exists"},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			var got ports.AccountInput
			svc := &stubAccountService{createFn: func(_ context.Context, in ports.AccountInput) (*domain.Account, error) {
				got = in
				if tc.err != nil {
					return nil, tc.err
				}
				return &domain.Account{ID: 2}, nil
			}}
			e := echo.New()
			form := url.Values{"clinicName": {"South"}, "username": {"south"}, "password": {"secret1"}, "role": {"clinic"}}
			req := httptest.NewRequest(http.MethodPost, "/account-manager", strings.NewReader(form.Encode()))
			req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationForm)
			rec := httptest.NewRecorder()

			if err := NewAccountHandler(svc).Create(newAdminContext(e, req, rec)); err != nil {
				t.Fatalf("handler returned error: %v", err)
			}
			if rec.Code != http.StatusFound || rec.Header().Get(echo.HeaderLocation) != tc.location {
				t.Fatalf("unexpected redirect %d %q", rec.Code, rec.Header().Get(echo.HeaderLocation))
			}
			if got.Username != "south" || got.Role != domain.RoleClinic {
				t.Fatalf("unexpected input: %+v", got)
			}
		})
	}
}

func TestAccountHandler_Get_OmitsPasswordHash(t *testing.T) {
	e := echo.New()
	req := httptest.NewRequest(http.MethodGet, "/account-manager/1", nil)
	rec := httptest.NewRecorder()
	c := newAdminContext(e, req, rec)
	c.SetParamNames("id")
	c.SetParamValues("1")

	if err := NewAccountHandler(&stubAccountService{}).Get(c); err != nil {
		t.Fatalf("handler returned error: %v", err)
	}
	if strings.Contains(rec.Body.String(), "secret") || strings.Contains(rec.Body.String(), "password") {
		t.Fatalf("expected no password material in response: %s", rec.Body.String())
	}
}

func TestAccountHandler_Update_Validation(t *testing.T) {
	e := echo.New()
	e.Validator = NewValidator()
	req := httptest.NewRequest(http.MethodPut, "/account-manager/2", strings.NewReader(`{"clinicName":"South","username":"south","role":"owner"}`))
	req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	rec := httptest.NewRecorder()
	c := newAdminContext(e, req, rec)
	c.SetParamNames("id")
	c.SetParamValues("2")

	svc := &stubAccountService{updateFn: func(context.Context, int64, ports.AccountInput) error {
		t.Fatal("service must not be called with invalid input")
		return nil
	}}
	err := NewAccountHandler(svc).Update(c)

	var he *echo.HTTPError
	if !errors.As(err, &he) || he.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 HTTPError, got %v", err)
	}
	if !strings.Contains(he.Message.(string), "role must be one of") {
		t.Fatalf("unexpected message: %v", he.Message)
	}
}

func TestAccountHandler_Delete_PassesActor(t *testing.T) {
	e := echo.New()
	req := httptest.NewRequest(http.MethodDelete, "/account-manager/1", nil)
	rec := httptest.NewRecorder()
	c := newAdminContext(e, req, rec)
	c.SetParamNames("id")
	c.SetParamValues("1")

	svc := &stubAccountService{deleteFn: func(_ context.Context, actorID, id int64) error {
		if actorID == id {
			return domain.ErrSelfDelete
		}
		return nil
	}}
	if err := NewAccountHandler(svc).Delete(c); !errors.Is(err, domain.ErrSelfDelete) {
		t.Fatalf("expected ErrSelfDelete, got %v", err)
	}
}

func TestAccountHandler_InvalidID(t *testing.T) {
	e := echo.New()
	req := httptest.NewRequest(http.MethodDelete, "/account-manager/abc", nil)
	c := newAdminContext(e, req, httptest.NewRecorder())
	c.SetParamNames("id")
	c.SetParamValues("abc")

	err := NewAccountHandler(&stubAccountService{}).Delete(c)
	var he *echo.HTTPError
	if !errors.As(err, &he) || he.Code != http.StatusBadRequest || he.Message != "Invalid account ID" {
		t.Fatalf("expected 400 Invalid account ID, got %v", err)
	}
}
