package api

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/labstack/echo/v4"
	"github.com/rs/zerolog"

	"github.com/clinicrpm/rpm-portal/internal/core/domain"
	"github.com/clinicrpm/rpm-portal/internal/core/ports"
	"github.com/clinicrpm/rpm-portal/internal/infrastructure/http/handlers"
)

type fixedSessions struct {
	identity *domain.Identity
	err      error
}

func (s *fixedSessions) Resolve(context.Context, http.ResponseWriter, *http.Request) (*domain.Identity, error) {
	return s.identity, s.err
}

func (s *fixedSessions) Establish(context.Context, http.ResponseWriter, *http.Request, domain.SessionAttributes) (string, error) {
	return "sid", nil
}

func (s *fixedSessions) Terminate(context.Context, http.ResponseWriter, string) error { return nil }

func (s *fixedSessions) SessionID(*http.Request) string { return "" }

type emptyPatients struct{ ports.PatientService }

func (emptyPatients) List(context.Context, int64) ([]*domain.Patient, error) {
	return []*domain.Patient{}, nil
}

type emptyAccounts struct{ ports.AccountService }

func (emptyAccounts) List(context.Context) ([]*domain.Account, error) {
	return []*domain.Account{}, nil
}

type nopRenderer struct{ last string }

func (r *nopRenderer) Render(_ io.Writer, name string, _ any, _ echo.Context) error {
	r.last = name
	return nil
}

func newTestRouter(sessions *fixedSessions) (*echo.Echo, *nopRenderer) {
	renderer := &nopRenderer{}
	e := NewRouter(Deps{
		Log:      zerolog.Nop(),
		Renderer: renderer,
		Sessions: sessions,
		Patients: emptyPatients{},
		Accounts: emptyAccounts{},
		Checks: map[string]handlers.Check{
			"sql": func(context.Context) error { return nil },
		},
	})
	return e, renderer
}

func serve(e *echo.Echo, method, path string, asJSON bool) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, path, nil)
	if asJSON {
		req.Header.Set(echo.HeaderAccept, echo.MIMEApplicationJSON)
	}
	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, req)
	return rec
}

var (
	clinicID = &domain.Identity{UserID: 7, Username: "clinic7", Role: domain.RoleClinic, SessionID: "s1"}
	adminID  = &domain.Identity{UserID: 1, Username: "admin", Role: domain.RoleAdmin, SessionID: "s2"}
)

func TestRouter_Guards(t *testing.T) {
	cases := []struct {
		name     string
		identity *domain.Identity
		err      error
		path     string
		asJSON   bool
		status   int
		location string
		body     string
	}{
		{name: "anonymous api", path: "/api/patients", asJSON: true, status: http.StatusUnauthorized, body: "Session expired. Please login again."},
		{name: "anonymous page", path: "/dashboard", status: http.StatusFound, location: "/login?sessionExpired=true"},
		{name: "store down api", err: domain.ErrStoreUnavailable, path: "/api/patients", asJSON: true, status: http.StatusUnauthorized},
		{name: "clinic on admin api", identity: clinicID, path: "/account-manager", asJSON: true, status: http.StatusForbidden, body: "Access denied"},
		{name: "clinic on admin page", identity: clinicID, path: "/account-manager", status: http.StatusFound, location: "/dashboard"},
		{name: "anonymous on admin api", path: "/account-manager", asJSON: true, status: http.StatusUnauthorized},
		{name: "admin on admin page", identity: adminID, path: "/account-manager", status: http.StatusOK},
		{name: "clinic on api", identity: clinicID, path: "/api/patients", asJSON: true, status: http.StatusOK},
		{name: "admin satisfies clinic routes", identity: adminID, path: "/dashboard", status: http.StatusOK},
		{name: "root redirects", identity: clinicID, path: "/", status: http.StatusFound, location: "/dashboard"},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			e, _ := newTestRouter(&fixedSessions{identity: tc.identity, err: tc.err})
			rec := serve(e, http.MethodGet, tc.path, tc.asJSON)

			if rec.Code != tc.status {
				t.Fatalf("expected %d, got %d (%s)", tc.status, rec.Code, rec.Body.String())
			}
			if tc.location != "" && rec.Header().Get(echo.HeaderLocation) != tc.location {
				t.Fatalf("expected Location %q, got %q", tc.location, rec.Header().Get(echo.HeaderLocation))
			}
			if tc.body != "" {
				var body errorResponse
				if err := json.Unmarshal(rec.Body.Bytes(), &body); err != nil {
					t.Fatalf("decode: %v", err)
				}
				if body.Success || body.Error != tc.body {
					t.Fatalf("unexpected body: %+v", body)
				}
			}
		})
	}
}

func TestRouter_HealthSkipsSession(t *testing.T) {
	e, _ := newTestRouter(&fixedSessions{err: errors.New("must not be consulted")})

	if rec := serve(e, http.MethodGet, "/health", true); rec.Code != http.StatusOK {
		t.Fatalf("expected 200 from liveness, got %d", rec.Code)
	}
	if rec := serve(e, http.MethodGet, "/health/ready", true); rec.Code != http.StatusOK {
		t.Fatalf("expected 200 from readiness, got %d", rec.Code)
	}
}

func TestRouter_CheckSessionIsUnguarded(t *testing.T) {
	e, _ := newTestRouter(&fixedSessions{})
	if rec := serve(e, http.MethodGet, "/api/check-session", true); rec.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401, got %d", rec.Code)
	}

	e, _ = newTestRouter(&fixedSessions{identity: clinicID})
	if rec := serve(e, http.MethodGet, "/api/check-session", true); rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
}

func TestRouter_UnknownRouteRendersErrorPage(t *testing.T) {
	e, renderer := newTestRouter(&fixedSessions{})
	rec := serve(e, http.MethodGet, "/nowhere", false)
	if rec.Code != http.StatusNotFound || renderer.last != "error" {
		t.Fatalf("expected 404 error page, got %d (template %q)", rec.Code, renderer.last)
	}
}
