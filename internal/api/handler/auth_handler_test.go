package handler

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/rs/zerolog"

	"github.com/clinicrpm/rpm-portal/internal/api/middleware"
	"github.com/clinicrpm/rpm-portal/internal/core/domain"
	"github.com/clinicrpm/rpm-portal/internal/core/ports"
	"github.com/clinicrpm/rpm-portal/internal/core/service"
)

const cookieName = "rpm.sid"

type stubAuthService struct {
	authenticateFn func(ctx context.Context, in ports.LoginInput) (*domain.Account, error)
	calls          int
	logouts        []*domain.Identity
}

func (s *stubAuthService) Authenticate(ctx context.Context, in ports.LoginInput) (*domain.Account, error) {
	s.calls++
	return s.authenticateFn(ctx, in)
}

func (s *stubAuthService) RecordLogout(_ context.Context, id *domain.Identity, _, _ string) {
	s.logouts = append(s.logouts, id)
}

// sessionMap is a minimal in-memory session store.
type sessionMap struct {
	mu      sync.Mutex
	records map[string]domain.SessionRecord
}

func newSessionMap() *sessionMap {
	return &sessionMap{records: make(map[string]domain.SessionRecord)}
}

func (s *sessionMap) Get(_ context.Context, id string) (*domain.SessionRecord, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	r, ok := s.records[id]
	if !ok || r.Expired(time.Now()) {
		return nil, domain.ErrSessionNotFound
	}
	return &r, nil
}

func (s *sessionMap) Set(_ context.Context, id string, attrs domain.SessionAttributes, expiresAt time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.records[id] = domain.SessionRecord{ID: id, Attributes: attrs, ExpiresAt: expiresAt}
	return nil
}

func (s *sessionMap) Touch(_ context.Context, id string, lastAccess, expiresAt time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	r, ok := s.records[id]
	if !ok {
		return domain.ErrSessionNotFound
	}
	r.LastAccess, r.ExpiresAt = lastAccess, expiresAt
	s.records[id] = r
	return nil
}

func (s *sessionMap) Delete(_ context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.records, id)
	return nil
}

func (s *sessionMap) has(id string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, ok := s.records[id]
	return ok
}

// recordingRenderer captures the template name and model instead of rendering.
type recordingRenderer struct {
	name string
	data any
}

func (r *recordingRenderer) Render(_ io.Writer, name string, data any, _ echo.Context) error {
	r.name = name
	r.data = data
	return nil
}

type authFixture struct {
	e        *echo.Echo
	renderer *recordingRenderer
	store    *sessionMap
	auth     *stubAuthService
	handler  *AuthHandler
}

func newAuthFixture(account *domain.Account, authErr error) *authFixture {
	e := echo.New()
	renderer := &recordingRenderer{}
	e.Renderer = renderer
	store := newSessionMap()
	auth := &stubAuthService{authenticateFn: func(context.Context, ports.LoginInput) (*domain.Account, error) {
		return account, authErr
	}}
	sessions := service.NewSessionManager(store, service.CookieConfig{}, zerolog.Nop())
	return &authFixture{
		e:        e,
		renderer: renderer,
		store:    store,
		auth:     auth,
		handler:  NewAuthHandler(auth, sessions, zerolog.Nop()),
	}
}

func loginRequestWith(username, password string) *http.Request {
	form := url.Values{"username": {username}, "password": {password}}
	req := httptest.NewRequest(http.MethodPost, "/login", strings.NewReader(form.Encode()))
	req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationForm)
	return req
}

func responseCookie(rec *httptest.ResponseRecorder) *http.Cookie {
	for _, c := range rec.Result().Cookies() {
		if c.Name == cookieName {
			return c
		}
	}
	return nil
}

var clinicAccount = &domain.Account{ID: 7, Username: "clinic7", Role: domain.RoleClinic, ClinicName: "North Clinic"}

func TestAuthHandler_Login_Success(t *testing.T) {
	f := newAuthFixture(clinicAccount, nil)
	_ = f.store.Set(context.Background(), "pre-login", domain.SessionAttributes{UserID: 1, Username: "x", Role: domain.RoleClinic}, time.Now().Add(time.Hour))

	req := loginRequestWith("clinic7", "pass123")
	req.AddCookie(&http.Cookie{Name: cookieName, Value: "pre-login"})
	rec := httptest.NewRecorder()

	if err := f.handler.Login(f.e.NewContext(req, rec)); err != nil {
		t.Fatalf("handler returned error: %v", err)
	}
	if rec.Code != http.StatusFound || rec.Header().Get(echo.HeaderLocation) != "/dashboard" {
		t.Fatalf("expected redirect to /dashboard, got %d %q", rec.Code, rec.Header().Get(echo.HeaderLocation))
	}

	c := responseCookie(rec)
	if c == nil || c.Value == "" || c.Value == "pre-login" {
		t.Fatalf("expected a regenerated session cookie, got %+v", c)
	}
	if f.store.has("pre-login") {
		t.Fatal("expected the pre-login session to be destroyed")
	}

	r, err := f.store.Get(context.Background(), c.Value)
	if err != nil {
		t.Fatalf("expected new session in store: %v", err)
	}
	if r.Attributes.UserID != 7 || r.Attributes.ClinicName != "North Clinic" {
		t.Fatalf("unexpected session attributes: %+v", r.Attributes)
	}
}

func TestAuthHandler_Login_InvalidCredentials(t *testing.T) {
	f := newAuthFixture(nil, domain.ErrInvalidCredentials)
	rec := httptest.NewRecorder()

	if err := f.handler.Login(f.e.NewContext(loginRequestWith("ghost", "nope"), rec)); err != nil {
		t.Fatalf("handler returned error: %v", err)
	}
	if rec.Code != http.StatusOK || f.renderer.name != "login" {
		t.Fatalf("expected login page re-rendered, got %d %q", rec.Code, f.renderer.name)
	}
	page := f.renderer.data.(loginPage)
	if page.Error != "Invalid username or password" || page.Username != "ghost" {
		t.Fatalf("unexpected page model: %+v", page)
	}
	if responseCookie(rec) != nil {
		t.Fatal("expected no session cookie on failed login")
	}
}

func TestAuthHandler_Login_MalformedBodyKeepsUsername(t *testing.T) {
	f := newAuthFixture(clinicAccount, nil)
	req := httptest.NewRequest(http.MethodPost, "/login", strings.NewReader(`{"username":"clinic7","password":12345}`))
	req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	rec := httptest.NewRecorder()

	if err := f.handler.Login(f.e.NewContext(req, rec)); err != nil {
		t.Fatalf("handler returned error: %v", err)
	}
	page := f.renderer.data.(loginPage)
	if page.Error != "Invalid username or password" || page.Username != "clinic7" {
		t.Fatalf("unexpected page model: %+v", page)
	}
	if f.auth.calls != 0 {
		t.Fatalf("expected no authentication attempt, got %d", f.auth.calls)
	}
	if responseCookie(rec) != nil {
		t.Fatal("expected no session cookie on a rejected body")
	}
}

func TestAuthHandler_Login_InternalError(t *testing.T) {
	f := newAuthFixture(nil, errors.New("database is locked"))
	rec := httptest.NewRecorder()

	if err := f.handler.Login(f.e.NewContext(loginRequestWith("clinic7", "pass123"), rec)); err != nil {
		t.Fatalf("handler returned error: %v", err)
	}
	if page := f.renderer.data.(loginPage); page.Error != "Login failed. Please try again." {
		t.Fatalf("unexpected error message: %q", page.Error)
	}
}

func TestAuthHandler_Login_AlreadyAuthenticated(t *testing.T) {
	f := newAuthFixture(clinicAccount, nil)
	rec := httptest.NewRecorder()
	c := f.e.NewContext(loginRequestWith("clinic7", "pass123"), rec)
	middleware.SetIdentity(c, &domain.Identity{UserID: 7, Role: domain.RoleClinic})

	if err := f.handler.Login(c); err != nil {
		t.Fatalf("handler returned error: %v", err)
	}
	if rec.Code != http.StatusFound || f.auth.calls != 0 {
		t.Fatalf("expected redirect without authenticating, got %d (calls=%d)", rec.Code, f.auth.calls)
	}
}

func TestAuthHandler_LoginPage_Flags(t *testing.T) {
	f := newAuthFixture(nil, nil)
	req := httptest.NewRequest(http.MethodGet, "/login?sessionExpired=true&loggedOut=true&username=bob", nil)
	rec := httptest.NewRecorder()

	if err := f.handler.LoginPage(f.e.NewContext(req, rec)); err != nil {
		t.Fatalf("handler returned error: %v", err)
	}
	page := f.renderer.data.(loginPage)
	if !page.SessionExpired || !page.LoggedOut || page.Registered || page.Username != "bob" {
		t.Fatalf("unexpected page model: %+v", page)
	}
}

func TestAuthHandler_Logout_Idempotent(t *testing.T) {
	f := newAuthFixture(clinicAccount, nil)
	_ = f.store.Set(context.Background(), "sid-1", clinicAccount.SessionAttributes(), time.Now().Add(time.Hour))

	for i := 0; i < 2; i++ {
		req := httptest.NewRequest(http.MethodGet, "/logout", nil)
		req.AddCookie(&http.Cookie{Name: cookieName, Value: "sid-1"})
		rec := httptest.NewRecorder()

		if err := f.handler.Logout(f.e.NewContext(req, rec)); err != nil {
			t.Fatalf("logout #%d returned error: %v", i+1, err)
		}
		if rec.Code != http.StatusFound || rec.Header().Get(echo.HeaderLocation) != "/login?loggedOut=true" {
			t.Fatalf("logout #%d: unexpected response %d %q", i+1, rec.Code, rec.Header().Get(echo.HeaderLocation))
		}
		if c := responseCookie(rec); c == nil || c.MaxAge >= 0 {
			t.Fatalf("logout #%d: expected cleared cookie, got %+v", i+1, c)
		}
	}
	if f.store.has("sid-1") {
		t.Fatal("expected session to be destroyed")
	}
	if len(f.auth.logouts) != 2 {
		t.Fatalf("expected 2 logout audit records, got %d", len(f.auth.logouts))
	}
}

func TestAuthHandler_CheckSession(t *testing.T) {
	f := newAuthFixture(nil, nil)

	rec := httptest.NewRecorder()
	if err := f.handler.CheckSession(f.e.NewContext(httptest.NewRequest(http.MethodGet, "/api/check-session", nil), rec)); err != nil {
		t.Fatalf("handler returned error: %v", err)
	}
	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401, got %d", rec.Code)
	}
	var anon checkSessionResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &anon); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if anon.Valid || anon.Message != "No active session" {
		t.Fatalf("unexpected body: %+v", anon)
	}

	rec = httptest.NewRecorder()
	c := f.e.NewContext(httptest.NewRequest(http.MethodGet, "/api/check-session", nil), rec)
	middleware.SetIdentity(c, &domain.Identity{UserID: 7, Username: "clinic7", ClinicName: "North Clinic", Role: domain.RoleClinic})
	if err := f.handler.CheckSession(c); err != nil {
		t.Fatalf("handler returned error: %v", err)
	}
	var live checkSessionResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &live); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if !live.Valid || live.User == nil || live.User.ID != 7 || live.User.ClinicName != "North Clinic" {
		t.Fatalf("unexpected body: %+v", live)
	}
}
