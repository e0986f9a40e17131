package service

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	gonanoid "github.com/matoous/go-nanoid/v2"
	"github.com/rs/zerolog"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"

	"github.com/clinicrpm/rpm-portal/internal/api/metrics"
	"github.com/clinicrpm/rpm-portal/internal/core/domain"
)

const (
	defaultCookieName = "rpm.sid"
	defaultWindow     = 30 * time.Minute
	sessionIDLength   = 32
)

var tracer = otel.Tracer("github.com/clinicrpm/rpm-portal/internal/core/service")

// CookieConfig controls the session cookie written by SessionManager.
type CookieConfig struct {
	Name   string
	Domain string
	Secure bool
	// Window is both the sliding inactivity timeout and the cookie Max-Age.
	Window time.Duration
}

// SessionStore is the subset of ports.SessionStore the manager depends on.
type SessionStore interface {
	Get(ctx context.Context, id string) (*domain.SessionRecord, error)
	Set(ctx context.Context, id string, attrs domain.SessionAttributes, expiresAt time.Time) error
	Touch(ctx context.Context, id string, lastAccess, expiresAt time.Time) error
	Delete(ctx context.Context, id string) error
}

// SessionManager implements ports.SessionManager on top of a SessionStore.
type SessionManager struct {
	store  SessionStore
	cookie CookieConfig
	log    zerolog.Logger

	now   func() time.Time
	newID func() (string, error)
}

func NewSessionManager(store SessionStore, cookie CookieConfig, log zerolog.Logger) *SessionManager {
	if cookie.Name == "" {
		cookie.Name = defaultCookieName
	}
	if cookie.Window <= 0 {
		cookie.Window = defaultWindow
	}
	return &SessionManager{
		store:  store,
		cookie: cookie,
		log:    log,
		now:    time.Now,
		newID:  func() (string, error) { return gonanoid.New(sessionIDLength) },
	}
}

// Window returns the configured inactivity window.
func (m *SessionManager) Window() time.Duration { return m.cookie.Window }

func (m *SessionManager) SessionID(r *http.Request) string {
	c, err := r.Cookie(m.cookie.Name)
	if err != nil {
		return ""
	}
	return c.Value
}

// Resolve looks up the session bound to the request cookie and slides its expiry.
//
// A missing, unknown or expired session yields (nil, nil) and clears the cookie.
// A store failure yields an error wrapping domain.ErrStoreUnavailable; the cookie
// is left alone since the session may still be valid once the store recovers.
func (m *SessionManager) Resolve(ctx context.Context, w http.ResponseWriter, r *http.Request) (*domain.Identity, error) {
	id := m.SessionID(r)
	if id == "" {
		metrics.SessionResolutionsTotal.WithLabelValues("anonymous").Inc()
		return nil, nil
	}

	ctx, span := tracer.Start(ctx, "session.resolve")
	defer span.End()

	rec, err := m.store.Get(ctx, id)
	if errors.Is(err, domain.ErrSessionNotFound) {
		m.clearCookie(w)
		metrics.SessionResolutionsTotal.WithLabelValues("miss").Inc()
		return nil, nil
	}
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "store get failed")
		metrics.SessionResolutionsTotal.WithLabelValues("error").Inc()
		return nil, fmt.Errorf("resolve session: %w", asStoreUnavailable(err))
	}

	now := m.now()
	if rec.Expired(now) {
		m.clearCookie(w)
		metrics.SessionResolutionsTotal.WithLabelValues("expired").Inc()
		return nil, nil
	}

	expiresAt := now.Add(m.cookie.Window)
	err = m.store.Touch(context.WithoutCancel(ctx), id, now, expiresAt)
	if errors.Is(err, domain.ErrSessionNotFound) {
		// Swept or logged out between Get and Touch.
		m.clearCookie(w)
		metrics.SessionResolutionsTotal.WithLabelValues("expired").Inc()
		return nil, nil
	}
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "store touch failed")
		metrics.SessionResolutionsTotal.WithLabelValues("error").Inc()
		return nil, fmt.Errorf("refresh session: %w", asStoreUnavailable(err))
	}

	m.setCookie(w, id)
	metrics.SessionResolutionsTotal.WithLabelValues("hit").Inc()
	span.SetAttributes(attribute.String("session.role", string(rec.Attributes.Role)))
	return domain.IdentityFromRecord(rec), nil
}

// Establish regenerates the session: the record bound to the incoming cookie is
// deleted and a new id carrying attrs is issued.
func (m *SessionManager) Establish(ctx context.Context, w http.ResponseWriter, r *http.Request, attrs domain.SessionAttributes) (string, error) {
	ctx, span := tracer.Start(ctx, "session.establish")
	defer span.End()

	if err := attrs.Validate(); err != nil {
		span.RecordError(err)
		return "", fmt.Errorf("establish session: %w: %w", domain.ErrSessionIntegrity, err)
	}

	ctx = context.WithoutCancel(ctx)
	if old := m.SessionID(r); old != "" {
		if err := m.store.Delete(ctx, old); err != nil {
			span.RecordError(err)
			span.SetStatus(codes.Error, "delete previous session failed")
			return "", fmt.Errorf("establish session: %w: %w", domain.ErrSessionIntegrity, err)
		}
	}

	id, err := m.newID()
	if err != nil {
		span.RecordError(err)
		return "", fmt.Errorf("establish session: generate id: %w: %w", domain.ErrSessionIntegrity, err)
	}

	if err := m.store.Set(ctx, id, attrs, m.now().Add(m.cookie.Window)); err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "store set failed")
		return "", fmt.Errorf("establish session: %w: %w", domain.ErrSessionIntegrity, err)
	}

	m.setCookie(w, id)
	return id, nil
}

// Terminate deletes the session and clears the cookie. The cookie is cleared even
// when the delete fails; the returned error is informational.
func (m *SessionManager) Terminate(ctx context.Context, w http.ResponseWriter, sessionID string) error {
	m.clearCookie(w)
	if sessionID == "" {
		return nil
	}

	ctx, span := tracer.Start(ctx, "session.terminate")
	defer span.End()

	if err := m.store.Delete(context.WithoutCancel(ctx), sessionID); err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "store delete failed")
		return fmt.Errorf("terminate session: %w: %w", domain.ErrSessionIntegrity, err)
	}
	return nil
}

func (m *SessionManager) setCookie(w http.ResponseWriter, id string) {
	http.SetCookie(w, &http.Cookie{
		Name:     m.cookie.Name,
		Value:    id,
		Path:     "/",
		Domain:   m.cookie.Domain,
		MaxAge:   int(m.cookie.Window / time.Second),
		Expires:  m.now().Add(m.cookie.Window),
		Secure:   m.cookie.Secure,
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
	})
}

func (m *SessionManager) clearCookie(w http.ResponseWriter) {
	http.SetCookie(w, &http.Cookie{
		Name:     m.cookie.Name,
		Value:    "",
		Path:     "/",
		Domain:   m.cookie.Domain,
		MaxAge:   -1,
		Expires:  time.Unix(0, 0),
		Secure:   m.cookie.Secure,
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
	})
}

func asStoreUnavailable(err error) error {
	if errors.Is(err, domain.ErrStoreUnavailable) {
		return err
	}
	return fmt.Errorf("%w: %w", domain.ErrStoreUnavailable, err)
}
