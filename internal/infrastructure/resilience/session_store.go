// Package resilience wraps infrastructure dependencies with circuit breakers.
package resilience

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/rs/zerolog"
	"github.com/sony/gobreaker"

	"github.com/clinicrpm/rpm-portal/internal/api/metrics"
	"github.com/clinicrpm/rpm-portal/internal/core/domain"
	"github.com/clinicrpm/rpm-portal/internal/core/ports"
)

const (
	defaultMaxFailures = 5
	defaultOpenTimeout = 10 * time.Second
	halfOpenRequests   = 1
)

// BreakerConfig controls when the session store breaker opens.
type BreakerConfig struct {
	// MaxFailures is the number of consecutive failures that trips the breaker.
	MaxFailures uint32
	// OpenTimeout is how long the breaker stays open before probing again.
	OpenTimeout time.Duration
}

// SessionStore decorates a ports.SessionStore with a circuit breaker. While the
// breaker is open every call fails immediately with domain.ErrStoreUnavailable,
// which the session layer treats as "not authenticated".
type SessionStore struct {
	next ports.SessionStore
	cb   *gobreaker.CircuitBreaker
}

func NewSessionStore(next ports.SessionStore, cfg BreakerConfig, log zerolog.Logger) *SessionStore {
	if cfg.MaxFailures == 0 {
		cfg.MaxFailures = defaultMaxFailures
	}
	if cfg.OpenTimeout <= 0 {
		cfg.OpenTimeout = defaultOpenTimeout
	}

	cb := gobreaker.NewCircuitBreaker(gobreaker.Settings{
		Name:        "session-store",
		MaxRequests: halfOpenRequests,
		Timeout:     cfg.OpenTimeout,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= cfg.MaxFailures
		},
		IsSuccessful: isSuccessful,
		OnStateChange: func(name string, from, to gobreaker.State) {
			metrics.SessionStoreBreakerState.Set(float64(to))
			log.Warn().Str("breaker", name).Str("from", from.String()).Str("to", to.String()).
				Msg("session store breaker state changed")
		},
	})
	return &SessionStore{next: next, cb: cb}
}

// State reports the current breaker state.
func (s *SessionStore) State() gobreaker.State { return s.cb.State() }

func (s *SessionStore) Get(ctx context.Context, id string) (*domain.SessionRecord, error) {
	v, err := s.cb.Execute(func() (any, error) {
		return s.next.Get(ctx, id)
	})
	if err != nil {
		return nil, s.fail("get", err)
	}
	return v.(*domain.SessionRecord), nil
}

func (s *SessionStore) Set(ctx context.Context, id string, attrs domain.SessionAttributes, expiresAt time.Time) error {
	_, err := s.cb.Execute(func() (any, error) {
		return nil, s.next.Set(ctx, id, attrs, expiresAt)
	})
	return s.fail("set", err)
}

func (s *SessionStore) Touch(ctx context.Context, id string, lastAccess, expiresAt time.Time) error {
	_, err := s.cb.Execute(func() (any, error) {
		return nil, s.next.Touch(ctx, id, lastAccess, expiresAt)
	})
	return s.fail("touch", err)
}

func (s *SessionStore) Delete(ctx context.Context, id string) error {
	_, err := s.cb.Execute(func() (any, error) {
		return nil, s.next.Delete(ctx, id)
	})
	return s.fail("delete", err)
}

func (s *SessionStore) DeleteByUser(ctx context.Context, userID int64) (int64, error) {
	v, err := s.cb.Execute(func() (any, error) {
		return s.next.DeleteByUser(ctx, userID)
	})
	if err != nil {
		return 0, s.fail("delete_by_user", err)
	}
	return v.(int64), nil
}

func (s *SessionStore) SweepExpired(ctx context.Context) (int64, error) {
	v, err := s.cb.Execute(func() (any, error) {
		return s.next.SweepExpired(ctx)
	})
	if err != nil {
		return 0, s.fail("sweep", err)
	}
	return v.(int64), nil
}

func (s *SessionStore) fail(op string, err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
		return fmt.Errorf("session store %s: %w: %w", op, domain.ErrStoreUnavailable, err)
	}
	if !isSuccessful(err) {
		metrics.SessionStoreErrorsTotal.WithLabelValues(op).Inc()
	}
	return err
}

// isSuccessful reports whether err is an expected outcome rather than a
// backend failure. Misses and rejected attributes do not trip the breaker.
func isSuccessful(err error) bool {
	return err == nil ||
		errors.Is(err, domain.ErrSessionNotFound) ||
		errors.Is(err, domain.ErrInvalidSessionAttributes)
}
