package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"go.opentelemetry.io/otel/codes"
	"golang.org/x/crypto/bcrypt"

	"github.com/clinicrpm/rpm-portal/internal/api/metrics"
	"github.com/clinicrpm/rpm-portal/internal/core/domain"
	"github.com/clinicrpm/rpm-portal/internal/core/ports"
)

// AuthService verifies credentials against the account repository and
// records every outcome to the audit trail.
type AuthService struct {
	repo  ports.AccountRepository
	audit ports.AuditRecorder
	log   zerolog.Logger
	now   func() time.Time

	// dummyHash is compared against when the username is unknown so that both
	// failure paths pay for one bcrypt comparison.
	dummyHash []byte
}

func NewAuthService(repo ports.AccountRepository, audit ports.AuditRecorder, bcryptCost int, log zerolog.Logger) (*AuthService, error) {
	if audit == nil {
		audit = discardAudit{}
	}
	if bcryptCost == 0 {
		bcryptCost = bcrypt.DefaultCost
	}
	dummy, err := bcrypt.GenerateFromPassword([]byte(uuid.NewString()), bcryptCost)
	if err != nil {
		return nil, fmt.Errorf("new auth service: %w", err)
	}
	return &AuthService{
		repo:      repo,
		audit:     audit,
		log:       log,
		now:       time.Now,
		dummyHash: dummy,
	}, nil
}

func (s *AuthService) Authenticate(ctx context.Context, in ports.LoginInput) (*domain.Account, error) {
	ctx, span := tracer.Start(ctx, "auth.authenticate")
	defer span.End()

	username := domain.NormalizeUsername(in.Username)
	event := domain.AuditEvent{
		Kind:      domain.AuditLoginFailed,
		Username:  username,
		RemoteIP:  in.RemoteIP,
		RequestID: in.RequestID,
	}

	if username == "" || in.Password == "" {
		_ = bcrypt.CompareHashAndPassword(s.dummyHash, []byte(in.Password))
		s.record(event)
		metrics.LoginsTotal.WithLabelValues("invalid").Inc()
		return nil, domain.ErrInvalidCredentials
	}

	account, err := s.repo.FindByUsername(ctx, username)
	switch {
	case errors.Is(err, domain.ErrAccountNotFound):
		_ = bcrypt.CompareHashAndPassword(s.dummyHash, []byte(in.Password))
		s.record(event)
		metrics.LoginsTotal.WithLabelValues("invalid").Inc()
		return nil, domain.ErrInvalidCredentials
	case err != nil:
		span.RecordError(err)
		span.SetStatus(codes.Error, "account lookup failed")
		s.record(event)
		metrics.LoginsTotal.WithLabelValues("error").Inc()
		return nil, fmt.Errorf("authenticate: %w", err)
	}

	if bcrypt.CompareHashAndPassword([]byte(account.PasswordHash), []byte(in.Password)) != nil {
		event.UserID = account.ID
		s.record(event)
		metrics.LoginsTotal.WithLabelValues("invalid").Inc()
		return nil, domain.ErrInvalidCredentials
	}

	event.Kind = domain.AuditLoginSucceeded
	event.UserID = account.ID
	s.record(event)
	metrics.LoginsTotal.WithLabelValues("success").Inc()

	s.log.Info().Int64("user_id", account.ID).Str("role", string(account.Role)).Msg("login succeeded")
	return account, nil
}

func (s *AuthService) RecordLogout(_ context.Context, id *domain.Identity, remoteIP, requestID string) {
	event := domain.AuditEvent{
		Kind:      domain.AuditLogout,
		RemoteIP:  remoteIP,
		RequestID: requestID,
	}
	if id != nil {
		event.Username = id.Username
		event.UserID = id.UserID
	}
	s.record(event)
}

func (s *AuthService) record(event domain.AuditEvent) {
	event.ID = uuid.NewString()
	event.OccurredAt = s.now().UTC()
	s.audit.Record(event)
}

type discardAudit struct{}

func (discardAudit) Record(domain.AuditEvent) {}
