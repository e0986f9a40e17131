package service

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/rs/zerolog"
	"golang.org/x/crypto/bcrypt"

	"github.com/clinicrpm/rpm-portal/internal/core/domain"
	"github.com/clinicrpm/rpm-portal/internal/core/ports"
)

// SessionRevoker ends every session owned by an account.
type SessionRevoker interface {
	DeleteByUser(ctx context.Context, userID int64) (int64, error)
}

type accountService struct {
	repo       ports.AccountRepository
	sessions   SessionRevoker
	bcryptCost int
	log        zerolog.Logger
}

// NewAccountService returns an AccountService implementation. Sessions of a
// deleted account, or of one whose role, username or password changed, are
// revoked through sessions; a nil revoker skips that step.
func NewAccountService(repo ports.AccountRepository, sessions SessionRevoker, bcryptCost int, log zerolog.Logger) ports.AccountService {
	if bcryptCost == 0 {
		bcryptCost = bcrypt.DefaultCost
	}
	return &accountService{repo: repo, sessions: sessions, bcryptCost: bcryptCost, log: log}
}

func (s *accountService) List(ctx context.Context) ([]*domain.Account, error) {
	accounts, err := s.repo.List(ctx)
	if err != nil {
		return nil, fmt.Errorf("list accounts: %w", err)
	}
	return accounts, nil
}

func (s *accountService) Get(ctx context.Context, id int64) (*domain.Account, error) {
	a, err := s.repo.FindByID(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("get account: %w", err)
	}
	return a, nil
}

func (s *accountService) Create(ctx context.Context, in ports.AccountInput) (*domain.Account, error) {
	in = normalizeAccountInput(in)
	if err := validateAccountInput(in, true); err != nil {
		return nil, err
	}

	if _, err := s.repo.FindByUsername(ctx, in.Username); err == nil {
		return nil, domain.ErrAccountExists
	} else if !errors.Is(err, domain.ErrAccountNotFound) {
		return nil, fmt.Errorf("create account: %w", err)
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(in.Password), s.bcryptCost)
	if err != nil {
		return nil, fmt.Errorf("create account: hash password: %w", err)
	}

	a := &domain.Account{
		ClinicName:   in.ClinicName,
		Username:     in.Username,
		PasswordHash: string(hash),
		Role:         in.Role,
	}
	if err := s.repo.Create(ctx, a); err != nil {
		return nil, fmt.Errorf("create account: %w", err)
	}

	s.log.Info().Int64("account_id", a.ID).Str("username", a.Username).Str("role", string(a.Role)).Msg("account created")
	return a, nil
}

func (s *accountService) Update(ctx context.Context, id int64, in ports.AccountInput) error {
	in = normalizeAccountInput(in)
	if err := validateAccountInput(in, false); err != nil {
		return err
	}

	existing, err := s.repo.FindByID(ctx, id)
	if err != nil {
		return fmt.Errorf("update account: %w", err)
	}

	if in.Username != existing.Username {
		other, err := s.repo.FindByUsername(ctx, in.Username)
		switch {
		case err == nil && other.ID != id:
			return domain.ErrAccountExists
		case err != nil && !errors.Is(err, domain.ErrAccountNotFound):
			return fmt.Errorf("update account: %w", err)
		}
	}

	updated := &domain.Account{
		ID:         id,
		ClinicName: in.ClinicName,
		Username:   in.Username,
		Role:       in.Role,
	}
	if in.Password != "" {
		hash, err := bcrypt.GenerateFromPassword([]byte(in.Password), s.bcryptCost)
		if err != nil {
			return fmt.Errorf("update account: hash password: %w", err)
		}
		updated.PasswordHash = string(hash)
	}

	if err := s.repo.Update(ctx, updated); err != nil {
		return fmt.Errorf("update account: %w", err)
	}

	if in.Role != existing.Role || in.Username != existing.Username || in.Password != "" {
		if err := s.revokeSessions(ctx, id); err != nil {
			return fmt.Errorf("update account: %w", err)
		}
	}
	return nil
}

func (s *accountService) Delete(ctx context.Context, actorID, id int64) error {
	if actorID == id {
		return domain.ErrSelfDelete
	}
	if err := s.repo.Delete(ctx, id); err != nil {
		return fmt.Errorf("delete account: %w", err)
	}
	s.log.Info().Int64("account_id", id).Int64("actor_id", actorID).Msg("account deleted")

	if err := s.revokeSessions(ctx, id); err != nil {
		return fmt.Errorf("delete account: %w", err)
	}
	return nil
}

func (s *accountService) revokeSessions(ctx context.Context, id int64) error {
	if s.sessions == nil {
		return nil
	}
	n, err := s.sessions.DeleteByUser(context.WithoutCancel(ctx), id)
	if err != nil {
		s.log.Error().Err(err).Int64("account_id", id).Msg("session revocation failed")
		return fmt.Errorf("revoke sessions: %w", err)
	}
	if n > 0 {
		s.log.Info().Int64("account_id", id).Int64("sessions", n).Msg("sessions revoked")
	}
	return nil
}

func validateAccountInput(in ports.AccountInput, requirePassword bool) error {
	switch {
	case in.ClinicName == "":
		return fmt.Errorf("%w: clinic name is required", domain.ErrInvalidAccount)
	case in.Username == "":
		return fmt.Errorf("%w: username is required", domain.ErrInvalidAccount)
	case !in.Role.Valid():
		return fmt.Errorf("%w: unknown role %q", domain.ErrInvalidAccount, in.Role)
	case requirePassword && in.Password == "":
		return fmt.Errorf("%w: password is required", domain.ErrInvalidAccount)
	case in.Password != "" && len(in.Password) < domain.MinPasswordLength:
		return fmt.Errorf("%w: password must be at least %d characters", domain.ErrInvalidAccount, domain.MinPasswordLength)
	}
	return nil
}

func normalizeAccountInput(in ports.AccountInput) ports.AccountInput {
	in.ClinicName = strings.TrimSpace(in.ClinicName)
	in.Username = domain.NormalizeUsername(in.Username)
	if in.Role == "" {
		in.Role = domain.RoleClinic
	}
	return in
}
