package ports

import (
	"context"

	"github.com/clinicrpm/rpm-portal/internal/core/domain"
)

// AccountRepository is the credential store.
type AccountRepository interface {
	// FindByUsername looks up an account by its normalized username.
	// Returns domain.ErrAccountNotFound when no row matches.
	FindByUsername(ctx context.Context, username string) (*domain.Account, error)
	FindByID(ctx context.Context, id int64) (*domain.Account, error)
	List(ctx context.Context) ([]*domain.Account, error)
	// Create inserts the account and sets its ID and CreatedAt.
	// Returns domain.ErrAccountExists on a username collision.
	Create(ctx context.Context, a *domain.Account) error
	// Update rewrites clinic name, username, role and, when non-empty, the password hash.
	// Demoting the last admin fails with domain.ErrLastAdmin.
	Update(ctx context.Context, a *domain.Account) error
	// Delete removes the account. Deleting the last admin fails with domain.ErrLastAdmin.
	Delete(ctx context.Context, id int64) error
}
