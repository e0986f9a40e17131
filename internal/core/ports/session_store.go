package ports

import (
	"context"
	"time"

	"github.com/clinicrpm/rpm-portal/internal/core/domain"
)

// SessionStore persists session records keyed by opaque id.
//
// Implementations wrap backend failures with domain.ErrStoreUnavailable and never
// return a record whose ExpiresAt is at or before the current time.
type SessionStore interface {
	// Get returns domain.ErrSessionNotFound for unknown or expired ids.
	Get(ctx context.Context, id string) (*domain.SessionRecord, error)
	// Set creates or replaces the record for id.
	Set(ctx context.Context, id string, attrs domain.SessionAttributes, expiresAt time.Time) error
	// Touch refreshes an existing, unexpired record. It never creates one and
	// returns domain.ErrSessionNotFound when the record is gone.
	Touch(ctx context.Context, id string, lastAccess, expiresAt time.Time) error
	// Delete is idempotent.
	Delete(ctx context.Context, id string) error
	// DeleteByUser revokes every session owned by userID and reports how many
	// were removed.
	DeleteByUser(ctx context.Context, userID int64) (int64, error)
	// SweepExpired removes expired records and reports how many were removed.
	SweepExpired(ctx context.Context) (int64, error)
}
