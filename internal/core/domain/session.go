package domain

import (
	"fmt"
	"time"
)

// SessionAttributes is the fixed set of values a session carries for its principal.
type SessionAttributes struct {
	UserID     int64  `json:"userId"`
	Username   string `json:"username"`
	Role       Role   `json:"role"`
	ClinicName string `json:"clinicName"`
}

// Validate rejects attribute sets that cannot identify a principal.
func (a SessionAttributes) Validate() error {
	switch {
	case a.UserID <= 0:
		return fmt.Errorf("%w: user id must be positive", ErrInvalidSessionAttributes)
	case a.Username == "":
		return fmt.Errorf("%w: username is required", ErrInvalidSessionAttributes)
	case !a.Role.Valid():
		return fmt.Errorf("%w: unknown role %q", ErrInvalidSessionAttributes, a.Role)
	}
	return nil
}

// SessionRecord is a persisted session as held by a SessionStore.
type SessionRecord struct {
	ID         string
	Attributes SessionAttributes
	ExpiresAt  time.Time
	LastAccess time.Time
}

// Expired reports whether the record is no longer valid at now.
// A record expires exactly at ExpiresAt.
func (r *SessionRecord) Expired(now time.Time) bool {
	return !now.Before(r.ExpiresAt)
}

// Identity is the authenticated principal of a single request.
type Identity struct {
	UserID     int64
	Username   string
	Role       Role
	ClinicName string
	SessionID  string
}

// IdentityFromRecord builds the request identity for a resolved session.
func IdentityFromRecord(r *SessionRecord) *Identity {
	return &Identity{
		UserID:     r.Attributes.UserID,
		Username:   r.Attributes.Username,
		Role:       r.Attributes.Role,
		ClinicName: r.Attributes.ClinicName,
		SessionID:  r.ID,
	}
}
