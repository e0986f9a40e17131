package domain

import (
	"strings"
	"time"
)

// Role is the privilege level of an account.
type Role string

const (
	RoleClinic Role = "clinic"
	RoleAdmin  Role = "admin"
)

// MinPasswordLength is the shortest password accepted for an account.
const MinPasswordLength = 6

var roleRank = map[Role]int{
	RoleClinic: 1,
	RoleAdmin:  2,
}

// Valid reports whether r is a known role.
func (r Role) Valid() bool {
	_, ok := roleRank[r]
	return ok
}

// Satisfies reports whether r grants at least the privileges of required.
// Admin outranks clinic; unknown roles satisfy nothing.
func (r Role) Satisfies(required Role) bool {
	have, ok := roleRank[r]
	if !ok {
		return false
	}
	return have >= roleRank[required]
}

// Account is a clinic or admin login stored in the credential store.
type Account struct {
	ID           int64     `json:"id"`
	ClinicName   string    `json:"clinicName"`
	Username     string    `json:"username"`
	PasswordHash string    `json:"-"`
	Role         Role      `json:"role"`
	CreatedAt    time.Time `json:"createdAt"`
}

// NormalizeUsername returns the canonical form used for storage and lookup.
func NormalizeUsername(username string) string {
	return strings.ToLower(strings.TrimSpace(username))
}

// SessionAttributes projects the account onto the fields carried by a session.
func (a *Account) SessionAttributes() SessionAttributes {
	return SessionAttributes{
		UserID:     a.ID,
		Username:   a.Username,
		Role:       a.Role,
		ClinicName: a.ClinicName,
	}
}
