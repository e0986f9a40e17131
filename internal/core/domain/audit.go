package domain

import "time"

// AuditKind classifies an authentication event.
type AuditKind string

const (
	AuditLoginSucceeded AuditKind = "login_succeeded"
	AuditLoginFailed    AuditKind = "login_failed"
	AuditLogout         AuditKind = "logout"
)

// AuditEvent records an authentication outcome. It never carries a password.
type AuditEvent struct {
	ID         string
	Kind       AuditKind
	Username   string
	UserID     int64
	RemoteIP   string
	RequestID  string
	OccurredAt time.Time
}
