package ports

import (
	"context"

	"github.com/clinicrpm/rpm-portal/internal/core/domain"
)

// AuditRepository persists authentication events.
type AuditRepository interface {
	InsertEvent(ctx context.Context, event *domain.AuditEvent) error
}

// AuditRecorder accepts events for asynchronous persistence. Record must not block.
type AuditRecorder interface {
	Record(event domain.AuditEvent)
}
