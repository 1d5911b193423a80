package repository

import (
	"context"

	"github.com/ErlanBelekov/sso-handoff/internal/domain"
)

type UserRepository interface {
	FindByUsername(ctx context.Context, username string) (*domain.User, error)
}

// AuditRepository persists protocol events. Implementations must be safe
// for concurrent use.
type AuditRepository interface {
	Record(ctx context.Context, event *domain.AuditEvent) error
}
