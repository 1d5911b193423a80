package audit

import (
	"context"
	"log/slog"

	"github.com/ErlanBelekov/sso-handoff/internal/domain"
	"github.com/ErlanBelekov/sso-handoff/internal/infrastructure/postgres"
	"github.com/ErlanBelekov/sso-handoff/internal/repository"
	"github.com/jackc/pgx/v5/pgxpool"
)

// LogRecorder writes audit events to the log instead of a database. Used
// when DATABASE_URL is unset.
type LogRecorder struct {
	logger *slog.Logger
}

func (r *LogRecorder) Record(ctx context.Context, e *domain.AuditEvent) error {
	r.logger.InfoContext(ctx, "auth event",
		"type", e.Type,
		"subject", e.Subject,
		"detail", e.Detail,
		"occurred_at", e.OccurredAt,
	)
	return nil
}

// NewRecorder returns a postgres-backed recorder when pool is non-nil,
// a LogRecorder otherwise.
func NewRecorder(pool *pgxpool.Pool, logger *slog.Logger) repository.AuditRepository {
	if pool == nil {
		return &LogRecorder{logger: logger.With("component", "audit")}
	}
	return postgres.NewAuditRepository(pool)
}
