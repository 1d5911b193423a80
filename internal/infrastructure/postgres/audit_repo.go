package postgres

import (
	"context"
	"fmt"

	"github.com/ErlanBelekov/sso-handoff/internal/domain"
	"github.com/jackc/pgx/v5/pgxpool"
)

type AuditRepository struct {
	pool *pgxpool.Pool
}

func NewAuditRepository(pool *pgxpool.Pool) *AuditRepository {
	return &AuditRepository{pool: pool}
}

func (r *AuditRepository) Record(ctx context.Context, e *domain.AuditEvent) error {
	query := `
		INSERT INTO auth_events (type, subject, detail, request_id, occurred_at)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING id`

	err := r.pool.QueryRow(ctx, query,
		string(e.Type), e.Subject, e.Detail, e.RequestID, e.OccurredAt,
	).Scan(&e.ID)
	if err != nil {
		return fmt.Errorf("insert auth event: %w", err)
	}
	return nil
}
