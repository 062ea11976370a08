package postgres

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/mesdirectives/access-api/internal/model"
	"github.com/mesdirectives/access-api/internal/repository"
)

type accessLogRepository struct {
	BaseRepository
}

func NewAccessLogRepository(base BaseRepository) repository.AccessLogRepository {
	return &accessLogRepository{base}
}

func (r *accessLogRepository) Create(ctx context.Context, entry *model.AccessLogEntry) error {
	query := `
		INSERT INTO document_access_logs (
			id, user_id, access_code_id, actor_name, actor_first_name,
			ip_address, user_agent, resource_type, action, resource_id, created_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
	`

	return r.WithTx(ctx, func(tx *sqlx.Tx) error {
		_, err := tx.ExecContext(ctx, query,
			entry.ID,
			entry.UserID,
			entry.AccessCodeID,
			entry.ActorName,
			entry.ActorFirstName,
			entry.IPAddress,
			entry.UserAgent,
			entry.ResourceType,
			entry.Action,
			entry.ResourceID,
			entry.CreatedAt,
		)
		return err
	})
}

func (r *accessLogRepository) ListByUserSince(ctx context.Context, userID uuid.UUID, since time.Time) ([]*model.AccessLogEntry, error) {
	query := `
		SELECT * FROM document_access_logs
		WHERE user_id = $1 AND created_at >= $2
		ORDER BY created_at DESC
	`
	var entries []*model.AccessLogEntry
	if err := r.GetDB().SelectContext(ctx, &entries, query, userID, since); err != nil {
		return nil, fmt.Errorf("failed to list access logs: %w", err)
	}
	return entries, nil
}

func (r *accessLogRepository) ListByUser(ctx context.Context, userID uuid.UUID, limit, offset int) ([]*model.AccessLogEntry, int64, error) {
	countQuery := `SELECT COUNT(*) FROM document_access_logs WHERE user_id = $1`
	var total int64
	if err := r.GetDB().GetContext(ctx, &total, countQuery, userID); err != nil {
		return nil, 0, fmt.Errorf("failed to count access logs: %w", err)
	}

	query := `
		SELECT * FROM document_access_logs
		WHERE user_id = $1
		ORDER BY created_at DESC
		LIMIT $2 OFFSET $3
	`
	var entries []*model.AccessLogEntry
	if err := r.GetDB().SelectContext(ctx, &entries, query, userID, limit, offset); err != nil {
		return nil, 0, fmt.Errorf("failed to list access logs: %w", err)
	}
	return entries, total, nil
}

func (r *accessLogRepository) ListActiveUsersSince(ctx context.Context, since time.Time) ([]uuid.UUID, error) {
	query := `
		SELECT DISTINCT user_id FROM document_access_logs
		WHERE created_at >= $1 AND user_id != $2
	`
	var userIDs []uuid.UUID
	if err := r.GetDB().SelectContext(ctx, &userIDs, query, since, uuid.Nil); err != nil {
		return nil, fmt.Errorf("failed to list active users: %w", err)
	}
	return userIDs, nil
}

func (r *accessLogRepository) DeleteBefore(ctx context.Context, cutoff time.Time) (int64, error) {
	query := `DELETE FROM document_access_logs WHERE created_at < $1`
	result, err := r.GetDB().ExecContext(ctx, query, cutoff)
	if err != nil {
		return 0, fmt.Errorf("failed to delete old access logs: %w", err)
	}
	return result.RowsAffected()
}
