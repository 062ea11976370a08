package postgres

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/mesdirectives/access-api/internal/model"
	"github.com/mesdirectives/access-api/internal/repository"
)

type accessCodeRepository struct {
	BaseRepository
}

func NewAccessCodeRepository(base BaseRepository) repository.AccessCodeRepository {
	return &accessCodeRepository{base}
}

func (r *accessCodeRepository) Create(ctx context.Context, code *model.AccessCode) error {
	query := `
		INSERT INTO access_codes (
			id, code, kind, owner_user_id, bound_document_id,
			expires_at, requires_identity_match, single_use, used_at, created_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
	`
	code.CreatedAt = time.Now()

	_, err := r.GetDB().ExecContext(ctx, query,
		code.ID,
		code.Code,
		code.Kind,
		code.OwnerUserID,
		code.BoundDocumentID,
		code.ExpiresAt,
		code.RequiresIdentityMatch,
		code.SingleUse,
		code.UsedAt,
		code.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to create access code: %w", err)
	}
	return nil
}

func (r *accessCodeRepository) FindByCode(ctx context.Context, code string) ([]*model.AccessCode, error) {
	query := `SELECT * FROM access_codes WHERE code = $1 ORDER BY created_at DESC`
	var codes []*model.AccessCode
	if err := r.GetDB().SelectContext(ctx, &codes, query, code); err != nil {
		return nil, fmt.Errorf("failed to find access codes: %w", err)
	}
	return codes, nil
}

func (r *accessCodeRepository) ListByOwner(ctx context.Context, ownerUserID uuid.UUID) ([]*model.AccessCode, error) {
	query := `SELECT * FROM access_codes WHERE owner_user_id = $1 ORDER BY created_at DESC`
	var codes []*model.AccessCode
	if err := r.GetDB().SelectContext(ctx, &codes, query, ownerUserID); err != nil {
		return nil, fmt.Errorf("failed to list access codes: %w", err)
	}
	return codes, nil
}

func (r *accessCodeRepository) ActiveCodeExists(ctx context.Context, code string, now time.Time) (bool, error) {
	query := `
		SELECT EXISTS (
			SELECT 1 FROM access_codes
			WHERE code = $1 AND (expires_at IS NULL OR expires_at > $2)
		)
	`
	var exists bool
	if err := r.GetDB().GetContext(ctx, &exists, query, code, now); err != nil {
		return false, fmt.Errorf("failed to check active code: %w", err)
	}
	return exists, nil
}

func (r *accessCodeRepository) UpdateExpiry(ctx context.Context, id uuid.UUID, expiresAt *time.Time) error {
	query := `UPDATE access_codes SET expires_at = $1 WHERE id = $2`
	result, err := r.GetDB().ExecContext(ctx, query, expiresAt, id)
	if err != nil {
		return fmt.Errorf("failed to update expiry: %w", err)
	}
	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	if rows == 0 {
		return fmt.Errorf("access code not found")
	}
	return nil
}

func (r *accessCodeRepository) MarkUsed(ctx context.Context, id uuid.UUID, usedAt time.Time) error {
	query := `UPDATE access_codes SET used_at = $1 WHERE id = $2 AND used_at IS NULL`
	_, err := r.GetDB().ExecContext(ctx, query, usedAt, id)
	if err != nil {
		return fmt.Errorf("failed to mark code used: %w", err)
	}
	return nil
}

func (r *accessCodeRepository) DeleteByCode(ctx context.Context, code string) (int64, error) {
	query := `DELETE FROM access_codes WHERE code = $1`
	result, err := r.GetDB().ExecContext(ctx, query, code)
	if err != nil {
		return 0, fmt.Errorf("failed to delete access code: %w", err)
	}
	return result.RowsAffected()
}
