package postgres

import (
	"context"
	"fmt"
	"time"

	"github.com/mesdirectives/access-api/internal/model"
	"github.com/mesdirectives/access-api/internal/repository"
)

type sharedProfileRepository struct {
	BaseRepository
}

func NewSharedProfileRepository(base BaseRepository) repository.SharedProfileRepository {
	return &sharedProfileRepository{base}
}

func (r *sharedProfileRepository) Create(ctx context.Context, share *model.SharedProfile) error {
	query := `
		INSERT INTO shared_profiles (id, code, owner_user_id, first_name, last_name, birth_date, expires_at, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
	`
	share.CreatedAt = time.Now()

	_, err := r.GetDB().ExecContext(ctx, query,
		share.ID,
		share.Code,
		share.OwnerUserID,
		share.FirstName,
		share.LastName,
		share.BirthDate,
		share.ExpiresAt,
		share.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to create shared profile: %w", err)
	}
	return nil
}

func (r *sharedProfileRepository) FindByCode(ctx context.Context, code string) ([]*model.SharedProfile, error) {
	query := `SELECT * FROM shared_profiles WHERE code = $1 ORDER BY created_at DESC`
	var shares []*model.SharedProfile
	if err := r.GetDB().SelectContext(ctx, &shares, query, code); err != nil {
		return nil, fmt.Errorf("failed to find shared profiles: %w", err)
	}
	return shares, nil
}

func (r *sharedProfileRepository) DeleteByCode(ctx context.Context, code string) (int64, error) {
	query := `DELETE FROM shared_profiles WHERE code = $1`
	result, err := r.GetDB().ExecContext(ctx, query, code)
	if err != nil {
		return 0, fmt.Errorf("failed to delete shared profile: %w", err)
	}
	return result.RowsAffected()
}
