package postgres

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/mesdirectives/access-api/internal/model"
	"github.com/mesdirectives/access-api/internal/repository"
)

type profileRepository struct {
	BaseRepository
}

func NewProfileRepository(base BaseRepository) repository.ProfileRepository {
	return &profileRepository{base}
}

func (r *profileRepository) Create(ctx context.Context, profile *model.Profile) error {
	query := `
		INSERT INTO profiles (user_id, email, first_name, last_name, birth_date, medical_access_code, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
	`
	profile.CreatedAt = time.Now()
	profile.UpdatedAt = time.Now()

	_, err := r.GetDB().ExecContext(ctx, query,
		profile.UserID,
		profile.Email,
		profile.FirstName,
		profile.LastName,
		profile.BirthDate,
		profile.MedicalAccessCode,
		profile.CreatedAt,
		profile.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to create profile: %w", err)
	}
	return nil
}

func (r *profileRepository) Get(ctx context.Context, userID uuid.UUID) (*model.Profile, error) {
	query := `SELECT * FROM profiles WHERE user_id = $1`
	var profile model.Profile
	err := r.GetDB().GetContext(ctx, &profile, query, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to get profile: %w", err)
	}
	return &profile, nil
}

func (r *profileRepository) Update(ctx context.Context, profile *model.Profile) error {
	query := `
		UPDATE profiles
		SET first_name = $1, last_name = $2, birth_date = $3, medical_access_code = $4, updated_at = $5
		WHERE user_id = $6
	`
	_, err := r.GetDB().ExecContext(ctx, query,
		profile.FirstName,
		profile.LastName,
		profile.BirthDate,
		profile.MedicalAccessCode,
		time.Now(),
		profile.UserID,
	)
	return err
}

func (r *profileRepository) FindByMedicalAccessCode(ctx context.Context, code string) ([]*model.Profile, error) {
	query := `SELECT * FROM profiles WHERE medical_access_code = $1`
	var profiles []*model.Profile
	if err := r.GetDB().SelectContext(ctx, &profiles, query, code); err != nil {
		return nil, fmt.Errorf("failed to find profiles by medical access code: %w", err)
	}
	return profiles, nil
}
