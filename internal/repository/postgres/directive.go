package postgres

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/mesdirectives/access-api/internal/model"
	"github.com/mesdirectives/access-api/internal/repository"
)

type directiveRepository struct {
	BaseRepository
}

func NewDirectiveRepository(base BaseRepository) repository.DirectiveRepository {
	return &directiveRepository{base}
}

func (r *directiveRepository) Create(ctx context.Context, directive *model.Directive) error {
	query := `
		INSERT INTO directives (id, owner_user_id, title, content, institution_code, institution_code_expires_at, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
	`
	directive.CreatedAt = time.Now()
	directive.UpdatedAt = time.Now()

	_, err := r.GetDB().ExecContext(ctx, query,
		directive.ID,
		directive.OwnerUserID,
		directive.Title,
		directive.Content,
		directive.InstitutionCode,
		directive.InstitutionCodeExpiresAt,
		directive.CreatedAt,
		directive.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to create directive: %w", err)
	}
	return nil
}

func (r *directiveRepository) Get(ctx context.Context, id uuid.UUID) (*model.Directive, error) {
	query := `SELECT * FROM directives WHERE id = $1`
	var directive model.Directive
	if err := r.GetDB().GetContext(ctx, &directive, query, id); err != nil {
		return nil, fmt.Errorf("failed to get directive: %w", err)
	}
	return &directive, nil
}

func (r *directiveRepository) ListByOwner(ctx context.Context, ownerUserID uuid.UUID) ([]*model.Directive, error) {
	query := `SELECT * FROM directives WHERE owner_user_id = $1 ORDER BY created_at DESC`
	var directives []*model.Directive
	if err := r.GetDB().SelectContext(ctx, &directives, query, ownerUserID); err != nil {
		return nil, fmt.Errorf("failed to list directives: %w", err)
	}
	return directives, nil
}

func (r *directiveRepository) FindByInstitutionCode(ctx context.Context, code string) ([]*model.Directive, error) {
	query := `SELECT * FROM directives WHERE institution_code = $1`
	var directives []*model.Directive
	if err := r.GetDB().SelectContext(ctx, &directives, query, code); err != nil {
		return nil, fmt.Errorf("failed to find directives by institution code: %w", err)
	}
	return directives, nil
}

func (r *directiveRepository) SetInstitutionCode(ctx context.Context, id uuid.UUID, code *string, expiresAt *time.Time) error {
	query := `
		UPDATE directives
		SET institution_code = $1, institution_code_expires_at = $2, updated_at = $3
		WHERE id = $4
	`
	result, err := r.GetDB().ExecContext(ctx, query, code, expiresAt, time.Now(), id)
	if err != nil {
		return fmt.Errorf("failed to set institution code: %w", err)
	}
	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	if rows == 0 {
		return fmt.Errorf("directive not found")
	}
	return nil
}
