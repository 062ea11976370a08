package repository

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/mesdirectives/access-api/internal/model"
)

// All repository interfaces in one file
type (
	ProfileRepository interface {
		Create(ctx context.Context, profile *model.Profile) error
		Get(ctx context.Context, userID uuid.UUID) (*model.Profile, error)
		Update(ctx context.Context, profile *model.Profile) error
		// FindByMedicalAccessCode is the legacy-column lookup path. No
		// expiry concept; matches are permanent by construction.
		FindByMedicalAccessCode(ctx context.Context, code string) ([]*model.Profile, error)
	}

	DirectiveRepository interface {
		Create(ctx context.Context, directive *model.Directive) error
		Get(ctx context.Context, id uuid.UUID) (*model.Directive, error)
		ListByOwner(ctx context.Context, ownerUserID uuid.UUID) ([]*model.Directive, error)
		// FindByInstitutionCode returns every directive carrying the code,
		// expired grants included; the validator applies the expiry rule.
		FindByInstitutionCode(ctx context.Context, code string) ([]*model.Directive, error)
		SetInstitutionCode(ctx context.Context, id uuid.UUID, code *string, expiresAt *time.Time) error
	}

	AccessCodeRepository interface {
		Create(ctx context.Context, code *model.AccessCode) error
		// FindByCode returns every record carrying the code string,
		// expired ones included; the validator applies the expiry rule.
		FindByCode(ctx context.Context, code string) ([]*model.AccessCode, error)
		ListByOwner(ctx context.Context, ownerUserID uuid.UUID) ([]*model.AccessCode, error)
		// ActiveCodeExists supports the collision check at generation time.
		ActiveCodeExists(ctx context.Context, code string, now time.Time) (bool, error)
		UpdateExpiry(ctx context.Context, id uuid.UUID, expiresAt *time.Time) error
		MarkUsed(ctx context.Context, id uuid.UUID, usedAt time.Time) error
		// DeleteByCode returns the number of removed rows; zero is not an
		// error (revocation is idempotent).
		DeleteByCode(ctx context.Context, code string) (int64, error)
	}

	SharedProfileRepository interface {
		Create(ctx context.Context, share *model.SharedProfile) error
		FindByCode(ctx context.Context, code string) ([]*model.SharedProfile, error)
		DeleteByCode(ctx context.Context, code string) (int64, error)
	}

	AccessLogRepository interface {
		Create(ctx context.Context, entry *model.AccessLogEntry) error
		ListByUserSince(ctx context.Context, userID uuid.UUID, since time.Time) ([]*model.AccessLogEntry, error)
		ListByUser(ctx context.Context, userID uuid.UUID, limit, offset int) ([]*model.AccessLogEntry, int64, error)
		// ListActiveUsersSince feeds the periodic anomaly scan.
		ListActiveUsersSince(ctx context.Context, since time.Time) ([]uuid.UUID, error)
		DeleteBefore(ctx context.Context, cutoff time.Time) (int64, error)
	}

	OutboxRepository interface {
		Create(ctx context.Context, event *model.OutboxEvent) error
		GetPendingEvents(ctx context.Context, limit int) ([]*model.OutboxEvent, error)
		UpdateStatus(ctx context.Context, id uuid.UUID, status model.OutboxStatus, errorMessage *string) error
		DeleteProcessedBefore(ctx context.Context, before time.Time) (int64, error)
	}
)
