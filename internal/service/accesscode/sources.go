package accesscode

import (
	"context"

	"github.com/mesdirectives/access-api/internal/model"
	"github.com/mesdirectives/access-api/internal/repository"
)

// CredentialSource is one storage shape a presented code may live in.
// Sources only surface candidate bindings; ranking, expiry and identity
// rules belong to the Validator. The slice order passed to the Validator
// is the authoritative priority order.
type CredentialSource interface {
	Name() model.CredentialSourceName
	Lookup(ctx context.Context, code string) ([]model.CredentialBinding, error)
}

// DefaultSources returns the four lookup paths in their fixed priority
// order: dedicated table, shared profiles, directive institution codes,
// legacy profile column.
func DefaultSources(
	codes repository.AccessCodeRepository,
	shares repository.SharedProfileRepository,
	directives repository.DirectiveRepository,
	profiles repository.ProfileRepository,
) []CredentialSource {
	return []CredentialSource{
		&accessCodeSource{codes: codes},
		&sharedProfileSource{shares: shares},
		&institutionSource{directives: directives},
		&legacyProfileSource{profiles: profiles},
	}
}

type accessCodeSource struct {
	codes repository.AccessCodeRepository
}

func (s *accessCodeSource) Name() model.CredentialSourceName { return model.SourceAccessCodes }

func (s *accessCodeSource) Lookup(ctx context.Context, code string) ([]model.CredentialBinding, error) {
	records, err := s.codes.FindByCode(ctx, code)
	if err != nil {
		return nil, err
	}
	bindings := make([]model.CredentialBinding, 0, len(records))
	for _, rec := range records {
		id := rec.ID
		bindings = append(bindings, model.CredentialBinding{
			Source:                model.SourceAccessCodes,
			OwnerUserID:           rec.OwnerUserID,
			AccessCodeID:          &id,
			ExpiresAt:             rec.ExpiresAt,
			BoundDocumentID:       rec.BoundDocumentID,
			RequiresIdentityMatch: rec.RequiresIdentityMatch,
			SingleUse:             rec.SingleUse,
			Used:                  rec.UsedAt != nil,
		})
	}
	return bindings, nil
}

type sharedProfileSource struct {
	shares repository.SharedProfileRepository
}

func (s *sharedProfileSource) Name() model.CredentialSourceName { return model.SourceSharedProfile }

func (s *sharedProfileSource) Lookup(ctx context.Context, code string) ([]model.CredentialBinding, error) {
	records, err := s.shares.FindByCode(ctx, code)
	if err != nil {
		return nil, err
	}
	bindings := make([]model.CredentialBinding, 0, len(records))
	for _, rec := range records {
		snapshot := model.ClaimedIdentity{
			FirstName: rec.FirstName,
			LastName:  rec.LastName,
			BirthDate: rec.BirthDate,
		}
		bindings = append(bindings, model.CredentialBinding{
			Source:                model.SourceSharedProfile,
			OwnerUserID:           rec.OwnerUserID,
			ExpiresAt:             rec.ExpiresAt,
			SnapshotIdentity:      &snapshot,
			RequiresIdentityMatch: true,
		})
	}
	return bindings, nil
}

type institutionSource struct {
	directives repository.DirectiveRepository
}

func (s *institutionSource) Name() model.CredentialSourceName { return model.SourceInstitution }

func (s *institutionSource) Lookup(ctx context.Context, code string) ([]model.CredentialBinding, error) {
	records, err := s.directives.FindByInstitutionCode(ctx, code)
	if err != nil {
		return nil, err
	}
	bindings := make([]model.CredentialBinding, 0, len(records))
	for _, rec := range records {
		id := rec.ID
		bindings = append(bindings, model.CredentialBinding{
			Source:          model.SourceInstitution,
			OwnerUserID:     rec.OwnerUserID,
			ExpiresAt:       rec.InstitutionCodeExpiresAt,
			BoundDocumentID: &id,
			// Institution access always cross-checks the patient identity.
			RequiresIdentityMatch: true,
		})
	}
	return bindings, nil
}

type legacyProfileSource struct {
	profiles repository.ProfileRepository
}

func (s *legacyProfileSource) Name() model.CredentialSourceName { return model.SourceLegacyProfile }

func (s *legacyProfileSource) Lookup(ctx context.Context, code string) ([]model.CredentialBinding, error) {
	records, err := s.profiles.FindByMedicalAccessCode(ctx, code)
	if err != nil {
		return nil, err
	}
	bindings := make([]model.CredentialBinding, 0, len(records))
	for _, rec := range records {
		// Legacy column has no expiry concept; permanent by construction.
		bindings = append(bindings, model.CredentialBinding{
			Source:      model.SourceLegacyProfile,
			OwnerUserID: rec.UserID,
		})
	}
	return bindings, nil
}
