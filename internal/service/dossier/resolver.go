package dossier

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	gocache "github.com/patrickmn/go-cache"

	"github.com/mesdirectives/access-api/internal/model"
	"github.com/mesdirectives/access-api/internal/repository"
	"github.com/mesdirectives/access-api/pkg/errors"
)

const (
	profileCacheTTL     = 5 * time.Minute
	profileCacheCleanup = 10 * time.Minute
)

// Resolver assembles the bounded dossier view for a winning credential
// binding. It holds no state between calls beyond a short-lived profile
// cache; the returned Dossier belongs to the caller.
type Resolver struct {
	profiles   repository.ProfileRepository
	directives repository.DirectiveRepository
	cache      *gocache.Cache
	now        func() time.Time
}

func NewResolver(profiles repository.ProfileRepository, directives repository.DirectiveRepository) *Resolver {
	return &Resolver{
		profiles:   profiles,
		directives: directives,
		cache:      gocache.New(profileCacheTTL, profileCacheCleanup),
		now:        time.Now,
	}
}

// WithClock overrides the resolver's clock. Test hook.
func (r *Resolver) WithClock(now func() time.Time) *Resolver {
	r.now = now
	return r
}

// Resolve builds the Dossier for a validated binding. documentType may
// narrow the view to directives or medical documents only.
func (r *Resolver) Resolve(ctx context.Context, binding model.CredentialBinding, documentType string) (*model.Dossier, error) {
	profile, err := r.profile(ctx, binding.OwnerUserID)
	if err != nil {
		return nil, errors.ProfileNotFound(err)
	}

	firstName := profile.FirstName
	if firstName == "" {
		firstName = model.ProfileUnknown
	}
	lastName := profile.LastName
	if lastName == "" {
		lastName = model.ProfileUnknown
	}

	d := &model.Dossier{
		ID:             uuid.New(),
		UserID:         binding.OwnerUserID,
		DirectivesOnly: documentType == model.DocumentTypeDirective,
		MedicalOnly:    documentType == model.DocumentTypeMedical,
		ProfileData: model.ProfileData{
			FirstName: firstName,
			LastName:  lastName,
			BirthDate: profile.BirthDate,
		},
		Contenu: model.DossierContent{
			Patient: model.PatientSummary{
				Prenom:        firstName,
				Nom:           lastName,
				DateNaissance: profile.BirthDate,
			},
		},
		ResolvedAt: r.now(),
	}
	d.IsFullAccess = !d.DirectivesOnly && !d.MedicalOnly

	documents, err := r.documents(ctx, binding)
	if err != nil {
		return nil, errors.Technical(err)
	}
	d.Contenu.Documents = documents

	return d, nil
}

func (r *Resolver) documents(ctx context.Context, binding model.CredentialBinding) ([]model.DossierDocument, error) {
	if binding.BoundDocumentID != nil {
		directive, err := r.directives.Get(ctx, *binding.BoundDocumentID)
		if err != nil {
			return nil, fmt.Errorf("failed to load bound document: %w", err)
		}
		return []model.DossierDocument{toDocument(directive)}, nil
	}

	directives, err := r.directives.ListByOwner(ctx, binding.OwnerUserID)
	if err != nil {
		return nil, fmt.Errorf("failed to list owner documents: %w", err)
	}
	documents := make([]model.DossierDocument, 0, len(directives))
	for _, directive := range directives {
		documents = append(documents, toDocument(directive))
	}
	return documents, nil
}

func (r *Resolver) profile(ctx context.Context, userID uuid.UUID) (*model.Profile, error) {
	key := userID.String()
	if cached, ok := r.cache.Get(key); ok {
		return cached.(*model.Profile), nil
	}

	profile, err := r.profiles.Get(ctx, userID)
	if err != nil {
		return nil, err
	}
	r.cache.Set(key, profile, gocache.DefaultExpiration)
	return profile, nil
}

func toDocument(directive *model.Directive) model.DossierDocument {
	return model.DossierDocument{
		ID:        directive.ID,
		Title:     directive.Title,
		CreatedAt: directive.CreatedAt,
	}
}
