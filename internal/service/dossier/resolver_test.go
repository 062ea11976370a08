package dossier_test

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mesdirectives/access-api/internal/model"
	"github.com/mesdirectives/access-api/internal/service/dossier"
	"github.com/mesdirectives/access-api/pkg/errors"
)

type memProfileRepo struct {
	mu       sync.Mutex
	profiles map[uuid.UUID]*model.Profile
	gets     int
}

func newMemProfileRepo() *memProfileRepo {
	return &memProfileRepo{profiles: make(map[uuid.UUID]*model.Profile)}
}

func (r *memProfileRepo) Create(_ context.Context, profile *model.Profile) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	clone := *profile
	r.profiles[profile.UserID] = &clone
	return nil
}

func (r *memProfileRepo) Get(_ context.Context, userID uuid.UUID) (*model.Profile, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.gets++
	p, ok := r.profiles[userID]
	if !ok {
		return nil, fmt.Errorf("profile %s not found", userID)
	}
	clone := *p
	return &clone, nil
}

func (r *memProfileRepo) Update(_ context.Context, profile *model.Profile) error {
	return r.Create(nil, profile)
}

func (r *memProfileRepo) FindByMedicalAccessCode(_ context.Context, _ string) ([]*model.Profile, error) {
	return nil, nil
}

type memDirectiveRepo struct {
	mu         sync.Mutex
	directives map[uuid.UUID]*model.Directive
}

func newMemDirectiveRepo() *memDirectiveRepo {
	return &memDirectiveRepo{directives: make(map[uuid.UUID]*model.Directive)}
}

func (r *memDirectiveRepo) Create(_ context.Context, directive *model.Directive) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	clone := *directive
	r.directives[directive.ID] = &clone
	return nil
}

func (r *memDirectiveRepo) Get(_ context.Context, id uuid.UUID) (*model.Directive, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	d, ok := r.directives[id]
	if !ok {
		return nil, fmt.Errorf("directive %s not found", id)
	}
	clone := *d
	return &clone, nil
}

func (r *memDirectiveRepo) ListByOwner(_ context.Context, ownerUserID uuid.UUID) ([]*model.Directive, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []*model.Directive
	for _, d := range r.directives {
		if d.OwnerUserID == ownerUserID {
			clone := *d
			out = append(out, &clone)
		}
	}
	return out, nil
}

func (r *memDirectiveRepo) FindByInstitutionCode(_ context.Context, _ string) ([]*model.Directive, error) {
	return nil, nil
}

func (r *memDirectiveRepo) SetInstitutionCode(_ context.Context, _ uuid.UUID, _ *string, _ *time.Time) error {
	return nil
}

func TestResolveFullAccess(t *testing.T) {
	profiles := newMemProfileRepo()
	directives := newMemDirectiveRepo()
	ctx := context.Background()

	owner := uuid.New()
	require.NoError(t, profiles.Create(ctx, &model.Profile{
		UserID:    owner,
		FirstName: "Marie",
		LastName:  "Dupont",
		BirthDate: "1950-03-15",
	}))
	require.NoError(t, directives.Create(ctx, &model.Directive{
		ID: uuid.New(), OwnerUserID: owner, Title: "Directives anticipées",
	}))
	require.NoError(t, directives.Create(ctx, &model.Directive{
		ID: uuid.New(), OwnerUserID: owner, Title: "Personne de confiance",
	}))

	now := time.Date(2026, 8, 15, 14, 0, 0, 0, time.UTC)
	r := dossier.NewResolver(profiles, directives).WithClock(func() time.Time { return now })

	d, err := r.Resolve(ctx, model.CredentialBinding{OwnerUserID: owner}, "")
	require.NoError(t, err)

	assert.Equal(t, owner, d.UserID)
	assert.True(t, d.IsFullAccess)
	assert.False(t, d.DirectivesOnly)
	assert.False(t, d.MedicalOnly)
	assert.Equal(t, "Marie", d.Contenu.Patient.Prenom)
	assert.Equal(t, "Dupont", d.Contenu.Patient.Nom)
	assert.Equal(t, "1950-03-15", d.Contenu.Patient.DateNaissance)
	assert.Len(t, d.Contenu.Documents, 2)
	assert.Equal(t, now, d.ResolvedAt)
}

func TestResolveScopedViews(t *testing.T) {
	profiles := newMemProfileRepo()
	directives := newMemDirectiveRepo()
	ctx := context.Background()

	owner := uuid.New()
	require.NoError(t, profiles.Create(ctx, &model.Profile{UserID: owner, FirstName: "Marie", LastName: "Dupont"}))

	r := dossier.NewResolver(profiles, directives)

	d, err := r.Resolve(ctx, model.CredentialBinding{OwnerUserID: owner}, model.DocumentTypeDirective)
	require.NoError(t, err)
	assert.True(t, d.DirectivesOnly)
	assert.False(t, d.IsFullAccess)

	d, err = r.Resolve(ctx, model.CredentialBinding{OwnerUserID: owner}, model.DocumentTypeMedical)
	require.NoError(t, err)
	assert.True(t, d.MedicalOnly)
	assert.False(t, d.IsFullAccess)
}

func TestResolveBoundDocumentNarrowsToOne(t *testing.T) {
	profiles := newMemProfileRepo()
	directives := newMemDirectiveRepo()
	ctx := context.Background()

	owner := uuid.New()
	require.NoError(t, profiles.Create(ctx, &model.Profile{UserID: owner, FirstName: "Marie", LastName: "Dupont"}))

	bound := &model.Directive{ID: uuid.New(), OwnerUserID: owner, Title: "Directives anticipées"}
	other := &model.Directive{ID: uuid.New(), OwnerUserID: owner, Title: "Autre document"}
	require.NoError(t, directives.Create(ctx, bound))
	require.NoError(t, directives.Create(ctx, other))

	r := dossier.NewResolver(profiles, directives)

	d, err := r.Resolve(ctx, model.CredentialBinding{OwnerUserID: owner, BoundDocumentID: &bound.ID}, "")
	require.NoError(t, err)
	require.Len(t, d.Contenu.Documents, 1)
	assert.Equal(t, bound.ID, d.Contenu.Documents[0].ID)
	assert.Equal(t, "Directives anticipées", d.Contenu.Documents[0].Title)
}

func TestResolveMissingProfileFieldsFallBack(t *testing.T) {
	profiles := newMemProfileRepo()
	directives := newMemDirectiveRepo()
	ctx := context.Background()

	owner := uuid.New()
	require.NoError(t, profiles.Create(ctx, &model.Profile{UserID: owner}))

	r := dossier.NewResolver(profiles, directives)

	d, err := r.Resolve(ctx, model.CredentialBinding{OwnerUserID: owner}, "")
	require.NoError(t, err)
	assert.Equal(t, model.ProfileUnknown, d.Contenu.Patient.Prenom)
	assert.Equal(t, model.ProfileUnknown, d.Contenu.Patient.Nom)
}

func TestResolveUnknownOwner(t *testing.T) {
	r := dossier.NewResolver(newMemProfileRepo(), newMemDirectiveRepo())

	_, err := r.Resolve(context.Background(), model.CredentialBinding{OwnerUserID: uuid.New()}, "")
	require.Error(t, err)
	assert.True(t, errors.IsCode(err, errors.ErrProfileNotFound))
}

func TestResolveCachesProfileLookups(t *testing.T) {
	profiles := newMemProfileRepo()
	directives := newMemDirectiveRepo()
	ctx := context.Background()

	owner := uuid.New()
	require.NoError(t, profiles.Create(ctx, &model.Profile{UserID: owner, FirstName: "Marie", LastName: "Dupont"}))

	r := dossier.NewResolver(profiles, directives)

	for i := 0; i < 5; i++ {
		_, err := r.Resolve(ctx, model.CredentialBinding{OwnerUserID: owner}, "")
		require.NoError(t, err)
	}
	assert.Equal(t, 1, profiles.gets)
}
