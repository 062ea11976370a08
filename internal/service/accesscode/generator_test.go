package accesscode_test

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mesdirectives/access-api/internal/model"
	"github.com/mesdirectives/access-api/internal/service/accesscode"
	"github.com/mesdirectives/access-api/pkg/errors"
)

func newTestGenerator(t *testing.T) (*accesscode.Generator, *fakeCodeRepo, *fakeShareRepo, *fakeProfileRepo, *fakeDirectiveRepo) {
	t.Helper()
	codes := &fakeCodeRepo{}
	shares := &fakeShareRepo{}
	profiles := newFakeProfileRepo()
	directives := newFakeDirectiveRepo()
	g := accesscode.NewGenerator(codes, shares, profiles, directives, &fakeOutboxRepo{}, testLogger(), testMetrics, 30)
	return g, codes, shares, profiles, directives
}

func seedProfile(t *testing.T, profiles *fakeProfileRepo, userID uuid.UUID) {
	t.Helper()
	require.NoError(t, profiles.Create(context.Background(), &model.Profile{
		UserID:    userID,
		FirstName: "Marie",
		LastName:  "Dupont",
		BirthDate: "1950-03-15",
	}))
}

func TestGenerateFixedCodeDeterministic(t *testing.T) {
	userID := uuid.New()
	first := accesscode.GenerateFixedCode(userID)
	for i := 0; i < 10; i++ {
		assert.Equal(t, first, accesscode.GenerateFixedCode(userID))
	}
	assert.NotEqual(t, first, accesscode.GenerateFixedCode(uuid.New()))
}

func TestGenerateFixedCodeShape(t *testing.T) {
	for i := 0; i < 100; i++ {
		code := accesscode.GenerateFixedCode(uuid.New())
		assert.Len(t, code, model.CodeLength)
		assert.Equal(t, strings.ToUpper(code), code)
		assert.NotContains(t, code, "0")
		assert.NotContains(t, code, "1")
		assert.NotContains(t, code, "5")
	}
}

func TestGenerateFixedCodeRemapsAmbiguousDigits(t *testing.T) {
	// First 8 hex chars 01517050 exercise every remapped digit.
	userID := uuid.MustParse("01517050-0000-4000-8000-000000000000")
	assert.Equal(t, "OISI7OSO", accesscode.GenerateFixedCode(userID))
}

func TestGenerateTemporaryCode(t *testing.T) {
	g, codes, _, profiles, _ := newTestGenerator(t)
	owner := uuid.New()
	seedProfile(t, profiles, owner)

	record, err := g.GenerateTemporary(context.Background(), owner, accesscode.GenerateOptions{})
	require.NoError(t, err)

	assert.Len(t, record.Code, model.CodeLength)
	for _, c := range record.Code {
		assert.Contains(t, "ABCDEFGHIJKLMNOPQRSTUVWXYZ2346789", string(c))
	}
	assert.Equal(t, model.CodeKindTemporary, record.Kind)
	assert.Equal(t, owner, record.OwnerUserID)
	require.NotNil(t, record.ExpiresAt)

	stored, err := codes.FindByCode(context.Background(), record.Code)
	require.NoError(t, err)
	require.Len(t, stored, 1)
}

func TestGenerateTemporaryExpirySemantics(t *testing.T) {
	g, _, _, profiles, _ := newTestGenerator(t)
	owner := uuid.New()
	seedProfile(t, profiles, owner)

	now := time.Date(2026, 8, 1, 12, 0, 0, 0, time.UTC)
	g.WithClock(func() time.Time { return now })
	ctx := context.Background()

	// Absent: 30-day default.
	record, err := g.GenerateTemporary(ctx, owner, accesscode.GenerateOptions{})
	require.NoError(t, err)
	require.NotNil(t, record.ExpiresAt)
	assert.Equal(t, now.AddDate(0, 0, 30), *record.ExpiresAt)

	// Explicit 7 days.
	days := 7
	record, err = g.GenerateTemporary(ctx, owner, accesscode.GenerateOptions{ExpiresInDays: &days})
	require.NoError(t, err)
	require.NotNil(t, record.ExpiresAt)
	assert.Equal(t, now.AddDate(0, 0, 7), *record.ExpiresAt)

	// Zero means no limit.
	zero := 0
	record, err = g.GenerateTemporary(ctx, owner, accesscode.GenerateOptions{ExpiresInDays: &zero})
	require.NoError(t, err)
	assert.Nil(t, record.ExpiresAt)
}

func TestGenerateTemporaryUnknownOwner(t *testing.T) {
	g, _, _, _, _ := newTestGenerator(t)

	_, err := g.GenerateTemporary(context.Background(), uuid.New(), accesscode.GenerateOptions{})
	require.Error(t, err)
	assert.True(t, errors.IsCode(err, errors.ErrGeneration))
}

func TestExtendCode(t *testing.T) {
	g, codes, _, profiles, _ := newTestGenerator(t)
	owner := uuid.New()
	seedProfile(t, profiles, owner)

	now := time.Date(2026, 8, 1, 12, 0, 0, 0, time.UTC)
	g.WithClock(func() time.Time { return now })
	ctx := context.Background()

	record, err := g.GenerateTemporary(ctx, owner, accesscode.GenerateOptions{})
	require.NoError(t, err)

	extended, err := g.Extend(ctx, record.Code, 15)
	require.NoError(t, err)
	require.NotNil(t, extended.ExpiresAt)
	assert.Equal(t, record.ExpiresAt.AddDate(0, 0, 15), *extended.ExpiresAt)

	stored, err := codes.FindByCode(ctx, record.Code)
	require.NoError(t, err)
	require.Len(t, stored, 1)
	assert.Equal(t, *extended.ExpiresAt, *stored[0].ExpiresAt)
}

func TestExtendExpiredCodeAnchorsOnNow(t *testing.T) {
	g, _, _, profiles, _ := newTestGenerator(t)
	owner := uuid.New()
	seedProfile(t, profiles, owner)
	ctx := context.Background()

	issued := time.Date(2026, 6, 1, 12, 0, 0, 0, time.UTC)
	g.WithClock(func() time.Time { return issued })
	days := 7
	record, err := g.GenerateTemporary(ctx, owner, accesscode.GenerateOptions{ExpiresInDays: &days})
	require.NoError(t, err)

	// Two months later the code is long expired.
	later := issued.AddDate(0, 2, 0)
	g.WithClock(func() time.Time { return later })

	extended, err := g.Extend(ctx, record.Code, 10)
	require.NoError(t, err)
	require.NotNil(t, extended.ExpiresAt)
	assert.Equal(t, later.AddDate(0, 0, 10), *extended.ExpiresAt)
}

func TestExtendNoLimitCodeUnchanged(t *testing.T) {
	g, _, _, profiles, _ := newTestGenerator(t)
	owner := uuid.New()
	seedProfile(t, profiles, owner)
	ctx := context.Background()

	zero := 0
	record, err := g.GenerateTemporary(ctx, owner, accesscode.GenerateOptions{ExpiresInDays: &zero})
	require.NoError(t, err)

	extended, err := g.Extend(ctx, record.Code, 30)
	require.NoError(t, err)
	assert.Nil(t, extended.ExpiresAt)
}

func TestExtendUnknownCode(t *testing.T) {
	g, _, _, _, _ := newTestGenerator(t)

	_, err := g.Extend(context.Background(), "AAAA2222", 7)
	require.Error(t, err)
	assert.True(t, errors.IsCode(err, errors.ErrNotFound))
}

func TestRevokeIsIdempotent(t *testing.T) {
	g, codes, _, profiles, _ := newTestGenerator(t)
	owner := uuid.New()
	seedProfile(t, profiles, owner)
	ctx := context.Background()

	record, err := g.GenerateTemporary(ctx, owner, accesscode.GenerateOptions{})
	require.NoError(t, err)

	require.NoError(t, g.Revoke(ctx, record.Code))
	stored, err := codes.FindByCode(ctx, record.Code)
	require.NoError(t, err)
	assert.Empty(t, stored)

	// Second and third revocations succeed quietly.
	require.NoError(t, g.Revoke(ctx, record.Code))
	require.NoError(t, g.Revoke(ctx, record.Code))
}

func TestRevokeRemovesSharedProfiles(t *testing.T) {
	g, _, shares, profiles, _ := newTestGenerator(t)
	owner := uuid.New()
	seedProfile(t, profiles, owner)
	ctx := context.Background()

	share, err := g.GenerateShare(ctx, owner, 30)
	require.NoError(t, err)

	require.NoError(t, g.Revoke(ctx, share.Code))
	stored, err := shares.FindByCode(ctx, share.Code)
	require.NoError(t, err)
	assert.Empty(t, stored)
}

func TestGenerateShareSnapshotsIdentity(t *testing.T) {
	g, _, _, profiles, _ := newTestGenerator(t)
	owner := uuid.New()
	seedProfile(t, profiles, owner)

	share, err := g.GenerateShare(context.Background(), owner, 30)
	require.NoError(t, err)

	assert.Equal(t, "Marie", share.FirstName)
	assert.Equal(t, "Dupont", share.LastName)
	assert.Equal(t, "1950-03-15", share.BirthDate)
	assert.Len(t, share.Code, model.CodeLength)
}

func TestSetInstitutionCodeOwnership(t *testing.T) {
	g, _, _, profiles, directives := newTestGenerator(t)
	owner := uuid.New()
	seedProfile(t, profiles, owner)
	ctx := context.Background()

	directive := &model.Directive{ID: uuid.New(), OwnerUserID: owner, Title: "Mes directives"}
	require.NoError(t, directives.Create(ctx, directive))

	code, expiresAt, err := g.SetInstitutionCode(ctx, directive.ID, owner, 30)
	require.NoError(t, err)
	assert.Len(t, code, model.CodeLength)
	assert.NotNil(t, expiresAt)

	// A stranger cannot issue or clear the credential.
	_, _, err = g.SetInstitutionCode(ctx, directive.ID, uuid.New(), 30)
	assert.True(t, errors.IsCode(err, errors.ErrUnauthorized))
	err = g.ClearInstitutionCode(ctx, directive.ID, uuid.New())
	assert.True(t, errors.IsCode(err, errors.ErrUnauthorized))

	require.NoError(t, g.ClearInstitutionCode(ctx, directive.ID, owner))
	stored, err := directives.Get(ctx, directive.ID)
	require.NoError(t, err)
	assert.Nil(t, stored.InstitutionCode)
}

func TestNormalizeCode(t *testing.T) {
	assert.Equal(t, "ABCD2346", accesscode.NormalizeCode("  abcd2346 "))
	assert.Equal(t, "XYZ", accesscode.NormalizeCode("xyz"))
}
