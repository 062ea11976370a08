package accesscode

import (
	"context"
	"crypto/rand"
	"encoding/json"
	"fmt"
	"math/big"
	"regexp"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/mesdirectives/access-api/internal/model"
	"github.com/mesdirectives/access-api/internal/repository"
	"github.com/mesdirectives/access-api/pkg/errors"
	"github.com/mesdirectives/access-api/pkg/logger"
	"github.com/mesdirectives/access-api/pkg/metrics"
)

// tempAlphabet excludes 0, 1 and 5: fixed codes remap those digits to
// O, I and S, so keeping them out of random codes avoids transcription
// ambiguity across both kinds.
const tempAlphabet = "ABCDEFGHIJKLMNOPQRSTUVWXYZ2346789"

// maxCollisionRetries bounds the regenerate-on-collision loop.
const maxCollisionRetries = 5

var nonAlnum = regexp.MustCompile(`[^a-zA-Z0-9]`)

// GenerateFixedCode derives the permanent code for a user id. Pure: the
// same id always yields the same code, so a permanent code can be
// verified by recomputation without any lookup.
func GenerateFixedCode(userID uuid.UUID) string {
	s := nonAlnum.ReplaceAllString(userID.String(), "")
	if len(s) > model.CodeLength {
		s = s[:model.CodeLength]
	}
	s = strings.ToUpper(s)
	for len(s) < model.CodeLength {
		s += "0"
	}
	s = strings.NewReplacer("0", "O", "1", "I", "5", "S").Replace(s)
	return s[:model.CodeLength]
}

// GenerateOptions controls temporary-code issuance.
type GenerateOptions struct {
	// ExpiresInDays: nil means the configured default, 0 means no limit.
	ExpiresInDays       *int
	RequirePersonalInfo bool
	SingleUse           bool
	BoundDocumentID     *uuid.UUID
}

// Generator issues, extends and revokes stored access codes.
type Generator struct {
	codes             repository.AccessCodeRepository
	shares            repository.SharedProfileRepository
	profiles          repository.ProfileRepository
	directives        repository.DirectiveRepository
	outbox            repository.OutboxRepository
	logger            *logger.Logger
	metrics           *metrics.Metrics
	defaultExpiryDays int
	now               func() time.Time
}

func NewGenerator(
	codes repository.AccessCodeRepository,
	shares repository.SharedProfileRepository,
	profiles repository.ProfileRepository,
	directives repository.DirectiveRepository,
	outbox repository.OutboxRepository,
	log *logger.Logger,
	m *metrics.Metrics,
	defaultExpiryDays int,
) *Generator {
	if defaultExpiryDays <= 0 {
		defaultExpiryDays = model.DefaultExpiryDays
	}
	return &Generator{
		codes:             codes,
		shares:            shares,
		profiles:          profiles,
		directives:        directives,
		outbox:            outbox,
		logger:            log,
		metrics:           m,
		defaultExpiryDays: defaultExpiryDays,
		now:               time.Now,
	}
}

// WithClock overrides the generator's clock. Test hook.
func (g *Generator) WithClock(now func() time.Time) *Generator {
	g.now = now
	return g
}

// FixedCode returns the permanent code for the user. No I/O.
func (g *Generator) FixedCode(userID uuid.UUID) string {
	return GenerateFixedCode(userID)
}

// GenerateTemporary creates and persists a random temporary code for the
// owner. The code is drawn from a CSPRNG and checked for collision
// against currently-active codes before being accepted.
func (g *Generator) GenerateTemporary(ctx context.Context, ownerUserID uuid.UUID, opts GenerateOptions) (*model.AccessCode, error) {
	if _, err := g.profiles.Get(ctx, ownerUserID); err != nil {
		return nil, errors.Generation("impossible de générer le code", fmt.Errorf("owner profile lookup: %w", err))
	}

	expiresAt := g.expiryFromDays(opts.ExpiresInDays)

	code, err := g.uniqueRandomCode(ctx)
	if err != nil {
		return nil, err
	}

	record := &model.AccessCode{
		ID:                    uuid.New(),
		Code:                  code,
		Kind:                  model.CodeKindTemporary,
		OwnerUserID:           ownerUserID,
		BoundDocumentID:       opts.BoundDocumentID,
		ExpiresAt:             expiresAt,
		RequiresIdentityMatch: opts.RequirePersonalInfo,
		SingleUse:             opts.SingleUse,
	}

	if err := g.codes.Create(ctx, record); err != nil {
		return nil, errors.Generation("impossible de générer le code", err)
	}

	g.metrics.CodesIssued.WithLabelValues(string(model.CodeKindTemporary)).Inc()
	g.emitEvent(ctx, model.EventCodeGenerated, record)

	return record, nil
}

// Extend pushes a stored code's expiry further out. An already-expired
// code is re-anchored on the current time rather than its past expiry;
// a no-limit code is left untouched.
func (g *Generator) Extend(ctx context.Context, code string, additionalDays int) (*model.AccessCode, error) {
	matches, err := g.codes.FindByCode(ctx, NormalizeCode(code))
	if err != nil {
		return nil, errors.Technical(err)
	}
	if len(matches) == 0 {
		return nil, errors.NewNotFound("access code", nil)
	}

	record := matches[0]
	if record.ExpiresAt == nil {
		return record, nil
	}

	base := *record.ExpiresAt
	if record.Expired(g.now()) {
		base = g.now()
	}
	newExpiry := base.AddDate(0, 0, additionalDays)
	if err := g.codes.UpdateExpiry(ctx, record.ID, &newExpiry); err != nil {
		return nil, errors.Technical(err)
	}
	record.ExpiresAt = &newExpiry

	g.emitEvent(ctx, model.EventCodeExtended, record)
	return record, nil
}

// Revoke removes a code from every storage location it may live in.
// Revoking an absent code is not an error.
func (g *Generator) Revoke(ctx context.Context, code string) error {
	normalized := NormalizeCode(code)

	deleted, err := g.codes.DeleteByCode(ctx, normalized)
	if err != nil {
		return errors.Technical(err)
	}
	shared, err := g.shares.DeleteByCode(ctx, normalized)
	if err != nil {
		return errors.Technical(err)
	}

	if deleted+shared > 0 {
		g.metrics.CodesRevoked.Inc()
		g.emitEvent(ctx, model.EventCodeRevoked, map[string]string{"code": normalized})
	}
	return nil
}

// ListByOwner returns every stored code belonging to the owner.
func (g *Generator) ListByOwner(ctx context.Context, ownerUserID uuid.UUID) ([]*model.AccessCode, error) {
	codes, err := g.codes.ListByOwner(ctx, ownerUserID)
	if err != nil {
		return nil, errors.Technical(err)
	}
	return codes, nil
}

// GenerateShare snapshots the owner's identity into a shared-profile
// record so validation can cross-check without touching the live profile.
func (g *Generator) GenerateShare(ctx context.Context, ownerUserID uuid.UUID, expiresInDays int) (*model.SharedProfile, error) {
	profile, err := g.profiles.Get(ctx, ownerUserID)
	if err != nil {
		return nil, errors.Generation("impossible de générer le code", fmt.Errorf("owner profile lookup: %w", err))
	}

	code, err := g.uniqueRandomCode(ctx)
	if err != nil {
		return nil, err
	}

	days := expiresInDays
	share := &model.SharedProfile{
		ID:          uuid.New(),
		Code:        code,
		OwnerUserID: ownerUserID,
		FirstName:   profile.FirstName,
		LastName:    profile.LastName,
		BirthDate:   profile.BirthDate,
		ExpiresAt:   g.expiryFromDays(&days),
	}

	if err := g.shares.Create(ctx, share); err != nil {
		return nil, errors.Generation("impossible de générer le code", err)
	}

	g.metrics.CodesIssued.WithLabelValues("shared_profile").Inc()
	g.emitEvent(ctx, model.EventCodeGenerated, share)
	return share, nil
}

// SetInstitutionCode issues a directive-scoped institution credential.
// Only the directive's owner may do so.
func (g *Generator) SetInstitutionCode(ctx context.Context, directiveID, ownerUserID uuid.UUID, expiresInDays int) (string, *time.Time, error) {
	directive, err := g.directives.Get(ctx, directiveID)
	if err != nil {
		return "", nil, errors.NewNotFound("directive", err)
	}
	if directive.OwnerUserID != ownerUserID {
		return "", nil, errors.Unauthorized(fmt.Errorf("directive %s not owned by %s", directiveID, ownerUserID))
	}

	code, err := g.uniqueRandomCode(ctx)
	if err != nil {
		return "", nil, err
	}

	days := expiresInDays
	expiresAt := g.expiryFromDays(&days)
	if err := g.directives.SetInstitutionCode(ctx, directiveID, &code, expiresAt); err != nil {
		return "", nil, errors.Technical(err)
	}

	g.metrics.CodesIssued.WithLabelValues(string(model.CodeKindInstitution)).Inc()
	g.emitEvent(ctx, model.EventCodeGenerated, map[string]string{"directive_id": directiveID.String()})
	return code, expiresAt, nil
}

// ClearInstitutionCode revokes a directive's institution credential.
func (g *Generator) ClearInstitutionCode(ctx context.Context, directiveID, ownerUserID uuid.UUID) error {
	directive, err := g.directives.Get(ctx, directiveID)
	if err != nil {
		return errors.NewNotFound("directive", err)
	}
	if directive.OwnerUserID != ownerUserID {
		return errors.Unauthorized(fmt.Errorf("directive %s not owned by %s", directiveID, ownerUserID))
	}
	if err := g.directives.SetInstitutionCode(ctx, directiveID, nil, nil); err != nil {
		return errors.Technical(err)
	}
	g.emitEvent(ctx, model.EventCodeRevoked, map[string]string{"directive_id": directiveID.String()})
	return nil
}

func (g *Generator) expiryFromDays(days *int) *time.Time {
	d := g.defaultExpiryDays
	if days != nil {
		d = *days
	}
	if d == 0 {
		return nil
	}
	t := g.now().AddDate(0, 0, d)
	return &t
}

func (g *Generator) uniqueRandomCode(ctx context.Context) (string, error) {
	for attempt := 0; attempt < maxCollisionRetries; attempt++ {
		code, err := randomCode(model.CodeLength)
		if err != nil {
			return "", errors.Generation("impossible de générer le code", err)
		}
		exists, err := g.codes.ActiveCodeExists(ctx, code, g.now())
		if err != nil {
			return "", errors.Technical(err)
		}
		if !exists {
			return code, nil
		}
	}
	return "", errors.Generation("impossible de générer le code", fmt.Errorf("collision retries exhausted"))
}

func randomCode(length int) (string, error) {
	alphabetLen := big.NewInt(int64(len(tempAlphabet)))
	b := make([]byte, length)
	for i := range b {
		n, err := rand.Int(rand.Reader, alphabetLen)
		if err != nil {
			return "", fmt.Errorf("failed to draw random index: %w", err)
		}
		b[i] = tempAlphabet[n.Int64()]
	}
	return string(b), nil
}

// NormalizeCode trims and uppercases a presented code.
func NormalizeCode(code string) string {
	return strings.ToUpper(strings.TrimSpace(code))
}

func (g *Generator) emitEvent(ctx context.Context, eventType string, payload interface{}) {
	data, err := json.Marshal(payload)
	if err != nil {
		g.logger.Error(err, "failed to marshal outbox payload", "event_type", eventType)
		return
	}
	if err := g.outbox.Create(ctx, &model.OutboxEvent{EventType: eventType, Payload: data}); err != nil {
		g.logger.Error(err, "failed to create outbox event", "event_type", eventType)
	}
}
