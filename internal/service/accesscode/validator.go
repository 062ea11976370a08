package accesscode

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus"

	"github.com/mesdirectives/access-api/internal/model"
	"github.com/mesdirectives/access-api/internal/repository"
	"github.com/mesdirectives/access-api/internal/service/audit"
	"github.com/mesdirectives/access-api/internal/service/dossier"
	"github.com/mesdirectives/access-api/internal/service/identity"
	"github.com/mesdirectives/access-api/pkg/errors"
	"github.com/mesdirectives/access-api/pkg/logger"
	"github.com/mesdirectives/access-api/pkg/metrics"
)

// ValidateInput is one validation attempt as presented by the bearer.
type ValidateInput struct {
	Code         string
	Claimed      model.ClaimedIdentity
	DocumentType string

	// AuthenticatedUserID, when present, enables the permanent-code
	// shortcut: the fixed code is recomputed and compared, no storage
	// lookup needed.
	AuthenticatedUserID *uuid.UUID

	ActorName      string
	ActorFirstName string
}

// Validator resolves a presented code to a dossier by walking the
// credential sources in their fixed priority order. The first binding
// that survives the expiry and identity rules wins; sources are never
// merged or reconciled.
type Validator struct {
	sources  []CredentialSource
	codes    repository.AccessCodeRepository
	profiles repository.ProfileRepository
	matcher  *identity.Matcher
	resolver *dossier.Resolver
	auditor  *audit.Service
	logger   *logger.Logger
	metrics  *metrics.Metrics
	now      func() time.Time
}

func NewValidator(
	sources []CredentialSource,
	codes repository.AccessCodeRepository,
	profiles repository.ProfileRepository,
	matcher *identity.Matcher,
	resolver *dossier.Resolver,
	auditor *audit.Service,
	log *logger.Logger,
	m *metrics.Metrics,
) *Validator {
	return &Validator{
		sources:  sources,
		codes:    codes,
		profiles: profiles,
		matcher:  matcher,
		resolver: resolver,
		auditor:  auditor,
		logger:   log,
		metrics:  m,
		now:      time.Now,
	}
}

// WithClock overrides the validator's clock. Test hook.
func (v *Validator) WithClock(now func() time.Time) *Validator {
	v.now = now
	return v
}

// Validate runs the fallback chain and, on success, returns the bounded
// dossier view. Every attempt is logged, win or lose.
func (v *Validator) Validate(ctx context.Context, input ValidateInput) (*model.Dossier, error) {
	timer := prometheus.NewTimer(v.metrics.ValidationDuration)
	defer timer.ObserveDuration()

	code := NormalizeCode(input.Code)

	// Permanent-code shortcut: recompute and compare, no lookup, no
	// expiry check (permanent codes never expire).
	if input.AuthenticatedUserID != nil && GenerateFixedCode(*input.AuthenticatedUserID) == code {
		binding := model.CredentialBinding{
			Source:      model.SourcePermanent,
			OwnerUserID: *input.AuthenticatedUserID,
		}
		return v.win(ctx, input, binding)
	}

	winner, sawMismatch, err := v.findWinner(ctx, code, input.Claimed)
	if err != nil {
		v.metrics.ValidationAttempts.WithLabelValues("none", "technical_error").Inc()
		v.auditor.LogAccessError(ctx, uuid.Nil, model.AccessResourceDossier, err)
		return nil, errors.Technical(err)
	}
	if winner == nil {
		if sawMismatch {
			v.metrics.ValidationAttempts.WithLabelValues("none", "identity_mismatch").Inc()
			v.logFailure(ctx, input, "identity_mismatch")
			return nil, errors.IdentityMismatch()
		}
		v.metrics.ValidationAttempts.WithLabelValues("none", "invalid_or_expired").Inc()
		v.logFailure(ctx, input, "invalid_or_expired")
		return nil, errors.InvalidOrExpiredCode()
	}

	return v.win(ctx, input, *winner)
}

// findWinner walks the sources in priority order and returns the first
// binding surviving the expiry and identity rules. sawMismatch reports
// whether any candidate failed only on identity, which distinguishes
// IdentityMismatch from InvalidOrExpiredCode in the final verdict.
func (v *Validator) findWinner(ctx context.Context, code string, claimed model.ClaimedIdentity) (*model.CredentialBinding, bool, error) {
	now := v.now()
	sawMismatch := false

	for _, source := range v.sources {
		bindings, err := source.Lookup(ctx, code)
		if err != nil {
			return nil, false, err
		}

		for i := range bindings {
			binding := bindings[i]
			if binding.Expired(now) {
				continue
			}
			if binding.SingleUse && binding.Used {
				continue
			}
			if binding.RequiresIdentityMatch {
				ok, err := v.identityMatches(ctx, binding, claimed)
				if err != nil {
					return nil, false, err
				}
				if !ok {
					sawMismatch = true
					continue
				}
			}
			return &binding, false, nil
		}
	}
	return nil, sawMismatch, nil
}

func (v *Validator) identityMatches(ctx context.Context, binding model.CredentialBinding, claimed model.ClaimedIdentity) (bool, error) {
	stored := binding.SnapshotIdentity
	if stored == nil {
		profile, err := v.profiles.Get(ctx, binding.OwnerUserID)
		if err != nil {
			// A code pointing at a missing profile cannot match; it is
			// not a technical failure of the whole chain.
			v.logger.Warn("credential owner has no profile",
				"owner_user_id", binding.OwnerUserID.String(),
				"source", string(binding.Source),
			)
			return false, nil
		}
		stored = &model.ClaimedIdentity{
			FirstName: profile.FirstName,
			LastName:  profile.LastName,
			BirthDate: profile.BirthDate,
		}
	}
	return v.matcher.Matches(claimed, *stored), nil
}

func (v *Validator) win(ctx context.Context, input ValidateInput, binding model.CredentialBinding) (*model.Dossier, error) {
	d, err := v.resolver.Resolve(ctx, binding, input.DocumentType)
	if err != nil {
		if appErr, ok := errors.AsAppError(err); ok && appErr.Code == errors.ErrProfileNotFound {
			v.metrics.ValidationAttempts.WithLabelValues(string(binding.Source), "profile_not_found").Inc()
			v.auditor.LogAccessError(ctx, binding.OwnerUserID, model.AccessResourceDossier, err)
			return nil, err
		}
		v.metrics.ValidationAttempts.WithLabelValues(string(binding.Source), "technical_error").Inc()
		v.auditor.LogAccessError(ctx, binding.OwnerUserID, model.AccessResourceDossier, err)
		return nil, errors.Technical(err)
	}

	if binding.SingleUse && binding.AccessCodeID != nil {
		if err := v.codes.MarkUsed(ctx, *binding.AccessCodeID, v.now()); err != nil {
			v.logger.Error(err, "failed to consume single-use code",
				"access_code_id", binding.AccessCodeID.String(),
			)
		}
	}

	v.metrics.ValidationAttempts.WithLabelValues(string(binding.Source), "success").Inc()
	v.auditor.LogAccessEvent(ctx, binding.OwnerUserID, resourceType(input.DocumentType), model.AccessActionValidate, &audit.EventOptions{
		AccessCodeID:   binding.AccessCodeID,
		ActorName:      input.ActorName,
		ActorFirstName: input.ActorFirstName,
		ResourceID:     resourceID(binding),
	})

	return d, nil
}

func (v *Validator) logFailure(ctx context.Context, input ValidateInput, reason string) {
	v.auditor.LogAccessEvent(ctx, uuid.Nil, resourceType(input.DocumentType), reason, &audit.EventOptions{
		ActorName:      input.ActorName,
		ActorFirstName: input.ActorFirstName,
	})
}

func resourceType(documentType string) string {
	switch documentType {
	case model.DocumentTypeMedical:
		return model.AccessResourceMedical
	case model.DocumentTypeDirective:
		return model.AccessResourceDirective
	default:
		return model.AccessResourceDossier
	}
}

func resourceID(binding model.CredentialBinding) *string {
	if binding.BoundDocumentID == nil {
		return nil
	}
	id := binding.BoundDocumentID.String()
	return &id
}
