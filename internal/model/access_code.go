package model

import (
	"time"

	"github.com/google/uuid"
)

type CodeKind string

const (
	CodeKindPermanent   CodeKind = "permanent"
	CodeKindTemporary   CodeKind = "temporary"
	CodeKindInstitution CodeKind = "institution"
)

// CodeLength is the fixed length of every access code.
const CodeLength = 8

// DefaultExpiryDays applies when the caller does not pick an expiry.
const DefaultExpiryDays = 30

// AccessCode is the dedicated-table credential. Permanent codes are
// recomputable from the owner id and are never stored here.
type AccessCode struct {
	ID              uuid.UUID  `db:"id" json:"id"`
	Code            string     `db:"code" json:"code"`
	Kind            CodeKind   `db:"kind" json:"kind"`
	OwnerUserID     uuid.UUID  `db:"owner_user_id" json:"owner_user_id"`
	BoundDocumentID *uuid.UUID `db:"bound_document_id" json:"bound_document_id,omitempty"`

	// ExpiresAt is nil for codes issued with no limit.
	ExpiresAt *time.Time `db:"expires_at" json:"expires_at,omitempty"`

	RequiresIdentityMatch bool       `db:"requires_identity_match" json:"requires_identity_match"`
	SingleUse             bool       `db:"single_use" json:"single_use"`
	UsedAt                *time.Time `db:"used_at" json:"used_at,omitempty"`

	CreatedAt time.Time `db:"created_at" json:"created_at"`
}

// Expired reports whether the code is past its expiry at the given time.
func (c *AccessCode) Expired(now time.Time) bool {
	return c.ExpiresAt != nil && !c.ExpiresAt.After(now)
}

// Consumed reports whether a single-use code has already been presented.
func (c *AccessCode) Consumed() bool {
	return c.SingleUse && c.UsedAt != nil
}

type GenerateCodeRequest struct {
	// 0 means no limit (nil expiry); absent means the 30-day default.
	ExpiresInDays       *int       `json:"expires_in_days" binding:"omitempty,min=0,max=365"`
	RequirePersonalInfo bool       `json:"require_personal_info"`
	SingleUse           bool       `json:"single_use"`
	BoundDocumentID     *uuid.UUID `json:"bound_document_id"`
}

type GenerateCodeResponse struct {
	Code      string     `json:"code"`
	Kind      CodeKind   `json:"kind"`
	ExpiresAt *time.Time `json:"expires_at,omitempty"`
}

type ExtendCodeRequest struct {
	AdditionalDays int `json:"additional_days" binding:"required,min=1,max=365"`
}

// ClaimedIdentity is what the code bearer types in alongside the code.
type ClaimedIdentity struct {
	FirstName string `json:"first_name"`
	LastName  string `json:"last_name"`
	BirthDate string `json:"birth_date"`
}

func (ci ClaimedIdentity) Empty() bool {
	return ci.FirstName == "" && ci.LastName == "" && ci.BirthDate == ""
}

// Document type scoping carried by the validation request.
const (
	DocumentTypeMedical   = "medical"
	DocumentTypeDirective = "directive"
)

type ValidateCodeRequest struct {
	AccessCode   string `json:"access_code" binding:"required,accesscode"`
	FirstName    string `json:"first_name"`
	LastName     string `json:"last_name"`
	BirthDate    string `json:"birth_date"`
	DocumentType string `json:"document_type" binding:"omitempty,oneof=medical directive"`
}

// CredentialSourceName identifies which storage shape produced a binding.
type CredentialSourceName string

const (
	SourceAccessCodes   CredentialSourceName = "access_codes"
	SourceSharedProfile CredentialSourceName = "shared_profiles"
	SourceInstitution   CredentialSourceName = "directive_institution"
	SourceLegacyProfile CredentialSourceName = "legacy_profile"
	SourcePermanent     CredentialSourceName = "permanent"
)

// CredentialBinding is the common shape every lookup path resolves to.
// The validator ranks bindings; sources never do.
type CredentialBinding struct {
	Source       CredentialSourceName
	OwnerUserID  uuid.UUID
	AccessCodeID *uuid.UUID
	ExpiresAt    *time.Time

	// SnapshotIdentity is set by the shared-profile path, which stores
	// its own copy of the identity fields next to the code.
	SnapshotIdentity *ClaimedIdentity

	BoundDocumentID       *uuid.UUID
	RequiresIdentityMatch bool
	SingleUse             bool
	Used                  bool
}

// Expired reports whether the binding is past its expiry at the given time.
func (b *CredentialBinding) Expired(now time.Time) bool {
	return b.ExpiresAt != nil && !b.ExpiresAt.After(now)
}
