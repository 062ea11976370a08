package model

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"
)

// Directive is a patient's advance-directive record. Content is the
// structured document (title, patient sub-object, included documents)
// produced by the drafting UI; this service treats it as opaque JSON.
type Directive struct {
	ID          uuid.UUID       `db:"id" json:"id"`
	OwnerUserID uuid.UUID       `db:"owner_user_id" json:"owner_user_id"`
	Title       string          `db:"title" json:"title"`
	Content     json.RawMessage `db:"content" json:"content"`

	// Directive-scoped institution credential, distinct from the
	// access_codes table.
	InstitutionCode          *string    `db:"institution_code" json:"-"`
	InstitutionCodeExpiresAt *time.Time `db:"institution_code_expires_at" json:"-"`

	CreatedAt time.Time `db:"created_at" json:"created_at"`
	UpdatedAt time.Time `db:"updated_at" json:"updated_at"`
}

type SetInstitutionCodeRequest struct {
	ExpiresInDays int `json:"expires_in_days" binding:"omitempty,min=0,max=365"`
}
