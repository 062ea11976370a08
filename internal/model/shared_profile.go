package model

import (
	"time"

	"github.com/google/uuid"
)

// SharedProfile stores a snapshot of the owner's identity next to the
// code, so validation can cross-check without touching the live profile.
type SharedProfile struct {
	ID          uuid.UUID  `db:"id" json:"id"`
	Code        string     `db:"code" json:"code"`
	OwnerUserID uuid.UUID  `db:"owner_user_id" json:"owner_user_id"`
	FirstName   string     `db:"first_name" json:"first_name"`
	LastName    string     `db:"last_name" json:"last_name"`
	BirthDate   string     `db:"birth_date" json:"birth_date"`
	ExpiresAt   *time.Time `db:"expires_at" json:"expires_at,omitempty"`
	CreatedAt   time.Time  `db:"created_at" json:"created_at"`
}

type CreateShareRequest struct {
	ExpiresInDays int `json:"expires_in_days" binding:"omitempty,min=0,max=365"`
}
