package model

import (
	"time"

	"github.com/google/uuid"
)

// Profile is the patient identity record. BirthDate is kept as the raw
// stored string because historical rows carry several formats (bare ISO
// dates, full timestamps); normalization happens in the identity matcher.
type Profile struct {
	UserID    uuid.UUID `db:"user_id" json:"user_id"`
	Email     string    `db:"email" json:"email"`
	FirstName string    `db:"first_name" json:"first_name"`
	LastName  string    `db:"last_name" json:"last_name"`
	BirthDate string    `db:"birth_date" json:"birth_date"`

	// MedicalAccessCode is a legacy credential column kept for backward
	// compatibility. Lowest-priority lookup path, never expires.
	MedicalAccessCode *string `db:"medical_access_code" json:"-"`

	CreatedAt time.Time `db:"created_at" json:"created_at"`
	UpdatedAt time.Time `db:"updated_at" json:"updated_at"`
}

// ProfileUnknown is the fallback shown for missing profile fields.
const ProfileUnknown = "Inconnu"
