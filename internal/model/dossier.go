package model

import (
	"time"

	"github.com/google/uuid"
)

// Dossier is the bounded view of a patient's data handed back after a
// successful validation. It is never persisted; the caller owns its
// lifetime.
type Dossier struct {
	ID             uuid.UUID      `json:"id"`
	UserID         uuid.UUID      `json:"user_id"`
	IsFullAccess   bool           `json:"is_full_access"`
	DirectivesOnly bool           `json:"is_directives_only"`
	MedicalOnly    bool           `json:"is_medical_only"`
	ProfileData    ProfileData    `json:"profile_data"`
	Contenu        DossierContent `json:"contenu"`
	ResolvedAt     time.Time      `json:"resolved_at"`
}

// ProfileData is the profile subset exposed through a dossier.
type ProfileData struct {
	FirstName string `json:"first_name"`
	LastName  string `json:"last_name"`
	BirthDate string `json:"birth_date"`
}

// DossierContent mirrors the document structure the drafting UI produces;
// patient keys keep the product's French naming.
type DossierContent struct {
	Patient   PatientSummary    `json:"patient"`
	Documents []DossierDocument `json:"documents"`
}

type PatientSummary struct {
	Prenom        string `json:"prenom"`
	Nom           string `json:"nom"`
	DateNaissance string `json:"date_naissance"`
}

type DossierDocument struct {
	ID        uuid.UUID `json:"id"`
	Title     string    `json:"titre"`
	CreatedAt time.Time `json:"created_at"`
}
