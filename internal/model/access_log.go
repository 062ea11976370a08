package model

import (
	"time"

	"github.com/google/uuid"
)

// AccessLogEntry is one row of the append-only access trail. Rows are
// never mutated or deleted inside the retention window.
type AccessLogEntry struct {
	ID     uuid.UUID `db:"id" json:"id"`
	UserID uuid.UUID `db:"user_id" json:"user_id"`

	// AccessCodeID is nil for permanent-code and legacy-column hits, and
	// for technical-failure rows.
	AccessCodeID *uuid.UUID `db:"access_code_id" json:"access_code_id,omitempty"`

	ActorName      string `db:"actor_name" json:"actor_name"`
	ActorFirstName string `db:"actor_first_name" json:"actor_first_name"`
	IPAddress      string `db:"ip_address" json:"ip_address"`
	UserAgent      string `db:"user_agent" json:"user_agent"`

	ResourceType string  `db:"resource_type" json:"resource_type"`
	Action       string  `db:"action" json:"action"`
	ResourceID   *string `db:"resource_id" json:"resource_id,omitempty"`

	CreatedAt time.Time `db:"created_at" json:"created_at"`
}

const (
	// IPClientSide is recorded when no server-side capture exists.
	IPClientSide = "client_side"

	AccessActionValidate = "validate"
	AccessActionConsult  = "consult"
	AccessActionError    = "error"

	AccessResourceDossier   = "dossier"
	AccessResourceDirective = "directive"
	AccessResourceMedical   = "medical_document"
)

// Anomaly types reported by the auditor. Labels are product vocabulary.
const (
	AnomalyHighVolume = "nombre_accès_élevé"
	AnomalyOffHours   = "accès_heures_inhabituelles"
)

const (
	// HighVolumeThreshold flags a calendar day with more accesses.
	HighVolumeThreshold = 20

	// Off-hours window: local hour in [OffHoursStart, OffHoursEnd).
	OffHoursStart = 0
	OffHoursEnd   = 5
)

type AnomalyEntry struct {
	Type        string `json:"type"`
	Date        string `json:"date,omitempty"`
	Count       int    `json:"count,omitempty"`
	Description string `json:"description"`
}

type AuditStats struct {
	TotalAccesses   int            `json:"total_accesses"`
	DistinctIPs     int            `json:"distinct_ips"`
	DistinctAgents  int            `json:"distinct_user_agents"`
	AccessesPerDay  map[string]int `json:"accesses_per_day"`
	WindowDays      int            `json:"window_days"`
	WindowStartDate string         `json:"window_start_date"`
}

type AuditReport struct {
	Suspicious bool           `json:"suspicious"`
	Message    string         `json:"message"`
	Details    []AnomalyEntry `json:"details"`
	Stats      AuditStats     `json:"stats"`
}
