package resident

import (
	"time"

	"github.com/google/uuid"

	"github.com/careops/careops/internal/engine"
)

// Admission statuses.
const (
	StatusActive     = "active"
	StatusPending    = "pending"
	StatusInactive   = "inactive"
	StatusDischarged = "discharged"
)

// Resident maps to the resident table. Residents are created on admission
// and soft-archived on discharge, never deleted: medication orders and
// care plans hang off this root.
type Resident struct {
	ID             uuid.UUID  `db:"id" json:"id"`
	Name           string     `db:"name" json:"name"`
	Age            *int       `db:"age" json:"age,omitempty"`
	Room           string     `db:"room" json:"room"`
	Status         string     `db:"status" json:"status"`
	CareLevel      *string    `db:"care_level" json:"care_level,omitempty"`
	PrimaryContact *string    `db:"primary_contact" json:"primary_contact,omitempty"`
	ContactPhone   *string    `db:"contact_phone" json:"contact_phone,omitempty"`
	ContactEmail   *string    `db:"contact_email" json:"contact_email,omitempty"`
	AdmissionDate  *time.Time `db:"admission_date" json:"admission_date,omitempty"`
	LastAssessment *time.Time `db:"last_assessment" json:"last_assessment,omitempty"`
	ArchivedAt     *time.Time `db:"archived_at" json:"archived_at,omitempty"`
	CreatedAt      time.Time  `db:"created_at" json:"created_at"`
	UpdatedAt      time.Time  `db:"updated_at" json:"updated_at"`
}

// View is a resident annotated with the active alerts aggregated from the
// entities that belong to it (medication orders, care plans).
type View struct {
	*Resident
	Alerts []engine.Alert `json:"alerts"`
}
