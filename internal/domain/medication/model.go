package medication

import (
	"time"

	"github.com/google/uuid"

	"github.com/careops/careops/internal/engine"
)

// Order is a standing medication order for a resident. Times holds the
// daily dosing schedule as wall-clock "HH:MM" entries; each entry yields
// one dosing instance per day.
type Order struct {
	ID               uuid.UUID  `db:"id" json:"id"`
	ResidentID       uuid.UUID  `db:"resident_id" json:"resident_id"`
	Name             string     `db:"name" json:"name"`
	Dosage           string     `db:"dosage" json:"dosage"`
	Times            []string   `db:"times" json:"times"`
	Instructions     *string    `db:"instructions" json:"instructions,omitempty"`
	RefillsRemaining int        `db:"refills_remaining" json:"refills_remaining"`
	LastRefill       *time.Time `db:"last_refill" json:"last_refill,omitempty"`
	Active           bool       `db:"active" json:"active"`
	CreatedAt        time.Time  `db:"created_at" json:"created_at"`
	UpdatedAt        time.Time  `db:"updated_at" json:"updated_at"`
}

// AdministrationEvent is an immutable record that a dose was given. Events
// are append-only; corrections append new facts rather than rewriting old
// ones.
type AdministrationEvent struct {
	ID             uuid.UUID `db:"id" json:"id"`
	OrderID        uuid.UUID `db:"order_id" json:"order_id"`
	ResidentID     uuid.UUID `db:"resident_id" json:"resident_id"`
	StaffID        uuid.UUID `db:"staff_id" json:"staff_id"`
	AdministeredAt time.Time `db:"administered_at" json:"administered_at"`
	Notes          *string   `db:"notes" json:"notes,omitempty"`
	CreatedAt      time.Time `db:"created_at" json:"created_at"`
}

// OrderView is an order joined with its resolved status projection.
type OrderView struct {
	*Order
	Resolution engine.MedicationResult `json:"resolution"`
}

func (o *Order) engineInput() engine.MedicationInput {
	return engine.MedicationInput{
		OrderID:          o.ID,
		Times:            o.Times,
		RefillsRemaining: o.RefillsRemaining,
		LastRefill:       o.LastRefill,
	}
}

func engineEvents(events []*AdministrationEvent) []engine.Administration {
	out := make([]engine.Administration, 0, len(events))
	for _, ev := range events {
		out = append(out, engine.Administration{
			EventID:        ev.ID,
			AdministeredAt: ev.AdministeredAt,
			StaffID:        ev.StaffID,
		})
	}
	return out
}
