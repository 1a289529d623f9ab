package staffing

import (
	"time"

	"github.com/google/uuid"

	"github.com/careops/careops/internal/engine"
)

// Shift types and their canonical windows. Night wraps midnight.
const (
	ShiftMorning   = "morning"
	ShiftAfternoon = "afternoon"
	ShiftNight     = "night"
)

var defaultWindows = map[string][2]string{
	ShiftMorning:   {"06:00", "14:00"},
	ShiftAfternoon: {"14:00", "22:00"},
	ShiftNight:     {"22:00", "06:00"},
}

// Staff is a care team member who can hold shift assignments and record
// administrations.
type Staff struct {
	ID        uuid.UUID `db:"id" json:"id"`
	Name      string    `db:"name" json:"name"`
	Role      string    `db:"role" json:"role"`
	Phone     *string   `db:"phone" json:"phone,omitempty"`
	Active    bool      `db:"active" json:"active"`
	CreatedAt time.Time `db:"created_at" json:"created_at"`
	UpdatedAt time.Time `db:"updated_at" json:"updated_at"`
}

// Shift is one staffing slot on one date. Date carries only the calendar
// day; the window is wall-clock "HH:MM" and may wrap midnight.
type Shift struct {
	ID            uuid.UUID `db:"id" json:"id"`
	Date          time.Time `db:"date" json:"date"`
	Type          string    `db:"type" json:"type"`
	RequiredCount int       `db:"required_count" json:"required_count"`
	StartTime     string    `db:"start_time" json:"start_time"`
	EndTime       string    `db:"end_time" json:"end_time"`
	CreatedAt     time.Time `db:"created_at" json:"created_at"`
	UpdatedAt     time.Time `db:"updated_at" json:"updated_at"`
}

// Assignment links a staff member to a shift. The (shift, staff) pair is
// unique; re-assignment is a no-op.
type Assignment struct {
	ID        uuid.UUID `db:"id" json:"id"`
	ShiftID   uuid.UUID `db:"shift_id" json:"shift_id"`
	StaffID   uuid.UUID `db:"staff_id" json:"staff_id"`
	CreatedAt time.Time `db:"created_at" json:"created_at"`
}

// View is a shift joined with its assignments and resolved coverage.
type View struct {
	*Shift
	StaffIDs []uuid.UUID           `json:"staff_ids"`
	Coverage engine.CoverageResult `json:"coverage"`
}

// window returns the shift bounds as minutes into the week anchored at the
// shift's date, the end shifted a day forward when the window wraps
// midnight. Parse errors have been rejected at write time.
func (s *Shift) window() (start, end int) {
	st, _ := engine.ParseTimeOfDay(s.StartTime)
	en, _ := engine.ParseTimeOfDay(s.EndTime)
	start = int(st)
	end = int(en)
	if end <= start {
		end += 24 * 60
	}
	return start, end
}

// Overlaps reports whether two shift windows intersect in absolute time.
func (s *Shift) Overlaps(other *Shift) bool {
	dayDiff := int(other.Date.Sub(s.Date).Hours() / 24)
	aStart, aEnd := s.window()
	bStart, bEnd := other.window()
	bStart += dayDiff * 24 * 60
	bEnd += dayDiff * 24 * 60
	return aStart < bEnd && bStart < aEnd
}
