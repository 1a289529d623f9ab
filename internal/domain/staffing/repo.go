package staffing

import (
	"context"
	"time"

	"github.com/google/uuid"
)

// StaffRepository is the persistence port for care team members.
type StaffRepository interface {
	Create(ctx context.Context, st *Staff) error
	GetByID(ctx context.Context, id uuid.UUID) (*Staff, error)
	Update(ctx context.Context, st *Staff) error
	Search(ctx context.Context, params map[string]string, limit, offset int) ([]*Staff, int, error)
}

// ShiftRepository is the persistence port for shifts.
type ShiftRepository interface {
	Create(ctx context.Context, sh *Shift) error
	GetByID(ctx context.Context, id uuid.UUID) (*Shift, error)
	Update(ctx context.Context, sh *Shift) error
	// ListByDateRange returns shifts with date in [from, to), ordered by
	// date then window start.
	ListByDateRange(ctx context.Context, from, to time.Time) ([]*Shift, error)
}

// AssignmentRepository is the persistence port for shift assignments.
type AssignmentRepository interface {
	// Upsert inserts the (shift, staff) pair if absent. Returns false when
	// the pair already existed.
	Upsert(ctx context.Context, a *Assignment) (bool, error)
	Delete(ctx context.Context, shiftID, staffID uuid.UUID) error
	ListByShift(ctx context.Context, shiftID uuid.UUID) ([]*Assignment, error)
	// ListShiftsByStaff returns the shifts a staff member is assigned to
	// with date in [from, to). Used for overlap detection.
	ListShiftsByStaff(ctx context.Context, staffID uuid.UUID, from, to time.Time) ([]*Shift, error)
}
