package resident

import (
	"context"
	"time"

	"github.com/google/uuid"
)

// Repository is the persistence port for residents.
type Repository interface {
	Create(ctx context.Context, r *Resident) error
	GetByID(ctx context.Context, id uuid.UUID) (*Resident, error)
	Update(ctx context.Context, r *Resident) error
	// UpdateStatus changes the admission status. A non-nil archivedAt
	// soft-archives the resident at that instant.
	UpdateStatus(ctx context.Context, id uuid.UUID, status string, archivedAt *time.Time) error
	Search(ctx context.Context, params map[string]string, limit, offset int) ([]*Resident, int, error)
}
