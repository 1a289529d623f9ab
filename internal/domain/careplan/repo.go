package careplan

import (
	"context"

	"github.com/google/uuid"
)

// PlanRepository is the persistence port for care plans.
type PlanRepository interface {
	Create(ctx context.Context, cp *CarePlan) error
	GetByID(ctx context.Context, id uuid.UUID) (*CarePlan, error)
	Update(ctx context.Context, cp *CarePlan) error
	Search(ctx context.Context, params map[string]string, limit, offset int) ([]*CarePlan, int, error)
	ListActiveByResident(ctx context.Context, residentID uuid.UUID) ([]*CarePlan, error)
	ListActive(ctx context.Context) ([]*CarePlan, error)
}

// GoalRepository is the persistence port for care goals.
type GoalRepository interface {
	Create(ctx context.Context, g *CareGoal) error
	GetByID(ctx context.Context, id uuid.UUID) (*CareGoal, error)
	// UpdateState changes one goal's completion state and stamps the
	// change time.
	UpdateState(ctx context.Context, id uuid.UUID, state string) error
	Delete(ctx context.Context, id uuid.UUID) error
	ListByPlan(ctx context.Context, planID uuid.UUID) ([]*CareGoal, error)
}
