package careplan

import (
	"time"

	"github.com/google/uuid"

	"github.com/careops/careops/internal/engine"
)

// CarePlan groups a resident's care goals. Progress is always recomputed
// from the goal states, never stored.
type CarePlan struct {
	ID          uuid.UUID  `db:"id" json:"id"`
	ResidentID  uuid.UUID  `db:"resident_id" json:"resident_id"`
	Title       string     `db:"title" json:"title"`
	Description *string    `db:"description" json:"description,omitempty"`
	NextReview  *time.Time `db:"next_review" json:"next_review,omitempty"`
	Active      bool       `db:"active" json:"active"`
	CreatedAt   time.Time  `db:"created_at" json:"created_at"`
	UpdatedAt   time.Time  `db:"updated_at" json:"updated_at"`
}

// CareGoal is one weighted entry in a plan. Position keeps the facility's
// ordering of goals within the plan.
type CareGoal struct {
	ID          uuid.UUID        `db:"id" json:"id"`
	PlanID      uuid.UUID        `db:"plan_id" json:"plan_id"`
	Description string           `db:"description" json:"description"`
	State       engine.GoalState `db:"state" json:"state"`
	Weight      float64          `db:"weight" json:"weight"`
	Position    int              `db:"position" json:"position"`
	UpdatedAt   time.Time        `db:"updated_at" json:"updated_at"`
}

// View is a plan joined with its goals and resolved progress.
type View struct {
	*CarePlan
	Goals      []*CareGoal           `json:"goals"`
	Resolution engine.CarePlanResult `json:"resolution"`
}

func engineInput(plan *CarePlan, goals []*CareGoal) engine.CarePlanInput {
	in := engine.CarePlanInput{PlanID: plan.ID, NextReview: plan.NextReview}
	for _, g := range goals {
		in.Goals = append(in.Goals, engine.Goal{State: g.State, Weight: g.Weight})
		if in.LastUpdated == nil || g.UpdatedAt.After(*in.LastUpdated) {
			t := g.UpdatedAt
			in.LastUpdated = &t
		}
	}
	return in
}
