package careplan

import (
	"context"
	"encoding/json"
	"time"

	"github.com/google/uuid"

	"github.com/careops/careops/internal/engine"
	"github.com/careops/careops/internal/platform/metrics"
	"github.com/careops/careops/internal/platform/statuscache"
	"github.com/careops/careops/pkg/apperr"
)

type Service struct {
	plans    PlanRepository
	goals    GoalRepository
	cfg      engine.Config
	cache    statuscache.Store
	cacheTTL time.Duration
}

func NewService(plans PlanRepository, goals GoalRepository, cfg engine.Config) *Service {
	return &Service{plans: plans, goals: goals, cfg: cfg}
}

func (s *Service) SetCache(store statuscache.Store, ttl time.Duration) {
	s.cache = store
	s.cacheTTL = ttl
}

func cacheKey(planID uuid.UUID) string {
	return "careplan:" + planID.String()
}

// -- Plans --

func (s *Service) CreatePlan(ctx context.Context, cp *CarePlan) error {
	if cp.ResidentID == uuid.Nil {
		return apperr.Validationf("resident_id", "is required")
	}
	if cp.Title == "" {
		return apperr.Validationf("title", "is required")
	}
	cp.Active = true
	return s.plans.Create(ctx, cp)
}

func (s *Service) GetPlan(ctx context.Context, id uuid.UUID) (*CarePlan, error) {
	return s.plans.GetByID(ctx, id)
}

func (s *Service) UpdatePlan(ctx context.Context, cp *CarePlan) error {
	if cp.Title == "" {
		return apperr.Validationf("title", "is required")
	}
	if err := s.plans.Update(ctx, cp); err != nil {
		return err
	}
	s.invalidate(ctx, cp.ID)
	return nil
}

func (s *Service) SearchPlans(ctx context.Context, params map[string]string, limit, offset int) ([]*CarePlan, int, error) {
	return s.plans.Search(ctx, params, limit, offset)
}

// -- Goals --

var validStates = map[engine.GoalState]bool{
	engine.GoalNotStarted: true, engine.GoalInProgress: true, engine.GoalCompleted: true,
}

func (s *Service) AddGoal(ctx context.Context, g *CareGoal) error {
	if g.PlanID == uuid.Nil {
		return apperr.Validationf("plan_id", "is required")
	}
	if g.Description == "" {
		return apperr.Validationf("description", "is required")
	}
	if g.Weight <= 0 {
		return apperr.Validationf("weight", "must be positive")
	}
	if g.State == "" {
		g.State = engine.GoalNotStarted
	}
	if !validStates[g.State] {
		return apperr.Validationf("state", "invalid value %q", g.State)
	}
	plan, err := s.plans.GetByID(ctx, g.PlanID)
	if err != nil {
		return err
	}
	if !plan.Active {
		return apperr.Validationf("plan_id", "plan is inactive")
	}
	if err := s.goals.Create(ctx, g); err != nil {
		return err
	}
	s.invalidate(ctx, g.PlanID)
	return nil
}

// UpdateGoalState moves one goal through its lifecycle and re-resolves the
// plan before acknowledging, so the response carries the new progress.
func (s *Service) UpdateGoalState(ctx context.Context, goalID uuid.UUID, state engine.GoalState, now time.Time) (*engine.CarePlanResult, error) {
	if !validStates[state] {
		return nil, apperr.Validationf("state", "invalid value %q", state)
	}
	g, err := s.goals.GetByID(ctx, goalID)
	if err != nil {
		return nil, err
	}
	if err := s.goals.UpdateState(ctx, goalID, string(state)); err != nil {
		return nil, err
	}
	s.invalidate(ctx, g.PlanID)

	plan, err := s.plans.GetByID(ctx, g.PlanID)
	if err != nil {
		return nil, err
	}
	res, err := s.resolvePlan(ctx, plan, now)
	if err != nil {
		return nil, err
	}
	s.cacheResult(ctx, plan.ID, res)
	return res, nil
}

func (s *Service) DeleteGoal(ctx context.Context, goalID uuid.UUID) error {
	g, err := s.goals.GetByID(ctx, goalID)
	if err != nil {
		return err
	}
	if err := s.goals.Delete(ctx, goalID); err != nil {
		return err
	}
	s.invalidate(ctx, g.PlanID)
	return nil
}

// -- Resolution --

// Resolve returns the progress projection for one plan, serving a cached
// result inside the freshness bound.
func (s *Service) Resolve(ctx context.Context, planID uuid.UUID, now time.Time) (*engine.CarePlanResult, error) {
	if s.cache != nil {
		if b, ok := s.cache.Get(ctx, cacheKey(planID)); ok {
			var res engine.CarePlanResult
			if err := json.Unmarshal(b, &res); err == nil {
				metrics.CacheHits.WithLabelValues("hit").Inc()
				return &res, nil
			}
		}
		metrics.CacheHits.WithLabelValues("miss").Inc()
	}

	plan, err := s.plans.GetByID(ctx, planID)
	if err != nil {
		return nil, err
	}
	res, err := s.resolvePlan(ctx, plan, now)
	if err != nil {
		return nil, err
	}
	s.cacheResult(ctx, planID, res)
	return res, nil
}

func (s *Service) resolvePlan(ctx context.Context, plan *CarePlan, now time.Time) (*engine.CarePlanResult, error) {
	goals, err := s.goals.ListByPlan(ctx, plan.ID)
	if err != nil {
		return nil, err
	}
	res := s.cfg.ResolveCarePlan(engineInput(plan, goals), now)
	metrics.Resolutions.WithLabelValues("careplan").Inc()
	for _, a := range res.Alerts {
		metrics.AlertsGenerated.WithLabelValues(string(a.Severity)).Inc()
	}
	return &res, nil
}

func (s *Service) cacheResult(ctx context.Context, planID uuid.UUID, res *engine.CarePlanResult) {
	if s.cache == nil {
		return
	}
	if b, err := json.Marshal(res); err == nil {
		s.cache.Set(ctx, cacheKey(planID), b, s.cacheTTL)
	}
}

func (s *Service) invalidate(ctx context.Context, planID uuid.UUID) {
	if s.cache != nil {
		s.cache.Delete(ctx, cacheKey(planID))
	}
}

// -- Views --

func (s *Service) GetView(ctx context.Context, planID uuid.UUID, now time.Time) (*View, error) {
	plan, err := s.plans.GetByID(ctx, planID)
	if err != nil {
		return nil, err
	}
	goals, err := s.goals.ListByPlan(ctx, planID)
	if err != nil {
		return nil, err
	}
	res, err := s.resolvePlan(ctx, plan, now)
	if err != nil {
		return nil, err
	}
	s.cacheResult(ctx, planID, res)
	return &View{CarePlan: plan, Goals: goals, Resolution: *res}, nil
}

// SearchViews returns a filtered page of plans, each resolved.
func (s *Service) SearchViews(ctx context.Context, params map[string]string, limit, offset int, now time.Time) ([]*View, int, error) {
	plans, total, err := s.plans.Search(ctx, params, limit, offset)
	if err != nil {
		return nil, 0, err
	}
	views := make([]*View, 0, len(plans))
	for _, plan := range plans {
		goals, err := s.goals.ListByPlan(ctx, plan.ID)
		if err != nil {
			return nil, 0, err
		}
		res, err := s.resolvePlan(ctx, plan, now)
		if err != nil {
			return nil, 0, err
		}
		views = append(views, &View{CarePlan: plan, Goals: goals, Resolution: *res})
	}
	return views, total, nil
}

// ResidentAlerts aggregates active alerts across a resident's active
// plans. Implements the resident view's alert source.
func (s *Service) ResidentAlerts(ctx context.Context, residentID uuid.UUID, now time.Time) ([]engine.Alert, error) {
	plans, err := s.plans.ListActiveByResident(ctx, residentID)
	if err != nil {
		return nil, err
	}
	var alerts []engine.Alert
	for _, plan := range plans {
		res, err := s.Resolve(ctx, plan.ID, now)
		if err != nil {
			return nil, err
		}
		alerts = append(alerts, res.Alerts...)
	}
	return alerts, nil
}

// Sweep re-resolves every active plan, refreshing the cache.
func (s *Service) Sweep(ctx context.Context, now time.Time) (resolved, failed int, err error) {
	plans, err := s.plans.ListActive(ctx)
	if err != nil {
		return 0, 0, err
	}
	for _, plan := range plans {
		res, rerr := s.resolvePlan(ctx, plan, now)
		if rerr != nil {
			failed++
			metrics.SweepErrors.Inc()
			continue
		}
		s.cacheResult(ctx, plan.ID, res)
		resolved++
	}
	return resolved, failed, nil
}
