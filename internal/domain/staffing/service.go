package staffing

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
	staff       StaffRepository
	shifts      ShiftRepository
	assignments AssignmentRepository
	cache       statuscache.Store
	cacheTTL    time.Duration
}

func NewService(staff StaffRepository, shifts ShiftRepository, assignments AssignmentRepository) *Service {
	return &Service{staff: staff, shifts: shifts, assignments: assignments}
}

func (s *Service) SetCache(store statuscache.Store, ttl time.Duration) {
	s.cache = store
	s.cacheTTL = ttl
}

func cacheKey(shiftID uuid.UUID) string {
	return "shift:" + shiftID.String()
}

// -- Staff --

func (s *Service) CreateStaff(ctx context.Context, st *Staff) error {
	if st.Name == "" {
		return apperr.Validationf("name", "is required")
	}
	if st.Role == "" {
		return apperr.Validationf("role", "is required")
	}
	st.Active = true
	return s.staff.Create(ctx, st)
}

func (s *Service) GetStaff(ctx context.Context, id uuid.UUID) (*Staff, error) {
	return s.staff.GetByID(ctx, id)
}

func (s *Service) UpdateStaff(ctx context.Context, st *Staff) error {
	if st.Name == "" {
		return apperr.Validationf("name", "is required")
	}
	if st.Role == "" {
		return apperr.Validationf("role", "is required")
	}
	return s.staff.Update(ctx, st)
}

func (s *Service) SearchStaff(ctx context.Context, params map[string]string, limit, offset int) ([]*Staff, int, error) {
	return s.staff.Search(ctx, params, limit, offset)
}

// -- Shifts --

var validShiftTypes = map[string]bool{
	ShiftMorning: true, ShiftAfternoon: true, ShiftNight: true,
}

func (s *Service) CreateShift(ctx context.Context, sh *Shift) error {
	if !validShiftTypes[sh.Type] {
		return apperr.Validationf("type", "invalid value %q", sh.Type)
	}
	if sh.RequiredCount < 1 {
		return apperr.Validationf("required_count", "must be at least 1")
	}
	if sh.Date.IsZero() {
		return apperr.Validationf("date", "is required")
	}
	sh.Date = midnight(sh.Date)
	if sh.StartTime == "" && sh.EndTime == "" {
		w := defaultWindows[sh.Type]
		sh.StartTime, sh.EndTime = w[0], w[1]
	}
	for _, raw := range []string{sh.StartTime, sh.EndTime} {
		if _, err := engine.ParseTimeOfDay(raw); err != nil {
			return apperr.Validationf("window", "%v", err)
		}
	}

	// Same-type shifts on the same date must not overlap.
	existing, err := s.shifts.ListByDateRange(ctx, sh.Date, sh.Date.AddDate(0, 0, 1))
	if err != nil {
		return err
	}
	for _, other := range existing {
		if other.Type == sh.Type && other.Overlaps(sh) {
			return apperr.Validationf("window", "overlaps existing %s shift on %s",
				other.Type, other.Date.Format("2006-01-02"))
		}
	}
	return s.shifts.Create(ctx, sh)
}

func (s *Service) GetShift(ctx context.Context, id uuid.UUID) (*Shift, error) {
	return s.shifts.GetByID(ctx, id)
}

func (s *Service) UpdateShift(ctx context.Context, sh *Shift) error {
	if sh.RequiredCount < 1 {
		return apperr.Validationf("required_count", "must be at least 1")
	}
	for _, raw := range []string{sh.StartTime, sh.EndTime} {
		if _, err := engine.ParseTimeOfDay(raw); err != nil {
			return apperr.Validationf("window", "%v", err)
		}
	}
	if err := s.shifts.Update(ctx, sh); err != nil {
		return err
	}
	s.invalidate(ctx, sh.ID)
	return nil
}

// -- Assignments --

// AssignmentResult acknowledges an assignment write with the coverage
// already re-resolved against it.
type AssignmentResult struct {
	Assigned bool                  `json:"assigned"`
	Coverage engine.CoverageResult `json:"coverage"`
	Warnings []apperr.Warning      `json:"warnings,omitempty"`
}

// Assign links staff to a shift. Re-assigning the same pair is a no-op.
// An overlap with the staff member's other shifts is reported as a
// data-integrity warning, never corrected automatically.
func (s *Service) Assign(ctx context.Context, shiftID, staffID uuid.UUID, _ time.Time) (*AssignmentResult, error) {
	sh, err := s.shifts.GetByID(ctx, shiftID)
	if err != nil {
		return nil, err
	}
	st, err := s.staff.GetByID(ctx, staffID)
	if err != nil {
		return nil, err
	}
	if !st.Active {
		return nil, apperr.Validationf("staff_id", "staff member is inactive")
	}

	res := &AssignmentResult{}
	// Night shifts cross midnight, so look one day either side.
	others, err := s.assignments.ListShiftsByStaff(ctx, staffID,
		sh.Date.AddDate(0, 0, -1), sh.Date.AddDate(0, 0, 2))
	if err != nil {
		return nil, err
	}
	for _, other := range others {
		if other.ID != sh.ID && sh.Overlaps(other) {
			res.Warnings = append(res.Warnings, apperr.Warningf(engine.AlertDataIntegrity,
				"staff %s already assigned to overlapping %s shift on %s",
				st.Name, other.Type, other.Date.Format("2006-01-02")))
			break
		}
	}

	assigned, err := s.assignments.Upsert(ctx, &Assignment{ShiftID: shiftID, StaffID: staffID})
	if err != nil {
		return nil, err
	}
	res.Assigned = assigned
	s.invalidate(ctx, shiftID)

	cov, err := s.resolveShift(ctx, sh)
	if err != nil {
		return nil, err
	}
	s.cacheResult(ctx, shiftID, cov)
	res.Coverage = *cov
	return res, nil
}

func (s *Service) Unassign(ctx context.Context, shiftID, staffID uuid.UUID) (*engine.CoverageResult, error) {
	sh, err := s.shifts.GetByID(ctx, shiftID)
	if err != nil {
		return nil, err
	}
	if err := s.assignments.Delete(ctx, shiftID, staffID); err != nil {
		return nil, err
	}
	s.invalidate(ctx, shiftID)

	cov, err := s.resolveShift(ctx, sh)
	if err != nil {
		return nil, err
	}
	s.cacheResult(ctx, shiftID, cov)
	return cov, nil
}

// -- Resolution --

// Resolve returns the coverage projection for one shift, serving a cached
// result inside the freshness bound.
func (s *Service) Resolve(ctx context.Context, shiftID uuid.UUID) (*engine.CoverageResult, error) {
	if s.cache != nil {
		if b, ok := s.cache.Get(ctx, cacheKey(shiftID)); ok {
			var cov engine.CoverageResult
			if err := json.Unmarshal(b, &cov); err == nil {
				metrics.CacheHits.WithLabelValues("hit").Inc()
				return &cov, nil
			}
		}
		metrics.CacheHits.WithLabelValues("miss").Inc()
	}

	sh, err := s.shifts.GetByID(ctx, shiftID)
	if err != nil {
		return nil, err
	}
	cov, err := s.resolveShift(ctx, sh)
	if err != nil {
		return nil, err
	}
	s.cacheResult(ctx, shiftID, cov)
	return cov, nil
}

func (s *Service) resolveShift(ctx context.Context, sh *Shift) (*engine.CoverageResult, error) {
	assignments, err := s.assignments.ListByShift(ctx, sh.ID)
	if err != nil {
		return nil, err
	}
	ids := make([]uuid.UUID, 0, len(assignments))
	for _, a := range assignments {
		ids = append(ids, a.StaffID)
	}
	cov := engine.ResolveCoverage(sh.RequiredCount, ids)
	metrics.Resolutions.WithLabelValues("shift").Inc()
	for _, a := range cov.Alerts {
		metrics.AlertsGenerated.WithLabelValues(string(a.Severity)).Inc()
	}
	return &cov, nil
}

func (s *Service) cacheResult(ctx context.Context, shiftID uuid.UUID, cov *engine.CoverageResult) {
	if s.cache == nil {
		return
	}
	if b, err := json.Marshal(cov); err == nil {
		s.cache.Set(ctx, cacheKey(shiftID), b, s.cacheTTL)
	}
}

func (s *Service) invalidate(ctx context.Context, shiftID uuid.UUID) {
	if s.cache != nil {
		s.cache.Delete(ctx, cacheKey(shiftID))
	}
}

// -- Views --

// GetView returns one shift with assignments and resolved coverage.
func (s *Service) GetView(ctx context.Context, id uuid.UUID) (*View, error) {
	sh, err := s.shifts.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	return s.buildView(ctx, sh)
}

// WeekSchedule returns the seven days of shifts starting at weekStart,
// each resolved.
func (s *Service) WeekSchedule(ctx context.Context, weekStart time.Time) ([]*View, error) {
	from := midnight(weekStart)
	shifts, err := s.shifts.ListByDateRange(ctx, from, from.AddDate(0, 0, 7))
	if err != nil {
		return nil, err
	}
	views := make([]*View, 0, len(shifts))
	for _, sh := range shifts {
		v, err := s.buildView(ctx, sh)
		if err != nil {
			return nil, err
		}
		views = append(views, v)
	}
	return views, nil
}

func (s *Service) buildView(ctx context.Context, sh *Shift) (*View, error) {
	assignments, err := s.assignments.ListByShift(ctx, sh.ID)
	if err != nil {
		return nil, err
	}
	ids := make([]uuid.UUID, 0, len(assignments))
	for _, a := range assignments {
		ids = append(ids, a.StaffID)
	}
	cov, err := s.resolveShift(ctx, sh)
	if err != nil {
		return nil, err
	}
	s.cacheResult(ctx, sh.ID, cov)
	return &View{Shift: sh, StaffIDs: ids, Coverage: *cov}, nil
}

// Sweep re-resolves today's shifts, refreshing the cache.
func (s *Service) Sweep(ctx context.Context, now time.Time) (resolved, failed int, err error) {
	day := midnight(now)
	shifts, err := s.shifts.ListByDateRange(ctx, day, day.AddDate(0, 0, 1))
	if err != nil {
		return 0, 0, err
	}
	for _, sh := range shifts {
		cov, rerr := s.resolveShift(ctx, sh)
		if rerr != nil {
			failed++
			metrics.SweepErrors.Inc()
			continue
		}
		s.cacheResult(ctx, sh.ID, cov)
		resolved++
	}
	return resolved, failed, nil
}

func midnight(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, t.Location())
}
