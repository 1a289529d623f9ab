package staffing

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/careops/careops/internal/engine"
	"github.com/careops/careops/pkg/apperr"
)

type mockStaffRepo struct{ store map[uuid.UUID]*Staff }

func newMockStaffRepo() *mockStaffRepo { return &mockStaffRepo{store: make(map[uuid.UUID]*Staff)} }
func (m *mockStaffRepo) Create(_ context.Context, st *Staff) error {
	st.ID = uuid.New(); m.store[st.ID] = st; return nil
}
func (m *mockStaffRepo) GetByID(_ context.Context, id uuid.UUID) (*Staff, error) {
	st, ok := m.store[id]; if !ok { return nil, apperr.ErrNotFound }; return st, nil
}
func (m *mockStaffRepo) Update(_ context.Context, st *Staff) error {
	if _, ok := m.store[st.ID]; !ok { return apperr.ErrNotFound }; m.store[st.ID] = st; return nil
}
func (m *mockStaffRepo) Search(_ context.Context, params map[string]string, limit, offset int) ([]*Staff, int, error) {
	var out []*Staff; for _, st := range m.store { out = append(out, st) }; return out, len(out), nil
}

type mockShiftRepo struct{ store map[uuid.UUID]*Shift }

func newMockShiftRepo() *mockShiftRepo { return &mockShiftRepo{store: make(map[uuid.UUID]*Shift)} }
func (m *mockShiftRepo) Create(_ context.Context, sh *Shift) error {
	sh.ID = uuid.New(); m.store[sh.ID] = sh; return nil
}
func (m *mockShiftRepo) GetByID(_ context.Context, id uuid.UUID) (*Shift, error) {
	sh, ok := m.store[id]; if !ok { return nil, apperr.ErrNotFound }; return sh, nil
}
func (m *mockShiftRepo) Update(_ context.Context, sh *Shift) error {
	if _, ok := m.store[sh.ID]; !ok { return apperr.ErrNotFound }; m.store[sh.ID] = sh; return nil
}
func (m *mockShiftRepo) ListByDateRange(_ context.Context, from, to time.Time) ([]*Shift, error) {
	var out []*Shift
	for _, sh := range m.store {
		if sh.Date.Before(from) || !sh.Date.Before(to) { continue }
		out = append(out, sh)
	}
	return out, nil
}

type mockAssignmentRepo struct {
	pairs  map[string]*Assignment
	shifts *mockShiftRepo
	fail   bool
}

func newMockAssignmentRepo(shifts *mockShiftRepo) *mockAssignmentRepo {
	return &mockAssignmentRepo{pairs: make(map[string]*Assignment), shifts: shifts}
}
func pairKey(shiftID, staffID uuid.UUID) string { return shiftID.String() + "/" + staffID.String() }
func (m *mockAssignmentRepo) Upsert(_ context.Context, a *Assignment) (bool, error) {
	k := pairKey(a.ShiftID, a.StaffID)
	if _, ok := m.pairs[k]; ok { return false, nil }
	a.ID = uuid.New(); m.pairs[k] = a; return true, nil
}
func (m *mockAssignmentRepo) Delete(_ context.Context, shiftID, staffID uuid.UUID) error {
	k := pairKey(shiftID, staffID)
	if _, ok := m.pairs[k]; !ok { return apperr.ErrNotFound }
	delete(m.pairs, k); return nil
}
func (m *mockAssignmentRepo) ListByShift(_ context.Context, shiftID uuid.UUID) ([]*Assignment, error) {
	if m.fail { return nil, fmt.Errorf("storage unavailable") }
	var out []*Assignment
	for _, a := range m.pairs { if a.ShiftID == shiftID { out = append(out, a) } }
	return out, nil
}
func (m *mockAssignmentRepo) ListShiftsByStaff(_ context.Context, staffID uuid.UUID, from, to time.Time) ([]*Shift, error) {
	var out []*Shift
	for _, a := range m.pairs {
		if a.StaffID != staffID { continue }
		sh, ok := m.shifts.store[a.ShiftID]
		if !ok || sh.Date.Before(from) || !sh.Date.Before(to) { continue }
		out = append(out, sh)
	}
	return out, nil
}

func testService() (*Service, *mockStaffRepo, *mockShiftRepo, *mockAssignmentRepo) {
	staff := newMockStaffRepo()
	shifts := newMockShiftRepo()
	assignments := newMockAssignmentRepo(shifts)
	return NewService(staff, shifts, assignments), staff, shifts, assignments
}

func day(y, m, d int) time.Time {
	return time.Date(y, time.Month(m), d, 0, 0, 0, 0, time.UTC)
}

func seedStaff(t *testing.T, svc *Service, name string) *Staff {
	t.Helper()
	st := &Staff{Name: name, Role: "nurse"}
	if err := svc.CreateStaff(context.Background(), st); err != nil {
		t.Fatalf("seed staff: %v", err)
	}
	return st
}

func seedShift(t *testing.T, svc *Service, date time.Time, typ string, required int) *Shift {
	t.Helper()
	sh := &Shift{Date: date, Type: typ, RequiredCount: required}
	if err := svc.CreateShift(context.Background(), sh); err != nil {
		t.Fatalf("seed shift: %v", err)
	}
	return sh
}

func TestCreateShift_DefaultsWindowByType(t *testing.T) {
	svc, _, _, _ := testService()
	sh := seedShift(t, svc, day(2024, 1, 15), ShiftNight, 2)
	if sh.StartTime != "22:00" || sh.EndTime != "06:00" {
		t.Errorf("expected night window 22:00-06:00, got %s-%s", sh.StartTime, sh.EndTime)
	}
}

func TestCreateShift_Validation(t *testing.T) {
	cases := []struct {
		name string
		sh   *Shift
	}{
		{"bad type", &Shift{Date: day(2024, 1, 15), Type: "dusk", RequiredCount: 1}},
		{"zero required", &Shift{Date: day(2024, 1, 15), Type: ShiftMorning, RequiredCount: 0}},
		{"missing date", &Shift{Type: ShiftMorning, RequiredCount: 1}},
		{"bad window", &Shift{Date: day(2024, 1, 15), Type: ShiftMorning, RequiredCount: 1, StartTime: "6am", EndTime: "14:00"}},
	}
	for _, tc := range cases {
		svc, _, _, _ := testService()
		err := svc.CreateShift(context.Background(), tc.sh)
		if !apperr.IsValidation(err) {
			t.Errorf("%s: expected validation error, got %v", tc.name, err)
		}
	}
}

func TestCreateShift_RejectsSameTypeOverlap(t *testing.T) {
	svc, _, _, _ := testService()
	seedShift(t, svc, day(2024, 1, 15), ShiftMorning, 1)

	err := svc.CreateShift(context.Background(),
		&Shift{Date: day(2024, 1, 15), Type: ShiftMorning, RequiredCount: 1, StartTime: "10:00", EndTime: "16:00"})
	if !apperr.IsValidation(err) {
		t.Fatalf("expected validation error, got %v", err)
	}
}

func TestAssign_SecondStaffFills(t *testing.T) {
	svc, _, _, _ := testService()
	sh := seedShift(t, svc, day(2024, 1, 15), ShiftMorning, 2)
	a := seedStaff(t, svc, "Noor Haddad")
	b := seedStaff(t, svc, "Priya Raman")

	res, err := svc.Assign(context.Background(), sh.ID, a.ID, time.Now())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if res.Coverage.Status != engine.CoverageUnderstaffed {
		t.Errorf("expected understaffed after first assignment, got %q", res.Coverage.Status)
	}

	res, err = svc.Assign(context.Background(), sh.ID, b.ID, time.Now())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if res.Coverage.Status != engine.CoverageFilled || res.Coverage.FilledCount != 2 {
		t.Errorf("expected filled with 2, got %q/%d", res.Coverage.Status, res.Coverage.FilledCount)
	}
}

func TestAssign_Idempotent(t *testing.T) {
	svc, _, _, _ := testService()
	sh := seedShift(t, svc, day(2024, 1, 15), ShiftMorning, 2)
	st := seedStaff(t, svc, "Noor Haddad")

	svc.Assign(context.Background(), sh.ID, st.ID, time.Now())
	res, err := svc.Assign(context.Background(), sh.ID, st.ID, time.Now())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if res.Assigned {
		t.Error("expected re-assignment to be a no-op")
	}
	if res.Coverage.FilledCount != 1 {
		t.Errorf("expected filled count 1, got %d", res.Coverage.FilledCount)
	}
}

func TestAssign_InactiveStaff(t *testing.T) {
	svc, staff, _, _ := testService()
	sh := seedShift(t, svc, day(2024, 1, 15), ShiftMorning, 1)
	st := seedStaff(t, svc, "Noor Haddad")
	staff.store[st.ID].Active = false

	_, err := svc.Assign(context.Background(), sh.ID, st.ID, time.Now())
	if !apperr.IsValidation(err) {
		t.Fatalf("expected validation error, got %v", err)
	}
}

func TestAssign_OverlapWarnsButProceeds(t *testing.T) {
	svc, _, _, _ := testService()
	st := seedStaff(t, svc, "Noor Haddad")
	morning := seedShift(t, svc, day(2024, 1, 15), ShiftMorning, 1)
	long := &Shift{Date: day(2024, 1, 15), Type: ShiftAfternoon, RequiredCount: 1, StartTime: "12:00", EndTime: "20:00"}
	if err := svc.CreateShift(context.Background(), long); err != nil {
		t.Fatalf("seed shift: %v", err)
	}

	svc.Assign(context.Background(), morning.ID, st.ID, time.Now())
	res, err := svc.Assign(context.Background(), long.ID, st.ID, time.Now())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !res.Assigned {
		t.Error("expected overlapping assignment to proceed")
	}
	if len(res.Warnings) != 1 || res.Warnings[0].Code != engine.AlertDataIntegrity {
		t.Fatalf("expected data integrity warning, got %+v", res.Warnings)
	}
}

func TestAssign_NightThenNextMorningNoWarning(t *testing.T) {
	svc, _, _, _ := testService()
	st := seedStaff(t, svc, "Noor Haddad")
	night := seedShift(t, svc, day(2024, 1, 15), ShiftNight, 1)
	morning := seedShift(t, svc, day(2024, 1, 16), ShiftMorning, 1)

	svc.Assign(context.Background(), night.ID, st.ID, time.Now())
	res, err := svc.Assign(context.Background(), morning.ID, st.ID, time.Now())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(res.Warnings) != 0 {
		t.Fatalf("22:00-06:00 then 06:00-14:00 do not overlap, got %+v", res.Warnings)
	}
}

func TestUnassign_UpdatesCoverage(t *testing.T) {
	svc, _, _, _ := testService()
	sh := seedShift(t, svc, day(2024, 1, 15), ShiftMorning, 1)
	st := seedStaff(t, svc, "Noor Haddad")
	svc.Assign(context.Background(), sh.ID, st.ID, time.Now())

	cov, err := svc.Unassign(context.Background(), sh.ID, st.ID)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if cov.Status != engine.CoverageUnfilled {
		t.Errorf("expected unfilled after removal, got %q", cov.Status)
	}
}

func TestWeekSchedule_BoundsRange(t *testing.T) {
	svc, _, _, _ := testService()
	seedShift(t, svc, day(2024, 1, 15), ShiftMorning, 1)
	seedShift(t, svc, day(2024, 1, 21), ShiftMorning, 1)
	seedShift(t, svc, day(2024, 1, 22), ShiftMorning, 1)

	views, err := svc.WeekSchedule(context.Background(), day(2024, 1, 15))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(views) != 2 {
		t.Fatalf("expected 2 shifts inside the week, got %d", len(views))
	}
	for _, v := range views {
		if v.Coverage.Status != engine.CoverageUnfilled {
			t.Errorf("expected unfilled coverage, got %q", v.Coverage.Status)
		}
	}
}

func TestSweep_CountsFailures(t *testing.T) {
	svc, _, _, assignments := testService()
	now := day(2024, 1, 15).Add(9 * time.Hour)
	seedShift(t, svc, day(2024, 1, 15), ShiftMorning, 1)
	assignments.fail = true

	resolved, failed, err := svc.Sweep(context.Background(), now)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if resolved != 0 || failed != 1 {
		t.Fatalf("expected 0 resolved and 1 failed, got %d/%d", resolved, failed)
	}
}
