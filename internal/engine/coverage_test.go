package engine

import (
	"testing"

	"github.com/google/uuid"
)

func TestResolveCoverage(t *testing.T) {
	a, b, c := uuid.New(), uuid.New(), uuid.New()

	cases := []struct {
		name     string
		required int
		staff    []uuid.UUID
		want     CoverageStatus
		filled   int
	}{
		{"no assignments", 2, nil, CoverageUnfilled, 0},
		{"one of two", 2, []uuid.UUID{a}, CoverageUnderstaffed, 1},
		{"exactly filled", 2, []uuid.UUID{a, b}, CoverageFilled, 2},
		{"overstaffed is still filled", 2, []uuid.UUID{a, b, c}, CoverageFilled, 3},
		{"single required single filled", 1, []uuid.UUID{c}, CoverageFilled, 1},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			res := ResolveCoverage(tc.required, tc.staff)
			if res.Status != tc.want {
				t.Errorf("status = %s, want %s", res.Status, tc.want)
			}
			if res.FilledCount != tc.filled {
				t.Errorf("filled = %d, want %d", res.FilledCount, tc.filled)
			}
			if res.RequiredCount != tc.required {
				t.Errorf("required = %d, want %d", res.RequiredCount, tc.required)
			}
			// Filled iff filledCount >= requiredCount; Unfilled iff 0.
			if (res.Status == CoverageFilled) != (res.FilledCount >= res.RequiredCount) {
				t.Error("filled status does not match coverage arithmetic")
			}
			if (res.Status == CoverageUnfilled) != (res.FilledCount == 0) {
				t.Error("unfilled status does not match coverage arithmetic")
			}
		})
	}
}

func TestResolveCoverageDuplicateAssignmentsCountOnce(t *testing.T) {
	a, b := uuid.New(), uuid.New()

	res := ResolveCoverage(2, []uuid.UUID{a, a, a})
	if res.FilledCount != 1 {
		t.Errorf("filled = %d, want 1 for duplicate staff", res.FilledCount)
	}
	if res.Status != CoverageUnderstaffed {
		t.Errorf("status = %s, want understaffed", res.Status)
	}

	// Adding a second distinct staff member fills the shift.
	res = ResolveCoverage(2, []uuid.UUID{a, a, b})
	if res.Status != CoverageFilled {
		t.Errorf("status = %s, want filled after second distinct assignment", res.Status)
	}
}

func TestResolveCoverageAlerts(t *testing.T) {
	if res := ResolveCoverage(2, nil); !hasAlert(res.Alerts, AlertShiftUnfilled) {
		t.Error("expected shift_unfilled alert")
	}
	if res := ResolveCoverage(2, []uuid.UUID{uuid.New()}); !hasAlert(res.Alerts, AlertShiftUnderstaffed) {
		t.Error("expected shift_understaffed alert")
	}
	if res := ResolveCoverage(2, []uuid.UUID{uuid.New(), uuid.New()}); len(res.Alerts) != 0 {
		t.Errorf("filled shift should carry no alerts, got %v", res.Alerts)
	}
}

func TestResolveCoverageInvalidRequiredCount(t *testing.T) {
	res := ResolveCoverage(0, []uuid.UUID{uuid.New()})
	if len(res.Warnings) == 0 {
		t.Fatal("expected data-integrity warning for required count below 1")
	}
	if res.Status != CoverageFilled {
		t.Errorf("status = %s, want best-effort filled against required=1", res.Status)
	}
}
