package engine

import (
	"testing"
	"time"

	"github.com/google/uuid"
)

func testConfig() Config {
	return Config{
		LeadWindow:         0,
		GracePeriod:        60 * time.Minute,
		OverdueWindow:      16 * time.Hour,
		LowRefillThreshold: 2,
		RefillStaleAfter:   720 * time.Hour,
	}
}

// at builds a timestamp on a fixed test day.
func at(hour, min int) time.Time {
	return time.Date(2024, 1, 15, hour, min, 0, 0, time.UTC)
}

func order(times ...string) MedicationInput {
	return MedicationInput{OrderID: uuid.New(), Times: times, RefillsRemaining: 3}
}

func hasAlert(alerts []Alert, code string) bool {
	for _, a := range alerts {
		if a.Code == code {
			return true
		}
	}
	return false
}

func TestResolveMedicationLifecycle(t *testing.T) {
	cfg := testConfig()
	in := order("08:00")

	cases := []struct {
		name string
		now  time.Time
		want DoseStatus
	}{
		{"before schedule", at(6, 0), DoseScheduled},
		{"at scheduled time", at(8, 0), DoseDue},
		{"inside grace period", at(8, 59), DoseDue},
		{"after grace period", at(9, 0), DoseOverdue},
		{"after overdue window", time.Date(2024, 1, 16, 0, 30, 0, 0, time.UTC), DoseScheduled},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			res := cfg.ResolveMedication(in, nil, tc.now)
			if len(res.Instances) != 1 {
				t.Fatalf("expected 1 instance, got %d", len(res.Instances))
			}
			// The last case resolves the next day, where the instance is
			// scheduled again; the 15th's miss is that day's projection.
			if res.Instances[0].Status != tc.want {
				t.Errorf("now=%v: status = %s, want %s", tc.now, res.Instances[0].Status, tc.want)
			}
		})
	}
}

func TestResolveMedicationOverdueDuration(t *testing.T) {
	// Order scheduled at 08:00, grace 60m, no event, now 09:30: overdue by 30m.
	res := testConfig().ResolveMedication(order("08:00"), nil, at(9, 30))

	if res.Status != DoseOverdue {
		t.Fatalf("status = %s, want overdue", res.Status)
	}
	if got := res.Instances[0].OverdueBy; got != 30*time.Minute {
		t.Errorf("overdue by %v, want 30m", got)
	}
	if !hasAlert(res.Alerts, AlertMedicationOverdue) {
		t.Error("expected medication_overdue alert")
	}
	for _, a := range res.Alerts {
		if a.Code == AlertMedicationOverdue {
			if a.Message != "overdue by 30m" {
				t.Errorf("alert message = %q", a.Message)
			}
			if a.Severity != SeverityCritical {
				t.Errorf("alert severity = %s, want critical", a.Severity)
			}
		}
	}
}

func TestResolveMedicationMissed(t *testing.T) {
	cfg := testConfig()
	cfg.OverdueWindow = 4 * time.Hour

	res := cfg.ResolveMedication(order("08:00"), nil, at(12, 0))
	if res.Instances[0].Status != DoseMissed {
		t.Fatalf("status = %s, want missed", res.Instances[0].Status)
	}
	if !hasAlert(res.Alerts, AlertMedicationMissed) {
		t.Error("expected medication_missed alert")
	}
}

func TestResolveMedicationAdministered(t *testing.T) {
	cfg := testConfig()
	in := order("08:00")
	ev := Administration{EventID: uuid.New(), AdministeredAt: at(8, 5)}

	res := cfg.ResolveMedication(in, []Administration{ev}, at(9, 30))
	inst := res.Instances[0]
	if inst.Status != DoseAdministered {
		t.Fatalf("status = %s, want administered", inst.Status)
	}
	if inst.EventID == nil || *inst.EventID != ev.EventID {
		t.Error("instance not linked to qualifying event")
	}
	if hasAlert(res.Alerts, AlertMedicationOverdue) {
		t.Error("administered instance must not raise overdue alert")
	}
}

func TestResolveMedicationTerminalStateSticks(t *testing.T) {
	// Once administered, later reference times never regress the instance.
	cfg := testConfig()
	in := order("08:00")
	events := []Administration{{EventID: uuid.New(), AdministeredAt: at(8, 10)}}

	for _, now := range []time.Time{at(9, 0), at(12, 0), at(23, 59)} {
		res := cfg.ResolveMedication(in, events, now)
		if res.Instances[0].Status != DoseAdministered {
			t.Errorf("now=%v: status = %s, want administered", now, res.Instances[0].Status)
		}
	}
}

func TestResolveMedicationLateAdministrationStillQualifies(t *testing.T) {
	// Inside [scheduled-grace, scheduled+overdueWindow] a late event still
	// counts; the instance becomes administered rather than staying overdue.
	res := testConfig().ResolveMedication(order("08:00"),
		[]Administration{{EventID: uuid.New(), AdministeredAt: at(11, 0)}}, at(12, 0))
	if res.Instances[0].Status != DoseAdministered {
		t.Errorf("status = %s, want administered", res.Instances[0].Status)
	}
}

func TestResolveMedicationOffScheduleEvent(t *testing.T) {
	cfg := testConfig()
	cfg.OverdueWindow = 2 * time.Hour

	// Administration at 13:00 is outside [07:00, 10:00]; recorded but
	// flagged, the instance itself is missed.
	ev := Administration{EventID: uuid.New(), AdministeredAt: at(13, 0)}
	res := cfg.ResolveMedication(order("08:00"), []Administration{ev}, at(14, 0))

	if res.Instances[0].Status != DoseMissed {
		t.Errorf("instance status = %s, want missed", res.Instances[0].Status)
	}
	if len(res.OffSchedule) != 1 || res.OffSchedule[0].EventID != ev.EventID {
		t.Fatalf("expected 1 off-schedule event, got %d", len(res.OffSchedule))
	}
	if !hasAlert(res.Alerts, AlertOffSchedule) {
		t.Error("expected off_schedule_administration alert")
	}
}

func TestResolveMedicationMidnightCarryoverNotOffSchedule(t *testing.T) {
	cfg := testConfig()
	cfg.OverdueWindow = 60 * time.Minute

	// A 00:30 administration qualifies yesterday's 23:45 dose; resolving
	// today it is neither matched nor flagged as off-schedule.
	ev := Administration{EventID: uuid.New(), AdministeredAt: at(0, 30)}
	res := cfg.ResolveMedication(order("23:45"), []Administration{ev}, at(9, 0))

	if len(res.OffSchedule) != 0 {
		t.Fatalf("expected no off-schedule events, got %d", len(res.OffSchedule))
	}
	if hasAlert(res.Alerts, AlertOffSchedule) {
		t.Error("unexpected off_schedule_administration alert")
	}
}

func TestResolveMedicationMultipleDailyInstances(t *testing.T) {
	cfg := testConfig()
	cfg.OverdueWindow = 4 * time.Hour
	in := order("08:00", "20:00")
	events := []Administration{{EventID: uuid.New(), AdministeredAt: at(8, 30)}}

	res := cfg.ResolveMedication(in, events, at(20, 30))
	if len(res.Instances) != 2 {
		t.Fatalf("expected 2 instances, got %d", len(res.Instances))
	}
	if res.Instances[0].Status != DoseAdministered {
		t.Errorf("morning instance = %s, want administered", res.Instances[0].Status)
	}
	if res.Instances[1].Status != DoseDue {
		t.Errorf("evening instance = %s, want due", res.Instances[1].Status)
	}
	if res.NextDue == nil || !res.NextDue.Equal(at(20, 0)) {
		t.Errorf("next due = %v, want 20:00", res.NextDue)
	}
}

func TestResolveMedicationEventConsumedOnce(t *testing.T) {
	// One event must not satisfy two instances.
	cfg := testConfig()
	in := order("08:00", "09:00")
	events := []Administration{{EventID: uuid.New(), AdministeredAt: at(8, 30)}}

	res := cfg.ResolveMedication(in, events, at(10, 30))
	administered := 0
	for _, inst := range res.Instances {
		if inst.Status == DoseAdministered {
			administered++
		}
	}
	if administered != 1 {
		t.Errorf("one event satisfied %d instances, want 1", administered)
	}
}

func TestResolveMedicationNextDueRollsOver(t *testing.T) {
	cfg := testConfig()
	cfg.OverdueWindow = 2 * time.Hour
	in := order("08:00")

	res := cfg.ResolveMedication(in, nil, at(22, 0))
	want := time.Date(2024, 1, 16, 8, 0, 0, 0, time.UTC)
	if res.NextDue == nil || !res.NextDue.Equal(want) {
		t.Errorf("next due = %v, want %v", res.NextDue, want)
	}
}

func TestResolveMedicationLeadWindow(t *testing.T) {
	cfg := testConfig()
	cfg.LeadWindow = 30 * time.Minute

	res := cfg.ResolveMedication(order("08:00"), nil, at(7, 45))
	if res.Instances[0].Status != DoseDue {
		t.Errorf("status = %s, want due inside lead window", res.Instances[0].Status)
	}
}

func TestResolveMedicationInvalidSchedule(t *testing.T) {
	cfg := testConfig()
	cases := []struct {
		name  string
		times []string
	}{
		{"unparseable time", []string{"8 o'clock"}},
		{"out of range", []string{"25:00"}},
		{"empty schedule", nil},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			in := MedicationInput{OrderID: uuid.New(), Times: tc.times, RefillsRemaining: 1}
			res := cfg.ResolveMedication(in, nil, at(9, 0))
			if res.Status != DoseInvalid {
				t.Errorf("status = %s, want invalid", res.Status)
			}
			if res.InvalidReason == "" {
				t.Error("invalid order must carry a reason")
			}
		})
	}
}

func TestResolveMedicationRefillAlerts(t *testing.T) {
	cfg := testConfig()

	// Refill count 0: low-supply alert present regardless of dosing status.
	in := order("08:00")
	in.RefillsRemaining = 0
	res := cfg.ResolveMedication(in, []Administration{{EventID: uuid.New(), AdministeredAt: at(8, 0)}}, at(8, 30))
	if !hasAlert(res.Alerts, AlertNoRefills) {
		t.Error("expected no_refills alert with administered status")
	}

	in.RefillsRemaining = 1
	res = cfg.ResolveMedication(in, nil, at(7, 0))
	if !hasAlert(res.Alerts, AlertLowSupply) {
		t.Error("expected low_supply alert at refill count 1")
	}

	stale := at(8, 0).Add(-31 * 24 * time.Hour)
	in.RefillsRemaining = 5
	in.LastRefill = &stale
	res = cfg.ResolveMedication(in, nil, at(7, 0))
	if !hasAlert(res.Alerts, AlertRefillStale) {
		t.Error("expected refill_stale alert")
	}
}

func TestResolveMedicationAlertOrderingAndDedup(t *testing.T) {
	cfg := testConfig()
	in := order("06:00", "07:00")
	in.RefillsRemaining = 0

	res := cfg.ResolveMedication(in, nil, at(9, 0))
	seen := map[string]int{}
	for _, a := range res.Alerts {
		seen[a.Code]++
	}
	for code, n := range seen {
		if n > 1 {
			t.Errorf("alert %s emitted %d times, want at most 1", code, n)
		}
	}
	for i := 1; i < len(res.Alerts); i++ {
		if res.Alerts[i-1].Severity.rank() > res.Alerts[i].Severity.rank() {
			t.Fatalf("alerts not in severity order: %v", res.Alerts)
		}
	}
}
