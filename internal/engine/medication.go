package engine

import (
	"sort"
	"strconv"
	"time"

	"github.com/google/uuid"

	"github.com/careops/careops/pkg/apperr"
)

// DoseStatus is the state of a single dosing instance. Transitions are
// monotonic: Scheduled -> Due -> {Administered | Overdue -> Missed}; once
// Administered or Missed an instance never changes state again.
type DoseStatus string

const (
	DoseScheduled    DoseStatus = "scheduled"
	DoseDue          DoseStatus = "due"
	DoseAdministered DoseStatus = "administered"
	DoseOverdue      DoseStatus = "overdue"
	DoseMissed       DoseStatus = "missed"
	// DoseInvalid is an order-level status for malformed schedules; the
	// order is surfaced as invalid rather than dropped or crashed on.
	DoseInvalid DoseStatus = "invalid"
)

// MedicationInput is the projection of a medication order the resolver
// needs: its schedule and refill facts.
type MedicationInput struct {
	OrderID          uuid.UUID
	Times            []string // wall-clock "HH:MM", one dosing instance per entry per day
	RefillsRemaining int
	LastRefill       *time.Time
}

// Administration is one immutable administration event for the order.
type Administration struct {
	EventID        uuid.UUID
	AdministeredAt time.Time
	StaffID        uuid.UUID
}

// DoseInstance is one concrete occurrence of the order's schedule on the
// resolved day.
type DoseInstance struct {
	ScheduledAt    time.Time     `json:"scheduled_at"`
	Status         DoseStatus    `json:"status"`
	OverdueBy      time.Duration `json:"overdue_by,omitempty"`
	AdministeredAt *time.Time    `json:"administered_at,omitempty"`
	EventID        *uuid.UUID    `json:"event_id,omitempty"`
}

// MedicationResult is the resolved status projection for one order at one
// reference time.
type MedicationResult struct {
	OrderID   uuid.UUID      `json:"order_id"`
	Status    DoseStatus     `json:"status"`
	Instances []DoseInstance `json:"instances"`
	NextDue   *time.Time     `json:"next_due,omitempty"`
	// OffSchedule lists administrations that qualified no instance; they
	// are recorded and flagged, never silently matched.
	OffSchedule []Administration `json:"off_schedule,omitempty"`
	Alerts      []Alert          `json:"alerts"`
	Warnings    []apperr.Warning `json:"warnings,omitempty"`
	// InvalidReason is set when Status is DoseInvalid.
	InvalidReason string `json:"invalid_reason,omitempty"`
}

// ResolveMedication derives the dosing-instance states for the calendar day
// containing now, matches administration events to instances, and runs the
// medication alert rules. One instance is produced per scheduled
// time-of-day; multiple-times-per-day frequencies multiply instances
// accordingly. A malformed schedule yields Status DoseInvalid, never a
// panic.
func (c Config) ResolveMedication(in MedicationInput, events []Administration, now time.Time) MedicationResult {
	c = c.normalized()
	res := MedicationResult{OrderID: in.OrderID}

	times := make([]TimeOfDay, 0, len(in.Times))
	for _, raw := range in.Times {
		tod, err := ParseTimeOfDay(raw)
		if err != nil {
			res.Status = DoseInvalid
			res.InvalidReason = err.Error()
			res.Alerts = c.medicationAlerts(&res, in, now)
			return res
		}
		times = append(times, tod)
	}
	if len(times) == 0 {
		res.Status = DoseInvalid
		res.InvalidReason = "order has no scheduled times"
		res.Alerts = c.medicationAlerts(&res, in, now)
		return res
	}
	sort.Slice(times, func(i, j int) bool { return times[i] < times[j] })

	if in.RefillsRemaining < 0 {
		res.Warnings = append(res.Warnings,
			apperr.Warningf(AlertDataIntegrity, "refill count %d is negative", in.RefillsRemaining))
	}

	sorted := make([]Administration, len(events))
	copy(sorted, events)
	sort.Slice(sorted, func(i, j int) bool {
		return sorted[i].AdministeredAt.Before(sorted[j].AdministeredAt)
	})
	consumed := make([]bool, len(sorted))

	res.Instances = make([]DoseInstance, 0, len(times))
	for _, tod := range times {
		sched := tod.At(now)
		inst := DoseInstance{ScheduledAt: sched}

		// Earliest unconsumed event inside the qualifying window wins; a
		// single event can never satisfy two instances.
		for i, ev := range sorted {
			if consumed[i] {
				continue
			}
			if ev.AdministeredAt.Before(sched.Add(-c.GracePeriod)) ||
				ev.AdministeredAt.After(sched.Add(c.OverdueWindow)) {
				continue
			}
			consumed[i] = true
			at := ev.AdministeredAt
			id := ev.EventID
			inst.Status = DoseAdministered
			inst.AdministeredAt = &at
			inst.EventID = &id
			break
		}

		if inst.Status != DoseAdministered {
			switch {
			case now.Before(sched.Add(-c.LeadWindow)):
				inst.Status = DoseScheduled
			case now.Before(sched.Add(c.GracePeriod)):
				inst.Status = DoseDue
			case now.Before(sched.Add(c.OverdueWindow)):
				inst.Status = DoseOverdue
				inst.OverdueBy = now.Sub(sched.Add(c.GracePeriod))
			default:
				inst.Status = DoseMissed
			}
		}
		res.Instances = append(res.Instances, inst)
	}

	for i, ev := range sorted {
		if consumed[i] || !sameDay(ev.AdministeredAt, now) {
			continue
		}
		// An event near midnight can belong to a neighboring day's instance
		// (a 00:30 administration for yesterday's 23:45 dose). Those qualify
		// on that day's resolution and are not off-schedule here.
		if c.inAdjacentWindow(ev.AdministeredAt, times, now) {
			continue
		}
		res.OffSchedule = append(res.OffSchedule, ev)
	}

	res.NextDue = nextDue(res.Instances, times, now)
	res.Status = summarize(res.Instances)
	res.Alerts = c.medicationAlerts(&res, in, now)
	return res
}

// summarize collapses instance states into the order-level status shown in
// list views, most actionable first.
func summarize(instances []DoseInstance) DoseStatus {
	counts := make(map[DoseStatus]int, len(instances))
	for _, inst := range instances {
		counts[inst.Status]++
	}
	switch {
	case counts[DoseOverdue] > 0:
		return DoseOverdue
	case counts[DoseDue] > 0:
		return DoseDue
	case counts[DoseMissed] > 0:
		return DoseMissed
	case counts[DoseAdministered] == len(instances):
		return DoseAdministered
	case counts[DoseScheduled] > 0:
		return DoseScheduled
	default:
		return DoseAdministered
	}
}

// nextDue picks the earliest instance still awaiting administration, or
// rolls over to the first scheduled time of the next day when today is
// exhausted.
func nextDue(instances []DoseInstance, times []TimeOfDay, now time.Time) *time.Time {
	for _, inst := range instances {
		switch inst.Status {
		case DoseScheduled, DoseDue:
			t := inst.ScheduledAt
			return &t
		}
	}
	if len(times) == 0 {
		return nil
	}
	t := times[0].At(now.AddDate(0, 0, 1))
	return &t
}

// inAdjacentWindow reports whether ev falls inside the qualifying window of
// a dosing instance on the day before or after now.
func (c Config) inAdjacentWindow(ev time.Time, times []TimeOfDay, now time.Time) bool {
	for _, day := range [2]time.Time{now.AddDate(0, 0, -1), now.AddDate(0, 0, 1)} {
		for _, tod := range times {
			sched := tod.At(day)
			if !ev.Before(sched.Add(-c.GracePeriod)) && !ev.After(sched.Add(c.OverdueWindow)) {
				return true
			}
		}
	}
	return false
}

func sameDay(a, b time.Time) bool {
	ay, am, ad := a.Date()
	by, bm, bd := b.Date()
	return ay == by && am == bm && ad == bd
}

// medicationRule maps a resolved condition to an alert. Rules are listed in
// priority order; finalizeAlerts keeps the first alert per reason code.
type medicationRule struct {
	code     string
	severity Severity
	apply    func(r *MedicationResult, in MedicationInput, cfg Config, now time.Time) (string, bool)
}

var medicationRules = []medicationRule{
	{AlertMedicationOverdue, SeverityCritical,
		func(r *MedicationResult, _ MedicationInput, _ Config, _ time.Time) (string, bool) {
			for _, inst := range r.Instances {
				if inst.Status == DoseOverdue {
					return "overdue by " + formatOverdueBy(inst.OverdueBy), true
				}
			}
			return "", false
		}},
	{AlertMedicationMissed, SeverityCritical,
		func(r *MedicationResult, _ MedicationInput, _ Config, _ time.Time) (string, bool) {
			for _, inst := range r.Instances {
				if inst.Status == DoseMissed {
					return "dose missed at " + inst.ScheduledAt.Format("15:04"), true
				}
			}
			return "", false
		}},
	{AlertNoRefills, SeverityWarning,
		func(_ *MedicationResult, in MedicationInput, _ Config, _ time.Time) (string, bool) {
			return "no refills remaining", in.RefillsRemaining == 0
		}},
	{AlertLowSupply, SeverityWarning,
		func(_ *MedicationResult, in MedicationInput, cfg Config, _ time.Time) (string, bool) {
			if in.RefillsRemaining > 0 && in.RefillsRemaining <= cfg.LowRefillThreshold {
				return "low supply: " + formatRefills(in.RefillsRemaining), true
			}
			return "", false
		}},
	{AlertRefillStale, SeverityInfo,
		func(_ *MedicationResult, in MedicationInput, cfg Config, now time.Time) (string, bool) {
			if in.LastRefill != nil && cfg.RefillStaleAfter > 0 &&
				now.Sub(*in.LastRefill) > cfg.RefillStaleAfter {
				return "due for refill; last refill " + in.LastRefill.Format("2006-01-02"), true
			}
			return "", false
		}},
	{AlertOffSchedule, SeverityInfo,
		func(r *MedicationResult, _ MedicationInput, _ Config, _ time.Time) (string, bool) {
			if n := len(r.OffSchedule); n > 0 {
				return formatCount(n, "off-schedule administration"), true
			}
			return "", false
		}},
	{AlertDataIntegrity, SeverityWarning,
		func(r *MedicationResult, _ MedicationInput, _ Config, _ time.Time) (string, bool) {
			if len(r.Warnings) > 0 {
				return r.Warnings[0].Detail, true
			}
			return "", false
		}},
}

func (c Config) medicationAlerts(r *MedicationResult, in MedicationInput, now time.Time) []Alert {
	var alerts []Alert
	for _, rule := range medicationRules {
		if msg, ok := rule.apply(r, in, c, now); ok {
			alerts = append(alerts, Alert{Code: rule.code, Severity: rule.severity, Message: msg})
		}
	}
	return finalizeAlerts(alerts)
}

func formatRefills(n int) string {
	if n == 1 {
		return "1 refill remaining"
	}
	return formatCount(n, "refill") + " remaining"
}

func formatCount(n int, noun string) string {
	if n == 1 {
		return "1 " + noun
	}
	return strconv.Itoa(n) + " " + noun + "s"
}
