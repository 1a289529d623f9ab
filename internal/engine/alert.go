package engine

import (
	"fmt"
	"sort"
	"time"
)

// Severity orders alerts for presentation and rule evaluation.
type Severity string

const (
	SeverityInfo     Severity = "info"
	SeverityWarning  Severity = "warning"
	SeverityCritical Severity = "critical"
)

// rank orders Critical > Warning > Info.
func (s Severity) rank() int {
	switch s {
	case SeverityCritical:
		return 0
	case SeverityWarning:
		return 1
	default:
		return 2
	}
}

// Alert is a derived condition attached to a resolved entity. Alerts are
// regenerated on every resolution pass, never persisted as source of truth.
type Alert struct {
	Code     string   `json:"code"`
	Severity Severity `json:"severity"`
	Message  string   `json:"message"`
}

// Alert reason codes.
const (
	AlertMedicationOverdue = "medication_overdue"
	AlertMedicationMissed  = "medication_missed"
	AlertLowSupply         = "low_supply"
	AlertNoRefills         = "no_refills"
	AlertRefillStale       = "refill_stale"
	AlertOffSchedule       = "off_schedule_administration"
	AlertShiftUnfilled     = "shift_unfilled"
	AlertShiftUnderstaffed = "shift_understaffed"
	AlertReviewDue         = "review_due"
	AlertDataIntegrity     = "data_integrity"
)

// finalizeAlerts enforces the generator contract: at most one alert per
// reason code per resolution pass, emitted in severity order (Critical
// first), ties broken by code for determinism.
func finalizeAlerts(alerts []Alert) []Alert {
	seen := make(map[string]bool, len(alerts))
	out := alerts[:0]
	for _, a := range alerts {
		if seen[a.Code] {
			continue
		}
		seen[a.Code] = true
		out = append(out, a)
	}
	sort.SliceStable(out, func(i, j int) bool {
		if out[i].Severity.rank() != out[j].Severity.rank() {
			return out[i].Severity.rank() < out[j].Severity.rank()
		}
		return out[i].Code < out[j].Code
	})
	return out
}

// SortAlerts orders an aggregated alert list by severity (Critical
// first), ties broken by code. Aggregation across entities keeps
// duplicate codes; only per-entity resolution dedupes.
func SortAlerts(alerts []Alert) []Alert {
	sort.SliceStable(alerts, func(i, j int) bool {
		if alerts[i].Severity.rank() != alerts[j].Severity.rank() {
			return alerts[i].Severity.rank() < alerts[j].Severity.rank()
		}
		return alerts[i].Code < alerts[j].Code
	})
	return alerts
}

// formatOverdueBy renders a duration as "Xh Ym" for alert messages.
func formatOverdueBy(d time.Duration) string {
	if d < 0 {
		d = 0
	}
	d = d.Round(time.Minute)
	h := int(d.Hours())
	m := int(d.Minutes()) % 60
	if h > 0 {
		return fmt.Sprintf("%dh %dm", h, m)
	}
	return fmt.Sprintf("%dm", m)
}
