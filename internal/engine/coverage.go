package engine

import (
	"github.com/google/uuid"

	"github.com/careops/careops/pkg/apperr"
)

// CoverageStatus is the staffing state of a shift.
type CoverageStatus string

const (
	CoverageFilled       CoverageStatus = "filled"
	CoverageUnderstaffed CoverageStatus = "understaffed"
	CoverageUnfilled     CoverageStatus = "unfilled"
)

// CoverageResult is the resolved staffing status of one shift.
type CoverageResult struct {
	Status        CoverageStatus   `json:"status"`
	FilledCount   int              `json:"filled_count"`
	RequiredCount int              `json:"required_count"`
	Alerts        []Alert          `json:"alerts"`
	Warnings      []apperr.Warning `json:"warnings,omitempty"`
}

// ResolveCoverage evaluates a shift's assignments against its required
// staff count. Duplicate assignments of the same staff member count once;
// overstaffing is still Filled. A required count below 1 violates the shift
// invariant and is evaluated best-effort against 1 with a data-integrity
// warning.
func ResolveCoverage(required int, staffIDs []uuid.UUID) CoverageResult {
	res := CoverageResult{RequiredCount: required}
	if required < 1 {
		res.Warnings = append(res.Warnings,
			apperr.Warningf(AlertDataIntegrity, "required staff count %d below 1", required))
		res.RequiredCount = 1
	}

	distinct := make(map[uuid.UUID]bool, len(staffIDs))
	for _, id := range staffIDs {
		if id != uuid.Nil {
			distinct[id] = true
		}
	}
	res.FilledCount = len(distinct)

	switch {
	case res.FilledCount == 0:
		res.Status = CoverageUnfilled
	case res.FilledCount < res.RequiredCount:
		res.Status = CoverageUnderstaffed
	default:
		res.Status = CoverageFilled
	}

	res.Alerts = coverageAlerts(&res)
	return res
}

type coverageRule struct {
	code     string
	severity Severity
	apply    func(r *CoverageResult) (string, bool)
}

var coverageRules = []coverageRule{
	{AlertShiftUnfilled, SeverityCritical,
		func(r *CoverageResult) (string, bool) {
			return "shift has no assigned staff", r.Status == CoverageUnfilled
		}},
	{AlertShiftUnderstaffed, SeverityWarning,
		func(r *CoverageResult) (string, bool) {
			if r.Status == CoverageUnderstaffed {
				return formatStaffing(r.FilledCount, r.RequiredCount), true
			}
			return "", false
		}},
	{AlertDataIntegrity, SeverityWarning,
		func(r *CoverageResult) (string, bool) {
			if len(r.Warnings) > 0 {
				return r.Warnings[0].Detail, true
			}
			return "", false
		}},
}

func coverageAlerts(r *CoverageResult) []Alert {
	var alerts []Alert
	for _, rule := range coverageRules {
		if msg, ok := rule.apply(r); ok {
			alerts = append(alerts, Alert{Code: rule.code, Severity: rule.severity, Message: msg})
		}
	}
	return finalizeAlerts(alerts)
}

func formatStaffing(filled, required int) string {
	return "understaffed: " + formatCount(filled, "assignment") +
		" of " + formatCount(required, "required slot")
}
