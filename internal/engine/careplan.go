package engine

import (
	"math"
	"time"

	"github.com/google/uuid"

	"github.com/careops/careops/pkg/apperr"
)

// GoalState is the completion state of one care goal.
type GoalState string

const (
	GoalNotStarted GoalState = "not_started"
	GoalInProgress GoalState = "in_progress"
	GoalCompleted  GoalState = "completed"
)

// completionFactor weights a goal's contribution to plan progress.
func completionFactor(s GoalState) float64 {
	switch s {
	case GoalCompleted:
		return 1.0
	case GoalInProgress:
		return 0.5
	default:
		return 0.0
	}
}

// Goal is the projection of a care goal the aggregator needs.
type Goal struct {
	State  GoalState
	Weight float64
}

// CarePlanInput is the projection of a care plan the resolver needs.
type CarePlanInput struct {
	PlanID     uuid.UUID
	Goals      []Goal
	NextReview *time.Time
	// LastUpdated is the most recent goal-state change; a plan past its
	// review date with no update since then is flagged for review.
	LastUpdated *time.Time
}

// CarePlanResult is the resolved progress projection for one plan.
type CarePlanResult struct {
	PlanID   uuid.UUID        `json:"plan_id"`
	Progress int              `json:"progress"`
	Alerts   []Alert          `json:"alerts"`
	Warnings []apperr.Warning `json:"warnings,omitempty"`
}

// ResolveProgress computes the weighted completion percentage, rounded
// half-up to an integer. A plan whose weights do not sum to a positive
// total resolves to 0 with a data-integrity warning; the division by zero
// is guarded, never fatal. Resolution is deterministic: the same goal
// states always yield the same percentage.
func ResolveProgress(goals []Goal) (int, []apperr.Warning) {
	var total, weighted float64
	var warnings []apperr.Warning
	for _, g := range goals {
		if g.Weight < 0 {
			warnings = append(warnings,
				apperr.Warningf(AlertDataIntegrity, "goal weight %.2f is negative", g.Weight))
			continue
		}
		total += g.Weight
		weighted += g.Weight * completionFactor(g.State)
	}
	if total <= 0 {
		warnings = append(warnings,
			apperr.Warningf(AlertDataIntegrity, "care plan weights sum to %.2f; progress defaulted to 0", total))
		return 0, warnings
	}
	return int(math.Floor(100*weighted/total + 0.5)), warnings
}

// ResolveCarePlan aggregates goal progress and runs the care plan alert
// rules against the reference time.
func (c Config) ResolveCarePlan(in CarePlanInput, now time.Time) CarePlanResult {
	res := CarePlanResult{PlanID: in.PlanID}
	res.Progress, res.Warnings = ResolveProgress(in.Goals)
	res.Alerts = carePlanAlerts(&res, in, now)
	return res
}

type carePlanRule struct {
	code     string
	severity Severity
	apply    func(r *CarePlanResult, in CarePlanInput, now time.Time) (string, bool)
}

var carePlanRules = []carePlanRule{
	{AlertReviewDue, SeverityWarning,
		func(_ *CarePlanResult, in CarePlanInput, now time.Time) (string, bool) {
			if in.NextReview == nil || now.Before(*in.NextReview) {
				return "", false
			}
			if in.LastUpdated != nil && in.LastUpdated.After(*in.NextReview) {
				return "", false
			}
			return "review due since " + in.NextReview.Format("2006-01-02"), true
		}},
	{AlertDataIntegrity, SeverityWarning,
		func(r *CarePlanResult, _ CarePlanInput, _ time.Time) (string, bool) {
			if len(r.Warnings) > 0 {
				return r.Warnings[0].Detail, true
			}
			return "", false
		}},
}

func carePlanAlerts(r *CarePlanResult, in CarePlanInput, now time.Time) []Alert {
	var alerts []Alert
	for _, rule := range carePlanRules {
		if msg, ok := rule.apply(r, in, now); ok {
			alerts = append(alerts, Alert{Code: rule.code, Severity: rule.severity, Message: msg})
		}
	}
	return finalizeAlerts(alerts)
}
