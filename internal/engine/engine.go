// Package engine contains the operations status resolvers: pure functions
// that derive time-varying status for medication orders, shift coverage and
// care plan progress from persisted facts and an explicit reference time.
// Nothing in this package performs I/O or reads the ambient clock; callers
// pass "now" into every resolution call so results stay reproducible.
package engine

import (
	"fmt"
	"strconv"
	"strings"
	"time"
)

// Config holds the facility-level resolution policy. The boundary values
// (grace period, overdue window, refill thresholds) are deployment
// configuration, not constants.
type Config struct {
	// LeadWindow is the pre-due horizon: a dose becomes Due this long
	// before its scheduled time.
	LeadWindow time.Duration
	// GracePeriod is the window after the scheduled time during which a
	// dose is still Due and an administration still counts as on-schedule.
	GracePeriod time.Duration
	// OverdueWindow, measured from the scheduled time, bounds the Overdue
	// state; at scheduled+OverdueWindow an unadministered dose is Missed.
	OverdueWindow time.Duration
	// LowRefillThreshold triggers the low-supply alert when the remaining
	// refill count drops to or below it.
	LowRefillThreshold int
	// RefillStaleAfter triggers the refill-stale alert when the last
	// refill is older than this.
	RefillStaleAfter time.Duration
}

// DefaultConfig returns the policy used when the facility sets nothing.
func DefaultConfig() Config {
	return Config{
		LeadWindow:         0,
		GracePeriod:        60 * time.Minute,
		OverdueWindow:      16 * time.Hour,
		LowRefillThreshold: 2,
		RefillStaleAfter:   720 * time.Hour,
	}
}

// normalized guards against configurations where the overdue window does
// not extend past the grace period; resolution would otherwise skip the
// Overdue state entirely.
func (c Config) normalized() Config {
	if c.GracePeriod < 0 {
		c.GracePeriod = 0
	}
	if c.OverdueWindow < c.GracePeriod {
		c.OverdueWindow = c.GracePeriod
	}
	return c
}

// TimeOfDay is a wall-clock time expressed as minutes since midnight.
type TimeOfDay int

// ParseTimeOfDay parses an "HH:MM" wall-clock time.
func ParseTimeOfDay(s string) (TimeOfDay, error) {
	parts := strings.SplitN(strings.TrimSpace(s), ":", 2)
	if len(parts) != 2 {
		return 0, fmt.Errorf("malformed time of day %q", s)
	}
	h, err := strconv.Atoi(parts[0])
	if err != nil {
		return 0, fmt.Errorf("malformed time of day %q", s)
	}
	m, err := strconv.Atoi(parts[1])
	if err != nil {
		return 0, fmt.Errorf("malformed time of day %q", s)
	}
	if h < 0 || h > 23 || m < 0 || m > 59 {
		return 0, fmt.Errorf("time of day %q out of range", s)
	}
	return TimeOfDay(h*60 + m), nil
}

func (t TimeOfDay) String() string {
	return fmt.Sprintf("%02d:%02d", int(t)/60, int(t)%60)
}

// At anchors the wall-clock time on the calendar day containing ref,
// in ref's location.
func (t TimeOfDay) At(ref time.Time) time.Time {
	y, m, d := ref.Date()
	return time.Date(y, m, d, int(t)/60, int(t)%60, 0, 0, ref.Location())
}
