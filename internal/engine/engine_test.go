package engine

import (
	"testing"
	"time"
)

func TestParseTimeOfDay(t *testing.T) {
	cases := []struct {
		in      string
		want    TimeOfDay
		wantErr bool
	}{
		{"08:00", 8 * 60, false},
		{"00:00", 0, false},
		{"23:59", 23*60 + 59, false},
		{" 20:00 ", 20 * 60, false},
		{"24:00", 0, true},
		{"12:60", 0, true},
		{"noon", 0, true},
		{"", 0, true},
		{"8", 0, true},
	}
	for _, tc := range cases {
		got, err := ParseTimeOfDay(tc.in)
		if tc.wantErr {
			if err == nil {
				t.Errorf("ParseTimeOfDay(%q): expected error", tc.in)
			}
			continue
		}
		if err != nil {
			t.Errorf("ParseTimeOfDay(%q): %v", tc.in, err)
			continue
		}
		if got != tc.want {
			t.Errorf("ParseTimeOfDay(%q) = %d, want %d", tc.in, got, tc.want)
		}
	}
}

func TestTimeOfDayAt(t *testing.T) {
	ref := time.Date(2024, 1, 15, 17, 45, 12, 0, time.UTC)
	tod, _ := ParseTimeOfDay("08:30")
	got := tod.At(ref)
	want := time.Date(2024, 1, 15, 8, 30, 0, 0, time.UTC)
	if !got.Equal(want) {
		t.Errorf("At = %v, want %v", got, want)
	}
}

func TestConfigNormalized(t *testing.T) {
	cfg := Config{GracePeriod: 2 * time.Hour, OverdueWindow: time.Hour}
	n := cfg.normalized()
	if n.OverdueWindow < n.GracePeriod {
		t.Error("normalized config must extend overdue window past grace period")
	}
}
