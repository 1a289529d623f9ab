package medication

import "testing"

func TestOrderClause(t *testing.T) {
	cases := []struct {
		name string
		sort string
		want string
	}{
		{"default is creation order", "", "created_at ASC"},
		{"by name", "name", "name ASC"},
		{"newest first", "-created_at", "created_at DESC"},
		{"by refills", "refills_remaining", "refills_remaining ASC"},
		{"unknown column ignored", "dosage", "created_at ASC"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			got := orderClause(map[string]string{"sort": tc.sort})
			if got != tc.want {
				t.Errorf("orderClause(%q) = %q, want %q", tc.sort, got, tc.want)
			}
		})
	}
}
