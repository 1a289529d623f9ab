package resident

import "testing"

func TestOrderClause(t *testing.T) {
	cases := []struct {
		name string
		sort string
		want string
	}{
		{"default is creation order", "", "created_at ASC"},
		{"by name", "name", "name ASC"},
		{"by room descending", "-room", "room DESC"},
		{"by status", "status", "status ASC"},
		{"unknown column ignored", "age; DROP TABLE resident", "created_at ASC"},
		{"bare dash ignored", "-", "created_at ASC"},
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
