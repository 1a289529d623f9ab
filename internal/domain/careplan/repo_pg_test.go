package careplan

import "testing"

func TestOrderClause(t *testing.T) {
	cases := []struct {
		name string
		sort string
		want string
	}{
		{"default is creation order", "", "created_at ASC"},
		{"by title", "title", "title ASC"},
		{"soonest review first", "next_review", "next_review ASC"},
		{"newest first", "-created_at", "created_at DESC"},
		{"unknown column ignored", "description", "created_at ASC"},
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
