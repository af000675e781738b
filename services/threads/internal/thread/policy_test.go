package thread

import "testing"

func TestPolicyWidth(t *testing.T) {
	p := DefaultPolicy

	cases := []struct {
		name     string
		depth    int
		topLimit int
		want     int
	}{
		{"top level uses the request limit", 0, 25, 25},
		{"first reply level narrows by step", 1, 25, 20},
		{"first reply level never drops below floor", 1, 5, 5},
		{"deeper levels use the floor", 2, 25, 5},
		{"deepest levels still use the floor", 7, 100, 5},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if got := p.Width(tc.depth, tc.topLimit); got != tc.want {
				t.Fatalf("Width(%d, %d) = %d, want %d", tc.depth, tc.topLimit, got, tc.want)
			}
		})
	}
}
