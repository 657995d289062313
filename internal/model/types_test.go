package model

import (
	"math"
	"testing"
)

func TestAddXPSaturates(t *testing.T) {
	cases := []struct {
		a, b, want int
	}{
		{a: 2, b: 3, want: 5},
		{a: math.MaxInt, b: 1, want: math.MaxInt},
		{a: math.MaxInt - 1, b: 1, want: math.MaxInt},
		{a: 1, b: math.MaxInt, want: math.MaxInt},
		{a: math.MinInt, b: -1, want: math.MinInt},
		{a: math.MaxInt, b: -1, want: math.MaxInt - 1},
	}
	for _, tc := range cases {
		if got := AddXP(tc.a, tc.b); got != tc.want {
			t.Fatalf("AddXP(%d, %d): expected %d, got %d", tc.a, tc.b, tc.want, got)
		}
	}
}
