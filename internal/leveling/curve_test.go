package leveling

import (
	"errors"
	"math"
	"testing"

	"github.com/verte-zerg/xpradar/internal/model"
)

func TestFromTotalXPExamples(t *testing.T) {
	c := Curve{Multiplier: 100, Exponent: 1.5}
	cases := []struct {
		total int
		want  model.LevelInfo
	}{
		{total: 0, want: model.LevelInfo{Level: 1, XPCurrent: 0, XPNeeded: 100, Progress: 0}},
		{total: 150, want: model.LevelInfo{Level: 2, XPCurrent: 50, XPNeeded: 282, Progress: 18}},
		{total: 99, want: model.LevelInfo{Level: 1, XPCurrent: 99, XPNeeded: 100, Progress: 99}},
		{total: 100, want: model.LevelInfo{Level: 2, XPCurrent: 0, XPNeeded: 282, Progress: 0}},
		{total: 382, want: model.LevelInfo{Level: 3, XPCurrent: 0, XPNeeded: 519, Progress: 0}},
	}
	for _, tc := range cases {
		got := c.FromTotalXP(tc.total)
		if got != tc.want {
			t.Fatalf("total %d: expected %+v, got %+v", tc.total, tc.want, got)
		}
	}
}

func TestFromTotalXPNonPositive(t *testing.T) {
	c := Curve{Multiplier: 100, Exponent: 1.5}
	want := model.LevelInfo{Level: 1, XPCurrent: 0, XPNeeded: c.NeededForLevel(1), Progress: 0}
	for _, total := range []int{0, -1, -500, math.MinInt} {
		if got := c.FromTotalXP(total); got != want {
			t.Fatalf("total %d: expected %+v, got %+v", total, want, got)
		}
	}
}

func TestCurrentBelowNeeded(t *testing.T) {
	curves := []Curve{
		{Multiplier: 100, Exponent: 1.5},
		{Multiplier: 50, Exponent: 1},
		{Multiplier: 1, Exponent: 3},
		{Multiplier: 7.5, Exponent: 2.2},
	}
	for _, c := range curves {
		for total := 0; total <= 5000; total++ {
			info := c.FromTotalXP(total)
			if info.XPCurrent >= info.XPNeeded {
				t.Fatalf("curve %+v total %d: xp-current %d not below xp-needed %d", c, total, info.XPCurrent, info.XPNeeded)
			}
			if info.Level < 1 {
				t.Fatalf("curve %+v total %d: level %d below 1", c, total, info.Level)
			}
		}
	}
}

func TestLevelIsCumulativeCostBracket(t *testing.T) {
	c := Curve{Multiplier: 100, Exponent: 1.5}
	for total := 1; total <= 20000; total += 37 {
		info := c.FromTotalXP(total)
		spent := 0
		for l := 1; l < info.Level; l++ {
			spent += c.NeededForLevel(l)
		}
		if spent > total || total >= spent+c.NeededForLevel(info.Level) {
			t.Fatalf("total %d: level %d not bracketed by cumulative cost %d", total, info.Level, spent)
		}
		if spent+info.XPCurrent != total {
			t.Fatalf("total %d: spent %d + current %d does not add up", total, spent, info.XPCurrent)
		}
	}
}

func TestNeededForLevelMonotonic(t *testing.T) {
	for _, exp := range []float64{1, 1.5, 2, 3} {
		c := Curve{Multiplier: 100, Exponent: exp}
		prev := c.NeededForLevel(1)
		for l := 2; l <= 500; l++ {
			cur := c.NeededForLevel(l)
			if cur < prev {
				t.Fatalf("exponent %v: level %d costs %d, below level %d cost %d", exp, l, cur, l-1, prev)
			}
			prev = cur
		}
	}
}

func TestValidateRejectsDegenerateCurves(t *testing.T) {
	cases := []Curve{
		{Multiplier: 0, Exponent: 1.5},
		{Multiplier: -10, Exponent: 1.5},
		{Multiplier: 100, Exponent: 0},
		{Multiplier: 100, Exponent: -1},
		{Multiplier: math.NaN(), Exponent: 1.5},
		{Multiplier: math.Inf(1), Exponent: 1.5},
		{Multiplier: 0.5, Exponent: 1.5},
	}
	for _, c := range cases {
		if err := c.Validate(); !errors.Is(err, ErrDegenerateCurve) {
			t.Fatalf("curve %+v: expected ErrDegenerateCurve, got %v", c, err)
		}
	}
	if _, err := New(100, 1.5); err != nil {
		t.Fatalf("expected valid curve, got %v", err)
	}
}

func TestFromTotalXPTerminatesOnZeroCost(t *testing.T) {
	c := Curve{Multiplier: 0, Exponent: 1.5}
	info := c.FromTotalXP(10)
	if info.Level != 11 || info.XPCurrent != 0 || info.XPNeeded != 1 {
		t.Fatalf("expected clamped cost of 1 per level, got %+v", info)
	}
}

func TestProgressIsNotClamped(t *testing.T) {
	if got := Progress(150, 100); got != 150 {
		t.Fatalf("expected 150, got %d", got)
	}
	if got := Progress(1, 3); got != 33 {
		t.Fatalf("expected 33, got %d", got)
	}
	if got := Progress(199, 200); got != 100 {
		t.Fatalf("expected rounding up to 100, got %d", got)
	}
	if got := Progress(5, 0); got != 0 {
		t.Fatalf("expected 0 for zero need, got %d", got)
	}
}

func TestProgressReachesHundredBeforeLevelUp(t *testing.T) {
	c := Curve{Multiplier: 200, Exponent: 1}
	info := c.FromTotalXP(199)
	if info.Level != 1 || info.Progress != 100 {
		t.Fatalf("expected level 1 at 100%%, got %+v", info)
	}
}
