// Package radar renders main-stats as a radar chart, either as braille text
// for the terminal or as an SVG document.
package radar

import (
	"math"

	"github.com/verte-zerg/xpradar/internal/model"
)

const (
	minAxes         = 3
	defaultMaxLevel = 10
)

// Axis is one spoke of the chart.
type Axis struct {
	Label    string
	Level    int
	Progress int
}

// AxesFor turns main-stats into chart axes in their given order. Fewer than
// three stats are padded with empty axes so the chart keeps a polygon shape.
func AxesFor(stats []model.MainStat) []Axis {
	axes := make([]Axis, 0, max(len(stats), minAxes))
	for _, s := range stats {
		axes = append(axes, Axis{Label: s.Name, Level: s.Level, Progress: s.Progress})
	}
	for len(axes) < minAxes {
		axes = append(axes, Axis{})
	}
	return axes
}

// Normalize maps a level onto [0, 1] of the chart radius.
func Normalize(level, maxLevel int) float64 {
	if maxLevel <= 0 {
		maxLevel = defaultMaxLevel
	}
	if level <= 0 {
		return 0
	}
	return math.Min(float64(level)/float64(maxLevel), 1)
}

// angle returns the direction of axis i of n, starting at twelve o'clock and
// going clockwise in screen coordinates.
func angle(i, n int) float64 {
	return float64(i)*2*math.Pi/float64(n) - math.Pi/2
}

// point returns the position at distance r along axis i of n around (cx, cy).
func point(cx, cy, r float64, i, n int) (float64, float64) {
	a := angle(i, n)
	return cx + r*math.Cos(a), cy + r*math.Sin(a)
}
