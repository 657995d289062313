package radar

import (
	"fmt"
	"io"
	"math"
	"strings"

	"github.com/mattn/go-runewidth"

	"github.com/verte-zerg/xpradar/internal/braille"
	"github.com/verte-zerg/xpradar/internal/model"
)

const (
	defaultTextRadius = 24
	defaultTextRings  = 4
	labelMargin       = 6
	barWidth          = 10
	// NoStatsMessage is printed instead of a chart when there are no main-stats.
	NoStatsMessage = "No main stats found"
)

const markers = "123456789abcdefghijklmnopqrstuvwxyz"

// TextOptions configures RenderText.
type TextOptions struct {
	// Radius of the outer ring in braille dots.
	Radius    int
	MaxLevel  int
	GridCount int
	Color     bool
}

func (o TextOptions) withDefaults() TextOptions {
	if o.Radius <= 0 {
		o.Radius = defaultTextRadius
	}
	if o.MaxLevel <= 0 {
		o.MaxLevel = defaultMaxLevel
	}
	if o.GridCount <= 0 {
		o.GridCount = defaultTextRings
	}
	return o
}

// RenderText draws the radar with braille dots followed by a legend that
// maps each axis marker to its stat, level and progress.
func RenderText(w io.Writer, stats []model.MainStat, opts TextOptions) error {
	if len(stats) == 0 {
		_, err := fmt.Fprintln(w, NoStatsMessage)
		return err
	}
	opts = opts.withDefaults()
	axes := AxesFor(stats)
	lines := chartLines(axes, opts)
	for _, line := range lines {
		if _, err := fmt.Fprintln(w, line); err != nil {
			return err
		}
	}
	for _, line := range legendLines(axes, opts.Color) {
		if _, err := fmt.Fprintln(w, line); err != nil {
			return err
		}
	}
	return nil
}

func chartLines(axes []Axis, opts TextOptions) []string {
	r := opts.Radius
	span := 2*(r+labelMargin) + 1
	cols := (span + 1) / 2
	rows := (span + 3) / 4
	grid := braille.NewCanvas(cols, rows)
	data := braille.NewCanvas(cols, rows)
	c := float64(r + labelMargin)
	n := len(axes)

	for k := 1; k <= opts.GridCount; k++ {
		drawRing(grid, c, float64(r)*float64(k)/float64(opts.GridCount))
	}
	for i := range axes {
		x, y := point(c, c, float64(r), i, n)
		grid.DashedLine(round(c), round(c), round(x), round(y), 2, 1)
	}

	var px, py []int
	for i, a := range axes {
		x, y := point(c, c, float64(r)*Normalize(a.Level, opts.MaxLevel), i, n)
		px = append(px, round(x))
		py = append(py, round(y))
	}
	for i := range px {
		j := (i + 1) % len(px)
		data.Line(px[i], py[i], px[j], py[j])
	}

	overlay := map[[2]int]rune{}
	for i, a := range axes {
		if a.Label == "" || i >= len(markers) {
			continue
		}
		x, y := point(c, c, float64(r+labelMargin-2), i, n)
		overlay[[2]int{round(x) / 2, round(y) / 4}] = rune(markers[i])
	}

	lines := make([]string, rows)
	for row := 0; row < rows; row++ {
		var b strings.Builder
		for col := 0; col < cols; col++ {
			if m, ok := overlay[[2]int{col, row}]; ok {
				b.WriteString(braille.Paint(string(m), braille.Palette[2], opts.Color))
				continue
			}
			dm := data.Mask(col, row)
			gm := grid.Mask(col, row)
			switch {
			case dm != 0:
				b.WriteString(braille.Paint(string(braille.Rune(dm|gm)), braille.Palette[0], opts.Color))
			case gm != 0:
				b.WriteString(braille.Paint(string(braille.Rune(gm)), braille.Muted, opts.Color))
			default:
				b.WriteRune(' ')
			}
		}
		lines[row] = strings.TrimRight(b.String(), " ")
	}
	return lines
}

func drawRing(c *braille.Canvas, center, radius float64) {
	steps := max(24, int(2*math.Pi*radius))
	prevX, prevY := round(center+radius), round(center)
	for s := 1; s <= steps; s++ {
		a := float64(s) * 2 * math.Pi / float64(steps)
		x, y := round(center+radius*math.Cos(a)), round(center+radius*math.Sin(a))
		c.Line(prevX, prevY, x, y)
		prevX, prevY = x, y
	}
}

func legendLines(axes []Axis, color bool) []string {
	width := 0
	for _, a := range axes {
		width = max(width, runewidth.StringWidth(a.Label))
	}
	var lines []string
	for i, a := range axes {
		if a.Label == "" || i >= len(markers) {
			continue
		}
		marker := braille.Paint(string(markers[i]), braille.Palette[2], color)
		label := runewidth.FillRight(a.Label, width)
		lines = append(lines, fmt.Sprintf("%s %s  Lvl %-3d %s %3d%%", marker, label, a.Level, ProgressBar(a.Progress, barWidth), a.Progress))
	}
	return lines
}

// ProgressBar draws progress (clamped to 0..100) as a bar of width cells.
func ProgressBar(progress, width int) string {
	if width <= 0 {
		return ""
	}
	p := min(max(progress, 0), 100)
	filled := p * width / 100
	return strings.Repeat("█", filled) + strings.Repeat("░", width-filled)
}

func round(v float64) int {
	return int(math.Round(v))
}
