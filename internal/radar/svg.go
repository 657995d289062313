package radar

import (
	"encoding/xml"
	"fmt"
	"io"
	"math"
	"regexp"
	"strconv"
	"strings"

	"github.com/verte-zerg/xpradar/internal/model"
)

const (
	chartPadding   = 30
	labelOffset    = 18
	barRowHeight   = 22
	barHeight      = 8
	barLabelWidth  = 110
	barSideMargin  = 20
	levelTextColor = "#888"
)

var alphaSuffix = regexp.MustCompile(`[\d.]+\)$`)

// SVGOptions configures RenderSVG.
type SVGOptions struct {
	Size             int
	FillColor        string
	StrokeColor      string
	GridColor        string
	LabelColor       string
	BgColor          string
	PointRadius      float64
	FillOpacity      float64
	GridCount        int
	FontFamily       string
	StrokeWidth      float64
	ShowProgressBars bool
	MaxLevel         int
}

// DefaultSVGOptions returns the stock chart look.
func DefaultSVGOptions() SVGOptions {
	return SVGOptions{
		Size:             360,
		FillColor:        "rgba(75,192,192,0.4)",
		StrokeColor:      "rgba(75,192,192,1)",
		GridColor:        "#ddd",
		LabelColor:       "#333",
		BgColor:          "#181818",
		PointRadius:      4,
		FillOpacity:      0.4,
		GridCount:        5,
		FontFamily:       "inherit",
		StrokeWidth:      2,
		ShowProgressBars: true,
		MaxLevel:         defaultMaxLevel,
	}
}

func (o SVGOptions) withDefaults() SVGOptions {
	d := DefaultSVGOptions()
	if o.Size <= 2*chartPadding {
		o.Size = d.Size
	}
	if o.FillColor == "" {
		o.FillColor = d.FillColor
	}
	if o.StrokeColor == "" {
		o.StrokeColor = d.StrokeColor
	}
	if o.GridColor == "" {
		o.GridColor = d.GridColor
	}
	if o.LabelColor == "" {
		o.LabelColor = d.LabelColor
	}
	if o.PointRadius <= 0 {
		o.PointRadius = d.PointRadius
	}
	o.FillOpacity = math.Min(math.Max(o.FillOpacity, 0), 1)
	if o.GridCount <= 0 {
		o.GridCount = d.GridCount
	}
	if o.FontFamily == "" {
		o.FontFamily = d.FontFamily
	}
	if o.StrokeWidth <= 0 {
		o.StrokeWidth = d.StrokeWidth
	}
	if o.MaxLevel <= 0 {
		o.MaxLevel = d.MaxLevel
	}
	return o
}

// RenderSVG writes a standalone SVG radar of the main-stats. An empty BgColor
// leaves the background transparent.
func RenderSVG(w io.Writer, stats []model.MainStat, opts SVGOptions) error {
	opts = opts.withDefaults()
	var b strings.Builder
	size := float64(opts.Size)
	center := size / 2
	radius := center - chartPadding

	if len(stats) == 0 {
		fmt.Fprintf(&b, `<svg xmlns="http://www.w3.org/2000/svg" width="%d" height="%d" viewBox="0 0 %d %d">`+"\n", opts.Size, opts.Size, opts.Size, opts.Size)
		writeBackground(&b, opts, opts.Size)
		fmt.Fprintf(&b, `<text x="%s" y="%s" text-anchor="middle" font-size="13" fill="#666" font-family="%s">%s</text>`+"\n",
			num(center), num(center), esc(opts.FontFamily), esc(NoStatsMessage))
		b.WriteString("</svg>\n")
		_, err := io.WriteString(w, b.String())
		return err
	}

	axes := AxesFor(stats)
	n := len(axes)
	var barAxes []Axis
	if opts.ShowProgressBars {
		for _, a := range axes {
			if a.Label != "" {
				barAxes = append(barAxes, a)
			}
		}
	}
	height := opts.Size
	if len(barAxes) > 0 {
		height += len(barAxes)*barRowHeight + 10
	}

	fmt.Fprintf(&b, `<svg xmlns="http://www.w3.org/2000/svg" width="%d" height="%d" viewBox="0 0 %d %d">`+"\n", opts.Size, height, opts.Size, height)
	writeBackground(&b, opts, height)

	for i := 1; i <= opts.GridCount; i++ {
		r := radius * float64(i) / float64(opts.GridCount)
		fmt.Fprintf(&b, `<circle cx="%s" cy="%s" r="%s" fill="none" stroke="%s" stroke-width="1"/>`+"\n",
			num(center), num(center), num(r), esc(opts.GridColor))
	}
	for i := range axes {
		x, y := point(center, center, radius, i, n)
		fmt.Fprintf(&b, `<line x1="%s" y1="%s" x2="%s" y2="%s" stroke="%s" stroke-width="1"/>`+"\n",
			num(center), num(center), num(x), num(y), esc(opts.GridColor))
	}

	points := make([]string, n)
	dots := make([][2]float64, n)
	for i, a := range axes {
		x, y := point(center, center, radius*Normalize(a.Level, opts.MaxLevel), i, n)
		points[i] = num(x) + "," + num(y)
		dots[i] = [2]float64{x, y}
	}
	fmt.Fprintf(&b, `<polygon points="%s" fill="%s" stroke="%s" stroke-width="%s"/>`+"\n",
		strings.Join(points, " "), esc(FillWithOpacity(opts.FillColor, opts.FillOpacity)), esc(opts.StrokeColor), num(opts.StrokeWidth))
	for i, d := range dots {
		if axes[i].Label == "" {
			continue
		}
		fmt.Fprintf(&b, `<circle cx="%s" cy="%s" r="%s" fill="%s"/>`+"\n",
			num(d[0]), num(d[1]), num(opts.PointRadius), esc(opts.StrokeColor))
	}

	for i, a := range axes {
		if a.Label == "" {
			continue
		}
		x, y := point(center, center, radius+labelOffset, i, n)
		fmt.Fprintf(&b, `<text x="%s" y="%s" text-anchor="middle" dy="5" font-size="13" fill="%s" font-family="%s">%s</text>`+"\n",
			num(x), num(y), esc(opts.LabelColor), esc(opts.FontFamily), esc(a.Label))
		fmt.Fprintf(&b, `<text x="%s" y="%s" text-anchor="middle" dy="5" font-size="11" fill="%s" font-family="%s">Lvl %d</text>`+"\n",
			num(x), num(y+15), levelTextColor, esc(opts.FontFamily), a.Level)
	}

	writeProgressBars(&b, barAxes, opts)
	b.WriteString("</svg>\n")
	_, err := io.WriteString(w, b.String())
	return err
}

func writeBackground(b *strings.Builder, opts SVGOptions, height int) {
	if opts.BgColor == "" {
		return
	}
	fmt.Fprintf(b, `<rect x="0" y="0" width="%d" height="%d" fill="%s"/>`+"\n", opts.Size, height, esc(opts.BgColor))
}

func writeProgressBars(b *strings.Builder, axes []Axis, opts SVGOptions) {
	track := float64(opts.Size - barLabelWidth - 2*barSideMargin - 40)
	if track <= 0 {
		return
	}
	for i, a := range axes {
		y := float64(opts.Size + i*barRowHeight + 5)
		p := math.Min(math.Max(float64(a.Progress), 0), 100)
		fmt.Fprintf(b, `<text x="%d" y="%s" font-size="11" fill="%s" font-family="%s">%s</text>`+"\n",
			barSideMargin, num(y+barHeight), esc(opts.LabelColor), esc(opts.FontFamily), esc(a.Label))
		x := float64(barSideMargin + barLabelWidth)
		fmt.Fprintf(b, `<rect x="%s" y="%s" width="%s" height="%d" rx="3" fill="%s"/>`+"\n",
			num(x), num(y), num(track), barHeight, esc(opts.GridColor))
		fmt.Fprintf(b, `<rect x="%s" y="%s" width="%s" height="%d" rx="3" fill="%s"/>`+"\n",
			num(x), num(y), num(track*p/100), barHeight, esc(opts.StrokeColor))
		fmt.Fprintf(b, `<text x="%s" y="%s" font-size="11" fill="%s" font-family="%s">%d%%</text>`+"\n",
			num(x+track+6), num(y+barHeight), levelTextColor, esc(opts.FontFamily), a.Progress)
	}
}

// FillWithOpacity replaces the alpha of an rgba() colour with opacity.
// Colours without a trailing alpha are returned unchanged.
func FillWithOpacity(color string, opacity float64) string {
	if !strings.HasPrefix(strings.ToLower(strings.TrimSpace(color)), "rgba(") {
		return color
	}
	return alphaSuffix.ReplaceAllString(color, num(opacity)+")")
}

func num(v float64) string {
	return strconv.FormatFloat(math.Round(v*100)/100, 'f', -1, 64)
}

func esc(s string) string {
	var b strings.Builder
	_ = xml.EscapeText(&b, []byte(s))
	return b.String()
}
