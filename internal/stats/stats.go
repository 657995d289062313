// Package stats formats aggregation snapshots and pass history as text
// tables, sparklines and braille curves.
package stats

import (
	"fmt"
	"io"
	"math"
	"strings"
	"time"

	"github.com/verte-zerg/xpradar/internal/model"
)

const sparkChars = " .:-=+*#%@"

// Sparkline renders a single-line ASCII sparkline for the values.
func Sparkline(values []float64) string {
	if len(values) == 0 {
		return ""
	}
	minVal, maxVal := values[0], values[0]
	for _, v := range values[1:] {
		minVal = math.Min(minVal, v)
		maxVal = math.Max(maxVal, v)
	}
	if math.Abs(maxVal-minVal) < 1e-9 {
		return strings.Repeat(string(sparkChars[len(sparkChars)/2]), len(values))
	}
	var b strings.Builder
	for _, v := range values {
		pos := (v - minVal) / (maxVal - minVal)
		idx := int(math.Round(pos * float64(len(sparkChars)-1)))
		b.WriteByte(sparkChars[min(max(idx, 0), len(sparkChars)-1)])
	}
	return b.String()
}

// SubStatTable returns the headers and rows of the sub-stat table in corpus
// order. The last column holds XP earned by the pass.
func SubStatTable(snap model.Snapshot) ([]string, [][]string) {
	headers := []string{"Sub-stat", "Category", "Level", "Total XP", "Next Level", "Progress", "New"}
	subs := snap.OrderedSubStats()
	rows := make([][]string, 0, len(subs))
	for _, s := range subs {
		rows = append(rows, []string{
			s.ID,
			s.MainCategory,
			fmt.Sprintf("%d", s.Level),
			fmt.Sprintf("%d", s.TotalXP),
			fmt.Sprintf("%d/%d", s.XPCurrent, s.XPNeeded),
			fmt.Sprintf("%d%%", s.Progress),
			gain(s.NewXPEarned),
		})
	}
	return headers, rows
}

// MainStatTable returns the headers and rows of the main-stat table.
func MainStatTable(snap model.Snapshot) ([]string, [][]string) {
	headers := []string{"Main stat", "Level", "Total XP", "Next Level", "Progress", "Sub-stats", "Avg Sub Lvl", "New"}
	rows := make([][]string, 0, len(snap.MainStats))
	for _, m := range snap.MainStats {
		rows = append(rows, []string{
			m.Name,
			fmt.Sprintf("%d", m.Level),
			fmt.Sprintf("%d", m.TotalXP),
			fmt.Sprintf("%d/%d", m.XPCurrent, m.XPNeeded),
			fmt.Sprintf("%d%%", m.Progress),
			fmt.Sprintf("%d", len(m.AssignedSubStats)),
			fmt.Sprintf("%.1f", m.AvgSubLevel),
			gain(m.NewMainXP),
		})
	}
	return headers, rows
}

// PassTable returns the headers and rows of the pass history table, newest
// pass last.
func PassTable(passes []model.PassRecord) ([]string, [][]string) {
	headers := []string{"Pass", "Finished", "Took", "Notes", "Tasks", "XP", "Written", "Failures"}
	rows := make([][]string, 0, len(passes))
	for _, p := range passes {
		pass := fmt.Sprintf("#%d", p.ID)
		if p.Forced {
			pass += " (forced)"
		}
		rows = append(rows, []string{
			pass,
			p.EndedAt.Local().Format("2006-01-02 15:04"),
			p.EndedAt.Sub(p.StartedAt).Round(time.Millisecond).String(),
			fmt.Sprintf("%d", p.Documents),
			fmt.Sprintf("%d", p.Mentions),
			gain(p.NewXP),
			fmt.Sprintf("%d", p.Written),
			fmt.Sprintf("%d", p.ReadFailures+p.WriteFailures),
		})
	}
	return headers, rows
}

func gain(xp int) string {
	if xp <= 0 {
		return ""
	}
	return fmt.Sprintf("+%d", xp)
}

// RenderSubStats prints the sub-stat table.
func RenderSubStats(w io.Writer, snap model.Snapshot) error {
	if len(snap.SubStats) == 0 {
		_, err := fmt.Fprintln(w, "No sub-stats found.")
		return err
	}
	headers, rows := SubStatTable(snap)
	return renderTable(w, "Sub-Stats", headers, rows, map[int]bool{2: true, 3: true, 4: true, 5: true, 6: true})
}

// RenderMainStats prints the main-stat table.
func RenderMainStats(w io.Writer, snap model.Snapshot) error {
	if len(snap.MainStats) == 0 {
		_, err := fmt.Fprintln(w, "No main stats found.")
		return err
	}
	headers, rows := MainStatTable(snap)
	return renderTable(w, "Main Stats", headers, rows, map[int]bool{1: true, 2: true, 3: true, 4: true, 5: true, 6: true, 7: true})
}

// RenderPasses prints recorded passes.
func RenderPasses(w io.Writer, passes []model.PassRecord) error {
	if len(passes) == 0 {
		_, err := fmt.Fprintln(w, "No passes recorded.")
		return err
	}
	headers, rows := PassTable(passes)
	return renderTable(w, "Pass History", headers, rows, map[int]bool{2: true, 3: true, 4: true, 5: true, 6: true, 7: true})
}

// RenderCurves plots the total XP of every main-stat across recorded passes.
func RenderCurves(w io.Writer, h History, totalWidth, height int, useColor bool) error {
	series := h.MainSeries()
	if len(series) == 0 || len(h.Passes) < 2 {
		return nil
	}
	width := 0
	if totalWidth > 0 {
		width = PlotWidthFor(totalWidth)
	}
	return PlotSeries(w, "Main-stat XP", series, width, height, useColor)
}

func renderTable(w io.Writer, title string, headers []string, rows [][]string, rightAlign map[int]bool) error {
	if _, err := fmt.Fprintln(w, title); err != nil {
		return err
	}
	for _, line := range formatTable(headers, rows, rightAlign) {
		if _, err := fmt.Fprintln(w, strings.TrimRight(line, " ")); err != nil {
			return err
		}
	}
	_, err := fmt.Fprintln(w, "")
	return err
}
