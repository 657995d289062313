// Package statsui provides the Bubble Tea XP dashboard.
package statsui

import (
	"bytes"
	"context"
	"fmt"
	"strconv"
	"strings"

	"github.com/charmbracelet/bubbles/cursor"
	"github.com/charmbracelet/bubbles/table"
	"github.com/charmbracelet/bubbles/textinput"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/verte-zerg/xpradar/internal/engine"
	"github.com/verte-zerg/xpradar/internal/model"
	"github.com/verte-zerg/xpradar/internal/radar"
	"github.com/verte-zerg/xpradar/internal/stats"
)

const (
	tabRadar = iota
	tabMain
	tabSub
	tabHistory
)

const (
	plotHeight     = 10
	minRadarRadius = 8
	maxRadarRadius = 24
	highlightCount = 3
)

var (
	activeNavStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#F0F0F0")).
			Bold(true).
			Padding(0, 1).
			Border(lipgloss.RoundedBorder(), true).
			BorderForeground(lipgloss.Color("#C89A3A"))
	inactiveNavStyle = lipgloss.NewStyle().
				Foreground(lipgloss.Color("#B0B0B0")).
				Padding(0, 1).
				Border(lipgloss.RoundedBorder(), true).
				BorderForeground(lipgloss.Color("#4A4A4A"))
	headerStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("#6E6E6E"))
	statusStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("#C89A3A"))
	errorStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("#FF4D4F"))
	cardStyle   = lipgloss.NewStyle().
			Padding(0, 1).
			Border(lipgloss.RoundedBorder(), true).
			BorderForeground(lipgloss.Color("#4A4A4A"))
	cardTitleStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("#8C8C8C"))
	cardValueStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("#F0F0F0")).Bold(true)
	tableMutedStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("#B8B8B8"))
)

// Runner runs aggregation passes.
type Runner interface {
	Run(ctx context.Context, settings model.Settings, opts engine.RunOptions) (*engine.Result, error)
}

// Config holds the pass settings and view options of the dashboard.
type Config struct {
	// Vault is shown in the header.
	Vault    string
	Settings model.Settings
	// Last limits the History tab to the most recent passes; 0 shows all.
	Last     int
	MaxLevel int
}

// passMsg carries the outcome of a pass started by the dashboard.
type passMsg struct {
	result  *engine.Result
	history stats.History
	err     error
}

// Model implements the Bubble Tea dashboard.
type Model struct {
	runner  Runner
	history stats.HistorySource
	cfg     Config

	result  *engine.Result
	hist    stats.History
	loading bool
	status  string
	errMsg  string

	tabs      []string
	activeTab int
	viewports []viewport.Model
	tables    map[int]*table.Model
	layouts   map[int]tableLayout

	width  int
	height int

	filterMode   bool
	filterInputs []textinput.Model
	filterIndex  int
	filterError  string
}

type tableLayout struct {
	width    int
	height   int
	rowCount int
	colCount int
}

// NewModel constructs the dashboard. history may be nil when no ledger is
// available; the History tab then stays empty.
func NewModel(runner Runner, history stats.HistorySource, cfg Config) *Model {
	m := &Model{
		runner:  runner,
		history: history,
		cfg:     cfg,
		tabs:    []string{"Radar", "Main Stats", "Sub-Stats", "History"},
	}
	m.initInputs()
	m.initTables()
	m.initViewports()
	return m
}

// Init implements tea.Model. It starts a dry run so the dashboard opens
// without touching any note.
func (m *Model) Init() tea.Cmd {
	return m.startPass(true)
}

// Update implements tea.Model.
func (m *Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		m.updateLayout()
		m.renderTabContents()
		return m, nil
	case passMsg:
		m.applyPass(msg)
		return m, nil
	case tea.KeyMsg:
		if msg.Type == tea.KeyCtrlC || (!m.filterMode && msg.String() == "q") {
			return m, tea.Quit
		}
		if m.filterMode {
			return m.updateFilter(msg)
		}
		m.focusTable()
		switch msg.String() {
		case "left", "h":
			m.moveTab(-1)
			return m, tea.ClearScreen
		case "right", "l":
			m.moveTab(1)
			return m, tea.ClearScreen
		case "r":
			return m, m.startPass(true)
		case "s":
			return m, m.startPass(false)
		case "/":
			return m.startFilter()
		case "g", "home":
			if t, ok := m.tables[m.activeTab]; ok {
				t.GotoTop()
			} else {
				m.viewports[m.activeTab].GotoTop()
			}
			return m, nil
		case "G", "end":
			if t, ok := m.tables[m.activeTab]; ok {
				t.GotoBottom()
			} else {
				m.viewports[m.activeTab].GotoBottom()
			}
			return m, nil
		default:
			if t, ok := m.tables[m.activeTab]; ok {
				var cmd tea.Cmd
				*t, cmd = t.Update(msg)
				return m, cmd
			}
			vp := m.viewports[m.activeTab]
			var cmd tea.Cmd
			vp, cmd = vp.Update(msg)
			m.viewports[m.activeTab] = vp
			return m, cmd
		}
	}
	return m, nil
}

// View implements tea.Model.
func (m *Model) View() string {
	if m.width == 0 || m.height == 0 {
		return ""
	}
	headerHeight, bodyHeight, footerHeight := m.layoutHeights()
	header := fitLines(m.renderHeader(), m.width, headerHeight)
	body := fitLines(m.renderBody(bodyHeight), m.width, bodyHeight)
	footer := fitLines(m.renderFooter(), m.width, footerHeight)
	return strings.Join([]string{header, body, footer}, "\n")
}

// startPass returns a command running one pass in the background. Keys are
// ignored while a pass started here is still running.
func (m *Model) startPass(dryRun bool) tea.Cmd {
	if m.loading || m.runner == nil {
		return nil
	}
	m.loading = true
	if dryRun {
		m.status = "Refreshing..."
	} else {
		m.status = "Syncing..."
	}
	runner, src, settings, last := m.runner, m.history, m.cfg.Settings, m.cfg.Last
	return func() tea.Msg {
		ctx := context.Background()
		res, err := runner.Run(ctx, settings, engine.RunOptions{DryRun: dryRun})
		msg := passMsg{result: res, err: err}
		if res == nil || src == nil {
			return msg
		}
		hist, herr := stats.BuildHistory(ctx, src, res.Snapshot, last)
		if herr != nil && msg.err == nil {
			msg.err = fmt.Errorf("failed to load history: %w", herr)
		}
		msg.history = hist
		return msg
	}
}

func (m *Model) applyPass(msg passMsg) {
	m.loading = false
	m.errMsg = ""
	if msg.err != nil {
		m.errMsg = msg.err.Error()
	}
	if msg.result == nil {
		m.status = ""
		return
	}
	m.result = msg.result
	m.hist = msg.history
	m.status = msg.result.Report.Summary()
	width := m.width
	if width <= 0 {
		width = 80
	}
	_, bodyHeight, _ := m.layoutHeights()
	headers, rows := stats.MainStatTable(m.result.Snapshot)
	m.applyTable(tabMain, headers, rows, width, bodyHeight)
	headers, rows = stats.SubStatTable(m.result.Snapshot)
	m.applyTable(tabSub, headers, rows, width, bodyHeight)
	m.renderTabContents()
}

func (m *Model) initViewports() {
	m.viewports = make([]viewport.Model, len(m.tabs))
	for i := range m.viewports {
		m.viewports[i] = viewport.New(0, 0)
	}
}

func (m *Model) initTables() {
	m.tables = make(map[int]*table.Model, 2)
	m.layouts = make(map[int]tableLayout, 2)
	for _, tab := range []int{tabMain, tabSub} {
		t := buildTable(nil, nil, 0, 1)
		m.tables[tab] = &t
	}
}

func (m *Model) initInputs() {
	m.filterInputs = []textinput.Model{
		newFilterInput("Last passes: "),
		newFilterInput("Max level: "),
	}
	m.setInputsFromConfig()
}

func newFilterInput(prompt string) textinput.Model {
	input := textinput.New()
	input.Prompt = prompt
	input.CharLimit = 0
	input.Cursor.SetMode(cursor.CursorBlink)
	return input
}

func (m *Model) setInputsFromConfig() {
	if m.cfg.Last > 0 {
		m.filterInputs[0].SetValue(strconv.Itoa(m.cfg.Last))
	} else {
		m.filterInputs[0].SetValue("")
	}
	if m.cfg.MaxLevel > 0 {
		m.filterInputs[1].SetValue(strconv.Itoa(m.cfg.MaxLevel))
	} else {
		m.filterInputs[1].SetValue("")
	}
}

func (m *Model) layoutHeights() (headerHeight, bodyHeight, footerHeight int) {
	tabsHeight := max(lipgloss.Height(activeNavStyle.Render("X")), 1)
	headerHeight = tabsHeight + 1
	footerHeight = 1
	if !m.filterMode {
		if m.status != "" {
			footerHeight++
		}
		if m.errMsg != "" {
			footerHeight++
		}
	}
	bodyHeight = max(m.height-headerHeight-footerHeight, 1)
	return headerHeight, bodyHeight, footerHeight
}

func (m *Model) updateLayout() {
	if m.width <= 0 || m.height <= 0 {
		return
	}
	_, vpHeight, _ := m.layoutHeights()
	for i := range m.viewports {
		m.viewports[i].Width = m.width
		m.viewports[i].Height = vpHeight
	}
	for tab := range m.tables {
		m.setTableSize(tab, m.width, vpHeight)
	}
	for i := range m.filterInputs {
		promptWidth := lipgloss.Width(m.filterInputs[i].Prompt)
		m.filterInputs[i].Width = max(10, m.width-promptWidth-2)
	}
}

func (m *Model) moveTab(delta int) {
	count := len(m.tabs)
	if count == 0 {
		return
	}
	next := m.activeTab + delta
	if next < 0 {
		next = count - 1
	}
	if next >= count {
		next = 0
	}
	m.activeTab = next
	m.focusTable()
}

func (m *Model) focusTable() {
	for tab, t := range m.tables {
		if tab == m.activeTab {
			t.Focus()
		} else {
			t.Blur()
		}
	}
}

func (m *Model) renderTabs() string {
	parts := make([]string, 0, len(m.tabs))
	for i, tab := range m.tabs {
		if i == m.activeTab {
			parts = append(parts, activeNavStyle.Render(tab))
		} else {
			parts = append(parts, inactiveNavStyle.Render(tab))
		}
	}
	return lipgloss.JoinHorizontal(lipgloss.Top, parts...)
}

func (m *Model) renderHeader() string {
	tabs := padLines(m.renderTabs(), m.width)
	settings := padLines(m.renderSettingsSummary(), m.width)
	return tabs + "\n" + settings
}

func (m *Model) renderSettingsSummary() string {
	s := m.cfg.Settings
	last := "all"
	if m.cfg.Last > 0 {
		last = strconv.Itoa(m.cfg.Last)
	}
	summary := fmt.Sprintf("Vault: %s  multiplier=%g  exponent=%g  ratio=%g  last=%s",
		m.cfg.Vault, s.XPMultiplier, s.LevelExponent, s.MainToSubRatio, last)
	return headerStyle.Render(truncateLine(summary, m.width))
}

func (m *Model) renderHelp() string {
	return headerStyle.Render("Nav: left/right  Scroll: up/down/pgup/pgdn  Refresh: r  Sync: s  Settings: /  Quit: q")
}

func (m *Model) renderFooter() string {
	if m.filterMode {
		return headerStyle.Render("tab/shift+tab: next field  enter: apply  esc: cancel")
	}
	lines := []string{m.renderHelp()}
	if m.status != "" {
		lines = append(lines, statusStyle.Render(truncateLine(m.status, m.width)))
	}
	if m.errMsg != "" {
		lines = append(lines, errorStyle.Render(truncateLine(m.errMsg, m.width)))
	}
	return strings.Join(lines, "\n")
}

func (m *Model) renderFilterForm() string {
	lines := []string{"Settings (enter to apply, esc to cancel)"}
	for _, input := range m.filterInputs {
		lines = append(lines, input.View())
	}
	if m.filterError != "" {
		lines = append(lines, errorStyle.Render(m.filterError))
	}
	return strings.Join(lines, "\n")
}

func (m *Model) renderBody(height int) string {
	if m.filterMode {
		return fitLines(m.renderFilterForm(), m.width, height)
	}
	if m.result == nil {
		msg := "No pass has run yet."
		if m.loading {
			msg = "Scanning vault..."
		}
		return fitLines(msg, m.width, height)
	}
	switch m.activeTab {
	case tabMain:
		if len(m.result.Snapshot.MainStats) == 0 {
			return fitLines("No main stats found.", m.width, height)
		}
		return fitLines(tableMutedStyle.Render(m.tables[tabMain].View()), m.width, height)
	case tabSub:
		if len(m.result.Snapshot.SubStats) == 0 {
			return fitLines("No sub-stats found.", m.width, height)
		}
		return fitLines(tableMutedStyle.Render(m.tables[tabSub].View()), m.width, height)
	}
	return fitLines(m.viewports[m.activeTab].View(), m.width, height)
}

func (m *Model) renderTabContents() {
	if len(m.viewports) == 0 || m.result == nil {
		return
	}
	width := m.width
	if width <= 0 {
		width = 80
	}
	_, bodyHeight, _ := m.layoutHeights()
	snap := m.result.Snapshot
	m.viewports[tabRadar].SetContent(renderRadar(snap, m.cfg.MaxLevel, width, bodyHeight))
	m.viewports[tabHistory].SetContent(renderHistory(m.hist, m.history != nil, width))
}

func renderRadar(snap model.Snapshot, maxLevel, width, height int) string {
	cards := renderSummaryCards(snap, width)
	var buf bytes.Buffer
	opts := radar.TextOptions{
		Radius:   radarRadius(height - lipgloss.Height(cards) - len(snap.MainStats)),
		MaxLevel: maxLevel,
		Color:    true,
	}
	if err := radar.RenderText(&buf, snap.MainStats, opts); err != nil {
		return fmt.Sprintf("Failed to render radar: %v", err)
	}
	return strings.TrimRight(cards+"\n"+buf.String(), "\n")
}

// radarRadius picks the largest braille radius whose chart fits in rows
// terminal lines. Each line holds four dots.
func radarRadius(rows int) int {
	r := rows*2 - 8
	return min(max(r, minRadarRadius), maxRadarRadius)
}

func renderSummaryCards(snap model.Snapshot, width int) string {
	total := 0
	for _, sub := range snap.SubStats {
		total += sub.NewXPEarned
	}
	top := "-"
	if best := stats.TopSubStats(snap, highlightCount); len(best) > 0 {
		names := make([]string, len(best))
		for i, s := range best {
			names[i] = s.ID
		}
		top = strings.Join(names, ", ")
	}
	weak := "-"
	if low := stats.WeakestMainStats(snap, 1); len(low) > 0 {
		weak = fmt.Sprintf("%s (Lvl %d)", low[0].Name, low[0].Level)
	}
	cards := []string{
		metricCard("Main stats", strconv.Itoa(len(snap.MainStats))),
		metricCard("Sub-stats", strconv.Itoa(len(snap.SubStats))),
		metricCard("New XP", fmt.Sprintf("+%d", total)),
		metricCard("Top sub-stats", top),
		metricCard("Needs work", weak),
	}
	if width < 80 {
		return strings.Join(cards, "\n")
	}
	row1 := lipgloss.JoinHorizontal(lipgloss.Top, cards[0], cards[1], cards[2])
	row2 := lipgloss.JoinHorizontal(lipgloss.Top, cards[3], cards[4])
	return lipgloss.JoinVertical(lipgloss.Left, row1, row2)
}

func metricCard(label, value string) string {
	content := fmt.Sprintf("%s\n%s", cardTitleStyle.Render(label), cardValueStyle.Render(value))
	return cardStyle.Render(content)
}

func renderHistory(h stats.History, hasLedger bool, width int) string {
	if !hasLedger {
		return "Pass history needs the award ledger."
	}
	var buf bytes.Buffer
	if err := stats.RenderPasses(&buf, h.Passes); err != nil {
		return fmt.Sprintf("Failed to render passes: %v", err)
	}
	if err := stats.RenderCurves(&buf, h, width, plotHeight, true); err != nil {
		return fmt.Sprintf("Failed to render curves: %v", err)
	}
	return strings.TrimRight(buf.String(), "\n")
}

func buildTable(headers []string, rows [][]string, width, height int) table.Model {
	cols, data := tableData(headers, rows)
	t := table.New(
		table.WithColumns(cols),
		table.WithRows(data),
		table.WithHeight(max(1, height-1)),
	)
	t.SetWidth(width)
	t.SetStyles(tableStyles())
	return t
}

func tableData(headers []string, rows [][]string) ([]table.Column, []table.Row) {
	cols := make([]table.Column, len(headers))
	for i, h := range headers {
		cols[i] = table.Column{Title: h, Width: lipgloss.Width(h)}
	}
	data := make([]table.Row, 0, len(rows))
	for _, row := range rows {
		for i, cell := range row {
			if i < len(cols) {
				cols[i].Width = max(cols[i].Width, lipgloss.Width(cell))
			}
		}
		data = append(data, table.Row(row))
	}
	return cols, data
}

func (m *Model) applyTable(tab int, headers []string, rows [][]string, width, height int) {
	cols, data := tableData(headers, rows)
	t := m.tables[tab]
	// Stale rows are rendered against the new columns otherwise.
	t.SetRows(nil)
	t.SetColumns(cols)
	t.SetRows(data)
	layout := m.layouts[tab]
	layout.rowCount = len(data)
	layout.colCount = len(cols)
	layout.width, layout.height = 0, 0
	m.layouts[tab] = layout
	m.setTableSize(tab, width, height)
}

func (m *Model) setTableSize(tab, width, height int) {
	viewportHeight := max(1, height-1)
	layout := m.layouts[tab]
	if layout.width == width && layout.height == viewportHeight {
		return
	}
	t := m.tables[tab]
	t.SetWidth(width)
	t.SetHeight(viewportHeight)
	viewportHeight = adjustTableHeight(t, height)
	layout.width = width
	layout.height = viewportHeight
	m.layouts[tab] = layout
}

// adjustTableHeight resizes t so its rendered view, header included, is
// exactly bodyHeight lines tall.
func adjustTableHeight(t *table.Model, bodyHeight int) int {
	target := max(1, bodyHeight)
	height := t.Height()
	for range 2 {
		viewHeight := lipgloss.Height(t.View())
		if viewHeight == target {
			return height
		}
		height = max(1, height+target-viewHeight)
		t.SetHeight(height)
	}
	return height
}

func tableStyles() table.Styles {
	styles := table.DefaultStyles()
	styles.Header = styles.Header.
		Border(lipgloss.NormalBorder(), false, false, true, false).
		BorderForeground(lipgloss.Color("#4A4A4A")).
		Foreground(lipgloss.Color("#C0C0C0")).
		Bold(true).
		Padding(0, 1).
		PaddingLeft(0)
	styles.Cell = styles.Cell.
		Padding(0, 1).
		PaddingLeft(0)
	styles.Selected = styles.Cell.
		Foreground(lipgloss.Color("#F0F0F0")).
		Bold(true)
	return styles
}

func (m *Model) startFilter() (tea.Model, tea.Cmd) {
	m.filterMode = true
	m.filterError = ""
	m.setInputsFromConfig()
	return m, m.setFilterIndex(0)
}

func (m *Model) updateFilter(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.Type {
	case tea.KeyEsc:
		m.filterMode = false
		m.filterError = ""
		return m, nil
	case tea.KeyEnter:
		if err := m.applyFilter(); err != nil {
			m.filterError = err.Error()
			return m, nil
		}
		m.filterMode = false
		m.filterError = ""
		m.updateLayout()
		return m, m.startPass(true)
	case tea.KeyTab:
		return m, m.setFilterIndex(m.filterIndex + 1)
	case tea.KeyShiftTab:
		return m, m.setFilterIndex(m.filterIndex - 1)
	}
	var cmd tea.Cmd
	m.filterInputs[m.filterIndex], cmd = m.filterInputs[m.filterIndex].Update(msg)
	return m, cmd
}

func (m *Model) setFilterIndex(idx int) tea.Cmd {
	count := len(m.filterInputs)
	if count == 0 {
		return nil
	}
	if idx < 0 {
		idx = count - 1
	}
	if idx >= count {
		idx = 0
	}
	m.filterIndex = idx
	var cmd tea.Cmd
	for i := range m.filterInputs {
		if i == m.filterIndex {
			cmd = m.filterInputs[i].Focus()
		} else {
			m.filterInputs[i].Blur()
		}
	}
	return cmd
}

func (m *Model) applyFilter() error {
	last, err := parseCount(m.filterInputs[0].Value())
	if err != nil {
		return fmt.Errorf("invalid last value (use 0 or positive integer)")
	}
	maxLevel, err := parseCount(m.filterInputs[1].Value())
	if err != nil {
		return fmt.Errorf("invalid max level (use 0 or positive integer)")
	}
	m.cfg.Last = last
	m.cfg.MaxLevel = maxLevel
	return nil
}

func parseCount(input string) (int, error) {
	input = strings.TrimSpace(input)
	if input == "" {
		return 0, nil
	}
	v, err := strconv.Atoi(input)
	if err != nil || v < 0 {
		return 0, fmt.Errorf("invalid count %q", input)
	}
	return v, nil
}

func padLines(s string, width int) string {
	if width <= 0 || s == "" {
		return s
	}
	lines := strings.Split(s, "\n")
	for i, line := range lines {
		lines[i] = padLine(line, width)
	}
	return strings.Join(lines, "\n")
}

func padLine(line string, width int) string {
	lineWidth := lipgloss.Width(line)
	if lineWidth < width {
		return line + strings.Repeat(" ", width-lineWidth)
	}
	return line
}

func fitLines(s string, width, height int) string {
	if width <= 0 || height <= 0 {
		return s
	}
	lines := strings.Split(s, "\n")
	for i, line := range lines {
		lines[i] = padLine(line, width)
	}
	if len(lines) > height {
		lines = lines[:height]
	}
	for len(lines) < height {
		lines = append(lines, strings.Repeat(" ", width))
	}
	return strings.Join(lines, "\n")
}

func truncateLine(s string, width int) string {
	if width <= 0 {
		return s
	}
	runes := []rune(s)
	if len(runes) <= width {
		return s
	}
	if width <= 3 {
		return string(runes[:width])
	}
	return string(runes[:width-3]) + "..."
}
