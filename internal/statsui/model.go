// Package statsui provides the Bubble Tea stats interface.
package statsui

import (
	"bytes"
	"context"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/cursor"
	"github.com/charmbracelet/bubbles/table"
	"github.com/charmbracelet/bubbles/textinput"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/verte-zerg/kanadrill/internal/model"
	"github.com/verte-zerg/kanadrill/internal/stats"
	"github.com/verte-zerg/kanadrill/internal/store"
)

const (
	tabOverview = iota
	tabAccuracy
	tabSpeed
	tabMistakes
)

const (
	plotHeight = 10
)

const (
	inputScript = iota
	inputSince
	inputLast
	inputWindow
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
	errorStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("#FF4D4F"))
	cardStyle   = lipgloss.NewStyle().
			Padding(0, 1).
			Border(lipgloss.RoundedBorder(), true).
			BorderForeground(lipgloss.Color("#4A4A4A"))
	cardTitleStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("#8C8C8C"))
	cardValueStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("#F0F0F0")).Bold(true)
	tableMutedStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("#B8B8B8"))
	gradeStyles     = map[stats.Grade]lipgloss.Style{
		stats.GradeGood: lipgloss.NewStyle().Foreground(lipgloss.Color("#52C41A")),
		stats.GradeFair: lipgloss.NewStyle().Foreground(lipgloss.Color("#FAAD14")),
		stats.GradePoor: lipgloss.NewStyle().Foreground(lipgloss.Color("#FF4D4F")),
	}
)

// Model implements the Bubble Tea stats UI.
type Model struct {
	backend store.Backend
	cfg     model.StatsConfig

	report stats.Report
	errMsg string

	tabs      []string
	activeTab int
	viewports map[int]*viewport.Model
	tables    map[int]*table.Model

	width  int
	height int

	filterMode   bool
	filterInputs []textinput.Model
	filterIndex  int
	filterError  string
}

// NewModel constructs a stats UI model.
func NewModel(backend store.Backend, cfg model.StatsConfig) *Model {
	m := &Model{
		backend: backend,
		cfg:     cfg,
		tabs:    []string{"Overview", "Accuracy", "Speed", "Mistakes"},
	}
	overview := viewport.New(0, 0)
	mistakes := viewport.New(0, 0)
	m.viewports = map[int]*viewport.Model{tabOverview: &overview, tabMistakes: &mistakes}
	accuracy := newItemTable("Accuracy")
	speed := newItemTable("Response")
	m.tables = map[int]*table.Model{tabAccuracy: &accuracy, tabSpeed: &speed}
	m.initInputs()
	m.refreshReport()
	return m
}

// Init implements tea.Model.
func (m *Model) Init() tea.Cmd {
	return nil
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
	case tea.KeyMsg:
		if msg.Type == tea.KeyCtrlC {
			return m, tea.Quit
		}
		if m.filterMode {
			return m.updateFilter(msg)
		}
		switch msg.String() {
		case "q":
			return m, tea.Quit
		case "left", "h":
			m.moveTab(-1)
			return m, tea.ClearScreen
		case "right", "l", "tab":
			m.moveTab(1)
			return m, tea.ClearScreen
		case "=":
			m.cfg.CurveWindow = nextCurveWindow(m.cfg.CurveWindow)
			m.renderTabContents()
			return m, nil
		case "-":
			m.cfg.CurveWindow = prevCurveWindow(m.cfg.CurveWindow)
			m.renderTabContents()
			return m, nil
		case "/":
			return m.startFilter()
		case "g", "home":
			m.gotoEdge(true)
			return m, nil
		case "G", "end":
			m.gotoEdge(false)
			return m, nil
		default:
			var cmd tea.Cmd
			if t, ok := m.tables[m.activeTab]; ok {
				*t, cmd = t.Update(msg)
				return m, cmd
			}
			vp := m.viewports[m.activeTab]
			*vp, cmd = vp.Update(msg)
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

func (m *Model) gotoEdge(top bool) {
	if t, ok := m.tables[m.activeTab]; ok {
		if top {
			t.GotoTop()
		} else {
			t.GotoBottom()
		}
		return
	}
	if top {
		m.viewports[m.activeTab].GotoTop()
	} else {
		m.viewports[m.activeTab].GotoBottom()
	}
}

func (m *Model) initInputs() {
	m.filterInputs = []textinput.Model{
		inputScript: newFilterInput("Script: "),
		inputSince:  newFilterInput("Since (YYYY-MM-DD): "),
		inputLast:   newFilterInput("Last: "),
		inputWindow: newFilterInput("Curve window: "),
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
	m.filterInputs[inputScript].SetValue(strings.TrimSpace(m.cfg.Script))
	since := ""
	if m.cfg.Since != nil {
		since = m.cfg.Since.Format("2006-01-02")
	}
	m.filterInputs[inputSince].SetValue(since)
	last := ""
	if m.cfg.Last > 0 {
		last = strconv.Itoa(m.cfg.Last)
	}
	m.filterInputs[inputLast].SetValue(last)
	m.filterInputs[inputWindow].SetValue(strconv.Itoa(m.cfg.CurveWindow))
}

func (m *Model) layoutHeights() (headerHeight, bodyHeight, footerHeight int) {
	tabsHeight := max(lipgloss.Height(activeNavStyle.Render("X")), 1)
	headerHeight = tabsHeight + 1
	footerHeight = 1
	if !m.filterMode && m.errMsg != "" {
		footerHeight++
	}
	bodyHeight = max(m.height-headerHeight-footerHeight, 1)
	return headerHeight, bodyHeight, footerHeight
}

func (m *Model) updateLayout() {
	if m.width <= 0 || m.height <= 0 {
		return
	}
	_, bodyHeight, _ := m.layoutHeights()
	for _, vp := range m.viewports {
		vp.Width = m.width
		vp.Height = bodyHeight
	}
	for _, t := range m.tables {
		t.SetWidth(m.width)
		t.SetHeight(max(1, bodyHeight-1))
	}
	for i := range m.filterInputs {
		promptWidth := lipgloss.Width(m.filterInputs[i].Prompt)
		m.filterInputs[i].Width = max(10, m.width-promptWidth-2)
	}
}

func (m *Model) moveTab(delta int) {
	count := len(m.tabs)
	m.activeTab = (m.activeTab + delta + count) % count
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
	filters := padLines(m.renderFilterSummary(), m.width)
	return tabs + "\n" + filters
}

func (m *Model) renderFilterSummary() string {
	script := m.cfg.Script
	if script == "" {
		script = "any"
	}
	since := "any"
	if m.cfg.Since != nil {
		since = m.cfg.Since.Format("2006-01-02")
	}
	last := "all"
	if m.cfg.Last > 0 {
		last = strconv.Itoa(m.cfg.Last)
	}
	summary := fmt.Sprintf("Settings: script=%s  since=%s  last=%s  window=%d", script, since, last, m.cfg.CurveWindow)
	return headerStyle.Render(truncateLine(summary, m.width))
}

func (m *Model) renderFooter() string {
	if m.filterMode {
		return headerStyle.Render("tab/shift+tab: next field  enter: apply  esc: cancel")
	}
	help := headerStyle.Render("Nav: left/right  Scroll: up/down/pgup/pgdn  Window: -/=  Settings: /  Quit: q")
	if m.errMsg != "" {
		return help + "\n" + errorStyle.Render(m.errMsg)
	}
	return help
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
	if t, ok := m.tables[m.activeTab]; ok {
		if len(m.report.Items) == 0 {
			return fitLines("No item stats found.", m.width, height)
		}
		return fitLines(tableMutedStyle.Render(t.View()), m.width, height)
	}
	return fitLines(m.viewports[m.activeTab].View(), m.width, height)
}

func (m *Model) refreshReport() {
	report, err := stats.BuildReport(context.Background(), m.backend, m.cfg)
	if err != nil {
		m.errMsg = err.Error()
		for _, vp := range m.viewports {
			vp.SetContent("Failed to load stats.")
		}
		return
	}
	m.errMsg = ""
	m.report = report
	m.tables[tabAccuracy].SetRows(itemRows(stats.WeakestItems(report.Items, len(report.Items)), false))
	m.tables[tabSpeed].SetRows(itemRows(stats.SlowestItems(report.Items, len(report.Items)), true))
	m.renderTabContents()
}

func (m *Model) renderTabContents() {
	if m.errMsg != "" {
		return
	}
	width := m.width
	if width <= 0 {
		width = 80
	}
	m.report.CurveWindow = m.cfg.CurveWindow
	m.viewports[tabOverview].SetContent(renderOverview(m.report, width))
	m.viewports[tabMistakes].SetContent(renderMistakes(m.report.Mistakes))
}

func renderOverview(r stats.Report, width int) string {
	if r.Totals.Attempts == 0 {
		return "No attempts recorded yet."
	}
	summary := renderSummaryCards(r, width)
	highlights := renderHighlights(r)
	var buf bytes.Buffer
	if err := stats.RenderCurves(&buf, r, width, plotHeight, true); err != nil {
		return fmt.Sprintf("Failed to render curves: %v", err)
	}
	return strings.TrimRight(summary+"\n\n"+highlights+"\n\n"+buf.String(), "\n")
}

func renderSummaryCards(r stats.Report, width int) string {
	acc := float64(r.Totals.Successes) / float64(r.Totals.Attempts)
	var totalRate float64
	for _, s := range r.Sessions {
		rate, _ := stats.SessionMetrics(s.Attempts, s.Successes, s.DurationMs)
		totalRate += rate
	}
	rate := "-"
	if len(r.Sessions) > 0 {
		rate = fmt.Sprintf("%.1f", totalRate/float64(len(r.Sessions)))
	}
	cards := []string{
		metricCard("Items", fmt.Sprintf("%d", r.Totals.Items)),
		metricCard("Attempts", fmt.Sprintf("%d", r.Totals.Attempts)),
		metricCard("Accuracy", fmt.Sprintf("%.1f%%", acc*100)),
		metricCard("Sessions", fmt.Sprintf("%d", len(r.Sessions))),
		metricCard("Avg items/min", rate),
	}
	if width < 80 {
		return strings.Join(cards, "\n")
	}
	row1 := lipgloss.JoinHorizontal(lipgloss.Top, cards[0], cards[1], cards[2])
	row2 := lipgloss.JoinHorizontal(lipgloss.Top, cards[3], cards[4])
	return lipgloss.JoinVertical(lipgloss.Left, row1, row2)
}

func renderHighlights(r stats.Report) string {
	lines := []string{}
	if len(r.Weakest) > 0 {
		w := r.Weakest[0]
		lines = append(lines, fmt.Sprintf("Weakest: %s %s", w.ID,
			gradeStyles[stats.AccuracyGrade(w.Accuracy)].Render(fmt.Sprintf("%.1f%%", w.Accuracy*100))))
	}
	if len(r.Slowest) > 0 {
		s := r.Slowest[0]
		lines = append(lines, fmt.Sprintf("Slowest: %s %s", s.ID,
			gradeStyles[stats.ResponseGrade(s.Response)].Render(fmt.Sprintf("%.0fms", s.Response))))
	}
	return strings.Join(lines, "\n")
}

func metricCard(label, value string) string {
	content := fmt.Sprintf("%s\n%s", cardTitleStyle.Render(label), cardValueStyle.Render(value))
	return cardStyle.Render(content)
}

func renderMistakes(groups []stats.MistakeGroup) string {
	if len(groups) == 0 {
		return "No mistakes recorded."
	}
	lines := stats.MistakeLines(groups)
	for i, g := range groups {
		lines[i] += headerStyle.Render("  " + g.Latest.Local().Format("2006-01-02 15:04"))
	}
	return strings.Join(lines, "\n")
}

func newItemTable(metric string) table.Model {
	t := table.New(
		table.WithColumns([]table.Column{
			{Title: "Item", Width: 6},
			{Title: metric, Width: 9},
			{Title: "Tests", Width: 6},
			{Title: "Mistakes", Width: 8},
		}),
		table.WithHeight(1),
	)
	t.SetStyles(itemTableStyles())
	return t
}

func itemRows(items []stats.ItemSummary, speed bool) []table.Row {
	rows := make([]table.Row, 0, len(items))
	for _, it := range items {
		value := fmt.Sprintf("%.1f%%", it.Accuracy*100)
		if speed {
			value = fmt.Sprintf("%.0fms", it.Response)
		}
		rows = append(rows, table.Row{
			it.ID,
			value,
			strconv.Itoa(it.Attempts),
			strconv.Itoa(it.Failures),
		})
	}
	return rows
}

func itemTableStyles() table.Styles {
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
		m.refreshReport()
		m.updateLayout()
		return m, nil
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
	m.filterIndex = (idx + count) % count
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
	script := strings.ToLower(strings.TrimSpace(m.filterInputs[inputScript].Value()))
	sinceInput := strings.TrimSpace(m.filterInputs[inputSince].Value())
	var since *time.Time
	if sinceInput != "" {
		parsed, err := time.ParseInLocation("2006-01-02", sinceInput, time.Local)
		if err != nil {
			return fmt.Errorf("invalid since date (expected YYYY-MM-DD)")
		}
		since = &parsed
	}

	lastInput := strings.TrimSpace(m.filterInputs[inputLast].Value())
	last := 0
	if lastInput != "" {
		parsed, err := strconv.Atoi(lastInput)
		if err != nil || parsed < 0 {
			return fmt.Errorf("invalid last value (use 0 or positive integer)")
		}
		last = parsed
	}

	windowInput := strings.TrimSpace(m.filterInputs[inputWindow].Value())
	window := 1
	if windowInput != "" {
		parsed, err := strconv.Atoi(windowInput)
		if err != nil || parsed < 1 {
			return fmt.Errorf("invalid curve window (use integer >= 1)")
		}
		window = parsed
	}

	m.cfg.Script = script
	m.cfg.Since = since
	m.cfg.Last = last
	m.cfg.CurveWindow = window
	return nil
}

func nextCurveWindow(n int) int {
	if n < 5 {
		return 5
	}
	return (n/5 + 1) * 5
}

func prevCurveWindow(n int) int {
	if n <= 5 {
		return 1
	}
	if n%5 == 0 {
		return n - 5
	}
	return (n / 5) * 5
}
