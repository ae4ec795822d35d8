// Package tui provides the Bubble Tea practice interface.
package tui

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/verte-zerg/kanadrill/internal/kana"
	"github.com/verte-zerg/kanadrill/internal/model"
	"github.com/verte-zerg/kanadrill/internal/practice"
	statsPkg "github.com/verte-zerg/kanadrill/internal/stats"
	"github.com/verte-zerg/kanadrill/internal/store"
)

// Mode is the practice screen state.
type Mode int

const (
	ModeInitial Mode = iota
	ModeReady
	ModePaused
)

const (
	maxInputRunes       = 8
	defaultRecentWindow = 20
)

// Options wires a Model to its collaborators.
type Options struct {
	Config   model.Config
	Catalog  []practice.Item
	History  *practice.History
	Selector *practice.Selector
	Backend  store.Backend
	Logger   *slog.Logger
	Now      func() time.Time
	NewID    func() string
}

type feedback struct {
	item    practice.Item
	input   string
	success bool
	ms      float64
}

// Model implements the Bubble Tea practice UI.
type Model struct {
	config   model.Config
	catalog  []practice.Item
	history  *practice.History
	selector *practice.Selector
	backend  store.Backend
	logger   *slog.Logger
	now      func() time.Time
	newID    func() string

	width  int
	height int

	mode    Mode
	current practice.Item
	shownAt time.Time
	input   []rune
	last    *feedback
	err     error

	sessionID        string
	sessionStart     time.Time
	sessionAttempts  int
	sessionSuccesses int
	responses        []float64
}

var (
	promptStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("#5CC8FF")).Bold(true)
	inputStyle     = lipgloss.NewStyle().Foreground(lipgloss.Color("#F0F0F0"))
	correctStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("#52C41A"))
	incorrectStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("#FF4D4F"))
	pendingStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("#8C8C8C"))
	cursorStyle    = pendingStyle.Underline(true)
	hintStyle      = lipgloss.NewStyle().Foreground(lipgloss.Color("#C89A3A"))
	footerStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("#6E6E6E"))
)

// NewModel constructs a practice TUI model.
func NewModel(opts Options) *Model {
	m := &Model{
		config:   opts.Config,
		catalog:  opts.Catalog,
		history:  opts.History,
		selector: opts.Selector,
		backend:  opts.Backend,
		logger:   opts.Logger,
		now:      opts.Now,
		newID:    opts.NewID,
	}
	if m.now == nil {
		m.now = time.Now
	}
	if m.logger == nil {
		m.logger = slog.Default()
	}
	if m.selector == nil {
		m.selector = practice.NewSelector(practice.WithClock(m.now))
	}
	if m.history == nil {
		m.history = practice.NewHistory(m.now())
	}
	if m.config.RecentWindow <= 0 {
		m.config.RecentWindow = defaultRecentWindow
	}
	return m
}

// Mode reports the current screen state.
func (m *Model) Mode() Mode { return m.mode }

// Current returns the item on screen.
func (m *Model) Current() practice.Item { return m.current }

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
		return m, nil
	case tea.KeyMsg:
		switch msg.Type {
		case tea.KeyCtrlC, tea.KeyEsc:
			m.flush()
			return m, tea.Quit
		case tea.KeyEnter:
			m.handleEnter()
			return m, nil
		case tea.KeyBackspace, tea.KeyDelete:
			m.handleBackspace()
			return m, nil
		case tea.KeyRunes:
			m.handleRunes(msg.Runes)
			return m, nil
		default:
			return m, nil
		}
	default:
		return m, nil
	}
}

func (m *Model) handleEnter() {
	switch m.mode {
	case ModeInitial, ModePaused:
		m.mode = ModeReady
		m.err = nil
		m.nextItem()
	case ModeReady:
		if strings.TrimSpace(string(m.input)) == "" {
			m.pause()
			return
		}
		m.checkAnswer()
	}
}

func (m *Model) pause() {
	m.flush()
	m.mode = ModePaused
	m.current = practice.Item{}
	m.shownAt = time.Time{}
	m.input = nil
}

func (m *Model) nextItem() {
	item, err := m.selector.Select(m.catalog, m.history)
	if err != nil {
		m.err = err
		m.logger.Error("failed to select item", "err", err)
		m.mode = ModePaused
		return
	}
	m.current = item
	m.shownAt = m.now()
	if m.sessionStart.IsZero() {
		m.sessionStart = m.shownAt
	}
}

func (m *Model) checkAnswer() {
	now := m.now()
	ms := float64(now.Sub(m.shownAt)) / float64(time.Millisecond)
	typed := kana.Normalize(string(m.input))
	success := kana.Matches(typed, m.current.Answer)
	m.input = nil

	if err := m.history.RecordAttempt(m.current.ID, typed, success, ms, now); err != nil {
		m.logger.Error("failed to record attempt", "item", m.current.ID, "err", err)
		m.shownAt = now
		return
	}
	m.sessionAttempts++
	if success {
		m.sessionSuccesses++
	}
	m.responses = append(m.responses, ms)
	m.last = &feedback{item: m.current, input: typed, success: success, ms: ms}

	if success {
		m.nextItem()
		return
	}
	// The same item stays up; the next attempt is timed from here.
	m.shownAt = now
}

func (m *Model) handleBackspace() {
	if len(m.input) == 0 {
		return
	}
	m.input = m.input[:len(m.input)-1]
}

func (m *Model) handleRunes(runes []rune) {
	if m.mode != ModeReady {
		return
	}
	for _, r := range runes {
		if len(m.input) >= maxInputRunes {
			return
		}
		m.input = append(m.input, r)
	}
}

// flush persists the history and closes the running session, if any.
func (m *Model) flush() {
	if m.sessionAttempts == 0 {
		return
	}
	ctx := context.Background()
	endedAt := m.now()
	m.history.LastSession = endedAt
	if m.backend == nil {
		m.resetSession()
		return
	}
	if err := m.backend.SaveHistory(ctx, m.history); err != nil {
		m.err = fmt.Errorf("failed to save history: %w", err)
		m.logger.Error("failed to save history", "err", err)
	}
	rec := model.SessionRecord{
		ID:         m.sessionIdentifier(),
		StartedAt:  m.sessionStart,
		EndedAt:    endedAt,
		Script:     m.config.Script,
		Subset:     m.config.Subset,
		Attempts:   m.sessionAttempts,
		Successes:  m.sessionSuccesses,
		Failures:   m.sessionAttempts - m.sessionSuccesses,
		DurationMs: endedAt.Sub(m.sessionStart).Milliseconds(),
	}
	if err := m.backend.InsertSession(ctx, rec); err != nil {
		m.err = fmt.Errorf("failed to save session: %w", err)
		m.logger.Error("failed to save session", "id", rec.ID, "err", err)
	} else {
		m.logger.Info("session saved", "id", rec.ID, "attempts", rec.Attempts, "successes", rec.Successes)
	}
	m.resetSession()
}

func (m *Model) sessionIdentifier() string {
	if m.sessionID == "" && m.newID != nil {
		m.sessionID = m.newID()
	}
	if m.sessionID == "" {
		m.sessionID = m.sessionStart.UTC().Format("20060102T150405.000000000")
	}
	return m.sessionID
}

func (m *Model) resetSession() {
	m.sessionID = ""
	m.sessionStart = time.Time{}
	m.sessionAttempts = 0
	m.sessionSuccesses = 0
	m.responses = nil
}

// View implements tea.Model.
func (m *Model) View() string {
	lines := []string{m.renderPrompt(), "", m.renderInput(), m.renderFeedback()}
	if m.err != nil {
		lines = append(lines, incorrectStyle.Render(m.err.Error()))
	}
	content := lipgloss.JoinVertical(lipgloss.Center, lines...)
	footer := m.renderFooter()
	if m.width == 0 || m.height == 0 {
		return content + "\n" + footer
	}
	if m.height < 3 {
		return lipgloss.Place(m.width, m.height, lipgloss.Center, lipgloss.Center, content)
	}
	body := lipgloss.Place(m.width, m.height-1, lipgloss.Center, lipgloss.Center, content)
	footerLine := lipgloss.Place(m.width, 1, lipgloss.Center, lipgloss.Center, footer)
	return body + "\n" + footerLine
}

func (m *Model) renderPrompt() string {
	switch m.mode {
	case ModeInitial:
		return hintStyle.Render("Press Enter to start")
	case ModePaused:
		return hintStyle.Render("Paused · press Enter to continue")
	default:
		return promptStyle.Render(m.current.ID)
	}
}

func (m *Model) renderInput() string {
	if m.mode != ModeReady {
		return ""
	}
	return inputStyle.Render(string(m.input)) + cursorStyle.Render(" ")
}

func (m *Model) renderFeedback() string {
	if m.last == nil {
		return ""
	}
	f := m.last
	recent := ""
	if s, ok := m.history.Get(f.item.ID); ok {
		recent = fmt.Sprintf("  recent %.0f%%", s.RecentSuccessRate(m.config.RecentWindow)*100)
	}
	if f.success {
		return correctStyle.Render(fmt.Sprintf("✓ %s %s", f.item.ID, f.input)) +
			pendingStyle.Render(fmt.Sprintf("  %.0fms%s", f.ms, recent))
	}
	return incorrectStyle.Render("✗ ") + renderAnswer([]rune(f.item.Answer), []rune(f.input)) +
		pendingStyle.Render(fmt.Sprintf("  expected %s%s", f.item.Answer, recent))
}

func (m *Model) renderFooter() string {
	segments := []string{}
	if m.sessionAttempts > 0 {
		acc := float64(m.sessionSuccesses) / float64(m.sessionAttempts)
		segments = append(segments, fmt.Sprintf("Session %d · %.1f%%", m.sessionAttempts, acc*100))
		segments = append(segments, "Response "+statsPkg.Sparkline(statsPkg.Tail(m.responses, m.config.RecentWindow)))
	}
	apps, succ, _ := m.history.Totals()
	if apps > 0 {
		segments = append(segments, fmt.Sprintf("All-time %d · %.1f%%", apps, float64(succ)/float64(apps)*100))
	}
	segments = append(segments, "Esc quit · Enter submit · empty Enter pause")
	return footerStyle.Render(strings.Join(segments, "  "))
}
