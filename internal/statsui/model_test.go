package statsui

import (
	"context"
	"path/filepath"
	"strings"
	"testing"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/verte-zerg/kanadrill/internal/model"
	"github.com/verte-zerg/kanadrill/internal/practice"
	"github.com/verte-zerg/kanadrill/internal/store"
)

func seededStore(t *testing.T) *store.Store {
	t.Helper()
	st, err := store.Open(filepath.Join(t.TempDir(), "kanadrill.db"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = st.Close() })

	now := time.Date(2025, 6, 15, 10, 0, 0, 0, time.UTC)
	h := practice.NewHistory(now)
	require.NoError(t, h.RecordAttempt("ぬ", "me", false, 2400, now))
	require.NoError(t, h.RecordAttempt("め", "me", true, 700, now.Add(time.Second)))
	ctx := context.Background()
	require.NoError(t, st.SaveHistory(ctx, h))
	require.NoError(t, st.InsertSession(ctx, model.SessionRecord{
		ID: "s1", StartedAt: now, EndedAt: now.Add(time.Minute), Script: "hiragana", Subset: "main",
		Attempts: 2, Successes: 1, Failures: 1, DurationMs: 60000,
	}))
	return st
}

func sized(t *testing.T, m *Model) {
	t.Helper()
	m.Update(tea.WindowSizeMsg{Width: 100, Height: 40})
}

func TestOverviewAndTabs(t *testing.T) {
	m := NewModel(seededStore(t), model.StatsConfig{CurveWindow: 5})
	sized(t, m)
	require.Empty(t, m.errMsg)

	view := m.View()
	assert.Contains(t, view, "Overview")
	assert.Contains(t, view, "Attempts")
	assert.Contains(t, view, "Weakest: ぬ")

	m.Update(tea.KeyMsg{Type: tea.KeyRight})
	assert.Equal(t, tabAccuracy, m.activeTab)
	assert.Contains(t, m.View(), "ぬ")

	m.Update(tea.KeyMsg{Type: tea.KeyLeft})
	m.Update(tea.KeyMsg{Type: tea.KeyLeft})
	assert.Equal(t, tabMistakes, m.activeTab)
	assert.Contains(t, m.View(), "ぬ → め")
}

func TestCurveWindowKeys(t *testing.T) {
	m := NewModel(seededStore(t), model.StatsConfig{CurveWindow: 5})
	m.Update(tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune("=")})
	assert.Equal(t, 10, m.cfg.CurveWindow)
	m.Update(tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune("-")})
	m.Update(tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune("-")})
	assert.Equal(t, 1, m.cfg.CurveWindow)

	assert.Equal(t, 10, nextCurveWindow(7))
	assert.Equal(t, 5, prevCurveWindow(7))
}

func TestApplyFilter(t *testing.T) {
	m := NewModel(seededStore(t), model.StatsConfig{CurveWindow: 5})
	sized(t, m)
	m.Update(tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune("/")})
	require.True(t, m.filterMode)

	m.filterInputs[inputScript].SetValue("Katakana")
	m.filterInputs[inputLast].SetValue("3")
	m.filterInputs[inputWindow].SetValue("2")
	m.Update(tea.KeyMsg{Type: tea.KeyEnter})
	assert.False(t, m.filterMode)
	assert.Equal(t, "katakana", m.cfg.Script)
	assert.Equal(t, 3, m.cfg.Last)
	assert.Equal(t, 2, m.cfg.CurveWindow)
	assert.Empty(t, m.report.Sessions)

	m.Update(tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune("/")})
	m.filterInputs[inputSince].SetValue("yesterday")
	m.Update(tea.KeyMsg{Type: tea.KeyEnter})
	assert.True(t, m.filterMode)
	assert.Contains(t, m.filterError, "invalid since date")
	m.Update(tea.KeyMsg{Type: tea.KeyEsc})
	assert.False(t, m.filterMode)
}

func TestFitLinesAndTruncate(t *testing.T) {
	out := fitLines("a\nb\nc", 3, 2)
	assert.Equal(t, "a  \nb  ", out)
	assert.Equal(t, "ab...", truncateLine("abcdefgh", 5))
	assert.Equal(t, 2, len(strings.Split(fitLines("x", 1, 2), "\n")))
}
