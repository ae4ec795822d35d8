// Package storetest holds behaviour shared by every storage backend.
package storetest

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/verte-zerg/kanadrill/internal/model"
	"github.com/verte-zerg/kanadrill/internal/practice"
	"github.com/verte-zerg/kanadrill/internal/store"
)

var t0 = time.Date(2025, 6, 15, 10, 0, 0, 0, time.UTC)

// Opener returns a fresh, empty backend. The suite closes it.
type Opener func(t *testing.T) store.Backend

// Run exercises open against the backend contract.
func Run(t *testing.T, open Opener) {
	cases := []struct {
		name string
		fn   func(*testing.T, store.Backend)
	}{
		{"LoadEmpty", testLoadEmpty},
		{"SaveLoadRoundTrip", testSaveLoadRoundTrip},
		{"SaveIsIncremental", testSaveIsIncremental},
		{"SaveReplacesLongerHistory", testSaveReplacesLongerHistory},
		{"SaveOverwritesAttemptRows", testSaveOverwritesAttemptRows},
		{"Sessions", testSessions},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			st := open(t)
			t.Cleanup(func() { _ = st.Close() })
			tc.fn(t, st)
		})
	}
}

func sampleHistory(t *testing.T) *practice.History {
	t.Helper()
	h := practice.NewHistory(t0)
	require.NoError(t, h.RecordAttempt("し", "si", false, 1500, t0.Add(time.Second)))
	require.NoError(t, h.RecordAttempt("し", "shi", true, 700, t0.Add(2*time.Second)))
	require.NoError(t, h.RecordAttempt("あ", "a", true, 400.5, t0.Add(3*time.Second)))
	h.GetOrInit("い", t0)
	return h
}

func testLoadEmpty(t *testing.T, st store.Backend) {
	h, err := st.LoadHistory(context.Background())
	require.NoError(t, err)
	assert.Empty(t, h.Items)
	assert.Zero(t, h.TotalPracticeMs)
}

func testSaveLoadRoundTrip(t *testing.T, st store.Backend) {
	ctx := context.Background()
	h := sampleHistory(t)
	require.NoError(t, st.SaveHistory(ctx, h))

	got, err := st.LoadHistory(ctx)
	require.NoError(t, err)
	assert.Equal(t, h.IDs(), got.IDs())
	assert.Equal(t, h.TotalPracticeMs, got.TotalPracticeMs)
	assert.True(t, h.LastSession.Equal(got.LastSession))

	want := h.Items["し"]
	s := got.Items["し"]
	assert.Equal(t, want.Appearances, s.Appearances)
	assert.Equal(t, want.Failures, s.Failures)
	assert.InDelta(t, want.ExpAvgResponse, s.ExpAvgResponse, 1e-9)
	assert.InDelta(t, want.ExpAvgAccuracy, s.ExpAvgAccuracy, 1e-9)
	require.Len(t, s.TestHistory, 2)
	assert.Equal(t, "si", s.TestHistory[0].Input)
	assert.False(t, s.TestHistory[0].Success)
	assert.True(t, want.TestHistory[1].StartTime.Equal(s.TestHistory[1].StartTime))
	require.Len(t, s.Mistakes, 1)
	assert.Equal(t, "si", s.Mistakes[0].Input)

	assert.Equal(t, 0, got.Items["い"].Appearances)
	assert.Empty(t, got.Validate(false))
}

func testSaveIsIncremental(t *testing.T, st store.Backend) {
	ctx := context.Background()
	h := sampleHistory(t)
	require.NoError(t, st.SaveHistory(ctx, h))
	require.NoError(t, h.RecordAttempt("し", "shi", true, 600, t0.Add(time.Minute)))
	require.NoError(t, st.SaveHistory(ctx, h))
	require.NoError(t, st.SaveHistory(ctx, h))

	got, err := st.LoadHistory(ctx)
	require.NoError(t, err)
	assert.Len(t, got.Items["し"].TestHistory, 3)
	assert.Len(t, got.Items["し"].Mistakes, 1)
	assert.Equal(t, 3, got.Items["し"].Appearances)
}

func testSaveReplacesLongerHistory(t *testing.T, st store.Backend) {
	ctx := context.Background()
	require.NoError(t, st.SaveHistory(ctx, sampleHistory(t)))

	replacement := practice.NewHistory(t0)
	require.NoError(t, replacement.RecordAttempt("し", "shi", true, 500, t0))
	require.NoError(t, st.SaveHistory(ctx, replacement))

	got, err := st.LoadHistory(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{"し"}, got.IDs())
	require.Len(t, got.Items["し"].TestHistory, 1)
	assert.Equal(t, "shi", got.Items["し"].TestHistory[0].Input)
	assert.Empty(t, got.Items["し"].Mistakes)
	assert.Empty(t, got.Validate(false))
}

func testSaveOverwritesAttemptRows(t *testing.T, st store.Backend) {
	ctx := context.Background()
	first := practice.NewHistory(t0)
	require.NoError(t, first.RecordAttempt("し", "si", false, 1500, t0))
	require.NoError(t, st.SaveHistory(ctx, first))

	replacement := practice.NewHistory(t0)
	require.NoError(t, replacement.RecordAttempt("し", "shi", true, 500, t0.Add(time.Hour)))
	require.NoError(t, st.SaveHistory(ctx, replacement))

	got, err := st.LoadHistory(ctx)
	require.NoError(t, err)
	s := got.Items["し"]
	require.Len(t, s.TestHistory, 1)
	assert.Equal(t, "shi", s.TestHistory[0].Input)
	assert.True(t, s.TestHistory[0].Success)
	assert.Equal(t, 500.0, s.TestHistory[0].DurationMs)
	assert.True(t, t0.Add(time.Hour).Equal(s.TestHistory[0].StartTime))
	assert.Empty(t, s.Mistakes)
	assert.Empty(t, got.Validate(false))
}

func testSessions(t *testing.T, st store.Backend) {
	ctx := context.Background()
	for i, script := range []string{"hiragana", "katakana", "hiragana"} {
		start := t0.Add(time.Duration(i) * time.Hour)
		require.NoError(t, st.InsertSession(ctx, model.SessionRecord{
			ID:         string(rune('a' + i)),
			StartedAt:  start,
			EndedAt:    start.Add(10 * time.Minute),
			Script:     script,
			Subset:     "main",
			Attempts:   10 + i,
			Successes:  8,
			Failures:   2 + i,
			DurationMs: 600000,
		}))
	}

	all, err := st.ListSessions(ctx, model.StatsConfig{})
	require.NoError(t, err)
	require.Len(t, all, 3)
	assert.Equal(t, "a", all[0].ID)
	assert.Equal(t, 12, all[2].Attempts)

	hira, err := st.ListSessions(ctx, model.StatsConfig{Script: "hiragana"})
	require.NoError(t, err)
	assert.Len(t, hira, 2)

	since := t0.Add(30 * time.Minute)
	recent, err := st.ListSessions(ctx, model.StatsConfig{Since: &since})
	require.NoError(t, err)
	assert.Len(t, recent, 2)

	last, err := st.ListSessions(ctx, model.StatsConfig{Last: 2})
	require.NoError(t, err)
	require.Len(t, last, 2)
	assert.Equal(t, "b", last[0].ID)
	assert.Equal(t, "c", last[1].ID)

	assert.Error(t, st.InsertSession(ctx, model.SessionRecord{ID: "a", StartedAt: t0, EndedAt: t0}))
}
