package stats

import (
	"context"
	"fmt"

	"github.com/verte-zerg/kanadrill/internal/model"
	"github.com/verte-zerg/kanadrill/internal/practice"
	"github.com/verte-zerg/kanadrill/internal/store"
)

// Report contains precomputed data for stats rendering.
type Report struct {
	Sessions    []model.SessionRecord
	Items       []ItemSummary
	Weakest     []ItemSummary
	Slowest     []ItemSummary
	Mistakes    []MistakeGroup
	Trend       []float64
	Totals      Totals
	CurveWindow int
}

// BuildReport loads and prepares data for stats rendering.
func BuildReport(ctx context.Context, backend store.Backend, cfg model.StatsConfig) (Report, error) {
	sessions, err := backend.ListSessions(ctx, cfg)
	if err != nil {
		return Report{}, fmt.Errorf("failed to list sessions: %w", err)
	}
	h, err := backend.LoadHistory(ctx)
	if err != nil {
		return Report{}, fmt.Errorf("failed to load history: %w", err)
	}
	return NewReport(h, sessions, cfg), nil
}

// NewReport derives a report from an in-memory history.
func NewReport(h *practice.History, sessions []model.SessionRecord, cfg model.StatsConfig) Report {
	top := cfg.Top
	if top <= 0 {
		top = DefaultTop
	}
	h = ForScript(h, cfg.Script)
	items := Summaries(h)
	r := Report{
		Sessions:    sessions,
		Items:       items,
		Weakest:     WeakestItems(items, top),
		Slowest:     SlowestItems(items, top),
		Mistakes:    RecentMistakes(h, top),
		Trend:       ResponseTrend(h, cfg.Since),
		CurveWindow: cfg.CurveWindow,
	}
	r.Totals.Items = len(items)
	if h != nil {
		r.Totals.Attempts, r.Totals.Successes, r.Totals.Failures = h.Totals()
		r.Totals.PracticeMs = h.TotalPracticeMs
	}
	return r
}
