package stats

import (
	"sort"
	"time"

	"github.com/verte-zerg/kanadrill/internal/kana"
	"github.com/verte-zerg/kanadrill/internal/practice"
)

// DefaultTop is the ranking length used when none is configured.
const DefaultTop = 15

// ItemSummary is the reporting view of one item's statistics.
type ItemSummary struct {
	ID       string
	Accuracy float64
	Response float64
	Attempts int
	Failures int
}

// Summaries returns one row per practiced item, sorted by id. Items that
// were initialized but never answered are skipped.
func Summaries(h *practice.History) []ItemSummary {
	if h == nil {
		return nil
	}
	out := make([]ItemSummary, 0, len(h.Items))
	for _, id := range h.IDs() {
		s := h.Items[id]
		if s.Appearances == 0 {
			continue
		}
		out = append(out, ItemSummary{
			ID:       id,
			Accuracy: s.ExpAvgAccuracy,
			Response: s.ExpAvgResponse,
			Attempts: len(s.TestHistory),
			Failures: s.Failures,
		})
	}
	return out
}

// ForScript narrows h to the items written in script. An empty or mixed
// script returns h itself. The narrowed history shares its statistics with h
// and its practice time is the sum of the kept items' response times.
func ForScript(h *practice.History, script string) *practice.History {
	if h == nil || script == "" || script == string(kana.Mixed) {
		return h
	}
	out := &practice.History{
		Items:       make(map[string]*practice.ItemStats),
		LastSession: h.LastSession,
	}
	for id, s := range h.Items {
		if string(kana.ScriptOf(id)) != script {
			continue
		}
		out.Items[id] = s
		out.TotalPracticeMs += s.TotalResponseMs
	}
	return out
}

// WeakestItems returns up to n items with the lowest recent accuracy.
func WeakestItems(items []ItemSummary, n int) []ItemSummary {
	return rank(items, n, func(a, b ItemSummary) bool {
		if a.Accuracy == b.Accuracy {
			return a.ID < b.ID
		}
		return a.Accuracy < b.Accuracy
	})
}

// SlowestItems returns up to n items with the highest recent response time.
func SlowestItems(items []ItemSummary, n int) []ItemSummary {
	return rank(items, n, func(a, b ItemSummary) bool {
		if a.Response == b.Response {
			return a.ID < b.ID
		}
		return a.Response > b.Response
	})
}

func rank(items []ItemSummary, n int, less func(a, b ItemSummary) bool) []ItemSummary {
	if n <= 0 || len(items) == 0 {
		return nil
	}
	sorted := make([]ItemSummary, len(items))
	copy(sorted, items)
	sort.SliceStable(sorted, func(i, j int) bool { return less(sorted[i], sorted[j]) })
	if n > len(sorted) {
		n = len(sorted)
	}
	return sorted[:n]
}

// MistakeGroup lists what was typed instead of an item. Inputs that spell
// another kana of the same script are shown as that kana.
type MistakeGroup struct {
	ID         string
	Confusions []string
	Latest     time.Time
}

// RecentMistakes groups mistakes per item, most recent first, up to n groups.
func RecentMistakes(h *practice.History, n int) []MistakeGroup {
	if h == nil || n <= 0 {
		return nil
	}
	lookup := map[kana.Script]map[string]string{
		kana.Hiragana: kana.ByRomaji(kana.Hiragana),
		kana.Katakana: kana.ByRomaji(kana.Katakana),
	}
	var groups []MistakeGroup
	for _, id := range h.IDs() {
		s := h.Items[id]
		latest, ok := s.LatestMistake()
		if !ok {
			continue
		}
		rev := lookup[kana.ScriptOf(id)]
		confusions := make([]string, 0, len(s.Mistakes))
		for _, m := range s.Mistakes {
			if glyph, ok := rev[kana.Normalize(m.Input)]; ok {
				confusions = append(confusions, glyph)
			} else {
				confusions = append(confusions, m.Input)
			}
		}
		groups = append(groups, MistakeGroup{ID: id, Confusions: confusions, Latest: latest.Timestamp})
	}
	sort.SliceStable(groups, func(i, j int) bool {
		return groups[i].Latest.After(groups[j].Latest)
	})
	if len(groups) > n {
		groups = groups[:n]
	}
	return groups
}

// ResponseTrend replays every attempt since since (all when nil) in
// chronological order through the response-time EMA.
func ResponseTrend(h *practice.History, since *time.Time) []float64 {
	if h == nil {
		return nil
	}
	var attempts []practice.Attempt
	for _, s := range h.Items {
		for _, a := range s.TestHistory {
			if since != nil && a.StartTime.Before(*since) {
				continue
			}
			attempts = append(attempts, a)
		}
	}
	sort.SliceStable(attempts, func(i, j int) bool {
		return attempts[i].StartTime.Before(attempts[j].StartTime)
	})
	trend := make([]float64, len(attempts))
	var ema float64
	for i, a := range attempts {
		if i == 0 {
			ema = a.DurationMs
		} else {
			ema = practice.Alpha*a.DurationMs + (1-practice.Alpha)*ema
		}
		trend[i] = ema
	}
	return trend
}

// Grade buckets a value for colouring.
type Grade int

const (
	GradeGood Grade = iota
	GradeFair
	GradePoor
)

// AccuracyGrade grades a recent accuracy in [0,1].
func AccuracyGrade(acc float64) Grade {
	switch {
	case acc < 0.8:
		return GradePoor
	case acc < 0.9:
		return GradeFair
	default:
		return GradeGood
	}
}

// ResponseGrade grades a recent response time in milliseconds.
func ResponseGrade(ms float64) Grade {
	switch {
	case ms > 2000:
		return GradePoor
	case ms > 1000:
		return GradeFair
	default:
		return GradeGood
	}
}
