// Package stats contains statistics calculations and reporting.
package stats

import (
	"fmt"
	"io"
	"math"
	"strings"

	"github.com/verte-zerg/kanadrill/internal/model"
)

const sparkChars = " .:-=+*#%@"

// SessionMetrics computes items per minute and accuracy for a session.
func SessionMetrics(attempts, successes int, durationMs int64) (perMinute, accuracy float64) {
	if attempts > 0 {
		accuracy = float64(successes) / float64(attempts)
	}
	if durationMs <= 0 {
		return 0, accuracy
	}
	minutes := float64(durationMs) / 60000.0
	return float64(attempts) / minutes, accuracy
}

// MovingAverage computes a rolling mean over the provided window size.
func MovingAverage(values []float64, window int) []float64 {
	out := make([]float64, len(values))
	if window <= 1 || len(values) == 0 {
		copy(out, values)
		return out
	}
	var sum float64
	for i, v := range values {
		sum += v
		den := float64(i + 1)
		if i >= window {
			sum -= values[i-window]
			den = float64(window)
		}
		out[i] = sum / den
	}
	return out
}

// Sparkline renders a single-line ASCII sparkline for the values.
func Sparkline(values []float64) string {
	if len(values) == 0 {
		return ""
	}
	minVal, maxVal := minMax(values)
	if math.Abs(maxVal-minVal) < 1e-9 {
		return strings.Repeat(string(sparkChars[len(sparkChars)/2]), len(values))
	}
	var b strings.Builder
	for _, v := range values {
		pos := (v - minVal) / (maxVal - minVal)
		idx := int(math.Round(pos * float64(len(sparkChars)-1)))
		idx = max(0, min(idx, len(sparkChars)-1))
		b.WriteByte(sparkChars[idx])
	}
	return b.String()
}

// Tail returns the last n values, or all of them when n is not positive.
func Tail(values []float64, n int) []float64 {
	if n <= 0 || len(values) <= n {
		return values
	}
	return values[len(values)-n:]
}

func minMax(values []float64) (float64, float64) {
	if len(values) == 0 {
		return 0, 0
	}
	minVal, maxVal := values[0], values[0]
	for _, v := range values[1:] {
		minVal = math.Min(minVal, v)
		maxVal = math.Max(maxVal, v)
	}
	return minVal, maxVal
}

// Totals aggregates the item counters of a report.
type Totals struct {
	Items      int
	Attempts   int
	Successes  int
	Failures   int
	PracticeMs float64
}

// RenderSummary prints a summary of sessions and lifetime totals.
func RenderSummary(w io.Writer, sessions []model.SessionRecord, totals Totals) error {
	p := &printer{w: w}
	p.println("Summary")
	p.printf("Items practiced: %d\n", totals.Items)
	p.printf("Attempts: %d (%d correct, %d wrong)\n", totals.Attempts, totals.Successes, totals.Failures)
	if totals.Attempts > 0 {
		p.printf("Lifetime accuracy: %.2f%%\n", float64(totals.Successes)/float64(totals.Attempts)*100)
	}
	p.printf("Practice time: %s\n", formatDuration(totals.PracticeMs))
	if len(sessions) == 0 {
		p.println("No sessions found.")
		p.println("")
		return p.err
	}
	var totalRate, totalAcc, bestRate float64
	for _, s := range sessions {
		rate, acc := SessionMetrics(s.Attempts, s.Successes, s.DurationMs)
		totalRate += rate
		totalAcc += acc
		bestRate = math.Max(bestRate, rate)
	}
	count := float64(len(sessions))
	p.printf("Sessions: %d\n", len(sessions))
	p.printf("Avg items/min: %.2f\n", totalRate/count)
	p.printf("Best items/min: %.2f\n", bestRate)
	p.printf("Avg session accuracy: %.2f%%\n", (totalAcc/count)*100)
	p.println("")
	return p.err
}

// RenderRankings prints the accuracy and speed rankings side by side.
func RenderRankings(w io.Writer, weakest, slowest []ItemSummary) error {
	p := &printer{w: w}
	if len(weakest) == 0 {
		p.println("No item stats found.")
		return p.err
	}
	headers := []string{"Item", "Accuracy", "Tests", "", "Item", "Response", "Tests"}
	rows := make([][]string, 0, max(len(weakest), len(slowest)))
	for i := 0; i < max(len(weakest), len(slowest)); i++ {
		row := make([]string, 7)
		if i < len(weakest) {
			row[0] = weakest[i].ID
			row[1] = fmt.Sprintf("%.1f%%", weakest[i].Accuracy*100)
			row[2] = fmt.Sprintf("%d", weakest[i].Attempts)
		}
		if i < len(slowest) {
			row[4] = slowest[i].ID
			row[5] = fmt.Sprintf("%.0fms", slowest[i].Response)
			row[6] = fmt.Sprintf("%d", slowest[i].Attempts)
		}
		rows = append(rows, row)
	}
	p.println("By Accuracy / By Speed (EMA)")
	rightAlign := map[int]bool{1: true, 2: true, 5: true, 6: true}
	for _, line := range formatTable(headers, rows, rightAlign) {
		p.println(line)
	}
	p.println("")
	return p.err
}

// RenderMistakes prints mistake groups as "item → confusions".
func RenderMistakes(w io.Writer, groups []MistakeGroup) error {
	p := &printer{w: w}
	p.println("Recent Mistakes")
	if len(groups) == 0 {
		p.println("None.")
	}
	for _, line := range MistakeLines(groups) {
		p.println(line)
	}
	p.println("")
	return p.err
}

// MistakeLines formats mistake groups one per line.
func MistakeLines(groups []MistakeGroup) []string {
	lines := make([]string, 0, len(groups))
	for _, g := range groups {
		lines = append(lines, fmt.Sprintf("%s → %s", g.ID, strings.Join(g.Confusions, ", ")))
	}
	return lines
}

// RenderCurves plots the response trend and the per-session accuracy curve.
func RenderCurves(w io.Writer, r Report, totalWidth, height int, useColor bool) error {
	width := 0
	if totalWidth > 0 {
		width = PlotWidthFor(totalWidth)
	}
	if err := PlotSeriesWithColor(w, "Response Time Trend (EMA)", []Series{
		{Name: "Response", Unit: "ms", Values: r.Trend},
	}, width, height, useColor); err != nil {
		return err
	}
	if len(r.Sessions) == 0 {
		return nil
	}
	accs := make([]float64, len(r.Sessions))
	rates := make([]float64, len(r.Sessions))
	for i, s := range r.Sessions {
		rate, acc := SessionMetrics(s.Attempts, s.Successes, s.DurationMs)
		accs[i] = acc * 100
		rates[i] = rate
	}
	return PlotSeriesWithColor(w, "Session Curves", []Series{
		{Name: "Accuracy", Unit: "%", Values: MovingAverage(accs, r.CurveWindow)},
		{Name: "Items/min", Values: MovingAverage(rates, r.CurveWindow)},
	}, width, height, useColor)
}

func formatDuration(ms float64) string {
	secs := int64(ms / 1000)
	return fmt.Sprintf("%dh%02dm%02ds", secs/3600, secs/60%60, secs%60)
}

// printer remembers the first write error so renderers can print freely.
type printer struct {
	w   io.Writer
	err error
}

func (p *printer) printf(format string, args ...any) {
	if p.err != nil {
		return
	}
	_, p.err = fmt.Fprintf(p.w, format, args...)
}

func (p *printer) println(line string) {
	if p.err != nil {
		return
	}
	_, p.err = fmt.Fprintln(p.w, line)
}
